package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"assettrack/internal/auth"
	"assettrack/internal/handlers"
	"assettrack/internal/models"
	"assettrack/internal/repositories"
	"assettrack/internal/services"
)

func main() {
	// Optional .env for local development; real deployments use the
	// environment directly.
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get generic DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := models.Migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	seedDefaultAssetTypes(db)
	seedAdminUser(db)

	typeRepo := repositories.NewAssetTypeRepository(db)
	assetRepo := repositories.NewAssetRepository(db)
	assignRepo := repositories.NewAssignmentRepository(db)
	repairRepo := repositories.NewRepairRepository(db)
	userRepo := repositories.NewUserRepository(db)

	cfg := services.Config{
		CloseLedgersOnRetire: os.Getenv("CLOSE_LEDGERS_ON_RETIRE") == "true",
	}
	assetService := services.NewAssetService(db, cfg, typeRepo, assetRepo, assignRepo, repairRepo)
	directoryService := services.NewDirectoryService(db, userRepo)
	sessions := auth.NewManager(jwtSecret, auth.DefaultTTL)

	router := gin.Default()

	handlers.RegisterRoutes(router, assetService, directoryService, sessions)

	serverAddr := os.Getenv("SERVER_ADDR")
	if serverAddr == "" {
		serverAddr = ":8080"
	}

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	log.Printf("Starting server on %s", serverAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// seedDefaultAssetTypes inserts the standard hardware categories on first run.
func seedDefaultAssetTypes(db *gorm.DB) {
	defaults := []models.AssetType{
		{Name: "Laptop", TotalLimit: models.DefaultTypeLimit},
		{Name: "Monitor", TotalLimit: models.DefaultTypeLimit},
		{Name: "Keyboard", TotalLimit: models.DefaultTypeLimit},
		{Name: "Mouse", TotalLimit: models.DefaultTypeLimit},
	}

	var count int64
	db.Model(&models.AssetType{}).Count(&count)
	if count > 0 {
		return
	}

	log.Println("Seeding default asset types...")
	for _, t := range defaults {
		if err := db.Create(&t).Error; err != nil {
			log.Printf("failed to seed asset type %q: %v", t.Name, err)
		}
	}
}

// seedAdminUser guarantees at least one admin exists so the directory can be
// bootstrapped through the API.
func seedAdminUser(db *gorm.DB) {
	email := os.Getenv("ADMIN_EMAIL")
	if email == "" {
		return
	}

	var count int64
	db.Model(&models.User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		return
	}

	admin := models.User{
		EmployeeID: "ADMIN",
		Name:       "Administrator",
		Email:      email,
		Role:       models.UserRoleAdmin,
		Status:     models.UserStatusActive,
	}
	if err := db.Create(&admin).Error; err != nil {
		log.Printf("failed to seed admin user %s: %v", email, err)
		return
	}
	log.Printf("Seeded admin user %s", email)
}
