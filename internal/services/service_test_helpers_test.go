package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"assettrack/internal/models"
	"assettrack/internal/repositories"
)

// setupTestDB creates an in-memory database with the production schema,
// including the partial unique indexes backing the ledger invariants.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	return db
}

func newTestService(t *testing.T, cfg Config) (AssetService, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	svc := NewAssetService(
		db,
		cfg,
		repositories.NewAssetTypeRepository(db),
		repositories.NewAssetRepository(db),
		repositories.NewAssignmentRepository(db),
		repositories.NewRepairRepository(db),
	)
	return svc, db
}

func seedType(t *testing.T, db *gorm.DB, name string, limit int) *models.AssetType {
	t.Helper()
	tp := &models.AssetType{Name: name, TotalLimit: limit}
	require.NoError(t, db.Create(tp).Error)
	return tp
}

func mustRegister(t *testing.T, svc AssetService, assetID string, typeID uint) *models.Asset {
	t.Helper()
	asset, err := svc.RegisterAsset(RegisterAssetInput{AssetID: assetID, TypeID: typeID})
	require.NoError(t, err)
	return asset
}

func assetStatus(t *testing.T, db *gorm.DB, assetID string) models.AssetStatus {
	t.Helper()
	var asset models.Asset
	require.NoError(t, db.First(&asset, "asset_id = ?", assetID).Error)
	return asset.Status
}

func assignmentRows(t *testing.T, db *gorm.DB, assetID string) []models.AssignmentHistory {
	t.Helper()
	var rows []models.AssignmentHistory
	require.NoError(t, db.Where("asset_id = ?", assetID).Order("id ASC").Find(&rows).Error)
	return rows
}

func repairRows(t *testing.T, db *gorm.DB, assetID string) []models.RepairHistory {
	t.Helper()
	var rows []models.RepairHistory
	require.NoError(t, db.Where("asset_id = ?", assetID).Order("id ASC").Find(&rows).Error)
	return rows
}

func dateOf(t time.Time) string {
	return t.Format("2006-01-02")
}

func todayStr() string {
	return time.Now().UTC().Format("2006-01-02")
}
