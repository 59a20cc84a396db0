package repositories

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"assettrack/internal/models"
)

// Each repository method accepts an optional transaction handle; passing nil
// falls back to the repository's own connection.

type AssetTypeRepository interface {
	Create(db *gorm.DB, t *models.AssetType) error
	GetByID(db *gorm.DB, id uint) (*models.AssetType, error)
	GetByName(db *gorm.DB, name string) (*models.AssetType, error)
	ListWithCounts(db *gorm.DB) ([]AssetTypeCount, error)
	SoftDelete(db *gorm.DB, id uint) error
	CountActiveAssets(db *gorm.DB, typeID uint) (int64, error)
}

// AssetTypeCount is an asset type together with the number of its assets that
// still count against the type quota (everything except soft-deleted assets).
type AssetTypeCount struct {
	models.AssetType
	InUse int64 `json:"in_use"`
}

type AssetRepository interface {
	Create(db *gorm.DB, asset *models.Asset) error
	GetByID(db *gorm.DB, assetID string) (*models.Asset, error)
	GetByIDForUpdate(db *gorm.DB, assetID string) (*models.Asset, error)
	UpdateStatus(db *gorm.DB, assetID string, status models.AssetStatus) error
	ListByType(db *gorm.DB, typeID uint) ([]models.Asset, error)
	ListByTypeNameAndStatus(db *gorm.DB, typeName string, statuses []models.AssetStatus) ([]models.Asset, error)
	ListInRepairs(db *gorm.DB, typeName string) ([]AssetRepairRow, error)
	ListHeldByEmployee(db *gorm.DB, employeeID string) ([]models.Asset, error)
	HardDelete(db *gorm.DB, assetID string) error
}

// AssetRepairRow joins an asset in Repairs status with its open Pending
// repair row, as shown in the repairs view.
type AssetRepairRow struct {
	models.Asset
	IssueReported string    `json:"issue_reported"`
	DateReported  time.Time `json:"date_reported"`
}

type AssignmentRepository interface {
	Create(db *gorm.DB, row *models.AssignmentHistory) error
	GetActiveByAsset(db *gorm.DB, assetID string) (*models.AssignmentHistory, error)
	GetActiveByAssetAndEmployee(db *gorm.DB, assetID, employeeID string) (*models.AssignmentHistory, error)
	Close(db *gorm.DB, id uint, toDate time.Time, remarks string) error
	ListByAsset(db *gorm.DB, assetID string) ([]models.AssignmentHistory, error)
	CountActive(db *gorm.DB, assetID string) (int64, error)
	DeleteByAsset(db *gorm.DB, assetID string) error
}

type RepairRepository interface {
	Create(db *gorm.DB, row *models.RepairHistory) error
	GetPendingByAsset(db *gorm.DB, assetID string) (*models.RepairHistory, error)
	Resolve(db *gorm.DB, id uint, resolvedAt time.Time, amount int, issue, comments string) error
	ListByAsset(db *gorm.DB, assetID string) ([]models.RepairHistory, error)
	CountPending(db *gorm.DB, assetID string) (int64, error)
	DeleteByAsset(db *gorm.DB, assetID string) error
}

type UserRepository interface {
	Create(db *gorm.DB, user *models.User) error
	GetByID(db *gorm.DB, id uint) (*models.User, error)
	GetByEmail(db *gorm.DB, email string) (*models.User, error)
	GetByEmployeeID(db *gorm.DB, employeeID string) (*models.User, error)
	List(db *gorm.DB) ([]models.User, error)
	Update(db *gorm.DB, id uint, name, email string) error
	Deactivate(db *gorm.DB, id uint) error
}

// concrete implementations

// withRowLock adds SELECT ... FOR UPDATE on dialects that support it. sqlite
// (used by the in-memory test DBs) has no FOR UPDATE syntax; its writes take a
// database-level lock instead.
func withRowLock(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

type assetTypeRepository struct {
	db *gorm.DB
}

func NewAssetTypeRepository(db *gorm.DB) AssetTypeRepository {
	return &assetTypeRepository{db: db}
}

func (r *assetTypeRepository) Create(db *gorm.DB, t *models.AssetType) error {
	if db == nil {
		db = r.db
	}
	return db.Create(t).Error
}

func (r *assetTypeRepository) GetByID(db *gorm.DB, id uint) (*models.AssetType, error) {
	if db == nil {
		db = r.db
	}
	var t models.AssetType
	if err := db.First(&t, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *assetTypeRepository) GetByName(db *gorm.DB, name string) (*models.AssetType, error) {
	if db == nil {
		db = r.db
	}
	var t models.AssetType
	if err := db.First(&t, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *assetTypeRepository) ListWithCounts(db *gorm.DB) ([]AssetTypeCount, error) {
	if db == nil {
		db = r.db
	}
	var rows []AssetTypeCount
	err := db.Model(&models.AssetType{}).
		Select("asset_types.*, COUNT(assets.asset_id) AS in_use").
		Joins("LEFT JOIN assets ON assets.type_id = asset_types.id AND assets.status <> ?", models.AssetStatusDeleted).
		Where("asset_types.delete_stat = ?", false).
		Group("asset_types.id").
		Order("asset_types.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *assetTypeRepository) SoftDelete(db *gorm.DB, id uint) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.AssetType{}).
		Where("id = ?", id).
		Update("delete_stat", true).
		Error
}

func (r *assetTypeRepository) CountActiveAssets(db *gorm.DB, typeID uint) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.Asset{}).
		Where("type_id = ? AND status <> ?", typeID, models.AssetStatusDeleted).
		Count(&count).Error
	return count, err
}

type assetRepository struct {
	db *gorm.DB
}

func NewAssetRepository(db *gorm.DB) AssetRepository {
	return &assetRepository{db: db}
}

func (r *assetRepository) Create(db *gorm.DB, asset *models.Asset) error {
	if db == nil {
		db = r.db
	}
	return db.Create(asset).Error
}

func (r *assetRepository) GetByID(db *gorm.DB, assetID string) (*models.Asset, error) {
	if db == nil {
		db = r.db
	}
	var asset models.Asset
	if err := db.First(&asset, "asset_id = ?", assetID).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

func (r *assetRepository) GetByIDForUpdate(db *gorm.DB, assetID string) (*models.Asset, error) {
	if db == nil {
		db = r.db
	}
	var asset models.Asset
	err := withRowLock(db).
		First(&asset, "asset_id = ?", assetID).Error
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

func (r *assetRepository) UpdateStatus(db *gorm.DB, assetID string, status models.AssetStatus) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Asset{}).
		Where("asset_id = ?", assetID).
		Update("status", status).
		Error
}

func (r *assetRepository) ListByType(db *gorm.DB, typeID uint) ([]models.Asset, error) {
	if db == nil {
		db = r.db
	}
	var assets []models.Asset
	err := db.Where("type_id = ? AND status <> ?", typeID, models.AssetStatusDeleted).
		Order("asset_id ASC").
		Find(&assets).Error
	if err != nil {
		return nil, err
	}
	return assets, nil
}

func (r *assetRepository) ListByTypeNameAndStatus(db *gorm.DB, typeName string, statuses []models.AssetStatus) ([]models.Asset, error) {
	if db == nil {
		db = r.db
	}
	var assets []models.Asset
	err := db.
		Joins("JOIN asset_types ON asset_types.id = assets.type_id").
		Where("asset_types.name = ? AND asset_types.delete_stat = ? AND assets.status IN ?", typeName, false, statuses).
		Order("assets.asset_id ASC").
		Find(&assets).Error
	if err != nil {
		return nil, err
	}
	return assets, nil
}

func (r *assetRepository) ListInRepairs(db *gorm.DB, typeName string) ([]AssetRepairRow, error) {
	if db == nil {
		db = r.db
	}
	var rows []AssetRepairRow
	err := db.Model(&models.Asset{}).
		Select("assets.*, repair_histories.issue_reported, repair_histories.date_reported").
		Joins("JOIN asset_types ON asset_types.id = assets.type_id").
		Joins("JOIN repair_histories ON repair_histories.asset_id = assets.asset_id AND repair_histories.status = ?", models.RepairStatusPending).
		Where("asset_types.name = ? AND asset_types.delete_stat = ? AND assets.status = ?", typeName, false, models.AssetStatusRepairs).
		Order("assets.asset_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *assetRepository) ListHeldByEmployee(db *gorm.DB, employeeID string) ([]models.Asset, error) {
	if db == nil {
		db = r.db
	}
	var assets []models.Asset
	err := db.
		Joins("JOIN assignment_histories ON assignment_histories.asset_id = assets.asset_id AND assignment_histories.to_date IS NULL").
		Where("assignment_histories.employee_id = ?", employeeID).
		Order("assets.asset_id ASC").
		Find(&assets).Error
	if err != nil {
		return nil, err
	}
	return assets, nil
}

func (r *assetRepository) HardDelete(db *gorm.DB, assetID string) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Asset{}, "asset_id = ?", assetID).Error
}

type assignmentRepository struct {
	db *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) Create(db *gorm.DB, row *models.AssignmentHistory) error {
	if db == nil {
		db = r.db
	}
	return db.Create(row).Error
}

func (r *assignmentRepository) GetActiveByAsset(db *gorm.DB, assetID string) (*models.AssignmentHistory, error) {
	if db == nil {
		db = r.db
	}
	var row models.AssignmentHistory
	err := db.Where("asset_id = ? AND to_date IS NULL", assetID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *assignmentRepository) GetActiveByAssetAndEmployee(db *gorm.DB, assetID, employeeID string) (*models.AssignmentHistory, error) {
	if db == nil {
		db = r.db
	}
	var row models.AssignmentHistory
	err := db.Where("asset_id = ? AND employee_id = ? AND to_date IS NULL", assetID, employeeID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *assignmentRepository) Close(db *gorm.DB, id uint, toDate time.Time, remarks string) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.AssignmentHistory{}).
		Where("id = ? AND to_date IS NULL", id).
		Updates(map[string]interface{}{
			"to_date": toDate,
			"remarks": remarks,
		}).Error
}

func (r *assignmentRepository) ListByAsset(db *gorm.DB, assetID string) ([]models.AssignmentHistory, error) {
	if db == nil {
		db = r.db
	}
	// Display order: active row first, then most recent assignments.
	var rows []models.AssignmentHistory
	err := db.Where("asset_id = ?", assetID).
		Order("CASE WHEN to_date IS NULL THEN 0 ELSE 1 END ASC").
		Order("from_date DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *assignmentRepository) CountActive(db *gorm.DB, assetID string) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.AssignmentHistory{}).
		Where("asset_id = ? AND to_date IS NULL", assetID).
		Count(&count).Error
	return count, err
}

func (r *assignmentRepository) DeleteByAsset(db *gorm.DB, assetID string) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.AssignmentHistory{}, "asset_id = ?", assetID).Error
}

type repairRepository struct {
	db *gorm.DB
}

func NewRepairRepository(db *gorm.DB) RepairRepository {
	return &repairRepository{db: db}
}

func (r *repairRepository) Create(db *gorm.DB, row *models.RepairHistory) error {
	if db == nil {
		db = r.db
	}
	return db.Create(row).Error
}

func (r *repairRepository) GetPendingByAsset(db *gorm.DB, assetID string) (*models.RepairHistory, error) {
	if db == nil {
		db = r.db
	}
	var row models.RepairHistory
	err := db.Where("asset_id = ? AND status = ?", assetID, models.RepairStatusPending).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repairRepository) Resolve(db *gorm.DB, id uint, resolvedAt time.Time, amount int, issue, comments string) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.RepairHistory{}).
		Where("id = ? AND status = ?", id, models.RepairStatusPending).
		Updates(map[string]interface{}{
			"status":            models.RepairStatusFixed,
			"date_resolved":     resolvedAt,
			"amount":            amount,
			"issue_reported":    issue,
			"resolver_comments": comments,
		}).Error
}

func (r *repairRepository) ListByAsset(db *gorm.DB, assetID string) ([]models.RepairHistory, error) {
	if db == nil {
		db = r.db
	}
	var rows []models.RepairHistory
	err := db.Where("asset_id = ?", assetID).
		Order("date_reported DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repairRepository) CountPending(db *gorm.DB, assetID string) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.RepairHistory{}).
		Where("asset_id = ? AND status = ?", assetID, models.RepairStatusPending).
		Count(&count).Error
	return count, err
}

func (r *repairRepository) DeleteByAsset(db *gorm.DB, assetID string) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.RepairHistory{}, "asset_id = ?", assetID).Error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(db *gorm.DB, user *models.User) error {
	if db == nil {
		db = r.db
	}
	return db.Create(user).Error
}

func (r *userRepository) GetByID(db *gorm.DB, id uint) (*models.User, error) {
	if db == nil {
		db = r.db
	}
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(db *gorm.DB, email string) (*models.User, error) {
	if db == nil {
		db = r.db
	}
	var user models.User
	if err := db.First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmployeeID(db *gorm.DB, employeeID string) (*models.User, error) {
	if db == nil {
		db = r.db
	}
	var user models.User
	if err := db.First(&user, "employee_id = ?", employeeID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(db *gorm.DB) ([]models.User, error) {
	if db == nil {
		db = r.db
	}
	var users []models.User
	if err := db.Order("id DESC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) Update(db *gorm.DB, id uint, name, email string) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"name":  name,
			"email": email,
		}).Error
}

func (r *userRepository) Deactivate(db *gorm.DB, id uint) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.User{}).
		Where("id = ?", id).
		Update("status", models.UserStatusInactive).
		Error
}
