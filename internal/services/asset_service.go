package services

import (
	"errors"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"assettrack/internal/models"
	"assettrack/internal/repositories"
)

// ─── Remarks Written by Automatic Ledger Closes ───────────────────────────────

const (
	// RemarksMovedToRepair is stamped on an assignment row closed because the
	// asset entered the repair flow while assigned.
	RemarksMovedToRepair = "Moved to Repair"

	// RemarksRetired / RemarksDeleted are stamped on rows closed by the
	// CloseLedgersOnRetire policy (see Config).
	RemarksRetired = "Retired"
	RemarksDeleted = "Deleted"
)

// ─── Sentinel Errors ──────────────────────────────────────────────────────────

var (
	// ErrDuplicateAssetID is returned when registering an asset whose id is
	// already in use.
	ErrDuplicateAssetID = errors.New("asset id already exists")

	// ErrDuplicateTypeName is returned when creating an asset type whose name
	// is already taken.
	ErrDuplicateTypeName = errors.New("asset type already exists")

	// ErrUnknownAssetType is returned when the referenced asset type does not
	// exist or has been soft-deleted.
	ErrUnknownAssetType = errors.New("asset type not found")

	// ErrTypeLimitReached is returned when registering an asset would exceed
	// the type's inventory quota.
	ErrTypeLimitReached = errors.New("asset type limit reached")

	// ErrAssetNotFound is returned when the referenced asset does not exist.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrAssetNotAvailable is returned when an operation's status precondition
	// fails (e.g. assigning an asset that is not in Inventory).
	ErrAssetNotAvailable = errors.New("asset is not available for this operation")

	// ErrAssetNotEligible is returned when the asset's status does not allow
	// the requested transition (repair, retire, restore).
	ErrAssetNotEligible = errors.New("asset is not eligible for this transition")

	// ErrNoActiveAssignment is returned when no open assignment row matches
	// the given asset and employee.
	ErrNoActiveAssignment = errors.New("no active assignment for this asset")

	// ErrNoPendingRepair is returned when a repair resolution is attempted
	// with no open Pending repair row.
	ErrNoPendingRepair = errors.New("no pending repair for this asset")

	// ErrInvariantViolation is returned when the ledger state contradicts the
	// asset status (defensive — should be unreachable given the status
	// preconditions, but is checked transactionally to avoid races).
	ErrInvariantViolation = errors.New("ledger state inconsistent with asset status")
)

// ─── Configuration ────────────────────────────────────────────────────────────

// Config carries lifecycle policy knobs.
type Config struct {
	// CloseLedgersOnRetire controls whether retire and soft-delete close any
	// open assignment row. The original behavior leaves the row open so the
	// last holder stays visible; enabling this stamps the row closed with
	// RemarksRetired / RemarksDeleted instead.
	CloseLedgersOnRetire bool
}

// ─── Service Interface ────────────────────────────────────────────────────────

// RegisterAssetInput carries the fields of a new asset. Exactly one of TypeID
// or TypeName must identify an existing, non-deleted asset type.
type RegisterAssetInput struct {
	AssetID  string
	TypeID   uint
	TypeName string
	Brand    string
	Model    string
	BoughtOn *time.Time

	RAM             string
	Processor       string
	ScreenSize      string
	OS              string
	StorageCapacity string
}

// AssetService defines the application-level operations of the asset
// lifecycle: the status state machine plus the assignment and repair ledgers.
type AssetService interface {
	CreateAssetType(name string, totalLimit int) (*models.AssetType, error)
	ListAssetTypes() ([]repositories.AssetTypeCount, error)
	DeleteAssetType(id uint) error

	RegisterAsset(input RegisterAssetInput) (*models.Asset, error)
	RegisterAndAssign(input RegisterAssetInput, employeeID, employeeName string, fromDate time.Time) (*models.Asset, error)
	AssignAsset(assetID, employeeID, employeeName string, fromDate time.Time) error
	ReassignAsset(assetID, oldEmployeeID, newEmployeeID, newEmployeeName, remarks string) error
	UnassignAsset(assetID, remarks string) error
	EndAssignment(assetID, employeeID, remarks string) error
	MoveToRepair(assetID, issue string, dateReported time.Time) error
	SolveRepair(assetID, issue string, amount int, resolvedDate time.Time, comments string) error
	RetireAsset(assetID string) error
	UpdateStatus(assetID, status string) error
	RestoreAsset(assetID string) error
	SoftDeleteAsset(assetID string) error
	PurgeAsset(assetID string) error

	GetAsset(assetID string) (*models.Asset, error)
	ListAssetsByType(typeID uint) ([]models.Asset, error)
	ListAssetsByStatus(typeName, status string) ([]models.Asset, error)
	ListAssetsInRepairs(typeName string) ([]repositories.AssetRepairRow, error)
	ListAssetsHeldBy(employeeID string) ([]models.Asset, error)
	GetAssignmentHistory(assetID string) ([]models.AssignmentHistory, error)
	GetRepairHistory(assetID string) ([]models.RepairHistory, error)
}

// ─── Implementation ───────────────────────────────────────────────────────────

type assetService struct {
	db         *gorm.DB
	cfg        Config
	typeRepo   repositories.AssetTypeRepository
	assetRepo  repositories.AssetRepository
	assignRepo repositories.AssignmentRepository
	repairRepo repositories.RepairRepository
}

// NewAssetService wires up all dependencies and returns an AssetService.
func NewAssetService(
	db *gorm.DB,
	cfg Config,
	typeRepo repositories.AssetTypeRepository,
	assetRepo repositories.AssetRepository,
	assignRepo repositories.AssignmentRepository,
	repairRepo repositories.RepairRepository,
) AssetService {
	return &assetService{
		db:         db,
		cfg:        cfg,
		typeRepo:   typeRepo,
		assetRepo:  assetRepo,
		assignRepo: assignRepo,
		repairRepo: repairRepo,
	}
}

// ─── Asset Types ──────────────────────────────────────────────────────────────

// CreateAssetType creates a new asset category. A zero totalLimit falls back
// to the default quota.
func (s *assetService) CreateAssetType(name string, totalLimit int) (*models.AssetType, error) {
	if totalLimit <= 0 {
		totalLimit = models.DefaultTypeLimit
	}
	t := &models.AssetType{
		Name:       name,
		TotalLimit: totalLimit,
	}
	if err := s.typeRepo.Create(nil, t); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateTypeName
		}
		log.Printf("[ERROR] CreateAssetType: failed to create type %q: %v", name, err)
		return nil, err
	}
	log.Printf("[INFO] CreateAssetType: created type %q (id=%d, limit=%d)", name, t.ID, t.TotalLimit)
	return t, nil
}

// ListAssetTypes returns all non-deleted types with their in-use asset counts.
func (s *assetService) ListAssetTypes() ([]repositories.AssetTypeCount, error) {
	return s.typeRepo.ListWithCounts(nil)
}

// DeleteAssetType soft-deletes a type by flipping its delete flag; types are
// never physically removed.
func (s *assetService) DeleteAssetType(id uint) error {
	if _, err := s.typeRepo.GetByID(nil, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUnknownAssetType
		}
		return err
	}
	return s.typeRepo.SoftDelete(nil, id)
}

// ─── Registration ─────────────────────────────────────────────────────────────

// RegisterAsset creates a new asset in Inventory status.
func (s *assetService) RegisterAsset(input RegisterAssetInput) (*models.Asset, error) {
	var asset *models.Asset
	err := s.db.Transaction(func(tx *gorm.DB) error {
		a, err := s.createAsset(tx, input, models.AssetStatusInventory)
		if err != nil {
			return err
		}
		asset = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] RegisterAsset: registered asset %s (type=%d)", asset.AssetID, asset.TypeID)
	return asset, nil
}

// RegisterAndAssign creates a new asset directly in Assigned status and opens
// its first assignment ledger row, all within a single transaction.
func (s *assetService) RegisterAndAssign(input RegisterAssetInput, employeeID, employeeName string, fromDate time.Time) (*models.Asset, error) {
	if fromDate.IsZero() {
		fromDate = today()
	}
	var asset *models.Asset
	err := s.db.Transaction(func(tx *gorm.DB) error {
		a, err := s.createAsset(tx, input, models.AssetStatusAssigned)
		if err != nil {
			return err
		}
		row := &models.AssignmentHistory{
			AssetID:      a.AssetID,
			EmployeeID:   employeeID,
			EmployeeName: employeeName,
			FromDate:     fromDate,
		}
		if err := s.assignRepo.Create(tx, row); err != nil {
			log.Printf("[ERROR] RegisterAndAssign: failed to open assignment row for %s: %v", a.AssetID, err)
			return err
		}
		asset = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] RegisterAndAssign: registered asset %s assigned to %s", asset.AssetID, employeeID)
	return asset, nil
}

// createAsset resolves the asset type, enforces the type quota and the unique
// asset id, and inserts the row. Must run inside a transaction.
func (s *assetService) createAsset(tx *gorm.DB, input RegisterAssetInput, status models.AssetStatus) (*models.Asset, error) {
	t, err := s.resolveType(tx, input.TypeID, input.TypeName)
	if err != nil {
		return nil, err
	}

	count, err := s.typeRepo.CountActiveAssets(tx, t.ID)
	if err != nil {
		return nil, err
	}
	if count >= int64(t.TotalLimit) {
		log.Printf("[WARN] createAsset: type %q is at its limit (%d)", t.Name, t.TotalLimit)
		return nil, ErrTypeLimitReached
	}

	asset := &models.Asset{
		AssetID:         input.AssetID,
		TypeID:          t.ID,
		Brand:           input.Brand,
		Model:           input.Model,
		BoughtOn:        input.BoughtOn,
		RAM:             input.RAM,
		Processor:       input.Processor,
		ScreenSize:      input.ScreenSize,
		OS:              input.OS,
		StorageCapacity: input.StorageCapacity,
		Status:          status,
	}
	if err := s.assetRepo.Create(tx, asset); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateAssetID
		}
		log.Printf("[ERROR] createAsset: failed to create asset %s: %v", input.AssetID, err)
		return nil, err
	}
	return asset, nil
}

// resolveType looks up a non-deleted asset type by id or, when id is zero, by
// name.
func (s *assetService) resolveType(tx *gorm.DB, typeID uint, typeName string) (*models.AssetType, error) {
	var (
		t   *models.AssetType
		err error
	)
	if typeID != 0 {
		t, err = s.typeRepo.GetByID(tx, typeID)
	} else {
		t, err = s.typeRepo.GetByName(tx, typeName)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownAssetType
		}
		return nil, err
	}
	if t.DeleteStat {
		return nil, ErrUnknownAssetType
	}
	return t, nil
}

// ─── Assignment ───────────────────────────────────────────────────────────────

// AssignAsset assigns an Inventory asset to an employee.
//
// The asset row is locked (SELECT FOR UPDATE) before the status check so that
// concurrent assigns of the same asset serialize; exactly one wins, the rest
// fail the precondition.
func (s *assetService) AssignAsset(assetID, employeeID, employeeName string, fromDate time.Time) error {
	if fromDate.IsZero() {
		fromDate = today()
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		asset, err := s.lockAsset(tx, assetID)
		if err != nil {
			return err
		}
		if asset.Status != models.AssetStatusInventory {
			log.Printf("[WARN] AssignAsset: asset %s has status %s, not Inventory", assetID, asset.Status)
			return ErrAssetNotAvailable
		}

		// Defensive: the status precondition should make this unreachable,
		// but the ledger is checked inside the transaction regardless.
		active, err := s.assignRepo.CountActive(tx, assetID)
		if err != nil {
			return err
		}
		if active > 0 {
			log.Printf("[ERROR] AssignAsset: asset %s is in Inventory but has %d open assignment row(s)", assetID, active)
			return ErrInvariantViolation
		}

		row := &models.AssignmentHistory{
			AssetID:      assetID,
			EmployeeID:   employeeID,
			EmployeeName: employeeName,
			FromDate:     fromDate,
		}
		if err := s.assignRepo.Create(tx, row); err != nil {
			return err
		}
		return s.assetRepo.UpdateStatus(tx, assetID, models.AssetStatusAssigned)
	})
	if err != nil {
		return err
	}
	log.Printf("[INFO] AssignAsset: asset %s assigned to %s (%s)", assetID, employeeID, employeeName)
	return nil
}

// ReassignAsset closes the current holder's ledger row and opens a new one
// for the next holder. The asset status is unaffected (stays Assigned).
func (s *assetService) ReassignAsset(assetID, oldEmployeeID, newEmployeeID, newEmployeeName, remarks string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.lockAsset(tx, assetID); err != nil {
			return err
		}
		old, err := s.assignRepo.GetActiveByAssetAndEmployee(tx, assetID, oldEmployeeID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("[WARN] ReassignAsset: no open row for asset %s / employee %s", assetID, oldEmployeeID)
				return ErrNoActiveAssignment
			}
			return err
		}

		now := today()
		if err := s.assignRepo.Close(tx, old.ID, now, remarks); err != nil {
			return err
		}
		row := &models.AssignmentHistory{
			AssetID:      assetID,
			EmployeeID:   newEmployeeID,
			EmployeeName: newEmployeeName,
			FromDate:     now,
		}
		return s.assignRepo.Create(tx, row)
	})
	if err != nil {
		return err
	}
	log.Printf("[INFO] ReassignAsset: asset %s reassigned %s -> %s", assetID, oldEmployeeID, newEmployeeID)
	return nil
}

// UnassignAsset closes the active assignment row and returns the asset to
// Inventory.
func (s *assetService) UnassignAsset(assetID, remarks string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		asset, err := s.lockAsset(tx, assetID)
		if err != nil {
			return err
		}
		if asset.Status != models.AssetStatusAssigned {
			return ErrAssetNotAvailable
		}
		active, err := s.assignRepo.GetActiveByAsset(tx, assetID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("[ERROR] UnassignAsset: asset %s is Assigned but has no open ledger row", assetID)
				return ErrInvariantViolation
			}
			return err
		}
		if err := s.assignRepo.Close(tx, active.ID, today(), remarks); err != nil {
			return err
		}
		return s.assetRepo.UpdateStatus(tx, assetID, models.AssetStatusInventory)
	})
	if err != nil {
		return err
	}
	log.Printf("[INFO] UnassignAsset: asset %s surrendered to Inventory", assetID)
	return nil
}

// EndAssignment is the admin shortcut: it closes the open row for the given
// asset/employee pair without touching the asset status.
func (s *assetService) EndAssignment(assetID, employeeID, remarks string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		row, err := s.assignRepo.GetActiveByAssetAndEmployee(tx, assetID, employeeID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoActiveAssignment
			}
			return err
		}
		return s.assignRepo.Close(tx, row.ID, today(), remarks)
	})
	if err != nil {
		return err
	}
	log.Printf("[INFO] EndAssignment: closed open row for asset %s / employee %s", assetID, employeeID)
	return nil
}

// ─── Repairs ──────────────────────────────────────────────────────────────────

// MoveToRepair moves an Inventory or Assigned asset into Repairs, closing an
// active assignment row (if any) and opening a Pending repair row.
func (s *assetService) MoveToRepair(assetID, issue string, dateReported time.Time) error {
	if dateReported.IsZero() {
		dateReported = today()
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		asset, err := s.lockAsset(tx, assetID)
		if err != nil {
			return err
		}
		if asset.Status != models.AssetStatusInventory && asset.Status != models.AssetStatusAssigned {
			log.Printf("[WARN] MoveToRepair: asset %s has status %s, not repairable", assetID, asset.Status)
			return ErrAssetNotEligible
		}

		pending, err := s.repairRepo.CountPending(tx, assetID)
		if err != nil {
			return err
		}
		if pending > 0 {
			log.Printf("[ERROR] MoveToRepair: asset %s already has %d Pending repair row(s)", assetID, pending)
			return ErrInvariantViolation
		}

		if asset.Status == models.AssetStatusAssigned {
			active, err := s.assignRepo.GetActiveByAsset(tx, assetID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrInvariantViolation
				}
				return err
			}
			if err := s.assignRepo.Close(tx, active.ID, today(), RemarksMovedToRepair); err != nil {
				return err
			}
		}

		row := &models.RepairHistory{
			AssetID:       assetID,
			IssueReported: issue,
			DateReported:  dateReported,
			Status:        models.RepairStatusPending,
		}
		if err := s.repairRepo.Create(tx, row); err != nil {
			return err
		}
		return s.assetRepo.UpdateStatus(tx, assetID, models.AssetStatusRepairs)
	})
	if err != nil {
		return err
	}
	log.Printf("[INFO] MoveToRepair: asset %s moved to Repairs (%q)", assetID, issue)
	return nil
}

// SolveRepair closes the Pending repair row (status Fixed, resolution date and
// cost recorded, issue text overwritten) and returns the asset to Inventory.
func (s *assetService) SolveRepair(assetID, issue string, amount int, resolvedDate time.Time, comments string) error {
	if resolvedDate.IsZero() {
		resolvedDate = today()
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.lockAsset(tx, assetID); err != nil {
			return err
		}
		pending, err := s.repairRepo.GetPendingByAsset(tx, assetID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("[WARN] SolveRepair: no Pending repair row for asset %s", assetID)
				return ErrNoPendingRepair
			}
			return err
		}
		if issue == "" {
			issue = pending.IssueReported
		}
		if err := s.repairRepo.Resolve(tx, pending.ID, resolvedDate, amount, issue, comments); err != nil {
			return err
		}
		return s.assetRepo.UpdateStatus(tx, assetID, models.AssetStatusInventory)
	})
	if err != nil {
		return err
	}
	log.Printf("[INFO] SolveRepair: asset %s repair resolved (cost=%d)", assetID, amount)
	return nil
}

// ─── Retire / Restore / Delete ────────────────────────────────────────────────

// RetireAsset moves an asset from Inventory, Assigned or Repairs to Retired.
// Open ledger rows are left untouched unless CloseLedgersOnRetire is set.
func (s *assetService) RetireAsset(assetID string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		asset, err := s.lockAsset(tx, assetID)
		if err != nil {
			return err
		}
		switch asset.Status {
		case models.AssetStatusInventory, models.AssetStatusAssigned, models.AssetStatusRepairs:
		default:
			return ErrAssetNotEligible
		}
		if s.cfg.CloseLedgersOnRetire {
			if err := s.closeActiveAssignment(tx, assetID, RemarksRetired); err != nil {
				return err
			}
		}
		return s.assetRepo.UpdateStatus(tx, assetID, models.AssetStatusRetired)
	})
	if err != nil {
		return err
	}
	log.Printf("[INFO] RetireAsset: asset %s retired", assetID)
	return nil
}

// UpdateStatus sets a caller-specified status after validating it against the
// closed enum.
func (s *assetService) UpdateStatus(assetID, status string) error {
	parsed, err := models.ParseAssetStatus(status)
	if err != nil {
		return err
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.lockAsset(tx, assetID); err != nil {
			return err
		}
		return s.assetRepo.UpdateStatus(tx, assetID, parsed)
	})
	if err != nil {
		return err
	}
	log.Printf("[INFO] UpdateStatus: asset %s set to %s", assetID, parsed)
	return nil
}

// RestoreAsset returns a Retired asset to Inventory.
func (s *assetService) RestoreAsset(assetID string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		asset, err := s.lockAsset(tx, assetID)
		if err != nil {
			return err
		}
		if asset.Status != models.AssetStatusRetired {
			return ErrAssetNotEligible
		}
		return s.assetRepo.UpdateStatus(tx, assetID, models.AssetStatusInventory)
	})
	if err != nil {
		return err
	}
	log.Printf("[INFO] RestoreAsset: asset %s restored to Inventory", assetID)
	return nil
}

// SoftDeleteAsset marks an asset Deleted from any status. The row and its
// ledgers are preserved.
func (s *assetService) SoftDeleteAsset(assetID string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.lockAsset(tx, assetID); err != nil {
			return err
		}
		if s.cfg.CloseLedgersOnRetire {
			if err := s.closeActiveAssignment(tx, assetID, RemarksDeleted); err != nil {
				return err
			}
		}
		return s.assetRepo.UpdateStatus(tx, assetID, models.AssetStatusDeleted)
	})
	if err != nil {
		return err
	}
	log.Printf("[INFO] SoftDeleteAsset: asset %s marked Deleted", assetID)
	return nil
}

// PurgeAsset hard-deletes an asset and both of its ledgers. This is the only
// operation that physically removes rows.
func (s *assetService) PurgeAsset(assetID string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.lockAsset(tx, assetID); err != nil {
			return err
		}
		if err := s.assignRepo.DeleteByAsset(tx, assetID); err != nil {
			return err
		}
		if err := s.repairRepo.DeleteByAsset(tx, assetID); err != nil {
			return err
		}
		return s.assetRepo.HardDelete(tx, assetID)
	})
	if err != nil {
		return err
	}
	log.Printf("[WARN] PurgeAsset: asset %s and its history purged", assetID)
	return nil
}

// ─── Queries ──────────────────────────────────────────────────────────────────

func (s *assetService) GetAsset(assetID string) (*models.Asset, error) {
	asset, err := s.assetRepo.GetByID(nil, assetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, err
	}
	return asset, nil
}

func (s *assetService) ListAssetsByType(typeID uint) ([]models.Asset, error) {
	return s.assetRepo.ListByType(nil, typeID)
}

// ListAssetsByStatus returns assets of a type filtered by status. The
// Inventory view also includes Repairs-status rows, matching the original
// stock view.
func (s *assetService) ListAssetsByStatus(typeName, status string) ([]models.Asset, error) {
	parsed, err := models.ParseAssetStatus(status)
	if err != nil {
		return nil, err
	}
	statuses := []models.AssetStatus{parsed}
	if parsed == models.AssetStatusInventory {
		statuses = append(statuses, models.AssetStatusRepairs)
	}
	return s.assetRepo.ListByTypeNameAndStatus(nil, typeName, statuses)
}

// ListAssetsInRepairs returns assets of a type in Repairs status joined with
// their open Pending repair row.
func (s *assetService) ListAssetsInRepairs(typeName string) ([]repositories.AssetRepairRow, error) {
	return s.assetRepo.ListInRepairs(nil, typeName)
}

func (s *assetService) ListAssetsHeldBy(employeeID string) ([]models.Asset, error) {
	return s.assetRepo.ListHeldByEmployee(nil, employeeID)
}

// GetAssignmentHistory returns the ledger in display order: active row first,
// then from_date descending, then id descending.
func (s *assetService) GetAssignmentHistory(assetID string) ([]models.AssignmentHistory, error) {
	return s.assignRepo.ListByAsset(nil, assetID)
}

func (s *assetService) GetRepairHistory(assetID string) ([]models.RepairHistory, error) {
	return s.repairRepo.ListByAsset(nil, assetID)
}

// ─── Internal Helpers ─────────────────────────────────────────────────────────

// lockAsset fetches the asset row FOR UPDATE so that concurrent lifecycle
// transitions on the same asset serialize on the row lock.
func (s *assetService) lockAsset(tx *gorm.DB, assetID string) (*models.Asset, error) {
	asset, err := s.assetRepo.GetByIDForUpdate(tx, assetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, err
	}
	return asset, nil
}

// closeActiveAssignment closes the open assignment row, if one exists.
func (s *assetService) closeActiveAssignment(tx *gorm.DB, assetID, remarks string) error {
	active, err := s.assignRepo.GetActiveByAsset(tx, assetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	return s.assignRepo.Close(tx, active.ID, today(), remarks)
}

// today returns the current UTC date truncated to midnight; ledger dates are
// date-valued.
func today() time.Time {
	return time.Now().UTC().Truncate(24 * time.Hour)
}

// isUniqueViolation checks for a unique-constraint error. PostgreSQL reports
// code 23505; sqlite (used in tests) reports a "UNIQUE constraint failed"
// message.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(msg, "UNIQUE constraint")
}
