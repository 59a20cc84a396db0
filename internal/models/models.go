package models

import (
	"fmt"
	"time"
)

type AssetStatus string

const (
	AssetStatusInventory AssetStatus = "Inventory"
	AssetStatusAssigned  AssetStatus = "Assigned"
	AssetStatusRepairs   AssetStatus = "Repairs"
	AssetStatusRetired   AssetStatus = "Retired"
	AssetStatusDeleted   AssetStatus = "Deleted"
)

// ParseAssetStatus validates caller-supplied status text against the closed
// set of lifecycle states.
func ParseAssetStatus(s string) (AssetStatus, error) {
	switch AssetStatus(s) {
	case AssetStatusInventory, AssetStatusAssigned, AssetStatusRepairs, AssetStatusRetired, AssetStatusDeleted:
		return AssetStatus(s), nil
	}
	return "", fmt.Errorf("unknown asset status %q", s)
}

type RepairStatus string

const (
	RepairStatusPending RepairStatus = "Pending"
	RepairStatusFixed   RepairStatus = "Fixed"
)

type UserRole string

const (
	UserRoleEmployee UserRole = "Employee"
	UserRoleAdmin    UserRole = "Admin"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "Active"
	UserStatusInactive UserStatus = "Inactive"
)

// DefaultTypeLimit is the per-type inventory quota applied when a new asset
// type is created without an explicit limit.
const DefaultTypeLimit = 20

type AssetType struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Name       string `gorm:"size:255;not null;uniqueIndex" json:"name"`
	TotalLimit int    `gorm:"not null;default:20" json:"total_limit"`
	DeleteStat bool   `gorm:"not null;default:false" json:"delete_stat"`
}

type Asset struct {
	// AssetID is user-supplied (e.g. "LPT-001") and immutable after creation.
	AssetID string    `gorm:"size:64;primaryKey" json:"asset_id"`
	TypeID  uint      `gorm:"not null;index" json:"type_id"`
	Type    AssetType `gorm:"foreignKey:TypeID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	Brand   string    `gorm:"size:255" json:"brand"`
	Model   string    `gorm:"size:255" json:"model"`

	BoughtOn *time.Time `json:"bought_on"`

	// Spec fields, meaningful only for certain asset types.
	RAM             string `gorm:"size:64" json:"ram"`
	Processor       string `gorm:"size:128" json:"processor"`
	ScreenSize      string `gorm:"size:64" json:"screen_size"`
	OS              string `gorm:"size:64" json:"os"`
	StorageCapacity string `gorm:"size:64" json:"storage_capacity"`

	Status AssetStatus `gorm:"size:16;not null;index" json:"status"`
}

// AssignmentHistory is an append-only ledger. A row with ToDate == nil is the
// currently active assignment; at most one such row may exist per asset.
// EmployeeName is a snapshot copied at assignment time, not a live reference,
// so renaming an employee later does not rewrite history.
type AssignmentHistory struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	AssetID      string     `gorm:"size:64;not null;index" json:"asset_id"`
	EmployeeID   string     `gorm:"size:64;not null;index" json:"employee_id"`
	EmployeeName string     `gorm:"size:255;not null" json:"employee_name"`
	FromDate     time.Time  `gorm:"not null" json:"from_date"`
	ToDate       *time.Time `json:"to_date"`
	Remarks      string     `gorm:"size:512" json:"remarks"`
}

// RepairHistory mirrors the assignment ledger: a Pending row is an open
// repair, and at most one may exist per asset.
type RepairHistory struct {
	ID               uint         `gorm:"primaryKey" json:"id"`
	AssetID          string       `gorm:"size:64;not null;index" json:"asset_id"`
	IssueReported    string       `gorm:"size:512;not null" json:"issue_reported"`
	DateReported     time.Time    `gorm:"not null" json:"date_reported"`
	DateResolved     *time.Time   `json:"date_resolved"`
	Amount           *int         `json:"amount"`
	Status           RepairStatus `gorm:"size:16;not null;index" json:"status"`
	ResolverComments string       `gorm:"size:512" json:"resolver_comments"`
}

type User struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	EmployeeID string     `gorm:"size:64;not null;uniqueIndex" json:"employee_id"`
	Name       string     `gorm:"size:255;not null" json:"name"`
	Email      string     `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Role       UserRole   `gorm:"size:16;not null;default:'Employee'" json:"role"`
	Status     UserStatus `gorm:"size:16;not null;default:'Active'" json:"status"`
}
