package models

import "gorm.io/gorm"

// Migrate creates the schema and the partial unique indexes that back the
// ledger invariants: at most one open assignment row and at most one Pending
// repair row per asset. Postgres and sqlite both support partial indexes, so
// tests run against the same constraints as production.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&AssetType{},
		&Asset{},
		&AssignmentHistory{},
		&RepairHistory{},
		&User{},
	); err != nil {
		return err
	}

	stmts := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_active_assignment
		   ON assignment_histories (asset_id) WHERE to_date IS NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_pending_repair
		   ON repair_histories (asset_id) WHERE status = 'Pending'`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
