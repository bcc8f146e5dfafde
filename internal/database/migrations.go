package database

import (
	"fmt"

	"gorm.io/gorm"
)

// RunMigrations executes the migrations AutoMigrate cannot express.
func RunMigrations(db *gorm.DB) error {
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// createIndexes creates database indexes
func createIndexes(db *gorm.DB) error {
	// Party lookups for the win-rate scan
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_cases_status_parties
		ON cases(status, plaintiff_id, defendant_id)
	`).Error; err != nil {
		return err
	}

	// Evidence is always read per case and stage
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_evidences_case_stage
		ON evidences(case_id, stage)
	`).Error; err != nil {
		return err
	}

	// Unread notifications per user
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_notifications_user_read
		ON notifications(user_id, read)
	`).Error; err != nil {
		return err
	}

	return nil
}
