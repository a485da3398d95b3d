package postgres

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS detections (
		id              BIGSERIAL PRIMARY KEY,
		object_name     TEXT NOT NULL,
		zone_name       TEXT,
		timestamp       TIMESTAMPTZ NOT NULL,
		confidence      DOUBLE PRECISION
	);`,
	`CREATE INDEX IF NOT EXISTS idx_detections_object_name ON detections(object_name, timestamp DESC, id DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_detections_timestamp ON detections(timestamp DESC, id DESC);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
