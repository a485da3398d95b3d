// Package postgres stores the detection log in PostgreSQL through gorm.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"zonewatch/internal/model"
	"zonewatch/internal/repository"
)

// Detection is the row layout of the detections table.
type Detection struct {
	ID         int64     `gorm:"primaryKey"`
	ObjectName string    `gorm:"not null"`
	ZoneName   *string
	Timestamp  time.Time `gorm:"not null"`
	Confidence *float64
}

func (Detection) TableName() string {
	return "detections"
}

// DetectionRepository implements repository.DetectionRepository on PostgreSQL.
type DetectionRepository struct {
	db *gorm.DB
	// writeMu serializes appends from this process so explicit IDs can be
	// checked against the current maximum.
	writeMu sync.Mutex
}

// Open connects to dsn and runs the schema migrations.
func Open(dsn string) (*DetectionRepository, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return nil, err
	}
	return NewDetectionRepository(db), nil
}

func NewDetectionRepository(db *gorm.DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

func (r *DetectionRepository) Insert(ctx context.Context, rec *model.DetectionRecord) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	row := Detection{
		ID:         rec.ID,
		ObjectName: rec.ObjectName,
		ZoneName:   rec.ZoneName,
		Timestamp:  rec.Timestamp,
		Confidence: &rec.Confidence,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if row.ID != 0 {
			var maxID int64
			if err := tx.Model(&Detection{}).Select("COALESCE(MAX(id), 0)").Scan(&maxID).Error; err != nil {
				return err
			}
			if row.ID <= maxID {
				return repository.ErrIDConflict
			}
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		if rec.ID != 0 {
			return tx.Exec(`SELECT setval(pg_get_serial_sequence('detections', 'id'), ?)`, row.ID).Error
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to insert detection: %w", err)
	}

	rec.ID = row.ID
	return nil
}

func (r *DetectionRepository) LastSeen(ctx context.Context, objectName string) (*model.DetectionRecord, error) {
	var row Detection
	err := r.db.WithContext(ctx).
		Where("object_name = ?", objectName).
		Order("timestamp DESC").
		Order("id DESC").
		First(&row).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last detection: %w", err)
	}

	rec := toRecord(row)
	return &rec, nil
}

func (r *DetectionRepository) Recent(ctx context.Context, limit int) ([]model.DetectionRecord, error) {
	if limit <= 0 {
		return []model.DetectionRecord{}, nil
	}

	var rows []Detection
	err := r.db.WithContext(ctx).
		Order("timestamp DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find detections: %w", err)
	}
	return toRecords(rows), nil
}

func (r *DetectionRepository) Between(ctx context.Context, from, to time.Time) ([]model.DetectionRecord, error) {
	var rows []Detection
	err := r.db.WithContext(ctx).
		Where("timestamp >= ?", from).
		Where("timestamp <= ?", to).
		Order("timestamp ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find detections: %w", err)
	}
	return toRecords(rows), nil
}

func (r *DetectionRepository) ObjectNames(ctx context.Context) ([]string, error) {
	names := make([]string, 0)
	err := r.db.WithContext(ctx).
		Model(&Detection{}).
		Distinct("object_name").
		Order("object_name").
		Pluck("object_name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find objects: %w", err)
	}
	return names, nil
}

func (r *DetectionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&Detection{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count detections: %w", err)
	}
	return count, nil
}

func (r *DetectionRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRecord(row Detection) model.DetectionRecord {
	rec := model.DetectionRecord{
		ID:         row.ID,
		ObjectName: row.ObjectName,
		ZoneName:   row.ZoneName,
		Timestamp:  row.Timestamp,
	}
	if row.Confidence != nil {
		rec.Confidence = *row.Confidence
	}
	return rec
}

func toRecords(rows []Detection) []model.DetectionRecord {
	records := make([]model.DetectionRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, toRecord(row))
	}
	return records
}

var _ repository.DetectionRepository = (*DetectionRepository)(nil)
