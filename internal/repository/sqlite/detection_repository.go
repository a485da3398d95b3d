package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"zonewatch/internal/model"
	"zonewatch/internal/repository"
)

const selectColumns = `SELECT id, object_name, zone_name, timestamp, confidence FROM detections`

// DetectionRepository implements repository.DetectionRepository for SQLite.
type DetectionRepository struct {
	db *DB
}

// NewDetectionRepository creates a new SQLite detection repository.
func NewDetectionRepository(db *DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

// Insert adds a new detection record and writes the assigned ID into rec.
// Timestamps are stored in UTC so text ordering matches time ordering.
func (r *DetectionRepository) Insert(ctx context.Context, rec *model.DetectionRecord) error {
	r.db.Lock()
	defer r.db.Unlock()

	conn := r.db.Conn()
	ts := rec.Timestamp.UTC()

	var (
		result sql.Result
		err    error
	)
	if rec.ID == 0 {
		result, err = conn.ExecContext(ctx, `
			INSERT INTO detections (object_name, zone_name, timestamp, confidence)
			VALUES (?, ?, ?, ?)
		`, rec.ObjectName, nullString(rec.ZoneName), ts, rec.Confidence)
	} else {
		var maxID int64
		if err := conn.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM detections`).Scan(&maxID); err != nil {
			return fmt.Errorf("failed to read last detection id: %w", err)
		}
		if rec.ID <= maxID {
			return fmt.Errorf("failed to insert detection %d: %w", rec.ID, repository.ErrIDConflict)
		}
		result, err = conn.ExecContext(ctx, `
			INSERT INTO detections (id, object_name, zone_name, timestamp, confidence)
			VALUES (?, ?, ?, ?, ?)
		`, rec.ID, rec.ObjectName, nullString(rec.ZoneName), ts, rec.Confidence)
	}
	if err != nil {
		return fmt.Errorf("failed to insert detection: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	rec.ID = id
	return nil
}

// LastSeen retrieves the latest detection of objectName, or nil.
func (r *DetectionRepository) LastSeen(ctx context.Context, objectName string) (*model.DetectionRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRowContext(ctx, selectColumns+`
		WHERE object_name = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`, objectName)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last detection: %w", err)
	}
	return rec, nil
}

// Recent retrieves up to limit detections, newest first.
func (r *DetectionRepository) Recent(ctx context.Context, limit int) ([]model.DetectionRecord, error) {
	if limit <= 0 {
		return []model.DetectionRecord{}, nil
	}

	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().QueryContext(ctx, selectColumns+`
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	return scanRecords(rows)
}

// Between retrieves detections in [from, to], oldest first.
func (r *DetectionRepository) Between(ctx context.Context, from, to time.Time) ([]model.DetectionRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().QueryContext(ctx, selectColumns+`
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC, id ASC
	`, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	return scanRecords(rows)
}

// ObjectNames returns a list of all unique detected object names.
func (r *DetectionRepository) ObjectNames(ctx context.Context) ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().QueryContext(ctx, `SELECT DISTINCT object_name FROM detections ORDER BY object_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query objects: %w", err)
	}
	defer rows.Close()

	objects := make([]string, 0)
	for rows.Next() {
		var obj string
		if err := rows.Scan(&obj); err != nil {
			return nil, fmt.Errorf("failed to scan object: %w", err)
		}
		objects = append(objects, obj)
	}
	return objects, rows.Err()
}

// Count returns the number of stored detections.
func (r *DetectionRepository) Count(ctx context.Context) (int64, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int64
	if err := r.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM detections`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count detections: %w", err)
	}
	return count, nil
}

// Close closes the underlying database.
func (r *DetectionRepository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*model.DetectionRecord, error) {
	var (
		rec        model.DetectionRecord
		zone       sql.NullString
		confidence sql.NullFloat64
	)
	if err := row.Scan(&rec.ID, &rec.ObjectName, &zone, &rec.Timestamp, &confidence); err != nil {
		return nil, err
	}
	if zone.Valid {
		rec.ZoneName = &zone.String
	}
	rec.Confidence = confidence.Float64
	return &rec, nil
}

func scanRecords(rows *sql.Rows) ([]model.DetectionRecord, error) {
	defer rows.Close()

	records := make([]model.DetectionRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate detections: %w", err)
	}
	return records, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

var _ repository.DetectionRepository = (*DetectionRepository)(nil)
