package repository

import (
	"context"
	"errors"
	"time"

	"zonewatch/internal/model"
)

// ErrIDConflict is returned when a record carries an explicit ID that would
// break the strictly increasing ID sequence.
var ErrIDConflict = errors.New("detection id is not greater than the last stored id")

// DetectionRepository is the append-only detection log.
//
// Implementations must be safe for concurrent use: Insert assigns IDs
// atomically with the append, and reads never observe a partial record.
type DetectionRepository interface {
	// Insert appends rec. A zero ID is replaced by the next ID in sequence.
	Insert(ctx context.Context, rec *model.DetectionRecord) error

	// LastSeen returns the latest record for objectName by (timestamp, id),
	// or nil when the object was never recorded.
	LastSeen(ctx context.Context, objectName string) (*model.DetectionRecord, error)

	// Recent returns up to limit records ordered by (timestamp, id) descending.
	// A non-positive limit yields an empty slice.
	Recent(ctx context.Context, limit int) ([]model.DetectionRecord, error)

	// Between returns records with from <= timestamp <= to in ascending order.
	Between(ctx context.Context, from, to time.Time) ([]model.DetectionRecord, error)

	// ObjectNames returns the distinct object names, sorted.
	ObjectNames(ctx context.Context) ([]string, error)

	Count(ctx context.Context) (int64, error)

	Close() error
}
