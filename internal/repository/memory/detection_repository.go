// Package memory keeps the detection log in process memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"zonewatch/internal/model"
	"zonewatch/internal/repository"
)

// DetectionRepository implements repository.DetectionRepository on a slice.
type DetectionRepository struct {
	mu      sync.RWMutex
	records []model.DetectionRecord
	latest  map[string]int // object name -> index of its latest record
	lastID  int64
	ordered bool // records are already in (timestamp, id) order
}

// NewDetectionRepository creates an empty in-memory detection log.
func NewDetectionRepository() *DetectionRepository {
	return &DetectionRepository{
		latest:  make(map[string]int),
		ordered: true,
	}
}

// Insert appends a copy of rec and writes the assigned ID back into rec.
func (r *DetectionRepository) Insert(ctx context.Context, rec *model.DetectionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID == 0 {
		rec.ID = r.lastID + 1
	} else if rec.ID <= r.lastID {
		return fmt.Errorf("failed to insert detection %d: %w", rec.ID, repository.ErrIDConflict)
	}

	stored := *rec
	if rec.ZoneName != nil {
		zone := *rec.ZoneName
		stored.ZoneName = &zone
	}

	if n := len(r.records); n > 0 && !stored.After(r.records[n-1]) {
		r.ordered = false
	}
	r.records = append(r.records, stored)
	r.lastID = stored.ID

	idx := len(r.records) - 1
	if prev, ok := r.latest[stored.ObjectName]; !ok || stored.After(r.records[prev]) {
		r.latest[stored.ObjectName] = idx
	}
	return nil
}

// LastSeen returns the latest record for objectName, or nil.
func (r *DetectionRepository) LastSeen(ctx context.Context, objectName string) (*model.DetectionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.latest[objectName]
	if !ok {
		return nil, nil
	}
	rec := r.records[idx]
	return &rec, nil
}

// Recent returns up to limit records, newest first.
func (r *DetectionRepository) Recent(ctx context.Context, limit int) ([]model.DetectionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []model.DetectionRecord{}, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit > len(r.records) {
		limit = len(r.records)
	}
	out := make([]model.DetectionRecord, 0, limit)

	if r.ordered {
		for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
			out = append(out, r.records[i])
		}
		return out, nil
	}

	sorted := make([]model.DetectionRecord, len(r.records))
	copy(sorted, r.records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].After(sorted[j]) })
	return append(out, sorted[:limit]...), nil
}

// Between returns records inside [from, to], oldest first.
func (r *DetectionRepository) Between(ctx context.Context, from, to time.Time) ([]model.DetectionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.DetectionRecord, 0)
	for _, rec := range r.records {
		if rec.Timestamp.Before(from) || rec.Timestamp.After(to) {
			continue
		}
		out = append(out, rec)
	}
	if !r.ordered {
		sort.Slice(out, func(i, j int) bool { return out[j].After(out[i]) })
	}
	return out, nil
}

// ObjectNames returns every object name seen so far, sorted.
func (r *DetectionRepository) ObjectNames(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.latest))
	for name := range r.latest {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Count returns the number of stored records.
func (r *DetectionRepository) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.records)), nil
}

// Close is a no-op; the log lives as long as the process.
func (r *DetectionRepository) Close() error {
	return nil
}

var _ repository.DetectionRepository = (*DetectionRepository)(nil)
