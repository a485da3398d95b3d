package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"zonewatch/internal/model"
	"zonewatch/internal/repository"
)

// QueryService answers read requests against the detection log.
type QueryService struct {
	store repository.DetectionRepository
}

func NewQueryService(store repository.DetectionRepository) *QueryService {
	return &QueryService{store: store}
}

// LastSeen returns the latest record for object or ErrNotFound.
func (s *QueryService) LastSeen(ctx context.Context, object string) (*model.DetectionRecord, error) {
	if strings.TrimSpace(object) == "" {
		return nil, fmt.Errorf("%w: object name is required", ErrInvalidInput)
	}
	rec, err := s.store.LastSeen(ctx, object)
	if err != nil {
		return nil, fmt.Errorf("last seen %s: %w", object, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: no detections of %s", ErrNotFound, object)
	}
	return rec, nil
}

// Recent returns up to limit records, newest first. limit <= 0 returns none.
func (s *QueryService) Recent(ctx context.Context, limit int) ([]model.DetectionRecord, error) {
	if limit <= 0 {
		return []model.DetectionRecord{}, nil
	}
	records, err := s.store.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("recent detections: %w", err)
	}
	return records, nil
}

// Objects lists every object name ever recorded.
func (s *QueryService) Objects(ctx context.Context) ([]string, error) {
	names, err := s.store.ObjectNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("object names: %w", err)
	}
	return names, nil
}

// Report summarizes detections between from and to, inclusive.
type Report struct {
	From    time.Time
	To      time.Time
	Records []model.DetectionRecord
	Objects map[string]int
}

func (s *QueryService) Report(ctx context.Context, from, to time.Time) (*Report, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: report range ends before it starts", ErrInvalidInput)
	}
	records, err := s.store.Between(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}

	counts := make(map[string]int)
	for _, rec := range records {
		counts[rec.ObjectName]++
	}
	return &Report{From: from, To: to, Records: records, Objects: counts}, nil
}
