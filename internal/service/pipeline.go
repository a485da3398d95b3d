package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"zonewatch/internal/dto"
	"zonewatch/internal/model"
	"zonewatch/internal/repository"
	"zonewatch/internal/zone"

	"github.com/go-playground/validator/v10"
)

// Pipeline turns raw detections into stored detection records.
type Pipeline struct {
	zones         *zone.Registry
	store         repository.DetectionRepository
	validate      *validator.Validate
	now           func() time.Time
	minConfidence float64
}

type PipelineOption func(*Pipeline)

// WithClock replaces time.Now as the record timestamp source.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		p.now = now
	}
}

// WithMinConfidence drops detections scoring below min.
func WithMinConfidence(min float64) PipelineOption {
	return func(p *Pipeline) {
		p.minConfidence = min
	}
}

func NewPipeline(zones *zone.Registry, store repository.DetectionRepository, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		zones:    zones,
		store:    store,
		validate: validator.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process assigns raw to a zone by its box center and appends the record.
// The returned record carries the id assigned by the store.
func (p *Pipeline) Process(ctx context.Context, raw dto.RawDetection, frameWidth, frameHeight int) (*model.DetectionRecord, error) {
	if frameWidth <= 0 || frameHeight <= 0 {
		return nil, fmt.Errorf("%w: frame size %dx%d", ErrInvalidInput, frameWidth, frameHeight)
	}
	if err := p.validate.Struct(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if raw.Confidence < p.minConfidence {
		return nil, fmt.Errorf("%w: %s %.2f < %.2f", ErrBelowThreshold, raw.Label, raw.Confidence, p.minConfidence)
	}

	cx, cy := raw.Box.Center()
	center := model.Point{X: cx / float64(frameWidth), Y: cy / float64(frameHeight)}
	if math.IsNaN(center.X) || math.IsNaN(center.Y) {
		return nil, fmt.Errorf("%w: box center is not a number", ErrInvalidInput)
	}

	rec := &model.DetectionRecord{
		ObjectName: raw.Label,
		ZoneName:   p.zones.ZoneForPoint(center),
		Timestamp:  p.now(),
		Confidence: raw.Confidence,
	}
	if err := p.store.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("store detection %s: %w", raw.Label, err)
	}
	return rec, nil
}

// FrameResult is the outcome of processing one frame's detections.
type FrameResult struct {
	Records []model.DetectionRecord
	// Filtered counts detections below the minimum confidence.
	Filtered int
	// Rejected holds one ErrInvalidInput error per malformed detection.
	Rejected []error
}

// ProcessFrame processes detections in order. Detections below the minimum
// confidence or failing validation are skipped and counted in the result.
// A store failure stops the frame; the records stored so far are returned
// with the error.
func (p *Pipeline) ProcessFrame(ctx context.Context, detections []dto.RawDetection, frameWidth, frameHeight int) (FrameResult, error) {
	result := FrameResult{Records: make([]model.DetectionRecord, 0, len(detections))}
	for _, raw := range detections {
		rec, err := p.Process(ctx, raw, frameWidth, frameHeight)
		switch {
		case errors.Is(err, ErrBelowThreshold):
			result.Filtered++
			continue
		case errors.Is(err, ErrInvalidInput):
			result.Rejected = append(result.Rejected, err)
			continue
		case err != nil:
			return result, err
		}
		result.Records = append(result.Records, *rec)
	}
	return result, nil
}
