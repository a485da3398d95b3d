package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"zonewatch/internal/config"
	"zonewatch/internal/dto"
	"zonewatch/internal/logger"
	"zonewatch/internal/metrics"
	"zonewatch/internal/model"
	"zonewatch/internal/zone"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/time/rate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Manager is the producer loop: it pulls frames, runs detection and feeds
// the pipeline until its context is canceled or capture fails.
type Manager struct {
	source    FrameSource
	detector  DetectionSource
	pipeline  *Pipeline
	annotator FrameAnnotator
	zones     *zone.Registry
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *logger.Logger
	limiter   *rate.Limiter

	frameCounters   map[string]int // frames seen per camera
	processEveryNth int
	frameCounterMu  sync.Mutex
}

type ManagerOption func(*Manager)

// WithAnnotator draws records and the given zones on processed frames.
func WithAnnotator(annotator FrameAnnotator, zones *zone.Registry) ManagerOption {
	return func(m *Manager) {
		m.annotator = annotator
		m.zones = zones
	}
}

func WithPublisher(publisher Publisher) ManagerOption {
	return func(m *Manager) {
		m.publisher = publisher
	}
}

func WithMetrics(mt *metrics.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = mt
	}
}

func NewManager(source FrameSource, detector DetectionSource, pipeline *Pipeline, cfg *config.Config, logger *logger.Logger, opts ...ManagerOption) *Manager {
	manager := &Manager{
		source:          source,
		detector:        detector,
		pipeline:        pipeline,
		logger:          logger,
		frameCounters:   make(map[string]int),
		processEveryNth: cfg.ProcessingInterval,
	}
	if manager.processEveryNth < 1 {
		manager.processEveryNth = 1
	}
	if cfg.MaxFPS > 0 {
		manager.limiter = rate.NewLimiter(rate.Limit(cfg.MaxFPS), 1)
	}
	for _, opt := range opts {
		opt(manager)
	}
	if manager.metrics == nil {
		manager.metrics = metrics.New()
	}
	return manager
}

// Run opens the frame source and processes frames until ctx is canceled,
// in which case it returns nil after releasing the source. A capture error
// is returned to the caller.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.source.Open(ctx); err != nil {
		m.metrics.CaptureErrors.Add(1)
		return fmt.Errorf("open frame source: %w", err)
	}
	defer func() {
		if err := m.source.Close(); err != nil {
			m.logger.Warning("Failed to close frame source: %v", err)
		}
	}()

	m.logger.Info("🎬 Manager started - processing every %d frame(s)", m.processEveryNth)

	for {
		if ctx.Err() != nil {
			m.logger.Info("🛑 Manager stopped")
			return nil
		}

		if m.limiter != nil {
			if err := m.limiter.Wait(ctx); err != nil {
				if ctx.Err() != nil {
					m.logger.Info("🛑 Manager stopped")
					return nil
				}
				return fmt.Errorf("frame pacing: %w", err)
			}
		}

		frame, err := m.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				m.logger.Info("🛑 Manager stopped")
				return nil
			}
			m.metrics.CaptureErrors.Add(1)
			return fmt.Errorf("read frame: %w", err)
		}
		m.metrics.FramesRead.Add(1)

		m.HandleFrame(ctx, frame)
	}
}

// HandleFrame runs one frame through detection and the pipeline. Failures
// are logged and counted; they never stop the loop.
func (m *Manager) HandleFrame(ctx context.Context, frame Frame) []model.DetectionRecord {
	if !m.shouldProcess(frame.Camera) {
		m.metrics.FramesSkipped.Add(1)
		m.logger.Debug("Skipping detection on frame %d from camera %s", frame.Seq, frame.Camera)
		m.SendFrame(frame)
		return nil
	}
	m.metrics.FramesProcessed.Add(1)

	detections, err := m.detector.Detect(ctx, frame)
	if err != nil {
		m.metrics.DetectErrors.Add(1)
		m.logger.Error("Object detection failed for camera %s: %v", frame.Camera, err)
		m.SendFrame(frame)
		return nil
	}

	result, err := m.pipeline.ProcessFrame(ctx, detections, frame.Width, frame.Height)
	if err != nil {
		m.metrics.StoreErrors.Add(1)
		m.logger.Error("Failed to record detection from camera %s: %v", frame.Camera, err)
	}
	m.metrics.DetectionsFiltered.Add(uint64(result.Filtered))
	m.metrics.DetectErrors.Add(uint64(len(result.Rejected)))
	for _, rejected := range result.Rejected {
		m.logger.Warning("Rejected detection from camera %s: %v", frame.Camera, rejected)
	}

	records := result.Records
	m.metrics.DetectionsRecorded.Add(uint64(len(records)))
	for _, rec := range records {
		if rec.ZoneName == nil {
			m.metrics.DetectionsUnzoned.Add(1)
		}
		m.logger.Info("📍 %s seen in %s (%.2f)", rec.ObjectName, zoneLabel(rec.ZoneName), rec.Confidence)
	}

	if len(records) > 0 {
		m.SendRecords(records, frame.Camera)
	}
	m.SendFrame(m.annotate(ctx, frame, records))
	return records
}

func (m *Manager) annotate(ctx context.Context, frame Frame, records []model.DetectionRecord) Frame {
	if m.annotator == nil {
		return frame
	}
	var zones []model.Zone
	if m.zones != nil {
		zones = m.zones.Zones()
	}
	annotated, err := m.annotator.Annotate(ctx, frame, records, zones)
	if err != nil {
		m.metrics.AnnotateErrors.Add(1)
		m.logger.Error("Failed to annotate frame: %v", err)
		return frame
	}
	return annotated
}

// SendRecords pushes freshly stored records to live viewers.
func (m *Manager) SendRecords(records []model.DetectionRecord, camera string) {
	m.publish(dto.LiveMessage{
		Type:      "detections",
		Camera:    camera,
		Records:   dto.NewDetectionItems(records),
		Timestamp: time.Now(),
	}, camera)
}

// SendFrame pushes a JPEG frame to live viewers.
func (m *Manager) SendFrame(frame Frame) {
	if len(frame.Data) == 0 {
		return
	}
	m.publish(dto.LiveMessage{
		Type:      "frame",
		Camera:    frame.Camera,
		Image:     base64.StdEncoding.EncodeToString(frame.Data),
		Timestamp: frame.CapturedAt,
	}, frame.Camera)
}

func (m *Manager) publish(msg dto.LiveMessage, camera string) {
	if m.publisher == nil {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		m.logger.Error("Failed to encode live message: %v", err)
		return
	}
	m.publisher.Broadcast(payload, camera)
}

func (m *Manager) shouldProcess(camera string) bool {
	m.frameCounterMu.Lock()
	defer m.frameCounterMu.Unlock()

	m.frameCounters[camera]++
	if m.frameCounters[camera]%m.processEveryNth != 0 {
		return false
	}
	m.frameCounters[camera] = 0
	return true
}

func zoneLabel(name *string) string {
	if name == nil {
		return "no zone"
	}
	return *name
}
