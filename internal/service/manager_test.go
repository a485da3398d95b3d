package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"zonewatch/internal/config"
	"zonewatch/internal/dto"
	"zonewatch/internal/logger"
	"zonewatch/internal/metrics"
	"zonewatch/internal/model"
	"zonewatch/internal/repository/memory"
)

var errCameraGone = errors.New("camera disconnected")

// sliceSource serves frames then fails, or blocks until canceled when
// block is set.
type sliceSource struct {
	frames  []Frame
	block   bool
	openErr error

	mu     sync.Mutex
	next   int
	opened bool
	closed bool
}

func (s *sliceSource) Open(ctx context.Context) error {
	if s.openErr != nil {
		return s.openErr
	}
	s.mu.Lock()
	s.opened = true
	s.mu.Unlock()
	return nil
}

func (s *sliceSource) Next(ctx context.Context) (Frame, error) {
	s.mu.Lock()
	if s.next < len(s.frames) {
		f := s.frames[s.next]
		s.next++
		s.mu.Unlock()
		return f, nil
	}
	s.mu.Unlock()
	if s.block {
		<-ctx.Done()
		return Frame{}, ctx.Err()
	}
	return Frame{}, errCameraGone
}

func (s *sliceSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *sliceSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeDetector struct {
	mu    sync.Mutex
	calls int
	dets  []dto.RawDetection
	err   error
}

func (d *fakeDetector) Detect(ctx context.Context, frame Frame) ([]dto.RawDetection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return d.dets, d.err
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []string
}

func (p *recordingPublisher) Broadcast(message []byte, camera string) {
	p.mu.Lock()
	p.messages = append(p.messages, string(message))
	p.mu.Unlock()
}

type stampAnnotator struct{}

func (stampAnnotator) Annotate(ctx context.Context, frame Frame, records []model.DetectionRecord, zones []model.Zone) (Frame, error) {
	frame.Data = append([]byte("annotated:"), frame.Data...)
	return frame, nil
}

func frames(n int) []Frame {
	out := make([]Frame, n)
	for i := range out {
		out[i] = Frame{Data: []byte{0xFF, 0xD8, 0xFF, 0xD9}, Width: 100, Height: 100, Camera: "porch", Seq: uint64(i + 1)}
	}
	return out
}

func dogInLivingRoom() []dto.RawDetection {
	return []dto.RawDetection{{Label: "dog", Confidence: 0.9, Box: dto.Box{X1: 40, Y1: 40, X2: 60, Y2: 60}}}
}

func TestManager_RunStoresDetectionsAndPropagatesCaptureFailure(t *testing.T) {
	store := memory.NewDetectionRepository()
	source := &sliceSource{frames: frames(3)}
	detector := &fakeDetector{dets: dogInLivingRoom()}
	mt := metrics.New()
	m := NewManager(source, detector, NewPipeline(testRegistry(t), store), &config.Config{ProcessingInterval: 1}, logger.NewDiscard(), WithMetrics(mt))

	err := m.Run(context.Background())
	if !errors.Is(err, errCameraGone) {
		t.Fatalf("expected capture error, got %v", err)
	}
	if !source.isClosed() {
		t.Error("frame source was not closed")
	}

	count, _ := store.Count(context.Background())
	if count != 3 {
		t.Errorf("expected 3 records, got %d", count)
	}
	if mt.FramesRead.Load() != 3 || mt.DetectionsRecorded.Load() != 3 || mt.CaptureErrors.Load() != 1 {
		t.Errorf("unexpected metrics: read=%d recorded=%d capture=%d",
			mt.FramesRead.Load(), mt.DetectionsRecorded.Load(), mt.CaptureErrors.Load())
	}
}

func TestManager_RunOpenFailure(t *testing.T) {
	openErr := errors.New("no such device")
	source := &sliceSource{openErr: openErr}
	m := NewManager(source, &fakeDetector{}, NewPipeline(testRegistry(t), memory.NewDetectionRepository()), &config.Config{}, logger.NewDiscard())

	if err := m.Run(context.Background()); !errors.Is(err, openErr) {
		t.Fatalf("expected open error, got %v", err)
	}
	if source.isClosed() {
		t.Error("Close called on a source that never opened")
	}
}

func TestManager_RunStopsOnCancel(t *testing.T) {
	store := memory.NewDetectionRepository()
	source := &sliceSource{frames: frames(2), block: true}
	m := NewManager(source, &fakeDetector{dets: dogInLivingRoom()}, NewPipeline(testRegistry(t), store), &config.Config{ProcessingInterval: 1}, logger.NewDiscard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if count, _ := store.Count(context.Background()); count == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("frames were not processed in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean stop, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if !source.isClosed() {
		t.Error("frame source was not closed")
	}
}

func TestManager_ProcessingInterval(t *testing.T) {
	detector := &fakeDetector{dets: dogInLivingRoom()}
	mt := metrics.New()
	m := NewManager(&sliceSource{frames: frames(6)}, detector, NewPipeline(testRegistry(t), memory.NewDetectionRepository()), &config.Config{ProcessingInterval: 3}, logger.NewDiscard(), WithMetrics(mt))

	_ = m.Run(context.Background())

	if detector.calls != 2 {
		t.Errorf("expected detector to run on 2 of 6 frames, got %d", detector.calls)
	}
	if mt.FramesSkipped.Load() != 4 {
		t.Errorf("expected 4 skipped frames, got %d", mt.FramesSkipped.Load())
	}
}

func TestManager_StoreFailureDoesNotStopLoop(t *testing.T) {
	detector := &fakeDetector{dets: dogInLivingRoom()}
	mt := metrics.New()
	store := &failingStore{err: errors.New("database is locked")}
	m := NewManager(&sliceSource{frames: frames(4)}, detector, NewPipeline(testRegistry(t), store), &config.Config{ProcessingInterval: 1}, logger.NewDiscard(), WithMetrics(mt))

	err := m.Run(context.Background())
	if !errors.Is(err, errCameraGone) {
		t.Fatalf("expected loop to run until capture ends, got %v", err)
	}
	if detector.calls != 4 {
		t.Errorf("expected every frame processed, got %d", detector.calls)
	}
	if mt.StoreErrors.Load() != 4 {
		t.Errorf("expected 4 store errors, got %d", mt.StoreErrors.Load())
	}
}

func TestManager_DetectorFailureIsCounted(t *testing.T) {
	detector := &fakeDetector{err: errors.New("model crashed")}
	mt := metrics.New()
	m := NewManager(&sliceSource{}, detector, NewPipeline(testRegistry(t), memory.NewDetectionRepository()), &config.Config{}, logger.NewDiscard(), WithMetrics(mt))

	records := m.HandleFrame(context.Background(), frames(1)[0])
	if records != nil {
		t.Errorf("expected no records, got %+v", records)
	}
	if mt.DetectErrors.Load() != 1 {
		t.Errorf("expected 1 detect error, got %d", mt.DetectErrors.Load())
	}
}

func TestManager_InvalidDetectionsAreSkippedAndCounted(t *testing.T) {
	detector := &fakeDetector{dets: []dto.RawDetection{
		{Label: "", Confidence: 0.9, Box: dto.Box{X1: 40, Y1: 40, X2: 60, Y2: 60}},
		{Label: "cat", Confidence: 0.1, Box: dto.Box{X1: 40, Y1: 40, X2: 60, Y2: 60}},
		{Label: "dog", Confidence: 0.9, Box: dto.Box{X1: 40, Y1: 40, X2: 60, Y2: 60}},
	}}
	mt := metrics.New()
	m := NewManager(&sliceSource{}, detector, NewPipeline(testRegistry(t), memory.NewDetectionRepository(), WithMinConfidence(0.5)),
		&config.Config{ProcessingInterval: 1}, logger.NewDiscard(), WithMetrics(mt))

	records := m.HandleFrame(context.Background(), frames(1)[0])
	if len(records) != 1 || records[0].ObjectName != "dog" {
		t.Fatalf("expected the dog record, got %+v", records)
	}
	if mt.DetectErrors.Load() != 1 {
		t.Errorf("expected 1 detect error, got %d", mt.DetectErrors.Load())
	}
	if mt.DetectionsFiltered.Load() != 1 {
		t.Errorf("expected 1 filtered detection, got %d", mt.DetectionsFiltered.Load())
	}
	if mt.StoreErrors.Load() != 0 {
		t.Errorf("expected no store errors, got %d", mt.StoreErrors.Load())
	}
}

func TestManager_PublishesRecordsAndAnnotatedFrames(t *testing.T) {
	publisher := &recordingPublisher{}
	registry := testRegistry(t)
	m := NewManager(&sliceSource{}, &fakeDetector{dets: dogInLivingRoom()}, NewPipeline(registry, memory.NewDetectionRepository()),
		&config.Config{ProcessingInterval: 1}, logger.NewDiscard(),
		WithPublisher(publisher), WithAnnotator(stampAnnotator{}, registry))

	records := m.HandleFrame(context.Background(), frames(1)[0])
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	if len(publisher.messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(publisher.messages))
	}
	if !strings.Contains(publisher.messages[0], `"type":"detections"`) || !strings.Contains(publisher.messages[0], `"zone":"Living Room"`) {
		t.Errorf("unexpected detections message %s", publisher.messages[0])
	}
	// base64 of "annotated:" prefix
	if !strings.Contains(publisher.messages[1], `"type":"frame"`) || !strings.Contains(publisher.messages[1], `"image":"YW5ub3RhdGVkO`) {
		t.Errorf("unexpected frame message %s", publisher.messages[1])
	}
}
