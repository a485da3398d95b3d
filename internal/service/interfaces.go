package service

import (
	"context"
	"time"

	"zonewatch/internal/dto"
	"zonewatch/internal/model"
)

// Frame is one encoded image from a capture source.
type Frame struct {
	Data       []byte // JPEG
	Width      int
	Height     int
	Camera     string
	Seq        uint64
	CapturedAt time.Time
}

// FrameSource yields frames from a camera. Next blocks until a frame is
// available or ctx is done. Any error from Open or Next stops the producer.
type FrameSource interface {
	Open(ctx context.Context) error
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// DetectionSource runs an object detection model over a frame.
type DetectionSource interface {
	Detect(ctx context.Context, frame Frame) ([]dto.RawDetection, error)
}

// FrameAnnotator draws records and zones over a frame for display only.
type FrameAnnotator interface {
	Annotate(ctx context.Context, frame Frame, records []model.DetectionRecord, zones []model.Zone) (Frame, error)
}

// Publisher pushes live updates to connected viewers.
type Publisher interface {
	Broadcast(message []byte, camera string)
}
