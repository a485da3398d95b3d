package capture

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"zonewatch/internal/config"
	"zonewatch/internal/logger"
	"zonewatch/internal/service"

	"gocv.io/x/gocv"
)

// DeviceSource reads frames from a local camera or video file through OpenCV.
type DeviceSource struct {
	device string
	logger *logger.Logger

	capture *gocv.VideoCapture
	mat     gocv.Mat
	seq     uint64
}

func NewDeviceSource(cfg *config.Config, logger *logger.Logger) *DeviceSource {
	return &DeviceSource{
		device: cfg.CameraDevice,
		logger: logger,
	}
}

func (s *DeviceSource) Open(ctx context.Context) error {
	var device interface{} = s.device
	if id, err := strconv.Atoi(s.device); err == nil {
		device = id
	}

	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return fmt.Errorf("open capture device %s: %w", s.device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("capture device %s is not available", s.device)
	}

	s.capture = capture
	s.mat = gocv.NewMat()
	s.logger.Info("Capture device %s opened", s.device)
	return nil
}

// Next reads one frame. A failed read means the device is gone.
func (s *DeviceSource) Next(ctx context.Context) (service.Frame, error) {
	if err := ctx.Err(); err != nil {
		return service.Frame{}, err
	}
	if s.capture == nil {
		return service.Frame{}, fmt.Errorf("capture device %s is not open", s.device)
	}

	if ok := s.capture.Read(&s.mat); !ok || s.mat.Empty() {
		return service.Frame{}, fmt.Errorf("capture device %s returned no frame", s.device)
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, s.mat)
	if err != nil {
		return service.Frame{}, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()
	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())

	s.seq++
	return service.Frame{
		Data:       data,
		Width:      s.mat.Cols(),
		Height:     s.mat.Rows(),
		Camera:     s.device,
		Seq:        s.seq,
		CapturedAt: time.Now(),
	}, nil
}

func (s *DeviceSource) Close() error {
	if s.capture == nil {
		return nil
	}
	s.mat.Close()
	err := s.capture.Close()
	s.capture = nil
	return err
}
