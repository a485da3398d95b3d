package ai

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"zonewatch/internal/config"
	"zonewatch/internal/dto"
	"zonewatch/internal/logger"
	"zonewatch/internal/service"

	"gocv.io/x/gocv"
)

// DetectionThreshold is the minimum confidence the network must report
// before a box is passed on.
const DetectionThreshold = 0.5

// Detector runs an SSD MobileNet COCO network through OpenCV DNN.
type Detector struct {
	net        gocv.Net
	mu         sync.Mutex // gocv.Net is not safe for concurrent Forward calls
	modelPath  string
	configPath string
	logger     *logger.Logger
}

// NewDetector loads the network from the configured model and config files.
func NewDetector(cfg *config.Config, logger *logger.Logger) (*Detector, error) {
	d := &Detector{
		modelPath:  cfg.ModelPath,
		configPath: cfg.ConfigPath,
		logger:     logger,
	}
	if err := d.initializeNet(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Detector) initializeNet() error {
	if _, err := os.Stat(d.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", d.modelPath)
	}
	if _, err := os.Stat(d.configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", d.configPath)
	}

	net := gocv.ReadNet(d.modelPath, d.configPath)
	if net.Empty() {
		return fmt.Errorf("failed to load network from %s", d.modelPath)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return fmt.Errorf("set preferable backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return fmt.Errorf("set preferable target: %w", err)
	}

	d.net = net
	d.logger.Info("Detection network initialized successfully")
	return nil
}

// Detect returns the boxes above DetectionThreshold in pixel coordinates.
func (d *Detector) Detect(ctx context.Context, frame service.Frame) ([]dto.RawDetection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.IMDecode(frame.Data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("decoded image is empty")
	}

	// SSD COCO input: 300x300, scaled to [-1, 1]
	blob := gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(300, 300), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	d.mu.Lock()
	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	d.mu.Unlock()
	defer output.Close()

	width, height := float64(mat.Cols()), float64(mat.Rows())

	// rows of [batch_id, class_id, confidence, x1, y1, x2, y2], box normalized
	rows := output.Reshape(1, output.Total()/7)
	defer rows.Close()

	var results []dto.RawDetection
	for i := 0; i < rows.Rows(); i++ {
		confidence := float64(rows.GetFloatAt(i, 2))
		if confidence <= DetectionThreshold {
			continue
		}
		results = append(results, dto.RawDetection{
			Label:      classLabel(int(rows.GetFloatAt(i, 1))),
			Confidence: clamp01(confidence),
			Box: dto.Box{
				X1: clamp01(float64(rows.GetFloatAt(i, 3))) * width,
				Y1: clamp01(float64(rows.GetFloatAt(i, 4))) * height,
				X2: clamp01(float64(rows.GetFloatAt(i, 5))) * width,
				Y2: clamp01(float64(rows.GetFloatAt(i, 6))) * height,
			},
		})
	}
	return results, nil
}

func (d *Detector) Close() error {
	return d.net.Close()
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

var cocoLabels = map[int]string{
	1:  "person",
	2:  "bicycle",
	3:  "car",
	4:  "motorcycle",
	5:  "airplane",
	6:  "bus",
	8:  "truck",
	16: "bird",
	17: "cat",
	18: "dog",
	44: "bottle",
	47: "cup",
	62: "chair",
	63: "couch",
	64: "potted plant",
	65: "bed",
	72: "tv",
	73: "laptop",
	77: "cell phone",
	84: "book",
}

// classLabel maps COCO class ids to labels.
func classLabel(classID int) string {
	if label, ok := cocoLabels[classID]; ok {
		return label
	}
	return fmt.Sprintf("unknown%d", classID)
}
