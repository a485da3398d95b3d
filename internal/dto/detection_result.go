package dto

// Box is a bounding box in frame pixel coordinates.
type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Center returns the midpoint of the box in pixels.
func (b Box) Center() (float64, float64) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

// RawDetection is a single model output before zone assignment.
type RawDetection struct {
	Label      string  `json:"label" validate:"required"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
	Box        Box     `json:"box"`
}
