package ai

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"zonewatch/internal/model"
	"zonewatch/internal/service"

	"gocv.io/x/gocv"
)

var (
	zoneColor  = color.RGBA{R: 0, G: 200, B: 255, A: 0}
	boxColor   = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	labelColor = color.RGBA{R: 255, G: 255, B: 255, A: 0}
)

// Annotator draws zone outlines and record labels over a frame.
// Records carry no box, so labels are stacked in the top-left corner.
type Annotator struct{}

func NewAnnotator() *Annotator {
	return &Annotator{}
}

func (a *Annotator) Annotate(ctx context.Context, frame service.Frame, records []model.DetectionRecord, zones []model.Zone) (service.Frame, error) {
	mat, err := gocv.IMDecode(frame.Data, gocv.IMReadColor)
	if err != nil {
		return frame, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()
	if mat.Empty() {
		return frame, fmt.Errorf("decoded image is empty")
	}

	width, height := mat.Cols(), mat.Rows()

	for _, z := range zones {
		outline := make([]image.Point, 0, len(z.Points))
		for _, p := range z.Points {
			outline = append(outline, image.Pt(int(p.X*float64(width)), int(p.Y*float64(height))))
		}
		pts := gocv.NewPointsVectorFromPoints([][]image.Point{outline})
		err := gocv.Polylines(&mat, pts, true, zoneColor, 2)
		pts.Close()
		if err != nil {
			return frame, fmt.Errorf("failed to draw zone %s: %w", z.Name, err)
		}
		if err := gocv.PutText(&mat, z.Name, outline[0].Add(image.Pt(4, 16)), gocv.FontHersheySimplex, 0.5, zoneColor, 1); err != nil {
			return frame, fmt.Errorf("failed to draw text: %w", err)
		}
	}

	for i, rec := range records {
		label := fmt.Sprintf("#%d %s @ %s (%.2f)", rec.ID, rec.ObjectName, zoneText(rec.ZoneName), rec.Confidence)
		origin := image.Pt(8, 22+i*20)
		if err := gocv.Rectangle(&mat, image.Rect(origin.X-4, origin.Y-15, origin.X+8*len(label), origin.Y+5), boxColor, -1); err != nil {
			return frame, fmt.Errorf("failed to draw rectangle: %w", err)
		}
		if err := gocv.PutText(&mat, label, origin, gocv.FontHersheySimplex, 0.5, labelColor, 1); err != nil {
			return frame, fmt.Errorf("failed to draw text: %w", err)
		}
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return frame, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	annotated := frame
	annotated.Data = make([]byte, len(buf.GetBytes()))
	copy(annotated.Data, buf.GetBytes())
	return annotated, nil
}

func zoneText(name *string) string {
	if name == nil {
		return "-"
	}
	return *name
}
