package dto

import (
	"time"

	"zonewatch/internal/model"
)

type LastSeenResponse struct {
	Object    string    `json:"object"`
	Zone      *string   `json:"zone"`
	Timestamp time.Time `json:"timestamp"`
}

type DetectionItem struct {
	Object     string    `json:"object"`
	Zone       *string   `json:"zone"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence"`
}

func NewDetectionItem(rec model.DetectionRecord) DetectionItem {
	return DetectionItem{
		Object:     rec.ObjectName,
		Zone:       rec.ZoneName,
		Timestamp:  rec.Timestamp,
		Confidence: rec.Confidence,
	}
}

func NewDetectionItems(records []model.DetectionRecord) []DetectionItem {
	items := make([]DetectionItem, 0, len(records))
	for _, rec := range records {
		items = append(items, NewDetectionItem(rec))
	}
	return items
}

type RecentDetectionsResponse struct {
	Detections []DetectionItem `json:"detections"`
}

// ReportResponse lists detections in a time range, oldest first.
type ReportResponse struct {
	From       time.Time       `json:"from"`
	To         time.Time       `json:"to"`
	Count      int             `json:"count"`
	Detections []DetectionItem `json:"detections"`
	Objects    map[string]int  `json:"objects"`
}

type ObjectsResponse struct {
	Objects []string `json:"objects"`
}

// ZoneRequest is the body of PUT /zones/:name.
type ZoneRequest struct {
	Points [][2]float64 `json:"points" binding:"required"`
}

type ZoneItem struct {
	Name   string       `json:"name"`
	Points [][2]float64 `json:"points"`
}

type ZonesResponse struct {
	Zones []ZoneItem `json:"zones"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// LiveMessage is pushed to live view clients over the websocket.
type LiveMessage struct {
	Type      string          `json:"type"` // "detections" or "frame"
	Camera    string          `json:"camera,omitempty"`
	Records   []DetectionItem `json:"records,omitempty"`
	Image     string          `json:"image,omitempty"` // base64 JPEG
	Timestamp time.Time       `json:"timestamp"`
}
