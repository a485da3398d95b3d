package model

import "time"

// DetectionRecord is one entry of the append-only detection log.
// ZoneName is nil when the detection center fell inside no zone.
type DetectionRecord struct {
	ID         int64     `json:"id"`
	ObjectName string    `json:"object"`
	ZoneName   *string   `json:"zone"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence"`
}

// After reports whether r sorts after other in (timestamp, id) order.
func (r DetectionRecord) After(other DetectionRecord) bool {
	if r.Timestamp.Equal(other.Timestamp) {
		return r.ID > other.ID
	}
	return r.Timestamp.After(other.Timestamp)
}

// Zone returns the zone name or "" when the record has none.
func (r DetectionRecord) Zone() string {
	if r.ZoneName == nil {
		return ""
	}
	return *r.ZoneName
}
