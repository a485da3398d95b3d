package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.DetectionsRecorded.Add(3)
	m.StoreErrors.Add(1)
	m.ActiveViewers.Add(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	text := string(body)
	for _, want := range []string{
		"zonewatch_detections_recorded_total 3",
		"zonewatch_store_errors_total 1",
		"zonewatch_active_viewers 2",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
