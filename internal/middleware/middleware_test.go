package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"zonewatch/internal/logger"

	"github.com/gin-gonic/gin"
)

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), AccessLog(logger.NewDiscard()))
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(RequestIDKey))
	})
	return r
}

func TestRequestID_Generated(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestEngine().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	id := rec.Header().Get(RequestIDKey)
	if len(id) != 36 {
		t.Fatalf("expected generated uuid, got %q", id)
	}
	if rec.Body.String() != id {
		t.Errorf("context id %q does not match header %q", rec.Body.String(), id)
	}
}

func TestRequestID_Propagated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDKey, "abc-123")
	rec := httptest.NewRecorder()
	newTestEngine().ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDKey); got != "abc-123" {
		t.Errorf("expected abc-123, got %q", got)
	}
}
