package handler

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"zonewatch/internal/config"
	"zonewatch/internal/dto"
	"zonewatch/internal/logger"
	"zonewatch/internal/metrics"
	"zonewatch/internal/service"
	"zonewatch/internal/service/websocket"
	"zonewatch/internal/zone"

	"github.com/gin-gonic/gin"
)

const (
	defaultRecentLimit = 10
	healthCheckTimeout = 2 * time.Second
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

type Option func(*Handler)

// WithInference reports the inference service in /health.
func WithInference(checker HealthChecker) Option {
	return func(h *Handler) {
		h.inference = checker
	}
}

type Handler struct {
	query   *service.QueryService
	zones   *zone.Registry
	zonesMu sync.Mutex
	hub     *websocket.HubService
	metrics *metrics.Metrics
	config  *config.Config
	logger  *logger.Logger

	inference HealthChecker
}

func NewHandler(
	query *service.QueryService,
	zones *zone.Registry,
	hub *websocket.HubService,
	metrics *metrics.Metrics,
	cfg *config.Config,
	logger *logger.Logger,
	opts ...Option,
) *Handler {
	h := &Handler{
		query:   query,
		zones:   zones,
		hub:     hub,
		metrics: metrics,
		config:  cfg,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Register(r *gin.Engine) {
	r.GET("/last-seen", h.lastSeen)
	r.GET("/recent-detections", h.recentDetections)
	r.GET("/objects", h.listObjects)
	r.GET("/report", h.report)

	zones := r.Group("/zones")
	{
		zones.GET("", h.listZones)
		zones.PUT("/:name", h.putZone)
		zones.DELETE("/:name", h.deleteZone)
	}

	logs := r.Group("/logs")
	{
		logs.GET("/:level", h.showLogs)
		logs.POST("/:level/clear", h.clearLogs)
	}

	r.GET("/health", h.health)
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}
	if h.hub != nil {
		r.GET("/api/view", h.viewWebsocket)
	}
}

// health answers 503 when a configured dependency is unreachable.
func (h *Handler) health(c *gin.Context) {
	body := gin.H{
		"status": "ok",
		"zones":  h.zones.Len(),
	}
	if h.inference == nil {
		c.JSON(http.StatusOK, body)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()
	if err := h.inference.CheckHealth(ctx); err != nil {
		h.logger.Warning("Inference health check failed: %v", err)
		body["status"] = "degraded"
		body["inference"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	body["inference"] = "ok"
	c.JSON(http.StatusOK, body)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, zone.ErrInvalidZone):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	default:
		h.logger.Error("Request %s failed: %v", c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func errorResponse(message string) dto.ErrorResponse {
	return dto.ErrorResponse{Error: message}
}
