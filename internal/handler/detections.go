package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"zonewatch/internal/dto"

	"github.com/gin-gonic/gin"
)

func (h *Handler) lastSeen(c *gin.Context) {
	object := strings.TrimSpace(c.Query("object"))
	if object == "" {
		c.JSON(http.StatusBadRequest, errorResponse("object parameter is required"))
		return
	}

	rec, err := h.query.LastSeen(c.Request.Context(), object)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.LastSeenResponse{
		Object:    rec.ObjectName,
		Zone:      rec.ZoneName,
		Timestamp: rec.Timestamp,
	})
}

// recentDetections falls back to the default limit when limit is missing
// or not a number.
func (h *Handler) recentDetections(c *gin.Context) {
	limit := defaultRecentLimit
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}

	records, err := h.query.Recent(c.Request.Context(), limit)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.RecentDetectionsResponse{
		Detections: dto.NewDetectionItems(records),
	})
}

func (h *Handler) listObjects(c *gin.Context) {
	names, err := h.query.Objects(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ObjectsResponse{Objects: names})
}

// report defaults to the last 24 hours.
func (h *Handler) report(c *gin.Context) {
	to := time.Now()
	if t := strings.TrimSpace(c.Query("to")); t != "" {
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("to must be an RFC3339 timestamp"))
			return
		}
		to = parsed
	}
	from := to.Add(-24 * time.Hour)
	if f := strings.TrimSpace(c.Query("from")); f != "" {
		parsed, err := time.Parse(time.RFC3339, f)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("from must be an RFC3339 timestamp"))
			return
		}
		from = parsed
	}

	report, err := h.query.Report(c.Request.Context(), from, to)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ReportResponse{
		From:       report.From,
		To:         report.To,
		Count:      len(report.Records),
		Detections: dto.NewDetectionItems(report.Records),
		Objects:    report.Objects,
	})
}
