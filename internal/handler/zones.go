package handler

import (
	"fmt"
	"net/http"

	"zonewatch/internal/dto"
	"zonewatch/internal/model"
	"zonewatch/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listZones(c *gin.Context) {
	zones := h.zones.Zones()
	items := make([]dto.ZoneItem, 0, len(zones))
	for _, z := range zones {
		points := make([][2]float64, 0, len(z.Points))
		for _, p := range z.Points {
			points = append(points, [2]float64{p.X, p.Y})
		}
		items = append(items, dto.ZoneItem{Name: z.Name, Points: points})
	}
	c.JSON(http.StatusOK, dto.ZonesResponse{Zones: items})
}

// putZone adds or replaces a zone and persists the registry.
func (h *Handler) putZone(c *gin.Context) {
	name := c.Param("name")

	var req dto.ZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	points := make([]model.Point, 0, len(req.Points))
	for _, p := range req.Points {
		points = append(points, model.Point{X: p[0], Y: p[1]})
	}

	err := h.editZones(func() error {
		return h.zones.AddZone(name, points)
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.logger.Info("Zone %s saved with %d points", name, len(points))
	c.JSON(http.StatusOK, dto.ZoneItem{Name: name, Points: req.Points})
}

func (h *Handler) deleteZone(c *gin.Context) {
	name := c.Param("name")
	err := h.editZones(func() error {
		if !h.zones.Remove(name) {
			return fmt.Errorf("%w: zone %s", service.ErrNotFound, name)
		}
		return nil
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.logger.Info("Zone %s removed", name)
	c.Status(http.StatusNoContent)
}

// editZones applies edit and persists the registry. If the file cannot be
// written the registry is restored to its state before the edit.
func (h *Handler) editZones(edit func() error) error {
	h.zonesMu.Lock()
	defer h.zonesMu.Unlock()

	snapshot, err := h.zones.Serialize()
	if err != nil {
		return err
	}
	if err := edit(); err != nil {
		return err
	}
	if h.config.ZonesFile == "" {
		return nil
	}
	if err := h.zones.SaveFile(h.config.ZonesFile); err != nil {
		if restoreErr := h.zones.Deserialize(snapshot); restoreErr != nil {
			h.logger.Error("Failed to restore zones after save error: %v", restoreErr)
		}
		return err
	}
	return nil
}
