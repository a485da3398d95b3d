package handler

import (
	"net/http"
	"os"

	"zonewatch/internal/logger"

	"github.com/gin-gonic/gin"
)

var logFiles = map[string]string{
	"info":    logger.InfoFile,
	"warning": logger.WarningFile,
	"error":   logger.ErrorFile,
}

// showLogs serves info.log, warning.log or error.log as text/plain.
func (h *Handler) showLogs(c *gin.Context) {
	fileName, ok := logFiles[c.Param("level")]
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse("unknown log level: "+c.Param("level")))
		return
	}

	filePath := h.logger.LogPath(fileName)
	if filePath == "" {
		c.JSON(http.StatusNotFound, errorResponse("Log file not found: "+fileName))
		return
	}
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		c.JSON(http.StatusNotFound, errorResponse("Log file not found: "+fileName))
		return
	}

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.File(filePath)
}

func (h *Handler) clearLogs(c *gin.Context) {
	fileName, ok := logFiles[c.Param("level")]
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse("unknown log level: "+c.Param("level")))
		return
	}
	if err := h.logger.CleanLogs(fileName); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
