package route

import (
	"time"

	"zonewatch/internal/config"
	"zonewatch/internal/handler"
	"zonewatch/internal/logger"
	"zonewatch/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRoutes builds the gin engine with middleware and all API routes.
func SetupRoutes(h *handler.Handler, cfg *config.Config, logger *logger.Logger) *gin.Engine {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppEnv == "test" {
		gin.SetMode(gin.TestMode)
	}

	r := gin.New()
	r.Use(gin.RecoveryWithWriter(logger.ErrorWriter()))
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(logger))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "PUT", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", middleware.RequestIDKey},
		ExposeHeaders:    []string{middleware.RequestIDKey},
		MaxAge:           12 * time.Hour,
	}))

	h.Register(r)
	return r
}
