package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"zonewatch/internal/config"
	"zonewatch/internal/handler"
	"zonewatch/internal/logger"
	"zonewatch/internal/metrics"
	"zonewatch/internal/model"
	"zonewatch/internal/repository"
	"zonewatch/internal/repository/memory"
	"zonewatch/internal/repository/postgres"
	"zonewatch/internal/repository/sqlite"
	"zonewatch/internal/route"
	"zonewatch/internal/service"
	"zonewatch/internal/service/ai"
	"zonewatch/internal/service/capture"
	"zonewatch/internal/service/inference"
	"zonewatch/internal/service/websocket"
	"zonewatch/internal/zone"

	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout       = 10 * time.Second
	inferenceCheckTimeout = 5 * time.Second
)

// defaultZones seeds a fresh install that has no zones file yet.
var defaultZones = []model.Zone{
	{Name: "Living Room", Points: []model.Point{{X: 0.2, Y: 0.2}, {X: 0.8, Y: 0.2}, {X: 0.8, Y: 0.8}, {X: 0.2, Y: 0.8}}},
	{Name: "Kitchen", Points: []model.Point{{X: 0.6, Y: 0.6}, {X: 0.9, Y: 0.6}, {X: 0.9, Y: 0.9}, {X: 0.6, Y: 0.9}}},
}

// App owns every long-lived service. All of them are built in NewApp before
// any goroutine starts.
type App struct {
	config  *config.Config
	logger  *logger.Logger
	store   repository.DetectionRepository
	zones   *zone.Registry
	metrics *metrics.Metrics
	hub     *websocket.HubService
	manager *service.Manager
	server  *http.Server
	closers []func() error
}

func NewApp(cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{
		config:  cfg,
		logger:  log,
		metrics: metrics.New(),
	}

	zones, err := loadZones(cfg, log)
	if err != nil {
		return nil, err
	}
	a.zones = zones

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, store.Close)

	detector, err := newDetector(cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	var handlerOpts []handler.Option
	switch d := detector.(type) {
	case *ai.Detector:
		a.closers = append(a.closers, d.Close)
	case *inference.Client:
		checkInference(d, cfg.InferenceURL, log)
		handlerOpts = append(handlerOpts, handler.WithInference(d))
	}

	source, err := newFrameSource(cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.hub = websocket.NewHubService(log, a.metrics)

	pipeline := service.NewPipeline(zones, store, service.WithMinConfidence(cfg.MinConfidence))
	a.manager = service.NewManager(source, detector, pipeline, cfg, log,
		service.WithAnnotator(ai.NewAnnotator(), zones),
		service.WithPublisher(a.hub),
		service.WithMetrics(a.metrics),
	)

	h := handler.NewHandler(service.NewQueryService(store), zones, a.hub, a.metrics, cfg, log, handlerOpts...)
	a.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           route.SetupRoutes(h, cfg, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// Run serves HTTP and runs the producer loop until ctx is canceled or
// either of them fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hub.Run(ctx)
		return nil
	})

	g.Go(func() error {
		return a.manager.Run(ctx)
	})

	g.Go(func() error {
		a.logger.Info("🚀 zonewatch listening on %s (store: %s, zones: %d)", a.server.Addr, a.config.StoreDriver, a.zones.Len())
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close releases the store and the detection network.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// loadZones reads the zones file, seeding it with defaultZones when it does
// not exist yet. An invalid file is a startup error.
func loadZones(cfg *config.Config, log *logger.Logger) (*zone.Registry, error) {
	zones := zone.NewRegistry()

	err := zones.LoadFile(cfg.ZonesFile)
	switch {
	case err == nil:
		log.Info("Loaded %d zone(s) from %s", zones.Len(), cfg.ZonesFile)
		return zones, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("load zones: %w", err)
	}

	for _, z := range defaultZones {
		if err := zones.AddZone(z.Name, z.Points); err != nil {
			return nil, err
		}
	}
	if err := zones.SaveFile(cfg.ZonesFile); err != nil {
		return nil, fmt.Errorf("save default zones: %w", err)
	}
	log.Warning("Zones file %s not found - created it with %d default zone(s)", cfg.ZonesFile, zones.Len())
	return zones, nil
}

func openStore(cfg *config.Config) (repository.DetectionRepository, error) {
	switch cfg.StoreDriver {
	case "memory":
		return memory.NewDetectionRepository(), nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		db, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return sqlite.NewDetectionRepository(db), nil
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, errors.New("POSTGRES_DSN is required for the postgres store")
		}
		return postgres.Open(cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func newDetector(cfg *config.Config, log *logger.Logger) (service.DetectionSource, error) {
	switch cfg.Detector {
	case "gocv":
		return ai.NewDetector(cfg, log)
	case "http":
		return inference.NewClient(cfg.InferenceURL), nil
	default:
		return nil, fmt.Errorf("unknown detector %q", cfg.Detector)
	}
}

// checkInference reports whether the inference service answers its health
// endpoint. An unreachable service is logged, not fatal.
func checkInference(checker handler.HealthChecker, url string, log *logger.Logger) bool {
	ctx, cancel := context.WithTimeout(context.Background(), inferenceCheckTimeout)
	defer cancel()
	if err := checker.CheckHealth(ctx); err != nil {
		log.Warning("Inference service %s is not healthy: %v", url, err)
		return false
	}
	log.Info("Inference service %s is healthy", url)
	return true
}

func newFrameSource(cfg *config.Config, log *logger.Logger) (service.FrameSource, error) {
	switch cfg.CaptureSource {
	case "udp":
		return capture.NewUDPSource(cfg, log), nil
	case "device":
		return capture.NewDeviceSource(cfg, log), nil
	default:
		return nil, fmt.Errorf("unknown capture source %q", cfg.CaptureSource)
	}
}
