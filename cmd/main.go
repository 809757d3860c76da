package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/askwhyharsh/nearhelp/internal/api"
	"github.com/askwhyharsh/nearhelp/internal/audio"
	"github.com/askwhyharsh/nearhelp/internal/config"
	"github.com/askwhyharsh/nearhelp/internal/geolocation"
	"github.com/askwhyharsh/nearhelp/internal/ratelimit"
	"github.com/askwhyharsh/nearhelp/internal/session"
	"github.com/askwhyharsh/nearhelp/internal/station"
	"github.com/askwhyharsh/nearhelp/internal/storage"
	"github.com/askwhyharsh/nearhelp/internal/websocket"
	"github.com/askwhyharsh/nearhelp/pkg/logger"
	"github.com/askwhyharsh/nearhelp/pkg/validator"
	"github.com/askwhyharsh/nearhelp/web"
)

func main() {
	// Load configuration (also reads .env when present)
	cfg, err := config.Load()
	if err != nil {
		logger.NewLogger(os.Getenv("ENV"), os.Getenv("LOG_LEVEL")).Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	appLogger := logger.NewLogger(cfg.Server.Env, cfg.Monitoring.LogLevel)
	defer func() { _ = appLogger.Sync() }()
	appLogger.Info("Starting NearHelp server...")

	if err := run(cfg, appLogger); err != nil {
		appLogger.Error("Server exited with error", "error", err)
		_ = appLogger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, appLogger logger.Logger) error {
	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Redis
	redisClient, err := storage.NewRedisClient(cfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis", "address", cfg.RedisAddr())

	catalog, err := loadCatalog(ctx, cfg, appLogger)
	if err != nil {
		return err
	}

	// Initialize services
	sessionService := session.NewService(redisClient, cfg.Session.TTL)
	sessionManager := session.NewManager(sessionService, appLogger, cfg.Session.CleanupInterval)

	rateLimiter := ratelimit.NewLimiter(redisClient, cfg.RateLimit)
	rateLimitMiddleware := ratelimit.NewMiddleware(rateLimiter, sessionManager, appLogger)

	hub := websocket.NewHub(ctx, redisClient, appLogger)
	go hub.Run()

	wsHandler := websocket.NewHandler(websocket.HandlerConfig{
		Hub:       hub,
		Sessions:  sessionManager,
		Recorders: sessionService,
		Limiter:   rateLimiter,
		Catalog:   catalog,
		Options:   geolocation.OptionsWithTimeout(cfg.Geolocation.Timeout),
		Alarm: audio.Track{
			Source: cfg.Alarm.Sound,
			Loop:   true,
			Volume: cfg.Alarm.Volume,
		},
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         appLogger,
	})

	apiHandler := api.NewHandler(api.HandlerConfig{
		Sessions:    sessionService,
		Catalog:     catalog,
		RateLimiter: rateLimiter,
		Validator:   validator.NewValidator(),
		Connections: hub,
		Store:       redisClient,
		ExportSheet: cfg.Stations.Sheet,
		Logger:      appLogger,
	})

	// Start background services
	go sessionManager.Start(ctx)

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(api.RequestLogger(appLogger))

	if err := api.SetupRoutes(router, apiHandler, wsHandler, rateLimitMiddleware, api.RouteConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Static:         web.Static(),
		Logger:         appLogger,
	}); err != nil {
		return err
	}

	// Create HTTP server. No write timeout: websocket connections are long lived.
	srv := &http.Server{
		Addr:        cfg.ServerAddr(),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		appLogger.Info("Server starting", "address", srv.Addr, "env", cfg.Server.Env, "stations", catalog.Len())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-serveErr:
		return err
	}

	appLogger.Info("Shutting down server...")

	// Cancel context to stop background services and close page connections
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server stopped")
	return nil
}

// loadCatalog picks the station source: Postgres when DATABASE_URL is set,
// then a spreadsheet when STATIONS_FILE is set, else the built-in sample.
func loadCatalog(ctx context.Context, cfg *config.Config, appLogger logger.Logger) (*station.Catalog, error) {
	var src station.Source

	switch {
	case cfg.Postgres.URL != "":
		pg, err := storage.NewPostgresClient(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		defer pg.Close()

		seeded, err := pg.SeedStations(ctx, station.Sample())
		if err != nil {
			return nil, err
		}
		if seeded {
			appLogger.Info("Seeded empty stations table with sample data")
		}
		src = station.DBSource{Store: pg}
	case cfg.Stations.File != "":
		src = station.ExcelSource{Path: cfg.Stations.File, Sheet: cfg.Stations.Sheet}
	default:
		src = station.SampleSource()
	}

	catalog, err := station.Load(ctx, src)
	if err != nil {
		return nil, err
	}

	appLogger.Info("Station catalog loaded", "source", src.Name(), "stations", catalog.Len())
	return catalog, nil
}
