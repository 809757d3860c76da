package api

import (
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/askwhyharsh/nearhelp/internal/ratelimit"
	"github.com/askwhyharsh/nearhelp/pkg/logger"
)

type WebSocketHandler interface {
	HandleWebSocket(c *gin.Context)
}

type RouteConfig struct {
	AllowedOrigins []string
	// Static holds index.html and its assets.
	Static fs.FS
	Logger logger.Logger
}

func SetupRoutes(r *gin.Engine, handler *Handler, wsHandler WebSocketHandler, rlMiddleware *ratelimit.Middleware, cfg RouteConfig) error {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}

	r.Use(CORSMiddleware(cfg.AllowedOrigins))
	r.Use(RequestTimeMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))

	if cfg.Static != nil {
		index, err := fs.ReadFile(cfg.Static, "index.html")
		if err != nil {
			return err
		}
		r.GET("/", func(c *gin.Context) {
			c.Data(http.StatusOK, "text/html; charset=utf-8", index)
		})
		r.StaticFS("/static", http.FS(cfg.Static))
	}

	api := r.Group("/api")
	{
		// Health check (no rate limit)
		api.GET("/health", handler.Health)

		limited := api.Group("", rlMiddleware.IPRateLimit())

		session := limited.Group("/session")
		{
			session.POST("/create", handler.CreateSession)
			session.GET("/:id", handler.GetSession)
		}

		limited.POST("/nearest", rlMiddleware.SessionRateLimit(), rlMiddleware.LocateRateLimit(), handler.Nearest)

		stations := limited.Group("/stations")
		{
			stations.GET("", handler.ListStations)
			stations.GET("/export", handler.ExportStations)
		}
	}

	// WebSocket route
	r.GET("/ws", rlMiddleware.IPRateLimit(), wsHandler.HandleWebSocket)

	return nil
}
