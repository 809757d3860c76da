package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/askwhyharsh/nearhelp/internal/location"
	"github.com/askwhyharsh/nearhelp/internal/ratelimit"
	"github.com/askwhyharsh/nearhelp/internal/session"
	"github.com/askwhyharsh/nearhelp/internal/station"
	apperrors "github.com/askwhyharsh/nearhelp/pkg/errors"
	"github.com/askwhyharsh/nearhelp/pkg/logger"
	"github.com/askwhyharsh/nearhelp/pkg/validator"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ConnectionCounter reports live page connections.
type ConnectionCounter interface {
	Count() int
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HandlerConfig struct {
	Sessions    session.SessionService
	Catalog     *station.Catalog
	RateLimiter ratelimit.RateLimiter
	Validator   validator.Validator
	Connections ConnectionCounter
	Store       Pinger
	ExportSheet string
	Logger      logger.Logger
}

type Handler struct {
	sessionService session.SessionService
	catalog        *station.Catalog
	rateLimiter    ratelimit.RateLimiter
	validator      validator.Validator
	connections    ConnectionCounter
	store          Pinger
	exportSheet    string
	logger         logger.Logger
}

type SessionResponse struct {
	SessionID string `json:"session_id"`
	CreatedAt string `json:"created_at"`
}

// SessionView is a session as returned to clients; the IP stays server side.
type SessionView struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeen   time.Time `json:"last_seen"`
	Flashlight bool      `json:"flashlight"`
	Alarm      bool      `json:"alarm"`
	Phase      string    `json:"phase"`
	FixGeohash string    `json:"fix_geohash,omitempty"`
	// FixArea is the center of the geohash cell, not the fix itself.
	FixArea *location.Coordinate `json:"fix_area,omitempty"`
	Nearest *session.Nearest     `json:"nearest,omitempty"`
}

type StationResponse struct {
	Position  int     `json:"position"`
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Geohash   string  `json:"geohash"`
}

type NearestResponse struct {
	Station       StationResponse `json:"station"`
	DistanceKm    float64         `json:"distance_km"`
	Distance      string          `json:"distance"`
	DirectionsURL string          `json:"directions_url"`
}

func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	return &Handler{
		sessionService: cfg.Sessions,
		catalog:        cfg.Catalog,
		rateLimiter:    cfg.RateLimiter,
		validator:      cfg.Validator,
		connections:    cfg.Connections,
		store:          cfg.Store,
		exportSheet:    cfg.ExportSheet,
		logger:         cfg.Logger,
	}
}

// respondError writes err in the error envelope. Server-side failures are
// logged with their cause and reported without it.
func (h *Handler) respondError(c *gin.Context, err error) {
	appErr := toAppError(err)
	if appErr.StatusCode >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	c.JSON(appErr.StatusCode, ErrorResponse(appErr.Error(), errorCode(appErr)))
}

func stationResponse(position int, s location.Station) StationResponse {
	return StationResponse{
		Position:  position,
		Name:      s.Name,
		Address:   s.Address,
		Latitude:  s.Coordinate.Lat,
		Longitude: s.Coordinate.Lon,
		Geohash:   s.Coordinate.Geohash(location.DefaultGeohashPrecision),
	}
}

// POST /api/session/create
func (h *Handler) CreateSession(c *gin.Context) {
	ctx := c.Request.Context()
	ip := c.ClientIP()

	allowed, err := h.rateLimiter.AllowSessionCreation(ctx, ip)
	if err != nil {
		h.respondError(c, fmt.Errorf("check session rate limit: %w", err))
		return
	}
	if !allowed {
		h.respondError(c, apperrors.NewAppError(apperrors.ErrRateLimitExceeded, "Rate limit exceeded", http.StatusTooManyRequests))
		return
	}

	s, err := h.sessionService.Create(ctx, ip)
	if err != nil {
		h.respondError(c, fmt.Errorf("create session: %w", err))
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse(SessionResponse{
		SessionID: s.ID,
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
	}))
}

// GET /api/session/:id
func (h *Handler) GetSession(c *gin.Context) {
	sessionID := c.Param("id")
	if err := h.validator.ValidateSessionID(sessionID); err != nil {
		h.respondError(c, err)
		return
	}

	s, err := h.sessionService.Get(c.Request.Context(), sessionID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	view := SessionView{
		ID:         s.ID,
		CreatedAt:  s.CreatedAt,
		LastSeen:   s.LastSeen,
		Flashlight: s.Flashlight,
		Alarm:      s.Alarm,
		Phase:      s.Phase,
		FixGeohash: s.FixGeohash,
		Nearest:    s.Nearest,
	}
	if s.FixGeohash != "" {
		if area, err := location.DecodeGeohash(s.FixGeohash); err == nil {
			view.FixArea = &area
		}
	}

	c.JSON(http.StatusOK, SuccessResponse(view))
}

// POST /api/nearest
func (h *Handler) Nearest(c *gin.Context) {
	var req struct {
		Latitude  *float64 `json:"latitude" binding:"required"`
		Longitude *float64 `json:"longitude" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrors.NewAppError(apperrors.ErrInvalidRequest, "Invalid request", http.StatusBadRequest))
		return
	}

	if err := h.validator.ValidateCoordinates(*req.Latitude, *req.Longitude); err != nil {
		h.respondError(c, err)
		return
	}

	user := location.Coordinate{Lat: *req.Latitude, Lon: *req.Longitude}
	result, ok := h.catalog.Nearest(user)
	if !ok {
		h.respondError(c, apperrors.ErrNoStations)
		return
	}

	position := 0
	for i, s := range h.catalog.All() {
		if s == result.Station {
			position = i
			break
		}
	}

	c.JSON(http.StatusOK, SuccessResponse(NearestResponse{
		Station:       stationResponse(position, result.Station),
		DistanceKm:    location.RoundKm(result.DistanceKm),
		Distance:      location.FormatKm(result.DistanceKm) + " km",
		DirectionsURL: location.DirectionsURL(result.Station.Coordinate),
	}))
}

// GET /api/stations
func (h *Handler) ListStations(c *gin.Context) {
	all := h.catalog.All()
	stations := make([]StationResponse, len(all))
	for i, s := range all {
		stations[i] = stationResponse(i, s)
	}

	c.JSON(http.StatusOK, SuccessResponse(gin.H{
		"count":    len(stations),
		"stations": stations,
	}))
}

// GET /api/stations/export
func (h *Handler) ExportStations(c *gin.Context) {
	var buf bytes.Buffer
	if err := station.WriteExcel(&buf, h.catalog.All(), h.exportSheet); err != nil {
		h.respondError(c, fmt.Errorf("export stations: %w", err))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="stations.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// GET /api/health
func (h *Handler) Health(c *gin.Context) {
	ctx := c.Request.Context()
	status, code := "ok", http.StatusOK

	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			h.logger.Warn("Health check: store unreachable", "error", err)
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}

	connections := 0
	if h.connections != nil {
		connections = h.connections.Count()
	}

	var sessions int64
	if status == "ok" {
		n, err := h.sessionService.ActiveCount(ctx)
		if err != nil {
			h.logger.Warn("Health check: counting sessions failed", "error", err)
		}
		sessions = n
	}

	c.JSON(code, gin.H{
		"status":      status,
		"time":        c.GetTime(requestTimeKey),
		"stations":    h.catalog.Len(),
		"connections": connections,
		"sessions":    sessions,
	})
}
