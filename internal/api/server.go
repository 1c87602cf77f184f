// Package api exposes the scene state over a small HTTP API so other
// programs can read it and drive the theme remotely.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/litescript/ls-skyline/internal/astro"
	"github.com/litescript/ls-skyline/internal/catalog"
	"github.com/litescript/ls-skyline/internal/logging"
	"github.com/litescript/ls-skyline/internal/storage"
	"github.com/litescript/ls-skyline/internal/theme"
)

// Controller is the theme state the API reads and drives.
// *theme.Manager satisfies it.
type Controller interface {
	Snapshot() theme.Snapshot
	SetSelection(sel theme.Selection) error
	EnableSmart(ctx context.Context) error
	DisableSmart()
	Refresh() bool
}

// History lists recorded environments. *storage.Store satisfies it.
type History interface {
	RecentObservations(limit int) ([]storage.Observation, error)
}

type ServerConfig struct {
	Addr       string
	Controller Controller
	History    History
	Logger     *logging.Logger
	Now        func() time.Time
}

type Server struct {
	router  *gin.Engine
	server  *http.Server
	addr    string
	ctrl    Controller
	history History
	log     *logging.Logger
	now     func() time.Time

	// base outlives individual requests; smart mode started over HTTP
	// keeps running after the response is written.
	base context.Context
}

func NewServer(ctx context.Context, cfg ServerConfig) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		router: router,
		server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		addr:    cfg.Addr,
		ctrl:    cfg.Controller,
		history: cfg.History,
		log:     log,
		now:     now,
		base:    ctx,
	}
	router.Use(s.requestLogger())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthHandler)

	api := s.router.Group("/api/v1")
	{
		api.GET("/scene", s.sceneHandler)
		api.GET("/environment", s.environmentHandler)
		api.GET("/observations", s.observationsHandler)
		api.PUT("/selection", s.selectionHandler)
		api.PUT("/mode", s.modeHandler)
		api.POST("/refresh", s.refreshHandler)
	}
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Stop is called. After Stop, including a Stop that ran
// first, it returns nil at once.
func (s *Server) Start() error {
	s.log.Info("API server listening on %s", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func (s *Server) healthHandler(c *gin.Context) {
	snap := s.ctrl.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"mode":      snap.Mode,
		"loading":   snap.Loading,
		"timestamp": s.now(),
	})
}

type sceneResponse struct {
	theme.Snapshot
	TimeOfDay astro.TimeOfDay `json:"time_of_day"`
	Positions astro.Positions `json:"positions"`
	Palette   catalog.Palette `json:"palette"`
}

func (s *Server) sceneHandler(c *gin.Context) {
	now := s.now()
	snap := s.ctrl.Snapshot()
	pos := snap.Positions(now)
	c.JSON(http.StatusOK, sceneResponse{
		Snapshot:  snap,
		TimeOfDay: pos.TimeOfDay,
		Positions: pos,
		Palette:   catalog.PaletteFor(snap.Weather, pos.TimeOfDay),
	})
}

func (s *Server) environmentHandler(c *gin.Context) {
	snap := s.ctrl.Snapshot()
	if snap.Environment == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no environment resolved"})
		return
	}
	c.JSON(http.StatusOK, snap.Environment)
}

func (s *Server) observationsHandler(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage is disabled"})
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
			return
		}
		limit = n
	}

	obs, err := s.history.RecentObservations(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"observations": obs, "count": len(obs)})
}

type selectionRequest struct {
	Weather   string `json:"weather"`
	TimeOfDay string `json:"time_of_day"`
}

func (s *Server) selectionHandler(c *gin.Context) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	sel := s.ctrl.Snapshot().Selection
	if req.Weather != "" {
		w, err := catalog.ParseCategory(req.Weather)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		sel.Weather = w
	}
	if req.TimeOfDay != "" {
		t, err := astro.ParseTimeOfDay(req.TimeOfDay)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		sel.TimeOfDay = t
	}

	if err := s.ctrl.SetSelection(sel); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"selection": sel})
}

type modeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

func (s *Server) modeHandler(c *gin.Context) {
	var req modeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode is required"})
		return
	}
	mode, err := theme.ParseMode(req.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch mode {
	case theme.ModeSmart:
		if err := s.ctrl.EnableSmart(s.base); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
	case theme.ModeManual:
		s.ctrl.DisableSmart()
	}
	c.JSON(http.StatusOK, gin.H{"mode": mode})
}

func (s *Server) refreshHandler(c *gin.Context) {
	if !s.ctrl.Refresh() {
		c.JSON(http.StatusConflict, gin.H{"error": "refresh is only available in smart mode"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "refreshing"})
}
