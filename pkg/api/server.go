// Package api serves the scanner status and controls over HTTP
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/raykavin/fibscan/pkg/core"
	"github.com/raykavin/fibscan/pkg/logger"
	"github.com/raykavin/fibscan/pkg/scanner"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

const (
	defaultSignalLimit = 20
	maxSignalLimit     = 500
)

// Scanner is the control surface exposed by the API
type Scanner interface {
	Start() error
	Stop() error
	Status() scanner.Status
}

// LogReader returns the activity of one day, optionally of a single kind
type LogReader interface {
	Day(day time.Time, kind core.LogKind) ([]core.LogEntry, error)
}

// SettingsManager reads and updates the scan settings
type SettingsManager interface {
	Settings() (core.ScanConfig, error)
	Update(update core.ScanUpdate) (core.ScanConfig, error)
}

// Config holds server configuration
type Config struct {
	Listen  string
	Release bool
}

// Server represents the HTTP API server
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     Config
	scanner    Scanner
	signals    core.SignalStorage
	logs       LogReader
	settings   SettingsManager
	log        logger.Logger
	now        func() time.Time
}

// Option configures a Server
type Option func(*Server)

func WithSignals(signals core.SignalStorage) Option {
	return func(s *Server) {
		s.signals = signals
	}
}

func WithLogs(logs LogReader) Option {
	return func(s *Server) {
		s.logs = logs
	}
}

func WithSettings(settings SettingsManager) Option {
	return func(s *Server) {
		s.settings = settings
	}
}

// NewServer creates the router and registers the routes
func NewServer(config Config, control Scanner, log logger.Logger, options ...Option) *Server {
	if config.Release {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	server := &Server{
		router:  gin.New(),
		config:  config,
		scanner: control,
		log:     log,
		now:     time.Now,
	}
	for _, option := range options {
		option(server)
	}

	server.router.Use(server.requestLogger(), gin.Recovery())
	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/status", s.handleStatus)
	api.POST("/scanner/start", s.handleStart)
	api.POST("/scanner/stop", s.handleStop)
	api.GET("/signals", s.handleSignals)
	api.GET("/logs", s.handleLogs)
	api.GET("/settings", s.handleGetSettings)
	api.PUT("/settings", s.handleUpdateSettings)
}

// requestLogger logs every request through the application logger
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.log.WithFields(map[string]any{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debug("http request")
	}
}

// Handler returns the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens until Shutdown is called
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.log.Infof("starting HTTP server on %s", s.config.Listen)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":   true,
		"message": message,
	})
}

func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	successResponse(c, gin.H{
		"status": "healthy",
		"time":   s.now().UTC(),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	successResponse(c, s.scanner.Status())
}

func (s *Server) handleStart(c *gin.Context) {
	switch err := s.scanner.Start(); {
	case errors.Is(err, scanner.ErrAlreadyRunning):
		errorResponse(c, http.StatusConflict, err.Error())
	case err != nil:
		s.log.WithError(err).Error("failed to start scanner")
		errorResponse(c, http.StatusInternalServerError, "failed to start scanner")
	default:
		successResponse(c, s.scanner.Status())
	}
}

func (s *Server) handleStop(c *gin.Context) {
	switch err := s.scanner.Stop(); {
	case errors.Is(err, scanner.ErrNotRunning):
		errorResponse(c, http.StatusConflict, err.Error())
	case err != nil:
		s.log.WithError(err).Error("failed to stop scanner")
		errorResponse(c, http.StatusInternalServerError, "failed to stop scanner")
	default:
		successResponse(c, s.scanner.Status())
	}
}

// handleSignals returns the most recent signals, newest first
func (s *Server) handleSignals(c *gin.Context) {
	if s.signals == nil {
		errorResponse(c, http.StatusServiceUnavailable, "signal journal is not available")
		return
	}

	limit := defaultSignalLimit
	if value := c.Query("limit"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			errorResponse(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxSignalLimit)
	}

	signals, err := s.signals.Signals()
	if err != nil {
		s.log.WithError(err).Error("failed to load signals")
		errorResponse(c, http.StatusInternalServerError, "failed to load signals")
		return
	}

	successResponse(c, lo.Reverse(lo.Subset(signals, -limit, uint(limit))))
}

// handleLogs returns the activity of one day, today by default
func (s *Server) handleLogs(c *gin.Context) {
	if s.logs == nil {
		errorResponse(c, http.StatusServiceUnavailable, "activity log is not available")
		return
	}

	day := s.now()
	if value := c.Query("date"); value != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, value, time.Local)
		if err != nil {
			errorResponse(c, http.StatusBadRequest, "date must be formatted as YYYY-MM-DD")
			return
		}
		day = parsed
	}

	kind := core.LogKind(c.Query("kind"))
	if kind != "" && !kind.Valid() {
		errorResponse(c, http.StatusBadRequest, fmt.Sprintf("unknown log kind %q", kind))
		return
	}

	entries, err := s.logs.Day(day, kind)
	if err != nil {
		s.log.WithError(err).Error("failed to load logs")
		errorResponse(c, http.StatusInternalServerError, "failed to load logs")
		return
	}
	successResponse(c, entries)
}

func (s *Server) handleGetSettings(c *gin.Context) {
	if s.settings == nil {
		errorResponse(c, http.StatusServiceUnavailable, "settings are not available")
		return
	}

	settings, err := s.settings.Settings()
	if err != nil {
		s.log.WithError(err).Error("failed to load settings")
		errorResponse(c, http.StatusInternalServerError, "failed to load settings")
		return
	}
	successResponse(c, settings)
}

// handleUpdateSettings stores the fields present in the body. They apply from the next cycle.
func (s *Server) handleUpdateSettings(c *gin.Context) {
	if s.settings == nil {
		errorResponse(c, http.StatusServiceUnavailable, "settings are not available")
		return
	}

	var update core.ScanUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid settings: "+err.Error())
		return
	}
	if err := update.Validate(); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	settings, err := s.settings.Update(update)
	if err != nil {
		s.log.WithError(err).Error("failed to update settings")
		errorResponse(c, http.StatusInternalServerError, "failed to update settings")
		return
	}
	successResponse(c, settings)
}
