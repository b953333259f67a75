package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"vdflow/internal/analyzer"
	"vdflow/internal/metrics"
	"vdflow/internal/ratelimit"
	"vdflow/internal/storage"
)

// Analyzer produces snapshots on demand; scanner.Scanner satisfies it
type Analyzer interface {
	Analyze(ctx context.Context, ticker string, refresh bool) (storage.Snapshot, error)
}

// Options holds server settings
type Options struct {
	Port         int
	JWTSecret    string // empty disables auth
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	RefreshLimit int // forced refreshes per ticker per minute
	Precision    analyzer.Precision
}

// Server represents the web server
type Server struct {
	analyzer Analyzer
	store    storage.Store
	metrics  *metrics.Recorder
	logger   zerolog.Logger
	opts     Options
	refresh  *ratelimit.KeyedLimiter
	echo     *echo.Echo
}

// NewServer creates a new web server and registers its routes
func NewServer(a Analyzer, st storage.Store, rec *metrics.Recorder, logger zerolog.Logger, opts Options) *Server {
	if opts.RefreshLimit < 1 {
		opts.RefreshLimit = 6
	}
	s := &Server{
		analyzer: a,
		store:    st,
		metrics:  rec,
		logger:   logger,
		opts:     opts,
		refresh:  ratelimit.NewKeyedLimiter(opts.RefreshLimit),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(s.recoverMiddleware())
	e.Use(s.requestLogging())
	e.Use(corsMiddleware())

	e.GET("/api/health", s.handleHealth)

	api := e.Group("/api/vdf")
	if opts.JWTSecret != "" {
		api.Use(jwtMiddleware([]byte(opts.JWTSecret)))
	}
	api.GET("/:ticker", s.handleAnalysis)
	api.GET("/:ticker/history", s.handleHistory)
	api.POST("/:ticker/rescore", s.handleRescore)

	if rec != nil {
		e.GET("/metrics", echo.WrapHandler(rec.Handler()))
	}

	s.echo = e
	return s
}

// Handler returns the HTTP handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start 서버 시작 (blocking). Returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.echo.Server.ReadTimeout = s.opts.ReadTimeout
	s.echo.Server.WriteTimeout = s.opts.WriteTimeout

	addr := fmt.Sprintf(":%d", s.opts.Port)
	s.logger.Info().Str("addr", addr).Bool("auth", s.opts.JWTSecret != "").Msg("VDF API listening")

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return nil
}
