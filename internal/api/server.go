// Package api exposes the export pipeline over HTTP: planning an EDL from
// raw events and rendering it with streamed progress.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/jmadderra/stillsplice/internal/config"
	"github.com/jmadderra/stillsplice/internal/engine"
	"github.com/jmadderra/stillsplice/internal/stylize"
)

const version = "0.1.0"

type Server struct {
	logger     zerolog.Logger
	cfg        *config.Config
	styles     *stylize.Registry
	httpServer *http.Server
	startTime  time.Time

	// The engine is one stateful resource; only one export may hold it.
	// TryLock gates concurrent render requests with a 409.
	exportMu sync.Mutex

	// newEngine builds the engine for one export. Swappable in tests.
	newEngine func() (engine.Engine, error)
}

func NewServer(logger zerolog.Logger, cfg *config.Config) *Server {
	s := &Server{
		logger:    logger.With().Str("component", "api").Logger(),
		cfg:       cfg,
		styles:    stylize.NewRegistry(cfg.Style.Presets),
		startTime: time.Now(),
	}
	s.newEngine = func() (engine.Engine, error) {
		return engine.New(s.logger, engine.Options{
			BinaryPath: cfg.FFmpeg.BinaryPath,
			ProbePath:  cfg.FFmpeg.ProbePath,
			Threads:    cfg.FFmpeg.Threads,
			WorkDir:    cfg.WorkDir,
		})
	}
	s.httpServer = &http.Server{
		Addr:        cfg.Server.Addr,
		Handler:     s.Router(),
		ReadTimeout: 30 * time.Second,
		// Renders stream for as long as the export runs.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(s.logger))
	r.Use(LoggingMiddleware(s.logger))

	r.Get("/health", s.healthHandler)
	r.Get("/styles", s.stylesHandler)
	r.Post("/export/plan", s.planHandler)
	r.Post("/export/render", s.renderHandler)

	return r
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("starting HTTP server")
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
