package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"LayerSentinel/internal/model"
	"LayerSentinel/internal/news"
	"LayerSentinel/internal/pipeline"
	"LayerSentinel/internal/recorder"
)

// Runner is the part of the pipeline the API exposes.
type Runner interface {
	Run(ctx context.Context, opts pipeline.Options) (*pipeline.Report, error)
	News(ctx context.Context, ticker string, opts pipeline.Options) (news.Result, []model.TaggedNewsItem)
	Macro(ctx context.Context) (*pipeline.MacroReport, error)
	Layers() []model.LayerConfig
}

// History reads stored layer scores.
type History interface {
	LayerHistory(ctx context.Context, layer string, limit int) ([]recorder.HistoryPoint, error)
}

// CacheClearer drops every cached upstream response.
type CacheClearer interface {
	Clear(ctx context.Context) error
}

// FlagSource reports the current fundamental flags.
type FlagSource interface {
	Snapshot() map[string]bool
}

// Config holds server configuration
type Config struct {
	Addr           string
	AllowedOrigins []string
	Log            zerolog.Logger
	Runner         Runner
	History        History
	Cache          CacheClearer
	Flags          FlagSource
	Metrics        http.Handler
	Options        pipeline.Options
}

// Server represents the HTTP server
type Server struct {
	router  *chi.Mux
	server  *http.Server
	log     zerolog.Logger
	runner  Runner
	history History
	cache   CacheClearer
	flags   FlagSource
	metrics http.Handler
	opts    pipeline.Options
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		log:     cfg.Log.With().Str("component", "server").Logger(),
		runner:  cfg.Runner,
		history: cfg.History,
		cache:   cfg.Cache,
		flags:   cfg.Flags,
		metrics: cfg.Metrics,
		opts:    cfg.Options,
	}

	s.setupMiddleware(cfg.AllowedOrigins)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupMiddleware(origins []string) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	// A scoring run may pull every layer plus news.
	s.router.Use(middleware.Timeout(75 * time.Second))

	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics)
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/scores", s.handleScores)
		r.Get("/news/{ticker}", s.handleNews)
		r.Get("/macro", s.handleMacro)
		r.Get("/layers", s.handleLayers)
		r.Get("/history/{layer}", s.handleHistory)
		r.Post("/cache/clear", s.handleCacheClear)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
