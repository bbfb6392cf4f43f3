// Package api provides the Juniper Answers REST and WebSocket server.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/FocuswithJustin/JuniperAnswers/core/errors"
	"github.com/FocuswithJustin/JuniperAnswers/core/passage"
	"github.com/FocuswithJustin/JuniperAnswers/core/rank"
	"github.com/FocuswithJustin/JuniperAnswers/internal/cache"
	"github.com/FocuswithJustin/JuniperAnswers/internal/dataset"
	"github.com/FocuswithJustin/JuniperAnswers/internal/logging"
)

// Options supplies the corpus and collaborators a Server ranks with.
type Options struct {
	Dataset       *dataset.Dataset
	Filters       []string // filter names, rank.DefaultFilters when empty
	FilterOptions rank.Options

	// Text retrieves passage wording. Nil disables text in responses.
	Text passage.TextSource

	// Version is reported by / and /health.
	Version string
}

// Server serves rankings over HTTP.
type Server struct {
	cfg         Config
	data        *dataset.Dataset
	text        passage.TextSource
	version     string
	filterNames []string
	filters     []rank.Filter

	// template is never scored; pipelines work on clones of it.
	template *rank.Index
	pipeline *rank.Pipeline

	rankings *cache.TTLCache[string, rank.Ranking]
	hub      *Hub
	limiter  *RateLimiter
	started  time.Time
}

// New builds a server over opts.Dataset and starts its WebSocket hub. Call
// Close to release it.
func New(cfg Config, opts Options) (*Server, error) {
	data := opts.Dataset
	if data == nil {
		data = &dataset.Dataset{}
	}
	names := opts.Filters
	if len(names) == 0 {
		names = rank.DefaultFilters
	}
	if cfg.Top <= 0 {
		cfg.Top = 5
	}

	template, err := rank.NewIndex(data.Scriptures)
	if err != nil {
		return nil, errors.Wrap(err, "building index")
	}
	filters, err := rank.BuildFilters(names, data.Scriptures, opts.FilterOptions)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:         cfg,
		data:        data,
		text:        opts.Text,
		version:     opts.Version,
		filterNames: names,
		filters:     filters,
		template:    template,
		rankings:    cache.New[string, rank.Ranking](cfg.CacheSize, cfg.CacheTTL),
		hub:         NewHub(),
		started:     time.Now(),
	}
	if s.version == "" {
		s.version = "dev"
	}
	s.pipeline = rank.NewPipeline(template.Clone(), filters...).
		WithConcurrency(cfg.Concurrency).
		WithObserver(func(ev rank.StageEvent) { s.hub.Broadcast(stageMessage(ev)) })

	if cfg.RateLimitRequests > 0 {
		s.limiter = NewRateLimiter(RateLimiterConfig{
			RequestsPerMinute: cfg.RateLimitRequests,
			BurstSize:         cfg.RateLimitBurst,
		})
	}

	go s.hub.Run()
	return s, nil
}

// Close stops background goroutines.
func (s *Server) Close() {
	s.hub.Stop()
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// Handler returns the routes wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = securityHeaders(s.routes())
	if s.limiter != nil {
		handler = s.limiter.Middleware(handler)
	}
	handler = cors(s.cfg.AllowedOrigins, handler)
	return logging.CombinedMiddleware(handler)
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleNotFound)
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /filters", s.handleFilters)
	mux.HandleFunc("POST /rank", s.handleRank)
	mux.HandleFunc("GET /passages/{ref}", s.handlePassage)
	mux.HandleFunc("GET /questions", s.handleQuestions)
	mux.HandleFunc("GET /questions/{index}", s.handleQuestion)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	return mux
}

// ListenAndServe serves on the configured port until ctx is canceled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logging.Warn("TLS disabled - using plain HTTP",
		"recommendation", "terminate TLS at a reverse proxy for production")
	logging.ServerStartup("rest_api", "http", s.cfg.Port,
		"websocket_protocol", "ws",
		"passages", s.template.Len(),
		"questions", len(s.data.Questions),
		"filters", strings.Join(s.filterNames, ","),
		"text", s.text != nil)
	if s.limiter != nil {
		logging.Info("rate limiting enabled",
			"requests_per_minute", s.cfg.RateLimitRequests,
			"burst_size", s.limiter.config.BurstSize)
	}
	if len(s.cfg.AllowedOrigins) > 0 {
		logging.SecurityEvent("cors_configured", "api",
			"mode", "restricted",
			"allowed_origins_count", len(s.cfg.AllowedOrigins))
	} else {
		logging.SecurityEvent("cors_configured", "api",
			"mode", "permissive",
			"note", "allowing all origins (*) - consider restricting for production")
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	if serveErr := <-errCh; serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return serveErr
	}
	return err
}
