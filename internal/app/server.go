package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"gopress/internal/fetch"
	"gopress/internal/media"
	"gopress/internal/wordpress"
)

const shutdownTimeout = 10 * time.Second

// Server is the application server.
type Server struct {
	cfg      *Config
	log      *zap.Logger
	source   ContentSource
	media    *media.Resolver
	sessions *SessionStore
	feed     *FeedHandler
	router   chi.Router

	shutdown  chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewServer creates a Server reading from the WordPress API in cfg.
func NewServer(cfg *Config, log *zap.Logger) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	// single attempt per read; retries are the visitor's call
	hc := fetch.NewClient(fetch.ClientOptions{
		Timeout:   cfg.RequestTimeout,
		UserAgent: cfg.UserAgent,
		Logger:    log.Named("http"),
	})

	gw, err := wordpress.New(cfg.APIURL, hc, log.Named("wordpress"))
	if err != nil {
		return nil, err
	}
	return newServer(cfg, gw, log)
}

func newServer(cfg *Config, src ContentSource, log *zap.Logger) (*Server, error) {
	resolver, err := media.NewResolver(cfg.siteURL(),
		media.WithPlaceholder(cfg.PlaceholderImage),
		media.WithContentFallback(cfg.MediaContentFallback),
	)
	if err != nil {
		return nil, fmt.Errorf("media resolver: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		log:      log,
		source:   src,
		media:    resolver,
		sessions: NewSessionStore(cfg, src, resolver, log),
		shutdown: make(chan struct{}),
	}
	s.feed = NewFeedHandler(s, cfg.ArticleTTL)
	s.router = s.routes()
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.withCommonHeaders(s.router)
}

// Run starts background workers and serves addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.Start()
	defer s.Close()

	h := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Listening", zap.String("addr", addr))
		errCh <- h.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.log.Info("Shutting down")
	if err := h.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Start launches the cleaner loop.
func (s *Server) Start() {
	s.wg.Add(1)
	go s.cleanerLoop()
}

// Close stops background work and closes every session.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.shutdown)
		s.wg.Wait()
		s.sessions.Close()
	})
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		s.requestLogger,
		middleware.Recoverer,
	)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/feed.xml", s.feed)

	r.Route("/api", func(r chi.Router) {
		r.Post("/session", s.handleCreateSession)
		r.Get("/categories", s.handleCategories)
		r.Get("/posts", s.handleSelectFilter)
		r.Post("/posts/more", s.handleLoadMore)
		r.Get("/posts/{slug}", s.handleViewPost)
	})
	return r
}

// withCommonHeaders adds CORS and common headers.
func (s *Server) withCommonHeaders(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Expose-Headers", sessionHeader)
		w.Header().Set("Server", "gopress")
		h.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.log.Info("http",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("dur", time.Since(start)),
			zap.Int("bytes", ww.BytesWritten()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// cleanerLoop periodically drops idle sessions and stale cached lookups.
func (s *Server) cleanerLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.shutdown:
			return
		}
	}
}

func (s *Server) sweep() {
	sessions := s.sessions.Sweep()
	feeds := s.feed.pages.Cleanup()
	if sessions > 0 || feeds > 0 {
		s.log.Debug("Cache cleanup", zap.Int("sessions", sessions), zap.Int("feeds", feeds))
	}
}
