package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nao1215/cannibalscan/internal/config"
	"github.com/nao1215/cannibalscan/internal/model"
	"github.com/nao1215/cannibalscan/internal/session"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 5 * time.Second

// Fetcher runs a fresh analysis, for reloads.
type Fetcher func(ctx context.Context) (*model.AnalysisReport, error)

// Server serves one session.
type Server struct {
	session     *session.Session
	logger      *slog.Logger
	stylesheets []string
	fetch       Fetcher
	now         func() time.Time
	router      chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for requests and errors.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithStylesheets inlines css into the pages and HTML exports.
func WithStylesheets(css []string) Option {
	return func(s *Server) {
		s.stylesheets = css
	}
}

// WithFetcher makes reloads run a fresh analysis instead of restoring the
// fetched one.
func WithFetcher(fetch Fetcher) Option {
	return func(s *Server) {
		s.fetch = fetch
	}
}

// WithClock sets the clock used for export file names.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New creates a viewer for sess.
func New(sess *session.Session, opts ...Option) *Server {
	s := &Server{
		session: sess,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	for _, format := range config.ExportFormats {
		r.Get("/export."+format, s.handleExport(format))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/groups", s.handleGroups)
		r.Post("/reload", s.handleReload)
		r.Post("/reset", s.handleReset)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("viewer listening", "address", "http://"+addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("viewer stopped: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down viewer: %w", err)
		}
		return nil
	}
}

// requestLogger logs every request at debug level.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
