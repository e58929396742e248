// Package server exposes the dashboard over HTTP.
//
// The JSON API serves control declarations and chart specifications. HTML pages are rendered with
// go-echarts. Every request builds its own [view.Dashboard]: no session state is kept on the server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fredbi/trackviz/internal/pkg/chart"
	"github.com/fredbi/trackviz/internal/pkg/config"
	"github.com/fredbi/trackviz/internal/pkg/derive"
	"github.com/fredbi/trackviz/internal/pkg/view"
)

// Server serves the dashboard over a shared, read-only dataset.
type Server struct {
	options

	router *chi.Mux
	d      *derive.Deriver
	b      *chart.Builder
	cfg    *config.Config
	l      *slog.Logger
}

// New builds a [Server] with its routes.
func New(d *derive.Deriver, b *chart.Builder, opts ...Option) *Server {
	s := &Server{
		options: optionsWithDefaults(opts),
		router:  chi.NewRouter(),
		d:       d,
		b:       b,
		cfg:     d.Config(),
		l:       slog.Default().With(slog.String("module", "server")),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the address the server listens on.
func (s *Server) Addr() string {
	return s.listen
}

// ListenAndServe serves HTTP requests until the context is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listen,
		Handler:           s.router,
		ReadHeaderTimeout: s.readTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.l.Info("listening", slog.String("addr", s.listen))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("serving on %s: %w", s.listen, err)
	case <-ctx.Done():
	}

	s.l.Info("shutting down", slog.Duration("timeout", s.shutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	return nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	// HTML pages
	s.router.Get("/", s.handlePageHTML)
	s.router.Get("/pages/{page}", s.handlePageHTML)

	// JSON API
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/controls", s.handleControls)
		r.Get("/pages", s.handlePages)
		r.Get("/pages/{page}", s.handlePage)
		r.Post("/pages/{page}/events", s.handleEvent)
		r.Get("/charts/{chart}", s.handleChart)
		r.Get("/dataset", s.handleDataset)
	})

	s.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, view.NotFoundMessage, http.StatusNotFound)
	})
}

func (s *Server) dashboard() *view.Dashboard {
	return view.NewDashboard(s.d, s.b)
}
