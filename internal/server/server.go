// Package server exposes the catalog as a browsable HTML site.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/joacominatel/minaweb/internal/database"
)

// ShutdownTimeout bounds how long in-flight requests may drain on shutdown.
const ShutdownTimeout = 5 * time.Second

// Catalog is the read API the router needs. *app.Service implements it.
type Catalog interface {
	ListSchemas(ctx context.Context) ([]string, error)
	TableSummaries(ctx context.Context, schema string) ([]database.TableSummary, error)
	StreamRows(ctx context.Context, schema, table string) (database.RowIterator, error)
}

// Config holds configuration for the HTTP server.
type Config struct {
	Catalog Catalog
	Listen  string
	Logger  *slog.Logger
}

// Server serves the three browse levels over HTTP.
type Server struct {
	catalog Catalog
	addr    string
	logger  *slog.Logger
}

// New creates a new server instance.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		catalog: cfg.Catalog,
		addr:    cfg.Listen,
		logger:  logger,
	}
}

// Handler returns the router with its middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		requestID,
		s.requestLogger,
		middleware.Recoverer,
		middleware.GetHead,
	)

	r.Get("/", s.browse)
	r.Get("/*", s.browse)
	return r
}

// Serve binds the listen address and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled, then drains in-flight
// requests for up to ShutdownTimeout.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.logger.Info("listening", slog.String("addr", "http://"+ln.Addr().String()))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
