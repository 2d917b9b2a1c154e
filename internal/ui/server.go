// Package ui serves the run history dashboard for LeapML.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapml/internal/state"
	"github.com/leapstack-labs/leapml/internal/ui/notifier"
)

// DefaultPort is the port the dashboard listens on when none is set.
const DefaultPort = 8765

// debounce coalesces bursts of writes to the state database.
const debounce = 100 * time.Millisecond

// Server is the dashboard HTTP server.
type Server struct {
	store     state.Store
	port      int
	watch     bool
	statePath string
	logger    *slog.Logger
	notifier  *notifier.Notifier
}

// Config holds configuration for the dashboard server.
type Config struct {
	Store state.Store
	Port  int
	// Watch pushes updates to open pages when StatePath changes.
	Watch     bool
	StatePath string
	Logger    *slog.Logger
}

// NewServer creates a dashboard server.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}
	return &Server{
		store:     cfg.Store,
		port:      port,
		watch:     cfg.Watch,
		statePath: cfg.StatePath,
		logger:    logger,
		notifier:  notifier.New(),
	}
}

// Notifier returns the notifier that drives SSE updates.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)
	newHandlers(s.store, s.notifier, s.logger).routes(r)
	return r
}

// Serve starts the server and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	return s.serve(ctx, fmt.Sprintf(":%d", s.port))
}

func (s *Server) serve(ctx context.Context, addr string) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch && s.statePath != "" {
		w, err := s.newStateWatcher()
		if err != nil {
			s.logger.Warn("state watcher disabled", "error", err)
		} else {
			eg.Go(func() error { return s.watchState(egctx, w) })
		}
	}

	eg.Go(func() error {
		s.logger.Info("dashboard listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Debug("shutting down dashboard")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// newStateWatcher watches the directory holding the state database. SQLite
// writes to sidecar files (-wal, -journal) as well as the database itself.
func (s *Server) newStateWatcher() (*fsnotify.Watcher, error) {
	dir := filepath.Dir(s.statePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, err
	}
	return w, nil
}

// watchState broadcasts to SSE listeners after the state database changes.
// It owns w and closes it on return.
func (s *Server) watchState(ctx context.Context, w *fsnotify.Watcher) error {
	defer func() { _ = w.Close() }()

	base := filepath.Base(s.statePath)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !strings.HasPrefix(filepath.Base(event.Name), base) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				s.logger.Debug("state changed", "file", event.Name)
				s.notifier.Broadcast()
			})

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}
