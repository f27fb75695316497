// Package ui serves the graph editor over HTTP.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/dark/internal/engine"
	"github.com/leapstack-labs/dark/internal/ui/features/endpoints"
	"github.com/leapstack-labs/dark/internal/ui/notifier"
	"github.com/leapstack-labs/dark/internal/ui/router"
)

// Server is the editor HTTP server.
type Server struct {
	engine       *engine.Engine
	sessionStore *sessions.CookieStore
	port         int
	watchPath    string
	isDev        bool
	endpoints    []endpoints.Endpoint
	runner       endpoints.Runner
	logger       *slog.Logger
	notifier     *notifier.Notifier
}

// Config holds configuration for the editor server.
type Config struct {
	Engine        *engine.Engine
	Port          int
	SessionSecret string
	// WatchPath is a snapshot file reloaded when it changes on disk.
	// Empty disables watching.
	WatchPath string
	Dev       bool
	Endpoints []endpoints.Endpoint
	// Runner executes endpoint nodes (optional, defaults to endpoints.NopRunner)
	Runner endpoints.Runner
	// Notifier is pinged on every change (optional). Pass the notifier the
	// engine's OnCommit callback broadcasts on.
	Notifier *notifier.Notifier
	Logger   *slog.Logger
}

// NewServer creates a new editor server instance.
func NewServer(cfg Config) *Server {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 30) // 30 days
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	notify := cfg.Notifier
	if notify == nil {
		notify = notifier.New()
	}
	runner := cfg.Runner
	if runner == nil {
		runner = endpoints.NopRunner{}
	}

	return &Server{
		engine:       cfg.Engine,
		sessionStore: sessionStore,
		port:         cfg.Port,
		watchPath:    cfg.WatchPath,
		isDev:        cfg.Dev,
		endpoints:    cfg.Endpoints,
		runner:       runner,
		logger:       logger,
		notifier:     notify,
	}
}

// Handler builds the router with all routes mounted. Endpoint nodes that
// are missing from the graph are created.
func (s *Server) Handler(ctx context.Context) (http.Handler, error) {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	err := router.SetupRoutes(ctx, r, router.Deps{
		Engine:       s.engine,
		SessionStore: s.sessionStore,
		Notifier:     s.notifier,
		Endpoints:    s.endpoints,
		Runner:       s.runner,
		Logger:       s.logger,
		IsDev:        s.isDev,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}
	return r, nil
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)

	eg, egctx := errgroup.WithContext(ctx)

	handler, err := s.Handler(egctx)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("starting editor", "addr", fmt.Sprintf("http://localhost:%d/admin/ui", s.port))

	if s.watchPath != "" {
		eg.Go(func() error {
			return s.watchSnapshot(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down editor server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// Notifier returns the server's notifier for SSE updates.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// watchSnapshot reloads the graph when the snapshot file is replaced by
// another process. Commits made by this server reload to an equal graph
// and do not notify.
func (s *Server) watchSnapshot(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	// Saves rename a temp file over the target, so watch the directory.
	target := filepath.Clean(s.watchPath)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		s.logger.Error("failed to watch snapshot directory", "error", err)
		<-ctx.Done()
		return nil
	}

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(100*time.Millisecond, func() {
				s.reload(ctx)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

func (s *Server) reload(ctx context.Context) {
	changed, err := s.engine.Reload(ctx)
	if err != nil {
		s.logger.Error("reload failed", "error", err)
		return
	}
	if changed {
		s.logger.Debug("snapshot changed on disk, notifying clients", "path", s.watchPath)
		s.notifier.Broadcast()
	}
}
