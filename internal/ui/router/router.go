// Package router sets up HTTP routes for the editor server.
package router

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/dark/internal/engine"
	editorFeature "github.com/leapstack-labs/dark/internal/ui/features/editor"
	endpointsFeature "github.com/leapstack-labs/dark/internal/ui/features/endpoints"
	snapshotsFeature "github.com/leapstack-labs/dark/internal/ui/features/snapshots"
	"github.com/leapstack-labs/dark/internal/ui/notifier"
	"github.com/leapstack-labs/dark/internal/ui/resources"
)

// Deps bundles what the feature routes need.
type Deps struct {
	Engine       *engine.Engine
	SessionStore sessions.Store
	Notifier     *notifier.Notifier
	Endpoints    []endpointsFeature.Endpoint
	Runner       endpointsFeature.Runner
	Logger       *slog.Logger
	IsDev        bool
}

// SetupRoutes configures all routes for the editor server.
func SetupRoutes(ctx context.Context, router chi.Router, deps Deps) error {
	// Hot reload endpoint for dev mode
	if deps.IsDev {
		setupReload(router)
	}

	// Static assets
	router.Handle("/static/*", resources.Handler(deps.IsDev))

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, editorFeature.PagePath, http.StatusFound)
	})

	// Feature routes
	if err := editorFeature.SetupRoutes(router, deps.Engine, deps.SessionStore, deps.Notifier, deps.IsDev); err != nil {
		return err
	}

	snapshotsFeature.SetupRoutes(router, deps.Engine)

	if err := endpointsFeature.SetupRoutes(ctx, router, deps.Engine, deps.Endpoints, deps.Runner, deps.Logger); err != nil {
		return err
	}

	return nil
}

func setupReload(router chi.Router) {
	reloadChan := make(chan struct{}, 1)
	var hotReloadOnce sync.Once

	router.Get("/reload", func(w http.ResponseWriter, r *http.Request) {
		sse := datastar.NewSSE(w, r)
		reload := func() { _ = sse.ExecuteScript("window.location.reload()") }
		hotReloadOnce.Do(reload)
		select {
		case <-reloadChan:
			reload()
		case <-r.Context().Done():
		}
	})

	router.Get("/hotreload", func(w http.ResponseWriter, _ *http.Request) {
		select {
		case reloadChan <- struct{}{}:
		default:
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}
