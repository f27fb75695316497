package snapshots

import (
	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/dark/internal/engine"
)

// ListPath lists stored snapshots.
const ListPath = "/admin/api/snapshots"

// SetupRoutes registers the snapshots feature routes.
func SetupRoutes(router chi.Router, eng *engine.Engine) {
	router.Get(ListPath, NewHandlers(eng).List)
}
