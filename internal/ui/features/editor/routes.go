package editor

import (
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	"github.com/leapstack-labs/dark/internal/engine"
	"github.com/leapstack-labs/dark/internal/ui/notifier"
)

// Editor routes.
const (
	RPCPath     = "/admin/api/rpc"
	PagePath    = "/admin/ui"
	UpdatesPath = "/admin/api/updates"
)

// SetupRoutes registers the editor feature routes.
func SetupRoutes(
	router chi.Router,
	eng *engine.Engine,
	sessionStore sessions.Store,
	notify *notifier.Notifier,
	isDev bool,
) error {
	handlers := NewHandlers(eng, sessionStore, notify, isDev)

	router.Post(RPCPath, handlers.RPC)
	router.Get(PagePath, handlers.EditorPage)
	router.Get(UpdatesPath, handlers.Updates)

	return nil
}
