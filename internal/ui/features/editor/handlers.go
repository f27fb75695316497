// Package editor serves the graph editor: the RPC endpoint, the editor
// page, and its live update stream.
package editor

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/dark/internal/engine"
	"github.com/leapstack-labs/dark/internal/ui/features/common"
	"github.com/leapstack-labs/dark/internal/ui/notifier"
	"github.com/leapstack-labs/dark/pkg/core"
)

const (
	sessionName = "dark-editor"
	cursorKey   = "cursor"

	// maxRequestBytes bounds an RPC body.
	maxRequestBytes = 1 << 20
)

// Handlers provides HTTP handlers for the editor feature.
type Handlers struct {
	engine       *engine.Engine
	sessionStore sessions.Store
	notifier     *notifier.Notifier
	isDev        bool
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(eng *engine.Engine, sessionStore sessions.Store, notify *notifier.Notifier, isDev bool) *Handlers {
	return &Handlers{
		engine:       eng,
		sessionStore: sessionStore,
		notifier:     notify,
		isDev:        isDev,
	}
}

// RPC decodes a command envelope, executes it and responds with the
// projected graph or an error payload.
func (h *Handlers) RPC(w http.ResponseWriter, r *http.Request) {
	var req core.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		common.WriteError(w, core.Wrap(core.KindMalformedArgs, err, "decode request"))
		return
	}

	view, err := h.engine.Execute(r.Context(), req)
	if err != nil {
		common.WriteError(w, err)
		return
	}

	if view.Cursor != nil {
		h.saveCursor(w, r, *view.Cursor)
	}
	common.WriteJSON(w, http.StatusOK, view)
}

// EditorPage renders the editor focused on the session's last cursor.
func (h *Handlers) EditorPage(w http.ResponseWriter, r *http.Request) {
	view := h.engine.View(h.cursor(r))

	kinds := h.engine.Fields().Kinds()
	types := make([]string, 0, len(kinds))
	for _, k := range kinds {
		types = append(types, k.Name)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := EditorPage("Editor", h.isDev, view, types).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Updates is the long-lived SSE endpoint for the editor page.
// Initial state is already rendered by EditorPage; only changes are sent.
func (h *Handlers) Updates(w http.ResponseWriter, r *http.Request) {
	cursor := h.cursor(r)
	sse := datastar.NewSSE(w, r)

	updates := h.notifier.Subscribe()
	defer h.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case rev, ok := <-updates:
			if !ok {
				return
			}
			if err := sse.PatchElementTempl(GraphState(h.engine.View(cursor))); err != nil {
				_ = sse.ConsoleError(fmt.Errorf("graph revision %d: %w", rev, err))
			}
		}
	}
}

func (h *Handlers) cursor(r *http.Request) string {
	session, err := h.sessionStore.Get(r, sessionName)
	if err != nil {
		return ""
	}
	c, _ := session.Values[cursorKey].(string)
	return c
}

func (h *Handlers) saveCursor(w http.ResponseWriter, r *http.Request, cursor string) {
	session, err := h.sessionStore.Get(r, sessionName)
	if err != nil && session == nil {
		return
	}
	session.Values[cursorKey] = cursor
	_ = session.Save(r, w)
}
