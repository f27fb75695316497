// Package snapshots serves the stored snapshot history.
package snapshots

import (
	"net/http"
	"strconv"

	"github.com/leapstack-labs/dark/internal/engine"
	"github.com/leapstack-labs/dark/internal/state"
	"github.com/leapstack-labs/dark/internal/ui/features/common"
	"github.com/leapstack-labs/dark/pkg/core"
)

// Handlers provides HTTP handlers for the snapshots feature.
type Handlers struct {
	engine *engine.Engine
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(eng *engine.Engine) *Handlers {
	return &Handlers{engine: eng}
}

// List returns snapshots newest first. ?limit=N truncates the list.
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			common.WriteError(w, core.Errorf(core.KindMalformedArgs, "limit must be a positive integer, got %q", raw))
			return
		}
		limit = n
	}

	snaps, err := h.engine.Snapshots(r.Context())
	if err != nil {
		common.WriteError(w, core.Wrap(core.KindPersistenceError, err, "list snapshots"))
		return
	}
	if snaps == nil {
		snaps = []state.SnapshotInfo{}
	}
	if limit > 0 && len(snaps) > limit {
		snaps = snaps[:limit]
	}

	common.WriteJSON(w, http.StatusOK, snaps)
}
