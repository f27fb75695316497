package endpoints

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/leapstack-labs/dark/internal/engine"
	"github.com/leapstack-labs/dark/internal/graph"
	"github.com/leapstack-labs/dark/internal/ui/features/common"
	"github.com/leapstack-labs/dark/pkg/core"
)

// Endpoint binds a datasource or datasink node to a route.
type Endpoint struct {
	Name   string
	Role   graph.Role
	Method string
	Path   string
	// Redirect is where a datasource sends the browser after a submit.
	Redirect string
	// Datastore is read or written by DatastoreRunner.
	Datastore string
}

// Handlers provides HTTP handlers for endpoint nodes.
type Handlers struct {
	engine *engine.Engine
	runner Runner
	logger *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(eng *engine.Engine, runner Runner, logger *slog.Logger) *Handlers {
	if runner == nil {
		runner = NopRunner{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{engine: eng, runner: runner, logger: logger}
}

// Output serves a datasink by running it.
func (h *Handlers) Output(ep Endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		node, err := h.engine.Node(ep.Name)
		if err != nil {
			common.WriteError(w, err)
			return
		}

		body, err := h.runner.RunOutput(r.Context(), node)
		if err != nil {
			h.fail(w, ep, err)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(body)
	}
}

// Input feeds a form submission into a datasource, then redirects.
func (h *Handlers) Input(ep Endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		node, err := h.engine.Node(ep.Name)
		if err != nil {
			common.WriteError(w, err)
			return
		}

		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		values := make(map[string]string, len(r.Form))
		for k := range r.Form {
			values[k] = r.Form.Get(k)
		}

		if err := h.runner.RunInput(r.Context(), node, values); err != nil {
			h.fail(w, ep, err)
			return
		}

		redirect := ep.Redirect
		if redirect == "" {
			redirect = "/"
		}
		http.Redirect(w, r, redirect, http.StatusFound)
	}
}

func (h *Handlers) fail(w http.ResponseWriter, ep Endpoint, err error) {
	if errors.Is(err, ErrNotImplemented) {
		http.Error(w, err.Error(), http.StatusNotImplemented)
		return
	}
	h.logger.Error("endpoint failed", slog.String("endpoint", ep.Name), slog.String("error", err.Error()))
	var domainErr *core.Error
	if errors.As(err, &domainErr) {
		common.WriteError(w, err)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
