package endpoints

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/dark/internal/engine"
	"github.com/leapstack-labs/dark/internal/graph"
)

// SetupRoutes registers a route per endpoint, creating missing endpoint
// nodes in the graph first.
func SetupRoutes(
	ctx context.Context,
	router chi.Router,
	eng *engine.Engine,
	endpoints []Endpoint,
	runner Runner,
	logger *slog.Logger,
) error {
	handlers := NewHandlers(eng, runner, logger)

	for _, ep := range endpoints {
		if err := eng.EnsureEndpoint(ctx, ep.Name, ep.Role); err != nil {
			return fmt.Errorf("endpoint %s: %w", ep.Name, err)
		}

		method := ep.Method
		switch ep.Role {
		case graph.RoleDatasink:
			if method == "" {
				method = http.MethodGet
			}
			router.Method(method, ep.Path, handlers.Output(ep))
		case graph.RoleDatasource:
			if method == "" {
				method = http.MethodPost
			}
			router.Method(method, ep.Path, handlers.Input(ep))
		default:
			return fmt.Errorf("endpoint %s: role %s cannot be routed", ep.Name, ep.Role)
		}
	}

	return nil
}
