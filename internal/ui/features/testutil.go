// Package features provides shared test utilities for UI feature tests.
package features

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/dark/internal/engine"
	"github.com/leapstack-labs/dark/internal/state"
	"github.com/leapstack-labs/dark/internal/testutil"
	"github.com/leapstack-labs/dark/internal/ui/notifier"
)

// TestFixture holds all dependencies needed for UI handler tests.
type TestFixture struct {
	Store        state.Store
	Engine       *engine.Engine
	Notifier     *notifier.Notifier
	SessionStore *sessions.CookieStore
}

// SetupTestFixture creates an engine over an in-memory SQLite store whose
// commits ping the fixture's notifier.
func SetupTestFixture(t *testing.T) *TestFixture {
	t.Helper()

	logger := testutil.NewTestLogger(t)

	store, err := state.Open(context.Background(), state.Config{
		Driver: state.DriverSQLite,
		DSN:    ":memory:",
		Logger: logger,
	})
	require.NoError(t, err)

	notify := notifier.New()
	eng, err := engine.New(context.Background(), engine.Config{
		Store:    store,
		Logger:   logger,
		OnCommit: func(engine.Commit) { notify.Broadcast() },
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = eng.Close()
	})

	return &TestFixture{
		Store:        store,
		Engine:       eng,
		Notifier:     notify,
		SessionStore: NewTestSessionStore(),
	}
}

// RequestWithTimeout wraps a request with a context timeout.
func RequestWithTimeout(r *http.Request, timeout time.Duration) *http.Request {
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	_ = cancel // the timeout cancels the context
	return r.WithContext(ctx)
}

// NewTestSessionStore creates a session store for testing.
func NewTestSessionStore() *sessions.CookieStore {
	return sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!"))
}
