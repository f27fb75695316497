package snapshots

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/dark/internal/state"
	"github.com/leapstack-labs/dark/internal/ui/features"
	"github.com/leapstack-labs/dark/pkg/core"
)

func setupRouter(t *testing.T) (chi.Router, *features.TestFixture) {
	t.Helper()
	fixture := features.SetupTestFixture(t)
	r := chi.NewRouter()
	SetupRoutes(r, fixture.Engine)
	return r, fixture
}

func get(t *testing.T, r http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestList_Empty(t *testing.T) {
	r, _ := setupRouter(t)

	rec := get(t, r, ListPath)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestList_NewestFirstWithLimit(t *testing.T) {
	r, fixture := setupRouter(t)

	for _, name := range []string{"a", "b", "c"} {
		_, err := fixture.Engine.Execute(context.Background(), core.Request{
			Command: "add_function_call",
			Args:    map[string]any{"name": name, "x": 0.0, "y": 0.0},
		})
		require.NoError(t, err)
	}

	rec := get(t, r, ListPath)
	require.Equal(t, http.StatusOK, rec.Code)
	var snaps []state.SnapshotInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snaps))
	require.Len(t, snaps, 3)
	assert.Equal(t, 3, snaps[0].Nodes)

	rec = get(t, r, ListPath+"?limit=2")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snaps))
	require.Len(t, snaps, 2)
	assert.Equal(t, 3, snaps[0].Nodes)
	assert.Equal(t, 2, snaps[1].Nodes)
}

func TestList_BadLimit(t *testing.T) {
	r, _ := setupRouter(t)

	for _, limit := range []string{"0", "-1", "many"} {
		rec := get(t, r, ListPath+"?limit="+limit)
		assert.Equal(t, http.StatusBadRequest, rec.Code, limit)
		assert.Contains(t, rec.Body.String(), string(core.KindMalformedArgs))
	}
}
