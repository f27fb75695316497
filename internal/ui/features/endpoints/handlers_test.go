package endpoints

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/dark/internal/fields"
	"github.com/leapstack-labs/dark/internal/graph"
	"github.com/leapstack-labs/dark/internal/testutil"
	"github.com/leapstack-labs/dark/internal/ui/features"
	"github.com/leapstack-labs/dark/pkg/core"
)

type recordingRunner struct {
	output  []byte
	err     error
	inputs  []map[string]string
	outputs []string
}

func (r *recordingRunner) RunOutput(_ context.Context, node graph.Node) ([]byte, error) {
	r.outputs = append(r.outputs, node.Name)
	return r.output, r.err
}

func (r *recordingRunner) RunInput(_ context.Context, node graph.Node, values map[string]string) error {
	r.inputs = append(r.inputs, values)
	return r.err
}

var testEndpoints = []Endpoint{
	{Name: "signup", Role: graph.RoleDatasource, Path: "/signup", Redirect: "/thanks"},
	{Name: "report", Role: graph.RoleDatasink, Path: "/report"},
}

func setupRouter(t *testing.T, runner Runner) (chi.Router, *features.TestFixture) {
	t.Helper()
	fixture := features.SetupTestFixture(t)
	r := chi.NewRouter()
	require.NoError(t, SetupRoutes(context.Background(), r, fixture.Engine, testEndpoints, runner, testutil.NewTestLogger(t)))
	return r, fixture
}

func TestSetupRoutes_RegistersNodes(t *testing.T) {
	_, fixture := setupRouter(t, nil)

	source, err := fixture.Engine.Node("signup")
	require.NoError(t, err)
	assert.True(t, source.IsDatasource())

	sink, err := fixture.Engine.Node("report")
	require.NoError(t, err)
	assert.True(t, sink.IsDatasink())
}

func TestSetupRoutes_RoleConflict(t *testing.T) {
	fixture := features.SetupTestFixture(t)
	_, err := fixture.Engine.Execute(context.Background(), core.Request{
		Command: "add_function_call",
		Args:    map[string]any{"name": "report", "x": 0.0, "y": 0.0},
	})
	require.NoError(t, err)

	err = SetupRoutes(context.Background(), chi.NewRouter(), fixture.Engine, testEndpoints, nil, nil)
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindDuplicateName))
}

func TestOutput(t *testing.T) {
	runner := &recordingRunner{output: []byte("<p>42 rows</p>")}
	r, _ := setupRouter(t, runner)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<p>42 rows</p>", rec.Body.String())
	assert.Equal(t, []string{"report"}, runner.outputs)
}

func TestInput(t *testing.T) {
	runner := &recordingRunner{}
	r, _ := setupRouter(t, runner)

	form := url.Values{"email": {"ann@example.com"}, "name": {"Ann"}}
	req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/thanks", rec.Header().Get("Location"))
	require.Len(t, runner.inputs, 1)
	assert.Equal(t, map[string]string{"email": "ann@example.com", "name": "Ann"}, runner.inputs[0])
}

func TestNopRunner_NotImplemented(t *testing.T) {
	r, _ := setupRouter(t, nil)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/report", nil),
		httptest.NewRequest(http.MethodPost, "/signup", nil),
	} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotImplemented, rec.Code, req.URL.Path)
	}
}

func TestRunnerFailure(t *testing.T) {
	fixture := features.SetupTestFixture(t)
	logger, logs := testutil.NewRecordingLogger()
	r := chi.NewRouter()
	require.NoError(t, SetupRoutes(context.Background(), r, fixture.Engine, testEndpoints,
		&recordingRunner{err: errors.New("upstream down")}, logger))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	assert.Equal(t, []string{"endpoint failed"}, logs.Messages(slog.LevelError))
	name, ok := logs.Attr("endpoint failed", "endpoint")
	require.True(t, ok)
	assert.Equal(t, "report", name)
}

func TestWrongMethod(t *testing.T) {
	r, _ := setupRouter(t, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/signup", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDatastoreRunner(t *testing.T) {
	fixture := features.SetupTestFixture(t)
	ctx := context.Background()
	for _, req := range []core.Request{
		{Command: "add_datastore", Args: map[string]any{"name": "users", "x": 0.0, "y": 0.0}},
		{Command: "add_datastore_field", Cursor: ptr("users"), Args: map[string]any{"name": "email", "type": "Email"}},
		{Command: "add_datastore_field", Cursor: ptr("users"), Args: map[string]any{"name": "age", "type": "Integer"}},
	} {
		_, err := fixture.Engine.Execute(ctx, req)
		require.NoError(t, err)
	}

	eps := []Endpoint{
		{Name: "signup", Role: graph.RoleDatasource, Path: "/signup", Redirect: "/thanks", Datastore: "users"},
		{Name: "roster", Role: graph.RoleDatasink, Path: "/roster", Datastore: "users"},
		{Name: "audit", Role: graph.RoleDatasink, Path: "/audit"},
	}
	r := chi.NewRouter()
	require.NoError(t, SetupRoutes(ctx, r, fixture.Engine, eps, NewDatastoreRunner(fixture.Engine, eps), testutil.NewTestLogger(t)))

	submit := func(form url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := submit(url.Values{"email": {"Ann <ann@example.com>"}, "age": {"36"}})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/thanks", rec.Header().Get("Location"))

	// A record may omit fields.
	require.Equal(t, http.StatusFound, submit(url.Values{"email": {"bob@example.com"}}).Code)

	t.Run("invalid submissions are rejected", func(t *testing.T) {
		for _, form := range []url.Values{
			{"email": {"x@example.com"}, "shoe_size": {"9"}},
			{"age": {"thirty"}},
		} {
			rec := submit(form)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"MalformedArgs"`)
		}
	})

	_, rows, err := fixture.Engine.Records("users")
	require.NoError(t, err)
	assert.Equal(t, []fields.Record{
		{"email": "ann@example.com", "age": int64(36)},
		{"email": "bob@example.com"},
	}, rows)

	stored, err := fixture.Store.Load(ctx)
	require.NoError(t, err)
	ds, err := stored.GetDatastore("users")
	require.NoError(t, err)
	assert.Len(t, ds.Records(), 2, "records are committed")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/roster", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<table class="records" data-datastore="users">`)
	assert.Contains(t, body, "<th>email</th><th>age</th>")
	assert.Contains(t, body, "<tr><td>ann@example.com</td><td>36</td></tr>")
	assert.Contains(t, body, "<tr><td>bob@example.com</td><td></td></tr>")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit", nil))
	assert.Equal(t, http.StatusNotImplemented, rec.Code, "endpoints without a datastore are not run")
}

func TestDatastoreRunner_TargetNotADatastore(t *testing.T) {
	fixture := features.SetupTestFixture(t)
	eps := []Endpoint{{Name: "roster", Role: graph.RoleDatasink, Path: "/roster", Datastore: "signup"}}
	r := chi.NewRouter()
	require.NoError(t, SetupRoutes(context.Background(), r, fixture.Engine, eps, NewDatastoreRunner(fixture.Engine, eps), nil))

	_, err := fixture.Engine.Execute(context.Background(), core.Request{
		Command: "add_function_call",
		Args:    map[string]any{"name": "signup", "x": 0.0, "y": 0.0},
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/roster", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"NotADatastore"`)
}

func ptr(s string) *string { return &s }
