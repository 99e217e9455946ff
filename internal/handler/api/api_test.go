package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concretesite/designstore/internal/design"
	"github.com/concretesite/designstore/internal/kv"
	"github.com/concretesite/designstore/internal/logging"
	"github.com/concretesite/designstore/internal/middleware"
	"github.com/concretesite/designstore/internal/migration"
	"github.com/concretesite/designstore/internal/model"
	"github.com/concretesite/designstore/internal/testutil"
	"github.com/concretesite/designstore/internal/version"
)

type testAPI struct {
	router http.Handler
	store  *design.Store
	mem    *kv.MemoryStore
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	mem := kv.NewMemoryStore(0)
	t.Cleanup(func() { _ = mem.Close() })

	logger := testutil.TestLoggerSilent()
	store := design.NewStore(mem, design.Options{Logger: logger})
	engine := migration.NewEngine(store, migration.Options{Logger: logger})
	h := NewHandler(Config{
		Store:   store,
		Engine:  engine,
		Backend: kv.TypeMemory,
		Version: version.Info{Version: "v0.0.1"},
		Logger:  logger,
	})

	r := chi.NewRouter()
	r.Get("/api/v1/status", h.Status)
	r.Route("/api/v1/design", func(r chi.Router) {
		r.Use(middleware.Author)
		h.Routes(r, nil)
	})
	return &testAPI{router: r, store: store, mem: mem}
}

func (a *testAPI) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var resp struct {
		Data T     `json:"data"`
		Meta *Meta `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Data
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Error
}

func TestStatus(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(t, http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	st := decodeData[StatusResponse](t, w)
	assert.Equal(t, "ok", st.Status)
	assert.Equal(t, model.CurrentSchemaVersion, st.SchemaVersion)
	assert.Equal(t, "v0.0.1", st.Build.Version)
}

func TestGetSettings_FreshInstall(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(t, http.MethodGet, "/api/v1/design/settings", "")
	require.Equal(t, http.StatusOK, w.Code)

	doc := decodeData[model.SettingsDocument](t, w)
	assert.Equal(t, model.CurrentSchemaVersion, doc.Version)
	assert.Len(t, doc.Sections, len(model.SectionIDs))
}

func TestPutSettings(t *testing.T) {
	a := newTestAPI(t)
	ctx := context.Background()

	w := a.do(t, http.MethodPut, "/api/v1/design/settings",
		`{"productCards":{"borderRadius":"2rem"}}`, middleware.HeaderAuthor, "editor")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "2rem", a.store.Load(ctx).ProductCards.BorderRadius)

	entries, err := a.store.History().List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "editor", entries[0].Author)
	assert.Equal(t, DescriptionUpdate, entries[0].Description)
}

func TestPutSettings_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"empty body", "", http.StatusBadRequest},
		{"malformed json", "{", http.StatusBadRequest},
		{"invalid enum", `{"sections":{"hero":{"background":{"type":"pattern","value":"x"}}}}`, http.StatusUnprocessableEntity},
		{"invalid color", `{"sections":{"hero":{"colors":{"accent":{"value":"\"#ff0000\""}}}}}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAPI(t)
			w := a.do(t, http.MethodPut, "/api/v1/design/settings", tt.body)
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())

			_, err := a.store.LoadRaw(context.Background())
			assert.ErrorIs(t, err, design.ErrNoDocument, "rejected write must not be stored")
		})
	}
}

func TestPatchSettings(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(t, http.MethodPatch, "/api/v1/design/settings",
		`{"path":"sections.hero.colors.accent.value","value":"#ff0000"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	doc := decodeData[model.SettingsDocument](t, w)
	assert.Equal(t, "#ff0000", doc.Sections[model.SectionHero].Colors.Accent.Value)

	w = a.do(t, http.MethodPatch, "/api/v1/design/settings", `{"path":"version","value":"9"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodPatch, "/api/v1/design/settings", `{"path":"sections.hero"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// A double-encoded string is not a color.
	w = a.do(t, http.MethodPatch, "/api/v1/design/settings",
		`{"path":"sections.hero.colors.accent.value","value":"\"#00ff00\""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Equal(t, "#ff0000", a.store.Load(context.Background()).Sections[model.SectionHero].Colors.Accent.Value)
}

func TestExportImport(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(t, http.MethodPatch, "/api/v1/design/settings",
		`{"path":"productCards.padding","value":"3rem"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = a.do(t, http.MethodGet, "/api/v1/design/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	exported := w.Body.String()
	assert.Contains(t, exported, "\n  \"version\"")

	b := newTestAPI(t)
	w = b.do(t, http.MethodPost, "/api/v1/design/import", exported)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "3rem", b.store.Load(context.Background()).ProductCards.Padding)

	w = b.do(t, http.MethodPost, "/api/v1/design/import", `{"sections":{}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decodeError(t, w).Message, "missing required fields: version, productCards")
}

func TestHistoryRollbackAndCompare(t *testing.T) {
	a := newTestAPI(t)

	for _, color := range []string{"#111111", "#222222"} {
		w := a.do(t, http.MethodPatch, "/api/v1/design/settings",
			`{"path":"sections.about.colors.text.value","value":"`+color+`"}`)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := a.do(t, http.MethodGet, "/api/v1/design/history?limit=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	entries := decodeData[[]model.HistoryEntry](t, w)
	require.Len(t, entries, 2)
	first := entries[1]

	w = a.do(t, http.MethodGet, "/api/v1/design/history/"+first.ID, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = a.do(t, http.MethodGet, "/api/v1/design/compare?a="+first.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	cmp := decodeData[design.Comparison](t, w)
	var paths []string
	for _, d := range cmp.Differences {
		paths = append(paths, d.Path)
	}
	assert.Contains(t, paths, "sections.about.colors.text.value")

	w = a.do(t, http.MethodPost, "/api/v1/design/history/"+first.ID+"/rollback", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "#111111", a.store.Load(context.Background()).Sections[model.SectionAbout].Colors.Text.Value)

	w = a.do(t, http.MethodGet, "/api/v1/design/history", "")
	assert.Len(t, decodeData[[]model.HistoryEntry](t, w), 3)
}

func TestHistory_NotFoundAndBadLimit(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(t, http.MethodPost, "/api/v1/design/history/1700000000000-deadbeef/rollback", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeError(t, w).Code)

	w = a.do(t, http.MethodGet, "/api/v1/design/history?limit=-3", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodGet, "/api/v1/design/compare", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Once the history index exists its key must not be readable as an entry.
	w = a.do(t, http.MethodPatch, "/api/v1/design/settings", `{"path":"productCards.padding","value":"2rem"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/design/history/entries"},
		{http.MethodPost, "/api/v1/design/history/entries/rollback"},
		{http.MethodGet, "/api/v1/design/compare?a=entries"},
	} {
		w = a.do(t, tc.method, tc.path, "")
		assert.Equal(t, http.StatusNotFound, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestMigrationEndpoints(t *testing.T) {
	a := newTestAPI(t)
	ctx := context.Background()
	require.NoError(t, a.mem.Set(ctx, design.KeyCurrent,
		[]byte(`{"sections":{"hero":{"backgroundColor":"#112233"}}}`), 0))

	w := a.do(t, http.MethodGet, "/api/v1/design/migration", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeData[migration.Status](t, w).NeedsMigration)

	w = a.do(t, http.MethodPost, "/api/v1/design/migration", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decodeData[migration.Result](t, w)
	require.True(t, res.Success)

	w = a.do(t, http.MethodGet, "/api/v1/design/backups", "")
	require.Equal(t, http.StatusOK, w.Code)
	backups := decodeData[[]model.Backup](t, w)
	require.Len(t, backups, 1)

	w = a.do(t, http.MethodPost, "/api/v1/design/backups/"+backups[0].ID+"/restore", "")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(t, http.MethodPost, "/api/v1/design/backups/missing/restore", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMigrate_FailureAnswers500(t *testing.T) {
	a := newTestAPI(t)
	require.NoError(t, a.mem.Set(context.Background(), design.KeyCurrent, []byte(`{"version":"9.0.0"}`), 0))

	w := a.do(t, http.MethodPost, "/api/v1/design/migration", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, decodeData[migration.Result](t, w).Success)
}

func TestListEvents(t *testing.T) {
	a := newTestAPI(t)

	logger := slog.New(logging.NewEventLogHandler(slog.NewTextHandler(&strings.Builder{}, nil), a.mem))
	logger.Warn("failed to record design settings history")

	w := a.do(t, http.MethodGet, "/api/v1/design/events", "")
	require.Equal(t, http.StatusOK, w.Code)
	events := decodeData[[]model.Event](t, w)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventCategoryHistory, events[0].Category)
}

func TestRoutes_MutateMiddlewareOnlyOnWrites(t *testing.T) {
	mem := kv.NewMemoryStore(0)
	t.Cleanup(func() { _ = mem.Close() })
	store := design.NewStore(mem, design.Options{Logger: testutil.TestLoggerSilent()})
	h := NewHandler(Config{Store: store, Engine: migration.NewEngine(store, migration.Options{})})

	blocked := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})
	}
	r := chi.NewRouter()
	h.Routes(r, blocked)

	for _, tc := range []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/settings", http.StatusOK},
		{http.MethodPut, "/settings", http.StatusTeapot},
		{http.MethodPost, "/migration", http.StatusTeapot},
		{http.MethodGet, "/backups", http.StatusOK},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, tc.want, w.Code, "%s %s", tc.method, tc.path)
	}
}
