package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sonic "github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/chefscore/internal/domain/history"
	"github.com/riskibarqy/chefscore/internal/domain/weekstats"
	"github.com/riskibarqy/chefscore/internal/infrastructure/repository/memory"
	basecache "github.com/riskibarqy/chefscore/internal/platform/cache"
	"github.com/riskibarqy/chefscore/internal/platform/id"
	"github.com/riskibarqy/chefscore/internal/platform/logging"
	"github.com/riskibarqy/chefscore/internal/usecase"
)

var errOriginDown = errors.New("origin down")

const (
	testManifest = `[{"week":"12","file":"data_week_12.csv","endDate":"2024-03-24"},{"week":"13","file":"data_week_13.csv","endDate":"2024-03-31"}]`
	testWeek12   = "PLAYER,TOTAL_SCORE,CHEST_COUNT,EPIC\nAlice,100,5,3\nBob,200,10,1"
	testWeek13   = "PLAYER,TOTAL_SCORE,CHEST_COUNT,EPIC\nAlice,150,6,2"
)

type mapSource struct {
	files map[string]string
	down  bool
}

func (s *mapSource) Fetch(_ context.Context, path string) ([]byte, error) {
	if s.down {
		return nil, errOriginDown
	}
	body, ok := s.files[path]
	if !ok {
		return nil, errors.New("missing " + path)
	}
	return []byte(body), nil
}

type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) Invalidate(context.Context) {
	c.calls++
}

func (c *countingInvalidator) Stats() basecache.Stats {
	return basecache.Stats{Entries: 2, Hits: 5, Misses: 2, Loads: 2}
}

type testAPI struct {
	router      http.Handler
	source      *mapSource
	invalidator *countingInvalidator
}

func newTestAPI(t *testing.T, files map[string]string) *testAPI {
	t.Helper()

	logger := logging.NewNop()
	source := &mapSource{files: files}
	catalog := usecase.NewCatalogService(source, usecase.DefaultManifestPath, logger)
	weeks := usecase.NewWeekService(source, catalog, logger)
	historyService := usecase.NewHistoryService(catalog, weeks, memory.NewSnapshotRepository(), id.Static("run-1"), usecase.HistoryConfig{MaxWorkers: 2}, logger)
	preferences := usecase.NewPreferenceService(memory.NewPreferenceRepository(), "en")
	invalidator := &countingInvalidator{}

	handler := NewHandler(catalog, weeks, historyService, preferences, invalidator, logger)
	return &testAPI{
		router:      NewRouter(handler, logger, true, []string{"*"}),
		source:      source,
		invalidator: invalidator,
	}
}

func defaultFiles() map[string]string {
	return map[string]string{
		"weeks.json":       testManifest,
		"data_week_12.csv": testWeek12,
		"data_week_13.csv": testWeek13,
	}
}

func (a *testAPI) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var env struct {
		APIVersion string `json:"apiVersion"`
		Data       T      `json:"data"`
	}
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	require.Equal(t, googleAPIVersion, env.APIVersion)
	return env.Data
}

func decodeReason(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var env googleResponseEnvelope
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	require.NotNil(t, env.Error)
	require.NotEmpty(t, env.Error.Errors)
	return env.Error.Errors[0].Reason
}

func TestHandler_Healthz(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, defaultFiles())
	rec := api.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeData[map[string]any](t, rec)
	assert.Equal(t, "ok", data["status"])
	cacheStats, ok := data["sourceCache"].(map[string]any)
	require.True(t, ok, "expected sourceCache stats")
	assert.Equal(t, float64(5), cacheStats["hits"])
}

func TestHandler_Weeks(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, defaultFiles())

	rec := api.do(t, http.MethodGet, "/v1/weeks", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	catalog := decodeData[catalogDTO](t, rec)
	require.Len(t, catalog.Weeks, 2)
	require.NotNil(t, catalog.Latest)
	assert.Equal(t, "13", catalog.Latest.Week)

	rec = api.do(t, http.MethodGet, "/v1/weeks/latest", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "data_week_13.csv", decodeData[weekDTO](t, rec).File)

	rec = api.do(t, http.MethodPost, "/v1/weeks/reload", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, api.invalidator.calls)
}

func TestHandler_WeekPlayers(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, defaultFiles())

	rec := api.do(t, http.MethodGet, "/v1/weeks/12/players", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	players := decodeData[weekPlayersDTO](t, rec)
	assert.Equal(t, "score", players.Sort)
	assert.Equal(t, "desc", players.Order)
	require.Len(t, players.Players, 2)
	assert.Equal(t, "Bob", players.Players[0].Name)

	rec = api.do(t, http.MethodGet, "/v1/weeks/12/players?sort=chests&order=asc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Alice", decodeData[weekPlayersDTO](t, rec).Players[0].Name)

	rec = api.do(t, http.MethodGet, "/v1/weeks/data_week_12.csv/players?sort=EPIC", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Alice", decodeData[weekPlayersDTO](t, rec).Players[0].Name)

	cases := []struct {
		name   string
		target string
		status int
		reason string
	}{
		{name: "unknown sort", target: "/v1/weeks/12/players?sort=LEGENDARY", status: http.StatusBadRequest, reason: "invalidInput"},
		{name: "invalid order", target: "/v1/weeks/12/players?order=sideways", status: http.StatusBadRequest, reason: "invalidInput"},
		{name: "unknown week", target: "/v1/weeks/99/players", status: http.StatusNotFound, reason: "notFound"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := api.do(t, http.MethodGet, tc.target, "")
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Equal(t, tc.reason, decodeReason(t, rec))
		})
	}
}

func TestHandler_WeekStats(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, defaultFiles())
	rec := api.do(t, http.MethodGet, "/v1/weeks/12/stats", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	summary := decodeData[weekstats.Summary](t, rec)
	assert.Equal(t, 2, summary.PlayerCount)
	assert.InDelta(t, 300, summary.TotalScore, 1e-9)
	assert.Equal(t, 15, summary.TotalChests)
	assert.InDelta(t, 150, summary.AverageScore, 1e-9)
	assert.InDelta(t, 7.5, summary.AverageChests, 1e-9)
	assert.Equal(t, weekstats.NoSource, summary.MostCommonSource.Name)
}

func TestHandler_History(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, defaultFiles())

	rec := api.do(t, http.MethodGet, "/v1/history", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "noData", decodeReason(t, rec))

	rec = api.do(t, http.MethodPost, "/v1/history/reload", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decodeData[reloadHistoryDTO](t, rec)
	assert.Equal(t, 2, result.LoadedCount)
	assert.False(t, result.NoData)

	rec = api.do(t, http.MethodGet, "/v1/history?order=desc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	ordered := decodeData[historyDTO](t, rec)
	require.Len(t, ordered.Weeks, 2)
	assert.Equal(t, "13", ordered.Weeks[0].WeekID)
	assert.Equal(t, "run-1", ordered.RunID)

	rec = api.do(t, http.MethodGet, "/v1/history/players/Bob", "")
	require.Equal(t, http.StatusOK, rec.Code)
	series := decodeData[history.Series](t, rec)
	require.Len(t, series.Points, 2)
	assert.True(t, series.Points[0].HasData)
	assert.False(t, series.Points[1].HasData)

	rec = api.do(t, http.MethodGet, "/v1/history/players/Nobody", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "notFound", decodeReason(t, rec))

	rec = api.do(t, http.MethodGet, "/v1/history/top", "")
	require.Equal(t, http.StatusOK, rec.Code)
	top := decodeData[topPlayersDTO](t, rec)
	assert.Equal(t, usecase.DefaultTopPlayers, top.Limit)
	require.Len(t, top.Players, 2)
	assert.Equal(t, "Alice", top.Players[0].Name)

	for _, target := range []string{"/v1/history/top?limit=0", "/v1/history/top?limit=51", "/v1/history/top?limit=abc"} {
		rec = api.do(t, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}

	rec = api.do(t, http.MethodGet, "/v1/history/snapshot", "")
	require.Equal(t, http.StatusOK, rec.Code)
	snapshot := decodeData[history.Snapshot](t, rec)
	assert.Equal(t, "run-1", snapshot.RunID)
	assert.Len(t, snapshot.Weeks, 2)
}

func TestHandler_HistoryReloadWithoutWeeks(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, map[string]string{"weeks.json": "[]"})
	rec := api.do(t, http.MethodPost, "/v1/history/reload", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decodeData[reloadHistoryDTO](t, rec).NoData)

	rec = api.do(t, http.MethodGet, "/v1/history/snapshot", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "noData", decodeReason(t, rec))
}

func TestHandler_SourceFailures(t *testing.T) {
	t.Parallel()

	t.Run("malformed manifest", func(t *testing.T) {
		t.Parallel()

		api := newTestAPI(t, map[string]string{"weeks.json": "{not json"})
		rec := api.do(t, http.MethodGet, "/v1/weeks", "")
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
		assert.Equal(t, "malformedData", decodeReason(t, rec))
	})

	t.Run("origin down", func(t *testing.T) {
		t.Parallel()

		api := newTestAPI(t, defaultFiles())
		api.source.down = true
		rec := api.do(t, http.MethodGet, "/v1/weeks", "")
		require.Equal(t, http.StatusServiceUnavailable, rec.Code, rec.Body.String())
		assert.Equal(t, "resourceUnavailable", decodeReason(t, rec))
	})
}

func TestHandler_Preferences(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, defaultFiles())

	rec := api.do(t, http.MethodGet, "/v1/preferences/language", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "en", decodeData[preferenceDTO](t, rec).Value)

	rec = api.do(t, http.MethodPut, "/v1/preferences/language", `{"value":"DE"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeData[preferenceDTO](t, rec)
	assert.Equal(t, "de", updated.Value)
	assert.NotEmpty(t, updated.UpdatedAt)

	rec = api.do(t, http.MethodGet, "/v1/preferences", "")
	require.Equal(t, http.StatusOK, rec.Code)
	items := decodeData[[]preferenceDTO](t, rec)
	require.NotEmpty(t, items)

	cases := []struct {
		name   string
		method string
		target string
		body   string
		status int
	}{
		{name: "unsupported language", method: http.MethodPut, target: "/v1/preferences/language", body: `{"value":"fr"}`, status: http.StatusBadRequest},
		{name: "unknown field", method: http.MethodPut, target: "/v1/preferences/language", body: `{"value":"en","extra":1}`, status: http.StatusBadRequest},
		{name: "invalid json", method: http.MethodPut, target: "/v1/preferences/language", body: `{`, status: http.StatusBadRequest},
		{name: "unknown key", method: http.MethodGet, target: "/v1/preferences/theme", status: http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := api.do(t, tc.method, tc.target, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
}

func TestHandler_OpenAPI(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, defaultFiles())
	rec := api.do(t, http.MethodGet, "/openapi.yaml", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/v1/history/top")

	rec = api.do(t, http.MethodGet, "/docs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>ChefScore Chest Analyzer API</title>")
	assert.Contains(t, rec.Body.String(), "swagger-ui-dist@5/swagger-ui-bundle.js")
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}
