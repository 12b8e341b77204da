package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/chefscore/internal/config"
	"github.com/riskibarqy/chefscore/internal/infrastructure/source/cachedsource"
	"github.com/riskibarqy/chefscore/internal/platform/logging"
)

func writeDataDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	files := map[string]string{
		"weeks.json":      `[{"week":"1","file":"data_week_1.csv"},{"week":"2","file":"data_week_2.csv"}]`,
		"data_week_1.csv": "PLAYER,TOTAL_SCORE,CHEST_COUNT,EPIC\nAlice,10,2,1\nBob,5,1,0\n",
		"data_week_2.csv": "PLAYER,TOTAL_SCORE,CHEST_COUNT,EPIC\nAlice,20,4,2\n",
	}
	for name, body := range files {
		full := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(body), 0o644))
	}
	return dir
}

func testConfig(dataDir string) config.Config {
	return config.Config{
		AppEnv:             config.EnvDev,
		HTTPAddr:           ":0",
		ReadTimeout:        time.Second,
		WriteTimeout:       time.Second,
		DataSource:         dataDir,
		ManifestPath:       "weeks.json",
		SourceMaxBodyBytes: 1 << 20,
		HistoryMaxWorkers:  2,
		CacheEnabled:       true,
		CacheTTL:           time.Minute,
		StoreDriver:        config.StoreMemory,
		DefaultLanguage:    "en",
	}
}

func TestNewSource(t *testing.T) {
	dir := writeDataDir(t)

	t.Run("cached local source", func(t *testing.T) {
		src, invalidator, err := NewSource(testConfig(dir), logging.NewNop())
		require.NoError(t, err)
		require.NotNil(t, invalidator)
		assert.IsType(t, &cachedsource.Source{}, src)
	})

	t.Run("uncached", func(t *testing.T) {
		cfg := testConfig(dir)
		cfg.CacheEnabled = false
		_, invalidator, err := NewSource(cfg, logging.NewNop())
		require.NoError(t, err)
		assert.Nil(t, invalidator)
	})

	t.Run("invalid remote url", func(t *testing.T) {
		cfg := testConfig(dir)
		cfg.DataSource = "https://"
		_, _, err := NewSource(cfg, logging.NewNop())
		require.Error(t, err)
	})
}

func TestNewServices_WarmupAndServe(t *testing.T) {
	cfg := testConfig(writeDataDir(t))
	logger := logging.NewNop()

	svc, cleanup, err := NewServices(cfg, logger)
	require.NoError(t, err)
	defer cleanup()
	require.NotNil(t, svc.Invalidator)

	Warmup(context.Background(), svc, logger)
	assert.True(t, svc.Catalog.Loaded())
	assert.Equal(t, uint64(1), svc.History.Generation())
	assert.Len(t, svc.History.Collection().Weeks, 2)

	srv, err := NewHTTPServer(cfg, svc, logger)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/weeks/latest", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"week":"2"`), rec.Body.String())
}

func TestNewHTTPServer_RequiresAddr(t *testing.T) {
	cfg := testConfig(writeDataDir(t))
	svc, cleanup, err := NewServices(cfg, logging.NewNop())
	require.NoError(t, err)
	defer cleanup()

	cfg.HTTPAddr = ""
	_, err = NewHTTPServer(cfg, svc, logging.NewNop())
	require.Error(t, err)
}
