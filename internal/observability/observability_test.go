package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/riskibarqy/chefscore/internal/config"
	"github.com/riskibarqy/chefscore/internal/platform/logging"
)

func TestInitUptrace_Disabled(t *testing.T) {
	cases := []config.Config{
		{UptraceEnabled: false, ServiceName: "chefscore-api", AppEnv: config.EnvDev},
		{UptraceEnabled: true, UptraceDSN: "  ", ServiceName: "chefscore-api", AppEnv: config.EnvDev},
	}

	for _, cfg := range cases {
		shutdown, err := InitUptrace(cfg, logging.NewNop())
		if err != nil {
			t.Fatalf("init uptrace: %v", err)
		}
		if err := shutdown(context.Background()); err != nil {
			t.Fatalf("shutdown uptrace: %v", err)
		}
	}
}

func TestInitPyroscopeAndPprof_Disabled(t *testing.T) {
	stop, err := InitPyroscope(config.Config{}, logging.NewNop())
	if err != nil {
		t.Fatalf("init pyroscope: %v", err)
	}
	if err := stop(); err != nil {
		t.Fatalf("stop pyroscope: %v", err)
	}

	srv, err := StartPprofServer(config.Config{}, logging.NewNop())
	if err != nil || srv != nil {
		t.Fatalf("expected no pprof server when disabled, srv=%v err=%v", srv, err)
	}
	if err := StopPprofServer(nil, logging.NewNop(), 0); err != nil {
		t.Fatalf("stop nil pprof server: %v", err)
	}
}

func TestStartPprofServer_ServesIndex(t *testing.T) {
	srv, err := StartPprofServer(config.Config{PprofEnabled: true, PprofAddr: "127.0.0.1:0"}, logging.NewNop())
	if err != nil {
		t.Fatalf("start pprof: %v", err)
	}
	defer func() {
		if err := StopPprofServer(srv, logging.NewNop(), time.Second); err != nil {
			t.Fatalf("stop pprof: %v", err)
		}
	}()

	resp, err := http.Get("http://" + srv.Addr + "/debug/pprof/")
	if err != nil {
		t.Fatalf("get pprof index: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestPprofMux_NamedProfiles(t *testing.T) {
	mux := pprofMux()

	for _, name := range []string{"heap", "goroutine", "mutex"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, pprofPrefix+name+"?debug=1", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("profile %s: unexpected status %d", name, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, pprofPrefix+"heap", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected POST to be rejected, got %d", rec.Code)
	}
}

func TestPprofMux_SymbolAcceptsGetAndPost(t *testing.T) {
	mux := pprofMux()

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(method, pprofPrefix+"symbol", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s symbol: unexpected status %d", method, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, pprofPrefix, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("index: unexpected status %d", rec.Code)
	}
}

func TestPyroscopeTags(t *testing.T) {
	cfg := config.Config{
		AppEnv:         config.EnvProd,
		ServiceName:    "chefscore-api",
		ServiceVersion: "1.2.0",
		StoreDriver:    config.StorePostgres,
		DataSource:     "https://cdn.example.com/chests",
	}

	tags := pyroscopeTags(cfg)
	if tags["source"] != "http" || tags["store"] != "postgres" || tags["version"] != "1.2.0" {
		t.Fatalf("unexpected tags: %+v", tags)
	}

	cfg.DataSource = "./data"
	if got := pyroscopeTags(cfg)["source"]; got != "file" {
		t.Fatalf("expected file source tag, got %q", got)
	}
}
