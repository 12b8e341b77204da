package observability

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/riskibarqy/chefscore/internal/config"
	"github.com/riskibarqy/chefscore/internal/platform/logging"
)

const pprofPrefix = "/debug/pprof/"

// namedProfiles are served through pprof.Handler so each shows up in the index.
var namedProfiles = []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"}

func pprofMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+pprofPrefix, pprof.Index)
	mux.HandleFunc("GET "+pprofPrefix+"cmdline", pprof.Cmdline)
	mux.HandleFunc("GET "+pprofPrefix+"profile", pprof.Profile)
	mux.HandleFunc("GET "+pprofPrefix+"symbol", pprof.Symbol)
	mux.HandleFunc("POST "+pprofPrefix+"symbol", pprof.Symbol)
	mux.HandleFunc("GET "+pprofPrefix+"trace", pprof.Trace)
	for _, name := range namedProfiles {
		mux.Handle("GET "+pprofPrefix+name, pprof.Handler(name))
	}
	return mux
}

// StartPprofServer serves the profiling endpoints on their own listener so they never
// share the API's middleware or address. Returns nil when profiling is disabled.
func StartPprofServer(cfg config.Config, logger *logging.Logger) (*http.Server, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if !cfg.PprofEnabled {
		logger.Info("pprof disabled", "reason", "PPROF_ENABLED=false")
		return nil, nil
	}

	listener, err := net.Listen("tcp", cfg.PprofAddr)
	if err != nil {
		return nil, fmt.Errorf("listen pprof addr %s: %w", cfg.PprofAddr, err)
	}

	srv := &http.Server{
		Addr:              listener.Addr().String(),
		Handler:           pprofMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("pprof server starting", "addr", srv.Addr, "profiles", namedProfiles)
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("pprof server failed", "error", err)
		}
	}()

	return srv, nil
}

func StopPprofServer(srv *http.Server, logger *logging.Logger, timeout time.Duration) error {
	if srv == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown pprof server: %w", err)
	}
	logger.Info("pprof server stopped", "addr", srv.Addr)
	return nil
}
