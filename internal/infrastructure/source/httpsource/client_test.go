package httpsource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/chefscore/internal/platform/logging"
	"github.com/riskibarqy/chefscore/internal/platform/resilience"
)

func newTestClient(t *testing.T, baseURL string, retries int, breaker resilience.CircuitBreakerConfig) *Client {
	t.Helper()

	client, err := New(Config{
		BaseURL:        baseURL,
		MaxRetries:     retries,
		RetryBackoff:   time.Millisecond,
		MaxBodyBytes:   64,
		Logger:         logging.NewNop(),
		CircuitBreaker: breaker,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestClient_FetchResolvesRelativeToBase(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/data_week_12.csv" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("PLAYER,SCORE\nAlice,100"))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL+"/data", 0, resilience.CircuitBreakerConfig{})
	body, err := client.Fetch(context.Background(), "data_week_12.csv")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(body) != "PLAYER,SCORE\nAlice,100" {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestClient_NotFoundIsNotRetried(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "missing", http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 3, resilience.CircuitBreakerConfig{Enabled: true, FailureThreshold: 1})
	_, err := client.Fetch(context.Background(), "w2.csv")

	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 status error, got %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected 1 request, got %d", hits.Load())
	}
	if client.breaker.State() != resilience.CircuitStateClosed {
		t.Fatalf("404 must not open the breaker, state=%s", client.breaker.State())
	}
}

func TestClient_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 2, resilience.CircuitBreakerConfig{})
	body, err := client.Fetch(context.Background(), "w1.csv")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(body) != "ok" || hits.Load() != 2 {
		t.Fatalf("expected success on second attempt, body=%q hits=%d", body, hits.Load())
	}
}

func TestClient_BreakerOpensOnTransientFailures(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	var transitions atomic.Int32
	client := newTestClient(t, srv.URL, 0, resilience.CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 2,
		OpenTimeout:      time.Minute,
		HalfOpenMaxReq:   1,
		OnStateChange: func(from, to resilience.CircuitState) {
			if from == resilience.CircuitStateClosed && to == resilience.CircuitStateOpen {
				transitions.Add(1)
			}
		},
	})

	for i := 0; i < 2; i++ {
		if _, err := client.Fetch(context.Background(), "w1.csv"); err == nil {
			t.Fatalf("expected failure on attempt %d", i)
		}
	}
	_, err := client.Fetch(context.Background(), "w1.csv")
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("open breaker must not reach the origin, hits=%d", hits.Load())
	}
	if transitions.Load() != 1 {
		t.Fatalf("expected one closed->open transition, got %d", transitions.Load())
	}
	if got := client.breaker.Counts().Rejected; got != 1 {
		t.Fatalf("expected one rejected call, got %d", got)
	}
}

func TestClient_SharedFetchSurvivesCancelledCaller(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	started := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		started <- struct{}{}
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte("PLAYER,SCORE\nAlice,1"))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 0, resilience.CircuitBreakerConfig{})

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := client.Fetch(firstCtx, "data_week_1.csv")
		firstErr <- err
	}()
	<-started

	secondBody := make(chan []byte, 1)
	secondErr := make(chan error, 1)
	go func() {
		body, err := client.Fetch(context.Background(), "data_week_1.csv")
		secondBody <- body
		secondErr <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled caller to stop waiting, got %v", err)
	}
	if err := <-secondErr; err != nil {
		t.Fatalf("live caller must still get the shared response: %v", err)
	}
	if body := <-secondBody; string(body) != "PLAYER,SCORE\nAlice,1" {
		t.Fatalf("unexpected body: %q", body)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected one origin request, got %d", got)
	}
}

func TestFetchBudget(t *testing.T) {
	t.Parallel()

	got := fetchBudget(time.Second, 100*time.Millisecond, 2)
	want := 3*time.Second + 100*time.Millisecond + 200*time.Millisecond
	if got != want {
		t.Fatalf("fetchBudget = %s, want %s", got, want)
	}
}

func TestClient_RejectsOversizedBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 65)))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, 0, resilience.CircuitBreakerConfig{})
	if _, err := client.Fetch(context.Background(), "big.csv"); err == nil {
		t.Fatalf("expected size limit error")
	}
}

func TestClient_RejectsAbsolutePaths(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, "http://example.test/data", 0, resilience.CircuitBreakerConfig{})
	for _, path := range []string{"", "  ", "http://evil.test/x.csv"} {
		if _, err := client.Fetch(context.Background(), path); err == nil {
			t.Fatalf("expected error for path %q", path)
		}
	}
}

func TestNew_InvalidURL(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "ftp://host/x", "not a url"} {
		if _, err := New(Config{BaseURL: raw}); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
