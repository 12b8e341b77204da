package httpsource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"

	"github.com/riskibarqy/chefscore/internal/platform/logging"
	"github.com/riskibarqy/chefscore/internal/platform/resilience"
)

const (
	defaultTimeout      = 15 * time.Second
	defaultMaxBodyBytes = 8 << 20
	maxErrorBodyPreview = 256
)

var errTransient = crerr.New("week source transient failure")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Path string
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("week source status=%d path=%s", e.Code, e.Path)
	}
	return fmt.Sprintf("week source status=%d path=%s body=%s", e.Code, e.Path, e.Body)
}

type Config struct {
	HTTPClient     *http.Client
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	MaxBodyBytes   int64
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client fetches week files over HTTP relative to a base URL.
type Client struct {
	httpClient   *http.Client
	baseURL      *url.URL
	maxRetries   int
	retryBackoff time.Duration
	maxBodyBytes int64
	logger       *logging.Logger
	breaker      *resilience.CircuitBreaker
	flight       singleflight.Group
	fetchBudget  time.Duration
}

func New(cfg Config) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	raw := strings.TrimSpace(cfg.BaseURL)
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	base, err := url.Parse(raw)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("invalid week source url %q", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = defaultTimeout
	}

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}

	return &Client{
		httpClient:   httpClient,
		baseURL:      base,
		maxRetries:   retries,
		retryBackoff: cfg.RetryBackoff,
		maxBodyBytes: maxBody,
		logger:       logger,
		breaker:      resilience.NewCircuitBreaker(breakerConfig(cfg.CircuitBreaker, base.Host, logger)),
		fetchBudget:  fetchBudget(httpClient.Timeout, cfg.RetryBackoff, retries),
	}, nil
}

// fetchBudget is the longest a fetch can take: every attempt timing out plus every
// backoff. It bounds the shared request, which no single caller can cancel.
func fetchBudget(timeout, backoff time.Duration, retries int) time.Duration {
	budget := timeout * time.Duration(retries+1)
	for attempt := 0; attempt < retries; attempt++ {
		budget += resilience.RetryBackoff(backoff, attempt)
	}
	return budget
}

// breakerConfig logs every state change of the origin's breaker, then chains to any
// caller supplied hook.
func breakerConfig(cfg resilience.CircuitBreakerConfig, host string, logger *logging.Logger) resilience.CircuitBreakerConfig {
	cfg = resilience.NormalizeCircuitBreakerConfig(cfg)
	next := cfg.OnStateChange
	cfg.OnStateChange = func(from, to resilience.CircuitState) {
		if to == resilience.CircuitStateOpen {
			logger.Warn("week source circuit opened", "host", host, "from", from)
		} else {
			logger.Info("week source circuit state changed", "host", host, "from", from, "to", to)
		}
		if next != nil {
			next(from, to)
		}
	}
	return cfg
}

// Fetch GETs path relative to the base URL. Concurrent fetches of one path share a request.
// The shared request outlives any one caller; a cancelled caller stops waiting for it.
func (c *Client) Fetch(ctx context.Context, path string) ([]byte, error) {
	target, err := c.resolve(path)
	if err != nil {
		return nil, err
	}

	results := c.flight.DoChan(target, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchBudget)
		defer cancel()

		var body []byte
		execErr := c.breaker.Execute(func() error {
			raw, reqErr := c.executeRequest(fetchCtx, target, path)
			body = raw
			return reqErr
		}, isCircuitFailure)
		return body, execErr
	})

	var out any
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-results:
		out, err = res.Val, res.Err
	}
	if err != nil {
		if crerr.Is(err, resilience.ErrCircuitOpen) {
			counts := c.breaker.Counts()
			c.logger.WarnContext(ctx, "week source circuit breaker rejected request",
				"path", path,
				"state", counts.State,
				"rejected", counts.Rejected,
			)
		}
		return nil, err
	}

	raw, ok := out.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected week source payload type %T", out)
	}
	return append([]byte(nil), raw...), nil
}

func (c *Client) resolve(path string) (string, error) {
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	if path == "" {
		return "", fmt.Errorf("week source path is required")
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid week source path %q: %w", path, err)
	}
	if ref.IsAbs() || ref.Host != "" {
		return "", fmt.Errorf("week source path %q must be relative", path)
	}
	return c.baseURL.ResolveReference(ref).String(), nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL, path string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		raw, err := c.do(ctx, fullURL, path)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !crerr.Is(err, errTransient) || attempt == c.maxRetries {
			break
		}

		timer := time.NewTimer(resilience.RetryBackoff(c.retryBackoff, attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	c.logger.WarnContext(ctx, "week source request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, fullURL, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("accept", "text/csv, application/json;q=0.9, */*;q=0.5")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, crerr.Mark(crerr.Wrap(err, "send request"), errTransient)
	}
	defer resp.Body.Close()

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	n, err := buf.ReadFrom(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return nil, crerr.Mark(crerr.Wrap(err, "read response body"), errTransient)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{Code: resp.StatusCode, Path: path, Body: preview(buf.B)}
		if isRetryableStatus(resp.StatusCode) {
			return nil, crerr.Mark(statusErr, errTransient)
		}
		return nil, statusErr
	}
	if n > c.maxBodyBytes {
		return nil, fmt.Errorf("week source body for %s exceeds %d bytes", path, c.maxBodyBytes)
	}

	return append([]byte(nil), buf.B...), nil
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// Only transient failures count against the breaker; a 404 is the origin answering.
func isCircuitFailure(err error) bool {
	return crerr.Is(err, errTransient)
}

func preview(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBodyPreview {
		return text[:maxErrorBodyPreview] + "..."
	}
	return text
}
