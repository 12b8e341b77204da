package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// envReader reads typed values from the environment and collects every problem so
// Load can report them together.
type envReader struct {
	lookup func(string) string
	errs   []error
}

func newEnvReader() *envReader {
	return &envReader{lookup: os.Getenv}
}

func (r *envReader) fail(format string, args ...any) {
	r.errs = append(r.errs, fmt.Errorf(format, args...))
}

func (r *envReader) err() error {
	return errors.Join(r.errs...)
}

// raw returns the trimmed value, or fallback when unset or blank.
func (r *envReader) raw(key, fallback string) string {
	if value := strings.TrimSpace(r.lookup(key)); value != "" {
		return value
	}
	return fallback
}

func (r *envReader) str(key, fallback string) string {
	return r.raw(key, fallback)
}

func (r *envReader) lower(key, fallback string) string {
	return strings.ToLower(r.raw(key, fallback))
}

func (r *envReader) oneOf(key, fallback string, allowed ...string) string {
	value := r.lower(key, fallback)
	if !slices.Contains(allowed, value) {
		r.fail("invalid %s %q: valid values are %s", key, value, strings.Join(allowed, ", "))
		return fallback
	}
	return value
}

func (r *envReader) boolean(key string, fallback bool) bool {
	value := r.raw(key, "")
	if value == "" {
		return fallback
	}
	out, err := strconv.ParseBool(value)
	if err != nil {
		r.fail("parse %s: %w", key, err)
		return fallback
	}
	return out
}

// duration parses a positive duration.
func (r *envReader) duration(key string, fallback time.Duration) time.Duration {
	value := r.raw(key, "")
	if value == "" {
		return fallback
	}
	out, err := time.ParseDuration(value)
	if err != nil {
		r.fail("parse %s: %w", key, err)
		return fallback
	}
	if out <= 0 {
		r.fail("%s must be > 0", key)
		return fallback
	}
	return out
}

// intBetween parses an int within [lo, hi].
func (r *envReader) intBetween(key string, fallback, lo, hi int) int {
	value := r.raw(key, "")
	if value == "" {
		return fallback
	}
	out, err := strconv.Atoi(value)
	if err != nil {
		r.fail("parse %s: %w", key, err)
		return fallback
	}
	if out < lo || out > hi {
		r.fail("%s must be between %d and %d", key, lo, hi)
		return fallback
	}
	return out
}

func (r *envReader) list(key, fallback string) []string {
	parts := strings.Split(r.raw(key, fallback), ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if item := strings.TrimSpace(part); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// require records an error when value is empty while the feature that needs it is on.
func (r *envReader) require(enabled bool, value, key, flag string) {
	if enabled && value == "" {
		r.fail("%s is required when %s=true", key, flag)
	}
}

// uptraceDSNFromOTLPHeaders pulls uptrace-dsn out of an OTLP headers list such as
// "uptrace-dsn=https://token@api.uptrace.dev/1,foo=bar".
func uptraceDSNFromOTLPHeaders(raw string) string {
	for _, item := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(item), "=")
		if ok && strings.EqualFold(strings.TrimSpace(key), "uptrace-dsn") {
			return strings.Trim(strings.TrimSpace(value), "\"'")
		}
	}
	return ""
}
