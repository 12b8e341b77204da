package app

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"go.opentelemetry.io/otel/attribute"

	"github.com/riskibarqy/chefscore/internal/config"
)

const (
	dbPingTimeout        = 5 * time.Second
	maxTracedQueryLength = 512
)

var queryWhitespace = regexp.MustCompile(`\s+`)

// DBURLOptions are the connection parameters added to DB_URL when absent.
type DBURLOptions struct {
	DisablePreparedBinaryResult bool
	ApplicationName             string
}

// NormalizeDBURL adds the optional lib/pq parameters to a URL style DSN. Explicit values
// in raw win, and key=value DSNs are returned unchanged.
func NormalizeDBURL(raw string, opts DBURLOptions) string {
	if !opts.DisablePreparedBinaryResult && opts.ApplicationName == "" {
		return raw
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed == nil || parsed.Scheme == "" {
		return raw
	}

	query := parsed.Query()
	changed := false
	if opts.DisablePreparedBinaryResult && query.Get("disable_prepared_binary_result") == "" {
		query.Set("disable_prepared_binary_result", "yes")
		changed = true
	}
	if opts.ApplicationName != "" && query.Get("application_name") == "" {
		query.Set("application_name", opts.ApplicationName)
		changed = true
	}
	if !changed {
		return raw
	}

	parsed.RawQuery = query.Encode()
	return parsed.String()
}

func dbNameFromURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	parsed, err := url.Parse(trimmed)
	if err == nil && parsed != nil && parsed.Scheme != "" {
		if name := strings.TrimSpace(strings.TrimPrefix(parsed.Path, "/")); name != "" {
			return name
		}
		return ""
	}

	for _, token := range strings.Fields(trimmed) {
		name, ok := strings.CutPrefix(token, "dbname=")
		if !ok {
			continue
		}
		if name = strings.Trim(strings.TrimSpace(name), `"'`); name != "" {
			return name
		}
	}
	return ""
}

// formatDBQueryForTrace collapses whitespace and caps the statement recorded on spans.
func formatDBQueryForTrace(query string) string {
	normalized := queryWhitespace.ReplaceAllString(strings.TrimSpace(query), " ")
	normalized = strings.TrimSuffix(normalized, ";")
	if len(normalized) <= maxTracedQueryLength {
		return normalized
	}

	cut := maxTracedQueryLength
	for cut > 0 && !utf8RuneStart(normalized[cut]) {
		cut--
	}
	return normalized[:cut] + "..."
}

func utf8RuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

func openDB(cfg config.Config) (*sqlx.DB, error) {
	dsn := NormalizeDBURL(cfg.DBURL, DBURLOptions{
		DisablePreparedBinaryResult: cfg.DBDisablePreparedBinary,
		ApplicationName:             cfg.ServiceName,
	})

	opts := []otelsql.Option{
		otelsql.WithAttributes(attribute.String("db.system", "postgresql")),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	}
	if name := dbNameFromURL(dsn); name != "" {
		opts = append(opts, otelsql.WithDBName(name))
	}

	db, err := otelsqlx.Open("postgres", dsn, opts...)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}
