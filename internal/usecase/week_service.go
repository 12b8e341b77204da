package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/bytedance/sonic"
	"go.opentelemetry.io/otel/attribute"

	"github.com/riskibarqy/chefscore/internal/domain/playerrow"
	"github.com/riskibarqy/chefscore/internal/domain/week"
	"github.com/riskibarqy/chefscore/internal/platform/csvrow"
	"github.com/riskibarqy/chefscore/internal/platform/logging"
)

// WeekService fetches and normalizes one week's rows. It never caches.
type WeekService struct {
	source  week.Source
	catalog *CatalogService
	logger  *logging.Logger
}

func NewWeekService(source week.Source, catalog *CatalogService, logger *logging.Logger) *WeekService {
	if logger == nil {
		logger = logging.Default()
	}
	return &WeekService{
		source:  source,
		catalog: catalog,
		logger:  logger,
	}
}

func (s *WeekService) LoadWeek(ctx context.Context, info week.Descriptor) ([]playerrow.Row, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.WeekService.LoadWeek",
		attribute.String("week", info.Week),
		attribute.String("file", info.File),
	)
	defer span.End()

	file := strings.TrimSpace(info.File)
	if file == "" {
		err := fmt.Errorf("%w: week %s has no file", ErrInvalidInput, info.Week)
		recordSpanError(span, err)
		return nil, err
	}
	if s.source == nil {
		return nil, fmt.Errorf("%w: week source is not configured", ErrResourceUnavailable)
	}

	body, err := s.source.Fetch(ctx, file)
	if err != nil {
		err = fmt.Errorf("%w: fetch week=%s file=%s: %w", ErrResourceUnavailable, info.Week, file, err)
		s.logger.WarnContext(ctx, "week data unavailable", "week", info.Week, "file", file, "error", err)
		recordSpanError(span, err)
		return nil, err
	}

	records, report, err := DecodeRecords(file, body)
	if err != nil {
		err = fmt.Errorf("%w: week=%s file=%s: %w", ErrMalformedData, info.Week, file, err)
		s.logger.WarnContext(ctx, "week data malformed", "week", info.Week, "file", file, "error", err)
		recordSpanError(span, err)
		return nil, err
	}
	for _, warning := range report.Warnings {
		if warning.Kind == csvrow.WarningDuplicateHeader {
			s.logger.WarnContext(ctx, "renamed duplicate csv header",
				"week", info.Week,
				"file", file,
				"column", warning.Column,
				"renamed", warning.Renamed,
			)
			continue
		}
		s.logger.WarnContext(ctx, "repaired csv row",
			"week", info.Week,
			"file", file,
			"line", warning.Line,
			"repair", string(warning.Kind),
			"fields", warning.Fields,
			"header_fields", warning.Header,
		)
	}
	if report.Skipped > 0 {
		s.logger.WarnContext(ctx, "skipped week rows that are not objects",
			"week", info.Week,
			"file", file,
			"skipped", report.Skipped,
		)
	}

	rows := playerrow.FromRecords(records)
	span.SetAttributes(attribute.Int("rows", len(rows)))
	return rows, nil
}

// LoadWeekByID resolves the descriptor through the catalog.
func (s *WeekService) LoadWeekByID(ctx context.Context, weekID string) (week.Descriptor, []playerrow.Row, error) {
	if s.catalog == nil {
		return week.Descriptor{}, nil, fmt.Errorf("%w: week catalog is not configured", ErrResourceUnavailable)
	}

	info, err := s.catalog.Resolve(ctx, weekID)
	if err != nil {
		return week.Descriptor{}, nil, err
	}

	rows, err := s.LoadWeek(ctx, info)
	if err != nil {
		return info, nil, err
	}
	return info, rows, nil
}

var errUnsupportedShape = errors.New("unsupported payload shape")

// DecodeRecords turns a week payload into records. JSON may be an array of rows or
// an object wrapping rows under "players" or "data"; anything else is parsed as CSV.
func DecodeRecords(file string, body []byte) ([]playerrow.Record, csvrow.Report, error) {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(body, []byte("\xef\xbb\xbf")))
	isJSON := strings.EqualFold(path.Ext(file), ".json") ||
		(len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{'))
	if !isJSON {
		records, report, err := csvrow.Parse(string(body))
		if err != nil {
			return nil, report, err
		}
		out := make([]playerrow.Record, 0, len(records))
		for _, record := range records {
			out = append(out, playerrow.Record(record))
		}
		return out, report, nil
	}

	var payload any
	if err := sonic.Unmarshal(trimmed, &payload); err != nil {
		return nil, csvrow.Report{}, fmt.Errorf("decode json: %w", err)
	}

	items, err := unwrapRows(payload)
	if err != nil {
		return nil, csvrow.Report{}, err
	}

	out := make([]playerrow.Record, 0, len(items))
	skipped := 0
	for _, item := range items {
		record, ok := item.(map[string]any)
		if !ok {
			skipped++
			continue
		}
		out = append(out, record)
	}
	return out, csvrow.Report{Rows: len(out), Skipped: skipped}, nil
}

func unwrapRows(payload any) ([]any, error) {
	switch v := payload.(type) {
	case []any:
		return v, nil
	case map[string]any:
		for _, key := range []string{"players", "data"} {
			if nested, ok := v[key]; ok {
				if items, ok := nested.([]any); ok {
					return items, nil
				}
				if nested == nil {
					return nil, nil
				}
				return nil, fmt.Errorf("%w: %q is not an array", errUnsupportedShape, key)
			}
		}
		return nil, fmt.Errorf("%w: object without players or data", errUnsupportedShape)
	default:
		return nil, errUnsupportedShape
	}
}
