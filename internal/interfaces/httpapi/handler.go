package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	basecache "github.com/riskibarqy/chefscore/internal/platform/cache"
	"github.com/riskibarqy/chefscore/internal/platform/logging"
	"github.com/riskibarqy/chefscore/internal/usecase"
)

type cacheStatsReporter interface {
	Stats() basecache.Stats
}

// SourceInvalidator drops cached source payloads before an explicit reload.
type SourceInvalidator interface {
	Invalidate(ctx context.Context)
}

type Handler struct {
	catalogService    *usecase.CatalogService
	weekService       *usecase.WeekService
	historyService    *usecase.HistoryService
	preferenceService *usecase.PreferenceService
	invalidator       SourceInvalidator
	logger            *logging.Logger
	validator         *validator.Validate
}

func NewHandler(
	catalogService *usecase.CatalogService,
	weekService *usecase.WeekService,
	historyService *usecase.HistoryService,
	preferenceService *usecase.PreferenceService,
	invalidator SourceInvalidator,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		catalogService:    catalogService,
		weekService:       weekService,
		historyService:    historyService,
		preferenceService: preferenceService,
		invalidator:       invalidator,
		logger:            logger,
		validator:         validator.New(),
	}
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

func (h *Handler) invalidateSource(ctx context.Context) {
	if h.invalidator != nil {
		h.invalidator.Invalidate(ctx)
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	body := map[string]any{
		"status":        "ok",
		"catalogLoaded": h.catalogService.Loaded(),
		"generation":    h.historyService.Generation(),
	}
	if reporter, ok := h.invalidator.(cacheStatsReporter); ok {
		stats := reporter.Stats()
		body["sourceCache"] = map[string]any{
			"entries": stats.Entries,
			"hits":    stats.Hits,
			"misses":  stats.Misses,
			"loads":   stats.Loads,
		}
	}
	writeSuccess(ctx, w, http.StatusOK, body)
}
