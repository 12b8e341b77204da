package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/riskibarqy/chefscore/internal/domain/playerrow"
	"github.com/riskibarqy/chefscore/internal/usecase"
)

func (h *Handler) ListWeeks(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListWeeks")
	defer span.End()

	if err := h.catalogService.EnsureLoaded(ctx); err != nil {
		h.logger.WarnContext(ctx, "load week catalog failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	latest, ok := h.catalogService.Latest()
	writeSuccess(ctx, w, http.StatusOK, catalogToDTO(h.catalogService.Catalog(), latest, ok))
}

func (h *Handler) ReloadWeeks(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ReloadWeeks")
	defer span.End()

	h.invalidateSource(ctx)
	if _, err := h.catalogService.LoadCatalog(ctx); err != nil {
		h.logger.WarnContext(ctx, "reload week catalog failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	latest, ok := h.catalogService.Latest()
	writeSuccess(ctx, w, http.StatusOK, catalogToDTO(h.catalogService.Catalog(), latest, ok))
}

func (h *Handler) GetLatestWeek(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetLatestWeek")
	defer span.End()

	if err := h.catalogService.EnsureLoaded(ctx); err != nil {
		h.logger.WarnContext(ctx, "load week catalog failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	latest, ok := h.catalogService.Latest()
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: week catalog is empty", usecase.ErrNoData))
		return
	}
	writeSuccess(ctx, w, http.StatusOK, weekToDTO(latest))
}

func (h *Handler) ListWeekPlayers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListWeekPlayers")
	defer span.End()

	query := listPlayersQuery{
		Sort:  strings.TrimSpace(r.URL.Query().Get("sort")),
		Order: strings.ToLower(strings.TrimSpace(r.URL.Query().Get("order"))),
	}
	if err := h.validateRequest(ctx, query); err != nil {
		writeError(ctx, w, err)
		return
	}

	weekID := r.PathValue("weekID")
	info, rows, err := h.weekService.LoadWeekByID(ctx, weekID)
	if err != nil {
		h.logger.WarnContext(ctx, "load week failed", "week_id", weekID, "error", err)
		writeError(ctx, w, err)
		return
	}

	field := query.Sort
	if field == "" {
		field = playerrow.SortScore
	}
	if !playerrow.SortableBy(rows, field) {
		writeError(ctx, w, fmt.Errorf("%w: unknown sort field %q", usecase.ErrInvalidInput, field))
		return
	}

	order := orderOrDefault(query.Order, "desc")
	writeSuccess(ctx, w, http.StatusOK, weekPlayersDTO{
		Week:    weekToDTO(info),
		Sort:    field,
		Order:   order,
		Players: playerrow.Sort(rows, field, order == "desc"),
	})
}

func (h *Handler) GetWeekStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetWeekStats")
	defer span.End()

	weekID := r.PathValue("weekID")
	info, rows, err := h.weekService.LoadWeekByID(ctx, weekID)
	if err != nil {
		h.logger.WarnContext(ctx, "load week failed", "week_id", weekID, "error", err)
		writeError(ctx, w, err)
		return
	}

	stats := usecase.ComputeWeekStats(ctx, rows, info)
	writeSuccess(ctx, w, http.StatusOK, stats.Summary)
}
