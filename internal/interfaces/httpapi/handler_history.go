package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/riskibarqy/chefscore/internal/domain/weekstats"
	"github.com/riskibarqy/chefscore/internal/usecase"
)

func (h *Handler) ReloadHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ReloadHistory")
	defer span.End()

	h.invalidateSource(ctx)
	result, err := h.historyService.LoadHistorical(ctx)
	if err != nil && !usecase.IsNoData(err) {
		h.logger.WarnContext(ctx, "reload history failed", "run_id", result.RunID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, reloadHistoryDTO{
		LoadResult: result,
		NoData:     err != nil,
	})
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetHistory")
	defer span.End()

	query := historyQuery{Order: strings.ToLower(strings.TrimSpace(r.URL.Query().Get("order")))}
	if err := h.validateRequest(ctx, query); err != nil {
		writeError(ctx, w, err)
		return
	}

	order := orderOrDefault(query.Order, "asc")
	weeks, err := h.historyService.Ordered(order == "desc")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	collection := h.historyService.Collection()
	writeSuccess(ctx, w, http.StatusOK, historyDTO{
		RunID:      collection.RunID,
		Generation: h.historyService.Generation(),
		LoadedAt:   formatOptionalTime(collection.LoadedAt),
		Order:      order,
		Weeks:      weekstats.Summaries(weeks),
	})
}

func (h *Handler) GetHistorySnapshot(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetHistorySnapshot")
	defer span.End()

	snapshot, err := h.historyService.Snapshot(ctx)
	if err != nil {
		if !usecase.IsNoData(err) {
			h.logger.WarnContext(ctx, "get history snapshot failed", "error", err)
		}
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, snapshot)
}

func (h *Handler) GetPlayerSeries(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetPlayerSeries")
	defer span.End()

	name := r.PathValue("name")
	series, err := h.historyService.PlayerSeries(name)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, series)
}

func (h *Handler) ListTopPlayers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListTopPlayers")
	defer span.End()

	limit, ok := parseLimit(r.URL.Query().Get("limit"), usecase.DefaultTopPlayers)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: limit must be an integer", usecase.ErrInvalidInput))
		return
	}
	if err := h.validateRequest(ctx, topPlayersQuery{Limit: limit}); err != nil {
		writeError(ctx, w, err)
		return
	}

	players, err := h.historyService.TopPlayers(limit)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, topPlayersDTO{Limit: limit, Players: players})
}
