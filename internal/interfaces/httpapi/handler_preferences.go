package httpapi

import (
	"fmt"
	"net/http"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/chefscore/internal/usecase"
)

func (h *Handler) ListPreferences(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListPreferences")
	defer span.End()

	items, err := h.preferenceService.List(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "list preferences failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]preferenceDTO, 0, len(items))
	for _, item := range items {
		out = append(out, preferenceToDTO(item))
	}
	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) GetPreference(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetPreference")
	defer span.End()

	key := r.PathValue("key")
	item, err := h.preferenceService.Get(ctx, key)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, preferenceToDTO(item))
}

func (h *Handler) SetPreference(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SetPreference")
	defer span.End()

	var req setPreferenceRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	key := r.PathValue("key")
	item, err := h.preferenceService.Set(ctx, key, req.Value)
	if err != nil {
		h.logger.WarnContext(ctx, "set preference failed", "key", key, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, preferenceToDTO(item))
}
