package httpapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/chefscore/internal/domain/history"
	"github.com/riskibarqy/chefscore/internal/domain/playerrow"
	"github.com/riskibarqy/chefscore/internal/domain/preference"
	"github.com/riskibarqy/chefscore/internal/domain/week"
	"github.com/riskibarqy/chefscore/internal/domain/weekstats"
	"github.com/riskibarqy/chefscore/internal/usecase"
)

type listPlayersQuery struct {
	Sort  string `validate:"omitempty,max=64"`
	Order string `validate:"omitempty,oneof=asc desc"`
}

type historyQuery struct {
	Order string `validate:"omitempty,oneof=asc desc"`
}

type topPlayersQuery struct {
	Limit int `validate:"min=1,max=50"`
}

type setPreferenceRequest struct {
	Value string `json:"value" validate:"max=1024"`
}

type weekDTO struct {
	Week      string `json:"week"`
	File      string `json:"file"`
	Label     string `json:"label"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

type catalogDTO struct {
	Weeks  []weekDTO `json:"weeks"`
	Latest *weekDTO  `json:"latest,omitempty"`
}

type weekPlayersDTO struct {
	Week    weekDTO         `json:"week"`
	Sort    string          `json:"sort"`
	Order   string          `json:"order"`
	Players []playerrow.Row `json:"players"`
}

type historyDTO struct {
	RunID      string              `json:"runId"`
	Generation uint64              `json:"generation"`
	LoadedAt   string              `json:"loadedAt"`
	Order      string              `json:"order"`
	Weeks      []weekstats.Summary `json:"weeks"`
}

type topPlayersDTO struct {
	Limit   int              `json:"limit"`
	Players []history.Series `json:"players"`
}

type preferenceDTO struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

type reloadHistoryDTO struct {
	usecase.LoadResult
	NoData bool `json:"noData"`
}

func weekToDTO(v week.Descriptor) weekDTO {
	return weekDTO{
		Week:      v.Week,
		File:      v.File,
		Label:     v.Label(),
		StartDate: v.StartDate,
		EndDate:   v.EndDate,
	}
}

func catalogToDTO(items []week.Descriptor, latest week.Descriptor, hasLatest bool) catalogDTO {
	out := catalogDTO{Weeks: make([]weekDTO, 0, len(items))}
	for _, item := range items {
		out.Weeks = append(out.Weeks, weekToDTO(item))
	}
	if hasLatest {
		dto := weekToDTO(latest)
		out.Latest = &dto
	}
	return out
}

func preferenceToDTO(v preference.Preference) preferenceDTO {
	return preferenceDTO{
		Key:       v.Key,
		Value:     v.Value,
		UpdatedAt: formatOptionalTime(v.UpdatedAt),
	}
}

func formatOptionalTime(v time.Time) string {
	if v.IsZero() {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}

func orderOrDefault(order, fallback string) string {
	order = strings.ToLower(strings.TrimSpace(order))
	if order == "" {
		return fallback
	}
	return order
}

// parseLimit treats a missing value as the default and keeps garbage as 0 so
// validation rejects it.
func parseLimit(raw string, fallback int) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return value, true
}
