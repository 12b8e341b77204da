package week

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// Descriptor is one catalog entry. Dates are kept as provided.
type Descriptor struct {
	Week      string `json:"week"`
	File      string `json:"file"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"02.01.2006",
}

func (d Descriptor) Start() (time.Time, bool) {
	return parseDate(d.StartDate)
}

func (d Descriptor) End() (time.Time, bool) {
	return parseDate(d.EndDate)
}

// Number returns the integer value of a numeric week id.
func (d Descriptor) Number() (int, bool) {
	value, err := strconv.Atoi(strings.TrimSpace(d.Week))
	if err != nil {
		return 0, false
	}
	return value, true
}

// Label is the display name used for series and tables.
func (d Descriptor) Label() string {
	if strings.TrimSpace(d.Week) != "" {
		return strings.TrimSpace(d.Week)
	}
	return d.File
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// Source fetches raw payloads by path relative to a data root.
type Source interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}
