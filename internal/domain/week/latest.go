package week

import (
	"math"
	"strconv"
	"strings"
)

// DetermineLatest picks the latest week. It prefers the maximum parseable end date,
// then the maximum numeric id, then the lexicographic maximum id, then the first
// entry. Ties keep the earliest entry. It reports false only for empty input.
func DetermineLatest(items []Descriptor) (Descriptor, bool) {
	if len(items) == 0 {
		return Descriptor{}, false
	}

	if idx := latestByEndDate(items); idx >= 0 {
		return items[idx], true
	}
	if idx := latestByNumber(items); idx >= 0 {
		return items[idx], true
	}
	if idx := latestByString(items); idx >= 0 {
		return items[idx], true
	}
	return items[0], true
}

func latestByEndDate(items []Descriptor) int {
	best := -1
	for i, item := range items {
		end, ok := item.End()
		if !ok {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		current, _ := items[best].End()
		if end.After(current) {
			best = i
		}
	}
	return best
}

func latestByNumber(items []Descriptor) int {
	best := -1
	var bestValue float64
	for i, item := range items {
		value, err := strconv.ParseFloat(strings.TrimSpace(item.Week), 64)
		if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
			continue
		}
		if best < 0 || value > bestValue {
			best = i
			bestValue = value
		}
	}
	return best
}

func latestByString(items []Descriptor) int {
	best := -1
	for i, item := range items {
		if item.Week == "" {
			continue
		}
		if best < 0 || item.Week > items[best].Week {
			best = i
		}
	}
	return best
}
