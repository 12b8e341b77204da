package weekstats

import (
	"math"

	"github.com/riskibarqy/chefscore/internal/domain/playerrow"
	"github.com/riskibarqy/chefscore/internal/domain/week"
)

const NoSource = "-"

type SourceCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Summary is the aggregate of one week without the retained rows.
type Summary struct {
	WeekID           string      `json:"weekId"`
	WeekNumber       int         `json:"weekNumber"`
	File             string      `json:"file"`
	StartDate        string      `json:"startDate,omitempty"`
	EndDate          string      `json:"endDate,omitempty"`
	PlayerCount      int         `json:"playerCount"`
	TotalScore       float64     `json:"totalScore"`
	TotalChests      int         `json:"totalChests"`
	AverageScore     float64     `json:"averageScore"`
	AverageChests    float64     `json:"averageChests"`
	MostCommonSource SourceCount `json:"mostCommonSource"`
}

// WeekStats is the aggregate of one week plus the rows it was computed from.
type WeekStats struct {
	Summary
	Rows []playerrow.Row `json:"rows"`
}

func (s WeekStats) Descriptor() week.Descriptor {
	return week.Descriptor{Week: s.WeekID, File: s.File, StartDate: s.StartDate, EndDate: s.EndDate}
}

// Empty returns the all-zero stats for a week.
func Empty(info week.Descriptor) WeekStats {
	number, _ := info.Number()
	return WeekStats{
		Summary: Summary{
			WeekID:           info.Week,
			WeekNumber:       number,
			File:             info.File,
			StartDate:        info.StartDate,
			EndDate:          info.EndDate,
			MostCommonSource: SourceCount{Name: NoSource},
		},
		Rows: []playerrow.Row{},
	}
}

// Compute reduces one week's rows. It never returns NaN or Inf.
func Compute(rows []playerrow.Row, info week.Descriptor) WeekStats {
	stats := Empty(info)
	if len(rows) == 0 {
		return stats
	}

	stats.Rows = append([]playerrow.Row(nil), rows...)
	stats.PlayerCount = len(rows)
	for _, row := range rows {
		stats.TotalScore += finite(row.TotalScore)
		if row.ChestCount > 0 {
			stats.TotalChests += row.ChestCount
		}
	}
	stats.TotalScore = finite(stats.TotalScore)
	stats.AverageScore = finite(stats.TotalScore / float64(stats.PlayerCount))
	stats.AverageChests = finite(float64(stats.TotalChests) / float64(stats.PlayerCount))
	stats.MostCommonSource = MostCommonSource(rows)

	return stats
}

// MostCommonSource counts source tags over all rows. Ties keep the first seen tag.
func MostCommonSource(rows []playerrow.Row) SourceCount {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, row := range rows {
		for _, name := range row.Sources {
			if name == "" {
				continue
			}
			if _, ok := counts[name]; !ok {
				order = append(order, name)
			}
			counts[name]++
		}
	}

	best := SourceCount{Name: NoSource}
	for _, name := range order {
		if counts[name] > best.Count {
			best = SourceCount{Name: name, Count: counts[name]}
		}
	}
	return best
}

// Summaries drops the retained rows.
func Summaries(stats []WeekStats) []Summary {
	out := make([]Summary, 0, len(stats))
	for _, item := range stats {
		out = append(out, item.Summary)
	}
	return out
}

func finite(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return 0
	}
	return value
}
