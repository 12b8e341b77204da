package history

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/riskibarqy/chefscore/internal/domain/weekstats"
)

// Collection holds one WeekStats per successfully loaded week, in catalog order.
type Collection struct {
	RunID    string                `json:"runId"`
	LoadedAt time.Time             `json:"loadedAt"`
	Weeks    []weekstats.WeekStats `json:"weeks"`
}

func (c Collection) Len() int {
	return len(c.Weeks)
}

func (c Collection) Empty() bool {
	return len(c.Weeks) == 0
}

// Clone copies the week slice so callers cannot reorder the owner's view.
func (c Collection) Clone() Collection {
	c.Weeks = append([]weekstats.WeekStats(nil), c.Weeks...)
	return c
}

// Chronological orders weeks by start date ascending. Weeks without a start date
// fall back to week number, then catalog order.
func Chronological(c Collection) []weekstats.WeekStats {
	out := append([]weekstats.WeekStats(nil), c.Weeks...)
	sort.SliceStable(out, func(i, j int) bool {
		a, aOK := out[i].Descriptor().Start()
		b, bOK := out[j].Descriptor().Start()
		if aOK && bOK && !a.Equal(b) {
			return a.Before(b)
		}
		if aOK != bOK {
			return aOK
		}
		return out[i].WeekNumber < out[j].WeekNumber
	})
	return out
}

func LatestFirst(c Collection) []weekstats.WeekStats {
	out := Chronological(c)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Point is one week in a player's series. HasData is false when the player is absent.
type Point struct {
	WeekID  string  `json:"weekId"`
	Label   string  `json:"label"`
	Score   float64 `json:"score"`
	Chests  int     `json:"chests"`
	HasData bool    `json:"hasData"`
}

type Series struct {
	Name       string  `json:"name"`
	WeeksFound int     `json:"weeksFound"`
	TotalScore float64 `json:"totalScore"`
	Points     []Point `json:"points"`
}

// PlayerSeries scans every week for rows matching name (trimmed, exact).
func PlayerSeries(c Collection, name string) Series {
	name = strings.TrimSpace(name)
	weeks := Chronological(c)
	series := Series{Name: name, Points: make([]Point, 0, len(weeks))}
	for _, item := range weeks {
		point := Point{WeekID: item.WeekID, Label: item.Descriptor().Label()}
		for _, row := range item.Rows {
			if strings.TrimSpace(row.Name) != name {
				continue
			}
			point.Score = row.TotalScore
			point.Chests = row.ChestCount
			point.HasData = true
			break
		}
		if point.HasData {
			series.WeeksFound++
			series.TotalScore += point.Score
		}
		series.Points = append(series.Points, point)
	}
	return series
}

// TopPlayers ranks names by weeks present, then total score, then name.
func TopPlayers(c Collection, limit int) []Series {
	type tally struct {
		weeks int
		score float64
	}
	tallies := make(map[string]*tally)
	for _, item := range c.Weeks {
		seen := make(map[string]struct{}, len(item.Rows))
		for _, row := range item.Rows {
			name := strings.TrimSpace(row.Name)
			if name == "" {
				continue
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			entry, ok := tallies[name]
			if !ok {
				entry = &tally{}
				tallies[name] = entry
			}
			entry.weeks++
			entry.score += row.TotalScore
		}
	}

	names := make([]string, 0, len(tallies))
	for name := range tallies {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := tallies[names[i]], tallies[names[j]]
		if a.weeks != b.weeks {
			return a.weeks > b.weeks
		}
		if a.score != b.score {
			return a.score > b.score
		}
		return names[i] < names[j]
	})

	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}
	out := make([]Series, 0, len(names))
	for _, name := range names {
		out = append(out, PlayerSeries(c, name))
	}
	return out
}

// Snapshot is the persisted form of one applied load.
type Snapshot struct {
	RunID    string              `json:"runId"`
	LoadedAt time.Time           `json:"loadedAt"`
	Weeks    []weekstats.Summary `json:"weeks"`
}

// SnapshotRepository stores the summaries of the last applied load. Save replaces
// the previous snapshot in full.
type SnapshotRepository interface {
	Save(ctx context.Context, snapshot Snapshot) error
	Latest(ctx context.Context) (Snapshot, bool, error)
}
