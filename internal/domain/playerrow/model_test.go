package playerrow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRecord_CSVAliases(t *testing.T) {
	t.Parallel()

	row := FromRecord(Record{
		"PLAYER":      "Alice",
		"TOTAL_SCORE": float64(100),
		"CHEST_COUNT": float64(5),
		"Epic Chest":  float64(40),
		"Note":        "vip",
		"Sources":     "Crypt; Arena|",
		"premium":     "yes",
	})

	assert.Equal(t, "Alice", row.Name)
	assert.Equal(t, 100.0, row.TotalScore)
	assert.Equal(t, 5, row.ChestCount)
	assert.Equal(t, map[string]float64{"Epic Chest": 40}, row.Categories)
	assert.Equal(t, []string{"Crypt", "Arena"}, row.Sources)
	require.NotNil(t, row.Premium)
	assert.True(t, *row.Premium)
}

func TestFromRecord_JSONShapes(t *testing.T) {
	t.Parallel()

	row := FromRecord(Record{
		"name":      "Bob",
		"score":     "12.5",
		"chests":    float64(3),
		"isPremium": false,
		"categorySources": []any{
			map[string]any{"name": "Crypt"},
			"Arena",
			map[string]any{"name": ""},
		},
	})

	assert.Equal(t, "Bob", row.Name)
	assert.Equal(t, 12.5, row.TotalScore)
	assert.Equal(t, 3, row.ChestCount)
	assert.Equal(t, []string{"Crypt", "Arena"}, row.Sources)
	require.NotNil(t, row.Premium)
	assert.False(t, *row.Premium)
	assert.Nil(t, row.Categories)
}

func TestFromRecord_InvalidNumbersBecomeZero(t *testing.T) {
	t.Parallel()

	row := FromRecord(Record{"PLAYER": "Eve", "SCORE": "n/a", "CHESTS": float64(-4), "PREMIUM": "maybe"})
	assert.Equal(t, 0.0, row.TotalScore)
	assert.Equal(t, 0, row.ChestCount)
	assert.Nil(t, row.Premium)

	row = FromRecord(Record{"PLAYER": "Eve", "CHESTS": ""})
	assert.Equal(t, 0, row.ChestCount)
}

func TestSort(t *testing.T) {
	t.Parallel()

	rows := []Row{
		{Name: "Carol", TotalScore: 50, ChestCount: 9, Categories: map[string]float64{"Epic": 1}},
		{Name: "alice", TotalScore: 100, ChestCount: 5},
		{Name: "Bob", TotalScore: 100, ChestCount: 10, Categories: map[string]float64{"Epic": 3}},
	}

	names := func(rows []Row) []string {
		out := make([]string, 0, len(rows))
		for _, row := range rows {
			out = append(out, row.Name)
		}
		return out
	}

	assert.Equal(t, []string{"Bob", "alice", "Carol"}, names(Sort(rows, SortScore, true)))
	assert.Equal(t, []string{"alice", "Carol", "Bob"}, names(Sort(rows, SortChests, false)))
	assert.Equal(t, []string{"alice", "Bob", "Carol"}, names(Sort(rows, SortName, false)))
	assert.Equal(t, []string{"Bob", "Carol", "alice"}, names(Sort(rows, "Epic", true)))
	assert.Equal(t, "Carol", rows[0].Name, "input must not be reordered")
}

func TestHasCategory(t *testing.T) {
	t.Parallel()

	rows := []Row{{Name: "a"}, {Name: "b", Categories: map[string]float64{"Epic": 0}}}
	assert.True(t, HasCategory(rows, "Epic"))
	assert.False(t, HasCategory(rows, "Rare"))
}

func TestSortableBy(t *testing.T) {
	t.Parallel()

	rows := []Row{{Name: "a", Categories: map[string]float64{"Epic": 1}}}
	for _, field := range []string{SortScore, SortChests, SortName, "Epic"} {
		assert.True(t, SortableBy(rows, field), field)
	}
	assert.False(t, SortableBy(rows, "Rare"))
	assert.False(t, SortableBy(nil, "Epic"))
}
