package playerrow

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Row is one player's stats for a single week. Rows are replaced, never mutated.
type Row struct {
	Name       string             `json:"name"`
	TotalScore float64            `json:"totalScore"`
	ChestCount int                `json:"chestCount"`
	Categories map[string]float64 `json:"categories,omitempty"`
	Sources    []string           `json:"sources,omitempty"`
	Premium    *bool              `json:"premium,omitempty"`
}

const (
	SortScore  = "score"
	SortChests = "chests"
	SortName   = "name"
)

var (
	nameAliases    = []string{"PLAYER", "NAME", "PLAYERNAME"}
	scoreAliases   = []string{"TOTALSCORE", "SCORE", "TOTAL", "POINTS"}
	chestAliases   = []string{"CHESTCOUNT", "CHESTS", "CHEST", "COUNT"}
	premiumAliases = []string{"PREMIUM", "ISPREMIUM"}
	sourceAliases  = []string{"SOURCES", "SOURCE", "CATEGORYSOURCES"}
)

// Record is a decoded payload row keyed by column name.
type Record = map[string]any

// FromRecord normalizes a CSV or JSON row. Unknown numeric columns become categories.
func FromRecord(record Record) Row {
	row := Row{}
	claimed := make(map[string]struct{}, 5)

	if key, value, ok := lookup(record, nameAliases); ok {
		claimed[key] = struct{}{}
		row.Name = strings.TrimSpace(toString(value))
	}
	if key, value, ok := lookup(record, scoreAliases); ok {
		claimed[key] = struct{}{}
		row.TotalScore = nonNegative(toFloat(value))
	}
	if key, value, ok := lookup(record, chestAliases); ok {
		claimed[key] = struct{}{}
		row.ChestCount = int(math.Round(nonNegative(toFloat(value))))
	}
	if key, value, ok := lookup(record, premiumAliases); ok {
		claimed[key] = struct{}{}
		row.Premium = toBool(value)
	}
	if key, value, ok := lookup(record, sourceAliases); ok {
		claimed[key] = struct{}{}
		row.Sources = toSources(value)
	}

	for key, value := range record {
		if _, ok := claimed[key]; ok {
			continue
		}
		number, ok := numeric(value)
		if !ok {
			continue
		}
		if row.Categories == nil {
			row.Categories = make(map[string]float64)
		}
		row.Categories[strings.TrimSpace(key)] = number
	}

	return row
}

func FromRecords(records []Record) []Row {
	rows := make([]Row, 0, len(records))
	for _, record := range records {
		rows = append(rows, FromRecord(record))
	}
	return rows
}

// Sort returns a sorted copy. Ties are broken by name ascending.
func Sort(rows []Row, field string, descending bool) []Row {
	out := append([]Row(nil), rows...)
	field = strings.TrimSpace(field)
	if field == "" {
		field = SortScore
	}

	sort.SliceStable(out, func(i, j int) bool {
		if field == SortName {
			a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
			if descending {
				return a > b
			}
			return a < b
		}

		a, b := out[i].value(field), out[j].value(field)
		if a == b {
			return out[i].Name < out[j].Name
		}
		if descending {
			return a > b
		}
		return a < b
	})
	return out
}

func (r Row) value(field string) float64 {
	switch field {
	case SortScore:
		return r.TotalScore
	case SortChests:
		return float64(r.ChestCount)
	default:
		return r.Categories[field]
	}
}

// HasCategory reports whether any row carries the category column.
func HasCategory(rows []Row, name string) bool {
	for _, row := range rows {
		if _, ok := row.Categories[name]; ok {
			return true
		}
	}
	return false
}

func lookup(record Record, aliases []string) (string, any, bool) {
	for _, alias := range aliases {
		for key, value := range record {
			if normalizeKey(key) == alias {
				return key, value, true
			}
		}
	}
	return "", nil, false
}

func normalizeKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range strings.ToUpper(strings.TrimSpace(key)) {
		switch r {
		case '_', ' ', '-':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func toString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func numeric(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func toFloat(value any) float64 {
	if number, ok := numeric(value); ok {
		return number
	}
	if s, ok := value.(string); ok {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err == nil {
			return parsed
		}
	}
	return 0
}

func nonNegative(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return 0
	}
	return value
}

func toBool(value any) *bool {
	var out bool
	switch v := value.(type) {
	case bool:
		out = v
	case float64:
		if v != 0 && v != 1 {
			return nil
		}
		out = v == 1
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "1":
			out = true
		case "false", "no", "0":
			out = false
		default:
			return nil
		}
	default:
		return nil
	}
	return &out
}

func toSources(value any) []string {
	var names []string
	switch v := value.(type) {
	case string:
		names = strings.FieldsFunc(v, func(r rune) bool { return r == ';' || r == '|' })
	case []string:
		names = v
	case []any:
		for _, item := range v {
			switch entry := item.(type) {
			case string:
				names = append(names, entry)
			case map[string]any:
				names = append(names, toString(entry["name"]))
			}
		}
	}

	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name != "" {
			out = append(out, name)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SortableBy reports whether field is a built-in sort key or a category present in rows.
func SortableBy(rows []Row, field string) bool {
	switch field {
	case SortScore, SortChests, SortName:
		return true
	default:
		return HasCategory(rows, field)
	}
}
