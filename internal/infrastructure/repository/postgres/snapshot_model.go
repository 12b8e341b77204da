package postgres

import "time"

type weekSnapshotTableModel struct {
	RunID                 string    `db:"run_id"`
	LoadedAt              time.Time `db:"loaded_at"`
	Position              int       `db:"position"`
	WeekID                string    `db:"week_id"`
	WeekNumber            int       `db:"week_number"`
	File                  string    `db:"file"`
	StartDate             string    `db:"start_date"`
	EndDate               string    `db:"end_date"`
	PlayerCount           int       `db:"player_count"`
	TotalScore            float64   `db:"total_score"`
	TotalChests           int       `db:"total_chests"`
	AverageScore          float64   `db:"average_score"`
	AverageChests         float64   `db:"average_chests"`
	MostCommonSource      string    `db:"most_common_source"`
	MostCommonSourceCount int       `db:"most_common_source_count"`
}
