package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/chefscore/internal/domain/history"
	"github.com/riskibarqy/chefscore/internal/domain/weekstats"
	qb "github.com/riskibarqy/chefscore/internal/platform/querybuilder"
)

const snapshotTable = "week_stats_snapshots"

var snapshotColumns = qb.MustColumns[weekSnapshotTableModel]()

// SnapshotRepository keeps only the summaries of the last applied historical load.
type SnapshotRepository struct {
	db *sqlx.DB
}

func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func (r *SnapshotRepository) Save(ctx context.Context, snapshot history.Snapshot) error {
	deleteQuery, deleteArgs, err := qb.DeleteFrom(snapshotTable).ToSQL()
	if err != nil {
		return fmt.Errorf("build clear snapshot query: %w", err)
	}

	rows := snapshotRows(snapshot)
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, deleteQuery, deleteArgs...); err != nil {
			return fmt.Errorf("clear snapshot: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}

		insert, err := qb.InsertModels(snapshotTable, rows)
		if err != nil {
			return fmt.Errorf("build insert snapshot query: %w", err)
		}
		insertQuery, insertArgs, err := insert.ToSQL()
		if err != nil {
			return fmt.Errorf("build insert snapshot query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insertQuery, insertArgs...); err != nil {
			return fmt.Errorf("insert snapshot run=%s: %w", snapshot.RunID, err)
		}
		return nil
	})
}

func (r *SnapshotRepository) Latest(ctx context.Context) (history.Snapshot, bool, error) {
	query, args, err := qb.Select(snapshotColumns...).
		From(snapshotTable).
		OrderBy("position").
		ToSQL()
	if err != nil {
		return history.Snapshot{}, false, fmt.Errorf("build latest snapshot query: %w", err)
	}

	var rows []weekSnapshotTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return history.Snapshot{}, false, fmt.Errorf("select latest snapshot: %w", err)
	}
	if len(rows) == 0 {
		return history.Snapshot{}, false, nil
	}

	return snapshotFromRows(rows), true, nil
}

func snapshotRows(snapshot history.Snapshot) []weekSnapshotTableModel {
	rows := make([]weekSnapshotTableModel, 0, len(snapshot.Weeks))
	for idx, item := range snapshot.Weeks {
		rows = append(rows, weekSnapshotTableModel{
			RunID:                 snapshot.RunID,
			LoadedAt:              snapshot.LoadedAt.UTC(),
			Position:              idx,
			WeekID:                item.WeekID,
			WeekNumber:            item.WeekNumber,
			File:                  item.File,
			StartDate:             item.StartDate,
			EndDate:               item.EndDate,
			PlayerCount:           item.PlayerCount,
			TotalScore:            item.TotalScore,
			TotalChests:           item.TotalChests,
			AverageScore:          item.AverageScore,
			AverageChests:         item.AverageChests,
			MostCommonSource:      item.MostCommonSource.Name,
			MostCommonSourceCount: item.MostCommonSource.Count,
		})
	}
	return rows
}

func snapshotFromRows(rows []weekSnapshotTableModel) history.Snapshot {
	snapshot := history.Snapshot{
		RunID:    rows[0].RunID,
		LoadedAt: rows[0].LoadedAt,
		Weeks:    make([]weekstats.Summary, 0, len(rows)),
	}
	for _, row := range rows {
		snapshot.Weeks = append(snapshot.Weeks, weekstats.Summary{
			WeekID:        row.WeekID,
			WeekNumber:    row.WeekNumber,
			File:          row.File,
			StartDate:     row.StartDate,
			EndDate:       row.EndDate,
			PlayerCount:   row.PlayerCount,
			TotalScore:    row.TotalScore,
			TotalChests:   row.TotalChests,
			AverageScore:  row.AverageScore,
			AverageChests: row.AverageChests,
			MostCommonSource: weekstats.SourceCount{
				Name:  row.MostCommonSource,
				Count: row.MostCommonSourceCount,
			},
		})
	}
	return snapshot
}
