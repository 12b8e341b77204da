package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/chefscore/internal/domain/preference"
	qb "github.com/riskibarqy/chefscore/internal/platform/querybuilder"
)

const preferenceTable = "user_preferences"

var preferenceColumns = qb.MustColumns[preferenceTableModel]()

type PreferenceRepository struct {
	db *sqlx.DB
}

func NewPreferenceRepository(db *sqlx.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

func (r *PreferenceRepository) Get(ctx context.Context, key string) (preference.Preference, bool, error) {
	query, args, err := qb.Select(preferenceColumns...).
		From(preferenceTable).
		Where(qb.Eq("pref_key", key)).
		Limit(1).
		ToSQL()
	if err != nil {
		return preference.Preference{}, false, fmt.Errorf("build get preference query: %w", err)
	}

	var row preferenceTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return preference.Preference{}, false, nil
		}
		return preference.Preference{}, false, fmt.Errorf("get preference: %w", err)
	}

	return preferenceFromRow(row), true, nil
}

func (r *PreferenceRepository) List(ctx context.Context) ([]preference.Preference, error) {
	query, args, err := qb.Select(preferenceColumns...).
		From(preferenceTable).
		OrderBy("pref_key").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list preferences query: %w", err)
	}

	var rows []preferenceTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}

	out := make([]preference.Preference, 0, len(rows))
	for _, row := range rows {
		out = append(out, preferenceFromRow(row))
	}
	return out, nil
}

func (r *PreferenceRepository) Upsert(ctx context.Context, pref preference.Preference) error {
	query, args, err := upsertPreferenceQuery(pref)
	if err != nil {
		return fmt.Errorf("build upsert preference query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert preference: %w", err)
	}
	return nil
}

func upsertPreferenceQuery(pref preference.Preference) (string, []any, error) {
	row := preferenceTableModel{Key: pref.Key, Value: pref.Value, UpdatedAt: pref.UpdatedAt.UTC()}
	insert, err := qb.InsertModels(preferenceTable, []preferenceTableModel{row})
	if err != nil {
		return "", nil, err
	}
	return insert.OnConflict([]string{"pref_key"}, "pref_value", "updated_at").ToSQL()
}

func preferenceFromRow(row preferenceTableModel) preference.Preference {
	return preference.Preference{
		Key:       row.Key,
		Value:     row.Value,
		UpdatedAt: row.UpdatedAt,
	}
}
