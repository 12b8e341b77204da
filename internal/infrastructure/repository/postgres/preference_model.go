package postgres

import "time"

type preferenceTableModel struct {
	Key       string    `db:"pref_key"`
	Value     string    `db:"pref_value"`
	UpdatedAt time.Time `db:"updated_at"`
}
