package querybuilder

import (
	"fmt"
	"strconv"
	"strings"
)

// Condition renders one predicate and appends its bind values.
type Condition interface {
	appendSQL(w *sqlWriter)
}

type sqlWriter struct {
	buf  strings.Builder
	args []any
}

func (w *sqlWriter) bind(value any) {
	w.args = append(w.args, value)
	w.buf.WriteString("$")
	w.buf.WriteString(strconv.Itoa(len(w.args)))
}

type eqCondition struct {
	column string
	value  any
}

func Eq(column string, value any) Condition {
	return eqCondition{column: column, value: value}
}

func (c eqCondition) appendSQL(w *sqlWriter) {
	w.buf.WriteString(c.column)
	w.buf.WriteString(" = ")
	w.bind(c.value)
}

type inCondition struct {
	column string
	values []any
}

func In(column string, values ...any) Condition {
	return inCondition{column: column, values: values}
}

func (c inCondition) appendSQL(w *sqlWriter) {
	if len(c.values) == 0 {
		w.buf.WriteString("1=0")
		return
	}
	w.buf.WriteString(c.column)
	w.buf.WriteString(" IN (")
	for i, v := range c.values {
		if i > 0 {
			w.buf.WriteString(", ")
		}
		w.bind(v)
	}
	w.buf.WriteString(")")
}

type SelectBuilder struct {
	columns []string
	table   string
	where   []Condition
	orderBy []string
	limit   int
}

func Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{columns: append([]string(nil), columns...)}
}

func (b *SelectBuilder) From(table string) *SelectBuilder {
	b.table = table
	return b
}

func (b *SelectBuilder) Where(conditions ...Condition) *SelectBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *SelectBuilder) OrderBy(parts ...string) *SelectBuilder {
	b.orderBy = append(b.orderBy, parts...)
	return b
}

func (b *SelectBuilder) Limit(limit int) *SelectBuilder {
	b.limit = limit
	return b
}

func (b *SelectBuilder) ToSQL() (string, []any, error) {
	if len(b.columns) == 0 {
		return "", nil, fmt.Errorf("select columns are required")
	}
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("select table is required")
	}

	w := &sqlWriter{}
	w.buf.WriteString("SELECT ")
	w.buf.WriteString(strings.Join(b.columns, ", "))
	w.buf.WriteString(" FROM ")
	w.buf.WriteString(b.table)
	writeWhere(w, b.where)
	if len(b.orderBy) > 0 {
		w.buf.WriteString(" ORDER BY ")
		w.buf.WriteString(strings.Join(b.orderBy, ", "))
	}
	if b.limit > 0 {
		w.buf.WriteString(" LIMIT ")
		w.buf.WriteString(strconv.Itoa(b.limit))
	}

	return w.buf.String(), w.args, nil
}

type InsertBuilder struct {
	table    string
	columns  []string
	rows     [][]any
	conflict *conflictClause
}

type conflictClause struct {
	target  []string
	updates []string
}

func InsertInto(table string) *InsertBuilder {
	return &InsertBuilder{table: table}
}

func (b *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	b.columns = append([]string(nil), columns...)
	return b
}

func (b *InsertBuilder) Values(values ...any) *InsertBuilder {
	b.rows = append(b.rows, append([]any(nil), values...))
	return b
}

// OnConflict turns the insert into an upsert on target. Each update column is
// overwritten from EXCLUDED; no update columns renders DO NOTHING.
func (b *InsertBuilder) OnConflict(target []string, updates ...string) *InsertBuilder {
	b.conflict = &conflictClause{
		target:  append([]string(nil), target...),
		updates: append([]string(nil), updates...),
	}
	return b
}

func (b *InsertBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("insert table is required")
	}
	if len(b.columns) == 0 {
		return "", nil, fmt.Errorf("insert columns are required")
	}
	if len(b.rows) == 0 {
		return "", nil, fmt.Errorf("insert values are required")
	}
	if b.conflict != nil && len(b.conflict.target) == 0 {
		return "", nil, fmt.Errorf("conflict target is required")
	}

	w := &sqlWriter{args: make([]any, 0, len(b.rows)*len(b.columns))}
	w.buf.WriteString("INSERT INTO ")
	w.buf.WriteString(b.table)
	w.buf.WriteString(" (")
	w.buf.WriteString(strings.Join(b.columns, ", "))
	w.buf.WriteString(") VALUES ")

	for rowIdx, row := range b.rows {
		if len(row) != len(b.columns) {
			return "", nil, fmt.Errorf("insert row %d has %d values, expected %d", rowIdx, len(row), len(b.columns))
		}
		if rowIdx > 0 {
			w.buf.WriteString(", ")
		}
		w.buf.WriteString("(")
		for colIdx, value := range row {
			if colIdx > 0 {
				w.buf.WriteString(", ")
			}
			w.bind(value)
		}
		w.buf.WriteString(")")
	}

	if c := b.conflict; c != nil {
		w.buf.WriteString(" ON CONFLICT (")
		w.buf.WriteString(strings.Join(c.target, ", "))
		w.buf.WriteString(")")
		if len(c.updates) == 0 {
			w.buf.WriteString(" DO NOTHING")
		} else {
			w.buf.WriteString(" DO UPDATE SET ")
			for i, col := range c.updates {
				if i > 0 {
					w.buf.WriteString(", ")
				}
				w.buf.WriteString(col)
				w.buf.WriteString(" = EXCLUDED.")
				w.buf.WriteString(col)
			}
		}
	}

	return w.buf.String(), w.args, nil
}

type DeleteBuilder struct {
	table string
	where []Condition
}

func DeleteFrom(table string) *DeleteBuilder {
	return &DeleteBuilder{table: table}
}

func (b *DeleteBuilder) Where(conditions ...Condition) *DeleteBuilder {
	b.where = append(b.where, conditions...)
	return b
}

func (b *DeleteBuilder) ToSQL() (string, []any, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", nil, fmt.Errorf("delete table is required")
	}

	w := &sqlWriter{}
	w.buf.WriteString("DELETE FROM ")
	w.buf.WriteString(b.table)
	writeWhere(w, b.where)
	return w.buf.String(), w.args, nil
}

func writeWhere(w *sqlWriter, conditions []Condition) {
	if len(conditions) == 0 {
		return
	}
	w.buf.WriteString(" WHERE ")
	for i, c := range conditions {
		if i > 0 {
			w.buf.WriteString(" AND ")
		}
		c.appendSQL(w)
	}
}
