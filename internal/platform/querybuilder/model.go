package querybuilder

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

var (
	errNotStruct = errors.New("model must be struct")
	errNoColumns = errors.New("model has no db columns")
)

// columnPlan maps a struct type's `db` tags to field indexes.
type columnPlan struct {
	columns []string
	fields  []int
}

var plans sync.Map // reflect.Type -> columnPlan

func planFor(typ reflect.Type) (columnPlan, error) {
	if cached, ok := plans.Load(typ); ok {
		return cached.(columnPlan), nil
	}
	if typ.Kind() != reflect.Struct {
		return columnPlan{}, fmt.Errorf("%w: got %s", errNotStruct, typ.Kind())
	}

	var plan columnPlan
	for i := range typ.NumField() {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(field.Tag.Get("db"), ",")
		name = strings.TrimSpace(name)
		if name == "" || name == "-" {
			continue
		}
		plan.columns = append(plan.columns, name)
		plan.fields = append(plan.fields, i)
	}
	if len(plan.columns) == 0 {
		return columnPlan{}, fmt.Errorf("%w: %s", errNoColumns, typ)
	}

	actual, _ := plans.LoadOrStore(typ, plan)
	return actual.(columnPlan), nil
}

// Columns lists the `db` columns of T in field order.
func Columns[T any]() ([]string, error) {
	plan, err := planFor(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	return append([]string(nil), plan.columns...), nil
}

// MustColumns is Columns for package-level declarations.
func MustColumns[T any]() []string {
	cols, err := Columns[T]()
	if err != nil {
		panic(err)
	}
	return cols
}

// InsertModels starts a multi-row insert from values of one tagged struct type.
func InsertModels[T any](table string, models []T) (*InsertBuilder, error) {
	if len(models) == 0 {
		return nil, fmt.Errorf("insert models are required")
	}

	plan, err := planFor(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}

	builder := InsertInto(table).Columns(plan.columns...)
	for _, model := range models {
		value := reflect.ValueOf(model)
		vals := make([]any, len(plan.fields))
		for i, idx := range plan.fields {
			vals[i] = value.Field(idx).Interface()
		}
		builder.Values(vals...)
	}
	return builder, nil
}
