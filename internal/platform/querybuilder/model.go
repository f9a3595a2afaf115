package querybuilder

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
)

func InsertModel(table string, model any, suffix string) (string, []any, error) {
	cols, vals, err := modelColumns(model)
	if err != nil {
		return "", nil, err
	}
	return InsertInto(table).
		Columns(cols...).
		Values(vals...).
		Suffix(suffix).
		ToSQL()
}

// UpsertLiveModel inserts model into a soft-deleted table. A live row holding the same
// key gets every other column from model and a fresh updated_at.
func UpsertLiveModel(table string, model any, key string) (string, []any, error) {
	cols, _, err := modelColumns(model)
	if err != nil {
		return "", nil, err
	}
	if !slices.Contains(cols, key) {
		return "", nil, fmt.Errorf("model has no %s column", key)
	}

	sets := make([]string, 0, len(cols))
	for _, col := range cols {
		if col != key {
			sets = append(sets, col+" = EXCLUDED."+col)
		}
	}
	sets = append(sets, "updated_at = NOW()")

	suffix := fmt.Sprintf("ON CONFLICT (%s) WHERE deleted_at IS NULL DO UPDATE SET %s", key, strings.Join(sets, ", "))
	return InsertModel(table, model, suffix)
}

// modelColumns reads exported fields tagged with db, in declaration order.
func modelColumns(model any) ([]string, []any, error) {
	value := reflect.ValueOf(model)
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return nil, nil, fmt.Errorf("model cannot be nil")
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return nil, nil, fmt.Errorf("model must be struct, got %s", value.Kind())
	}

	typ := value.Type()
	cols := make([]string, 0, typ.NumField())
	vals := make([]any, 0, typ.NumField())
	for i := range typ.NumField() {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		col, _, _ := strings.Cut(field.Tag.Get("db"), ",")
		col = strings.TrimSpace(col)
		if col == "" || col == "-" {
			continue
		}
		cols = append(cols, col)
		vals = append(vals, value.Field(i).Interface())
	}

	if len(cols) == 0 {
		return nil, nil, fmt.Errorf("model has no db columns")
	}
	return cols, vals, nil
}
