package querybuilder

import (
	"fmt"
	"reflect"
	"strings"
)

// Upsert turns a db-tagged insert model into INSERT ... ON CONFLICT DO UPDATE.
// Every model column is overwritten with EXCLUDED.<column> unless it is listed
// in Immutable or has an expression in Overrides.
type Upsert struct {
	Target    string
	Immutable []string
	Overrides map[string]string
	Extra     []string
}

func UpsertModel(table string, model any, u Upsert) (string, []any, error) {
	if strings.TrimSpace(u.Target) == "" {
		return "", nil, fmt.Errorf("upsert conflict target is required")
	}
	cols, vals, err := columnsAndValuesFromModel(model)
	if err != nil {
		return "", nil, err
	}

	immutable := make(map[string]struct{}, len(u.Immutable))
	for _, col := range u.Immutable {
		immutable[col] = struct{}{}
	}
	sets := make([]string, 0, len(cols)+len(u.Extra))
	for _, col := range cols {
		if _, skip := immutable[col]; skip {
			continue
		}
		expr, ok := u.Overrides[col]
		if !ok {
			expr = "EXCLUDED." + col
		}
		sets = append(sets, col+" = "+expr)
	}
	sets = append(sets, u.Extra...)
	if len(sets) == 0 {
		return "", nil, fmt.Errorf("upsert has nothing to update")
	}

	return InsertInto(table).
		Columns(cols...).
		Values(vals...).
		Suffix("ON CONFLICT " + u.Target + " DO UPDATE SET " + strings.Join(sets, ", ")).
		ToSQL()
}

func columnsAndValuesFromModel(model any) ([]string, []any, error) {
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
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		col := strings.TrimSpace(strings.Split(field.Tag.Get("db"), ",")[0])
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
