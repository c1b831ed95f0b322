// Package scan maps already-fetched rows onto Go values, either positionally
// or by column name. It is the conversion surface action implementers use
// while the connection is live; the package itself never touches the
// connection.
package scan

import (
	"database/sql"
	"fmt"
	"reflect"
	"time"

	"github.com/dbvault/dbvault/internal/sqlutil"
)

// Row scans the current row into dest values by position.
func Row(rows *sql.Rows, dest ...any) error {
	return rows.Scan(dest...)
}

// Struct scans the current row into the struct pointed to by dest, matching
// columns to exported fields by `db` tag, falling back to the snake_case
// field name. A column with no matching field is an error; fields without a
// matching column are left untouched. NULL columns need pointer fields or
// sql.Null* types, as with plain Scan.
func Struct(rows *sql.Rows, dest any) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("scan: dest must be a non-nil struct pointer, got %T", dest)
	}

	columns, err := rows.Columns()
	if err != nil {
		return err
	}

	elem := rv.Elem()
	fields := fieldIndex(elem.Type())
	targets := make([]any, len(columns))
	for i, col := range columns {
		idx, ok := fields[col]
		if !ok {
			return fmt.Errorf("scan: no field for column %q in %s", col, elem.Type())
		}
		targets[i] = elem.Field(idx).Addr().Interface()
	}
	return rows.Scan(targets...)
}

// One scans exactly one row into a T and closes rows. It returns
// sql.ErrNoRows on an empty result and an error when more than one row is
// present.
func One[T any](rows *sql.Rows) (T, error) {
	defer func() { _ = rows.Close() }()
	var zero T

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return zero, err
		}
		return zero, sql.ErrNoRows
	}
	var v T
	if err := into(rows, &v); err != nil {
		return zero, err
	}
	if rows.Next() {
		return zero, fmt.Errorf("scan: expected one row, got more")
	}
	if err := rows.Err(); err != nil {
		return zero, err
	}
	return v, nil
}

// All scans every row into a []T and closes rows.
func All[T any](rows *sql.Rows) ([]T, error) {
	defer func() { _ = rows.Close() }()

	var out []T
	for rows.Next() {
		var v T
		if err := into(rows, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// into picks the mapping convention for dest: structs go by column name,
// everything else is a single positional column.
func into(rows *sql.Rows, dest any) error {
	if isStructTarget(reflect.TypeOf(dest).Elem()) {
		return Struct(rows, dest)
	}
	return rows.Scan(dest)
}

var (
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
	timeType    = reflect.TypeOf(time.Time{})
)

// isStructTarget excludes struct types the driver scans natively.
func isStructTarget(t reflect.Type) bool {
	if t.Kind() != reflect.Struct || t == timeType {
		return false
	}
	if t.Implements(scannerType) || reflect.PointerTo(t).Implements(scannerType) {
		return false
	}
	return true
}

// fieldIndex maps column names to exported field indices. When two fields
// resolve to the same column the later one wins. Embedded structs are not
// flattened.
func fieldIndex(t reflect.Type) map[string]int {
	m := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := sqlutil.ColumnName(f)
		if name == "" || name == "-" {
			continue
		}
		m[name] = i
	}
	return m
}
