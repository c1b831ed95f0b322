package sqlutil

import (
	"reflect"
	"testing"
)

func TestSnakeCase(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{in: "ID", want: "id"},
		{in: "Name", want: "name"},
		{in: "FullName", want: "full_name"},
		{in: "UserID", want: "user_id"},
		{in: "HTTPServer", want: "http_server"},
		{in: "CreatedAt", want: "created_at"},
		{in: "already_snake", want: "already_snake"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		if got := SnakeCase(tt.in); got != tt.want {
			t.Fatalf("SnakeCase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestColumnName(t *testing.T) {
	t.Parallel()
	type sample struct {
		PlainField string
		Tagged     string `db:"custom"`
		WithOpts   string `db:"col,omitempty"`
		Skipped    string `db:"-"`
	}

	tests := []struct {
		field string
		want  string
	}{
		{field: "PlainField", want: "plain_field"},
		{field: "Tagged", want: "custom"},
		{field: "WithOpts", want: "col"},
		{field: "Skipped", want: "-"},
	}

	typ := reflect.TypeOf(sample{})
	for _, tt := range tests {
		f, ok := typ.FieldByName(tt.field)
		if !ok {
			t.Fatalf("no field %q", tt.field)
		}
		if got := ColumnName(f); got != tt.want {
			t.Fatalf("ColumnName(%s) = %q, want %q", tt.field, got, tt.want)
		}
	}
}
