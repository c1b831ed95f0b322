package sqlutil

import (
	"reflect"
	"strings"
	"unicode"
)

// ColumnName resolves the column a struct field maps to: the `db` tag when
// present (anything after a comma is ignored), otherwise the snake_case form
// of the field name. A "-" tag opts the field out.
func ColumnName(f reflect.StructField) string {
	if tag, ok := f.Tag.Lookup("db"); ok {
		name, _, _ := strings.Cut(tag, ",")
		return name
	}
	return SnakeCase(f.Name)
}

// SnakeCase converts a CamelCase identifier to snake_case. Initialisms stay
// intact: "ID" -> "id", "UserID" -> "user_id", "HTTPServer" -> "http_server".
func SnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(runes) + 4)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			startsWord := i > 0 && !unicode.IsUpper(runes[i-1])
			endsAcronym := i > 0 && i+1 < len(runes) && unicode.IsUpper(runes[i-1]) && !unicode.IsUpper(runes[i+1])
			if startsWord || endsAcronym {
				b.WriteRune('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
