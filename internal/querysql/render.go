package querysql

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/bedquilt/internal/ir"
	"github.com/roach88/bedquilt/internal/queryir"
)

// identifierReg matches identifiers that need no quoting and fit PostgreSQL's
// 63-byte limit.
var identifierReg = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ValidIdentifier reports whether name is usable as a column or table name.
func ValidIdentifier(name string) bool {
	return identifierReg.MatchString(name)
}

// QuoteIdentifier double-quotes a validated identifier.
func QuoteIdentifier(name string) (string, error) {
	if !ValidIdentifier(name) {
		return "", fmt.Errorf("invalid identifier %q", name)
	}
	return `"` + name + `"`, nil
}

// quoteSQLString wraps s in single quotes, doubling embedded quotes.
// Assumes standard_conforming_strings = on (the PostgreSQL default), where
// backslashes inside '...' are literal.
func quoteSQLString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// RenderPath renders a path-extraction expression over column:
//
//	RenderPath("bq_jdoc", Path{"a", "b"}) == `bq_jdoc #> '{a,b}'`
//
// Path elements are written as a PostgreSQL text-array literal; elements that
// would be misread (empty, NULL, or holding delimiters, quotes, backslashes,
// or whitespace) are double-quoted with backslash escapes.
func RenderPath(column string, path queryir.Path) string {
	elems := make([]string, len(path))
	for i, key := range path {
		elems[i] = arrayElement(key)
	}
	return column + " #> " + quoteSQLString("{"+strings.Join(elems, ",")+"}")
}

func arrayElement(key string) string {
	if key != "" && !strings.EqualFold(key, "null") && !strings.ContainsAny(key, "{},\"\\ \t\n\r\v\f") {
		return key
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range key {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

// RenderLiteral renders v as a jsonb literal: '<json>'::jsonb.
// The JSON text is the jsonb output form from ir.MarshalJSONB, so numbers stay
// numbers and strings are JSON-escaped before SQL quoting.
func RenderLiteral(v ir.Value) (string, error) {
	data, err := ir.MarshalJSONB(v)
	if err != nil {
		return "", fmt.Errorf("encode literal: %w", err)
	}
	return quoteSQLString(string(data)) + "::jsonb", nil
}

// RenderFragment renders one comparison as a WHERE-clause fragment, prefixed
// with the "and" connective:
//
//	and bq_jdoc #> '{a,b}' > '42'::jsonb
func RenderFragment(column string, cmp queryir.Comparison) (string, error) {
	spec, ok := queryir.Operators[cmp.Op]
	if !ok {
		return "", queryir.NewUnsupportedOperatorError(cmp.Path, string(cmp.Op))
	}
	lit, err := RenderLiteral(cmp.Operand)
	if err != nil {
		return "", queryir.NewInvalidOperandError(cmp.Path, string(cmp.Op), err.Error())
	}
	return fmt.Sprintf("and %s %s %s", RenderPath(column, cmp.Path), spec.Symbol, lit), nil
}
