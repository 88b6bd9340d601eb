package queryir

import (
	"strings"

	"github.com/roach88/bedquilt/internal/ir"
)

// Sigil marks a document key as an operator token.
const Sigil = "$"

// Path locates a value inside a document as a sequence of keys.
type Path []string

// Append returns a new Path with key added. The receiver is never modified,
// so sibling branches of a traversal can share a prefix safely.
func (p Path) Append(key string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, key)
}

// String renders the path dot-separated for messages ("a.b"). The empty path
// renders as "$root".
func (p Path) String() string {
	if len(p) == 0 {
		return "$root"
	}
	return strings.Join(p, ".")
}

// Operator is an operator token such as "$gt".
type Operator string

const (
	OpEq    Operator = "$eq"
	OpNotEq Operator = "$noteq"
	OpGte   Operator = "$gte"
	OpGt    Operator = "$gt"
	OpLte   Operator = "$lte"
	OpLt    Operator = "$lt"
	OpIn    Operator = "$in"
)

// Shape describes what an operator accepts as its operand.
type Shape int

const (
	// ShapeScalar operands are null, string, number, or boolean.
	ShapeScalar Shape = iota + 1
	// ShapeList operands are JSON arrays.
	ShapeList
)

func (s Shape) String() string {
	switch s {
	case ShapeScalar:
		return "scalar"
	case ShapeList:
		return "list"
	default:
		return "unknown"
	}
}

// OperatorSpec is one row of the operator table.
type OperatorSpec struct {
	Token  Operator
	Symbol string // PostgreSQL operator between the path and the literal
	Shape  Shape
}

// Operators is the whitelist of supported comparison operators.
var Operators = map[Operator]OperatorSpec{
	OpEq:    {Token: OpEq, Symbol: "=", Shape: ShapeScalar},
	OpNotEq: {Token: OpNotEq, Symbol: "!=", Shape: ShapeScalar},
	OpGte:   {Token: OpGte, Symbol: ">=", Shape: ShapeScalar},
	OpGt:    {Token: OpGt, Symbol: ">", Shape: ShapeScalar},
	OpLte:   {Token: OpLte, Symbol: "<=", Shape: ShapeScalar},
	OpLt:    {Token: OpLt, Symbol: "<", Shape: ShapeScalar},
	OpIn:    {Token: OpIn, Symbol: "<@", Shape: ShapeList},
}

// LookupOperator returns the table entry for token.
func LookupOperator(token string) (OperatorSpec, bool) {
	spec, ok := Operators[Operator(token)]
	return spec, ok
}

// IsOperatorToken reports whether key carries the operator sigil.
// It says nothing about whether the operator is supported.
func IsOperatorToken(key string) bool {
	return strings.HasPrefix(key, Sigil)
}

// Predicate represents a filter condition over the document column.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - Contains: stored document contains a residual document
//   - Comparison: value at a path compared with a literal
//   - And: all predicates must be true
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Contains is satisfied when the stored document contains Document,
// using jsonb containment semantics.
//
// Translates to SQL:
//
//	bq_jdoc @> '{"c": 44}'::jsonb
//
// An empty Document is always true.
type Contains struct {
	Document ir.Document
}

func (Contains) predicateNode() {}

// Comparison compares the value at Path with Operand.
//
// Example:
//
//	Comparison{Path: Path{"a", "b"}, Op: OpGt, Operand: ir.Int(42)}
//
// Translates to SQL:
//
//	bq_jdoc #> '{a,b}' > '42'::jsonb
type Comparison struct {
	Path    Path
	Op      Operator
	Operand ir.Value
}

func (Comparison) predicateNode() {}

// And represents a conjunction of predicates. Empty Predicates means
// "always true".
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}
