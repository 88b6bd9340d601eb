package querysql

import (
	"fmt"

	"github.com/roach88/bedquilt/internal/ir"
	"github.com/roach88/bedquilt/internal/queryir"
)

// DefaultColumn is the jsonb column holding stored documents.
const DefaultColumn = "bq_jdoc"

// DefaultMaxDepth bounds document nesting during a split.
const DefaultMaxDepth = 100

// Split is the result of splitting a query document.
type Split struct {
	// Residual holds every non-operator member of the query, nesting kept.
	// Matched against stored documents by containment.
	Residual ir.Document

	// Fragments are WHERE-clause conditions, each prefixed with "and", in the
	// order their operator expressions appear in the query.
	Fragments []string

	// Comparisons is the typed form of Fragments, one-to-one and in order.
	Comparisons []queryir.Comparison
}

// Predicate returns the split as a predicate tree:
// And{Contains{Residual}, Comparison...}.
func (s *Split) Predicate() queryir.Predicate {
	preds := make([]queryir.Predicate, 0, len(s.Comparisons)+1)
	preds = append(preds, queryir.Contains{Document: s.Residual})
	for _, c := range s.Comparisons {
		preds = append(preds, c)
	}
	return queryir.And{Predicates: preds}
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithMaxDepth sets the maximum document nesting depth. The top-level document
// is depth 1. Values below 1 are ignored.
func WithMaxDepth(depth int) Option {
	return func(s *Splitter) {
		if depth > 0 {
			s.maxDepth = depth
		}
	}
}

// WithColumn sets the document column referenced by fragments.
func WithColumn(column string) Option {
	return func(s *Splitter) {
		s.column = column
	}
}

// Splitter separates operator expressions from plain members of a query
// document.
//
// A Splitter is immutable after NewSplitter returns; Split is safe for
// concurrent use.
type Splitter struct {
	column   string
	maxDepth int
}

// NewSplitter creates a Splitter. It fails if the configured column is not a
// plain identifier.
func NewSplitter(opts ...Option) (*Splitter, error) {
	s := &Splitter{
		column:   DefaultColumn,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(s)
	}
	if !ValidIdentifier(s.column) {
		return nil, fmt.Errorf("invalid document column %q", s.column)
	}
	return s, nil
}

// Column returns the document column name.
func (s *Splitter) Column() string {
	return s.column
}

// MaxDepth returns the nesting limit.
func (s *Splitter) MaxDepth() int {
	return s.maxDepth
}

var defaultSplitter = &Splitter{column: DefaultColumn, maxDepth: DefaultMaxDepth}

// SplitQuery splits doc with the default column and depth limit.
func SplitQuery(doc ir.Document) (*Split, error) {
	return defaultSplitter.Split(doc)
}

// Split walks doc depth-first in key order.
//
// For each member:
//   - a single-key object whose key starts with "$" is an operator expression:
//     it becomes a fragment and is left out of the residual
//   - any other object is walked recursively; it stays in the residual with
//     whatever remains, or is dropped if nothing remains
//   - everything else is copied to the residual as-is
//
// The first error aborts the split; no partial result is returned.
func (s *Splitter) Split(doc ir.Document) (*Split, error) {
	out := &Split{
		Fragments:   []string{},
		Comparisons: []queryir.Comparison{},
	}

	residual, err := s.walk(doc, nil, 1, out)
	if err != nil {
		return nil, err
	}
	out.Residual = residual
	return out, nil
}

func (s *Splitter) walk(doc ir.Document, path queryir.Path, depth int, out *Split) (ir.Document, error) {
	if depth > s.maxDepth {
		return nil, queryir.NewDepthExceededError(path, s.maxDepth)
	}

	residual := ir.Document{}
	for _, f := range doc {
		if err := checkKey(path, f.Key, len(doc)); err != nil {
			return nil, err
		}
		fieldPath := path.Append(f.Key)

		switch val := f.Value.(type) {
		case ir.Document:
			if token, operand, ok := operatorExpression(val); ok {
				if err := s.addComparison(fieldPath, token, operand, out); err != nil {
					return nil, err
				}
				continue
			}

			sub, err := s.walk(val, fieldPath, depth+1, out)
			if err != nil {
				return nil, err
			}
			// An empty input object is a leaf and stays; an object emptied by
			// absorbed operators is dropped.
			if len(sub) > 0 || len(val) == 0 {
				residual = append(residual, ir.Field{Key: f.Key, Value: sub})
			}

		case ir.Array:
			if err := s.checkArray(val, fieldPath, depth+1); err != nil {
				return nil, err
			}
			residual = append(residual, f)

		default:
			residual = append(residual, f)
		}
	}
	return residual, nil
}

// operatorExpression reports whether doc has the shape {"$token": operand}.
func operatorExpression(doc ir.Document) (string, ir.Value, bool) {
	if len(doc) != 1 || !queryir.IsOperatorToken(doc[0].Key) {
		return "", nil, false
	}
	return doc[0].Key, doc[0].Value, true
}

// checkKey rejects operator tokens reached as ordinary document keys: at the
// top level there is no field to compare, and beside siblings the mapping is
// not an operator expression.
func checkKey(path queryir.Path, key string, siblings int) error {
	if !queryir.IsOperatorToken(key) {
		return nil
	}
	if _, known := queryir.LookupOperator(key); !known {
		return queryir.NewUnsupportedOperatorError(path, key)
	}
	if len(path) == 0 {
		return queryir.NewMalformedOperatorError(path, key,
			fmt.Sprintf("operator %s has no field to compare", key))
	}
	return queryir.NewMalformedOperatorError(path, key,
		fmt.Sprintf("operator %s cannot be combined with %d sibling key(s)", key, siblings-1))
}

func (s *Splitter) addComparison(path queryir.Path, token string, operand ir.Value, out *Split) error {
	spec, known := queryir.LookupOperator(token)
	if !known {
		return queryir.NewUnsupportedOperatorError(path, token)
	}
	if err := queryir.ValidateOperand(path, spec, operand); err != nil {
		return err
	}

	cmp := queryir.Comparison{Path: path, Op: spec.Token, Operand: operand}
	frag, err := RenderFragment(s.column, cmp)
	if err != nil {
		return err
	}
	out.Comparisons = append(out.Comparisons, cmp)
	out.Fragments = append(out.Fragments, frag)
	return nil
}

// checkArray enforces the depth limit inside residual arrays and rejects
// operator keys in objects nested there; containment would otherwise treat
// them as literal data.
func (s *Splitter) checkArray(arr ir.Array, path queryir.Path, depth int) error {
	if depth > s.maxDepth {
		return queryir.NewDepthExceededError(path, s.maxDepth)
	}
	for _, elem := range arr {
		switch val := elem.(type) {
		case ir.Array:
			if err := s.checkArray(val, path, depth+1); err != nil {
				return err
			}
		case ir.Document:
			if err := s.checkPlain(val, path, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Splitter) checkPlain(doc ir.Document, path queryir.Path, depth int) error {
	if depth > s.maxDepth {
		return queryir.NewDepthExceededError(path, s.maxDepth)
	}
	for _, f := range doc {
		if queryir.IsOperatorToken(f.Key) {
			if _, known := queryir.LookupOperator(f.Key); !known {
				return queryir.NewUnsupportedOperatorError(path, f.Key)
			}
			return queryir.NewMalformedOperatorError(path, f.Key,
				fmt.Sprintf("operator %s inside an array is not supported", f.Key))
		}
		fieldPath := path.Append(f.Key)
		switch val := f.Value.(type) {
		case ir.Array:
			if err := s.checkArray(val, fieldPath, depth+1); err != nil {
				return err
			}
		case ir.Document:
			if err := s.checkPlain(val, fieldPath, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}
