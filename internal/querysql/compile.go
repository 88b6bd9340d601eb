package querysql

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/bedquilt/internal/ir"
	"github.com/roach88/bedquilt/internal/queryir"
)

// SQLCompiler compiles splits into parameterized PostgreSQL statements over a
// collection table.
//
// A collection table has the columns:
//
//	_id     text primary key
//	bq_jdoc jsonb not null
//	created timestamptz
//	updated timestamptz
//
// The residual document is always bind parameter $1. Fragments are appended
// verbatim; their literals are already quoted by RenderLiteral.
// All selects include ORDER BY so results are deterministic.
type SQLCompiler struct {
	// Column is the jsonb document column.
	Column string
}

// NewSQLCompiler creates a SQLCompiler for the default document column.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{Column: DefaultColumn}
}

// SelectOptions bounds a select.
type SelectOptions struct {
	Limit int // 0 = no limit
	Skip  int
}

// Where renders the WHERE clause body for split and its bind parameters.
//
//	bq_jdoc @> $1::jsonb and bq_jdoc #> '{a,b}' = '22'::jsonb
func (c *SQLCompiler) Where(split *Split) (string, []any, error) {
	if split == nil {
		return "", nil, fmt.Errorf("cannot compile nil split")
	}
	if !ValidIdentifier(c.Column) {
		return "", nil, fmt.Errorf("invalid document column %q", c.Column)
	}

	residual, err := ir.MarshalCompact(split.Residual)
	if err != nil {
		return "", nil, fmt.Errorf("encode residual: %w", err)
	}

	var b strings.Builder
	b.WriteString(c.Column)
	b.WriteString(" @> $1::jsonb")
	for _, frag := range split.Fragments {
		b.WriteByte(' ')
		b.WriteString(frag)
	}
	return b.String(), []any{string(residual)}, nil
}

// Select compiles a document select:
//
//	select _id, bq_jdoc from "coll" where ... order by created asc, _id asc
func (c *SQLCompiler) Select(collection string, split *Split, opts SelectOptions) (string, []any, error) {
	table, err := QuoteIdentifier(collection)
	if err != nil {
		return "", nil, fmt.Errorf("collection: %w", err)
	}
	where, params, err := c.Where(split)
	if err != nil {
		return "", nil, err
	}

	sql := fmt.Sprintf("select _id, %s from %s where %s order by %s",
		c.Column, table, where, stableOrderKey())
	if opts.Limit > 0 {
		sql += " limit " + strconv.Itoa(opts.Limit)
	}
	if opts.Skip > 0 {
		sql += " offset " + strconv.Itoa(opts.Skip)
	}
	return sql, params, nil
}

// Count compiles a count of matching documents.
func (c *SQLCompiler) Count(collection string, split *Split) (string, []any, error) {
	table, err := QuoteIdentifier(collection)
	if err != nil {
		return "", nil, fmt.Errorf("collection: %w", err)
	}
	where, params, err := c.Where(split)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("select count(*) from %s where %s", table, where), params, nil
}

// Delete compiles a delete of matching documents. With one set, only the first
// match in select order is removed.
func (c *SQLCompiler) Delete(collection string, split *Split, one bool) (string, []any, error) {
	table, err := QuoteIdentifier(collection)
	if err != nil {
		return "", nil, fmt.Errorf("collection: %w", err)
	}
	where, params, err := c.Where(split)
	if err != nil {
		return "", nil, err
	}
	if one {
		return fmt.Sprintf("delete from %s where _id in (select _id from %s where %s order by %s limit 1)",
			table, table, where, stableOrderKey()), params, nil
	}
	return fmt.Sprintf("delete from %s where %s", table, where), params, nil
}

// Insert compiles an insert of one document. Parameters: $1 _id, $2 document.
func (c *SQLCompiler) Insert(collection string) (string, error) {
	table, err := QuoteIdentifier(collection)
	if err != nil {
		return "", fmt.Errorf("collection: %w", err)
	}
	return fmt.Sprintf("insert into %s (_id, %s) values ($1, $2::jsonb)", table, c.Column), nil
}

// CreateTable compiles the DDL for a collection table.
func (c *SQLCompiler) CreateTable(collection string) (string, error) {
	table, err := QuoteIdentifier(collection)
	if err != nil {
		return "", fmt.Errorf("collection: %w", err)
	}
	return fmt.Sprintf(`create table if not exists %s (
    _id varchar(256) primary key,
    %s jsonb not null,
    created timestamptz not null default now(),
    updated timestamptz not null default now()
)`, table, c.Column), nil
}

// CreateIndex compiles a GIN index over the document column. jsonb_path_ops
// supports the @> containment match every query uses.
func (c *SQLCompiler) CreateIndex(collection string) (string, error) {
	table, err := QuoteIdentifier(collection)
	if err != nil {
		return "", fmt.Errorf("collection: %w", err)
	}
	return fmt.Sprintf("create index if not exists \"%s\" on %s using gin (%s jsonb_path_ops)",
		indexName(collection, c.Column), table, c.Column), nil
}

// maxIdentifierLen is PostgreSQL's NAMEDATALEN - 1; longer names are
// silently truncated by the server.
const maxIdentifierLen = 63

// indexName returns "<collection>_<column>_idx", or for names over the limit a
// truncated prefix plus a hash of the full name so distinct collections never
// share an index name.
func indexName(collection, column string) string {
	name := collection + "_" + column + "_idx"
	if len(name) <= maxIdentifierLen {
		return name
	}
	sum := sha256.Sum256([]byte(name))
	suffix := "_" + hex.EncodeToString(sum[:4])
	return name[:maxIdentifierLen-len(suffix)] + suffix
}

// SelectByID compiles a select of one document by _id ($1).
func (c *SQLCompiler) SelectByID(collection string) (string, error) {
	table, err := QuoteIdentifier(collection)
	if err != nil {
		return "", fmt.Errorf("collection: %w", err)
	}
	return fmt.Sprintf("select _id, %s from %s where _id = $1", c.Column, table), nil
}

// DeleteByID compiles a delete of one document by _id ($1).
func (c *SQLCompiler) DeleteByID(collection string) (string, error) {
	table, err := QuoteIdentifier(collection)
	if err != nil {
		return "", fmt.Errorf("collection: %w", err)
	}
	return fmt.Sprintf("delete from %s where _id = $1", table), nil
}

// CompilePredicate compiles a typed predicate tree into a WHERE clause body
// with $n placeholders for containment documents. Comparisons render exactly
// like split fragments, without the leading "and".
func (c *SQLCompiler) CompilePredicate(p queryir.Predicate) (string, []any, error) {
	if err := queryir.Validate(p); err != nil {
		return "", nil, err
	}
	var params []any
	sql, err := c.compilePredicate(p, &params)
	if err != nil {
		return "", nil, err
	}
	return sql, params, nil
}

func (c *SQLCompiler) compilePredicate(p queryir.Predicate, params *[]any) (string, error) {
	switch pred := p.(type) {
	case nil:
		return "true", nil
	case queryir.And:
		return c.compileAnd(pred, params)
	case *queryir.And:
		return c.compileAnd(*pred, params)
	case queryir.Contains:
		return c.compileContains(pred, params)
	case *queryir.Contains:
		return c.compileContains(*pred, params)
	case queryir.Comparison:
		return c.compileComparison(pred)
	case *queryir.Comparison:
		return c.compileComparison(*pred)
	default:
		return "", fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) compileAnd(and queryir.And, params *[]any) (string, error) {
	if len(and.Predicates) == 0 {
		return "true", nil // Vacuous truth
	}
	parts := make([]string, 0, len(and.Predicates))
	for _, child := range and.Predicates {
		sql, err := c.compilePredicate(child, params)
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}
	return strings.Join(parts, " and "), nil
}

func (c *SQLCompiler) compileContains(contains queryir.Contains, params *[]any) (string, error) {
	doc := contains.Document
	if doc == nil {
		doc = ir.Document{}
	}
	data, err := ir.MarshalCompact(doc)
	if err != nil {
		return "", fmt.Errorf("encode containment document: %w", err)
	}
	*params = append(*params, string(data))
	return fmt.Sprintf("%s @> $%d::jsonb", c.Column, len(*params)), nil
}

func (c *SQLCompiler) compileComparison(cmp queryir.Comparison) (string, error) {
	frag, err := RenderFragment(c.Column, cmp)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(frag, "and "), nil
}

// stableOrderKey returns the ORDER BY list used by every select.
func stableOrderKey() string {
	return "created asc, _id asc"
}
