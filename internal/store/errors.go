package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes the store reacts to.
const (
	pgUniqueViolation = "23505"
	pgUndefinedTable  = "42P01"
)

var (
	// ErrDuplicateID is returned by Insert when the collection already holds
	// a document with the same _id.
	ErrDuplicateID = errors.New("duplicate document _id")

	// ErrInvalidID is returned by Insert when a document's _id is not a
	// usable string.
	ErrInvalidID = errors.New("invalid document _id")
)

// QueryError reports a query document that cannot be compiled. Err is the
// underlying split failure, usually a *queryir.SplitError.
type QueryError struct {
	Collection string
	Err        error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("query cannot be compiled for collection %q: %v", e.Collection, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// IsQueryError returns true if err is a query compilation error.
func IsQueryError(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}

// pgCode returns the SQLSTATE of a PostgreSQL error in err's chain.
func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isUndefinedTable reports whether err means the collection table is missing.
// Queries against a missing collection behave as queries against an empty one.
func isUndefinedTable(err error) bool {
	return pgCode(err) == pgUndefinedTable
}
