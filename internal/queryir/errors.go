package queryir

import (
	"errors"
	"fmt"
)

// SplitErrorCode categorizes query compilation failures.
type SplitErrorCode string

const (
	// ErrCodeUnsupportedOperator indicates a `$` token missing from the operator table.
	ErrCodeUnsupportedOperator SplitErrorCode = "UNSUPPORTED_OPERATOR"

	// ErrCodeInvalidOperand indicates an operand whose shape does not fit its operator.
	ErrCodeInvalidOperand SplitErrorCode = "INVALID_OPERAND"

	// ErrCodeDepthExceeded indicates nesting deeper than the configured limit.
	ErrCodeDepthExceeded SplitErrorCode = "DEPTH_EXCEEDED"

	// ErrCodeMalformedOperatorExpression indicates an operator key in a place
	// where it cannot form an operator expression (top level, or beside other keys).
	ErrCodeMalformedOperatorExpression SplitErrorCode = "MALFORMED_OPERATOR_EXPRESSION"
)

// SplitError is the single terminal failure of a split. No partial output
// accompanies it.
type SplitError struct {
	// Code identifies the error category.
	Code SplitErrorCode

	// Message is a human-readable description.
	Message string

	// Path locates the offending key.
	Path Path

	// Operator is the operator token involved, if any.
	Operator string
}

// Error implements the error interface.
func (e *SplitError) Error() string {
	if e.Operator != "" {
		return fmt.Sprintf("%s: %s (path=%s, operator=%s)", e.Code, e.Message, e.Path, e.Operator)
	}
	return fmt.Sprintf("%s: %s (path=%s)", e.Code, e.Message, e.Path)
}

// NewUnsupportedOperatorError creates a SplitError for an unknown operator token.
func NewUnsupportedOperatorError(path Path, token string) *SplitError {
	return &SplitError{
		Code:     ErrCodeUnsupportedOperator,
		Message:  fmt.Sprintf("operator %q is not supported", token),
		Path:     path,
		Operator: token,
	}
}

// NewInvalidOperandError creates a SplitError for an operand of the wrong shape.
func NewInvalidOperandError(path Path, token, reason string) *SplitError {
	return &SplitError{
		Code:     ErrCodeInvalidOperand,
		Message:  reason,
		Path:     path,
		Operator: token,
	}
}

// NewDepthExceededError creates a SplitError for the recursion guard.
func NewDepthExceededError(path Path, maxDepth int) *SplitError {
	return &SplitError{
		Code:    ErrCodeDepthExceeded,
		Message: fmt.Sprintf("document nesting exceeds max depth %d", maxDepth),
		Path:    path,
	}
}

// NewMalformedOperatorError creates a SplitError for a misplaced operator key.
func NewMalformedOperatorError(path Path, token, reason string) *SplitError {
	return &SplitError{
		Code:     ErrCodeMalformedOperatorExpression,
		Message:  reason,
		Path:     path,
		Operator: token,
	}
}

// SplitErrorCodeOf returns the code of the SplitError in err's chain.
func SplitErrorCodeOf(err error) (SplitErrorCode, bool) {
	var se *SplitError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return "", false
}

func hasCode(err error, code SplitErrorCode) bool {
	c, ok := SplitErrorCodeOf(err)
	return ok && c == code
}

// IsUnsupportedOperator returns true if err is an unsupported operator error.
func IsUnsupportedOperator(err error) bool {
	return hasCode(err, ErrCodeUnsupportedOperator)
}

// IsInvalidOperand returns true if err is an invalid operand error.
func IsInvalidOperand(err error) bool {
	return hasCode(err, ErrCodeInvalidOperand)
}

// IsDepthExceeded returns true if err is a depth exceeded error.
func IsDepthExceeded(err error) bool {
	return hasCode(err, ErrCodeDepthExceeded)
}

// IsMalformedOperatorExpression returns true if err is a malformed operator expression error.
func IsMalformedOperatorExpression(err error) bool {
	return hasCode(err, ErrCodeMalformedOperatorExpression)
}
