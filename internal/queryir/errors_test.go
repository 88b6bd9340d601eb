package queryir

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitErrorMessage(t *testing.T) {
	err := NewUnsupportedOperatorError(Path{"a", "b"}, "$foo")
	assert.Equal(t, `UNSUPPORTED_OPERATOR: operator "$foo" is not supported (path=a.b, operator=$foo)`, err.Error())

	err = NewDepthExceededError(Path{"x"}, 3)
	assert.Equal(t, "DEPTH_EXCEEDED: document nesting exceeds max depth 3 (path=x)", err.Error())
}

func TestSplitErrorHelpers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		code  SplitErrorCode
	}{
		{"unsupported", NewUnsupportedOperatorError(nil, "$foo"), IsUnsupportedOperator, ErrCodeUnsupportedOperator},
		{"invalid operand", NewInvalidOperandError(nil, "$in", "bad"), IsInvalidOperand, ErrCodeInvalidOperand},
		{"depth", NewDepthExceededError(nil, 1), IsDepthExceeded, ErrCodeDepthExceeded},
		{"malformed", NewMalformedOperatorError(nil, "$eq", "bad"), IsMalformedOperatorExpression, ErrCodeMalformedOperatorExpression},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))

			// Helpers see through wrapping
			wrapped := fmt.Errorf("compile query: %w", tt.err)
			assert.True(t, tt.check(wrapped))

			code, ok := SplitErrorCodeOf(wrapped)
			require.True(t, ok)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestSplitErrorHelpersRejectOtherErrors(t *testing.T) {
	plain := errors.New("boom")
	assert.False(t, IsUnsupportedOperator(plain))
	assert.False(t, IsInvalidOperand(plain))
	assert.False(t, IsDepthExceeded(plain))
	assert.False(t, IsMalformedOperatorExpression(plain))
	assert.False(t, IsUnsupportedOperator(nil))

	_, ok := SplitErrorCodeOf(plain)
	assert.False(t, ok)

	// Codes don't cross
	assert.False(t, IsInvalidOperand(NewUnsupportedOperatorError(nil, "$x")))
}
