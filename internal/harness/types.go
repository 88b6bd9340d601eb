package harness

import "github.com/roach88/bedquilt/internal/ir"

// Result is the outcome of running one scenario.
type Result struct {
	// Name is the scenario name.
	Name string `json:"name"`

	// Pass indicates the split matched every expectation.
	Pass bool `json:"pass"`

	// Residual and Fragments are the split output. Both are empty when the
	// split failed.
	Residual  ir.Document `json:"residual"`
	Fragments []string    `json:"fragments"`

	// ErrorCode is the SplitError code when the split failed.
	ErrorCode string `json:"error_code,omitempty"`

	// Errors contains mismatch messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(name string) *Result {
	return &Result{
		Name:      name,
		Pass:      true,
		Residual:  ir.Document{},
		Fragments: []string{},
		Errors:    []string{},
	}
}

// AddError adds a mismatch message and marks the result as failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}
