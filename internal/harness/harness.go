package harness

import (
	"fmt"
	"log/slog"

	"github.com/roach88/bedquilt/internal/ir"
	"github.com/roach88/bedquilt/internal/queryir"
	"github.com/roach88/bedquilt/internal/querysql"
)

// Harness runs scenarios against a splitter configuration.
type Harness struct {
	column string
	logger *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithColumn sets the document column fragments are rendered against.
func WithColumn(column string) Option {
	return func(h *Harness) {
		h.column = column
	}
}

// WithLogger sets the logger for per-scenario debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// New creates a Harness. The default renders against querysql.DefaultColumn.
func New(opts ...Option) *Harness {
	h := &Harness{
		column: querysql.DefaultColumn,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with the default Harness.
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(scenario)
}

// Run splits the scenario's query and compares the output with its
// expectations. The returned error is non-nil only when the scenario could
// not be executed at all; mismatches are reported in Result.
func (h *Harness) Run(scenario *Scenario) (*Result, error) {
	if scenario == nil {
		return nil, fmt.Errorf("nil scenario")
	}

	opts := []querysql.Option{querysql.WithColumn(h.column)}
	if scenario.MaxDepth > 0 {
		opts = append(opts, querysql.WithMaxDepth(scenario.MaxDepth))
	}
	splitter, err := querysql.NewSplitter(opts...)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	result := NewResult(scenario.Name)
	split, err := splitter.Split(scenario.Query)
	if err != nil {
		h.checkError(scenario, result, err)
	} else {
		h.checkSplit(scenario, result, split)
	}

	h.logger.Debug("scenario finished",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"fragments", len(result.Fragments),
		"error_code", result.ErrorCode)
	return result, nil
}

// RunAll runs every scenario in order.
func (h *Harness) RunAll(scenarios []*Scenario) ([]*Result, error) {
	results := make([]*Result, 0, len(scenarios))
	for _, s := range scenarios {
		r, err := h.Run(s)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}

func (h *Harness) checkError(scenario *Scenario, result *Result, err error) {
	code, ok := queryir.SplitErrorCodeOf(err)
	if !ok {
		result.AddError(fmt.Sprintf("split failed without a code: %v", err))
		return
	}
	result.ErrorCode = string(code)

	switch {
	case scenario.Error == "":
		result.AddError(fmt.Sprintf("unexpected error: %v", err))
	case scenario.Error != string(code):
		result.AddError(fmt.Sprintf("error code = %s, expected %s (%v)", code, scenario.Error, err))
	}
}

func (h *Harness) checkSplit(scenario *Scenario, result *Result, split *querysql.Split) {
	result.Residual = split.Residual
	result.Fragments = split.Fragments

	if scenario.Error != "" {
		result.AddError(fmt.Sprintf("expected error %s, split succeeded", scenario.Error))
		return
	}

	got, err := ir.MarshalCompact(split.Residual)
	if err != nil {
		result.AddError(fmt.Sprintf("encode residual: %v", err))
		return
	}
	want, err := ir.MarshalCompact(scenario.Residual)
	if err != nil {
		result.AddError(fmt.Sprintf("encode expected residual: %v", err))
		return
	}
	if string(got) != string(want) {
		result.AddError(fmt.Sprintf("residual = %s, expected %s", got, want))
	}

	if len(split.Fragments) != len(scenario.Fragments) {
		result.AddError(fmt.Sprintf("got %d fragments, expected %d", len(split.Fragments), len(scenario.Fragments)))
	}
	for i := 0; i < len(split.Fragments) && i < len(scenario.Fragments); i++ {
		if split.Fragments[i] != scenario.Fragments[i] {
			result.AddError(fmt.Sprintf("fragment[%d] = %q, expected %q", i, split.Fragments[i], scenario.Fragments[i]))
		}
	}

	if len(split.Comparisons) != len(split.Fragments) {
		result.AddError(fmt.Sprintf("%d comparisons for %d fragments", len(split.Comparisons), len(split.Fragments)))
	}
	if err := queryir.Validate(split.Predicate()); err != nil {
		result.AddError(fmt.Sprintf("split predicate invalid: %v", err))
	}
}
