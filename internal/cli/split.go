package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/bedquilt/internal/ir"
	"github.com/roach88/bedquilt/internal/queryir"
	"github.com/roach88/bedquilt/internal/querysql"
)

// SplitOptions holds flags for the split command.
type SplitOptions struct {
	*RootOptions
	Column     string
	Collection string // when set, also print the compiled select
	Limit      int
	Skip       int
}

// SplitOutput is the JSON payload of the split command.
type SplitOutput struct {
	Residual  ir.Document `json:"residual"`
	Fragments []string    `json:"fragments"`
	SQL       string      `json:"sql,omitempty"`
	Params    []any       `json:"params,omitempty"`
}

// NewSplitCommand creates the split command.
func NewSplitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SplitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "split <query>",
		Short: "Split a query into a residual document and SQL fragments",
		Long: `Split a query document without touching a database.

The query is a .json, .yaml, .yml or .cue file, "-" for stdin, or an inline
JSON object. The residual document is printed first, then one fragment per
line. With --collection the full parameterized select is printed as well.

Exit codes:
  0 - Query split
  1 - Query rejected (unsupported operator, invalid operand, ...)
  2 - Command error (unreadable input, bad flags)

Examples:
  bedquilt split '{"age": {"$gte": 18}, "name": "sarah"}'
  bedquilt split query.yaml --collection people --limit 10
  cat query.json | bedquilt split - --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSplit(opts, args[0], cmd)
		},
	}

	cmd.Flags().Int("max-depth", querysql.DefaultMaxDepth, "maximum query nesting depth (overrides split.max_depth)")
	cmd.Flags().StringVar(&opts.Column, "column", querysql.DefaultColumn, "jsonb document column name")
	cmd.Flags().StringVar(&opts.Collection, "collection", "", "also compile a select over this collection")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "select limit (0 = none)")
	cmd.Flags().IntVar(&opts.Skip, "skip", 0, "select offset")

	return cmd
}

func runSplit(opts *SplitOptions, arg string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	cfg, err := LoadConfig(opts.ConfigPath, cmd.Flags())
	if err != nil {
		_ = out.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	query, err := (&DocumentLoader{Stdin: cmd.InOrStdin()}).Load(arg)
	if err != nil {
		_ = out.Error(loadErrorCode(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load query", err)
	}

	splitter, err := querysql.NewSplitter(
		querysql.WithMaxDepth(cfg.Split.MaxDepth),
		querysql.WithColumn(opts.Column),
	)
	if err != nil {
		_ = out.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid splitter options", err)
	}

	split, err := splitter.Split(query)
	if err != nil {
		reportSplitError(out, err)
		return WrapExitError(ExitFailure, "query rejected", err)
	}
	opts.logger().Debug("query split",
		"fragments", len(split.Fragments),
		"comparisons", len(split.Comparisons))

	result := SplitOutput{Residual: split.Residual, Fragments: split.Fragments}
	if opts.Collection != "" {
		compiler := &querysql.SQLCompiler{Column: opts.Column}
		sql, params, err := compiler.Select(opts.Collection, split, querysql.SelectOptions{
			Limit: opts.Limit,
			Skip:  opts.Skip,
		})
		if err != nil {
			_ = out.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to compile select", err)
		}
		result.SQL = sql
		result.Params = params
	}

	if opts.Format == "json" {
		return out.Success(result)
	}
	return out.Success(formatSplitText(result))
}

func formatSplitText(result SplitOutput) string {
	residual, err := ir.MarshalJSONB(result.Residual)
	if err != nil {
		residual = []byte(fmt.Sprintf("<%v>", err))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "residual: %s\n", residual)
	fmt.Fprintf(&b, "fragments: %d", len(result.Fragments))
	for _, f := range result.Fragments {
		fmt.Fprintf(&b, "\n  %s", f)
	}
	if result.SQL != "" {
		fmt.Fprintf(&b, "\nsql: %s", result.SQL)
		for i, p := range result.Params {
			fmt.Fprintf(&b, "\n  $%d = %v", i+1, p)
		}
	}
	return b.String()
}

// reportSplitError writes a split failure with its SplitError code and path.
func reportSplitError(out *OutputFormatter, err error) {
	code, ok := queryir.SplitErrorCodeOf(err)
	if !ok {
		_ = out.Error(ErrCodeGeneric, err.Error(), nil)
		return
	}
	var details any
	var splitErr *queryir.SplitError
	if errors.As(err, &splitErr) && len(splitErr.Path) > 0 {
		details = map[string]any{"path": []string(splitErr.Path)}
	}
	_ = out.Error(string(code), err.Error(), details)
}
