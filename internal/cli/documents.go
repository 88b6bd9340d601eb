package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/bedquilt/internal/ir"
	"github.com/roach88/bedquilt/internal/queryir"
	"github.com/roach88/bedquilt/internal/querysql"
	"github.com/roach88/bedquilt/internal/store"
)

// StoreOpener opens a Store.
type StoreOpener func(ctx context.Context, cfg store.Config) (*store.Store, error)

// StoreOptions holds flags shared by commands that talk to PostgreSQL.
type StoreOptions struct {
	*RootOptions
}

// FindOptions holds flags for the find command.
type FindOptions struct {
	*StoreOptions
	Limit int
	Skip  int
	One   bool
	ID    string
}

// RemoveOptions holds flags for the remove command.
type RemoveOptions struct {
	*StoreOptions
	One bool
	ID  string
}

// FindOutput is the JSON payload of the find command.
type FindOutput struct {
	Documents []ir.Document `json:"documents"`
	Count     int           `json:"count"`
}

func newStoreOptions(rootOpts *RootOptions) *StoreOptions {
	return &StoreOptions{RootOptions: rootOpts}
}

func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("dsn", "", "PostgreSQL connection string (overrides database.dsn)")
	cmd.Flags().Int("max-depth", querysql.DefaultMaxDepth, "maximum query nesting depth (overrides split.max_depth)")
}

// NewFindCommand creates the find command.
func NewFindCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FindOptions{StoreOptions: newStoreOptions(rootOpts)}

	cmd := &cobra.Command{
		Use:   "find <collection> [query]",
		Short: "Find documents matching a query",
		Long: `Find documents in a collection, oldest first.

The query is a .json, .yaml, .yml or .cue file, "-" for stdin, or an inline
JSON object. Omitting it matches every document. A missing collection yields
no documents.

Examples:
  bedquilt find people '{"age": {"$gte": 18}}' --limit 10
  bedquilt find people --id 4f1c2a
  bedquilt find people query.cue --one --format json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(opts, args, cmd)
		},
	}

	addStoreFlags(cmd)
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum documents to return (0 = all)")
	cmd.Flags().IntVar(&opts.Skip, "skip", 0, "documents to skip")
	cmd.Flags().BoolVar(&opts.One, "one", false, "return only the first match")
	cmd.Flags().StringVar(&opts.ID, "id", "", "find by _id instead of a query")

	return cmd
}

func runFind(opts *FindOptions, args []string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	if opts.ID != "" && len(args) > 1 {
		return NewExitError(ExitCommandError, "--id cannot be combined with a query")
	}

	ctx := commandContext(cmd)
	s, err := opts.openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeStore(s, opts.logger())

	collection := args[0]
	var docs []ir.Document
	switch {
	case opts.ID != "":
		doc, found, err := s.FindOneByID(ctx, collection, opts.ID)
		if err != nil {
			return reportStoreError(out, "find failed", err)
		}
		if found {
			docs = append(docs, doc)
		}
	default:
		query, err := opts.loadQuery(cmd, args)
		if err != nil {
			return err
		}
		if opts.One {
			doc, found, err := s.FindOne(ctx, collection, query)
			if err != nil {
				return reportStoreError(out, "find failed", err)
			}
			if found {
				docs = append(docs, doc)
			}
		} else {
			docs, err = s.Find(ctx, collection, query, store.FindOptions{Limit: opts.Limit, Skip: opts.Skip})
			if err != nil {
				return reportStoreError(out, "find failed", err)
			}
		}
	}
	opts.logger().Debug("find complete", "collection", collection, "documents", len(docs))

	if docs == nil {
		docs = []ir.Document{}
	}
	if opts.Format == "json" {
		return out.Success(FindOutput{Documents: docs, Count: len(docs)})
	}
	lines := make([]string, 0, len(docs))
	for _, doc := range docs {
		data, err := ir.MarshalJSONB(doc)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to encode document", err)
		}
		lines = append(lines, string(data))
	}
	if len(lines) == 0 {
		return out.Success("No documents found.")
	}
	return out.Success(strings.Join(lines, "\n"))
}

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	opts := newStoreOptions(rootOpts)

	cmd := &cobra.Command{
		Use:   "count <collection> [query]",
		Short: "Count documents matching a query",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			ctx := commandContext(cmd)
			s, err := opts.openStore(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeStore(s, opts.logger())

			query, err := opts.loadQuery(cmd, args)
			if err != nil {
				return err
			}
			n, err := s.Count(ctx, args[0], query)
			if err != nil {
				return reportStoreError(out, "count failed", err)
			}
			if opts.Format == "json" {
				return out.Success(map[string]int64{"count": n})
			}
			return out.Success(n)
		},
	}

	addStoreFlags(cmd)
	return cmd
}

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RemoveOptions{StoreOptions: newStoreOptions(rootOpts)}

	cmd := &cobra.Command{
		Use:   "remove <collection> [query]",
		Short: "Remove documents matching a query",
		Long: `Remove documents from a collection.

With --one only the oldest match is removed. With --id the document with that
_id is removed. Omitting the query removes every document.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(opts, args, cmd)
		},
	}

	addStoreFlags(cmd)
	cmd.Flags().BoolVar(&opts.One, "one", false, "remove only the first match")
	cmd.Flags().StringVar(&opts.ID, "id", "", "remove by _id instead of a query")

	return cmd
}

func runRemove(opts *RemoveOptions, args []string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	if opts.ID != "" && len(args) > 1 {
		return NewExitError(ExitCommandError, "--id cannot be combined with a query")
	}

	ctx := commandContext(cmd)
	s, err := opts.openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeStore(s, opts.logger())

	collection := args[0]
	var removed int64
	switch {
	case opts.ID != "":
		ok, err := s.RemoveOneByID(ctx, collection, opts.ID)
		if err != nil {
			return reportStoreError(out, "remove failed", err)
		}
		if ok {
			removed = 1
		}
	default:
		query, err := opts.loadQuery(cmd, args)
		if err != nil {
			return err
		}
		if opts.One {
			removed, err = s.RemoveOne(ctx, collection, query)
		} else {
			removed, err = s.Remove(ctx, collection, query)
		}
		if err != nil {
			return reportStoreError(out, "remove failed", err)
		}
	}

	if opts.Format == "json" {
		return out.Success(map[string]int64{"removed": removed})
	}
	return out.Success(fmt.Sprintf("Removed %d document(s).", removed))
}

// NewInsertCommand creates the insert command.
func NewInsertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := newStoreOptions(rootOpts)

	cmd := &cobra.Command{
		Use:   "insert <collection> <document>",
		Short: "Insert a document",
		Long: `Insert one document, creating the collection if needed.

A document without _id is given a random UUID. The _id is printed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			doc, err := (&DocumentLoader{Stdin: cmd.InOrStdin()}).Load(args[1])
			if err != nil {
				_ = out.Error(loadErrorCode(err), err.Error(), nil)
				return WrapExitError(ExitCommandError, "failed to load document", err)
			}

			ctx := commandContext(cmd)
			s, err := opts.openStore(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeStore(s, opts.logger())

			id, err := s.Insert(ctx, args[0], doc)
			if err != nil {
				return reportStoreError(out, "insert failed", err)
			}
			if opts.Format == "json" {
				return out.Success(map[string]string{"_id": id})
			}
			return out.Success(id)
		},
	}

	addStoreFlags(cmd)
	return cmd
}

// openStore loads configuration and opens the store.
func (o *StoreOptions) openStore(ctx context.Context, cmd *cobra.Command) (*store.Store, error) {
	out := o.formatter(cmd)
	cfg, err := LoadConfig(o.ConfigPath, cmd.Flags())
	if err != nil {
		_ = out.Error(ErrCodeConfig, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if cfg.Database.DSN == "" && o.OpenStore == nil {
		msg := "no database configured: set --dsn, database.dsn or " + EnvPrefix + "_DATABASE_DSN"
		_ = out.Error(ErrCodeConfig, msg, nil)
		return nil, NewExitError(ExitCommandError, msg)
	}

	storeCfg := cfg.StoreConfig()
	storeCfg.Logger = o.logger()

	open := o.OpenStore
	if open == nil {
		open = store.Open
	}
	o.logger().Debug("opening store", "max_conns", storeCfg.MaxConns, "max_depth", storeCfg.MaxDepth)
	s, err := open(ctx, storeCfg)
	if err != nil {
		_ = out.Error(ErrCodeDatabase, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}
	return s, nil
}

// loadQuery reads the optional query argument. A missing query matches
// everything.
func (o *StoreOptions) loadQuery(cmd *cobra.Command, args []string) (ir.Document, error) {
	if len(args) < 2 {
		return ir.Document{}, nil
	}
	query, err := (&DocumentLoader{Stdin: cmd.InOrStdin()}).Load(args[1])
	if err != nil {
		_ = o.formatter(cmd).Error(loadErrorCode(err), err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to load query", err)
	}
	return query, nil
}

// reportStoreError writes a store failure. Rejected queries exit with
// ExitFailure; everything else is a command error.
func reportStoreError(out *OutputFormatter, message string, err error) error {
	if _, ok := queryir.SplitErrorCodeOf(err); ok {
		reportSplitError(out, err)
		return WrapExitError(ExitFailure, "query rejected", err)
	}
	code := ErrCodeDatabase
	if errors.Is(err, store.ErrInvalidID) || errors.Is(err, store.ErrDuplicateID) {
		code = ErrCodeGeneric
	}
	_ = out.Error(code, err.Error(), nil)
	return WrapExitError(ExitCommandError, message, err)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
