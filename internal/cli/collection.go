package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/bedquilt/internal/store"
)

// NewCollectionCommand creates the collection command and its subcommands.
func NewCollectionCommand(rootOpts *RootOptions) *cobra.Command {
	opts := newStoreOptions(rootOpts)

	cmd := &cobra.Command{
		Use:   "collection",
		Short: "Manage collections",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			ctx := commandContext(cmd)
			s, err := opts.openStore(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeStore(s, opts.logger())

			names, err := s.ListCollections(ctx)
			if err != nil {
				return reportStoreError(out, "list failed", err)
			}
			if opts.Format == "json" {
				return out.Success(map[string][]string{"collections": names})
			}
			if len(names) == 0 {
				return out.Success("No collections.")
			}
			return out.Success(strings.Join(names, "\n"))
		},
	}

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			ctx := commandContext(cmd)
			s, err := opts.openStore(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeStore(s, opts.logger())

			created, err := s.CreateCollection(ctx, args[0])
			if err != nil {
				return reportStoreError(out, "create failed", err)
			}
			if opts.Format == "json" {
				return out.Success(map[string]bool{"created": created})
			}
			if !created {
				return out.Success(fmt.Sprintf("Collection %s already exists.", args[0]))
			}
			return out.Success(fmt.Sprintf("Created collection %s.", args[0]))
		},
	}

	drop := &cobra.Command{
		Use:   "drop <name>",
		Short: "Delete a collection and its documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := opts.formatter(cmd)
			ctx := commandContext(cmd)
			s, err := opts.openStore(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeStore(s, opts.logger())

			deleted, err := s.DeleteCollection(ctx, args[0])
			if err != nil {
				return reportStoreError(out, "drop failed", err)
			}
			if opts.Format == "json" {
				return out.Success(map[string]bool{"deleted": deleted})
			}
			if !deleted {
				return out.Success(fmt.Sprintf("Collection %s does not exist.", args[0]))
			}
			return out.Success(fmt.Sprintf("Deleted collection %s.", args[0]))
		},
	}

	for _, sub := range []*cobra.Command{list, create, drop} {
		addStoreFlags(sub)
		cmd.AddCommand(sub)
	}
	return cmd
}

func closeStore(s *store.Store, logger *slog.Logger) {
	if err := s.Close(); err != nil {
		logger.Error("error closing store", "error", err)
	}
}
