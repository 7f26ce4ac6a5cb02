package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/layoutdb/internal/legacy"
	"github.com/roach88/layoutdb/internal/loader"
	"github.com/roach88/layoutdb/internal/provider"
)

// NewNewIDCommand creates the new-id command.
func NewNewIDCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "new-id <item|screen>",
		Short: "Issue a fresh item or screen id",
		Long: `Issue a fresh id from the allocator. Ids issued here are not
persisted until a row uses them; the next open derives the watermark
from the rows on disk again.`,
		Args:          cobra.ExactArgs(1),
		ValidArgs:     []string{"item", "screen"},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session, f *OutputFormatter) error {
				var (
					id  int64
					err error
				)
				switch args[0] {
				case "item":
					id, err = s.provider.NewItemID(provider.Owner)
				case "screen":
					id, err = s.provider.NewScreenID(provider.Owner)
				default:
					return f.fail(ExitCommandError, ErrCodeInput, fmt.Sprintf("unknown id kind %q (want item or screen)", args[0]), nil)
				}
				if err != nil {
					return f.fail(ExitFailure, ErrCodeOperation, "cannot issue id", err)
				}
				return f.Result(map[string]any{"kind": args[0], "id": id}, func(w io.Writer) {
					fmt.Fprintln(w, id)
				})
			})
		},
	}
}

// ImportLegacyResult is the JSON payload of the import-legacy command.
type ImportLegacyResult struct {
	Source  string         `json:"source"`
	Items   int            `json:"items"`
	Screens int            `json:"screens"`
	Skipped map[string]int `json:"skipped,omitempty"`
}

// NewImportLegacyCommand creates the import-legacy command.
func NewImportLegacyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import-legacy [path]",
		Short: "Replace the layout with one read from an older launcher database",
		Long: `Replace the whole layout with the favorites of an older launcher
database. Duplicate desktop apps are dropped and overflow is moved to new
screens. When nothing can be imported the default layout is loaded.

The path defaults to legacy_path from the config file.

Example:
  layoutdb import-legacy ~/backup/launcher.db`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session, f *OutputFormatter) error {
				path := s.cfg.LegacyPath
				if len(args) == 1 {
					path = args[0]
				}
				if path == "" {
					return f.fail(ExitCommandError, ErrCodeInput, "no legacy database given", nil)
				}
				return runImportLegacy(ctx, s, f, path)
			})
		},
	}
}

func runImportLegacy(ctx context.Context, s *session, f *OutputFormatter, path string) error {
	src := legacy.SQLiteSource{Path: path, Driver: s.cfg.Driver}
	res, err := s.provider.MigrateLegacyShortcuts(ctx, provider.Owner, src)
	if err != nil {
		return f.fail(ExitFailure, ErrCodeOperation, "legacy import failed", err)
	}
	if res.Items == 0 {
		f.Warn("nothing imported from %s, default layout loaded", path)
	}
	result := ImportLegacyResult{Source: path, Items: res.Items, Screens: res.Screens, Skipped: res.Skipped}
	return f.Result(result, func(w io.Writer) {
		okColor.Fprint(w, "✓ ")
		fmt.Fprintf(w, "imported %d items on %d screens from %s\n", result.Items, result.Screens, path)
		for reason, n := range result.Skipped {
			fmt.Fprintf(w, "  skipped %d (%s)\n", n, reason)
		}
	})
}

// LoadLayoutOptions holds flags for load-layout.
type LoadLayoutOptions struct {
	*RootOptions
	Force bool
}

// LoadLayoutResult is the JSON payload of the load-layout command.
type LoadLayoutResult struct {
	Loaded  bool          `json:"loaded"`
	Origin  loader.Origin `json:"origin,omitempty"`
	Items   int           `json:"items"`
	Screens []int64       `json:"screens"`
}

// NewLoadLayoutCommand creates the load-layout command.
func NewLoadLayoutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadLayoutOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "load-layout",
		Short: "Load the first-run layout if one is pending",
		Long: `Load a first-run layout. The restriction layout is tried first, then
a partner layout, then the built-in default. Without --force nothing
happens unless the store was created empty.

Example:
  layoutdb load-layout
  layoutdb load-layout --force`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session, f *OutputFormatter) error {
				return runLoadLayout(ctx, s, f, opts)
			})
		},
	}
	cmd.Flags().BoolVar(&opts.Force, "force", false, "discard the current layout first")
	return cmd
}

func runLoadLayout(ctx context.Context, s *session, f *OutputFormatter, opts *LoadLayoutOptions) error {
	if opts.Force {
		if err := s.provider.CreateEmptyStore(ctx, provider.Owner); err != nil {
			return f.fail(ExitFailure, ErrCodeOperation, "cannot reset store", err)
		}
	}
	res, err := s.provider.LoadInitialLayout(ctx, provider.Owner)
	if err != nil {
		return f.fail(ExitFailure, ErrCodeOperation, "cannot load layout", err)
	}
	screens := res.Layout.Screens
	if screens == nil {
		screens = []int64{}
	}
	result := LoadLayoutResult{Loaded: res.Loaded, Origin: res.Origin, Items: res.Layout.Items, Screens: screens}
	return f.Result(result, func(w io.Writer) {
		if !result.Loaded {
			fmt.Fprintln(w, "no first-run load pending (use --force to replace the layout)")
			return
		}
		okColor.Fprint(w, "✓ ")
		fmt.Fprintf(w, "loaded %s layout: %d items on %d screens\n", result.Origin, result.Items, len(result.Screens))
	})
}

// NewRebuildRanksCommand creates the rebuild-ranks command.
func NewRebuildRanksCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "rebuild-ranks",
		Short:         "Recompute folder content ranks from grid position",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session, f *OutputFormatter) error {
				if err := s.provider.RebuildFolderRanks(ctx, provider.Owner); err != nil {
					return f.fail(ExitFailure, ErrCodeOperation, "cannot rebuild ranks", err)
				}
				return f.Done(map[string]any{"rebuilt": true}, "folder ranks rebuilt")
			})
		},
	}
}

// NewConvertShortcutsCommand creates the convert-shortcuts command.
func NewConvertShortcutsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "convert-shortcuts",
		Short:         "Turn shortcuts that launch an app into app items",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session, f *OutputFormatter) error {
				n, err := s.provider.ConvertShortcutsToApps(ctx, provider.Owner)
				if err != nil {
					return f.fail(ExitFailure, ErrCodeOperation, "cannot convert shortcuts", err)
				}
				return f.Done(map[string]any{"converted": n}, "converted %d shortcuts", n)
			})
		},
	}
}

// NewDeleteEmptyFoldersCommand creates the delete-empty-folders command.
func NewDeleteEmptyFoldersCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete-empty-folders",
		Short:         "Remove folders that hold no items",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session, f *OutputFormatter) error {
				ids, err := s.provider.DeleteEmptyFolders(ctx, provider.Owner)
				if err != nil {
					return f.fail(ExitFailure, ErrCodeOperation, "cannot delete empty folders", err)
				}
				return f.Done(map[string]any{"deleted": ids}, "deleted %d empty folders %v", len(ids), ids)
			})
		},
	}
}

// NewClearFirstRunCommand creates the clear-first-run command.
func NewClearFirstRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "clear-first-run",
		Short:         "Forget that the store was created empty",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session, f *OutputFormatter) error {
				pending := s.provider.FirstRunPending()
				if err := s.provider.ClearFirstRunFlag(provider.Owner); err != nil {
					return f.fail(ExitFailure, ErrCodeOperation, "cannot clear first-run flag", err)
				}
				return f.Done(map[string]any{"was_pending": pending}, "first-run flag cleared")
			})
		},
	}
}
