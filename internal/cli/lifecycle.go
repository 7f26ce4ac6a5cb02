package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/layoutdb/internal/loader"
	"github.com/roach88/layoutdb/internal/provider"
	"github.com/roach88/layoutdb/internal/store"
)

// withSession opens the configured store, runs fn and closes it.
func withSession(opts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, s *session, f *OutputFormatter) error) error {
	f := opts.formatter(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openSession(ctx, opts, f)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s, f)
}

// InitResult is the JSON payload of the init command.
type InitResult struct {
	Path      string        `json:"path"`
	Version   int           `json:"version"`
	Created   bool          `json:"created"`
	Recreated bool          `json:"recreated"`
	Loaded    bool          `json:"loaded"`
	Origin    loader.Origin `json:"origin,omitempty"`
	Items     int           `json:"items"`
	Screens   int           `json:"screens"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create or open the store and load a first-run layout",
		Long: `Create the layout store if needed, migrate it to the current schema,
and load a first-run layout when the store is empty.

Example:
  layoutdb init
  layoutdb init --data-dir /tmp/launcher --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, runInit)
		},
	}
}

func runInit(ctx context.Context, s *session, f *OutputFormatter) error {
	res, err := s.provider.LoadInitialLayout(ctx, provider.Owner)
	if err != nil {
		return f.fail(ExitFailure, ErrCodeOperation, "cannot load initial layout", err)
	}
	version, err := s.store.Version(ctx)
	if err != nil {
		return f.fail(ExitFailure, ErrCodeOperation, "cannot read schema version", err)
	}

	out := s.store.Outcome()
	result := InitResult{
		Path:      s.cfg.DatabasePath(),
		Version:   version,
		Created:   out.Created,
		Recreated: out.Recreated,
		Loaded:    res.Loaded,
		Origin:    res.Origin,
		Items:     res.Layout.Items,
		Screens:   len(res.Layout.Screens),
	}
	return f.Result(result, func(w io.Writer) {
		okColor.Fprint(w, "✓ ")
		fmt.Fprintf(w, "store ready: %s (schema %d)\n", result.Path, result.Version)
		if result.Loaded {
			fmt.Fprintf(w, "  loaded %s layout: %d items on %d screens\n", result.Origin, result.Items, result.Screens)
		}
	})
}

// MigrateResult is the JSON payload of the migrate command.
type MigrateResult struct {
	From      int    `json:"from"`
	To        int    `json:"to"`
	Created   bool   `json:"created"`
	Recreated bool   `json:"recreated"`
	Error     string `json:"error,omitempty"`
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring the store to the current schema version",
		Long: `Open the store, running every migration step from its persisted
version to the current one. A failed step, a version newer than this
build, or one older than the oldest supported baseline recreates the
store empty.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, runMigrate)
		},
	}
}

func runMigrate(_ context.Context, s *session, f *OutputFormatter) error {
	out := s.store.Outcome()
	result := MigrateResult{From: out.From, To: out.To, Created: out.Created, Recreated: out.Recreated}
	if out.Err != nil {
		result.Error = out.Err.Error()
	}
	return f.Result(result, func(w io.Writer) {
		switch {
		case out.Created:
			okColor.Fprint(w, "✓ ")
			fmt.Fprintf(w, "created store at schema %d\n", out.To)
		case out.Recreated:
			warnColor.Fprint(w, "! ")
			fmt.Fprintf(w, "recreated store at schema %d (was %d)\n", out.To, out.From)
		case out.From == out.To:
			okColor.Fprint(w, "✓ ")
			fmt.Fprintf(w, "already at schema %d\n", out.To)
		default:
			okColor.Fprint(w, "✓ ")
			fmt.Fprintf(w, "migrated %d → %d\n", out.From, out.To)
		}
	})
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "version",
		Short:         "Print the build and schema versions",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			data := map[string]any{"version": Version, "schema": store.CurrentVersion}
			return f.Result(data, func(w io.Writer) {
				fmt.Fprintf(w, "layoutdb %s (schema %d)\n", Version, store.CurrentVersion)
			})
		},
	}
}
