package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/layoutdb/internal/provider"
	"github.com/roach88/layoutdb/internal/snapshot"
)

// SnapshotResult is the JSON payload of export and import.
type SnapshotResult struct {
	Path     string `json:"path,omitempty"`
	ExportID string `json:"export_id"`
	Version  int    `json:"version"`
	Screens  int    `json:"screens"`
	Items    int    `json:"items"`
}

func snapshotResult(path string, st snapshot.Stats) SnapshotResult {
	return SnapshotResult{
		Path:     path,
		ExportID: st.Header.ExportID,
		Version:  st.Header.Version,
		Screens:  st.Screens,
		Items:    st.Items,
	}
}

// ExportOptions holds flags for export.
type ExportOptions struct {
	*RootOptions
	Output string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a JSONL snapshot of every screen and item",
		Long: `Write a snapshot of the store: a header line, then one line per
screen and one per item.

Example:
  layoutdb export -o layout.jsonl
  layoutdb export > layout.jsonl`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session, f *OutputFormatter) error {
				return runExport(ctx, s, f, opts, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "snapshot file (default stdout)")
	return cmd
}

func runExport(ctx context.Context, s *session, f *OutputFormatter, opts *ExportOptions, stdout io.Writer) error {
	if opts.Output == "" {
		if _, err := s.provider.Export(ctx, stdout, snapshot.Exporter{}); err != nil {
			return f.fail(ExitFailure, ErrCodeOperation, "export failed", err)
		}
		return nil
	}

	file, err := os.Create(opts.Output)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeInput, "cannot create output file", err)
	}
	st, err := s.provider.Export(ctx, file, snapshot.Exporter{})
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return f.fail(ExitFailure, ErrCodeOperation, "export failed", err)
	}
	result := snapshotResult(opts.Output, st)
	return f.Done(result, "exported %d screens and %d items to %s", result.Screens, result.Items, result.Path)
}

// ImportOptions holds flags for import.
type ImportOptions struct {
	*RootOptions
	Replace bool
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load a snapshot written by export",
		Long: `Load a snapshot into the store in one transaction. The store must be
empty unless --replace is given, which discards every existing row.

Example:
  layoutdb import layout.jsonl
  layoutdb import --replace layout.jsonl`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session, f *OutputFormatter) error {
				return runImport(ctx, s, f, opts, args[0])
			})
		},
	}
	cmd.Flags().BoolVar(&opts.Replace, "replace", false, "discard existing rows first")
	return cmd
}

func runImport(ctx context.Context, s *session, f *OutputFormatter, opts *ImportOptions, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeInput, "cannot open snapshot", err)
	}
	defer file.Close()

	st, err := s.provider.Import(ctx, provider.Owner, file, snapshot.ImportOptions{Replace: opts.Replace})
	if err != nil {
		return f.fail(ExitFailure, ErrCodeOperation, fmt.Sprintf("import of %s failed", path), err)
	}
	result := snapshotResult(path, st)
	return f.Done(result, "imported %d screens and %d items from %s", result.Screens, result.Items, path)
}
