package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/layoutdb/internal/config"
)

// Version is set at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string // "json" | "text"
	ConfigDir string
	DataDir   string
	Driver    string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the layoutdb CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "layoutdb",
		Short: "layoutdb - home-screen layout store",
		Long: `Manage a home-screen layout store: items, folders, widgets and the
screens that hold them.

The store is a SQLite database that is migrated to the current schema
on open. Layouts can be loaded from a built-in default, a partner CUE
file, a device-policy YAML file, or imported from an older launcher.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			configureLogging(opts.Verbose)
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", defaultConfigDir(), "directory holding layoutdb.yaml")
	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "directory holding the store (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "sqlite driver: sqlite3 or sqlite (overrides config)")

	// Add subcommands
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewNewIDCommand(opts))
	cmd.AddCommand(NewItemsCommand(opts))
	cmd.AddCommand(NewScreensCommand(opts))
	cmd.AddCommand(NewImportLegacyCommand(opts))
	cmd.AddCommand(NewLoadLayoutCommand(opts))
	cmd.AddCommand(NewRebuildRanksCommand(opts))
	cmd.AddCommand(NewConvertShortcutsCommand(opts))
	cmd.AddCommand(NewDeleteEmptyFoldersCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewClearFirstRunCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func configureLogging(verbose bool) {
	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

func defaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "layoutdb")
}

// loadConfig resolves configuration and applies flag overrides.
func (o *RootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.ConfigDir)
	if err != nil {
		return config.Config{}, err
	}
	if o.DataDir != "" {
		cfg.DataDir = o.DataDir
	}
	if o.Driver != "" {
		cfg.Driver = o.Driver
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	format := o.Format
	if format == "" {
		format = "text"
	}
	return &OutputFormatter{
		Format:    format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}
