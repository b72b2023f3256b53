package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SheetMetalConnect/eryxon-flow-sub004/internal/config"
	"github.com/SheetMetalConnect/eryxon-flow-sub004/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	Tenant     string
	ConfigPath string
	DB         string // overrides the configured SQLite path
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the eryxon-flow CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "eryxon-flow",
		Short: "Expectation and exception tracking for manufacturing entities",
		Long: "Records versioned beliefs about what should happen to jobs, operations,\n" +
			"parts, and shipments, and tracks exceptions when reality diverges.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Tenant, "tenant", "", "tenant scope (required by most commands)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "SQLite database path (overrides config)")

	// Add subcommands
	cmd.AddCommand(NewExpectCommand(opts))
	cmd.AddCommand(NewExceptionCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewObserveCommand(opts))
	cmd.AddCommand(NewSweepCommand(opts))

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

// loadConfig resolves the effective configuration from flags and file.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if opts.DB != "" {
		cfg.Database.Driver = "sqlite"
		cfg.Database.Path = opts.DB
	}
	return cfg, nil
}

// openStore opens the configured storage backend.
func openStore(opts *RootOptions) (*store.Store, config.Config, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, config.Config{}, err
	}

	var s *store.Store
	switch cfg.Database.Driver {
	case "postgres":
		s, err = store.OpenPostgres(cfg.Database.DSN)
	default:
		s, err = store.Open(cfg.Database.Path)
	}
	if err != nil {
		return nil, config.Config{}, WrapExitError(ExitCommandError, "open store", err)
	}
	return s, cfg, nil
}
