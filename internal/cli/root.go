// Package cli provides the command-line interface for tsvdb datasets.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tsvdb/tsvdb"
)

var (
	cfgFile string
	cfg     *Config
)

// Version information (set at build time).
var (
	Version = "0.1.0"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tsvdb",
		Short: "tsvdb - typed tabular dataset inspector",
		Long: `tsvdb loads tab-delimited data-definition files into a typed store
and lets you inspect and export the result.

Datasets are TSV files (optionally compressed) or Excel workbooks with
typed columns, defaults, units, and globally unique entity names.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			var err error
			cfg, err = LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			if cfg.Verbose {
				slog.SetLogLoggerLevel(slog.LevelDebug)
				if configFile := GetConfigFileUsed(); configFile != "" {
					slog.Debug("using config file", "path", configFile)
				}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./tsvdb.yaml)")
	rootCmd.PersistentFlags().StringSlice("paths", nil, "dataset files or directories to load")
	rootCmd.PersistentFlags().Bool("wiki_lookup", true, "collect wiki titles")
	rootCmd.PersistentFlags().String("wiki_field", "en.wiki", "column resolved into the wiki lookup")
	rootCmd.PersistentFlags().Bool("precision", true, "track significant digits of FLOAT cells")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newShowCommand())
	rootCmd.AddCommand(newExportCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// openStore loads the configured dataset.
func openStore(ctx context.Context, extraPaths []string) (*tsvdb.Store, error) {
	paths := append(append([]string{}, cfg.Paths...), extraPaths...)
	if len(paths) == 0 {
		return nil, fmt.Errorf("no dataset paths given; use --paths or a tsvdb.yaml")
	}

	builder := tsvdb.NewBuilder().
		AddPaths(paths...).
		WithWikiField(cfg.WikiField)
	if !cfg.WikiLookup {
		builder = builder.DisableWikiLookup()
	}
	if !cfg.Precision {
		builder = builder.DisablePrecision()
	}
	if len(cfg.Enumerations) > 0 {
		builder = builder.WithEnumerations(cfg.Enumerations)
	}

	slog.Debug("loading dataset", "paths", paths)
	validated, err := builder.Build(ctx)
	if err != nil {
		return nil, err
	}
	return validated.Open(ctx)
}
