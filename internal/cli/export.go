package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tsvdb/tsvdb"
)

// newExportCommand creates the export command.
func newExportCommand() *cobra.Command {
	var (
		format      string
		compression string
		outputDir   string
	)
	cmd := &cobra.Command{
		Use:   "export [paths...]",
		Short: "Export the loaded store",
		Long: `Load the dataset and export the resolved store.

Formats:
  tsv      one loadable TSV file per table (supports --compression)
  sqlite   one SQLite database file
  parquet  one Parquet file per DB-style table`,
		Example: `  # Export as plain TSV files
  tsvdb export --out ./output

  # Export as gzip-compressed TSV files
  tsvdb export --format tsv --compression gz --out ./output

  # Export into a SQLite database
  tsvdb export --format sqlite --out ./output`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context(), args)
			if err != nil {
				return err
			}
			slog.Debug("exporting store", "format", format, "out", outputDir)

			switch format {
			case "tsv":
				comp, err := parseCompression(compression)
				if err != nil {
					return err
				}
				return store.ExportTSV(outputDir, tsvdb.NewExportOptions().WithCompression(comp))
			case "sqlite":
				if err := os.MkdirAll(outputDir, 0o750); err != nil {
					return err
				}
				return store.ExportSQLite(cmd.Context(), filepath.Join(outputDir, "dataset.db"))
			case "parquet":
				return store.ExportParquet(cmd.Context(), outputDir)
			default:
				return fmt.Errorf("unknown export format %q (want tsv, sqlite, or parquet)", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "tsv", "export format (tsv|sqlite|parquet)")
	cmd.Flags().StringVar(&compression, "compression", "none", "TSV compression (none|gz|xz|zstd)")
	cmd.Flags().StringVar(&outputDir, "out", "./output", "output directory")
	return cmd
}

// parseCompression maps the flag value to a compression type.
func parseCompression(name string) (tsvdb.CompressionType, error) {
	switch name {
	case "none", "":
		return tsvdb.CompressionNone, nil
	case "gz", "gzip":
		return tsvdb.CompressionGZ, nil
	case "xz":
		return tsvdb.CompressionXZ, nil
	case "zstd", "zst":
		return tsvdb.CompressionZSTD, nil
	default:
		return tsvdb.CompressionNone, fmt.Errorf("unknown compression %q", name)
	}
}
