package tsvdb

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// CompressionType represents the compression applied to exported files.
type CompressionType int

const (
	// CompressionNone represents no compression
	CompressionNone CompressionType = iota
	// CompressionGZ represents gzip compression
	CompressionGZ
	// CompressionXZ represents xz compression
	CompressionXZ
	// CompressionZSTD represents zstd compression
	CompressionZSTD
)

// String returns the string representation of CompressionType.
func (c CompressionType) String() string {
	switch c {
	case CompressionGZ:
		return "gz"
	case CompressionXZ:
		return "xz"
	case CompressionZSTD:
		return "zstd"
	default:
		return "none"
	}
}

// Extension returns the file extension for the compression type.
func (c CompressionType) Extension() string {
	switch c {
	case CompressionGZ:
		return extGZ
	case CompressionXZ:
		return extXZ
	case CompressionZSTD:
		return extZSTD
	default:
		return ""
	}
}

// ExportOptions configures how store tables are exported to files.
//
// Example:
//
//	options := tsvdb.NewExportOptions().WithCompression(tsvdb.CompressionGZ)
//	err := store.ExportTSV("./output", options)
type ExportOptions struct {
	// Compression specifies the compression type
	Compression CompressionType
}

// NewExportOptions creates default export options (no compression).
func NewExportOptions() ExportOptions {
	return ExportOptions{Compression: CompressionNone}
}

// WithCompression adds compression to output files.
func (o ExportOptions) WithCompression(compression CompressionType) ExportOptions {
	o.Compression = compression
	return o
}

// newCompressionWriter wraps a writer with the requested compression. The
// returned closer flushes the compressor but not the underlying writer.
func newCompressionWriter(w io.Writer, compression CompressionType) (io.Writer, func() error, error) {
	switch compression {
	case CompressionNone:
		return w, func() error { return nil }, nil
	case CompressionGZ:
		gzWriter := gzip.NewWriter(w)
		return gzWriter, gzWriter.Close, nil
	case CompressionXZ:
		xzWriter, err := xz.NewWriter(w)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create xz writer: %w", err)
		}
		return xzWriter, xzWriter.Close, nil
	case CompressionZSTD:
		zstdWriter, err := zstd.NewWriter(w)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		return zstdWriter, zstdWriter.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported compression type for writing: %v", compression)
	}
}

// ExportTSV writes every table to outputDir, one file per table. The output
// is loadable by this package; FLOAT values are written in internal units,
// so no Unit header row is emitted.
//
// Example usage:
//
//	// Default: plain TSV files
//	err := store.ExportTSV("./output")
//
//	// Gzip-compressed TSV files
//	err := store.ExportTSV("./output", tsvdb.NewExportOptions().WithCompression(tsvdb.CompressionGZ))
func (s *Store) ExportTSV(outputDir string, opts ...ExportOptions) error {
	options := NewExportOptions()
	if len(opts) > 0 {
		options = opts[0]
	}
	if len(s.order) == 0 {
		return ErrNoTables
	}
	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, name := range s.order {
		t := s.tables[name]
		path := filepath.Join(outputDir, name+extTSV+options.Compression.Extension())
		if err := exportTableTSV(t, path, options.Compression); err != nil {
			return fmt.Errorf("failed to export table %q: %w", name, err)
		}
	}
	return nil
}

// exportTableTSV writes one table to one file.
func exportTableTSV(t *Table, path string, compression CompressionType) error {
	f, err := os.Create(path) //nolint:gosec // Caller-provided output path.
	if err != nil {
		return err
	}
	writer, closeCompression, err := newCompressionWriter(f, compression)
	if err != nil {
		_ = f.Close()
		return err
	}

	writeErr := writeTableTSV(writer, t)
	if err := closeCompression(); err != nil && writeErr == nil {
		writeErr = err
	}
	if err := f.Close(); err != nil && writeErr == nil {
		writeErr = err
	}
	return writeErr
}

// writeTableTSV renders the table body in loadable form.
func writeTableTSV(w io.Writer, t *Table) error {
	var b strings.Builder
	b.WriteString(directivePrefix + t.format.String() + "\n")

	switch t.format {
	case FormatEnumeration:
		for _, name := range t.names {
			b.WriteString(name + "\n")
		}
	case FormatEnumXEnum:
		writeGridTSV(&b, t)
	default:
		writeDBTableTSV(&b, t)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// writeDBTableTSV renders the field-name header row, the Type row and the
// content rows of a DB-style table.
func writeDBTableTSV(b *strings.Builder, t *Table) {
	b.WriteString("name")
	for _, field := range t.order {
		b.WriteString(cellDelimiter + field)
	}
	b.WriteString("\n" + headerType)
	for _, field := range t.order {
		b.WriteString(cellDelimiter + t.columns[field].typ.String())
	}
	b.WriteString("\n")

	for row := 0; row < t.rowCount; row++ {
		if len(t.names) > 0 {
			b.WriteString(t.names[row])
		}
		for _, field := range t.order {
			b.WriteString(cellDelimiter + exportCell(t.columns[field].values[row]))
		}
		b.WriteString("\n")
	}
}

// writeGridTSV renders an ENUM_X_ENUM grid with bare integer axis labels.
// The original axis entity names are not retained per cell, so rows and
// columns are labeled by enumeration index.
func writeGridTSV(b *strings.Builder, t *Table) {
	if len(t.grid) == 0 {
		return
	}
	for col := range t.grid[0] {
		b.WriteString(cellDelimiter)
		fmt.Fprintf(b, "%d", col)
	}
	b.WriteString("\n")
	for row := range t.grid {
		fmt.Fprintf(b, "%d", row)
		for _, v := range t.grid[row] {
			b.WriteString(cellDelimiter + exportCell(v))
		}
		b.WriteString("\n")
	}
}

// exportCell renders one value in source-cell syntax: missing sentinels
// become empty cells, infinities use the "?" markers, and array elements
// are comma-joined.
func exportCell(v Value) string {
	switch v.Kind() {
	case KindBool:
		if v.Bool() {
			return "TRUE"
		}
		return "FALSE"
	case KindInt:
		return fmt.Sprintf("%d", v.Int())
	case KindFloat:
		f := v.Float()
		switch {
		case math.IsNaN(f):
			return ""
		case math.IsInf(f, 1):
			return floatInfinity
		case math.IsInf(f, -1):
			return floatNegInfinity
		}
		return formatFloat(f)
	case KindString:
		return encodeEscapes(v.Text())
	case KindStringName:
		return v.Text()
	case KindArray:
		elems := v.Array()
		parts := make([]string, len(elems))
		for i, elem := range elems {
			parts[i] = exportCell(elem)
		}
		return strings.Join(parts, arrayElementDelimiter)
	default:
		return ""
	}
}

func formatFloat(f float64) string {
	return strings.TrimSpace(fmt.Sprintf("%g", f))
}

// encodeEscapes re-encodes the characters that would break the line and
// cell structure of a TSV file.
func encodeEscapes(s string) string {
	if !strings.ContainsAny(s, "\n\t\r\\") {
		return s
	}
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"\n", "\\n",
		"\t", "\\t",
		"\r", "\\r",
	)
	return replacer.Replace(s)
}

// ErrNoTables is returned by exports on a store with nothing to write.
var ErrNoTables = errors.New("tsvdb: store has no tables")
