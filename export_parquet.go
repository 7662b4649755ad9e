package tsvdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/apache/arrow/go/v18/parquet"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
)

// parquetChunkSize bounds the row group size of exported files.
const parquetChunkSize = 64 * 1024

// ExportParquet writes every DB-style table to outputDir as one Parquet
// file per table. Entity tables get a leading "name" column; ARRAY fields
// are stored in source-cell syntax; ENUMERATION and ENUM_X_ENUM tables are
// skipped since their shapes have no natural columnar form.
//
// Example usage:
//
//	err := store.ExportParquet(ctx, "./output")
func (s *Store) ExportParquet(ctx context.Context, outputDir string) error {
	if len(s.order) == 0 {
		return ErrNoTables
	}
	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, name := range s.order {
		if err := ctx.Err(); err != nil {
			return err
		}
		t := s.tables[name]
		if t.format == FormatEnumeration || t.format == FormatEnumXEnum {
			continue
		}
		path := filepath.Join(outputDir, name+extParquet)
		if err := exportTableParquet(t, path); err != nil {
			return fmt.Errorf("failed to export table %q: %w", name, err)
		}
	}
	return nil
}

// extParquet is the Parquet file extension.
const extParquet = ".parquet"

// arrowFieldType maps a declared field type to its Arrow data type.
func arrowFieldType(typ FieldType) arrow.DataType {
	if typ.Array {
		return arrow.BinaryTypes.String
	}
	switch typ.Scalar {
	case TypeBool:
		return arrow.FixedWidthTypes.Boolean
	case TypeInt:
		return arrow.PrimitiveTypes.Int64
	case TypeFloat:
		return arrow.PrimitiveTypes.Float64
	default:
		return arrow.BinaryTypes.String
	}
}

func exportTableParquet(t *Table, path string) error {
	named := len(t.names) > 0

	fields := make([]arrow.Field, 0, len(t.order)+1)
	if named {
		fields = append(fields, arrow.Field{Name: "name", Type: arrow.BinaryTypes.String})
	}
	for _, field := range t.order {
		fields = append(fields, arrow.Field{
			Name:     field,
			Type:     arrowFieldType(t.columns[field].typ),
			Nullable: true,
		})
	}
	schema := arrow.NewSchema(fields, nil)

	mem := memory.NewGoAllocator()
	builder := array.NewRecordBuilder(mem, schema)
	defer builder.Release()

	fieldIdx := 0
	if named {
		nameBuilder := builder.Field(0).(*array.StringBuilder)
		for row := 0; row < t.rowCount; row++ {
			nameBuilder.Append(t.names[row])
		}
		fieldIdx = 1
	}
	for i, field := range t.order {
		appendParquetColumn(builder.Field(fieldIdx+i), t.columns[field], t.rowCount)
	}

	record := builder.NewRecord()
	defer record.Release()
	table := array.NewTableFromRecords(schema, []arrow.Record{record})
	defer table.Release()

	f, err := os.Create(path) //nolint:gosec // Caller-provided output path.
	if err != nil {
		return err
	}

	writeErr := pqarrow.WriteTable(table, f, parquetChunkSize,
		parquet.NewWriterProperties(parquet.WithAllocator(mem)),
		pqarrow.DefaultWriterProps())
	// WriteTable closes f on success; the explicit Close only matters when
	// WriteTable failed before closing its sink.
	if closeErr := f.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) && writeErr == nil {
		writeErr = closeErr
	}
	return writeErr
}

// appendParquetColumn fills one Arrow column from a resolved column.
func appendParquetColumn(fieldBuilder array.Builder, col *column, rowCount int) {
	switch b := fieldBuilder.(type) {
	case *array.BooleanBuilder:
		for row := 0; row < rowCount; row++ {
			b.Append(col.values[row].Bool())
		}
	case *array.Int64Builder:
		for row := 0; row < rowCount; row++ {
			b.Append(col.values[row].Int())
		}
	case *array.Float64Builder:
		for row := 0; row < rowCount; row++ {
			b.Append(col.values[row].Float())
		}
	case *array.StringBuilder:
		for row := 0; row < rowCount; row++ {
			v := col.values[row]
			if v.Kind() == KindArray {
				b.Append(exportCell(v))
				continue
			}
			b.Append(v.Text())
		}
	}
}
