package tsvdb

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	_ "modernc.org/sqlite" // CGO-free SQLite driver.
)

// sqliteDriverName is the driver registered by modernc.org/sqlite.
const sqliteDriverName = "sqlite"

// ExportSQLite writes the whole store into a SQLite database file, one SQL
// table per store table. Entity tables get a leading "name" TEXT column,
// grid tables are flattened into ("row", "col", "value") triples, and array
// values are stored in source-cell syntax. NaN is stored as NULL.
//
// Example usage:
//
//	err := store.ExportSQLite(ctx, "./output/dataset.db")
func (s *Store) ExportSQLite(ctx context.Context, path string) error {
	if len(s.order) == 0 {
		return ErrNoTables
	}
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, name := range s.order {
		t := s.tables[name]
		var err error
		switch t.format {
		case FormatEnumXEnum:
			err = exportGridSQLite(ctx, tx, t)
		case FormatEnumeration:
			err = exportEnumerationSQLite(ctx, tx, t)
		default:
			err = exportDBTableSQLite(ctx, tx, t)
		}
		if err != nil {
			return fmt.Errorf("failed to export table %q: %w", name, err)
		}
	}
	return tx.Commit()
}

// sqliteColumnType maps a field type to its SQLite column affinity.
func sqliteColumnType(typ FieldType) string {
	if typ.Array {
		return "TEXT"
	}
	switch typ.Scalar {
	case TypeBool, TypeInt:
		return "INTEGER"
	case TypeFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

// sqliteArg converts a resolved value to a driver argument.
func sqliteArg(v Value) any {
	switch v.Kind() {
	case KindBool:
		if v.Bool() {
			return int64(1)
		}
		return int64(0)
	case KindInt:
		return v.Int()
	case KindFloat:
		f := v.Float()
		if math.IsNaN(f) {
			return nil
		}
		return f
	case KindArray:
		return exportCell(v)
	default:
		return v.Text()
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func exportDBTableSQLite(ctx context.Context, tx *sql.Tx, t *Table) error {
	named := len(t.names) > 0

	columns := make([]string, 0, len(t.order)+1)
	if named {
		columns = append(columns, `"name" TEXT PRIMARY KEY`)
	}
	for _, field := range t.order {
		columns = append(columns, quoteIdent(field)+" "+sqliteColumnType(t.columns[field].typ))
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(t.name), strings.Join(columns, ", "))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return err
	}

	placeholders := make([]string, 0, len(t.order)+1)
	fieldNames := make([]string, 0, len(t.order)+1)
	if named {
		fieldNames = append(fieldNames, `"name"`)
		placeholders = append(placeholders, "?")
	}
	for _, field := range t.order {
		fieldNames = append(fieldNames, quoteIdent(field))
		placeholders = append(placeholders, "?")
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(t.name), strings.Join(fieldNames, ", "), strings.Join(placeholders, ", ")))
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	args := make([]any, 0, len(t.order)+1)
	for row := 0; row < t.rowCount; row++ {
		args = args[:0]
		if named {
			args = append(args, t.names[row])
		}
		for _, field := range t.order {
			args = append(args, sqliteArg(t.columns[field].values[row]))
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}
	return nil
}

func exportEnumerationSQLite(ctx context.Context, tx *sql.Tx, t *Table) error {
	ddl := fmt.Sprintf(`CREATE TABLE %s ("row" INTEGER PRIMARY KEY, "name" TEXT NOT NULL)`,
		quoteIdent(t.name))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		fmt.Sprintf(`INSERT INTO %s ("row", "name") VALUES (?, ?)`, quoteIdent(t.name)))
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for row, name := range t.names {
		if _, err := stmt.ExecContext(ctx, row, name); err != nil {
			return err
		}
	}
	return nil
}

func exportGridSQLite(ctx context.Context, tx *sql.Tx, t *Table) error {
	valueType := "TEXT"
	if len(t.grid) > 0 && len(t.grid[0]) > 0 {
		switch t.grid[0][0].Kind() {
		case KindBool, KindInt:
			valueType = "INTEGER"
		case KindFloat:
			valueType = "REAL"
		}
	}
	ddl := fmt.Sprintf(
		`CREATE TABLE %s ("row" INTEGER NOT NULL, "col" INTEGER NOT NULL, "value" %s, PRIMARY KEY ("row", "col"))`,
		quoteIdent(t.name), valueType)
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		fmt.Sprintf(`INSERT INTO %s ("row", "col", "value") VALUES (?, ?, ?)`, quoteIdent(t.name)))
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for row := range t.grid {
		for col, v := range t.grid[row] {
			if _, err := stmt.ExecContext(ctx, row, col, sqliteArg(v)); err != nil {
				return err
			}
		}
	}
	return nil
}
