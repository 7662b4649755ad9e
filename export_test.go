package tsvdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportTSVRoundTrip(t *testing.T) {
	t.Parallel()

	store := mustLoadFromTSV(t, map[string]string{
		"planets": planetsTSV,
		"colors":  "RED\nGREEN\nBLUE\n",
	}, nil)

	outputDir := t.TempDir()
	require.NoError(t, store.ExportTSV(outputDir))

	reloaded, err := Load(filepath.Join(outputDir, "planets.tsv"), filepath.Join(outputDir, "colors.tsv"))
	require.NoError(t, err)

	rows, err := reloaded.RowCount("planets")
	require.NoError(t, err)
	assert.Equal(t, 2, rows)

	names, err := reloaded.EntityNames("colors")
	require.NoError(t, err)
	assert.Equal(t, []string{"RED", "GREEN", "BLUE"}, names)

	// Values survive the round trip already converted to internal units.
	mass, err := reloaded.GetFloatByName("planets", "mass", "PLANET_EARTH")
	require.NoError(t, err)
	assert.InEpsilon(t, 5.972e24, mass, 1e-12)

	dist, err := reloaded.GetFloatByName("planets", "dist", "PLANET_EARTH")
	require.NoError(t, err)
	assert.InEpsilon(t, 1.5e6, dist, 1e-12)

	populated, err := reloaded.GetBoolByName("planets", "populated", "PLANET_EARTH")
	require.NoError(t, err)
	assert.True(t, populated)

	tags, err := reloaded.GetArrayByName("planets", "tags", "PLANET_EARTH")
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, int64(2), tags[1].Int())
}

func TestExportTSVCompressed(t *testing.T) {
	t.Parallel()

	store := mustLoadFromTSV(t, map[string]string{"colors": "RED\nGREEN\n"}, nil)

	tests := []struct {
		name        string
		compression CompressionType
		fileName    string
	}{
		{"gzip", CompressionGZ, "colors.tsv.gz"},
		{"xz", CompressionXZ, "colors.tsv.xz"},
		{"zstd", CompressionZSTD, "colors.tsv.zst"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			outputDir := t.TempDir()
			require.NoError(t, store.ExportTSV(outputDir, NewExportOptions().WithCompression(tt.compression)))

			path := filepath.Join(outputDir, tt.fileName)
			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Positive(t, info.Size())

			// Compressed output reloads transparently.
			reloaded, err := Load(path)
			require.NoError(t, err)
			names, err := reloaded.EntityNames("colors")
			require.NoError(t, err)
			assert.Equal(t, []string{"RED", "GREEN"}, names)
		})
	}
}

func TestExportSQLite(t *testing.T) {
	t.Parallel()

	store := mustLoadFromTSV(t, map[string]string{
		"planets": planetsTSV,
		"colors":  "RED\nGREEN\n",
	}, nil)

	path := filepath.Join(t.TempDir(), "dataset.db")
	require.NoError(t, store.ExportSQLite(context.Background(), path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestExportParquet(t *testing.T) {
	t.Parallel()

	store := mustLoadFromTSV(t, map[string]string{
		"planets": planetsTSV,
		"colors":  "RED\nGREEN\n",
	}, nil)

	outputDir := t.TempDir()
	require.NoError(t, store.ExportParquet(context.Background(), outputDir))

	info, err := os.Stat(filepath.Join(outputDir, "planets.parquet"))
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	// Enumerations have no columnar form and are skipped.
	_, err = os.Stat(filepath.Join(outputDir, "colors.parquet"))
	assert.True(t, os.IsNotExist(err))
}

func TestExportCell(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		value    Value
		expected string
	}{
		{"bool", boolValue(true), "TRUE"},
		{"int", intValue(-1), "-1"},
		{"float", floatValue(1.5), "1.5"},
		{"missing float", missingValue(FieldType{Scalar: TypeFloat}), ""},
		{"string with tab", stringValue("a\tb"), "a\\tb"},
		{"array", arrayValue([]Value{intValue(1), intValue(2)}), "1,2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, exportCell(tt.value))
		})
	}
}

func TestExportEmptyStore(t *testing.T) {
	t.Parallel()

	s := &Store{}
	assert.ErrorIs(t, s.ExportTSV(t.TempDir()), ErrNoTables)
	assert.ErrorIs(t, s.ExportSQLite(context.Background(), "x.db"), ErrNoTables)
	assert.ErrorIs(t, s.ExportParquet(context.Background(), t.TempDir()), ErrNoTables)
}
