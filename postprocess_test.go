package tsvdb

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loadFromTSV runs the full pipeline over inline TSV documents keyed by
// table name.
func loadFromTSV(t *testing.T, docs map[string]string, configure func(*StoreBuilder) *StoreBuilder) (*Store, error) {
	t.Helper()

	builder := NewBuilder()
	if configure != nil {
		builder = configure(builder)
	}
	for name, text := range docs {
		builder = builder.AddReader(strings.NewReader(text), name, FileTypeTSV)
	}
	validated, err := builder.Build(context.Background())
	if err != nil {
		return nil, err
	}
	return validated.Open(context.Background())
}

func mustLoadFromTSV(t *testing.T, docs map[string]string, configure func(*StoreBuilder) *StoreBuilder) *Store {
	t.Helper()
	store, err := loadFromTSV(t, docs, configure)
	require.NoError(t, err)
	return store
}

const planetsTSV = "" +
	"name\tmass\tdist\tpopulated\tclass\ttags\ten.wiki\n" +
	"Type\tFLOAT\tFLOAT\tBOOL\tINT\tARRAY[INT]\tSTRING\n" +
	"Unit\tkg\tkm\t\t\t\t\n" +
	"Default\t\t\tFALSE\t\t\t\n" +
	"Prefix/PLANET_\t\t\t\t\t\t\n" +
	"EARTH\t5.972e24\t1.5e3\tTRUE\t2\t1, 2\tEarth\n" +
	"MARS\t6.417e23\t2.3e3\t\tPLANET_EARTH\t\tMars\n"

func TestLoadBasicResolution(t *testing.T) {
	t.Parallel()

	store := mustLoadFromTSV(t, map[string]string{"planets": planetsTSV}, nil)

	require.True(t, store.HasTable("planets"))
	rows, err := store.RowCount("planets")
	require.NoError(t, err)
	assert.Equal(t, 2, rows)

	t.Run("float with unit conversion", func(t *testing.T) {
		t.Parallel()

		mass, err := store.GetFloatByName("planets", "mass", "PLANET_EARTH")
		require.NoError(t, err)
		assert.InEpsilon(t, 5.972e24, mass, 1e-12)

		// km cells are converted to meters.
		dist, err := store.GetFloatByName("planets", "dist", "PLANET_EARTH")
		require.NoError(t, err)
		assert.InEpsilon(t, 1.5e6, dist, 1e-12)
	})

	t.Run("bool default substitution", func(t *testing.T) {
		t.Parallel()

		populated, err := store.GetBoolByName("planets", "populated", "PLANET_EARTH")
		require.NoError(t, err)
		assert.True(t, populated)

		populated, err = store.GetBoolByName("planets", "populated", "PLANET_MARS")
		require.NoError(t, err)
		assert.False(t, populated)
	})

	t.Run("int literal and entity reference", func(t *testing.T) {
		t.Parallel()

		class, err := store.GetIntByName("planets", "class", "PLANET_EARTH")
		require.NoError(t, err)
		assert.Equal(t, int64(2), class)

		// An entity name in an INT cell resolves to its row index.
		class, err = store.GetIntByName("planets", "class", "PLANET_MARS")
		require.NoError(t, err)
		assert.Equal(t, int64(0), class)
	})

	t.Run("arrays and missing arrays", func(t *testing.T) {
		t.Parallel()

		tags, err := store.GetArrayByName("planets", "tags", "PLANET_EARTH")
		require.NoError(t, err)
		require.Len(t, tags, 2)
		assert.Equal(t, int64(1), tags[0].Int())
		assert.Equal(t, int64(2), tags[1].Int())

		tags, err = store.GetArrayByName("planets", "tags", "PLANET_MARS")
		require.NoError(t, err)
		assert.Empty(t, tags)
	})

	t.Run("entity index lookups", func(t *testing.T) {
		t.Parallel()

		idx, ok := store.EntityIndex("PLANET_MARS")
		require.True(t, ok)
		assert.Equal(t, 1, idx)

		owner, ok := store.EntityTable("PLANET_MARS")
		require.True(t, ok)
		assert.Equal(t, "planets", owner)
	})
}

func TestLoadMissingFieldAndTable(t *testing.T) {
	t.Parallel()

	store := mustLoadFromTSV(t, map[string]string{"planets": planetsTSV}, nil)

	t.Run("missing field returns sentinel, not error", func(t *testing.T) {
		t.Parallel()

		f, err := store.GetFloat("planets", "no_such_field", 0)
		require.NoError(t, err)
		assert.True(t, math.IsNaN(f))

		i, err := store.GetInt("planets", "no_such_field", 0)
		require.NoError(t, err)
		assert.Equal(t, int64(-1), i)

		b, err := store.GetBool("planets", "no_such_field", 0)
		require.NoError(t, err)
		assert.False(t, b)

		s, err := store.GetString("planets", "no_such_field", 0)
		require.NoError(t, err)
		assert.Empty(t, s)
	})

	t.Run("missing table is an error", func(t *testing.T) {
		t.Parallel()

		_, err := store.GetFloat("no_such_table", "mass", 0)
		assert.ErrorIs(t, err, ErrTableNotFound)
	})

	t.Run("missing entity is an error", func(t *testing.T) {
		t.Parallel()

		_, err := store.GetFloatByName("planets", "mass", "PLANET_VULCAN")
		assert.ErrorIs(t, err, ErrUnknownEntity)
	})

	t.Run("type mismatch is an error", func(t *testing.T) {
		t.Parallel()

		_, err := store.GetInt("planets", "mass", 0)
		assert.ErrorIs(t, err, ErrTypeMismatch)
	})
}

func TestLoadGlobalNameUniqueness(t *testing.T) {
	t.Parallel()

	t.Run("duplicate across tables is fatal", func(t *testing.T) {
		t.Parallel()

		_, err := loadFromTSV(t, map[string]string{
			"colors": "RED\nGREEN\n",
			"alerts": "RED\nYELLOW\n",
		}, nil)
		assert.ErrorIs(t, err, ErrDuplicateName)
	})

	t.Run("cross-table references resolve", func(t *testing.T) {
		t.Parallel()

		store := mustLoadFromTSV(t, map[string]string{
			"colors": "RED\nGREEN\nBLUE\n",
			"flags": "name\tcolor\n" +
				"Type\tINT\n" +
				"FLAG_A\tBLUE\n",
		}, nil)

		color, err := store.GetIntByName("flags", "color", "FLAG_A")
		require.NoError(t, err)
		assert.Equal(t, int64(2), color)
	})

	t.Run("predefined enumerations participate", func(t *testing.T) {
		t.Parallel()

		store := mustLoadFromTSV(t, map[string]string{
			"flags": "name\tkind\n" +
				"Type\tINT\n" +
				"FLAG_A\tBODY_STAR\n",
		}, func(b *StoreBuilder) *StoreBuilder {
			return b.WithEnumerations(map[string]int{"BODY_STAR": 7})
		})

		kind, err := store.GetIntByName("flags", "kind", "FLAG_A")
		require.NoError(t, err)
		assert.Equal(t, int64(7), kind)
	})

	t.Run("predefined collision is fatal", func(t *testing.T) {
		t.Parallel()

		_, err := loadFromTSV(t, map[string]string{
			"colors": "RED\n",
		}, func(b *StoreBuilder) *StoreBuilder {
			return b.WithEnumerations(map[string]int{"RED": 0})
		})
		assert.ErrorIs(t, err, ErrDuplicateName)
	})
}

func TestLoadStringResolution(t *testing.T) {
	t.Parallel()

	store := mustLoadFromTSV(t, map[string]string{
		"labels": "name\ttext\tsymbol\n" +
			"Type\tSTRING\tSTRING_NAME\n" +
			"L_A\tline\\none\\ttab\tRAW\\n\n",
	}, nil)

	text, err := store.GetStringByName("labels", "text", "L_A")
	require.NoError(t, err)
	assert.Equal(t, "line\none\ttab", text)

	// STRING_NAME cells are never escape-decoded.
	symbol, err := store.GetStringNameByName("labels", "symbol", "L_A")
	require.NoError(t, err)
	assert.Equal(t, "RAW\\n", symbol)
}

func TestLoadFloatSpecials(t *testing.T) {
	t.Parallel()

	store := mustLoadFromTSV(t, map[string]string{
		"vals": "name\tx\n" +
			"Type\tFLOAT\n" +
			"V_A\t?\n" +
			"V_B\t-?\n" +
			"V_C\t\n" +
			"V_D\t~5\n",
	}, nil)

	x, err := store.GetFloatByName("vals", "x", "V_A")
	require.NoError(t, err)
	assert.True(t, math.IsInf(x, 1))

	x, err = store.GetFloatByName("vals", "x", "V_B")
	require.NoError(t, err)
	assert.True(t, math.IsInf(x, -1))

	x, err = store.GetFloatByName("vals", "x", "V_C")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(x))

	x, err = store.GetFloatByName("vals", "x", "V_D")
	require.NoError(t, err)
	assert.InDelta(t, 5.0, x, 1e-12)

	p, err := store.PrecisionByName("vals", "x", "V_D")
	require.NoError(t, err)
	assert.Equal(t, 0, p)
}

func TestLoadPrecisionTracking(t *testing.T) {
	t.Parallel()

	store := mustLoadFromTSV(t, map[string]string{"planets": planetsTSV}, nil)

	p, err := store.PrecisionByName("planets", "mass", "PLANET_EARTH")
	require.NoError(t, err)
	assert.Equal(t, 4, p)

	p, err = store.PrecisionByName("planets", "dist", "PLANET_EARTH")
	require.NoError(t, err)
	assert.Equal(t, 2, p)

	t.Run("disabled tracking reports unknown", func(t *testing.T) {
		t.Parallel()

		store := mustLoadFromTSV(t, map[string]string{"planets": planetsTSV},
			func(b *StoreBuilder) *StoreBuilder { return b.DisablePrecision() })

		p, err := store.PrecisionByName("planets", "mass", "PLANET_EARTH")
		require.NoError(t, err)
		assert.Equal(t, -1, p)
	})
}

func TestLoadWiki(t *testing.T) {
	t.Parallel()

	t.Run("db table wiki field", func(t *testing.T) {
		t.Parallel()

		store := mustLoadFromTSV(t, map[string]string{"planets": planetsTSV}, nil)

		title, ok := store.WikiTitle("PLANET_EARTH")
		require.True(t, ok)
		assert.Equal(t, "Earth", title)
	})

	t.Run("standalone lookup table", func(t *testing.T) {
		t.Parallel()

		store := mustLoadFromTSV(t, map[string]string{
			"wiki_extras": "@WIKI_LOOKUP\n" +
				"name\ten.wiki\n" +
				"SOLAR_SYSTEM\tSolar System\n",
			"colors": "RED\n",
		}, nil)

		title, ok := store.WikiTitle("SOLAR_SYSTEM")
		require.True(t, ok)
		assert.Equal(t, "Solar System", title)

		// Lookup tables are not inserted into the store.
		assert.False(t, store.HasTable("wiki_extras"))
	})

	t.Run("disabled lookup collects nothing", func(t *testing.T) {
		t.Parallel()

		store := mustLoadFromTSV(t, map[string]string{"planets": planetsTSV},
			func(b *StoreBuilder) *StoreBuilder { return b.DisableWikiLookup() })

		_, ok := store.WikiTitle("PLANET_EARTH")
		assert.False(t, ok)
	})
}

func TestLoadMods(t *testing.T) {
	t.Parallel()

	modTSV := "" +
		"@MODIFIES=planets\n" +
		"name\tmass\talbedo\n" +
		"Type\tFLOAT\tFLOAT\n" +
		"Unit\tkg\t\n" +
		"PLANET_EARTH\t\t0.306\n" +
		"PLANET_VENUS\t4.867e24\t0.689\n"

	store := mustLoadFromTSV(t, map[string]string{
		// Map order must not matter: mods are applied last regardless.
		"planets_mod": modTSV,
		"planets":     planetsTSV,
	}, nil)

	t.Run("mod extends the enumeration", func(t *testing.T) {
		t.Parallel()

		rows, err := store.RowCount("planets")
		require.NoError(t, err)
		assert.Equal(t, 3, rows)

		idx, ok := store.EntityIndex("PLANET_VENUS")
		require.True(t, ok)
		assert.Equal(t, 2, idx)

		owner, ok := store.EntityTable("PLANET_VENUS")
		require.True(t, ok)
		assert.Equal(t, "planets", owner)
	})

	t.Run("new rows impute recorded defaults", func(t *testing.T) {
		t.Parallel()

		// populated declared Default FALSE in the base table.
		populated, err := store.GetBoolByName("planets", "populated", "PLANET_VENUS")
		require.NoError(t, err)
		assert.False(t, populated)

		// dist has no default, so the appended row holds the sentinel.
		dist, err := store.GetFloatByName("planets", "dist", "PLANET_VENUS")
		require.NoError(t, err)
		assert.True(t, math.IsNaN(dist))

		p, err := store.PrecisionByName("planets", "dist", "PLANET_VENUS")
		require.NoError(t, err)
		assert.Equal(t, -1, p)
	})

	t.Run("new column is default-filled then overwritten", func(t *testing.T) {
		t.Parallel()

		albedo, err := store.GetFloatByName("planets", "albedo", "PLANET_EARTH")
		require.NoError(t, err)
		assert.InDelta(t, 0.306, albedo, 1e-12)

		// MARS is not mentioned by the mod.
		albedo, err = store.GetFloatByName("planets", "albedo", "PLANET_MARS")
		require.NoError(t, err)
		assert.True(t, math.IsNaN(albedo))
	})

	t.Run("empty mod cell resets to the field default", func(t *testing.T) {
		t.Parallel()

		// The mod mentions EARTH but leaves mass empty.
		mass, err := store.GetFloatByName("planets", "mass", "PLANET_EARTH")
		require.NoError(t, err)
		assert.True(t, math.IsNaN(mass))

		// Fields the mod does not declare are untouched.
		dist, err := store.GetFloatByName("planets", "dist", "PLANET_EARTH")
		require.NoError(t, err)
		assert.InEpsilon(t, 1.5e6, dist, 1e-12)
	})

	t.Run("mod values overwrite", func(t *testing.T) {
		t.Parallel()

		mass, err := store.GetFloatByName("planets", "mass", "PLANET_VENUS")
		require.NoError(t, err)
		assert.InEpsilon(t, 4.867e24, mass, 1e-12)

		p, err := store.PrecisionByName("planets", "mass", "PLANET_VENUS")
		require.NoError(t, err)
		assert.Equal(t, 4, p)
	})
}

func TestLoadModErrors(t *testing.T) {
	t.Parallel()

	t.Run("unknown target", func(t *testing.T) {
		t.Parallel()

		_, err := loadFromTSV(t, map[string]string{
			"ghost_mod": "@MODIFIES=ghost\nname\tx\nType\tINT\nG_A\t1\n",
		}, nil)
		assert.ErrorIs(t, err, ErrTableNotFound)
	})

	t.Run("field type mismatch", func(t *testing.T) {
		t.Parallel()

		_, err := loadFromTSV(t, map[string]string{
			"planets": planetsTSV,
			"planets_mod": "@MODIFIES=planets\n" +
				"name\tmass\n" +
				"Type\tSTRING\n" +
				"PLANET_EARTH\toops\n",
		}, nil)
		assert.ErrorIs(t, err, ErrSchema)
	})

	t.Run("mod row colliding with another enumeration", func(t *testing.T) {
		t.Parallel()

		_, err := loadFromTSV(t, map[string]string{
			"planets": planetsTSV,
			"colors":  "RED\n",
			"planets_mod": "@MODIFIES=planets\n" +
				"name\tmass\n" +
				"Type\tFLOAT\n" +
				"RED\t1\n",
		}, nil)
		assert.ErrorIs(t, err, ErrDuplicateName)
	})
}

func TestLoadEnumXEnum(t *testing.T) {
	t.Parallel()

	store := mustLoadFromTSV(t, map[string]string{
		"colors": "RED\nGREEN\nBLUE\n",
		"sizes":  "SMALL\nLARGE\n",
		"affinity": "@ENUM_X_ENUM\n" +
			"@DATA_TYPE=FLOAT\n" +
			"@DATA_DEFAULT=0.5\n" +
			"\tSMALL\tLARGE\n" +
			"RED\t1\t\n" +
			"GREEN\t\t0.25\n",
	}, nil)

	t.Run("grid sized to the enumeration extent", func(t *testing.T) {
		t.Parallel()

		rows, cols, err := store.GridSize("affinity")
		require.NoError(t, err)
		assert.Equal(t, 3, rows)
		assert.Equal(t, 2, cols)
	})

	t.Run("explicit cells overwrite the default", func(t *testing.T) {
		t.Parallel()

		v, err := store.GridValue("affinity", "RED", "SMALL")
		require.NoError(t, err)
		assert.InDelta(t, 1.0, v.Float(), 1e-12)

		v, err = store.GridValue("affinity", "GREEN", "LARGE")
		require.NoError(t, err)
		assert.InDelta(t, 0.25, v.Float(), 1e-12)
	})

	t.Run("unspecified cells hold the default", func(t *testing.T) {
		t.Parallel()

		v, err := store.GridValue("affinity", "RED", "LARGE")
		require.NoError(t, err)
		assert.InDelta(t, 0.5, v.Float(), 1e-12)

		// BLUE never appears in the grid file at all.
		v, err = store.GridValue("affinity", "BLUE", "SMALL")
		require.NoError(t, err)
		assert.InDelta(t, 0.5, v.Float(), 1e-12)
	})

	t.Run("entity from the wrong axis is rejected", func(t *testing.T) {
		t.Parallel()

		// SMALL owns the column axis; swapped arguments must not silently
		// address cell (SMALL row index, RED column index).
		_, err := store.GridValue("affinity", "SMALL", "RED")
		assert.ErrorIs(t, err, ErrUnknownEntity)

		_, err = store.GridValue("affinity", "RED", "GREEN")
		assert.ErrorIs(t, err, ErrUnknownEntity)
	})

	t.Run("unknown axis name is fatal", func(t *testing.T) {
		t.Parallel()

		_, err := loadFromTSV(t, map[string]string{
			"colors": "RED\n",
			"grid": "@ENUM_X_ENUM\n" +
				"@DATA_TYPE=INT\n" +
				"\tRED\n" +
				"NOPE\t1\n",
		}, nil)
		assert.ErrorIs(t, err, ErrUnknownEntity)
	})

	t.Run("mixed enumerations on one axis are fatal", func(t *testing.T) {
		t.Parallel()

		_, err := loadFromTSV(t, map[string]string{
			"colors": "RED\nGREEN\n",
			"sizes":  "SMALL\n",
			"grid": "@ENUM_X_ENUM\n" +
				"@DATA_TYPE=INT\n" +
				"\tRED\n" +
				"GREEN\t1\n" +
				"SMALL\t2\n",
		}, nil)
		assert.ErrorIs(t, err, ErrSchema)
	})
}

func TestLoadAnonymousRows(t *testing.T) {
	t.Parallel()

	store := mustLoadFromTSV(t, map[string]string{
		"samples": "@DB_ANONYMOUS_ROWS\n" +
			"name\tx\ty\n" +
			"Type\tINT\tFLOAT\n" +
			"\t1\t1.5\n" +
			"\t2\t2.5\n",
	}, nil)

	rows, err := store.RowCount("samples")
	require.NoError(t, err)
	assert.Equal(t, 2, rows)

	// Anonymous tables declare no entity names.
	names, err := store.EntityNames("samples")
	require.NoError(t, err)
	assert.Empty(t, names)

	x, err := store.GetInt("samples", "x", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), x)

	y, err := store.GetFloat("samples", "y", 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, y, 1e-12)

	row, err := store.RowMap("samples", 1)
	require.NoError(t, err)
	_, hasName := row["name"]
	assert.False(t, hasName)
	assert.InDelta(t, 2.5, row["y"].Float(), 1e-12)
}

func TestLoadRowMap(t *testing.T) {
	t.Parallel()

	store := mustLoadFromTSV(t, map[string]string{"planets": planetsTSV}, nil)

	row, err := store.RowMapByName("planets", "PLANET_EARTH")
	require.NoError(t, err)

	assert.Equal(t, "PLANET_EARTH", row["name"].Text())
	assert.InEpsilon(t, 5.972e24, row["mass"].Float(), 1e-12)
	assert.True(t, row["populated"].Bool())
}

func TestLoadContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	builder := NewBuilder().AddReader(strings.NewReader(planetsTSV), "planets", FileTypeTSV)
	validated, err := builder.Build(ctx)
	if err == nil {
		_, err = validated.Open(ctx)
	}
	assert.ErrorIs(t, err, context.Canceled)
}
