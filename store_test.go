package tsvdb

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueAccessors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   Value
		kind    ValueKind
		display string
	}{
		{"bool true", boolValue(true), KindBool, "true"},
		{"bool false", boolValue(false), KindBool, "false"},
		{"int", intValue(-42), KindInt, "-42"},
		{"float", floatValue(1.5), KindFloat, "1.5"},
		{"string", stringValue("hello"), KindString, "hello"},
		{"string name", stringNameValue("PLANET_EARTH"), KindStringName, "PLANET_EARTH"},
		{"array", arrayValue([]Value{intValue(1), intValue(2)}), KindArray, "[1, 2]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.kind, tt.value.Kind())
			assert.Equal(t, tt.display, tt.value.String())
		})
	}
}

func TestValueArrayIsACopy(t *testing.T) {
	t.Parallel()

	v := arrayValue([]Value{intValue(1), intValue(2)})
	elems := v.Array()
	elems[0] = intValue(99)

	again := v.Array()
	assert.Equal(t, int64(1), again[0].Int())
}

func TestMissingValueSentinels(t *testing.T) {
	t.Parallel()

	assert.False(t, missingValue(FieldType{Scalar: TypeBool}).Bool())
	assert.Equal(t, int64(-1), missingValue(FieldType{Scalar: TypeInt}).Int())
	assert.True(t, math.IsNaN(missingValue(FieldType{Scalar: TypeFloat}).Float()))
	assert.Empty(t, missingValue(FieldType{Scalar: TypeString}).Text())
	assert.Empty(t, missingValue(FieldType{Scalar: TypeStringName}).Text())
	assert.Empty(t, missingValue(FieldType{Scalar: TypeInt, Array: true}).Array())
}

func TestStoreReadSurfaces(t *testing.T) {
	t.Parallel()

	store := mustLoadFromTSV(t, map[string]string{"planets": planetsTSV}, nil)

	t.Run("table metadata", func(t *testing.T) {
		t.Parallel()

		assert.True(t, store.HasTable("planets"))
		assert.False(t, store.HasTable("asteroids"))
		assert.Equal(t, []string{"planets"}, store.TableNames())

		prefix, err := store.Prefix("planets")
		require.NoError(t, err)
		assert.Equal(t, "PLANET_", prefix)

		names, err := store.EntityNames("planets")
		require.NoError(t, err)
		assert.Equal(t, []string{"PLANET_EARTH", "PLANET_MARS"}, names)

		name, err := store.EntityName("planets", 1)
		require.NoError(t, err)
		assert.Equal(t, "PLANET_MARS", name)

		_, err = store.EntityName("planets", 5)
		assert.ErrorIs(t, err, ErrRowOutOfRange)
	})

	t.Run("field metadata", func(t *testing.T) {
		t.Parallel()

		assert.True(t, store.HasField("planets", "mass"))
		assert.False(t, store.HasField("planets", "radius"))

		fields, err := store.FieldNames("planets")
		require.NoError(t, err)
		assert.Equal(t, []string{"mass", "dist", "populated", "class", "tags", "en.wiki"}, fields)

		typ, ok := store.FieldType("planets", "tags")
		require.True(t, ok)
		assert.Equal(t, FieldType{Scalar: TypeInt, Array: true}, typ)
	})

	t.Run("GetValue reports field presence", func(t *testing.T) {
		t.Parallel()

		v, ok, err := store.GetValue("planets", "mass", 0)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, KindFloat, v.Kind())

		_, ok, err = store.GetValue("planets", "radius", 0)
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = store.GetValue("planets", "mass", 99)
		require.Error(t, err)
		assert.True(t, ok)
		assert.ErrorIs(t, err, ErrRowOutOfRange)
	})

	t.Run("fallback getters substitute on absence", func(t *testing.T) {
		t.Parallel()

		// radius does not exist; mass does.
		f, err := store.GetFloatOr("planets", "radius", 0, 42.0)
		require.NoError(t, err)
		assert.Equal(t, 42.0, f)

		mass, err := store.GetFloatOr("planets", "mass", 0, 42.0)
		require.NoError(t, err)
		assert.InEpsilon(t, 5.972e24, mass, 1e-12)

		b, err := store.GetBoolOr("planets", "nonexistent", 0, true)
		require.NoError(t, err)
		assert.True(t, b)

		n, err := store.GetIntOr("planets", "nonexistent", 0, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(7), n)

		s, err := store.GetStringOr("planets", "nonexistent", 0, "n/a")
		require.NoError(t, err)
		assert.Equal(t, "n/a", s)
	})

	t.Run("row out of range on typed getters", func(t *testing.T) {
		t.Parallel()

		_, err := store.GetFloat("planets", "mass", 17)
		assert.ErrorIs(t, err, ErrRowOutOfRange)
	})
}

func TestInterner(t *testing.T) {
	t.Parallel()

	in := newInterner()

	a := in.intern("alpha")
	b := in.intern("beta")
	again := in.intern("alpha")

	assert.Equal(t, a, again)
	assert.NotEqual(t, a, b)
	assert.Equal(t, "alpha", in.lookup(a))
	assert.Equal(t, "beta", in.lookup(b))

	// Index zero is reserved for the empty string.
	assert.Equal(t, "", in.lookup(0))
}
