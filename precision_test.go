package tsvdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloatPrecision(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text     string
		expected int
	}{
		{"1e3", 1},
		{"1.000e3", 4},
		{"1000", 1},
		{"1100", 2},
		{"1000.", 4},
		{"1000.0", 5},
		{"1.0010", 5},
		{"0.0010", 2},
		{"~5", 0},
		{"", -1},
		{"?", -1},
		{"-?", -1},
		{"-1100", 2},
		{"6.674e-11", 4},
		{"0.000", 0},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()

			got, err := floatPrecision(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got, "precision of %q", tt.text)
		})
	}
}

func TestFloatPrecisionMalformed(t *testing.T) {
	t.Parallel()

	_, err := floatPrecision("12x4")
	assert.ErrorIs(t, err, ErrMalformedFloat)
}
