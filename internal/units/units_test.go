package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinConvertSameDimension(t *testing.T) {
	b := NewBuiltin()
	q, err := b.Parse(2, "kg")
	require.NoError(t, err)

	grams, err := b.Convert(q, "g")
	require.NoError(t, err)
	assert.Equal(t, 2000.0, grams)
}

func TestBuiltinConvertIncompatibleDimensions(t *testing.T) {
	b := NewBuiltin()
	q, err := b.Parse(1, "kg")
	require.NoError(t, err)

	_, err = b.Convert(q, "W")
	assert.Error(t, err)
}

func TestBuiltinConvertUnknownUnit(t *testing.T) {
	b := NewBuiltin()
	_, err := b.Parse(1, "furlong")
	assert.Error(t, err)

	_, err = b.Convert(Quantity{Magnitude: 1, Unit: "furlong"}, "kg")
	assert.Error(t, err)
}

func TestBuiltinToSI(t *testing.T) {
	b := NewBuiltin()
	v, err := b.ToSI(5, "lb")
	require.NoError(t, err)
	assert.InDelta(t, 2.2679618, v, 1e-6)
}
