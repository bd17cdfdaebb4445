package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverrides_UnmarshalJSON(t *testing.T) {
	var o Overrides
	err := json.Unmarshal([]byte(`{"1": 3000, "2": "450", "3.0": 12.9, "4": 0, "5": -10, "x": 5, "6": "abc"}`), &o)
	require.NoError(t, err)

	assert.Equal(t, Overrides{1: 3000, 2: 450, 3: 12}, o)
}

func TestOverrides_UnmarshalJSON_Null(t *testing.T) {
	var o Overrides
	require.NoError(t, json.Unmarshal([]byte(`null`), &o))
	_, ok := o.Lookup(1)
	assert.False(t, ok)
}

func TestOverrides_UnmarshalJSON_NotObject(t *testing.T) {
	var o Overrides
	err := json.Unmarshal([]byte(`[1,2]`), &o)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOverrides_StringAndNumericKeysAgree(t *testing.T) {
	a := NormalizeOverrides(map[string]any{"7": float64(900)})
	b := NormalizeOverrides(map[string]any{"7.0": "900"})
	assert.Equal(t, a, b)

	v, ok := a.Lookup(7)
	assert.True(t, ok)
	assert.Equal(t, int64(900), v)
}

func TestOverrides_SetIgnoresNonPositive(t *testing.T) {
	o := Overrides{}
	o.Set(1, 0)
	o.Set(2, -3)
	o.Set(3, 10)
	assert.Equal(t, Overrides{3: 10}, o)
}

func TestParseOverride(t *testing.T) {
	id, amount, err := ParseOverride("12=3000")
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)
	assert.Equal(t, int64(3000), amount)

	for _, bad := range []string{"12", "x=1", "12=abc", "=5", "12=100000000000000000000"} {
		_, _, err := ParseOverride(bad)
		assert.ErrorIs(t, err, ErrValidation, bad)
	}
}

func TestParseOverride_NonPositiveMeansNoOverride(t *testing.T) {
	for _, in := range []string{"12=0", "12=-4", "12=0.5"} {
		id, amount, err := ParseOverride(in)
		require.NoError(t, err, in)
		assert.Equal(t, int64(12), id, in)
		assert.Zero(t, amount, in)

		o := Overrides{}
		o.Set(id, amount)
		_, ok := o.Lookup(12)
		assert.False(t, ok, in)
	}
}

func TestOverrides_OutOfRangeAmountsAreDropped(t *testing.T) {
	var o Overrides
	err := json.Unmarshal([]byte(`{"1": 1e20, "2": "100000000000000000000", "3": 1e19, "4": 500}`), &o)
	require.NoError(t, err)
	assert.Equal(t, Overrides{4: 500}, o)
}
