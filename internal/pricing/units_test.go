package pricing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnitAliases(t *testing.T) {
	cases := map[string]PriceUnit{
		"each":  UnitEach,
		"EA":    UnitEach,
		"pr":    UnitPair,
		"Pair":  UnitPair,
		"DZ":    UnitDozen,
		"dozen": UnitDozen,
		"cs":    UnitCase,
		" case": UnitCase,
	}
	for raw, want := range cases {
		got, err := ParseUnit(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
}

func TestParseUnitUnknown(t *testing.T) {
	_, err := ParseUnit("gross")
	require.Error(t, err)
}

func TestNormalizeUnitInheritsProductUnit(t *testing.T) {
	unit, err := NormalizeUnit(1, 0, "dozen", "")
	require.NoError(t, err)
	assert.Equal(t, UnitDozen, unit)
}

func TestNormalizeUnitAliasAgreement(t *testing.T) {
	// "pr" and "pair" are the same canonical unit, not a mismatch.
	unit, err := NormalizeUnit(1, 2, "pair", "pr")
	require.NoError(t, err)
	assert.Equal(t, UnitPair, unit)
}

func TestNormalizeUnitMismatch(t *testing.T) {
	_, err := NormalizeUnit(7, 9, "dozen", "pr")
	require.Error(t, err)

	var mismatch *UnitMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, int64(7), mismatch.ProductID)
	assert.Equal(t, int64(9), mismatch.VariantID)
	assert.Equal(t, "dozen", mismatch.ProductUnit)
	assert.Equal(t, "pr", mismatch.VariantUnit)
}
