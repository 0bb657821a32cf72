package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decimalPtr(t *testing.T, s string) *decimal.Decimal {
	t.Helper()
	d := mustDecimal(t, s)
	return &d
}

func TestResolveAmounts_DeriveMissingSide(t *testing.T) {
	rate := mustDecimal(t, "40")

	origin, dest, err := resolveAmounts(decimalPtr(t, "1000000"), nil, rate)
	require.NoError(t, err)
	assert.True(t, origin.Equal(mustDecimal(t, "1000000")))
	assert.True(t, dest.Equal(mustDecimal(t, "25000")))

	origin, dest, err = resolveAmounts(nil, decimalPtr(t, "25000"), rate)
	require.NoError(t, err)
	assert.True(t, origin.Equal(mustDecimal(t, "1000000")))
	assert.True(t, dest.Equal(mustDecimal(t, "25000")))
}

func TestResolveAmounts_OriginAuthoritative(t *testing.T) {
	// 两侧都给定时以来源币为准，目的币按快照汇率重新推导
	origin, dest, err := resolveAmounts(decimalPtr(t, "1000000"), decimalPtr(t, "999"), mustDecimal(t, "40"))
	require.NoError(t, err)
	assert.True(t, origin.Equal(mustDecimal(t, "1000000")))
	assert.True(t, dest.Equal(mustDecimal(t, "25000")))
}

func TestResolveAmounts_NonPositiveRejected(t *testing.T) {
	rate := mustDecimal(t, "40")

	_, _, err := resolveAmounts(decimalPtr(t, "0"), nil, rate)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, _, err = resolveAmounts(decimalPtr(t, "-1"), nil, rate)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, _, err = resolveAmounts(nil, decimalPtr(t, "0"), rate)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	// 来源币为正但目的币非正：整体拒绝，不静默丢弃非正的一侧
	_, _, err = resolveAmounts(decimalPtr(t, "1000000"), decimalPtr(t, "0"), rate)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, _, err = resolveAmounts(decimalPtr(t, "1000000"), decimalPtr(t, "-25000"), rate)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestResolveAmounts_BothMissing(t *testing.T) {
	_, _, err := resolveAmounts(nil, nil, mustDecimal(t, "40"))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}
