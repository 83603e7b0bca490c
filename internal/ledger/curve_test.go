package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"termfi/core"
	"termfi/pkg/number"
)

func TestNewCurveValidation(t *testing.T) {
	cases := []struct {
		name          string
		a, b, uMax, u string
		ok            bool
	}{
		{"valid", "1", "0", "2", "1", true},
		{"valid tight", "0.02", "0.01", "1.3", "1", true},
		{"uFullRate below one", "1", "0", "2", "0.9", false},
		{"uFullRate equals uMax", "1", "0", "1.5", "1.5", false},
		{"uMax above 3x uFullRate", "1", "0", "4", "1", false},
		{"non-positive A", "0", "0", "2", "1", false},
		{"negative base rate", "1", "-1", "2", "1", false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := NewCurve(number.Decimal(c.a), number.Decimal(c.b), number.Decimal(c.uMax), number.Decimal(c.u))
			if c.ok {
				assert.Nil(t, err)
			} else {
				assert.Equal(t, core.ErrParameterOutOfRange, err)
			}
		})
	}
}

func TestCurveRate(t *testing.T) {
	curve, err := NewCurve(number.Decimal("1"), number.Decimal("0"), number.Decimal("2"), number.Decimal("1"))
	require.Nil(t, err)

	r, err := curve.Rate(decimal.Zero)
	require.Nil(t, err)
	assert.True(t, r.Equal(number.Decimal("0.5")))

	r, err = curve.Rate(number.Decimal("1"))
	require.Nil(t, err)
	assert.True(t, r.Equal(number.Decimal("1")))

	// pinned to the full rate between uFullRate and uMax
	r, err = curve.Rate(number.Decimal("1.5"))
	require.Nil(t, err)
	assert.True(t, r.Equal(number.Decimal("1")))

	// monotonic below the ceiling
	lo, _ := curve.Rate(number.Decimal("0.2"))
	hi, _ := curve.Rate(number.Decimal("0.8"))
	assert.True(t, hi.GreaterThan(lo))

	// not quotable above uMax
	_, err = curve.Rate(number.Decimal("2.1"))
	assert.Equal(t, core.ErrUtilizationExceeded, err)
}

func TestCurveFixedRateStacking(t *testing.T) {
	curve, err := NewCurve(number.Decimal("1"), number.Decimal("0"), number.Decimal("2"), number.Decimal("1"))
	require.Nil(t, err)

	plain, err := curve.FixedRate(number.Decimal("0.3"), decimal.Zero)
	require.Nil(t, err)

	backed, err := curve.FixedRate(number.Decimal("0.3"), number.Decimal("0.4"))
	require.Nil(t, err)
	assert.True(t, backed.GreaterThan(plain))

	_, err = curve.FixedRate(number.Decimal("1.5"), number.Decimal("0.6"))
	assert.Equal(t, core.ErrUtilizationExceeded, err)
}

func TestFixedFee(t *testing.T) {
	fee := FixedFee(number.Decimal("1000"), number.Decimal("0.1"), 365*24*3600/10)
	assert.True(t, fee.Equal(number.Decimal("10")))
}

func TestUtilization(t *testing.T) {
	assert.True(t, Utilization(number.Decimal("50"), number.Decimal("100")).Equal(number.Decimal("0.5")))
	assert.True(t, Utilization(decimal.Zero, decimal.Zero).IsZero())
	// indebted with no assets: beyond any quotable utilization
	assert.True(t, Utilization(number.Decimal("1"), decimal.Zero).GreaterThan(number.Decimal("3")))
}
