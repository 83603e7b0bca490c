package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"termfi/core"
	"termfi/pkg/number"
)

func newMarket() *core.Market {
	return &core.Market{
		AssetID:                 "asset",
		Decimals:                8,
		FloatingAssets:          number.Decimal("1000"),
		FloatingDebt:            number.Decimal("500"),
		SupplyShares:            number.Decimal("1000"),
		BorrowShares:            number.Decimal("500"),
		TreasuryFeeRate:         number.Decimal("0.1"),
		ReserveFactor:           number.Decimal("0.1"),
		AccumulatorSmoothFactor: number.Decimal("2"),
		MaxFuturePools:          3,
		CurveA:                  number.Decimal("1"),
		CurveB:                  decimal.Zero,
		UMax:                    number.Decimal("2"),
		UFullRate:               number.Decimal("1"),
	}
}

func TestAccrueInterest(t *testing.T) {
	market := newMarket()
	t0 := time.Unix(int64(10)*core.MaturityInterval, 0)
	require.Nil(t, AccrueInterest(market, t0))

	// first touch only sets the checkpoints
	assert.True(t, market.FloatingDebt.Equal(number.Decimal("500")))
	assert.Equal(t, t0.Unix(), market.LastFloatingDebtUpdate)

	// u = 0.5 → rate = 1/(2−0.5) ≈ 0.6667 annual; one year of accrual
	t1 := t0.Add(365 * 24 * time.Hour)
	require.Nil(t, AccrueInterest(market, t1))

	interest := market.FloatingDebt.Sub(number.Decimal("500"))
	assert.True(t, interest.IsPositive())

	fee := market.TreasuryBalance
	assert.True(t, fee.Equal(interest.Mul(number.Decimal("0.1")).Truncate(16)),
		"fee = %s, interest = %s", fee, interest)
	assert.True(t, market.FloatingAssets.Sub(number.Decimal("1000")).Equal(interest.Sub(fee)))
}

func TestAccrueInterestIdempotent(t *testing.T) {
	market := newMarket()
	market.EarningsAccumulator = number.Decimal("30")
	now := time.Unix(int64(10)*core.MaturityInterval, 0)

	require.Nil(t, AccrueInterest(market, now))
	snapshot := *market
	require.Nil(t, AccrueInterest(market, now))
	assert.Equal(t, snapshot, *market)
}

func TestAccumulatorRelease(t *testing.T) {
	market := newMarket()
	market.EarningsAccumulator = number.Decimal("100")

	window := int64(2) * 3 * core.MaturityInterval
	release := AccumulatorRelease(market, window)
	// elapsed == smoothFactor × maxFuturePools × interval → half released
	assert.True(t, release.Equal(number.Decimal("50")), "release = %s", release)

	assert.True(t, AccumulatorRelease(market, 0).IsZero())
}

// floatingAssets + Σ supplied ≥ floatingDebt + floatingBackupBorrowed
// before and after accrual.
func TestLiquidityInvariantUnderAccrual(t *testing.T) {
	market := newMarket()
	market.FloatingBackupBorrowed = number.Decimal("200")
	poolSupplied := number.Decimal("300")

	check := func() {
		lhs := market.FloatingAssets.Add(poolSupplied)
		rhs := market.FloatingDebt.Add(market.FloatingBackupBorrowed)
		assert.True(t, lhs.GreaterThanOrEqual(rhs), "lhs=%s rhs=%s", lhs, rhs)
	}

	t0 := time.Unix(int64(10)*core.MaturityInterval, 0)
	require.Nil(t, AccrueInterest(market, t0))
	check()

	for i := 1; i <= 12; i++ {
		require.Nil(t, AccrueInterest(market, t0.Add(time.Duration(i)*30*24*time.Hour)))
		check()
	}
}
