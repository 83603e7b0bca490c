package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"termfi/core"
)

// AccrueInterest advances the market's floating checkpoints to now:
// elapsed-time interest at pre-touch utilization joins the floating
// debt, split between the treasury and depositor value, and the
// earnings accumulator releases its smoothed slice into floating
// assets. Runs before every delta is applied; with no elapsed time it
// changes no field.
func AccrueInterest(market *core.Market, now time.Time) error {
	ts := now.Unix()

	if market.LastFloatingDebtUpdate == 0 {
		market.LastFloatingDebtUpdate = ts
	}
	if elapsed := ts - market.LastFloatingDebtUpdate; elapsed > 0 && market.FloatingDebt.IsPositive() {
		curve, err := CurveOf(market)
		if err != nil {
			return err
		}

		rate, err := curve.Rate(FloatingUtilization(market))
		if err != nil {
			return err
		}

		interest := market.FloatingDebt.
			Mul(rate).
			Mul(decimal.NewFromInt(elapsed)).
			Div(SecondsPerYear).
			Truncate(MaxPrecision)
		treasuryFee := interest.Mul(market.TreasuryFeeRate).Truncate(MaxPrecision)

		market.FloatingDebt = market.FloatingDebt.Add(interest)
		market.FloatingAssets = market.FloatingAssets.Add(interest.Sub(treasuryFee))
		market.TreasuryBalance = market.TreasuryBalance.Add(treasuryFee)
	}
	market.LastFloatingDebtUpdate = ts

	if market.LastAccumulatorAccrual == 0 {
		market.LastAccumulatorAccrual = ts
	}
	if elapsed := ts - market.LastAccumulatorAccrual; elapsed > 0 && market.EarningsAccumulator.IsPositive() {
		release := AccumulatorRelease(market, elapsed)
		market.EarningsAccumulator = market.EarningsAccumulator.Sub(release)
		market.FloatingAssets = market.FloatingAssets.Add(release)
	}
	market.LastAccumulatorAccrual = ts

	return nil
}

// AccumulatorRelease slice of the earnings accumulator released after
// elapsed seconds: accumulator × elapsed/(elapsed + smoothFactor ×
// maxFuturePools × interval). A higher smooth factor slows the release.
func AccumulatorRelease(market *core.Market, elapsed int64) decimal.Decimal {
	if elapsed <= 0 {
		return decimal.Zero
	}

	window := market.AccumulatorSmoothFactor.
		Mul(decimal.NewFromInt(int64(market.MaxFuturePools) * core.MaturityInterval))
	e := decimal.NewFromInt(elapsed)

	return market.EarningsAccumulator.
		Mul(e).
		Div(e.Add(window)).
		Truncate(MaxPrecision)
}

// TotalFloatingBorrowed floating principal a market has committed:
// floating debt plus backup borrowing
func TotalFloatingBorrowed(market *core.Market) decimal.Decimal {
	return market.FloatingDebt.Add(market.FloatingBackupBorrowed)
}
