package ledger

import (
	"github.com/shopspring/decimal"

	"termfi/core"
)

var (
	// SecondsPerYear accrual time base
	SecondsPerYear = decimal.NewFromInt(365 * 24 * 3600)
	// AdjustFactorMin collateral haircut lower bound
	AdjustFactorMin = decimal.NewFromFloat(0.3)
	// AdjustFactorMax collateral haircut upper bound
	AdjustFactorMax = decimal.NewFromFloat(0.9)
	// CloseFactorMin close factor must be strictly greater than this value
	CloseFactorMin = decimal.NewFromFloat(0.05)
	// CloseFactorMax close factor must not exceed this value
	CloseFactorMax = decimal.NewFromFloat(0.9)
	// LiquidationIncentiveMin per-slice incentive lower bound
	LiquidationIncentiveMin = decimal.NewFromFloat(0.01)
	// LiquidationIncentiveMax per-slice incentive upper bound
	LiquidationIncentiveMax = decimal.NewFromFloat(0.9)
	// MaxPenaltyRatePerDay late-repay surcharge daily bound
	MaxPenaltyRatePerDay = decimal.NewFromFloat(0.05)
	// MaxPrecision max precision
	MaxPrecision int32 = 16

	one   = decimal.New(1, 0)
	three = decimal.NewFromInt(3)
)

// Curve utilization → annual rate. r(u) = A/(UMax − u) + B below
// UFullRate, pinned to r(UFullRate) between UFullRate and UMax, not
// quotable above UMax.
type Curve struct {
	A         decimal.Decimal
	B         decimal.Decimal
	UMax      decimal.Decimal
	UFullRate decimal.Decimal
}

// NewCurve validated curve. Enforces 1 ≤ UFullRate < UMax ≤ 3·UFullRate
// and a non-negative base rate, rejecting degenerate configurations.
func NewCurve(a, b, uMax, uFullRate decimal.Decimal) (*Curve, error) {
	if !a.IsPositive() {
		return nil, core.ErrParameterOutOfRange
	}
	if uFullRate.LessThan(one) ||
		uFullRate.GreaterThanOrEqual(uMax) ||
		uMax.GreaterThan(uFullRate.Mul(three)) {
		return nil, core.ErrParameterOutOfRange
	}
	// rate at zero utilization must not be negative
	if a.Div(uMax).Add(b).IsNegative() {
		return nil, core.ErrParameterOutOfRange
	}

	return &Curve{A: a, B: b, UMax: uMax, UFullRate: uFullRate}, nil
}

// CurveOf market's configured curve
func CurveOf(market *core.Market) (*Curve, error) {
	return NewCurve(market.CurveA, market.CurveB, market.UMax, market.UFullRate)
}

// Rate annual rate at utilization u
func (c *Curve) Rate(u decimal.Decimal) (decimal.Decimal, error) {
	if u.IsNegative() || u.GreaterThan(c.UMax) {
		return decimal.Zero, core.ErrUtilizationExceeded
	}
	if u.GreaterThan(c.UFullRate) {
		u = c.UFullRate
	}

	return c.A.Div(c.UMax.Sub(u)).Add(c.B).Truncate(MaxPrecision), nil
}

// FixedRate annual rate for a fixed-pool borrow. The quote includes the
// backup utilization already drawn from the floating pool, so stacking
// fixed borrows against a thin floating pool raises the rate faster
// than pool utilization alone would.
func (c *Curve) FixedRate(uFixed, uBackup decimal.Decimal) (decimal.Decimal, error) {
	if uFixed.IsNegative() || uBackup.IsNegative() {
		return decimal.Zero, core.ErrUtilizationExceeded
	}

	return c.Rate(uFixed.Add(uBackup))
}

// Utilization debt over assets. An indebted pool with no assets is
// beyond any quotable utilization.
func Utilization(debt, assets decimal.Decimal) decimal.Decimal {
	if !assets.IsPositive() {
		if debt.IsPositive() {
			return decimal.New(1, 6)
		}
		return decimal.Zero
	}

	return debt.Div(assets).Truncate(MaxPrecision)
}

// FloatingUtilization pre-touch floating pool utilization
func FloatingUtilization(market *core.Market) decimal.Decimal {
	return Utilization(market.FloatingDebt, market.FloatingAssets)
}

// BackupUtilization floating utilization including backup borrowing
func BackupUtilization(market *core.Market) decimal.Decimal {
	return Utilization(market.FloatingDebt.Add(market.FloatingBackupBorrowed), market.FloatingAssets)
}

// FixedFee interest owed on a fixed borrow held until maturity
func FixedFee(amount, annualRate decimal.Decimal, secondsToMaturity int64) decimal.Decimal {
	return amount.
		Mul(annualRate).
		Mul(decimal.NewFromInt(secondsToMaturity)).
		Div(SecondsPerYear).
		Truncate(MaxPrecision)
}
