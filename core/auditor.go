package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// LiquidationIncentive bonus paid above market exchange rate during
// seizure: the liquidator slice goes to the caller, the lenders slice
// is socialized into the debt market's earnings accumulator.
type LiquidationIncentive struct {
	Liquidator decimal.Decimal `json:"liquidator"`
	Lenders    decimal.Decimal `json:"lenders"`
}

// LiquidityDelta hypothetical change applied to one market while
// computing account liquidity, used to pre-check borrows and withdraws
type LiquidityDelta struct {
	AssetID string
	// additional debt, in asset units
	Borrow decimal.Decimal
	// collateral leaving, in asset units
	Withdraw decimal.Decimal
}

// AccountLiquidity aggregate adjusted collateral and debt in the
// common unit; shortfall when debt exceeds collateral
type AccountLiquidity struct {
	Collateral decimal.Decimal `json:"collateral"`
	Debt       decimal.Decimal `json:"debt"`
}

// HasShortfall debt exceeds adjusted collateral
func (l AccountLiquidity) HasShortfall() bool {
	return l.Debt.GreaterThan(l.Collateral)
}

// LiquidationQuote seize computation result
type LiquidationQuote struct {
	// debt actually repaid, in debt asset units
	RepaidAssets decimal.Decimal
	// collateral seized for the liquidator, incentive included
	SeizeAssets decimal.Decimal
	// repaid-value slice credited to the debt market's accumulator
	LendersAssets decimal.Decimal
}

// IAuditorService the risk engine: cross-market collateral and debt
// valuation, operation authorization and liquidation math
type IAuditorService interface {
	// AccountLiquidity values the account across every entered market
	// at current oracle prices, with the optional hypothetical delta
	AccountLiquidity(ctx context.Context, userID string, now time.Time, delta *LiquidityDelta) (AccountLiquidity, error)
	// CheckBorrowAllowed pre-checks a borrow of amount on the market
	CheckBorrowAllowed(ctx context.Context, userID string, market *Market, amount decimal.Decimal, now time.Time) error
	// CheckWithdrawAllowed pre-checks collateral of amount leaving the market
	CheckWithdrawAllowed(ctx context.Context, userID string, market *Market, amount decimal.Decimal, now time.Time) error
	// CheckLiquidation authorizes a liquidation and caps the repay by
	// the close factor; maxAssets is the liquidator's repay budget
	CheckLiquidation(ctx context.Context, liquidator, borrower string, debtMarket, collateralMarket *Market, maxAssets decimal.Decimal, now time.Time) (decimal.Decimal, error)
	// SeizeQuote converts repaid debt into seized collateral with the
	// incentive applied
	SeizeQuote(ctx context.Context, debtMarket, collateralMarket *Market, borrower string, repaidAssets decimal.Decimal, now time.Time) (*LiquidationQuote, error)
	// TotalDebt the borrower's debt in one market, penalties included
	TotalDebt(ctx context.Context, userID string, market *Market, now time.Time) (decimal.Decimal, error)
}
