package ledger

import (
	"github.com/shopspring/decimal"

	"termfi/core"
)

// MaxRepay close-factor cap on a single liquidation call
func MaxRepay(totalDebt, closeFactor decimal.Decimal) decimal.Decimal {
	return totalDebt.Mul(closeFactor).Truncate(MaxPrecision)
}

// RepayBudget the debt a liquidator's payment can retire. The payment
// funds both the retired debt and the lenders incentive slice credited
// to the debt market's earnings accumulator, so the accumulator never
// holds value no one paid in.
func RepayBudget(payment decimal.Decimal, incentive core.LiquidationIncentive) decimal.Decimal {
	return payment.Div(one.Add(incentive.Lenders)).Truncate(MaxPrecision)
}

// Seize converts repaid debt assets into seized collateral assets at
// oracle prices, grossed up by both incentive slices. The lenders
// slice of the repaid value is returned separately for the debt
// market's earnings accumulator.
func Seize(repaidAssets, debtPrice, collateralPrice decimal.Decimal, collateralDecimals int32, incentive core.LiquidationIncentive) (seizeAssets, lendersAssets decimal.Decimal) {
	base := repaidAssets.
		Mul(debtPrice).
		Div(collateralPrice).
		Truncate(MaxPrecision)

	seizeAssets = base.
		Mul(one.Add(incentive.Liquidator).Add(incentive.Lenders)).
		Truncate(collateralDecimals)
	lendersAssets = repaidAssets.Mul(incentive.Lenders).Truncate(MaxPrecision)

	return seizeAssets, lendersAssets
}

// AdjustedCollateral market value of collateral assets in the common
// unit with the haircut applied
func AdjustedCollateral(assets, price, adjustFactor decimal.Decimal) decimal.Decimal {
	return assets.Mul(price).Mul(adjustFactor).Truncate(MaxPrecision)
}

// AdjustedDebt market value of debt assets in the common unit, grossed
// up by the same haircut
func AdjustedDebt(assets, price, adjustFactor decimal.Decimal) decimal.Decimal {
	return assets.Mul(price).Div(adjustFactor).Truncate(MaxPrecision)
}
