package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"termfi/core"
	"termfi/pkg/number"
)

func TestMaxRepay(t *testing.T) {
	repay := MaxRepay(number.Decimal("1000"), number.Decimal("0.5"))
	assert.True(t, repay.Equal(number.Decimal("500")))
}

func TestSeize(t *testing.T) {
	incentive := core.LiquidationIncentive{
		Liquidator: number.Decimal("0.05"),
		Lenders:    number.Decimal("0.01"),
	}

	// repay 1000 of a $1 debt asset against $3000 collateral
	seize, lenders := Seize(
		number.Decimal("1000"),
		number.Decimal("1"),
		number.Decimal("3000"),
		8,
		incentive,
	)
	assert.True(t, seize.Equal(number.Decimal("0.35333333")), "seize = %s", seize)
	assert.True(t, lenders.Equal(number.Decimal("10")), "lenders = %s", lenders)
}

func TestRepayBudget(t *testing.T) {
	incentive := core.LiquidationIncentive{
		Liquidator: number.Decimal("0.05"),
		Lenders:    number.Decimal("0.01"),
	}

	repaid := RepayBudget(number.Decimal("10100"), incentive)
	assert.True(t, repaid.Equal(number.Decimal("10000")), "repaid = %s", repaid)

	// retired debt plus the lenders slice never exceeds the payment
	repaid = RepayBudget(number.Decimal("500"), incentive)
	total := repaid.Add(repaid.Mul(incentive.Lenders))
	assert.True(t, total.LessThanOrEqual(number.Decimal("500")), "total = %s", total)

	// no lenders incentive, the whole payment retires debt
	assert.True(t, RepayBudget(number.Decimal("500"), core.LiquidationIncentive{}).Equal(number.Decimal("500")))
}

func TestSeizeNoIncentive(t *testing.T) {
	seize, lenders := Seize(
		number.Decimal("300"),
		number.Decimal("1"),
		number.Decimal("100"),
		8,
		core.LiquidationIncentive{},
	)
	assert.True(t, seize.Equal(number.Decimal("3")))
	assert.True(t, lenders.IsZero())
}

func TestAdjustedLiquidity(t *testing.T) {
	// 1 BTC at $63000 haircut 0.6, plus 1 ETH at $3000 haircut 0.7
	collateral := AdjustedCollateral(number.Decimal("1"), number.Decimal("63000"), number.Decimal("0.6")).
		Add(AdjustedCollateral(number.Decimal("1"), number.Decimal("3000"), number.Decimal("0.7")))
	assert.True(t, collateral.Equal(number.Decimal("39900")), "collateral = %s", collateral)

	// borrowing power is collateral over debt grossed up by the haircut
	debt := AdjustedDebt(number.Decimal("20000"), number.Decimal("1"), number.Decimal("0.8"))
	assert.True(t, debt.Equal(number.Decimal("25000")))

	liquidity := core.AccountLiquidity{Collateral: collateral, Debt: debt}
	assert.False(t, liquidity.HasShortfall())
}
