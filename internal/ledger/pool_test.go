package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"termfi/core"
	"termfi/pkg/number"
)

const day int64 = 24 * 3600

func newPool(maturity int64) *core.FixedPool {
	return &core.FixedPool{
		AssetID:  "asset",
		Maturity: maturity,
	}
}

// Two borrows against one deposit: the drip at each step must
// reproduce exact linear-decay fractions at the step boundary.
func TestEarningsDistributionScenario(t *testing.T) {
	maturity := int64(10) * core.MaturityInterval
	pool := newPool(maturity)

	// deposit 2500, six days to maturity
	drip := AccrueEarnings(pool, maturity-6*day)
	require.True(t, drip.IsZero())
	yield, fee, _ := PoolDeposit(pool, number.Decimal("2500"), decimal.Zero)
	require.True(t, yield.IsZero())
	require.True(t, fee.IsZero())

	// borrow 2000 with fee 250, four days to maturity
	drip = AccrueEarnings(pool, maturity-4*day)
	require.True(t, drip.IsZero())
	backup := PoolBorrow(pool, number.Decimal("2000"))
	require.True(t, backup.IsZero())
	pool.UnassignedEarnings = pool.UnassignedEarnings.Add(number.Decimal("250"))

	// second borrow 2000 with fee 250, three days to maturity:
	// one of the four remaining days has elapsed, so a quarter of the
	// unassigned earnings drips to the floating pool
	drip = AccrueEarnings(pool, maturity-3*day)
	assert.True(t, drip.Equal(number.Decimal("62.5")), "drip = %s", drip)
	backup = PoolBorrow(pool, number.Decimal("2000"))
	assert.True(t, backup.Equal(number.Decimal("1500")), "backup = %s", backup)
	pool.UnassignedEarnings = pool.UnassignedEarnings.Add(number.Decimal("250"))

	assert.True(t, pool.UnassignedEarnings.Equal(number.Decimal("437.5")),
		"unassigned = %s", pool.UnassignedEarnings)
}

func TestAccrueEarningsIdempotent(t *testing.T) {
	maturity := int64(10) * core.MaturityInterval
	pool := newPool(maturity)
	pool.LastAccrual = maturity - 4*day
	pool.UnassignedEarnings = number.Decimal("100")

	now := maturity - 2*day
	first := AccrueEarnings(pool, now)
	require.True(t, first.Equal(number.Decimal("50")))

	snapshot := *pool
	second := AccrueEarnings(pool, now)
	assert.True(t, second.IsZero())
	assert.Equal(t, snapshot, *pool)
}

func TestAccrueEarningsConvergesAtMaturity(t *testing.T) {
	maturity := int64(10) * core.MaturityInterval
	pool := newPool(maturity)
	pool.LastAccrual = maturity - 3*day
	pool.UnassignedEarnings = number.Decimal("99.9999999999999999")

	// any accrual at or after maturity leaves nothing unassigned
	drip := AccrueEarnings(pool, maturity+5*day)
	assert.True(t, pool.UnassignedEarnings.IsZero())
	assert.True(t, drip.Equal(number.Decimal("99.9999999999999999")))

	// and stays at zero afterwards
	assert.True(t, AccrueEarnings(pool, maturity+6*day).IsZero())
}

// The depositor's slice is weighted toward the arriving flow,
// amount/(supplied+amount), not pro-rata over the pool's total size.
func TestPoolDepositBuyIn(t *testing.T) {
	pool := newPool(int64(10) * core.MaturityInterval)
	pool.LastAccrual = pool.Maturity - day
	pool.Supplied = number.Decimal("100")
	pool.Borrowed = number.Decimal("150")
	pool.UnassignedEarnings = number.Decimal("10")

	yield, backupFee, backupReduction := PoolDeposit(pool, number.Decimal("100"), number.Decimal("0.1"))

	// captured = 10 × 100/(100+100) = 5, fee = 0.5
	assert.True(t, yield.Equal(number.Decimal("4.5")), "yield = %s", yield)
	assert.True(t, backupFee.Equal(number.Decimal("0.5")))
	assert.True(t, pool.UnassignedEarnings.Equal(number.Decimal("5")))
	assert.True(t, pool.Supplied.Equal(number.Decimal("200")))
	// the deposit releases the backed shortfall
	assert.True(t, backupReduction.Equal(number.Decimal("50")))
}

func TestPoolBorrowRepayBackup(t *testing.T) {
	pool := newPool(int64(10) * core.MaturityInterval)
	pool.Supplied = number.Decimal("100")

	require.True(t, PoolBorrow(pool, number.Decimal("80")).IsZero())
	assert.True(t, PoolBorrow(pool, number.Decimal("50")).Equal(number.Decimal("30")))
	require.True(t, pool.BackupSupplied().Equal(number.Decimal("30")))

	// repayment returns backup funding to the floating pool first
	assert.True(t, PoolRepay(pool, number.Decimal("40")).Equal(number.Decimal("30")))
	assert.True(t, pool.Borrowed.Equal(number.Decimal("90")))
	assert.True(t, pool.BackupSupplied().IsZero())
}

func TestPoolWithdrawBackup(t *testing.T) {
	pool := newPool(int64(10) * core.MaturityInterval)
	pool.Supplied = number.Decimal("100")
	pool.Borrowed = number.Decimal("80")

	// withdrawing 50 uncovers 30 of borrowed principal
	add := PoolWithdraw(pool, number.Decimal("50"))
	assert.True(t, add.Equal(number.Decimal("30")), "add = %s", add)
	assert.True(t, pool.Supplied.Equal(number.Decimal("50")))
}

func TestRepayDiscountAndPenalty(t *testing.T) {
	pool := newPool(int64(10) * core.MaturityInterval)
	pool.Borrowed = number.Decimal("200")
	pool.UnassignedEarnings = number.Decimal("20")

	discount := RepayDiscount(pool, number.Decimal("50"))
	assert.True(t, discount.Equal(number.Decimal("5")))

	// penalty accrues linearly per second past maturity
	penalty := LatePenalty(number.Decimal("100"), number.Decimal("0.0000005"), 2*day)
	assert.True(t, penalty.Equal(number.Decimal("8.64")), "penalty = %s", penalty)
	assert.True(t, LatePenalty(number.Decimal("100"), number.Decimal("0.0000005"), 0).IsZero())
}

func TestWithdrawDiscount(t *testing.T) {
	// one tenth of a year at 10% annual: 1% discount factor
	out := WithdrawDiscount(number.Decimal("101"), number.Decimal("0.1"), 365*24*3600/10)
	assert.True(t, out.Equal(number.Decimal("100")), "out = %s", out)

	// at or past maturity the position is worth face value
	out = WithdrawDiscount(number.Decimal("101"), number.Decimal("0.1"), 0)
	assert.True(t, out.Equal(number.Decimal("101")))
}

func TestMaturityState(t *testing.T) {
	now := int64(10)*core.MaturityInterval + 100
	next := core.NextMaturity(now)
	require.Equal(t, int64(11)*core.MaturityInterval, next)

	assert.Equal(t, core.PoolStateValid, core.MaturityState(next, now, 3))
	assert.Equal(t, core.PoolStateValid, core.MaturityState(next+2*core.MaturityInterval, now, 3))
	assert.Equal(t, core.PoolStateNotReady, core.MaturityState(next+3*core.MaturityInterval, now, 3))
	assert.Equal(t, core.PoolStateMatured, core.MaturityState(int64(10)*core.MaturityInterval, now, 3))
	assert.Equal(t, core.PoolStateInvalid, core.MaturityState(next+1, now, 3))
}
