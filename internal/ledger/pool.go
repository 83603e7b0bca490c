package ledger

import (
	"github.com/shopspring/decimal"

	"termfi/core"
	"termfi/pkg/number"
)

// AccrueEarnings drips the pro-rata share of a pool's unassigned
// earnings that elapsed time has earned for the floating pool and
// returns it for the market's earnings accumulator. The drip decays
// linearly so unassigned earnings reach exactly zero at maturity.
// Calling twice at the same instant is a no-op.
func AccrueEarnings(pool *core.FixedPool, now int64) decimal.Decimal {
	last := pool.LastAccrual
	if last == 0 {
		pool.LastAccrual = min64(now, pool.Maturity)
		return decimal.Zero
	}
	if last >= pool.Maturity {
		return decimal.Zero
	}

	effective := min64(now, pool.Maturity)
	if effective <= last {
		return decimal.Zero
	}

	elapsed := decimal.NewFromInt(effective - last)
	span := decimal.NewFromInt(pool.Maturity - last)
	drip := pool.UnassignedEarnings.Mul(elapsed).Div(span).Truncate(MaxPrecision)
	if effective == pool.Maturity {
		// no dust left behind at maturity
		drip = pool.UnassignedEarnings
	}

	pool.UnassignedEarnings = pool.UnassignedEarnings.Sub(drip)
	pool.LastAccrual = effective

	return drip
}

// PoolDeposit applies a deposit to the pool. The depositor buys a slice
// of the remaining unassigned earnings weighted toward the arriving
// flow, amount/(supplied+amount), not pro-rata over total pool size;
// backupFeeRate diverts part of that slice to the accumulator. Returns
// the depositor's captured yield, the accumulator fee and the backup
// debt the deposit releases back to the floating pool.
func PoolDeposit(pool *core.FixedPool, amount, backupFeeRate decimal.Decimal) (yield, backupFee, backupDebtReduction decimal.Decimal) {
	backupDebtReduction = number.Min(pool.BackupSupplied(), amount)

	if pool.UnassignedEarnings.IsPositive() && amount.IsPositive() {
		captured := pool.UnassignedEarnings.
			Mul(amount).
			Div(pool.Supplied.Add(amount)).
			Truncate(MaxPrecision)
		backupFee = captured.Mul(backupFeeRate).Truncate(MaxPrecision)
		yield = captured.Sub(backupFee)
		pool.UnassignedEarnings = pool.UnassignedEarnings.Sub(captured)
	}

	pool.Supplied = pool.Supplied.Add(amount)

	return yield, backupFee, backupDebtReduction
}

// PoolBorrow applies a borrow to the pool and returns the shortfall the
// floating pool must back
func PoolBorrow(pool *core.FixedPool, amount decimal.Decimal) (backupDebtAddition decimal.Decimal) {
	newBorrowed := pool.Borrowed.Add(amount)
	covered := number.Min(number.Max(pool.Borrowed, pool.Supplied), newBorrowed)
	backupDebtAddition = newBorrowed.Sub(covered)
	pool.Borrowed = newBorrowed

	return backupDebtAddition
}

// PoolRepay reduces the pool's borrowed principal and returns the
// backup funding released to the floating pool first
func PoolRepay(pool *core.FixedPool, principal decimal.Decimal) (backupDebtReduction decimal.Decimal) {
	backupDebtReduction = number.Min(pool.BackupSupplied(), principal)
	pool.Borrowed = pool.Borrowed.Sub(principal)

	return backupDebtReduction
}

// PoolWithdraw removes supplied principal and returns the new shortfall
// the floating pool must back
func PoolWithdraw(pool *core.FixedPool, principal decimal.Decimal) (backupDebtAddition decimal.Decimal) {
	before := pool.BackupSupplied()
	pool.Supplied = pool.Supplied.Sub(principal)
	backupDebtAddition = pool.BackupSupplied().Sub(before)

	return backupDebtAddition
}

// RepayDiscount early-repayment rebate bought from the pool's
// unassigned earnings, pro-rata to the principal being repaid
func RepayDiscount(pool *core.FixedPool, principal decimal.Decimal) decimal.Decimal {
	if !pool.UnassignedEarnings.IsPositive() || !pool.Borrowed.IsPositive() {
		return decimal.Zero
	}

	return pool.UnassignedEarnings.
		Mul(number.Min(principal, pool.Borrowed)).
		Div(pool.Borrowed).
		Truncate(MaxPrecision)
}

// LatePenalty surcharge on positionAssets after secondsLate past
// maturity at the market's per-second penalty rate
func LatePenalty(positionAssets, penaltyRate decimal.Decimal, secondsLate int64) decimal.Decimal {
	if secondsLate <= 0 {
		return decimal.Zero
	}

	return positionAssets.
		Mul(penaltyRate).
		Mul(decimal.NewFromInt(secondsLate)).
		Truncate(MaxPrecision)
}

// WithdrawDiscount present value of positionAssets sold back before
// maturity at the quoted annual rate
func WithdrawDiscount(positionAssets, annualRate decimal.Decimal, secondsToMaturity int64) decimal.Decimal {
	if secondsToMaturity <= 0 {
		return positionAssets
	}

	factor := one.Add(
		annualRate.
			Mul(decimal.NewFromInt(secondsToMaturity)).
			Div(SecondsPerYear),
	)

	return positionAssets.Div(factor).Truncate(MaxPrecision)
}

// BackupBorrowCap aggregate backup borrowing the floating pool will
// back across all maturities
func BackupBorrowCap(market *core.Market) decimal.Decimal {
	return market.FloatingAssets.
		Mul(one.Sub(market.ReserveFactor)).
		Truncate(MaxPrecision)
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
