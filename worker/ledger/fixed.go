package ledger

import (
	"context"
	"time"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"termfi/core"
	"termfi/internal/ledger"
	"termfi/pkg/wire"
)

// accrueMarketAndPool floating accrual plus the touched pool's drip
func accrueMarketAndPool(market *core.Market, pool *core.FixedPool, now int64) error {
	if err := ledger.AccrueInterest(market, timeOf(now)); err != nil {
		return err
	}

	drip := ledger.AccrueEarnings(pool, now)
	market.FloatingAssets = market.FloatingAssets.Add(drip)
	return nil
}

// principalOf the principal slice of positionAssets, keeping the
// position's principal/fee ratio
func principalOf(position *core.FixedPosition, positionAssets decimal.Decimal) decimal.Decimal {
	total := position.Assets()
	if !total.IsPositive() {
		return decimal.Zero
	}

	return position.Principal.Mul(positionAssets).Div(total).Truncate(ledger.MaxPrecision)
}

func (w *Ledger) handleDepositFixed(ctx context.Context, action *core.Action, body []byte) error {
	log := logger.FromContext(ctx).WithField("event", "deposit_fixed")
	ctx = logger.WithContext(ctx, log)

	var (
		maturity     int64
		minAmountOut decimal.Decimal
	)
	if _, err := wire.Scan(body, &maturity, &minAmountOut); err != nil {
		log.WithError(err).Infoln("skip: scan memo failed")
		return w.refund(ctx, action, core.ActionTypeDepositFixed, core.ErrInvalidArgument)
	}

	market, err := w.requireOpenMarket(ctx, action.AssetID)
	if err != nil {
		return w.refund(ctx, action, core.ActionTypeDepositFixed, err)
	}

	if market.Version >= int64(action.ID) {
		log.Infoln("skip: action outdated")
		return nil
	}

	amount := action.Amount.Truncate(market.Decimals)
	if !amount.IsPositive() {
		return w.refund(ctx, action, core.ActionTypeDepositFixed, core.ErrInvalidAmount)
	}

	now := action.CreatedAt.Unix()
	pool, err := w.requirePoolState(ctx, market, maturity, now, core.PoolStateValid)
	if err != nil {
		return w.refund(ctx, action, core.ActionTypeDepositFixed, err)
	}

	if err := accrueMarketAndPool(market, pool, now); err != nil {
		return w.refund(ctx, action, core.ActionTypeDepositFixed, err)
	}

	yield, backupFee, backupReduction := ledger.PoolDeposit(pool, amount, market.BackupFeeRate)
	positionAssets := amount.Add(yield)
	if minAmountOut.IsPositive() && positionAssets.LessThan(minAmountOut) {
		return w.refund(ctx, action, core.ActionTypeDepositFixed, &core.SlippageError{
			Quoted: positionAssets.String(),
			Bound:  minAmountOut.String(),
			Min:    true,
		})
	}

	market.EarningsAccumulator = market.EarningsAccumulator.Add(backupFee)
	market.FloatingBackupBorrowed = market.FloatingBackupBorrowed.Sub(backupReduction)

	position, err := w.poolStore.FindPosition(ctx, action.UserID, market.AssetID, maturity, core.PositionSupply)
	if err != nil {
		if !gorm.IsRecordNotFoundError(err) {
			return err
		}
		position = &core.FixedPosition{
			UserID:   action.UserID,
			AssetID:  market.AssetID,
			Maturity: maturity,
			Side:     core.PositionSupply,
		}
	}

	position.Principal = position.Principal.Add(amount)
	position.Fee = position.Fee.Add(yield)

	return w.db.Tx(func(tx *db.DB) error {
		if err := w.savePoolAndPosition(ctx, tx, action, pool, position); err != nil {
			return err
		}

		if err := w.marketStore.Update(ctx, tx, market, int64(action.ID)); err != nil {
			return err
		}

		extra := core.NewTransactionExtra()
		extra.Put("yield", yield)
		extra.Put("position_assets", positionAssets)
		transaction := core.BuildTransactionFromAction(action, action.UserID, core.ActionTypeDepositFixed, market.AssetID, amount, maturity, extra)
		if err := w.transactionStore.Create(ctx, transaction); err != nil {
			return err
		}

		log.WithFields(logrus.Fields{"amount": amount, "yield": yield}).Infoln("fixed deposit done")
		return nil
	})
}

func (w *Ledger) handleBorrowFixed(ctx context.Context, action *core.Action, body []byte) error {
	log := logger.FromContext(ctx).WithField("event", "borrow_fixed")
	ctx = logger.WithContext(ctx, log)

	var (
		assetID       string
		maturity      int64
		amount        decimal.Decimal
		maxAmountOwed decimal.Decimal
	)
	if _, err := wire.Scan(body, &assetID, &maturity, &amount, &maxAmountOwed); err != nil {
		log.WithError(err).Infoln("skip: scan memo failed")
		return w.refund(ctx, action, core.ActionTypeBorrowFixed, core.ErrInvalidArgument)
	}

	market, err := w.requireOpenMarket(ctx, assetID)
	if err != nil {
		return w.refund(ctx, action, core.ActionTypeBorrowFixed, err)
	}

	if market.Version >= int64(action.ID) {
		log.Infoln("skip: action outdated")
		return nil
	}

	amount = amount.Truncate(market.Decimals)
	if !amount.IsPositive() {
		return w.refund(ctx, action, core.ActionTypeBorrowFixed, core.ErrInvalidAmount)
	}

	now := action.CreatedAt.Unix()
	pool, err := w.requirePoolState(ctx, market, maturity, now, core.PoolStateValid)
	if err != nil {
		return w.refund(ctx, action, core.ActionTypeBorrowFixed, err)
	}

	if err := accrueMarketAndPool(market, pool, now); err != nil {
		return w.refund(ctx, action, core.ActionTypeBorrowFixed, err)
	}

	curve, err := ledger.CurveOf(market)
	if err != nil {
		return w.refund(ctx, action, core.ActionTypeBorrowFixed, err)
	}

	uFixed := ledger.Utilization(pool.Borrowed.Add(amount), pool.Supplied.Add(market.FloatingAssets))
	rate, err := curve.FixedRate(uFixed, ledger.BackupUtilization(market))
	if err != nil {
		return w.refund(ctx, action, core.ActionTypeBorrowFixed, core.ErrInsufficientLiquidity)
	}

	fee := ledger.FixedFee(amount, rate, maturity-now)
	owed := amount.Add(fee)
	if maxAmountOwed.IsPositive() && owed.GreaterThan(maxAmountOwed) {
		return w.refund(ctx, action, core.ActionTypeBorrowFixed, &core.SlippageError{
			Quoted: owed.String(),
			Bound:  maxAmountOwed.String(),
		})
	}

	if err := w.auditorSrv.CheckBorrowAllowed(ctx, action.UserID, market, owed, action.CreatedAt); err != nil {
		return w.refund(ctx, action, core.ActionTypeBorrowFixed, err)
	}

	backupAdd := ledger.PoolBorrow(pool, amount)
	if backupAdd.IsPositive() {
		if backupAdd.GreaterThan(availableCash(market)) {
			return w.refund(ctx, action, core.ActionTypeBorrowFixed, core.ErrInsufficientLiquidity)
		}
		if market.FloatingBackupBorrowed.Add(backupAdd).GreaterThan(ledger.BackupBorrowCap(market)) {
			return w.refund(ctx, action, core.ActionTypeBorrowFixed, core.ErrInsufficientLiquidity)
		}
		market.FloatingBackupBorrowed = market.FloatingBackupBorrowed.Add(backupAdd)
	}

	pool.UnassignedEarnings = pool.UnassignedEarnings.Add(fee)

	position, err := w.poolStore.FindPosition(ctx, action.UserID, market.AssetID, maturity, core.PositionBorrow)
	if err != nil {
		if !gorm.IsRecordNotFoundError(err) {
			return err
		}
		position = &core.FixedPosition{
			UserID:   action.UserID,
			AssetID:  market.AssetID,
			Maturity: maturity,
			Side:     core.PositionBorrow,
		}
	}

	position.Principal = position.Principal.Add(amount)
	position.Fee = position.Fee.Add(fee)

	return w.db.Tx(func(tx *db.DB) error {
		if err := w.savePoolAndPosition(ctx, tx, action, pool, position); err != nil {
			return err
		}

		if err := w.marketStore.Update(ctx, tx, market, int64(action.ID)); err != nil {
			return err
		}

		extra := core.NewTransactionExtra()
		extra.Put("fee", fee)
		extra.Put("owed", owed)
		transaction := core.BuildTransactionFromAction(action, action.UserID, core.ActionTypeBorrowFixed, market.AssetID, amount, maturity, extra)
		if err := w.transactionStore.Create(ctx, transaction); err != nil {
			return err
		}

		return w.transferOut(ctx, tx, action, action.UserID, market.AssetID, amount, core.ActionTypeBorrowFixed)
	})
}

func (w *Ledger) handleWithdrawFixed(ctx context.Context, action *core.Action, body []byte) error {
	log := logger.FromContext(ctx).WithField("event", "withdraw_fixed")
	ctx = logger.WithContext(ctx, log)

	var (
		assetID        string
		maturity       int64
		positionAssets decimal.Decimal
		minAmountOut   decimal.Decimal
	)
	if _, err := wire.Scan(body, &assetID, &maturity, &positionAssets, &minAmountOut); err != nil {
		log.WithError(err).Infoln("skip: scan memo failed")
		return w.refund(ctx, action, core.ActionTypeWithdrawFixed, core.ErrInvalidArgument)
	}

	market, err := w.requireOpenMarket(ctx, assetID)
	if err != nil {
		return w.refund(ctx, action, core.ActionTypeWithdrawFixed, err)
	}

	if market.Version >= int64(action.ID) {
		log.Infoln("skip: action outdated")
		return nil
	}

	now := action.CreatedAt.Unix()
	pool, err := w.requirePoolState(ctx, market, maturity, now, core.PoolStateValid, core.PoolStateMatured)
	if err != nil {
		return w.refund(ctx, action, core.ActionTypeWithdrawFixed, err)
	}

	position, err := w.requirePosition(ctx, action.UserID, assetID, maturity, core.PositionSupply)
	if err != nil {
		return w.refund(ctx, action, core.ActionTypeWithdrawFixed, err)
	}

	if !positionAssets.IsPositive() || positionAssets.GreaterThan(position.Assets()) {
		positionAssets = position.Assets()
	}
	if !positionAssets.IsPositive() {
		return w.refund(ctx, action, core.ActionTypeWithdrawFixed, core.ErrInvalidAmount)
	}

	if err := accrueMarketAndPool(market, pool, now); err != nil {
		return w.refund(ctx, action, core.ActionTypeWithdrawFixed, err)
	}

	principal := principalOf(position, positionAssets)

	amountOut := positionAssets
	if now < maturity {
		curve, err := ledger.CurveOf(market)
		if err != nil {
			return w.refund(ctx, action, core.ActionTypeWithdrawFixed, err)
		}

		uFixed := ledger.Utilization(pool.Borrowed, pool.Supplied.Sub(principal).Add(market.FloatingAssets))
		rate, err := curve.FixedRate(uFixed, ledger.BackupUtilization(market))
		if err != nil {
			return w.refund(ctx, action, core.ActionTypeWithdrawFixed, core.ErrInsufficientLiquidity)
		}

		amountOut = ledger.WithdrawDiscount(positionAssets, rate, maturity-now)
		// the haircut stays in the pool for whoever holds to maturity
		pool.UnassignedEarnings = pool.UnassignedEarnings.Add(positionAssets.Sub(amountOut))
	}

	if minAmountOut.IsPositive() && amountOut.LessThan(minAmountOut) {
		return w.refund(ctx, action, core.ActionTypeWithdrawFixed, &core.SlippageError{
			Quoted: amountOut.String(),
			Bound:  minAmountOut.String(),
			Min:    true,
		})
	}

	backupAdd := ledger.PoolWithdraw(pool, principal)
	if backupAdd.IsPositive() {
		if backupAdd.GreaterThan(availableCash(market)) {
			return w.refund(ctx, action, core.ActionTypeWithdrawFixed, core.ErrInsufficientLiquidity)
		}
		if market.FloatingBackupBorrowed.Add(backupAdd).GreaterThan(ledger.BackupBorrowCap(market)) {
			return w.refund(ctx, action, core.ActionTypeWithdrawFixed, core.ErrInsufficientLiquidity)
		}
		market.FloatingBackupBorrowed = market.FloatingBackupBorrowed.Add(backupAdd)
	}

	position.Scale(positionAssets)

	return w.db.Tx(func(tx *db.DB) error {
		if err := w.savePoolAndPosition(ctx, tx, action, pool, position); err != nil {
			return err
		}

		if err := w.marketStore.Update(ctx, tx, market, int64(action.ID)); err != nil {
			return err
		}

		extra := core.NewTransactionExtra()
		extra.Put("position_assets", positionAssets)
		extra.Put("amount_out", amountOut)
		transaction := core.BuildTransactionFromAction(action, action.UserID, core.ActionTypeWithdrawFixed, market.AssetID, amountOut, maturity, extra)
		if err := w.transactionStore.Create(ctx, transaction); err != nil {
			return err
		}

		return w.transferOut(ctx, tx, action, action.UserID, market.AssetID, amountOut, core.ActionTypeWithdrawFixed)
	})
}

func (w *Ledger) handleRepayFixed(ctx context.Context, action *core.Action, body []byte) error {
	log := logger.FromContext(ctx).WithField("event", "repay_fixed")
	ctx = logger.WithContext(ctx, log)

	var (
		maturity       int64
		positionAssets decimal.Decimal
	)
	if _, err := wire.Scan(body, &maturity, &positionAssets); err != nil {
		log.WithError(err).Infoln("skip: scan memo failed")
		return w.refund(ctx, action, core.ActionTypeRepayFixed, core.ErrInvalidArgument)
	}

	market, err := w.requireOpenMarket(ctx, action.AssetID)
	if err != nil {
		return w.refund(ctx, action, core.ActionTypeRepayFixed, err)
	}

	if market.Version >= int64(action.ID) {
		log.Infoln("skip: action outdated")
		return nil
	}

	if !action.Amount.IsPositive() {
		return w.refund(ctx, action, core.ActionTypeRepayFixed, core.ErrInvalidAmount)
	}

	now := action.CreatedAt.Unix()
	pool, err := w.requirePoolState(ctx, market, maturity, now, core.PoolStateValid, core.PoolStateMatured)
	if err != nil {
		return w.refund(ctx, action, core.ActionTypeRepayFixed, err)
	}

	position, err := w.requirePosition(ctx, action.UserID, action.AssetID, maturity, core.PositionBorrow)
	if err != nil {
		return w.refund(ctx, action, core.ActionTypeRepayFixed, err)
	}

	if !positionAssets.IsPositive() || positionAssets.GreaterThan(position.Assets()) {
		positionAssets = position.Assets()
	}
	if !positionAssets.IsPositive() {
		return w.refund(ctx, action, core.ActionTypeRepayFixed, core.ErrInvalidAmount)
	}

	if err := accrueMarketAndPool(market, pool, now); err != nil {
		return w.refund(ctx, action, core.ActionTypeRepayFixed, err)
	}

	principal := principalOf(position, positionAssets)

	required := positionAssets
	if now < maturity {
		discount := ledger.RepayDiscount(pool, principal)
		required = positionAssets.Sub(discount)
		pool.UnassignedEarnings = pool.UnassignedEarnings.Sub(discount)
	} else if late := now - maturity; late > 0 {
		penalty := ledger.LatePenalty(positionAssets, market.PenaltyRate, late)
		required = positionAssets.Add(penalty)
		market.EarningsAccumulator = market.EarningsAccumulator.Add(penalty)
	}

	if required.GreaterThan(action.Amount) {
		return w.refund(ctx, action, core.ActionTypeRepayFixed, &core.SlippageError{
			Quoted: required.String(),
			Bound:  action.Amount.String(),
		})
	}

	backupReduction := ledger.PoolRepay(pool, principal)
	market.FloatingBackupBorrowed = market.FloatingBackupBorrowed.Sub(backupReduction)

	position.Scale(positionAssets)

	return w.db.Tx(func(tx *db.DB) error {
		if err := w.savePoolAndPosition(ctx, tx, action, pool, position); err != nil {
			return err
		}

		if err := w.marketStore.Update(ctx, tx, market, int64(action.ID)); err != nil {
			return err
		}

		extra := core.NewTransactionExtra()
		extra.Put("position_assets", positionAssets)
		extra.Put("required", required)
		transaction := core.BuildTransactionFromAction(action, action.UserID, core.ActionTypeRepayFixed, market.AssetID, required, maturity, extra)
		if err := w.transactionStore.Create(ctx, transaction); err != nil {
			return err
		}

		// change above the discounted/penalized amount goes back
		return w.transferOut(ctx, tx, action, action.UserID, market.AssetID, action.Amount.Sub(required), core.ActionTypeRepayFixed)
	})
}

func (w *Ledger) savePoolAndPosition(ctx context.Context, tx *db.DB, action *core.Action, pool *core.FixedPool, position *core.FixedPosition) error {
	if pool.ID == 0 {
		if err := w.poolStore.SavePool(ctx, tx, pool); err != nil {
			return err
		}
	} else if err := w.poolStore.UpdatePool(ctx, tx, pool, int64(action.ID)); err != nil {
		return err
	}

	if position.ID == 0 {
		if err := w.poolStore.SavePosition(ctx, tx, position); err != nil {
			return err
		}
	} else if err := w.poolStore.UpdatePosition(ctx, tx, position, int64(action.ID)); err != nil {
		return err
	}

	return nil
}

func timeOf(unix int64) time.Time {
	return time.Unix(unix, 0)
}
