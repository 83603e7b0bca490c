package ledger

import (
	"context"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"termfi/core"
	"termfi/internal/ledger"
	"termfi/pkg/wire"
)

// available floating cash: pool value minus principal lent out, both
// floating and backup
func availableCash(market *core.Market) decimal.Decimal {
	return market.FloatingAssets.
		Sub(market.FloatingDebt).
		Sub(market.FloatingBackupBorrowed)
}

func (w *Ledger) handleDeposit(ctx context.Context, action *core.Action) error {
	log := logger.FromContext(ctx).WithField("event", "deposit")
	ctx = logger.WithContext(ctx, log)

	market, err := w.requireOpenMarket(ctx, action.AssetID)
	if err != nil {
		return w.refund(ctx, action, core.ActionTypeDeposit, err)
	}

	if market.Version >= int64(action.ID) {
		log.Infoln("skip: action outdated")
		return nil
	}

	if err := ledger.AccrueInterest(market, action.CreatedAt); err != nil {
		return w.refund(ctx, action, core.ActionTypeDeposit, err)
	}

	amount := action.Amount.Truncate(market.Decimals)
	shares := amount.Div(market.SupplyExchangeRate()).Truncate(ledger.MaxPrecision)
	if !shares.IsPositive() {
		return w.refund(ctx, action, core.ActionTypeDeposit, core.ErrInvalidAmount)
	}

	supply, err := w.supplyStore.Find(ctx, action.UserID, market.AssetID)
	if err != nil {
		if !gorm.IsRecordNotFoundError(err) {
			return err
		}
		supply = &core.Supply{UserID: action.UserID, AssetID: market.AssetID}
	}

	return w.db.Tx(func(tx *db.DB) error {
		if supply.ID == 0 {
			if err := w.supplyStore.Save(ctx, tx, supply); err != nil {
				return err
			}
		}

		supply.Shares = supply.Shares.Add(shares)
		if err := w.supplyStore.Update(ctx, tx, supply, int64(action.ID)); err != nil {
			return err
		}

		market.FloatingAssets = market.FloatingAssets.Add(amount)
		market.SupplyShares = market.SupplyShares.Add(shares)
		if err := w.marketStore.Update(ctx, tx, market, int64(action.ID)); err != nil {
			return err
		}

		extra := core.NewTransactionExtra()
		extra.Put("shares", shares)
		transaction := core.BuildTransactionFromAction(action, action.UserID, core.ActionTypeDeposit, market.AssetID, amount, 0, extra)
		if err := w.transactionStore.Create(ctx, transaction); err != nil {
			return err
		}

		log.WithFields(logrus.Fields{"amount": amount, "shares": shares}).Infoln("deposit done")
		return nil
	})
}

func (w *Ledger) handleWithdraw(ctx context.Context, action *core.Action, body []byte) error {
	log := logger.FromContext(ctx).WithField("event", "withdraw")
	ctx = logger.WithContext(ctx, log)

	var (
		assetID string
		amount  decimal.Decimal
	)
	if _, err := wire.Scan(body, &assetID, &amount); err != nil {
		log.WithError(err).Infoln("skip: scan memo failed")
		return w.refund(ctx, action, core.ActionTypeWithdraw, core.ErrInvalidArgument)
	}

	market, err := w.requireOpenMarket(ctx, assetID)
	if err != nil {
		return w.refund(ctx, action, core.ActionTypeWithdraw, err)
	}

	if market.Version >= int64(action.ID) {
		log.Infoln("skip: action outdated")
		return nil
	}

	amount = amount.Truncate(market.Decimals)
	if !amount.IsPositive() {
		return w.refund(ctx, action, core.ActionTypeWithdraw, core.ErrInvalidAmount)
	}

	supply, err := w.requireSupply(ctx, action.UserID, assetID)
	if err != nil {
		return w.refund(ctx, action, core.ActionTypeWithdraw, err)
	}

	if err := w.auditorSrv.CheckWithdrawAllowed(ctx, action.UserID, market, amount, action.CreatedAt); err != nil {
		return w.refund(ctx, action, core.ActionTypeWithdraw, err)
	}

	if err := ledger.AccrueInterest(market, action.CreatedAt); err != nil {
		return w.refund(ctx, action, core.ActionTypeWithdraw, err)
	}

	shares := amount.Div(market.SupplyExchangeRate()).Truncate(ledger.MaxPrecision)
	if shares.GreaterThan(supply.Shares) {
		return w.refund(ctx, action, core.ActionTypeWithdraw, core.ErrTokensMoreThanBalance)
	}

	if amount.GreaterThan(availableCash(market)) {
		return w.refund(ctx, action, core.ActionTypeWithdraw, core.ErrInsufficientLiquidity)
	}

	return w.db.Tx(func(tx *db.DB) error {
		supply.Shares = supply.Shares.Sub(shares)
		if err := w.supplyStore.Update(ctx, tx, supply, int64(action.ID)); err != nil {
			return err
		}

		market.FloatingAssets = market.FloatingAssets.Sub(amount)
		market.SupplyShares = market.SupplyShares.Sub(shares)
		if err := w.marketStore.Update(ctx, tx, market, int64(action.ID)); err != nil {
			return err
		}

		transaction := core.BuildTransactionFromAction(action, action.UserID, core.ActionTypeWithdraw, market.AssetID, amount, 0, nil)
		if err := w.transactionStore.Create(ctx, transaction); err != nil {
			return err
		}

		return w.transferOut(ctx, tx, action, action.UserID, market.AssetID, amount, core.ActionTypeWithdraw)
	})
}

func (w *Ledger) handleBorrow(ctx context.Context, action *core.Action, body []byte) error {
	log := logger.FromContext(ctx).WithField("event", "borrow")
	ctx = logger.WithContext(ctx, log)

	var (
		assetID string
		amount  decimal.Decimal
	)
	if _, err := wire.Scan(body, &assetID, &amount); err != nil {
		log.WithError(err).Infoln("skip: scan memo failed")
		return w.refund(ctx, action, core.ActionTypeBorrow, core.ErrInvalidArgument)
	}

	market, err := w.requireOpenMarket(ctx, assetID)
	if err != nil {
		return w.refund(ctx, action, core.ActionTypeBorrow, err)
	}

	if market.Version >= int64(action.ID) {
		log.Infoln("skip: action outdated")
		return nil
	}

	amount = amount.Truncate(market.Decimals)
	if err := w.auditorSrv.CheckBorrowAllowed(ctx, action.UserID, market, amount, action.CreatedAt); err != nil {
		return w.refund(ctx, action, core.ActionTypeBorrow, err)
	}

	if err := ledger.AccrueInterest(market, action.CreatedAt); err != nil {
		return w.refund(ctx, action, core.ActionTypeBorrow, err)
	}

	if amount.GreaterThan(availableCash(market)) {
		return w.refund(ctx, action, core.ActionTypeBorrow, core.ErrInsufficientLiquidity)
	}

	// the post-borrow utilization must still be quotable
	curve, err := ledger.CurveOf(market)
	if err != nil {
		return w.refund(ctx, action, core.ActionTypeBorrow, err)
	}
	if _, err := curve.Rate(ledger.Utilization(market.FloatingDebt.Add(amount), market.FloatingAssets)); err != nil {
		return w.refund(ctx, action, core.ActionTypeBorrow, core.ErrInsufficientLiquidity)
	}

	shares := amount.Div(market.BorrowExchangeRate()).Truncate(ledger.MaxPrecision)
	borrow, err := w.borrowStore.Find(ctx, action.UserID, market.AssetID)
	if err != nil {
		if !gorm.IsRecordNotFoundError(err) {
			return err
		}
		borrow = &core.Borrow{UserID: action.UserID, AssetID: market.AssetID}
	}

	return w.db.Tx(func(tx *db.DB) error {
		if borrow.ID == 0 {
			if err := w.borrowStore.Save(ctx, tx, borrow); err != nil {
				return err
			}
		}

		borrow.Shares = borrow.Shares.Add(shares)
		if err := w.borrowStore.Update(ctx, tx, borrow, int64(action.ID)); err != nil {
			return err
		}

		market.FloatingDebt = market.FloatingDebt.Add(amount)
		market.BorrowShares = market.BorrowShares.Add(shares)
		if err := w.marketStore.Update(ctx, tx, market, int64(action.ID)); err != nil {
			return err
		}

		transaction := core.BuildTransactionFromAction(action, action.UserID, core.ActionTypeBorrow, market.AssetID, amount, 0, nil)
		if err := w.transactionStore.Create(ctx, transaction); err != nil {
			return err
		}

		return w.transferOut(ctx, tx, action, action.UserID, market.AssetID, amount, core.ActionTypeBorrow)
	})
}

func (w *Ledger) handleRepay(ctx context.Context, action *core.Action) error {
	log := logger.FromContext(ctx).WithField("event", "repay")
	ctx = logger.WithContext(ctx, log)

	market, err := w.requireOpenMarket(ctx, action.AssetID)
	if err != nil {
		return w.refund(ctx, action, core.ActionTypeRepay, err)
	}

	if market.Version >= int64(action.ID) {
		log.Infoln("skip: action outdated")
		return nil
	}

	if !action.Amount.IsPositive() {
		return w.refund(ctx, action, core.ActionTypeRepay, core.ErrInvalidAmount)
	}

	borrow, err := w.requireBorrow(ctx, action.UserID, action.AssetID)
	if err != nil {
		return w.refund(ctx, action, core.ActionTypeRepay, err)
	}

	if err := ledger.AccrueInterest(market, action.CreatedAt); err != nil {
		return w.refund(ctx, action, core.ActionTypeRepay, err)
	}

	balance := borrow.Balance(market)
	repay := decimal.Min(action.Amount, balance)
	if !repay.IsPositive() {
		return w.refund(ctx, action, core.ActionTypeRepay, core.ErrBorrowNotFound)
	}

	shares := repay.Div(market.BorrowExchangeRate()).Truncate(ledger.MaxPrecision)
	if shares.GreaterThan(borrow.Shares) || repay.Equal(balance) {
		shares = borrow.Shares
	}

	return w.db.Tx(func(tx *db.DB) error {
		borrow.Shares = borrow.Shares.Sub(shares)
		if err := w.borrowStore.Update(ctx, tx, borrow, int64(action.ID)); err != nil {
			return err
		}

		market.FloatingDebt = market.FloatingDebt.Sub(repay)
		market.BorrowShares = market.BorrowShares.Sub(shares)
		if err := w.marketStore.Update(ctx, tx, market, int64(action.ID)); err != nil {
			return err
		}

		extra := core.NewTransactionExtra()
		extra.Put("repaid", repay)
		transaction := core.BuildTransactionFromAction(action, action.UserID, core.ActionTypeRepay, market.AssetID, repay, 0, extra)
		if err := w.transactionStore.Create(ctx, transaction); err != nil {
			return err
		}

		// anything above the outstanding balance goes back
		return w.transferOut(ctx, tx, action, action.UserID, market.AssetID, action.Amount.Sub(repay), core.ActionTypeRepay)
	})
}
