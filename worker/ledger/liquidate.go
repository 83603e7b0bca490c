package ledger

import (
	"context"
	"sort"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"termfi/core"
	"termfi/internal/ledger"
	"termfi/pkg/wire"
)

// handleLiquidate repays a shortfalling borrower's debt with the
// incoming payment and seizes collateral for the caller. The payment
// splits into the retired debt and the lenders incentive slice; only
// the part neither consumed comes back. Fixed positions are retired at
// face value, earliest maturity first, before the floating borrow;
// accrued late penalties are forgiven so that the liquidator's budget
// maps one to one onto retired debt.
func (w *Ledger) handleLiquidate(ctx context.Context, action *core.Action, body []byte) error {
	log := logger.FromContext(ctx).WithField("event", "liquidate")
	ctx = logger.WithContext(ctx, log)

	var (
		borrower          string
		collateralAssetID string
	)
	if _, err := wire.Scan(body, &borrower, &collateralAssetID); err != nil {
		log.WithError(err).Infoln("skip: scan memo failed")
		return w.refund(ctx, action, core.ActionTypeLiquidate, core.ErrInvalidArgument)
	}

	debtMarket, err := w.requireMarket(ctx, action.AssetID)
	if err != nil {
		return w.refund(ctx, action, core.ActionTypeLiquidate, err)
	}

	if debtMarket.Version >= int64(action.ID) {
		log.Infoln("skip: action outdated")
		return nil
	}

	collateralMarket := debtMarket
	if collateralAssetID != debtMarket.AssetID {
		if collateralMarket, err = w.requireMarket(ctx, collateralAssetID); err != nil {
			return w.refund(ctx, action, core.ActionTypeLiquidate, err)
		}
	}

	// quote against current debt and exchange rates
	now := action.CreatedAt
	if err := ledger.AccrueInterest(debtMarket, now); err != nil {
		return w.refund(ctx, action, core.ActionTypeLiquidate, err)
	}
	if collateralMarket != debtMarket {
		if err := ledger.AccrueInterest(collateralMarket, now); err != nil {
			return w.refund(ctx, action, core.ActionTypeLiquidate, err)
		}
	}

	maxRepay := ledger.RepayBudget(action.Amount, w.system.LiquidationIncentive)
	repaid, err := w.auditorSrv.CheckLiquidation(ctx, action.UserID, borrower, debtMarket, collateralMarket, maxRepay, now)
	if err != nil {
		return w.refund(ctx, action, core.ActionTypeLiquidate, err)
	}

	quote, err := w.auditorSrv.SeizeQuote(ctx, debtMarket, collateralMarket, borrower, repaid, now)
	if err != nil {
		return w.refund(ctx, action, core.ActionTypeLiquidate, err)
	}

	// retire fixed debt first, earliest maturity first
	positions, err := w.poolStore.ListPositionsByMarket(ctx, borrower, debtMarket.AssetID, core.PositionBorrow)
	if err != nil {
		return err
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Maturity < positions[j].Maturity })

	remaining := repaid
	var touchedPools []*core.FixedPool
	var touchedPositions []*core.FixedPosition

	for _, position := range positions {
		if !remaining.IsPositive() {
			break
		}
		if !position.Assets().IsPositive() {
			continue
		}

		pool, err := w.poolStore.FindPool(ctx, debtMarket.AssetID, position.Maturity)
		if err != nil {
			return err
		}

		drip := ledger.AccrueEarnings(pool, now.Unix())
		debtMarket.FloatingAssets = debtMarket.FloatingAssets.Add(drip)

		cover := decimal.Min(remaining, position.Assets())
		principal := principalOf(position, cover)

		backupReduction := ledger.PoolRepay(pool, principal)
		debtMarket.FloatingBackupBorrowed = debtMarket.FloatingBackupBorrowed.Sub(backupReduction)

		position.Scale(cover)
		remaining = remaining.Sub(cover)

		touchedPools = append(touchedPools, pool)
		touchedPositions = append(touchedPositions, position)
	}

	// whatever is left comes off the floating borrow
	var (
		borrow       *core.Borrow
		repayShares  decimal.Decimal
		floatingPart decimal.Decimal
	)
	if remaining.IsPositive() {
		if borrow, err = w.requireBorrow(ctx, borrower, debtMarket.AssetID); err != nil {
			return w.refund(ctx, action, core.ActionTypeLiquidate, err)
		}

		balance := borrow.Balance(debtMarket)
		floatingPart = decimal.Min(remaining, balance)

		repayShares = floatingPart.Div(debtMarket.BorrowExchangeRate()).Truncate(ledger.MaxPrecision)
		if repayShares.GreaterThan(borrow.Shares) || floatingPart.Equal(balance) {
			repayShares = borrow.Shares
		}
	}

	supply, err := w.requireSupply(ctx, borrower, collateralMarket.AssetID)
	if err != nil {
		return w.refund(ctx, action, core.ActionTypeLiquidate, err)
	}

	seizedShares := quote.SeizeAssets.Div(collateralMarket.SupplyExchangeRate()).Truncate(ledger.MaxPrecision)
	if seizedShares.GreaterThan(supply.Shares) {
		seizedShares = supply.Shares
	}

	return w.db.Tx(func(tx *db.DB) error {
		for _, pool := range touchedPools {
			if err := w.poolStore.UpdatePool(ctx, tx, pool, int64(action.ID)); err != nil {
				return err
			}
		}
		for _, position := range touchedPositions {
			if err := w.poolStore.UpdatePosition(ctx, tx, position, int64(action.ID)); err != nil {
				return err
			}
		}

		if borrow != nil {
			borrow.Shares = borrow.Shares.Sub(repayShares)
			if err := w.borrowStore.Update(ctx, tx, borrow, int64(action.ID)); err != nil {
				return err
			}

			debtMarket.FloatingDebt = debtMarket.FloatingDebt.Sub(floatingPart)
			debtMarket.BorrowShares = debtMarket.BorrowShares.Sub(repayShares)
		}

		supply.Shares = supply.Shares.Sub(seizedShares)
		if err := w.supplyStore.Update(ctx, tx, supply, int64(action.ID)); err != nil {
			return err
		}

		collateralMarket.FloatingAssets = collateralMarket.FloatingAssets.Sub(quote.SeizeAssets)
		collateralMarket.SupplyShares = collateralMarket.SupplyShares.Sub(seizedShares)

		debtMarket.EarningsAccumulator = debtMarket.EarningsAccumulator.Add(quote.LendersAssets)

		if err := w.marketStore.Update(ctx, tx, debtMarket, int64(action.ID)); err != nil {
			return err
		}
		if collateralMarket != debtMarket {
			if err := w.marketStore.Update(ctx, tx, collateralMarket, int64(action.ID)); err != nil {
				return err
			}
		}

		extra := core.NewTransactionExtra()
		extra.Put("borrower", borrower)
		extra.Put("repaid", repaid)
		extra.Put("seize", quote.SeizeAssets)
		extra.Put("seize_asset_id", collateralMarket.AssetID)
		extra.Put("lenders", quote.LendersAssets)
		transaction := core.BuildTransactionFromAction(action, action.UserID, core.ActionTypeLiquidate, debtMarket.AssetID, repaid, 0, extra)
		if err := w.transactionStore.Create(ctx, transaction); err != nil {
			return err
		}

		if err := w.transferOut(ctx, tx, action, action.UserID, collateralMarket.AssetID, quote.SeizeAssets, core.ActionTypeLiquidate); err != nil {
			return err
		}

		// the payment covers retired debt plus the lenders slice;
		// only what neither consumed goes back
		unused := action.Amount.Sub(repaid).Sub(quote.LendersAssets)
		if err := w.transferOut(ctx, tx, action, action.UserID, debtMarket.AssetID, unused, core.ActionTypeRepay); err != nil {
			return err
		}

		log.WithFields(logrus.Fields{
			"borrower": borrower,
			"repaid":   repaid,
			"seize":    quote.SeizeAssets,
		}).Infoln("liquidation done")
		return nil
	})
}
