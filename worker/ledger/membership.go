package ledger

import (
	"context"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"

	"termfi/core"
	"termfi/internal/ledger"
	"termfi/pkg/wire"
)

func (w *Ledger) handleEnterMarket(ctx context.Context, action *core.Action, body []byte) error {
	log := logger.FromContext(ctx).WithField("event", "enter_market")
	ctx = logger.WithContext(ctx, log)

	var assetID string
	if _, err := wire.Scan(body, &assetID); err != nil {
		log.WithError(err).Infoln("skip: scan memo failed")
		return w.refund(ctx, action, core.ActionTypeEnterMarket, core.ErrInvalidArgument)
	}

	market, err := w.requireOpenMarket(ctx, assetID)
	if err != nil {
		return w.refund(ctx, action, core.ActionTypeEnterMarket, err)
	}

	supply, err := w.supplyStore.Find(ctx, action.UserID, market.AssetID)
	if err != nil {
		if !gorm.IsRecordNotFoundError(err) {
			return err
		}
		supply = &core.Supply{UserID: action.UserID, AssetID: market.AssetID}
	}

	if supply.Version >= int64(action.ID) {
		log.Infoln("skip: action outdated")
		return nil
	}

	if supply.Entered {
		return nil
	}

	return w.db.Tx(func(tx *db.DB) error {
		if supply.ID == 0 {
			if err := w.supplyStore.Save(ctx, tx, supply); err != nil {
				return err
			}
		}

		supply.Entered = true
		if err := w.supplyStore.Update(ctx, tx, supply, int64(action.ID)); err != nil {
			return err
		}

		transaction := core.BuildTransactionFromAction(action, action.UserID, core.ActionTypeEnterMarket, market.AssetID, action.Amount, 0, nil)
		return w.transactionStore.Create(ctx, transaction)
	})
}

// handleExitMarket stops using the market as collateral. Refused while
// the account owes anything in the market or would end up short without
// this collateral.
func (w *Ledger) handleExitMarket(ctx context.Context, action *core.Action, body []byte) error {
	log := logger.FromContext(ctx).WithField("event", "exit_market")
	ctx = logger.WithContext(ctx, log)

	var assetID string
	if _, err := wire.Scan(body, &assetID); err != nil {
		log.WithError(err).Infoln("skip: scan memo failed")
		return w.refund(ctx, action, core.ActionTypeExitMarket, core.ErrInvalidArgument)
	}

	market, err := w.requireOpenMarket(ctx, assetID)
	if err != nil {
		return w.refund(ctx, action, core.ActionTypeExitMarket, err)
	}

	supply, err := w.requireSupply(ctx, action.UserID, assetID)
	if err != nil {
		return w.refund(ctx, action, core.ActionTypeExitMarket, err)
	}

	if supply.Version >= int64(action.ID) {
		log.Infoln("skip: action outdated")
		return nil
	}

	if !supply.Entered {
		return nil
	}

	debt, err := w.auditorSrv.TotalDebt(ctx, action.UserID, market, action.CreatedAt)
	if err != nil {
		return w.refund(ctx, action, core.ActionTypeExitMarket, err)
	}
	if debt.IsPositive() {
		return w.refund(ctx, action, core.ActionTypeExitMarket, core.ErrOperationForbidden)
	}

	balance := supply.Shares.Mul(market.SupplyExchangeRate()).Truncate(ledger.MaxPrecision)
	liquidity, err := w.auditorSrv.AccountLiquidity(ctx, action.UserID, action.CreatedAt, &core.LiquidityDelta{
		AssetID:  market.AssetID,
		Withdraw: balance,
	})
	if err != nil {
		return w.refund(ctx, action, core.ActionTypeExitMarket, err)
	}
	if liquidity.HasShortfall() {
		return w.refund(ctx, action, core.ActionTypeExitMarket, core.ErrInsufficientLiquidity)
	}

	return w.db.Tx(func(tx *db.DB) error {
		supply.Entered = false
		if err := w.supplyStore.Update(ctx, tx, supply, int64(action.ID)); err != nil {
			return err
		}

		transaction := core.BuildTransactionFromAction(action, action.UserID, core.ActionTypeExitMarket, market.AssetID, action.Amount, 0, nil)
		return w.transactionStore.Create(ctx, transaction)
	})
}
