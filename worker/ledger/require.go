package ledger

import (
	"context"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
	foxuuid "github.com/fox-one/pkg/uuid"
	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"

	"termfi/core"
)

func (w *Ledger) requireMarket(ctx context.Context, assetID string) (*core.Market, error) {
	market, err := w.marketStore.Find(ctx, assetID)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, core.ErrMarketNotFound
		}

		logger.FromContext(ctx).WithError(err).Errorln("markets.Find")
		return nil, err
	}

	return market, nil
}

func (w *Ledger) requireOpenMarket(ctx context.Context, assetID string) (*core.Market, error) {
	market, err := w.requireMarket(ctx, assetID)
	if err != nil {
		return nil, err
	}

	if market.IsPaused() {
		return nil, core.ErrMarketPaused
	}

	return market, nil
}

func (w *Ledger) requireSupply(ctx context.Context, userID, assetID string) (*core.Supply, error) {
	supply, err := w.supplyStore.Find(ctx, userID, assetID)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, core.ErrSupplyNotFound
		}

		logger.FromContext(ctx).WithError(err).Errorln("supplies.Find")
		return nil, err
	}

	return supply, nil
}

func (w *Ledger) requireBorrow(ctx context.Context, userID, assetID string) (*core.Borrow, error) {
	borrow, err := w.borrowStore.Find(ctx, userID, assetID)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, core.ErrBorrowNotFound
		}

		logger.FromContext(ctx).WithError(err).Errorln("borrows.Find")
		return nil, err
	}

	return borrow, nil
}

// requirePoolState loads (or initializes) the fixed pool at maturity and
// checks it is in one of the required lifecycle states.
func (w *Ledger) requirePoolState(ctx context.Context, market *core.Market, maturity, now int64, required ...core.PoolState) (*core.FixedPool, error) {
	actual := core.MaturityState(maturity, now, market.MaxFuturePools)

	ok := false
	for _, state := range required {
		if state == actual {
			ok = true
			break
		}
	}
	if !ok {
		return nil, &core.PoolStateError{Actual: actual, Required: required}
	}

	pool, err := w.poolStore.FindPool(ctx, market.AssetID, maturity)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return &core.FixedPool{
				AssetID:     market.AssetID,
				Maturity:    maturity,
				LastAccrual: now,
			}, nil
		}

		logger.FromContext(ctx).WithError(err).Errorln("pools.Find")
		return nil, err
	}

	return pool, nil
}

func (w *Ledger) requirePosition(ctx context.Context, userID, assetID string, maturity int64, side core.PositionSide) (*core.FixedPosition, error) {
	position, err := w.poolStore.FindPosition(ctx, userID, assetID, maturity, side)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, core.ErrPositionNotFound
		}

		logger.FromContext(ctx).WithError(err).Errorln("positions.Find")
		return nil, err
	}

	return position, nil
}

// transferOut queues value leaving the system. The row is written in
// the same db transaction as the ledger mutation; the payout worker
// drains it only after the transaction commits.
func (w *Ledger) transferOut(ctx context.Context, tx *db.DB, action *core.Action, userID, assetID string, amount decimal.Decimal, source core.ActionType) error {
	if !amount.IsPositive() {
		return nil
	}

	transfer := &core.Transfer{
		TraceID: foxuuid.Modify(action.TraceID, "transfer."+source.String()),
		UserID:  userID,
		AssetID: assetID,
		Amount:  amount,
		Source:  source,
	}

	if err := w.transferStore.Create(ctx, tx, transfer); err != nil {
		logger.FromContext(ctx).WithError(err).Errorln("transfers.Create")
		return err
	}

	return nil
}

// refund rejects a payment-carrying action: the payment goes back to
// the sender and the rejection is recorded as an event. Non-payment
// actions just get the event record.
func (w *Ledger) refund(ctx context.Context, action *core.Action, typ core.ActionType, reason error) error {
	code := core.CodeOf(reason, core.ErrUnknown)
	logger.FromContext(ctx).WithError(reason).Infof("refund %s: %s", typ, code)

	return w.db.Tx(func(tx *db.DB) error {
		extra := core.NewTransactionExtra()
		extra.Put("error_code", code)
		extra.Put("error", reason.Error())

		transaction := core.BuildTransactionFromAction(action, action.UserID, typ, action.AssetID, action.Amount, 0, extra)
		if err := w.transactionStore.Create(ctx, transaction); err != nil {
			return err
		}

		if action.Amount.IsPositive() {
			refund := &core.Transfer{
				TraceID: foxuuid.Modify(action.TraceID, "refund"),
				UserID:  action.UserID,
				AssetID: action.AssetID,
				Amount:  action.Amount,
				Source:  typ,
			}

			if err := w.transferStore.Create(ctx, tx, refund); err != nil {
				return err
			}
		}

		return nil
	})
}
