package ledger

import (
	"context"
	"encoding/base64"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
	"github.com/pandodao/blst"
	"github.com/shopspring/decimal"

	"termfi/core"
	"termfi/internal/ledger"
	"termfi/pkg/wire"
)

const (
	incentiveLiquidatorKey = "liquidation_incentive_liquidator"
	incentiveLendersKey    = "liquidation_incentive_lenders"
)

func roleOf(typ core.ActionType) core.Role {
	switch typ {
	case core.ActionTypePauseMarket, core.ActionTypeUnpauseMarket:
		return core.RolePauser
	case core.ActionTypeAddOracleSigner:
		return core.RoleOracle
	default:
		return core.RoleAdmin
	}
}

func (w *Ledger) handleAdminAction(ctx context.Context, action *core.Action, typ core.ActionType, body []byte) error {
	log := logger.FromContext(ctx).WithField("event", typ.String())
	ctx = logger.WithContext(ctx, log)

	if !core.Allowed(action.UserID, roleOf(typ), w.system.Policy) {
		log.Infoln("skip: caller lacks role")
		return w.refund(ctx, action, typ, core.ErrOperationForbidden)
	}

	switch typ {
	case core.ActionTypeAddMarket:
		return w.handleAddMarket(ctx, action, body)
	case core.ActionTypeUpdateMarket:
		return w.handleUpdateMarket(ctx, action, body)
	case core.ActionTypeSetAdjustFactor:
		return w.handleSetAdjustFactor(ctx, action, body)
	case core.ActionTypeSetLiquidationIncentive:
		return w.handleSetLiquidationIncentive(ctx, action, body)
	case core.ActionTypePauseMarket:
		return w.handleSetStatus(ctx, action, core.ActionTypePauseMarket, body, core.MarketStatusPaused)
	case core.ActionTypeUnpauseMarket:
		return w.handleSetStatus(ctx, action, core.ActionTypeUnpauseMarket, body, core.MarketStatusOpen)
	case core.ActionTypeCollectTreasury:
		return w.handleCollectTreasury(ctx, action, body)
	case core.ActionTypeAddOracleSigner:
		return w.handleAddOracleSigner(ctx, action, body)
	default:
		return w.refund(ctx, action, typ, core.ErrUnknown)
	}
}

func (w *Ledger) handleAddMarket(ctx context.Context, action *core.Action, body []byte) error {
	var (
		assetID  string
		symbol   string
		decimals int64
	)
	if _, err := wire.Scan(body, &assetID, &symbol, &decimals); err != nil {
		return w.refund(ctx, action, core.ActionTypeAddMarket, core.ErrInvalidArgument)
	}

	if _, err := w.marketStore.Find(ctx, assetID); err == nil {
		return w.refund(ctx, action, core.ActionTypeAddMarket, core.ErrMarketAlreadyListed)
	} else if !gorm.IsRecordNotFoundError(err) {
		return err
	}

	now := action.CreatedAt.Unix()
	market := &core.Market{
		AssetID:                 assetID,
		Symbol:                  symbol,
		Decimals:                int32(decimals),
		AccumulatorSmoothFactor: decimal.New(2, 0),
		MaxFuturePools:          3,
		AdjustFactor:            decimal.New(5, -1),
		CurveA:                  decimal.New(1, -2),
		CurveB:                  decimal.New(1, -2),
		UMax:                    decimal.New(12, -1),
		UFullRate:               decimal.New(1, 0),
		LastFloatingDebtUpdate:  now,
		LastAccumulatorAccrual:  now,
	}

	return w.db.Tx(func(tx *db.DB) error {
		if err := w.marketStore.Save(ctx, tx, market); err != nil {
			return err
		}
		if err := w.marketStore.Update(ctx, tx, market, int64(action.ID)); err != nil {
			return err
		}

		transaction := core.BuildTransactionFromAction(action, action.UserID, core.ActionTypeAddMarket, assetID, action.Amount, 0, nil)
		return w.transactionStore.Create(ctx, transaction)
	})
}

func (w *Ledger) handleUpdateMarket(ctx context.Context, action *core.Action, body []byte) error {
	var (
		assetID                                       string
		curveA, curveB, uMax, uFullRate               decimal.Decimal
		treasuryFeeRate, reserveFactor, backupFeeRate decimal.Decimal
		penaltyRate, smoothFactor                     decimal.Decimal
		maxFuturePools                                int64
	)
	if _, err := wire.Scan(body, &assetID,
		&curveA, &curveB, &uMax, &uFullRate,
		&treasuryFeeRate, &reserveFactor, &backupFeeRate,
		&penaltyRate, &smoothFactor, &maxFuturePools); err != nil {
		return w.refund(ctx, action, core.ActionTypeUpdateMarket, core.ErrInvalidArgument)
	}

	market, err := w.requireMarket(ctx, assetID)
	if err != nil {
		return w.refund(ctx, action, core.ActionTypeUpdateMarket, err)
	}

	if market.Version >= int64(action.ID) {
		return nil
	}

	if _, err := ledger.NewCurve(curveA, curveB, uMax, uFullRate); err != nil {
		return w.refund(ctx, action, core.ActionTypeUpdateMarket, core.ErrParameterOutOfRange)
	}

	one := decimal.New(1, 0)
	for _, rate := range []decimal.Decimal{treasuryFeeRate, reserveFactor, backupFeeRate} {
		if rate.IsNegative() || rate.GreaterThanOrEqual(one) {
			return w.refund(ctx, action, core.ActionTypeUpdateMarket, core.ErrParameterOutOfRange)
		}
	}
	if penaltyRate.IsNegative() || !smoothFactor.IsPositive() || maxFuturePools < 1 {
		return w.refund(ctx, action, core.ActionTypeUpdateMarket, core.ErrParameterOutOfRange)
	}

	// settle outstanding accrual under the old parameters first
	if err := ledger.AccrueInterest(market, action.CreatedAt); err != nil {
		return w.refund(ctx, action, core.ActionTypeUpdateMarket, err)
	}

	market.CurveA = curveA
	market.CurveB = curveB
	market.UMax = uMax
	market.UFullRate = uFullRate
	market.TreasuryFeeRate = treasuryFeeRate
	market.ReserveFactor = reserveFactor
	market.BackupFeeRate = backupFeeRate
	market.PenaltyRate = penaltyRate
	market.AccumulatorSmoothFactor = smoothFactor
	market.MaxFuturePools = int(maxFuturePools)

	return w.db.Tx(func(tx *db.DB) error {
		if err := w.marketStore.Update(ctx, tx, market, int64(action.ID)); err != nil {
			return err
		}

		transaction := core.BuildTransactionFromAction(action, action.UserID, core.ActionTypeUpdateMarket, assetID, action.Amount, 0, nil)
		return w.transactionStore.Create(ctx, transaction)
	})
}

func (w *Ledger) handleSetAdjustFactor(ctx context.Context, action *core.Action, body []byte) error {
	var (
		assetID string
		factor  decimal.Decimal
	)
	if _, err := wire.Scan(body, &assetID, &factor); err != nil {
		return w.refund(ctx, action, core.ActionTypeSetAdjustFactor, core.ErrInvalidArgument)
	}

	if factor.LessThan(decimal.New(3, -1)) || factor.GreaterThan(decimal.New(9, -1)) {
		return w.refund(ctx, action, core.ActionTypeSetAdjustFactor, core.ErrParameterOutOfRange)
	}

	market, err := w.requireMarket(ctx, assetID)
	if err != nil {
		return w.refund(ctx, action, core.ActionTypeSetAdjustFactor, err)
	}

	if market.Version >= int64(action.ID) {
		return nil
	}

	market.AdjustFactor = factor

	return w.db.Tx(func(tx *db.DB) error {
		if err := w.marketStore.Update(ctx, tx, market, int64(action.ID)); err != nil {
			return err
		}

		extra := core.NewTransactionExtra()
		extra.Put("adjust_factor", factor)
		transaction := core.BuildTransactionFromAction(action, action.UserID, core.ActionTypeSetAdjustFactor, assetID, action.Amount, 0, extra)
		return w.transactionStore.Create(ctx, transaction)
	})
}

func (w *Ledger) handleSetLiquidationIncentive(ctx context.Context, action *core.Action, body []byte) error {
	var liquidator, lenders decimal.Decimal
	if _, err := wire.Scan(body, &liquidator, &lenders); err != nil {
		return w.refund(ctx, action, core.ActionTypeSetLiquidationIncentive, core.ErrInvalidArgument)
	}

	if liquidator.IsNegative() || lenders.IsNegative() ||
		liquidator.Add(lenders).GreaterThanOrEqual(decimal.New(1, 0)) {
		return w.refund(ctx, action, core.ActionTypeSetLiquidationIncentive, core.ErrParameterOutOfRange)
	}

	if err := w.propertyStore.Save(ctx, incentiveLiquidatorKey, liquidator.String()); err != nil {
		return err
	}
	if err := w.propertyStore.Save(ctx, incentiveLendersKey, lenders.String()); err != nil {
		return err
	}

	w.system.LiquidationIncentive = core.LiquidationIncentive{
		Liquidator: liquidator,
		Lenders:    lenders,
	}

	return w.db.Tx(func(tx *db.DB) error {
		extra := core.NewTransactionExtra()
		extra.Put("liquidator", liquidator)
		extra.Put("lenders", lenders)
		transaction := core.BuildTransactionFromAction(action, action.UserID, core.ActionTypeSetLiquidationIncentive, action.AssetID, action.Amount, 0, extra)
		return w.transactionStore.Create(ctx, transaction)
	})
}

func (w *Ledger) handleSetStatus(ctx context.Context, action *core.Action, typ core.ActionType, body []byte, status core.MarketStatus) error {
	var assetID string
	if _, err := wire.Scan(body, &assetID); err != nil {
		return w.refund(ctx, action, typ, core.ErrInvalidArgument)
	}

	market, err := w.requireMarket(ctx, assetID)
	if err != nil {
		return w.refund(ctx, action, typ, err)
	}

	if market.Version >= int64(action.ID) {
		return nil
	}

	market.Status = status

	return w.db.Tx(func(tx *db.DB) error {
		if err := w.marketStore.Update(ctx, tx, market, int64(action.ID)); err != nil {
			return err
		}

		transaction := core.BuildTransactionFromAction(action, action.UserID, typ, assetID, action.Amount, 0, nil)
		return w.transactionStore.Create(ctx, transaction)
	})
}

func (w *Ledger) handleCollectTreasury(ctx context.Context, action *core.Action, body []byte) error {
	var assetID string
	if _, err := wire.Scan(body, &assetID); err != nil {
		return w.refund(ctx, action, core.ActionTypeCollectTreasury, core.ErrInvalidArgument)
	}

	market, err := w.requireMarket(ctx, assetID)
	if err != nil {
		return w.refund(ctx, action, core.ActionTypeCollectTreasury, err)
	}

	if market.Version >= int64(action.ID) {
		return nil
	}

	if err := ledger.AccrueInterest(market, action.CreatedAt); err != nil {
		return w.refund(ctx, action, core.ActionTypeCollectTreasury, err)
	}

	amount := market.TreasuryBalance
	if !amount.IsPositive() {
		return w.refund(ctx, action, core.ActionTypeCollectTreasury, core.ErrInvalidAmount)
	}

	market.TreasuryBalance = decimal.Zero

	return w.db.Tx(func(tx *db.DB) error {
		if err := w.marketStore.Update(ctx, tx, market, int64(action.ID)); err != nil {
			return err
		}

		extra := core.NewTransactionExtra()
		extra.Put("collected", amount)
		transaction := core.BuildTransactionFromAction(action, action.UserID, core.ActionTypeCollectTreasury, assetID, amount, 0, extra)
		if err := w.transactionStore.Create(ctx, transaction); err != nil {
			return err
		}

		return w.transferOut(ctx, tx, action, action.UserID, assetID, amount, core.ActionTypeCollectTreasury)
	})
}

func (w *Ledger) handleAddOracleSigner(ctx context.Context, action *core.Action, body []byte) error {
	var (
		userID    string
		publicKey string
	)
	if _, err := wire.Scan(body, &userID, &publicKey); err != nil {
		return w.refund(ctx, action, core.ActionTypeAddOracleSigner, core.ErrInvalidArgument)
	}

	bts, err := base64.StdEncoding.DecodeString(publicKey)
	if err != nil {
		return w.refund(ctx, action, core.ActionTypeAddOracleSigner, core.ErrInvalidArgument)
	}
	pub := blst.PublicKey{}
	if err := pub.FromBytes(bts); err != nil {
		return w.refund(ctx, action, core.ActionTypeAddOracleSigner, core.ErrInvalidArgument)
	}

	if err := w.oracleSignerStore.Save(ctx, userID, publicKey); err != nil {
		return err
	}

	return w.db.Tx(func(tx *db.DB) error {
		extra := core.NewTransactionExtra()
		extra.Put("signer", userID)
		transaction := core.BuildTransactionFromAction(action, action.UserID, core.ActionTypeAddOracleSigner, action.AssetID, action.Amount, 0, extra)
		return w.transactionStore.Create(ctx, transaction)
	})
}
