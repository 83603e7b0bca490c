package ledger

import (
	"context"
	"errors"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/property"
	"github.com/fox-one/pkg/store/db"

	"termfi/core"
	"termfi/pkg/wire"
	"termfi/worker"
)

const (
	checkpointKey = "actions_checkpoint"
	limit         = 500
)

// Ledger the single consumer of the ordered action log. Every entry is
// handled exactly once, in id order, with the offset checkpointed in
// the property store; replays after a crash are absorbed by the
// version guard on the touched market.
type Ledger struct {
	worker.TickWorker
	system            *core.System
	db                *db.DB
	propertyStore     property.Store
	actionStore       core.IActionStore
	marketStore       core.IMarketStore
	supplyStore       core.ISupplyStore
	borrowStore       core.IBorrowStore
	poolStore         core.IPoolStore
	priceStore        core.IPriceStore
	oracleSignerStore core.OracleSignerStore
	transactionStore  core.TransactionStore
	transferStore     core.TransferStore
	marketSrv         core.IMarketService
	auditorSrv        core.IAuditorService
	priceSrv          core.IPriceOracleService
}

// New new ledger worker
func New(
	system *core.System,
	database *db.DB,
	propertyStore property.Store,
	actionStore core.IActionStore,
	marketStore core.IMarketStore,
	supplyStore core.ISupplyStore,
	borrowStore core.IBorrowStore,
	poolStore core.IPoolStore,
	priceStore core.IPriceStore,
	oracleSignerStore core.OracleSignerStore,
	transactionStore core.TransactionStore,
	transferStore core.TransferStore,
	marketSrv core.IMarketService,
	auditorSrv core.IAuditorService,
	priceSrv core.IPriceOracleService,
) *Ledger {
	return &Ledger{
		system:            system,
		db:                database,
		propertyStore:     propertyStore,
		actionStore:       actionStore,
		marketStore:       marketStore,
		supplyStore:       supplyStore,
		borrowStore:       borrowStore,
		poolStore:         poolStore,
		priceStore:        priceStore,
		oracleSignerStore: oracleSignerStore,
		transactionStore:  transactionStore,
		transferStore:     transferStore,
		marketSrv:         marketSrv,
		auditorSrv:        auditorSrv,
		priceSrv:          priceSrv,
	}
}

// Run run worker
func (w *Ledger) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "ledger")
	ctx = logger.WithContext(ctx, log)

	return w.StartTick(ctx, func(ctx context.Context) error {
		return w.run(ctx)
	})
}

func (w *Ledger) run(ctx context.Context) error {
	log := logger.FromContext(ctx)

	v, err := w.propertyStore.Get(ctx, checkpointKey)
	if err != nil {
		log.WithError(err).Errorln("property.Get")
		return err
	}

	actions, err := w.actionStore.List(ctx, uint64(v.Int64()), limit)
	if err != nil {
		log.WithError(err).Errorln("actions.List")
		return err
	}

	if len(actions) == 0 {
		return errors.New("no more actions")
	}

	for _, action := range actions {
		if err := w.handleAction(ctx, action); err != nil {
			return err
		}

		if err := w.propertyStore.Save(ctx, checkpointKey, action.ID); err != nil {
			log.WithError(err).Errorln("property.Save:", action.ID)
			return err
		}
	}

	return nil
}

func (w *Ledger) handleAction(ctx context.Context, action *core.Action) error {
	log := logger.FromContext(ctx).WithField("action", action.TraceID)
	ctx = logger.WithContext(ctx, log)

	var typ int8
	body, err := wire.Scan(action.Memo, &typ)
	if err != nil {
		log.WithError(err).Infoln("skip: scan action type failed")
		return nil
	}

	if action.UserID == "" {
		return nil
	}

	switch actionType := core.ActionType(typ); actionType {
	case core.ActionTypeDeposit:
		return w.handleDeposit(ctx, action)
	case core.ActionTypeWithdraw:
		return w.handleWithdraw(ctx, action, body)
	case core.ActionTypeBorrow:
		return w.handleBorrow(ctx, action, body)
	case core.ActionTypeRepay:
		return w.handleRepay(ctx, action)
	case core.ActionTypeDepositFixed:
		return w.handleDepositFixed(ctx, action, body)
	case core.ActionTypeWithdrawFixed:
		return w.handleWithdrawFixed(ctx, action, body)
	case core.ActionTypeBorrowFixed:
		return w.handleBorrowFixed(ctx, action, body)
	case core.ActionTypeRepayFixed:
		return w.handleRepayFixed(ctx, action, body)
	case core.ActionTypeLiquidate:
		return w.handleLiquidate(ctx, action, body)
	case core.ActionTypeEnterMarket:
		return w.handleEnterMarket(ctx, action, body)
	case core.ActionTypeExitMarket:
		return w.handleExitMarket(ctx, action, body)
	case core.ActionTypeSubmitPrice:
		return w.handleSubmitPrice(ctx, action, body)
	case core.ActionTypeAddMarket,
		core.ActionTypeUpdateMarket,
		core.ActionTypeSetAdjustFactor,
		core.ActionTypeSetLiquidationIncentive,
		core.ActionTypePauseMarket,
		core.ActionTypeUnpauseMarket,
		core.ActionTypeCollectTreasury,
		core.ActionTypeAddOracleSigner:
		return w.handleAdminAction(ctx, action, actionType, body)
	default:
		return w.refund(ctx, action, core.ActionType(typ), core.ErrUnknown)
	}
}
