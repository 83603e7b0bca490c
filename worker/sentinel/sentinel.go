// Package sentinel scans accounts for collateral shortfalls and records
// liquidation candidates, so external liquidators can find work without
// replaying the whole ledger themselves.
package sentinel

import (
	"context"
	"fmt"
	"time"

	"github.com/fox-one/pkg/logger"

	"termfi/core"
	"termfi/pkg/id"
	"termfi/worker"
)

// Sentinel shortfall scanner
type Sentinel struct {
	worker.TickWorker
	system           *core.System
	supplyStore      core.ISupplyStore
	auditorSrv       core.IAuditorService
	transactionStore core.TransactionStore
}

// New new sentinel worker
func New(
	system *core.System,
	supplyStore core.ISupplyStore,
	auditorSrv core.IAuditorService,
	transactionStore core.TransactionStore,
) *Sentinel {
	return &Sentinel{
		TickWorker: worker.TickWorker{
			Delay:    time.Minute,
			ErrDelay: time.Minute,
		},
		system:           system,
		supplyStore:      supplyStore,
		auditorSrv:       auditorSrv,
		transactionStore: transactionStore,
	}
}

// Run run worker
func (w *Sentinel) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "sentinel")
	ctx = logger.WithContext(ctx, log)

	return w.StartTick(ctx, func(ctx context.Context) error {
		return w.onWork(ctx)
	})
}

func (w *Sentinel) onWork(ctx context.Context) error {
	log := logger.FromContext(ctx)

	users, err := w.supplyStore.Users(ctx)
	if err != nil {
		log.WithError(err).Errorln("supplies.Users")
		return err
	}

	now := w.system.Now()
	for _, userID := range users {
		liquidity, err := w.auditorSrv.AccountLiquidity(ctx, userID, now, nil)
		if err != nil {
			// a stale price blocks valuation for this account, not the scan
			log.WithError(err).Debugln("skip account:", userID)
			continue
		}

		if !liquidity.HasShortfall() {
			continue
		}

		if err := w.recordCandidate(ctx, userID, liquidity, now); err != nil {
			return err
		}
	}

	return nil
}

// recordCandidate writes one event per account and hour; replays are
// absorbed by the trace id.
func (w *Sentinel) recordCandidate(ctx context.Context, userID string, liquidity core.AccountLiquidity, now time.Time) error {
	extra := core.NewTransactionExtra()
	extra.Put("candidate", true)
	extra.Put("collateral", liquidity.Collateral)
	extra.Put("debt", liquidity.Debt)

	transaction := &core.Transaction{
		TraceID:   id.UUIDFromString(fmt.Sprintf("shortfall-%s-%d", userID, now.Unix()/3600)),
		UserID:    userID,
		Action:    core.ActionTypeLiquidate,
		Extra:     extra.Format(),
		CreatedAt: now,
	}

	if err := w.transactionStore.Create(ctx, transaction); err != nil {
		logger.FromContext(ctx).WithError(err).Errorln("transactions.Create")
		return err
	}

	logger.FromContext(ctx).WithField("user", userID).Infoln("shortfall recorded")
	return nil
}
