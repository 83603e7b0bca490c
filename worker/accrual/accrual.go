// Package accrual keeps market accrual fresh between ledger actions so
// that rates and balances read through the API never drift far behind
// the clock. Every scheduled run settles interest, pool drips and the
// accumulator release for all listed markets.
package accrual

import (
	"context"
	"time"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
	"github.com/robfig/cron/v3"

	"termfi/core"
	"termfi/worker"
)

// Worker accrual worker
type Worker struct {
	worker.BaseJob
	system      *core.System
	db          *db.DB
	marketStore core.IMarketStore
	marketSrv   core.IMarketService
}

// New new accrual worker
func New(
	system *core.System,
	database *db.DB,
	marketStore core.IMarketStore,
	marketSrv core.IMarketService,
	location string,
) *Worker {
	job := Worker{
		system:      system,
		db:          database,
		marketStore: marketStore,
		marketSrv:   marketSrv,
	}

	l, _ := time.LoadLocation(location)
	job.Cron = cron.New(cron.WithLocation(l))
	job.Cron.AddFunc("@every 5m", job.Run)
	job.OnWork = func() error {
		return job.onWork(context.Background())
	}

	return &job
}

func (w *Worker) onWork(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "accrual")
	ctx = logger.WithContext(ctx, log)

	markets, err := w.marketStore.All(ctx)
	if err != nil {
		log.WithError(err).Errorln("markets.All")
		return err
	}

	now := w.system.Now()
	for _, market := range markets {
		if err := w.accrue(ctx, market, now); err != nil {
			log.WithError(err).Errorln("accrue:", market.Symbol)
			return err
		}
	}

	return nil
}

func (w *Worker) accrue(ctx context.Context, market *core.Market, now time.Time) error {
	return w.db.Tx(func(tx *db.DB) error {
		if err := w.marketSrv.AccrueInterest(ctx, tx, market, now); err != nil {
			return err
		}

		return w.marketStore.Update(ctx, tx, market, market.Version)
	})
}
