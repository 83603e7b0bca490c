// Package payout drains the transfers table. Rows only appear here
// after the ledger transaction that produced them has committed, so
// the settlement side never observes half-applied state.
package payout

import (
	"context"
	"errors"
	"fmt"

	"github.com/fox-one/pkg/logger"

	"termfi/core"
	"termfi/pkg/resthttp"
	"termfi/worker"
)

const limit = 100

// Payout payout worker
type Payout struct {
	worker.TickWorker
	transferStore core.TransferStore
	endpoint      string
}

// New new payout worker. An empty endpoint disables the webhook and
// transfers are only marked handled.
func New(transferStore core.TransferStore, endpoint string) *Payout {
	return &Payout{
		transferStore: transferStore,
		endpoint:      endpoint,
	}
}

// Run run worker
func (w *Payout) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "payout")
	ctx = logger.WithContext(ctx, log)

	return w.StartTick(ctx, func(ctx context.Context) error {
		return w.onWork(ctx)
	})
}

func (w *Payout) onWork(ctx context.Context) error {
	log := logger.FromContext(ctx)

	transfers, err := w.transferStore.ListPending(ctx, limit)
	if err != nil {
		log.WithError(err).Errorln("transfers.ListPending")
		return err
	}

	if len(transfers) == 0 {
		return errors.New("EOF")
	}

	for _, transfer := range transfers {
		if err := w.handleTransfer(ctx, transfer); err != nil {
			return err
		}
	}

	return nil
}

func (w *Payout) handleTransfer(ctx context.Context, transfer *core.Transfer) error {
	log := logger.FromContext(ctx).WithField("transfer", transfer.TraceID)

	if w.endpoint != "" {
		url := fmt.Sprintf("%s/transfers", w.endpoint)
		resp, err := resthttp.Request(ctx).SetBody(transfer).Post(url)
		if err != nil {
			log.WithError(err).Errorln("settlement post")
			return err
		}

		if err := resthttp.ParseResponse(resp, nil); err != nil {
			log.WithError(err).Errorln("settlement rejected")
			return err
		}
	}

	if err := w.transferStore.Handled(ctx, transfer.ID); err != nil {
		log.WithError(err).Errorln("transfers.Handled")
		return err
	}

	log.WithField("amount", transfer.Amount).WithField("asset", transfer.AssetID).Infoln("transfer handled")
	return nil
}
