// Package oracle polls the external price feed and appends signed price
// submissions to the action log. Submissions are verified and applied by
// the ledger worker like any other action, so price flow shares the
// exactly-once discipline of the rest of the system.
package oracle

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/fox-one/pkg/logger"
	"github.com/pandodao/blst"
	"github.com/shopspring/decimal"

	"termfi/core"
	"termfi/pkg/id"
	"termfi/pkg/wire"
	"termfi/worker"
)

// Poller price poller worker
type Poller struct {
	worker.TickWorker
	system      *core.System
	marketStore core.IMarketStore
	priceStore  core.IPriceStore
	actionStore core.IActionStore
	priceSrv    core.IPriceOracleService
	cfg         core.PriceOracle

	signKey *blst.PrivateKey
}

// New new price poller
func New(
	system *core.System,
	marketStore core.IMarketStore,
	priceStore core.IPriceStore,
	actionStore core.IActionStore,
	priceSrv core.IPriceOracleService,
	cfg core.PriceOracle,
) (*Poller, error) {
	bts, err := base64.StdEncoding.DecodeString(cfg.SignKey)
	if err != nil {
		return nil, fmt.Errorf("oracle: decode sign key: %w", err)
	}

	signKey := blst.PrivateKey{}
	if err := signKey.FromBytes(bts); err != nil {
		return nil, fmt.Errorf("oracle: parse sign key: %w", err)
	}

	return &Poller{
		TickWorker: worker.TickWorker{
			Delay:    30 * time.Second,
			ErrDelay: time.Minute,
		},
		system:      system,
		marketStore: marketStore,
		priceStore:  priceStore,
		actionStore: actionStore,
		priceSrv:    priceSrv,
		cfg:         cfg,
		signKey:     &signKey,
	}, nil
}

// Run run worker
func (w *Poller) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "oracle")
	ctx = logger.WithContext(ctx, log)

	return w.StartTick(ctx, func(ctx context.Context) error {
		return w.onWork(ctx)
	})
}

func (w *Poller) onWork(ctx context.Context) error {
	log := logger.FromContext(ctx)

	markets, err := w.marketStore.All(ctx)
	if err != nil {
		log.WithError(err).Errorln("markets.All")
		return err
	}

	if len(markets) == 0 {
		return errors.New("no market listed")
	}

	now := w.system.Now()
	for _, market := range markets {
		if w.isFresh(ctx, market.AssetID, now) {
			continue
		}

		if err := w.submit(ctx, market, now); err != nil {
			log.WithError(err).Errorln("submit price:", market.Symbol)
		}
	}

	return nil
}

// isFresh the stored price is still well inside its validity window
func (w *Poller) isFresh(ctx context.Context, assetID string, now time.Time) bool {
	price, err := w.priceStore.Find(ctx, assetID)
	if err != nil {
		return false
	}

	return now.Unix()-price.Timestamp < int64(w.system.MaxPriceAge.Seconds())/2
}

func (w *Poller) submit(ctx context.Context, market *core.Market, now time.Time) error {
	ticker, err := w.priceSrv.PullPriceTicker(ctx, market.Symbol, now)
	if err != nil {
		return err
	}

	if !ticker.Price.IsPositive() {
		return fmt.Errorf("invalid ticker price %s: %s", ticker.Symbol, ticker.Price)
	}

	// snap the timestamp to the minute so independent pollers sign the
	// same payload and their signatures can aggregate
	ts := now.Truncate(time.Minute).Unix()

	data := core.PriceData{
		AssetID:   market.AssetID,
		Price:     ticker.Price.Truncate(8),
		Timestamp: ts,
		Mask:      0x1 << w.cfg.SignerIndex,
	}
	data.Signature = *w.signKey.Sign(data.Payload())

	body, err := data.MarshalBinary()
	if err != nil {
		return err
	}

	memo, err := wire.Encode(int8(core.ActionTypeSubmitPrice), wire.RawMessage(body))
	if err != nil {
		return err
	}

	action := &core.Action{
		TraceID:   id.UUIDFromString(fmt.Sprintf("price-%s-%s-%d", w.cfg.PollerID, market.AssetID, ts)),
		UserID:    w.cfg.PollerID,
		AssetID:   market.AssetID,
		Amount:    decimal.Zero,
		Memo:      memo,
		CreatedAt: now,
	}

	return w.actionStore.Append(ctx, action)
}
