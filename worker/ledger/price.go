package ledger

import (
	"context"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"

	"termfi/core"
)

// handleSubmitPrice accepts a signed oracle submission. Authorization
// is the aggregated signature itself: the submission carries a signer
// mask and must verify against the registered keys with the configured
// threshold. The store only moves prices forward in time, so stale or
// replayed submissions fall through harmlessly.
func (w *Ledger) handleSubmitPrice(ctx context.Context, action *core.Action, body []byte) error {
	log := logger.FromContext(ctx).WithField("event", "submit_price")
	ctx = logger.WithContext(ctx, log)

	var data core.PriceData
	if err := data.UnmarshalBinary(body); err != nil {
		log.WithError(err).Infoln("skip: decode price data failed")
		return w.refund(ctx, action, core.ActionTypeSubmitPrice, core.ErrInvalidArgument)
	}

	if err := w.priceSrv.VerifyPriceData(ctx, &data); err != nil {
		log.WithError(err).Infoln("skip: price data rejected")
		return w.refund(ctx, action, core.ActionTypeSubmitPrice, core.ErrInvalidPrice)
	}

	return w.db.Tx(func(tx *db.DB) error {
		price := &core.Price{
			AssetID:   data.AssetID,
			Price:     data.Price,
			Timestamp: data.Timestamp,
		}
		if err := w.priceStore.Save(ctx, tx, price); err != nil {
			logger.FromContext(ctx).WithError(err).Errorln("prices.Save")
			return err
		}

		log.WithField("asset", data.AssetID).WithField("price", data.Price).Infoln("price accepted")
		return nil
	})
}
