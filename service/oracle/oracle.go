package oracle

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/bluele/gcache"
	"github.com/fox-one/pkg/logger"
	"github.com/pandodao/blst"
	"github.com/shopspring/decimal"

	"termfi/core"
	"termfi/pkg/resthttp"
)

// PriceService oracle price service
type PriceService struct {
	system      *core.System
	priceStore  core.IPriceStore
	signerStore core.OracleSignerStore
	endpoint    string

	signers gcache.Cache
}

// New new oracle price service
func New(
	system *core.System,
	priceStore core.IPriceStore,
	signerStore core.OracleSignerStore,
	endpoint string,
) core.IPriceOracleService {
	return &PriceService{
		system:      system,
		priceStore:  priceStore,
		signerStore: signerStore,
		endpoint:    endpoint,
		signers:     gcache.New(4).LRU().Expiration(time.Minute).Build(),
	}
}

// GetPrice latest accepted price for the asset. Fails closed: missing,
// non-positive and stale prices are all errors, never a zero quote.
func (s *PriceService) GetPrice(ctx context.Context, assetID string, now time.Time) (decimal.Decimal, error) {
	price, err := s.priceStore.Find(ctx, assetID)
	if err != nil {
		return decimal.Zero, core.ErrInvalidPrice
	}

	if !price.Price.IsPositive() {
		return decimal.Zero, core.ErrInvalidPrice
	}

	if age := now.Unix() - price.Timestamp; age > int64(s.system.MaxPriceAge.Seconds()) {
		return decimal.Zero, core.ErrInvalidPrice
	}

	return price.Price, nil
}

// VerifyPriceData checks the submission's freshness and its aggregated
// signature against the registered signer set.
func (s *PriceService) VerifyPriceData(ctx context.Context, data *core.PriceData) error {
	if !data.Price.IsPositive() {
		return core.ErrInvalidPrice
	}

	if age := s.system.Now().Unix() - data.Timestamp; age > int64(s.system.MaxPriceAge.Seconds()) || age < -60 {
		return core.ErrInvalidPrice
	}

	signers, err := s.loadSigners(ctx)
	if err != nil {
		return err
	}

	var pubs []*blst.PublicKey
	for _, signer := range signers {
		if data.Mask&(0x1<<signer.Index) != 0 {
			pubs = append(pubs, signer.VerifyKey)
		}
	}

	if len(pubs) < s.system.PriceThreshold {
		return core.ErrInvalidPrice
	}

	if !blst.AggregatePublicKeys(pubs).Verify(data.Payload(), &data.Signature) {
		return core.ErrInvalidPrice
	}

	return nil
}

// PullPriceTicker pull a price from the external feed
func (s *PriceService) PullPriceTicker(ctx context.Context, symbol string, t time.Time) (*core.PriceTicker, error) {
	url := fmt.Sprintf("%s/api/v2/tickers/%s?ts=%d", s.endpoint, symbol, t.UTC().Unix())
	logger.FromContext(ctx).Debugln("pull price:", url)

	resp, err := resthttp.Request(ctx).Get(url)
	if err != nil {
		return nil, err
	}

	var ticker core.PriceTicker
	if err := resthttp.ParseResponse(resp, &ticker); err != nil {
		return nil, err
	}

	return &ticker, nil
}

func (s *PriceService) loadSigners(ctx context.Context) ([]*core.Signer, error) {
	if v, err := s.signers.Get("signers"); err == nil {
		if signers, ok := v.([]*core.Signer); ok {
			return signers, nil
		}
	}

	ss, err := s.signerStore.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	signers := make([]*core.Signer, len(ss))
	for idx, item := range ss {
		bts, err := base64.StdEncoding.DecodeString(item.PublicKey)
		if err != nil {
			return nil, core.ErrInvalidArgument
		}

		pub := blst.PublicKey{}
		if err := pub.FromBytes(bts); err != nil {
			return nil, core.ErrInvalidArgument
		}

		signers[idx] = &core.Signer{
			Index:     uint64(idx) + 1,
			VerifyKey: &pub,
		}
	}

	s.signers.Set("signers", signers)
	return signers, nil
}
