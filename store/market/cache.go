package market

import (
	"context"
	"fmt"
	"time"

	"github.com/bluele/gcache"
	"github.com/fox-one/pkg/store/db"
	"golang.org/x/sync/singleflight"

	"termfi/core"
)

// Cache wraps a market store with a read-through expiring cache. Writes
// invalidate; reads inside a ledger transaction should use the inner
// store directly.
func Cache(store core.IMarketStore, exp time.Duration) core.IMarketStore {
	return &cacheMarketStore{
		IMarketStore: store,
		cache:        gcache.New(256).LRU().Expiration(exp).Build(),
		sf:           &singleflight.Group{},
	}
}

type cacheMarketStore struct {
	core.IMarketStore
	cache gcache.Cache
	sf    *singleflight.Group
}

func (s *cacheMarketStore) Find(ctx context.Context, assetID string) (*core.Market, error) {
	key := s.assetKey(assetID)
	if v, err := s.cache.Get(key); err == nil {
		if market, ok := v.(*core.Market); ok {
			return market, nil
		}
	}

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		market, err := s.IMarketStore.Find(ctx, assetID)
		if err != nil {
			return nil, err
		}

		s.cacheMarket(market)
		return market, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*core.Market), nil
}

func (s *cacheMarketStore) FindBySymbol(ctx context.Context, symbol string) (*core.Market, error) {
	if v, err := s.cache.Get(s.symbolKey(symbol)); err == nil {
		if market, ok := v.(*core.Market); ok {
			return market, nil
		}
	}

	market, err := s.IMarketStore.FindBySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}

	s.cacheMarket(market)
	return market, nil
}

func (s *cacheMarketStore) Update(ctx context.Context, tx *db.DB, market *core.Market, version int64) error {
	if err := s.IMarketStore.Update(ctx, tx, market, version); err != nil {
		return err
	}

	s.cache.Remove(s.assetKey(market.AssetID))
	s.cache.Remove(s.symbolKey(market.Symbol))
	return nil
}

func (s *cacheMarketStore) cacheMarket(market *core.Market) {
	s.cache.Set(s.assetKey(market.AssetID), market)
	s.cache.Set(s.symbolKey(market.Symbol), market)
}

func (s *cacheMarketStore) assetKey(assetID string) string {
	return fmt.Sprintf("market:asset:%s", assetID)
}

func (s *cacheMarketStore) symbolKey(symbol string) string {
	return fmt.Sprintf("market:symbol:%s", symbol)
}
