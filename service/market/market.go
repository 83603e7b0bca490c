package market

import (
	"context"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"

	"termfi/core"
	"termfi/internal/ledger"
)

type service struct {
	poolStore core.IPoolStore
}

// New new market service
func New(poolStore core.IPoolStore) core.IMarketService {
	return &service{poolStore: poolStore}
}

// AccrueInterest floating-debt interest, treasury split, accumulator
// release and every fixed pool's earnings drip, advanced to now.
// Mutates the market in place; the caller persists it. Pool rows are
// persisted here inside tx.
func (s *service) AccrueInterest(ctx context.Context, tx *db.DB, market *core.Market, now time.Time) error {
	if err := ledger.AccrueInterest(market, now); err != nil {
		return err
	}

	pools, err := s.poolStore.ListPools(ctx, market.AssetID)
	if err != nil {
		return err
	}

	for _, pool := range pools {
		drip := ledger.AccrueEarnings(pool, now.Unix())
		if !drip.IsPositive() {
			continue
		}

		market.FloatingAssets = market.FloatingAssets.Add(drip)
		if err := s.poolStore.UpdatePool(ctx, tx, pool, pool.Version); err != nil {
			return err
		}
	}

	return nil
}

func (s *service) CurUtilizationRate(ctx context.Context, market *core.Market) (decimal.Decimal, error) {
	return ledger.FloatingUtilization(market), nil
}

func (s *service) CurFloatingRate(ctx context.Context, market *core.Market) (decimal.Decimal, error) {
	curve, err := ledger.CurveOf(market)
	if err != nil {
		return decimal.Zero, err
	}

	return curve.Rate(ledger.FloatingUtilization(market))
}

// CurFixedRate annual rate quoted for borrowing amount from the pool at
// maturity. The quote combines the pool's own demand with the strain
// already put on the floating pool by backup borrowing.
func (s *service) CurFixedRate(ctx context.Context, market *core.Market, maturity int64, amount decimal.Decimal) (decimal.Decimal, error) {
	curve, err := ledger.CurveOf(market)
	if err != nil {
		return decimal.Zero, err
	}

	var borrowed, supplied decimal.Decimal
	pool, err := s.poolStore.FindPool(ctx, market.AssetID, maturity)
	if err != nil && !gorm.IsRecordNotFoundError(err) {
		return decimal.Zero, err
	}
	if pool != nil {
		borrowed = pool.Borrowed
		supplied = pool.Supplied
	}

	uFixed := ledger.Utilization(borrowed.Add(amount), supplied.Add(market.FloatingAssets))
	return curve.FixedRate(uFixed, ledger.BackupUtilization(market))
}
