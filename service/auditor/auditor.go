package auditor

import (
	"context"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"

	"termfi/core"
	"termfi/internal/ledger"
)

type auditorService struct {
	system      *core.System
	marketStore core.IMarketStore
	supplyStore core.ISupplyStore
	borrowStore core.IBorrowStore
	poolStore   core.IPoolStore
	priceSrv    core.IPriceOracleService
}

// New new auditor service
func New(
	system *core.System,
	marketStore core.IMarketStore,
	supplyStore core.ISupplyStore,
	borrowStore core.IBorrowStore,
	poolStore core.IPoolStore,
	priceSrv core.IPriceOracleService,
) core.IAuditorService {
	return &auditorService{
		system:      system,
		marketStore: marketStore,
		supplyStore: supplyStore,
		borrowStore: borrowStore,
		poolStore:   poolStore,
		priceSrv:    priceSrv,
	}
}

// AccountLiquidity values the account at current oracle prices. Any
// missing or stale price on a market the account touches fails the
// whole computation.
func (s *auditorService) AccountLiquidity(ctx context.Context, userID string, now time.Time, delta *core.LiquidityDelta) (core.AccountLiquidity, error) {
	var liquidity core.AccountLiquidity

	markets, err := s.marketStore.AllAsMap(ctx)
	if err != nil {
		return liquidity, err
	}

	prices := make(map[string]decimal.Decimal, len(markets))
	priceOf := func(assetID string) (decimal.Decimal, error) {
		if p, ok := prices[assetID]; ok {
			return p, nil
		}

		p, err := s.priceSrv.GetPrice(ctx, assetID, now)
		if err != nil {
			return decimal.Zero, err
		}

		prices[assetID] = p
		return p, nil
	}

	supplies, err := s.supplyStore.FindByUser(ctx, userID)
	if err != nil {
		return liquidity, err
	}

	for _, supply := range supplies {
		if !supply.Entered || !supply.Shares.IsPositive() {
			continue
		}

		market, ok := markets[supply.AssetID]
		if !ok {
			return liquidity, core.ErrMarketNotFound
		}

		price, err := priceOf(supply.AssetID)
		if err != nil {
			return liquidity, err
		}

		assets := supply.Shares.Mul(market.SupplyExchangeRate()).Truncate(ledger.MaxPrecision)
		liquidity.Collateral = liquidity.Collateral.Add(ledger.AdjustedCollateral(assets, price, market.AdjustFactor))
	}

	borrows, err := s.borrowStore.FindByUser(ctx, userID)
	if err != nil {
		return liquidity, err
	}

	for _, borrow := range borrows {
		if !borrow.Shares.IsPositive() {
			continue
		}

		market, ok := markets[borrow.AssetID]
		if !ok {
			return liquidity, core.ErrMarketNotFound
		}

		price, err := priceOf(borrow.AssetID)
		if err != nil {
			return liquidity, err
		}

		liquidity.Debt = liquidity.Debt.Add(ledger.AdjustedDebt(borrow.Balance(market), price, market.AdjustFactor))
	}

	positions, err := s.poolStore.ListPositions(ctx, userID)
	if err != nil {
		return liquidity, err
	}

	for _, position := range positions {
		if position.Side != core.PositionBorrow || !position.Assets().IsPositive() {
			continue
		}

		market, ok := markets[position.AssetID]
		if !ok {
			return liquidity, core.ErrMarketNotFound
		}

		price, err := priceOf(position.AssetID)
		if err != nil {
			return liquidity, err
		}

		assets := position.Assets()
		if late := now.Unix() - position.Maturity; late > 0 {
			assets = assets.Add(ledger.LatePenalty(assets, market.PenaltyRate, late))
		}

		liquidity.Debt = liquidity.Debt.Add(ledger.AdjustedDebt(assets, price, market.AdjustFactor))
	}

	if delta != nil {
		market, ok := markets[delta.AssetID]
		if !ok {
			return liquidity, core.ErrMarketNotFound
		}

		price, err := priceOf(delta.AssetID)
		if err != nil {
			return liquidity, err
		}

		if delta.Borrow.IsPositive() {
			liquidity.Debt = liquidity.Debt.Add(ledger.AdjustedDebt(delta.Borrow, price, market.AdjustFactor))
		}
		if delta.Withdraw.IsPositive() {
			liquidity.Collateral = liquidity.Collateral.Sub(ledger.AdjustedCollateral(delta.Withdraw, price, market.AdjustFactor))
		}
	}

	return liquidity, nil
}

func (s *auditorService) CheckBorrowAllowed(ctx context.Context, userID string, market *core.Market, amount decimal.Decimal, now time.Time) error {
	if !amount.IsPositive() {
		return core.ErrInvalidAmount
	}
	if market.IsPaused() {
		return core.ErrMarketPaused
	}

	liquidity, err := s.AccountLiquidity(ctx, userID, now, &core.LiquidityDelta{
		AssetID: market.AssetID,
		Borrow:  amount,
	})
	if err != nil {
		return err
	}

	if liquidity.HasShortfall() {
		return core.ErrInsufficientLiquidity
	}

	return nil
}

func (s *auditorService) CheckWithdrawAllowed(ctx context.Context, userID string, market *core.Market, amount decimal.Decimal, now time.Time) error {
	if !amount.IsPositive() {
		return core.ErrInvalidAmount
	}

	supply, err := s.supplyStore.Find(ctx, userID, market.AssetID)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return core.ErrSupplyNotFound
		}
		return err
	}

	// collateral not pledged, nothing to check
	if !supply.Entered {
		return nil
	}

	liquidity, err := s.AccountLiquidity(ctx, userID, now, &core.LiquidityDelta{
		AssetID:  market.AssetID,
		Withdraw: amount,
	})
	if err != nil {
		return err
	}

	if liquidity.HasShortfall() {
		return core.ErrInsufficientLiquidity
	}

	return nil
}

// CheckLiquidation authorizes repaying maxAssets of the borrower's debt.
// The borrower must be under water and the repay must stay inside the
// close-factor cap; anything above it rejects the whole call.
func (s *auditorService) CheckLiquidation(ctx context.Context, liquidator, borrower string, debtMarket, collateralMarket *core.Market, maxAssets decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if liquidator == borrower {
		return decimal.Zero, core.ErrLiquidatorNotBorrower
	}
	if !maxAssets.IsPositive() {
		return decimal.Zero, core.ErrRepayZero
	}
	if debtMarket.IsPaused() || collateralMarket.IsPaused() {
		return decimal.Zero, core.ErrMarketPaused
	}

	liquidity, err := s.AccountLiquidity(ctx, borrower, now, nil)
	if err != nil {
		return decimal.Zero, err
	}
	if !liquidity.HasShortfall() {
		return decimal.Zero, core.ErrOperationForbidden
	}

	totalDebt, err := s.TotalDebt(ctx, borrower, debtMarket, now)
	if err != nil {
		return decimal.Zero, err
	}
	if !totalDebt.IsPositive() {
		return decimal.Zero, core.ErrBorrowNotFound
	}

	if cap := ledger.MaxRepay(totalDebt, s.system.CloseFactor); maxAssets.GreaterThan(cap) {
		return decimal.Zero, core.ErrTooMuchRepay
	}

	return maxAssets, nil
}

// SeizeQuote converts repaid debt assets into seized collateral at
// oracle prices with the incentive pair applied.
func (s *auditorService) SeizeQuote(ctx context.Context, debtMarket, collateralMarket *core.Market, borrower string, repaidAssets decimal.Decimal, now time.Time) (*core.LiquidationQuote, error) {
	debtPrice, err := s.priceSrv.GetPrice(ctx, debtMarket.AssetID, now)
	if err != nil {
		return nil, err
	}

	collateralPrice, err := s.priceSrv.GetPrice(ctx, collateralMarket.AssetID, now)
	if err != nil {
		return nil, err
	}

	seize, lenders := ledger.Seize(repaidAssets, debtPrice, collateralPrice, collateralMarket.Decimals, s.system.LiquidationIncentive)

	supply, err := s.supplyStore.Find(ctx, borrower, collateralMarket.AssetID)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, core.ErrMarketNotEntered
		}
		return nil, err
	}
	if !supply.Entered {
		return nil, core.ErrMarketNotEntered
	}

	balance := supply.Shares.Mul(collateralMarket.SupplyExchangeRate()).Truncate(ledger.MaxPrecision)
	if seize.GreaterThan(balance) {
		return nil, core.ErrTokensMoreThanBalance
	}

	// the collateral market must actually hold the cash being paid out
	cash := collateralMarket.FloatingAssets.
		Sub(collateralMarket.FloatingDebt).
		Sub(collateralMarket.FloatingBackupBorrowed)
	if seize.GreaterThan(cash) {
		return nil, core.ErrTokensMoreThanBalance
	}

	return &core.LiquidationQuote{
		RepaidAssets:  repaidAssets,
		SeizeAssets:   seize,
		LendersAssets: lenders,
	}, nil
}

// TotalDebt the borrower's debt in one market: floating balance plus
// every fixed borrow position, late penalties included.
func (s *auditorService) TotalDebt(ctx context.Context, userID string, market *core.Market, now time.Time) (decimal.Decimal, error) {
	total := decimal.Zero

	borrow, err := s.borrowStore.Find(ctx, userID, market.AssetID)
	if err == nil {
		total = total.Add(borrow.Balance(market))
	} else if !gorm.IsRecordNotFoundError(err) {
		return decimal.Zero, err
	}

	positions, err := s.poolStore.ListPositionsByMarket(ctx, userID, market.AssetID, core.PositionBorrow)
	if err != nil {
		return decimal.Zero, err
	}

	for _, position := range positions {
		assets := position.Assets()
		if late := now.Unix() - position.Maturity; late > 0 {
			assets = assets.Add(ledger.LatePenalty(assets, market.PenaltyRate, late))
		}
		total = total.Add(assets)
	}

	return total, nil
}
