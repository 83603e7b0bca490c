package auditor

import (
	"context"
	"testing"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"termfi/core"
	"termfi/pkg/number"
)

type fakeMarketStore struct {
	markets map[string]*core.Market
}

func (s *fakeMarketStore) Save(ctx context.Context, tx *db.DB, market *core.Market) error {
	s.markets[market.AssetID] = market
	return nil
}

func (s *fakeMarketStore) Find(ctx context.Context, assetID string) (*core.Market, error) {
	if market, ok := s.markets[assetID]; ok {
		return market, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *fakeMarketStore) FindBySymbol(ctx context.Context, symbol string) (*core.Market, error) {
	for _, market := range s.markets {
		if market.Symbol == symbol {
			return market, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *fakeMarketStore) All(ctx context.Context) ([]*core.Market, error) {
	var markets []*core.Market
	for _, market := range s.markets {
		markets = append(markets, market)
	}
	return markets, nil
}

func (s *fakeMarketStore) AllAsMap(ctx context.Context) (map[string]*core.Market, error) {
	return s.markets, nil
}

func (s *fakeMarketStore) Update(ctx context.Context, tx *db.DB, market *core.Market, version int64) error {
	s.markets[market.AssetID] = market
	return nil
}

type fakeSupplyStore struct {
	supplies []*core.Supply
}

func (s *fakeSupplyStore) Save(ctx context.Context, tx *db.DB, supply *core.Supply) error {
	s.supplies = append(s.supplies, supply)
	return nil
}

func (s *fakeSupplyStore) Find(ctx context.Context, userID, assetID string) (*core.Supply, error) {
	for _, supply := range s.supplies {
		if supply.UserID == userID && supply.AssetID == assetID {
			return supply, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *fakeSupplyStore) FindByUser(ctx context.Context, userID string) ([]*core.Supply, error) {
	var out []*core.Supply
	for _, supply := range s.supplies {
		if supply.UserID == userID {
			out = append(out, supply)
		}
	}
	return out, nil
}

func (s *fakeSupplyStore) Update(ctx context.Context, tx *db.DB, supply *core.Supply, version int64) error {
	return nil
}

func (s *fakeSupplyStore) Users(ctx context.Context) ([]string, error) {
	return nil, nil
}

type fakeBorrowStore struct {
	borrows []*core.Borrow
}

func (s *fakeBorrowStore) Save(ctx context.Context, tx *db.DB, borrow *core.Borrow) error {
	s.borrows = append(s.borrows, borrow)
	return nil
}

func (s *fakeBorrowStore) Find(ctx context.Context, userID, assetID string) (*core.Borrow, error) {
	for _, borrow := range s.borrows {
		if borrow.UserID == userID && borrow.AssetID == assetID {
			return borrow, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *fakeBorrowStore) FindByUser(ctx context.Context, userID string) ([]*core.Borrow, error) {
	var out []*core.Borrow
	for _, borrow := range s.borrows {
		if borrow.UserID == userID {
			out = append(out, borrow)
		}
	}
	return out, nil
}

func (s *fakeBorrowStore) Update(ctx context.Context, tx *db.DB, borrow *core.Borrow, version int64) error {
	return nil
}

func (s *fakeBorrowStore) Users(ctx context.Context) ([]string, error) {
	return nil, nil
}

type fakePoolStore struct {
	positions []*core.FixedPosition
}

func (s *fakePoolStore) SavePool(ctx context.Context, tx *db.DB, pool *core.FixedPool) error {
	return nil
}

func (s *fakePoolStore) FindPool(ctx context.Context, assetID string, maturity int64) (*core.FixedPool, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *fakePoolStore) UpdatePool(ctx context.Context, tx *db.DB, pool *core.FixedPool, version int64) error {
	return nil
}

func (s *fakePoolStore) ListPools(ctx context.Context, assetID string) ([]*core.FixedPool, error) {
	return nil, nil
}

func (s *fakePoolStore) SavePosition(ctx context.Context, tx *db.DB, position *core.FixedPosition) error {
	s.positions = append(s.positions, position)
	return nil
}

func (s *fakePoolStore) FindPosition(ctx context.Context, userID, assetID string, maturity int64, side core.PositionSide) (*core.FixedPosition, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *fakePoolStore) UpdatePosition(ctx context.Context, tx *db.DB, position *core.FixedPosition, version int64) error {
	return nil
}

func (s *fakePoolStore) ListPositions(ctx context.Context, userID string) ([]*core.FixedPosition, error) {
	var out []*core.FixedPosition
	for _, position := range s.positions {
		if position.UserID == userID {
			out = append(out, position)
		}
	}
	return out, nil
}

func (s *fakePoolStore) ListPositionsByMarket(ctx context.Context, userID, assetID string, side core.PositionSide) ([]*core.FixedPosition, error) {
	var out []*core.FixedPosition
	for _, position := range s.positions {
		if position.UserID == userID && position.AssetID == assetID && position.Side == side {
			out = append(out, position)
		}
	}
	return out, nil
}

type fakePriceService struct {
	prices map[string]decimal.Decimal
}

func (s *fakePriceService) GetPrice(ctx context.Context, assetID string, now time.Time) (decimal.Decimal, error) {
	if price, ok := s.prices[assetID]; ok && price.IsPositive() {
		return price, nil
	}
	return decimal.Zero, core.ErrInvalidPrice
}

func (s *fakePriceService) VerifyPriceData(ctx context.Context, data *core.PriceData) error {
	return nil
}

func (s *fakePriceService) PullPriceTicker(ctx context.Context, symbol string, t time.Time) (*core.PriceTicker, error) {
	return nil, nil
}

const (
	btc  = "btc-asset"
	eth  = "eth-asset"
	usdt = "usdt-asset"

	alice = "alice"
	bob   = "bob"
)

func newTestService(borrowedUSDT string) (core.IAuditorService, *fakeMarketStore) {
	markets := &fakeMarketStore{markets: map[string]*core.Market{
		btc: {
			AssetID:        btc,
			Symbol:         "BTC",
			Decimals:       8,
			FloatingAssets: number.Decimal("10"),
			SupplyShares:   number.Decimal("10"),
			AdjustFactor:   number.Decimal("0.6"),
		},
		eth: {
			AssetID:        eth,
			Symbol:         "ETH",
			Decimals:       8,
			FloatingAssets: number.Decimal("100"),
			SupplyShares:   number.Decimal("100"),
			AdjustFactor:   number.Decimal("0.7"),
		},
		usdt: {
			AssetID:      usdt,
			Symbol:       "USDT",
			Decimals:     8,
			FloatingDebt: number.Decimal(borrowedUSDT),
			BorrowShares: number.Decimal(borrowedUSDT),
			AdjustFactor: number.Decimal("0.8"),
			PenaltyRate:  number.Decimal("0.0000005"),
		},
	}}

	supplies := &fakeSupplyStore{supplies: []*core.Supply{
		{UserID: alice, AssetID: btc, Shares: number.Decimal("1"), Entered: true},
		{UserID: alice, AssetID: eth, Shares: number.Decimal("1"), Entered: true},
	}}

	borrows := &fakeBorrowStore{borrows: []*core.Borrow{
		{UserID: alice, AssetID: usdt, Shares: number.Decimal(borrowedUSDT)},
	}}

	prices := &fakePriceService{prices: map[string]decimal.Decimal{
		btc:  number.Decimal("63000"),
		eth:  number.Decimal("3000"),
		usdt: number.Decimal("1"),
	}}

	system := &core.System{
		MaxPriceAge: time.Minute,
		CloseFactor: number.Decimal("0.5"),
		LiquidationIncentive: core.LiquidationIncentive{
			Liquidator: number.Decimal("0.05"),
			Lenders:    number.Decimal("0.01"),
		},
	}

	return New(system, markets, supplies, borrows, &fakePoolStore{}, prices), markets
}

func TestAccountLiquidity(t *testing.T) {
	srv, _ := newTestService("20000")
	ctx := context.Background()
	now := time.Now()

	liquidity, err := srv.AccountLiquidity(ctx, alice, now, nil)
	require.Nil(t, err)

	// 1×63000×0.6 + 1×3000×0.7
	assert.True(t, liquidity.Collateral.Equal(number.Decimal("39900")), "collateral = %s", liquidity.Collateral)
	// 20000×1/0.8
	assert.True(t, liquidity.Debt.Equal(number.Decimal("25000")), "debt = %s", liquidity.Debt)
	assert.False(t, liquidity.HasShortfall())
}

func TestAccountLiquidityFailsClosedOnPrice(t *testing.T) {
	srv, markets := newTestService("20000")
	ctx := context.Background()

	prices := &fakePriceService{prices: map[string]decimal.Decimal{
		btc: number.Decimal("63000"),
		// eth and usdt missing
	}}
	system := &core.System{CloseFactor: number.Decimal("0.5")}
	srv = New(system, markets,
		&fakeSupplyStore{supplies: []*core.Supply{
			{UserID: alice, AssetID: eth, Shares: number.Decimal("1"), Entered: true},
		}},
		&fakeBorrowStore{}, &fakePoolStore{}, prices)

	_, err := srv.AccountLiquidity(ctx, alice, time.Now(), nil)
	assert.Equal(t, core.ErrInvalidPrice, err)
}

func TestCheckBorrowAllowed(t *testing.T) {
	srv, markets := newTestService("20000")
	ctx := context.Background()
	now := time.Now()

	usdtMarket := markets.markets[usdt]

	// 14900 more adjusted debt lands exactly on the collateral line
	assert.Nil(t, srv.CheckBorrowAllowed(ctx, alice, usdtMarket, number.Decimal("11920"), now))
	assert.Equal(t, core.ErrInsufficientLiquidity,
		srv.CheckBorrowAllowed(ctx, alice, usdtMarket, number.Decimal("11921"), now))
	assert.Equal(t, core.ErrInvalidAmount,
		srv.CheckBorrowAllowed(ctx, alice, usdtMarket, decimal.Zero, now))

	usdtMarket.Status = core.MarketStatusPaused
	assert.Equal(t, core.ErrMarketPaused,
		srv.CheckBorrowAllowed(ctx, alice, usdtMarket, number.Decimal("1"), now))
}

func TestCheckWithdrawAllowed(t *testing.T) {
	srv, markets := newTestService("20000")
	ctx := context.Background()
	now := time.Now()

	btcMarket := markets.markets[btc]

	// collateral 39900−x×63000×0.6 must stay above debt 25000
	assert.Nil(t, srv.CheckWithdrawAllowed(ctx, alice, btcMarket, number.Decimal("0.39"), now))
	assert.Equal(t, core.ErrInsufficientLiquidity,
		srv.CheckWithdrawAllowed(ctx, alice, btcMarket, number.Decimal("0.4"), now))

	assert.Equal(t, core.ErrSupplyNotFound,
		srv.CheckWithdrawAllowed(ctx, bob, btcMarket, number.Decimal("1"), now))
}

func TestCheckLiquidation(t *testing.T) {
	srv, markets := newTestService("40000")
	ctx := context.Background()
	now := time.Now()

	debtMarket := markets.markets[usdt]
	collateralMarket := markets.markets[btc]

	// debt 50000 against collateral 39900: under water
	repay, err := srv.CheckLiquidation(ctx, bob, alice, debtMarket, collateralMarket, number.Decimal("10000"), now)
	require.Nil(t, err)
	assert.True(t, repay.Equal(number.Decimal("10000")))

	_, err = srv.CheckLiquidation(ctx, alice, alice, debtMarket, collateralMarket, number.Decimal("10000"), now)
	assert.Equal(t, core.ErrLiquidatorNotBorrower, err)

	_, err = srv.CheckLiquidation(ctx, bob, alice, debtMarket, collateralMarket, decimal.Zero, now)
	assert.Equal(t, core.ErrRepayZero, err)

	// close factor 0.5 caps the repay at 20000
	_, err = srv.CheckLiquidation(ctx, bob, alice, debtMarket, collateralMarket, number.Decimal("20001"), now)
	assert.Equal(t, core.ErrTooMuchRepay, err)
}

func TestCheckLiquidationHealthyAccount(t *testing.T) {
	srv, markets := newTestService("20000")
	ctx := context.Background()

	_, err := srv.CheckLiquidation(ctx, bob, alice, markets.markets[usdt], markets.markets[btc], number.Decimal("100"), time.Now())
	assert.Equal(t, core.ErrOperationForbidden, err)
}

func TestSeizeQuote(t *testing.T) {
	srv, markets := newTestService("40000")
	ctx := context.Background()
	now := time.Now()

	quote, err := srv.SeizeQuote(ctx, markets.markets[usdt], markets.markets[btc], alice, number.Decimal("10000"), now)
	require.Nil(t, err)

	// 10000/63000 × 1.06, truncated to the collateral's 8 decimals
	assert.True(t, quote.SeizeAssets.Equal(number.Decimal("0.16825396")), "seize = %s", quote.SeizeAssets)
	assert.True(t, quote.LendersAssets.Equal(number.Decimal("100")))

	// seize larger than the borrower's collateral balance
	_, err = srv.SeizeQuote(ctx, markets.markets[usdt], markets.markets[btc], alice, number.Decimal("10000000"), now)
	assert.Equal(t, core.ErrTokensMoreThanBalance, err)
}

func TestSeizeQuoteMarketCash(t *testing.T) {
	srv, markets := newTestService("40000")
	ctx := context.Background()
	now := time.Now()

	// the borrower's balance covers the seize, but almost all of the
	// collateral market's cash is lent out
	markets.markets[btc].FloatingDebt = number.Decimal("9.9")

	_, err := srv.SeizeQuote(ctx, markets.markets[usdt], markets.markets[btc], alice, number.Decimal("10000"), now)
	assert.Equal(t, core.ErrTokensMoreThanBalance, err)
}

func TestTotalDebtWithFixedPositions(t *testing.T) {
	system := &core.System{CloseFactor: number.Decimal("0.5")}
	markets := &fakeMarketStore{markets: map[string]*core.Market{
		usdt: {
			AssetID:      usdt,
			FloatingDebt: number.Decimal("40000"),
			BorrowShares: number.Decimal("40000"),
			AdjustFactor: number.Decimal("0.8"),
			PenaltyRate:  number.Decimal("0.0000005"),
		},
	}}

	now := time.Now()
	pools := &fakePoolStore{positions: []*core.FixedPosition{
		{
			UserID:    alice,
			AssetID:   usdt,
			Maturity:  now.Unix() - 2*24*3600,
			Side:      core.PositionBorrow,
			Principal: number.Decimal("900"),
			Fee:       number.Decimal("100"),
		},
	}}
	borrows := &fakeBorrowStore{borrows: []*core.Borrow{
		{UserID: alice, AssetID: usdt, Shares: number.Decimal("40000")},
	}}

	srv := New(system, markets, &fakeSupplyStore{}, borrows, pools, &fakePriceService{})

	total, err := srv.TotalDebt(context.Background(), alice, markets.markets[usdt], now)
	require.Nil(t, err)

	// 40000 floating + 1000 fixed + 1000×0.0000005×172800 late penalty
	assert.True(t, total.Equal(number.Decimal("41086.4")), "total = %s", total)
}
