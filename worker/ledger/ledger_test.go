package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/fox-one/pkg/store/db"
	propertystore "github.com/fox-one/pkg/store/property"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"termfi/core"
	"termfi/pkg/number"
	"termfi/pkg/wire"
	auditorservice "termfi/service/auditor"
	marketservice "termfi/service/market"
	actionstore "termfi/store/action"
	borrowstore "termfi/store/borrow"
	marketstore "termfi/store/market"
	oraclestore "termfi/store/oracle"
	poolstore "termfi/store/pool"
	pricestore "termfi/store/price"
	supplystore "termfi/store/supply"
	transactionstore "termfi/store/transaction"
	transferstore "termfi/store/transfer"
)

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

func newTestLedger(t *testing.T, prices map[string]decimal.Decimal) (*Ledger, *db.DB) {
	database := db.MustOpen(db.SqliteInMemory())
	require.Nil(t, db.Migrate(database))

	system := &core.System{
		MaxPriceAge: time.Minute,
		CloseFactor: number.Decimal("0.5"),
		LiquidationIncentive: core.LiquidationIncentive{
			Liquidator: number.Decimal("0.05"),
			Lenders:    number.Decimal("0.01"),
		},
	}

	marketStore := marketstore.New(database)
	supplyStore := supplystore.New(database)
	borrowStore := borrowstore.New(database)
	poolStore := poolstore.New(database)
	priceSrv := &fakePriceService{prices: prices}
	auditorSrv := auditorservice.New(system, marketStore, supplyStore, borrowStore, poolStore, priceSrv)

	w := New(
		system,
		database,
		propertystore.New(database),
		actionstore.New(database),
		marketStore,
		supplyStore,
		borrowStore,
		poolStore,
		pricestore.New(database),
		oraclestore.NewSignerStore(database),
		transactionstore.New(database),
		transferstore.New(database),
		marketservice.New(poolStore),
		auditorSrv,
		priceSrv,
	)

	return w, database
}

func testAction(id uint64, typ core.ActionType, userID, assetID string, amount decimal.Decimal, at time.Time, args ...interface{}) *core.Action {
	memo, err := wire.Encode(append([]interface{}{int8(typ)}, args...)...)
	if err != nil {
		panic(err)
	}

	return &core.Action{
		ID:        id,
		TraceID:   fmt.Sprintf("trace-%d", id),
		UserID:    userID,
		AssetID:   assetID,
		Amount:    amount,
		Memo:      memo,
		CreatedAt: at,
	}
}

func testMarket(assetID, symbol string, at time.Time) *core.Market {
	return &core.Market{
		AssetID:                 assetID,
		Symbol:                  symbol,
		Decimals:                8,
		AccumulatorSmoothFactor: number.Decimal("2"),
		MaxFuturePools:          3,
		AdjustFactor:            number.Decimal("0.5"),
		CurveA:                  number.Decimal("0.01"),
		CurveB:                  number.Decimal("0.01"),
		UMax:                    number.Decimal("1.2"),
		UFullRate:               number.Decimal("1"),
		LastFloatingDebtUpdate:  at.Unix(),
		LastAccumulatorAccrual:  at.Unix(),
	}
}

func TestFloatingRoundTrip(t *testing.T) {
	ctx := context.Background()
	coin := "coin-asset"
	w, database := newTestLedger(t, map[string]decimal.Decimal{coin: number.Decimal("10")})
	defer database.Close()

	at := time.Unix(1700000000, 0)
	require.Nil(t, w.marketStore.Save(ctx, database, testMarket(coin, "COIN", at)))

	require.Nil(t, w.handleAction(ctx, testAction(11, core.ActionTypeDeposit, "alice", coin, number.Decimal("100"), at)))

	market, err := w.marketStore.Find(ctx, coin)
	require.Nil(t, err)
	assert.True(t, market.FloatingAssets.Equal(number.Decimal("100")))
	assert.True(t, market.SupplyShares.Equal(number.Decimal("100")))

	// pledge the deposit, then borrow against it
	require.Nil(t, w.handleAction(ctx, testAction(12, core.ActionTypeEnterMarket, "alice", "", decimal.Zero, at, coin)))
	require.Nil(t, w.handleAction(ctx, testAction(13, core.ActionTypeBorrow, "alice", "", decimal.Zero, at, coin, number.Decimal("20"))))

	market, err = w.marketStore.Find(ctx, coin)
	require.Nil(t, err)
	assert.True(t, market.FloatingDebt.Equal(number.Decimal("20")))

	borrow, err := w.borrowStore.Find(ctx, "alice", coin)
	require.Nil(t, err)
	assert.True(t, borrow.Shares.Equal(number.Decimal("20")))

	// repay 25: 20 retires the debt, 5 comes back as change
	require.Nil(t, w.handleAction(ctx, testAction(14, core.ActionTypeRepay, "alice", coin, number.Decimal("25"), at)))

	market, err = w.marketStore.Find(ctx, coin)
	require.Nil(t, err)
	assert.True(t, market.FloatingDebt.IsZero())
	assert.True(t, market.BorrowShares.IsZero())

	require.Nil(t, w.handleAction(ctx, testAction(15, core.ActionTypeWithdraw, "alice", "", decimal.Zero, at, coin, number.Decimal("100"))))

	market, err = w.marketStore.Find(ctx, coin)
	require.Nil(t, err)
	assert.True(t, market.FloatingAssets.IsZero(), "assets = %s", market.FloatingAssets)
	assert.True(t, market.SupplyShares.IsZero())

	supply, err := w.supplyStore.Find(ctx, "alice", coin)
	require.Nil(t, err)
	assert.True(t, supply.Shares.IsZero())

	// borrow payout 20, repay change 5, withdraw payout 100
	transfers, err := w.transferStore.ListPending(ctx, 100)
	require.Nil(t, err)
	require.Len(t, transfers, 3)

	total := decimal.Zero
	for _, transfer := range transfers {
		total = total.Add(transfer.Amount)
	}
	assert.True(t, total.Equal(number.Decimal("125")))

	// replaying an already-applied entry changes nothing
	require.Nil(t, w.handleAction(ctx, testAction(13, core.ActionTypeBorrow, "alice", "", decimal.Zero, at, coin, number.Decimal("20"))))

	market, err = w.marketStore.Find(ctx, coin)
	require.Nil(t, err)
	assert.True(t, market.FloatingDebt.IsZero())
}

func TestRepayPausedMarket(t *testing.T) {
	ctx := context.Background()
	coin := "coin-asset"
	w, database := newTestLedger(t, map[string]decimal.Decimal{coin: number.Decimal("10")})
	defer database.Close()

	at := time.Unix(1700000000, 0)
	market := testMarket(coin, "COIN", at)
	market.Status = core.MarketStatusPaused
	require.Nil(t, w.marketStore.Save(ctx, database, market))

	action := testAction(21, core.ActionTypeRepay, "alice", coin, number.Decimal("50"), at)
	require.Nil(t, w.handleAction(ctx, action))

	// the payment is rejected and returned in full
	transfers, err := w.transferStore.ListPending(ctx, 10)
	require.Nil(t, err)
	require.Len(t, transfers, 1)
	assert.True(t, transfers[0].Amount.Equal(number.Decimal("50")))

	transaction, err := w.transactionStore.FindByTraceID(ctx, action.TraceID)
	require.Nil(t, err)

	var extra struct {
		ErrorCode core.ErrorCode `json:"error_code"`
	}
	require.Nil(t, transaction.UnmarshalExtraData(&extra))
	assert.Equal(t, core.ErrMarketPaused, extra.ErrorCode)

	market, err = w.marketStore.Find(ctx, coin)
	require.Nil(t, err)
	assert.Equal(t, int64(0), market.Version)
}

func TestLiquidateConservation(t *testing.T) {
	ctx := context.Background()
	btc, usdt := "btc-asset", "usdt-asset"
	w, database := newTestLedger(t, map[string]decimal.Decimal{
		btc:  number.Decimal("63000"),
		usdt: number.Decimal("1"),
	})
	defer database.Close()

	at := time.Unix(1700000000, 0)

	collateral := testMarket(btc, "BTC", at)
	collateral.AdjustFactor = number.Decimal("0.6")
	collateral.FloatingAssets = number.Decimal("10")
	collateral.SupplyShares = number.Decimal("10")
	require.Nil(t, w.marketStore.Save(ctx, database, collateral))

	debt := testMarket(usdt, "USDT", at)
	debt.AdjustFactor = number.Decimal("0.8")
	debt.FloatingAssets = number.Decimal("50000")
	debt.SupplyShares = number.Decimal("50000")
	debt.FloatingDebt = number.Decimal("40000")
	debt.BorrowShares = number.Decimal("40000")
	require.Nil(t, w.marketStore.Save(ctx, database, debt))

	// 1 BTC pledged against 40000 USDT borrowed: adjusted collateral
	// 37800 under adjusted debt 50000, so alice is under water
	require.Nil(t, w.supplyStore.Save(ctx, database, &core.Supply{
		UserID:  "alice",
		AssetID: btc,
		Shares:  number.Decimal("1"),
		Entered: true,
	}))
	require.Nil(t, w.borrowStore.Save(ctx, database, &core.Borrow{
		UserID:  "alice",
		AssetID: usdt,
		Shares:  number.Decimal("40000"),
	}))

	payment := number.Decimal("10100")
	require.Nil(t, w.handleAction(ctx, testAction(31, core.ActionTypeLiquidate, "bob", usdt, payment, at, "alice", btc)))

	debtMarket, err := w.marketStore.Find(ctx, usdt)
	require.Nil(t, err)
	collateralMarket, err := w.marketStore.Find(ctx, btc)
	require.Nil(t, err)

	// 10100 buys 10000 of retired debt plus the 100 lenders slice
	assert.True(t, debtMarket.FloatingDebt.Equal(number.Decimal("30000")), "debt = %s", debtMarket.FloatingDebt)
	assert.True(t, debtMarket.EarningsAccumulator.Equal(number.Decimal("100")), "accumulator = %s", debtMarket.EarningsAccumulator)

	// 10000/63000 × 1.06 truncated to the collateral's decimals
	seize := number.Decimal("0.16825396")
	assert.True(t, collateralMarket.FloatingAssets.Equal(number.Decimal("10").Sub(seize)))

	supply, err := w.supplyStore.Find(ctx, "alice", btc)
	require.Nil(t, err)
	assert.True(t, supply.Shares.Equal(number.Decimal("1").Sub(seize)))

	transfers, err := w.transferStore.ListPending(ctx, 10)
	require.Nil(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, btc, transfers[0].AssetID)
	assert.True(t, transfers[0].Amount.Equal(seize))

	// the payment exactly funds the retired debt, the accumulator
	// credit and any change returned; nothing is promised twice
	refunds := decimal.Zero
	for _, transfer := range transfers {
		if transfer.AssetID == usdt {
			refunds = refunds.Add(transfer.Amount)
		}
	}
	retired := number.Decimal("40000").Sub(debtMarket.FloatingDebt)
	assert.True(t, retired.Add(debtMarket.EarningsAccumulator).Add(refunds).Equal(payment))
}

func TestLiquidateSeizeBeyondMarketCash(t *testing.T) {
	ctx := context.Background()
	btc, usdt := "btc-asset", "usdt-asset"
	w, database := newTestLedger(t, map[string]decimal.Decimal{
		btc:  number.Decimal("63000"),
		usdt: number.Decimal("1"),
	})
	defer database.Close()

	at := time.Unix(1700000000, 0)

	// the borrower's collateral covers the seize, but the collateral
	// market's cash is almost fully lent out
	collateral := testMarket(btc, "BTC", at)
	collateral.AdjustFactor = number.Decimal("0.6")
	collateral.FloatingAssets = number.Decimal("10")
	collateral.SupplyShares = number.Decimal("10")
	collateral.FloatingDebt = number.Decimal("9.9")
	collateral.BorrowShares = number.Decimal("9.9")
	require.Nil(t, w.marketStore.Save(ctx, database, collateral))

	debt := testMarket(usdt, "USDT", at)
	debt.AdjustFactor = number.Decimal("0.8")
	debt.FloatingAssets = number.Decimal("50000")
	debt.SupplyShares = number.Decimal("50000")
	debt.FloatingDebt = number.Decimal("40000")
	debt.BorrowShares = number.Decimal("40000")
	require.Nil(t, w.marketStore.Save(ctx, database, debt))

	require.Nil(t, w.supplyStore.Save(ctx, database, &core.Supply{
		UserID:  "alice",
		AssetID: btc,
		Shares:  number.Decimal("1"),
		Entered: true,
	}))
	require.Nil(t, w.borrowStore.Save(ctx, database, &core.Borrow{
		UserID:  "alice",
		AssetID: usdt,
		Shares:  number.Decimal("40000"),
	}))

	payment := number.Decimal("10100")
	action := testAction(41, core.ActionTypeLiquidate, "bob", usdt, payment, at, "alice", btc)
	require.Nil(t, w.handleAction(ctx, action))

	// the quote fails on market cash and the payment comes back
	transfers, err := w.transferStore.ListPending(ctx, 10)
	require.Nil(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, usdt, transfers[0].AssetID)
	assert.True(t, transfers[0].Amount.Equal(payment))

	debtMarket, err := w.marketStore.Find(ctx, usdt)
	require.Nil(t, err)
	assert.True(t, debtMarket.EarningsAccumulator.IsZero())
	assert.True(t, debtMarket.FloatingDebt.Equal(number.Decimal("40000")))
}
