package cmd

import (
	"context"
	"time"

	"github.com/fox-one/pkg/property"
	"github.com/fox-one/pkg/store/db"
	propertystore "github.com/fox-one/pkg/store/property"
	"github.com/shopspring/decimal"

	"termfi/core"
	auditorservice "termfi/service/auditor"
	marketservice "termfi/service/market"
	oracleservice "termfi/service/oracle"
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

func provideDatabase() *db.DB {
	return db.MustOpen(cfg.DB)
}

// provideSystem runtime settings from config, with the liquidation
// incentive overridable by the admin action persisted in the property
// store
func provideSystem(propertyStore property.Store) *core.System {
	system := &core.System{
		Genesis:        cfg.App.Genesis,
		Version:        rootCmd.Version,
		MaxPriceAge:    time.Duration(cfg.PriceOracle.MaxPriceAge) * time.Second,
		PriceThreshold: cfg.PriceOracle.Threshold,
		CloseFactor:    cfg.Risk.CloseFactor,
		LiquidationIncentive: core.LiquidationIncentive{
			Liquidator: cfg.Risk.IncentiveLiquidator,
			Lenders:    cfg.Risk.IncentiveLenders,
		},
		Policy: &cfg.Policy,
	}

	ctx := context.Background()
	if v, err := propertyStore.Get(ctx, "liquidation_incentive_liquidator"); err == nil && v.String() != "" {
		if d, err := decimal.NewFromString(v.String()); err == nil {
			system.LiquidationIncentive.Liquidator = d
		}
	}
	if v, err := propertyStore.Get(ctx, "liquidation_incentive_lenders"); err == nil && v.String() != "" {
		if d, err := decimal.NewFromString(v.String()); err == nil {
			system.LiquidationIncentive.Lenders = d
		}
	}

	return system
}

// ---------------store-----------------------------------------

func providePropertyStore(db *db.DB) property.Store {
	return propertystore.New(db)
}

func provideMarketStore(db *db.DB) core.IMarketStore {
	return marketstore.New(db)
}

func provideCachedMarketStore(db *db.DB) core.IMarketStore {
	return marketstore.Cache(marketstore.New(db), 5*time.Second)
}

func provideSupplyStore(db *db.DB) core.ISupplyStore {
	return supplystore.New(db)
}

func provideBorrowStore(db *db.DB) core.IBorrowStore {
	return borrowstore.New(db)
}

func providePoolStore(db *db.DB) core.IPoolStore {
	return poolstore.New(db)
}

func provideActionStore(db *db.DB) core.IActionStore {
	return actionstore.New(db)
}

func providePriceStore(db *db.DB) core.IPriceStore {
	return pricestore.New(db)
}

func provideOracleSignerStore(db *db.DB) core.OracleSignerStore {
	return oraclestore.NewSignerStore(db)
}

func provideTransactionStore(db *db.DB) core.TransactionStore {
	return transactionstore.New(db)
}

func provideTransferStore(db *db.DB) core.TransferStore {
	return transferstore.New(db)
}

// ------------------service------------------------------------

func provideMarketService(poolStore core.IPoolStore) core.IMarketService {
	return marketservice.New(poolStore)
}

func providePriceService(system *core.System, priceStore core.IPriceStore, signerStore core.OracleSignerStore) core.IPriceOracleService {
	return oracleservice.New(system, priceStore, signerStore, cfg.PriceOracle.EndPoint)
}

func provideAuditorService(
	system *core.System,
	marketStore core.IMarketStore,
	supplyStore core.ISupplyStore,
	borrowStore core.IBorrowStore,
	poolStore core.IPoolStore,
	priceSrv core.IPriceOracleService,
) core.IAuditorService {
	return auditorservice.New(system, marketStore, supplyStore, borrowStore, poolStore, priceSrv)
}
