// Package views flattens core models into api payloads. Field names
// come from the models' json tags (structs.DefaultTagName is set to
// "json" at process init), computed values are stitched on top.
package views

import (
	"github.com/shopspring/decimal"
	"github.com/yiplee/structs"

	"termfi/core"
	"termfi/internal/ledger"
)

// Market market plus its computed rates
func Market(market *core.Market, utilization, floatingRate decimal.Decimal) map[string]interface{} {
	view := structs.Map(market)
	view["utilization_rate"] = utilization
	view["floating_rate"] = floatingRate
	view["supply_exchange_rate"] = market.SupplyExchangeRate()
	view["borrow_exchange_rate"] = market.BorrowExchangeRate()
	return view
}

// Pool fixed pool plus lifecycle state and the marginal fixed rate
func Pool(pool *core.FixedPool, state core.PoolState, fixedRate decimal.Decimal) map[string]interface{} {
	view := structs.Map(pool)
	view["state"] = state.String()
	view["fixed_rate"] = fixedRate
	return view
}

// Supply floating supply with its redeemable balance
func Supply(market *core.Market, supply *core.Supply) map[string]interface{} {
	view := structs.Map(supply)
	view["balance"] = supply.Shares.Mul(market.SupplyExchangeRate()).Truncate(ledger.MaxPrecision)
	return view
}

// Borrow floating borrow with its outstanding balance
func Borrow(market *core.Market, borrow *core.Borrow) map[string]interface{} {
	view := structs.Map(borrow)
	view["balance"] = borrow.Balance(market)
	return view
}

// Position fixed position with its face value
func Position(position *core.FixedPosition) map[string]interface{} {
	view := structs.Map(position)
	view["assets"] = position.Assets()
	return view
}
