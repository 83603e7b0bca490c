package rest

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"

	"termfi/core"
	"termfi/handler/param"
	"termfi/handler/render"
	"termfi/handler/views"
)

func allMarketsHandler(marketStore core.IMarketStore, marketSrv core.IMarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		markets, err := marketStore.All(ctx)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		marketViews := make([]map[string]interface{}, 0, len(markets))
		for _, market := range markets {
			marketViews = append(marketViews, marketView(ctx, market, marketSrv))
		}

		render.JSON(w, marketViews)
	}
}

func marketHandler(system *core.System, marketStore core.IMarketStore, poolStore core.IPoolStore, marketSrv core.IMarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
		market, err := marketStore.FindBySymbol(ctx, symbol)
		if err != nil {
			render.NotFoundRequest(w, core.ErrMarketNotFound)
			return
		}

		view := marketView(ctx, market, marketSrv)

		now := system.Now().Unix()
		pools, err := poolStore.ListPools(ctx, market.AssetID)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		listed := make(map[int64]bool, len(pools))
		poolViews := make([]map[string]interface{}, 0, len(pools)+market.MaxFuturePools)
		for _, pool := range pools {
			listed[pool.Maturity] = true
			poolViews = append(poolViews, poolView(ctx, market, pool, now, marketSrv))
		}

		// open maturities nobody has touched yet show up as empty pools
		for i := 0; i < market.MaxFuturePools; i++ {
			maturity := core.NextMaturity(now) + int64(i)*core.MaturityInterval
			if listed[maturity] {
				continue
			}

			pool := &core.FixedPool{AssetID: market.AssetID, Maturity: maturity, LastAccrual: now}
			poolViews = append(poolViews, poolView(ctx, market, pool, now, marketSrv))
		}

		view["pools"] = poolViews
		render.JSON(w, view)
	}
}

func fixedRateHandler(marketStore core.IMarketStore, marketSrv core.IMarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var params struct {
			Maturity int64           `json:"maturity" valid:"required"`
			Amount   decimal.Decimal `json:"amount"`
		}
		if err := param.Binding(r, &params); err != nil {
			render.BadRequest(w, err)
			return
		}

		symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
		market, err := marketStore.FindBySymbol(ctx, symbol)
		if err != nil {
			render.NotFoundRequest(w, core.ErrMarketNotFound)
			return
		}

		rate, err := marketSrv.CurFixedRate(ctx, market, params.Maturity, params.Amount)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		render.JSON(w, render.H{
			"asset_id": market.AssetID,
			"maturity": params.Maturity,
			"amount":   params.Amount,
			"rate":     rate,
		})
	}
}

func marketView(ctx context.Context, market *core.Market, marketSrv core.IMarketService) map[string]interface{} {
	utilization, err := marketSrv.CurUtilizationRate(ctx, market)
	if err != nil {
		utilization = decimal.Zero
	}

	floatingRate, err := marketSrv.CurFloatingRate(ctx, market)
	if err != nil {
		floatingRate = decimal.Zero
	}

	return views.Market(market, utilization, floatingRate)
}

func poolView(ctx context.Context, market *core.Market, pool *core.FixedPool, now int64, marketSrv core.IMarketService) map[string]interface{} {
	state := core.MaturityState(pool.Maturity, now, market.MaxFuturePools)

	rate, err := marketSrv.CurFixedRate(ctx, market, pool.Maturity, decimal.Zero)
	if err != nil {
		rate = decimal.Zero
	}

	return views.Pool(pool, state, rate)
}
