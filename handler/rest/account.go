package rest

import (
	"net/http"

	"github.com/go-chi/chi"

	"termfi/core"
	"termfi/handler/render"
	"termfi/handler/views"
)

func accountHandler(
	system *core.System,
	marketStore core.IMarketStore,
	supplyStore core.ISupplyStore,
	borrowStore core.IBorrowStore,
	poolStore core.IPoolStore,
	auditorSrv core.IAuditorService,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := chi.URLParam(r, "user")

		markets, err := marketStore.AllAsMap(ctx)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		supplies, err := supplyStore.FindByUser(ctx, userID)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		borrows, err := borrowStore.FindByUser(ctx, userID)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		positions, err := poolStore.ListPositions(ctx, userID)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		supplyViews := make([]map[string]interface{}, 0, len(supplies))
		for _, supply := range supplies {
			if market, ok := markets[supply.AssetID]; ok {
				supplyViews = append(supplyViews, views.Supply(market, supply))
			}
		}

		borrowViews := make([]map[string]interface{}, 0, len(borrows))
		for _, borrow := range borrows {
			if market, ok := markets[borrow.AssetID]; ok {
				borrowViews = append(borrowViews, views.Borrow(market, borrow))
			}
		}

		positionViews := make([]map[string]interface{}, 0, len(positions))
		for _, position := range positions {
			positionViews = append(positionViews, views.Position(position))
		}

		view := render.H{
			"supplies":  supplyViews,
			"borrows":   borrowViews,
			"positions": positionViews,
		}

		// valuation needs fresh prices; a stale oracle hides the number
		// instead of rendering a wrong one
		if liquidity, err := auditorSrv.AccountLiquidity(ctx, userID, system.Now(), nil); err == nil {
			view["liquidity"] = liquidity
		}

		render.JSON(w, view)
	}
}
