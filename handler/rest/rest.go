// Package rest the public read api plus the action log producer
// endpoint. Handlers read committed state only; every mutation goes
// through POST /actions and is applied by the ledger worker.
package rest

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi"

	"termfi/core"
	"termfi/handler/render"
)

// Handle handle rest api request
func Handle(
	system *core.System,
	marketStore core.IMarketStore,
	supplyStore core.ISupplyStore,
	borrowStore core.IBorrowStore,
	poolStore core.IPoolStore,
	transactionStore core.TransactionStore,
	actionStore core.IActionStore,
	marketSrv core.IMarketService,
	auditorSrv core.IAuditorService,
) http.Handler {
	router := chi.NewRouter()

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.NotFoundRequest(w, errors.New("not found"))
	})

	router.Get("/markets", allMarketsHandler(marketStore, marketSrv))
	router.Get("/markets/{symbol}", marketHandler(system, marketStore, poolStore, marketSrv))
	router.Get("/markets/{symbol}/fixed-rate", fixedRateHandler(marketStore, marketSrv))
	router.Get("/accounts/{user}", accountHandler(system, marketStore, supplyStore, borrowStore, poolStore, auditorSrv))
	router.Get("/accounts/{user}/transactions", userTransactionsHandler(transactionStore))
	router.Get("/transactions", transactionsHandler(transactionStore))
	router.Post("/actions", createActionHandler(system, actionStore))

	return router
}
