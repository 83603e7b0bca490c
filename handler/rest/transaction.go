package rest

import (
	"net/http"

	"github.com/go-chi/chi"

	"termfi/core"
	"termfi/handler/param"
	"termfi/handler/render"
)

func transactionsHandler(transactionStore core.TransactionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var params struct {
			From  uint64 `json:"from"`
			Limit int    `json:"limit"`
		}
		if err := param.Binding(r, &params); err != nil {
			render.BadRequest(w, err)
			return
		}

		limit := params.Limit
		if limit <= 0 || limit > 500 {
			limit = 500
		}

		transactions, err := transactionStore.List(ctx, params.From, limit)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		render.JSON(w, transactions)
	}
}

func userTransactionsHandler(transactionStore core.TransactionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		transactions, err := transactionStore.ListByUser(ctx, chi.URLParam(r, "user"), 100)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		render.JSON(w, transactions)
	}
}
