package rest

import (
	"encoding/base64"
	"net/http"

	"github.com/shopspring/decimal"

	"termfi/core"
	"termfi/handler/param"
	"termfi/handler/render"
	"termfi/pkg/id"
)

// createActionHandler appends one entry to the action log. The memo is
// opaque here; the ledger worker decodes and dispatches it. Duplicate
// trace ids collapse to the first entry, so retries are safe.
func createActionHandler(system *core.System, actionStore core.IActionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var params struct {
			TraceID string          `json:"trace_id" valid:"uuid,optional"`
			UserID  string          `json:"user_id" valid:"uuid,required"`
			AssetID string          `json:"asset_id" valid:"uuid,required"`
			Amount  decimal.Decimal `json:"amount"`
			Memo    string          `json:"memo" valid:"required"`
		}
		if err := param.Binding(r, &params); err != nil {
			render.BadRequest(w, err)
			return
		}

		memo, err := base64.StdEncoding.DecodeString(params.Memo)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		if params.Amount.IsNegative() {
			render.BadRequest(w, core.ErrInvalidAmount)
			return
		}

		traceID := params.TraceID
		if traceID == "" {
			traceID = id.GenTraceID()
		}

		action := &core.Action{
			TraceID:   traceID,
			UserID:    params.UserID,
			AssetID:   params.AssetID,
			Amount:    params.Amount,
			Memo:      memo,
			CreatedAt: system.Now(),
		}

		if err := actionStore.Append(ctx, action); err != nil {
			render.BadRequest(w, err)
			return
		}

		followup, err := actionStore.FindByTraceID(ctx, traceID)
		if err == nil {
			action = followup
		}

		render.JSON(w, action)
	}
}
