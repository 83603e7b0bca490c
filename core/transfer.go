package core

import (
	"context"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

// Transfer value leaving the system: withdrawals, borrow payouts,
// refunds and liquidation seizures. Rows are written in the same db
// transaction as the ledger mutation and drained afterwards by the
// payout worker, so an external callee can never observe uncommitted
// ledger state.
type Transfer struct {
	ID        uint64          `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	TraceID   string          `sql:"size:36;unique_index:transfer_trace_idx" json:"trace_id"`
	UserID    string          `sql:"size:36;index:transfer_user_idx" json:"user_id"`
	AssetID   string          `sql:"size:36" json:"asset_id"`
	Amount    decimal.Decimal `sql:"type:decimal(32,16)" json:"amount"`
	Source    ActionType      `json:"source"`
	Handled   bool            `sql:"default:false" json:"handled"`
	CreatedAt time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TransferStore outbound transfer store interface
type TransferStore interface {
	Create(ctx context.Context, tx *db.DB, transfer *Transfer) error
	ListPending(ctx context.Context, limit int) ([]*Transfer, error)
	Handled(ctx context.Context, id uint64) error
}
