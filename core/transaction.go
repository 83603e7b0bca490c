package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
)

// TransactionExtraData extra data
type TransactionExtraData map[string]interface{}

// NewTransactionExtra new transaction extra instance
func NewTransactionExtra() TransactionExtraData {
	return make(TransactionExtraData)
}

// Put put data
func (t TransactionExtraData) Put(key string, value interface{}) {
	t[key] = value
}

// Format format as []byte by default
func (t TransactionExtraData) Format() []byte {
	bs, e := json.Marshal(t)
	if e != nil {
		return []byte("{}")
	}

	return bs
}

// Transaction event record mirroring one ledger state transition, for
// off-chain indexing. Written after the ledger mutation, never before.
type Transaction struct {
	ID        uint64          `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	TraceID   string          `sql:"size:36;unique_index:tx_trace_idx" json:"trace_id"`
	UserID    string          `sql:"size:36;index:tx_user_idx" json:"user_id"`
	Action    ActionType      `json:"action"`
	AssetID   string          `sql:"size:36" json:"asset_id"`
	Amount    decimal.Decimal `sql:"type:decimal(32,16)" json:"amount"`
	Maturity  int64           `sql:"default:0" json:"maturity,omitempty"`
	Extra     types.JSONText  `sql:"type:text" json:"extra"`
	CreatedAt time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

// UnmarshalExtraData unmarshal extra
func (t *Transaction) UnmarshalExtraData(v interface{}) error {
	return json.Unmarshal(t.Extra, v)
}

// BuildTransactionFromAction build transaction record from a log entry
func BuildTransactionFromAction(action *Action, userID string, typ ActionType, assetID string, amount decimal.Decimal, maturity int64, extra TransactionExtraData) *Transaction {
	tx := &Transaction{
		TraceID:   action.TraceID,
		UserID:    userID,
		Action:    typ,
		AssetID:   assetID,
		Amount:    amount,
		Maturity:  maturity,
		CreatedAt: action.CreatedAt,
	}

	if extra != nil {
		tx.Extra = extra.Format()
	}

	return tx
}

// TransactionStore transaction store interface
type TransactionStore interface {
	Create(ctx context.Context, tx *Transaction) error
	FindByTraceID(ctx context.Context, traceID string) (*Transaction, error)
	List(ctx context.Context, fromID uint64, limit int) ([]*Transaction, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*Transaction, error)
}
