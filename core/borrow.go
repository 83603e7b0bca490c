package core

import (
	"context"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

// Borrow floating debt position. Shares count against the market's
// global debt index so every borrower's debt grows with accrued
// interest without per-account loops.
type Borrow struct {
	ID        uint64          `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	UserID    string          `sql:"size:36;unique_index:borrow_idx" json:"user_id"`
	AssetID   string          `sql:"size:36;unique_index:borrow_idx" json:"asset_id"`
	Shares    decimal.Decimal `sql:"type:decimal(32,16)" json:"shares"`
	Version   int64           `sql:"default:0" json:"version"`
	CreatedAt time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// Balance debt in asset units at the market's current index
func (b *Borrow) Balance(market *Market) decimal.Decimal {
	return b.Shares.Mul(market.BorrowExchangeRate()).Truncate(16)
}

// IBorrowStore floating borrow store interface
type IBorrowStore interface {
	Save(ctx context.Context, tx *db.DB, borrow *Borrow) error
	Find(ctx context.Context, userID, assetID string) (*Borrow, error)
	FindByUser(ctx context.Context, userID string) ([]*Borrow, error)
	Update(ctx context.Context, tx *db.DB, borrow *Borrow, version int64) error
	Users(ctx context.Context) ([]string, error)
}
