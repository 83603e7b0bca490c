package core

import (
	"context"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

// Supply floating supply position, share based. Entered marks the
// market as collateral for the account; it is set on the first
// enter-market action and cleared only when the account holds no debt
// in the market.
type Supply struct {
	ID        uint64          `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	UserID    string          `sql:"size:36;unique_index:supply_idx" json:"user_id"`
	AssetID   string          `sql:"size:36;unique_index:supply_idx" json:"asset_id"`
	Shares    decimal.Decimal `sql:"type:decimal(32,16)" json:"shares"`
	Entered   bool            `sql:"default:false" json:"entered"`
	Version   int64           `sql:"default:0" json:"version"`
	CreatedAt time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// ISupplyStore floating supply store interface
type ISupplyStore interface {
	Save(ctx context.Context, tx *db.DB, supply *Supply) error
	Find(ctx context.Context, userID, assetID string) (*Supply, error)
	FindByUser(ctx context.Context, userID string) ([]*Supply, error)
	Update(ctx context.Context, tx *db.DB, supply *Supply, version int64) error
	Users(ctx context.Context) ([]string, error)
}
