package core

import (
	"context"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

// MaturityInterval width of one maturity slot in seconds (4 weeks)
const MaturityInterval int64 = 4 * 7 * 24 * 3600

// PoolState fixed pool lifecycle state
type PoolState int

const (
	// PoolStateInvalid timestamp off the maturity grid
	PoolStateInvalid PoolState = iota
	// PoolStateNotReady maturity too far in the future to open
	PoolStateNotReady
	// PoolStateValid open for deposit and borrow
	PoolStateValid
	// PoolStateMatured at or past maturity, penalty accrues on unpaid debt
	PoolStateMatured
)

func (s PoolState) String() string {
	switch s {
	case PoolStateNotReady:
		return "NOT_READY"
	case PoolStateValid:
		return "VALID"
	case PoolStateMatured:
		return "MATURED"
	default:
		return "INVALID"
	}
}

// MaturityState lifecycle state of a maturity timestamp as seen at now,
// with maxFuturePools slots simultaneously open
func MaturityState(maturity, now int64, maxFuturePools int) PoolState {
	if maturity <= 0 || maturity%MaturityInterval != 0 {
		return PoolStateInvalid
	}
	if maturity <= now {
		return PoolStateMatured
	}

	next := (now/MaturityInterval + 1) * MaturityInterval
	if maturity > next+int64(maxFuturePools-1)*MaturityInterval {
		return PoolStateNotReady
	}

	return PoolStateValid
}

// NextMaturity first maturity on the grid strictly after now
func NextMaturity(now int64) int64 {
	return (now/MaturityInterval + 1) * MaturityInterval
}

// FixedPool per (asset, maturity) ledger record
type FixedPool struct {
	ID       uint64 `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	AssetID  string `sql:"size:36;unique_index:pool_idx" json:"asset_id"`
	Maturity int64  `sql:"unique_index:pool_idx" json:"maturity"`
	// principal borrowed from this pool
	Borrowed decimal.Decimal `sql:"type:decimal(32,16)" json:"borrowed"`
	// principal supplied to this pool
	Supplied decimal.Decimal `sql:"type:decimal(32,16)" json:"supplied"`
	// interest accrued but not yet attributed to lenders or the floating pool
	UnassignedEarnings decimal.Decimal `sql:"type:decimal(32,16)" json:"unassigned_earnings"`
	// unix seconds of the last drip into the earnings accumulator
	LastAccrual int64     `json:"last_accrual"`
	Version     int64     `sql:"default:0" json:"version"`
	CreatedAt   time.Time `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// BackupSupplied shortfall currently backed by the floating pool
func (p *FixedPool) BackupSupplied() decimal.Decimal {
	if p.Borrowed.GreaterThan(p.Supplied) {
		return p.Borrowed.Sub(p.Supplied)
	}
	return decimal.Zero
}

// PositionSide fixed position side
type PositionSide int8

const (
	// PositionSupply lender position
	PositionSupply PositionSide = iota
	// PositionBorrow borrower position
	PositionBorrow
)

// FixedPosition per (account, asset, maturity, side) principal+fee pair.
// A position with zero principal is absent.
type FixedPosition struct {
	ID        uint64          `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	UserID    string          `sql:"size:36;unique_index:position_idx" json:"user_id"`
	AssetID   string          `sql:"size:36;unique_index:position_idx" json:"asset_id"`
	Maturity  int64           `sql:"unique_index:position_idx" json:"maturity"`
	Side      PositionSide    `sql:"unique_index:position_idx" json:"side"`
	Principal decimal.Decimal `sql:"type:decimal(32,16)" json:"principal"`
	Fee       decimal.Decimal `sql:"type:decimal(32,16)" json:"fee"`
	Version   int64           `sql:"default:0" json:"version"`
	CreatedAt time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// Assets principal plus fee
func (p *FixedPosition) Assets() decimal.Decimal {
	return p.Principal.Add(p.Fee)
}

// Scale reduce the position proportionally so that assets shrink by
// repaidAssets, keeping the principal/fee ratio
func (p *FixedPosition) Scale(repaidAssets decimal.Decimal) {
	total := p.Assets()
	if !total.IsPositive() || repaidAssets.GreaterThanOrEqual(total) {
		p.Principal = decimal.Zero
		p.Fee = decimal.Zero
		return
	}

	remaining := total.Sub(repaidAssets)
	principal := p.Principal.Mul(remaining).Div(total).Truncate(16)
	p.Fee = remaining.Sub(principal)
	p.Principal = principal
}

// IPoolStore fixed pool & position store interface
type IPoolStore interface {
	SavePool(ctx context.Context, tx *db.DB, pool *FixedPool) error
	FindPool(ctx context.Context, assetID string, maturity int64) (*FixedPool, error)
	UpdatePool(ctx context.Context, tx *db.DB, pool *FixedPool, version int64) error
	ListPools(ctx context.Context, assetID string) ([]*FixedPool, error)

	SavePosition(ctx context.Context, tx *db.DB, position *FixedPosition) error
	FindPosition(ctx context.Context, userID, assetID string, maturity int64, side PositionSide) (*FixedPosition, error)
	UpdatePosition(ctx context.Context, tx *db.DB, position *FixedPosition, version int64) error
	ListPositions(ctx context.Context, userID string) ([]*FixedPosition, error)
	ListPositionsByMarket(ctx context.Context, userID, assetID string, side PositionSide) ([]*FixedPosition, error)
}
