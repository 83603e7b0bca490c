package core

import (
	"context"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

// MarketStatus market status
type MarketStatus int

const (
	// MarketStatusOpen all entry points available
	MarketStatusOpen MarketStatus = iota
	// MarketStatusPaused state-mutating entry points rejected
	MarketStatusPaused
)

// Market one listed asset's ledger: the floating pool plus the set of
// its fixed pools and the parameters that drive them
type Market struct {
	ID       uint64 `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	AssetID  string `sql:"size:36;unique_index:asset_idx" json:"asset_id"`
	Symbol   string `sql:"size:20;unique_index:symbol_idx" json:"symbol"`
	Decimals int32  `sql:"default:8" json:"decimals"`

	// floating pool value, including lent-out principal and realized earnings
	FloatingAssets decimal.Decimal `sql:"type:decimal(32,16)" json:"floating_assets"`
	// floating principal outstanding, grows with accrued interest
	FloatingDebt decimal.Decimal `sql:"type:decimal(32,16)" json:"floating_debt"`
	// floating assets lent out to cover fixed-pool shortfalls
	FloatingBackupBorrowed decimal.Decimal `sql:"type:decimal(32,16)" json:"floating_backup_borrowed"`
	// total floating supply shares outstanding
	SupplyShares decimal.Decimal `sql:"type:decimal(32,16)" json:"supply_shares"`
	// total floating debt shares outstanding
	BorrowShares decimal.Decimal `sql:"type:decimal(32,16)" json:"borrow_shares"`
	// smoothing buffer releasing backup/fixed earnings into floating value
	EarningsAccumulator decimal.Decimal `sql:"type:decimal(32,16)" json:"earnings_accumulator"`
	// higher factor, slower release
	AccumulatorSmoothFactor decimal.Decimal `sql:"type:decimal(20,8)" json:"accumulator_smooth_factor"`
	// fraction of newly accrued floating interest routed to the treasury
	TreasuryFeeRate decimal.Decimal `sql:"type:decimal(20,8)" json:"treasury_fee_rate"`
	// asset units owed to the treasury, moved out by the collect action
	TreasuryBalance decimal.Decimal `sql:"type:decimal(32,16)" json:"treasury_balance"`
	// fraction of floating assets kept out of backup borrowing
	ReserveFactor decimal.Decimal `sql:"type:decimal(20,8)" json:"reserve_factor"`
	// fraction of a deposit's captured unassigned earnings diverted to the accumulator
	BackupFeeRate decimal.Decimal `sql:"type:decimal(20,8)" json:"backup_fee_rate"`
	// late-repay surcharge per second
	PenaltyRate decimal.Decimal `sql:"type:decimal(20,16)" json:"penalty_rate"`
	// number of future maturities simultaneously open
	MaxFuturePools int `sql:"default:3" json:"max_future_pools"`

	// collateral haircut in [0.3, 0.9]
	AdjustFactor decimal.Decimal `sql:"type:decimal(20,8)" json:"adjust_factor"`

	// rate curve parameters, see internal/ledger
	CurveA    decimal.Decimal `sql:"type:decimal(20,8)" json:"curve_a"`
	CurveB    decimal.Decimal `sql:"type:decimal(20,8)" json:"curve_b"`
	UMax      decimal.Decimal `sql:"type:decimal(20,8)" json:"u_max"`
	UFullRate decimal.Decimal `sql:"type:decimal(20,8)" json:"u_full_rate"`

	// unix seconds of the accrual checkpoints
	LastFloatingDebtUpdate int64 `json:"last_floating_debt_update"`
	LastAccumulatorAccrual int64 `json:"last_accumulator_accrual"`

	Status    MarketStatus `sql:"default:0" json:"status"`
	Version   int64        `sql:"default:0" json:"version"`
	CreatedAt time.Time    `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// IsPaused market rejects state-mutating entry points
func (m *Market) IsPaused() bool {
	return m.Status == MarketStatusPaused
}

// SupplyExchangeRate floating assets per supply share
func (m *Market) SupplyExchangeRate() decimal.Decimal {
	if !m.SupplyShares.IsPositive() {
		return decimal.New(1, 0)
	}

	return m.FloatingAssets.Div(m.SupplyShares).Truncate(16)
}

// BorrowExchangeRate floating debt per borrow share
func (m *Market) BorrowExchangeRate() decimal.Decimal {
	if !m.BorrowShares.IsPositive() {
		return decimal.New(1, 0)
	}

	return m.FloatingDebt.Div(m.BorrowShares).Truncate(16)
}

// IMarketStore market store interface
type IMarketStore interface {
	Save(ctx context.Context, tx *db.DB, market *Market) error
	Find(ctx context.Context, assetID string) (*Market, error)
	FindBySymbol(ctx context.Context, symbol string) (*Market, error)
	All(ctx context.Context) ([]*Market, error)
	AllAsMap(ctx context.Context) (map[string]*Market, error)
	Update(ctx context.Context, tx *db.DB, market *Market, version int64) error
}

// IMarketService market interface
type IMarketService interface {
	// AccrueInterest advances the floating debt, treasury split, fixed
	// pool drips and the accumulator release to now
	AccrueInterest(ctx context.Context, tx *db.DB, market *Market, now time.Time) error
	CurUtilizationRate(ctx context.Context, market *Market) (decimal.Decimal, error)
	CurFloatingRate(ctx context.Context, market *Market) (decimal.Decimal, error)
	CurFixedRate(ctx context.Context, market *Market, maturity int64, amount decimal.Decimal) (decimal.Decimal, error)
}
