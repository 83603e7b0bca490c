package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ActionType ledger action type carried in the action log memo
type ActionType int8

const (
	// ActionTypeDeposit deposit into the floating pool
	ActionTypeDeposit ActionType = iota + 1
	// ActionTypeWithdraw withdraw from the floating pool
	ActionTypeWithdraw
	// ActionTypeBorrow borrow from the floating pool
	ActionTypeBorrow
	// ActionTypeRepay repay floating debt
	ActionTypeRepay
	// ActionTypeDepositFixed deposit into a fixed pool
	ActionTypeDepositFixed
	// ActionTypeWithdrawFixed withdraw from a fixed pool
	ActionTypeWithdrawFixed
	// ActionTypeBorrowFixed borrow from a fixed pool
	ActionTypeBorrowFixed
	// ActionTypeRepayFixed repay a fixed position
	ActionTypeRepayFixed
	// ActionTypeLiquidate repay a shortfalled borrower and seize collateral
	ActionTypeLiquidate
	// ActionTypeEnterMarket mark a market as collateral
	ActionTypeEnterMarket
	// ActionTypeExitMarket unmark a market as collateral
	ActionTypeExitMarket

	// ActionTypeAddMarket admin: list a market
	ActionTypeAddMarket
	// ActionTypeUpdateMarket admin: update market parameters
	ActionTypeUpdateMarket
	// ActionTypeSetAdjustFactor admin: set the collateral haircut
	ActionTypeSetAdjustFactor
	// ActionTypeSetLiquidationIncentive admin: set the incentive pair
	ActionTypeSetLiquidationIncentive
	// ActionTypePauseMarket admin: pause
	ActionTypePauseMarket
	// ActionTypeUnpauseMarket admin: unpause
	ActionTypeUnpauseMarket
	// ActionTypeCollectTreasury admin: move the treasury balance out
	ActionTypeCollectTreasury
	// ActionTypeAddOracleSigner admin: register an oracle signer
	ActionTypeAddOracleSigner
	// ActionTypeSubmitPrice signed oracle price submission
	ActionTypeSubmitPrice
)

func (t ActionType) String() string {
	switch t {
	case ActionTypeDeposit:
		return "deposit"
	case ActionTypeWithdraw:
		return "withdraw"
	case ActionTypeBorrow:
		return "borrow"
	case ActionTypeRepay:
		return "repay"
	case ActionTypeDepositFixed:
		return "deposit_fixed"
	case ActionTypeWithdrawFixed:
		return "withdraw_fixed"
	case ActionTypeBorrowFixed:
		return "borrow_fixed"
	case ActionTypeRepayFixed:
		return "repay_fixed"
	case ActionTypeLiquidate:
		return "liquidate"
	case ActionTypeEnterMarket:
		return "enter_market"
	case ActionTypeExitMarket:
		return "exit_market"
	case ActionTypeAddMarket:
		return "add_market"
	case ActionTypeUpdateMarket:
		return "update_market"
	case ActionTypeSetAdjustFactor:
		return "set_adjust_factor"
	case ActionTypeSetLiquidationIncentive:
		return "set_liquidation_incentive"
	case ActionTypePauseMarket:
		return "pause_market"
	case ActionTypeUnpauseMarket:
		return "unpause_market"
	case ActionTypeCollectTreasury:
		return "collect_treasury"
	case ActionTypeAddOracleSigner:
		return "add_oracle_signer"
	case ActionTypeSubmitPrice:
		return "submit_price"
	default:
		return "unknown"
	}
}

// Action one entry of the totally-ordered transaction log. The host
// guarantees a single consumer observing entries in id order; amounts
// on deposit-like actions represent value paid into the system.
type Action struct {
	ID        uint64          `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	TraceID   string          `sql:"size:36;unique_index:action_trace_idx" json:"trace_id"`
	UserID    string          `sql:"size:36;index:action_user_idx" json:"user_id"`
	AssetID   string          `sql:"size:36" json:"asset_id"`
	Amount    decimal.Decimal `sql:"type:decimal(32,16)" json:"amount"`
	Memo      []byte          `sql:"type:varbinary(512)" json:"memo"`
	CreatedAt time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

// IActionStore ordered action log store interface
type IActionStore interface {
	Append(ctx context.Context, action *Action) error
	List(ctx context.Context, fromID uint64, limit int) ([]*Action, error)
	FindByTraceID(ctx context.Context, traceID string) (*Action, error)
}
