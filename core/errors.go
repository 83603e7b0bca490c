package core

import (
	"fmt"
	"strconv"
)

// ErrorCode int
type ErrorCode int

const (
	// ErrUnknown unknown
	ErrUnknown ErrorCode = 100000
	// ErrOperationForbidden caller lacks the required role
	ErrOperationForbidden ErrorCode = 100001
	// ErrInvalidArgument malformed action payload
	ErrInvalidArgument ErrorCode = 100002
	// ErrMarketPaused market rejects state-mutating entry points
	ErrMarketPaused ErrorCode = 100003

	// ErrMarketNotFound market not listed
	ErrMarketNotFound ErrorCode = 100100
	// ErrInvalidAmount non-positive or malformed amount
	ErrInvalidAmount ErrorCode = 100101
	// ErrSupplyNotFound no floating supply position
	ErrSupplyNotFound ErrorCode = 100102
	// ErrBorrowNotFound no debt position
	ErrBorrowNotFound ErrorCode = 100103
	// ErrInsufficientLiquidity operation would break collateralization or drain the pool
	ErrInsufficientLiquidity ErrorCode = 100104
	// ErrInvalidPrice oracle price non-positive or stale
	ErrInvalidPrice ErrorCode = 100105
	// ErrMarketAlreadyListed enable-market called twice
	ErrMarketAlreadyListed ErrorCode = 100106
	// ErrParameterOutOfRange admin parameter outside its valid range
	ErrParameterOutOfRange ErrorCode = 100107
	// ErrUtilizationExceeded rate not quotable above the curve's max utilization
	ErrUtilizationExceeded ErrorCode = 100108
	// ErrPositionNotFound no fixed position at that maturity
	ErrPositionNotFound ErrorCode = 100109
	// ErrMarketNotEntered account never entered the collateral market
	ErrMarketNotEntered ErrorCode = 100110

	// ErrInvalidPoolState fixed pool not in the required lifecycle state
	ErrInvalidPoolState ErrorCode = 100200
	// ErrDisagreeableAmount quoted amount violates the caller slippage bound
	ErrDisagreeableAmount ErrorCode = 100201

	// ErrRepayZero zero-amount liquidation repay
	ErrRepayZero ErrorCode = 100300
	// ErrTooMuchRepay liquidation repay above the close-factor cap
	ErrTooMuchRepay ErrorCode = 100301
	// ErrLiquidatorNotBorrower self-liquidation attempt
	ErrLiquidatorNotBorrower ErrorCode = 100302
	// ErrTokensMoreThanBalance seize exceeds the borrower's collateral balance
	ErrTokensMoreThanBalance ErrorCode = 100303
)

func (e ErrorCode) String() string {
	return strconv.Itoa(int(e))
}

func (e ErrorCode) Error() string {
	return e.String()
}

// PoolStateError fixed pool lifecycle guard failure. Carries both the
// actual and the required states so callers can tell why the pool
// refused the operation.
type PoolStateError struct {
	Actual   PoolState
	Required []PoolState
}

func (e *PoolStateError) Error() string {
	return fmt.Sprintf("pool state %s, required %v", e.Actual, e.Required)
}

// Code implements Coder
func (e *PoolStateError) Code() ErrorCode {
	return ErrInvalidPoolState
}

// SlippageError quoted amount breaks the caller-supplied bound
type SlippageError struct {
	Quoted string
	Bound  string
	Min    bool
}

func (e *SlippageError) Error() string {
	if e.Min {
		return fmt.Sprintf("quoted %s below the required minimum %s", e.Quoted, e.Bound)
	}
	return fmt.Sprintf("quoted %s above the accepted maximum %s", e.Quoted, e.Bound)
}

// Code implements Coder
func (e *SlippageError) Code() ErrorCode {
	return ErrDisagreeableAmount
}

// Coder errors that map to a ledger error code
type Coder interface {
	Code() ErrorCode
}

// CodeOf error code of err, falling back to def
func CodeOf(err error, def ErrorCode) ErrorCode {
	switch err := err.(type) {
	case ErrorCode:
		return err
	case Coder:
		return err.Code()
	default:
		return def
	}
}
