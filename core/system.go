package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// System runtime wide settings
type System struct {
	Genesis int64
	Version string
	// prices older than this fail the liquidity computation
	MaxPriceAge time.Duration
	// minimum distinct oracle signatures on a price submission
	PriceThreshold int
	// global liquidation parameters
	CloseFactor          decimal.Decimal
	LiquidationIncentive LiquidationIncentive
	Policy               *Policy
}

// Now clock reading truncated to whole seconds; accrual math works in
// unix seconds
func (s *System) Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
