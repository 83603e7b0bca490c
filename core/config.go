package core

import (
	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

// Config termfi config
type Config struct {
	App         App         `json:"app"`
	DB          db.Config   `json:"db"`
	PriceOracle PriceOracle `json:"price_oracle"`
	Risk        Risk        `json:"risk"`
	Policy      Policy      `json:"policy"`
}

// App app config
type App struct {
	Genesis  int64  `json:"genesis"`
	Location string `json:"location"`
	// settlement webhook the payout worker posts drained transfers to;
	// empty means transfers are only marked handled
	PayoutEndpoint string `json:"payout_endpoint"`
}

// PriceOracle price oracle config
type PriceOracle struct {
	EndPoint string `json:"end_point"`
	// seconds a price stays valid
	MaxPriceAge int64 `json:"max_price_age"`
	// minimum distinct signatures on a submission
	Threshold int `json:"threshold"`
	// base64 BLS secret key used by the price poller, if this node signs
	SignKey string `json:"sign_key"`
	// this node's signer index inside the mask
	SignerIndex uint64 `json:"signer_index"`
	// user id the price poller submits actions under
	PollerID string `json:"poller_id"`
}

// Risk global risk parameters
type Risk struct {
	CloseFactor         decimal.Decimal `json:"close_factor"`
	IncentiveLiquidator decimal.Decimal `json:"incentive_liquidator"`
	IncentiveLenders    decimal.Decimal `json:"incentive_lenders"`
}
