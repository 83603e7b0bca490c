package core

import (
	"context"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/pandodao/blst"
	"github.com/shopspring/decimal"

	"termfi/pkg/wire"
)

// Price latest accepted oracle price for one asset
type Price struct {
	ID      int64           `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id,omitempty"`
	AssetID string          `sql:"size:36;unique_index:idx_prices" json:"asset_id,omitempty"`
	Price   decimal.Decimal `sql:"type:decimal(32,16)" json:"price,omitempty"`
	// unix seconds the submission was signed at
	Timestamp int64     `json:"timestamp,omitempty"`
	Version   int64     `sql:"default:0" json:"version,omitempty"`
	CreatedAt time.Time `sql:"default:CURRENT_TIMESTAMP" json:"created_at,omitempty"`
	UpdatedAt time.Time `sql:"default:CURRENT_TIMESTAMP" json:"updated_at,omitempty"`
}

// PriceData signed price submission. Mask selects the signers whose
// aggregated key must verify the payload.
type PriceData struct {
	AssetID   string          `json:"asset_id"`
	Price     decimal.Decimal `json:"price"`
	Timestamp int64           `json:"timestamp"`
	Mask      uint64          `json:"mask"`
	Signature blst.Signature  `json:"signature"`
}

// Payload signed bytes: asset, price and timestamp in wire layout
func (p *PriceData) Payload() []byte {
	body, _ := wire.Encode(p.AssetID, p.Price, p.Timestamp)
	return body
}

// MarshalBinary wire-encode the submission for an action memo
func (p *PriceData) MarshalBinary() ([]byte, error) {
	return wire.Encode(p.AssetID, p.Price, p.Timestamp, p.Mask, wire.RawMessage(p.Signature.Bytes()))
}

// UnmarshalBinary decode a submission from an action memo
func (p *PriceData) UnmarshalBinary(body []byte) error {
	var sig wire.RawMessage
	if _, err := wire.Scan(body, &p.AssetID, &p.Price, &p.Timestamp, &p.Mask, &sig); err != nil {
		return err
	}

	return p.Signature.FromBytes(sig)
}

// Signer oracle signer with its index inside the signature mask
type Signer struct {
	Index     uint64
	VerifyKey *blst.PublicKey
}

// OracleSigner registered oracle signer
type OracleSigner struct {
	ID        int64     `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id,omitempty"`
	UserID    string    `sql:"size:36;unique_index:idx_oracle_signers_user_id" json:"user_id,omitempty"`
	PublicKey string    `sql:"size:256" json:"public_key,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// OracleSignerStore oracle signer store interface
type OracleSignerStore interface {
	Save(ctx context.Context, userID, publicKey string) error
	Delete(ctx context.Context, userID string) error
	FindAll(ctx context.Context) ([]*OracleSigner, error)
}

// IPriceStore price store interface
type IPriceStore interface {
	Save(ctx context.Context, tx *db.DB, price *Price) error
	Find(ctx context.Context, assetID string) (*Price, error)
}

// IPriceOracleService oracle price service interface. GetPrice fails
// closed: a missing, non-positive or stale price is an error, never a
// zero value.
type IPriceOracleService interface {
	GetPrice(ctx context.Context, assetID string, now time.Time) (decimal.Decimal, error)
	VerifyPriceData(ctx context.Context, data *PriceData) error
	PullPriceTicker(ctx context.Context, symbol string, t time.Time) (*PriceTicker, error)
}

// PriceTicker price pulled from the external feed
type PriceTicker struct {
	Provider string          `json:"provider,omitempty"`
	Symbol   string          `json:"symbol,omitempty"`
	Price    decimal.Decimal `json:"price,omitempty"`
}
