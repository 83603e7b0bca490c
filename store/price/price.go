package price

import (
	"context"

	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"

	"termfi/core"
)

type priceStore struct {
	db *db.DB
}

// New new price store
func New(db *db.DB) core.IPriceStore {
	return &priceStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.Price{})
		if err := tx.AutoMigrate(core.Price{}).Error; err != nil {
			return err
		}

		return nil
	})
}

// Save keeps one row per asset and only ever moves it forward in time.
func (s *priceStore) Save(ctx context.Context, tx *db.DB, price *core.Price) error {
	var existing core.Price
	if err := tx.Update().Where("asset_id=?", price.AssetID).First(&existing).Error; err != nil {
		if !gorm.IsRecordNotFoundError(err) {
			return err
		}

		return tx.Update().Create(price).Error
	}

	if existing.Timestamp >= price.Timestamp {
		return nil
	}

	return tx.Update().Model(core.Price{}).
		Where("asset_id=? and version=?", price.AssetID, existing.Version).
		Updates(map[string]interface{}{
			"price":     price.Price,
			"timestamp": price.Timestamp,
			"version":   existing.Version + 1,
		}).Error
}

func (s *priceStore) Find(ctx context.Context, assetID string) (*core.Price, error) {
	var price core.Price
	if err := s.db.View().Where("asset_id=?", assetID).First(&price).Error; err != nil {
		return nil, err
	}

	return &price, nil
}
