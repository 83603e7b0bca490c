package supply

import (
	"context"

	"github.com/fox-one/pkg/store/db"

	"termfi/core"
)

type supplyStore struct {
	db *db.DB
}

// New new supply store
func New(db *db.DB) core.ISupplyStore {
	return &supplyStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.Supply{})
		if err := tx.AutoMigrate(core.Supply{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *supplyStore) Save(ctx context.Context, tx *db.DB, supply *core.Supply) error {
	if err := tx.Update().Where("user_id=? and asset_id=?", supply.UserID, supply.AssetID).FirstOrCreate(supply).Error; err != nil {
		return err
	}

	return nil
}

func (s *supplyStore) Find(ctx context.Context, userID, assetID string) (*core.Supply, error) {
	var supply core.Supply
	if err := s.db.View().Where("user_id=? and asset_id=?", userID, assetID).First(&supply).Error; err != nil {
		return nil, err
	}

	return &supply, nil
}

func (s *supplyStore) FindByUser(ctx context.Context, userID string) ([]*core.Supply, error) {
	var supplies []*core.Supply
	if err := s.db.View().Where("user_id=?", userID).Find(&supplies).Error; err != nil {
		return nil, err
	}

	return supplies, nil
}

func (s *supplyStore) Update(ctx context.Context, tx *db.DB, supply *core.Supply, version int64) error {
	oldVersion := supply.Version
	if version <= oldVersion {
		version = oldVersion + 1
	}
	supply.Version = version

	if err := tx.Update().Model(core.Supply{}).Where("user_id=? and asset_id=? and version=?", supply.UserID, supply.AssetID, oldVersion).Update(supply).Error; err != nil {
		return err
	}

	return nil
}

func (s *supplyStore) Users(ctx context.Context) ([]string, error) {
	var users []string
	if err := s.db.View().Model(core.Supply{}).Select("distinct user_id").Pluck("user_id", &users).Error; err != nil {
		return nil, err
	}

	return users, nil
}
