package borrow

import (
	"context"

	"github.com/fox-one/pkg/store/db"

	"termfi/core"
)

type borrowStore struct {
	db *db.DB
}

// New new borrow store
func New(db *db.DB) core.IBorrowStore {
	return &borrowStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.Borrow{})
		if err := tx.AutoMigrate(core.Borrow{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *borrowStore) Save(ctx context.Context, tx *db.DB, borrow *core.Borrow) error {
	if err := tx.Update().Where("user_id=? and asset_id=?", borrow.UserID, borrow.AssetID).FirstOrCreate(borrow).Error; err != nil {
		return err
	}

	return nil
}

func (s *borrowStore) Find(ctx context.Context, userID, assetID string) (*core.Borrow, error) {
	var borrow core.Borrow
	if err := s.db.View().Where("user_id=? and asset_id=?", userID, assetID).First(&borrow).Error; err != nil {
		return nil, err
	}

	return &borrow, nil
}

func (s *borrowStore) FindByUser(ctx context.Context, userID string) ([]*core.Borrow, error) {
	var borrows []*core.Borrow
	if err := s.db.View().Where("user_id=?", userID).Find(&borrows).Error; err != nil {
		return nil, err
	}

	return borrows, nil
}

func (s *borrowStore) Update(ctx context.Context, tx *db.DB, borrow *core.Borrow, version int64) error {
	oldVersion := borrow.Version
	if version <= oldVersion {
		version = oldVersion + 1
	}
	borrow.Version = version

	if err := tx.Update().Model(core.Borrow{}).Where("user_id=? and asset_id=? and version=?", borrow.UserID, borrow.AssetID, oldVersion).Update(borrow).Error; err != nil {
		return err
	}

	return nil
}

func (s *borrowStore) Users(ctx context.Context) ([]string, error) {
	var users []string
	if err := s.db.View().Model(core.Borrow{}).Select("distinct user_id").Pluck("user_id", &users).Error; err != nil {
		return nil, err
	}

	return users, nil
}
