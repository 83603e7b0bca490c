package pool

import (
	"context"

	"github.com/fox-one/pkg/store/db"

	"termfi/core"
)

type poolStore struct {
	db *db.DB
}

// New new fixed pool store
func New(db *db.DB) core.IPoolStore {
	return &poolStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		if err := db.Update().Model(core.FixedPool{}).AutoMigrate(core.FixedPool{}).Error; err != nil {
			return err
		}

		if err := db.Update().Model(core.FixedPosition{}).AutoMigrate(core.FixedPosition{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *poolStore) SavePool(ctx context.Context, tx *db.DB, pool *core.FixedPool) error {
	return tx.Update().Where("asset_id=? and maturity=?", pool.AssetID, pool.Maturity).FirstOrCreate(pool).Error
}

func (s *poolStore) FindPool(ctx context.Context, assetID string, maturity int64) (*core.FixedPool, error) {
	var pool core.FixedPool
	if err := s.db.View().Where("asset_id=? and maturity=?", assetID, maturity).First(&pool).Error; err != nil {
		return nil, err
	}

	return &pool, nil
}

func (s *poolStore) UpdatePool(ctx context.Context, tx *db.DB, pool *core.FixedPool, version int64) error {
	oldVersion := pool.Version
	if version <= oldVersion {
		version = oldVersion + 1
	}
	pool.Version = version

	return tx.Update().Model(core.FixedPool{}).Where("asset_id=? and maturity=? and version=?", pool.AssetID, pool.Maturity, oldVersion).Update(pool).Error
}

func (s *poolStore) ListPools(ctx context.Context, assetID string) ([]*core.FixedPool, error) {
	var pools []*core.FixedPool
	query := s.db.View()
	if assetID != "" {
		query = query.Where("asset_id=?", assetID)
	}

	if err := query.Order("maturity ASC").Find(&pools).Error; err != nil {
		return nil, err
	}

	return pools, nil
}

func (s *poolStore) SavePosition(ctx context.Context, tx *db.DB, position *core.FixedPosition) error {
	return tx.Update().
		Where("user_id=? and asset_id=? and maturity=? and side=?", position.UserID, position.AssetID, position.Maturity, position.Side).
		FirstOrCreate(position).Error
}

func (s *poolStore) FindPosition(ctx context.Context, userID, assetID string, maturity int64, side core.PositionSide) (*core.FixedPosition, error) {
	var position core.FixedPosition
	if err := s.db.View().
		Where("user_id=? and asset_id=? and maturity=? and side=?", userID, assetID, maturity, side).
		First(&position).Error; err != nil {
		return nil, err
	}

	return &position, nil
}

func (s *poolStore) UpdatePosition(ctx context.Context, tx *db.DB, position *core.FixedPosition, version int64) error {
	oldVersion := position.Version
	if version <= oldVersion {
		version = oldVersion + 1
	}
	position.Version = version

	return tx.Update().Model(core.FixedPosition{}).
		Where("user_id=? and asset_id=? and maturity=? and side=? and version=?", position.UserID, position.AssetID, position.Maturity, position.Side, oldVersion).
		Update(position).Error
}

func (s *poolStore) ListPositions(ctx context.Context, userID string) ([]*core.FixedPosition, error) {
	var positions []*core.FixedPosition
	if err := s.db.View().Where("user_id=?", userID).Order("maturity ASC").Find(&positions).Error; err != nil {
		return nil, err
	}

	return positions, nil
}

func (s *poolStore) ListPositionsByMarket(ctx context.Context, userID, assetID string, side core.PositionSide) ([]*core.FixedPosition, error) {
	var positions []*core.FixedPosition
	if err := s.db.View().
		Where("user_id=? and asset_id=? and side=?", userID, assetID, side).
		Order("maturity ASC").Find(&positions).Error; err != nil {
		return nil, err
	}

	return positions, nil
}
