package market

import (
	"context"
	"errors"

	"github.com/fox-one/pkg/store/db"

	"termfi/core"
)

type marketStore struct {
	db *db.DB
}

// New new market store
func New(db *db.DB) core.IMarketStore {
	return &marketStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.Market{})
		if err := tx.AutoMigrate(core.Market{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *marketStore) Save(ctx context.Context, tx *db.DB, market *core.Market) error {
	if err := tx.Update().Where("asset_id=?", market.AssetID).FirstOrCreate(market).Error; err != nil {
		return err
	}
	return nil
}

func (s *marketStore) Find(ctx context.Context, assetID string) (*core.Market, error) {
	if assetID == "" {
		return nil, errors.New("invalid asset_id")
	}

	var market core.Market
	if err := s.db.View().Where("asset_id=?", assetID).First(&market).Error; err != nil {
		return nil, err
	}

	return &market, nil
}

func (s *marketStore) FindBySymbol(ctx context.Context, symbol string) (*core.Market, error) {
	if symbol == "" {
		return nil, errors.New("invalid symbol")
	}

	var market core.Market
	if err := s.db.View().Where("symbol=?", symbol).First(&market).Error; err != nil {
		return nil, err
	}

	return &market, nil
}

func (s *marketStore) All(ctx context.Context) ([]*core.Market, error) {
	var markets []*core.Market
	if err := s.db.View().Order("symbol ASC").Find(&markets).Error; err != nil {
		return nil, err
	}
	return markets, nil
}

func (s *marketStore) AllAsMap(ctx context.Context) (map[string]*core.Market, error) {
	markets, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	maps := make(map[string]*core.Market, len(markets))
	for _, m := range markets {
		maps[m.AssetID] = m
	}

	return maps, nil
}

func (s *marketStore) Update(ctx context.Context, tx *db.DB, market *core.Market, version int64) error {
	oldVersion := market.Version
	if version <= oldVersion {
		version = oldVersion + 1
	}
	market.Version = version

	if err := tx.Update().Model(core.Market{}).Where("asset_id=? and version=?", market.AssetID, oldVersion).Update(market).Error; err != nil {
		return err
	}

	return nil
}
