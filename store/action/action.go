package action

import (
	"context"

	"github.com/fox-one/pkg/store/db"

	"termfi/core"
)

type actionStore struct {
	db *db.DB
}

// New new action log store
func New(db *db.DB) core.IActionStore {
	return &actionStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.Action{})
		if err := tx.AutoMigrate(core.Action{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *actionStore) Append(ctx context.Context, action *core.Action) error {
	return s.db.Update().Where("trace_id=?", action.TraceID).FirstOrCreate(action).Error
}

func (s *actionStore) List(ctx context.Context, fromID uint64, limit int) ([]*core.Action, error) {
	if limit <= 0 {
		limit = 500
	}

	var actions []*core.Action
	if err := s.db.View().Where("id > ?", fromID).Order("id ASC").Limit(limit).Find(&actions).Error; err != nil {
		return nil, err
	}

	return actions, nil
}

func (s *actionStore) FindByTraceID(ctx context.Context, traceID string) (*core.Action, error) {
	var action core.Action
	if err := s.db.View().Where("trace_id=?", traceID).First(&action).Error; err != nil {
		return nil, err
	}

	return &action, nil
}
