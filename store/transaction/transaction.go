package transaction

import (
	"context"

	"github.com/fox-one/pkg/store/db"

	"termfi/core"
)

type transactionStore struct {
	db *db.DB
}

// New new transaction store
func New(db *db.DB) core.TransactionStore {
	return &transactionStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.Transaction{})
		if err := tx.AutoMigrate(core.Transaction{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *transactionStore) Create(ctx context.Context, transaction *core.Transaction) error {
	return s.db.Update().Where("trace_id=?", transaction.TraceID).FirstOrCreate(transaction).Error
}

func (s *transactionStore) FindByTraceID(ctx context.Context, traceID string) (*core.Transaction, error) {
	var transaction core.Transaction
	if err := s.db.View().Where("trace_id=?", traceID).First(&transaction).Error; err != nil {
		return nil, err
	}

	return &transaction, nil
}

func (s *transactionStore) List(ctx context.Context, fromID uint64, limit int) ([]*core.Transaction, error) {
	if limit <= 0 {
		limit = 500
	}

	var transactions []*core.Transaction
	if err := s.db.View().Where("id > ?", fromID).Order("id ASC").Limit(limit).Find(&transactions).Error; err != nil {
		return nil, err
	}

	return transactions, nil
}

func (s *transactionStore) ListByUser(ctx context.Context, userID string, limit int) ([]*core.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}

	var transactions []*core.Transaction
	if err := s.db.View().Where("user_id=?", userID).Order("id DESC").Limit(limit).Find(&transactions).Error; err != nil {
		return nil, err
	}

	return transactions, nil
}
