package repository

import (
	"context"
	"errors"

	"document-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BankTransactionRepository struct {
	db *gorm.DB
}

func NewBankTransactionRepository(db *gorm.DB) *BankTransactionRepository {
	return &BankTransactionRepository{db: db}
}

func (r *BankTransactionRepository) ListTransactions(ctx context.Context, period PeriodFilter, accountID *uuid.UUID) ([]models.BankTransaction, error) {
	var txs []models.BankTransaction

	query := r.db.WithContext(ctx).Model(&models.BankTransaction{})
	if from, to, ok := period.Bounds(); ok {
		query = query.Where("booked_at >= ? AND booked_at < ?", from, to)
	}
	if accountID != nil {
		query = query.Where("account_id = ?", *accountID)
	}

	err := query.Order("booked_at ASC").Order("id ASC").Find(&txs).Error
	return txs, err
}

func (r *BankTransactionRepository) GetTransaction(ctx context.Context, id uuid.UUID) (*models.BankTransaction, error) {
	var tx models.BankTransaction
	if err := r.db.WithContext(ctx).First(&tx, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &tx, nil
}

// CreateTransaction is used by the import collaborator and by tests.
func (r *BankTransactionRepository) CreateTransaction(ctx context.Context, tx *models.BankTransaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(tx).Error
}

func translateError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
