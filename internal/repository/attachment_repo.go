package repository

import (
	"context"
	"time"

	"document-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttachmentRepository struct {
	db *gorm.DB
}

func NewAttachmentRepository(db *gorm.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

func (r *AttachmentRepository) ListAttachments(ctx context.Context, filter AttachmentFilter) ([]models.Attachment, error) {
	var rows []models.Attachment

	query := r.db.WithContext(ctx).Model(&models.Attachment{})
	if len(filter.TransactionIDs) > 0 {
		query = query.Where("transaction_id IN ?", filter.TransactionIDs)
	}
	if len(filter.DocumentIDs) > 0 {
		query = query.Where("document_id IN ?", filter.DocumentIDs)
	}
	if filter.AutomaticOnly {
		query = query.Where("automatic = ?", true)
	}

	err := query.Order("attached_at ASC").Order("id ASC").Find(&rows).Error
	return rows, err
}

func (r *AttachmentRepository) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.Attachment, error) {
	return r.ListAttachments(ctx, AttachmentFilter{TransactionIDs: []uuid.UUID{transactionID}})
}

func (r *AttachmentRepository) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]models.Attachment, error) {
	return r.ListAttachments(ctx, AttachmentFilter{DocumentIDs: []uuid.UUID{documentID}})
}

func (r *AttachmentRepository) GetAttachment(ctx context.Context, id uuid.UUID) (*models.Attachment, error) {
	var a models.Attachment
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &a, nil
}

func (r *AttachmentRepository) Insert(ctx context.Context, a *models.Attachment) error {
	prepareAttachment(a)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return insertPair(tx, a)
	})
}

func (r *AttachmentRepository) ClaimAutomatic(ctx context.Context, a *models.Attachment, exclusive bool) error {
	prepareAttachment(a)
	a.Automatic = true

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Serialize claims on the same document or transaction across processes.
		if tx.Dialector.Name() == "postgres" {
			for _, l := range claimLocks(a) {
				if err := tx.Exec("SELECT pg_advisory_xact_lock(?, hashtext(?))", l.class, l.key).Error; err != nil {
					return err
				}
			}
		}

		var n int64
		if exclusive {
			err := tx.Model(&models.Attachment{}).
				Where("document_id = ? AND automatic = ?", a.DocumentID, true).
				Count(&n).Error
			if err != nil {
				return err
			}
			if n > 0 {
				return ErrDocumentClaimed
			}
		}

		err := tx.Model(&models.Attachment{}).
			Where("transaction_id = ? AND automatic = ?", a.TransactionID, true).
			Count(&n).Error
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrTransactionClaimed
		}

		return insertPair(tx, a)
	})
}

func (r *AttachmentRepository) Delete(ctx context.Context, id uuid.UUID) (*models.Attachment, error) {
	var a models.Attachment

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&a, "id = ?", id).Error; err != nil {
			return translateError(err)
		}
		if err := tx.Delete(&models.Attachment{}, "id = ?", id).Error; err != nil {
			return err
		}

		var remaining int64
		if err := tx.Model(&models.Attachment{}).Where("document_id = ?", a.DocumentID).Count(&remaining).Error; err != nil {
			return err
		}
		if remaining == 0 {
			return tx.Model(&models.Document{}).Where("id = ?", a.DocumentID).Update("orphaned", true).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Advisory lock classes. Every claim takes its document lock before its
// transaction lock, so two claims can never wait on each other in a cycle.
const (
	lockClassDocument    int32 = 1
	lockClassTransaction int32 = 2
)

type advisoryLock struct {
	class int32
	key   string
}

func claimLocks(a *models.Attachment) []advisoryLock {
	return []advisoryLock{
		{class: lockClassDocument, key: a.DocumentID.String()},
		{class: lockClassTransaction, key: a.TransactionID.String()},
	}
}

func prepareAttachment(a *models.Attachment) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.AttachedAt.IsZero() {
		a.AttachedAt = time.Now().UTC()
	}
}

// insertPair relies on the unique (transaction_id, document_id) index:
// a conflicting insert affects no rows.
func insertPair(tx *gorm.DB, a *models.Attachment) error {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(a)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrDuplicatePair
	}
	return tx.Model(&models.Document{}).Where("id = ?", a.DocumentID).Update("orphaned", false).Error
}
