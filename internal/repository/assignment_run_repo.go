package repository

import (
	"context"

	"document-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AssignmentRunRepository struct {
	db *gorm.DB
}

func NewAssignmentRunRepository(db *gorm.DB) *AssignmentRunRepository {
	return &AssignmentRunRepository{db: db}
}

func (r *AssignmentRunRepository) CreateRun(ctx context.Context, run *models.AssignmentRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *AssignmentRunRepository) SaveRun(ctx context.Context, run *models.AssignmentRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

func (r *AssignmentRunRepository) GetRun(ctx context.Context, id uuid.UUID) (*models.AssignmentRun, error) {
	var run models.AssignmentRun
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &run, nil
}

func (r *AssignmentRunRepository) AppendAudit(ctx context.Context, entry *models.AttachmentAuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *AssignmentRunRepository) ListAudit(ctx context.Context, transactionID uuid.UUID) ([]models.AttachmentAuditLog, error) {
	var entries []models.AttachmentAuditLog
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}
