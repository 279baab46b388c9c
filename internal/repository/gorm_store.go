package repository

import (
	"document-reconciliation-backend/internal/models"

	"gorm.io/gorm"
)

// GormStore is the database-backed Store used by the server.
type GormStore struct {
	*BankTransactionRepository
	*DocumentRepository
	*PatternRuleRepository
	*AttachmentRepository
	*AssignmentRunRepository
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		BankTransactionRepository: NewBankTransactionRepository(db),
		DocumentRepository:        NewDocumentRepository(db),
		PatternRuleRepository:     NewPatternRuleRepository(db),
		AttachmentRepository:      NewAttachmentRepository(db),
		AssignmentRunRepository:   NewAssignmentRunRepository(db),
	}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.BankTransaction{},
		&models.Document{},
		&models.PatternRule{},
		&models.Attachment{},
		&models.AssignmentRun{},
		&models.AttachmentAuditLog{},
	)
}

var _ Store = (*GormStore)(nil)
