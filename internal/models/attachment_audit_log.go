package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	AuditActionAttach = "attach"
	AuditActionDetach = "detach"
)

type AttachmentAuditLog struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	AttachmentID  uuid.UUID `gorm:"type:uuid;index"`
	TransactionID uuid.UUID `gorm:"type:uuid;index"`
	DocumentID    uuid.UUID `gorm:"type:uuid;index"`
	Action        string
	Automatic     bool
	PerformedBy   string
	Reason        string
	CreatedAt     time.Time
}
