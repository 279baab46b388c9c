package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Attachment links a transaction to a document. Rows are never updated:
// removal is a delete and re-attachment is a new row.
type Attachment struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	TransactionID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_attachment_pair;index"`
	DocumentID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_attachment_pair;index"`
	AttachedAt    time.Time
	ActorID       *string // nil when created by the system
	Automatic     bool    `gorm:"index"`

	RunID        *uuid.UUID `gorm:"type:uuid;index"`
	Score        *float64
	MatchDetails datatypes.JSON
}
