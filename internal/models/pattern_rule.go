package models

import (
	"time"

	"github.com/google/uuid"
)

// PatternRule describes a recurring counterparty. It is maintained by the
// admin surface and only read by matching.
type PatternRule struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	Receiver           string    `gorm:"index"`
	CommentPattern     string
	RequireAmountMatch bool
	CreatedAt          time.Time
}
