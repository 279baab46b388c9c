package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	RunStatusProcessing = "processing"
	RunStatusCompleted  = "completed"
	RunStatusFailed     = "failed"
)

type AssignmentRun struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	PeriodYear        int
	PeriodMonth       int
	AccountID         *uuid.UUID `gorm:"type:uuid"`
	TotalTransactions int
	MatchedCount      int
	UnmatchedCount    int
	Status            string `gorm:"index"`
	Error             string
	Outcomes          datatypes.JSON
	StartedAt         time.Time
	CompletedAt       *time.Time
	CreatedAt         time.Time
}
