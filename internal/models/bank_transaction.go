package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BankTransaction struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	AccountID uuid.UUID `gorm:"type:uuid;index"`

	// Gross is signed: outgoing payments are negative.
	Gross decimal.Decimal     `gorm:"type:numeric(18,2)"`
	Net   decimal.NullDecimal `gorm:"type:numeric(18,2)"`
	Tax   decimal.NullDecimal `gorm:"type:numeric(18,2)"`

	Counterparty   string
	SenderReceiver string `gorm:"index"`
	Note           string
	Reference      string
	BookedAt       time.Time `gorm:"column:booked_at;index"`
	Outgoing       bool

	IncomeRelevant   *bool
	SalesTaxRelevant *bool
	TaxPeriodMonth   *int
	TaxPeriodYear    *int

	CreatedAt time.Time
	UpdatedAt time.Time
}
