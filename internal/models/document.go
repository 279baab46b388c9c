package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Document is an invoice or receipt whose fields were populated by the
// extraction service before matching.
type Document struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string
	ExternalRef string `gorm:"index"`
	Orphaned    bool   `gorm:"index"`
	Parsed      bool   `gorm:"index"`

	InvoiceNumber     string `gorm:"index"`
	InvoiceDate       *time.Time
	FolderInvoiceDate *time.Time

	Subtotal   decimal.NullDecimal `gorm:"type:numeric(18,2)"`
	Total      decimal.NullDecimal `gorm:"type:numeric(18,2)"`
	TaxRate    decimal.NullDecimal `gorm:"type:numeric(6,3)"`
	TaxAmount  decimal.NullDecimal `gorm:"type:numeric(18,2)"`
	Skonto     decimal.NullDecimal `gorm:"type:numeric(18,2)"`
	VendorName string              `gorm:"index"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ComparableAmount is the total, or the subtotal when no total was extracted.
func (d *Document) ComparableAmount() (decimal.Decimal, bool) {
	if d.Total.Valid {
		return d.Total.Decimal, true
	}
	if d.Subtotal.Valid {
		return d.Subtotal.Decimal, true
	}
	return decimal.Zero, false
}

// EffectiveInvoiceDate falls back to the date derived from the containing folder.
func (d *Document) EffectiveInvoiceDate() (time.Time, bool) {
	if d.InvoiceDate != nil {
		return *d.InvoiceDate, true
	}
	if d.FolderInvoiceDate != nil {
		return *d.FolderInvoiceDate, true
	}
	return time.Time{}, false
}
