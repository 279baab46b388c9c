package matching

import (
	"testing"
	"time"

	"document-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(t time.Time) *time.Time {
	return &t
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func nullAmount(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func makeTx(gross string, senderReceiver, note string, booked time.Time) *models.BankTransaction {
	return &models.BankTransaction{
		ID:             uuid.New(),
		Gross:          amount(gross),
		SenderReceiver: senderReceiver,
		Note:           note,
		BookedAt:       booked,
		Outgoing:       true,
	}
}

func makeDoc(total, vendor, invoiceNumber string, invoiceDate time.Time) *models.Document {
	return &models.Document{
		ID:            uuid.New(),
		Name:          vendor + " " + invoiceNumber,
		Parsed:        true,
		Orphaned:      true,
		Total:         nullAmount(total),
		VendorName:    vendor,
		InvoiceNumber: invoiceNumber,
		InvoiceDate:   datePtr(invoiceDate),
	}
}

func defaultExtractor(rules ...models.PatternRule) *Extractor {
	return NewExtractor(DefaultExtractorConfig(), NewRuleIndex(rules))
}

func defaultScorer(t *testing.T) *WeightedScorer {
	t.Helper()
	s, err := NewWeightedScorer(DefaultWeights(), 30)
	if err != nil {
		t.Fatalf("build scorer: %v", err)
	}
	return s
}
