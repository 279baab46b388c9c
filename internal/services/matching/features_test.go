package matching

import (
	"testing"
	"time"

	"document-reconciliation-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestAmountSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		gross    string
		doc      *models.Document
		expected float64
	}{
		{
			name:     "exact total",
			gross:    "100.00",
			doc:      &models.Document{Total: nullAmount("100.00")},
			expected: 1,
		},
		{
			name:     "outgoing payment compares absolute values",
			gross:    "-100.00",
			doc:      &models.Document{Total: nullAmount("100.00")},
			expected: 1,
		},
		{
			name:     "half the amount",
			gross:    "50.00",
			doc:      &models.Document{Total: nullAmount("100.00")},
			expected: 0.5,
		},
		{
			name:     "falls back to subtotal",
			gross:    "84.03",
			doc:      &models.Document{Subtotal: nullAmount("84.03")},
			expected: 1,
		},
		{
			name:     "total wins over subtotal",
			gross:    "84.03",
			doc:      &models.Document{Subtotal: nullAmount("84.03"), Total: nullAmount("100.00")},
			expected: 0.8403,
		},
		{
			name:     "missing amount on document",
			gross:    "100.00",
			doc:      &models.Document{},
			expected: 0,
		},
		{
			name:     "far apart clamps to zero",
			gross:    "1.00",
			doc:      &models.Document{Total: nullAmount("-500.00")},
			expected: 0.002,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &models.BankTransaction{Gross: amount(tt.gross)}
			got := AmountSimilarity(tx, tt.doc)
			assert.InDelta(t, tt.expected, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestDateDiffDays(t *testing.T) {
	tx := &models.BankTransaction{BookedAt: time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)}

	t.Run("uses invoice date", func(t *testing.T) {
		doc := &models.Document{InvoiceDate: datePtr(day(2024, 3, 8))}
		assert.Equal(t, 2, DateDiffDays(tx, doc))
	})

	t.Run("invoice after booking is still positive", func(t *testing.T) {
		doc := &models.Document{InvoiceDate: datePtr(day(2024, 3, 15))}
		assert.Equal(t, 5, DateDiffDays(tx, doc))
	})

	t.Run("falls back to folder date", func(t *testing.T) {
		doc := &models.Document{FolderInvoiceDate: datePtr(day(2024, 3, 1))}
		assert.Equal(t, 9, DateDiffDays(tx, doc))
	})

	t.Run("no date is maximal", func(t *testing.T) {
		assert.Equal(t, NoDateDiff, DateDiffDays(tx, &models.Document{}))
	})
}

func TestVendorSimilarity(t *testing.T) {
	tests := []struct {
		name         string
		counterparty string
		sender       string
		vendor       string
		min, max     float64
	}{
		{"identical", "", "Acme GmbH", "Acme GmbH", 1, 1},
		{"case and legal form", "", "ACME", "Acme GmbH", 1, 1},
		{"diacritics", "", "MUELLER", "Müller", 0.7, 1},
		{"umlaut folded", "", "MULLER GMBH", "Müller GmbH", 1, 1},
		{"sharp s", "", "Strasse Bau", "Straße Bau", 1, 1},
		{"counterparty has priority", "Acme", "Globex", "Acme", 1, 1},
		{"empty counterparty falls back", "  ", "Acme", "Acme", 1, 1},
		{"unrelated", "", "Globex Corporation", "Acme", 0, 0.5},
		{"empty vendor", "", "Acme", "", 0, 0},
		{"empty transaction names", "", "", "Acme", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &models.BankTransaction{Counterparty: tt.counterparty, SenderReceiver: tt.sender}
			doc := &models.Document{VendorName: tt.vendor}
			got := VendorSimilarity(tx, doc)
			assert.GreaterOrEqual(t, got, tt.min)
			assert.LessOrEqual(t, got, tt.max)
		})
	}
}

func TestExtract_InvoiceNumber(t *testing.T) {
	ex := defaultExtractor()
	doc := makeDoc("100.00", "Acme", "2024-001", day(2024, 3, 8))

	tests := []struct {
		name      string
		note      string
		reference string
		expected  float64
	}{
		{"inside note after separator", "INV-2024-001", "", 1},
		{"in reference", "", "RE 2024-001 / Acme", 1},
		{"longer number", "INV-2024-0012", "", 0},
		{"prefixed digits", "X12024-001", "", 0},
		{"absent", "monthly fee", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := makeTx("100.00", "Acme", tt.note, day(2024, 3, 10))
			tx.Reference = tt.reference
			assert.Equal(t, tt.expected, ex.Extract(tx, doc).InvoiceNumberMatch)
		})
	}

	t.Run("case-insensitive", func(t *testing.T) {
		d := makeDoc("100.00", "Acme", "inv-abc", day(2024, 3, 8))
		tx := makeTx("100.00", "Acme", "Payment INV-ABC thanks", day(2024, 3, 10))
		assert.Equal(t, 1.0, ex.Extract(tx, d).InvoiceNumberMatch)
	})

	t.Run("document without number", func(t *testing.T) {
		d := makeDoc("100.00", "Acme", "", day(2024, 3, 8))
		tx := makeTx("100.00", "Acme", "anything", day(2024, 3, 10))
		assert.Equal(t, 0.0, ex.Extract(tx, d).InvoiceNumberMatch)
	})
}

func TestExtract_Skonto(t *testing.T) {
	ex := defaultExtractor()

	t.Run("discounted payment matches", func(t *testing.T) {
		doc := makeDoc("100.00", "Acme", "", day(2024, 3, 8))
		doc.Skonto = nullAmount("2.00")
		tx := makeTx("98.00", "Acme", "", day(2024, 3, 10))

		fv := ex.Extract(tx, doc)
		assert.True(t, fv.SkontoApplicable)
		assert.Equal(t, 1.0, fv.SkontoMatch)
	})

	t.Run("within a cent", func(t *testing.T) {
		doc := makeDoc("100.00", "Acme", "", day(2024, 3, 8))
		doc.Skonto = nullAmount("2.00")
		tx := makeTx("-97.99", "Acme", "", day(2024, 3, 10))
		assert.Equal(t, 1.0, ex.Extract(tx, doc).SkontoMatch)
	})

	t.Run("full payment does not match the discount", func(t *testing.T) {
		doc := makeDoc("100.00", "Acme", "", day(2024, 3, 8))
		doc.Skonto = nullAmount("2.00")
		tx := makeTx("100.00", "Acme", "", day(2024, 3, 10))

		fv := ex.Extract(tx, doc)
		assert.True(t, fv.SkontoApplicable)
		assert.Equal(t, 0.0, fv.SkontoMatch)
	})

	t.Run("no skonto on document", func(t *testing.T) {
		doc := makeDoc("100.00", "Acme", "", day(2024, 3, 8))
		tx := makeTx("98.00", "Acme", "", day(2024, 3, 10))

		fv := ex.Extract(tx, doc)
		assert.False(t, fv.SkontoApplicable)
		assert.Equal(t, 0.0, fv.SkontoMatch)
	})
}

func TestExtract_MissingFieldsDegrade(t *testing.T) {
	ex := defaultExtractor()
	tx := makeTx("100.00", "Acme", "INV-1", day(2024, 3, 10))
	doc := &models.Document{Parsed: true}

	fv := ex.Extract(tx, doc)
	assert.Equal(t, 0.0, fv.AmountSimilarity)
	assert.Equal(t, NoDateDiff, fv.DateDiffDays)
	assert.Equal(t, 0.0, fv.VendorSimilarity)
	assert.Equal(t, 0.0, fv.InvoiceNumberMatch)
	assert.Equal(t, 0.0, fv.SkontoMatch)
	assert.Equal(t, 0.0, fv.PatternMatch)
}
