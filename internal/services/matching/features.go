package matching

import (
	"math"
	"strings"
	"time"

	"document-reconciliation-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// NoDateDiff marks a pair where the document carries no usable date.
const NoDateDiff = math.MaxInt32

// FeatureVector holds the comparable signals of one (transaction, document) pair.
type FeatureVector struct {
	AmountSimilarity   float64 `json:"amount_similarity"`
	DateDiffDays       int     `json:"date_diff_days"`
	VendorSimilarity   float64 `json:"vendor_similarity"`
	InvoiceNumberMatch float64 `json:"invoice_number_match"`
	SkontoMatch        float64 `json:"skonto_match"`
	PatternMatch       float64 `json:"pattern_match"`

	// SkontoApplicable is set when the document carries a discount amount,
	// PatternApplicable when a rule exists for the transaction's receiver.
	SkontoApplicable  bool `json:"skonto_applicable"`
	PatternApplicable bool `json:"pattern_applicable"`
}

type ExtractorConfig struct {
	// AmountTolerance is the absolute tolerance of the skonto comparison.
	AmountTolerance float64
	// PatternAmountThreshold is the amount similarity a rule with
	// RequireAmountMatch needs to fire.
	PatternAmountThreshold float64
}

func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		AmountTolerance:        0.01,
		PatternAmountThreshold: 0.98,
	}
}

// Extractor computes feature vectors. It holds no mutable state.
type Extractor struct {
	config ExtractorConfig
	rules  *RuleIndex
}

func NewExtractor(config ExtractorConfig, rules *RuleIndex) *Extractor {
	return &Extractor{config: config, rules: rules}
}

func (e *Extractor) Extract(tx *models.BankTransaction, doc *models.Document) FeatureVector {
	fv := FeatureVector{
		AmountSimilarity: AmountSimilarity(tx, doc),
		DateDiffDays:     DateDiffDays(tx, doc),
		VendorSimilarity: VendorSimilarity(tx, doc),
	}

	if doc.InvoiceNumber != "" &&
		(containsToken(tx.Note, doc.InvoiceNumber) || containsToken(tx.Reference, doc.InvoiceNumber)) {
		fv.InvoiceNumberMatch = 1
	}

	if doc.Skonto.Valid && doc.Skonto.Decimal.IsPositive() {
		fv.SkontoApplicable = true
		if skontoMatches(tx, doc, e.config.AmountTolerance) {
			fv.SkontoMatch = 1
		}
	}

	if e.rules.Applies(tx) {
		fv.PatternApplicable = true
		if e.rules.Match(tx, fv.AmountSimilarity, e.config.PatternAmountThreshold) {
			fv.PatternMatch = 1
		}
	}

	return fv
}

// AmountSimilarity compares the absolute gross amount with the document
// total (subtotal when no total exists), normalized to [0,1].
func AmountSimilarity(tx *models.BankTransaction, doc *models.Document) float64 {
	docAmount, ok := doc.ComparableAmount()
	if !ok {
		return 0
	}

	a := tx.Gross.Abs()
	b := docAmount.Abs()
	if a.Equal(b) {
		return 1
	}

	denom := decimal.Max(a, b, decimal.New(1, -6))
	ratio := a.Sub(b).Abs().Div(denom).InexactFloat64()
	return 1 - math.Min(1, ratio)
}

// DateDiffDays is the absolute number of calendar days between booking and
// invoice date, or NoDateDiff when the document has no date.
func DateDiffDays(tx *models.BankTransaction, doc *models.Document) int {
	invoiceDate, ok := doc.EffectiveInvoiceDate()
	if !ok || tx.BookedAt.IsZero() {
		return NoDateDiff
	}

	days := calendarDay(tx.BookedAt).Sub(calendarDay(invoiceDate)).Hours() / 24
	return int(math.Abs(math.Round(days)))
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// VendorSimilarity compares the vendor name with the counterparty, or the
// sender/receiver when no counterparty is set.
func VendorSimilarity(tx *models.BankTransaction, doc *models.Document) float64 {
	name := tx.Counterparty
	if normalizeName(name) == "" {
		name = tx.SenderReceiver
	}
	return nameSimilarity(doc.VendorName, name)
}

func nameSimilarity(vendor, name string) float64 {
	v := normalizeName(vendor)
	n := normalizeName(name)
	if v == "" || n == "" {
		return 0
	}
	if v == n {
		return 1
	}

	whole := levenshtein.RatioForStrings([]rune(v), []rune(n), levenshtein.DefaultOptions)
	return clamp01(math.Max(whole, tokenSimilarity(v, n)))
}

// tokenSimilarity averages, over the vendor tokens, the best ratio against
// any token of the other name.
func tokenSimilarity(vendor, name string) float64 {
	vTokens := strings.Fields(vendor)
	nTokens := strings.Fields(name)
	if len(vTokens) == 0 || len(nTokens) == 0 {
		return 0
	}

	total := 0.0
	for _, vt := range vTokens {
		best := 0.0
		for _, nt := range nTokens {
			r := levenshtein.RatioForStrings([]rune(vt), []rune(nt), levenshtein.DefaultOptions)
			if r > best {
				best = r
			}
		}
		total += best
	}
	return total / float64(len(vTokens))
}

func skontoMatches(tx *models.BankTransaction, doc *models.Document, tolerance float64) bool {
	total, ok := doc.ComparableAmount()
	if !ok {
		return false
	}
	discounted := total.Abs().Sub(doc.Skonto.Decimal)
	diff := discounted.Sub(tx.Gross.Abs()).Abs()
	return diff.LessThanOrEqual(decimal.NewFromFloat(tolerance))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
