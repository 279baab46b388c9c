package reconciliation

import (
	"document-reconciliation-backend/internal/repository"
	"document-reconciliation-backend/internal/services/matching"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Scope bounds one assignment pass.
type Scope struct {
	Period    repository.PeriodFilter
	AccountID *uuid.UUID
	// IncludeAutoAttached overrides the configured eligibility of documents
	// that already carry an automatic attachment.
	IncludeAutoAttached *bool
}

type OutcomeStatus string

const (
	OutcomeMatched          OutcomeStatus = "matched"
	OutcomeNoCandidates     OutcomeStatus = "no_candidates"
	OutcomeBelowThreshold   OutcomeStatus = "below_threshold"
	OutcomeDocumentConsumed OutcomeStatus = "document_consumed"
	OutcomeAlreadyMatched   OutcomeStatus = "already_matched"
	OutcomeCommitFailed     OutcomeStatus = "commit_failed"
)

const (
	ReasonNoCandidates     = "no candidates"
	ReasonBelowThreshold   = "below threshold"
	ReasonDocumentConsumed = "document already consumed this pass"
	ReasonAlreadyMatched   = "transaction matched by a concurrent pass"
)

// Outcome is the result of a pass for one transaction.
type Outcome struct {
	TransactionID uuid.UUID           `json:"transaction_id"`
	Status        OutcomeStatus       `json:"status"`
	Reason        string              `json:"reason,omitempty"`
	DocumentID    *uuid.UUID          `json:"document_id,omitempty"`
	AttachmentID  *uuid.UUID          `json:"attachment_id,omitempty"`
	Score         float64             `json:"score,omitempty"`
	Breakdown     *matching.Breakdown `json:"breakdown,omitempty"`
}

func (o Outcome) Matched() bool {
	return o.Status == OutcomeMatched
}

type AssignmentResult struct {
	RunID          uuid.UUID `json:"run_id"`
	MatchedCount   int       `json:"matched_count"`
	UnmatchedCount int       `json:"unmatched_count"`
	Outcomes       []Outcome `json:"outcomes"`
}

// RankedCandidate is the read-only "why this match" view of a candidate.
type RankedCandidate struct {
	DocumentID     uuid.UUID          `json:"document_id"`
	DocumentName   string             `json:"document_name"`
	VendorName     string             `json:"vendor_name,omitempty"`
	InvoiceNumber  string             `json:"invoice_number,omitempty"`
	CompositeScore float64            `json:"composite_score"`
	Breakdown      matching.Breakdown `json:"feature_breakdown"`
}

// AmountCheck compares a transaction's gross amount with the documents
// attached to it. It is advisory and never blocks assignment.
type AmountCheck struct {
	TransactionID   uuid.UUID       `json:"transaction_id"`
	Gross           decimal.Decimal `json:"gross"`
	DocumentsTotal  decimal.Decimal `json:"documents_total"`
	Difference      decimal.Decimal `json:"difference"`
	AttachmentCount int             `json:"attachment_count"`
	Mismatch        bool            `json:"mismatch"`
}
