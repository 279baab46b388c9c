package repository

import (
	"context"
	"errors"
	"time"

	"document-reconciliation-backend/internal/models"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrDuplicatePair is returned when the (transaction, document) pair is already in the ledger.
	ErrDuplicatePair = errors.New("transaction and document are already attached")
	// ErrDocumentClaimed is returned by ClaimAutomatic when another automatic
	// attachment already owns the document.
	ErrDocumentClaimed = errors.New("document already carries an automatic attachment")
	// ErrTransactionClaimed is returned by ClaimAutomatic when the transaction
	// was matched automatically in the meantime.
	ErrTransactionClaimed = errors.New("transaction already carries an automatic attachment")
)

// PeriodFilter selects transactions by booking date. Month 0 selects the
// whole year, Year 0 disables the filter.
type PeriodFilter struct {
	Year  int
	Month int
}

// Bounds returns the half-open interval [from, to) covered by the filter.
func (p PeriodFilter) Bounds() (time.Time, time.Time, bool) {
	if p.Year == 0 {
		return time.Time{}, time.Time{}, false
	}
	if p.Month == 0 {
		from := time.Date(p.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(1, 0, 0), true
	}
	from := time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0), true
}

func (p PeriodFilter) Contains(t time.Time) bool {
	from, to, ok := p.Bounds()
	if !ok {
		return true
	}
	t = t.UTC()
	return !t.Before(from) && t.Before(to)
}

type DocumentFilter struct {
	ParsedOnly   bool
	OrphanedOnly bool
}

type AttachmentFilter struct {
	TransactionIDs []uuid.UUID
	DocumentIDs    []uuid.UUID
	AutomaticOnly  bool
}

type TransactionStore interface {
	// ListTransactions returns transactions ordered by booking date, then id.
	ListTransactions(ctx context.Context, period PeriodFilter, accountID *uuid.UUID) ([]models.BankTransaction, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*models.BankTransaction, error)
}

type DocumentStore interface {
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]models.Document, error)
	GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error)
	SearchDocuments(ctx context.Context, query string, limit int) ([]models.Document, error)
}

type PatternRuleStore interface {
	ListPatternRules(ctx context.Context) ([]models.PatternRule, error)
	CreatePatternRule(ctx context.Context, rule *models.PatternRule) error
}

// AttachmentStore is the attachment ledger. The (transaction, document)
// uniqueness check inside Insert and ClaimAutomatic is the only
// serialization point shared by manual and automatic attachment.
type AttachmentStore interface {
	ListAttachments(ctx context.Context, filter AttachmentFilter) ([]models.Attachment, error)
	ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.Attachment, error)
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]models.Attachment, error)
	GetAttachment(ctx context.Context, id uuid.UUID) (*models.Attachment, error)

	// Insert appends a row, failing with ErrDuplicatePair if the pair exists.
	Insert(ctx context.Context, a *models.Attachment) error

	// ClaimAutomatic inserts an automatic row only if neither the document
	// (when exclusive) nor the transaction already has an automatic
	// attachment. Check and insert are atomic.
	ClaimAutomatic(ctx context.Context, a *models.Attachment, exclusive bool) error

	// Delete removes a row and returns it.
	Delete(ctx context.Context, id uuid.UUID) (*models.Attachment, error)
}

type RunStore interface {
	CreateRun(ctx context.Context, run *models.AssignmentRun) error
	SaveRun(ctx context.Context, run *models.AssignmentRun) error
	GetRun(ctx context.Context, id uuid.UUID) (*models.AssignmentRun, error)
}

type AuditStore interface {
	AppendAudit(ctx context.Context, entry *models.AttachmentAuditLog) error
	ListAudit(ctx context.Context, transactionID uuid.UUID) ([]models.AttachmentAuditLog, error)
}

// Store bundles every collaborator the reconciliation service reads or writes.
type Store interface {
	TransactionStore
	DocumentStore
	PatternRuleStore
	AttachmentStore
	RunStore
	AuditStore
}
