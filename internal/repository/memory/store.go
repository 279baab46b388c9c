// Package memory is an in-memory implementation of repository.Store.
// It is safe for concurrent use; data is lost when the process exits.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"document-reconciliation-backend/internal/models"
	"document-reconciliation-backend/internal/repository"

	"github.com/google/uuid"
)

type Store struct {
	mu           sync.RWMutex
	transactions map[uuid.UUID]models.BankTransaction
	documents    map[uuid.UUID]models.Document
	rules        []models.PatternRule
	attachments  map[uuid.UUID]models.Attachment
	runs         map[uuid.UUID]models.AssignmentRun
	audit        []models.AttachmentAuditLog

	// insertErr, when set, makes the next ledger write for that document fail.
	insertErr map[uuid.UUID]error
}

func NewStore() *Store {
	return &Store{
		transactions: make(map[uuid.UUID]models.BankTransaction),
		documents:    make(map[uuid.UUID]models.Document),
		attachments:  make(map[uuid.UUID]models.Attachment),
		runs:         make(map[uuid.UUID]models.AssignmentRun),
		insertErr:    make(map[uuid.UUID]error),
	}
}

func (s *Store) AddTransaction(tx models.BankTransaction) models.BankTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	s.transactions[tx.ID] = tx
	return tx
}

func (s *Store) AddDocument(doc models.Document) models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	s.documents[doc.ID] = doc
	return doc
}

// FailNextInsert makes the next attachment write for documentID return err.
func (s *Store) FailNextInsert(documentID uuid.UUID, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertErr[documentID] = err
}

func (s *Store) ListTransactions(ctx context.Context, period repository.PeriodFilter, accountID *uuid.UUID) ([]models.BankTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.BankTransaction
	for _, tx := range s.transactions {
		if !period.Contains(tx.BookedAt) {
			continue
		}
		if accountID != nil && tx.AccountID != *accountID {
			continue
		}
		result = append(result, tx)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].BookedAt.Equal(result[j].BookedAt) {
			return result[i].BookedAt.Before(result[j].BookedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*models.BankTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &tx, nil
}

func (s *Store) ListDocuments(ctx context.Context, filter repository.DocumentFilter) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Document
	for _, doc := range s.documents {
		if filter.ParsedOnly && !doc.Parsed {
			continue
		}
		if filter.OrphanedOnly && !doc.Orphaned {
			continue
		}
		result = append(result, doc)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}

func (s *Store) GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &doc, nil
}

func (s *Store) ListPatternRules(ctx context.Context) ([]models.PatternRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]models.PatternRule(nil), s.rules...), nil
}

func (s *Store) CreatePatternRule(ctx context.Context, rule *models.PatternRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now()
	}
	s.rules = append(s.rules, *rule)
	return nil
}

func (s *Store) ListAttachments(ctx context.Context, filter repository.AttachmentFilter) ([]models.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txIDs := toSet(filter.TransactionIDs)
	docIDs := toSet(filter.DocumentIDs)

	var result []models.Attachment
	for _, a := range s.attachments {
		if len(txIDs) > 0 && !txIDs[a.TransactionID] {
			continue
		}
		if len(docIDs) > 0 && !docIDs[a.DocumentID] {
			continue
		}
		if filter.AutomaticOnly && !a.Automatic {
			continue
		}
		result = append(result, a)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].AttachedAt.Equal(result[j].AttachedAt) {
			return result[i].AttachedAt.Before(result[j].AttachedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}

func (s *Store) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.Attachment, error) {
	return s.ListAttachments(ctx, repository.AttachmentFilter{TransactionIDs: []uuid.UUID{transactionID}})
}

func (s *Store) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]models.Attachment, error) {
	return s.ListAttachments(ctx, repository.AttachmentFilter{DocumentIDs: []uuid.UUID{documentID}})
}

func (s *Store) GetAttachment(ctx context.Context, id uuid.UUID) (*models.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.attachments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (s *Store) Insert(ctx context.Context, a *models.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertLocked(a)
}

func (s *Store) ClaimAutomatic(ctx context.Context, a *models.Attachment, exclusive bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.Automatic = true
	if exclusive {
		for _, existing := range s.attachments {
			if existing.Automatic && existing.DocumentID == a.DocumentID {
				return repository.ErrDocumentClaimed
			}
		}
	}
	for _, existing := range s.attachments {
		if existing.Automatic && existing.TransactionID == a.TransactionID {
			return repository.ErrTransactionClaimed
		}
	}
	return s.insertLocked(a)
}

func (s *Store) insertLocked(a *models.Attachment) error {
	if err, ok := s.insertErr[a.DocumentID]; ok {
		delete(s.insertErr, a.DocumentID)
		return err
	}
	for _, existing := range s.attachments {
		if existing.TransactionID == a.TransactionID && existing.DocumentID == a.DocumentID {
			return repository.ErrDuplicatePair
		}
	}

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.AttachedAt.IsZero() {
		a.AttachedAt = time.Now().UTC()
	}
	s.attachments[a.ID] = *a

	if doc, ok := s.documents[a.DocumentID]; ok {
		doc.Orphaned = false
		s.documents[a.DocumentID] = doc
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) (*models.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.attachments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(s.attachments, id)

	for _, other := range s.attachments {
		if other.DocumentID == a.DocumentID {
			return &a, nil
		}
	}
	if doc, ok := s.documents[a.DocumentID]; ok {
		doc.Orphaned = true
		s.documents[a.DocumentID] = doc
	}
	return &a, nil
}

func (s *Store) CreateRun(ctx context.Context, run *models.AssignmentRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	s.runs[run.ID] = *run
	return nil
}

func (s *Store) SaveRun(ctx context.Context, run *models.AssignmentRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = *run
	return nil
}

func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*models.AssignmentRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &run, nil
}

func (s *Store) AppendAudit(ctx context.Context, entry *models.AttachmentAuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	s.audit = append(s.audit, *entry)
	return nil
}

func (s *Store) ListAudit(ctx context.Context, transactionID uuid.UUID) ([]models.AttachmentAuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.AttachmentAuditLog
	for _, e := range s.audit {
		if e.TransactionID == transactionID {
			result = append(result, e)
		}
	}
	return result, nil
}

// SearchDocuments matches vendor, invoice number or name case-insensitively.
func (s *Store) SearchDocuments(ctx context.Context, query string, limit int) ([]models.Document, error) {
	docs, _ := s.ListDocuments(ctx, repository.DocumentFilter{})
	q := strings.ToLower(query)

	var result []models.Document
	for _, d := range docs {
		if q != "" &&
			!strings.Contains(strings.ToLower(d.VendorName), q) &&
			!strings.Contains(strings.ToLower(d.InvoiceNumber), q) &&
			!strings.Contains(strings.ToLower(d.Name), q) {
			continue
		}
		result = append(result, d)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func toSet(ids []uuid.UUID) map[uuid.UUID]bool {
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

var _ repository.Store = (*Store)(nil)
