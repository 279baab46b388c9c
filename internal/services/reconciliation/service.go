package reconciliation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"document-reconciliation-backend/internal/config"
	"document-reconciliation-backend/internal/models"
	"document-reconciliation-backend/internal/repository"
	"document-reconciliation-backend/internal/services/matching"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

type Service struct {
	store  repository.Store
	config config.MatchingConfig
	scorer matching.Scorer
	log    zerolog.Logger
	now    func() time.Time

	// commitMu is the critical section of the commit walk; it also keeps
	// two passes in this process from interleaving their claims.
	commitMu sync.Mutex
}

type Option func(*Service)

// WithScorer replaces the weighted scorer, e.g. with a learned model.
func WithScorer(scorer matching.Scorer) Option {
	return func(s *Service) { s.scorer = scorer }
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store repository.Store, cfg config.MatchingConfig, opts ...Option) (*Service, error) {
	s := &Service{
		store:  store,
		config: cfg,
		log:    zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.scorer == nil {
		scorer, err := matching.NewWeightedScorer(cfg.Weights, cfg.DateCutoffDays)
		if err != nil {
			return nil, fmt.Errorf("build scorer: %w", err)
		}
		s.scorer = scorer
	}
	if s.config.Workers <= 0 {
		s.config.Workers = 1
	}
	return s, nil
}

// snapshot is everything a pass reads, loaded once up front.
type snapshot struct {
	transactions []models.BankTransaction
	pool         []models.Document
	rules        *matching.RuleIndex
	pairs        map[[2]uuid.UUID]bool

	// claimed documents already carry an automatic attachment. They are
	// ranked like any other document but count as consumed from the start
	// of the pass.
	claimed map[uuid.UUID]bool
}

type pairing struct {
	txIndex   int
	candidate matching.Candidate
}

// RunAutomaticAssignment matches every transaction in scope that has no
// automatic attachment yet. The top candidates of all transactions are
// sorted globally and committed greedily; a document is claimed by at most
// one transaction, and one already attached automatically is not claimed
// again unless the scope allows it.
func (s *Service) RunAutomaticAssignment(ctx context.Context, scope Scope) (*AssignmentResult, error) {
	if err := validateScope(scope); err != nil {
		return nil, err
	}

	run := &models.AssignmentRun{
		ID:          uuid.New(),
		PeriodYear:  scope.Period.Year,
		PeriodMonth: scope.Period.Month,
		AccountID:   scope.AccountID,
		Status:      models.RunStatusProcessing,
		StartedAt:   s.now(),
		CreatedAt:   s.now(),
	}
	if err := s.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create assignment run: %w", err)
	}

	log := s.log.With().Str("run_id", run.ID.String()).Logger()
	log.Info().
		Int("year", scope.Period.Year).
		Int("month", scope.Period.Month).
		Msg("automatic assignment started")

	includeAuto := s.config.IncludeAutoAttached
	if scope.IncludeAutoAttached != nil {
		includeAuto = *scope.IncludeAutoAttached
	}

	snap, err := s.loadSnapshot(ctx, scope, includeAuto)
	if err != nil {
		s.failRun(ctx, run, err)
		return nil, err
	}
	run.TotalTransactions = len(snap.transactions)

	ranked, err := s.rankAll(ctx, snap)
	if err != nil {
		s.failRun(ctx, run, err)
		return nil, err
	}

	outcomes := s.commit(ctx, log, run.ID, snap, ranked, !includeAuto)

	result := &AssignmentResult{RunID: run.ID, Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Matched() {
			result.MatchedCount++
		} else {
			result.UnmatchedCount++
		}
	}

	completed := s.now()
	run.MatchedCount = result.MatchedCount
	run.UnmatchedCount = result.UnmatchedCount
	run.Status = models.RunStatusCompleted
	run.CompletedAt = &completed
	if data, err := json.Marshal(outcomes); err == nil {
		run.Outcomes = datatypes.JSON(data)
	}
	if err := s.store.SaveRun(ctx, run); err != nil {
		log.Error().Err(err).Msg("failed to save assignment run")
	}

	log.Info().
		Int("transactions", len(snap.transactions)).
		Int("documents", len(snap.pool)).
		Int("matched", result.MatchedCount).
		Int("unmatched", result.UnmatchedCount).
		Msg("automatic assignment completed")

	return result, nil
}

func validateScope(scope Scope) error {
	if scope.Period.Month < 0 || scope.Period.Month > 12 {
		return &ValidationError{Field: "month", Message: "must be between 1 and 12, or 0 for the whole year"}
	}
	if scope.Period.Year < 0 {
		return &ValidationError{Field: "year", Message: "must not be negative"}
	}
	if scope.Period.Month != 0 && scope.Period.Year == 0 {
		return &ValidationError{Field: "year", Message: "required when a month is given"}
	}
	if scope.AccountID != nil && *scope.AccountID == uuid.Nil {
		return &ValidationError{Field: "account_id", Message: "must not be the nil uuid"}
	}
	return nil
}

func (s *Service) loadSnapshot(ctx context.Context, scope Scope, includeAuto bool) (*snapshot, error) {
	txs, err := s.store.ListTransactions(ctx, scope.Period, scope.AccountID)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	docs, err := s.store.ListDocuments(ctx, repository.DocumentFilter{ParsedOnly: true})
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	rules, err := s.store.ListPatternRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pattern rules: %w", err)
	}

	snap := &snapshot{
		rules:   matching.NewRuleIndex(rules),
		pairs:   make(map[[2]uuid.UUID]bool),
		claimed: make(map[uuid.UUID]bool),
	}
	if len(txs) == 0 {
		return snap, nil
	}

	txIDs := make([]uuid.UUID, len(txs))
	for i := range txs {
		txIDs[i] = txs[i].ID
	}
	existing, err := s.store.ListAttachments(ctx, repository.AttachmentFilter{TransactionIDs: txIDs})
	if err != nil {
		return nil, fmt.Errorf("load transaction attachments: %w", err)
	}

	autoTx := make(map[uuid.UUID]bool)
	for _, a := range existing {
		snap.pairs[[2]uuid.UUID{a.TransactionID, a.DocumentID}] = true
		if a.Automatic {
			autoTx[a.TransactionID] = true
		}
	}
	for _, tx := range txs {
		if !autoTx[tx.ID] {
			snap.transactions = append(snap.transactions, tx)
		}
	}

	if !includeAuto && len(docs) > 0 {
		docIDs := make([]uuid.UUID, len(docs))
		for i := range docs {
			docIDs[i] = docs[i].ID
		}
		claimed, err := s.store.ListAttachments(ctx, repository.AttachmentFilter{DocumentIDs: docIDs, AutomaticOnly: true})
		if err != nil {
			return nil, fmt.Errorf("load document attachments: %w", err)
		}
		for _, a := range claimed {
			snap.claimed[a.DocumentID] = true
		}
	}
	for _, doc := range docs {
		if doc.Parsed {
			snap.pool = append(snap.pool, doc)
		}
	}

	return snap, nil
}

func (s *Service) selector(rules *matching.RuleIndex) *matching.Selector {
	extractor := matching.NewExtractor(matching.ExtractorConfig{
		AmountTolerance:        s.config.AmountTolerance,
		PatternAmountThreshold: s.config.PatternAmountThreshold,
	}, rules)
	return matching.NewSelector(extractor, s.scorer, s.config.MinScore)
}

// rankAll ranks every transaction of the snapshot concurrently. Pairs that
// are already in the ledger are dropped.
func (s *Service) rankAll(ctx context.Context, snap *snapshot) ([][]matching.Candidate, error) {
	sel := s.selector(snap.rules)
	ranked := make([][]matching.Candidate, len(snap.transactions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)
	for i := range snap.transactions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tx := &snap.transactions[i]
			candidates := sel.Rank(tx, snap.pool)

			kept := candidates[:0]
			for _, c := range candidates {
				if !snap.pairs[[2]uuid.UUID{tx.ID, c.Document.ID}] {
					kept = append(kept, c)
				}
			}
			ranked[i] = kept
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("rank candidates: %w", err)
	}
	return ranked, nil
}

func (s *Service) commit(
	ctx context.Context,
	log zerolog.Logger,
	runID uuid.UUID,
	snap *snapshot,
	ranked [][]matching.Candidate,
	exclusive bool,
) []Outcome {
	threshold := s.config.AutoAttachThreshold

	// Only each transaction's top candidate competes. A transaction whose
	// top document goes to a better pairing stays unmatched for this pass.
	var pairings []pairing
	for i, candidates := range ranked {
		if len(candidates) > 0 && candidates[0].Score >= threshold {
			pairings = append(pairings, pairing{txIndex: i, candidate: candidates[0]})
		}
	}
	sort.SliceStable(pairings, func(i, j int) bool {
		a, b := pairings[i], pairings[j]
		if matching.CandidateLess(a.candidate, b.candidate) {
			return true
		}
		if matching.CandidateLess(b.candidate, a.candidate) {
			return false
		}
		ta, tb := snap.transactions[a.txIndex].ID, snap.transactions[b.txIndex].ID
		return bytes.Compare(ta[:], tb[:]) < 0
	})

	outcomes := make([]Outcome, len(snap.transactions))
	decided := make([]bool, len(snap.transactions))
	consumedDoc := make(map[uuid.UUID]bool, len(snap.claimed))
	for id := range snap.claimed {
		consumedDoc[id] = true
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	for _, p := range pairings {
		tx := &snap.transactions[p.txIndex]
		doc := &p.candidate.Document
		if decided[p.txIndex] || consumedDoc[doc.ID] {
			continue
		}

		breakdown := p.candidate.Breakdown
		score := p.candidate.Score
		attachment := &models.Attachment{
			TransactionID: tx.ID,
			DocumentID:    doc.ID,
			AttachedAt:    s.now().UTC(),
			Automatic:     true,
			RunID:         &runID,
			Score:         &score,
		}
		if data, err := json.Marshal(breakdown); err == nil {
			attachment.MatchDetails = datatypes.JSON(data)
		}

		err := s.store.ClaimAutomatic(ctx, attachment, exclusive)
		switch {
		case err == nil:
			consumedDoc[doc.ID] = true
			decided[p.txIndex] = true
			docID, attID := doc.ID, attachment.ID
			outcomes[p.txIndex] = Outcome{
				TransactionID: tx.ID,
				Status:        OutcomeMatched,
				DocumentID:    &docID,
				AttachmentID:  &attID,
				Score:         score,
				Breakdown:     &breakdown,
			}
			s.audit(ctx, attachment, models.AuditActionAttach, "", fmt.Sprintf("automatic match, score %.4f", score))

		case errors.Is(err, repository.ErrDuplicatePair), errors.Is(err, repository.ErrDocumentClaimed):
			consumedDoc[doc.ID] = true

		case errors.Is(err, repository.ErrTransactionClaimed):
			decided[p.txIndex] = true
			outcomes[p.txIndex] = Outcome{TransactionID: tx.ID, Status: OutcomeAlreadyMatched, Reason: ReasonAlreadyMatched}

		default:
			log.Error().Err(err).
				Str("transaction_id", tx.ID.String()).
				Str("document_id", doc.ID.String()).
				Msg("failed to commit attachment")
			decided[p.txIndex] = true
			outcomes[p.txIndex] = Outcome{TransactionID: tx.ID, Status: OutcomeCommitFailed, Reason: err.Error()}
		}
	}

	for i := range snap.transactions {
		if decided[i] {
			continue
		}
		outcomes[i] = unmatchedOutcome(snap.transactions[i].ID, ranked[i], threshold)
	}
	return outcomes
}

func unmatchedOutcome(txID uuid.UUID, candidates []matching.Candidate, threshold float64) Outcome {
	switch {
	case len(candidates) == 0:
		return Outcome{TransactionID: txID, Status: OutcomeNoCandidates, Reason: ReasonNoCandidates}
	case candidates[0].Score < threshold:
		return Outcome{TransactionID: txID, Status: OutcomeBelowThreshold, Reason: ReasonBelowThreshold, Score: candidates[0].Score}
	default:
		return Outcome{TransactionID: txID, Status: OutcomeDocumentConsumed, Reason: ReasonDocumentConsumed, Score: candidates[0].Score}
	}
}

func (s *Service) failRun(ctx context.Context, run *models.AssignmentRun, cause error) {
	completed := s.now()
	run.Status = models.RunStatusFailed
	run.Error = cause.Error()
	run.CompletedAt = &completed
	if err := s.store.SaveRun(ctx, run); err != nil {
		s.log.Error().Err(err).Str("run_id", run.ID.String()).Msg("failed to save failed assignment run")
	}
	s.log.Error().Err(cause).Str("run_id", run.ID.String()).Msg("automatic assignment failed")
}

func (s *Service) audit(ctx context.Context, a *models.Attachment, action, actor, reason string) {
	if actor == "" {
		actor = "system"
	}
	entry := &models.AttachmentAuditLog{
		ID:            uuid.New(),
		AttachmentID:  a.ID,
		TransactionID: a.TransactionID,
		DocumentID:    a.DocumentID,
		Action:        action,
		Automatic:     a.Automatic,
		PerformedBy:   actor,
		Reason:        reason,
		CreatedAt:     s.now(),
	}
	if err := s.store.AppendAudit(ctx, entry); err != nil {
		s.log.Warn().Err(err).Str("attachment_id", a.ID.String()).Msg("failed to write audit log")
	}
}

// ScoreCandidates ranks the eligible documents for one transaction without
// writing anything.
func (s *Service) ScoreCandidates(ctx context.Context, transactionID uuid.UUID) ([]RankedCandidate, error) {
	if transactionID == uuid.Nil {
		return nil, &ValidationError{Field: "transaction_id", Message: "required"}
	}
	tx, err := s.getTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	docs, err := s.store.ListDocuments(ctx, repository.DocumentFilter{ParsedOnly: true})
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	rules, err := s.store.ListPatternRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pattern rules: %w", err)
	}
	own, err := s.store.ListByTransaction(ctx, tx.ID)
	if err != nil {
		return nil, fmt.Errorf("load attachments: %w", err)
	}

	exclude := make(map[uuid.UUID]bool)
	for _, a := range own {
		exclude[a.DocumentID] = true
	}
	if !s.config.IncludeAutoAttached && len(docs) > 0 {
		docIDs := make([]uuid.UUID, len(docs))
		for i := range docs {
			docIDs[i] = docs[i].ID
		}
		claimed, err := s.store.ListAttachments(ctx, repository.AttachmentFilter{DocumentIDs: docIDs, AutomaticOnly: true})
		if err != nil {
			return nil, fmt.Errorf("load document attachments: %w", err)
		}
		for _, a := range claimed {
			exclude[a.DocumentID] = true
		}
	}

	pool := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		if !exclude[d.ID] {
			pool = append(pool, d)
		}
	}

	candidates := s.selector(matching.NewRuleIndex(rules)).Rank(tx, pool)
	result := make([]RankedCandidate, len(candidates))
	for i, c := range candidates {
		result[i] = RankedCandidate{
			DocumentID:     c.Document.ID,
			DocumentName:   c.Document.Name,
			VendorName:     c.Document.VendorName,
			InvoiceNumber:  c.Document.InvoiceNumber,
			CompositeScore: c.Score,
			Breakdown:      c.Breakdown,
		}
	}
	return result, nil
}

// AttachManually links a document to a transaction on behalf of a user.
// It bypasses ranking and automatic-assignment state; only the ledger's
// pair uniqueness applies.
func (s *Service) AttachManually(ctx context.Context, transactionID, documentID uuid.UUID, actorID *string) (*models.Attachment, error) {
	if transactionID == uuid.Nil {
		return nil, &ValidationError{Field: "transaction_id", Message: "required"}
	}
	if documentID == uuid.Nil {
		return nil, &ValidationError{Field: "document_id", Message: "required"}
	}
	if _, err := s.getTransaction(ctx, transactionID); err != nil {
		return nil, err
	}
	if _, err := s.getDocument(ctx, documentID); err != nil {
		return nil, err
	}

	a := &models.Attachment{
		ID:            uuid.New(),
		TransactionID: transactionID,
		DocumentID:    documentID,
		AttachedAt:    s.now().UTC(),
		ActorID:       actorID,
		Automatic:     false,
	}
	if err := s.store.Insert(ctx, a); err != nil {
		return nil, fmt.Errorf("attach document %s to transaction %s: %w", documentID, transactionID, err)
	}

	actor := ""
	if actorID != nil {
		actor = *actorID
	}
	s.audit(ctx, a, models.AuditActionAttach, actor, "manual attachment")
	return a, nil
}

// Detach deletes one ledger row.
func (s *Service) Detach(ctx context.Context, attachmentID uuid.UUID, actorID *string) (*models.Attachment, error) {
	if attachmentID == uuid.Nil {
		return nil, &ValidationError{Field: "attachment_id", Message: "required"}
	}
	a, err := s.store.Delete(ctx, attachmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Entity: "attachment", ID: attachmentID}
		}
		return nil, fmt.Errorf("delete attachment %s: %w", attachmentID, err)
	}

	actor := ""
	if actorID != nil {
		actor = *actorID
	}
	s.audit(ctx, a, models.AuditActionDetach, actor, "detached")
	return a, nil
}

func (s *Service) ListAttachments(ctx context.Context, transactionID uuid.UUID) ([]models.Attachment, error) {
	if _, err := s.getTransaction(ctx, transactionID); err != nil {
		return nil, err
	}
	return s.store.ListByTransaction(ctx, transactionID)
}

// CheckAmountConsistency compares the gross amount with the sum of the
// attached documents' totals.
func (s *Service) CheckAmountConsistency(ctx context.Context, transactionID uuid.UUID) (*AmountCheck, error) {
	tx, err := s.getTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	attachments, err := s.store.ListByTransaction(ctx, tx.ID)
	if err != nil {
		return nil, fmt.Errorf("load attachments: %w", err)
	}

	sum := decimal.Zero
	for _, a := range attachments {
		doc, err := s.store.GetDocument(ctx, a.DocumentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("load document %s: %w", a.DocumentID, err)
		}
		if amount, ok := doc.ComparableAmount(); ok {
			sum = sum.Add(amount.Abs())
		}
	}

	gross := tx.Gross.Abs()
	diff := gross.Sub(sum)
	check := &AmountCheck{
		TransactionID:   tx.ID,
		Gross:           gross,
		DocumentsTotal:  sum,
		Difference:      diff,
		AttachmentCount: len(attachments),
	}
	if len(attachments) > 0 {
		check.Mismatch = diff.Abs().GreaterThan(decimal.NewFromFloat(s.config.AmountTolerance))
	}
	return check, nil
}

func (s *Service) GetRun(ctx context.Context, runID uuid.UUID) (*models.AssignmentRun, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Entity: "assignment run", ID: runID}
		}
		return nil, err
	}
	return run, nil
}

func (s *Service) ListPatternRules(ctx context.Context) ([]models.PatternRule, error) {
	return s.store.ListPatternRules(ctx)
}

func (s *Service) CreatePatternRule(ctx context.Context, rule *models.PatternRule) error {
	if rule.Receiver == "" {
		return &ValidationError{Field: "receiver", Message: "required"}
	}
	return s.store.CreatePatternRule(ctx, rule)
}

func (s *Service) SearchDocuments(ctx context.Context, query string, limit int) ([]models.Document, error) {
	return s.store.SearchDocuments(ctx, query, limit)
}

func (s *Service) getTransaction(ctx context.Context, id uuid.UUID) (*models.BankTransaction, error) {
	tx, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Entity: "transaction", ID: id}
		}
		return nil, fmt.Errorf("load transaction %s: %w", id, err)
	}
	return tx, nil
}

func (s *Service) getDocument(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Entity: "document", ID: id}
		}
		return nil, fmt.Errorf("load document %s: %w", id, err)
	}
	return doc, nil
}
