// Package matching ranks documents against a bank transaction.
//
// Ranking runs in three steps:
//   - the Extractor computes a FeatureVector per (transaction, document) pair
//   - a Scorer folds the vector into one composite score in [0,1]
//   - the Selector drops candidates under the score floor and orders the rest
//
// All three are free of side effects and safe for concurrent use once built.
package matching

import (
	"bytes"
	"sort"

	"document-reconciliation-backend/internal/models"
)

// Candidate is one ranked document for a transaction.
type Candidate struct {
	Document  models.Document
	Score     float64
	Breakdown Breakdown
}

type Selector struct {
	extractor *Extractor
	scorer    Scorer
	minScore  float64
}

func NewSelector(extractor *Extractor, scorer Scorer, minScore float64) *Selector {
	return &Selector{extractor: extractor, scorer: scorer, minScore: minScore}
}

func (s *Selector) MinScore() float64 {
	return s.minScore
}

// Rank scores every parsed document of the pool against tx and returns the
// ones reaching the score floor, best first. An empty result means no
// acceptable candidate.
func (s *Selector) Rank(tx *models.BankTransaction, pool []models.Document) []Candidate {
	candidates := make([]Candidate, 0, len(pool))
	for i := range pool {
		doc := &pool[i]
		if !doc.Parsed {
			continue
		}

		b := s.explain(s.extractor.Extract(tx, doc))
		if b.Composite < s.minScore {
			continue
		}
		candidates = append(candidates, Candidate{Document: *doc, Score: b.Composite, Breakdown: b})
	}

	SortCandidates(candidates)
	return candidates
}

func (s *Selector) explain(fv FeatureVector) Breakdown {
	if e, ok := s.scorer.(Explainer); ok {
		return e.Explain(fv)
	}
	return Breakdown{Features: fv, Composite: clamp01(s.scorer.Score(fv))}
}

// SortCandidates orders by score descending, then date difference
// ascending, then document id ascending.
func SortCandidates(c []Candidate) {
	sort.SliceStable(c, func(i, j int) bool {
		return CandidateLess(c[i], c[j])
	})
}

func CandidateLess(a, b Candidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Breakdown.Features.DateDiffDays != b.Breakdown.Features.DateDiffDays {
		return a.Breakdown.Features.DateDiffDays < b.Breakdown.Features.DateDiffDays
	}
	return bytes.Compare(a.Document.ID[:], b.Document.ID[:]) < 0
}
