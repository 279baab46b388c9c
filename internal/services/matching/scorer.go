package matching

import (
	"fmt"
	"math"
)

// Weights are the feature weights of the composite score. They must be
// non-negative and sum to 1.
type Weights struct {
	Amount        float64 `yaml:"amount" json:"amount"`
	Vendor        float64 `yaml:"vendor" json:"vendor"`
	InvoiceNumber float64 `yaml:"invoice_number" json:"invoice_number"`
	Pattern       float64 `yaml:"pattern" json:"pattern"`
	Date          float64 `yaml:"date" json:"date"`
	Skonto        float64 `yaml:"skonto" json:"skonto"`
}

func DefaultWeights() Weights {
	return Weights{
		Amount:        0.35,
		Vendor:        0.25,
		InvoiceNumber: 0.20,
		Pattern:       0.10,
		Date:          0.05,
		Skonto:        0.05,
	}
}

func (w Weights) Validate() error {
	values := []struct {
		name  string
		value float64
	}{
		{"amount", w.Amount},
		{"vendor", w.Vendor},
		{"invoice_number", w.InvoiceNumber},
		{"pattern", w.Pattern},
		{"date", w.Date},
		{"skonto", w.Skonto},
	}
	sum := 0.0
	for _, v := range values {
		if v.value < 0 || math.IsNaN(v.value) {
			return fmt.Errorf("weight %s must be non-negative, got %v", v.name, v.value)
		}
		sum += v.value
	}
	if math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("weights must sum to 1.0, got %.6f", sum)
	}
	return nil
}

// Scorer turns a feature vector into a composite score in [0,1].
// A learned model can replace WeightedScorer behind this interface.
type Scorer interface {
	Score(fv FeatureVector) float64
}

// Explainer is implemented by scorers that can break a score down per feature.
type Explainer interface {
	Explain(fv FeatureVector) Breakdown
}

// Contributions are the weighted, renormalized share of each feature.
type Contributions struct {
	Amount        float64 `json:"amount"`
	Vendor        float64 `json:"vendor"`
	InvoiceNumber float64 `json:"invoice_number"`
	Pattern       float64 `json:"pattern"`
	Date          float64 `json:"date"`
	Skonto        float64 `json:"skonto"`
}

type Breakdown struct {
	Features      FeatureVector  `json:"features"`
	DateScore     float64        `json:"date_score"`
	Contributions *Contributions `json:"contributions,omitempty"`
	Composite     float64        `json:"composite"`
}

// WeightedScorer is a deterministic weighted sum. Skonto and pattern
// weights only count when the feature is applicable to the pair; the sum
// is renormalized by the applicable weight so that an invoice without a
// discount is not penalized for it.
type WeightedScorer struct {
	weights        Weights
	dateCutoffDays int
}

func NewWeightedScorer(weights Weights, dateCutoffDays int) (*WeightedScorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if dateCutoffDays <= 0 {
		return nil, fmt.Errorf("date cutoff must be positive, got %d", dateCutoffDays)
	}
	return &WeightedScorer{weights: weights, dateCutoffDays: dateCutoffDays}, nil
}

func (s *WeightedScorer) Weights() Weights {
	return s.weights
}

func (s *WeightedScorer) Score(fv FeatureVector) float64 {
	return s.Explain(fv).Composite
}

func (s *WeightedScorer) Explain(fv FeatureVector) Breakdown {
	w := s.weights
	dateScore := DateScore(fv.DateDiffDays, s.dateCutoffDays)

	applicable := w.Amount + w.Vendor + w.InvoiceNumber + w.Date
	if fv.SkontoApplicable {
		applicable += w.Skonto
	}
	if fv.PatternApplicable {
		applicable += w.Pattern
	}

	b := Breakdown{Features: fv, DateScore: dateScore}
	if applicable <= 0 {
		return b
	}

	c := &Contributions{
		Amount:        w.Amount * clamp01(fv.AmountSimilarity) / applicable,
		Vendor:        w.Vendor * clamp01(fv.VendorSimilarity) / applicable,
		InvoiceNumber: w.InvoiceNumber * clamp01(fv.InvoiceNumberMatch) / applicable,
		Date:          w.Date * dateScore / applicable,
	}
	if fv.SkontoApplicable {
		c.Skonto = w.Skonto * clamp01(fv.SkontoMatch) / applicable
	}
	if fv.PatternApplicable {
		c.Pattern = w.Pattern * clamp01(fv.PatternMatch) / applicable
	}

	b.Contributions = c
	b.Composite = clamp01(c.Amount + c.Vendor + c.InvoiceNumber + c.Date + c.Skonto + c.Pattern)
	return b
}

// DateScore decays linearly from 1 at zero days to 0 at cutoffDays.
func DateScore(days, cutoffDays int) float64 {
	if days < 0 || days >= NoDateDiff || cutoffDays <= 0 {
		return 0
	}
	return clamp01(1 - float64(days)/float64(cutoffDays))
}
