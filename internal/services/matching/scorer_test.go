package matching

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeights_Validate(t *testing.T) {
	require.NoError(t, DefaultWeights().Validate())

	w := DefaultWeights()
	w.Amount = 0.5
	assert.ErrorContains(t, w.Validate(), "sum to 1.0")

	w = DefaultWeights()
	w.Amount = 0.45
	w.Skonto = -0.05
	assert.ErrorContains(t, w.Validate(), "skonto")

	_, err := NewWeightedScorer(DefaultWeights(), 0)
	assert.Error(t, err)
}

func TestDateScore(t *testing.T) {
	assert.Equal(t, 1.0, DateScore(0, 30))
	assert.InDelta(t, 0.5, DateScore(15, 30), 1e-9)
	assert.Equal(t, 0.0, DateScore(30, 30))
	assert.Equal(t, 0.0, DateScore(400, 30))
	assert.Equal(t, 0.0, DateScore(NoDateDiff, 30))
}

func TestWeightedScorer_Renormalizes(t *testing.T) {
	s := defaultScorer(t)

	perfect := FeatureVector{AmountSimilarity: 1, VendorSimilarity: 1, InvoiceNumberMatch: 1, DateDiffDays: 0}
	assert.InDelta(t, 1.0, s.Score(perfect), 1e-9)

	withSkonto := perfect
	withSkonto.SkontoApplicable = true
	assert.InDelta(t, 0.8/0.9+0.05/0.9, s.Score(withSkonto), 1e-9)

	withSkonto.SkontoMatch = 1
	assert.InDelta(t, 1.0, s.Score(withSkonto), 1e-9)
}

func TestWeightedScorer_Explain(t *testing.T) {
	s := defaultScorer(t)
	fv := FeatureVector{AmountSimilarity: 1, VendorSimilarity: 0.5, DateDiffDays: 3}

	b := s.Explain(fv)
	require.NotNil(t, b.Contributions)
	assert.Equal(t, fv, b.Features)
	assert.InDelta(t, 0.9, b.DateScore, 1e-9)

	sum := b.Contributions.Amount + b.Contributions.Vendor + b.Contributions.InvoiceNumber +
		b.Contributions.Date + b.Contributions.Skonto + b.Contributions.Pattern
	assert.InDelta(t, b.Composite, sum, 1e-9)
	assert.Equal(t, 0.0, b.Contributions.Skonto)
	assert.Equal(t, 0.0, b.Contributions.Pattern)
}

func randomVector(r *rand.Rand) FeatureVector {
	return FeatureVector{
		AmountSimilarity:   r.Float64(),
		DateDiffDays:       r.Intn(60),
		VendorSimilarity:   r.Float64(),
		InvoiceNumberMatch: float64(r.Intn(2)),
		SkontoMatch:        float64(r.Intn(2)),
		PatternMatch:       float64(r.Intn(2)),
		SkontoApplicable:   r.Intn(2) == 1,
		PatternApplicable:  r.Intn(2) == 1,
	}
}

func TestWeightedScorer_Bounds(t *testing.T) {
	s := defaultScorer(t)
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 1000; i++ {
		score := s.Score(randomVector(r))
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}

func TestWeightedScorer_Monotonic(t *testing.T) {
	s := defaultScorer(t)
	r := rand.New(rand.NewSource(7))

	raise := map[string]func(FeatureVector) FeatureVector{
		"amount": func(fv FeatureVector) FeatureVector {
			fv.AmountSimilarity += (1 - fv.AmountSimilarity) / 2
			return fv
		},
		"vendor": func(fv FeatureVector) FeatureVector {
			fv.VendorSimilarity += (1 - fv.VendorSimilarity) / 2
			return fv
		},
		"invoice_number": func(fv FeatureVector) FeatureVector {
			fv.InvoiceNumberMatch = 1
			return fv
		},
		"skonto": func(fv FeatureVector) FeatureVector {
			fv.SkontoMatch = 1
			return fv
		},
		"pattern": func(fv FeatureVector) FeatureVector {
			fv.PatternMatch = 1
			return fv
		},
		"date": func(fv FeatureVector) FeatureVector {
			fv.DateDiffDays /= 2
			return fv
		},
	}

	for name, fn := range raise {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 500; i++ {
				fv := randomVector(r)
				assert.GreaterOrEqual(t, s.Score(fn(fv)), s.Score(fv))
			}
		})
	}
}
