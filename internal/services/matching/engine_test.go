package matching

import (
	"testing"

	"document-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constScorer ignores the features, which makes tie-breaks observable.
type constScorer float64

func (c constScorer) Score(FeatureVector) float64 { return float64(c) }

func TestSelector_Scenario(t *testing.T) {
	sel := NewSelector(defaultExtractor(), defaultScorer(t), 0.2)

	tx := makeTx("100.00", "Acme GmbH", "INV-2024-001", day(2024, 3, 10))
	match := makeDoc("100.00", "Acme GmbH", "2024-001", day(2024, 3, 8))
	other := makeDoc("250.00", "Globex", "G-77", day(2024, 1, 2))

	ranked := sel.Rank(tx, []models.Document{*other, *match})

	require.NotEmpty(t, ranked)
	assert.Equal(t, match.ID, ranked[0].Document.ID)
	assert.Greater(t, ranked[0].Score, 0.9)
	assert.Equal(t, 2, ranked[0].Breakdown.Features.DateDiffDays)
	assert.Equal(t, 1.0, ranked[0].Breakdown.Features.InvoiceNumberMatch)
	require.NotNil(t, ranked[0].Breakdown.Contributions)
}

func TestSelector_OrdersDescending(t *testing.T) {
	sel := NewSelector(defaultExtractor(), defaultScorer(t), 0)
	tx := makeTx("100.00", "Acme", "", day(2024, 3, 10))

	pool := []models.Document{
		*makeDoc("60.00", "Acme", "", day(2024, 3, 10)),
		*makeDoc("100.00", "Acme", "", day(2024, 3, 10)),
		*makeDoc("90.00", "Acme", "", day(2024, 3, 10)),
	}

	ranked := sel.Rank(tx, pool)
	require.Len(t, ranked, 3)
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].Score, ranked[i].Score)
	}
	assert.Equal(t, pool[1].ID, ranked[0].Document.ID)
}

func TestSelector_TieBreak(t *testing.T) {
	sel := NewSelector(defaultExtractor(), constScorer(0.5), 0.2)
	tx := makeTx("100.00", "Acme", "", day(2024, 3, 10))

	lowID := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	highID := uuid.MustParse("00000000-0000-0000-0000-000000000002")

	t.Run("smaller date difference first", func(t *testing.T) {
		far := makeDoc("100.00", "Acme", "", day(2024, 3, 5))
		far.ID = lowID
		near := makeDoc("100.00", "Acme", "", day(2024, 3, 9))
		near.ID = highID

		ranked := sel.Rank(tx, []models.Document{*far, *near})
		require.Len(t, ranked, 2)
		assert.Equal(t, highID, ranked[0].Document.ID)
		assert.Equal(t, lowID, ranked[1].Document.ID)
	})

	t.Run("lower document id on equal dates", func(t *testing.T) {
		a := makeDoc("100.00", "Acme", "", day(2024, 3, 9))
		a.ID = highID
		b := makeDoc("100.00", "Acme", "", day(2024, 3, 11))
		b.ID = lowID

		ranked := sel.Rank(tx, []models.Document{*a, *b})
		require.Len(t, ranked, 2)
		assert.Equal(t, lowID, ranked[0].Document.ID)
	})
}

func TestSelector_FloorAndEligibility(t *testing.T) {
	tx := makeTx("100.00", "Acme", "", day(2024, 3, 10))

	t.Run("below floor is omitted", func(t *testing.T) {
		sel := NewSelector(defaultExtractor(), constScorer(0.1), 0.2)
		assert.Empty(t, sel.Rank(tx, []models.Document{*makeDoc("100.00", "Acme", "", day(2024, 3, 10))}))
	})

	t.Run("unparsed documents are skipped", func(t *testing.T) {
		sel := NewSelector(defaultExtractor(), defaultScorer(t), 0.2)
		doc := makeDoc("100.00", "Acme", "", day(2024, 3, 10))
		doc.Parsed = false
		assert.Empty(t, sel.Rank(tx, []models.Document{*doc}))
	})

	t.Run("empty pool", func(t *testing.T) {
		sel := NewSelector(defaultExtractor(), defaultScorer(t), 0.2)
		assert.Empty(t, sel.Rank(tx, nil))
	})
}
