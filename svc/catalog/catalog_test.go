package catalog_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/learnpro/learnpro/svc/catalog"
)

func TestTier_Includes(t *testing.T) {
	t.Parallel()

	tiers := []catalog.Tier{catalog.TierFree, catalog.TierBasic, catalog.TierPremium}
	for _, plan := range tiers {
		for _, course := range tiers {
			planRank, _ := plan.Rank()
			courseRank, _ := course.Rank()
			assert.Equal(t, planRank >= courseRank, plan.Includes(course), "plan %s course %s", plan, course)
		}
	}

	assert.False(t, catalog.TierBasic.Includes(catalog.TierPremium))
	assert.False(t, catalog.Tier("gold").Includes(catalog.TierFree), "unknown plan tier fails closed")
	assert.False(t, catalog.TierPremium.Includes(catalog.Tier("")), "unknown course tier fails closed")
}

func TestParseTier(t *testing.T) {
	t.Parallel()

	tier, err := catalog.ParseTier(" Premium ")
	require.NoError(t, err)
	assert.Equal(t, catalog.TierPremium, tier)

	_, err = catalog.ParseTier("platinum")
	assert.ErrorIs(t, err, catalog.ErrInvalidTier)
}

func TestPlan_AmountsAndDates(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(1999), catalog.Plan{Price: 19.99}.AmountCents())
	assert.Equal(t, int64(1000), catalog.Plan{Price: 9.999}.AmountCents())
	assert.True(t, catalog.Plan{Price: 0.001}.IsFree())

	start := time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, start.AddDate(0, 12, 0), catalog.Plan{DurationMonths: 12}.EndDate(start))
	assert.Equal(t, 2126, catalog.Plan{DurationMonths: 0}.EndDate(start).Year())
	assert.Equal(t, 1200, catalog.Plan{}.TermMonths())
}

func TestYAMLPlanSource(t *testing.T) {
	t.Parallel()

	t.Run("built-in catalog", func(t *testing.T) {
		t.Parallel()
		plans, err := catalog.NewYAMLPlanSource("").Load(context.Background())
		require.NoError(t, err)
		require.NotEmpty(t, plans)
		for _, p := range plans {
			assert.True(t, p.Tier.Valid(), p.Name)
		}
	})

	t.Run("normalises", func(t *testing.T) {
		t.Parallel()
		src := catalog.NewYAMLPlanSourceFromReader(strings.NewReader(`
plans:
  - name: " Pro "
    tier: PREMIUM
    price: 29
    currency: eur
    duration_months: 3
`))
		plans, err := src.Load(context.Background())
		require.NoError(t, err)
		require.Len(t, plans, 1)
		assert.Equal(t, "Pro", plans[0].Name)
		assert.Equal(t, catalog.TierPremium, plans[0].Tier)
		assert.Equal(t, "EUR", plans[0].Currency)
	})

	tests := []struct {
		name string
		doc  string
	}{
		{"unknown tier", "plans:\n  - name: X\n    tier: gold\n"},
		{"negative price", "plans:\n  - name: X\n    tier: free\n    price: -1\n"},
		{"duplicate names", "plans:\n  - name: X\n    tier: free\n  - name: x\n    tier: basic\n"},
		{"unknown field", "plans:\n  - name: X\n    tier: free\n    trial_days: 3\n"},
		{"bad currency", "plans:\n  - name: X\n    tier: free\n    currency: ZZZ\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := catalog.NewYAMLPlanSourceFromReader(strings.NewReader(tt.doc)).Load(context.Background())
			assert.ErrorIs(t, err, catalog.ErrInvalidPlan)
		})
	}
}

func TestPriceLabel(t *testing.T) {
	t.Parallel()

	en := language.AmericanEnglish
	assert.Equal(t, "Free", catalog.PriceLabel(catalog.Plan{Price: 0}, en))

	monthly := catalog.PriceLabel(catalog.Plan{Price: 19.99, Currency: "USD", DurationMonths: 1}, en)
	assert.Contains(t, monthly, "19.99")
	assert.True(t, strings.HasSuffix(monthly, "/ month"))

	assert.True(t, strings.HasSuffix(catalog.PriceLabel(catalog.Plan{Price: 199, Currency: "USD", DurationMonths: 12}, en), "/ year"))
	assert.True(t, strings.HasSuffix(catalog.PriceLabel(catalog.Plan{Price: 49, Currency: "USD", DurationMonths: 6}, en), "/ 6 months"))
	assert.True(t, strings.HasSuffix(catalog.PriceLabel(catalog.Plan{Price: 499, Currency: "USD"}, en), "lifetime"))
}
