package pricing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func promo(priority int, createdAt time.Time, items ...PromotionItem) Promotion {
	now := time.Now()
	return Promotion{
		ID:        uuid.New(),
		Name:      "flash",
		Status:    PromotionActive,
		Priority:  priority,
		StartsAt:  now.Add(-time.Hour),
		EndsAt:    now.Add(time.Hour),
		IsActive:  true,
		CreatedAt: createdAt,
		Items:     items,
	}
}

func item(productID int64, value float64) PromotionItem {
	return PromotionItem{ProductID: productID, DiscountType: DiscountPercentage, DiscountValue: value, IsActive: true}
}

func TestResolvePromotionHighestPriorityWins(t *testing.T) {
	now := time.Now()
	low := promo(5, now.Add(-time.Minute), item(1, 10))
	high := promo(10, now.Add(-2*time.Hour), item(1, 25))

	// Input order must not matter.
	for _, promos := range [][]Promotion{{low, high}, {high, low}} {
		effect := ResolvePromotion(promos, 1, now)
		require.NotNil(t, effect)
		assert.Equal(t, high.ID, effect.PromotionID)
		assert.Equal(t, 25.0, effect.DiscountValue)
	}
}

func TestResolvePromotionTieBreaksByNewest(t *testing.T) {
	now := time.Now()
	older := promo(5, now.Add(-time.Hour), item(1, 10))
	newer := promo(5, now.Add(-time.Minute), item(1, 15))

	effect := ResolvePromotion([]Promotion{older, newer}, 1, now)
	require.NotNil(t, effect)
	assert.Equal(t, newer.ID, effect.PromotionID)
}

func TestResolvePromotionWindowAndStatus(t *testing.T) {
	now := time.Now()

	expired := promo(5, now, item(1, 10))
	expired.EndsAt = now.Add(-time.Minute)

	scheduled := promo(5, now, item(1, 10))
	scheduled.Status = PromotionScheduled

	disabled := promo(5, now, item(1, 10))
	disabled.IsActive = false

	assert.Nil(t, ResolvePromotion([]Promotion{expired, scheduled, disabled}, 1, now))
}

func TestResolvePromotionInactiveItemIgnored(t *testing.T) {
	now := time.Now()
	p := promo(5, now, PromotionItem{ProductID: 1, DiscountType: DiscountFixed, DiscountValue: 5, IsActive: false})
	assert.Nil(t, ResolvePromotion([]Promotion{p}, 1, now))
}

func TestResolvePromotionOtherProduct(t *testing.T) {
	now := time.Now()
	p := promo(5, now, item(2, 10))
	assert.Nil(t, ResolvePromotion([]Promotion{p}, 1, now))
}

func TestPromotionEffectApply(t *testing.T) {
	pct := PromotionEffect{DiscountType: DiscountPercentage, DiscountValue: 25}
	assert.Equal(t, 75.0, pct.Apply(100))

	fixed := PromotionEffect{DiscountType: DiscountFixed, DiscountValue: 30}
	assert.Equal(t, 70.0, fixed.Apply(100))

	// Fixed discount larger than the price clamps at zero.
	assert.Equal(t, 0.0, fixed.Apply(20))
}
