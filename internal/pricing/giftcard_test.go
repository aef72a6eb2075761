package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func activeCard(balance float64) GiftCard {
	return GiftCard{
		Code:           "ABC123",
		InitialAmount:  100,
		CurrentBalance: balance,
		IsActive:       true,
		Status:         "ACTIVE",
	}
}

func TestCheckGiftCardValid(t *testing.T) {
	status := CheckGiftCard(activeCard(42.50), time.Now())
	assert.Equal(t, GiftCardValid, status.State)
	assert.True(t, status.Redeemable())
	assert.Equal(t, 42.50, status.Balance)
	assert.Equal(t, 100.0, status.InitialAmount)
}

func TestCheckGiftCardExpiredBeatsBalance(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	card := activeCard(42.50)
	card.ExpiresAt = &past

	status := CheckGiftCard(card, time.Now())
	assert.Equal(t, GiftCardExpired, status.State)
	assert.False(t, status.Redeemable())
	// Expired wins regardless of remaining balance.
	assert.Zero(t, status.Balance)
}

func TestCheckGiftCardInactive(t *testing.T) {
	card := activeCard(10)
	card.IsActive = false
	assert.Equal(t, GiftCardInactive, CheckGiftCard(card, time.Now()).State)

	card = activeCard(10)
	card.Status = "SUSPENDED"
	assert.Equal(t, GiftCardInactive, CheckGiftCard(card, time.Now()).State)
}

func TestCheckGiftCardZeroBalance(t *testing.T) {
	assert.Equal(t, GiftCardZeroBalance, CheckGiftCard(activeCard(0), time.Now()).State)
}

func TestCouponRedeemable(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	c := Coupon{Code: "SAVE10", Type: DiscountPercentage, Value: 10, MinSpend: 50, IsActive: true}
	assert.True(t, c.Redeemable(60, now))
	assert.False(t, c.Redeemable(40, now))

	c.ExpiresAt = &past
	assert.False(t, c.Redeemable(60, now))

	c.ExpiresAt = &future
	c.StartsAt = &future
	assert.False(t, c.Redeemable(60, now))

	c.StartsAt = &past
	assert.True(t, c.Redeemable(60, now))

	c.IsActive = false
	assert.False(t, c.Redeemable(60, now))
}
