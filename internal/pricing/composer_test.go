package pricing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func baseInput() LinePriceInput {
	return LinePriceInput{
		ProductID:   1,
		Product:     PriceSet{BasePrice: 100, Unit: UnitEach},
		AccountType: AccountPersonal,
		Subtotal:    500,
		Now:         time.Now(),
	}
}

func TestComputeLinePriceBase(t *testing.T) {
	out, err := ComputeLinePrice(baseInput())
	require.NoError(t, err)
	assert.Equal(t, 100.0, out.FinalUnitPrice)
	assert.Equal(t, PriceSourceBase, out.AppliedSource)
	assert.False(t, out.Floored)
}

func TestComputeLinePriceInvalidPriceSet(t *testing.T) {
	in := baseInput()
	in.Product.BasePrice = 0
	_, err := ComputeLinePrice(in)
	require.ErrorIs(t, err, ErrInvalidPriceSet)

	in = baseInput()
	in.Product.SalePrice = ptr(150.0)
	_, err = ComputeLinePrice(in)
	require.ErrorIs(t, err, ErrInvalidPriceSet)
}

func TestComputeLinePriceSaleWins(t *testing.T) {
	in := baseInput()
	in.Product.SalePrice = ptr(80.0)

	out, err := ComputeLinePrice(in)
	require.NoError(t, err)
	assert.Equal(t, 80.0, out.FinalUnitPrice)
	assert.Equal(t, PriceSourceSale, out.AppliedSource)
}

func TestComputeLinePricePicksBestCandidate(t *testing.T) {
	in := baseInput()
	in.Product.SalePrice = ptr(90.0)
	in.Promotions = []Promotion{promo(5, time.Now(), item(1, 25))} // 75.00
	in.Rules = []DiscountRule{rule(AccountPersonal, 10, nil)}      // 90.00

	out, err := ComputeLinePrice(in)
	require.NoError(t, err)
	assert.Equal(t, 75.0, out.FinalUnitPrice)
	assert.Equal(t, PriceSourcePromotion, out.AppliedSource)
	require.NotNil(t, out.AppliedPromotionID)
	assert.Nil(t, out.AppliedRuleID)
}

func TestComputeLinePriceAccountDiscountWins(t *testing.T) {
	in := baseInput()
	in.AccountType = AccountGovernment
	r := rule(AccountGovernment, 30, nil)
	in.Rules = []DiscountRule{r}

	out, err := ComputeLinePrice(in)
	require.NoError(t, err)
	assert.Equal(t, 70.0, out.FinalUnitPrice)
	assert.Equal(t, PriceSourceAccountDiscount, out.AppliedSource)
	require.NotNil(t, out.AppliedRuleID)
	assert.Equal(t, r.ID, *out.AppliedRuleID)
}

func TestComputeLinePriceChannelOverridesEverything(t *testing.T) {
	in := baseInput()
	in.AccountType = AccountGovernment
	in.Product.GSAPrice = ptr(85.0)
	in.Product.SalePrice = ptr(60.0)
	in.Promotions = []Promotion{promo(5, time.Now(), item(1, 50))}
	in.Rules = []DiscountRule{rule(AccountGovernment, 40, nil)}

	out, err := ComputeLinePrice(in)
	require.NoError(t, err)
	// Contractual GSA pricing wins even when promotions would be cheaper.
	assert.Equal(t, 85.0, out.FinalUnitPrice)
	assert.Equal(t, PriceSourceChannel, out.AppliedSource)
}

func TestComputeLinePriceWholesaleChannel(t *testing.T) {
	in := baseInput()
	in.AccountType = AccountVolumeBuyer
	in.Product.WholesalePrice = ptr(72.0)

	out, err := ComputeLinePrice(in)
	require.NoError(t, err)
	assert.Equal(t, 72.0, out.FinalUnitPrice)
	assert.Equal(t, PriceSourceChannel, out.AppliedSource)
}

func TestComputeLinePriceChannelPriceNotForOtherAccounts(t *testing.T) {
	in := baseInput()
	in.Product.GSAPrice = ptr(40.0)
	in.Product.WholesalePrice = ptr(50.0)

	out, err := ComputeLinePrice(in)
	require.NoError(t, err)
	assert.Equal(t, PriceSourceBase, out.AppliedSource)
	assert.Equal(t, 100.0, out.FinalUnitPrice)
}

func TestComputeLinePriceCouponAppliedLast(t *testing.T) {
	in := baseInput()
	in.Product.SalePrice = ptr(80.0)
	in.Coupon = &Coupon{Code: "SAVE10", Type: DiscountPercentage, Value: 10, IsActive: true}

	out, err := ComputeLinePrice(in)
	require.NoError(t, err)
	// 10% off the resolved 80.00, not the 100.00 base.
	assert.Equal(t, 72.0, out.FinalUnitPrice)
	assert.Equal(t, 8.0, out.CouponAdjustment)
	assert.Equal(t, PriceSourceSale, out.AppliedSource)
}

func TestComputeLinePriceCouponFlooredAtCost(t *testing.T) {
	in := baseInput()
	in.Product.CostPrice = ptr(95.0)
	in.Coupon = &Coupon{Code: "BIG", Type: DiscountFixed, Value: 50, IsActive: true}

	out, err := ComputeLinePrice(in)
	require.NoError(t, err)
	assert.Equal(t, 95.0, out.FinalUnitPrice)
	assert.True(t, out.Floored)
	// Only the portion above the floor was actually granted.
	assert.Equal(t, 5.0, out.CouponAdjustment)
}

func TestComputeLinePriceFixedCouponNeverNegative(t *testing.T) {
	in := baseInput()
	in.Coupon = &Coupon{Code: "HUGE", Type: DiscountFixed, Value: 500, IsActive: true}

	out, err := ComputeLinePrice(in)
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.FinalUnitPrice)
	assert.True(t, out.Floored)
	assert.GreaterOrEqual(t, out.CouponAdjustment, 0.0)
}

func TestComputeLinePriceIneligibleCouponIgnored(t *testing.T) {
	in := baseInput()
	in.Coupon = &Coupon{Code: "MIN", Type: DiscountFixed, Value: 10, MinSpend: 1000, IsActive: true}

	out, err := ComputeLinePrice(in)
	require.NoError(t, err)
	assert.Equal(t, 100.0, out.FinalUnitPrice)
	assert.Zero(t, out.CouponAdjustment)
}

func TestComputeLinePriceFloorEnforcedWithoutCoupon(t *testing.T) {
	in := baseInput()
	in.Product.CostPrice = ptr(90.0)
	in.Promotions = []Promotion{promo(5, time.Now(), item(1, 50))} // would be 50.00

	out, err := ComputeLinePrice(in)
	require.NoError(t, err)
	assert.Equal(t, 90.0, out.FinalUnitPrice)
	assert.True(t, out.Floored)
}

func TestComputeLinePriceIdempotent(t *testing.T) {
	now := time.Unix(1735689600, 0)
	catID := int64(3)
	in := LinePriceInput{
		ProductID:   42,
		Product:     PriceSet{BasePrice: 129.99, SalePrice: ptr(99.99), CostPrice: ptr(55.0), Unit: UnitPair},
		AccountType: AccountVolumeBuyer,
		Scope:       RuleScope{CategoryID: &catID},
		Rules: []DiscountRule{
			{ID: uuid.MustParse("2da7a13c-15c2-4fd9-a1e4-0d1f6d0d8e0b"), AccountType: AccountVolumeBuyer, DiscountPercentage: 12, IsActive: true},
		},
		Coupon:   &Coupon{Code: "SAVE5", Type: DiscountFixed, Value: 5, IsActive: true},
		Subtotal: 350,
		Now:      now,
	}

	first, err := ComputeLinePrice(in)
	require.NoError(t, err)
	second, err := ComputeLinePrice(in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestComputeLinePriceNeverNegative(t *testing.T) {
	now := time.Now()
	for _, in := range []LinePriceInput{
		{ProductID: 1, Product: PriceSet{BasePrice: 0.01}, AccountType: AccountPersonal, Now: now,
			Coupon: &Coupon{Code: "X", Type: DiscountFixed, Value: 99, IsActive: true}},
		{ProductID: 1, Product: PriceSet{BasePrice: 5}, AccountType: AccountPersonal, Now: now,
			Promotions: []Promotion{promo(1, now, PromotionItem{ProductID: 1, DiscountType: DiscountFixed, DiscountValue: 50, IsActive: true})}},
	} {
		out, err := ComputeLinePrice(in)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, out.FinalUnitPrice, 0.0)
	}
}
