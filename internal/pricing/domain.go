// Package pricing implements the price and discount resolution engine.
// All functions operate on immutable snapshots supplied by the caller and
// perform no I/O; the engine is safe for concurrent use.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidPriceSet indicates a malformed product price snapshot.
	ErrInvalidPriceSet = errors.New("invalid price set")
	// ErrInvalidDiscountRule indicates a malformed discount rule.
	ErrInvalidDiscountRule = errors.New("invalid discount rule")
)

// ============================================================================
// ACCOUNT CLASSIFICATION
// ============================================================================

type AccountType string

const (
	AccountPersonal    AccountType = "PERSONAL"
	AccountVolumeBuyer AccountType = "VOLUME_BUYER"
	AccountGovernment  AccountType = "GOVERNMENT"
)

// NormalizeAccountType maps legacy classifications onto the current set.
// Unknown values fall back to PERSONAL.
func NormalizeAccountType(s string) AccountType {
	switch AccountType(s) {
	case AccountPersonal, "B2C":
		return AccountPersonal
	case AccountVolumeBuyer, "B2B":
		return AccountVolumeBuyer
	case AccountGovernment, "GSA":
		return AccountGovernment
	default:
		return AccountPersonal
	}
}

// ============================================================================
// PRICE SET
// ============================================================================

// PriceSet is the immutable price snapshot of a product or variant.
type PriceSet struct {
	BasePrice      float64   `json:"base_price"`
	SalePrice      *float64  `json:"sale_price,omitempty"`
	WholesalePrice *float64  `json:"wholesale_price,omitempty"`
	GSAPrice       *float64  `json:"gsa_price,omitempty"`
	CostPrice      *float64  `json:"cost_price,omitempty"`
	Unit           PriceUnit `json:"price_unit"`
}

// Validate rejects malformed snapshots before any computation runs.
func (p PriceSet) Validate() error {
	if p.BasePrice <= 0 {
		return fmt.Errorf("%w: base price must be positive", ErrInvalidPriceSet)
	}
	if p.SalePrice != nil && *p.SalePrice > p.BasePrice {
		return fmt.Errorf("%w: sale price exceeds base price", ErrInvalidPriceSet)
	}
	for _, v := range []*float64{p.SalePrice, p.WholesalePrice, p.GSAPrice, p.CostPrice} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%w: negative price field", ErrInvalidPriceSet)
		}
	}
	return nil
}

// ============================================================================
// DISCOUNT RULES
// ============================================================================

// DiscountSource identifies which scope level a rule matched on.
type DiscountSource string

const (
	SourceGlobal    DiscountSource = "global"
	SourceCategory  DiscountSource = "category"
	SourceBrand     DiscountSource = "brand"
	SourceSupplier  DiscountSource = "supplier"
	SourceWarehouse DiscountSource = "warehouse"
)

// DiscountRule maps an account classification to a discount percentage.
// A rule is global when no scope field is set; scoped rules take precedence
// over the global rule for matching line items.
type DiscountRule struct {
	ID                 uuid.UUID   `json:"id"`
	AccountType        AccountType `json:"account_type"`
	DiscountPercentage float64     `json:"discount_percentage"`
	MinimumOrderAmount float64     `json:"minimum_order_amount"`
	IsActive           bool        `json:"is_active"`
	CategoryID         *int64      `json:"category_id,omitempty"`
	BrandID            *int64      `json:"brand_id,omitempty"`
	SupplierID         *int64      `json:"supplier_id,omitempty"`
	WarehouseID        *int64      `json:"warehouse_id,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
}

// IsGlobal reports whether the rule applies to every line item.
func (r DiscountRule) IsGlobal() bool {
	return r.CategoryID == nil && r.BrandID == nil && r.SupplierID == nil && r.WarehouseID == nil
}

// Source returns the scope level the rule is defined at.
func (r DiscountRule) Source() DiscountSource {
	switch {
	case r.CategoryID != nil:
		return SourceCategory
	case r.BrandID != nil:
		return SourceBrand
	case r.SupplierID != nil:
		return SourceSupplier
	case r.WarehouseID != nil:
		return SourceWarehouse
	default:
		return SourceGlobal
	}
}

// Validate rejects malformed rules at snapshot load time.
func (r DiscountRule) Validate() error {
	if r.DiscountPercentage < 0 || r.DiscountPercentage > 100 {
		return fmt.Errorf("%w: percentage %.2f out of range", ErrInvalidDiscountRule, r.DiscountPercentage)
	}
	if r.MinimumOrderAmount < 0 {
		return fmt.Errorf("%w: negative minimum order amount", ErrInvalidDiscountRule)
	}
	return nil
}

// RuleScope carries the line item attributes scoped rules match against.
type RuleScope struct {
	CategoryID  *int64
	BrandID     *int64
	SupplierID  *int64
	WarehouseID *int64
}

// DiscountResult is the single rule selected for a line item.
type DiscountResult struct {
	RuleID     uuid.UUID      `json:"rule_id"`
	Percentage float64        `json:"percentage"`
	Source     DiscountSource `json:"source"`
}

// ============================================================================
// PROMOTIONS
// ============================================================================

type PromotionStatus string

const (
	PromotionScheduled PromotionStatus = "SCHEDULED"
	PromotionActive    PromotionStatus = "ACTIVE"
	PromotionEnded     PromotionStatus = "ENDED"
	PromotionCancelled PromotionStatus = "CANCELLED"
)

// DiscountType distinguishes percentage from fixed-amount effects.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// PromotionItem is a single product entry inside a flash sale.
type PromotionItem struct {
	ProductID     int64        `json:"product_id"`
	DiscountType  DiscountType `json:"discount_type"`
	DiscountValue float64      `json:"discount_value"`
	IsActive      bool         `json:"is_active"`
	SortOrder     int          `json:"sort_order"`
}

// Promotion is a time-bounded flash sale snapshot.
type Promotion struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Status    PromotionStatus `json:"status"`
	Priority  int             `json:"priority"`
	StartsAt  time.Time       `json:"starts_at"`
	EndsAt    time.Time       `json:"ends_at"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	Items     []PromotionItem `json:"items"`
}

// Applicable reports whether the promotion window covers now.
func (p Promotion) Applicable(now time.Time) bool {
	return p.IsActive && p.Status == PromotionActive &&
		!now.Before(p.StartsAt) && !now.After(p.EndsAt)
}

// PromotionEffect is the winning promotion's effect on a product.
type PromotionEffect struct {
	PromotionID   uuid.UUID    `json:"promotion_id"`
	DiscountType  DiscountType `json:"discount_type"`
	DiscountValue float64      `json:"discount_value"`
	Priority      int          `json:"priority"`
}

// Apply returns the promotion-adjusted price, never below zero.
func (e PromotionEffect) Apply(price float64) float64 {
	var adjusted float64
	switch e.DiscountType {
	case DiscountFixed:
		adjusted = price - e.DiscountValue
	default:
		adjusted = price * (1 - e.DiscountValue/100)
	}
	if adjusted < 0 {
		return 0
	}
	return round2(adjusted)
}

// ============================================================================
// COUPONS & GIFT CARDS
// ============================================================================

// Coupon is a redeemable code applied after price resolution.
type Coupon struct {
	Code      string       `json:"code"`
	Type      DiscountType `json:"type"`
	Value     float64      `json:"value"`
	MinSpend  float64      `json:"min_spend"`
	StartsAt  *time.Time   `json:"starts_at,omitempty"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty"`
	IsActive  bool         `json:"is_active"`
}

// Redeemable reports whether the coupon applies to an order subtotal at now.
func (c Coupon) Redeemable(subtotal float64, now time.Time) bool {
	if !c.IsActive || c.Value <= 0 {
		return false
	}
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return false
	}
	if c.ExpiresAt != nil && !c.ExpiresAt.After(now) {
		return false
	}
	return subtotal >= c.MinSpend
}

// GiftCard is a stored-value code snapshot. Balance mutation happens in the
// persistence layer, never here.
type GiftCard struct {
	Code           string     `json:"code"`
	InitialAmount  float64    `json:"initial_amount"`
	CurrentBalance float64    `json:"current_balance"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	MinPurchase    *float64   `json:"min_purchase,omitempty"`
	IsActive       bool       `json:"is_active"`
	Status         string     `json:"status"`
}

// ============================================================================
// LINE PRICE COMPOSITION
// ============================================================================

// PriceSource identifies which candidate produced the effective unit price.
type PriceSource string

const (
	PriceSourceBase            PriceSource = "BASE"
	PriceSourceSale            PriceSource = "SALE"
	PriceSourcePromotion       PriceSource = "PROMOTION"
	PriceSourceAccountDiscount PriceSource = "ACCOUNT_DISCOUNT"
	PriceSourceChannel         PriceSource = "CHANNEL_PRICE"
)

// LinePriceInput gathers every snapshot ComputeLinePrice needs.
type LinePriceInput struct {
	ProductID   int64
	Product     PriceSet
	AccountType AccountType
	Scope       RuleScope
	Rules       []DiscountRule
	Promotions  []Promotion
	Coupon      *Coupon
	// Subtotal is the order subtotal used for minimum-order gates.
	Subtotal float64
	Now      time.Time
}

// LinePriceBreakdown is the itemized result for a single line.
type LinePriceBreakdown struct {
	FinalUnitPrice     float64     `json:"final_unit_price"`
	BasePrice          float64     `json:"base_price"`
	AppliedSource      PriceSource `json:"applied_source"`
	AppliedRuleID      *uuid.UUID  `json:"applied_rule_id,omitempty"`
	AppliedPromotionID *uuid.UUID  `json:"applied_promotion_id,omitempty"`
	CouponAdjustment   float64     `json:"coupon_adjustment,omitempty"`
	Floored            bool        `json:"floored"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
