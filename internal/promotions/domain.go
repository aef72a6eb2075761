// Package promotions manages flash sale configuration and the promotion
// snapshot served to the quoting path.
package promotions

import (
	"errors"
	"fmt"
	"time"

	"github.com/gearhaus/gearhaus/internal/pricing"
)

var (
	// ErrNotFound indicates a missing sale.
	ErrNotFound = errors.New("promotions: sale not found")
	// ErrInvalidWindow indicates an empty or inverted sale window.
	ErrInvalidWindow = errors.New("promotions: sale window must end after it starts")
	// ErrInvalidTransition indicates a status change that is not allowed.
	ErrInvalidTransition = errors.New("promotions: invalid status transition")
	// ErrInvalidItem indicates a malformed sale item.
	ErrInvalidItem = errors.New("promotions: invalid sale item")
	// ErrDuplicateItem indicates the product already participates in the sale.
	ErrDuplicateItem = errors.New("promotions: product already in sale")
	// ErrSaleLocked indicates edits on a sale in a terminal status.
	ErrSaleLocked = errors.New("promotions: sale can no longer be edited")
)

// Sale is the stored representation of a flash sale.
type Sale struct {
	pricing.Promotion
	UpdatedAt time.Time
}

// SaleItemInput describes a product entry for a sale.
type SaleItemInput struct {
	ProductID     int64
	DiscountType  string
	DiscountValue float64
	SortOrder     int
}

// CreateSaleInput describes a new flash sale.
type CreateSaleInput struct {
	Name     string
	Priority int
	StartsAt time.Time
	EndsAt   time.Time
	Items    []SaleItemInput
	Actor    string
}

// UpdateSaleInput describes mutable sale fields. Nil means unchanged.
type UpdateSaleInput struct {
	Name     *string
	Priority *int
	StartsAt *time.Time
	EndsAt   *time.Time
	Actor    string
}

// SaleFilter narrows sale listings.
type SaleFilter struct {
	Status  string
	Page    int
	PerPage int
}

// transitions lists the allowed status changes. ENDED and CANCELLED are
// terminal.
var transitions = map[pricing.PromotionStatus][]pricing.PromotionStatus{
	pricing.PromotionScheduled: {pricing.PromotionActive, pricing.PromotionCancelled},
	pricing.PromotionActive:    {pricing.PromotionEnded, pricing.PromotionCancelled},
}

func canTransition(from, to pricing.PromotionStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (in SaleItemInput) toItem() (pricing.PromotionItem, error) {
	dt := pricing.DiscountType(in.DiscountType)
	if dt != pricing.DiscountPercentage && dt != pricing.DiscountFixed {
		return pricing.PromotionItem{}, fmt.Errorf("%w: unknown discount type %q", ErrInvalidItem, in.DiscountType)
	}
	if in.DiscountValue <= 0 {
		return pricing.PromotionItem{}, fmt.Errorf("%w: discount value must be positive", ErrInvalidItem)
	}
	if dt == pricing.DiscountPercentage && in.DiscountValue > 100 {
		return pricing.PromotionItem{}, fmt.Errorf("%w: percentage above 100", ErrInvalidItem)
	}
	if in.ProductID <= 0 {
		return pricing.PromotionItem{}, fmt.Errorf("%w: product id required", ErrInvalidItem)
	}
	return pricing.PromotionItem{
		ProductID:     in.ProductID,
		DiscountType:  dt,
		DiscountValue: in.DiscountValue,
		IsActive:      true,
		SortOrder:     in.SortOrder,
	}, nil
}
