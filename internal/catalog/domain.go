// Package catalog manages products, variants and their price sets. Unit
// consistency between a product and its variants is enforced at write time so
// the quoting path never sees a mismatch.
package catalog

import (
	"errors"
	"time"

	"github.com/gearhaus/gearhaus/internal/pricing"
)

var (
	// ErrNotFound indicates a missing product or variant.
	ErrNotFound = errors.New("catalog: not found")
	// ErrSKUTaken indicates a duplicate SKU.
	ErrSKUTaken = errors.New("catalog: sku already exists")
	// ErrUnitLocked indicates the price unit can no longer change because
	// variants reference it.
	ErrUnitLocked = errors.New("catalog: price unit is locked while variants exist")
	// ErrInvalidWeight indicates a negative shipping weight.
	ErrInvalidWeight = errors.New("catalog: weight must be non-negative")
)

// Product is a sellable catalog entry with its price set.
type Product struct {
	ID          int64            `json:"id"`
	SKU         string           `json:"sku"`
	Name        string           `json:"name"`
	CategoryID  *int64           `json:"category_id,omitempty"`
	BrandID     *int64           `json:"brand_id,omitempty"`
	SupplierID  *int64           `json:"supplier_id,omitempty"`
	WarehouseID *int64           `json:"warehouse_id,omitempty"`
	Prices      pricing.PriceSet `json:"prices"`
	Weight      float64          `json:"weight"`
	IsActive    bool             `json:"is_active"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Scope returns the discount scope attributes of the product.
func (p Product) Scope() pricing.RuleScope {
	return pricing.RuleScope{
		CategoryID:  p.CategoryID,
		BrandID:     p.BrandID,
		SupplierID:  p.SupplierID,
		WarehouseID: p.WarehouseID,
	}
}

// Variant is a product variation. Price fields override the parent when set;
// an empty unit inherits the parent's.
type Variant struct {
	ID             int64     `json:"id"`
	ProductID      int64     `json:"product_id"`
	SKU            string    `json:"sku"`
	Name           string    `json:"name"`
	BasePrice      *float64  `json:"base_price,omitempty"`
	SalePrice      *float64  `json:"sale_price,omitempty"`
	WholesalePrice *float64  `json:"wholesale_price,omitempty"`
	GSAPrice       *float64  `json:"gsa_price,omitempty"`
	CostPrice      *float64  `json:"cost_price,omitempty"`
	Unit           string    `json:"price_unit,omitempty"`
	Weight         *float64  `json:"weight,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CreateProductInput describes a new product.
type CreateProductInput struct {
	SKU         string
	Name        string
	CategoryID  *int64
	BrandID     *int64
	SupplierID  *int64
	WarehouseID *int64
	Prices      pricing.PriceSet
	Weight      float64
	Actor       string
}

// UpdateProductInput describes mutable product fields. Nil means unchanged.
type UpdateProductInput struct {
	Name     *string
	Prices   *pricing.PriceSet
	Weight   *float64
	IsActive *bool
	Actor    string
}

// CreateVariantInput describes a new variant.
type CreateVariantInput struct {
	SKU            string
	Name           string
	BasePrice      *float64
	SalePrice      *float64
	WholesalePrice *float64
	GSAPrice       *float64
	CostPrice      *float64
	Unit           string
	Weight         *float64
	Actor          string
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	Search     string
	ActiveOnly bool
	Page       int
	PerPage    int
}

// LineSnapshot is everything the quote path needs for one line.
type LineSnapshot struct {
	ProductID int64
	VariantID *int64
	Prices    pricing.PriceSet
	Scope     pricing.RuleScope
	Weight    float64
}

// merge overlays variant overrides on the parent price set. The unit has
// already been normalized against the parent at write time.
func (v Variant) merge(p Product) (pricing.PriceSet, float64) {
	prices := p.Prices
	if v.BasePrice != nil {
		prices.BasePrice = *v.BasePrice
	}
	if v.SalePrice != nil {
		prices.SalePrice = v.SalePrice
	}
	if v.WholesalePrice != nil {
		prices.WholesalePrice = v.WholesalePrice
	}
	if v.GSAPrice != nil {
		prices.GSAPrice = v.GSAPrice
	}
	if v.CostPrice != nil {
		prices.CostPrice = v.CostPrice
	}
	weight := p.Weight
	if v.Weight != nil {
		weight = *v.Weight
	}
	return prices, weight
}
