// Package discounts manages account-tier discount rule configuration.
package discounts

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/gearhaus/gearhaus/internal/pricing"
)

var (
	// ErrNotFound indicates a missing rule.
	ErrNotFound = errors.New("discounts: rule not found")
	// ErrGlobalRuleExists indicates an active global rule already covers the tier.
	ErrGlobalRuleExists = errors.New("discounts: active global rule already exists for account type")
	// ErrMultipleScopes indicates more than one scope dimension was set.
	ErrMultipleScopes = errors.New("discounts: rule may target at most one scope dimension")
)

// CreateRuleInput describes a new discount rule.
type CreateRuleInput struct {
	AccountType        string
	DiscountPercentage float64
	MinimumOrderAmount float64
	CategoryID         *int64
	BrandID            *int64
	SupplierID         *int64
	WarehouseID        *int64
	Actor              string
}

// UpdateRuleInput describes mutable rule fields. Nil means unchanged.
type UpdateRuleInput struct {
	DiscountPercentage *float64
	MinimumOrderAmount *float64
	IsActive           *bool
	Actor              string
}

// RuleFilter narrows rule listings.
type RuleFilter struct {
	AccountType string
	ActiveOnly  bool
	Page        int
	PerPage     int
}

// Rule is the stored representation of a discount rule.
type Rule struct {
	pricing.DiscountRule
	UpdatedAt time.Time
}

func (in CreateRuleInput) toRule(now time.Time) (Rule, error) {
	r := Rule{
		DiscountRule: pricing.DiscountRule{
			ID:                 uuid.New(),
			AccountType:        pricing.NormalizeAccountType(in.AccountType),
			DiscountPercentage: in.DiscountPercentage,
			MinimumOrderAmount: in.MinimumOrderAmount,
			IsActive:           true,
			CategoryID:         in.CategoryID,
			BrandID:            in.BrandID,
			SupplierID:         in.SupplierID,
			WarehouseID:        in.WarehouseID,
			CreatedAt:          now,
		},
		UpdatedAt: now,
	}
	scopes := 0
	for _, set := range []bool{in.CategoryID != nil, in.BrandID != nil, in.SupplierID != nil, in.WarehouseID != nil} {
		if set {
			scopes++
		}
	}
	if scopes > 1 {
		return Rule{}, ErrMultipleScopes
	}
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}
