package pricing

// specificity orders scope levels; higher wins over lower, global is lowest.
var specificity = map[DiscountSource]int{
	SourceCategory:  4,
	SourceBrand:     3,
	SourceSupplier:  2,
	SourceWarehouse: 1,
	SourceGlobal:    0,
}

// match reports the scope level a rule applies at for the given line item,
// or false when the rule does not apply at all.
func (r DiscountRule) match(scope RuleScope) (DiscountSource, bool) {
	switch {
	case r.CategoryID != nil:
		if scope.CategoryID != nil && *scope.CategoryID == *r.CategoryID {
			return SourceCategory, true
		}
	case r.BrandID != nil:
		if scope.BrandID != nil && *scope.BrandID == *r.BrandID {
			return SourceBrand, true
		}
	case r.SupplierID != nil:
		if scope.SupplierID != nil && *scope.SupplierID == *r.SupplierID {
			return SourceSupplier, true
		}
	case r.WarehouseID != nil:
		if scope.WarehouseID != nil && *scope.WarehouseID == *r.WarehouseID {
			return SourceWarehouse, true
		}
	default:
		return SourceGlobal, true
	}
	return "", false
}

// ResolveDiscount selects the single most specific active rule for the
// account type. Rules never stack; ties at the same scope level resolve to
// the higher percentage. A minimum-order gate that is not met disqualifies
// the rule entirely. Returns nil when no rule applies.
func ResolveDiscount(rules []DiscountRule, accountType AccountType, scope RuleScope, subtotal float64) *DiscountResult {
	var best *DiscountResult
	bestLevel := -1
	for _, rule := range rules {
		if !rule.IsActive || rule.AccountType != accountType {
			continue
		}
		if rule.Validate() != nil {
			continue
		}
		if rule.MinimumOrderAmount > 0 && subtotal < rule.MinimumOrderAmount {
			continue
		}
		source, ok := rule.match(scope)
		if !ok {
			continue
		}
		level := specificity[source]
		if level < bestLevel {
			continue
		}
		if level == bestLevel && best != nil && rule.DiscountPercentage <= best.Percentage {
			continue
		}
		best = &DiscountResult{
			RuleID:     rule.ID,
			Percentage: rule.DiscountPercentage,
			Source:     source,
		}
		bestLevel = level
	}
	return best
}
