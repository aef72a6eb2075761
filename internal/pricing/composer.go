package pricing

// ComputeLinePrice resolves the final unit price for a single line item.
//
// Channel prices are contractually fixed and take absolute precedence:
// a GOVERNMENT account with a GSA price, or a VOLUME_BUYER account with a
// wholesale price, short-circuits promotional and discount computation.
// Otherwise the sale price, the promotion-adjusted price and the
// account-discounted price are each computed from the base price and the
// minimum wins. A valid coupon is applied last as a subtractive
// adjustment. The result is clamped at the cost price (or zero when absent);
// Floored records that clamping occurred.
func ComputeLinePrice(in LinePriceInput) (LinePriceBreakdown, error) {
	if err := in.Product.Validate(); err != nil {
		return LinePriceBreakdown{}, err
	}

	out := LinePriceBreakdown{
		BasePrice:      in.Product.BasePrice,
		FinalUnitPrice: in.Product.BasePrice,
		AppliedSource:  PriceSourceBase,
	}

	if channel := channelPrice(in.Product, in.AccountType); channel != nil {
		out.FinalUnitPrice = *channel
		out.AppliedSource = PriceSourceChannel
	} else {
		if in.Product.SalePrice != nil && *in.Product.SalePrice < out.FinalUnitPrice {
			out.FinalUnitPrice = *in.Product.SalePrice
			out.AppliedSource = PriceSourceSale
		}
		if effect := ResolvePromotion(in.Promotions, in.ProductID, in.Now); effect != nil {
			if adjusted := effect.Apply(in.Product.BasePrice); adjusted < out.FinalUnitPrice {
				out.FinalUnitPrice = adjusted
				out.AppliedSource = PriceSourcePromotion
				id := effect.PromotionID
				out.AppliedPromotionID = &id
			}
		}
		if result := ResolveDiscount(in.Rules, in.AccountType, in.Scope, in.Subtotal); result != nil {
			discounted := round2(in.Product.BasePrice * (1 - result.Percentage/100))
			if discounted < out.FinalUnitPrice {
				out.FinalUnitPrice = discounted
				out.AppliedSource = PriceSourceAccountDiscount
				id := result.RuleID
				out.AppliedRuleID = &id
				out.AppliedPromotionID = nil
			}
		}
	}

	if in.Coupon != nil && in.Coupon.Redeemable(in.Subtotal, in.Now) {
		var adjustment float64
		switch in.Coupon.Type {
		case DiscountFixed:
			adjustment = in.Coupon.Value
		default:
			adjustment = out.FinalUnitPrice * in.Coupon.Value / 100
		}
		out.CouponAdjustment = round2(adjustment)
		out.FinalUnitPrice -= adjustment
	}

	floor := 0.0
	if in.Product.CostPrice != nil {
		floor = *in.Product.CostPrice
	}
	if out.FinalUnitPrice < floor {
		// BelowCostFloor: clamp and surface for audit, never fail the line.
		if out.CouponAdjustment > 0 {
			out.CouponAdjustment = round2(out.CouponAdjustment - (floor - out.FinalUnitPrice))
			if out.CouponAdjustment < 0 {
				out.CouponAdjustment = 0
			}
		}
		out.FinalUnitPrice = floor
		out.Floored = true
	}
	out.FinalUnitPrice = round2(out.FinalUnitPrice)
	return out, nil
}

// channelPrice returns the contractual price tier for the account, if any.
func channelPrice(p PriceSet, accountType AccountType) *float64 {
	switch accountType {
	case AccountGovernment:
		return p.GSAPrice
	case AccountVolumeBuyer:
		return p.WholesalePrice
	default:
		return nil
	}
}
