package pricing

const freeShippingThreshold = 99.0

const heavyFreightWeight = 20.0

// ShippingQuote is the resolved shipping cost and method for an order.
type ShippingQuote struct {
	Cost             float64 `json:"cost"`
	Method           string  `json:"method"`
	EstimatedDaysMin int     `json:"estimated_days_min"`
	EstimatedDaysMax int     `json:"estimated_days_max"`
}

// CalculateShipping resolves the shipping cost from order facts. The ladder
// is evaluated in priority order and the first match wins; the weight rule is
// only reached when the free-shipping threshold check fails. Shipping cost is
// a trust boundary: it must always be recomputed server-side and never taken
// from a client.
func CalculateShipping(subtotal, totalWeight float64, hasFreeCoupon bool) ShippingQuote {
	switch {
	case hasFreeCoupon:
		return ShippingQuote{Cost: 0, Method: "Free Shipping (Coupon)", EstimatedDaysMin: 5, EstimatedDaysMax: 7}
	case subtotal >= freeShippingThreshold:
		return ShippingQuote{Cost: 0, Method: "Free Standard Shipping", EstimatedDaysMin: 5, EstimatedDaysMax: 7}
	case totalWeight > heavyFreightWeight:
		return ShippingQuote{Cost: 35, Method: "Heavy Freight", EstimatedDaysMin: 7, EstimatedDaysMax: 10}
	default:
		return ShippingQuote{Cost: 15, Method: "Standard Shipping", EstimatedDaysMin: 5, EstimatedDaysMax: 7}
	}
}
