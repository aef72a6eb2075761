package pricing

import "testing"

func TestCalculateShipping(t *testing.T) {
	cases := []struct {
		name       string
		subtotal   float64
		weight     float64
		freeCoupon bool
		wantCost   float64
		wantMethod string
	}{
		{"free coupon overrides everything", 10, 50, true, 0, "Free Shipping (Coupon)"},
		{"subtotal at threshold", 99, 5, false, 0, "Free Standard Shipping"},
		{"subtotal above threshold", 120, 5, false, 0, "Free Standard Shipping"},
		{"heavy order below threshold", 50, 25, false, 35, "Heavy Freight"},
		{"free threshold checked before weight", 120, 25, false, 0, "Free Standard Shipping"},
		{"weight at boundary is standard", 50, 20, false, 15, "Standard Shipping"},
		{"default", 50, 5, false, 15, "Standard Shipping"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			quote := CalculateShipping(tc.subtotal, tc.weight, tc.freeCoupon)
			if quote.Cost != tc.wantCost {
				t.Fatalf("cost: want %.2f, got %.2f", tc.wantCost, quote.Cost)
			}
			if quote.Method != tc.wantMethod {
				t.Fatalf("method: want %q, got %q", tc.wantMethod, quote.Method)
			}
			if quote.EstimatedDaysMin <= 0 || quote.EstimatedDaysMax < quote.EstimatedDaysMin {
				t.Fatalf("invalid delivery estimate: %+v", quote)
			}
		})
	}
}
