package pricing

import "time"

// ResolvePromotion finds the winning flash-sale effect for a product at now.
// Only promotions inside their window with ACTIVE status are considered, and
// only when they carry an active item for the product. When several qualify,
// the highest priority wins; ties break to the most recently created
// promotion. Returns nil when no promotion applies.
func ResolvePromotion(promos []Promotion, productID int64, now time.Time) *PromotionEffect {
	var (
		winner     *Promotion
		winnerItem PromotionItem
	)
	for i := range promos {
		p := &promos[i]
		if !p.Applicable(now) {
			continue
		}
		item, ok := activeItem(p, productID)
		if !ok {
			continue
		}
		if winner == nil ||
			p.Priority > winner.Priority ||
			(p.Priority == winner.Priority && p.CreatedAt.After(winner.CreatedAt)) {
			winner = p
			winnerItem = item
		}
	}
	if winner == nil {
		return nil
	}
	return &PromotionEffect{
		PromotionID:   winner.ID,
		DiscountType:  winnerItem.DiscountType,
		DiscountValue: winnerItem.DiscountValue,
		Priority:      winner.Priority,
	}
}

func activeItem(p *Promotion, productID int64) (PromotionItem, bool) {
	for _, item := range p.Items {
		if item.IsActive && item.ProductID == productID {
			return item, true
		}
	}
	return PromotionItem{}, false
}
