package pricing

import "time"

// GiftCardState classifies the outcome of a ledger check.
type GiftCardState string

const (
	GiftCardValid       GiftCardState = "VALID"
	GiftCardExpired     GiftCardState = "EXPIRED"
	GiftCardInactive    GiftCardState = "INACTIVE"
	GiftCardZeroBalance GiftCardState = "ZERO_BALANCE"
)

// GiftCardStatus is the read-only result of validating a stored-value code.
type GiftCardStatus struct {
	State         GiftCardState `json:"state"`
	Balance       float64       `json:"balance,omitempty"`
	InitialAmount float64       `json:"initial_amount,omitempty"`
	ExpiresAt     *time.Time    `json:"expires_at,omitempty"`
	MinPurchase   *float64      `json:"min_purchase,omitempty"`
}

// Redeemable reports whether any balance can be drawn from the card.
func (s GiftCardStatus) Redeemable() bool {
	return s.State == GiftCardValid
}

// CheckGiftCard validates a fetched gift card row without mutating anything.
// Expiry is checked before activation and balance so that an expired card
// reports EXPIRED regardless of remaining funds. Balance debiting is the
// order-finalization collaborator's job and must re-validate transactionally
// right before the debit.
func CheckGiftCard(card GiftCard, now time.Time) GiftCardStatus {
	if card.ExpiresAt != nil && !card.ExpiresAt.After(now) {
		return GiftCardStatus{State: GiftCardExpired, ExpiresAt: card.ExpiresAt}
	}
	if !card.IsActive || card.Status != "ACTIVE" {
		return GiftCardStatus{State: GiftCardInactive}
	}
	if card.CurrentBalance <= 0 {
		return GiftCardStatus{State: GiftCardZeroBalance}
	}
	return GiftCardStatus{
		State:         GiftCardValid,
		Balance:       card.CurrentBalance,
		InitialAmount: card.InitialAmount,
		ExpiresAt:     card.ExpiresAt,
		MinPurchase:   card.MinPurchase,
	}
}
