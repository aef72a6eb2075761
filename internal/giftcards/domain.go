// Package giftcards manages stored-value card issuance, balance checks and
// redemption.
package giftcards

import (
	"crypto/rand"
	"errors"
	"strings"
	"time"

	"github.com/gearhaus/gearhaus/internal/pricing"
)

var (
	// ErrNotFound indicates a missing card.
	ErrNotFound = errors.New("giftcards: card not found")
	// ErrCodeTaken indicates the requested code already exists.
	ErrCodeTaken = errors.New("giftcards: code already exists")
	// ErrNotRedeemable indicates the card cannot cover a redemption.
	ErrNotRedeemable = errors.New("giftcards: card not redeemable")
	// ErrInvalidAmount indicates a non-positive amount.
	ErrInvalidAmount = errors.New("giftcards: amount must be positive")
	// ErrDuplicateRedemption indicates a replayed idempotency key.
	ErrDuplicateRedemption = errors.New("giftcards: redemption already processed")
)

// Card is the stored representation of a gift card.
type Card struct {
	pricing.GiftCard
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateCardInput describes a new gift card. Code is generated when empty.
type CreateCardInput struct {
	Code          string
	InitialAmount float64
	ExpiresAt     *time.Time
	MinPurchase   *float64
	Actor         string
}

// CardFilter narrows card listings.
type CardFilter struct {
	ActiveOnly bool
	Page       int
	PerPage    int
}

// Redemption is the result of a successful redemption.
type Redemption struct {
	Code             string  `json:"code"`
	AmountRedeemed   float64 `json:"amount_redeemed"`
	RemainingBalance float64 `json:"remaining_balance"`
}

// NormalizeCode uppercases and trims a card code. Lookups are always done on
// the normalized form.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// generateCode produces a 16-character code from an unambiguous alphabet.
func generateCode() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf)
}
