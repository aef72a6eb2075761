// Package quote assembles checkout price quotes. Every number in a quote is
// computed server-side from stored snapshots; client-supplied prices and
// shipping costs are never trusted.
package quote

import (
	"errors"
	"math"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gearhaus/gearhaus/internal/pricing"
)

var (
	// ErrEmptyQuote indicates a request without line items.
	ErrEmptyQuote = errors.New("quote: no line items")
	// ErrTooManyLines indicates a request over the line item cap.
	ErrTooManyLines = errors.New("quote: too many line items")
	// ErrInvalidQuantity indicates a non-positive line quantity.
	ErrInvalidQuantity = errors.New("quote: quantity must be positive")
	// ErrLineNotFound indicates a line referencing a missing product or variant.
	ErrLineNotFound = errors.New("quote: line item not found")
	// ErrCouponNotFound indicates an unknown coupon code.
	ErrCouponNotFound = errors.New("quote: coupon not found")
	// ErrCouponNotApplicable indicates a known coupon that does not apply to
	// this order, typically because the minimum spend is not met.
	ErrCouponNotApplicable = errors.New("quote: coupon not applicable")
	// ErrGiftCardNotFound indicates an unknown gift card code.
	ErrGiftCardNotFound = errors.New("quote: gift card not found")
	// ErrGiftCardNotRedeemable indicates a gift card that cannot cover any part
	// of the order.
	ErrGiftCardNotRedeemable = errors.New("quote: gift card not redeemable")
	// ErrGiftCardMinPurchase indicates the order total is below the card's
	// minimum purchase amount.
	ErrGiftCardMinPurchase = errors.New("quote: order below gift card minimum purchase")
)

// maxQuoteLines caps a single request. Carts larger than this are split by
// the storefront before quoting.
const maxQuoteLines = 50

// LineInput identifies one cart line to price.
type LineInput struct {
	ProductID int64
	VariantID *int64
	Quantity  int
}

// QuoteInput is everything the service needs to price an order.
type QuoteInput struct {
	Lines        []LineInput
	CouponCode   string
	GiftCardCode string
	AccountType  pricing.AccountType
}

// Coupon extends the engine snapshot with the shipping flag stored alongside
// the code.
type Coupon struct {
	pricing.Coupon
	FreeShipping bool `json:"free_shipping"`
}

// Line is the priced result for one cart line.
type Line struct {
	ProductID          int64                      `json:"product_id"`
	VariantID          *int64                     `json:"variant_id,omitempty"`
	Quantity           int                        `json:"quantity"`
	Unit               pricing.PriceUnit          `json:"price_unit"`
	Breakdown          pricing.LinePriceBreakdown `json:"breakdown"`
	LineTotal          float64                    `json:"line_total"`
	FormattedUnitPrice string                     `json:"formatted_unit_price"`
	FormattedLineTotal string                     `json:"formatted_line_total"`
}

// Quote is the full priced order.
type Quote struct {
	AccountType       pricing.AccountType   `json:"account_type"`
	Lines             []Line                `json:"lines"`
	Subtotal          float64               `json:"subtotal"`
	DiscountTotal     float64               `json:"discount_total"`
	Shipping          pricing.ShippingQuote `json:"shipping"`
	GiftCardApplied   float64               `json:"gift_card_applied,omitempty"`
	GiftCardRemaining float64               `json:"gift_card_remaining,omitempty"`
	Total             float64               `json:"total"`
	FormattedSubtotal string                `json:"formatted_subtotal"`
	FormattedShipping string                `json:"formatted_shipping"`
	FormattedTotal    string                `json:"formatted_total"`
}

// moneyFormatter renders amounts for the configured currency and locale.
type moneyFormatter struct {
	printer *message.Printer
	unit    currency.Unit
}

func newMoneyFormatter(currencyCode, locale string) moneyFormatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.AmericanEnglish
	}
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		unit = currency.USD
	}
	return moneyFormatter{printer: message.NewPrinter(tag), unit: unit}
}

func (f moneyFormatter) format(v float64) string {
	return f.printer.Sprint(currency.NarrowSymbol(f.unit.Amount(v)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
