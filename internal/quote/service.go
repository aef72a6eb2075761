package quote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gearhaus/gearhaus/internal/catalog"
	"github.com/gearhaus/gearhaus/internal/giftcards"
	"github.com/gearhaus/gearhaus/internal/pricing"
	"github.com/gearhaus/gearhaus/internal/shared"
)

// CatalogPort resolves the effective price snapshot for a line.
type CatalogPort interface {
	LineSnapshotFor(ctx context.Context, productID int64, variantID *int64) (catalog.LineSnapshot, error)
}

// RulesPort supplies active discount rules for an account type.
type RulesPort interface {
	ActiveRulesFor(ctx context.Context, accountType pricing.AccountType) ([]pricing.DiscountRule, error)
}

// PromotionsPort supplies the current promotion snapshot.
type PromotionsPort interface {
	Snapshot(ctx context.Context) ([]pricing.Promotion, error)
}

// GiftCardPort checks a stored-value code without mutating it.
type GiftCardPort interface {
	Check(ctx context.Context, code string) (pricing.GiftCardStatus, error)
}

// CouponPort looks up a coupon by code.
type CouponPort interface {
	Lookup(ctx context.Context, code string) (Coupon, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort records quote outcomes.
type MetricsPort interface {
	QuoteComputed(flooredLines int)
}

// ServiceParams groups dependencies for NewService.
type ServiceParams struct {
	Catalog    CatalogPort
	Rules      RulesPort
	Promotions PromotionsPort
	GiftCards  GiftCardPort
	Coupons    CouponPort
	Audit      AuditPort
	Metrics    MetricsPort
	Logger     *slog.Logger
	Currency   string
	Locale     string
}

// Service assembles quotes from the catalog, rule, promotion and gift card
// snapshots.
type Service struct {
	catalog    CatalogPort
	rules      RulesPort
	promotions PromotionsPort
	giftCards  GiftCardPort
	coupons    CouponPort
	audit      AuditPort
	metrics    MetricsPort
	logger     *slog.Logger
	money      moneyFormatter
}

// NewService builds Service.
func NewService(params ServiceParams) *Service {
	return &Service{
		catalog:    params.Catalog,
		rules:      params.Rules,
		promotions: params.Promotions,
		giftCards:  params.GiftCards,
		coupons:    params.Coupons,
		audit:      params.Audit,
		metrics:    params.Metrics,
		logger:     params.Logger,
		money:      newMoneyFormatter(params.Currency, params.Locale),
	}
}

// Price computes the full quote for an order. Rules, promotions, coupon, gift
// card and line snapshots are fetched concurrently; the pricing itself is
// pure computation over those snapshots.
func (s *Service) Price(ctx context.Context, input QuoteInput) (Quote, error) {
	if len(input.Lines) == 0 {
		return Quote{}, ErrEmptyQuote
	}
	if len(input.Lines) > maxQuoteLines {
		return Quote{}, ErrTooManyLines
	}
	for _, line := range input.Lines {
		if line.Quantity <= 0 {
			return Quote{}, ErrInvalidQuantity
		}
	}
	accountType := input.AccountType
	if accountType == "" {
		accountType = pricing.AccountPersonal
	}

	var (
		rules    []pricing.DiscountRule
		promos   []pricing.Promotion
		coupon   *Coupon
		giftCard *pricing.GiftCardStatus
	)
	snaps := make([]catalog.LineSnapshot, len(input.Lines))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rules, err = s.rules.ActiveRulesFor(gctx, accountType)
		return err
	})
	g.Go(func() error {
		var err error
		promos, err = s.promotions.Snapshot(gctx)
		return err
	})
	if input.CouponCode != "" {
		g.Go(func() error {
			found, err := s.coupons.Lookup(gctx, input.CouponCode)
			if err != nil {
				return err
			}
			coupon = &found
			return nil
		})
	}
	if input.GiftCardCode != "" {
		g.Go(func() error {
			status, err := s.giftCards.Check(gctx, input.GiftCardCode)
			if err != nil {
				if errors.Is(err, giftcards.ErrNotFound) {
					return ErrGiftCardNotFound
				}
				return err
			}
			giftCard = &status
			return nil
		})
	}
	for i, line := range input.Lines {
		g.Go(func() error {
			snap, err := s.catalog.LineSnapshotFor(gctx, line.ProductID, line.VariantID)
			if err != nil {
				if errors.Is(err, catalog.ErrNotFound) {
					return fmt.Errorf("%w: product %d", ErrLineNotFound, line.ProductID)
				}
				return err
			}
			snaps[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Quote{}, err
	}

	now := time.Now().UTC()

	// Minimum-order gates evaluate against the undiscounted subtotal so a
	// discount can never disqualify the order that unlocked it.
	baseSubtotal := 0.0
	for i, line := range input.Lines {
		baseSubtotal += snaps[i].Prices.BasePrice * float64(line.Quantity)
	}
	baseSubtotal = round2(baseSubtotal)

	var enginedCoupon *pricing.Coupon
	if coupon != nil {
		if !coupon.Redeemable(baseSubtotal, now) {
			return Quote{}, ErrCouponNotApplicable
		}
		enginedCoupon = &coupon.Coupon
	}

	quote := Quote{
		AccountType: accountType,
		Lines:       make([]Line, 0, len(input.Lines)),
	}
	subtotal := 0.0
	totalWeight := 0.0
	floored := 0
	for i, line := range input.Lines {
		snap := snaps[i]
		breakdown, err := pricing.ComputeLinePrice(pricing.LinePriceInput{
			ProductID:   snap.ProductID,
			Product:     snap.Prices,
			AccountType: accountType,
			Scope:       snap.Scope,
			Rules:       rules,
			Promotions:  promos,
			Coupon:      enginedCoupon,
			Subtotal:    baseSubtotal,
			Now:         now,
		})
		if err != nil {
			return Quote{}, err
		}
		lineTotal := round2(breakdown.FinalUnitPrice * float64(line.Quantity))
		subtotal += lineTotal
		totalWeight += snap.Weight * float64(line.Quantity)
		if breakdown.Floored {
			floored++
			s.recordFloor(ctx, snap, accountType, breakdown.FinalUnitPrice)
		}
		quote.Lines = append(quote.Lines, Line{
			ProductID:          line.ProductID,
			VariantID:          line.VariantID,
			Quantity:           line.Quantity,
			Unit:               snap.Prices.Unit,
			Breakdown:          breakdown,
			LineTotal:          lineTotal,
			FormattedUnitPrice: s.money.format(breakdown.FinalUnitPrice),
			FormattedLineTotal: s.money.format(lineTotal),
		})
	}
	quote.Subtotal = round2(subtotal)
	quote.DiscountTotal = round2(baseSubtotal - quote.Subtotal)

	hasFreeCoupon := coupon != nil && coupon.FreeShipping
	quote.Shipping = pricing.CalculateShipping(quote.Subtotal, totalWeight, hasFreeCoupon)

	total := round2(quote.Subtotal + quote.Shipping.Cost)
	if giftCard != nil {
		if !giftCard.Redeemable() {
			return Quote{}, ErrGiftCardNotRedeemable
		}
		if giftCard.MinPurchase != nil && total < *giftCard.MinPurchase {
			return Quote{}, ErrGiftCardMinPurchase
		}
		applied := giftCard.Balance
		if applied > total {
			applied = total
		}
		quote.GiftCardApplied = round2(applied)
		quote.GiftCardRemaining = round2(giftCard.Balance - applied)
		total = round2(total - applied)
	}
	quote.Total = total
	quote.FormattedSubtotal = s.money.format(quote.Subtotal)
	quote.FormattedShipping = s.money.format(quote.Shipping.Cost)
	quote.FormattedTotal = s.money.format(quote.Total)

	if s.metrics != nil {
		s.metrics.QuoteComputed(floored)
	}
	return quote, nil
}

// recordFloor leaves an audit trail for every line clamped at the cost price
// floor. The floor spike alert runbook starts from these entries.
func (s *Service) recordFloor(ctx context.Context, snap catalog.LineSnapshot, accountType pricing.AccountType, finalPrice float64) {
	if s.audit == nil {
		return
	}
	meta := map[string]any{
		"account_type": string(accountType),
		"final_price":  finalPrice,
	}
	if snap.Prices.CostPrice != nil {
		meta["cost_price"] = *snap.Prices.CostPrice
	}
	if snap.VariantID != nil {
		meta["variant_id"] = *snap.VariantID
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		Action:   "price.floored",
		Entity:   "quote_line",
		EntityID: strconv.FormatInt(snap.ProductID, 10),
		Meta:     meta,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit record failed", slog.String("action", "price.floored"), slog.Any("error", err))
	}
}
