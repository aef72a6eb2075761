package quote

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gearhaus/gearhaus/internal/pricing"
)

// Repository reads coupon codes from PostgreSQL. Coupons are managed by the
// storefront's marketing tooling; this side only consumes them.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Lookup fetches a coupon by its canonical uppercase code.
func (r *Repository) Lookup(ctx context.Context, code string) (Coupon, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	var (
		coupon       Coupon
		discountType string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT code, discount_type, discount_value, min_spend, free_shipping,
			starts_at, expires_at, is_active
		FROM coupons
		WHERE code = $1`, code).Scan(
		&coupon.Code, &discountType, &coupon.Value, &coupon.MinSpend, &coupon.FreeShipping,
		&coupon.StartsAt, &coupon.ExpiresAt, &coupon.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Coupon{}, ErrCouponNotFound
		}
		return Coupon{}, fmt.Errorf("quote: lookup coupon: %w", err)
	}
	coupon.Type = pricing.DiscountType(discountType)
	return coupon, nil
}
