package giftcards

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists gift cards in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const cardColumns = `code, initial_amount, current_balance, expires_at, min_purchase, is_active, status, created_at, updated_at`

func (r *Repository) Insert(ctx context.Context, card Card) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO gift_cards (code, initial_amount, current_balance, expires_at, min_purchase, is_active, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		card.Code, card.InitialAmount, card.CurrentBalance, card.ExpiresAt, card.MinPurchase,
		card.IsActive, card.Status, card.CreatedAt, card.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrCodeTaken
		}
		return fmt.Errorf("giftcards: insert card: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, code string) (Card, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+cardColumns+` FROM gift_cards WHERE code = $1`, code)
	card, err := scanCard(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Card{}, ErrNotFound
		}
		return Card{}, fmt.Errorf("giftcards: get card: %w", err)
	}
	return card, nil
}

func (r *Repository) List(ctx context.Context, filter CardFilter) ([]Card, int, error) {
	where := `WHERE (NOT $1 OR is_active)`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM gift_cards `+where, filter.ActiveOnly).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("giftcards: count cards: %w", err)
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+cardColumns+` FROM gift_cards `+where+`
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		filter.ActiveOnly, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("giftcards: list cards: %w", err)
	}
	defer rows.Close()

	var cards []Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("giftcards: scan card: %w", err)
		}
		cards = append(cards, card)
	}
	return cards, total, rows.Err()
}

func (r *Repository) SetActive(ctx context.Context, code string, active bool, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE gift_cards SET is_active = $2, updated_at = $3 WHERE code = $1`,
		code, active, at)
	if err != nil {
		return fmt.Errorf("giftcards: set active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Redeem deducts amount in a single conditional UPDATE. The WHERE clause
// carries every redeemability condition, so a concurrent redemption that
// drains the balance simply makes this one match zero rows.
func (r *Repository) Redeem(ctx context.Context, code string, amount float64, now time.Time) (float64, error) {
	var remaining float64
	err := r.pool.QueryRow(ctx, `
		UPDATE gift_cards
		SET current_balance = current_balance - $2, updated_at = $3
		WHERE code = $1
		  AND is_active
		  AND status = 'ACTIVE'
		  AND current_balance >= $2
		  AND (expires_at IS NULL OR expires_at > $3)
		RETURNING current_balance`,
		code, amount, now).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish a missing card from one that failed a condition.
			var exists bool
			if checkErr := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM gift_cards WHERE code = $1)`, code).Scan(&exists); checkErr != nil {
				return 0, fmt.Errorf("giftcards: redeem lookup: %w", checkErr)
			}
			if !exists {
				return 0, ErrNotFound
			}
			return 0, ErrNotRedeemable
		}
		return 0, fmt.Errorf("giftcards: redeem: %w", err)
	}
	return remaining, nil
}

func (r *Repository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE gift_cards
		SET status = 'EXPIRED', updated_at = $1
		WHERE status = 'ACTIVE' AND expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("giftcards: expire due: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanCard(row pgx.Row) (Card, error) {
	var card Card
	err := row.Scan(&card.Code, &card.InitialAmount, &card.CurrentBalance, &card.ExpiresAt, &card.MinPurchase,
		&card.IsActive, &card.Status, &card.CreatedAt, &card.UpdatedAt)
	if err != nil {
		return Card{}, err
	}
	return card, nil
}
