package promotions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gearhaus/gearhaus/internal/platform/db"
	"github.com/gearhaus/gearhaus/internal/pricing"
)

// Repository persists flash sales in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, sale Sale) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO flash_sales (id, name, status, priority, starts_at, ends_at, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			sale.ID, sale.Name, string(sale.Status), sale.Priority, sale.StartsAt, sale.EndsAt,
			sale.IsActive, sale.CreatedAt, sale.UpdatedAt)
		if err != nil {
			return fmt.Errorf("promotions: insert sale: %w", err)
		}
		for _, item := range sale.Items {
			if err := insertItem(ctx, tx, sale.ID, item); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) Update(ctx context.Context, sale Sale) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE flash_sales
		SET name = $2, priority = $3, starts_at = $4, ends_at = $5, updated_at = $6
		WHERE id = $1`,
		sale.ID, sale.Name, sale.Priority, sale.StartsAt, sale.EndsAt, sale.UpdatedAt)
	if err != nil {
		return fmt.Errorf("promotions: update sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status pricing.PromotionStatus, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE flash_sales SET status = $2, updated_at = $3 WHERE id = $1`,
		id, string(status), at)
	if err != nil {
		return fmt.Errorf("promotions: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Sale, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, status, priority, starts_at, ends_at, is_active, created_at, updated_at
		FROM flash_sales WHERE id = $1`, id)
	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, ErrNotFound
		}
		return Sale{}, fmt.Errorf("promotions: get sale: %w", err)
	}
	items, err := r.loadItems(ctx, []uuid.UUID{id})
	if err != nil {
		return Sale{}, err
	}
	sale.Items = items[id]
	return sale, nil
}

func (r *Repository) List(ctx context.Context, filter SaleFilter) ([]Sale, int, error) {
	where := `WHERE ($1 = '' OR status = $1)`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM flash_sales `+where, filter.Status).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("promotions: count sales: %w", err)
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
		SELECT id, name, status, priority, starts_at, ends_at, is_active, created_at, updated_at
		FROM flash_sales `+where+`
		ORDER BY starts_at DESC
		LIMIT $2 OFFSET $3`,
		filter.Status, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("promotions: list sales: %w", err)
	}
	defer rows.Close()

	var sales []Sale
	var ids []uuid.UUID
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("promotions: scan sale: %w", err)
		}
		sales = append(sales, sale)
		ids = append(ids, sale.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range sales {
		sales[i].Items = items[sales[i].ID]
	}
	return sales, total, nil
}

func (r *Repository) AddItem(ctx context.Context, saleID uuid.UUID, item pricing.PromotionItem) error {
	return insertItemPool(ctx, r.pool, saleID, item)
}

func (r *Repository) RemoveItem(ctx context.Context, saleID uuid.UUID, productID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM flash_sale_items WHERE sale_id = $1 AND product_id = $2`,
		saleID, productID)
	if err != nil {
		return fmt.Errorf("promotions: remove item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Snapshot loads every sale the quote path may apply. SCHEDULED sales are
// included so a snapshot cached just before activation still misses nothing
// after the rollover flips them; the engine filters by status and window.
func (r *Repository) Snapshot(ctx context.Context) ([]pricing.Promotion, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, status, priority, starts_at, ends_at, is_active, created_at, updated_at
		FROM flash_sales
		WHERE is_active AND status IN ('SCHEDULED', 'ACTIVE')`)
	if err != nil {
		return nil, fmt.Errorf("promotions: snapshot: %w", err)
	}
	defer rows.Close()

	var promos []pricing.Promotion
	var ids []uuid.UUID
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("promotions: scan sale: %w", err)
		}
		promos = append(promos, sale.Promotion)
		ids = append(ids, sale.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range promos {
		promos[i].Items = items[promos[i].ID]
	}
	return promos, nil
}

func (r *Repository) Rollover(ctx context.Context, now time.Time) (activated, ended int64, err error) {
	err = db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE flash_sales SET status = 'ACTIVE', updated_at = $1
			WHERE status = 'SCHEDULED' AND is_active AND starts_at <= $1 AND ends_at > $1`, now)
		if err != nil {
			return fmt.Errorf("promotions: activate due sales: %w", err)
		}
		activated = tag.RowsAffected()

		tag, err = tx.Exec(ctx, `
			UPDATE flash_sales SET status = 'ENDED', updated_at = $1
			WHERE status IN ('SCHEDULED', 'ACTIVE') AND ends_at <= $1`, now)
		if err != nil {
			return fmt.Errorf("promotions: end past sales: %w", err)
		}
		ended = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return activated, ended, nil
}

func (r *Repository) loadItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]pricing.PromotionItem, error) {
	out := make(map[uuid.UUID][]pricing.PromotionItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT sale_id, product_id, discount_type, discount_value, is_active, sort_order
		FROM flash_sale_items
		WHERE sale_id = ANY($1)
		ORDER BY sort_order, product_id`, ids)
	if err != nil {
		return nil, fmt.Errorf("promotions: load items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var saleID uuid.UUID
		var item pricing.PromotionItem
		var discountType string
		if err := rows.Scan(&saleID, &item.ProductID, &discountType, &item.DiscountValue, &item.IsActive, &item.SortOrder); err != nil {
			return nil, fmt.Errorf("promotions: scan item: %w", err)
		}
		item.DiscountType = pricing.DiscountType(discountType)
		out[saleID] = append(out[saleID], item)
	}
	return out, rows.Err()
}

func insertItem(ctx context.Context, tx pgx.Tx, saleID uuid.UUID, item pricing.PromotionItem) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO flash_sale_items (sale_id, product_id, discount_type, discount_value, is_active, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		saleID, item.ProductID, string(item.DiscountType), item.DiscountValue, item.IsActive, item.SortOrder)
	if err != nil {
		return fmt.Errorf("promotions: insert item: %w", err)
	}
	return nil
}

func insertItemPool(ctx context.Context, pool *pgxpool.Pool, saleID uuid.UUID, item pricing.PromotionItem) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO flash_sale_items (sale_id, product_id, discount_type, discount_value, is_active, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		saleID, item.ProductID, string(item.DiscountType), item.DiscountValue, item.IsActive, item.SortOrder)
	if err != nil {
		return fmt.Errorf("promotions: insert item: %w", err)
	}
	return nil
}

func scanSale(row pgx.Row) (Sale, error) {
	var sale Sale
	var status string
	err := row.Scan(&sale.ID, &sale.Name, &status, &sale.Priority, &sale.StartsAt, &sale.EndsAt,
		&sale.IsActive, &sale.CreatedAt, &sale.UpdatedAt)
	if err != nil {
		return Sale{}, err
	}
	sale.Status = pricing.PromotionStatus(status)
	return sale, nil
}
