package discounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gearhaus/gearhaus/internal/pricing"
)

// Repository persists discount rules in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const ruleColumns = `id, account_type, discount_percentage, minimum_order_amount, is_active,
	category_id, brand_id, supplier_id, warehouse_id, created_at, updated_at`

func (r *Repository) Insert(ctx context.Context, rule Rule) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO discount_rules (id, account_type, discount_percentage, minimum_order_amount, is_active,
			category_id, brand_id, supplier_id, warehouse_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rule.ID, string(rule.AccountType), rule.DiscountPercentage, rule.MinimumOrderAmount, rule.IsActive,
		rule.CategoryID, rule.BrandID, rule.SupplierID, rule.WarehouseID, rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("discounts: insert rule: %w", err)
	}
	return nil
}

func (r *Repository) Update(ctx context.Context, rule Rule) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE discount_rules
		SET discount_percentage = $2, minimum_order_amount = $3, is_active = $4, updated_at = $5
		WHERE id = $1`,
		rule.ID, rule.DiscountPercentage, rule.MinimumOrderAmount, rule.IsActive, rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("discounts: update rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Rule, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+ruleColumns+` FROM discount_rules WHERE id = $1`, id)
	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rule{}, ErrNotFound
		}
		return Rule{}, fmt.Errorf("discounts: get rule: %w", err)
	}
	return rule, nil
}

func (r *Repository) List(ctx context.Context, filter RuleFilter) ([]Rule, int, error) {
	where := `WHERE ($1 = '' OR account_type = $1) AND (NOT $2 OR is_active)`
	accountType := ""
	if filter.AccountType != "" {
		accountType = string(pricing.NormalizeAccountType(filter.AccountType))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM discount_rules `+where, accountType, filter.ActiveOnly).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("discounts: count rules: %w", err)
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
		SELECT `+ruleColumns+` FROM discount_rules `+where+`
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		accountType, filter.ActiveOnly, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("discounts: list rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("discounts: scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, total, rows.Err()
}

func (r *Repository) ActiveGlobalExists(ctx context.Context, accountType pricing.AccountType, excludeID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM discount_rules
			WHERE account_type = $1 AND is_active
			  AND category_id IS NULL AND brand_id IS NULL AND supplier_id IS NULL AND warehouse_id IS NULL
			  AND id <> $2
		)`, string(accountType), excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("discounts: check global rule: %w", err)
	}
	return exists, nil
}

func (r *Repository) ActiveRules(ctx context.Context, accountType pricing.AccountType) ([]pricing.DiscountRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+ruleColumns+` FROM discount_rules
		WHERE account_type = $1 AND is_active`, string(accountType))
	if err != nil {
		return nil, fmt.Errorf("discounts: active rules: %w", err)
	}
	defer rows.Close()

	var rules []pricing.DiscountRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("discounts: scan rule: %w", err)
		}
		rules = append(rules, rule.DiscountRule)
	}
	return rules, rows.Err()
}

func scanRule(row pgx.Row) (Rule, error) {
	var rule Rule
	var accountType string
	err := row.Scan(&rule.ID, &accountType, &rule.DiscountPercentage, &rule.MinimumOrderAmount, &rule.IsActive,
		&rule.CategoryID, &rule.BrandID, &rule.SupplierID, &rule.WarehouseID, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return Rule{}, err
	}
	rule.AccountType = pricing.AccountType(accountType)
	return rule, nil
}
