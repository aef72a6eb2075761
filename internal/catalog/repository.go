package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gearhaus/gearhaus/internal/pricing"
)

// Repository persists catalog data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const productColumns = `id, sku, name, category_id, brand_id, supplier_id, warehouse_id,
	base_price, sale_price, wholesale_price, gsa_price, cost_price, price_unit,
	weight, is_active, created_at, updated_at`

func (r *Repository) InsertProduct(ctx context.Context, p Product) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO products (sku, name, category_id, brand_id, supplier_id, warehouse_id,
			base_price, sale_price, wholesale_price, gsa_price, cost_price, price_unit,
			weight, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`,
		p.SKU, p.Name, p.CategoryID, p.BrandID, p.SupplierID, p.WarehouseID,
		p.Prices.BasePrice, p.Prices.SalePrice, p.Prices.WholesalePrice, p.Prices.GSAPrice, p.Prices.CostPrice, string(p.Prices.Unit),
		p.Weight, p.IsActive, p.CreatedAt, p.UpdatedAt).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrSKUTaken
		}
		return 0, fmt.Errorf("catalog: insert product: %w", err)
	}
	return id, nil
}

func (r *Repository) UpdateProduct(ctx context.Context, p Product) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products
		SET name = $2, base_price = $3, sale_price = $4, wholesale_price = $5, gsa_price = $6,
			cost_price = $7, price_unit = $8, weight = $9, is_active = $10, updated_at = $11
		WHERE id = $1`,
		p.ID, p.Name, p.Prices.BasePrice, p.Prices.SalePrice, p.Prices.WholesalePrice, p.Prices.GSAPrice,
		p.Prices.CostPrice, string(p.Prices.Unit), p.Weight, p.IsActive, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("catalog: update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) GetProduct(ctx context.Context, id int64) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("catalog: get product: %w", err)
	}
	return product, nil
}

func (r *Repository) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, int, error) {
	where := `WHERE ($1 = '' OR sku ILIKE '%' || $1 || '%' OR name ILIKE '%' || $1 || '%')
		AND (NOT $2 OR is_active)`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products `+where, filter.Search, filter.ActiveOnly).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("catalog: count products: %w", err)
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
		SELECT `+productColumns+` FROM products `+where+`
		ORDER BY sku
		LIMIT $3 OFFSET $4`,
		filter.Search, filter.ActiveOnly, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("catalog: scan product: %w", err)
		}
		products = append(products, product)
	}
	return products, total, rows.Err()
}

const variantColumns = `id, product_id, sku, name, base_price, sale_price, wholesale_price,
	gsa_price, cost_price, price_unit, weight, is_active, created_at, updated_at`

func (r *Repository) InsertVariant(ctx context.Context, v Variant) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO product_variants (product_id, sku, name, base_price, sale_price, wholesale_price,
			gsa_price, cost_price, price_unit, weight, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		v.ProductID, v.SKU, v.Name, v.BasePrice, v.SalePrice, v.WholesalePrice,
		v.GSAPrice, v.CostPrice, v.Unit, v.Weight, v.IsActive, v.CreatedAt, v.UpdatedAt).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrSKUTaken
		}
		return 0, fmt.Errorf("catalog: insert variant: %w", err)
	}
	return id, nil
}

func (r *Repository) GetVariant(ctx context.Context, id int64) (Variant, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+variantColumns+` FROM product_variants WHERE id = $1`, id)
	variant, err := scanVariant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Variant{}, ErrNotFound
		}
		return Variant{}, fmt.Errorf("catalog: get variant: %w", err)
	}
	return variant, nil
}

func (r *Repository) ListVariants(ctx context.Context, productID int64) ([]Variant, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+variantColumns+` FROM product_variants WHERE product_id = $1 ORDER BY sku`, productID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list variants: %w", err)
	}
	defer rows.Close()

	var variants []Variant
	for rows.Next() {
		variant, err := scanVariant(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan variant: %w", err)
		}
		variants = append(variants, variant)
	}
	return variants, rows.Err()
}

func (r *Repository) CountVariants(ctx context.Context, productID int64) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM product_variants WHERE product_id = $1`, productID).Scan(&n); err != nil {
		return 0, fmt.Errorf("catalog: count variants: %w", err)
	}
	return n, nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var unit string
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.CategoryID, &p.BrandID, &p.SupplierID, &p.WarehouseID,
		&p.Prices.BasePrice, &p.Prices.SalePrice, &p.Prices.WholesalePrice, &p.Prices.GSAPrice, &p.Prices.CostPrice, &unit,
		&p.Weight, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	p.Prices.Unit = pricing.PriceUnit(unit)
	return p, nil
}

func scanVariant(row pgx.Row) (Variant, error) {
	var v Variant
	err := row.Scan(&v.ID, &v.ProductID, &v.SKU, &v.Name, &v.BasePrice, &v.SalePrice, &v.WholesalePrice,
		&v.GSAPrice, &v.CostPrice, &v.Unit, &v.Weight, &v.IsActive, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return Variant{}, err
	}
	return v, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
