package catalog

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gearhaus/gearhaus/internal/pricing"
	"github.com/gearhaus/gearhaus/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	InsertProduct(ctx context.Context, p Product) (int64, error)
	UpdateProduct(ctx context.Context, p Product) error
	GetProduct(ctx context.Context, id int64) (Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, int, error)
	InsertVariant(ctx context.Context, v Variant) (int64, error)
	GetVariant(ctx context.Context, id int64) (Variant, error)
	ListVariants(ctx context.Context, productID int64) ([]Variant, error)
	CountVariants(ctx context.Context, productID int64) (int, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates catalog operations.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// CreateProduct validates and stores a new product. The unit is canonicalized
// before storage so downstream code never sees aliases.
func (s *Service) CreateProduct(ctx context.Context, input CreateProductInput) (Product, error) {
	unit, err := pricing.ParseUnit(string(input.Prices.Unit))
	if err != nil {
		return Product{}, err
	}
	input.Prices.Unit = unit
	if err := input.Prices.Validate(); err != nil {
		return Product{}, err
	}
	if input.Weight < 0 {
		return Product{}, ErrInvalidWeight
	}
	now := time.Now().UTC()
	product := Product{
		SKU:         strings.ToUpper(strings.TrimSpace(input.SKU)),
		Name:        input.Name,
		CategoryID:  input.CategoryID,
		BrandID:     input.BrandID,
		SupplierID:  input.SupplierID,
		WarehouseID: input.WarehouseID,
		Prices:      input.Prices,
		Weight:      input.Weight,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	id, err := s.repo.InsertProduct(ctx, product)
	if err != nil {
		return Product{}, err
	}
	product.ID = id
	s.recordAudit(ctx, input.Actor, "product.created", product.ID, map[string]any{
		"sku":  product.SKU,
		"unit": string(product.Prices.Unit),
	})
	return product, nil
}

// UpdateProduct applies partial updates. The price unit is immutable once
// variants reference the product.
func (s *Service) UpdateProduct(ctx context.Context, id int64, input UpdateProductInput) (Product, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if input.Name != nil {
		product.Name = *input.Name
	}
	if input.Prices != nil {
		prices := *input.Prices
		unit, err := pricing.ParseUnit(string(prices.Unit))
		if err != nil {
			return Product{}, err
		}
		prices.Unit = unit
		if unit != product.Prices.Unit {
			variants, err := s.repo.CountVariants(ctx, id)
			if err != nil {
				return Product{}, err
			}
			if variants > 0 {
				return Product{}, ErrUnitLocked
			}
		}
		if err := prices.Validate(); err != nil {
			return Product{}, err
		}
		product.Prices = prices
	}
	if input.Weight != nil {
		if *input.Weight < 0 {
			return Product{}, ErrInvalidWeight
		}
		product.Weight = *input.Weight
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	product.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return Product{}, err
	}
	s.recordAudit(ctx, input.Actor, "product.updated", product.ID, map[string]any{
		"sku": product.SKU,
	})
	return product, nil
}

// GetProduct fetches a product.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// ListProducts returns products matching the filter.
func (s *Service) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, shared.Pagination, error) {
	products, total, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return products, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// CreateVariant validates and stores a variant. The variant's unit must
// resolve to the parent's canonical unit; a disagreement is rejected here so
// quoting never has to repair one.
func (s *Service) CreateVariant(ctx context.Context, productID int64, input CreateVariantInput) (Variant, error) {
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return Variant{}, err
	}
	unit, err := pricing.NormalizeUnit(productID, 0, string(product.Prices.Unit), input.Unit)
	if err != nil {
		return Variant{}, err
	}
	if input.Weight != nil && *input.Weight < 0 {
		return Variant{}, ErrInvalidWeight
	}
	now := time.Now().UTC()
	variant := Variant{
		ProductID:      productID,
		SKU:            strings.ToUpper(strings.TrimSpace(input.SKU)),
		Name:           input.Name,
		BasePrice:      input.BasePrice,
		SalePrice:      input.SalePrice,
		WholesalePrice: input.WholesalePrice,
		GSAPrice:       input.GSAPrice,
		CostPrice:      input.CostPrice,
		Unit:           string(unit),
		Weight:         input.Weight,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	merged, _ := variant.merge(product)
	if err := merged.Validate(); err != nil {
		return Variant{}, err
	}
	id, err := s.repo.InsertVariant(ctx, variant)
	if err != nil {
		return Variant{}, err
	}
	variant.ID = id
	s.recordAudit(ctx, input.Actor, "variant.created", variant.ID, map[string]any{
		"product_id": productID,
		"sku":        variant.SKU,
	})
	return variant, nil
}

// ListVariants returns a product's variants.
func (s *Service) ListVariants(ctx context.Context, productID int64) ([]Variant, error) {
	if _, err := s.repo.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.repo.ListVariants(ctx, productID)
}

// LineSnapshotFor resolves the effective price set, scope and weight for a
// quote line. Stored units are canonical, so the normalization here can only
// fail if data predating the write-time checks is still around.
func (s *Service) LineSnapshotFor(ctx context.Context, productID int64, variantID *int64) (LineSnapshot, error) {
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return LineSnapshot{}, err
	}
	snap := LineSnapshot{
		ProductID: productID,
		VariantID: variantID,
		Prices:    product.Prices,
		Scope:     product.Scope(),
		Weight:    product.Weight,
	}
	if variantID == nil {
		return snap, nil
	}
	variant, err := s.repo.GetVariant(ctx, *variantID)
	if err != nil {
		return LineSnapshot{}, err
	}
	if variant.ProductID != productID {
		return LineSnapshot{}, ErrNotFound
	}
	unit, err := pricing.NormalizeUnit(productID, variant.ID, string(product.Prices.Unit), variant.Unit)
	if err != nil {
		return LineSnapshot{}, err
	}
	snap.Prices, snap.Weight = variant.merge(product)
	snap.Prices.Unit = unit
	return snap, nil
}

func (s *Service) recordAudit(ctx context.Context, actor, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   action,
		Entity:   "catalog",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
