package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gearhaus/gearhaus/internal/pricing"
)

type mockRepository struct {
	products      map[int64]Product
	variants      map[int64]Variant
	nextProductID int64
	nextVariantID int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		products:      make(map[int64]Product),
		variants:      make(map[int64]Variant),
		nextProductID: 1,
		nextVariantID: 1,
	}
}

func (m *mockRepository) InsertProduct(ctx context.Context, p Product) (int64, error) {
	for _, existing := range m.products {
		if existing.SKU == p.SKU {
			return 0, ErrSKUTaken
		}
	}
	id := m.nextProductID
	m.nextProductID++
	p.ID = id
	m.products[id] = p
	return id, nil
}

func (m *mockRepository) UpdateProduct(ctx context.Context, p Product) error {
	if _, ok := m.products[p.ID]; !ok {
		return ErrNotFound
	}
	m.products[p.ID] = p
	return nil
}

func (m *mockRepository) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (m *mockRepository) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, int, error) {
	var out []Product
	for _, p := range m.products {
		if filter.ActiveOnly && !p.IsActive {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *mockRepository) InsertVariant(ctx context.Context, v Variant) (int64, error) {
	id := m.nextVariantID
	m.nextVariantID++
	v.ID = id
	m.variants[id] = v
	return id, nil
}

func (m *mockRepository) GetVariant(ctx context.Context, id int64) (Variant, error) {
	v, ok := m.variants[id]
	if !ok {
		return Variant{}, ErrNotFound
	}
	return v, nil
}

func (m *mockRepository) ListVariants(ctx context.Context, productID int64) ([]Variant, error) {
	var out []Variant
	for _, v := range m.variants {
		if v.ProductID == productID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *mockRepository) CountVariants(ctx context.Context, productID int64) (int, error) {
	n := 0
	for _, v := range m.variants {
		if v.ProductID == productID {
			n++
		}
	}
	return n, nil
}

func ptr[T any](v T) *T { return &v }

func newTestService() (*Service, *mockRepository) {
	repo := newMockRepository()
	return NewService(repo, nil, nil), repo
}

func productInput(sku, unit string) CreateProductInput {
	return CreateProductInput{
		SKU:  sku,
		Name: "Work Gloves",
		Prices: pricing.PriceSet{
			BasePrice: 24.99,
			CostPrice: ptr(11.0),
			Unit:      pricing.PriceUnit(unit),
		},
		Weight: 0.5,
	}
}

func TestCreateProductCanonicalizesUnit(t *testing.T) {
	svc, _ := newTestService()

	product, err := svc.CreateProduct(context.Background(), productInput("glv-01", "PR"))
	require.NoError(t, err)
	assert.Equal(t, pricing.UnitPair, product.Prices.Unit)
	assert.Equal(t, "GLV-01", product.SKU)
}

func TestCreateProductUnknownUnit(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CreateProduct(context.Background(), productInput("glv-02", "bundle"))
	require.ErrorIs(t, err, pricing.ErrUnknownUnit)
}

func TestCreateProductInvalidPrices(t *testing.T) {
	svc, _ := newTestService()

	input := productInput("glv-03", "each")
	input.Prices.SalePrice = ptr(30.0)
	_, err := svc.CreateProduct(context.Background(), input)
	require.ErrorIs(t, err, pricing.ErrInvalidPriceSet)
}

func TestCreateVariantInheritsUnit(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, productInput("glv-04", "pair"))
	require.NoError(t, err)

	variant, err := svc.CreateVariant(ctx, product.ID, CreateVariantInput{SKU: "glv-04-l"})
	require.NoError(t, err)
	assert.Equal(t, "pair", variant.Unit)
}

func TestCreateVariantAliasOfParentUnitAccepted(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, productInput("glv-05", "pair"))
	require.NoError(t, err)

	variant, err := svc.CreateVariant(ctx, product.ID, CreateVariantInput{SKU: "glv-05-l", Unit: "PR"})
	require.NoError(t, err)
	assert.Equal(t, "pair", variant.Unit)
}

func TestCreateVariantUnitMismatchRejected(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, productInput("glv-06", "dozen"))
	require.NoError(t, err)

	_, err = svc.CreateVariant(ctx, product.ID, CreateVariantInput{SKU: "glv-06-l", Unit: "pr"})
	var mismatch *pricing.UnitMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, product.ID, mismatch.ProductID)
}

func TestUpdateProductUnitLockedByVariants(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, productInput("glv-07", "pair"))
	require.NoError(t, err)
	_, err = svc.CreateVariant(ctx, product.ID, CreateVariantInput{SKU: "glv-07-l"})
	require.NoError(t, err)

	prices := product.Prices
	prices.Unit = pricing.UnitCase
	_, err = svc.UpdateProduct(ctx, product.ID, UpdateProductInput{Prices: &prices})
	require.ErrorIs(t, err, ErrUnitLocked)

	// Alias of the current unit is not a change.
	prices.Unit = "PR"
	updated, err := svc.UpdateProduct(ctx, product.ID, UpdateProductInput{Prices: &prices})
	require.NoError(t, err)
	assert.Equal(t, pricing.UnitPair, updated.Prices.Unit)
}

func TestLineSnapshotMergesVariantOverrides(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	catID := int64(9)
	input := productInput("glv-08", "pair")
	input.CategoryID = &catID
	product, err := svc.CreateProduct(ctx, input)
	require.NoError(t, err)

	variant, err := svc.CreateVariant(ctx, product.ID, CreateVariantInput{
		SKU:       "glv-08-xl",
		BasePrice: ptr(29.99),
		Weight:    ptr(0.7),
	})
	require.NoError(t, err)

	snap, err := svc.LineSnapshotFor(ctx, product.ID, &variant.ID)
	require.NoError(t, err)
	assert.Equal(t, 29.99, snap.Prices.BasePrice)
	assert.Equal(t, ptr(11.0), snap.Prices.CostPrice)
	assert.Equal(t, 0.7, snap.Weight)
	require.NotNil(t, snap.Scope.CategoryID)
	assert.Equal(t, catID, *snap.Scope.CategoryID)
}

func TestLineSnapshotVariantOfOtherProduct(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first, err := svc.CreateProduct(ctx, productInput("glv-09", "pair"))
	require.NoError(t, err)
	second, err := svc.CreateProduct(ctx, productInput("glv-10", "pair"))
	require.NoError(t, err)

	variant, err := svc.CreateVariant(ctx, first.ID, CreateVariantInput{SKU: "glv-09-l"})
	require.NoError(t, err)

	_, err = svc.LineSnapshotFor(ctx, second.ID, &variant.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLineSnapshotWithoutVariant(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, productInput("glv-11", "cs"))
	require.NoError(t, err)

	snap, err := svc.LineSnapshotFor(ctx, product.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, pricing.UnitCase, snap.Prices.Unit)
	assert.Equal(t, 24.99, snap.Prices.BasePrice)
}
