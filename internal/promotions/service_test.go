package promotions

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gearhaus/gearhaus/internal/pricing"
	"github.com/gearhaus/gearhaus/internal/shared"
)

type mockRepository struct {
	sales map[uuid.UUID]Sale

	snapshotCalls atomic.Int64
	rolloverRuns  int
}

func newMockRepository() *mockRepository {
	return &mockRepository{sales: make(map[uuid.UUID]Sale)}
}

func (m *mockRepository) Insert(ctx context.Context, sale Sale) error {
	m.sales[sale.ID] = sale
	return nil
}

func (m *mockRepository) Update(ctx context.Context, sale Sale) error {
	if _, ok := m.sales[sale.ID]; !ok {
		return ErrNotFound
	}
	m.sales[sale.ID] = sale
	return nil
}

func (m *mockRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status pricing.PromotionStatus, at time.Time) error {
	sale, ok := m.sales[id]
	if !ok {
		return ErrNotFound
	}
	sale.Status = status
	sale.UpdatedAt = at
	m.sales[id] = sale
	return nil
}

func (m *mockRepository) Get(ctx context.Context, id uuid.UUID) (Sale, error) {
	sale, ok := m.sales[id]
	if !ok {
		return Sale{}, ErrNotFound
	}
	return sale, nil
}

func (m *mockRepository) List(ctx context.Context, filter SaleFilter) ([]Sale, int, error) {
	var out []Sale
	for _, sale := range m.sales {
		if filter.Status != "" && string(sale.Status) != filter.Status {
			continue
		}
		out = append(out, sale)
	}
	return out, len(out), nil
}

func (m *mockRepository) AddItem(ctx context.Context, saleID uuid.UUID, item pricing.PromotionItem) error {
	sale, ok := m.sales[saleID]
	if !ok {
		return ErrNotFound
	}
	sale.Items = append(sale.Items, item)
	m.sales[saleID] = sale
	return nil
}

func (m *mockRepository) RemoveItem(ctx context.Context, saleID uuid.UUID, productID int64) error {
	sale, ok := m.sales[saleID]
	if !ok {
		return ErrNotFound
	}
	kept := sale.Items[:0]
	for _, item := range sale.Items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	sale.Items = kept
	m.sales[saleID] = sale
	return nil
}

func (m *mockRepository) Snapshot(ctx context.Context) ([]pricing.Promotion, error) {
	m.snapshotCalls.Add(1)
	var out []pricing.Promotion
	for _, sale := range m.sales {
		if sale.IsActive && (sale.Status == pricing.PromotionScheduled || sale.Status == pricing.PromotionActive) {
			out = append(out, sale.Promotion)
		}
	}
	return out, nil
}

func (m *mockRepository) Rollover(ctx context.Context, now time.Time) (int64, int64, error) {
	m.rolloverRuns++
	var activated, ended int64
	for id, sale := range m.sales {
		switch {
		case sale.Status == pricing.PromotionScheduled && !now.Before(sale.StartsAt) && now.Before(sale.EndsAt):
			sale.Status = pricing.PromotionActive
			activated++
		case (sale.Status == pricing.PromotionScheduled || sale.Status == pricing.PromotionActive) && !now.Before(sale.EndsAt):
			sale.Status = pricing.PromotionEnded
			ended++
		}
		m.sales[id] = sale
	}
	return activated, ended, nil
}

type mockAudit struct {
	logs []shared.AuditLog
}

func (m *mockAudit) Record(ctx context.Context, log shared.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func newTestService(t *testing.T) (*Service, *mockRepository, *redis.Client) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	repo := newMockRepository()
	return NewService(repo, client, &mockAudit{}, nil, nil, time.Minute), repo, client
}

func validInput(name string) CreateSaleInput {
	now := time.Now()
	return CreateSaleInput{
		Name:     name,
		Priority: 5,
		StartsAt: now.Add(time.Hour),
		EndsAt:   now.Add(2 * time.Hour),
		Items: []SaleItemInput{
			{ProductID: 1, DiscountType: "percentage", DiscountValue: 20},
		},
		Actor: "admin",
	}
}

func TestCreateSaleStartsScheduled(t *testing.T) {
	svc, repo, _ := newTestService(t)

	sale, err := svc.CreateSale(context.Background(), validInput("spring"))
	require.NoError(t, err)
	assert.Equal(t, pricing.PromotionScheduled, sale.Status)
	assert.True(t, sale.IsActive)
	assert.Len(t, repo.sales, 1)
}

func TestCreateSaleInvalidWindow(t *testing.T) {
	svc, _, _ := newTestService(t)

	input := validInput("bad")
	input.EndsAt = input.StartsAt
	_, err := svc.CreateSale(context.Background(), input)
	require.ErrorIs(t, err, ErrInvalidWindow)
}

func TestCreateSaleRejectsBadItems(t *testing.T) {
	svc, _, _ := newTestService(t)

	input := validInput("bad items")
	input.Items = []SaleItemInput{{ProductID: 1, DiscountType: "percentage", DiscountValue: 120}}
	_, err := svc.CreateSale(context.Background(), input)
	require.ErrorIs(t, err, ErrInvalidItem)

	input.Items = []SaleItemInput{
		{ProductID: 1, DiscountType: "fixed", DiscountValue: 5},
		{ProductID: 1, DiscountType: "fixed", DiscountValue: 10},
	}
	_, err = svc.CreateSale(context.Background(), input)
	require.ErrorIs(t, err, ErrDuplicateItem)
}

func TestTransitionRules(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	sale, err := svc.CreateSale(ctx, validInput("transitions"))
	require.NoError(t, err)

	// SCHEDULED cannot jump straight to ENDED.
	_, err = svc.Transition(ctx, sale.ID, pricing.PromotionEnded, "admin")
	require.ErrorIs(t, err, ErrInvalidTransition)

	sale, err = svc.Transition(ctx, sale.ID, pricing.PromotionActive, "admin")
	require.NoError(t, err)
	assert.Equal(t, pricing.PromotionActive, sale.Status)

	sale, err = svc.Transition(ctx, sale.ID, pricing.PromotionEnded, "admin")
	require.NoError(t, err)
	assert.Equal(t, pricing.PromotionEnded, sale.Status)

	_, err = svc.Transition(ctx, sale.ID, pricing.PromotionActive, "admin")
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateSaleWindowLockedOnceActive(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	sale, err := svc.CreateSale(ctx, validInput("locked"))
	require.NoError(t, err)
	_, err = svc.Transition(ctx, sale.ID, pricing.PromotionActive, "admin")
	require.NoError(t, err)

	later := time.Now().Add(3 * time.Hour)
	_, err = svc.UpdateSale(ctx, sale.ID, UpdateSaleInput{EndsAt: &later})
	require.ErrorIs(t, err, ErrSaleLocked)

	// Name changes stay allowed while running.
	name := "renamed"
	updated, err := svc.UpdateSale(ctx, sale.ID, UpdateSaleInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
}

func TestSnapshotCachesInRedis(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateSale(ctx, validInput("cached"))
	require.NoError(t, err)

	first, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, int64(1), repo.snapshotCalls.Load())

	second, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, second, 1)
	// Served from cache, repository untouched.
	assert.Equal(t, int64(1), repo.snapshotCalls.Load())
}

func TestWritesInvalidateSnapshot(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	sale, err := svc.CreateSale(ctx, validInput("invalidate"))
	require.NoError(t, err)

	_, err = svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), repo.snapshotCalls.Load())

	_, err = svc.AddItem(ctx, sale.ID, SaleItemInput{ProductID: 2, DiscountType: "fixed", DiscountValue: 3}, "admin")
	require.NoError(t, err)

	promos, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), repo.snapshotCalls.Load())
	require.Len(t, promos, 1)
	assert.Len(t, promos[0].Items, 2)
}

func TestSnapshotWithoutCache(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil, nil, nil, time.Minute)
	ctx := context.Background()

	_, err := svc.CreateSale(ctx, validInput("nocache"))
	require.NoError(t, err)

	_, err = svc.Snapshot(ctx)
	require.NoError(t, err)
	_, err = svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), repo.snapshotCalls.Load())
}

func TestRolloverAdvancesStatuses(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	due := validInput("due")
	due.StartsAt = now.Add(-time.Hour)
	due.EndsAt = now.Add(time.Hour)
	created, err := svc.CreateSale(ctx, due)
	require.NoError(t, err)

	past := validInput("past")
	past.StartsAt = now.Add(-3 * time.Hour)
	past.EndsAt = now.Add(-time.Hour)
	expired, err := svc.CreateSale(ctx, past)
	require.NoError(t, err)

	activated, ended, err := svc.Rollover(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), activated)
	assert.Equal(t, int64(1), ended)
	assert.Equal(t, pricing.PromotionActive, repo.sales[created.ID].Status)
	assert.Equal(t, pricing.PromotionEnded, repo.sales[expired.ID].Status)
}
