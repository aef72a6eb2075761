package promotions

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/gearhaus/gearhaus/internal/pricing"
	"github.com/gearhaus/gearhaus/internal/shared"
)

// snapshotKey is the redis key holding the serialized promotion snapshot.
const snapshotKey = "promotions:snapshot"

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	Insert(ctx context.Context, sale Sale) error
	Update(ctx context.Context, sale Sale) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status pricing.PromotionStatus, at time.Time) error
	Get(ctx context.Context, id uuid.UUID) (Sale, error)
	List(ctx context.Context, filter SaleFilter) ([]Sale, int, error)
	AddItem(ctx context.Context, saleID uuid.UUID, item pricing.PromotionItem) error
	RemoveItem(ctx context.Context, saleID uuid.UUID, productID int64) error
	Snapshot(ctx context.Context) ([]pricing.Promotion, error)
	Rollover(ctx context.Context, now time.Time) (activated, ended int64, err error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort records snapshot cache outcomes.
type MetricsPort interface {
	PromotionSnapshotLookup(outcome string)
}

// Service coordinates flash sale operations.
type Service struct {
	repo    RepositoryPort
	cache   *redis.Client
	audit   AuditPort
	metrics MetricsPort
	logger  *slog.Logger
	ttl     time.Duration
	sf      singleflight.Group
}

// NewService builds Service. cache may be nil; the snapshot then always
// loads from the repository.
func NewService(repo RepositoryPort, cache *redis.Client, audit AuditPort, metrics MetricsPort, logger *slog.Logger, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Service{repo: repo, cache: cache, audit: audit, metrics: metrics, logger: logger, ttl: ttl}
}

// CreateSale validates and stores a new flash sale in SCHEDULED status.
func (s *Service) CreateSale(ctx context.Context, input CreateSaleInput) (Sale, error) {
	if !input.EndsAt.After(input.StartsAt) {
		return Sale{}, ErrInvalidWindow
	}
	now := time.Now().UTC()
	sale := Sale{
		Promotion: pricing.Promotion{
			ID:        uuid.New(),
			Name:      input.Name,
			Status:    pricing.PromotionScheduled,
			Priority:  input.Priority,
			StartsAt:  input.StartsAt,
			EndsAt:    input.EndsAt,
			IsActive:  true,
			CreatedAt: now,
		},
		UpdatedAt: now,
	}
	seen := make(map[int64]bool, len(input.Items))
	for _, itemInput := range input.Items {
		item, err := itemInput.toItem()
		if err != nil {
			return Sale{}, err
		}
		if seen[item.ProductID] {
			return Sale{}, ErrDuplicateItem
		}
		seen[item.ProductID] = true
		sale.Items = append(sale.Items, item)
	}
	if err := s.repo.Insert(ctx, sale); err != nil {
		return Sale{}, err
	}
	s.invalidate(ctx)
	s.recordAudit(ctx, input.Actor, "flash_sale.created", sale)
	return sale, nil
}

// UpdateSale applies partial updates. The window can only move while the
// sale is still scheduled.
func (s *Service) UpdateSale(ctx context.Context, id uuid.UUID, input UpdateSaleInput) (Sale, error) {
	sale, err := s.repo.Get(ctx, id)
	if err != nil {
		return Sale{}, err
	}
	if sale.Status == pricing.PromotionEnded || sale.Status == pricing.PromotionCancelled {
		return Sale{}, ErrSaleLocked
	}
	if (input.StartsAt != nil || input.EndsAt != nil) && sale.Status != pricing.PromotionScheduled {
		return Sale{}, ErrSaleLocked
	}
	if input.Name != nil {
		sale.Name = *input.Name
	}
	if input.Priority != nil {
		sale.Priority = *input.Priority
	}
	if input.StartsAt != nil {
		sale.StartsAt = *input.StartsAt
	}
	if input.EndsAt != nil {
		sale.EndsAt = *input.EndsAt
	}
	if !sale.EndsAt.After(sale.StartsAt) {
		return Sale{}, ErrInvalidWindow
	}
	sale.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, sale); err != nil {
		return Sale{}, err
	}
	s.invalidate(ctx)
	s.recordAudit(ctx, input.Actor, "flash_sale.updated", sale)
	return sale, nil
}

// Transition moves a sale to a new status following the allowed transitions.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, to pricing.PromotionStatus, actor string) (Sale, error) {
	sale, err := s.repo.Get(ctx, id)
	if err != nil {
		return Sale{}, err
	}
	if !canTransition(sale.Status, to) {
		return Sale{}, ErrInvalidTransition
	}
	now := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, id, to, now); err != nil {
		return Sale{}, err
	}
	sale.Status = to
	sale.UpdatedAt = now
	s.invalidate(ctx)
	s.recordAudit(ctx, actor, "flash_sale.status_changed", sale)
	return sale, nil
}

// AddItem adds a product to a sale that has not ended.
func (s *Service) AddItem(ctx context.Context, id uuid.UUID, input SaleItemInput, actor string) (Sale, error) {
	sale, err := s.repo.Get(ctx, id)
	if err != nil {
		return Sale{}, err
	}
	if sale.Status == pricing.PromotionEnded || sale.Status == pricing.PromotionCancelled {
		return Sale{}, ErrSaleLocked
	}
	item, err := input.toItem()
	if err != nil {
		return Sale{}, err
	}
	for _, existing := range sale.Items {
		if existing.ProductID == item.ProductID {
			return Sale{}, ErrDuplicateItem
		}
	}
	if err := s.repo.AddItem(ctx, id, item); err != nil {
		return Sale{}, err
	}
	sale.Items = append(sale.Items, item)
	s.invalidate(ctx)
	s.recordAudit(ctx, actor, "flash_sale.item_added", sale)
	return sale, nil
}

// RemoveItem removes a product from a sale.
func (s *Service) RemoveItem(ctx context.Context, id uuid.UUID, productID int64, actor string) error {
	sale, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if sale.Status == pricing.PromotionEnded || sale.Status == pricing.PromotionCancelled {
		return ErrSaleLocked
	}
	if err := s.repo.RemoveItem(ctx, id, productID); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.recordAudit(ctx, actor, "flash_sale.item_removed", sale)
	return nil
}

// GetSale fetches a single sale with items.
func (s *Service) GetSale(ctx context.Context, id uuid.UUID) (Sale, error) {
	return s.repo.Get(ctx, id)
}

// ListSales returns sales matching the filter.
func (s *Service) ListSales(ctx context.Context, filter SaleFilter) ([]Sale, shared.Pagination, error) {
	sales, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return sales, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// Snapshot returns the promotions considered during quoting. The snapshot is
// cached in redis for a short TTL; concurrent cache misses collapse into a
// single repository load.
func (s *Service) Snapshot(ctx context.Context) ([]pricing.Promotion, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, snapshotKey).Bytes()
		if err == nil {
			var promos []pricing.Promotion
			if jsonErr := json.Unmarshal(raw, &promos); jsonErr == nil {
				s.lookupRecorded("hit")
				return promos, nil
			}
		} else if !errors.Is(err, redis.Nil) && s.logger != nil {
			s.logger.Warn("promotion snapshot cache read failed", slog.Any("error", err))
		}
	}
	s.lookupRecorded("miss")

	v, err, _ := s.sf.Do(snapshotKey, func() (any, error) {
		promos, err := s.repo.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if raw, jsonErr := json.Marshal(promos); jsonErr == nil {
				if setErr := s.cache.Set(ctx, snapshotKey, raw, s.ttl).Err(); setErr != nil && s.logger != nil {
					s.logger.Warn("promotion snapshot cache write failed", slog.Any("error", setErr))
				}
			}
		}
		return promos, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]pricing.Promotion), nil
}

// Rollover advances sale statuses past their window boundaries. Called
// periodically by the worker.
func (s *Service) Rollover(ctx context.Context, now time.Time) (activated, ended int64, err error) {
	activated, ended, err = s.repo.Rollover(ctx, now)
	if err != nil {
		return 0, 0, err
	}
	if activated > 0 || ended > 0 {
		s.invalidate(ctx)
		if s.logger != nil {
			s.logger.Info("flash sale rollover",
				slog.Int64("activated", activated),
				slog.Int64("ended", ended))
		}
	}
	return activated, ended, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, snapshotKey).Err(); err != nil && s.logger != nil {
		s.logger.Warn("promotion snapshot invalidation failed", slog.Any("error", err))
	}
}

func (s *Service) lookupRecorded(outcome string) {
	if s.metrics != nil {
		s.metrics.PromotionSnapshotLookup(outcome)
	}
}

func (s *Service) recordAudit(ctx context.Context, actor, action string, sale Sale) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   action,
		Entity:   "flash_sale",
		EntityID: sale.ID.String(),
		Meta: map[string]any{
			"name":     sale.Name,
			"status":   string(sale.Status),
			"priority": sale.Priority,
			"items":    len(sale.Items),
		},
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
