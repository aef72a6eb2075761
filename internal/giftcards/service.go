package giftcards

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gearhaus/gearhaus/internal/pricing"
	"github.com/gearhaus/gearhaus/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	Insert(ctx context.Context, card Card) error
	Get(ctx context.Context, code string) (Card, error)
	List(ctx context.Context, filter CardFilter) ([]Card, int, error)
	SetActive(ctx context.Context, code string, active bool, at time.Time) error
	// Redeem atomically deducts amount when the card is active, unexpired and
	// has sufficient balance. Returns the remaining balance.
	Redeem(ctx context.Context, code string, amount float64, now time.Time) (float64, error)
	// ExpireDue flips the status of cards whose expiry has passed.
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards against replayed redemption requests.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, scope string) error
	Delete(ctx context.Context, key string) error
}

// MetricsPort records balance check outcomes.
type MetricsPort interface {
	GiftCardChecked(state string)
}

// Service coordinates gift card operations.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
	metrics     MetricsPort
	logger      *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, idem IdempotencyPort, metrics MetricsPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idem, metrics: metrics, logger: logger}
}

// CreateCard issues a new card. An empty code gets a generated one.
func (s *Service) CreateCard(ctx context.Context, input CreateCardInput) (Card, error) {
	if input.InitialAmount <= 0 {
		return Card{}, ErrInvalidAmount
	}
	if input.MinPurchase != nil && *input.MinPurchase < 0 {
		return Card{}, ErrInvalidAmount
	}
	code := NormalizeCode(input.Code)
	if code == "" {
		code = generateCode()
	}
	now := time.Now().UTC()
	card := Card{
		GiftCard: pricing.GiftCard{
			Code:           code,
			InitialAmount:  input.InitialAmount,
			CurrentBalance: input.InitialAmount,
			ExpiresAt:      input.ExpiresAt,
			MinPurchase:    input.MinPurchase,
			IsActive:       true,
			Status:         "ACTIVE",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, card); err != nil {
		return Card{}, err
	}
	s.recordAudit(ctx, input.Actor, "gift_card.created", card.Code, map[string]any{
		"initial_amount": card.InitialAmount,
	})
	return card, nil
}

// GetCard fetches a card by code.
func (s *Service) GetCard(ctx context.Context, code string) (Card, error) {
	return s.repo.Get(ctx, NormalizeCode(code))
}

// ListCards returns cards matching the filter.
func (s *Service) ListCards(ctx context.Context, filter CardFilter) ([]Card, shared.Pagination, error) {
	cards, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return cards, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// Deactivate disables a card.
func (s *Service) Deactivate(ctx context.Context, code, actor string) error {
	code = NormalizeCode(code)
	if err := s.repo.SetActive(ctx, code, false, time.Now().UTC()); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "gift_card.deactivated", code, nil)
	return nil
}

// Check evaluates a card without mutating it.
func (s *Service) Check(ctx context.Context, code string) (pricing.GiftCardStatus, error) {
	card, err := s.repo.Get(ctx, NormalizeCode(code))
	if err != nil {
		return pricing.GiftCardStatus{}, err
	}
	status := pricing.CheckGiftCard(card.GiftCard, time.Now().UTC())
	if s.metrics != nil {
		s.metrics.GiftCardChecked(string(status.State))
	}
	return status, nil
}

// Redeem deducts amount from the card balance. The deduction is a single
// conditional UPDATE so concurrent redemptions can never overdraw. A non-empty
// idempotencyKey makes retries safe.
func (s *Service) Redeem(ctx context.Context, code string, amount float64, idempotencyKey, actor string) (Redemption, error) {
	if amount <= 0 {
		return Redemption{}, ErrInvalidAmount
	}
	code = NormalizeCode(code)

	insertedKey := false
	if idempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, idempotencyKey, "giftcards"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return Redemption{}, ErrDuplicateRedemption
			}
			return Redemption{}, err
		}
		insertedKey = true
	}

	now := time.Now().UTC()
	remaining, err := s.repo.Redeem(ctx, code, amount, now)
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, idempotencyKey)
		}
		return Redemption{}, err
	}
	s.recordAudit(ctx, actor, "gift_card.redeemed", code, map[string]any{
		"amount":    amount,
		"remaining": remaining,
	})
	return Redemption{Code: code, AmountRedeemed: amount, RemainingBalance: remaining}, nil
}

// ExpireDue marks expired cards. Called periodically by the worker.
func (s *Service) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.repo.ExpireDue(ctx, now)
	if err != nil {
		return 0, err
	}
	if n > 0 && s.logger != nil {
		s.logger.Info("gift cards expired", slog.Int64("count", n))
	}
	return n, nil
}

func (s *Service) recordAudit(ctx context.Context, actor, action, code string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   action,
		Entity:   "gift_card",
		EntityID: code,
		Meta:     meta,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
