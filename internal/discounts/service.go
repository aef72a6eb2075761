package discounts

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gearhaus/gearhaus/internal/pricing"
	"github.com/gearhaus/gearhaus/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	Insert(ctx context.Context, rule Rule) error
	Update(ctx context.Context, rule Rule) error
	Get(ctx context.Context, id uuid.UUID) (Rule, error)
	List(ctx context.Context, filter RuleFilter) ([]Rule, int, error)
	ActiveGlobalExists(ctx context.Context, accountType pricing.AccountType, excludeID uuid.UUID) (bool, error)
	ActiveRules(ctx context.Context, accountType pricing.AccountType) ([]pricing.DiscountRule, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates discount rule operations.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// CreateRule validates and stores a new rule. At most one active global rule
// may exist per account type.
func (s *Service) CreateRule(ctx context.Context, input CreateRuleInput) (Rule, error) {
	rule, err := input.toRule(time.Now().UTC())
	if err != nil {
		return Rule{}, err
	}
	if rule.IsGlobal() {
		exists, err := s.repo.ActiveGlobalExists(ctx, rule.AccountType, uuid.Nil)
		if err != nil {
			return Rule{}, err
		}
		if exists {
			return Rule{}, ErrGlobalRuleExists
		}
	}
	if err := s.repo.Insert(ctx, rule); err != nil {
		return Rule{}, err
	}
	s.recordAudit(ctx, input.Actor, "discount_rule.created", rule)
	return rule, nil
}

// UpdateRule applies partial updates to an existing rule.
func (s *Service) UpdateRule(ctx context.Context, id uuid.UUID, input UpdateRuleInput) (Rule, error) {
	rule, err := s.repo.Get(ctx, id)
	if err != nil {
		return Rule{}, err
	}
	if input.DiscountPercentage != nil {
		rule.DiscountPercentage = *input.DiscountPercentage
	}
	if input.MinimumOrderAmount != nil {
		rule.MinimumOrderAmount = *input.MinimumOrderAmount
	}
	if input.IsActive != nil {
		rule.IsActive = *input.IsActive
	}
	if err := rule.Validate(); err != nil {
		return Rule{}, err
	}
	if rule.IsGlobal() && rule.IsActive {
		exists, err := s.repo.ActiveGlobalExists(ctx, rule.AccountType, rule.ID)
		if err != nil {
			return Rule{}, err
		}
		if exists {
			return Rule{}, ErrGlobalRuleExists
		}
	}
	rule.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, rule); err != nil {
		return Rule{}, err
	}
	s.recordAudit(ctx, input.Actor, "discount_rule.updated", rule)
	return rule, nil
}

// DeactivateRule disables a rule. Rules are never hard deleted so historical
// quotes stay explainable.
func (s *Service) DeactivateRule(ctx context.Context, id uuid.UUID, actor string) error {
	inactive := false
	_, err := s.UpdateRule(ctx, id, UpdateRuleInput{IsActive: &inactive, Actor: actor})
	return err
}

// GetRule fetches a single rule.
func (s *Service) GetRule(ctx context.Context, id uuid.UUID) (Rule, error) {
	return s.repo.Get(ctx, id)
}

// ListRules returns rules matching the filter with pagination metadata.
func (s *Service) ListRules(ctx context.Context, filter RuleFilter) ([]Rule, shared.Pagination, error) {
	rules, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return rules, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// ActiveRulesFor returns the active rules considered during quoting.
func (s *Service) ActiveRulesFor(ctx context.Context, accountType pricing.AccountType) ([]pricing.DiscountRule, error) {
	return s.repo.ActiveRules(ctx, accountType)
}

func (s *Service) recordAudit(ctx context.Context, actor, action string, rule Rule) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   action,
		Entity:   "discount_rule",
		EntityID: rule.ID.String(),
		Meta: map[string]any{
			"account_type": string(rule.AccountType),
			"percentage":   rule.DiscountPercentage,
			"is_active":    rule.IsActive,
			"source":       string(rule.Source()),
		},
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
