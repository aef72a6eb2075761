package discounts

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gearhaus/gearhaus/internal/pricing"
	"github.com/gearhaus/gearhaus/internal/shared"
)

type mockRepository struct {
	rules map[uuid.UUID]Rule

	insertError error
	updateError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{rules: make(map[uuid.UUID]Rule)}
}

func (m *mockRepository) Insert(ctx context.Context, rule Rule) error {
	if m.insertError != nil {
		return m.insertError
	}
	m.rules[rule.ID] = rule
	return nil
}

func (m *mockRepository) Update(ctx context.Context, rule Rule) error {
	if m.updateError != nil {
		return m.updateError
	}
	if _, ok := m.rules[rule.ID]; !ok {
		return ErrNotFound
	}
	m.rules[rule.ID] = rule
	return nil
}

func (m *mockRepository) Get(ctx context.Context, id uuid.UUID) (Rule, error) {
	rule, ok := m.rules[id]
	if !ok {
		return Rule{}, ErrNotFound
	}
	return rule, nil
}

func (m *mockRepository) List(ctx context.Context, filter RuleFilter) ([]Rule, int, error) {
	var out []Rule
	for _, rule := range m.rules {
		if filter.AccountType != "" && rule.AccountType != pricing.NormalizeAccountType(filter.AccountType) {
			continue
		}
		if filter.ActiveOnly && !rule.IsActive {
			continue
		}
		out = append(out, rule)
	}
	return out, len(out), nil
}

func (m *mockRepository) ActiveGlobalExists(ctx context.Context, accountType pricing.AccountType, excludeID uuid.UUID) (bool, error) {
	for _, rule := range m.rules {
		if rule.AccountType == accountType && rule.IsActive && rule.IsGlobal() && rule.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepository) ActiveRules(ctx context.Context, accountType pricing.AccountType) ([]pricing.DiscountRule, error) {
	var out []pricing.DiscountRule
	for _, rule := range m.rules {
		if rule.AccountType == accountType && rule.IsActive {
			out = append(out, rule.DiscountRule)
		}
	}
	return out, nil
}

type mockAudit struct {
	logs []shared.AuditLog
}

func (m *mockAudit) Record(ctx context.Context, log shared.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func newTestService() (*Service, *mockRepository, *mockAudit) {
	repo := newMockRepository()
	audit := &mockAudit{}
	return NewService(repo, audit, nil), repo, audit
}

func TestCreateRuleGlobal(t *testing.T) {
	svc, repo, audit := newTestService()

	rule, err := svc.CreateRule(context.Background(), CreateRuleInput{
		AccountType:        "B2B",
		DiscountPercentage: 10,
		Actor:              "admin@gearhaus.test",
	})
	require.NoError(t, err)
	assert.Equal(t, pricing.AccountVolumeBuyer, rule.AccountType)
	assert.True(t, rule.IsActive)
	assert.True(t, rule.IsGlobal())
	assert.Len(t, repo.rules, 1)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, "discount_rule.created", audit.logs[0].Action)
	assert.Equal(t, "admin@gearhaus.test", audit.logs[0].Actor)
}

func TestCreateRuleSecondGlobalRejected(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.CreateRule(context.Background(), CreateRuleInput{AccountType: "VOLUME_BUYER", DiscountPercentage: 10})
	require.NoError(t, err)

	_, err = svc.CreateRule(context.Background(), CreateRuleInput{AccountType: "VOLUME_BUYER", DiscountPercentage: 15})
	require.ErrorIs(t, err, ErrGlobalRuleExists)
}

func TestCreateRuleScopedAlongsideGlobal(t *testing.T) {
	svc, _, _ := newTestService()
	catID := int64(7)

	_, err := svc.CreateRule(context.Background(), CreateRuleInput{AccountType: "GOVERNMENT", DiscountPercentage: 10})
	require.NoError(t, err)

	rule, err := svc.CreateRule(context.Background(), CreateRuleInput{
		AccountType:        "GOVERNMENT",
		DiscountPercentage: 20,
		CategoryID:         &catID,
	})
	require.NoError(t, err)
	assert.Equal(t, pricing.SourceCategory, rule.Source())
}

func TestCreateRuleMultipleScopesRejected(t *testing.T) {
	svc, _, _ := newTestService()
	catID, brandID := int64(1), int64(2)

	_, err := svc.CreateRule(context.Background(), CreateRuleInput{
		AccountType:        "PERSONAL",
		DiscountPercentage: 5,
		CategoryID:         &catID,
		BrandID:            &brandID,
	})
	require.ErrorIs(t, err, ErrMultipleScopes)
}

func TestCreateRuleInvalidPercentage(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.CreateRule(context.Background(), CreateRuleInput{AccountType: "PERSONAL", DiscountPercentage: 120})
	require.ErrorIs(t, err, pricing.ErrInvalidDiscountRule)
}

func TestUpdateRuleReactivationGuardsGlobalUniqueness(t *testing.T) {
	svc, _, _ := newTestService()

	first, err := svc.CreateRule(context.Background(), CreateRuleInput{AccountType: "PERSONAL", DiscountPercentage: 5})
	require.NoError(t, err)

	require.NoError(t, svc.DeactivateRule(context.Background(), first.ID, "admin"))

	_, err = svc.CreateRule(context.Background(), CreateRuleInput{AccountType: "PERSONAL", DiscountPercentage: 8})
	require.NoError(t, err)

	active := true
	_, err = svc.UpdateRule(context.Background(), first.ID, UpdateRuleInput{IsActive: &active})
	require.ErrorIs(t, err, ErrGlobalRuleExists)
}

func TestUpdateRuleNotFound(t *testing.T) {
	svc, _, _ := newTestService()

	pct := 12.0
	_, err := svc.UpdateRule(context.Background(), uuid.New(), UpdateRuleInput{DiscountPercentage: &pct})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeactivateKeepsRule(t *testing.T) {
	svc, repo, _ := newTestService()

	rule, err := svc.CreateRule(context.Background(), CreateRuleInput{AccountType: "PERSONAL", DiscountPercentage: 5})
	require.NoError(t, err)

	require.NoError(t, svc.DeactivateRule(context.Background(), rule.ID, "admin"))

	stored, ok := repo.rules[rule.ID]
	require.True(t, ok)
	assert.False(t, stored.IsActive)
}

func TestActiveRulesForExcludesInactive(t *testing.T) {
	svc, _, _ := newTestService()
	catID := int64(3)

	global, err := svc.CreateRule(context.Background(), CreateRuleInput{AccountType: "VOLUME_BUYER", DiscountPercentage: 10})
	require.NoError(t, err)
	_, err = svc.CreateRule(context.Background(), CreateRuleInput{AccountType: "VOLUME_BUYER", DiscountPercentage: 20, CategoryID: &catID})
	require.NoError(t, err)

	require.NoError(t, svc.DeactivateRule(context.Background(), global.ID, "admin"))

	rules, err := svc.ActiveRulesFor(context.Background(), pricing.AccountVolumeBuyer)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, pricing.SourceCategory, rules[0].Source())
}
