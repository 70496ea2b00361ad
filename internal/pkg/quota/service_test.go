package quota

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PulseFox/app/models"
	"github.com/ManuelReschke/PulseFox/internal/pkg/audit"
	"github.com/ManuelReschke/PulseFox/internal/pkg/clock"
	"github.com/ManuelReschke/PulseFox/internal/pkg/subscription"
)

// In-memory repositories with the same contracts as the SQL layer.

type memSubscriptionRepo struct {
	mu     sync.Mutex
	nextID uint
	plans  map[string]*models.SubscriptionPlan
	subs   map[uint]*models.UserSubscription
}

func newMemSubscriptionRepo() *memSubscriptionRepo {
	return &memSubscriptionRepo{nextID: 1, plans: make(map[string]*models.SubscriptionPlan), subs: make(map[uint]*models.UserSubscription)}
}

func (r *memSubscriptionRepo) SeedPlans(plans []models.SubscriptionPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range plans {
		plan := plans[i]
		if _, ok := r.plans[plan.Name]; ok {
			continue
		}
		plan.ID = r.nextID
		r.nextID++
		r.plans[plan.Name] = &plan
	}
	return nil
}

func (r *memSubscriptionRepo) GetPlanByName(name string) (*models.SubscriptionPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.plans[name]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memSubscriptionRepo) GetPlanByID(id uint) (*models.SubscriptionPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.plans {
		if p.ID == id {
			clone := *p
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memSubscriptionRepo) ListPlans() ([]models.SubscriptionPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.SubscriptionPlan, 0, len(r.plans))
	for _, p := range r.plans {
		out = append(out, *p)
	}
	return out, nil
}

func (r *memSubscriptionRepo) UpsertUserSubscription(sub *models.UserSubscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *sub
	if existing, ok := r.subs[sub.UserID]; ok {
		clone.ID = existing.ID
	} else {
		clone.ID = r.nextID
		r.nextID++
	}
	r.subs[sub.UserID] = &clone
	r.hydrate(sub)
	return nil
}

func (r *memSubscriptionRepo) GetByUserID(userID uint) (*models.UserSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *sub
	r.hydrate(&clone)
	return &clone, nil
}

func (r *memSubscriptionRepo) DowngradeExpiredTrial(userID, basePlanID uint, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[userID]
	if !ok || !sub.IsTrial || sub.TrialEndsAt == nil || !now.After(*sub.TrialEndsAt) {
		return false, nil
	}
	sub.PlanID = basePlanID
	sub.Status = models.SubscriptionStatusActive
	sub.IsTrial = false
	sub.TrialEndsAt = nil
	return true, nil
}

func (r *memSubscriptionRepo) CancelActive(userID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[userID]
	if !ok || sub.Status != models.SubscriptionStatusActive {
		return false, nil
	}
	sub.Status = models.SubscriptionStatusCancelled
	return true, nil
}

func (r *memSubscriptionRepo) hydrate(sub *models.UserSubscription) {
	for _, p := range r.plans {
		if p.ID == sub.PlanID {
			sub.Plan = *p
			return
		}
	}
}

type usageKey struct {
	userID uint
	month  string
}

// memUsageRepo applies increments under a lock, matching the atomic
// upsert-add contract.
type memUsageRepo struct {
	mu   sync.Mutex
	rows map[usageKey]*models.UsageRecord
}

func newMemUsageRepo() *memUsageRepo {
	return &memUsageRepo{rows: make(map[usageKey]*models.UsageRecord)}
}

func (r *memUsageRepo) IncrementAPIRequests(userID uint, month string, n int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.row(userID, month).APIRequests += n
	return nil
}

func (r *memUsageRepo) IncrementSMS(userID uint, month string, n int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.row(userID, month).SMSSent += n
	return nil
}

func (r *memUsageRepo) GetByUserMonth(userID uint, month string) (*models.UsageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[usageKey{userID, month}]; ok {
		clone := *row
		return &clone, nil
	}
	return &models.UsageRecord{UserID: userID, Month: month}, nil
}

func (r *memUsageRepo) row(userID uint, month string) *models.UsageRecord {
	key := usageKey{userID, month}
	if row, ok := r.rows[key]; ok {
		return row
	}
	row := &models.UsageRecord{UserID: userID, Month: month}
	r.rows[key] = row
	return row
}

type quotaFixture struct {
	svc   *Service
	subs  *subscription.Service
	usage *memUsageRepo
	sink  *audit.MemorySink
	clk   *clock.Fixed
}

func newQuotaFixture(t *testing.T) *quotaFixture {
	t.Helper()
	repo := newMemSubscriptionRepo()
	require.NoError(t, repo.SeedPlans(models.DefaultPlans()))
	sink := &audit.MemorySink{}
	clk := clock.NewFixed(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	subs := subscription.NewService(repo, sink, clk)
	usage := newMemUsageRepo()
	return &quotaFixture{
		svc:   NewService(subs, usage, sink, clk),
		subs:  subs,
		usage: usage,
		sink:  sink,
		clk:   clk,
	}
}

func TestResolveAssignsDefaultPlan(t *testing.T) {
	f := newQuotaFixture(t)

	effective, err := f.svc.ResolveEffectivePlan(1)
	require.NoError(t, err)
	assert.Equal(t, models.PLAN_FREE, effective.Plan.Name)
	assert.Equal(t, SourceBase, effective.Source)
}

func TestResolveTrialOverride(t *testing.T) {
	f := newQuotaFixture(t)
	require.NoError(t, f.subs.AssignTrial(1))

	effective, err := f.svc.ResolveEffectivePlan(1)
	require.NoError(t, err)
	assert.Equal(t, models.PLAN_PROFESSIONAL, effective.Plan.Name)
	assert.Equal(t, SourceTrialOverride, effective.Source)
	require.NotNil(t, effective.MaxDomains())
	assert.Equal(t, TrialMaxDomains, *effective.MaxDomains())
	require.NotNil(t, effective.MaxSMSPerMonth())
	assert.Equal(t, TrialMaxSMSPerMonth, *effective.MaxSMSPerMonth())
}

func TestResolveDowngradesExpiredTrial(t *testing.T) {
	f := newQuotaFixture(t)
	require.NoError(t, f.subs.AssignTrial(1))

	f.clk.Advance(models.TrialDuration + time.Hour)
	effective, err := f.svc.ResolveEffectivePlan(1)
	require.NoError(t, err)
	assert.Equal(t, models.PLAN_FREE, effective.Plan.Name)
	assert.Equal(t, SourceBase, effective.Source)
	assert.Contains(t, f.sink.Actions(), "trial_expired")
}

func TestCanAddDomainTrialCap(t *testing.T) {
	f := newQuotaFixture(t)
	require.NoError(t, f.subs.AssignTrial(1))

	// Trial pins domains to 10 even though Professional allows 50.
	allowed, err := f.svc.CanAddDomain(1, 9)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = f.svc.CanAddDomain(1, 10)
	require.NoError(t, err)
	assert.False(t, allowed)

	// After the trial the Professional limit would apply; an expired trial
	// falls back to the free plan's 10 instead.
	f.clk.Advance(models.TrialDuration + time.Hour)
	allowed, err = f.svc.CanAddDomain(1, 10)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestCanAddDomainByPlan(t *testing.T) {
	f := newQuotaFixture(t)

	tests := []struct {
		name    string
		userID  uint
		plan    string
		count   int
		allowed bool
	}{
		{name: "free below limit", userID: 1, plan: models.PLAN_FREE, count: 9, allowed: true},
		{name: "free at limit", userID: 2, plan: models.PLAN_FREE, count: 10, allowed: false},
		{name: "professional below limit", userID: 3, plan: models.PLAN_PROFESSIONAL, count: 49, allowed: true},
		{name: "professional at limit", userID: 4, plan: models.PLAN_PROFESSIONAL, count: 50, allowed: false},
		{name: "enterprise unlimited", userID: 5, plan: models.PLAN_ENTERPRISE, count: 100000, allowed: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, f.subs.ChangePlan(tt.userID, tt.plan, models.BillingCycleMonth))
			allowed, err := f.svc.CanAddDomain(tt.userID, tt.count)
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, allowed)
		})
	}
}

func TestCanAddTeamMember(t *testing.T) {
	f := newQuotaFixture(t)
	require.NoError(t, f.subs.ChangePlan(1, models.PLAN_FREE, models.BillingCycleMonth))

	allowed, err := f.svc.CanAddTeamMember(1, 0)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = f.svc.CanAddTeamMember(1, 1)
	require.NoError(t, err)
	assert.False(t, allowed, "free plan allows a single member")
}

func TestCanSendSMSFeatureGate(t *testing.T) {
	f := newQuotaFixture(t)

	// Free plan: SMS flag off and zero budget.
	require.NoError(t, f.subs.ChangePlan(1, models.PLAN_FREE, models.BillingCycleMonth))
	allowed, err := f.svc.CanSendSMS(1)
	require.NoError(t, err)
	assert.False(t, allowed)

	// Professional: 100 per month.
	require.NoError(t, f.subs.ChangePlan(2, models.PLAN_PROFESSIONAL, models.BillingCycleMonth))
	allowed, err = f.svc.CanSendSMS(2)
	require.NoError(t, err)
	assert.True(t, allowed)

	require.NoError(t, f.usage.IncrementSMS(2, models.MonthKey(f.clk.Now()), 100))
	allowed, err = f.svc.CanSendSMS(2)
	require.NoError(t, err)
	assert.False(t, allowed)

	// Enterprise: no budget to exhaust.
	require.NoError(t, f.subs.ChangePlan(3, models.PLAN_ENTERPRISE, models.BillingCycleMonth))
	require.NoError(t, f.usage.IncrementSMS(3, models.MonthKey(f.clk.Now()), 1000000))
	allowed, err = f.svc.CanSendSMS(3)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestCanSendSMSTrialBudget(t *testing.T) {
	f := newQuotaFixture(t)
	require.NoError(t, f.subs.AssignTrial(1))

	require.NoError(t, f.usage.IncrementSMS(1, models.MonthKey(f.clk.Now()), 9))
	allowed, err := f.svc.CanSendSMS(1)
	require.NoError(t, err)
	assert.True(t, allowed)

	require.NoError(t, f.usage.IncrementSMS(1, models.MonthKey(f.clk.Now()), 1))
	allowed, err = f.svc.CanSendSMS(1)
	require.NoError(t, err)
	assert.False(t, allowed, "trial pins the SMS budget to 10")
}

func TestCanMakeAPIRequestBudget(t *testing.T) {
	f := newQuotaFixture(t)
	require.NoError(t, f.subs.ChangePlan(1, models.PLAN_FREE, models.BillingCycleMonth))

	require.NoError(t, f.svc.IncrementAPIRequests(1, 999))
	allowed, err := f.svc.CanMakeAPIRequest(1)
	require.NoError(t, err)
	assert.True(t, allowed)

	require.NoError(t, f.svc.IncrementAPIRequests(1, 1))
	allowed, err = f.svc.CanMakeAPIRequest(1)
	require.NoError(t, err)
	assert.False(t, allowed)

	// A new calendar month starts a fresh budget.
	f.clk.Advance(31 * 24 * time.Hour)
	allowed, err = f.svc.CanMakeAPIRequest(1)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestCanUseSlackAlerts(t *testing.T) {
	f := newQuotaFixture(t)

	require.NoError(t, f.subs.ChangePlan(1, models.PLAN_FREE, models.BillingCycleMonth))
	allowed, err := f.svc.CanUseSlackAlerts(1)
	require.NoError(t, err)
	assert.False(t, allowed)

	require.NoError(t, f.subs.ChangePlan(1, models.PLAN_PROFESSIONAL, models.BillingCycleMonth))
	allowed, err = f.svc.CanUseSlackAlerts(1)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestLimitsSnapshot(t *testing.T) {
	f := newQuotaFixture(t)
	require.NoError(t, f.subs.AssignTrial(1))
	require.NoError(t, f.svc.IncrementAPIRequests(1, 42))
	require.NoError(t, f.svc.IncrementSMSAlerts(1, 3))

	limits, err := f.svc.Limits(1, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, models.PLAN_PROFESSIONAL, limits.Plan)
	assert.Equal(t, SourceTrialOverride, limits.Source)
	assert.Equal(t, int64(4), limits.Domains.Used)
	assert.Equal(t, TrialMaxDomains, limits.Domains.Limit)
	assert.Equal(t, int64(42), limits.APIRequests.Used)
	assert.Equal(t, int64(3), limits.SMSAlerts.Used)
	assert.Equal(t, TrialMaxSMSPerMonth, limits.SMSAlerts.Limit)
	assert.True(t, limits.SMSEnabled)

	require.NoError(t, f.subs.ChangePlan(2, models.PLAN_ENTERPRISE, models.BillingCycleMonth))
	limits, err = f.svc.Limits(2, 100, 100)
	require.NoError(t, err)
	assert.True(t, limits.Domains.Unlimited)
	assert.True(t, limits.APIRequests.Unlimited)
	assert.True(t, limits.SMSEnabled)
}

func TestUsageIncrementsAreNotLost(t *testing.T) {
	f := newQuotaFixture(t)
	require.NoError(t, f.subs.ChangePlan(1, models.PLAN_ENTERPRISE, models.BillingCycleMonth))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = f.svc.IncrementAPIRequests(1, 1)
		}()
	}
	wg.Wait()

	usage, err := f.usage.GetByUserMonth(1, models.MonthKey(f.clk.Now()))
	require.NoError(t, err)
	assert.Equal(t, int64(50), usage.APIRequests)
}
