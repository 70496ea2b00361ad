package quota

import (
	"errors"

	"gorm.io/gorm"

	"github.com/ManuelReschke/PulseFox/app/models"
	"github.com/ManuelReschke/PulseFox/app/repository"
	"github.com/ManuelReschke/PulseFox/internal/pkg/audit"
	"github.com/ManuelReschke/PulseFox/internal/pkg/clock"
	"github.com/ManuelReschke/PulseFox/internal/pkg/subscription"
)

// Dimension is the usage-versus-limit view of one metered resource.
type Dimension struct {
	Used      int64 `json:"used"`
	Limit     int   `json:"limit"`
	Unlimited bool  `json:"unlimited"`
}

// UsageLimits composes the effective plan with this month's usage counters.
type UsageLimits struct {
	Plan        string     `json:"plan"`
	Source      PlanSource `json:"source"`
	Domains     Dimension  `json:"domains"`
	TeamMembers Dimension  `json:"team_members"`
	APIRequests Dimension  `json:"api_requests"`
	SMSAlerts   Dimension  `json:"sms_alerts"`
	EmailAlerts bool       `json:"email_alerts"`
	SMSEnabled  bool       `json:"sms_enabled"`
	SlackAlerts bool       `json:"slack_alerts"`
}

// Service evaluates plan limits (with trial overrides) against current
// usage across the four metered dimensions. Every evaluation starts with
// the lazy trial-expiry check, so an expired trial downgrades on its first
// entitlement query.
type Service struct {
	subs  *subscription.Service
	usage repository.UsageRepository
	sink  audit.Sink
	clock clock.Clock
}

// NewService wires the quota engine.
func NewService(subs *subscription.Service, usage repository.UsageRepository, sink audit.Sink, clk clock.Clock) *Service {
	return &Service{subs: subs, usage: usage, sink: sink, clock: clk}
}

// ResolveEffectivePlan is the single place all fallback and override logic
// lives: it applies the lazy expiry check, assigns the default plan to
// users without a subscription row, and tags active trials with the
// override source.
func (s *Service) ResolveEffectivePlan(userID uint) (*EffectivePlan, error) {
	if _, err := s.subs.CheckAndHandleExpiration(userID); err != nil {
		return nil, err
	}

	sub, err := s.subs.GetSubscription(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := s.subs.AssignDefault(userID); err != nil {
			return nil, err
		}
		sub, err = s.subs.GetSubscription(userID)
	}
	if err != nil {
		return nil, err
	}

	effective := &EffectivePlan{
		Plan:   sub.Plan,
		Source: SourceBase,
	}
	if sub.IsOnActiveTrial(s.clock.Now()) {
		effective.Source = SourceTrialOverride
		effective.TrialEndsAt = sub.TrialEndsAt
	}
	return effective, nil
}

// Limits reports every dimension for the user. Domain and team counts are
// supplied by the caller since those resources live outside this engine.
func (s *Service) Limits(userID uint, currentDomainCount, currentTeamCount int) (*UsageLimits, error) {
	effective, err := s.ResolveEffectivePlan(userID)
	if err != nil {
		return nil, err
	}

	usage, err := s.usage.GetByUserMonth(userID, models.MonthKey(s.clock.Now()))
	if err != nil {
		return nil, err
	}

	unlimited := effective.IsUnlimitedTier()
	return &UsageLimits{
		Plan:        effective.Plan.Name,
		Source:      effective.Source,
		Domains:     dimension(int64(currentDomainCount), effective.MaxDomains(), unlimited),
		TeamMembers: dimension(int64(currentTeamCount), effective.MaxTeamMembers(), unlimited),
		APIRequests: dimension(usage.APIRequests, effective.MaxAPIRequestsPerMonth(), unlimited),
		SMSAlerts:   dimension(usage.SMSSent, effective.MaxSMSPerMonth(), unlimited),
		EmailAlerts: effective.Plan.EmailAlerts || unlimited,
		SMSEnabled:  effective.Plan.SMSAlerts || unlimited,
		SlackAlerts: effective.Plan.SlackAlerts || unlimited,
	}, nil
}

func dimension(used int64, limit *int, unlimited bool) Dimension {
	if unlimited || limit == nil {
		return Dimension{Used: used, Unlimited: true}
	}
	return Dimension{Used: used, Limit: *limit}
}

// CanAddDomain reports whether the user may monitor one more domain.
func (s *Service) CanAddDomain(userID uint, currentCount int) (bool, error) {
	effective, err := s.ResolveEffectivePlan(userID)
	if err != nil {
		return false, err
	}
	if effective.IsUnlimitedTier() {
		return true, nil
	}
	limit := effective.MaxDomains()
	if limit == nil {
		return true, nil
	}
	allowed := currentCount < *limit
	if !allowed {
		s.auditDenied(userID, "domains")
	}
	return allowed, nil
}

// CanAddTeamMember reports whether the user may invite one more member.
func (s *Service) CanAddTeamMember(userID uint, currentCount int) (bool, error) {
	effective, err := s.ResolveEffectivePlan(userID)
	if err != nil {
		return false, err
	}
	if effective.IsUnlimitedTier() {
		return true, nil
	}
	limit := effective.MaxTeamMembers()
	if limit == nil {
		return true, nil
	}
	allowed := currentCount < *limit
	if !allowed {
		s.auditDenied(userID, "team_members")
	}
	return allowed, nil
}

// CanSendSMS reports whether one more SMS alert fits this month's budget.
// A plan without an SMS entitlement (flag off, or a missing/zero monthly
// limit outside the unlimited tier) is not allowed at all.
func (s *Service) CanSendSMS(userID uint) (bool, error) {
	effective, err := s.ResolveEffectivePlan(userID)
	if err != nil {
		return false, err
	}
	if effective.IsUnlimitedTier() {
		return true, nil
	}
	limit := effective.MaxSMSPerMonth()
	if !effective.Plan.SMSAlerts || limit == nil || *limit == 0 {
		s.auditDenied(userID, "sms_feature")
		return false, nil
	}

	usage, err := s.usage.GetByUserMonth(userID, models.MonthKey(s.clock.Now()))
	if err != nil {
		return false, err
	}
	allowed := usage.SMSSent < int64(*limit)
	if !allowed {
		s.auditDenied(userID, "sms")
	}
	return allowed, nil
}

// CanMakeAPIRequest reports whether one more API request fits this month's
// budget.
func (s *Service) CanMakeAPIRequest(userID uint) (bool, error) {
	effective, err := s.ResolveEffectivePlan(userID)
	if err != nil {
		return false, err
	}
	if effective.IsUnlimitedTier() {
		return true, nil
	}
	limit := effective.MaxAPIRequestsPerMonth()
	if limit == nil || *limit == 0 {
		s.auditDenied(userID, "api_feature")
		return false, nil
	}

	usage, err := s.usage.GetByUserMonth(userID, models.MonthKey(s.clock.Now()))
	if err != nil {
		return false, err
	}
	allowed := usage.APIRequests < int64(*limit)
	if !allowed {
		s.auditDenied(userID, "api_requests")
	}
	return allowed, nil
}

// CanUseSlackAlerts reports whether Slack alerting is part of the plan.
// Feature flags are never tightened by the trial override.
func (s *Service) CanUseSlackAlerts(userID uint) (bool, error) {
	effective, err := s.ResolveEffectivePlan(userID)
	if err != nil {
		return false, err
	}
	return effective.Plan.SlackAlerts || effective.IsUnlimitedTier(), nil
}

// IncrementAPIRequests adds to this month's API request counter.
func (s *Service) IncrementAPIRequests(userID uint, count int64) error {
	return s.usage.IncrementAPIRequests(userID, models.MonthKey(s.clock.Now()), count)
}

// IncrementSMSAlerts adds to this month's SMS counter.
func (s *Service) IncrementSMSAlerts(userID uint, count int64) error {
	return s.usage.IncrementSMS(userID, models.MonthKey(s.clock.Now()), count)
}

func (s *Service) auditDenied(userID uint, dimension string) {
	s.sink.Record(audit.Entry{
		Level:     audit.LevelWarn,
		Action:    "limit_denied",
		Message:   "entitlement check denied",
		UserID:    userID,
		ErrorCode: "quota",
		Metadata:  map[string]interface{}{"dimension": dimension},
	})
}
