package quota

import (
	"time"

	"github.com/ManuelReschke/PulseFox/app/models"
)

// PlanSource tags where the effective limits came from, so override logic
// stays explicit instead of leaking ad hoc field patches.
type PlanSource string

const (
	SourceBase          PlanSource = "base"
	SourceTrialOverride PlanSource = "trial_override"
)

// Trial override: full feature set, capped quantities. While a trial is
// active the domain and SMS dimensions are pinned to these values no matter
// what the underlying plan allows.
const (
	TrialMaxDomains     = 10
	TrialMaxSMSPerMonth = 10
)

// EffectivePlan is the plan actually applicable to a user at a point in
// time, after trial-override and expiry resolution.
type EffectivePlan struct {
	Plan        models.SubscriptionPlan
	Source      PlanSource
	TrialEndsAt *time.Time
}

// IsUnlimitedTier reports whether every dimension bypasses quota checks.
func (e *EffectivePlan) IsUnlimitedTier() bool {
	return e.Plan.IsUnlimitedTier()
}

// MaxDomains returns the effective domain limit (nil = unlimited).
func (e *EffectivePlan) MaxDomains() *int {
	if e.Source == SourceTrialOverride {
		v := TrialMaxDomains
		return &v
	}
	return e.Plan.MaxDomains
}

// MaxTeamMembers returns the effective team member limit (nil = unlimited).
func (e *EffectivePlan) MaxTeamMembers() *int {
	return e.Plan.MaxTeamMembers
}

// MaxSMSPerMonth returns the effective monthly SMS limit (nil = unlimited).
func (e *EffectivePlan) MaxSMSPerMonth() *int {
	if e.Source == SourceTrialOverride {
		v := TrialMaxSMSPerMonth
		return &v
	}
	return e.Plan.MaxSMSPerMonth
}

// MaxAPIRequestsPerMonth returns the effective monthly API request limit
// (nil = unlimited).
func (e *EffectivePlan) MaxAPIRequestsPerMonth() *int {
	return e.Plan.MaxAPIRequestsPerMonth
}
