package models

import "time"

const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusCancelled = "cancelled"
	SubscriptionStatusExpired   = "expired"
	SubscriptionStatusTrial     = "trial"
)

const (
	BillingCycleMonth = "month"
	BillingCycleYear  = "year"
)

// TrialDuration is the Professional trial window granted on email verification.
const TrialDuration = 14 * 24 * time.Hour

// UserSubscription is the single subscription row per user. The unique
// index on UserID enforces the one-row invariant; plan changes, trial
// expiry and cancellation all rewrite this row, it is never hard-deleted.
type UserSubscription struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	UserID       uint             `gorm:"uniqueIndex;not null" json:"user_id"`
	PlanID       uint             `gorm:"not null;index" json:"plan_id"`
	Plan         SubscriptionPlan `gorm:"foreignKey:PlanID" json:"plan"`
	Status       string           `gorm:"type:varchar(32);not null;default:'active';index" json:"status" validate:"oneof=active cancelled expired trial"`
	IsTrial      bool             `gorm:"not null;default:false" json:"is_trial"`
	TrialEndsAt  *time.Time       `gorm:"type:timestamp;default:null" json:"trial_ends_at,omitempty"`
	BillingCycle string           `gorm:"type:varchar(16);not null;default:'month'" json:"billing_cycle"`
	BillingRef   string           `gorm:"type:varchar(64);default:''" json:"billing_ref"`
	CreatedAt    time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTrialExpired reports whether a trial subscription has run past its end.
func (s *UserSubscription) IsTrialExpired(now time.Time) bool {
	return s.IsTrial && s.TrialEndsAt != nil && now.After(*s.TrialEndsAt)
}

// IsOnActiveTrial reports whether the subscription is a trial that has not
// yet expired at the given instant.
func (s *UserSubscription) IsOnActiveTrial(now time.Time) bool {
	return s.IsTrial && s.Status == SubscriptionStatusTrial && s.TrialEndsAt != nil && !now.After(*s.TrialEndsAt)
}
