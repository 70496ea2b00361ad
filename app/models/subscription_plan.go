package models

import "time"

const (
	PLAN_FREE         = "free"
	PLAN_PROFESSIONAL = "professional"
	PLAN_ENTERPRISE   = "enterprise"
)

// SubscriptionPlan is immutable reference data seeded once at startup.
// A nil limit means unlimited for that dimension; the enterprise plan is
// additionally treated as unlimited everywhere by the quota engine.
type SubscriptionPlan struct {
	ID                     uint      `gorm:"primaryKey" json:"id"`
	Name                   string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"name" validate:"required,oneof=free professional enterprise"`
	DisplayName            string    `gorm:"type:varchar(100);not null" json:"display_name"`
	MaxDomains             *int      `gorm:"default:null" json:"max_domains"`
	MaxTeamMembers         *int      `gorm:"default:null" json:"max_team_members"`
	CheckIntervalSeconds   int       `gorm:"not null;default:300" json:"check_interval_seconds"`
	MaxAPIRequestsPerMonth *int      `gorm:"default:null" json:"max_api_requests_per_month"`
	MaxSMSPerMonth         *int      `gorm:"default:null" json:"max_sms_per_month"`
	EmailAlerts            bool      `gorm:"not null;default:true" json:"email_alerts"`
	SMSAlerts              bool      `gorm:"not null;default:false" json:"sms_alerts"`
	SlackAlerts            bool      `gorm:"not null;default:false" json:"slack_alerts"`
	PriceCents             int       `gorm:"not null;default:0" json:"price_cents"`
	CreatedAt              time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsUnlimitedTier reports whether the plan bypasses every quota dimension.
func (p *SubscriptionPlan) IsUnlimitedTier() bool {
	return p.Name == PLAN_ENTERPRISE
}

func intPtr(v int) *int { return &v }

// DefaultPlans returns the seed rows for the three tiers.
func DefaultPlans() []SubscriptionPlan {
	return []SubscriptionPlan{
		{
			Name:                   PLAN_FREE,
			DisplayName:            "Free",
			MaxDomains:             intPtr(10),
			MaxTeamMembers:         intPtr(1),
			CheckIntervalSeconds:   300,
			MaxAPIRequestsPerMonth: intPtr(1000),
			MaxSMSPerMonth:         intPtr(0),
			EmailAlerts:            true,
			SMSAlerts:              false,
			SlackAlerts:            false,
			PriceCents:             0,
		},
		{
			Name:                   PLAN_PROFESSIONAL,
			DisplayName:            "Professional",
			MaxDomains:             intPtr(50),
			MaxTeamMembers:         intPtr(5),
			CheckIntervalSeconds:   60,
			MaxAPIRequestsPerMonth: intPtr(100000),
			MaxSMSPerMonth:         intPtr(100),
			EmailAlerts:            true,
			SMSAlerts:              true,
			SlackAlerts:            true,
			PriceCents:             1900,
		},
		{
			Name:                 PLAN_ENTERPRISE,
			DisplayName:          "Enterprise",
			CheckIntervalSeconds: 30,
			EmailAlerts:          true,
			SMSAlerts:            true,
			SlackAlerts:          true,
			PriceCents:           9900,
		},
	}
}
