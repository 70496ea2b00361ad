package subscription

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PulseFox/app/models"
	"github.com/ManuelReschke/PulseFox/app/repository"
	"github.com/ManuelReschke/PulseFox/internal/pkg/audit"
	"github.com/ManuelReschke/PulseFox/internal/pkg/clock"
)

// ErrPlanNotFound reports a plan change to a tier missing from reference data.
var ErrPlanNotFound = errors.New("subscription plan not found")

// TrialInfo is a snapshot of the trial state of one user.
type TrialInfo struct {
	IsOnTrial     bool       `json:"is_on_trial"`
	TrialEndsAt   *time.Time `json:"trial_ends_at,omitempty"`
	DaysRemaining int        `json:"days_remaining"`
	IsExpired     bool       `json:"is_expired"`
}

// Service is the subscription and trial state machine. Every user holds at
// most one subscription row; plan assignment upserts it, trial expiry
// downgrades it lazily from the entitlement read path.
type Service struct {
	repo  repository.SubscriptionRepository
	sink  audit.Sink
	clock clock.Clock
}

// NewService wires the subscription state machine.
func NewService(repo repository.SubscriptionRepository, sink audit.Sink, clk clock.Clock) *Service {
	return &Service{repo: repo, sink: sink, clock: clk}
}

// AssignDefault puts the user on the base plan with status active.
func (s *Service) AssignDefault(userID uint) error {
	plan, err := s.repo.GetPlanByName(models.PLAN_FREE)
	if err != nil {
		return err
	}

	sub := &models.UserSubscription{
		UserID:       userID,
		PlanID:       plan.ID,
		Status:       models.SubscriptionStatusActive,
		IsTrial:      false,
		TrialEndsAt:  nil,
		BillingCycle: models.BillingCycleMonth,
		BillingRef:   uuid.NewString(),
	}
	if err := s.repo.UpsertUserSubscription(sub); err != nil {
		return err
	}

	s.sink.Record(audit.Entry{
		Level:   audit.LevelInfo,
		Action:  "plan_assigned",
		Message: "default plan assigned",
		UserID:  userID,
	})
	return nil
}

// AssignTrial puts the user on a 14-day Professional trial. When the
// Professional plan is missing from reference data it falls back to the
// default assignment.
func (s *Service) AssignTrial(userID uint) error {
	plan, err := s.repo.GetPlanByName(models.PLAN_PROFESSIONAL)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.AssignDefault(userID)
		}
		return err
	}

	trialEnds := s.clock.Now().Add(models.TrialDuration)
	sub := &models.UserSubscription{
		UserID:       userID,
		PlanID:       plan.ID,
		Status:       models.SubscriptionStatusTrial,
		IsTrial:      true,
		TrialEndsAt:  &trialEnds,
		BillingCycle: models.BillingCycleMonth,
		BillingRef:   uuid.NewString(),
	}
	if err := s.repo.UpsertUserSubscription(sub); err != nil {
		return err
	}

	s.sink.Record(audit.Entry{
		Level:    audit.LevelInfo,
		Action:   "trial_assigned",
		Message:  "trial subscription assigned",
		UserID:   userID,
		Metadata: map[string]interface{}{"trial_ends_at": trialEnds},
	})
	return nil
}

// GetTrialInfo is a pure read of the stored trial state. DaysRemaining is
// the ceiling of remaining whole days and zero once expired.
func (s *Service) GetTrialInfo(userID uint) (*TrialInfo, error) {
	sub, err := s.repo.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &TrialInfo{}, nil
		}
		return nil, err
	}

	if !sub.IsTrial || sub.TrialEndsAt == nil {
		return &TrialInfo{}, nil
	}

	now := s.clock.Now()
	if now.After(*sub.TrialEndsAt) {
		return &TrialInfo{
			TrialEndsAt: sub.TrialEndsAt,
			IsExpired:   true,
		}, nil
	}

	remaining := sub.TrialEndsAt.Sub(now)
	days := int(math.Ceil(remaining.Hours() / 24))
	return &TrialInfo{
		IsOnTrial:     true,
		TrialEndsAt:   sub.TrialEndsAt,
		DaysRemaining: days,
	}, nil
}

// CheckAndHandleExpiration downgrades an expired trial to the base plan and
// reports whether a downgrade happened. The downgrade is a guarded full-row
// write, so concurrent checks and plan changes cannot interleave.
func (s *Service) CheckAndHandleExpiration(userID uint) (bool, error) {
	sub, err := s.repo.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	if !sub.IsTrialExpired(s.clock.Now()) {
		return false, nil
	}

	basePlan, err := s.repo.GetPlanByName(models.PLAN_FREE)
	if err != nil {
		return false, err
	}

	downgraded, err := s.repo.DowngradeExpiredTrial(userID, basePlan.ID, s.clock.Now())
	if err != nil {
		return false, err
	}
	if downgraded {
		s.sink.Record(audit.Entry{
			Level:   audit.LevelInfo,
			Action:  "trial_expired",
			Message: "trial expired, downgraded to base plan",
			UserID:  userID,
		})
	}
	return downgraded, nil
}

// GetSubscription returns the user's subscription row with its plan.
func (s *Service) GetSubscription(userID uint) (*models.UserSubscription, error) {
	return s.repo.GetByUserID(userID)
}

// ChangePlan moves the user to the named plan with status active.
func (s *Service) ChangePlan(userID uint, planName, billingCycle string) error {
	plan, err := s.repo.GetPlanByName(planName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPlanNotFound
		}
		return err
	}

	if billingCycle != models.BillingCycleYear {
		billingCycle = models.BillingCycleMonth
	}

	sub := &models.UserSubscription{
		UserID:       userID,
		PlanID:       plan.ID,
		Status:       models.SubscriptionStatusActive,
		IsTrial:      false,
		TrialEndsAt:  nil,
		BillingCycle: billingCycle,
		BillingRef:   uuid.NewString(),
	}
	if err := s.repo.UpsertUserSubscription(sub); err != nil {
		return err
	}

	s.sink.Record(audit.Entry{
		Level:    audit.LevelInfo,
		Action:   "plan_changed",
		Message:  "subscription plan changed",
		UserID:   userID,
		Metadata: map[string]interface{}{"plan": plan.Name},
	})
	return nil
}

// Cancel marks a currently active subscription cancelled.
func (s *Service) Cancel(userID uint) (bool, error) {
	cancelled, err := s.repo.CancelActive(userID)
	if err != nil {
		return false, err
	}
	if cancelled {
		s.sink.Record(audit.Entry{
			Level:   audit.LevelInfo,
			Action:  "plan_cancelled",
			Message: "subscription cancelled",
			UserID:  userID,
		})
	}
	return cancelled, nil
}
