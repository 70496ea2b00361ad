package repository

import (
	"time"

	"github.com/ManuelReschke/PulseFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// subscriptionRepository implements the SubscriptionRepository interface
type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository instance
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// SeedPlans upserts the reference plan rows by name. Existing rows keep
// their IDs so user subscriptions stay attached across restarts.
func (r *subscriptionRepository) SeedPlans(plans []models.SubscriptionPlan) error {
	for i := range plans {
		if err := r.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"display_name",
				"max_domains",
				"max_team_members",
				"check_interval_seconds",
				"max_api_requests_per_month",
				"max_sms_per_month",
				"email_alerts",
				"sms_alerts",
				"slack_alerts",
				"price_cents",
				"updated_at",
			}),
		}).Create(&plans[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetPlanByName retrieves a plan by its tier name
func (r *subscriptionRepository) GetPlanByName(name string) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	err := r.db.Where("name = ?", name).First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// GetPlanByID retrieves a plan by its primary key
func (r *subscriptionRepository) GetPlanByID(id uint) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	err := r.db.First(&plan, id).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// ListPlans returns all reference plans ordered by price
func (r *subscriptionRepository) ListPlans() ([]models.SubscriptionPlan, error) {
	var plans []models.SubscriptionPlan
	err := r.db.Order("price_cents ASC").Find(&plans).Error
	return plans, err
}

// UpsertUserSubscription writes the single subscription row for a user.
// The conflict target is the user_id unique index, so assigning a second
// plan rewrites the existing row instead of creating another.
func (r *subscriptionRepository) UpsertUserSubscription(sub *models.UserSubscription) error {
	if err := r.db.Omit("Plan").Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"plan_id",
			"status",
			"is_trial",
			"trial_ends_at",
			"billing_cycle",
			"billing_ref",
			"updated_at",
		}),
	}).Create(sub).Error; err != nil {
		return err
	}

	// Ensure ID and plan association are populated after upsert.
	return r.db.Preload("Plan").Where("user_id = ?", sub.UserID).First(sub).Error
}

// GetByUserID retrieves the subscription row with its plan preloaded
func (r *subscriptionRepository) GetByUserID(userID uint) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	err := r.db.Preload("Plan").Where("user_id = ?", userID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// DowngradeExpiredTrial rewrites an expired trial row to the base plan in
// one guarded full-row update. The trial predicate keeps the write from
// interleaving with a concurrent plan change or a second expiry check.
func (r *subscriptionRepository) DowngradeExpiredTrial(userID, basePlanID uint, now time.Time) (bool, error) {
	tx := r.db.Model(&models.UserSubscription{}).
		Where("user_id = ? AND is_trial = ? AND status = ? AND trial_ends_at IS NOT NULL AND trial_ends_at <= ?",
			userID, true, models.SubscriptionStatusTrial, now).
		Updates(map[string]interface{}{
			"plan_id":       basePlanID,
			"status":        models.SubscriptionStatusActive,
			"is_trial":      false,
			"trial_ends_at": nil,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// CancelActive marks the subscription cancelled, but only when it is
// currently active.
func (r *subscriptionRepository) CancelActive(userID uint) (bool, error) {
	tx := r.db.Model(&models.UserSubscription{}).
		Where("user_id = ? AND status = ?", userID, models.SubscriptionStatusActive).
		Update("status", models.SubscriptionStatusCancelled)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
