package repository

import (
	"time"

	"github.com/ManuelReschke/PulseFox/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByVerificationTokenHash(hash string) (*models.User, error)
	GetByResetTokenHash(hash string) (*models.User, error)
	Update(user *models.User) error
	Count() (int64, error)
}

// RefreshTokenRepository defines the interface for refresh token persistence.
// RevokeByID is the rotation fence: it must be a single conditional write so
// two concurrent rotations of the same record produce exactly one winner.
type RefreshTokenRepository interface {
	Create(token *models.RefreshToken) error
	GetByTokenHash(hash string) (*models.RefreshToken, error)
	RevokeByID(id uint) (bool, error)
	RevokeByTokenHash(hash string) (bool, error)
	RevokeAllByUser(userID uint) (int64, error)
	CountActiveByUser(userID uint, now time.Time) (int64, error)
}

// RateLimitRepository defines the interface for fixed-window counters.
// Hit performs the whole check-and-increment as atomic single statements.
type RateLimitRepository interface {
	Hit(key string, maxAttempts int, window time.Duration, now time.Time) (bool, error)
	Get(key string) (*models.RateLimit, error)
}

// SubscriptionRepository defines the interface for plan reference data and
// per-user subscription rows.
type SubscriptionRepository interface {
	SeedPlans(plans []models.SubscriptionPlan) error
	GetPlanByName(name string) (*models.SubscriptionPlan, error)
	GetPlanByID(id uint) (*models.SubscriptionPlan, error)
	ListPlans() ([]models.SubscriptionPlan, error)
	UpsertUserSubscription(sub *models.UserSubscription) error
	GetByUserID(userID uint) (*models.UserSubscription, error)
	DowngradeExpiredTrial(userID, basePlanID uint, now time.Time) (bool, error)
	CancelActive(userID uint) (bool, error)
}

// UsageRepository defines the interface for monthly usage metering.
// Increments are upsert-adds in one statement; concurrent callers must not
// lose updates.
type UsageRepository interface {
	IncrementAPIRequests(userID uint, month string, n int64) error
	IncrementSMS(userID uint, month string, n int64) error
	GetByUserMonth(userID uint, month string) (*models.UsageRecord, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	RefreshToken RefreshTokenRepository
	RateLimit    RateLimitRepository
	Subscription SubscriptionRepository
	Usage        UsageRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		RefreshToken: NewRefreshTokenRepository(db),
		RateLimit:    NewRateLimitRepository(db),
		Subscription: NewSubscriptionRepository(db),
		Usage:        NewUsageRepository(db),
	}
}
