package repository

import (
	"time"

	"github.com/ManuelReschke/PulseFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// rateLimitRepository implements the RateLimitRepository interface
type rateLimitRepository struct {
	db *gorm.DB
}

// NewRateLimitRepository creates a new rate limit repository instance
func NewRateLimitRepository(db *gorm.DB) RateLimitRepository {
	return &rateLimitRepository{db: db}
}

// Hit records one attempt for the key and reports whether it is allowed.
// Each step is a single conditional statement, so concurrent hitters race
// through the ladder without read-modify-write gaps:
//
//  1. increment inside an active window while below the cap
//  2. reset an expired window back to attempts=1
//  3. insert the very first record for the key
//
// A hitter that loses every step is inside an active window at the cap.
func (r *rateLimitRepository) Hit(key string, maxAttempts int, window time.Duration, now time.Time) (bool, error) {
	cutoff := now.Add(-window)

	tx := r.db.Model(&models.RateLimit{}).
		Where("key_name = ? AND window_started_at > ? AND attempts < ?", key, cutoff, maxAttempts).
		Updates(map[string]interface{}{
			"attempts":        gorm.Expr("attempts + 1"),
			"last_attempt_at": now,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	if tx.RowsAffected > 0 {
		return true, nil
	}

	tx = r.db.Model(&models.RateLimit{}).
		Where("key_name = ? AND window_started_at <= ?", key, cutoff).
		Updates(map[string]interface{}{
			"attempts":          1,
			"window_started_at": now,
			"last_attempt_at":   now,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	if tx.RowsAffected > 0 {
		return true, nil
	}

	record := models.RateLimit{
		KeyName:         key,
		Attempts:        1,
		WindowStartedAt: now,
		LastAttemptAt:   now,
	}
	tx = r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key_name"}},
		DoNothing: true,
	}).Create(&record)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// Get returns the current counter state for a key.
func (r *rateLimitRepository) Get(key string) (*models.RateLimit, error) {
	var record models.RateLimit
	err := r.db.Where("key_name = ?", key).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}
