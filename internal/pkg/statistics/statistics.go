package statistics

import (
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/ManuelReschke/PulseFox/app/models"
	"github.com/ManuelReschke/PulseFox/internal/pkg/cache"
	"github.com/ManuelReschke/PulseFox/internal/pkg/database"
)

const (
	CacheKeyUsersTotal   = "statistics:users:total"
	CacheKeyTrialsActive = "statistics:subscriptions:trials"
	CacheKeyPaidActive   = "statistics:subscriptions:paid"
	CacheExpiration      = 30 * time.Minute
)

// StatisticsData holds the aggregate account numbers shown on the admin
// dashboard.
type StatisticsData struct {
	TotalUsers   int
	ActiveTrials int
	PaidPlans    int
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache reports whether the refresh interval has elapsed.
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// UpdateCacheIfNeeded refreshes the cached statistics when stale.
func UpdateCacheIfNeeded() {
	if ShouldUpdateCache() {
		cacheUpdateMutex.Lock()
		defer cacheUpdateMutex.Unlock()

		if err := UpdateStatisticsCache(); err != nil {
			log.Printf("Error updating statistics cache: %v", err)
		} else {
			lastCacheUpdate = time.Now()
		}
	}
}

// UpdateStatisticsCache recomputes all statistics and writes them to the cache
func UpdateStatisticsCache() error {
	db := database.GetDB()

	var totalUsers int64
	if err := db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		log.Printf("Error counting users: %v", err)
		return err
	}

	var activeTrials int64
	if err := db.Model(&models.UserSubscription{}).
		Where("status = ? AND is_trial = ?", models.SubscriptionStatusTrial, true).
		Count(&activeTrials).Error; err != nil {
		log.Printf("Error counting active trials: %v", err)
		return err
	}

	var paidPlans int64
	if err := db.Model(&models.UserSubscription{}).
		Joins("JOIN subscription_plans ON subscription_plans.id = user_subscriptions.plan_id").
		Where("user_subscriptions.status = ? AND subscription_plans.price_cents > 0", models.SubscriptionStatusActive).
		Count(&paidPlans).Error; err != nil {
		log.Printf("Error counting paid subscriptions: %v", err)
		return err
	}

	if err := cache.Set(CacheKeyUsersTotal, totalUsers, CacheExpiration); err != nil {
		return err
	}
	if err := cache.Set(CacheKeyTrialsActive, activeTrials, CacheExpiration); err != nil {
		return err
	}
	return cache.Set(CacheKeyPaidActive, paidPlans, CacheExpiration)
}

// GetStatistics reads the cached statistics, refreshing the cache on miss.
func GetStatistics() StatisticsData {
	data := StatisticsData{}

	users, err := cache.Get(CacheKeyUsersTotal)
	if err != nil {
		if err := UpdateStatisticsCache(); err != nil {
			return data
		}
		users, _ = cache.Get(CacheKeyUsersTotal)
	}
	data.TotalUsers, _ = strconv.Atoi(users)

	if trials, err := cache.Get(CacheKeyTrialsActive); err == nil {
		data.ActiveTrials, _ = strconv.Atoi(trials)
	}
	if paid, err := cache.Get(CacheKeyPaidActive); err == nil {
		data.PaidPlans, _ = strconv.Atoi(paid)
	}

	return data
}
