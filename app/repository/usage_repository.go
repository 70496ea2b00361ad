package repository

import (
	"github.com/ManuelReschke/PulseFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// usageRepository implements the UsageRepository interface
type usageRepository struct {
	db *gorm.DB
}

// NewUsageRepository creates a new usage repository instance
func NewUsageRepository(db *gorm.DB) UsageRepository {
	return &usageRepository{db: db}
}

// IncrementAPIRequests adds n to this month's API request counter.
func (r *usageRepository) IncrementAPIRequests(userID uint, month string, n int64) error {
	return r.increment(userID, month, "api_requests", n)
}

// IncrementSMS adds n to this month's SMS counter.
func (r *usageRepository) IncrementSMS(userID uint, month string, n int64) error {
	return r.increment(userID, month, "sms_sent", n)
}

// increment is an insert-or-add in a single statement; parallel callers
// against the same (user, month) row must not lose updates.
func (r *usageRepository) increment(userID uint, month, column string, n int64) error {
	if n <= 0 {
		return nil
	}
	record := models.UsageRecord{
		UserID: userID,
		Month:  month,
	}
	switch column {
	case "api_requests":
		record.APIRequests = n
	case "sms_sent":
		record.SMSSent = n
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "month"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			column: gorm.Expr(column+" + ?", n),
		}),
	}).Create(&record).Error
}

// GetByUserMonth returns the usage row for a user and month; months without
// a record come back as zero counters, not as an error.
func (r *usageRepository) GetByUserMonth(userID uint, month string) (*models.UsageRecord, error) {
	var record models.UsageRecord
	err := r.db.Where("user_id = ? AND month = ?", userID, month).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return &models.UsageRecord{UserID: userID, Month: month}, nil
		}
		return nil, err
	}
	return &record, nil
}
