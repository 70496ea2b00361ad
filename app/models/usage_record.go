package models

import "time"

// UsageRecord meters one user for one calendar month. Counters only grow
// within a month, always through atomic upsert-increments; months without a
// row count as zero.
type UsageRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;uniqueIndex:ux_usage_user_month,priority:1" json:"user_id"`
	Month       string    `gorm:"type:char(7);not null;uniqueIndex:ux_usage_user_month,priority:2" json:"month"`
	APIRequests int64     `gorm:"not null;default:0" json:"api_requests"`
	SMSSent     int64     `gorm:"not null;default:0" json:"sms_sent"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// MonthKey formats the calendar-month key ("YYYY-MM") for a point in time.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
