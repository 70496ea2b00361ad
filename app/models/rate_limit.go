package models

import "time"

// RateLimit is a fixed-window attempt counter keyed by a normalized
// identity key (email). The window resets wholesale the first time a hit
// arrives after WindowStartedAt + window length.
type RateLimit struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	KeyName         string    `gorm:"type:varchar(200);uniqueIndex;not null" json:"key_name"`
	Attempts        int       `gorm:"not null;default:0" json:"attempts"`
	WindowStartedAt time.Time `gorm:"not null" json:"window_started_at"`
	LastAttemptAt   time.Time `gorm:"not null" json:"last_attempt_at"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
