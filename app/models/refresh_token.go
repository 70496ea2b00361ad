package models

import "time"

// Default lifetime for opaque refresh secrets. The short-lived bearer token
// TTL lives in the security package; this one bounds the session itself.
const RefreshTokenTTL = 30 * 24 * time.Hour

// RefreshToken holds one issuance of an opaque refresh secret. Only the
// SHA-256 digest of the secret is persisted; rotation, logout and the
// reuse cascade all flip Revoked, rows are never deleted synchronously.
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	TokenHash string    `gorm:"type:char(64);uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Revoked   bool      `gorm:"not null;default:false;index" json:"revoked"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// IsExpired reports whether the record has passed its expiry.
func (rt *RefreshToken) IsExpired(now time.Time) bool {
	return now.After(rt.ExpiresAt)
}
