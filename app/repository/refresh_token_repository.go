package repository

import (
	"strings"
	"time"

	"github.com/ManuelReschke/PulseFox/app/models"
	"gorm.io/gorm"
)

// refreshTokenRepository implements the RefreshTokenRepository interface
type refreshTokenRepository struct {
	db *gorm.DB
}

// NewRefreshTokenRepository creates a new refresh token repository instance
func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

// Create persists a freshly issued refresh token record
func (r *refreshTokenRepository) Create(token *models.RefreshToken) error {
	return r.db.Create(token).Error
}

// GetByTokenHash retrieves a record by the digest of the presented secret
func (r *refreshTokenRepository) GetByTokenHash(hash string) (*models.RefreshToken, error) {
	trimmed := strings.TrimSpace(hash)
	if trimmed == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var token models.RefreshToken
	err := r.db.Where("token_hash = ?", trimmed).First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// RevokeByID revokes a single record, but only if it is still active.
// The revoked=0 guard makes this the atomic rotation fence: of two
// concurrent rotations, exactly one sees RowsAffected=1, the other gets
// false and must treat the token as reused.
func (r *refreshTokenRepository) RevokeByID(id uint) (bool, error) {
	tx := r.db.Model(&models.RefreshToken{}).
		Where("id = ? AND revoked = ?", id, false).
		Update("revoked", true)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// RevokeByTokenHash revokes a single active record by secret digest.
func (r *refreshTokenRepository) RevokeByTokenHash(hash string) (bool, error) {
	trimmed := strings.TrimSpace(hash)
	if trimmed == "" {
		return false, nil
	}
	tx := r.db.Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked = ?", trimmed, false).
		Update("revoked", true)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// RevokeAllByUser revokes every active record of a user (reuse cascade,
// password reset, logout everywhere). Returns the number of revoked rows.
func (r *refreshTokenRepository) RevokeAllByUser(userID uint) (int64, error) {
	tx := r.db.Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true)
	return tx.RowsAffected, tx.Error
}

// CountActiveByUser counts non-revoked, non-expired records for a user.
func (r *refreshTokenRepository) CountActiveByUser(userID uint, now time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ? AND expires_at > ?", userID, false, now).
		Count(&count).Error
	return count, err
}
