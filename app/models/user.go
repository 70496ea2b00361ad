package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_USER       = "user"
	ROLE_ADMIN      = "admin"
	STATUS_ACTIVE   = "active"
	STATUS_INACTIVE = "inactive"
	STATUS_DISABLED = "disabled"
)

// Verification and reset secrets are handed out once and never stored;
// only their SHA-256 digests live on the user row.
const (
	VerificationTokenTTL = 24 * time.Hour
	ResetTokenTTL        = 1 * time.Hour
)

type User struct {
	ID                    uint           `gorm:"primaryKey" json:"id"`
	Name                  string         `gorm:"type:varchar(150)" json:"name" validate:"required,min=3,max=150"`
	Email                 string         `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,min=5,max=200"`
	Password              string         `gorm:"type:text" json:"-" validate:"required,min=6"`
	Role                  string         `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user admin"`
	Status                string         `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active inactive disabled"`
	EmailVerified         bool           `gorm:"default:false" json:"email_verified"`
	VerificationTokenHash string         `gorm:"type:char(64);default:'';index" json:"-"`
	VerificationSentAt    *time.Time     `gorm:"type:timestamp;default:null" json:"-"`
	VerificationExpiresAt *time.Time     `gorm:"type:timestamp;default:null" json:"-"`
	ResetTokenHash        string         `gorm:"type:char(64);default:'';index" json:"-"`
	ResetExpiresAt        *time.Time     `gorm:"type:timestamp;default:null" json:"-"`
	LastLoginAt           *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt             time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// NormalizeEmail case-folds and trims an address so lookups and the
// uniqueness constraint see one canonical spelling.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func CreateUser(name string, email string, password string) (*User, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:     name,
		Email:    NormalizeEmail(email),
		Password: pw,
		Role:     ROLE_USER,
		Status:   STATUS_INACTIVE,
	}

	err = u.Validate()
	if err != nil {
		return nil, err
	}

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// CheckPassword verifies if the provided password matches the user's stored password
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

// SetPassword hashes and sets a new password for the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashedPassword
	return nil
}

// IsActive reports whether the user status is active
func (u *User) IsActive() bool {
	return u.Status == STATUS_ACTIVE
}

// SetVerificationToken stores the digest of a freshly generated verification
// secret, replacing any pending one.
func (u *User) SetVerificationToken(tokenHash string, now time.Time) {
	expires := now.Add(VerificationTokenTTL)
	u.VerificationTokenHash = tokenHash
	u.VerificationSentAt = &now
	u.VerificationExpiresAt = &expires
}

// IsVerificationTokenExpired reports whether the pending verification token
// has passed its expiry. A user without a pending token counts as expired.
func (u *User) IsVerificationTokenExpired(now time.Time) bool {
	if u.VerificationTokenHash == "" || u.VerificationExpiresAt == nil {
		return true
	}
	return now.After(*u.VerificationExpiresAt)
}

// MarkVerified flips the verification flag and clears the pending token.
func (u *User) MarkVerified() {
	u.EmailVerified = true
	u.Status = STATUS_ACTIVE
	u.VerificationTokenHash = ""
	u.VerificationSentAt = nil
	u.VerificationExpiresAt = nil
}

// SetResetToken stores the digest of a freshly generated password reset
// secret, replacing any pending one.
func (u *User) SetResetToken(tokenHash string, now time.Time) {
	expires := now.Add(ResetTokenTTL)
	u.ResetTokenHash = tokenHash
	u.ResetExpiresAt = &expires
}

// IsResetTokenExpired reports whether the pending reset token has passed its
// expiry. A user without a pending token counts as expired.
func (u *User) IsResetTokenExpired(now time.Time) bool {
	if u.ResetTokenHash == "" || u.ResetExpiresAt == nil {
		return true
	}
	return now.After(*u.ResetExpiresAt)
}

// ClearResetToken removes the pending reset token fields.
func (u *User) ClearResetToken() {
	u.ResetTokenHash = ""
	u.ResetExpiresAt = nil
}
