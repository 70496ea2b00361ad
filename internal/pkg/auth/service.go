package auth

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ManuelReschke/PulseFox/app/models"
	"github.com/ManuelReschke/PulseFox/app/repository"
	"github.com/ManuelReschke/PulseFox/internal/pkg/audit"
	"github.com/ManuelReschke/PulseFox/internal/pkg/clock"
	"github.com/ManuelReschke/PulseFox/internal/pkg/ratelimit"
)

// AccountService orchestrates the caller-facing credential operations:
// register, login, refresh, logout, verification and password reset flows.
// Credential errors never reveal whether an email exists.
type AccountService struct {
	users        repository.UserRepository
	tokens       *TokenService
	verification *VerificationService
	limiter      *ratelimit.Limiter
	sink         audit.Sink
	clock        clock.Clock
}

// NewAccountService wires the account flows from their collaborators.
func NewAccountService(
	users repository.UserRepository,
	tokens *TokenService,
	verification *VerificationService,
	limiter *ratelimit.Limiter,
	sink audit.Sink,
	clk clock.Clock,
) *AccountService {
	return &AccountService{
		users:        users,
		tokens:       tokens,
		verification: verification,
		limiter:      limiter,
		sink:         sink,
		clock:        clk,
	}
}

// Register creates an unverified account and issues the first verification
// email through the rate limiter.
func (s *AccountService) Register(name, email, password string) (*models.User, error) {
	normalized := models.NormalizeEmail(email)

	if _, err := s.users.GetByEmail(normalized); err == nil {
		return nil, ErrEmailAlreadyRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user, err := models.CreateUser(name, normalized, password)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(user); err != nil {
		return nil, err
	}

	s.sink.Record(audit.Entry{
		Level:   audit.LevelInfo,
		Action:  "user_registered",
		Message: "account registered",
		UserID:  user.ID,
	})

	if err := s.issueVerificationLimited(user); err != nil {
		return nil, err
	}

	return user, nil
}

// Login verifies credentials and issues a token pair. An unverified login
// silently re-triggers the verification email when the limiter allows it;
// the returned error then carries both ErrEmailNotVerified and, when the
// send was suppressed, ErrRateLimited for the caller's messaging.
func (s *AccountService) Login(email, password string) (*TokenPair, *models.User, error) {
	user, err := s.users.GetByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if user.Status == models.STATUS_DISABLED || !user.CheckPassword(password) {
		return nil, nil, ErrInvalidCredentials
	}

	if !user.EmailVerified {
		allowed, limitErr := s.limiter.Check(user.Email)
		if limitErr != nil {
			return nil, nil, limitErr
		}
		if allowed {
			if err := s.verification.IssueVerification(user); err != nil {
				return nil, nil, err
			}
			return nil, nil, ErrEmailNotVerified
		}
		s.auditLimitDenied(user.ID)
		return nil, nil, fmt.Errorf("%w: %w", ErrEmailNotVerified, ErrRateLimited)
	}

	now := s.clock.Now()
	user.LastLoginAt = &now
	if err := s.users.Update(user); err != nil {
		return nil, nil, err
	}

	pair, err := s.tokens.Issue(user)
	if err != nil {
		return nil, nil, err
	}

	return pair, user, nil
}

// Refresh rotates a presented refresh secret for a fresh pair.
func (s *AccountService) Refresh(refreshSecret string) (*TokenPair, error) {
	return s.tokens.Rotate(refreshSecret)
}

// Logout revokes the presented refresh secret; it reports whether a live
// session was actually ended.
func (s *AccountService) Logout(refreshSecret string) (bool, error) {
	return s.tokens.Revoke(refreshSecret)
}

// LogoutAll ends every session of the user.
func (s *AccountService) LogoutAll(userID uint) error {
	return s.tokens.RevokeAll(userID)
}

// ResendVerification re-issues the verification email when the limiter
// allows. It always reports generic success to avoid revealing whether the
// address is registered or verified.
func (s *AccountService) ResendVerification(email string) error {
	user, err := s.users.GetByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if user.EmailVerified {
		return nil
	}
	return s.issueVerificationLimited(user)
}

// VerifyEmail redeems a verification secret.
func (s *AccountService) VerifyEmail(secret string) (*models.User, error) {
	return s.verification.ConsumeVerification(secret)
}

// ForgotPassword issues a reset email when the limiter allows. It always
// reports generic success.
func (s *AccountService) ForgotPassword(email string) error {
	user, err := s.users.GetByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	allowed, err := s.limiter.Check(user.Email)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditLimitDenied(user.ID)
		return nil
	}

	return s.verification.IssueReset(user)
}

// ResetPassword redeems a reset secret and sets the new password.
func (s *AccountService) ResetPassword(secret, newPassword string) (*models.User, error) {
	return s.verification.ConsumeReset(secret, newPassword)
}

// issueVerificationLimited sends a verification email only when the
// limiter allows; the denial is audited, never surfaced.
func (s *AccountService) issueVerificationLimited(user *models.User) error {
	allowed, err := s.limiter.Check(user.Email)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditLimitDenied(user.ID)
		return nil
	}
	return s.verification.IssueVerification(user)
}

func (s *AccountService) auditLimitDenied(userID uint) {
	s.sink.Record(audit.Entry{
		Level:     audit.LevelWarn,
		Action:    "limit_denied",
		Message:   "verification email rate limit reached",
		UserID:    userID,
		ErrorCode: "rate_limited",
	})
}
