package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PulseFox/app/models"
	"github.com/ManuelReschke/PulseFox/app/repository"
	"github.com/ManuelReschke/PulseFox/internal/pkg/audit"
	"github.com/ManuelReschke/PulseFox/internal/pkg/clock"
	"github.com/ManuelReschke/PulseFox/internal/pkg/security"
)

// Mailer delivers verification and reset secrets. Delivery is
// fire-and-forget from the engine's perspective: a failed send never rolls
// back token issuance.
type Mailer interface {
	SendVerificationEmail(to, secret string) error
	SendPasswordResetEmail(to, secret string) error
}

// TrialAssigner starts the trial subscription once an email is verified.
type TrialAssigner interface {
	AssignTrial(userID uint) error
}

// VerificationService manages the single-use, time-boxed email verification
// and password reset tokens stored on the user row.
type VerificationService struct {
	users  repository.UserRepository
	tokens *TokenService
	trials TrialAssigner
	mailer Mailer
	sink   audit.Sink
	clock  clock.Clock
}

// NewVerificationService wires the verification/reset token manager.
func NewVerificationService(
	users repository.UserRepository,
	tokens *TokenService,
	trials TrialAssigner,
	mailer Mailer,
	sink audit.Sink,
	clk clock.Clock,
) *VerificationService {
	return &VerificationService{
		users:  users,
		tokens: tokens,
		trials: trials,
		mailer: mailer,
		sink:   sink,
		clock:  clk,
	}
}

// IssueVerification generates a fresh verification secret, overwrites any
// pending one, and hands the plaintext to the mailer.
func (s *VerificationService) IssueVerification(user *models.User) error {
	secret, digest, err := security.GenerateSecret()
	if err != nil {
		return err
	}

	user.SetVerificationToken(digest, s.clock.Now())
	if err := s.users.Update(user); err != nil {
		return err
	}

	if err := s.mailer.SendVerificationEmail(user.Email, secret); err != nil {
		log.Errorf("verification mail to user %d failed: %v", user.ID, err)
	}

	s.sink.Record(audit.Entry{
		Level:   audit.LevelInfo,
		Action:  "verification_issued",
		Message: "verification token issued",
		UserID:  user.ID,
	})
	return nil
}

// ConsumeVerification redeems a verification secret. On success the user is
// marked verified and the trial is assigned; a trial assignment failure is
// surfaced only to the audit sink, never to the verifying caller.
func (s *VerificationService) ConsumeVerification(secret string) (*models.User, error) {
	user, err := s.users.GetByVerificationTokenHash(security.HashSecret(secret))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if user.EmailVerified {
		return nil, ErrEmailAlreadyVerified
	}
	if user.IsVerificationTokenExpired(s.clock.Now()) {
		return nil, ErrTokenExpired
	}

	user.MarkVerified()
	if err := s.users.Update(user); err != nil {
		return nil, err
	}

	s.sink.Record(audit.Entry{
		Level:   audit.LevelInfo,
		Action:  "email_verified",
		Message: "email address verified",
		UserID:  user.ID,
	})

	if err := s.trials.AssignTrial(user.ID); err != nil {
		s.sink.Record(audit.Entry{
			Level:     audit.LevelError,
			Action:    "trial_assignment_failed",
			Message:   "trial assignment after verification failed",
			UserID:    user.ID,
			ErrorCode: "trial_assignment",
			Metadata:  map[string]interface{}{"error": err.Error()},
		})
	}

	return user, nil
}

// IssueReset generates a password reset secret with a short expiry and
// hands the plaintext to the mailer.
func (s *VerificationService) IssueReset(user *models.User) error {
	secret, digest, err := security.GenerateSecret()
	if err != nil {
		return err
	}

	user.SetResetToken(digest, s.clock.Now())
	if err := s.users.Update(user); err != nil {
		return err
	}

	if err := s.mailer.SendPasswordResetEmail(user.Email, secret); err != nil {
		log.Errorf("reset mail to user %d failed: %v", user.ID, err)
	}

	s.sink.Record(audit.Entry{
		Level:   audit.LevelInfo,
		Action:  "reset_issued",
		Message: "password reset token issued",
		UserID:  user.ID,
	})
	return nil
}

// ConsumeReset redeems a reset secret and sets the new password. A changed
// password invalidates every existing session.
func (s *VerificationService) ConsumeReset(secret, newPassword string) (*models.User, error) {
	user, err := s.users.GetByResetTokenHash(security.HashSecret(secret))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if user.IsResetTokenExpired(s.clock.Now()) {
		return nil, ErrTokenExpired
	}

	if err := user.SetPassword(newPassword); err != nil {
		return nil, err
	}
	user.ClearResetToken()
	if err := s.users.Update(user); err != nil {
		return nil, err
	}

	if err := s.tokens.RevokeAll(user.ID); err != nil {
		return nil, err
	}

	s.sink.Record(audit.Entry{
		Level:   audit.LevelInfo,
		Action:  "password_reset",
		Message: "password reset completed",
		UserID:  user.ID,
	})

	return user, nil
}
