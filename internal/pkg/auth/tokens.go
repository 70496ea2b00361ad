package auth

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ManuelReschke/PulseFox/app/models"
	"github.com/ManuelReschke/PulseFox/app/repository"
	"github.com/ManuelReschke/PulseFox/internal/pkg/audit"
	"github.com/ManuelReschke/PulseFox/internal/pkg/clock"
	"github.com/ManuelReschke/PulseFox/internal/pkg/security"
)

// TokenPair carries one issuance: a short-lived signed bearer assertion and
// the long-lived opaque refresh secret. The secret crosses this boundary in
// plaintext exactly once; only its digest is persisted.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenService issues, rotates and revokes refresh token families and signs
// bearer assertions. A refresh secret is single-use: presenting an already
// rotated one is treated as credential theft and revokes the whole family.
type TokenService struct {
	tokens repository.RefreshTokenRepository
	users  repository.UserRepository
	bearer *security.BearerCodec
	sink   audit.Sink
	clock  clock.Clock
}

// NewTokenService wires the token manager from its collaborators.
func NewTokenService(
	tokens repository.RefreshTokenRepository,
	users repository.UserRepository,
	bearer *security.BearerCodec,
	sink audit.Sink,
	clk clock.Clock,
) *TokenService {
	return &TokenService{
		tokens: tokens,
		users:  users,
		bearer: bearer,
		sink:   sink,
		clock:  clk,
	}
}

// Issue creates a fresh token pair for the user and persists the refresh
// secret's digest with expiry.
func (s *TokenService) Issue(user *models.User) (*TokenPair, error) {
	access, err := s.bearer.Sign(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("signing bearer assertion: %w", err)
	}

	secret, digest, err := security.GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("generating refresh secret: %w", err)
	}

	record := &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: digest,
		ExpiresAt: s.clock.Now().Add(models.RefreshTokenTTL),
	}
	if err := s.tokens.Create(record); err != nil {
		return nil, err
	}

	s.sink.Record(audit.Entry{
		Level:   audit.LevelInfo,
		Action:  "token_issued",
		Message: "refresh token issued",
		UserID:  user.ID,
	})

	return &TokenPair{AccessToken: access, RefreshToken: secret}, nil
}

// Rotate exchanges a presented refresh secret for a fresh pair. The old
// record is revoked with a conditional write before the new pair exists, so
// two concurrent rotations of the same secret yield at most one winner; the
// loser observes the record as revoked and lands on the reuse path.
func (s *TokenService) Rotate(presentedSecret string) (*TokenPair, error) {
	record, err := s.tokens.GetByTokenHash(security.HashSecret(presentedSecret))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if record.Revoked {
		return nil, s.cascadeReuse(record)
	}

	if record.IsExpired(s.clock.Now()) {
		return nil, ErrTokenExpired
	}

	revoked, err := s.tokens.RevokeByID(record.ID)
	if err != nil {
		return nil, err
	}
	if !revoked {
		// Lost the rotation race: someone rotated this record between our
		// read and the conditional write. Same treatment as reuse.
		return nil, s.cascadeReuse(record)
	}

	user, err := s.users.GetByID(record.UserID)
	if err != nil {
		return nil, err
	}

	pair, err := s.Issue(user)
	if err != nil {
		return nil, err
	}

	s.sink.Record(audit.Entry{
		Level:   audit.LevelInfo,
		Action:  "token_rotated",
		Message: "refresh token rotated",
		UserID:  record.UserID,
	})

	return pair, nil
}

// cascadeReuse revokes the whole family and reports reuse.
func (s *TokenService) cascadeReuse(record *models.RefreshToken) error {
	revoked, err := s.tokens.RevokeAllByUser(record.UserID)
	if err != nil {
		return err
	}
	s.sink.Record(audit.Entry{
		Level:     audit.LevelWarn,
		Action:    "token_reuse_detected",
		Message:   "refresh token reuse detected, token family revoked",
		UserID:    record.UserID,
		ErrorCode: "token_reuse",
		Metadata:  map[string]interface{}{"revoked_tokens": revoked},
	})
	return ErrTokenReuseDetected
}

// Revoke revokes a single record by its secret and reports whether
// anything was revoked.
func (s *TokenService) Revoke(presentedSecret string) (bool, error) {
	return s.tokens.RevokeByTokenHash(security.HashSecret(presentedSecret))
}

// RevokeAll revokes every active record of a user ("log out everywhere",
// password reset).
func (s *TokenService) RevokeAll(userID uint) error {
	revoked, err := s.tokens.RevokeAllByUser(userID)
	if err != nil {
		return err
	}
	s.sink.Record(audit.Entry{
		Level:    audit.LevelInfo,
		Action:   "tokens_revoked",
		Message:  "all refresh tokens revoked",
		UserID:   userID,
		Metadata: map[string]interface{}{"revoked_tokens": revoked},
	})
	return nil
}
