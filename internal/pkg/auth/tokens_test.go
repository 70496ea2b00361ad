package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PulseFox/app/models"
	"github.com/ManuelReschke/PulseFox/internal/pkg/audit"
	"github.com/ManuelReschke/PulseFox/internal/pkg/clock"
	"github.com/ManuelReschke/PulseFox/internal/pkg/security"
)

func newTokenFixture(t *testing.T) (*TokenService, *memUserRepo, *memTokenRepo, *audit.MemorySink, *clock.Fixed) {
	t.Helper()
	users := newMemUserRepo()
	tokens := newMemTokenRepo()
	sink := &audit.MemorySink{}
	clk := clock.NewFixed(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	codec, err := security.NewBearerCodec("test-secret", 15*time.Minute)
	require.NoError(t, err)
	return NewTokenService(tokens, users, codec, sink, clk), users, tokens, sink, clk
}

func seedUser(t *testing.T, users *memUserRepo) *models.User {
	t.Helper()
	user, err := models.CreateUser("testuser", "user@example.com", "secret123")
	require.NoError(t, err)
	require.NoError(t, users.Create(user))
	user.MarkVerified()
	require.NoError(t, users.Update(user))
	return user
}

func TestIssuePersistsDigestOnly(t *testing.T) {
	svc, users, tokens, _, clk := newTokenFixture(t)
	user := seedUser(t, users)

	pair, err := svc.Issue(user)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	record, err := tokens.GetByTokenHash(security.HashSecret(pair.RefreshToken))
	require.NoError(t, err)
	assert.Equal(t, user.ID, record.UserID)
	assert.NotEqual(t, pair.RefreshToken, record.TokenHash, "plaintext must never be stored")
	assert.Equal(t, clk.Now().Add(models.RefreshTokenTTL), record.ExpiresAt)
	assert.False(t, record.Revoked)
}

func TestRotateIssuesNewPairAndRevokesOld(t *testing.T) {
	svc, users, tokens, _, _ := newTokenFixture(t)
	user := seedUser(t, users)

	pair, err := svc.Issue(user)
	require.NoError(t, err)

	next, err := svc.Rotate(pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	old, err := tokens.GetByTokenHash(security.HashSecret(pair.RefreshToken))
	require.NoError(t, err)
	assert.True(t, old.Revoked, "rotated-away record must be revoked")

	active, err := tokens.CountActiveByUser(user.ID, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(1), active)
}

func TestRotateUnknownSecret(t *testing.T) {
	svc, _, _, _, _ := newTokenFixture(t)

	_, err := svc.Rotate("pfx_never_issued")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRotateExpiredSecret(t *testing.T) {
	svc, users, _, _, clk := newTokenFixture(t)
	user := seedUser(t, users)

	pair, err := svc.Issue(user)
	require.NoError(t, err)

	clk.Advance(models.RefreshTokenTTL + time.Hour)
	_, err = svc.Rotate(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestReuseRevokesWholeFamily(t *testing.T) {
	svc, users, tokens, sink, _ := newTokenFixture(t)
	user := seedUser(t, users)

	first, err := svc.Issue(user)
	require.NoError(t, err)
	second, err := svc.Rotate(first.RefreshToken)
	require.NoError(t, err)
	third, err := svc.Rotate(second.RefreshToken)
	require.NoError(t, err)

	// Presenting the already rotated secret is treated as theft.
	_, err = svc.Rotate(second.RefreshToken)
	require.ErrorIs(t, err, ErrTokenReuseDetected)

	// The still-live descendant is dead too.
	_, err = svc.Rotate(third.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenReuseDetected)

	active, err := tokens.CountActiveByUser(user.ID, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(0), active)

	assert.Contains(t, sink.Actions(), "token_reuse_detected")
}

func TestRotationRaceLoserTriggersCascade(t *testing.T) {
	svc, users, tokens, _, _ := newTokenFixture(t)
	user := seedUser(t, users)

	pair, err := svc.Issue(user)
	require.NoError(t, err)

	// Simulate the concurrent winner: the record flips to revoked between
	// this caller's read and its conditional write.
	record, err := tokens.GetByTokenHash(security.HashSecret(pair.RefreshToken))
	require.NoError(t, err)
	won, err := tokens.RevokeByID(record.ID)
	require.NoError(t, err)
	require.True(t, won)

	_, err = svc.Rotate(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenReuseDetected)
}

func TestRevokeIsIdempotent(t *testing.T) {
	svc, users, _, _, _ := newTokenFixture(t)
	user := seedUser(t, users)

	pair, err := svc.Issue(user)
	require.NoError(t, err)

	revoked, err := svc.Revoke(pair.RefreshToken)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = svc.Revoke(pair.RefreshToken)
	require.NoError(t, err)
	assert.False(t, revoked, "second revoke finds nothing live")
}

func TestRevokeAll(t *testing.T) {
	svc, users, tokens, sink, clk := newTokenFixture(t)
	user := seedUser(t, users)

	for i := 0; i < 3; i++ {
		_, err := svc.Issue(user)
		require.NoError(t, err)
	}

	require.NoError(t, svc.RevokeAll(user.ID))

	active, err := tokens.CountActiveByUser(user.ID, clk.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(0), active)
	assert.Contains(t, sink.Actions(), "tokens_revoked")
}
