package auth

import (
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/PulseFox/app/models"
)

// In-memory repositories with the same contracts as the SQL
// implementations, so the services can be exercised without a database.

type memUserRepo struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]*models.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{nextID: 1, users: make(map[uint]*models.User)}
}

func (r *memUserRepo) Create(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = r.nextID
	r.nextID++
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *memUserRepo) GetByID(id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) GetByEmail(email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	normalized := models.NormalizeEmail(email)
	for _, u := range r.users {
		if u.Email == normalized {
			clone := *u
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) GetByVerificationTokenHash(hash string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.VerificationTokenHash != "" && u.VerificationTokenHash == hash {
			clone := *u
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) GetByResetTokenHash(hash string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ResetTokenHash != "" && u.ResetTokenHash == hash {
			clone := *u
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) Update(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *memUserRepo) Count() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

type memTokenRepo struct {
	mu     sync.Mutex
	nextID uint
	tokens map[uint]*models.RefreshToken
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{nextID: 1, tokens: make(map[uint]*models.RefreshToken)}
}

func (r *memTokenRepo) Create(token *models.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	token.ID = r.nextID
	r.nextID++
	clone := *token
	r.tokens[token.ID] = &clone
	return nil
}

func (r *memTokenRepo) GetByTokenHash(hash string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.TokenHash == hash {
			clone := *t
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// RevokeByID mirrors the conditional single-statement write: it succeeds
// only when the record is still unrevoked.
func (r *memTokenRepo) RevokeByID(id uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok || t.Revoked {
		return false, nil
	}
	t.Revoked = true
	return true, nil
}

func (r *memTokenRepo) RevokeByTokenHash(hash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.TokenHash == hash && !t.Revoked {
			t.Revoked = true
			return true, nil
		}
	}
	return false, nil
}

func (r *memTokenRepo) RevokeAllByUser(userID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, t := range r.tokens {
		if t.UserID == userID && !t.Revoked {
			t.Revoked = true
			n++
		}
	}
	return n, nil
}

func (r *memTokenRepo) CountActiveByUser(userID uint, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, t := range r.tokens {
		if t.UserID == userID && !t.Revoked && !t.IsExpired(now) {
			n++
		}
	}
	return n, nil
}

// memRateLimitRepo mirrors the fixed-window SQL semantics.
type memRateLimitRepo struct {
	mu   sync.Mutex
	rows map[string]*models.RateLimit
}

func newMemRateLimitRepo() *memRateLimitRepo {
	return &memRateLimitRepo{rows: make(map[string]*models.RateLimit)}
}

func (r *memRateLimitRepo) Hit(key string, maxAttempts int, window time.Duration, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[key]
	if !ok {
		r.rows[key] = &models.RateLimit{KeyName: key, Attempts: 1, WindowStartedAt: now, LastAttemptAt: now}
		return true, nil
	}
	if now.Sub(row.WindowStartedAt) >= window {
		row.Attempts = 1
		row.WindowStartedAt = now
		row.LastAttemptAt = now
		return true, nil
	}
	if row.Attempts < maxAttempts {
		row.Attempts++
		row.LastAttemptAt = now
		return true, nil
	}
	return false, nil
}

func (r *memRateLimitRepo) Get(key string) (*models.RateLimit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[key]; ok {
		clone := *row
		return &clone, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// memMailer records outgoing mail per kind.
type memMailer struct {
	mu            sync.Mutex
	verifications []string // plaintext secrets in send order
	resets        []string
}

func (m *memMailer) SendVerificationEmail(to, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifications = append(m.verifications, secret)
	return nil
}

func (m *memMailer) SendPasswordResetEmail(to, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets = append(m.resets, secret)
	return nil
}

func (m *memMailer) lastVerification() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.verifications) == 0 {
		return ""
	}
	return m.verifications[len(m.verifications)-1]
}

func (m *memMailer) lastReset() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.resets) == 0 {
		return ""
	}
	return m.resets[len(m.resets)-1]
}

func (m *memMailer) verificationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.verifications)
}

// memTrialAssigner records trial assignments.
type memTrialAssigner struct {
	mu       sync.Mutex
	assigned []uint
	err      error
}

func (a *memTrialAssigner) AssignTrial(userID uint) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.assigned = append(a.assigned, userID)
	return nil
}
