package ratelimit

import (
	"time"

	"github.com/ManuelReschke/PulseFox/app/models"
	"github.com/ManuelReschke/PulseFox/app/repository"
	"github.com/ManuelReschke/PulseFox/internal/pkg/clock"
)

// Defaults guard security-sensitive email issuance: three sends per address
// per hour, fixed window.
const (
	DefaultMaxAttempts = 3
	DefaultWindow      = 1 * time.Hour
)

// Limiter is a fixed-window counter per normalized key. The window resets
// wholesale when a hit arrives after it elapsed; hits inside an active
// window at the cap are denied without mutation.
type Limiter struct {
	repo        repository.RateLimitRepository
	clock       clock.Clock
	maxAttempts int
	window      time.Duration
}

// NewLimiter creates a limiter with the default cap and window.
func NewLimiter(repo repository.RateLimitRepository, clk clock.Clock) *Limiter {
	return &Limiter{
		repo:        repo,
		clock:       clk,
		maxAttempts: DefaultMaxAttempts,
		window:      DefaultWindow,
	}
}

// NewLimiterWithConfig creates a limiter with explicit tuning.
func NewLimiterWithConfig(repo repository.RateLimitRepository, clk clock.Clock, maxAttempts int, window time.Duration) *Limiter {
	return &Limiter{
		repo:        repo,
		clock:       clk,
		maxAttempts: maxAttempts,
		window:      window,
	}
}

// Check records an attempt for the key and reports whether it is allowed.
func (l *Limiter) Check(key string) (bool, error) {
	normalized := models.NormalizeEmail(key)
	return l.repo.Hit(normalized, l.maxAttempts, l.window, l.clock.Now())
}
