package auth

import "errors"

// Caller-visible outcomes of credential operations. All of these are
// expected results returned as typed errors; only store I/O failures
// propagate unwrapped as fatal.
var (
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrEmailNotVerified       = errors.New("email not verified")
	ErrInvalidToken           = errors.New("invalid token")
	ErrTokenExpired           = errors.New("token expired")
	ErrEmailAlreadyVerified   = errors.New("email already verified")
	ErrRateLimited            = errors.New("rate limit exceeded")
	ErrUserNotFound           = errors.New("user not found")
	ErrTokenReuseDetected     = errors.New("token reuse detected, re-authenticate")
)
