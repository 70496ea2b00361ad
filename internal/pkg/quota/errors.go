package quota

import "errors"

// Caller-visible entitlement outcomes, returned as typed errors by the
// Require* helpers.
var (
	ErrFeatureNotAvailable = errors.New("feature not available on current plan")
	ErrDomainLimitReached  = errors.New("domain limit reached")
	ErrTeamLimitReached    = errors.New("team member limit reached")
	ErrSMSLimitReached     = errors.New("sms limit reached")
	ErrAPILimitReached     = errors.New("api request limit reached")
)
