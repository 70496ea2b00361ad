package constants

// Static route constants
const (
	APIRoute   = "/api"
	APIV1Route = "/v1"

	AuthRegisterRoute           = "/auth/register"
	AuthLoginRoute              = "/auth/login"
	AuthRefreshRoute            = "/auth/refresh"
	AuthLogoutRoute             = "/auth/logout"
	AuthLogoutAllRoute          = "/auth/logout-all"
	AuthVerifyEmailRoute        = "/auth/verify-email"
	AuthResendVerificationRoute = "/auth/resend-verification"
	AuthForgotPasswordRoute     = "/auth/forgot-password"
	AuthResetPasswordRoute      = "/auth/reset-password"

	EntitlementLimitsRoute       = "/entitlements/limits"
	EntitlementDomainRoute       = "/entitlements/can-add-domain"
	EntitlementTeamMemberRoute   = "/entitlements/can-add-team-member"
	EntitlementSMSRoute          = "/entitlements/can-send-sms"
	EntitlementAPIRequestRoute   = "/entitlements/can-make-api-request"
	EntitlementSlackRoute        = "/entitlements/slack-access"
	EntitlementSubscriptionRoute = "/entitlements/subscription"
)
