package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PulseFox/app/controllers"
	"github.com/ManuelReschke/PulseFox/internal/pkg/constants"
	"github.com/ManuelReschke/PulseFox/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group(constants.APIRoute)
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group(constants.APIV1Route)

	// Public credential routes. The engine's own fixed-window limiter guards
	// the email-sending flows.
	v1.Post(constants.AuthRegisterRoute, controllers.HandleRegister)
	v1.Post(constants.AuthLoginRoute, controllers.HandleLogin)
	v1.Post(constants.AuthRefreshRoute, controllers.HandleRefresh)
	v1.Post(constants.AuthLogoutRoute, controllers.HandleLogout)
	v1.Get(constants.AuthVerifyEmailRoute, controllers.HandleVerifyEmail)
	v1.Post(constants.AuthResendVerificationRoute, controllers.HandleResendVerification)
	v1.Post(constants.AuthForgotPasswordRoute, controllers.HandleForgotPassword)
	v1.Post(constants.AuthResetPasswordRoute, controllers.HandleResetPassword)

	// Everything below requires a valid bearer assertion.
	auth := middleware.BearerAuthMiddleware(controllers.GetBearerCodec())

	v1.Post(constants.AuthLogoutAllRoute, auth, controllers.HandleLogoutAll)
	v1.Get("/account", auth, controllers.HandleGetAccount)

	v1.Get(constants.EntitlementLimitsRoute, auth, controllers.HandleGetLimits)
	v1.Get(constants.EntitlementDomainRoute, auth, controllers.HandleCanAddDomain)
	v1.Get(constants.EntitlementTeamMemberRoute, auth, controllers.HandleCanAddTeamMember)
	v1.Get(constants.EntitlementSMSRoute, auth, controllers.HandleCanSendSMS)
	v1.Get(constants.EntitlementAPIRequestRoute, auth, controllers.HandleCanMakeAPIRequest)
	v1.Get(constants.EntitlementSlackRoute, auth, controllers.HandleSlackAccess)
	v1.Get(constants.EntitlementSubscriptionRoute, auth, controllers.HandleGetSubscription)
	v1.Post(constants.EntitlementSubscriptionRoute, auth, controllers.HandleChangePlan)
	v1.Delete(constants.EntitlementSubscriptionRoute, auth, controllers.HandleCancelSubscription)

	// Metered monitoring API: every successful call consumes monthly quota.
	metered := v1.Group("/monitor", auth, middleware.TrackAPIUsage(controllers.GetQuotaService()))
	metered.Get("/status", controllers.HandleMonitorStatus)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
