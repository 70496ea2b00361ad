package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PulseFox/internal/pkg/subscription"
	"github.com/ManuelReschke/PulseFox/internal/pkg/usercontext"
)

type changePlanRequest struct {
	Plan         string `json:"plan" validate:"required,oneof=free professional enterprise"`
	BillingCycle string `json:"billing_cycle" validate:"omitempty,oneof=month year"`
}

// HandleGetLimits reports every quota dimension for the authenticated user.
// Domain and team counts are owned by the monitoring layer, so the caller
// supplies them as query parameters.
func HandleGetLimits(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	domainCount := c.QueryInt("domain_count", 0)
	teamCount := c.QueryInt("team_count", 0)

	limits, err := getServices().quota.Limits(userID, domainCount, teamCount)
	if err != nil {
		log.Errorf("limits lookup failed for user %d: %v", userID, err)
		return internalError(c)
	}

	return c.JSON(limits)
}

// HandleCanAddDomain answers whether one more monitored domain fits the plan.
func HandleCanAddDomain(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	count := c.QueryInt("count", 0)

	allowed, err := getServices().quota.CanAddDomain(userID, count)
	if err != nil {
		log.Errorf("domain entitlement check failed for user %d: %v", userID, err)
		return internalError(c)
	}

	return entitlementResponse(c, allowed, "domain_limit_reached")
}

// HandleCanAddTeamMember answers whether one more team member fits the plan.
func HandleCanAddTeamMember(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	count := c.QueryInt("count", 0)

	allowed, err := getServices().quota.CanAddTeamMember(userID, count)
	if err != nil {
		log.Errorf("team entitlement check failed for user %d: %v", userID, err)
		return internalError(c)
	}

	return entitlementResponse(c, allowed, "team_limit_reached")
}

// HandleCanSendSMS answers whether one more SMS alert fits this month's
// budget. With record=true the counter is consumed on an allowed answer.
func HandleCanSendSMS(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	allowed, err := getServices().quota.CanSendSMS(userID)
	if err != nil {
		log.Errorf("sms entitlement check failed for user %d: %v", userID, err)
		return internalError(c)
	}

	if allowed && c.QueryBool("record", false) {
		if err := getServices().quota.IncrementSMSAlerts(userID, 1); err != nil {
			log.Errorf("sms usage increment failed for user %d: %v", userID, err)
			return internalError(c)
		}
	}

	return entitlementResponse(c, allowed, "sms_limit_reached")
}

// HandleCanMakeAPIRequest answers whether one more API request fits this
// month's budget. Actual API traffic is metered by the usage middleware;
// this endpoint only answers the question.
func HandleCanMakeAPIRequest(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	allowed, err := getServices().quota.CanMakeAPIRequest(userID)
	if err != nil {
		log.Errorf("api entitlement check failed for user %d: %v", userID, err)
		return internalError(c)
	}

	return entitlementResponse(c, allowed, "api_limit_reached")
}

// HandleSlackAccess answers whether Slack alerting is part of the plan.
func HandleSlackAccess(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	allowed, err := getServices().quota.CanUseSlackAlerts(userID)
	if err != nil {
		log.Errorf("slack entitlement check failed for user %d: %v", userID, err)
		return internalError(c)
	}

	return entitlementResponse(c, allowed, "feature_not_available")
}

// HandleGetSubscription returns the user's subscription with trial state.
// Users without a subscription row are assigned the base plan on first read.
func HandleGetSubscription(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	effective, err := getServices().quota.ResolveEffectivePlan(userID)
	if err != nil {
		log.Errorf("subscription lookup failed for user %d: %v", userID, err)
		return internalError(c)
	}

	trial, err := getServices().subs.GetTrialInfo(userID)
	if err != nil {
		log.Errorf("trial info lookup failed for user %d: %v", userID, err)
		return internalError(c)
	}

	return c.JSON(fiber.Map{
		"plan":         effective.Plan.Name,
		"display_name": effective.Plan.DisplayName,
		"source":       effective.Source,
		"trial":        trial,
	})
}

// HandleChangePlan moves the user to the named plan.
func HandleChangePlan(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	var req changePlanRequest
	if !parseAndValidate(c, &req) {
		return nil
	}

	if err := getServices().subs.ChangePlan(userID, req.Plan, req.BillingCycle); err != nil {
		if errors.Is(err, subscription.ErrPlanNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "plan_not_found", "message": "Unknown subscription plan"})
		}
		log.Errorf("plan change failed for user %d: %v", userID, err)
		return internalError(c)
	}

	return c.JSON(fiber.Map{"message": "Plan changed", "plan": req.Plan})
}

// HandleCancelSubscription cancels a currently active subscription.
func HandleCancelSubscription(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	cancelled, err := getServices().subs.Cancel(userID)
	if err != nil {
		log.Errorf("cancellation failed for user %d: %v", userID, err)
		return internalError(c)
	}
	if !cancelled {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "not_active", "message": "No active subscription to cancel"})
	}

	return c.JSON(fiber.Map{"message": "Subscription cancelled"})
}

// HandleMonitorStatus is the metered monitoring endpoint. It reports the
// check interval the user's plan grants; the usage middleware in front of it
// enforces and counts the monthly API quota.
func HandleMonitorStatus(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	effective, err := getServices().quota.ResolveEffectivePlan(userID)
	if err != nil {
		log.Errorf("monitor status failed for user %d: %v", userID, err)
		return internalError(c)
	}

	return c.JSON(fiber.Map{
		"status":                 "ok",
		"plan":                   effective.Plan.Name,
		"check_interval_seconds": effective.Plan.CheckIntervalSeconds,
	})
}

func entitlementResponse(c *fiber.Ctx, allowed bool, deniedCode string) error {
	if allowed {
		return c.JSON(fiber.Map{"allowed": true})
	}
	return c.JSON(fiber.Map{"allowed": false, "reason": deniedCode})
}
