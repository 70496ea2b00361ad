package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PulseFox/internal/pkg/quota"
	"github.com/ManuelReschke/PulseFox/internal/pkg/usercontext"
)

// TrackAPIUsage enforces the monthly API request quota and counts the
// request after the handler succeeded. Requests that the handler rejects
// do not consume quota.
func TrackAPIUsage(q *quota.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := usercontext.GetUserID(c)
		if userID == 0 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "login required"})
		}

		allowed, err := q.CanMakeAPIRequest(userID)
		if err != nil {
			log.Printf("api quota check failed for user %d: %v", userID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Quota check failed"})
		}
		if !allowed {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "api_limit_reached",
				"message": "Monthly API request limit reached",
			})
		}

		if err := c.Next(); err != nil {
			return err
		}

		if c.Response().StatusCode() < fiber.StatusBadRequest {
			if err := q.IncrementAPIRequests(userID, 1); err != nil {
				log.Printf("api usage increment failed for user %d: %v", userID, err)
			}
		}
		return nil
	}
}
