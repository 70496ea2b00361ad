package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PulseFox/app/repository"
)

// parseAndValidate decodes the JSON body into req and runs struct
// validation. It writes the error response itself and reports false, so
// handlers just return nil.
func parseAndValidate(c *fiber.Ctx, req interface{}) bool {
	if err := c.BodyParser(req); err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Invalid request body"})
		return false
	}
	if err := validate.Struct(req); err != nil {
		_ = c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
		return false
	}
	return true
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Something went wrong"})
}

func repositoryUser() repository.UserRepository {
	return repository.GetGlobalFactory().GetUserRepository()
}
