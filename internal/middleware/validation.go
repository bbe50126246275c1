package middleware

import (
	"github.com/gofiber/fiber/v2"

	"proficiency-scoring/internal/validation"
)

// ValidationMiddleware provides request validation middleware
type ValidationMiddleware struct {
	validator *validation.Validator
}

// NewValidationMiddleware creates a new validation middleware instance
func NewValidationMiddleware() *ValidationMiddleware {
	return &ValidationMiddleware{
		validator: validation.NewValidator(),
	}
}

// ValidateSessionID checks the :sessionID path parameter.
func (vm *ValidationMiddleware) ValidateSessionID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := c.Params("sessionID")
		if errors := vm.validator.ValidateIdentifier("session_id", sessionID); len(errors) > 0 {
			return errors
		}
		c.Locals("validated_session_id", sessionID)
		return c.Next()
	}
}
