package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"proficiency-scoring/internal/domain"
	"proficiency-scoring/internal/dto"
	"proficiency-scoring/internal/logger"
	"proficiency-scoring/internal/middleware"
	"proficiency-scoring/internal/service"
	"proficiency-scoring/internal/validation"
)

// AdminHandler serves the integrity review routes.
type AdminHandler struct {
	integrity service.IntegrityService
	validator *validation.Validator
}

// NewAdminHandler creates a new AdminHandler instance
func NewAdminHandler(integrity service.IntegrityService) *AdminHandler {
	return &AdminHandler{integrity: integrity, validator: validation.NewValidator()}
}

// GetIntegrity handles GET /api/admin/sessions/:sessionID/integrity
func (h *AdminHandler) GetIntegrity(c *fiber.Ctx) error {
	sessionID := c.Params("sessionID")
	ctx := c.UserContext()

	score, err := h.integrity.Score(ctx, sessionID)
	if err != nil {
		return err
	}
	signals, err := h.integrity.Signals(ctx, sessionID)
	if err != nil {
		return err
	}
	return c.JSON(dto.IntegrityReviewResponse{
		SessionID: sessionID,
		Integrity: score,
		Signals:   signals,
	})
}

// Flag handles POST /api/admin/sessions/:sessionID/flag
func (h *AdminHandler) Flag(c *fiber.Ctx) error {
	sessionID := c.Params("sessionID")

	var req dto.FlagRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("request body must be JSON with a reason")
	}
	if errs := h.validator.ValidateFlagRequest(req.Reason); len(errs) > 0 {
		return errs
	}

	reviewer, _ := c.Locals(middleware.ReviewerIDKey).(string)
	if err := h.integrity.Flag(c.UserContext(), sessionID, req.Reason); err != nil {
		return err
	}
	logger.Get().Info("Session flagged by reviewer",
		zap.String("sessionID", sessionID),
		zap.String("reviewer", reviewer))

	return c.JSON(dto.FlagResponse{
		SessionID:  sessionID,
		Flagged:    true,
		FlaggedBy:  reviewer,
		ReasonText: req.Reason,
	})
}
