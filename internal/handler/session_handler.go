package handler

import (
	"github.com/gofiber/fiber/v2"

	"proficiency-scoring/internal/domain"
	"proficiency-scoring/internal/dto"
	"proficiency-scoring/internal/middleware"
	"proficiency-scoring/internal/service"
)

// SessionHandler handles the session lifecycle and integrity events.
type SessionHandler struct {
	sessions  service.SessionService
	integrity service.IntegrityService
}

// NewSessionHandler creates a new SessionHandler instance
func NewSessionHandler(sessions service.SessionService, integrity service.IntegrityService) *SessionHandler {
	return &SessionHandler{sessions: sessions, integrity: integrity}
}

// Start handles POST /api/sessions/:sessionID/start
func (h *SessionHandler) Start(c *fiber.Ctx) error {
	sessionID := c.Params("sessionID")
	if err := h.integrity.StartSession(c.UserContext(), sessionID, middleware.ClientIP(c), c.Get(fiber.HeaderUserAgent)); err != nil {
		return err
	}
	return c.JSON(dto.StartSessionResponse{SessionID: sessionID, Status: domain.SessionStatusInProgress})
}

// RecordEvent handles POST /api/sessions/:sessionID/events
func (h *SessionHandler) RecordEvent(c *fiber.Ctx) error {
	var req dto.EventRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("request body must be JSON with an event type")
	}

	ack, err := h.integrity.RecordEvent(c.UserContext(), c.Params("sessionID"), service.IntegrityEvent{
		Type:      req.Type,
		Detail:    req.Detail,
		IP:        middleware.ClientIP(c),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	})
	if err != nil {
		return err
	}
	return c.JSON(ack)
}

// Complete handles POST /api/sessions/:sessionID/complete
func (h *SessionHandler) Complete(c *fiber.Ctx) error {
	result, err := h.sessions.Complete(c.UserContext(), c.Params("sessionID"))
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// GetResult handles GET /api/sessions/:sessionID/result
func (h *SessionHandler) GetResult(c *fiber.Ctx) error {
	result, err := h.sessions.GetResult(c.UserContext(), c.Params("sessionID"))
	if err != nil {
		return err
	}
	return c.JSON(result)
}
