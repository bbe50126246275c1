package handler

import (
	"github.com/gofiber/fiber/v2"

	"proficiency-scoring/internal/middleware"
	"proficiency-scoring/internal/service"
)

// Handlers groups the HTTP handlers of the API.
type Handlers struct {
	Scoring *ScoringHandler
	Session *SessionHandler
	Admin   *AdminHandler
}

// SetupRoutes registers the API routes on app.
func SetupRoutes(app *fiber.App, h Handlers, authService service.AuthService) {
	validator := middleware.NewValidationMiddleware()
	api := app.Group("/api")

	api.Post("/audio/quality", h.Scoring.CheckAudio)

	id := validator.ValidateSessionID()

	sessions := api.Group("/sessions")
	sessions.Post("/:sessionID/start", id, h.Session.Start)
	sessions.Post("/:sessionID/answers", id, h.Scoring.SubmitAnswer)
	sessions.Post("/:sessionID/speaking", id, h.Scoring.SubmitSpeaking)
	sessions.Post("/:sessionID/events", id, h.Session.RecordEvent)
	sessions.Post("/:sessionID/complete", id, h.Session.Complete)
	sessions.Get("/:sessionID/result", id, h.Session.GetResult)

	admin := api.Group("/admin", middleware.AdminAuth(authService))
	admin.Get("/sessions/:sessionID/integrity", id, h.Admin.GetIntegrity)
	admin.Post("/sessions/:sessionID/flag", id, h.Admin.Flag)
}
