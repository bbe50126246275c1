package handler

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"proficiency-scoring/internal/domain"
	"proficiency-scoring/internal/dto"
	"proficiency-scoring/internal/logger"
	"proficiency-scoring/internal/middleware"
	"proficiency-scoring/internal/service"
	"proficiency-scoring/internal/validation"
)

// ScoringHandler handles answer and recording submissions.
type ScoringHandler struct {
	scoring   service.ScoringService
	integrity service.IntegrityService
	validator *validation.Validator
}

// NewScoringHandler creates a new ScoringHandler instance
func NewScoringHandler(scoring service.ScoringService, integrity service.IntegrityService) *ScoringHandler {
	return &ScoringHandler{
		scoring:   scoring,
		integrity: integrity,
		validator: validation.NewValidator(),
	}
}

// SubmitAnswer handles POST /api/sessions/:sessionID/answers
func (h *ScoringHandler) SubmitAnswer(c *fiber.Ctx) error {
	sessionID := c.Params("sessionID")

	var req dto.AnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("request body must be JSON with question_id and answer")
	}
	if errs := h.validator.ValidateAnswerRequest(req.QuestionID, req.Answer); len(errs) > 0 {
		return errs
	}

	result, err := h.scoring.SubmitAnswer(c.UserContext(), sessionID, req.QuestionID, req.Answer)
	h.observe(c, sessionID, err)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// SubmitSpeaking handles POST /api/sessions/:sessionID/speaking (multipart).
func (h *ScoringHandler) SubmitSpeaking(c *fiber.Ctx) error {
	sessionID := c.Params("sessionID")
	questionID := c.FormValue("question_id")
	transcript := c.FormValue("transcript")

	var duration float64
	if raw := strings.TrimSpace(c.FormValue("duration_seconds")); raw != "" {
		d, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return domain.ValidationErrors{domain.NewInvalidFormatError("duration_seconds", raw)}
		}
		duration = d
	}

	audio, filename, err := readUpload(c, "audio")
	if err != nil {
		return err
	}
	if errs := h.validator.ValidateSpeakingRequest(questionID, len(audio), transcript, duration); len(errs) > 0 {
		return errs
	}

	sub := domain.SubmittedResponse{
		SessionID:       sessionID,
		QuestionID:      questionID,
		Audio:           audio,
		AudioFilename:   filename,
		DurationSeconds: duration,
	}
	// a recording is always transcribed server-side
	if len(audio) == 0 {
		sub.Transcript = strings.TrimSpace(transcript)
	}

	outcome, err := h.scoring.SubmitSpeaking(c.UserContext(), sub)
	h.observe(c, sessionID, err)
	if err != nil {
		return err
	}

	return c.JSON(dto.SpeakingResponse{
		Score:         outcome.Score,
		Correct:       outcome.Correct,
		AudioQuality:  outcome.AudioQuality,
		AudioFeedback: outcome.AudioQuality.Summary(),
	})
}

// observe records the caller's IP and user agent once the submission got past
// the session checks, so unknown or closed sessions leave no signals behind.
func (h *ScoringHandler) observe(c *fiber.Ctx, sessionID string, err error) {
	if errors.Is(err, domain.ErrSessionNotFound) || errors.Is(err, domain.ErrSessionCompleted) {
		return
	}
	h.integrity.Observe(c.UserContext(), sessionID, middleware.ClientIP(c), c.Get(fiber.HeaderUserAgent))
}

// CheckAudio handles POST /api/audio/quality (multipart).
func (h *ScoringHandler) CheckAudio(c *fiber.Ctx) error {
	audio, _, err := readUpload(c, "audio")
	if err != nil {
		return err
	}
	if len(audio) == 0 {
		return domain.ValidationErrors{domain.NewMissingFieldError("audio")}
	}

	report := h.scoring.CheckAudio(c.UserContext(), audio)
	return c.JSON(dto.AudioCheckResponse{
		AudioQualityReport: report,
		Usable:             report.Usable(),
		Summary:            report.Summary(),
	})
}

// readUpload returns the bytes of an optional multipart file field.
func readUpload(c *fiber.Ctx, field string) ([]byte, string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		// the field is absent or the request is not multipart
		return nil, "", nil
	}
	f, err := fh.Open()
	if err != nil {
		logger.Get().Warn("Failed to open uploaded file", zap.String("field", field), zap.Error(err))
		return nil, "", domain.NewInvalidInputError("uploaded file could not be read")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", domain.NewInvalidInputError("uploaded file could not be read")
	}
	return data, fh.Filename, nil
}
