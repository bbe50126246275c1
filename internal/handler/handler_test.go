package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proficiency-scoring/internal/domain"
	"proficiency-scoring/internal/handler"
	"proficiency-scoring/internal/middleware"
	"proficiency-scoring/internal/service"
)

// --- Manual Mocks ---

type MockScoringService struct {
	SubmitAnswerFunc   func(ctx context.Context, sessionID, questionID, answer string) (*domain.MatchResult, error)
	SubmitSpeakingFunc func(ctx context.Context, sub domain.SubmittedResponse) (*service.SpeakingOutcome, error)
	CheckAudioFunc     func(ctx context.Context, audio []byte) *domain.AudioQualityReport
}

func (m *MockScoringService) SubmitAnswer(ctx context.Context, sessionID, questionID, answer string) (*domain.MatchResult, error) {
	if m.SubmitAnswerFunc != nil {
		return m.SubmitAnswerFunc(ctx, sessionID, questionID, answer)
	}
	panic("MockScoringService.SubmitAnswerFunc not implemented")
}

func (m *MockScoringService) SubmitSpeaking(ctx context.Context, sub domain.SubmittedResponse) (*service.SpeakingOutcome, error) {
	if m.SubmitSpeakingFunc != nil {
		return m.SubmitSpeakingFunc(ctx, sub)
	}
	panic("MockScoringService.SubmitSpeakingFunc not implemented")
}

func (m *MockScoringService) CheckAudio(ctx context.Context, audio []byte) *domain.AudioQualityReport {
	if m.CheckAudioFunc != nil {
		return m.CheckAudioFunc(ctx, audio)
	}
	panic("MockScoringService.CheckAudioFunc not implemented")
}

type MockSessionService struct {
	CompleteFunc  func(ctx context.Context, sessionID string) (*domain.AssessmentResult, error)
	GetResultFunc func(ctx context.Context, sessionID string) (*domain.AssessmentResult, error)
}

func (m *MockSessionService) Complete(ctx context.Context, sessionID string) (*domain.AssessmentResult, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, sessionID)
	}
	panic("MockSessionService.CompleteFunc not implemented")
}

func (m *MockSessionService) GetResult(ctx context.Context, sessionID string) (*domain.AssessmentResult, error) {
	if m.GetResultFunc != nil {
		return m.GetResultFunc(ctx, sessionID)
	}
	panic("MockSessionService.GetResultFunc not implemented")
}

type MockIntegrityService struct {
	StartSessionFunc func(ctx context.Context, sessionID, ip, userAgent string) error
	RecordEventFunc  func(ctx context.Context, sessionID string, event service.IntegrityEvent) (*service.EventAck, error)
	ScoreFunc        func(ctx context.Context, sessionID string) (*domain.IntegrityScore, error)
	FlagFunc         func(ctx context.Context, sessionID, reason string) error

	observed         []string
	observedSessions []string
}

func (m *MockIntegrityService) StartSession(ctx context.Context, sessionID, ip, userAgent string) error {
	if m.StartSessionFunc != nil {
		return m.StartSessionFunc(ctx, sessionID, ip, userAgent)
	}
	panic("MockIntegrityService.StartSessionFunc not implemented")
}

func (m *MockIntegrityService) Observe(ctx context.Context, sessionID, ip, userAgent string) {
	m.observed = append(m.observed, ip)
	m.observedSessions = append(m.observedSessions, sessionID)
}

func (m *MockIntegrityService) RecordEvent(ctx context.Context, sessionID string, event service.IntegrityEvent) (*service.EventAck, error) {
	if m.RecordEventFunc != nil {
		return m.RecordEventFunc(ctx, sessionID, event)
	}
	panic("MockIntegrityService.RecordEventFunc not implemented")
}

func (m *MockIntegrityService) Signals(ctx context.Context, sessionID string) (domain.SessionSignals, error) {
	return domain.SessionSignals{SessionID: sessionID, TabSwitches: 5}, nil
}

func (m *MockIntegrityService) Score(ctx context.Context, sessionID string) (*domain.IntegrityScore, error) {
	if m.ScoreFunc != nil {
		return m.ScoreFunc(ctx, sessionID)
	}
	panic("MockIntegrityService.ScoreFunc not implemented")
}

func (m *MockIntegrityService) Flag(ctx context.Context, sessionID, reason string) error {
	if m.FlagFunc != nil {
		return m.FlagFunc(ctx, sessionID, reason)
	}
	panic("MockIntegrityService.FlagFunc not implemented")
}

type MockAuthService struct{}

func (m *MockAuthService) CreateJWT(ctx context.Context, reviewerID string, ttl time.Duration) (string, error) {
	panic("not implemented in mock")
}

func (m *MockAuthService) ValidateJWT(ctx context.Context, tokenString string) (*service.ReviewerClaims, error) {
	if tokenString == "reviewer-token" {
		return &service.ReviewerClaims{ReviewerID: "rev-7", Role: "reviewer"}, nil
	}
	return nil, service.ErrInvalidJWTToken
}

// --- Helpers ---

func setupApp(scoring *MockScoringService, sessions *MockSessionService, integrity *MockIntegrityService) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler()})
	handler.SetupRoutes(app, handler.Handlers{
		Scoring: handler.NewScoringHandler(scoring, integrity),
		Session: handler.NewSessionHandler(sessions, integrity),
		Admin:   handler.NewAdminHandler(integrity),
	}, &MockAuthService{})
	return app
}

func jsonRequest(method, path string, body interface{}) *http.Request {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, path string, fields map[string]string, audio []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if audio != nil {
		part, err := w.CreateFormFile("audio", "answer.wav")
		require.NoError(t, err)
		_, err = part.Write(audio)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

// --- Tests ---

func TestSubmitAnswer(t *testing.T) {
	scoring := &MockScoringService{
		SubmitAnswerFunc: func(ctx context.Context, sessionID, questionID, answer string) (*domain.MatchResult, error) {
			switch sessionID {
			case "gone":
				return nil, domain.NewSessionNotFoundError(sessionID)
			case "closed":
				return nil, domain.NewSessionCompletedError(sessionID)
			}
			switch questionID {
			case "q1":
				return &domain.MatchResult{QuestionID: "q1", Correct: true, PointsEarned: 4, PointsPossible: 4, Rule: domain.RuleTime}, nil
			case "dup":
				return nil, domain.NewDuplicateSubmissionError(sessionID, questionID)
			default:
				return nil, domain.NewQuestionNotFoundError(questionID)
			}
		},
	}
	integrity := &MockIntegrityService{}
	app := setupApp(scoring, &MockSessionService{}, integrity)

	tests := []struct {
		name       string
		path       string
		body       interface{}
		wantStatus int
		wantCode   string
	}{
		{"scored", "/api/sessions/s1/answers", map[string]string{"question_id": "q1", "answer": "quarter past three"}, 200, ""},
		{"duplicate", "/api/sessions/s1/answers", map[string]string{"question_id": "dup", "answer": "B"}, 409, "DUPLICATE_SUBMISSION"},
		{"unknown question", "/api/sessions/s1/answers", map[string]string{"question_id": "q404", "answer": "B"}, 404, "QUESTION_NOT_FOUND"},
		{"missing question id", "/api/sessions/s1/answers", map[string]string{"answer": "B"}, 400, "VALIDATION_ERROR"},
		{"malformed json", "/api/sessions/s1/answers", "{nope", 400, "INVALID_INPUT"},
		{"bad session id", "/api/sessions/s1!x/answers", map[string]string{"question_id": "q1", "answer": "B"}, 400, "VALIDATION_ERROR"},
		{"unknown session", "/api/sessions/gone/answers", map[string]string{"question_id": "q1", "answer": "B"}, 404, "SESSION_NOT_FOUND"},
		{"completed session", "/api/sessions/closed/answers", map[string]string{"question_id": "q1", "answer": "B"}, 409, "SESSION_COMPLETED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := jsonRequest("POST", tt.path, tt.body)
			req.Header.Set("X-Forwarded-For", "198.51.100.4, 10.0.0.1")
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			body := decode(t, resp)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["code"])
			} else {
				assert.Equal(t, true, body["correct"])
				assert.Equal(t, "time", body["rule"])
			}
		})
	}
	assert.Contains(t, integrity.observed, "198.51.100.4")
	assert.Contains(t, integrity.observedSessions, "s1")
	assert.NotContains(t, integrity.observedSessions, "gone")
	assert.NotContains(t, integrity.observedSessions, "closed")
}

func TestSubmitSpeaking(t *testing.T) {
	var got domain.SubmittedResponse
	scoring := &MockScoringService{
		SubmitSpeakingFunc: func(ctx context.Context, sub domain.SubmittedResponse) (*service.SpeakingOutcome, error) {
			got = sub
			if string(sub.Audio) == "silence" {
				return nil, domain.NewAudioUnusableError(&domain.AudioQualityReport{
					Level:  domain.QualityUnusable,
					Issues: []string{"No speech detected in recording"},
				})
			}
			return &service.SpeakingOutcome{
				Score:        &domain.SpeakingScoreResult{TotalPoints: 3.6, MaxPoints: 4, Level: domain.SpeakingExcellent},
				AudioQuality: &domain.AudioQualityReport{Level: domain.QualityGood},
				Correct:      true,
			}, nil
		},
	}
	app := setupApp(scoring, &MockSessionService{}, &MockIntegrityService{})

	t.Run("scored", func(t *testing.T) {
		req := multipartRequest(t, "/api/sessions/s1/speaking",
			map[string]string{"question_id": "q9", "duration_seconds": "12.5"}, []byte("RIFF...."))
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		body := decode(t, resp)
		assert.Equal(t, true, body["correct"])
		assert.Contains(t, body["audio_feedback"], "Good audio quality")
		assert.Equal(t, "s1", got.SessionID)
		assert.Equal(t, "q9", got.QuestionID)
		assert.Equal(t, "answer.wav", got.AudioFilename)
		assert.Equal(t, 12.5, got.DurationSeconds)
	})

	t.Run("unusable recording", func(t *testing.T) {
		req := multipartRequest(t, "/api/sessions/s1/speaking", map[string]string{"question_id": "q9"}, []byte("silence"))
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 422, resp.StatusCode)

		body := decode(t, resp)
		details := body["details"].(map[string]interface{})
		assert.Equal(t, "Unusable", details["audio_quality"].(map[string]interface{})["quality_level"])
	})

	t.Run("transcript only", func(t *testing.T) {
		req := multipartRequest(t, "/api/sessions/s1/speaking",
			map[string]string{"question_id": "q9", "transcript": "  I will fix it  "}, nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, "I will fix it", got.Transcript)
		assert.Empty(t, got.Audio)
	})

	t.Run("recording wins over typed transcript", func(t *testing.T) {
		req := multipartRequest(t, "/api/sessions/s1/speaking",
			map[string]string{"question_id": "q9", "transcript": "apologize send maintenance fix"}, []byte("RIFF...."))
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Empty(t, got.Transcript)
		assert.Equal(t, []byte("RIFF...."), got.Audio)
	})

	t.Run("nothing to score", func(t *testing.T) {
		req := multipartRequest(t, "/api/sessions/s1/speaking", map[string]string{"question_id": "q9"}, nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode)
	})

	t.Run("bad duration", func(t *testing.T) {
		req := multipartRequest(t, "/api/sessions/s1/speaking",
			map[string]string{"question_id": "q9", "duration_seconds": "ten"}, []byte("RIFF"))
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode)
	})
}

func TestCheckAudio(t *testing.T) {
	scoring := &MockScoringService{
		CheckAudioFunc: func(ctx context.Context, audio []byte) *domain.AudioQualityReport {
			return &domain.AudioQualityReport{Level: domain.QualityPoor, OverallScore: 0.4, Recommendations: []string{"Record in a quieter environment"}}
		},
	}
	app := setupApp(scoring, &MockSessionService{}, &MockIntegrityService{})

	resp, err := app.Test(multipartRequest(t, "/api/audio/quality", nil, []byte("RIFF")), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "Poor", body["quality_level"])
	assert.Equal(t, true, body["usable"])
	assert.Equal(t, "Poor audio quality may affect your score. Record in a quieter environment", body["summary"])

	resp, err = app.Test(multipartRequest(t, "/api/audio/quality", nil, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestSessionLifecycle(t *testing.T) {
	completed := map[string]bool{}
	sessions := &MockSessionService{
		CompleteFunc: func(ctx context.Context, sessionID string) (*domain.AssessmentResult, error) {
			if completed[sessionID] {
				return nil, domain.NewSessionCompletedError(sessionID)
			}
			completed[sessionID] = true
			return &domain.AssessmentResult{SessionID: sessionID, TotalScore: 81, Passed: true}, nil
		},
		GetResultFunc: func(ctx context.Context, sessionID string) (*domain.AssessmentResult, error) {
			if !completed[sessionID] {
				return nil, domain.NewNotFoundError("no result for session " + sessionID)
			}
			return &domain.AssessmentResult{SessionID: sessionID, TotalScore: 81, Passed: true}, nil
		},
	}
	var baseline []string
	integrity := &MockIntegrityService{
		StartSessionFunc: func(ctx context.Context, sessionID, ip, userAgent string) error {
			baseline = []string{ip, userAgent}
			return nil
		},
		RecordEventFunc: func(ctx context.Context, sessionID string, event service.IntegrityEvent) (*service.EventAck, error) {
			if event.Type == "screenshot" {
				return nil, domain.ValidationErrors{domain.NewInvalidFormatError("type", event.Type)}
			}
			return &service.EventAck{TabSwitches: 4, Warnings: []string{"Please stay on the test page. Leaving the page is recorded."}}, nil
		},
	}
	app := setupApp(&MockScoringService{}, sessions, integrity)

	req := jsonRequest("POST", "/api/sessions/s1/start", nil)
	req.Header.Set("User-Agent", "Firefox/128")
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, []string{"203.0.113.9", "Firefox/128"}, baseline)

	resp, err = app.Test(jsonRequest("POST", "/api/sessions/s1/events", map[string]string{"type": "tab_switch"}), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, float64(4), decode(t, resp)["tab_switches"])

	resp, err = app.Test(jsonRequest("POST", "/api/sessions/s1/events", map[string]string{"type": "screenshot"}), -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	resp, err = app.Test(jsonRequest("GET", "/api/sessions/s1/result", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	resp, err = app.Test(jsonRequest("POST", "/api/sessions/s1/complete", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, true, decode(t, resp)["passed"])

	resp, err = app.Test(jsonRequest("POST", "/api/sessions/s1/complete", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 409, resp.StatusCode)

	resp, err = app.Test(jsonRequest("GET", "/api/sessions/s1/result", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, float64(81), decode(t, resp)["total_score"])
}

func TestAdminRoutes(t *testing.T) {
	var flaggedWith string
	integrity := &MockIntegrityService{
		ScoreFunc: func(ctx context.Context, sessionID string) (*domain.IntegrityScore, error) {
			if sessionID == "missing" {
				return nil, domain.NewSessionNotFoundError(sessionID)
			}
			return &domain.IntegrityScore{Score: 20, DisplayScore: 20, Level: domain.IntegrityMedium}, nil
		},
		FlagFunc: func(ctx context.Context, sessionID, reason string) error {
			flaggedWith = reason
			return nil
		},
	}
	app := setupApp(&MockScoringService{}, &MockSessionService{}, integrity)

	authed := func(req *http.Request) *http.Request {
		req.Header.Set("Authorization", "Bearer reviewer-token")
		return req
	}

	resp, err := app.Test(jsonRequest("GET", "/api/admin/sessions/s1/integrity", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)

	resp, err = app.Test(authed(jsonRequest("GET", "/api/admin/sessions/s1/integrity", nil)), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "medium", body["integrity"].(map[string]interface{})["level"])
	assert.Equal(t, float64(5), body["signals"].(map[string]interface{})["tab_switches"])

	resp, err = app.Test(authed(jsonRequest("GET", "/api/admin/sessions/missing/integrity", nil)), -1)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	resp, err = app.Test(authed(jsonRequest("POST", "/api/admin/sessions/s1/flag", map[string]string{"reason": "voice mismatch"})), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "rev-7", decode(t, resp)["flagged_by"])
	assert.Equal(t, "voice mismatch", flaggedWith)

	resp, err = app.Test(authed(jsonRequest("POST", "/api/admin/sessions/s1/flag", map[string]string{"reason": ""})), -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestUnknownErrorIs500(t *testing.T) {
	sessions := &MockSessionService{
		GetResultFunc: func(ctx context.Context, sessionID string) (*domain.AssessmentResult, error) {
			return nil, errors.New("boom")
		},
	}
	app := setupApp(&MockScoringService{}, sessions, &MockIntegrityService{})

	resp, err := app.Test(jsonRequest("GET", "/api/sessions/s1/result", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
}
