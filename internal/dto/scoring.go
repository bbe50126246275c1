package dto

import "proficiency-scoring/internal/domain"

// AnswerRequest is the body of a written answer submission.
type AnswerRequest struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

// SpeakingResponse is returned for a scored spoken response.
type SpeakingResponse struct {
	Score         *domain.SpeakingScoreResult `json:"score"`
	Correct       bool                        `json:"correct"`
	AudioQuality  *domain.AudioQualityReport  `json:"audio_quality,omitempty"`
	AudioFeedback string                      `json:"audio_feedback,omitempty"`
}

// AudioCheckResponse is returned by the recording pre-check.
type AudioCheckResponse struct {
	*domain.AudioQualityReport
	Usable  bool   `json:"usable"`
	Summary string `json:"summary"`
}
