package models

import (
	"database/sql"
	"time"
)

// Question is a row of QUESTIONS. AnswerKey holds the strategy's JSON payload.
type Question struct {
	ID             string    `db:"ID"`
	Module         string    `db:"MODULE_NAME"`
	Prompt         string    `db:"PROMPT"`
	Strategy       string    `db:"STRATEGY"`
	AnswerKey      string    `db:"ANSWER_KEY"`
	Points         float64   `db:"POINTS"`
	SafetyCritical int       `db:"SAFETY_CRITICAL"`
	CreatedAt      time.Time `db:"CREATED_AT"`
}

// Session is a row of ASSESSMENT_SESSIONS.
type Session struct {
	ID          string       `db:"ID"`
	ExamineeID  string       `db:"EXAMINEE_ID"`
	Status      string       `db:"STATUS"`
	StartedAt   time.Time    `db:"STARTED_AT"`
	CompletedAt sql.NullTime `db:"COMPLETED_AT"`
}

// ScoredResponse is a row of SCORED_RESPONSES.
type ScoredResponse struct {
	ID              string         `db:"ID"`
	SessionID       string         `db:"SESSION_ID"`
	QuestionID      string         `db:"QUESTION_ID"`
	Module          string         `db:"MODULE_NAME"`
	Strategy        string         `db:"STRATEGY"`
	SubmittedAnswer sql.NullString `db:"SUBMITTED_ANSWER"`
	IsCorrect       int            `db:"IS_CORRECT"`
	PointsEarned    float64        `db:"POINTS_EARNED"`
	PointsPossible  float64        `db:"POINTS_POSSIBLE"`
	MatchRule       string         `db:"MATCH_RULE"`
	Degraded        int            `db:"DEGRADED"`
	NeedsReview     int            `db:"NEEDS_REVIEW"`
	Detail          sql.NullString `db:"DETAIL"`
	CreatedAt       time.Time      `db:"CREATED_AT"`
}

// AssessmentResult is a row of ASSESSMENT_RESULTS. The full result is kept as
// JSON; the scalar columns exist for reporting queries.
type AssessmentResult struct {
	SessionID        string    `db:"SESSION_ID"`
	TotalScore       float64   `db:"TOTAL_SCORE"`
	TotalPossible    float64   `db:"TOTAL_POSSIBLE"`
	Passed           int       `db:"PASSED"`
	FlaggedForReview int       `db:"FLAGGED_FOR_REVIEW"`
	ResultJSON       string    `db:"RESULT_JSON"`
	CompletedAt      time.Time `db:"COMPLETED_AT"`
}
