package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"proficiency-scoring/internal/domain"
	"proficiency-scoring/internal/repository/models"
	"proficiency-scoring/internal/util"
)

type sqlxSessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a repository for sessions and their results.
func NewSessionRepository(db *sqlx.DB) domain.SessionRepository {
	return &sqlxSessionRepository{db: db}
}

func (r *sqlxSessionRepository) CreateSession(ctx context.Context, s *domain.Session) error {
	if s == nil {
		return domain.NewInvalidInputError("session is nil")
	}
	if s.ID == "" {
		s.ID = util.NewULID()
	}
	if s.Status == "" {
		s.Status = domain.SessionStatusInProgress
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now()
	}

	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx,
		`INSERT INTO ASSESSMENT_SESSIONS (ID, EXAMINEE_ID, STATUS, STARTED_AT) VALUES (:1, :2, :3, :4)`,
		s.ID, s.ExamineeID, s.Status, s.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create session %s: %w", s.ID, err)
	}
	for i, qid := range s.QuestionIDs {
		_, err := exec.ExecContext(ctx,
			`INSERT INTO SESSION_QUESTIONS (SESSION_ID, QUESTION_ID, POSITION) VALUES (:1, :2, :3)`,
			s.ID, qid, i+1)
		if err != nil {
			return fmt.Errorf("failed to attach question %s to session %s: %w", qid, s.ID, err)
		}
	}
	return nil
}

func (r *sqlxSessionRepository) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	exec := GetExecutor(ctx, r.db)

	var m models.Session
	query := `SELECT ID, EXAMINEE_ID, STATUS, STARTED_AT, COMPLETED_AT FROM ASSESSMENT_SESSIONS WHERE ID = :1`
	if err := exec.GetContext(ctx, &m, query, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewSessionNotFoundError(sessionID)
		}
		return nil, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}

	var questionIDs []string
	if err := exec.SelectContext(ctx, &questionIDs,
		`SELECT QUESTION_ID FROM SESSION_QUESTIONS WHERE SESSION_ID = :1 ORDER BY POSITION`, sessionID); err != nil {
		return nil, fmt.Errorf("failed to list questions of session %s: %w", sessionID, err)
	}

	return &domain.Session{
		ID:          m.ID,
		ExamineeID:  m.ExamineeID,
		Status:      m.Status,
		QuestionIDs: questionIDs,
		StartedAt:   m.StartedAt,
		CompletedAt: util.NullTimeToPtr(m.CompletedAt),
	}, nil
}

// MarkCompleted only transitions an in-progress session, so two concurrent
// completions cannot both succeed.
func (r *sqlxSessionRepository) MarkCompleted(ctx context.Context, sessionID string, completedAt time.Time) error {
	res, err := GetExecutor(ctx, r.db).ExecContext(ctx,
		`UPDATE ASSESSMENT_SESSIONS SET STATUS = :1, COMPLETED_AT = :2 WHERE ID = :3 AND STATUS = :4`,
		domain.SessionStatusCompleted, completedAt, sessionID, domain.SessionStatusInProgress)
	if err != nil {
		return fmt.Errorf("failed to complete session %s: %w", sessionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to complete session %s: %w", sessionID, err)
	}
	if n == 0 {
		return domain.NewSessionCompletedError(sessionID)
	}
	return nil
}

func (r *sqlxSessionRepository) SaveResult(ctx context.Context, result *domain.AssessmentResult) error {
	if result == nil {
		return domain.NewInvalidInputError("result is nil")
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result of session %s: %w", result.SessionID, err)
	}

	query := `INSERT INTO ASSESSMENT_RESULTS (SESSION_ID, TOTAL_SCORE, TOTAL_POSSIBLE, PASSED, FLAGGED_FOR_REVIEW, RESULT_JSON, COMPLETED_AT)
		VALUES (:1, :2, :3, :4, :5, :6, :7)`
	_, err = GetExecutor(ctx, r.db).ExecContext(ctx, query,
		result.SessionID,
		result.TotalScore,
		result.TotalPossible,
		util.BoolToNumber(result.Passed),
		util.BoolToNumber(result.FlaggedForReview),
		string(payload),
		result.CompletedAt,
	)
	if isUniqueViolation(err) {
		return domain.NewSessionCompletedError(result.SessionID)
	}
	if err != nil {
		return fmt.Errorf("failed to save result of session %s: %w", result.SessionID, err)
	}
	return nil
}

func (r *sqlxSessionRepository) GetResult(ctx context.Context, sessionID string) (*domain.AssessmentResult, error) {
	var m models.AssessmentResult
	query := `SELECT SESSION_ID, TOTAL_SCORE, TOTAL_POSSIBLE, PASSED, FLAGGED_FOR_REVIEW, RESULT_JSON, COMPLETED_AT
		FROM ASSESSMENT_RESULTS WHERE SESSION_ID = :1`
	if err := GetExecutor(ctx, r.db).GetContext(ctx, &m, query, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError(fmt.Sprintf("no result for session %s", sessionID))
		}
		return nil, fmt.Errorf("failed to get result of session %s: %w", sessionID, err)
	}

	var result domain.AssessmentResult
	if err := json.Unmarshal([]byte(m.ResultJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to decode result of session %s: %w", sessionID, err)
	}
	return &result, nil
}
