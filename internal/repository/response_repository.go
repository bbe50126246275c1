package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"proficiency-scoring/internal/domain"
	"proficiency-scoring/internal/repository/models"
	"proficiency-scoring/internal/util"
)

type sqlxResponseRepository struct {
	db *sqlx.DB
}

// NewResponseRepository creates a scored-response repository. The table's
// unique key on (SESSION_ID, QUESTION_ID) backs the one-submission rule.
func NewResponseRepository(db *sqlx.DB) domain.ResponseRepository {
	return &sqlxResponseRepository{db: db}
}

func toDomainResponse(m *models.ScoredResponse) *domain.ScoredResponse {
	var detail []byte
	if m.Detail.Valid {
		detail = []byte(m.Detail.String)
	}
	return &domain.ScoredResponse{
		ID:              m.ID,
		SessionID:       m.SessionID,
		QuestionID:      m.QuestionID,
		Module:          domain.Module(m.Module),
		Strategy:        domain.Strategy(m.Strategy),
		SubmittedAnswer: m.SubmittedAnswer.String,
		Correct:         m.IsCorrect == 1,
		PointsEarned:    m.PointsEarned,
		PointsPossible:  m.PointsPossible,
		Rule:            m.MatchRule,
		Degraded:        m.Degraded == 1,
		NeedsReview:     m.NeedsReview == 1,
		Detail:          detail,
		CreatedAt:       m.CreatedAt,
	}
}

func (r *sqlxResponseRepository) ResponseExists(ctx context.Context, sessionID, questionID string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM SCORED_RESPONSES WHERE SESSION_ID = :1 AND QUESTION_ID = :2`
	if err := GetExecutor(ctx, r.db).GetContext(ctx, &count, query, sessionID, questionID); err != nil {
		return false, fmt.Errorf("failed to check response for %s/%s: %w", sessionID, questionID, err)
	}
	return count > 0, nil
}

func (r *sqlxResponseRepository) SaveResponse(ctx context.Context, resp *domain.ScoredResponse) error {
	if resp == nil {
		return domain.NewInvalidInputError("response is nil")
	}
	if resp.ID == "" {
		resp.ID = util.NewULID()
	}
	if resp.CreatedAt.IsZero() {
		resp.CreatedAt = time.Now()
	}

	query := `INSERT INTO SCORED_RESPONSES (ID, SESSION_ID, QUESTION_ID, MODULE_NAME, STRATEGY, SUBMITTED_ANSWER,
			IS_CORRECT, POINTS_EARNED, POINTS_POSSIBLE, MATCH_RULE, DEGRADED, NEEDS_REVIEW, DETAIL, CREATED_AT)
		VALUES (:1, :2, :3, :4, :5, :6, :7, :8, :9, :10, :11, :12, :13, :14)`
	_, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		resp.ID,
		resp.SessionID,
		resp.QuestionID,
		string(resp.Module),
		string(resp.Strategy),
		util.StringToNullString(resp.SubmittedAnswer),
		util.BoolToNumber(resp.Correct),
		resp.PointsEarned,
		resp.PointsPossible,
		resp.Rule,
		util.BoolToNumber(resp.Degraded),
		util.BoolToNumber(resp.NeedsReview),
		util.StringToNullString(string(resp.Detail)),
		resp.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.NewDuplicateSubmissionError(resp.SessionID, resp.QuestionID)
	}
	if err != nil {
		return fmt.Errorf("failed to save response for %s/%s: %w", resp.SessionID, resp.QuestionID, err)
	}
	return nil
}

func (r *sqlxResponseRepository) ListResponses(ctx context.Context, sessionID string) ([]*domain.ScoredResponse, error) {
	var rows []models.ScoredResponse
	query := `SELECT ID, SESSION_ID, QUESTION_ID, MODULE_NAME, STRATEGY, SUBMITTED_ANSWER, IS_CORRECT, POINTS_EARNED,
			POINTS_POSSIBLE, MATCH_RULE, DEGRADED, NEEDS_REVIEW, DETAIL, CREATED_AT
		FROM SCORED_RESPONSES WHERE SESSION_ID = :1 ORDER BY CREATED_AT`
	if err := GetExecutor(ctx, r.db).SelectContext(ctx, &rows, query, sessionID); err != nil {
		return nil, fmt.Errorf("failed to list responses for session %s: %w", sessionID, err)
	}
	out := make([]*domain.ScoredResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toDomainResponse(&rows[i]))
	}
	return out, nil
}
