package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"proficiency-scoring/internal/domain"
	"proficiency-scoring/internal/repository/models"
	"proficiency-scoring/internal/util"
)

const questionColumns = `q.ID, q.MODULE_NAME, q.PROMPT, q.STRATEGY, q.ANSWER_KEY, q.POINTS, q.SAFETY_CRITICAL, q.CREATED_AT`

type sqlxQuestionRepository struct {
	db *sqlx.DB
}

// NewQuestionRepository creates a question repository on an Oracle database.
func NewQuestionRepository(db *sqlx.DB) domain.QuestionRepository {
	return &sqlxQuestionRepository{db: db}
}

func toDomainQuestion(m *models.Question) (*domain.Question, error) {
	key, err := domain.DecodeAnswerKey(m.Strategy, []byte(m.AnswerKey))
	if err != nil {
		return nil, err
	}
	module, err := domain.ParseModule(m.Module)
	if err != nil {
		return nil, err
	}
	return &domain.Question{
		ID:             m.ID,
		Module:         module,
		Prompt:         m.Prompt,
		Key:            key,
		Points:         m.Points,
		SafetyCritical: m.SafetyCritical == 1,
	}, nil
}

func (r *sqlxQuestionRepository) GetQuestionByID(ctx context.Context, id string) (*domain.Question, error) {
	var m models.Question
	query := `SELECT ` + questionColumns + ` FROM QUESTIONS q WHERE q.ID = :1`
	if err := GetExecutor(ctx, r.db).GetContext(ctx, &m, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewQuestionNotFoundError(id)
		}
		return nil, fmt.Errorf("failed to get question %s: %w", id, err)
	}
	return toDomainQuestion(&m)
}

func (r *sqlxQuestionRepository) GetQuestionsForSession(ctx context.Context, sessionID string) ([]*domain.Question, error) {
	var rows []models.Question
	query := `SELECT ` + questionColumns + `
		FROM QUESTIONS q
		JOIN SESSION_QUESTIONS sq ON sq.QUESTION_ID = q.ID
		WHERE sq.SESSION_ID = :1
		ORDER BY sq.POSITION`
	if err := GetExecutor(ctx, r.db).SelectContext(ctx, &rows, query, sessionID); err != nil {
		return nil, fmt.Errorf("failed to list questions for session %s: %w", sessionID, err)
	}

	questions := make([]*domain.Question, 0, len(rows))
	for i := range rows {
		q, err := toDomainQuestion(&rows[i])
		if err != nil {
			return nil, fmt.Errorf("question %s: %w", rows[i].ID, err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (r *sqlxQuestionRepository) SaveQuestion(ctx context.Context, q *domain.Question) error {
	if q == nil {
		return domain.NewInvalidInputError("question is nil")
	}
	strategy, payload, err := domain.EncodeAnswerKey(q.Key)
	if err != nil {
		return err
	}
	if q.ID == "" {
		q.ID = util.NewULID()
	}

	query := `INSERT INTO QUESTIONS (ID, MODULE_NAME, PROMPT, STRATEGY, ANSWER_KEY, POINTS, SAFETY_CRITICAL, CREATED_AT)
		VALUES (:1, :2, :3, :4, :5, :6, :7, :8)`
	_, err = GetExecutor(ctx, r.db).ExecContext(ctx, query,
		q.ID, string(q.Module), q.Prompt, strategy, string(payload), q.Points, util.BoolToNumber(q.SafetyCritical), time.Now())
	if err != nil {
		return fmt.Errorf("failed to save question %s: %w", q.ID, err)
	}
	return nil
}
