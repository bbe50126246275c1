package domain

import (
	"context"
	"time"
)

// QuestionRepository reads the question bank. SaveQuestion is only used to
// seed the bank.
type QuestionRepository interface {
	GetQuestionByID(ctx context.Context, id string) (*Question, error)
	GetQuestionsForSession(ctx context.Context, sessionID string) ([]*Question, error)
	SaveQuestion(ctx context.Context, q *Question) error
}

// ResponseRepository stores scored responses. SaveResponse must return
// ErrDuplicateSubmission when (session, question) already exists.
type ResponseRepository interface {
	ResponseExists(ctx context.Context, sessionID, questionID string) (bool, error)
	SaveResponse(ctx context.Context, response *ScoredResponse) error
	ListResponses(ctx context.Context, sessionID string) ([]*ScoredResponse, error)
}

// SessionRepository reads sessions and stores their final results.
// MarkCompleted returns ErrSessionCompleted when the session is no longer
// in progress.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	MarkCompleted(ctx context.Context, sessionID string, completedAt time.Time) error
	SaveResult(ctx context.Context, result *AssessmentResult) error
	GetResult(ctx context.Context, sessionID string) (*AssessmentResult, error)
}

// TransactionManager runs fn inside a database transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
