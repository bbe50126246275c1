package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"proficiency-scoring/internal/aggregator"
	"proficiency-scoring/internal/domain"
)

type sessionFixture struct {
	svc         *sessionServiceImpl
	sessions    *MockSessionRepository
	questions   *MockQuestionRepository
	responses   *MockResponseRepository
	tx          *MockTransactionManager
	integrity   *MockIntegrityService
	resultCache *MockResultCacheService
	now         time.Time
}

func newSessionFixture() *sessionFixture {
	f := &sessionFixture{
		sessions:    new(MockSessionRepository),
		questions:   new(MockQuestionRepository),
		responses:   new(MockResponseRepository),
		tx:          new(MockTransactionManager),
		integrity:   new(MockIntegrityService),
		resultCache: new(MockResultCacheService),
		now:         time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewSessionService(f.sessions, f.questions, f.responses, f.tx, f.integrity,
		aggregator.New(aggregator.DefaultConfig()), f.resultCache).(*sessionServiceImpl)
	f.svc.now = func() time.Time { return f.now }
	return f
}

// sessionExam is a small exam: one safety listening item and one speaking item.
func sessionExam() ([]*domain.Question, []*domain.ScoredResponse) {
	questions := []*domain.Question{
		{ID: "l1", Module: domain.ModuleListening, Key: domain.ExactKey{Answer: "A"}, Points: 80, SafetyCritical: true},
		{ID: "sp1", Module: domain.ModuleSpeaking, Key: domain.SpeechKey{Keywords: []string{"fix"}}, Points: 20},
	}
	responses := []*domain.ScoredResponse{
		{QuestionID: "l1", Module: domain.ModuleListening, Correct: true, PointsEarned: 80, PointsPossible: 80},
		{QuestionID: "sp1", Module: domain.ModuleSpeaking, Correct: true, PointsEarned: 15, PointsPossible: 20},
	}
	return questions, responses
}

func TestSessionService_Complete(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()
	questions, responses := sessionExam()
	integrityScore := &domain.IntegrityScore{Score: 20, Level: domain.IntegrityMedium}

	f.sessions.On("GetSession", ctx, "s1").Return(inProgress("s1", "l1", "sp1"), nil)
	f.integrity.On("Score", ctx, "s1").Return(integrityScore, nil)
	f.tx.On("WithTransaction", ctx).Return()
	f.sessions.On("MarkCompleted", ctx, "s1", f.now).Return(nil)
	f.questions.On("GetQuestionsForSession", ctx, "s1").Return(questions, nil)
	f.responses.On("ListResponses", ctx, "s1").Return(responses, nil)
	f.sessions.On("SaveResult", ctx, mock.MatchedBy(func(r *domain.AssessmentResult) bool {
		return r.SessionID == "s1" && r.CompletedAt.Equal(f.now)
	})).Return(nil)
	f.resultCache.On("Put", ctx, mock.Anything).Return(nil)

	result, err := f.svc.Complete(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 95.0, result.TotalScore)
	assert.True(t, result.Passed)
	assert.False(t, result.FlaggedForReview)
	assert.Same(t, integrityScore, result.Integrity)
	assert.Equal(t, f.now, result.CompletedAt)

	f.sessions.AssertExpectations(t)
	f.resultCache.AssertExpectations(t)
}

func TestSessionService_CompleteTwice(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()
	f.sessions.On("GetSession", ctx, "s1").Return(&domain.Session{ID: "s1", Status: domain.SessionStatusCompleted}, nil)

	_, err := f.svc.Complete(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionCompleted)
	f.tx.AssertNotCalled(t, "WithTransaction", mock.Anything)
}

func TestSessionService_CompleteRaceLost(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()
	f.sessions.On("GetSession", ctx, "s1").Return(inProgress("s1"), nil)
	f.integrity.On("Score", ctx, "s1").Return(nil, errors.New("redis down"))
	f.tx.On("WithTransaction", ctx).Return()
	f.sessions.On("MarkCompleted", ctx, "s1", f.now).Return(domain.NewSessionCompletedError("s1"))

	_, err := f.svc.Complete(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionCompleted)
	f.sessions.AssertNotCalled(t, "SaveResult", mock.Anything, mock.Anything)
	f.resultCache.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestSessionService_CompleteWithoutIntegrity(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()
	questions, responses := sessionExam()

	f.sessions.On("GetSession", ctx, "s1").Return(inProgress("s1"), nil)
	f.integrity.On("Score", ctx, "s1").Return(nil, errors.New("redis down"))
	f.tx.On("WithTransaction", ctx).Return()
	f.sessions.On("MarkCompleted", ctx, "s1", f.now).Return(nil)
	f.questions.On("GetQuestionsForSession", ctx, "s1").Return(questions, nil)
	f.responses.On("ListResponses", ctx, "s1").Return(responses, nil)
	f.sessions.On("SaveResult", ctx, mock.Anything).Return(nil)
	f.resultCache.On("Put", ctx, mock.Anything).Return(errors.New("redis down"))

	result, err := f.svc.Complete(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, result.Integrity)
	assert.True(t, result.Passed)
}

func TestSessionService_GetResult(t *testing.T) {
	ctx := context.Background()
	stored := &domain.AssessmentResult{SessionID: "s1", TotalScore: 88}

	t.Run("cache hit", func(t *testing.T) {
		f := newSessionFixture()
		f.resultCache.On("Get", ctx, "s1").Return(stored, nil)

		got, err := f.svc.GetResult(ctx, "s1")
		require.NoError(t, err)
		assert.Same(t, stored, got)
		f.sessions.AssertNotCalled(t, "GetResult", mock.Anything, mock.Anything)
	})

	t.Run("cache miss loads and fills", func(t *testing.T) {
		f := newSessionFixture()
		f.resultCache.On("Get", ctx, "s1").Return(nil, ErrResultNotCached)
		f.sessions.On("GetResult", ctx, "s1").Return(stored, nil)
		f.resultCache.On("Put", ctx, stored).Return(nil).Once()

		got, err := f.svc.GetResult(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, 88.0, got.TotalScore)
		f.resultCache.AssertExpectations(t)
	})

	t.Run("not completed", func(t *testing.T) {
		f := newSessionFixture()
		f.resultCache.On("Get", ctx, "s1").Return(nil, ErrResultNotCached)
		f.sessions.On("GetResult", ctx, "s1").Return(nil, domain.NewNotFoundError("no result for session s1"))

		_, err := f.svc.GetResult(ctx, "s1")
		var de *domain.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, domain.CodeNotFound, de.Code)
	})
}
