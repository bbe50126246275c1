package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"proficiency-scoring/internal/domain"
)

// --- MockQuestionRepository ---
type MockQuestionRepository struct {
	mock.Mock
}

func (m *MockQuestionRepository) GetQuestionByID(ctx context.Context, id string) (*domain.Question, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Question), args.Error(1)
}

func (m *MockQuestionRepository) GetQuestionsForSession(ctx context.Context, sessionID string) ([]*domain.Question, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Question), args.Error(1)
}

func (m *MockQuestionRepository) SaveQuestion(ctx context.Context, q *domain.Question) error {
	args := m.Called(ctx, q)
	return args.Error(0)
}

// --- MockResponseRepository ---
type MockResponseRepository struct {
	mock.Mock
}

func (m *MockResponseRepository) ResponseExists(ctx context.Context, sessionID, questionID string) (bool, error) {
	args := m.Called(ctx, sessionID, questionID)
	return args.Bool(0), args.Error(1)
}

func (m *MockResponseRepository) SaveResponse(ctx context.Context, response *domain.ScoredResponse) error {
	args := m.Called(ctx, response)
	return args.Error(0)
}

func (m *MockResponseRepository) ListResponses(ctx context.Context, sessionID string) ([]*domain.ScoredResponse, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ScoredResponse), args.Error(1)
}

// --- MockSessionRepository ---
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) CreateSession(ctx context.Context, session *domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionRepository) MarkCompleted(ctx context.Context, sessionID string, completedAt time.Time) error {
	args := m.Called(ctx, sessionID, completedAt)
	return args.Error(0)
}

func (m *MockSessionRepository) SaveResult(ctx context.Context, result *domain.AssessmentResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockSessionRepository) GetResult(ctx context.Context, sessionID string) (*domain.AssessmentResult, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AssessmentResult), args.Error(1)
}

// --- MockTransactionManager ---
// Runs fn directly and returns its error.
type MockTransactionManager struct {
	mock.Mock
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.Called(ctx)
	return fn(ctx)
}

// --- MockCache ---
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCache) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockCache) SetNX(ctx context.Context, key string, value string, expiration time.Duration) (bool, error) {
	args := m.Called(ctx, key, value, expiration)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockCache) HSet(ctx context.Context, key string, field string, value string) error {
	args := m.Called(ctx, key, field, value)
	return args.Error(0)
}

func (m *MockCache) HIncrBy(ctx context.Context, key, field string, incr int64) (int64, error) {
	args := m.Called(ctx, key, field, incr)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCache) Expire(ctx context.Context, key string, expiration time.Duration) error {
	args := m.Called(ctx, key, expiration)
	return args.Error(0)
}

// --- MockTranscriber ---
type MockTranscriber struct {
	mock.Mock
}

func (m *MockTranscriber) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	args := m.Called(ctx, audio, filename)
	return args.String(0), args.Error(1)
}

// --- MockTranscriptionService ---
type MockTranscriptionService struct {
	mock.Mock
}

func (m *MockTranscriptionService) Transcribe(ctx context.Context, audio []byte, filename string) domain.TranscriptionOutcome {
	args := m.Called(ctx, audio, filename)
	return args.Get(0).(domain.TranscriptionOutcome)
}

// --- MockIntegrityService ---
type MockIntegrityService struct {
	mock.Mock
}

func (m *MockIntegrityService) StartSession(ctx context.Context, sessionID, ip, userAgent string) error {
	args := m.Called(ctx, sessionID, ip, userAgent)
	return args.Error(0)
}

func (m *MockIntegrityService) Observe(ctx context.Context, sessionID, ip, userAgent string) {
	m.Called(ctx, sessionID, ip, userAgent)
}

func (m *MockIntegrityService) RecordEvent(ctx context.Context, sessionID string, event IntegrityEvent) (*EventAck, error) {
	args := m.Called(ctx, sessionID, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*EventAck), args.Error(1)
}

func (m *MockIntegrityService) Signals(ctx context.Context, sessionID string) (domain.SessionSignals, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(domain.SessionSignals), args.Error(1)
}

func (m *MockIntegrityService) Score(ctx context.Context, sessionID string) (*domain.IntegrityScore, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IntegrityScore), args.Error(1)
}

func (m *MockIntegrityService) Flag(ctx context.Context, sessionID, reason string) error {
	args := m.Called(ctx, sessionID, reason)
	return args.Error(0)
}

// --- MockResultCacheService ---
type MockResultCacheService struct {
	mock.Mock
}

func (m *MockResultCacheService) Put(ctx context.Context, result *domain.AssessmentResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockResultCacheService) Get(ctx context.Context, sessionID string) (*domain.AssessmentResult, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AssessmentResult), args.Error(1)
}
