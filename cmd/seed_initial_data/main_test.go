package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"proficiency-scoring/cmd/seed_initial_data/internal/seedmodels"
	"proficiency-scoring/internal/domain"
)

type fakeTx struct{ calls int }

func (f *fakeTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type fakeQuestions struct {
	existing map[string]bool
	saved    []*domain.Question
	saveErr  error
}

func (f *fakeQuestions) GetQuestionByID(ctx context.Context, id string) (*domain.Question, error) {
	if f.existing[id] {
		return &domain.Question{ID: id}, nil
	}
	return nil, domain.NewQuestionNotFoundError(id)
}

func (f *fakeQuestions) GetQuestionsForSession(ctx context.Context, sessionID string) ([]*domain.Question, error) {
	return nil, nil
}

func (f *fakeQuestions) SaveQuestion(ctx context.Context, q *domain.Question) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, q)
	return nil
}

type fakeSessions struct {
	created []*domain.Session
}

func (f *fakeSessions) CreateSession(ctx context.Context, s *domain.Session) error {
	f.created = append(f.created, s)
	return nil
}

func (f *fakeSessions) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	return nil, domain.NewSessionNotFoundError(sessionID)
}

func (f *fakeSessions) MarkCompleted(ctx context.Context, sessionID string, completedAt time.Time) error {
	return nil
}

func (f *fakeSessions) SaveResult(ctx context.Context, result *domain.AssessmentResult) error {
	return nil
}

func (f *fakeSessions) GetResult(ctx context.Context, sessionID string) (*domain.AssessmentResult, error) {
	return nil, nil
}

func loadBundledBank(t *testing.T) seedmodels.SeedBank {
	t.Helper()
	raw, err := os.ReadFile("../../" + defaultSeedFilePath)
	require.NoError(t, err)
	var bank seedmodels.SeedBank
	require.NoError(t, json.Unmarshal(raw, &bank))
	return bank
}

func TestSeed_BundledBank(t *testing.T) {
	bank := loadBundledBank(t)
	tx := &fakeTx{}
	questions := &fakeQuestions{existing: map[string]bool{"gr-001": true}}
	sessions := &fakeSessions{}
	s := &seeder{tx: tx, questions: questions, sessions: sessions, log: zap.NewNop()}

	stats, err := s.Seed(context.Background(), bank)
	require.NoError(t, err)
	assert.Equal(t, 1, tx.calls)
	assert.Equal(t, 1, stats.QuestionsSkipped)
	assert.Equal(t, len(bank.Questions)-1, stats.QuestionsCreated)
	assert.Equal(t, 1, stats.SessionsCreated)

	byID := map[string]*domain.Question{}
	for _, q := range questions.saved {
		byID[q.ID] = q
	}
	assert.Equal(t, domain.StrategyOpenSpeech, byID["sp-001"].Strategy())
	assert.Equal(t, domain.StrategyCategoryMatch, byID["voc-001"].Strategy())
	assert.True(t, byID["lis-001"].SafetyCritical)
	assert.Len(t, sessions.created[0].QuestionIDs, len(bank.Questions))
}

func TestSeed_RejectsBadQuestionBeforeWriting(t *testing.T) {
	tx := &fakeTx{}
	bank := seedmodels.SeedBank{Questions: []seedmodels.SeedQuestion{
		{ID: "x1", Module: "grammar", Strategy: "multiple_choice", Key: json.RawMessage(`{}`), Points: 1},
	}}
	s := &seeder{tx: tx, questions: &fakeQuestions{}, sessions: &fakeSessions{}, log: zap.NewNop()}

	_, err := s.Seed(context.Background(), bank)
	assert.ErrorIs(t, err, domain.ErrUnknownStrategy)
	assert.Equal(t, 0, tx.calls)
}

func TestSeed_SaveFailureAborts(t *testing.T) {
	bank := seedmodels.SeedBank{Questions: []seedmodels.SeedQuestion{
		{ID: "g1", Module: "grammar", Strategy: "exact", Key: json.RawMessage(`{"answer":"A"}`), Points: 2},
	}, Sessions: []seedmodels.SeedSession{{ID: "s1", QuestionIDs: []string{"g1"}}}}
	sessions := &fakeSessions{}
	s := &seeder{
		tx:        &fakeTx{},
		questions: &fakeQuestions{saveErr: errors.New("ORA-00001")},
		sessions:  sessions,
		log:       zap.NewNop(),
	}

	_, err := s.Seed(context.Background(), bank)
	assert.Error(t, err)
	assert.Empty(t, sessions.created)
}

func TestToQuestion(t *testing.T) {
	_, err := toQuestion(seedmodels.SeedQuestion{ID: "q", Module: "cooking", Strategy: "exact", Key: json.RawMessage(`{"answer":"A"}`), Points: 1})
	assert.Error(t, err)

	_, err = toQuestion(seedmodels.SeedQuestion{ID: "q", Module: "reading", Strategy: "exact", Key: json.RawMessage(`{"answer":"A"}`)})
	assert.Error(t, err)

	q, err := toQuestion(seedmodels.SeedQuestion{ID: "q", Module: " Reading ", Strategy: "fuzzy_fill", Key: json.RawMessage(`{"answer":"7:30"}`), Points: 3})
	require.NoError(t, err)
	assert.Equal(t, domain.ModuleReading, q.Module)
	assert.Equal(t, domain.FuzzyKey{Answer: "7:30"}, q.Key)
}
