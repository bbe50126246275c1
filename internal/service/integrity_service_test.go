package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"proficiency-scoring/internal/cache"
	"proficiency-scoring/internal/domain"
	"proficiency-scoring/internal/integrity"
)

const signalsTTL = 24 * time.Hour

func newIntegrityFixture() (*integrityServiceImpl, *MockCache, *MockSessionRepository) {
	c := new(MockCache)
	sessions := new(MockSessionRepository)
	svc := NewIntegrityService(c, sessions, integrity.NewScorer(integrity.DefaultConfig()), signalsTTL).(*integrityServiceImpl)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc, c, sessions
}

func inProgress(id string, questionIDs ...string) *domain.Session {
	return &domain.Session{ID: id, Status: domain.SessionStatusInProgress, QuestionIDs: questionIDs}
}

func TestIntegrityService_StartSessionKeepsFirstBaseline(t *testing.T) {
	svc, c, sessions := newIntegrityFixture()
	ctx := context.Background()
	key := cache.SignalsKey("s1")

	sessions.On("GetSession", ctx, "s1").Return(inProgress("s1"), nil)
	c.On("HGetAll", ctx, key).Return(map[string]string{"initial_ip": "10.0.0.1"}, nil)
	c.On("HSet", ctx, key, "initial_user_agent", "Firefox").Return(nil).Once()
	c.On("HSet", ctx, key, "current_ip", "10.0.0.9").Return(nil).Once()
	c.On("HSet", ctx, key, "current_user_agent", "Firefox").Return(nil).Once()
	c.On("Expire", ctx, key, signalsTTL).Return(nil)

	require.NoError(t, svc.StartSession(ctx, "s1", "10.0.0.9", "Firefox"))
	c.AssertNotCalled(t, "HSet", ctx, key, "initial_ip", mock.Anything)
	c.AssertExpectations(t)
}

func TestIntegrityService_StartSessionRejectsCompleted(t *testing.T) {
	svc, c, sessions := newIntegrityFixture()
	ctx := context.Background()
	sessions.On("GetSession", ctx, "s1").Return(&domain.Session{ID: "s1", Status: domain.SessionStatusCompleted}, nil)

	err := svc.StartSession(ctx, "s1", "10.0.0.1", "Firefox")
	assert.ErrorIs(t, err, domain.ErrSessionCompleted)
	c.AssertNotCalled(t, "HGetAll", mock.Anything, mock.Anything)
}

func TestIntegrityService_RecordTabSwitchWarns(t *testing.T) {
	svc, c, sessions := newIntegrityFixture()
	ctx := context.Background()
	key := cache.SignalsKey("s1")

	sessions.On("GetSession", ctx, "s1").Return(inProgress("s1"), nil)
	c.On("HIncrBy", ctx, key, "tab_switches", int64(1)).Return(int64(4), nil)
	c.On("Expire", ctx, key, signalsTTL).Return(nil)
	c.On("HGetAll", ctx, key).Return(map[string]string{"tab_switches": "4", "copy_paste": "1"}, nil)

	ack, err := svc.RecordEvent(ctx, "s1", IntegrityEvent{Type: "Tab_Switch"})
	require.NoError(t, err)
	assert.Equal(t, 4, ack.TabSwitches)
	assert.Equal(t, 1, ack.CopyPasteAttempts)
	assert.Equal(t, []string{"Please stay on the test page. Leaving the page is recorded."}, ack.Warnings)
	c.AssertNotCalled(t, "HSet", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIntegrityService_RecordCopyAndSuspicious(t *testing.T) {
	svc, c, sessions := newIntegrityFixture()
	ctx := context.Background()
	key := cache.SignalsKey("s1")

	sessions.On("GetSession", ctx, "s1").Return(inProgress("s1"), nil)
	c.On("HIncrBy", ctx, key, "copy_paste", int64(1)).Return(int64(1), nil).Once()
	c.On("HSet", ctx, key, "event:devtools_open", "1").Return(nil).Once()
	c.On("HSet", ctx, key, "current_ip", "10.0.0.2").Return(nil)
	c.On("Expire", ctx, key, signalsTTL).Return(nil)
	c.On("HGetAll", ctx, key).Return(map[string]string{"copy_paste": "1", "event:devtools_open": "1"}, nil)

	_, err := svc.RecordEvent(ctx, "s1", IntegrityEvent{Type: EventPaste, IP: "10.0.0.2"})
	require.NoError(t, err)
	ack, err := svc.RecordEvent(ctx, "s1", IntegrityEvent{Type: EventSuspicious, Detail: " DevTools_Open "})
	require.NoError(t, err)
	assert.Empty(t, ack.Warnings)
	c.AssertExpectations(t)
}

func TestIntegrityService_RecordEventValidation(t *testing.T) {
	svc, c, _ := newIntegrityFixture()
	ctx := context.Background()

	tests := []struct {
		name  string
		event IntegrityEvent
		field string
	}{
		{"missing type", IntegrityEvent{}, "type"},
		{"unknown type", IntegrityEvent{Type: "screenshot"}, "type"},
		{"suspicious without detail", IntegrityEvent{Type: EventSuspicious}, "detail"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RecordEvent(ctx, "s1", tt.event)
			var verrs domain.ValidationErrors
			require.True(t, errors.As(err, &verrs))
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
	c.AssertNotCalled(t, "HIncrBy", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIntegrityService_ScoreFromSignals(t *testing.T) {
	svc, c, sessions := newIntegrityFixture()
	ctx := context.Background()
	key := cache.SignalsKey("s1")

	sessions.On("GetSession", ctx, "s1").Return(inProgress("s1"), nil)
	c.On("HGetAll", ctx, key).Return(map[string]string{
		"initial_ip":           "10.0.0.1",
		"current_ip":           "10.0.0.1",
		"initial_user_agent":   "Firefox",
		"current_user_agent":   "Firefox",
		"tab_switches":         "5",
		"event:window_resize":  "1",
		"event:devtools_open":  "1",
		"manual_flag":          "",
		"flagged_at":           "",
		"unrelated_counter_zz": "3",
	}, nil)

	score, err := svc.Score(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 40, score.Score)
	assert.Equal(t, domain.IntegrityHigh, score.Level)
	assert.True(t, score.RequiresReview)
	assert.Contains(t, score.Factors, "Suspicious events: devtools_open, window_resize")
}

func TestIntegrityService_EmptySignalsAreClean(t *testing.T) {
	svc, c, sessions := newIntegrityFixture()
	ctx := context.Background()

	sessions.On("GetSession", ctx, "s1").Return(inProgress("s1"), nil)
	c.On("HGetAll", ctx, cache.SignalsKey("s1")).Return(map[string]string{}, nil)

	score, err := svc.Score(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, score.Score)
	assert.Equal(t, domain.IntegrityClean, score.Level)
	assert.False(t, score.RequiresReview)
}

func TestIntegrityService_Flag(t *testing.T) {
	svc, c, sessions := newIntegrityFixture()
	ctx := context.Background()
	key := cache.SignalsKey("s1")

	sessions.On("GetSession", ctx, "s1").Return(&domain.Session{ID: "s1", Status: domain.SessionStatusCompleted}, nil)
	c.On("HSet", ctx, key, "manual_flag", "voice mismatch").Return(nil).Once()
	c.On("HSet", ctx, key, "flagged_at", "2026-03-01T12:00:00Z").Return(nil).Once()
	c.On("Expire", ctx, key, signalsTTL).Return(nil)

	require.NoError(t, svc.Flag(ctx, "s1", "  voice mismatch "))
	c.AssertExpectations(t)

	err := svc.Flag(ctx, "s1", " ")
	var verrs domain.ValidationErrors
	assert.True(t, errors.As(err, &verrs))
}

func TestIntegrityService_UnknownSession(t *testing.T) {
	svc, _, sessions := newIntegrityFixture()
	ctx := context.Background()
	sessions.On("GetSession", ctx, "nope").Return(nil, domain.NewSessionNotFoundError("nope"))

	_, err := svc.Score(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSignalsFromHash(t *testing.T) {
	sig := signalsFromHash("s1", map[string]string{
		"tab_switches": "not a number",
		"copy_paste":   "7",
		"manual_flag":  "check audio",
		"flagged_at":   "2026-03-01T12:00:00Z",
	})
	assert.Equal(t, 0, sig.TabSwitches)
	assert.Equal(t, 7, sig.CopyPasteAttempts)
	assert.Equal(t, "check audio", sig.ManualFlag)
	assert.Equal(t, 2026, sig.FlaggedAt.Year())
	assert.Empty(t, sig.SuspiciousEvents)
}
