package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"proficiency-scoring/internal/cache"
	"proficiency-scoring/internal/domain"
	"proficiency-scoring/internal/integrity"
	"proficiency-scoring/internal/logger"
)

// Browser events reported by the test client.
const (
	EventTabSwitch  = "tab_switch"
	EventCopy       = "copy"
	EventPaste      = "paste"
	EventSuspicious = "suspicious"
)

// fields of the per-session signals hash
const (
	fieldInitialIP        = "initial_ip"
	fieldInitialUserAgent = "initial_user_agent"
	fieldCurrentIP        = "current_ip"
	fieldCurrentUserAgent = "current_user_agent"
	fieldTabSwitches      = "tab_switches"
	fieldCopyPaste        = "copy_paste"
	fieldManualFlag       = "manual_flag"
	fieldFlaggedAt        = "flagged_at"
	eventFieldPrefix      = "event:"
)

// IntegrityEvent is one client-side observation.
type IntegrityEvent struct {
	Type      string
	Detail    string
	IP        string
	UserAgent string
}

// EventAck is returned to the client after an event was recorded.
type EventAck struct {
	TabSwitches       int      `json:"tab_switches"`
	CopyPasteAttempts int      `json:"copy_paste_attempts"`
	Warnings          []string `json:"warnings"`
}

// IntegrityService collects session signals in the cache and scores them.
// The score is advisory and never changes a pass decision.
type IntegrityService interface {
	StartSession(ctx context.Context, sessionID, ip, userAgent string) error
	Observe(ctx context.Context, sessionID, ip, userAgent string)
	RecordEvent(ctx context.Context, sessionID string, event IntegrityEvent) (*EventAck, error)
	Signals(ctx context.Context, sessionID string) (domain.SessionSignals, error)
	Score(ctx context.Context, sessionID string) (*domain.IntegrityScore, error)
	Flag(ctx context.Context, sessionID, reason string) error
}

type integrityServiceImpl struct {
	cache    domain.Cache
	sessions domain.SessionRepository
	scorer   *integrity.Scorer
	ttl      time.Duration
	now      func() time.Time
}

// NewIntegrityService creates an IntegrityService. Without a cache no signals
// are kept and every session scores clean.
func NewIntegrityService(c domain.Cache, sessions domain.SessionRepository, scorer *integrity.Scorer, ttl time.Duration) IntegrityService {
	if c == nil {
		logger.Get().Warn("IntegrityService initialized with nil cache. Signals will not be recorded.")
	}
	return &integrityServiceImpl{
		cache:    c,
		sessions: sessions,
		scorer:   scorer,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *integrityServiceImpl) activeSession(ctx context.Context, sessionID string) error {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status != domain.SessionStatusInProgress {
		return domain.NewSessionCompletedError(sessionID)
	}
	return nil
}

// StartSession records the baseline IP and user agent. A second call keeps
// the first baseline and only updates the current values.
func (s *integrityServiceImpl) StartSession(ctx context.Context, sessionID, ip, userAgent string) error {
	if err := s.activeSession(ctx, sessionID); err != nil {
		return err
	}
	if s.cache == nil {
		return nil
	}

	key := cache.SignalsKey(sessionID)
	existing, err := s.cache.HGetAll(ctx, key)
	if err != nil {
		return domain.NewInternalError("failed to read session signals", err)
	}
	if existing[fieldInitialIP] == "" && ip != "" {
		if err := s.cache.HSet(ctx, key, fieldInitialIP, ip); err != nil {
			return domain.NewInternalError("failed to store session baseline", err)
		}
	}
	if existing[fieldInitialUserAgent] == "" && userAgent != "" {
		if err := s.cache.HSet(ctx, key, fieldInitialUserAgent, userAgent); err != nil {
			return domain.NewInternalError("failed to store session baseline", err)
		}
	}
	s.Observe(ctx, sessionID, ip, userAgent)

	logger.Get().Info("IntegrityService: session started",
		zap.String("sessionID", sessionID),
		zap.String("ip", ip))
	return nil
}

// Observe updates the current IP and user agent. Failures are logged only.
func (s *integrityServiceImpl) Observe(ctx context.Context, sessionID, ip, userAgent string) {
	if s.cache == nil {
		return
	}
	key := cache.SignalsKey(sessionID)
	if ip != "" {
		if err := s.cache.HSet(ctx, key, fieldCurrentIP, ip); err != nil {
			logger.Get().Warn("IntegrityService: failed to store current ip", zap.String("sessionID", sessionID), zap.Error(err))
		}
	}
	if userAgent != "" {
		if err := s.cache.HSet(ctx, key, fieldCurrentUserAgent, userAgent); err != nil {
			logger.Get().Warn("IntegrityService: failed to store current user agent", zap.String("sessionID", sessionID), zap.Error(err))
		}
	}
	s.touch(ctx, key)
}

func (s *integrityServiceImpl) touch(ctx context.Context, key string) {
	if s.ttl <= 0 {
		return
	}
	if err := s.cache.Expire(ctx, key, s.ttl); err != nil {
		logger.Get().Warn("IntegrityService: failed to refresh signals ttl", zap.String("key", key), zap.Error(err))
	}
}

func (s *integrityServiceImpl) RecordEvent(ctx context.Context, sessionID string, event IntegrityEvent) (*EventAck, error) {
	eventType := strings.ToLower(strings.TrimSpace(event.Type))
	detail := strings.ToLower(strings.TrimSpace(event.Detail))
	switch eventType {
	case EventTabSwitch, EventCopy, EventPaste:
	case EventSuspicious:
		if detail == "" {
			return nil, domain.ValidationErrors{domain.NewMissingFieldError("detail")}
		}
	case "":
		return nil, domain.ValidationErrors{domain.NewMissingFieldError("type")}
	default:
		return nil, domain.ValidationErrors{domain.NewInvalidFormatError("type", event.Type)}
	}

	if err := s.activeSession(ctx, sessionID); err != nil {
		return nil, err
	}
	if s.cache == nil {
		return &EventAck{Warnings: []string{}}, nil
	}

	key := cache.SignalsKey(sessionID)
	var err error
	switch eventType {
	case EventTabSwitch:
		_, err = s.cache.HIncrBy(ctx, key, fieldTabSwitches, 1)
	case EventCopy, EventPaste:
		_, err = s.cache.HIncrBy(ctx, key, fieldCopyPaste, 1)
	case EventSuspicious:
		err = s.cache.HSet(ctx, key, eventFieldPrefix+detail, "1")
	}
	if err != nil {
		return nil, domain.NewInternalError("failed to record integrity event", err)
	}
	s.Observe(ctx, sessionID, event.IP, event.UserAgent)

	signals, err := s.Signals(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	logger.Get().Debug("IntegrityService: event recorded",
		zap.String("sessionID", sessionID),
		zap.String("type", eventType),
		zap.Int("tabSwitches", signals.TabSwitches),
		zap.Int("copyPaste", signals.CopyPasteAttempts))

	return &EventAck{
		TabSwitches:       signals.TabSwitches,
		CopyPasteAttempts: signals.CopyPasteAttempts,
		Warnings:          s.scorer.Warnings(signals),
	}, nil
}

func (s *integrityServiceImpl) Signals(ctx context.Context, sessionID string) (domain.SessionSignals, error) {
	if s.cache == nil {
		return domain.SessionSignals{SessionID: sessionID}, nil
	}
	fields, err := s.cache.HGetAll(ctx, cache.SignalsKey(sessionID))
	if err != nil {
		return domain.SessionSignals{}, domain.NewInternalError("failed to read session signals", err)
	}
	return signalsFromHash(sessionID, fields), nil
}

func (s *integrityServiceImpl) Score(ctx context.Context, sessionID string) (*domain.IntegrityScore, error) {
	if _, err := s.sessions.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	signals, err := s.Signals(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.scorer.Score(signals), nil
}

// Flag marks a session for manual review. The flag survives completion so
// reviewers can flag finished sessions.
func (s *integrityServiceImpl) Flag(ctx context.Context, sessionID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.ValidationErrors{domain.NewMissingFieldError("reason")}
	}
	if _, err := s.sessions.GetSession(ctx, sessionID); err != nil {
		return err
	}
	if s.cache == nil {
		return domain.NewInternalError("integrity signals are not available", errors.New("cache disabled"))
	}

	key := cache.SignalsKey(sessionID)
	if err := s.cache.HSet(ctx, key, fieldManualFlag, reason); err != nil {
		return domain.NewInternalError("failed to flag session", err)
	}
	if err := s.cache.HSet(ctx, key, fieldFlaggedAt, s.now().UTC().Format(time.RFC3339)); err != nil {
		return domain.NewInternalError("failed to flag session", err)
	}
	s.touch(ctx, key)

	logger.Get().Info("IntegrityService: session flagged for review",
		zap.String("sessionID", sessionID),
		zap.String("reason", reason))
	return nil
}

func signalsFromHash(sessionID string, fields map[string]string) domain.SessionSignals {
	sig := domain.SessionSignals{
		SessionID:        sessionID,
		InitialIP:        fields[fieldInitialIP],
		CurrentIP:        fields[fieldCurrentIP],
		InitialUserAgent: fields[fieldInitialUserAgent],
		CurrentUserAgent: fields[fieldCurrentUserAgent],
		ManualFlag:       fields[fieldManualFlag],
		SuspiciousEvents: []string{},
	}
	sig.TabSwitches, _ = strconv.Atoi(fields[fieldTabSwitches])
	sig.CopyPasteAttempts, _ = strconv.Atoi(fields[fieldCopyPaste])
	if at, err := time.Parse(time.RFC3339, fields[fieldFlaggedAt]); err == nil {
		sig.FlaggedAt = at
	}
	for field := range fields {
		if name, ok := strings.CutPrefix(field, eventFieldPrefix); ok {
			sig.SuspiciousEvents = append(sig.SuspiciousEvents, name)
		}
	}
	sort.Strings(sig.SuspiciousEvents)
	return sig
}
