package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"proficiency-scoring/internal/aggregator"
	"proficiency-scoring/internal/domain"
	"proficiency-scoring/internal/logger"
)

// SessionService completes sessions and serves their final results.
type SessionService interface {
	Complete(ctx context.Context, sessionID string) (*domain.AssessmentResult, error)
	GetResult(ctx context.Context, sessionID string) (*domain.AssessmentResult, error)
}

type sessionServiceImpl struct {
	sessions    domain.SessionRepository
	questions   domain.QuestionRepository
	responses   domain.ResponseRepository
	txManager   domain.TransactionManager
	integrity   IntegrityService
	aggregator  *aggregator.Aggregator
	resultCache ResultCacheService
	now         func() time.Time
}

// NewSessionService creates a SessionService.
func NewSessionService(
	sessions domain.SessionRepository,
	questions domain.QuestionRepository,
	responses domain.ResponseRepository,
	txManager domain.TransactionManager,
	integrity IntegrityService,
	agg *aggregator.Aggregator,
	resultCache ResultCacheService,
) SessionService {
	return &sessionServiceImpl{
		sessions:    sessions,
		questions:   questions,
		responses:   responses,
		txManager:   txManager,
		integrity:   integrity,
		aggregator:  agg,
		resultCache: resultCache,
		now:         time.Now,
	}
}

// Complete aggregates the session exactly once. The completion mark and the
// stored result are written in one transaction; a concurrent second call
// fails with ErrSessionCompleted.
func (s *sessionServiceImpl) Complete(ctx context.Context, sessionID string) (*domain.AssessmentResult, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != domain.SessionStatusInProgress {
		return nil, domain.NewSessionCompletedError(sessionID)
	}

	var integrityScore *domain.IntegrityScore
	if s.integrity != nil {
		integrityScore, err = s.integrity.Score(ctx, sessionID)
		if err != nil {
			logger.Get().Warn("SessionService: integrity score unavailable, completing without it",
				zap.String("sessionID", sessionID), zap.Error(err))
			integrityScore = nil
		}
	}

	var result *domain.AssessmentResult
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		completedAt := s.now().UTC()
		if err := s.sessions.MarkCompleted(txCtx, sessionID, completedAt); err != nil {
			return err
		}

		questions, err := s.questions.GetQuestionsForSession(txCtx, sessionID)
		if err != nil {
			return err
		}
		responses, err := s.responses.ListResponses(txCtx, sessionID)
		if err != nil {
			return err
		}

		result, err = s.aggregator.Aggregate(sessionID, questions, responses, integrityScore)
		if err != nil {
			return err
		}
		result.CompletedAt = completedAt
		return s.sessions.SaveResult(txCtx, result)
	})
	if err != nil {
		logger.Get().Error("SessionService: failed to complete session",
			zap.String("sessionID", sessionID), zap.Error(err))
		return nil, err
	}

	if err := s.resultCache.Put(ctx, result); err != nil {
		logger.Get().Warn("SessionService: failed to cache result", zap.String("sessionID", sessionID), zap.Error(err))
	}

	logger.Get().Info("SessionService: session completed",
		zap.String("sessionID", sessionID),
		zap.Float64("totalScore", result.TotalScore),
		zap.Bool("passed", result.Passed),
		zap.Bool("flaggedForReview", result.FlaggedForReview))
	return result, nil
}

func (s *sessionServiceImpl) GetResult(ctx context.Context, sessionID string) (*domain.AssessmentResult, error) {
	cached, err := s.resultCache.Get(ctx, sessionID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrResultNotCached) {
		logger.Get().Warn("SessionService: result cache read failed", zap.String("sessionID", sessionID), zap.Error(err))
	}

	result, err := s.sessions.GetResult(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.resultCache.Put(ctx, result); err != nil {
		logger.Get().Warn("SessionService: failed to cache result", zap.String("sessionID", sessionID), zap.Error(err))
	}
	return result, nil
}
