package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"proficiency-scoring/internal/cache"
	"proficiency-scoring/internal/domain"
	"proficiency-scoring/internal/logger"
)

// ErrResultNotCached is returned when a session result is not in the cache.
var ErrResultNotCached = errors.New("assessment result not found in cache")

// ResultCacheService caches final assessment results by session.
type ResultCacheService interface {
	Put(ctx context.Context, result *domain.AssessmentResult) error
	Get(ctx context.Context, sessionID string) (*domain.AssessmentResult, error)
}

type resultCacheServiceImpl struct {
	cache domain.Cache
	ttl   time.Duration
}

// NewResultCacheService returns a no-op service when cache is nil.
func NewResultCacheService(c domain.Cache, ttl time.Duration) ResultCacheService {
	if c == nil {
		logger.Get().Warn("ResultCacheService initialized with nil cache. Service will be no-op.")
		return &noopResultCacheService{}
	}
	return &resultCacheServiceImpl{cache: c, ttl: ttl}
}

func (s *resultCacheServiceImpl) Put(ctx context.Context, result *domain.AssessmentResult) error {
	if result == nil {
		return domain.NewInvalidInputError("cannot cache nil result")
	}

	key := cache.ResultKey(result.SessionID)
	data, err := json.Marshal(result)
	if err != nil {
		logger.Get().Error("Failed to marshal assessment result for caching", zap.Error(err), zap.String("sessionID", result.SessionID))
		return domain.NewInternalError("failed to marshal result for caching", err)
	}

	if err := s.cache.Set(ctx, key, string(data), s.ttl); err != nil {
		logger.Get().Error("Failed to cache assessment result", zap.Error(err), zap.String("key", key))
		return domain.NewInternalError(fmt.Sprintf("failed to set assessment result to cache for key %s", key), err)
	}
	logger.Get().Debug("Cached assessment result", zap.String("key", key), zap.Duration("ttl", s.ttl))
	return nil
}

func (s *resultCacheServiceImpl) Get(ctx context.Context, sessionID string) (*domain.AssessmentResult, error) {
	key := cache.ResultKey(sessionID)
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrCacheMiss) {
			logger.Get().Debug("Assessment result cache miss", zap.String("key", key))
			return nil, ErrResultNotCached
		}
		logger.Get().Error("Failed to get assessment result from cache", zap.Error(err), zap.String("key", key))
		return nil, domain.NewInternalError(fmt.Sprintf("failed to get assessment result from cache for key %s", key), err)
	}
	if data == "" {
		return nil, ErrResultNotCached
	}

	var result domain.AssessmentResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		logger.Get().Error("Failed to unmarshal assessment result from cache", zap.Error(err), zap.String("key", key))
		return nil, domain.NewInternalError(fmt.Sprintf("failed to unmarshal result from cache for key %s", key), err)
	}
	return &result, nil
}

type noopResultCacheService struct{}

func (s *noopResultCacheService) Put(ctx context.Context, result *domain.AssessmentResult) error {
	return nil
}

func (s *noopResultCacheService) Get(ctx context.Context, sessionID string) (*domain.AssessmentResult, error) {
	return nil, ErrResultNotCached
}
