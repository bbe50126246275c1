package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"proficiency-scoring/internal/domain"
	"proficiency-scoring/internal/logger"
)

// TranscriptionPolicy bounds how long and how often a transcription is tried.
type TranscriptionPolicy struct {
	Timeout           time.Duration
	MaxAttempts       int
	InitialBackoff    time.Duration
	BackoffMultiplier float64
}

// DefaultTranscriptionPolicy returns 3 attempts of 30s each with 500ms
// doubling backoff.
func DefaultTranscriptionPolicy() TranscriptionPolicy {
	return TranscriptionPolicy{
		Timeout:           30 * time.Second,
		MaxAttempts:       3,
		InitialBackoff:    500 * time.Millisecond,
		BackoffMultiplier: 2,
	}
}

// TranscriptionService turns audio into a transcript or a typed failure. It
// never returns an error: callers branch on the outcome.
type TranscriptionService interface {
	Transcribe(ctx context.Context, audio []byte, filename string) domain.TranscriptionOutcome
}

type transcriptionServiceImpl struct {
	transcriber domain.Transcriber
	policy      TranscriptionPolicy
	timer       backoff.Timer // nil uses a real timer
}

// NewTranscriptionService wraps transcriber with the retry policy. A nil
// transcriber yields a service that always reports FailureUnavailable.
func NewTranscriptionService(transcriber domain.Transcriber, policy TranscriptionPolicy) TranscriptionService {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	if policy.BackoffMultiplier < 1 {
		policy.BackoffMultiplier = 1
	}
	return &transcriptionServiceImpl{
		transcriber: transcriber,
		policy:      policy,
	}
}

func (s *transcriptionServiceImpl) Transcribe(ctx context.Context, audio []byte, filename string) domain.TranscriptionOutcome {
	if s.transcriber == nil {
		return domain.TranscriptionOutcome{
			Failure: domain.FailureUnavailable,
			Err:     errors.New("no transcriber configured"),
		}
	}

	var (
		text    string
		last    *domain.TranscriptionError
		attempt int
	)
	operation := func() error {
		attempt++
		var err error
		text, err = s.attempt(ctx, audio, filename)
		if err == nil {
			return nil
		}

		last = asTranscriptionError(err)
		logger.Get().Warn("TranscriptionService: attempt failed",
			zap.Int("attempt", attempt),
			zap.String("reason", string(last.Reason)),
			zap.Bool("transient", last.Transient),
			zap.Error(err))
		if !last.Transient {
			return backoff.Permanent(last)
		}
		return last
	}

	if err := backoff.RetryNotifyWithTimer(operation, s.backOff(ctx), nil, s.timer); err == nil {
		return domain.TranscriptionOutcome{Text: text, Attempts: attempt}
	}

	logger.Get().Error("TranscriptionService: giving up",
		zap.Int("attempts", attempt),
		zap.String("reason", string(last.Reason)))
	return domain.TranscriptionOutcome{Failure: last.Reason, Attempts: attempt, Err: last}
}

// backOff builds the retry schedule: MaxAttempts-1 retries spaced by an
// exponential interval without jitter, cut short when ctx ends.
func (s *transcriptionServiceImpl) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = s.policy.InitialBackoff
	exp.Multiplier = s.policy.BackoffMultiplier
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(s.policy.MaxAttempts-1)), ctx)
}

func (s *transcriptionServiceImpl) attempt(ctx context.Context, audio []byte, filename string) (string, error) {
	if s.policy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.policy.Timeout)
		defer cancel()
	}
	return s.transcriber.Transcribe(ctx, audio, filename)
}

func asTranscriptionError(err error) *domain.TranscriptionError {
	var te *domain.TranscriptionError
	if errors.As(err, &te) {
		return te
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewTranscriptionError(domain.FailureTimeout, true, err)
	}
	if errors.Is(err, context.Canceled) {
		return domain.NewTranscriptionError(domain.FailureUnavailable, false, err)
	}
	return domain.NewTranscriptionError(domain.FailureUnavailable, true, err)
}
