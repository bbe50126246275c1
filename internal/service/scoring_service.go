package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"proficiency-scoring/internal/audioquality"
	"proficiency-scoring/internal/cache"
	"proficiency-scoring/internal/domain"
	"proficiency-scoring/internal/logger"
	"proficiency-scoring/internal/matcher"
	"proficiency-scoring/internal/speaking"
	"proficiency-scoring/internal/util"
)

// ScoringOptions holds the service-level knobs around the scoring components.
type ScoringOptions struct {
	// SpeakingCorrectPercent is the percentage at which a spoken response
	// counts as correct for the safety gate. Fallback results never do.
	SpeakingCorrectPercent float64
	RejectUnusableAudio    bool
	// AcceptTypedTranscript allows spoken submissions without a recording.
	AcceptTypedTranscript  bool
	ClaimTTL               time.Duration
}

// SpeakingOutcome is the result of a spoken submission.
type SpeakingOutcome struct {
	Score        *domain.SpeakingScoreResult `json:"score"`
	AudioQuality *domain.AudioQualityReport  `json:"audio_quality,omitempty"`
	Correct      bool                        `json:"correct"`
}

// ScoringService scores single submissions and persists them once per
// (session, question).
type ScoringService interface {
	SubmitAnswer(ctx context.Context, sessionID, questionID, answer string) (*domain.MatchResult, error)
	SubmitSpeaking(ctx context.Context, sub domain.SubmittedResponse) (*SpeakingOutcome, error)
	CheckAudio(ctx context.Context, audio []byte) *domain.AudioQualityReport
}

type scoringServiceImpl struct {
	questions     domain.QuestionRepository
	responses     domain.ResponseRepository
	sessions      domain.SessionRepository
	cache         domain.Cache
	matcher       *matcher.Matcher
	scorer        *speaking.Scorer
	analyzer      *audioquality.Analyzer
	transcription TranscriptionService
	opts          ScoringOptions
	now           func() time.Time
}

// NewScoringService creates a ScoringService. cache may be nil, in which case
// only the database constraint guards duplicates.
func NewScoringService(
	questions domain.QuestionRepository,
	responses domain.ResponseRepository,
	sessions domain.SessionRepository,
	c domain.Cache,
	m *matcher.Matcher,
	scorer *speaking.Scorer,
	analyzer *audioquality.Analyzer,
	transcription TranscriptionService,
	opts ScoringOptions,
) ScoringService {
	if c == nil {
		logger.Get().Warn("ScoringService initialized with nil cache. Submission claims are disabled.")
	}
	return &scoringServiceImpl{
		questions:     questions,
		responses:     responses,
		sessions:      sessions,
		cache:         c,
		matcher:       m,
		scorer:        scorer,
		analyzer:      analyzer,
		transcription: transcription,
		opts:          opts,
		now:           time.Now,
	}
}

// loadQuestion checks that the session is open, that the question belongs to
// it and that nothing was submitted for it yet.
func (s *scoringServiceImpl) loadQuestion(ctx context.Context, sessionID, questionID string) (*domain.Question, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != domain.SessionStatusInProgress {
		return nil, domain.NewSessionCompletedError(sessionID)
	}
	if !slices.Contains(session.QuestionIDs, questionID) {
		return nil, domain.NewQuestionNotFoundError(questionID).
			WithContext("session_id", sessionID)
	}

	q, err := s.questions.GetQuestionByID(ctx, questionID)
	if err != nil {
		return nil, err
	}

	exists, err := s.responses.ResponseExists(ctx, sessionID, questionID)
	if err != nil {
		return nil, domain.NewInternalError("failed to check for an existing response", err)
	}
	if exists {
		return nil, domain.NewDuplicateSubmissionError(sessionID, questionID)
	}
	return q, nil
}

// claim takes the submission slot. Cache failures fall back to the database
// unique constraint.
func (s *scoringServiceImpl) claim(ctx context.Context, sessionID, questionID string) (release func(), err error) {
	release = func() {}
	if s.cache == nil {
		return release, nil
	}
	key := cache.SubmissionClaimKey(sessionID, questionID)
	ok, err := s.cache.SetNX(ctx, key, s.now().UTC().Format(time.RFC3339Nano), s.opts.ClaimTTL)
	if err != nil {
		logger.Get().Warn("ScoringService: submission claim unavailable, relying on database constraint",
			zap.String("key", key), zap.Error(err))
		return release, nil
	}
	if !ok {
		return nil, domain.NewDuplicateSubmissionError(sessionID, questionID)
	}
	return func() {
		// the request context may already be cancelled
		if err := s.cache.Delete(context.WithoutCancel(ctx), key); err != nil {
			logger.Get().Warn("ScoringService: failed to release submission claim", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

func (s *scoringServiceImpl) SubmitAnswer(ctx context.Context, sessionID, questionID, answer string) (*domain.MatchResult, error) {
	q, err := s.loadQuestion(ctx, sessionID, questionID)
	if err != nil {
		return nil, err
	}
	if q.Strategy() == domain.StrategyOpenSpeech {
		return nil, domain.NewInvalidInputError(
			fmt.Sprintf("question %s expects a spoken response", questionID))
	}

	release, err := s.claim(ctx, sessionID, questionID)
	if err != nil {
		return nil, err
	}

	result, err := s.matcher.Match(q, answer)
	if err != nil {
		release()
		return nil, err
	}

	detail, err := json.Marshal(result)
	if err != nil {
		release()
		return nil, domain.NewInternalError("failed to encode match result", err)
	}
	resp := &domain.ScoredResponse{
		ID:              util.NewULID(),
		SessionID:       sessionID,
		QuestionID:      questionID,
		Module:          q.Module,
		Strategy:        q.Strategy(),
		SubmittedAnswer: answer,
		Correct:         result.Correct,
		PointsEarned:    result.PointsEarned,
		PointsPossible:  result.PointsPossible,
		Rule:            string(result.Rule),
		Detail:          detail,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.responses.SaveResponse(ctx, resp); err != nil {
		release()
		return nil, err
	}

	logger.Get().Info("ScoringService: answer scored",
		zap.String("sessionID", sessionID),
		zap.String("questionID", questionID),
		zap.String("rule", string(result.Rule)),
		zap.Bool("correct", result.Correct))
	return result, nil
}

func (s *scoringServiceImpl) SubmitSpeaking(ctx context.Context, sub domain.SubmittedResponse) (*SpeakingOutcome, error) {
	q, err := s.loadQuestion(ctx, sub.SessionID, sub.QuestionID)
	if err != nil {
		return nil, err
	}
	key, ok := q.Key.(domain.SpeechKey)
	if !ok {
		return nil, domain.NewInvalidInputError(
			fmt.Sprintf("question %s does not expect a spoken response", sub.QuestionID))
	}

	// A typed transcript replaces the recording only when explicitly allowed.
	// With a recording attached the transcript always comes from the server.
	typed := len(sub.Audio) == 0
	if typed && !s.opts.AcceptTypedTranscript {
		return nil, domain.NewInvalidInputError(
			fmt.Sprintf("question %s requires a recording", sub.QuestionID))
	}

	var (
		report     *domain.AudioQualityReport
		transcript domain.TranscriptionOutcome
	)
	if typed {
		transcript = domain.TranscriptionOutcome{Text: sub.Transcript}
	} else {
		if sub.Transcript != "" {
			logger.Get().Warn("ScoringService: ignoring client transcript sent with a recording",
				zap.String("sessionID", sub.SessionID),
				zap.String("questionID", sub.QuestionID))
		}
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			report = s.analyzer.AnalyzeWAV(sub.Audio)
			return nil
		})
		g.Go(func() error {
			transcript = s.transcription.Transcribe(gctx, sub.Audio, sub.AudioFilename)
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	if s.opts.RejectUnusableAudio && report != nil && !report.Usable() {
		logger.Get().Info("ScoringService: unusable recording rejected",
			zap.String("sessionID", sub.SessionID),
			zap.String("questionID", sub.QuestionID),
			zap.Strings("issues", report.Issues))
		return nil, domain.NewAudioUnusableError(report)
	}

	release, err := s.claim(ctx, sub.SessionID, sub.QuestionID)
	if err != nil {
		return nil, err
	}

	duration := sub.DurationSeconds
	if duration <= 0 && report != nil && report.AnalysisError == "" {
		duration = report.DurationSeconds
	}

	var result *domain.SpeakingScoreResult
	switch {
	case transcript.OK(), transcript.Failure == domain.FailureEmpty:
		// an empty transcript is scored as absent speech, not as an outage
		result = s.scorer.Score(speaking.Input{
			Transcript:      transcript.Text,
			Keywords:        key.Keywords,
			Context:         key.Context,
			DurationSeconds: duration,
			PointsPossible:  q.Points,
		})
		if transcript.Failure == domain.FailureEmpty {
			logger.Get().Info("ScoringService: no speech recognized, scoring as absent",
				zap.String("sessionID", sub.SessionID),
				zap.String("questionID", sub.QuestionID))
			result.NeedsReview = true
		}
	default:
		logger.Get().Warn("ScoringService: transcription failed, awarding fallback credit",
			zap.String("sessionID", sub.SessionID),
			zap.String("questionID", sub.QuestionID),
			zap.String("reason", string(transcript.Failure)),
			zap.Int("attempts", transcript.Attempts),
			zap.Error(transcript.Err))
		result = s.scorer.Fallback(q.Points, transcript.Failure)
	}
	if typed {
		result.NeedsReview = true
	}

	outcome := &SpeakingOutcome{
		Score:        result,
		AudioQuality: report,
		Correct:      !result.Degraded && result.Percentage >= s.opts.SpeakingCorrectPercent,
	}
	detail, err := json.Marshal(outcome)
	if err != nil {
		release()
		return nil, domain.NewInternalError("failed to encode speaking result", err)
	}

	resp := &domain.ScoredResponse{
		ID:              util.NewULID(),
		SessionID:       sub.SessionID,
		QuestionID:      sub.QuestionID,
		Module:          q.Module,
		Strategy:        domain.StrategyOpenSpeech,
		SubmittedAnswer: result.Transcript,
		Correct:         outcome.Correct,
		PointsEarned:    result.TotalPoints,
		PointsPossible:  result.MaxPoints,
		Rule:            string(result.Level),
		Degraded:        result.Degraded,
		NeedsReview:     result.NeedsReview,
		Detail:          detail,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.responses.SaveResponse(ctx, resp); err != nil {
		release()
		return nil, err
	}

	logger.Get().Info("ScoringService: spoken response scored",
		zap.String("sessionID", sub.SessionID),
		zap.String("questionID", sub.QuestionID),
		zap.Float64("points", result.TotalPoints),
		zap.String("level", string(result.Level)),
		zap.Bool("degraded", result.Degraded))
	return outcome, nil
}

// CheckAudio analyses a practice recording without storing anything.
func (s *scoringServiceImpl) CheckAudio(ctx context.Context, audio []byte) *domain.AudioQualityReport {
	if len(audio) == 0 {
		return audioquality.ErrorReport(errors.New("recording is empty"))
	}
	report := s.analyzer.AnalyzeWAV(audio)
	logger.Get().Debug("ScoringService: audio pre-check",
		zap.String("level", string(report.Level)),
		zap.Float64("overall", report.OverallScore))
	return report
}
