package speaking

import (
	"strings"

	"proficiency-scoring/internal/domain"
	"proficiency-scoring/internal/lexicon"
	"proficiency-scoring/internal/util"
)

// Weights of the three sub-scores. They are expected to sum to 1.
type Weights struct {
	Keyword      float64
	Fluency      float64
	Completeness float64
}

// Config holds the tunable heuristics of the scorer.
type Config struct {
	Weights Weights

	// Similarity at or above StrongSimilarity earns StrongCredit, at or above
	// WeakSimilarity earns WeakCredit.
	StrongSimilarity  float64
	WeakSimilarity    float64
	StrongCredit      float64
	WeakCredit        float64
	SynonymSimilarity float64

	// DefaultWordsPerMinute is assumed when the recording length is unknown.
	DefaultWordsPerMinute float64
	// WordsPerSentence estimates sentences in unpunctuated transcripts.
	WordsPerSentence int

	// FallbackCreditRatio is the share of points granted when transcription failed.
	FallbackCreditRatio float64
	DefaultPoints       float64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Weights:               Weights{Keyword: 0.6, Fluency: 0.2, Completeness: 0.2},
		StrongSimilarity:      0.7,
		WeakSimilarity:        0.5,
		StrongCredit:          0.8,
		WeakCredit:            0.5,
		SynonymSimilarity:     0.9,
		DefaultWordsPerMinute: 130,
		WordsPerSentence:      6,
		FallbackCreditRatio:   0.5,
		DefaultPoints:         4.0,
	}
}

// sub-scores used when there is no transcript to analyse
const (
	absentFluency      = 0.3
	absentCompleteness = 0.2
)

// Input is one spoken response to score.
type Input struct {
	Transcript      string
	Keywords        []string
	Context         string
	DurationSeconds float64
	PointsPossible  float64
}

// Scorer computes composite scores for open spoken responses. It is
// stateless apart from its read-only configuration and lexicon.
type Scorer struct {
	lex *lexicon.Lexicon
	cfg Config
}

// NewScorer creates a Scorer.
func NewScorer(lex *lexicon.Lexicon, cfg Config) *Scorer {
	return &Scorer{lex: lex, cfg: cfg}
}

// Score evaluates a transcript against the expected keywords. An empty or
// bracketed transcript (the transcription error marker) is scored as absent
// speech: no keyword credit and floor values for fluency and completeness.
func (s *Scorer) Score(in Input) *domain.SpeakingScoreResult {
	points := in.PointsPossible
	if points <= 0 {
		points = s.cfg.DefaultPoints
	}
	w := s.cfg.Weights

	result := &domain.SpeakingScoreResult{
		MaxPoints:      points,
		Transcript:     in.Transcript,
		Keyword:        domain.SubScore{Max: util.Round(points*w.Keyword, 2)},
		Fluency:        domain.SubScore{Max: util.Round(points*w.Fluency, 2)},
		Completeness:   domain.SubScore{Max: util.Round(points*w.Completeness, 2)},
		Matched:        []string{},
		Missing:        []string{},
		Partial:        []domain.PartialKeywordMatch{},
		PolitePhrases:  []string{},
		LexiconVersion: s.lex.Version(),
	}

	text := strings.TrimSpace(in.Transcript)
	if isAbsent(text) {
		result.Missing = append(result.Missing, in.Keywords...)
		s.finish(result, 0, absentFluency, absentCompleteness)
		result.Feedback = "No speech could be evaluated for this response."
		result.Tips = []string{"Make sure your microphone works and speak clearly for the whole response"}
		return result
	}

	words := tokenize(text)
	keyword := s.scoreKeywords(words, in.Keywords, result)
	fluency := s.scoreFluency(words, in.DurationSeconds, result)
	completeness := s.scoreCompleteness(text, words, result)

	s.finish(result, keyword, fluency, completeness)
	result.Feedback = levelFeedback(result.Level)
	result.Tips = tips(result, fluency, completeness)
	return result
}

// Fallback builds the fixed minimal-credit result used when the transcript
// could not be obtained. The result is marked for manual review.
func (s *Scorer) Fallback(pointsPossible float64, reason domain.FailureReason) *domain.SpeakingScoreResult {
	if pointsPossible <= 0 {
		pointsPossible = s.cfg.DefaultPoints
	}
	ratio := util.Clamp(s.cfg.FallbackCreditRatio, 0, 1)
	return &domain.SpeakingScoreResult{
		TotalPoints:    util.Round(pointsPossible*ratio, 2),
		MaxPoints:      pointsPossible,
		Percentage:     util.Round(ratio*100, 1),
		Level:          levelFor(ratio * 100),
		Matched:        []string{},
		Missing:        []string{},
		Partial:        []domain.PartialKeywordMatch{},
		PolitePhrases:  []string{},
		Feedback:       "Technical issue with speech analysis. Manual review required.",
		Tips:           []string{},
		Degraded:       true,
		NeedsReview:    true,
		FailureReason:  reason,
		LexiconVersion: s.lex.Version(),
	}
}

func (s *Scorer) finish(result *domain.SpeakingScoreResult, keyword, fluency, completeness float64) {
	w := s.cfg.Weights
	composite := util.Clamp(w.Keyword*keyword+w.Fluency*fluency+w.Completeness*completeness, 0, 1)
	points := result.MaxPoints

	result.Keyword.Score = util.Round(points*w.Keyword*keyword, 2)
	result.Fluency.Score = util.Round(points*w.Fluency*fluency, 2)
	result.Completeness.Score = util.Round(points*w.Completeness*completeness, 2)
	result.TotalPoints = util.Clamp(util.Round(points*composite, 2), 0, points)
	result.Percentage = util.Round(composite*100, 1)
	result.Level = levelFor(composite * 100)
}

func levelFor(percentage float64) domain.SpeakingLevel {
	switch {
	case percentage >= 90:
		return domain.SpeakingExcellent
	case percentage >= 70:
		return domain.SpeakingGood
	case percentage >= 50:
		return domain.SpeakingSatisfactory
	case percentage >= 30:
		return domain.SpeakingNeedsImprovement
	default:
		return domain.SpeakingPoor
	}
}

func isAbsent(transcript string) bool {
	return transcript == "" || strings.HasPrefix(transcript, "[")
}
