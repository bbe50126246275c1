package domain

import "time"

// MatchRule names the rule that decided a match.
type MatchRule string

const (
	RuleExact           MatchRule = "exact"
	RuleNormalized      MatchRule = "normalized"
	RuleTime            MatchRule = "time"
	RuleNumber          MatchRule = "number"
	RuleCategoryMapping MatchRule = "category_mapping"
	RuleCategoryOverlap MatchRule = "category_overlap"
	RuleEmptyAnswer     MatchRule = "empty_answer"
	RuleNoExpected      MatchRule = "no_expected"
	RuleNoMatch         MatchRule = "no_match"
)

// MatchResult is the outcome of matching one non-spoken answer.
type MatchResult struct {
	QuestionID     string    `json:"question_id"`
	Correct        bool      `json:"correct"`
	PointsEarned   float64   `json:"points_earned"`
	PointsPossible float64   `json:"points_possible"`
	Rule           MatchRule `json:"rule"`
	MatchedForm    string    `json:"matched_form,omitempty"`
}

// SubmittedResponse is what an examinee sends for one question.
type SubmittedResponse struct {
	SessionID       string
	QuestionID      string
	Answer          string
	Audio           []byte
	AudioFilename   string
	Transcript      string
	DurationSeconds float64
}

// SpeakingLevel is the qualitative band of a spoken response.
type SpeakingLevel string

const (
	SpeakingExcellent        SpeakingLevel = "Excellent"
	SpeakingGood             SpeakingLevel = "Good"
	SpeakingSatisfactory     SpeakingLevel = "Satisfactory"
	SpeakingNeedsImprovement SpeakingLevel = "Needs Improvement"
	SpeakingPoor             SpeakingLevel = "Poor"
)

// KeywordMatchKind tells how an expected keyword was found in a transcript.
type KeywordMatchKind string

const (
	KeywordExact   KeywordMatchKind = "exact"
	KeywordSynonym KeywordMatchKind = "synonym"
	KeywordFuzzy   KeywordMatchKind = "fuzzy"
)

// PartialKeywordMatch records a keyword credited through a synonym or a fuzzy form.
type PartialKeywordMatch struct {
	Expected   string           `json:"expected"`
	Found      string           `json:"found"`
	Kind       KeywordMatchKind `json:"kind"`
	Similarity float64          `json:"similarity"`
	Credit     float64          `json:"credit"`
}

// SubScore is one weighted component of a composite score.
type SubScore struct {
	Score float64 `json:"score"`
	Max   float64 `json:"max"`
}

// SpeakingScoreResult is the composite score of an open spoken response.
type SpeakingScoreResult struct {
	TotalPoints    float64               `json:"total_points"`
	MaxPoints      float64               `json:"max_points"`
	Percentage     float64               `json:"percentage"`
	Level          SpeakingLevel         `json:"level"`
	Keyword        SubScore              `json:"keyword_score"`
	Fluency        SubScore              `json:"fluency_score"`
	Completeness   SubScore              `json:"completeness_score"`
	Matched        []string              `json:"matched_keywords"`
	Missing        []string              `json:"missing_keywords"`
	Partial        []PartialKeywordMatch `json:"partial_matches"`
	WordsPerMinute float64               `json:"words_per_minute"`
	FillerRatio    float64               `json:"filler_ratio"`
	SentenceCount  int                   `json:"sentence_count"`
	PolitePhrases  []string              `json:"polite_phrases"`
	Feedback       string                `json:"feedback"`
	Tips           []string              `json:"tips"`
	Transcript     string                `json:"transcript"`
	Degraded       bool                  `json:"degraded"`
	NeedsReview    bool                  `json:"needs_review"`
	FailureReason  FailureReason         `json:"failure_reason,omitempty"`
	LexiconVersion string                `json:"lexicon_version"`
}

// QualityLevel is the qualitative band of an audio recording.
type QualityLevel string

const (
	QualityExcellent  QualityLevel = "Excellent"
	QualityGood       QualityLevel = "Good"
	QualityAcceptable QualityLevel = "Acceptable"
	QualityPoor       QualityLevel = "Poor"
	QualityUnusable   QualityLevel = "Unusable"
)

// AudioQualityReport describes whether a recording is fit to be scored.
type AudioQualityReport struct {
	Level           QualityLevel `json:"quality_level"`
	OverallScore    float64      `json:"overall_score"`
	DurationScore   float64      `json:"duration_score"`
	VolumeScore     float64      `json:"volume_score"`
	ClippingScore   float64      `json:"clipping_score"`
	NoiseScore      float64      `json:"noise_score"`
	SpeechScore     float64      `json:"speech_score"`
	DurationSeconds float64      `json:"duration_seconds"`
	AverageDB       float64      `json:"average_db"`
	PeakDB          float64      `json:"peak_db"`
	ClippingPercent float64      `json:"clipping_percentage"`
	NoiseFloorDB    float64      `json:"noise_floor_db"`
	SpeechDetected  bool         `json:"speech_detected"`
	SpeechRatio     float64      `json:"speech_ratio"`
	Issues          []string     `json:"issues"`
	Recommendations []string     `json:"recommendations"`
	AnalysisError   string       `json:"analysis_error,omitempty"`
}

// Usable reports whether the recording may go on to scoring.
func (r *AudioQualityReport) Usable() bool {
	return r != nil && r.Level != QualityUnusable
}

// Summary returns a single line of user-facing feedback for the report.
func (r *AudioQualityReport) Summary() string {
	if r == nil {
		return ""
	}
	switch r.Level {
	case QualityExcellent:
		return "Excellent audio quality. Your recording is clear and easy to understand."
	case QualityGood:
		return "Good audio quality. Your recording should be evaluated accurately."
	case QualityAcceptable:
		if len(r.Issues) > 0 {
			return "Acceptable audio quality. Note: " + r.Issues[0]
		}
		return "Acceptable audio quality."
	case QualityPoor:
		if len(r.Recommendations) > 0 {
			return "Poor audio quality may affect your score. " + r.Recommendations[0]
		}
		return "Poor audio quality may affect your score."
	default:
		return "Recording could not be evaluated. Please record again in a quiet place."
	}
}

// IntegrityLevel is the risk band of a session.
type IntegrityLevel string

const (
	IntegrityClean    IntegrityLevel = "clean"
	IntegrityLow      IntegrityLevel = "low"
	IntegrityMedium   IntegrityLevel = "medium"
	IntegrityHigh     IntegrityLevel = "high"
	IntegrityCritical IntegrityLevel = "critical"
)

// SessionSignals are the integrity observations collected during a session.
type SessionSignals struct {
	SessionID         string    `json:"session_id"`
	InitialIP         string    `json:"initial_ip"`
	CurrentIP         string    `json:"current_ip"`
	InitialUserAgent  string    `json:"initial_user_agent"`
	CurrentUserAgent  string    `json:"current_user_agent"`
	TabSwitches       int       `json:"tab_switches"`
	CopyPasteAttempts int       `json:"copy_paste_attempts"`
	SuspiciousEvents  []string  `json:"suspicious_events"`
	ManualFlag        string    `json:"manual_flag,omitempty"`
	FlaggedAt         time.Time `json:"flagged_at,omitempty"`
}

// IntegrityScore is the advisory tamper-risk assessment of a session.
type IntegrityScore struct {
	Score          int            `json:"score"`
	DisplayScore   int            `json:"display_score"`
	Level          IntegrityLevel `json:"level"`
	Factors        []string       `json:"factors"`
	Warnings       []string       `json:"warnings"`
	RequiresReview bool           `json:"requires_review"`
}

// ScoredResponse is the persisted outcome of one submission.
type ScoredResponse struct {
	ID              string
	SessionID       string
	QuestionID      string
	Module          Module
	Strategy        Strategy
	SubmittedAnswer string
	Correct         bool
	PointsEarned    float64
	PointsPossible  float64
	Rule            string
	Degraded        bool
	NeedsReview     bool
	Detail          []byte
	CreatedAt       time.Time
}

// ModuleScore is the earned and possible points of one module.
type ModuleScore struct {
	Module   Module  `json:"module"`
	Earned   float64 `json:"earned"`
	Possible float64 `json:"possible"`
}

// Percentage returns the earned share in percent, zero when nothing was possible.
func (m ModuleScore) Percentage() float64 {
	if m.Possible <= 0 {
		return 0
	}
	return m.Earned / m.Possible * 100
}

// AssessmentFeedback is the human-readable part of a session result.
type AssessmentFeedback struct {
	Summary         string   `json:"summary"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	Recommendations []string `json:"recommendations"`
}

// AssessmentResult is the final, immutable result of a session.
type AssessmentResult struct {
	SessionID        string                 `json:"session_id"`
	ModuleScores     map[Module]ModuleScore `json:"module_scores"`
	TotalScore       float64                `json:"total_score"`
	TotalPossible    float64                `json:"total_possible"`
	SafetyCorrect    int                    `json:"safety_correct"`
	SafetyTotal      int                    `json:"safety_total"`
	SafetyPassRate   float64                `json:"safety_pass_rate"`
	TotalPassed      bool                   `json:"total_passed"`
	SafetyPassed     bool                   `json:"safety_passed"`
	SpeakingPassed   bool                   `json:"speaking_passed"`
	Passed           bool                   `json:"passed"`
	FlaggedForReview bool                   `json:"flagged_for_review"`
	Integrity        *IntegrityScore        `json:"integrity,omitempty"`
	Feedback         AssessmentFeedback     `json:"feedback"`
	CompletedAt      time.Time              `json:"completed_at"`
}

// Session is the scoring view of an assessment session.
type Session struct {
	ID          string
	ExamineeID  string
	Status      string
	QuestionIDs []string
	StartedAt   time.Time
	CompletedAt *time.Time
}

const (
	SessionStatusInProgress = "in_progress"
	SessionStatusCompleted  = "completed"
)
