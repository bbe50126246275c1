// Package aggregator turns per-question results into the final session result.
package aggregator

import (
	"fmt"

	"proficiency-scoring/internal/domain"
	"proficiency-scoring/internal/util"
)

// Config holds the pass thresholds and feedback bands.
type Config struct {
	TotalPassScore   float64
	SafetyPassRate   float64
	SpeakingMinScore float64

	// ModuleFloor is the score below which a module gets a recommendation.
	ModuleFloor float64

	StrengthPercent float64
	WeaknessPercent float64
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		TotalPassScore:   70,
		SafetyPassRate:   0.8,
		SpeakingMinScore: 12,
		ModuleFloor:      12,
		StrengthPercent:  80,
		WeaknessPercent:  60,
	}
}

var moduleLabels = map[domain.Module]string{
	domain.ModuleListening:   "Listening",
	domain.ModuleTimeNumbers: "Time & Numbers",
	domain.ModuleGrammar:     "Grammar",
	domain.ModuleVocabulary:  "Vocabulary",
	domain.ModuleReading:     "Reading",
	domain.ModuleSpeaking:    "Speaking",
}

var moduleAdvice = map[domain.Module]string{
	domain.ModuleListening:   "Focus on improving listening skills with maritime and hospitality audio materials",
	domain.ModuleTimeNumbers: "Practice understanding times, prices and quantities in guest requests",
	domain.ModuleGrammar:     "Review service industry grammar patterns and polite expressions",
	domain.ModuleVocabulary:  "Study work-related vocabulary grouped by department",
	domain.ModuleReading:     "Read notices, menus and safety signs to build reading comprehension",
	domain.ModuleSpeaking:    "Practice speaking in work-related scenarios with clear pronunciation",
}

// Aggregator is the single pass/fail decision point. It holds no state.
type Aggregator struct {
	cfg Config
}

// New creates an Aggregator.
func New(cfg Config) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// Aggregate sums the session's responses per module and applies the three
// pass conditions. Questions without a response earn zero. The integrity
// score only affects FlaggedForReview. CompletedAt is left for the caller.
func (a *Aggregator) Aggregate(
	sessionID string,
	questions []*domain.Question,
	responses []*domain.ScoredResponse,
	integrity *domain.IntegrityScore,
) (*domain.AssessmentResult, error) {
	byQuestion := make(map[string]*domain.Question, len(questions))
	for _, q := range questions {
		if q == nil {
			continue
		}
		byQuestion[q.ID] = q
	}

	answered := make(map[string]*domain.ScoredResponse, len(responses))
	flagged := false
	for _, r := range responses {
		if r == nil {
			continue
		}
		if _, ok := byQuestion[r.QuestionID]; !ok {
			return nil, domain.NewInvalidInputError(
				fmt.Sprintf("response for question %s does not belong to session %s", r.QuestionID, sessionID))
		}
		if _, dup := answered[r.QuestionID]; dup {
			return nil, domain.NewDuplicateSubmissionError(sessionID, r.QuestionID)
		}
		answered[r.QuestionID] = r
		if r.Degraded || r.NeedsReview {
			flagged = true
		}
	}

	result := &domain.AssessmentResult{
		SessionID:    sessionID,
		ModuleScores: make(map[domain.Module]domain.ModuleScore, len(domain.AllModules)),
		Integrity:    integrity,
	}
	for _, m := range domain.AllModules {
		result.ModuleScores[m] = domain.ModuleScore{Module: m}
	}

	for _, q := range questions {
		if q == nil {
			continue
		}
		ms := result.ModuleScores[q.Module]
		ms.Module = q.Module
		ms.Possible += q.Points

		r, ok := answered[q.ID]
		if ok {
			ms.Earned += util.Clamp(r.PointsEarned, 0, q.Points)
		}
		if q.SafetyCritical {
			result.SafetyTotal++
			if ok && r.Correct {
				result.SafetyCorrect++
			}
		}
		result.ModuleScores[q.Module] = ms
	}

	for m, ms := range result.ModuleScores {
		ms.Earned = util.Round(util.Clamp(ms.Earned, 0, ms.Possible), 2)
		ms.Possible = util.Round(ms.Possible, 2)
		result.ModuleScores[m] = ms
		result.TotalScore += ms.Earned
		result.TotalPossible += ms.Possible
	}
	result.TotalScore = util.Round(result.TotalScore, 2)
	result.TotalPossible = util.Round(result.TotalPossible, 2)

	result.SafetyPassRate = 1.0
	if result.SafetyTotal > 0 {
		result.SafetyPassRate = util.Round(float64(result.SafetyCorrect)/float64(result.SafetyTotal), 4)
	}

	result.TotalPassed = result.TotalScore >= a.cfg.TotalPassScore
	result.SafetyPassed = result.SafetyPassRate >= a.cfg.SafetyPassRate
	result.SpeakingPassed = result.ModuleScores[domain.ModuleSpeaking].Earned >= a.cfg.SpeakingMinScore
	result.Passed = result.TotalPassed && result.SafetyPassed && result.SpeakingPassed

	result.FlaggedForReview = flagged || (integrity != nil && integrity.RequiresReview)
	result.Feedback = a.feedback(result)
	return result, nil
}

func (a *Aggregator) feedback(r *domain.AssessmentResult) domain.AssessmentFeedback {
	fb := domain.AssessmentFeedback{
		Strengths:       []string{},
		Weaknesses:      []string{},
		Recommendations: []string{},
	}

	outcome := "FAIL"
	if r.Passed {
		outcome = "PASS"
	}
	fb.Summary = fmt.Sprintf("%s: %.1f of %.1f points", outcome, r.TotalScore, r.TotalPossible)

	for _, m := range domain.AllModules {
		ms := r.ModuleScores[m]
		if ms.Possible <= 0 {
			continue
		}
		pct := ms.Percentage()
		switch {
		case pct >= a.cfg.StrengthPercent:
			fb.Strengths = append(fb.Strengths, "Strong performance in "+moduleLabels[m])
		case pct < a.cfg.WeaknessPercent:
			fb.Weaknesses = append(fb.Weaknesses, "Needs improvement in "+moduleLabels[m])
		}
		if ms.Earned < a.cfg.ModuleFloor {
			fb.Recommendations = append(fb.Recommendations, moduleAdvice[m])
		}
	}

	if !r.SpeakingPassed {
		fb.Recommendations = append(fb.Recommendations,
			"Focus on improving speaking skills through practice scenarios")
	}
	if !r.SafetyPassed {
		fb.Recommendations = append(fb.Recommendations,
			"Review safety procedures and emergency protocols")
	}
	return fb
}
