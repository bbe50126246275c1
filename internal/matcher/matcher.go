package matcher

import (
	"fmt"
	"strings"

	"proficiency-scoring/internal/domain"
)

// DefaultCategoryOverlap is the share of expected terms a list answer must contain.
const DefaultCategoryOverlap = 0.75

// Config tunes the matcher heuristics.
type Config struct {
	CategoryOverlapThreshold float64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{CategoryOverlapThreshold: DefaultCategoryOverlap}
}

// Matcher decides whether a non-spoken answer is correct. It holds no
// mutable state and may be shared between goroutines.
type Matcher struct {
	cfg Config
}

// New creates a Matcher. A non-positive threshold falls back to the default.
func New(cfg Config) *Matcher {
	if cfg.CategoryOverlapThreshold <= 0 || cfg.CategoryOverlapThreshold > 1 {
		cfg.CategoryOverlapThreshold = DefaultCategoryOverlap
	}
	return &Matcher{cfg: cfg}
}

// Match scores submitted against the question's answer key. Only caller
// misuse is reported as an error: a nil question, a spoken-response key, or a
// key type the matcher does not know.
func (m *Matcher) Match(q *domain.Question, submitted string) (*domain.MatchResult, error) {
	if q == nil || q.Key == nil {
		return nil, domain.NewInvalidInputError("question and answer key are required")
	}

	result := &domain.MatchResult{
		QuestionID:     q.ID,
		PointsPossible: q.Points,
	}

	var (
		correct bool
		rule    domain.MatchRule
		form    string
	)
	switch key := q.Key.(type) {
	case domain.ExactKey:
		correct, rule = matchExact(key.Answer, submitted)
	case domain.FuzzyKey:
		correct, rule, form = matchFuzzy(key.Answer, submitted)
	case domain.CategoryKey:
		correct, rule = m.matchCategory(key, submitted)
	case domain.SpeechKey:
		return nil, domain.NewError(domain.CodeUnknownStrategy,
			fmt.Sprintf("question %s expects a spoken response", q.ID), nil)
	default:
		return nil, domain.NewUnknownStrategyError(fmt.Sprintf("%T", key))
	}

	result.Correct = correct
	result.Rule = rule
	result.MatchedForm = form
	if correct {
		result.PointsEarned = q.Points
	}
	return result, nil
}

func matchExact(expected, submitted string) (bool, domain.MatchRule) {
	exp := strings.ToLower(strings.TrimSpace(expected))
	sub := strings.ToLower(strings.TrimSpace(submitted))
	switch {
	case sub == "":
		return false, domain.RuleEmptyAnswer
	case exp == "":
		return false, domain.RuleNoExpected
	case exp == sub:
		return true, domain.RuleExact
	default:
		return false, domain.RuleNoMatch
	}
}

// matchFuzzy compares fill-in-the-blank answers. Normalized text equality wins
// first, then time equivalence, then number-word equivalence. There is no
// substring fallback.
func matchFuzzy(expected, submitted string) (bool, domain.MatchRule, string) {
	exp := normalize(expected)
	sub := normalize(submitted)
	switch {
	case sub == "":
		return false, domain.RuleEmptyAnswer, ""
	case exp == "":
		return false, domain.RuleNoExpected, ""
	case exp == sub:
		return true, domain.RuleNormalized, sub
	}

	expTime, expOK := parseClock(exp)
	subTime, subOK := parseClock(sub)
	if expOK && subOK {
		if expTime == subTime {
			return true, domain.RuleTime, subTime.String()
		}
		return false, domain.RuleNoMatch, ""
	}

	expNum, expOK := parseNumber(exp)
	subNum, subOK := parseNumber(sub)
	if expOK && subOK && expNum == subNum {
		return true, domain.RuleNumber, fmt.Sprintf("%d", subNum)
	}
	return false, domain.RuleNoMatch, ""
}

// normalize lower-cases, strips periods and commas and collapses whitespace.
func normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer(".", "", ",", "").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
