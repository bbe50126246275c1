package integrity

import (
	"fmt"
	"strings"

	"proficiency-scoring/internal/domain"
)

// Config holds the risk weights, caps and level thresholds.
type Config struct {
	IPChangeWeight        int
	UserAgentChangeWeight int

	TabSwitchWeight int
	TabSwitchCap    int
	CopyPasteWeight int
	CopyPasteCap    int
	EventWeight     int
	EventCap        int

	// warnings shown to the examinee once a counter exceeds these
	TabSwitchWarnAfter int
	CopyPasteWarnAfter int

	CriticalThreshold int
	HighThreshold     int
	MediumThreshold   int
	ReviewThreshold   int
}

// DefaultConfig returns the production weights.
func DefaultConfig() Config {
	return Config{
		IPChangeWeight:        40,
		UserAgentChangeWeight: 30,
		TabSwitchWeight:       5,
		TabSwitchCap:          20,
		CopyPasteWeight:       3,
		CopyPasteCap:          15,
		EventWeight:           10,
		EventCap:              20,
		TabSwitchWarnAfter:    3,
		CopyPasteWarnAfter:    5,
		CriticalThreshold:     70,
		HighThreshold:         40,
		MediumThreshold:       20,
		ReviewThreshold:       40,
	}
}

// displayCap bounds the score shown to reviewers.
const displayCap = 100

// Scorer turns session signals into an advisory risk score.
type Scorer struct {
	cfg Config
}

// NewScorer creates a Scorer.
func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score sums the contribution of each signal. The raw score is not capped;
// DisplayScore is.
func (s *Scorer) Score(sig domain.SessionSignals) *domain.IntegrityScore {
	cfg := s.cfg
	result := &domain.IntegrityScore{
		Factors:  []string{},
		Warnings: []string{},
	}

	if changed(sig.InitialIP, sig.CurrentIP) {
		result.Score += cfg.IPChangeWeight
		result.Factors = append(result.Factors, "IP address changed")
	}
	if changed(sig.InitialUserAgent, sig.CurrentUserAgent) {
		result.Score += cfg.UserAgentChangeWeight
		result.Factors = append(result.Factors, "User agent changed")
	}
	if sig.TabSwitches > 0 {
		result.Score += capped(sig.TabSwitches*cfg.TabSwitchWeight, cfg.TabSwitchCap)
		result.Factors = append(result.Factors, fmt.Sprintf("Tab switches: %d", sig.TabSwitches))
	}
	if sig.CopyPasteAttempts > 0 {
		result.Score += capped(sig.CopyPasteAttempts*cfg.CopyPasteWeight, cfg.CopyPasteCap)
		result.Factors = append(result.Factors, fmt.Sprintf("Copy/paste attempts: %d", sig.CopyPasteAttempts))
	}
	if events := distinct(sig.SuspiciousEvents); len(events) > 0 {
		result.Score += capped(len(events)*cfg.EventWeight, cfg.EventCap)
		result.Factors = append(result.Factors, fmt.Sprintf("Suspicious events: %s", strings.Join(events, ", ")))
	}
	if sig.ManualFlag != "" {
		result.Factors = append(result.Factors, "Flagged by reviewer: "+sig.ManualFlag)
	}

	result.Warnings = s.Warnings(sig)
	result.DisplayScore = capped(result.Score, displayCap)
	result.Level = s.levelFor(result.Score)
	result.RequiresReview = result.Score >= cfg.ReviewThreshold || sig.ManualFlag != ""
	return result
}

// Warnings returns the notices shown to the examinee for excessive tab
// switching or copy/paste use.
func (s *Scorer) Warnings(sig domain.SessionSignals) []string {
	warnings := []string{}
	if sig.TabSwitches > s.cfg.TabSwitchWarnAfter {
		warnings = append(warnings, "Please stay on the test page. Leaving the page is recorded.")
	}
	if sig.CopyPasteAttempts > s.cfg.CopyPasteWarnAfter {
		warnings = append(warnings, "Copying and pasting is not allowed during the test.")
	}
	return warnings
}

func (s *Scorer) levelFor(score int) domain.IntegrityLevel {
	switch {
	case score >= s.cfg.CriticalThreshold:
		return domain.IntegrityCritical
	case score >= s.cfg.HighThreshold:
		return domain.IntegrityHigh
	case score >= s.cfg.MediumThreshold:
		return domain.IntegrityMedium
	case score > 0:
		return domain.IntegrityLow
	default:
		return domain.IntegrityClean
	}
}

// changed treats a missing baseline or current value as unchanged.
func changed(initial, current string) bool {
	initial, current = strings.TrimSpace(initial), strings.TrimSpace(current)
	return initial != "" && current != "" && initial != current
}

func capped(v, limit int) int {
	if v > limit {
		return limit
	}
	return v
}

func distinct(events []string) []string {
	seen := make(map[string]struct{}, len(events))
	out := make([]string, 0, len(events))
	for _, e := range events {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}
