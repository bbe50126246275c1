package speaking

import (
	"strings"

	"proficiency-scoring/internal/domain"
)

const (
	slowWordsPerMinute = 80
	fastWordsPerMinute = 200
	fillerTipRatio     = 0.1
	weakSubScore       = 0.6
)

func levelFeedback(level domain.SpeakingLevel) string {
	switch level {
	case domain.SpeakingExcellent:
		return "Excellent response! You demonstrated strong communication skills."
	case domain.SpeakingGood:
		return "Good response. You communicated the main points effectively."
	case domain.SpeakingSatisfactory:
		return "Satisfactory response. Some key points were addressed."
	case domain.SpeakingNeedsImprovement:
		return "Your response needs improvement. Try to address the situation more completely."
	default:
		return "Your response did not adequately address the scenario."
	}
}

// tips returns improvement hints for missing keywords and for weak fluency
// or completeness.
func tips(result *domain.SpeakingScoreResult, fluency, completeness float64) []string {
	out := []string{}

	switch n := len(result.Missing); {
	case n > 0 && n <= 2:
		out = append(out, "Try to include: "+strings.Join(result.Missing, ", "))
	case n > 2:
		out = append(out, "Include more key terms related to the scenario")
	}

	if fluency < weakSubScore {
		switch {
		case result.WordsPerMinute < slowWordsPerMinute:
			out = append(out, "Try to speak a bit faster and more confidently")
		case result.WordsPerMinute > fastWordsPerMinute:
			out = append(out, "Slow down a little so every word is clear")
		}
		if result.FillerRatio > fillerTipRatio {
			out = append(out, "Reduce filler words like 'um' and 'uh'")
		}
	}

	if completeness < weakSubScore {
		if result.SentenceCount < 2 {
			out = append(out, "Provide a more complete response with several sentences")
		}
		if len(result.PolitePhrases) == 0 {
			out = append(out, "Use polite phrases such as 'please', 'certainly' or 'I apologize'")
		}
	}
	return out
}
