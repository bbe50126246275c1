package speaking

import (
	"math"
	"regexp"
	"strings"

	"proficiency-scoring/internal/domain"
	"proficiency-scoring/internal/util"
)

var (
	sentenceSplit = regexp.MustCompile(`[.!?]+`)
	terminalMark  = regexp.MustCompile(`[.!?]`)
)

const (
	maxFillerPenalty = 0.3
	minFluency       = 0.2
)

// scoreFluency combines the speaking rate band with a filler-word penalty.
func (s *Scorer) scoreFluency(words []string, durationSeconds float64, result *domain.SpeakingScoreResult) float64 {
	n := len(words)
	if n == 0 {
		return minFluency
	}

	wpm := s.cfg.DefaultWordsPerMinute
	if durationSeconds > 0 {
		wpm = float64(n) / durationSeconds * 60
	}

	fillers := 0
	for _, w := range words {
		if s.lex.IsFiller(w) {
			fillers++
		}
	}
	for _, phrase := range s.lex.FillerPhrases() {
		fillers += countSequence(words, strings.Fields(phrase))
	}
	ratio := float64(fillers) / float64(n)

	result.WordsPerMinute = util.Round(wpm, 1)
	result.FillerRatio = util.Round(ratio, 3)

	return math.Max(minFluency, rateScore(wpm)-math.Min(maxFillerPenalty, ratio))
}

// rateScore maps words per minute onto the speaking-rate bands.
func rateScore(wpm float64) float64 {
	switch {
	case wpm >= 100 && wpm <= 180:
		return 1.0
	case (wpm >= 80 && wpm < 100) || (wpm > 180 && wpm <= 200):
		return 0.8
	case (wpm >= 60 && wpm < 80) || (wpm > 200 && wpm <= 220):
		return 0.6
	default:
		return 0.4
	}
}

// scoreCompleteness weighs sentence structure at 0.6 and politeness at 0.4.
func (s *Scorer) scoreCompleteness(text string, words []string, result *domain.SpeakingScoreResult) float64 {
	sentences := s.countSentences(text, len(words))
	result.SentenceCount = sentences

	var structure float64
	switch {
	case sentences >= 3:
		structure = 1.0
	case sentences == 2:
		structure = 0.8
	case sentences == 1:
		structure = 0.5
	default:
		structure = 0.2
	}

	var found []string
	for _, phrase := range s.lex.PolitePhrases() {
		if !containsSequence(words, tokenize(phrase)) || coveredBy(found, phrase) {
			continue
		}
		found = append(found, phrase)
	}
	result.PolitePhrases = append(result.PolitePhrases, found...)
	politeness := math.Min(1.0, 0.25*float64(len(found)))

	return 0.6*structure + 0.4*politeness
}

// countSentences splits on terminal punctuation. Speech-to-text output often
// has none, in which case the count is estimated from the word count.
func (s *Scorer) countSentences(text string, wordCount int) int {
	if wordCount == 0 {
		return 0
	}
	if !terminalMark.MatchString(text) {
		per := s.cfg.WordsPerSentence
		if per <= 0 {
			return 1
		}
		return int(math.Ceil(float64(wordCount) / float64(per)))
	}
	count := 0
	for _, part := range sentenceSplit.Split(text, -1) {
		if len(tokenize(part)) > 0 {
			count++
		}
	}
	return count
}

// coveredBy reports whether phrase is part of an already counted phrase,
// so "sorry" is not counted again after "i'm sorry".
func coveredBy(found []string, phrase string) bool {
	for _, f := range found {
		if strings.Contains(" "+f+" ", " "+phrase+" ") {
			return true
		}
	}
	return false
}

func countSequence(words, seq []string) int {
	if len(seq) == 0 {
		return 0
	}
	count := 0
	for i := 0; i+len(seq) <= len(words); i++ {
		if containsSequence(words[i:i+len(seq)], seq) {
			count++
		}
	}
	return count
}
