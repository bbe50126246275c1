package speaking

import (
	"regexp"
	"strings"

	"proficiency-scoring/internal/domain"
	"proficiency-scoring/internal/util"
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}']+`)

// tokenize lower-cases s and splits it into words. Apostrophes stay inside
// words so contractions count once.
func tokenize(s string) []string {
	s = strings.ToLower(strings.ReplaceAll(s, "’", "'"))
	raw := wordPattern.FindAllString(s, -1)
	words := raw[:0]
	for _, w := range raw {
		if w = strings.Trim(w, "'"); w != "" {
			words = append(words, w)
		}
	}
	return words
}

// containsSequence reports whether seq occurs as consecutive words.
func containsSequence(words, seq []string) bool {
	if len(seq) == 0 || len(seq) > len(words) {
		return false
	}
	for i := 0; i+len(seq) <= len(words); i++ {
		match := true
		for j := range seq {
			if words[i+j] != seq[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func containsAll(words, tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	for _, t := range tokens {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}

// scoreKeywords credits each expected keyword by the best tier it reaches and
// returns the coverage in [0,1]. A question without expected keywords is
// fully covered by any transcript.
func (s *Scorer) scoreKeywords(words, keywords []string, result *domain.SpeakingScoreResult) float64 {
	if len(keywords) == 0 {
		return 1
	}

	var total float64
	for _, kw := range keywords {
		kwTokens := tokenize(kw)
		if len(kwTokens) == 0 {
			result.Missing = append(result.Missing, kw)
			continue
		}

		if containsSequence(words, kwTokens) || containsAll(words, kwTokens) {
			result.Matched = append(result.Matched, kw)
			total += 1.0
			continue
		}

		if syn, ok := s.findSynonym(words, kw); ok {
			credit := s.creditFor(s.cfg.SynonymSimilarity)
			result.Partial = append(result.Partial, domain.PartialKeywordMatch{
				Expected:   kw,
				Found:      syn,
				Kind:       domain.KeywordSynonym,
				Similarity: s.cfg.SynonymSimilarity,
				Credit:     credit,
			})
			total += credit
			continue
		}

		found, sim := bestFuzzy(words, kwTokens)
		if credit := s.creditFor(sim); credit > 0 {
			result.Partial = append(result.Partial, domain.PartialKeywordMatch{
				Expected:   kw,
				Found:      found,
				Kind:       domain.KeywordFuzzy,
				Similarity: util.Round(sim, 2),
				Credit:     credit,
			})
			total += credit
			continue
		}
		result.Missing = append(result.Missing, kw)
	}
	return util.Clamp(total/float64(len(keywords)), 0, 1)
}

func (s *Scorer) creditFor(similarity float64) float64 {
	switch {
	case similarity >= s.cfg.StrongSimilarity:
		return s.cfg.StrongCredit
	case similarity >= s.cfg.WeakSimilarity:
		return s.cfg.WeakCredit
	default:
		return 0
	}
}

func (s *Scorer) findSynonym(words []string, keyword string) (string, bool) {
	for _, syn := range s.lex.SynonymsOf(keyword) {
		if containsSequence(words, tokenize(syn)) {
			return syn, true
		}
	}
	return "", false
}

// bestFuzzy returns the closest transcript form of a keyword. Multi-word
// keywords average the best similarity of each of their words.
func bestFuzzy(words, kwTokens []string) (string, float64) {
	var (
		sum   float64
		forms []string
	)
	for _, tok := range kwTokens {
		bestWord, best := "", 0.0
		for _, w := range words {
			if sim := similarity(tok, w); sim > best {
				bestWord, best = w, sim
			}
		}
		sum += best
		if bestWord != "" {
			forms = append(forms, bestWord)
		}
	}
	return strings.Join(forms, " "), sum / float64(len(kwTokens))
}

// similarity compares a keyword word with a transcript word. Containment
// scores by length ratio; otherwise a shared prefix of at least three
// characters scores by prefix length. Words shorter than three characters
// only match exactly.
func similarity(keyword, word string) float64 {
	if keyword == word {
		return 1
	}
	if len(keyword) < 3 || len(word) < 3 {
		return 0
	}
	if strings.Contains(keyword, word) || strings.Contains(word, keyword) {
		return float64(min(len(keyword), len(word))) / float64(max(len(keyword), len(word)))
	}
	if len(keyword) > 3 && len(word) > 3 && keyword[:3] == word[:3] {
		prefix := 0
		for prefix < len(keyword) && prefix < len(word) && keyword[prefix] == word[prefix] {
			prefix++
		}
		return float64(prefix) / float64(max(len(keyword), len(word)))
	}
	return 0
}
