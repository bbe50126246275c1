package matcher

import (
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"proficiency-scoring/internal/domain"
)

// categoryAnswer is a submitted category answer in either of its two forms.
type categoryAnswer struct {
	mapping map[string][]string
	terms   []string
}

// parseCategoryAnswer reads a JSON object as the mapping form and anything
// else as a comma separated list of terms.
func parseCategoryAnswer(raw string) categoryAnswer {
	raw = strings.TrimSpace(raw)
	if gjson.Valid(raw) {
		parsed := gjson.Parse(raw)
		if parsed.IsObject() {
			mapping := make(map[string][]string)
			parsed.ForEach(func(key, value gjson.Result) bool {
				var terms []string
				if value.IsArray() {
					for _, v := range value.Array() {
						terms = append(terms, v.String())
					}
				} else {
					terms = splitTerms(value.String())
				}
				mapping[key.String()] = terms
				return true
			})
			return categoryAnswer{mapping: mapping}
		}
		if parsed.IsArray() {
			var terms []string
			for _, v := range parsed.Array() {
				terms = append(terms, v.String())
			}
			return categoryAnswer{terms: terms}
		}
	}
	return categoryAnswer{terms: splitTerms(raw)}
}

func (m *Matcher) matchCategory(key domain.CategoryKey, submitted string) (bool, domain.MatchRule) {
	if strings.TrimSpace(submitted) == "" {
		return false, domain.RuleEmptyAnswer
	}
	if len(key.Mapping) == 0 && len(termSet(key.Terms)) == 0 {
		return false, domain.RuleNoExpected
	}

	answer := parseCategoryAnswer(submitted)
	if len(key.Mapping) > 0 && answer.mapping != nil {
		if mappingsEqual(key.Mapping, answer.mapping) {
			return true, domain.RuleCategoryMapping
		}
		return false, domain.RuleNoMatch
	}

	expected := termSet(key.Terms)
	if len(key.Mapping) > 0 {
		expected = termSet(flatten(key.Mapping))
	}
	if len(expected) == 0 {
		return false, domain.RuleNoExpected
	}
	got := answer.terms
	if answer.mapping != nil {
		got = flatten(answer.mapping)
	}

	hits := 0
	for term := range termSet(got) {
		if _, ok := expected[term]; ok {
			hits++
		}
	}
	if float64(hits)/float64(len(expected)) >= m.cfg.CategoryOverlapThreshold {
		return true, domain.RuleCategoryOverlap
	}
	return false, domain.RuleNoMatch
}

// mappingsEqual compares category mappings ignoring case, surrounding
// whitespace and the order of terms inside a category.
func mappingsEqual(a, b map[string][]string) bool {
	na, nb := normalizeMapping(a), normalizeMapping(b)
	if len(na) != len(nb) {
		return false
	}
	for category, termsA := range na {
		termsB, ok := nb[category]
		if !ok || len(termsA) != len(termsB) {
			return false
		}
		for i := range termsA {
			if termsA[i] != termsB[i] {
				return false
			}
		}
	}
	return true
}

func normalizeMapping(m map[string][]string) map[string][]string {
	out := make(map[string][]string, len(m))
	for category, terms := range m {
		set := termSet(terms)
		list := make([]string, 0, len(set))
		for t := range set {
			list = append(list, t)
		}
		sort.Strings(list)
		out[normalizeTerm(category)] = list
	}
	return out
}

func flatten(m map[string][]string) []string {
	var out []string
	for _, terms := range m {
		out = append(out, terms...)
	}
	return out
}

func splitTerms(s string) []string {
	return strings.Split(s, ",")
}

func termSet(terms []string) map[string]struct{} {
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		if n := normalizeTerm(t); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

func normalizeTerm(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
