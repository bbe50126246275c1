package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proficiency-scoring/internal/domain"
)

func question(key domain.AnswerKey) *domain.Question {
	return &domain.Question{ID: "q1", Module: domain.ModuleTimeNumbers, Key: key, Points: 2}
}

func TestMatch_Exact(t *testing.T) {
	m := New(DefaultConfig())

	tests := []struct {
		name      string
		expected  string
		submitted string
		correct   bool
		rule      domain.MatchRule
	}{
		{"same option", "B", "B", true, domain.RuleExact},
		{"case and whitespace", "Deck 5", "  deck 5 ", true, domain.RuleExact},
		{"different option", "B", "C", false, domain.RuleNoMatch},
		{"empty submission", "B", "   ", false, domain.RuleEmptyAnswer},
		{"empty expected", "", "B", false, domain.RuleNoExpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := m.Match(question(domain.ExactKey{Answer: tt.expected}), tt.submitted)
			require.NoError(t, err)
			assert.Equal(t, tt.correct, res.Correct)
			assert.Equal(t, tt.rule, res.Rule)
			if tt.correct {
				assert.Equal(t, 2.0, res.PointsEarned)
			} else {
				assert.Zero(t, res.PointsEarned)
			}
			assert.Equal(t, 2.0, res.PointsPossible)
		})
	}
}

func TestMatch_FuzzyTimes(t *testing.T) {
	m := New(DefaultConfig())

	tests := []struct {
		expected  string
		submitted string
		correct   bool
	}{
		{"7:00", "7:00", true},
		{"7:00", "7:00am", true},
		{"7:00", "7:00 AM", true},
		{"7:00", "7 a.m.", true},
		{"7:00", "0700", true},
		{"7:00", "7am", true},
		{"19:00", "7pm", true},
		{"7:00 pm", "1900", true},
		{"1900 hours", "7:00 p.m.", true},
		{"12:00 am", "midnight", true},
		{"12pm", "noon", true},
		{"7:30", "7:30am", true},
		{"7:00", "7", false},
		{"7:00", "7:30", false},
		{"7:00", "7:00pm", false},
		{"7:00", "8am", false},
	}

	for _, tt := range tests {
		t.Run(tt.expected+" vs "+tt.submitted, func(t *testing.T) {
			res, err := m.Match(question(domain.FuzzyKey{Answer: tt.expected}), tt.submitted)
			require.NoError(t, err)
			assert.Equal(t, tt.correct, res.Correct, "rule=%s", res.Rule)
		})
	}
}

func TestMatch_FuzzyNumbers(t *testing.T) {
	m := New(DefaultConfig())

	tests := []struct {
		expected  string
		submitted string
		correct   bool
		rule      domain.MatchRule
	}{
		{"120", "one hundred twenty", true, domain.RuleNumber},
		{"120", "one hundred and twenty", true, domain.RuleNumber},
		{"100", "a hundred", true, domain.RuleNumber},
		{"25", "twenty-five", true, domain.RuleNumber},
		{"1,500", "fifteen hundred", true, domain.RuleNumber},
		{"1500", "one thousand five hundred", true, domain.RuleNumber},
		{"$45", "forty five", true, domain.RuleNumber},
		{"zero", "0", true, domain.RuleNumber},
		{"Deck 7.", "deck 7", true, domain.RuleNormalized},
		{"90", "9", false, domain.RuleNoMatch},
		{"9", "90", false, domain.RuleNoMatch},
		{"7", "270", false, domain.RuleNoMatch},
		{"12", "one two", false, domain.RuleNoMatch},
		{"25", "five twenty", false, domain.RuleNoMatch},
		{"3", "three apples", false, domain.RuleNoMatch},
		{"3", "", false, domain.RuleEmptyAnswer},
	}

	for _, tt := range tests {
		t.Run(tt.expected+" vs "+tt.submitted, func(t *testing.T) {
			res, err := m.Match(question(domain.FuzzyKey{Answer: tt.expected}), tt.submitted)
			require.NoError(t, err)
			assert.Equal(t, tt.correct, res.Correct)
			assert.Equal(t, tt.rule, res.Rule)
		})
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"ninety", 90, true},
		{"nineteen", 19, true},
		{"two hundred thousand", 200_000, true},
		{"one million two hundred thousand", 1_200_000, true},
		{"a thousand", 1_000, true},
		{"a", 0, false},
		{"and", 0, false},
		{"thousand thousand", 0, false},
		{"ten five", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseNumber(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestMatch_Category(t *testing.T) {
	m := New(DefaultConfig())
	listKey := domain.CategoryKey{Terms: []string{"life jacket", "muster station", "lifeboat", "alarm"}}
	mapKey := domain.CategoryKey{Mapping: map[string][]string{
		"safety": {"life jacket", "lifeboat"},
		"dining": {"buffet", "menu"},
		"cabin":  {"towel"},
	}}

	t.Run("list with three of four terms passes", func(t *testing.T) {
		res, err := m.Match(question(listKey), "Life Jacket, lifeboat ,alarm")
		require.NoError(t, err)
		assert.True(t, res.Correct)
		assert.Equal(t, domain.RuleCategoryOverlap, res.Rule)
	})

	t.Run("list with two of four terms fails", func(t *testing.T) {
		res, err := m.Match(question(listKey), "life jacket, alarm")
		require.NoError(t, err)
		assert.False(t, res.Correct)
		assert.Zero(t, res.PointsEarned)
	})

	t.Run("duplicates do not inflate overlap", func(t *testing.T) {
		res, err := m.Match(question(listKey), "alarm, alarm, ALARM, lifeboat")
		require.NoError(t, err)
		assert.False(t, res.Correct)
	})

	t.Run("json array counts as list form", func(t *testing.T) {
		res, err := m.Match(question(listKey), `["life jacket","muster station","lifeboat","alarm"]`)
		require.NoError(t, err)
		assert.True(t, res.Correct)
	})

	t.Run("mapping must be exactly equal", func(t *testing.T) {
		res, err := m.Match(question(mapKey),
			`{"Safety": ["lifeboat", "life jacket"], "dining": ["menu", "buffet"], "cabin": ["towel"]}`)
		require.NoError(t, err)
		assert.True(t, res.Correct)
		assert.Equal(t, domain.RuleCategoryMapping, res.Rule)
	})

	t.Run("mapping with one misplaced term fails", func(t *testing.T) {
		res, err := m.Match(question(mapKey),
			`{"safety": ["life jacket"], "dining": ["menu", "buffet", "lifeboat"], "cabin": ["towel"]}`)
		require.NoError(t, err)
		assert.False(t, res.Correct)
	})

	t.Run("list against mapping key uses overlap", func(t *testing.T) {
		res, err := m.Match(question(mapKey), "life jacket, lifeboat, buffet, menu")
		require.NoError(t, err)
		assert.True(t, res.Correct)
		assert.Equal(t, domain.RuleCategoryOverlap, res.Rule)
	})

	t.Run("empty expected cannot be correct", func(t *testing.T) {
		res, err := m.Match(question(domain.CategoryKey{}), "anything")
		require.NoError(t, err)
		assert.False(t, res.Correct)
		assert.Equal(t, domain.RuleNoExpected, res.Rule)
	})

	t.Run("configurable threshold", func(t *testing.T) {
		strict := New(Config{CategoryOverlapThreshold: 1.0})
		res, err := strict.Match(question(listKey), "life jacket, lifeboat, alarm")
		require.NoError(t, err)
		assert.False(t, res.Correct)
	})
}

func TestMatch_Misuse(t *testing.T) {
	m := New(DefaultConfig())

	t.Run("speech key is rejected", func(t *testing.T) {
		_, err := m.Match(question(domain.SpeechKey{Keywords: []string{"sorry"}}), "sorry")
		assert.ErrorIs(t, err, domain.ErrUnknownStrategy)
	})

	t.Run("nil question", func(t *testing.T) {
		_, err := m.Match(nil, "B")
		assert.Error(t, err)
	})
}

func TestMatch_PointsNeverExceedPossible(t *testing.T) {
	m := New(DefaultConfig())
	keys := []domain.AnswerKey{
		domain.ExactKey{Answer: "A"},
		domain.FuzzyKey{Answer: "7:00"},
		domain.CategoryKey{Terms: []string{"a", "b"}},
	}
	inputs := []string{"", "A", "7am", "a, b", "zzz"}
	for _, k := range keys {
		for _, in := range inputs {
			res, err := m.Match(question(k), in)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, res.PointsEarned, 0.0)
			assert.LessOrEqual(t, res.PointsEarned, res.PointsPossible)
		}
	}
}
