package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Module is one scored section of an assessment.
type Module string

const (
	ModuleListening   Module = "listening"
	ModuleTimeNumbers Module = "time_numbers"
	ModuleGrammar     Module = "grammar"
	ModuleVocabulary  Module = "vocabulary"
	ModuleReading     Module = "reading"
	ModuleSpeaking    Module = "speaking"
)

// AllModules lists every module in reporting order.
var AllModules = []Module{
	ModuleListening,
	ModuleTimeNumbers,
	ModuleGrammar,
	ModuleVocabulary,
	ModuleReading,
	ModuleSpeaking,
}

// ParseModule converts a stored module name into a Module.
func ParseModule(s string) (Module, error) {
	m := Module(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllModules {
		if m == known {
			return m, nil
		}
	}
	return "", NewInvalidInputError(fmt.Sprintf("unknown module: %q", s))
}

// Strategy names how an answer key is compared against a submission.
type Strategy string

const (
	StrategyExact         Strategy = "exact"
	StrategyFuzzyFill     Strategy = "fuzzy_fill"
	StrategyCategoryMatch Strategy = "category_match"
	StrategyOpenSpeech    Strategy = "open_speech"
)

// AnswerKey is the expected answer of a question. The set of implementations
// is closed: ExactKey, FuzzyKey, CategoryKey and SpeechKey.
type AnswerKey interface {
	Strategy() Strategy
	answerKey()
}

// ExactKey is an option key or short literal compared case-insensitively.
type ExactKey struct {
	Answer string `json:"answer"`
}

// FuzzyKey is a fill-in-the-blank answer that tolerates time and number spellings.
type FuzzyKey struct {
	Answer string `json:"answer"`
}

// CategoryKey holds either a category mapping or a flat list of terms.
type CategoryKey struct {
	Mapping map[string][]string `json:"mapping,omitempty"`
	Terms   []string            `json:"terms,omitempty"`
}

// SpeechKey is the expected keyword set for an open spoken response.
type SpeechKey struct {
	Keywords []string `json:"keywords"`
	Context  string   `json:"context,omitempty"`
}

func (ExactKey) Strategy() Strategy    { return StrategyExact }
func (FuzzyKey) Strategy() Strategy    { return StrategyFuzzyFill }
func (CategoryKey) Strategy() Strategy { return StrategyCategoryMatch }
func (SpeechKey) Strategy() Strategy   { return StrategyOpenSpeech }

func (ExactKey) answerKey()    {}
func (FuzzyKey) answerKey()    {}
func (CategoryKey) answerKey() {}
func (SpeechKey) answerKey()   {}

// DecodeAnswerKey rebuilds an answer key from its persisted strategy tag and
// JSON payload. Unknown tags are rejected.
func DecodeAnswerKey(strategy string, payload []byte) (AnswerKey, error) {
	var (
		key AnswerKey
		err error
	)
	switch Strategy(strategy) {
	case StrategyExact:
		var k ExactKey
		err = json.Unmarshal(payload, &k)
		key = k
	case StrategyFuzzyFill:
		var k FuzzyKey
		err = json.Unmarshal(payload, &k)
		key = k
	case StrategyCategoryMatch:
		var k CategoryKey
		err = json.Unmarshal(payload, &k)
		key = k
	case StrategyOpenSpeech:
		var k SpeechKey
		err = json.Unmarshal(payload, &k)
		key = k
	default:
		return nil, NewUnknownStrategyError(strategy)
	}
	if err != nil {
		return nil, NewError(CodeInvalidFormat, fmt.Sprintf("malformed %s answer key", strategy), err)
	}
	return key, nil
}

// EncodeAnswerKey returns the strategy tag and JSON payload for persistence.
func EncodeAnswerKey(key AnswerKey) (string, []byte, error) {
	if key == nil {
		return "", nil, NewInvalidInputError("answer key is nil")
	}
	payload, err := json.Marshal(key)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode answer key: %w", err)
	}
	return string(key.Strategy()), payload, nil
}

// Question is a read-only item of the question bank.
type Question struct {
	ID             string
	Module         Module
	Prompt         string
	Key            AnswerKey
	Points         float64
	SafetyCritical bool
}

// Strategy returns the strategy of the question's answer key.
func (q *Question) Strategy() Strategy {
	if q == nil || q.Key == nil {
		return ""
	}
	return q.Key.Strategy()
}
