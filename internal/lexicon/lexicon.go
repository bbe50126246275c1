package lexicon

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultData []byte

// Lexicon holds the versioned word tables used to score spoken responses.
// A Lexicon is read-only after construction and safe for concurrent use.
type Lexicon struct {
	version  string
	synonyms map[string][]string
	fillers  map[string]struct{}
	// multi-word fillers such as "you know"
	fillerPhrases []string
	polite        []string
}

type document struct {
	Version       string              `yaml:"version"`
	Synonyms      map[string][]string `yaml:"synonyms"`
	Fillers       []string            `yaml:"fillers"`
	PolitePhrases []string            `yaml:"polite_phrases"`
}

// Default returns the lexicon compiled into the binary.
func Default() (*Lexicon, error) {
	return Parse(defaultData)
}

// Load reads a lexicon from path, or returns the embedded one when path is empty.
func Load(path string) (*Lexicon, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a lexicon from YAML.
func Parse(data []byte) (*Lexicon, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon: %w", err)
	}
	if strings.TrimSpace(doc.Version) == "" {
		return nil, fmt.Errorf("lexicon version is required")
	}

	lex := &Lexicon{
		version:  doc.Version,
		synonyms: make(map[string][]string, len(doc.Synonyms)),
		fillers:  make(map[string]struct{}),
	}
	for word, syns := range doc.Synonyms {
		key := normalize(word)
		for _, s := range syns {
			if n := normalize(s); n != "" {
				lex.synonyms[key] = append(lex.synonyms[key], n)
			}
		}
	}
	for _, f := range doc.Fillers {
		n := normalize(f)
		if n == "" {
			continue
		}
		if strings.Contains(n, " ") {
			lex.fillerPhrases = append(lex.fillerPhrases, n)
			continue
		}
		lex.fillers[n] = struct{}{}
	}
	for _, p := range doc.PolitePhrases {
		if n := normalize(p); n != "" {
			lex.polite = append(lex.polite, n)
		}
	}
	// longest first so that "i'm sorry" is seen before "sorry"
	sort.SliceStable(lex.polite, func(i, j int) bool { return len(lex.polite[i]) > len(lex.polite[j]) })
	return lex, nil
}

// Version identifies the table revision.
func (l *Lexicon) Version() string {
	return l.version
}

// SynonymsOf returns every accepted substitute for keyword. The relation is
// closed in both directions: if keyword is listed as a synonym of another
// entry, that entry and its other synonyms are returned too.
func (l *Lexicon) SynonymsOf(keyword string) []string {
	key := normalize(keyword)
	seen := map[string]struct{}{key: {}}
	var out []string
	add := func(w string) {
		if _, ok := seen[w]; ok {
			return
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}

	for _, s := range l.synonyms[key] {
		add(s)
	}
	bases := make([]string, 0, len(l.synonyms))
	for base := range l.synonyms {
		bases = append(bases, base)
	}
	sort.Strings(bases)
	for _, base := range bases {
		for _, s := range l.synonyms[base] {
			if s != key {
				continue
			}
			add(base)
			for _, sibling := range l.synonyms[base] {
				add(sibling)
			}
			break
		}
	}
	return out
}

// IsFiller reports whether a single word is a filler.
func (l *Lexicon) IsFiller(word string) bool {
	_, ok := l.fillers[normalize(word)]
	return ok
}

// FillerPhrases returns the multi-word fillers.
func (l *Lexicon) FillerPhrases() []string {
	return l.fillerPhrases
}

// PolitePhrases returns the politeness markers, longest first.
func (l *Lexicon) PolitePhrases() []string {
	return l.polite
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
