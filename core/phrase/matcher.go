package phrase

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/siherrmann/refrag/model"
)

// Match is the outcome of matching the key phrases of a question
// against one section.
type Match struct {
	Score   float64
	Matched []string
	Missed  []string
}

// Abstained reports whether the question had no key phrase at all.
func (m Match) Abstained() bool {
	return len(m.Matched) == 0 && len(m.Missed) == 0
}

// Matcher is the strict phrase matcher. It only rewards long, specific
// phrases: counts with units, long katakana compounds, restrictive
// phrases and time expressions.
type Matcher struct {
	patterns   []*regexp.Regexp
	minRunes   int
	normalizer float64

	keyTerms   []*regexp.Regexp
	conditions conditions
}

// NewMatcher compiles the phrase patterns. Empty patterns are skipped.
func NewMatcher(p model.PhrasePatterns) (*Matcher, error) {
	if p.LengthNormalizer <= 0 {
		return nil, fmt.Errorf("phrase length normalizer must be positive")
	}

	m := &Matcher{
		minRunes:   p.MinRunes,
		normalizer: p.LengthNormalizer,
	}
	for _, expr := range []string{p.Numeric, p.Compound, p.Restrictive, p.Temporal} {
		if expr == "" {
			continue
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("error compiling phrase pattern %q: %w", expr, err)
		}
		m.patterns = append(m.patterns, re)
	}
	for _, expr := range p.KeyTerms {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("error compiling key term pattern %q: %w", expr, err)
		}
		m.keyTerms = append(m.keyTerms, re)
	}
	c, err := compileConditions(p.Conditions)
	if err != nil {
		return nil, err
	}
	m.conditions = c
	return m, nil
}

// ExtractKeyPhrases returns the distinct key phrases of text in pattern
// order, dropping phrases shorter than the minimum rune count.
func (m *Matcher) ExtractKeyPhrases(text string) []string {
	seen := make(map[string]bool)
	var phrases []string
	for _, re := range m.patterns {
		for _, p := range re.FindAllString(text, -1) {
			if utf8.RuneCountInString(p) < m.minRunes || seen[p] {
				continue
			}
			seen[p] = true
			phrases = append(phrases, p)
		}
	}
	return phrases
}

// Match scores content against the key phrases of question. Whitespace is
// ignored on both sides. The score is half the matched ratio plus half the
// length weighted coverage, and zero when question has no key phrase.
func (m *Matcher) Match(question string, content string) Match {
	phrases := m.ExtractKeyPhrases(question)
	if len(phrases) == 0 {
		return Match{}
	}

	cleaned := stripSpace(content)

	var result Match
	var weight float64
	for _, p := range phrases {
		pc := stripSpace(p)
		if strings.Contains(cleaned, pc) {
			result.Matched = append(result.Matched, p)
			weight += math.Pow(float64(utf8.RuneCountInString(pc)), 1.5)
		} else {
			result.Missed = append(result.Missed, p)
		}
	}

	ratio := float64(len(result.Matched)) / float64(len(phrases))
	weighted := math.Min(weight/m.normalizer, 1.0)
	result.Score = ratio*0.5 + weighted*0.5

	return result
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
