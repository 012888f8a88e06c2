package keyword

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/siherrmann/refrag/model"
)

type inference struct {
	pattern  *regexp.Regexp
	concepts []string
}

type contextPattern struct {
	name    string
	pattern *regexp.Regexp
	bonus   float64
}

// Extractor derives domain keywords from a question and scores how well
// a section covers them.
type Extractor struct {
	vocab      *model.Vocabulary
	inferences []inference
	contexts   []contextPattern
}

// NewExtractor compiles the patterns of vocab.
func NewExtractor(vocab *model.Vocabulary) (*Extractor, error) {
	if err := vocab.Validate(); err != nil {
		return nil, err
	}

	e := &Extractor{vocab: vocab}
	for _, rule := range vocab.Inferences {
		e.inferences = append(e.inferences, inference{
			pattern:  regexp.MustCompile(rule.Pattern),
			concepts: rule.Concepts,
		})
	}
	for _, cp := range vocab.ContextPatterns {
		e.contexts = append(e.contexts, contextPattern{
			name:    cp.Name,
			pattern: regexp.MustCompile(cp.Pattern),
			bonus:   cp.Bonus,
		})
	}
	return e, nil
}

// Extract returns the vocabulary terms found in question followed by the
// inferred concepts, without duplicates. Terms keep vocabulary order.
func (e *Extractor) Extract(question string) []string {
	seen := make(map[string]bool)
	var keywords []string
	add := func(k string) {
		if !seen[k] {
			seen[k] = true
			keywords = append(keywords, k)
		}
	}

	for _, term := range e.vocab.Terms {
		if strings.Contains(question, term) {
			add(term)
		}
	}

	for _, inf := range e.inferences {
		if inf.pattern.MatchString(question) {
			for _, c := range inf.concepts {
				add(c)
			}
		}
	}

	return keywords
}

// Synonyms returns the spellings of concept, or the concept itself.
func (e *Extractor) Synonyms(concept string) []string {
	if syns, ok := e.vocab.Synonyms[concept]; ok && len(syns) > 0 {
		return syns
	}
	return []string{concept}
}

// IsCritical reports whether keyword is a critical concept.
func (e *Extractor) IsCritical(keyword string) bool {
	return e.vocab.IsCritical(keyword)
}

// CriticalPairs returns the synonym combinations of the first two critical
// keywords, in the order they should be tried for an AND search. It is
// empty when fewer than two critical keywords are present.
func (e *Extractor) CriticalPairs(keywords []string) [][2]string {
	var critical []string
	for _, k := range keywords {
		if e.IsCritical(k) {
			critical = append(critical, k)
		}
	}
	if len(critical) < 2 {
		return nil
	}

	var pairs [][2]string
	for _, a := range e.Synonyms(critical[0]) {
		for _, b := range e.Synonyms(critical[1]) {
			pairs = append(pairs, [2]string{a, b})
		}
	}
	return pairs
}

// Match returns the keywords of which content contains any synonym and
// how many of them are critical.
func (e *Extractor) Match(keywords []string, content string) (matched []string, critical int) {
	for _, k := range keywords {
		for _, syn := range e.Synonyms(k) {
			if strings.Contains(content, syn) {
				matched = append(matched, k)
				if e.IsCritical(k) {
					critical++
				}
				break
			}
		}
	}
	return matched, critical
}

// ContextBonus sums the bonus of every context pattern matching both the
// question and the content.
func (e *Extractor) ContextBonus(question string, content string) (float64, []string) {
	var bonus float64
	var names []string
	for _, cp := range e.contexts {
		if cp.pattern.MatchString(question) && cp.pattern.MatchString(content) {
			bonus += cp.bonus
			names = append(names, cp.name)
		}
	}
	return bonus, names
}

// FallbackTerms splits question on whitespace and punctuation and returns
// up to max distinct tokens of at least two runes.
func FallbackTerms(question string, max int) []string {
	fields := strings.FieldsFunc(question, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
	})

	seen := make(map[string]bool)
	var terms []string
	for _, f := range fields {
		if utf8.RuneCountInString(f) < 2 || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
		if max > 0 && len(terms) >= max {
			break
		}
	}
	return terms
}
