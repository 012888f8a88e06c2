package model

import (
	"fmt"
	"regexp"
)

// Vocabulary is the domain knowledge used by keyword extraction and
// phrase matching. It is data and can be replaced without code changes.
type Vocabulary struct {
	// Terms are matched as substrings of the question
	Terms []string `yaml:"terms"`
	// Inferences add concepts when a pattern matches the question
	Inferences []InferenceRule `yaml:"inferences"`
	// Synonyms maps a concept to its alternative spellings
	Synonyms map[string][]string `yaml:"synonyms"`
	// CriticalConcepts weigh more in the keyword heuristic and drive AND search
	CriticalConcepts []string `yaml:"critical_concepts"`
	// ContextPatterns add a bonus when matching question and section alike
	ContextPatterns []ContextPattern `yaml:"context_patterns"`
	Phrases         PhrasePatterns   `yaml:"phrases"`
	// Definition recognizes questions asking what a term means
	Definition DefinitionPattern `yaml:"definition"`
}

type InferenceRule struct {
	Pattern  string   `yaml:"pattern"`
	Concepts []string `yaml:"concepts"`
}

type ContextPattern struct {
	Name    string  `yaml:"name"`
	Pattern string  `yaml:"pattern"`
	Bonus   float64 `yaml:"bonus"`
}

// PhrasePatterns are the regular expressions of the strict phrase matcher.
type PhrasePatterns struct {
	Numeric     string `yaml:"numeric"`
	Compound    string `yaml:"compound"`
	Restrictive string `yaml:"restrictive"`
	Temporal    string `yaml:"temporal"`
	// MinRunes drops shorter phrases
	MinRunes int `yaml:"min_runes"`
	// LengthNormalizer caps the length weighted part of the score
	LengthNormalizer float64 `yaml:"length_normalizer"`
	// KeyTerms are appended to a weak question for a second search
	KeyTerms   []string          `yaml:"key_terms"`
	Conditions ConditionPatterns `yaml:"conditions"`
}

// ConditionPatterns detect details a question and a rule section must
// agree on. An empty pattern disables its check.
type ConditionPatterns struct {
	Time     string `yaml:"time"`
	Only     string `yaml:"only"`
	Negation string `yaml:"negation"`
}

// DefinitionPattern matches a definitional question. Question must have
// one capture group holding the term; a section defines the term when it
// contains the term directly followed by Marker.
type DefinitionPattern struct {
	Question string `yaml:"question"`
	Marker   string `yaml:"marker"`
}

// IsCritical reports whether concept is one of the critical concepts.
func (v *Vocabulary) IsCritical(concept string) bool {
	for _, c := range v.CriticalConcepts {
		if c == concept {
			return true
		}
	}
	return false
}

// Validate checks that every pattern compiles and the phrase settings are usable.
func (v *Vocabulary) Validate() error {
	if len(v.Terms) == 0 {
		return fmt.Errorf("vocabulary has no terms")
	}
	for _, rule := range v.Inferences {
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			return fmt.Errorf("invalid inference pattern %q: %w", rule.Pattern, err)
		}
		if len(rule.Concepts) == 0 {
			return fmt.Errorf("inference pattern %q has no concepts", rule.Pattern)
		}
	}
	for _, cp := range v.ContextPatterns {
		if _, err := regexp.Compile(cp.Pattern); err != nil {
			return fmt.Errorf("invalid context pattern %s: %w", cp.Name, err)
		}
	}
	for name, p := range map[string]string{
		"numeric":     v.Phrases.Numeric,
		"compound":    v.Phrases.Compound,
		"restrictive": v.Phrases.Restrictive,
		"temporal":    v.Phrases.Temporal,
	} {
		if p == "" {
			continue
		}
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("invalid %s phrase pattern: %w", name, err)
		}
	}
	for _, p := range v.Phrases.KeyTerms {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("invalid key term pattern %q: %w", p, err)
		}
	}
	for name, p := range map[string]string{
		"time":     v.Phrases.Conditions.Time,
		"only":     v.Phrases.Conditions.Only,
		"negation": v.Phrases.Conditions.Negation,
	} {
		if p == "" {
			continue
		}
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("invalid %s condition pattern: %w", name, err)
		}
	}
	if v.Definition.Question != "" {
		re, err := regexp.Compile(v.Definition.Question)
		if err != nil {
			return fmt.Errorf("invalid definition pattern: %w", err)
		}
		if re.NumSubexp() < 1 {
			return fmt.Errorf("definition pattern needs a capture group for the term")
		}
	}
	if v.Phrases.LengthNormalizer <= 0 {
		return fmt.Errorf("phrase length normalizer must be positive")
	}
	return nil
}
