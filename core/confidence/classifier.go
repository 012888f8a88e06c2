package confidence

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/siherrmann/refrag/model"
)

// gapTolerance is the float slack of threshold comparisons. 0.90 - 0.82 is
// a gap of exactly 0.08.
const gapTolerance = 1e-9

// Classifier grades how unambiguous the top result of a ranked list is.
type Classifier struct {
	config     model.ConfidenceConfig
	definition *regexp.Regexp
	marker     string
}

// NewClassifier creates a classifier with the given thresholds. An empty
// definition pattern disables the definitional shortcut.
func NewClassifier(config model.ConfidenceConfig, definition model.DefinitionPattern) (*Classifier, error) {
	c := &Classifier{config: config, marker: definition.Marker}
	if definition.Question == "" {
		return c, nil
	}

	re, err := regexp.Compile(definition.Question)
	if err != nil {
		return nil, fmt.Errorf("error compiling definition pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("definition pattern needs a capture group for the term")
	}
	c.definition = re
	return c, nil
}

// Classify grades a ranked result list. The first matching rule wins:
//
//  1. no results gives C
//  2. a definitional question answered by a top section defining the
//     term near its start gives A+
//  3. a single result gives A when its similarity reaches the single result
//     threshold and B otherwise
//  4. the combined score gap between the top two gives A+ above the high
//     gap, A above the medium gap and B with an alternative otherwise
func (c *Classifier) Classify(results []*model.SearchResult, question string) model.ConfidenceInfo {
	if len(results) == 0 {
		return model.NewConfidenceInfo(model.GradeC, false)
	}

	if c.isDefinition(question, results[0].Content) {
		return model.NewConfidenceInfo(model.GradeAPlus, false)
	}

	if len(results) == 1 {
		if results[0].Similarity >= c.config.SingleResultThreshold-gapTolerance {
			return model.NewConfidenceInfo(model.GradeA, false)
		}
		return model.NewConfidenceInfo(model.GradeB, false)
	}

	gap := results[0].CombinedScore - results[1].CombinedScore
	switch {
	case gap > c.config.HighGap+gapTolerance:
		return model.NewConfidenceInfo(model.GradeAPlus, false)
	case gap > c.config.MediumGap+gapTolerance:
		return model.NewConfidenceInfo(model.GradeA, false)
	default:
		return model.NewConfidenceInfo(model.GradeB, true)
	}
}

// Outcome classifies results and attaches the second result as the
// alternative when the grade asks for one.
func (c *Classifier) Outcome(results []*model.SearchResult, question string) *model.SearchOutcome {
	info := c.Classify(results, question)
	return &model.SearchOutcome{
		Results:     results,
		Confidence:  info,
		Alternative: Alternative(results, info),
	}
}

// Alternative returns the second ranked result if info asks for an
// alternative, else nil.
func Alternative(results []*model.SearchResult, info model.ConfidenceInfo) *model.SearchResult {
	if !info.ShouldShowAlternative || len(results) < 2 {
		return nil
	}
	return results[1]
}

// DefinedTerm returns the term a definitional question asks about, or ""
// if question does not ask for a definition.
func (c *Classifier) DefinedTerm(question string) string {
	if c.definition == nil {
		return ""
	}
	m := c.definition.FindStringSubmatch(question)
	if m == nil {
		return ""
	}
	return m[1]
}

func (c *Classifier) isDefinition(question string, content string) bool {
	term := c.DefinedTerm(question)
	if term == "" {
		return false
	}

	prefix := []rune(content)
	if c.config.DefinitionPrefixRunes > 0 && len(prefix) > c.config.DefinitionPrefixRunes {
		prefix = prefix[:c.config.DefinitionPrefixRunes]
	}
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, string(prefix))

	return strings.Contains(cleaned, term+c.marker)
}
