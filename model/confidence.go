package model

import "fmt"

// Grade is the confidence grade of a ranked result list.
type Grade string

const (
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeB     Grade = "B"
	GradeC     Grade = "C"
)

var gradeDescriptions = map[Grade]string{
	GradeAPlus: "条文から明確に回答できます",
	GradeA:     "条文に基づいて回答できます",
	GradeB:     "複数の条文が該当する可能性があります",
	GradeC:     "該当する条文が見つかりませんでした",
}

// Description returns the fixed user facing text of the grade.
func (g Grade) Description() string {
	return gradeDescriptions[g]
}

// ConfidenceInfo is the classifier output for one result list.
type ConfidenceInfo struct {
	Grade                 Grade  `json:"grade"`
	Description           string `json:"description"`
	ShouldShowAlternative bool   `json:"should_show_alternative"`
}

// NewConfidenceInfo returns the info for grade g with its description.
func NewConfidenceInfo(g Grade, showAlternative bool) ConfidenceInfo {
	return ConfidenceInfo{
		Grade:                 g,
		Description:           g.Description(),
		ShouldShowAlternative: showAlternative,
	}
}

// ConfidenceConfig holds the classifier thresholds.
type ConfidenceConfig struct {
	// HighGap is the top-second gap above which the grade is A+
	HighGap float64 `json:"high_gap" yaml:"high_gap"`
	// MediumGap is the top-second gap above which the grade is A
	MediumGap float64 `json:"medium_gap" yaml:"medium_gap"`
	// SingleResultThreshold is the similarity a lone result needs for A
	SingleResultThreshold float64 `json:"single_result_threshold" yaml:"single_result_threshold"`
	// DefinitionPrefixRunes bounds where a definition of the asked term
	// must appear in the top section
	DefinitionPrefixRunes int `json:"definition_prefix_runes" yaml:"definition_prefix_runes"`
}

func DefaultConfidenceConfig() ConfidenceConfig {
	return ConfidenceConfig{
		HighGap:               0.15,
		MediumGap:             0.08,
		SingleResultThreshold: 0.70,
		DefinitionPrefixRunes: 200,
	}
}

// Validate checks that the gaps are ordered and every threshold is usable.
func (c *ConfidenceConfig) Validate() error {
	if c.MediumGap < 0 || c.HighGap < 0 {
		return fmt.Errorf("gaps must not be negative")
	}
	if c.HighGap < c.MediumGap {
		return fmt.Errorf("high gap %f must not be below medium gap %f", c.HighGap, c.MediumGap)
	}
	if c.SingleResultThreshold < 0 || c.SingleResultThreshold > 1 {
		return fmt.Errorf("single result threshold must be between 0 and 1, got %f", c.SingleResultThreshold)
	}
	if c.DefinitionPrefixRunes < 0 {
		return fmt.Errorf("definition prefix runes must not be negative")
	}
	return nil
}
