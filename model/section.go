package model

import "time"

// RuleSection is one numbered section of the rulebook.
type RuleSection struct {
	ID          int       `json:"id"`
	SectionID   string    `json:"section_id"`
	SectionName string    `json:"section_name"`
	Content     string    `json:"content"`
	Embedding   []float32 `json:"embedding,omitempty"`
	Metadata    Metadata  `json:"metadata,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	// Similarity is only set by similarity search
	Similarity *float64 `json:"similarity,omitempty"`
}

// Label returns the section id followed by its name, e.g. "第12条 ヘルドボール".
func (s *RuleSection) Label() string {
	if s.SectionName == "" {
		return s.SectionID
	}
	return s.SectionID + " " + s.SectionName
}
