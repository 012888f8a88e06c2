package model

// Source tells which retrieval path produced a result.
type Source string

const (
	SourceVector  Source = "vector"
	SourceKeyword Source = "keyword"
	SourceHybrid  Source = "hybrid"
)

// SearchResult is a rule section scored by the hybrid retriever.
type SearchResult struct {
	SectionID   string `json:"section_id"`
	SectionName string `json:"section_name"`
	Content     string `json:"content"`
	Source      Source `json:"source"`

	Similarity float64 `json:"similarity"`
	// RankScore is VectorRankBonus + KeywordRankBonus
	RankScore        int     `json:"rank_score"`
	VectorRankBonus  int     `json:"vector_rank_bonus"`
	KeywordRankBonus int     `json:"keyword_rank_bonus"`
	PhraseScore      float64 `json:"phrase_score"`
	CombinedScore    float64 `json:"combined_score"`

	MatchedKeywords []string `json:"matched_keywords,omitempty"`
	FromAndSearch   bool     `json:"from_and_search,omitempty"`
	MatchedPhrases  []string `json:"matched_phrases,omitempty"`
	MissedPhrases   []string `json:"missed_phrases,omitempty"`
}

// PhraseAbstained reports whether no key phrase could be extracted from
// the question this result was scored against.
func (r *SearchResult) PhraseAbstained() bool {
	return len(r.MatchedPhrases) == 0 && len(r.MissedPhrases) == 0
}

// Label returns the section id followed by its name.
func (r *SearchResult) Label() string {
	if r.SectionName == "" {
		return r.SectionID
	}
	return r.SectionID + " " + r.SectionName
}

// Clone returns a copy that shares no slices with r.
func (r *SearchResult) Clone() *SearchResult {
	c := *r
	c.MatchedKeywords = append([]string(nil), r.MatchedKeywords...)
	c.MatchedPhrases = append([]string(nil), r.MatchedPhrases...)
	c.MissedPhrases = append([]string(nil), r.MissedPhrases...)
	return &c
}

// NewSearchResult creates an unscored result for a section.
func NewSearchResult(section *RuleSection, source Source) *SearchResult {
	r := &SearchResult{
		SectionID:   section.SectionID,
		SectionName: section.SectionName,
		Content:     section.Content,
		Source:      source,
	}
	if section.Similarity != nil {
		r.Similarity = *section.Similarity
	}
	return r
}

// SearchOutcome bundles a ranked result list with its confidence.
type SearchOutcome struct {
	Results     []*SearchResult `json:"results"`
	Confidence  ConfidenceInfo  `json:"confidence"`
	Alternative *SearchResult   `json:"alternative,omitempty"`
	// Issues lists detailed-condition mismatches of the top result.
	Issues []string `json:"issues,omitempty"`
}
