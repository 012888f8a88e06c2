package model

// Answer is the synthesized reply to a question.
type Answer struct {
	Question           string          `json:"question"`
	NormalizedQuestion string          `json:"normalized_question"`
	Text               string          `json:"text"`
	RawText            string          `json:"raw_text"`
	RelatedQuestions   []string        `json:"related_questions,omitempty"`
	Results            []*SearchResult `json:"results"`
	Confidence         ConfidenceInfo  `json:"confidence"`
	Alternative        *SearchResult   `json:"alternative,omitempty"`
	Model              string          `json:"model"`
}
