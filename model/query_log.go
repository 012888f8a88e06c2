package model

import (
	"time"

	"github.com/google/uuid"
)

// QueryLog records one answered question.
type QueryLog struct {
	ID                 int           `json:"id"`
	RID                uuid.UUID     `json:"rid"`
	Question           string        `json:"question"`
	NormalizedQuestion string        `json:"normalized_question"`
	Answer             string        `json:"answer"`
	RawAnswer          string        `json:"raw_answer"`
	RagResults         SearchResults `json:"rag_results"`
	RagCount           int           `json:"rag_count"`
	ConfidenceGrade    Grade         `json:"confidence_grade"`
	ResponseTimeMs     int64         `json:"response_time_ms"`
	ModelUsed          string        `json:"model_used"`
	CreatedAt          time.Time     `json:"created_at"`
}
