package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/siherrmann/refrag/helper"
)

// Metadata represents JSONB metadata stored in PostgreSQL
type Metadata map[string]interface{}

// Value implements the driver.Valuer interface for database storage
func (m Metadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for database retrieval
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}
	return unmarshalJSONB(value, m)
}

// SearchResults is a ranked result list stored as JSONB.
type SearchResults []*SearchResult

func (s SearchResults) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

func (s *SearchResults) Scan(value interface{}) error {
	if value == nil {
		*s = SearchResults{}
		return nil
	}
	return unmarshalJSONB(value, s)
}

func unmarshalJSONB(value interface{}, target interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, target)
	case string:
		return json.Unmarshal([]byte(v), target)
	default:
		return helper.NewError("jsonb assertion", errors.New("type assertion to []byte failed"))
	}
}
