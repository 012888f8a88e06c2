package model

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// QueryConfig represents configuration for a retrieval query
type QueryConfig struct {
	// Final result count
	TopK int `json:"top_k" yaml:"top_k"`

	// Vector search parameters
	VectorTopK          int     `json:"vector_top_k" yaml:"vector_top_k"`
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty" yaml:"similarity_threshold"`

	// Keyword search parameters
	KeywordLimit     int `json:"keyword_limit" yaml:"keyword_limit"`         // OR search
	AndKeywordLimit  int `json:"and_keyword_limit" yaml:"and_keyword_limit"` // per synonym pair
	MaxFallbackTerms int `json:"max_fallback_terms" yaml:"max_fallback_terms"`

	// Keyword heuristic similarity
	KeywordBaseScore   float64 `json:"keyword_base_score" yaml:"keyword_base_score"`
	KeywordMatchBonus  float64 `json:"keyword_match_bonus" yaml:"keyword_match_bonus"`
	CriticalMatchBonus float64 `json:"critical_match_bonus" yaml:"critical_match_bonus"`
	KeywordPhraseBonus float64 `json:"keyword_phrase_bonus" yaml:"keyword_phrase_bonus"`
	KeywordScoreCap    float64 `json:"keyword_score_cap" yaml:"keyword_score_cap"`

	// Ranking parameters
	RankBonusBase           int     `json:"rank_bonus_base" yaml:"rank_bonus_base"`
	RankNormalizer          float64 `json:"rank_normalizer" yaml:"rank_normalizer"`
	VectorWeight            float64 `json:"vector_weight" yaml:"vector_weight"`
	RankWeight              float64 `json:"rank_weight" yaml:"rank_weight"`
	PhraseWeight            float64 `json:"phrase_weight" yaml:"phrase_weight"`
	ConditionalPhraseWeight bool    `json:"conditional_phrase_weight" yaml:"conditional_phrase_weight"`

	// Two stage search
	RetryThreshold  float64 `json:"retry_threshold" yaml:"retry_threshold"`
	FirstStageTopK  int     `json:"first_stage_top_k" yaml:"first_stage_top_k"`
	SecondStageTopK int     `json:"second_stage_top_k" yaml:"second_stage_top_k"`
}

// DefaultQueryConfig returns a sensible default configuration
func DefaultQueryConfig() QueryConfig {
	return QueryConfig{
		TopK:                    5,
		VectorTopK:              10,
		SimilarityThreshold:     0,
		KeywordLimit:            20,
		AndKeywordLimit:         15,
		MaxFallbackTerms:        5,
		KeywordBaseScore:        0.60,
		KeywordMatchBonus:       0.03,
		CriticalMatchBonus:      0.10,
		KeywordPhraseBonus:      0.15,
		KeywordScoreCap:         0.99,
		RankBonusBase:           10,
		RankNormalizer:          20,
		VectorWeight:            0.5,
		RankWeight:              0.3,
		PhraseWeight:            0.2,
		ConditionalPhraseWeight: true,
		RetryThreshold:          0.75,
		FirstStageTopK:          3,
		SecondStageTopK:         5,
	}
}

// Validate checks that the limits are positive and the weights usable.
func (c *QueryConfig) Validate() error {
	if c.TopK <= 0 || c.VectorTopK <= 0 || c.KeywordLimit <= 0 || c.AndKeywordLimit <= 0 {
		return fmt.Errorf("limits must be positive")
	}
	if c.RankBonusBase <= 0 {
		return fmt.Errorf("rank bonus base must be positive, got %d", c.RankBonusBase)
	}
	if c.RankNormalizer <= 0 {
		return fmt.Errorf("rank normalizer must be positive, got %f", c.RankNormalizer)
	}
	if c.VectorWeight < 0 || c.RankWeight < 0 || c.PhraseWeight < 0 {
		return fmt.Errorf("weights must not be negative")
	}
	if c.VectorWeight+c.RankWeight == 0 {
		return fmt.Errorf("vector and rank weight must not both be zero")
	}
	return nil
}

// Settings is the file representation of the tunable configuration.
type Settings struct {
	Query      QueryConfig      `yaml:"query"`
	Confidence ConfidenceConfig `yaml:"confidence"`
}

// DefaultSettings returns the default query and confidence configuration.
func DefaultSettings() Settings {
	return Settings{
		Query:      DefaultQueryConfig(),
		Confidence: DefaultConfidenceConfig(),
	}
}

// LoadSettings reads a YAML file on top of the defaults. Keys missing in
// the file keep their default value.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		return settings, err
	}

	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("error parsing settings %s: %w", path, err)
	}

	if err := settings.Query.Validate(); err != nil {
		return settings, errors.Join(fmt.Errorf("invalid query settings in %s", path), err)
	}

	if err := settings.Confidence.Validate(); err != nil {
		return settings, errors.Join(fmt.Errorf("invalid confidence settings in %s", path), err)
	}

	return settings, nil
}
