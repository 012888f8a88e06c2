package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultQueryConfig(t *testing.T) {
	t.Run("Returns correct default values", func(t *testing.T) {
		config := DefaultQueryConfig()

		assert.Equal(t, 5, config.TopK, "Default TopK should be 5")
		assert.Equal(t, 10, config.VectorTopK, "Default VectorTopK should be 10")
		assert.Equal(t, 20, config.KeywordLimit, "Default KeywordLimit should be 20")
		assert.Equal(t, 15, config.AndKeywordLimit, "Default AndKeywordLimit should be 15")
		assert.Equal(t, 10, config.RankBonusBase, "Default RankBonusBase should be 10")
		assert.Equal(t, 20.0, config.RankNormalizer, "Default RankNormalizer should be 20")
		assert.True(t, config.ConditionalPhraseWeight, "Default ConditionalPhraseWeight should be true")
		assert.Equal(t, 0.75, config.RetryThreshold)
	})

	t.Run("Default weights sum to 1.0", func(t *testing.T) {
		config := DefaultQueryConfig()

		sum := config.VectorWeight + config.RankWeight + config.PhraseWeight
		assert.InDelta(t, 1.0, sum, 0.001, "Default weights should sum to 1.0")
	})

	t.Run("Default config is valid", func(t *testing.T) {
		config := DefaultQueryConfig()
		assert.NoError(t, config.Validate())
	})
}

func TestQueryConfigValidate(t *testing.T) {
	t.Run("Rejects non positive limits", func(t *testing.T) {
		config := DefaultQueryConfig()
		config.TopK = 0
		assert.Error(t, config.Validate())
	})

	t.Run("Rejects negative weights", func(t *testing.T) {
		config := DefaultQueryConfig()
		config.PhraseWeight = -0.1
		assert.Error(t, config.Validate())
	})

	t.Run("Rejects zero vector and rank weight", func(t *testing.T) {
		config := DefaultQueryConfig()
		config.VectorWeight = 0
		config.RankWeight = 0
		assert.Error(t, config.Validate())
	})

	t.Run("Rejects zero rank normalizer", func(t *testing.T) {
		config := DefaultQueryConfig()
		config.RankNormalizer = 0
		assert.Error(t, config.Validate())
	})
}

func TestLoadSettings(t *testing.T) {
	t.Run("Partial file keeps defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "settings.yaml")
		err := os.WriteFile(path, []byte("query:\n  top_k: 3\n  phrase_weight: 0.1\nconfidence:\n  high_gap: 0.2\n"), 0600)
		require.NoError(t, err)

		settings, err := LoadSettings(path)
		require.NoError(t, err)
		assert.Equal(t, 3, settings.Query.TopK)
		assert.Equal(t, 0.1, settings.Query.PhraseWeight)
		assert.Equal(t, 20, settings.Query.KeywordLimit, "Expected unset keys to keep their default")
		assert.Equal(t, 0.2, settings.Confidence.HighGap)
		assert.Equal(t, 0.08, settings.Confidence.MediumGap)
	})

	t.Run("Invalid values are rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "settings.yaml")
		err := os.WriteFile(path, []byte("query:\n  top_k: -1\n"), 0600)
		require.NoError(t, err)

		_, err = LoadSettings(path)
		assert.Error(t, err)
	})

	t.Run("Inverted confidence gaps are rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "settings.yaml")
		err := os.WriteFile(path, []byte("confidence:\n  high_gap: 0.05\n  medium_gap: 0.08\n"), 0600)
		require.NoError(t, err)

		_, err = LoadSettings(path)
		assert.Error(t, err)
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := LoadSettings(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}

func TestDefaultConfidenceConfig(t *testing.T) {
	config := DefaultConfidenceConfig()
	assert.Equal(t, 0.15, config.HighGap)
	assert.Equal(t, 0.08, config.MediumGap)
	assert.Equal(t, 0.70, config.SingleResultThreshold)
	assert.Greater(t, config.HighGap, config.MediumGap, "Expected high gap above medium gap")
}

func TestConfidenceConfigValidate(t *testing.T) {
	t.Run("Defaults are valid", func(t *testing.T) {
		config := DefaultConfidenceConfig()
		assert.NoError(t, config.Validate())
	})

	t.Run("Negative gap", func(t *testing.T) {
		config := DefaultConfidenceConfig()
		config.MediumGap = -0.01
		assert.Error(t, config.Validate())
	})

	t.Run("High gap below medium gap", func(t *testing.T) {
		config := DefaultConfidenceConfig()
		config.HighGap = 0.05
		assert.Error(t, config.Validate())
	})

	t.Run("Single result threshold out of range", func(t *testing.T) {
		config := DefaultConfidenceConfig()
		config.SingleResultThreshold = 1.5
		assert.Error(t, config.Validate())
	})
}
