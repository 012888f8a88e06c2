package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/siherrmann/refrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("Vector retrieve returns hits best first", func(t *testing.T) {
		engine := newTestEngine(t, heldBallStore())

		results, err := engine.VectorRetrieve(ctx, []float32{1, 0, 0}, testConfig())
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "5-1", results[0].SectionID)
		assert.Equal(t, model.SourceVector, results[0].Source)
		assert.InDelta(t, 0.81, results[0].Similarity, 1e-9)
	})

	t.Run("Vector retrieve respects the threshold and limit", func(t *testing.T) {
		engine := newTestEngine(t, heldBallStore())
		config := testConfig()
		config.SimilarityThreshold = 0.72
		config.VectorTopK = 1

		results, err := engine.VectorRetrieve(ctx, []float32{1, 0, 0}, config)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "5-1", results[0].SectionID)
	})

	t.Run("Vector store failure is a retrieval error", func(t *testing.T) {
		store := heldBallStore()
		store.vectorErr = errors.New("connection reset")
		engine := newTestEngine(t, store)

		_, err := engine.VectorRetrieve(ctx, []float32{1, 0, 0}, testConfig())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRetrievalUnavailable)

		var re *Error
		require.ErrorAs(t, err, &re)
		assert.Equal(t, KindVectorStore, re.Kind)
	})
}

func TestKeywordRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("AND hits rank above OR only hits", func(t *testing.T) {
		store := heldBallStore()
		engine := newTestEngine(t, store)

		results, err := engine.KeywordRetrieve(ctx, heldBallQuestion, testConfig())
		require.NoError(t, err)
		require.Len(t, results, 3)

		assert.Equal(t, "12-1", results[0].SectionID)
		assert.True(t, results[0].FromAndSearch)
		for _, r := range results[1:] {
			assert.False(t, r.FromAndSearch)
			assert.Equal(t, model.SourceKeyword, r.Source)
		}
		assert.GreaterOrEqual(t, results[1].Similarity, results[2].Similarity)

		require.Len(t, store.allCalls, 1)
		assert.Equal(t, []string{"ヘルドボール", "アウトオブバウンズ"}, store.allCalls[0])
		require.Len(t, store.anyCalls, 1)
		assert.Equal(t, []string{"ヘルドボール", "アウトオブバウンズ"}, store.anyCalls[0])
	})

	t.Run("Keyword similarity is capped", func(t *testing.T) {
		engine := newTestEngine(t, heldBallStore())

		results, err := engine.KeywordRetrieve(ctx, heldBallQuestion, testConfig())
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.InDelta(t, 0.99, results[0].Similarity, 1e-9)
		assert.ElementsMatch(t, []string{"ヘルドボール", "アウトオブバウンズ"}, results[0].MatchedKeywords)
		for _, r := range results {
			assert.LessOrEqual(t, r.Similarity, 0.99)
			assert.GreaterOrEqual(t, r.Similarity, 0.60)
		}
	})

	t.Run("AND search tries synonym pairs until one finds a section", func(t *testing.T) {
		store := newFakeStore(
			section("12-2", "ヘルドボール", "ヘルドボールのときボールがコートの外に出た。"),
		)
		engine := newTestEngine(t, store)

		results, err := engine.KeywordRetrieve(ctx, heldBallQuestion, testConfig())
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.True(t, results[0].FromAndSearch)

		require.Len(t, store.allCalls, 2)
		assert.Equal(t, []string{"ヘルドボール", "コートの外"}, store.allCalls[1])
	})

	t.Run("Question without vocabulary terms falls back to its tokens", func(t *testing.T) {
		store := newFakeStore(section("1-1", "試合", "試合の開始は審判が宣する。"))
		engine := newTestEngine(t, store)

		results, err := engine.KeywordRetrieve(ctx, "開始 時刻", testConfig())
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "1-1", results[0].SectionID)
		assert.Empty(t, store.allCalls)
		require.Len(t, store.anyCalls, 1)
		assert.Equal(t, []string{"開始", "時刻"}, store.anyCalls[0])
	})

	t.Run("Empty question searches nothing", func(t *testing.T) {
		store := heldBallStore()
		engine := newTestEngine(t, store)

		results, err := engine.KeywordRetrieve(ctx, "", testConfig())
		require.NoError(t, err)
		assert.Empty(t, results)
		assert.Empty(t, store.anyCalls)
	})

	t.Run("OR search failure is a retrieval error", func(t *testing.T) {
		store := heldBallStore()
		store.anyErr = errors.New("timeout")
		engine := newTestEngine(t, store)

		_, err := engine.KeywordRetrieve(ctx, heldBallQuestion, testConfig())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRetrievalUnavailable)

		var re *Error
		require.ErrorAs(t, err, &re)
		assert.Equal(t, KindKeywordStore, re.Kind)
	})

	t.Run("AND search failure is a retrieval error", func(t *testing.T) {
		store := heldBallStore()
		store.allErr = errors.New("timeout")
		engine := newTestEngine(t, store)

		_, err := engine.KeywordRetrieve(ctx, heldBallQuestion, testConfig())
		assert.ErrorIs(t, err, ErrRetrievalUnavailable)
	})
}

func TestFuse(t *testing.T) {
	ctx := context.Background()

	t.Run("Sections found by both paths become hybrid and rank first", func(t *testing.T) {
		engine := newTestEngine(t, heldBallStore())
		config := testConfig()

		vector, err := engine.VectorRetrieve(ctx, []float32{1, 0, 0}, config)
		require.NoError(t, err)
		keyword, err := engine.KeywordRetrieve(ctx, heldBallQuestion, config)
		require.NoError(t, err)

		results := engine.Fuse(heldBallQuestion, vector, keyword, config)
		require.Len(t, results, 4)

		assert.Equal(t, "12-1", results[0].SectionID)
		assert.Equal(t, model.SourceHybrid, results[0].Source)
		assert.Equal(t, 18, results[0].RankScore)
		assert.Equal(t, []string{"ヘルドボール", "アウトオブバウンズ"}, results[0].MatchedPhrases)

		sources := map[string]model.Source{}
		for _, r := range results {
			sources[r.SectionID] = r.Source
		}
		assert.Equal(t, model.SourceHybrid, sources["23-1"])
		assert.Equal(t, model.SourceVector, sources["5-1"])
		assert.Equal(t, model.SourceKeyword, sources["9-1"])

		for i := 1; i < len(results); i++ {
			assert.GreaterOrEqual(t, results[i-1].CombinedScore, results[i].CombinedScore)
		}
	})

	t.Run("Fuse truncates to TopK", func(t *testing.T) {
		engine := newTestEngine(t, heldBallStore())
		config := testConfig()
		config.TopK = 2

		keyword, err := engine.KeywordRetrieve(ctx, heldBallQuestion, config)
		require.NoError(t, err)

		results := engine.Fuse(heldBallQuestion, nil, keyword, config)
		assert.Len(t, results, 2)
	})

	t.Run("Fuse of empty lists is empty", func(t *testing.T) {
		engine := newTestEngine(t, heldBallStore())
		assert.Empty(t, engine.Fuse(heldBallQuestion, nil, nil, testConfig()))
	})
}
