package database

import (
	"context"
	"testing"
	"time"

	"github.com/siherrmann/refrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSectionsNewSectionsDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewSectionsDBHandler", func(t *testing.T) {
		sectionsDbHandler, err := NewSectionsDBHandler(database, testDim, true)
		assert.NoError(t, err, "Expected NewSectionsDBHandler to not return an error")
		require.NotNil(t, sectionsDbHandler, "Expected NewSectionsDBHandler to return a non-nil instance")
		require.NotNil(t, sectionsDbHandler.db, "Expected NewSectionsDBHandler to have a non-nil database instance")
	})

	t.Run("Invalid call NewSectionsDBHandler with nil database", func(t *testing.T) {
		_, err := NewSectionsDBHandler(nil, testDim, false)
		assert.Error(t, err, "Expected error when creating SectionsDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil", "Expected specific error message for nil database connection")
	})
}

func TestSectionsInsertAndSelect(t *testing.T) {
	database := initDB(t)
	ctx := context.Background()

	sectionsDbHandler, err := NewSectionsDBHandler(database, testDim, true)
	require.NoError(t, err, "Expected NewSectionsDBHandler to not return an error")

	t.Run("Insert section without embedding", func(t *testing.T) {
		section := &model.RuleSection{
			SectionID:   "insert-1",
			SectionName: "ジャンプボール",
			Content:     "ジャンプボールは審判がボールをトスして始める。",
			Metadata:    model.Metadata{"chapter": "4"},
		}

		err := sectionsDbHandler.InsertSection(ctx, section)
		assert.NoError(t, err, "Expected Insert to not return an error")
		assert.NotZero(t, section.ID, "Expected inserted section to have an ID")
		assert.Nil(t, section.Embedding, "Expected no embedding to be stored")
		assert.WithinDuration(t, time.Now(), section.CreatedAt, 5*time.Second, "Expected CreatedAt to be set")
	})

	t.Run("Insert section with embedding", func(t *testing.T) {
		section := &model.RuleSection{
			SectionID:   "insert-2",
			SectionName: "ヘルドボール",
			Content:     "両チームのプレーヤーがボールを保持した場合はヘルドボールとなる。",
			Embedding:   unitVector(2),
		}

		err := sectionsDbHandler.InsertSection(ctx, section)
		require.NoError(t, err)
		assert.Len(t, section.Embedding, testDim, "Expected embedding to be returned")
	})

	t.Run("Insert with existing section id replaces the section", func(t *testing.T) {
		section := &model.RuleSection{
			SectionID:   "insert-1",
			SectionName: "ジャンプボール",
			Content:     "更新された本文",
		}
		err := sectionsDbHandler.InsertSection(ctx, section)
		require.NoError(t, err)

		selected, err := sectionsDbHandler.SelectSection(ctx, "insert-1")
		require.NoError(t, err)
		assert.Equal(t, "更新された本文", selected.Content)
	})

	t.Run("Select missing section", func(t *testing.T) {
		_, err := sectionsDbHandler.SelectSection(ctx, "missing")
		assert.Error(t, err, "Expected error for missing section")
	})

	t.Run("Update embedding", func(t *testing.T) {
		err := sectionsDbHandler.UpdateSectionEmbedding(ctx, "insert-1", unitVector(3))
		require.NoError(t, err)

		selected, err := sectionsDbHandler.SelectSection(ctx, "insert-1")
		require.NoError(t, err)
		assert.Equal(t, unitVector(3), selected.Embedding)
	})

	t.Run("Count and delete", func(t *testing.T) {
		before, err := sectionsDbHandler.CountSections(ctx)
		require.NoError(t, err)

		err = sectionsDbHandler.DeleteSection(ctx, "insert-2")
		require.NoError(t, err)

		after, err := sectionsDbHandler.CountSections(ctx)
		require.NoError(t, err)
		assert.Equal(t, before-1, after)
	})
}

func TestSectionsSearch(t *testing.T) {
	database := initDB(t)
	ctx := context.Background()

	sectionsDbHandler, err := NewSectionsDBHandler(database, testDim, true)
	require.NoError(t, err)

	sections := []*model.RuleSection{
		{SectionID: "search-1", SectionName: "ヘルドボール", Content: "ヘルドボールになった場合はジャンプボールではなくオルタネイティングポゼッションで再開する。", Embedding: unitVector(0)},
		{SectionID: "search-2", SectionName: "アウトオブバウンズ", Content: "ボールを持ったプレーヤーがサイドラインを踏んだ場合はアウトオブバウンズとなる。", Embedding: unitVector(1)},
		{SectionID: "search-3", SectionName: "ジャンプボール", Content: "試合はジャンプボールで始まる。100%_literal", Embedding: unitVector(2)},
	}
	for _, s := range sections {
		require.NoError(t, sectionsDbHandler.InsertSection(ctx, s))
	}

	t.Run("Similarity search orders by similarity", func(t *testing.T) {
		query := unitVector(1)
		query[0] = 0.5

		results, err := sectionsDbHandler.SelectSectionsBySimilarity(ctx, query, 2, 0)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "search-2", results[0].SectionID)
		assert.Equal(t, "search-1", results[1].SectionID)
		require.NotNil(t, results[0].Similarity)
		assert.Greater(t, *results[0].Similarity, *results[1].Similarity)
	})

	t.Run("Similarity search honours the threshold", func(t *testing.T) {
		results, err := sectionsDbHandler.SelectSectionsBySimilarity(ctx, unitVector(0), 10, 0.9)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "search-1", results[0].SectionID)
	})

	t.Run("Any keyword search", func(t *testing.T) {
		results, err := sectionsDbHandler.SelectSectionsByAnyKeyword(ctx, []string{"ジャンプボール", "サイドライン"}, 20)
		require.NoError(t, err)

		ids := sectionIDs(results)
		assert.ElementsMatch(t, []string{"search-1", "search-2", "search-3"}, ids)
	})

	t.Run("All keywords search", func(t *testing.T) {
		results, err := sectionsDbHandler.SelectSectionsByAllKeywords(ctx, []string{"ヘルドボール", "ジャンプボール"}, 15)
		require.NoError(t, err)
		assert.Equal(t, []string{"search-1"}, sectionIDs(results))
	})

	t.Run("Keyword search respects the limit", func(t *testing.T) {
		results, err := sectionsDbHandler.SelectSectionsByAnyKeyword(ctx, []string{"ボール"}, 2)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("Wildcards in keywords are literal", func(t *testing.T) {
		results, err := sectionsDbHandler.SelectSectionsByAnyKeyword(ctx, []string{"%_"}, 20)
		require.NoError(t, err)
		assert.Equal(t, []string{"search-3"}, sectionIDs(results))
	})

	t.Run("No keywords returns nothing", func(t *testing.T) {
		results, err := sectionsDbHandler.SelectSectionsByAnyKeyword(ctx, nil, 20)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("Cancelled context fails", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := sectionsDbHandler.SelectSectionsByAnyKeyword(cancelled, []string{"ボール"}, 20)
		assert.Error(t, err, "Expected error for a cancelled context")
	})
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c\\d`, escapeLike(`c\d`))
	assert.Equal(t, "ヘルドボール", escapeLike("ヘルドボール"))
}

func sectionIDs(sections []*model.RuleSection) []string {
	ids := make([]string, len(sections))
	for i, s := range sections {
		ids[i] = s.SectionID
	}
	return ids
}
