package retrieval

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/siherrmann/refrag/core/keyword"
	"github.com/siherrmann/refrag/core/phrase"
	"github.com/siherrmann/refrag/model"
	"golang.org/x/sync/errgroup"
)

// VectorStore finds sections by embedding similarity.
type VectorStore interface {
	SelectSectionsBySimilarity(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*model.RuleSection, error)
}

// KeywordStore finds sections containing keywords.
type KeywordStore interface {
	SelectSectionsByAnyKeyword(ctx context.Context, keywords []string, limit int) ([]*model.RuleSection, error)
	SelectSectionsByAllKeywords(ctx context.Context, keywords []string, limit int) ([]*model.RuleSection, error)
}

// Engine provides the vector and keyword retrieval paths and fuses them.
type Engine struct {
	vectors   VectorStore
	keywords  KeywordStore
	extractor *keyword.Extractor
	matcher   *phrase.Matcher
	log       *slog.Logger
}

// NewEngine creates a new retrieval engine
func NewEngine(vectors VectorStore, keywords KeywordStore, extractor *keyword.Extractor, matcher *phrase.Matcher) *Engine {
	return &Engine{
		vectors:   vectors,
		keywords:  keywords,
		extractor: extractor,
		matcher:   matcher,
		log:       slog.New(slog.DiscardHandler),
	}
}

// SetLogger sets the logger used for debug output.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger != nil {
		e.log = logger
	}
}

// Matcher returns the phrase matcher of the engine.
func (e *Engine) Matcher() *phrase.Matcher {
	return e.matcher
}

// VectorRetrieve performs pure vector similarity search
func (e *Engine) VectorRetrieve(ctx context.Context, embedding []float32, config *model.QueryConfig) ([]*model.SearchResult, error) {
	sections, err := e.vectors.SelectSectionsBySimilarity(ctx, embedding, config.VectorTopK, config.SimilarityThreshold)
	if err != nil {
		return nil, newError(KindVectorStore, "vector search", err)
	}

	results := make([]*model.SearchResult, len(sections))
	for i, section := range sections {
		results[i] = model.NewSearchResult(section, model.SourceVector)
	}

	e.log.Debug("vector retrieval", "hits", len(results))
	return results, nil
}

// KeywordRetrieve runs the OR search over the extracted keywords and, when
// the question names two critical concepts, an AND search over their
// synonym pairs. Both run concurrently. Sections found by the AND search
// come first, each group ordered by heuristic similarity.
func (e *Engine) KeywordRetrieve(ctx context.Context, question string, config *model.QueryConfig) ([]*model.SearchResult, error) {
	keywords := e.extractor.Extract(question)
	terms := keywords
	if len(terms) == 0 {
		terms = keyword.FallbackTerms(question, config.MaxFallbackTerms)
	}
	if len(terms) == 0 {
		return nil, nil
	}

	var andSections, orSections []*model.RuleSection
	g, gCtx := errgroup.WithContext(ctx)
	if pairs := e.extractor.CriticalPairs(keywords); len(pairs) > 0 {
		g.Go(func() error {
			var err error
			andSections, err = e.searchPairs(gCtx, pairs, config.AndKeywordLimit)
			return err
		})
	}
	g.Go(func() error {
		var err error
		orSections, err = e.keywords.SelectSectionsByAnyKeyword(gCtx, terms, config.KeywordLimit)
		return newError(KindKeywordStore, "keyword search", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var results []*model.SearchResult
	collect := func(sections []*model.RuleSection, fromAnd bool) {
		for _, section := range sections {
			if seen[section.SectionID] {
				continue
			}
			seen[section.SectionID] = true

			r := model.NewSearchResult(section, model.SourceKeyword)
			r.FromAndSearch = fromAnd
			e.scoreKeywordResult(question, terms, r, config)
			results = append(results, r)
		}
	}
	collect(andSections, true)
	collect(orSections, false)

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].FromAndSearch != results[j].FromAndSearch {
			return results[i].FromAndSearch
		}
		return results[i].Similarity > results[j].Similarity
	})

	e.log.Debug("keyword retrieval", "keywords", terms, "and_hits", len(andSections), "or_hits", len(orSections), "results", len(results))
	return results, nil
}

// searchPairs tries the pairs in order and returns the hits of the first
// pair that finds anything.
func (e *Engine) searchPairs(ctx context.Context, pairs [][2]string, limit int) ([]*model.RuleSection, error) {
	for _, pair := range pairs {
		sections, err := e.keywords.SelectSectionsByAllKeywords(ctx, pair[:], limit)
		if err != nil {
			return nil, newError(KindKeywordStore, "and keyword search", err)
		}
		if len(sections) > 0 {
			return sections, nil
		}
	}
	return nil, nil
}

// scoreKeywordResult sets the heuristic similarity of a keyword hit:
// a base score, a bonus per matched keyword (larger for critical ones),
// the context pattern bonus and a share of the phrase score, capped.
func (e *Engine) scoreKeywordResult(question string, keywords []string, r *model.SearchResult, config *model.QueryConfig) {
	matched, critical := e.extractor.Match(keywords, r.Content)
	contextBonus, _ := e.extractor.ContextBonus(question, r.Content)
	e.applyPhrase(question, r)

	score := config.KeywordBaseScore +
		float64(len(matched)-critical)*config.KeywordMatchBonus +
		float64(critical)*config.CriticalMatchBonus +
		contextBonus +
		r.PhraseScore*config.KeywordPhraseBonus

	r.MatchedKeywords = matched
	r.Similarity = math.Min(score, config.KeywordScoreCap)
}

func (e *Engine) applyPhrase(question string, r *model.SearchResult) {
	m := e.matcher.Match(question, r.Content)
	r.PhraseScore = m.Score
	r.MatchedPhrases = m.Matched
	r.MissedPhrases = m.Missed
}
