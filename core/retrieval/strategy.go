package retrieval

import (
	"context"
	"strings"

	"github.com/siherrmann/refrag/core/phrase"
	"github.com/siherrmann/refrag/core/pipeline"
	"github.com/siherrmann/refrag/model"
	"golang.org/x/sync/errgroup"
)

// Strategy defines a retrieval strategy
type Strategy interface {
	Retrieve(ctx context.Context, question string, config *model.QueryConfig) ([]*model.SearchResult, error)
}

// VectorOnlyStrategy performs pure vector similarity search
type VectorOnlyStrategy struct {
	engine *Engine
	embed  pipeline.EmbedFunc
}

// NewVectorOnlyStrategy creates a new vector-only strategy
func NewVectorOnlyStrategy(engine *Engine, embed pipeline.EmbedFunc) *VectorOnlyStrategy {
	return &VectorOnlyStrategy{engine: engine, embed: embed}
}

// Retrieve performs vector-only retrieval
func (s *VectorOnlyStrategy) Retrieve(ctx context.Context, question string, config *model.QueryConfig) ([]*model.SearchResult, error) {
	vector, err := vectorRetrieve(ctx, s.engine, s.embed, question, config)
	if err != nil {
		return nil, err
	}
	return s.engine.Fuse(question, vector, nil, config), nil
}

// KeywordOnlyStrategy performs keyword search without embeddings
type KeywordOnlyStrategy struct {
	engine *Engine
}

// NewKeywordOnlyStrategy creates a new keyword-only strategy
func NewKeywordOnlyStrategy(engine *Engine) *KeywordOnlyStrategy {
	return &KeywordOnlyStrategy{engine: engine}
}

// Retrieve performs keyword-only retrieval
func (s *KeywordOnlyStrategy) Retrieve(ctx context.Context, question string, config *model.QueryConfig) ([]*model.SearchResult, error) {
	keyword, err := s.engine.KeywordRetrieve(ctx, question, config)
	if err != nil {
		return nil, err
	}
	return s.engine.Fuse(question, nil, keyword, config), nil
}

// HybridStrategy runs vector and keyword retrieval concurrently and fuses
// both lists. If either path fails the whole retrieval fails.
type HybridStrategy struct {
	engine *Engine
	embed  pipeline.EmbedFunc
}

// NewHybridStrategy creates a new hybrid strategy
func NewHybridStrategy(engine *Engine, embed pipeline.EmbedFunc) *HybridStrategy {
	return &HybridStrategy{engine: engine, embed: embed}
}

// Retrieve performs hybrid retrieval with weighted combination
func (s *HybridStrategy) Retrieve(ctx context.Context, question string, config *model.QueryConfig) ([]*model.SearchResult, error) {
	var vector, keyword []*model.SearchResult

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vector, err = vectorRetrieve(gCtx, s.engine, s.embed, question, config)
		return err
	})
	g.Go(func() error {
		var err error
		keyword, err = s.engine.KeywordRetrieve(gCtx, question, config)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return s.engine.Fuse(question, vector, keyword, config), nil
}

// TwoStageStrategy retries a weak first search with the key terms of the
// question appended and a wider limit.
type TwoStageStrategy struct {
	base    Strategy
	matcher *phrase.Matcher
}

// NewTwoStageStrategy wraps base with the retry stage. The key terms of
// the retry come from matcher.
func NewTwoStageStrategy(base Strategy, matcher *phrase.Matcher) *TwoStageStrategy {
	return &TwoStageStrategy{base: base, matcher: matcher}
}

// Retrieve runs the first stage with config.FirstStageTopK. When its top
// combined score is below config.RetryThreshold the question is searched
// again, enhanced by its key terms, and both stages are merged and ranked
// to config.SecondStageTopK.
func (s *TwoStageStrategy) Retrieve(ctx context.Context, question string, config *model.QueryConfig) ([]*model.SearchResult, error) {
	first := *config
	first.TopK = config.FirstStageTopK
	results, err := s.base.Retrieve(ctx, question, &first)
	if err != nil {
		return nil, err
	}
	if len(results) > 0 && results[0].CombinedScore >= config.RetryThreshold {
		return results, nil
	}

	enhanced := question
	if terms := s.matcher.KeyTerms(question); len(terms) > 0 {
		enhanced = question + " " + strings.Join(terms, " ")
	}

	second := *config
	second.TopK = config.SecondStageTopK
	retry, err := s.base.Retrieve(ctx, enhanced, &second)
	if err != nil {
		return nil, err
	}

	return Rank(Merge(results, retry), &second), nil
}

func vectorRetrieve(ctx context.Context, engine *Engine, embed pipeline.EmbedFunc, question string, config *model.QueryConfig) ([]*model.SearchResult, error) {
	if embed == nil {
		return nil, newError(KindEmbedding, "embed question", pipeline.ErrNoEmbedder)
	}
	embedding, err := embed(ctx, question)
	if err != nil {
		return nil, newError(KindEmbedding, "embed question", err)
	}
	return engine.VectorRetrieve(ctx, embedding, config)
}
