package retrieval

import (
	"sort"

	"github.com/siherrmann/refrag/model"
)

// AssignRankBonus gives the result at position i of a source list the
// bonus max(base-i, 1) for that source.
func AssignRankBonus(results []*model.SearchResult, source model.Source, base int) {
	for i, r := range results {
		bonus := base - i
		if bonus < 1 {
			bonus = 1
		}
		switch source {
		case model.SourceVector:
			r.VectorRankBonus = bonus
		case model.SourceKeyword:
			r.KeywordRankBonus = bonus
		}
		r.RankScore = r.VectorRankBonus + r.KeywordRankBonus
	}
}

// Merge deduplicates the lists by section id in first seen order. A section
// found more than once keeps the higher similarity, phrase score and rank
// bonus per source. It becomes hybrid when found by both sources. The
// inputs are not modified, and merging a merged list again is a no-op.
func Merge(lists ...[]*model.SearchResult) []*model.SearchResult {
	index := make(map[string]*model.SearchResult)
	var merged []*model.SearchResult
	for _, list := range lists {
		for _, r := range list {
			existing, ok := index[r.SectionID]
			if !ok {
				c := r.Clone()
				index[r.SectionID] = c
				merged = append(merged, c)
				continue
			}
			mergeInto(existing, r)
		}
	}
	return merged
}

func mergeInto(dst *model.SearchResult, src *model.SearchResult) {
	if dst.Source != src.Source {
		dst.Source = model.SourceHybrid
	}
	dst.Similarity = max(dst.Similarity, src.Similarity)
	dst.VectorRankBonus = max(dst.VectorRankBonus, src.VectorRankBonus)
	dst.KeywordRankBonus = max(dst.KeywordRankBonus, src.KeywordRankBonus)
	dst.RankScore = dst.VectorRankBonus + dst.KeywordRankBonus
	dst.CombinedScore = max(dst.CombinedScore, src.CombinedScore)
	dst.FromAndSearch = dst.FromAndSearch || src.FromAndSearch

	if src.PhraseScore > dst.PhraseScore || (dst.PhraseAbstained() && !src.PhraseAbstained()) {
		dst.PhraseScore = src.PhraseScore
		dst.MatchedPhrases = append([]string(nil), src.MatchedPhrases...)
		dst.MissedPhrases = append([]string(nil), src.MissedPhrases...)
	}

	for _, k := range src.MatchedKeywords {
		found := false
		for _, d := range dst.MatchedKeywords {
			if d == k {
				found = true
				break
			}
		}
		if !found {
			dst.MatchedKeywords = append(dst.MatchedKeywords, k)
		}
	}
}

// CombinedScore blends similarity, normalized rank score and phrase score.
// With conditional phrase weighting a result whose question had no key
// phrase gets no phrase share, and the other two weights are scaled up to
// keep the total weight.
func CombinedScore(r *model.SearchResult, config *model.QueryConfig) float64 {
	wv, wr, wp := config.VectorWeight, config.RankWeight, config.PhraseWeight
	if config.ConditionalPhraseWeight && r.PhraseAbstained() && wv+wr > 0 {
		scale := (wv + wr + wp) / (wv + wr)
		wv, wr, wp = wv*scale, wr*scale, 0
	}

	rank := float64(r.RankScore) / config.RankNormalizer
	return r.Similarity*wv + rank*wr + r.PhraseScore*wp
}

// Rank scores every result and returns them ordered by combined score,
// truncated to config.TopK. Equal scores keep their input order.
func Rank(results []*model.SearchResult, config *model.QueryConfig) []*model.SearchResult {
	for _, r := range results {
		r.CombinedScore = CombinedScore(r, config)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CombinedScore > results[j].CombinedScore
	})

	if config.TopK > 0 && len(results) > config.TopK {
		results = results[:config.TopK]
	}
	return results
}

// Fuse assigns rank bonuses to both source lists, merges them, scores the
// phrases of every merged result against question and ranks them.
func (e *Engine) Fuse(question string, vector []*model.SearchResult, keyword []*model.SearchResult, config *model.QueryConfig) []*model.SearchResult {
	AssignRankBonus(vector, model.SourceVector, config.RankBonusBase)
	AssignRankBonus(keyword, model.SourceKeyword, config.RankBonusBase)

	merged := Merge(vector, keyword)
	for _, r := range merged {
		e.applyPhrase(question, r)
	}

	ranked := Rank(merged, config)
	e.log.Debug("fused results", "vector", len(vector), "keyword", len(keyword), "ranked", len(ranked))
	return ranked
}
