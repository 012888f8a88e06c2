package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoEmbedder is returned when embedding without an embedder.
var ErrNoEmbedder = errors.New("no embedder set")

// EmbedFunc is a function that generates embeddings for text
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// NormalizeFunc rewrites a question into a form better suited for
// retrieval, e.g. by expanding abbreviations.
type NormalizeFunc func(ctx context.Context, question string) (string, error)

// Pipeline prepares questions and turns them into embeddings
type Pipeline struct {
	Embedder   EmbedFunc
	Normalizer NormalizeFunc // Optional
}

// NewPipeline creates a new question pipeline
func NewPipeline(embedder EmbedFunc) *Pipeline {
	return &Pipeline{
		Embedder: embedder,
	}
}

// SetNormalizer sets the question normalizer
func (p *Pipeline) SetNormalizer(normalizer NormalizeFunc) {
	p.Normalizer = normalizer
}

// PrepareQuestion folds the character width of question and runs the
// normalizer if one is set. When the normalizer fails, the width folded
// question is returned together with the error.
func (p *Pipeline) PrepareQuestion(ctx context.Context, question string) (string, error) {
	cleaned := NormalizeQuestion(question)
	if p.Normalizer == nil {
		return cleaned, nil
	}

	normalized, err := p.Normalizer(ctx, cleaned)
	if err != nil {
		return cleaned, fmt.Errorf("error normalizing question: %w", err)
	}
	normalized = NormalizeQuestion(normalized)
	if normalized == "" {
		return cleaned, nil
	}
	return normalized, nil
}

// Embed embeds text with the pipeline's embedder
func (p *Pipeline) Embed(ctx context.Context, text string) ([]float32, error) {
	if p.Embedder == nil {
		return nil, ErrNoEmbedder
	}
	return p.Embedder(ctx, text)
}
