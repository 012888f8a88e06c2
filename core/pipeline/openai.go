package pipeline

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIEmbeddingModel is the embedding model the rule corpus is indexed with
const OpenAIEmbeddingModel = "text-embedding-3-small"

// OpenAIEmbeddingDim is the dimension of OpenAIEmbeddingModel
const OpenAIEmbeddingDim = 1536

// OpenAIConfig configures the OpenAI compatible embedding endpoint
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // Optional
	Model   string // Defaults to OpenAIEmbeddingModel
}

// OpenAIEmbedder creates an embedder calling an OpenAI compatible API
// through langchaingo.
func OpenAIEmbedder(config OpenAIConfig) (EmbedFunc, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("openai api key is empty")
	}
	if config.Model == "" {
		config.Model = OpenAIEmbeddingModel
	}

	opts := []openai.Option{
		openai.WithToken(config.APIKey),
		openai.WithEmbeddingModel(config.Model),
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	return func(ctx context.Context, text string) ([]float32, error) {
		embedding, err := embedder.EmbedQuery(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to generate embedding: %w", err)
		}
		if len(embedding) == 0 {
			return nil, fmt.Errorf("no embedding generated")
		}
		return embedding, nil
	}, nil
}
