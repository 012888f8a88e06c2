package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/siherrmann/refrag/model"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// DefaultChatModel is the chat model used for synthesis and normalization
const DefaultChatModel = "gpt-4o-mini"

// MinNormalizeRunes is the length below which questions are not normalized
const MinNormalizeRunes = 20

// ErrSynthesisFailed is returned when the chat model gives no answer.
var ErrSynthesisFailed = errors.New("answer synthesis failed")

// OpenAIConfig configures the OpenAI compatible chat endpoint
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // Optional
	Model   string // Defaults to DefaultChatModel
}

// NewOpenAIModel creates a langchaingo chat model for config.
func NewOpenAIModel(config OpenAIConfig) (llms.Model, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("openai api key is empty")
	}
	if config.Model == "" {
		config.Model = DefaultChatModel
	}

	opts := []openai.Option{
		openai.WithToken(config.APIKey),
		openai.WithModel(config.Model),
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	return client, nil
}

// Synthesizer turns a ranked, graded result list into an answer with a
// chat model.
type Synthesizer struct {
	client    llms.Model
	modelName string
	logger    *slog.Logger
}

// NewSynthesizer creates a synthesizer. modelName is only recorded on the
// answers.
func NewSynthesizer(client llms.Model, modelName string, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		client:    client,
		modelName: modelName,
		logger:    logger.With("component", "synthesizer"),
	}
}

// Synthesize asks the chat model to answer normalized from the ranked
// results of outcome. The related questions are split off the answer.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, normalized string, outcome *model.SearchOutcome) (*model.Answer, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, answerSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, BuildQuestion(question, normalized, BuildContext(outcome))),
	}

	response, err := s.client.GenerateContent(ctx, content, llms.WithTemperature(0.1), llms.WithMaxTokens(2500))
	if err != nil {
		s.logger.Error("failed to generate answer", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrSynthesisFailed, err)
	}
	if len(response.Choices) < 1 || strings.TrimSpace(response.Choices[0].Content) == "" {
		return nil, fmt.Errorf("%w: empty response", ErrSynthesisFailed)
	}

	raw := response.Choices[0].Content
	text, related := ParseAnswer(raw)
	s.logger.Debug("answer generated", "runes", utf8.RuneCountInString(raw), "related_questions", len(related))

	return &model.Answer{
		Question:           question,
		NormalizedQuestion: normalized,
		Text:               text,
		RawText:            raw,
		RelatedQuestions:   related,
		Results:            outcome.Results,
		Confidence:         outcome.Confidence,
		Alternative:        outcome.Alternative,
		Model:              s.modelName,
	}, nil
}

// Normalizer rewrites questions into search friendly form with a chat
// model.
type Normalizer struct {
	client llms.Model
	logger *slog.Logger
}

// NewNormalizer creates a normalizer
func NewNormalizer(client llms.Model, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		client: client,
		logger: logger.With("component", "normalizer"),
	}
}

// Normalize returns the rewritten question. Questions shorter than
// MinNormalizeRunes are returned as they are. Model failures are logged
// and fall back to question, so Normalize never fails.
func (n *Normalizer) Normalize(ctx context.Context, question string) (string, error) {
	if utf8.RuneCountInString(question) < MinNormalizeRunes {
		return question, nil
	}

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, normalizeSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, question),
	}

	response, err := n.client.GenerateContent(ctx, content, llms.WithTemperature(0.1), llms.WithMaxTokens(200))
	if err != nil {
		n.logger.Warn("normalization failed, using original question", "err", err)
		return question, nil
	}
	if len(response.Choices) < 1 {
		return question, nil
	}

	normalized := strings.TrimSpace(response.Choices[0].Content)
	if normalized == "" {
		return question, nil
	}

	n.logger.Debug("question normalized", "question", question, "normalized", normalized)
	return normalized, nil
}
