package refrag

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/siherrmann/refrag/core/answer"
	"github.com/siherrmann/refrag/core/confidence"
	"github.com/siherrmann/refrag/core/keyword"
	"github.com/siherrmann/refrag/core/phrase"
	"github.com/siherrmann/refrag/core/pipeline"
	"github.com/siherrmann/refrag/core/retrieval"
	"github.com/siherrmann/refrag/database"
	"github.com/siherrmann/refrag/helper"
	"github.com/siherrmann/refrag/model"
	loadSql "github.com/siherrmann/refrag/sql"
	"github.com/tmc/langchaingo/llms"
)

// AskLimit is the number of sections handed to the synthesizer
const AskLimit = 10

// Refrag provides a unified interface to the rule store, the retrieval
// pipeline and answer synthesis
type Refrag struct {
	DB          *helper.Database
	Sections    *database.SectionsDBHandler
	QueryLogs   *database.QueryLogsDBHandler
	Pipeline    *pipeline.Pipeline // Question preparation and embedding
	Engine      *retrieval.Engine  // Retrieval engine for hybrid search
	Classifier  *confidence.Classifier
	Synthesizer *answer.Synthesizer // Optional, required by Ask
	Settings    model.Settings
	vocab       *model.Vocabulary
	// Logging
	log *slog.Logger
}

// NewRefrag creates a new Refrag instance with all handlers initialized.
// embeddingDim must match the embedder set later.
func NewRefrag(config *helper.DatabaseConfiguration, embeddingDim int) (*Refrag, error) {
	return NewRefragWithLogger(config, embeddingDim, helper.NewLogger(os.Stdout, slog.LevelInfo))
}

// NewRefragWithLogger is NewRefrag with a caller provided logger.
func NewRefragWithLogger(config *helper.DatabaseConfiguration, embeddingDim int, logger *slog.Logger) (*Refrag, error) {
	// Initialize database
	db := helper.NewDatabase("refrag", config, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// force=false to not reload if functions already exist
	sections, err := database.NewSectionsDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create sections handler", err)
	}

	queryLogs, err := database.NewQueryLogsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create query logs handler", err)
	}

	r := &Refrag{
		DB:        db,
		Sections:  sections,
		QueryLogs: queryLogs,
		Pipeline:  pipeline.NewPipeline(nil),
		log:       logger,
	}

	if err := r.SetVocabulary(keyword.DefaultVocabulary()); err != nil {
		return nil, err
	}
	if err := r.SetSettings(model.DefaultSettings()); err != nil {
		return nil, err
	}

	return r, nil
}

// Close closes the database connection
func (r *Refrag) Close() error {
	if r.DB != nil {
		return r.DB.Close()
	}
	return nil
}

// SetSettings validates and applies query and confidence settings
func (r *Refrag) SetSettings(settings model.Settings) error {
	if err := settings.Query.Validate(); err != nil {
		return helper.NewError("validate settings", err)
	}
	if err := settings.Confidence.Validate(); err != nil {
		return helper.NewError("validate settings", err)
	}
	vocab := r.vocab
	if vocab == nil {
		vocab = keyword.DefaultVocabulary()
	}
	classifier, err := confidence.NewClassifier(settings.Confidence, vocab.Definition)
	if err != nil {
		return helper.NewError("create classifier", err)
	}
	r.Settings = settings
	r.Classifier = classifier
	return nil
}

// SetVocabulary rebuilds the retrieval engine and the classifier for
// another domain vocabulary
func (r *Refrag) SetVocabulary(vocab *model.Vocabulary) error {
	extractor, err := keyword.NewExtractor(vocab)
	if err != nil {
		return helper.NewError("create keyword extractor", err)
	}
	matcher, err := phrase.NewMatcher(vocab.Phrases)
	if err != nil {
		return helper.NewError("create phrase matcher", err)
	}

	if r.Classifier != nil {
		classifier, err := confidence.NewClassifier(r.Settings.Confidence, vocab.Definition)
		if err != nil {
			return helper.NewError("create classifier", err)
		}
		r.Classifier = classifier
	}

	r.Engine = retrieval.NewEngine(r.Sections, r.Sections, extractor, matcher)
	r.Engine.SetLogger(r.log)
	r.vocab = vocab
	return nil
}

// SetPipeline sets the question pipeline
func (r *Refrag) SetPipeline(p *pipeline.Pipeline) {
	r.Pipeline = p
}

// UseDefaultPipeline sets up the local hugot embedder (384 dimensions)
func (r *Refrag) UseDefaultPipeline() error {
	embedder, err := pipeline.DefaultEmbedder()
	if err != nil {
		return helper.NewError("create default embedder", err)
	}
	r.setEmbedder(embedder)
	return nil
}

// UseOpenAIPipeline sets up the OpenAI embedder (1536 dimensions)
func (r *Refrag) UseOpenAIPipeline(config pipeline.OpenAIConfig) error {
	embedder, err := pipeline.OpenAIEmbedder(config)
	if err != nil {
		return helper.NewError("create openai embedder", err)
	}
	r.setEmbedder(embedder)
	return nil
}

// UseOpenAIChat sets up question normalization and answer synthesis with
// an OpenAI chat model
func (r *Refrag) UseOpenAIChat(config answer.OpenAIConfig) error {
	client, err := answer.NewOpenAIModel(config)
	if err != nil {
		return helper.NewError("create openai chat model", err)
	}
	name := config.Model
	if name == "" {
		name = answer.DefaultChatModel
	}
	r.SetChatModel(client, name)
	return nil
}

// SetChatModel uses client for question normalization and synthesis
func (r *Refrag) SetChatModel(client llms.Model, modelName string) {
	r.Synthesizer = answer.NewSynthesizer(client, modelName, r.log)
	if r.Pipeline == nil {
		r.Pipeline = pipeline.NewPipeline(nil)
	}
	r.Pipeline.SetNormalizer(answer.NewNormalizer(client, r.log).Normalize)
}

func (r *Refrag) setEmbedder(embedder pipeline.EmbedFunc) {
	if r.Pipeline == nil {
		r.Pipeline = pipeline.NewPipeline(embedder)
		return
	}
	r.Pipeline.Embedder = embedder
}

func (r *Refrag) embedFunc() pipeline.EmbedFunc {
	if r.Pipeline == nil || r.Pipeline.Embedder == nil {
		return nil
	}
	return r.Pipeline.Embed
}

// InsertSection stores a rule section. A section without embedding is
// embedded with the pipeline first.
func (r *Refrag) InsertSection(ctx context.Context, section *model.RuleSection) error {
	if section.SectionID == "" {
		return helper.NewError("insert section", fmt.Errorf("section id is empty"))
	}
	if len(section.Embedding) == 0 {
		if embed := r.embedFunc(); embed != nil {
			embedding, err := embed(ctx, section.Content)
			if err != nil {
				return helper.NewError("embed section", err)
			}
			section.Embedding = embedding
		}
	}

	if err := r.Sections.InsertSection(ctx, section); err != nil {
		return helper.NewError("insert section", err)
	}

	r.log.Debug("Inserted section", slog.String("section_id", section.SectionID))
	return nil
}

func (r *Refrag) queryConfig(limit int) *model.QueryConfig {
	config := r.Settings.Query
	if limit > 0 {
		config.TopK = limit
	}
	return &config
}

// Search performs hybrid retrieval and returns at most limit results
// ordered by combined score. A limit of zero uses the configured TopK.
// The question is width folded first, like every search below.
func (r *Refrag) Search(ctx context.Context, question string, limit int) ([]*model.SearchResult, error) {
	question = pipeline.NormalizeQuestion(question)
	strategy := retrieval.NewHybridStrategy(r.Engine, r.embedFunc())
	return strategy.Retrieve(ctx, question, r.queryConfig(limit))
}

// VectorSearch performs vector-only retrieval
func (r *Refrag) VectorSearch(ctx context.Context, question string, limit int) ([]*model.SearchResult, error) {
	question = pipeline.NormalizeQuestion(question)
	strategy := retrieval.NewVectorOnlyStrategy(r.Engine, r.embedFunc())
	return strategy.Retrieve(ctx, question, r.queryConfig(limit))
}

// KeywordSearch performs keyword-only retrieval, usable without embedder
func (r *Refrag) KeywordSearch(ctx context.Context, question string, limit int) ([]*model.SearchResult, error) {
	question = pipeline.NormalizeQuestion(question)
	strategy := retrieval.NewKeywordOnlyStrategy(r.Engine)
	return strategy.Retrieve(ctx, question, r.queryConfig(limit))
}

// Classify grades a ranked result list
func (r *Refrag) Classify(results []*model.SearchResult, question string) model.ConfidenceInfo {
	return r.Classifier.Classify(results, pipeline.NormalizeQuestion(question))
}

// SearchWithConfidence searches and grades the results. The alternative is
// set when the top two results are too close to call.
func (r *Refrag) SearchWithConfidence(ctx context.Context, question string, limit int) (*model.SearchOutcome, error) {
	question = pipeline.NormalizeQuestion(question)
	results, err := r.Search(ctx, question, limit)
	if err != nil {
		return nil, err
	}
	return r.Classifier.Outcome(results, question), nil
}

// EnhancedSearch retries a weak search with the key terms of the question
// and reports the detailed conditions the top result does not meet.
func (r *Refrag) EnhancedSearch(ctx context.Context, question string) (*model.SearchOutcome, error) {
	question = pipeline.NormalizeQuestion(question)
	matcher := r.Engine.Matcher()
	strategy := retrieval.NewTwoStageStrategy(retrieval.NewHybridStrategy(r.Engine, r.embedFunc()), matcher)
	results, err := strategy.Retrieve(ctx, question, r.queryConfig(0))
	if err != nil {
		return nil, err
	}

	outcome := r.Classifier.Outcome(results, question)
	if len(results) > 0 {
		outcome.Issues = matcher.CheckConditions(question, results[0].Content)
	}
	return outcome, nil
}

// Ask normalizes the question, searches, grades and synthesizes an answer.
// The exchange is written to the query log; failing to do so is logged
// but does not fail the answer.
func (r *Refrag) Ask(ctx context.Context, question string) (*model.Answer, error) {
	if r.Synthesizer == nil {
		return nil, helper.NewError("ask", fmt.Errorf("synthesizer not set, use SetChatModel() first"))
	}
	start := time.Now()

	normalized, err := r.Pipeline.PrepareQuestion(ctx, question)
	if err != nil {
		r.log.Warn("Question normalization failed", slog.String("error", err.Error()))
	}

	outcome, err := r.SearchWithConfidence(ctx, normalized, AskLimit)
	if err != nil {
		return nil, helper.NewError("search", err)
	}

	ans, err := r.Synthesizer.Synthesize(ctx, question, normalized, outcome)
	if err != nil {
		return nil, helper.NewError("synthesize answer", err)
	}

	elapsed := time.Since(start)
	r.log.Info("Answered question",
		slog.String("grade", string(ans.Confidence.Grade)),
		slog.Int("results", len(ans.Results)),
		slog.Duration("elapsed", elapsed),
	)

	entry := &model.QueryLog{
		Question:           question,
		NormalizedQuestion: normalized,
		Answer:             ans.Text,
		RawAnswer:          ans.RawText,
		RagResults:         ans.Results,
		ConfidenceGrade:    ans.Confidence.Grade,
		ResponseTimeMs:     elapsed.Milliseconds(),
		ModelUsed:          ans.Model,
	}
	if err := r.QueryLogs.InsertQueryLog(ctx, entry); err != nil {
		r.log.Error("Failed to write query log", slog.String("error", err.Error()))
	}

	return ans, nil
}

// RecentQueryLogs returns the query logs since the given time, newest first
func (r *Refrag) RecentQueryLogs(ctx context.Context, since time.Time, limit int) ([]*model.QueryLog, error) {
	return r.QueryLogs.SelectQueryLogs(ctx, since, limit)
}

// ChangeIndexType changes the vector index type between HNSW and IVFFlat
func (r *Refrag) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	return r.Sections.ChangeIndexType(ctx, indexType, params)
}
