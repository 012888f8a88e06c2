package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/siherrmann/refrag"
	"github.com/siherrmann/refrag/core/answer"
	"github.com/siherrmann/refrag/core/keyword"
	"github.com/siherrmann/refrag/core/pipeline"
	"github.com/siherrmann/refrag/helper"
	"github.com/siherrmann/refrag/model"
	"github.com/urfave/cli/v2"
)

var logger = slog.Default()

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "refrag",
		Usage: "Answer basketball rule questions from the JBA rulebook",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML file with query and confidence settings",
			},
			&cli.StringFlag{
				Name:  "vocabulary",
				Usage: "YAML file replacing the built-in domain vocabulary",
			},
			&cli.BoolFlag{
				Name:  "local-embedder",
				Usage: "Embed with the local multilingual model instead of OpenAI",
			},
			&cli.IntFlag{
				Name:  "embedding-dim",
				Usage: "Dimension of the stored embeddings (0 picks the embedder default)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Search rule sections and grade the result",
				ArgsUsage: "QUESTION",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results",
						Value:   5,
					},
					&cli.BoolFlag{
						Name:  "keyword-only",
						Usage: "Search without embeddings",
					},
					&cli.BoolFlag{
						Name:  "enhanced",
						Usage: "Retry weak results with the key terms of the question",
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "Answer a question with the chat model",
				ArgsUsage: "QUESTION",
				Action:    askCommand,
			},
			{
				Name:   "logs",
				Usage:  "List recent query logs",
				Action: logsCommand,
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "since",
						Usage: "Show logs of this period",
						Value: 24 * time.Hour,
					},
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of logs",
						Value:   20,
					},
				},
			},
			{
				Name:      "index",
				Usage:     "Change the vector index type",
				ArgsUsage: "hnsw|ivfflat",
				Action:    indexCommand,
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))
	switch levelStr {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger = helper.NewLogger(os.Stderr, helper.ParseLogLevel(levelStr))
	slog.SetDefault(logger)
	return nil
}

// connect loads the environment, opens the database and sets up the
// embedder. The chat model is only set up when withChat is true.
func connect(c *cli.Context, withChat bool) (*refrag.Refrag, error) {
	if err := helper.LoadEnvFiles(".env.local", ".env"); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}

	settings := model.DefaultSettings()
	if path := c.String("config"); path != "" {
		var err error
		settings, err = model.LoadSettings(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load settings: %w", err)
		}
	}

	dbConfig, err := helper.NewDatabaseConfiguration()
	if err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	local := c.Bool("local-embedder") || apiKey == ""

	dim := c.Int("embedding-dim")
	if dim == 0 {
		dim = pipeline.OpenAIEmbeddingDim
		if local {
			dim = pipeline.DefaultEmbeddingDim
		}
	}

	r, err := refrag.NewRefragWithLogger(dbConfig, dim, logger)
	if err != nil {
		return nil, err
	}

	if err := r.SetSettings(settings); err != nil {
		r.Close()
		return nil, err
	}

	if path := c.String("vocabulary"); path != "" {
		vocab, err := keyword.LoadVocabulary(path)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("failed to load vocabulary: %w", err)
		}
		if err := r.SetVocabulary(vocab); err != nil {
			r.Close()
			return nil, err
		}
	}

	if local {
		err = r.UseDefaultPipeline()
	} else {
		err = r.UseOpenAIPipeline(pipeline.OpenAIConfig{
			APIKey: apiKey,
			Model:  os.Getenv("REFRAG_EMBEDDING_MODEL"),
		})
	}
	if err != nil {
		r.Close()
		return nil, err
	}

	if withChat {
		if apiKey == "" {
			r.Close()
			return nil, fmt.Errorf("OPENAI_API_KEY is required to answer questions")
		}
		err := r.UseOpenAIChat(answer.OpenAIConfig{
			APIKey: apiKey,
			Model:  os.Getenv("REFRAG_CHAT_MODEL"),
		})
		if err != nil {
			r.Close()
			return nil, err
		}
	}

	return r, nil
}

func questionArg(c *cli.Context) (string, error) {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return "", fmt.Errorf("question is required")
	}
	return question, nil
}

// userError turns err into an exit error carrying the message for its
// category.
func userError(err error) error {
	logger.Error("request failed", "err", err)
	return cli.Exit(refrag.Categorize(err).Message(), 1)
}

func searchCommand(c *cli.Context) error {
	question, err := questionArg(c)
	if err != nil {
		return err
	}

	r, err := connect(c, false)
	if err != nil {
		return userError(err)
	}
	defer r.Close()

	ctx := context.Background()
	var outcome *model.SearchOutcome
	switch {
	case c.Bool("enhanced"):
		outcome, err = r.EnhancedSearch(ctx, question)
	case c.Bool("keyword-only"):
		var results []*model.SearchResult
		results, err = r.KeywordSearch(ctx, question, c.Int("limit"))
		if err == nil {
			outcome = r.Classifier.Outcome(results, pipeline.NormalizeQuestion(question))
		}
	default:
		outcome, err = r.SearchWithConfidence(ctx, question, c.Int("limit"))
	}
	if err != nil {
		return userError(err)
	}

	printOutcome(c.App.Writer, outcome)
	return nil
}

func askCommand(c *cli.Context) error {
	question, err := questionArg(c)
	if err != nil {
		return err
	}

	r, err := connect(c, true)
	if err != nil {
		return userError(err)
	}
	defer r.Close()

	ans, err := r.Ask(context.Background(), question)
	if err != nil {
		return userError(err)
	}

	printAnswer(c.App.Writer, ans)
	return nil
}

func logsCommand(c *cli.Context) error {
	r, err := connect(c, false)
	if err != nil {
		return userError(err)
	}
	defer r.Close()

	entries, err := r.RecentQueryLogs(context.Background(), time.Now().Add(-c.Duration("since")), c.Int("limit"))
	if err != nil {
		return userError(err)
	}

	printLogs(c.App.Writer, entries)
	return nil
}

func indexCommand(c *cli.Context) error {
	indexType := c.Args().First()
	if indexType == "" {
		return fmt.Errorf("index type is required")
	}

	r, err := connect(c, false)
	if err != nil {
		return userError(err)
	}
	defer r.Close()

	if err := r.ChangeIndexType(context.Background(), indexType, nil); err != nil {
		return userError(err)
	}
	fmt.Fprintf(c.App.Writer, "Vector index changed to %s\n", indexType)
	return nil
}

func gradeColor(g model.Grade) *color.Color {
	switch g {
	case model.GradeAPlus, model.GradeA:
		return color.New(color.FgGreen, color.Bold)
	case model.GradeB:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

func printOutcome(w io.Writer, outcome *model.SearchOutcome) {
	gradeColor(outcome.Confidence.Grade).Fprintf(w, "[%s] %s\n", outcome.Confidence.Grade, outcome.Confidence.Description)
	if len(outcome.Results) == 0 {
		return
	}

	fmt.Fprintln(w)
	for i, r := range outcome.Results {
		fmt.Fprintf(w, "%2d. %-40s %-7s combined=%.3f sim=%.3f rank=%d phrase=%.3f\n",
			i+1, r.Label(), r.Source, r.CombinedScore, r.Similarity, r.RankScore, r.PhraseScore)
	}

	if outcome.Alternative != nil {
		fmt.Fprintf(w, "\nAlternative: %s\n", outcome.Alternative.Label())
	}
	for _, issue := range outcome.Issues {
		color.New(color.FgYellow).Fprintf(w, "! %s\n", issue)
	}
}

func printAnswer(w io.Writer, ans *model.Answer) {
	gradeColor(ans.Confidence.Grade).Fprintf(w, "[%s] %s\n\n", ans.Confidence.Grade, ans.Confidence.Description)
	fmt.Fprintln(w, ans.Text)

	if len(ans.RelatedQuestions) > 0 {
		fmt.Fprintln(w, "\n関連する質問候補:")
		for i, q := range ans.RelatedQuestions {
			fmt.Fprintf(w, "  %d. %s\n", i+1, q)
		}
	}

	if len(ans.Results) > 0 {
		fmt.Fprintln(w, "\n参照した条文:")
		for i, r := range ans.Results {
			fmt.Fprintf(w, "  %d. %s (%.3f)\n", i+1, r.Label(), r.CombinedScore)
		}
	}
}

func printLogs(w io.Writer, entries []*model.QueryLog) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No query logs")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s  [%-2s] %5dms  %s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.ConfidenceGrade, e.ResponseTimeMs, e.Question)
	}
}
