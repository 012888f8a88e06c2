package main

import (
	"context"
	"fmt"
	"log"

	"github.com/siherrmann/refrag"
	"github.com/siherrmann/refrag/core/pipeline"
	"github.com/siherrmann/refrag/helper"
	"github.com/siherrmann/refrag/model"
)

var sampleSections = []*model.RuleSection{
	{
		SectionID:   "第12条",
		SectionName: "ジャンプボールとオルタネイティングポゼッション",
		Content:     "ヘルドボールの間にボールがアウトオブバウンズになった場合はジャンプボールシチュエーションとなる。ジャンプボールシチュエーションではオルタネイティングポゼッションによってスローインが与えられる。",
	},
	{
		SectionID:   "第23条",
		SectionName: "プレーヤーのアウトオブバウンズ、ボールのアウトオブバウンズ",
		Content:     "プレーヤーがアウトオブバウンズの床に触れたときはアウトオブバウンズとなる。ボールがアウトオブバウンズのプレーヤーに触れたときもアウトオブバウンズとなる。",
	},
	{
		SectionID:   "第25条",
		SectionName: "トラベリング",
		Content:     "トラベリングとは、コート上でライブのボールを持ったまま、定められた制限を超えて片足あるいは両足を動かすことをいう。",
	},
	{
		SectionID:   "第29条",
		SectionName: "ショットクロック",
		Content:     "ショットクロックがリセットされる場合、フロントコートでスローインが与えられるときはショットクロックを14秒にリセットする。",
	},
}

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	r, err := refrag.NewRefrag(dbConfig, pipeline.DefaultEmbeddingDim)
	if err != nil {
		log.Fatalf("Failed to create refrag: %v", err)
	}
	defer r.Close()

	// Local multilingual embeddings, no api key needed
	if err := r.UseDefaultPipeline(); err != nil {
		log.Fatalf("Failed to set up pipeline: %v", err)
	}

	ctx := context.Background()
	fmt.Println("Inserting rule sections...")
	for _, s := range sampleSections {
		if err := r.InsertSection(ctx, s); err != nil {
			log.Fatalf("Failed to insert section %s: %v", s.SectionID, err)
		}
	}

	for _, question := range []string{
		"ヘルドボールの間にボールがアウトオブバウンズになったらどうなりますか？",
		"トラベリングとは何ですか",
	} {
		fmt.Printf("\nQuestion: %s\n", question)

		outcome, err := r.SearchWithConfidence(ctx, question, 3)
		if err != nil {
			log.Fatalf("Search failed (%s): %v", refrag.Categorize(err), err)
		}

		fmt.Printf("Confidence: %s (%s)\n", outcome.Confidence.Grade, outcome.Confidence.Description)
		for i, result := range outcome.Results {
			fmt.Printf("  %d. %s [%s] combined=%.3f sim=%.3f rank=%d phrase=%.3f\n",
				i+1, result.Label(), result.Source, result.CombinedScore, result.Similarity, result.RankScore, result.PhraseScore)
		}
		if outcome.Alternative != nil {
			fmt.Printf("  Alternative: %s\n", outcome.Alternative.Label())
		}
	}
}
