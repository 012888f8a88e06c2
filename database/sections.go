package database

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/refrag/helper"
	"github.com/siherrmann/refrag/model"
	loadSql "github.com/siherrmann/refrag/sql"
)

// SectionsDBHandlerFunctions defines the interface for rule section database operations.
type SectionsDBHandlerFunctions interface {
	InsertSection(ctx context.Context, section *model.RuleSection) error
	SelectSection(ctx context.Context, sectionID string) (*model.RuleSection, error)
	DeleteSection(ctx context.Context, sectionID string) error
	UpdateSectionEmbedding(ctx context.Context, sectionID string, embedding []float32) error
	CountSections(ctx context.Context) (int, error)
	SelectSectionsBySimilarity(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*model.RuleSection, error)
	SelectSectionsByAnyKeyword(ctx context.Context, keywords []string, limit int) ([]*model.RuleSection, error)
	SelectSectionsByAllKeywords(ctx context.Context, keywords []string, limit int) ([]*model.RuleSection, error)
}

// SectionsDBHandler handles rule section database operations.
// It serves both as vector store and as keyword store of the retriever.
type SectionsDBHandler struct {
	db *helper.Database
}

// NewSectionsDBHandler creates a new rule sections database handler.
// It loads the rule section SQL functions and creates the table.
// If force is true, it will reload the SQL functions even if they already exist.
func NewSectionsDBHandler(db *helper.Database, embeddingDim int, force bool) (*SectionsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	sectionsDbHandler := &SectionsDBHandler{
		db: db,
	}

	err := loadSql.LoadRuleSectionsSql(sectionsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load rule sections sql", err)
	}

	err = sectionsDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized SectionsDBHandler")

	return sectionsDbHandler, nil
}

// CreateTable creates the 'rule_sections' table with its vector index.
// If the table already exists, it does not create it again.
func (h *SectionsDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_rule_sections($1);`, embeddingDim)
	if err != nil {
		log.Panicf("error initializing rule_sections table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table rule_sections")

	return nil
}

// InsertSection inserts a section or replaces the one with the same section id.
func (h *SectionsDBHandler) InsertSection(ctx context.Context, section *model.RuleSection) error {
	var embedding interface{}
	if len(section.Embedding) > 0 {
		embedding = pq.Array(section.Embedding)
	}
	metadata := section.Metadata
	if metadata == nil {
		metadata = model.Metadata{}
	}

	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM insert_rule_section($1, $2, $3, $4, $5)`,
		section.SectionID,
		section.SectionName,
		section.Content,
		embedding,
		metadata,
	)

	err := row.Scan(
		&section.ID,
		&section.SectionID,
		&section.SectionName,
		&section.Content,
		pq.Array(&section.Embedding),
		&section.Metadata,
		&section.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectSection retrieves a section by its section id
func (h *SectionsDBHandler) SelectSection(ctx context.Context, sectionID string) (*model.RuleSection, error) {
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM select_rule_section($1)`,
		sectionID,
	)

	section := &model.RuleSection{}
	err := row.Scan(
		&section.ID,
		&section.SectionID,
		&section.SectionName,
		&section.Content,
		pq.Array(&section.Embedding),
		&section.Metadata,
		&section.CreatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return section, nil
}

// DeleteSection deletes a section by its section id
func (h *SectionsDBHandler) DeleteSection(ctx context.Context, sectionID string) error {
	_, err := h.db.Instance.ExecContext(
		ctx,
		`SELECT delete_rule_section($1)`,
		sectionID,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// UpdateSectionEmbedding replaces the embedding of a section
func (h *SectionsDBHandler) UpdateSectionEmbedding(ctx context.Context, sectionID string, embedding []float32) error {
	_, err := h.db.Instance.ExecContext(
		ctx,
		`SELECT update_rule_section_embedding($1, $2)`,
		sectionID,
		pgvector.NewVector(embedding),
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// CountSections returns the number of stored sections
func (h *SectionsDBHandler) CountSections(ctx context.Context) (int, error) {
	var count int
	err := h.db.Instance.QueryRowContext(ctx, `SELECT count_rule_sections()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}

// SelectSectionsBySimilarity returns up to limit sections ordered by
// descending cosine similarity, ties broken by section id.
func (h *SectionsDBHandler) SelectSectionsBySimilarity(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*model.RuleSection, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_rule_sections_by_similarity($1, $2, $3)`,
		pgvector.NewVector(embedding),
		limit,
		threshold,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var sections []*model.RuleSection
	for rows.Next() {
		section := &model.RuleSection{}
		var similarity float64
		err := rows.Scan(
			&section.ID,
			&section.SectionID,
			&section.SectionName,
			&section.Content,
			&section.Metadata,
			&section.CreatedAt,
			&similarity,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		section.Similarity = &similarity

		sections = append(sections, section)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return sections, nil
}

// SelectSectionsByAnyKeyword returns sections containing at least one of
// the keywords, case-insensitive.
func (h *SectionsDBHandler) SelectSectionsByAnyKeyword(ctx context.Context, keywords []string, limit int) ([]*model.RuleSection, error) {
	return h.selectSectionsByKeywords(ctx, `SELECT * FROM select_rule_sections_by_any_keyword($1, $2)`, keywords, limit)
}

// SelectSectionsByAllKeywords returns sections containing every keyword,
// case-insensitive.
func (h *SectionsDBHandler) SelectSectionsByAllKeywords(ctx context.Context, keywords []string, limit int) ([]*model.RuleSection, error) {
	return h.selectSectionsByKeywords(ctx, `SELECT * FROM select_rule_sections_by_all_keywords($1, $2)`, keywords, limit)
}

func (h *SectionsDBHandler) selectSectionsByKeywords(ctx context.Context, query string, keywords []string, limit int) ([]*model.RuleSection, error) {
	if len(keywords) == 0 {
		return nil, nil
	}

	patterns := make([]string, len(keywords))
	for i, k := range keywords {
		patterns[i] = "%" + escapeLike(k) + "%"
	}

	rows, err := h.db.Instance.QueryContext(ctx, query, pq.Array(patterns), limit)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var sections []*model.RuleSection
	for rows.Next() {
		section := &model.RuleSection{}
		err := rows.Scan(
			&section.ID,
			&section.SectionID,
			&section.SectionName,
			&section.Content,
			&section.Metadata,
			&section.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		sections = append(sections, section)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return sections, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike escapes the ILIKE wildcards of s. Backslash is the default
// escape character of postgres.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
