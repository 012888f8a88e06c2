package database

import (
	"context"
	"fmt"
	"time"

	"github.com/siherrmann/refrag/helper"
)

// ChangeIndexType changes the vector index of rule_sections between HNSW and IVFFlat
// indexType: "hnsw" or "ivfflat"
// params: optional parameters for index creation
//   - For HNSW: "m" (int, default 16), "ef_construction" (int, default 64)
//   - For IVFFlat: "lists" (int, default 100)
func (h *SectionsDBHandler) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	var createIndexSQL string

	switch indexType {
	case "hnsw":
		m := intParam(params, "m", 16)
		efConstruction := intParam(params, "ef_construction", 64)
		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX idx_rule_sections_embedding ON rule_sections USING hnsw (embedding vector_cosine_ops) WITH (m = %d, ef_construction = %d);`,
			m, efConstruction,
		)

	case "ivfflat":
		lists := intParam(params, "lists", 100)
		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX idx_rule_sections_embedding ON rule_sections USING ivfflat (embedding vector_cosine_ops) WITH (lists = %d);`,
			lists,
		)

	default:
		return helper.NewError("change index type", fmt.Errorf("unsupported index type: %s (use 'hnsw' or 'ivfflat')", indexType))
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return helper.NewError("begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `DROP INDEX IF EXISTS idx_rule_sections_embedding;`)
	if err != nil {
		return helper.NewError("drop index", err)
	}

	_, err = tx.ExecContext(ctx, createIndexSQL)
	if err != nil {
		return helper.NewError("create index", err)
	}

	if err := tx.Commit(); err != nil {
		return helper.NewError("commit index change", err)
	}

	h.db.Logger.Info("Changed vector index", "type", indexType, "params", params)

	return nil
}

func intParam(params map[string]interface{}, key string, def int) int {
	if v, ok := params[key].(int); ok && v > 0 {
		return v
	}
	return def
}
