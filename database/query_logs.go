package database

import (
	"context"
	"fmt"
	"time"

	"github.com/siherrmann/refrag/helper"
	"github.com/siherrmann/refrag/model"
	loadSql "github.com/siherrmann/refrag/sql"
)

// QueryLogsDBHandler stores answered questions.
type QueryLogsDBHandler struct {
	db *helper.Database
}

// NewQueryLogsDBHandler creates a new query logs database handler.
// If force is true, it will reload the SQL functions even if they already exist.
func NewQueryLogsDBHandler(db *helper.Database, force bool) (*QueryLogsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	err := loadSql.LoadQueryLogsSql(db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load query logs sql", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = db.Instance.ExecContext(ctx, `SELECT init_query_logs();`)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized QueryLogsDBHandler")

	return &QueryLogsDBHandler{db: db}, nil
}

// InsertQueryLog inserts a log entry and sets its ID, RID and CreatedAt.
func (h *QueryLogsDBHandler) InsertQueryLog(ctx context.Context, entry *model.QueryLog) error {
	if entry.RagCount == 0 {
		entry.RagCount = len(entry.RagResults)
	}

	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM insert_query_log($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.Question,
		entry.NormalizedQuestion,
		entry.Answer,
		entry.RawAnswer,
		entry.RagResults,
		entry.RagCount,
		string(entry.ConfidenceGrade),
		entry.ResponseTimeMs,
		entry.ModelUsed,
	)

	err := row.Scan(&entry.ID, &entry.RID, &entry.CreatedAt)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectQueryLogs returns entries created at or after since, newest first.
func (h *QueryLogsDBHandler) SelectQueryLogs(ctx context.Context, since time.Time, limit int) ([]*model.QueryLog, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_query_logs($1, $2)`,
		since,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var entries []*model.QueryLog
	for rows.Next() {
		entry := &model.QueryLog{}
		var grade string
		err := rows.Scan(
			&entry.ID,
			&entry.RID,
			&entry.Question,
			&entry.NormalizedQuestion,
			&entry.Answer,
			&entry.RawAnswer,
			&entry.RagResults,
			&entry.RagCount,
			&grade,
			&entry.ResponseTimeMs,
			&entry.ModelUsed,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		entry.ConfidenceGrade = model.Grade(grade)

		entries = append(entries, entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entries, nil
}
