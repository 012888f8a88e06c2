package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed rule_sections.sql
var ruleSectionsSQL string

//go:embed query_logs.sql
var queryLogsSQL string

// Function lists for verification
var RuleSectionsFunctions = []string{
	"init_rule_sections",
	"insert_rule_section",
	"select_rule_section",
	"count_rule_sections",
	"delete_rule_section",
	"update_rule_section_embedding",
	"select_rule_sections_by_similarity",
	"select_rule_sections_by_any_keyword",
	"select_rule_sections_by_all_keywords",
}

var QueryLogsFunctions = []string{
	"init_query_logs",
	"insert_query_log",
	"select_query_logs",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadRuleSectionsSql loads rule section SQL functions
func LoadRuleSectionsSql(db *sql.DB, force bool) error {
	return loadFunctions(db, "rule sections", ruleSectionsSQL, RuleSectionsFunctions, force)
}

// LoadQueryLogsSql loads query log SQL functions
func LoadQueryLogsSql(db *sql.DB, force bool) error {
	return loadFunctions(db, "query logs", queryLogsSQL, QueryLogsFunctions, force)
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadRuleSectionsSql(db, force); err != nil {
		return err
	}

	if err := LoadQueryLogsSql(db, force); err != nil {
		return err
	}

	return nil
}

// loadFunctions executes script unless all functions already exist and
// force is false, then verifies that all functions were created.
func loadFunctions(db *sql.DB, name string, script string, functions []string, force bool) error {
	if !force {
		exist, err := checkFunctions(db, functions)
		if err != nil {
			return fmt.Errorf("error checking existing %s functions: %w", name, err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(script)
	if err != nil {
		return fmt.Errorf("error executing %s SQL: %w", name, err)
	}

	exist, err := checkFunctions(db, functions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Printf("SQL %s functions loaded successfully", name)
	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
