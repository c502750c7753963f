package db

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/m-sorano/ai-cafe/internal/apperr"
)

// SQLResult is the outcome of ExecuteSQL: rows for queries, a count for
// other statements.
type SQLResult struct {
	Rows         []map[string]interface{} `json:"rows,omitempty"`
	RowsAffected int64                    `json:"rows_affected"`
}

var rowReturningPrefixes = []string{"SELECT", "WITH", "PRAGMA", "EXPLAIN", "VALUES", "SHOW"}

func returnsRows(query string) bool {
	upper := strings.ToUpper(strings.TrimSpace(query))
	for _, p := range rowReturningPrefixes {
		if strings.HasPrefix(upper, p) {
			return true
		}
	}
	return strings.Contains(upper, " RETURNING ")
}

// ExecuteSQL runs an arbitrary administrative statement against the store.
// Callers are responsible for authorization.
func (r *Repository) ExecuteSQL(ctx context.Context, query string) (*SQLResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Validation("SQL query is required")
	}

	if !returnsRows(query) {
		res, err := r.db.ExecContext(ctx, query)
		if err != nil {
			return nil, apperr.Remote(err, "execute sql")
		}
		return execResult(res)
	}

	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, apperr.Remote(err, "execute sql")
	}
	defer rows.Close()

	result := &SQLResult{Rows: []map[string]interface{}{}}
	for rows.Next() {
		row := map[string]interface{}{}
		if err := rows.MapScan(row); err != nil {
			return nil, apperr.Remote(err, "scan sql result")
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Remote(err, "read sql result")
	}
	result.RowsAffected = int64(len(result.Rows))
	return result, nil
}

func execResult(res sql.Result) (*SQLResult, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return nil, apperr.Remote(err, "rows affected")
	}
	return &SQLResult{RowsAffected: n}, nil
}

// SplitStatements removes "--" comment lines and blank lines from a script
// and splits it on semicolons.
func SplitStatements(script string) []string {
	var kept []string
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		kept = append(kept, line)
	}

	var statements []string
	for _, stmt := range strings.Split(strings.Join(kept, "\n"), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}

// ScriptResult summarizes a chunked script run.
type ScriptResult struct {
	Succeeded int
	Failed    int
	Errors    []error
}

// ExecuteScript runs each statement of a script in order and keeps going
// after failures.
func (r *Repository) ExecuteScript(ctx context.Context, script string) *ScriptResult {
	result := &ScriptResult{}
	for i, stmt := range SplitStatements(script) {
		if _, err := r.ExecuteSQL(ctx, stmt); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, errors.Wrapf(err, "statement %d", i+1))
			continue
		}
		result.Succeeded++
	}
	return result
}
