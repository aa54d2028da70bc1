package tools

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// sqliteDriver is overridable so tests can use a pure-Go driver while
// production registers mattn/go-sqlite3 via blank import in main.
var sqliteDriver = "sqlite3"

// RegisterDBTools attaches the SQL query tools.
func RegisterDBTools(r *Registry) {
	r.Register(&Tool{
		Name:        "query_sqlite",
		Description: "Run a SQL query against a local SQLite database file. Returns rows as JSON.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"db_path": map[string]any{
					"type":        "string",
					"description": "Absolute path of the SQLite database file",
				},
				"query": map[string]any{
					"type":        "string",
					"description": "SQL to execute",
				},
			},
			"required": []string{"db_path", "query"},
		},
		Handler: handleQuerySQLite,
	})

	r.Register(&Tool{
		Name:        "query_mysql",
		Description: "Run a SQL query against a MySQL server. SELECT-like statements return rows as JSON; other statements report rows_affected.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query":    map[string]any{"type": "string", "description": "SQL to execute"},
				"host":     map[string]any{"type": "string", "description": "Database host"},
				"user":     map[string]any{"type": "string", "description": "Database user"},
				"password": map[string]any{"type": "string", "description": "Database password"},
				"database": map[string]any{
					"type":        "string",
					"description": "Database name; optional for server-level queries like SHOW DATABASES",
				},
				"port": map[string]any{"type": "integer", "description": "Database port (default 3306)"},
			},
			"required": []string{"query", "host", "user", "password"},
		},
		Handler: handleQueryMySQL,
	})
}

func handleQuerySQLite(ctx context.Context, args map[string]any) (string, error) {
	dbPath := StringArg(args, "db_path")
	query := StringArg(args, "query")
	if dbPath == "" || query == "" {
		return "", fmt.Errorf("db_path and query are required")
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return "", fmt.Errorf("database file not found: %s", dbPath)
	}

	db, err := sql.Open(sqliteDriver, dbPath)
	if err != nil {
		return "", fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	return runQuery(ctx, db, query)
}

func handleQueryMySQL(ctx context.Context, args map[string]any) (string, error) {
	query := StringArg(args, "query")
	host := StringArg(args, "host")
	user := StringArg(args, "user")
	if query == "" || host == "" || user == "" {
		return "", fmt.Errorf("query, host, and user are required")
	}

	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", host, IntArg(args, "port", 3306))
	cfg.User = user
	cfg.Passwd = StringArg(args, "password")
	cfg.DBName = StringArg(args, "database")
	cfg.ParseTime = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return "", fmt.Errorf("open connection: %w", err)
	}
	defer db.Close()

	if isReadQuery(query) {
		return runQuery(ctx, db, query)
	}

	res, err := db.ExecContext(ctx, query)
	if err != nil {
		return "", fmt.Errorf("execute query: %w", err)
	}
	affected, _ := res.RowsAffected()
	out, err := json.Marshal(map[string]any{
		"status":        "success",
		"rows_affected": affected,
	})
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(out), nil
}

// isReadQuery reports whether the statement produces a row set rather
// than modifying data.
func isReadQuery(query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	for _, prefix := range []string{"SELECT", "SHOW", "DESCRIBE", "EXPLAIN"} {
		if strings.HasPrefix(q, prefix) {
			return true
		}
	}
	return false
}

// runQuery executes a row-producing statement and marshals the rows as
// a JSON array of column-to-value objects.
func runQuery(ctx context.Context, db *sql.DB, query string) (string, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return "", fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return "", fmt.Errorf("read columns: %w", err)
	}

	results := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return "", fmt.Errorf("scan row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			v := values[i]
			// Drivers return TEXT columns as []byte; keep them readable.
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate rows: %w", err)
	}

	out, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("marshal rows: %w", err)
	}
	return string(out), nil
}
