// Package database coordinates SQL generation and execution across the
// configured external databases. Each connection declares a dialect; the
// dialect strategy owns quoting, pagination, and the generation guidance
// that keeps the LLM inside that dialect's grammar.
package database

import (
	"fmt"
	"strings"

	smarterrors "github.com/byerlikaya/SmartRAG-sub013/errors"
)

// Dialect identifiers accepted in DATABASE_CONNECTIONS.
const (
	DialectSQLite    = "sqlite"
	DialectPostgres  = "postgres"
	DialectMySQL     = "mysql"
	DialectSQLServer = "sqlserver"
)

// DialectStrategy abstracts the per-engine SQL surface.
type DialectStrategy interface {
	Name() string
	// DriverName is the database/sql driver this dialect opens with.
	DriverName() string
	QuoteIdentifier(name string) string
	// PaginationClause caps a SELECT at limit rows in this dialect's syntax.
	PaginationClause(limit int) string
	// PromptGuidance is injected into the SQL generation prompt.
	PromptGuidance() string
	// ForbiddenKeywords are constructs from OTHER dialects that signal the
	// generator drifted out of this one.
	ForbiddenKeywords() []string
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string       { return DialectSQLite }
func (sqliteDialect) DriverName() string { return "sqlite3" }
func (sqliteDialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
func (sqliteDialect) PaginationClause(limit int) string { return fmt.Sprintf("LIMIT %d", limit) }
func (sqliteDialect) PromptGuidance() string {
	return "Use SQLite syntax. Quote identifiers with double quotes. Use LIMIT for row caps. Do not use TOP, FETCH FIRST, or stored procedures."
}
func (sqliteDialect) ForbiddenKeywords() []string {
	return []string{"TOP ", "FETCH FIRST", "FETCH NEXT", "ROWNUM"}
}

type postgresDialect struct{}

func (postgresDialect) Name() string       { return DialectPostgres }
func (postgresDialect) DriverName() string { return "pgx" }
func (postgresDialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
func (postgresDialect) PaginationClause(limit int) string { return fmt.Sprintf("LIMIT %d", limit) }
func (postgresDialect) PromptGuidance() string {
	return "Use PostgreSQL syntax. Quote identifiers with double quotes. Use LIMIT for row caps and ILIKE for case-insensitive matching. Do not use TOP or backtick quoting."
}
func (postgresDialect) ForbiddenKeywords() []string {
	return []string{"TOP ", "ROWNUM", "`"}
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string       { return DialectMySQL }
func (mysqlDialect) DriverName() string { return "mysql" }
func (mysqlDialect) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
func (mysqlDialect) PaginationClause(limit int) string { return fmt.Sprintf("LIMIT %d", limit) }
func (mysqlDialect) PromptGuidance() string {
	return "Use MySQL syntax. Quote identifiers with backticks. Use LIMIT for row caps. Do not use TOP, FETCH FIRST, or double-quoted identifiers."
}
func (mysqlDialect) ForbiddenKeywords() []string {
	return []string{"TOP ", "FETCH FIRST", "FETCH NEXT", "ROWNUM", "ILIKE"}
}

type sqlserverDialect struct{}

func (sqlserverDialect) Name() string       { return DialectSQLServer }
func (sqlserverDialect) DriverName() string { return "sqlserver" }
func (sqlserverDialect) QuoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}
func (sqlserverDialect) PaginationClause(limit int) string {
	return fmt.Sprintf("OFFSET 0 ROWS FETCH NEXT %d ROWS ONLY", limit)
}
func (sqlserverDialect) PromptGuidance() string {
	return "Use SQL Server (T-SQL) syntax. Quote identifiers with square brackets. Cap rows with TOP or OFFSET/FETCH, never LIMIT. Do not use backtick quoting or ILIKE."
}
func (sqlserverDialect) ForbiddenKeywords() []string {
	return []string{"LIMIT ", "ILIKE", "`", "ROWNUM"}
}

var dialects = map[string]DialectStrategy{
	DialectSQLite:    sqliteDialect{},
	DialectPostgres:  postgresDialect{},
	DialectMySQL:     mysqlDialect{},
	DialectSQLServer: sqlserverDialect{},
}

// DialectFor resolves a connection's declared type to its strategy.
// Common aliases (postgresql, mssql) are accepted.
func DialectFor(dbType string) (DialectStrategy, error) {
	key := strings.ToLower(strings.TrimSpace(dbType))
	switch key {
	case "postgresql", "pgsql":
		key = DialectPostgres
	case "mssql", "sql server":
		key = DialectSQLServer
	}
	d, ok := dialects[key]
	if !ok {
		return nil, smarterrors.Wrapf(smarterrors.ErrInvalidConfiguration, "unsupported database type %q", dbType)
	}
	return d, nil
}
