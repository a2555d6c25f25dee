package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	smarterrors "github.com/byerlikaya/SmartRAG-sub013/errors"
	"go.uber.org/zap"
)

// ColumnSchema describes one column of an analyzed table.
type ColumnSchema struct {
	Name     string `json:"name"`
	DataType string `json:"dataType"`
	Nullable bool   `json:"nullable"`
}

// TableSchema describes one table of an analyzed database.
type TableSchema struct {
	Name    string         `json:"name"`
	Columns []ColumnSchema `json:"columns"`
}

// DatabaseSchema is the analyzed structure of one configured connection,
// used to ground SQL generation prompts.
type DatabaseSchema struct {
	DatabaseID   string        `json:"databaseId"`
	DatabaseName string        `json:"databaseName"`
	Description  string        `json:"description,omitempty"`
	Dialect      string        `json:"dialect"`
	Tables       []TableSchema `json:"tables"`
	AnalyzedAt   time.Time     `json:"analyzedAt"`
}

// Describe renders the schema as prompt text: one line per table with its
// columns and types.
func (s *DatabaseSchema) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Database %q (id=%s, dialect=%s)", s.DatabaseName, s.DatabaseID, s.Dialect)
	if s.Description != "" {
		fmt.Fprintf(&b, ": %s", s.Description)
	}
	b.WriteString("\n")
	for _, t := range s.Tables {
		fmt.Fprintf(&b, "  table %s (", t.Name)
		for i, c := range t.Columns {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s %s", c.Name, c.DataType)
		}
		b.WriteString(")\n")
	}
	return b.String()
}

// TableNames lists the analyzed tables in stable order.
func (s *DatabaseSchema) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for _, t := range s.Tables {
		names = append(names, t.Name)
	}
	return names
}

// analyzeSchema reads table and column metadata through the engine's
// catalog views.
func analyzeSchema(ctx context.Context, db *sql.DB, dialect DialectStrategy) ([]TableSchema, error) {
	var query string
	switch dialect.Name() {
	case DialectSQLite:
		return analyzeSQLiteSchema(ctx, db)
	case DialectMySQL:
		query = `SELECT table_name, column_name, data_type, is_nullable
			 FROM information_schema.columns
			 WHERE table_schema = DATABASE()
			 ORDER BY table_name, ordinal_position`
	case DialectSQLServer:
		query = `SELECT table_name, column_name, data_type, is_nullable
			 FROM information_schema.columns
			 ORDER BY table_name, ordinal_position`
	default: // postgres
		query = `SELECT table_name, column_name, data_type, is_nullable
			 FROM information_schema.columns
			 WHERE table_schema = 'public'
			 ORDER BY table_name, ordinal_position`
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	defer rows.Close()

	byTable := make(map[string][]ColumnSchema)
	var order []string
	for rows.Next() {
		var table, column, dataType, nullable string
		if err := rows.Scan(&table, &column, &dataType, &nullable); err != nil {
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}
		if _, seen := byTable[table]; !seen {
			order = append(order, table)
		}
		byTable[table] = append(byTable[table], ColumnSchema{
			Name:     column,
			DataType: dataType,
			Nullable: strings.EqualFold(nullable, "YES"),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tables := make([]TableSchema, 0, len(order))
	for _, name := range order {
		tables = append(tables, TableSchema{Name: name, Columns: byTable[name]})
	}
	return tables, nil
}

func analyzeSQLiteSchema(ctx context.Context, db *sql.DB) ([]TableSchema, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("read sqlite_master: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, err
		}
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var tables []TableSchema
	for _, name := range names {
		colRows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%q)`, name))
		if err != nil {
			return nil, fmt.Errorf("table_info %s: %w", name, err)
		}
		table := TableSchema{Name: name}
		for colRows.Next() {
			var cid int
			var colName, colType string
			var notNull, pk int
			var dflt sql.NullString
			if err := colRows.Scan(&cid, &colName, &colType, &notNull, &dflt, &pk); err != nil {
				colRows.Close()
				return nil, err
			}
			table.Columns = append(table.Columns, ColumnSchema{
				Name:     colName,
				DataType: colType,
				Nullable: notNull == 0,
			})
		}
		colRows.Close()
		if err := colRows.Err(); err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	return tables, nil
}

// SchemaRegistry caches analyzed schemas and optionally refreshes them on a
// ticker so long-running processes track DDL drift.
type SchemaRegistry struct {
	mu      sync.RWMutex
	schemas map[string]*DatabaseSchema
	logger  *zap.Logger
}

func NewSchemaRegistry(logger *zap.Logger) *SchemaRegistry {
	return &SchemaRegistry{schemas: make(map[string]*DatabaseSchema), logger: logger}
}

func (r *SchemaRegistry) Put(schema *DatabaseSchema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[schema.DatabaseID] = schema
}

func (r *SchemaRegistry) Get(databaseID string) (*DatabaseSchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[databaseID]
	if !ok {
		return nil, smarterrors.Wrapf(smarterrors.ErrNotFound, "schema for database %s", databaseID)
	}
	return s, nil
}

// All returns the registered schemas sorted by database ID.
func (r *SchemaRegistry) All() []*DatabaseSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*DatabaseSchema, 0, len(r.schemas))
	for _, s := range r.schemas {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DatabaseID < out[j].DatabaseID })
	return out
}
