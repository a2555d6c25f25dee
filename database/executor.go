package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/byerlikaya/SmartRAG-sub013/config"
	smarterrors "github.com/byerlikaya/SmartRAG-sub013/errors"
	"github.com/byerlikaya/SmartRAG-sub013/types"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// QueryResult is one database's contribution to a response. Failed queries
// carry Err and empty rows so one broken backend never sinks the batch.
type QueryResult struct {
	DatabaseID   string   `json:"databaseId"`
	DatabaseName string   `json:"databaseName"`
	Purpose      string   `json:"purpose,omitempty"`
	Tables       []string `json:"tables,omitempty"`
	Query        string   `json:"query"`
	Columns      []string `json:"columns"`
	Rows         [][]any  `json:"rows"`
	RowCount     int      `json:"rowCount"`
	Truncated    bool     `json:"truncated"`
	FromCache    bool     `json:"fromCache"`
	Err          error    `json:"-"`
}

type managedConnection struct {
	conn    config.DatabaseConnection
	dialect DialectStrategy
	db      *sql.DB
}

// Coordinator owns one pool per configured connection and fans intent
// batches out across them with bounded parallelism.
type Coordinator struct {
	cfg       *config.Config
	conns     map[string]*managedConnection
	registry  *SchemaRegistry
	sanitizer *ColumnSanitizer
	cache     *QueryCache
	logger    *zap.Logger
}

func NewCoordinator(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Coordinator, error) {
	c := &Coordinator{
		cfg:       cfg,
		conns:     make(map[string]*managedConnection),
		registry:  NewSchemaRegistry(logger),
		sanitizer: NewColumnSanitizer(cfg.SensitiveColumnPatterns),
		logger:    logger,
	}
	if cfg.EnableQueryCache {
		cache, err := NewQueryCache(cfg.QueryCacheTTL)
		if err != nil {
			return nil, smarterrors.Wrap(err, "create query cache")
		}
		c.cache = cache
	}

	for _, conn := range cfg.DatabaseConnections {
		dialect, err := DialectFor(conn.Type)
		if err != nil {
			return nil, err
		}
		db, err := sql.Open(dialect.DriverName(), conn.ConnectionString)
		if err != nil {
			// Connection strings never appear in errors or logs.
			return nil, smarterrors.Wrapf(smarterrors.ErrInvalidConfiguration,
				"open database %q: %s", conn.ID, err.Error())
		}
		if conn.MaxOpenConns > 0 {
			db.SetMaxOpenConns(conn.MaxOpenConns)
		}
		db.SetConnMaxIdleTime(5 * time.Minute)
		c.conns[conn.ID] = &managedConnection{conn: conn, dialect: dialect, db: db}
	}

	if cfg.EnableAutoSchemaAnalysis {
		if err := c.RefreshSchemas(ctx); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// HasConnections reports whether any database backend is configured.
func (c *Coordinator) HasConnections() bool { return len(c.conns) > 0 }

// Schemas exposes the registry for prompt construction.
func (c *Coordinator) Schemas() *SchemaRegistry { return c.registry }

func (c *Coordinator) Close() error {
	var firstErr error
	for _, mc := range c.conns {
		if err := mc.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// RefreshSchemas re-analyzes every connection. Per-connection failures are
// logged and skipped so one unreachable database does not block startup.
func (c *Coordinator) RefreshSchemas(ctx context.Context) error {
	ids := make([]string, 0, len(c.conns))
	for id := range c.conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		mc := c.conns[id]
		tables, err := analyzeSchema(ctx, mc.db, mc.dialect)
		if err != nil {
			c.logger.Warn("Schema analysis failed",
				zap.String("database_id", id),
				zap.Error(err))
			continue
		}
		c.registry.Put(&DatabaseSchema{
			DatabaseID:   mc.conn.ID,
			DatabaseName: mc.conn.Name,
			Description:  mc.conn.Description,
			Dialect:      mc.dialect.Name(),
			Tables:       tables,
			AnalyzedAt:   time.Now().UTC(),
		})
		c.logger.Info("Analyzed database schema",
			zap.String("database_id", id),
			zap.Int("tables", len(tables)))
	}
	return nil
}

// StartPeriodicRefresh re-analyzes schemas on the configured interval until
// the context is cancelled.
func (c *Coordinator) StartPeriodicRefresh(ctx context.Context) {
	if !c.cfg.EnablePeriodicSchemaRefresh || c.cfg.DefaultSchemaRefreshIntervalMinutes <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(c.cfg.DefaultSchemaRefreshIntervalMinutes)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.RefreshSchemas(ctx); err != nil {
					c.logger.Warn("Periodic schema refresh failed", zap.Error(err))
				}
			}
		}
	}()
}

// ExecuteIntents runs every intent's generated query with bounded
// parallelism. Results come back in intent order; a failed query yields a
// result with Err set rather than failing the batch.
func (c *Coordinator) ExecuteIntents(ctx context.Context, intents []types.DatabaseQueryIntent) []QueryResult {
	results := make([]QueryResult, len(intents))

	g, gctx := errgroup.WithContext(ctx)
	limit := c.cfg.MaxDegreeOfParallelism
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, intent := range intents {
		g.Go(func() error {
			results[i] = c.executeOne(gctx, intent)
			return nil
		})
	}
	g.Wait()
	return results
}

func (c *Coordinator) executeOne(ctx context.Context, intent types.DatabaseQueryIntent) QueryResult {
	result := QueryResult{
		DatabaseID:   intent.DatabaseID,
		DatabaseName: intent.DatabaseName,
		Purpose:      intent.Purpose,
		Tables:       intent.RequiredTables,
		Query:        intent.GeneratedQuery,
	}

	mc, ok := c.conns[intent.DatabaseID]
	if !ok {
		result.Err = smarterrors.Wrapf(smarterrors.ErrSQLExecutionFailed,
			"unknown database %q", intent.DatabaseID)
		return result
	}
	if strings.TrimSpace(intent.GeneratedQuery) == "" {
		result.Err = smarterrors.Wrap(smarterrors.ErrSQLExecutionFailed, "no generated query")
		return result
	}

	query := ensureRowLimit(intent.GeneratedQuery, mc.dialect, c.cfg.MaxRowsPerQuery)
	result.Query = query

	if c.cache != nil {
		if cached, hit := c.cache.Get(intent.DatabaseID, query); hit {
			c.logger.Debug("Query cache hit", zap.String("database_id", intent.DatabaseID))
			cached.FromCache = true
			cached.Purpose = intent.Purpose
			cached.Tables = intent.RequiredTables
			return cached
		}
	}

	queryCtx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeout)
	defer cancel()

	start := time.Now()
	rows, err := mc.db.QueryContext(queryCtx, query)
	if err != nil {
		result.Err = smarterrors.Wrapf(smarterrors.ErrSQLExecutionFailed,
			"database %q: %s", intent.DatabaseID, err.Error())
		c.logger.Warn("Query execution failed",
			zap.String("database_id", intent.DatabaseID),
			zap.Error(err))
		return result
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		result.Err = smarterrors.Wrap(smarterrors.ErrSQLExecutionFailed, err.Error())
		return result
	}
	result.Columns = columns

	batchSize := c.cfg.StreamingBatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	batch := make([][]any, 0, batchSize)
	for rows.Next() {
		if len(result.Rows)+len(batch) >= c.cfg.MaxRowsPerQuery {
			result.Truncated = true
			break
		}
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			result.Err = smarterrors.Wrap(smarterrors.ErrSQLExecutionFailed, err.Error())
			return result
		}
		batch = append(batch, normalizeRow(values))
		if len(batch) >= batchSize {
			result.Rows = append(result.Rows, batch...)
			batch = batch[:0]
		}
	}
	result.Rows = append(result.Rows, batch...)
	if err := rows.Err(); err != nil {
		result.Err = smarterrors.Wrap(smarterrors.ErrSQLExecutionFailed, err.Error())
		return result
	}

	result.Rows = c.sanitizer.SanitizeRows(columns, result.Rows)
	result.RowCount = len(result.Rows)

	c.logger.Info("Executed database query",
		zap.String("database_id", intent.DatabaseID),
		zap.Int("rows", result.RowCount),
		zap.Bool("truncated", result.Truncated),
		zap.Duration("elapsed", time.Since(start)))

	if c.cache != nil {
		cached := result
		c.cache.Put(intent.DatabaseID, query, &cached)
	}
	return result
}

// normalizeRow converts driver byte slices to strings so results marshal as
// text instead of base64.
func normalizeRow(values []any) []any {
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			values[i] = string(b)
		}
	}
	return values
}

// ensureRowLimit appends the dialect's pagination clause when the generated
// statement carries no row cap of its own.
func ensureRowLimit(query string, dialect DialectStrategy, maxRows int) string {
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(query), ";"))
	upper := strings.ToUpper(trimmed)
	switch dialect.Name() {
	case DialectSQLServer:
		if strings.Contains(upper, "TOP ") || strings.Contains(upper, "FETCH NEXT") {
			return trimmed
		}
		if !strings.Contains(upper, "ORDER BY") {
			// OFFSET/FETCH requires ORDER BY; fall back to TOP via subquery.
			return fmt.Sprintf("SELECT TOP %d * FROM (%s) AS capped", maxRows, trimmed)
		}
		return trimmed + " " + dialect.PaginationClause(maxRows)
	default:
		if strings.Contains(upper, "LIMIT ") {
			return trimmed
		}
		return trimmed + " " + dialect.PaginationClause(maxRows)
	}
}
