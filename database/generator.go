package database

import (
	"context"
	"fmt"
	"strings"

	smarterrors "github.com/byerlikaya/SmartRAG-sub013/errors"
	"github.com/byerlikaya/SmartRAG-sub013/llmclient"
	"github.com/byerlikaya/SmartRAG-sub013/types"
	"go.uber.org/zap"
)

// SQLGenerator turns an analyzed intent into a dialect-correct SELECT via
// the language model, validating the output before it may run. A statement
// that fails validation earns exactly one corrective retry.
type SQLGenerator struct {
	provider llmclient.Provider
	registry *SchemaRegistry
	logger   *zap.Logger
}

func NewSQLGenerator(provider llmclient.Provider, registry *SchemaRegistry, logger *zap.Logger) *SQLGenerator {
	return &SQLGenerator{provider: provider, registry: registry, logger: logger}
}

// Generate fills intent.GeneratedQuery. Intents that already carry a query
// are validated as-is.
func (g *SQLGenerator) Generate(ctx context.Context, intent *types.DatabaseQueryIntent, dialect DialectStrategy) error {
	schema, err := g.registry.Get(intent.DatabaseID)
	if err != nil {
		return err
	}

	if intent.GeneratedQuery != "" {
		if err := ValidateSQL(intent.GeneratedQuery, dialect); err == nil {
			return nil
		}
		// Pre-filled query failed validation; regenerate below.
		intent.GeneratedQuery = ""
	}

	prompt := g.buildPrompt(intent, schema, dialect, "")
	statement, err := g.generateOnce(ctx, prompt)
	if err != nil {
		return err
	}
	if vErr := ValidateSQL(statement, dialect); vErr != nil {
		g.logger.Warn("Generated SQL failed validation, retrying",
			zap.String("database_id", intent.DatabaseID),
			zap.Error(vErr))
		retryPrompt := g.buildPrompt(intent, schema, dialect,
			fmt.Sprintf("Your previous answer was rejected: %s. Produce valid %s SQL using English keywords and ASCII identifiers only.",
				vErr.Error(), dialect.Name()))
		statement, err = g.generateOnce(ctx, retryPrompt)
		if err != nil {
			return err
		}
		if vErr := ValidateSQL(statement, dialect); vErr != nil {
			return smarterrors.Wrapf(smarterrors.ErrSQLGenerationFailed,
				"database %q: %s", intent.DatabaseID, vErr.Error())
		}
	}
	intent.GeneratedQuery = statement
	return nil
}

func (g *SQLGenerator) generateOnce(ctx context.Context, prompt string) (string, error) {
	raw, err := g.provider.GenerateText(ctx, prompt)
	if err != nil {
		return "", smarterrors.Wrap(smarterrors.ErrSQLGenerationFailed, err.Error())
	}
	return stripSQLFences(raw), nil
}

func (g *SQLGenerator) buildPrompt(intent *types.DatabaseQueryIntent, schema *DatabaseSchema, dialect DialectStrategy, correction string) string {
	var b strings.Builder
	b.WriteString("You write a single read-only SQL SELECT statement.\n")
	b.WriteString(dialect.PromptGuidance())
	b.WriteString("\nReturn only the SQL statement, no commentary, no code fences.\n\n")
	b.WriteString(schema.Describe())
	if len(intent.RequiredTables) > 0 {
		fmt.Fprintf(&b, "\nRelevant tables: %s\n", strings.Join(intent.RequiredTables, ", "))
	}
	for table, cols := range intent.RequiredColumns {
		fmt.Fprintf(&b, "Relevant columns of %s: %s\n", table, strings.Join(cols, ", "))
	}
	if intent.Purpose != "" {
		fmt.Fprintf(&b, "\nPurpose: %s\n", intent.Purpose)
	}
	if correction != "" {
		b.WriteString("\n")
		b.WriteString(correction)
		b.WriteString("\n")
	}
	return b.String()
}

// stripSQLFences unwraps ```sql fenced answers that models emit despite the
// no-fences instruction.
func stripSQLFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```sql")
		s = strings.TrimPrefix(s, "```SQL")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}

// DialectForConnection looks a connection's dialect up through the
// coordinator so callers need not keep their own mapping.
func (c *Coordinator) DialectForConnection(databaseID string) (DialectStrategy, error) {
	mc, ok := c.conns[databaseID]
	if !ok {
		return nil, smarterrors.Wrapf(smarterrors.ErrNotFound, "database %s", databaseID)
	}
	return mc.dialect, nil
}
