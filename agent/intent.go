package agent

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/byerlikaya/SmartRAG-sub013/database"
	"github.com/byerlikaya/SmartRAG-sub013/llmclient"
	"github.com/byerlikaya/SmartRAG-sub013/prompts"
	"github.com/byerlikaya/SmartRAG-sub013/types"
	"go.uber.org/zap"
)

// IntentAnalyzer asks the language model which configured databases a query
// needs. It degrades to an empty, zero-confidence intent when the model is
// unreachable or answers garbage, so the document path always remains open.
type IntentAnalyzer struct {
	provider llmclient.Provider
	registry *database.SchemaRegistry
	logger   *zap.Logger
}

func NewIntentAnalyzer(provider llmclient.Provider, registry *database.SchemaRegistry, logger *zap.Logger) *IntentAnalyzer {
	return &IntentAnalyzer{provider: provider, registry: registry, logger: logger}
}

// Analyze returns the structured intent for a cleaned query. The returned
// intent is never nil.
func (a *IntentAnalyzer) Analyze(ctx context.Context, query string) *types.QueryIntent {
	fallback := &types.QueryIntent{OriginalQuery: query, Confidence: 0}

	schemas := a.registry.All()
	if len(schemas) == 0 {
		return fallback
	}
	var schemaText strings.Builder
	for _, s := range schemas {
		schemaText.WriteString(s.Describe())
	}

	prompt := prompts.Render(prompts.IntentAnalysis(), map[string]string{
		"SCHEMAS": schemaText.String(),
		"QUERY":   query,
	})
	raw, err := a.provider.GenerateText(ctx, prompt)
	if err != nil {
		a.logger.Warn("Intent analysis unavailable, defaulting to document search", zap.Error(err))
		return fallback
	}

	intent := &types.QueryIntent{OriginalQuery: query}
	if err := json.Unmarshal([]byte(extractJSON(raw)), intent); err != nil {
		a.logger.Warn("Intent analysis returned unparseable JSON", zap.Error(err))
		return fallback
	}
	intent.OriginalQuery = query
	if intent.Confidence < 0 {
		intent.Confidence = 0
	}
	if intent.Confidence > 1 {
		intent.Confidence = 1
	}
	intent.DatabaseQueries = a.dropUnknownDatabases(intent.DatabaseQueries)
	sort.SliceStable(intent.DatabaseQueries, func(i, j int) bool {
		return intent.DatabaseQueries[i].Priority > intent.DatabaseQueries[j].Priority
	})
	return intent
}

// dropUnknownDatabases removes hallucinated database ids.
func (a *IntentAnalyzer) dropUnknownDatabases(queries []types.DatabaseQueryIntent) []types.DatabaseQueryIntent {
	kept := queries[:0]
	for _, q := range queries {
		if _, err := a.registry.Get(q.DatabaseID); err != nil {
			a.logger.Warn("Intent referenced unknown database, dropping",
				zap.String("database_id", q.DatabaseID))
			continue
		}
		kept = append(kept, q)
	}
	return kept
}

// extractJSON unwraps fenced or prose-padded model output down to the
// outermost JSON object.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}
