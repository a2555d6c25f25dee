package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/byerlikaya/SmartRAG-sub013/database"
	smarterrors "github.com/byerlikaya/SmartRAG-sub013/errors"
	"github.com/byerlikaya/SmartRAG-sub013/llmclient"
	"github.com/byerlikaya/SmartRAG-sub013/prompts"
	"github.com/byerlikaya/SmartRAG-sub013/rag"
	"github.com/byerlikaya/SmartRAG-sub013/textutil"
	"github.com/byerlikaya/SmartRAG-sub013/types"
	"go.uber.org/zap"
)

// ResultMerger combines the document answer and the per-database result
// sets into one response body with full provenance.
type ResultMerger struct {
	provider llmclient.Provider
	detector *rag.MissingAnswerDetector
	logger   *zap.Logger
}

func NewResultMerger(provider llmclient.Provider, detector *rag.MissingAnswerDetector, logger *zap.Logger) *ResultMerger {
	return &ResultMerger{provider: provider, detector: detector, logger: logger}
}

// mergeInput carries one query's material into the merger. DB results may
// arrive in any order; rendering sorts nothing, so upstream passes them in
// intent order for stable output.
type mergeInput struct {
	query     string
	language  string
	history   string
	docResult *rag.SearchResult
	dbResults []database.QueryResult
	docAnswer string
}

// Merge produces the final answer text and the source list.
func (m *ResultMerger) Merge(ctx context.Context, in mergeInput) (string, []types.SearchSource, error) {
	sources := m.buildSources(in)

	// A strong document answer that survives the missing-data check wins
	// outright; database rows stay attached as supporting sources only when
	// they touch an entity from the query.
	if in.docAnswer != "" && in.docResult.Strong() &&
		!m.detector.IsMissing(ctx, in.docAnswer, in.query, in.docResult.Context) {
		return in.docAnswer, sources, nil
	}

	prompt := prompts.Render(prompts.MergeResults(), map[string]string{
		"HISTORY":  in.history,
		"CONTEXT":  emptyFallback(in.docResult.Context, "(no document excerpts)"),
		"TABLES":   renderTables(in.dbResults),
		"QUERY":    in.query,
		"LANGUAGE": languageName(in.language),
	})
	answer, err := m.provider.GenerateText(ctx, prompt)
	if err != nil {
		if smarterrors.IsCancelled(err) {
			return "", nil, err
		}
		// Degrade to whatever single side we have.
		if in.docAnswer != "" {
			m.logger.Warn("Merge generation failed, falling back to document answer", zap.Error(err))
			return in.docAnswer, sources, nil
		}
		return "", nil, err
	}
	return strings.TrimSpace(answer), sources, nil
}

// buildSources assembles provenance: document sources in ranking order,
// then one Database source per contributing row set, then System entries
// for databases that failed.
func (m *ResultMerger) buildSources(in mergeInput) []types.SearchSource {
	var sources []types.SearchSource
	if in.docResult != nil {
		sources = append(sources, in.docResult.Sources...)
	}

	strongDoc := in.docAnswer != "" && in.docResult.Strong()
	entities := queryMatchTerms(in.query)

	for _, res := range in.dbResults {
		if res.Err != nil {
			sources = append(sources, types.SearchSource{
				SourceType:      types.SourceTypeSystem,
				RelevantContent: fmt.Sprintf("Database %q was skipped: %s", res.DatabaseName, res.Err.Error()),
				DatabaseID:      res.DatabaseID,
				DatabaseName:    res.DatabaseName,
			})
			continue
		}
		if strongDoc && !rowsMatchTerms(res, entities) {
			continue
		}
		for i := range res.Rows {
			rowNumber := i + 1
			sources = append(sources, types.SearchSource{
				SourceType:      types.SourceTypeDatabase,
				RelevantContent: renderRow(res.Columns, res.Rows[i]),
				RelevanceScore:  1,
				DatabaseID:      res.DatabaseID,
				DatabaseName:    res.DatabaseName,
				Tables:          res.Tables,
				ExecutedQuery:   res.Query,
				RowNumber:       &rowNumber,
			})
		}
	}
	return sources
}

// queryMatchTerms are the entity candidates plus content words used to
// decide whether DB rows support a strong document answer.
func queryMatchTerms(query string) []string {
	terms := textutil.ContentWords(query)
	for _, e := range textutil.ExtractEntityCandidates(query) {
		terms = append(terms, strings.ToLower(e))
	}
	return terms
}

func rowsMatchTerms(res database.QueryResult, terms []string) bool {
	if len(terms) == 0 {
		return false
	}
	for _, row := range res.Rows {
		rendered := strings.ToLower(renderRow(res.Columns, row))
		for _, term := range terms {
			if strings.Contains(rendered, term) {
				return true
			}
		}
	}
	return false
}

// renderTables lays the per-database result sets out as labelled text
// tables for the merge prompt.
func renderTables(results []database.QueryResult) string {
	if len(results) == 0 {
		return "(no database results)"
	}
	var b strings.Builder
	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(&b, "[%s] unavailable: %s\n\n", res.DatabaseName, res.Err.Error())
			continue
		}
		fmt.Fprintf(&b, "[%s] query: %s\n", res.DatabaseName, res.Query)
		b.WriteString(strings.Join(res.Columns, " | "))
		b.WriteString("\n")
		for _, row := range res.Rows {
			b.WriteString(renderRow(res.Columns, row))
			b.WriteString("\n")
		}
		if res.Truncated {
			b.WriteString("(result truncated)\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderRow(columns []string, row []any) string {
	cells := make([]string, len(row))
	for i, v := range row {
		if v == nil {
			cells[i] = "NULL"
			continue
		}
		cells[i] = fmt.Sprintf("%v", v)
	}
	return strings.Join(cells, " | ")
}

func emptyFallback(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

var languageNames = map[string]string{
	"en": "English",
	"tr": "Turkish",
	"de": "German",
	"fr": "French",
	"es": "Spanish",
	"it": "Italian",
	"nl": "Dutch",
	"pt": "Portuguese",
	"ru": "Russian",
	"ja": "Japanese",
}

func languageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return "the same language as the question"
}
