package agent

import (
	"errors"
	"strings"
	"testing"

	"github.com/byerlikaya/SmartRAG-sub013/database"
	"github.com/byerlikaya/SmartRAG-sub013/rag"
	"github.com/byerlikaya/SmartRAG-sub013/types"
	"go.uber.org/zap"
)

func TestRenderTables(t *testing.T) {
	results := []database.QueryResult{
		{
			DatabaseName: "Sales",
			Query:        "SELECT region, total FROM sales_2024 LIMIT 1000",
			Columns:      []string{"region", "total"},
			Rows:         [][]any{{"EMEA", 120000}, {"APAC", nil}},
			Truncated:    true,
		},
		{
			DatabaseName: "HR",
			Err:          errors.New("connection refused"),
		},
	}
	got := renderTables(results)

	for _, want := range []string{
		"[Sales] query: SELECT region, total FROM sales_2024 LIMIT 1000",
		"region | total",
		"EMEA | 120000",
		"APAC | NULL",
		"(result truncated)",
		"[HR] unavailable: connection refused",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("renderTables missing %q in:\n%s", want, got)
		}
	}
}

func TestRenderTablesEmpty(t *testing.T) {
	if got := renderTables(nil); got != "(no database results)" {
		t.Errorf("renderTables(nil) = %q", got)
	}
}

func TestBuildSourcesRowsAndFailures(t *testing.T) {
	m := NewResultMerger(nil, nil, zap.NewNop())
	in := mergeInput{
		query:     "total sales by region",
		docResult: &rag.SearchResult{},
		dbResults: []database.QueryResult{
			{
				DatabaseID:   "sales",
				DatabaseName: "Sales",
				Query:        "SELECT region, total FROM sales_2024",
				Tables:       []string{"sales_2024"},
				Columns:      []string{"region", "total"},
				Rows:         [][]any{{"EMEA", 120000}, {"APAC", 95000}},
			},
			{
				DatabaseID:   "hr",
				DatabaseName: "HR",
				Err:          errors.New("connection refused"),
			},
		},
	}
	sources := m.buildSources(in)
	if len(sources) != 3 {
		t.Fatalf("len(sources) = %d, want 3", len(sources))
	}

	first := sources[0]
	if first.SourceType != types.SourceTypeDatabase {
		t.Errorf("sources[0].SourceType = %q", first.SourceType)
	}
	if first.RowNumber == nil || *first.RowNumber != 1 {
		t.Errorf("sources[0].RowNumber = %v, want 1", first.RowNumber)
	}
	if first.ExecutedQuery != "SELECT region, total FROM sales_2024" {
		t.Errorf("sources[0].ExecutedQuery = %q", first.ExecutedQuery)
	}
	if len(first.Tables) != 1 || first.Tables[0] != "sales_2024" {
		t.Errorf("sources[0].Tables = %v", first.Tables)
	}
	if sources[1].RowNumber == nil || *sources[1].RowNumber != 2 {
		t.Errorf("sources[1].RowNumber = %v, want 2", sources[1].RowNumber)
	}

	system := sources[2]
	if system.SourceType != types.SourceTypeSystem {
		t.Errorf("sources[2].SourceType = %q", system.SourceType)
	}
	if !strings.Contains(system.RelevantContent, `Database "HR" was skipped`) {
		t.Errorf("system content = %q", system.RelevantContent)
	}
}

func TestBuildSourcesStrongDocFiltersUnrelatedRows(t *testing.T) {
	m := NewResultMerger(nil, nil, zap.NewNop())
	strongDoc := &rag.SearchResult{
		Documents: []rag.ScoredDocument{{Aggregate: 5.2}},
		Sources:   []types.SearchSource{{SourceType: types.SourceTypeDocument, FileName: "report.pdf"}},
	}
	dbResults := []database.QueryResult{
		{
			DatabaseID:   "sales",
			DatabaseName: "Sales",
			Columns:      []string{"product"},
			Rows:         [][]any{{"Widget Deluxe"}},
		},
		{
			DatabaseID:   "inv",
			DatabaseName: "Inventory",
			Columns:      []string{"item"},
			Rows:         [][]any{{"bolts"}},
		},
	}

	sources := m.buildSources(mergeInput{
		query:     "how did the widget launch perform",
		docAnswer: "The launch exceeded projections.",
		docResult: strongDoc,
		dbResults: dbResults,
	})

	var dbCount int
	for _, s := range sources {
		if s.SourceType == types.SourceTypeDatabase {
			dbCount++
			if s.DatabaseID != "sales" {
				t.Errorf("unexpected database source %q kept", s.DatabaseID)
			}
		}
	}
	if dbCount != 1 {
		t.Errorf("database sources kept = %d, want 1 (only the row mentioning the widget)", dbCount)
	}
	if sources[0].SourceType != types.SourceTypeDocument {
		t.Errorf("document sources must come first, got %q", sources[0].SourceType)
	}
}

func TestRenderRow(t *testing.T) {
	got := renderRow([]string{"a", "b", "c"}, []any{"x", nil, 3})
	if got != "x | NULL | 3" {
		t.Errorf("renderRow = %q", got)
	}
}

func TestLanguageName(t *testing.T) {
	if got := languageName("tr"); got != "Turkish" {
		t.Errorf("languageName(tr) = %q", got)
	}
	if got := languageName(""); got != "the same language as the question" {
		t.Errorf("languageName(empty) = %q", got)
	}
	if got := languageName("xx"); got != "the same language as the question" {
		t.Errorf("languageName(xx) = %q", got)
	}
}

func TestWindowTurns(t *testing.T) {
	turns := []types.ConversationTurn{
		{Question: "q1"}, {Question: "q2"}, {Question: "q3"}, {Question: "q4"},
	}
	got := windowTurns(turns, 2)
	if len(got) != 2 || got[0].Question != "q3" || got[1].Question != "q4" {
		t.Errorf("windowTurns kept %+v", got)
	}
	if got := windowTurns(turns, 0); len(got) != 4 {
		t.Errorf("windowTurns with no limit = %d turns", len(got))
	}
	if got := windowTurns(turns, 10); len(got) != 4 {
		t.Errorf("windowTurns with slack = %d turns", len(got))
	}
}

func TestRenderHistory(t *testing.T) {
	if got := renderHistory(nil); got != "" {
		t.Errorf("renderHistory(nil) = %q", got)
	}
	got := renderHistory([]types.ConversationTurn{{Question: "hi", Answer: "hello"}})
	if !strings.Contains(got, "User: hi") || !strings.Contains(got, "Assistant: hello") {
		t.Errorf("renderHistory = %q", got)
	}
}
