package agent

import (
	"testing"

	"github.com/byerlikaya/SmartRAG-sub013/rag"
	"github.com/byerlikaya/SmartRAG-sub013/types"
)

func intentWith(confidence float64, dbQueries int) *types.QueryIntent {
	intent := &types.QueryIntent{Confidence: confidence}
	for i := 0; i < dbQueries; i++ {
		intent.DatabaseQueries = append(intent.DatabaseQueries, types.DatabaseQueryIntent{DatabaseID: "db"})
	}
	return intent
}

func docsWithMatches() *rag.SearchResult {
	return &rag.SearchResult{Documents: []rag.ScoredDocument{{Aggregate: 1.5}}}
}

func TestChooseStrategy(t *testing.T) {
	tests := []struct {
		name string
		in   routeInput
		want types.Strategy
	}{
		{
			name: "high confidence with queries",
			in: routeInput{
				intent:       intentWith(0.9, 2),
				docResult:    docsWithMatches(),
				hasDatabases: true,
			},
			want: types.StrategyDatabaseOnly,
		},
		{
			name: "high confidence but no queries falls back to documents",
			in: routeInput{
				intent:       intentWith(0.9, 0),
				docResult:    docsWithMatches(),
				hasDatabases: true,
			},
			want: types.StrategyDocumentOnly,
		},
		{
			name: "mid confidence with both sides",
			in: routeInput{
				intent:       intentWith(0.5, 1),
				docResult:    docsWithMatches(),
				hasDatabases: true,
			},
			want: types.StrategyHybrid,
		},
		{
			name: "mid confidence with queries but no document matches",
			in: routeInput{
				intent:       intentWith(0.5, 1),
				docResult:    &rag.SearchResult{},
				hasDatabases: true,
			},
			want: types.StrategyDatabaseOnly,
		},
		{
			name: "exactly the hybrid floor",
			in: routeInput{
				intent:       intentWith(0.3, 1),
				docResult:    docsWithMatches(),
				hasDatabases: true,
			},
			want: types.StrategyHybrid,
		},
		{
			name: "low confidence",
			in: routeInput{
				intent:       intentWith(0.1, 1),
				docResult:    docsWithMatches(),
				hasDatabases: true,
			},
			want: types.StrategyDocumentOnly,
		},
		{
			name: "strong document match short-circuits",
			in: routeInput{
				intent:       intentWith(0.9, 2),
				docResult:    docsWithMatches(),
				hasDatabases: true,
				strongDocHit: true,
			},
			want: types.StrategyDocumentOnly,
		},
		{
			name: "forced document mode beats high confidence",
			in: routeInput{
				tags:         TagSet{DocumentOnly: true},
				intent:       intentWith(0.9, 2),
				docResult:    docsWithMatches(),
				hasDatabases: true,
			},
			want: types.StrategyDocumentOnly,
		},
		{
			name: "forced database mode beats strong document match",
			in: routeInput{
				tags:         TagSet{DatabaseOnly: true},
				intent:       intentWith(0.1, 0),
				docResult:    docsWithMatches(),
				hasDatabases: true,
				strongDocHit: true,
			},
			want: types.StrategyDatabaseOnly,
		},
		{
			name: "forced database mode without databases degrades to documents",
			in: routeInput{
				tags:         TagSet{DatabaseOnly: true},
				intent:       intentWith(0.9, 0),
				docResult:    docsWithMatches(),
				hasDatabases: false,
			},
			want: types.StrategyDocumentOnly,
		},
		{
			name: "forced hybrid without databases degrades to documents",
			in: routeInput{
				tags:         TagSet{DocumentOnly: true, DatabaseOnly: true},
				intent:       intentWith(0.5, 1),
				docResult:    docsWithMatches(),
				hasDatabases: false,
			},
			want: types.StrategyDocumentOnly,
		},
		{
			name: "nil intent",
			in: routeInput{
				docResult:    docsWithMatches(),
				hasDatabases: true,
			},
			want: types.StrategyDocumentOnly,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := chooseStrategy(tt.in); got != tt.want {
				t.Errorf("chooseStrategy() = %q, want %q", got, tt.want)
			}
		})
	}
}
