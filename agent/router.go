package agent

import (
	"github.com/byerlikaya/SmartRAG-sub013/rag"
	"github.com/byerlikaya/SmartRAG-sub013/types"
)

// Confidence bands from the intent analyzer's self-report.
const (
	databaseConfidenceFloor = 0.7
	hybridConfidenceFloor   = 0.3
)

// routeInput is everything strategy selection looks at.
type routeInput struct {
	tags          TagSet
	intent        *types.QueryIntent
	docResult     *rag.SearchResult
	hasDatabases  bool
	strongDocHit  bool
}

// chooseStrategy implements the routing table. A strong document match
// short-circuits everything the tags do not forbid; otherwise the
// analyzer's confidence band is intersected with what each side actually
// produced. A tag-forced database mode with no database configured
// degrades to the document path.
func chooseStrategy(in routeInput) types.Strategy {
	if forced := in.tags.ForcedStrategy(); forced != "" {
		switch forced {
		case types.StrategyDatabaseOnly, types.StrategyHybrid:
			if !in.hasDatabases {
				return types.StrategyDocumentOnly
			}
		}
		return forced
	}

	if in.strongDocHit {
		return types.StrategyDocumentOnly
	}

	hasDBQueries := in.hasDatabases && in.intent != nil && len(in.intent.DatabaseQueries) > 0
	hasDocMatches := in.docResult.HasMatches()

	confidence := 0.0
	if in.intent != nil {
		confidence = in.intent.Confidence
	}

	switch {
	case confidence > databaseConfidenceFloor:
		if hasDBQueries {
			return types.StrategyDatabaseOnly
		}
		return types.StrategyDocumentOnly
	case confidence >= hybridConfidenceFloor:
		if hasDBQueries && hasDocMatches {
			return types.StrategyHybrid
		}
		if hasDBQueries {
			return types.StrategyDatabaseOnly
		}
		return types.StrategyDocumentOnly
	default:
		return types.StrategyDocumentOnly
	}
}
