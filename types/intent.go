package types

// DatabaseQueryIntent describes one database the analyzer believes must be
// consulted for a query.
type DatabaseQueryIntent struct {
	DatabaseID      string              `json:"databaseId"`
	DatabaseName    string              `json:"databaseName"`
	RequiredTables  []string            `json:"requiredTables"`
	RequiredColumns map[string][]string `json:"requiredColumns,omitempty"`
	GeneratedQuery  string              `json:"generatedQuery,omitempty"`
	Purpose         string              `json:"purpose,omitempty"`
	Priority        int                 `json:"priority"`
}

// QueryIntent is the analyzer's structured hypothesis about which data
// sources a query needs. Confidence is the analyzer's self-reported
// probability that database queries alone are sufficient.
type QueryIntent struct {
	OriginalQuery             string                `json:"originalQuery"`
	Understanding             string                `json:"understanding,omitempty"`
	DatabaseQueries           []DatabaseQueryIntent `json:"databaseQueries"`
	Confidence                float64               `json:"confidence"`
	RequiresCrossDatabaseJoin bool                  `json:"requiresCrossDatabaseJoin"`
	Reasoning                 string                `json:"reasoning,omitempty"`
}
