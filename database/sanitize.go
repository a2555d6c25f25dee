package database

import "strings"

// RedactedValue replaces sensitive cell values before results reach logs,
// prompts, or API responses.
const RedactedValue = "[REDACTED]"

// ColumnSanitizer masks values in columns whose names match any configured
// sensitive pattern (substring, case-insensitive).
type ColumnSanitizer struct {
	patterns []string
}

func NewColumnSanitizer(patterns []string) *ColumnSanitizer {
	lowered := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			lowered = append(lowered, p)
		}
	}
	return &ColumnSanitizer{patterns: lowered}
}

// IsSensitive reports whether a column name matches a sensitive pattern.
func (s *ColumnSanitizer) IsSensitive(column string) bool {
	lower := strings.ToLower(column)
	for _, p := range s.patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// SanitizeRows redacts sensitive columns in place and returns the rows.
func (s *ColumnSanitizer) SanitizeRows(columns []string, rows [][]any) [][]any {
	var sensitive []int
	for i, col := range columns {
		if s.IsSensitive(col) {
			sensitive = append(sensitive, i)
		}
	}
	if len(sensitive) == 0 {
		return rows
	}
	for _, row := range rows {
		for _, i := range sensitive {
			if i < len(row) && row[i] != nil {
				row[i] = RedactedValue
			}
		}
	}
	return rows
}
