package database

import (
	"strings"
	"unicode"

	smarterrors "github.com/byerlikaya/SmartRAG-sub013/errors"
)

// Keywords from other natural languages that occasionally leak into
// generated SQL when the user's question is not in English.
var nonEnglishSQLWords = []string{
	"abfrage", "auswählen", "wähle",   // German
	"sélection", "requête", "choisir", // French
	"seç", "sorgu", "tablo",           // Turkish
	"запрос", "выбрать", "таблица",    // Russian
	"consulta", "seleccionar",         // Spanish
}

// ValidateSQL rejects generated statements before they touch a connection:
// only a single SELECT, English keywords, ASCII identifiers, balanced
// quoting, and no constructs from a different dialect.
func ValidateSQL(sqlText string, dialect DialectStrategy) error {
	trimmed := strings.TrimSpace(sqlText)
	if trimmed == "" {
		return smarterrors.Wrap(smarterrors.ErrSQLGenerationFailed, "empty statement")
	}

	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return smarterrors.Wrapf(smarterrors.ErrSQLGenerationFailed,
			"only SELECT statements are allowed, got %.20q", trimmed)
	}

	if err := checkSingleStatement(trimmed); err != nil {
		return err
	}
	if err := checkBalance(trimmed); err != nil {
		return err
	}

	lower := strings.ToLower(trimmed)
	for _, word := range nonEnglishSQLWords {
		if containsWord(lower, word) {
			return smarterrors.Wrapf(smarterrors.ErrSQLGenerationFailed,
				"non-English SQL keyword %q", word)
		}
	}

	if bad := firstNonASCIIIdentifier(trimmed); bad != "" {
		return smarterrors.Wrapf(smarterrors.ErrSQLGenerationFailed,
			"non-ASCII identifier %q", bad)
	}

	for _, kw := range dialect.ForbiddenKeywords() {
		if kw == "`" {
			if strings.Contains(trimmed, "`") {
				return smarterrors.Wrapf(smarterrors.ErrSQLGenerationFailed,
					"backtick quoting is not valid for %s", dialect.Name())
			}
			continue
		}
		if strings.Contains(upper, strings.ToUpper(kw)) {
			return smarterrors.Wrapf(smarterrors.ErrSQLGenerationFailed,
				"%q is not valid for dialect %s", strings.TrimSpace(kw), dialect.Name())
		}
	}
	return nil
}

// checkSingleStatement rejects stacked statements. A trailing semicolon is
// tolerated; an interior one is not.
func checkSingleStatement(s string) error {
	inSingle, inDouble := false, false
	for i, r := range s {
		switch {
		case r == '\'' && !inDouble:
			inSingle = !inSingle
		case r == '"' && !inSingle:
			inDouble = !inDouble
		case r == ';' && !inSingle && !inDouble:
			if strings.TrimSpace(s[i+1:]) != "" {
				return smarterrors.Wrap(smarterrors.ErrSQLGenerationFailed,
					"multiple statements are not allowed")
			}
		}
	}
	return nil
}

func checkBalance(s string) error {
	depth := 0
	inSingle, inDouble := false, false
	for _, r := range s {
		switch {
		case r == '\'' && !inDouble:
			inSingle = !inSingle
		case r == '"' && !inSingle:
			inDouble = !inDouble
		case inSingle || inDouble:
		case r == '(':
			depth++
		case r == ')':
			depth--
			if depth < 0 {
				return smarterrors.Wrap(smarterrors.ErrSQLGenerationFailed, "unbalanced parentheses")
			}
		}
	}
	if depth != 0 {
		return smarterrors.Wrap(smarterrors.ErrSQLGenerationFailed, "unbalanced parentheses")
	}
	if inSingle || inDouble {
		return smarterrors.Wrap(smarterrors.ErrSQLGenerationFailed, "unterminated string literal")
	}
	return nil
}

// firstNonASCIIIdentifier returns the first bare word containing a letter
// outside ASCII. String literals are skipped so data values in any language
// remain legal.
func firstNonASCIIIdentifier(s string) string {
	inSingle := false
	var word strings.Builder
	flush := func() string {
		w := word.String()
		word.Reset()
		for _, r := range w {
			if r > unicode.MaxASCII {
				return w
			}
		}
		return ""
	}
	for _, r := range s {
		if r == '\'' {
			inSingle = !inSingle
			if bad := flush(); bad != "" {
				return bad
			}
			continue
		}
		if inSingle {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			word.WriteRune(r)
			continue
		}
		if bad := flush(); bad != "" {
			return bad
		}
	}
	return flush()
}

func containsWord(haystack, needle string) bool {
	idx := 0
	for {
		i := strings.Index(haystack[idx:], needle)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(needle)
		beforeOK := start == 0 || !isWordByte(haystack[start-1])
		afterOK := end == len(haystack) || !isWordByte(haystack[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
