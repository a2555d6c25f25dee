package textutil

import (
	"regexp"
	"strings"
	"unicode"
)

// ExtractEntityCandidates returns candidate entity names: runs of at least
// two consecutive capitalized tokens that do not open a sentence.
// Numeric-only tokens never participate in a run.
func ExtractEntityCandidates(text string) []string {
	var candidates []string
	seen := make(map[string]bool)

	for _, sentence := range splitSentences(text) {
		fields := strings.Fields(sentence)
		var run []string
		runStart := -1
		flush := func() {
			if len(run) >= 2 && runStart != 0 {
				name := strings.Join(run, " ")
				if !seen[name] {
					seen[name] = true
					candidates = append(candidates, name)
				}
			}
			run = nil
			runStart = -1
		}
		for i, f := range fields {
			word := strings.TrimFunc(f, func(r rune) bool {
				return unicode.IsPunct(r) || unicode.IsSymbol(r)
			})
			if isCapitalized(word) && !isNumeric(word) {
				if run == nil {
					runStart = i
				}
				run = append(run, word)
				continue
			}
			flush()
		}
		flush()
	}
	return candidates
}

func splitSentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case '.', '!', '?', '\n', '؟', '？':
			return true
		}
		return false
	})
}

func isCapitalized(word string) bool {
	if word == "" {
		return false
	}
	runes := []rune(word)
	return unicode.IsUpper(runes[0])
}

func isNumeric(word string) bool {
	if word == "" {
		return true
	}
	for _, r := range word {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// OCR often reads currency signs as percent signs when a figure is followed
// by a capitalized word. Go's regexp has no lookahead, so the trailing
// context is captured and re-emitted.
var (
	currencyLoosePattern = regexp.MustCompile(`(\d+)\s*%(\s*(?:\p{Lu}|\d)|$)`)
	currencyTightPattern = regexp.MustCompile(`(\d+)%(\p{Lu}|\s+\p{Lu}|$)`)
)

// CorrectCurrencySymbols rewrites OCR'd "%" after digits into the locale's
// currency symbol when the following context indicates an amount. An empty
// symbol disables the correction.
func CorrectCurrencySymbols(text, symbol string) string {
	if symbol == "" || !strings.Contains(text, "%") {
		return text
	}
	// "$" is the template escape character for ReplaceAllString.
	escaped := strings.ReplaceAll(symbol, "$", "$$")
	text = currencyTightPattern.ReplaceAllString(text, "${1}"+escaped+"${2}")
	text = currencyLoosePattern.ReplaceAllString(text, "${1}"+escaped+"${2}")
	return text
}
