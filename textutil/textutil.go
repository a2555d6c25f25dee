// Package textutil provides the normalization and tokenization primitives
// shared by the chunker, the scorer, and the response pipeline.
package textutil

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/jdkato/prose/v2"
	"golang.org/x/text/unicode/norm"
)

// Normalize applies Unicode NFC composition and decodes common escape
// sequences. It is idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	return norm.NFC.String(DecodeEscapes(text))
}

// DecodeEscapes rewrites literal \uXXXX, \n, \t, \r and \\ sequences into
// their characters. Invalid escapes are left as-is.
func DecodeEscapes(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '\\' || i+1 >= len(runes) {
			b.WriteRune(r)
			continue
		}
		switch runes[i+1] {
		case 'n':
			b.WriteRune('\n')
			i++
		case 't':
			b.WriteRune('\t')
			i++
		case 'r':
			b.WriteRune('\r')
			i++
		case '\\':
			b.WriteRune('\\')
			i++
		case 'u':
			if i+5 < len(runes) {
				code, err := strconv.ParseUint(string(runes[i+2:i+6]), 16, 32)
				if err == nil {
					b.WriteRune(rune(code))
					i += 5
					continue
				}
			}
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Token is a display-preserving token; Lower is the matching form.
type Token struct {
	Text  string
	Lower string
}

// Tokenize splits text on Unicode whitespace and punctuation, preserving the
// original casing for display. Tokens without a letter or digit are dropped.
func Tokenize(text string) []Token {
	raw := proseTokens(text)
	tokens := make([]Token, 0, len(raw))
	for _, t := range raw {
		if !hasLetterOrDigit(t) {
			continue
		}
		trimmed := strings.TrimFunc(t, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if trimmed == "" {
			continue
		}
		tokens = append(tokens, Token{Text: trimmed, Lower: strings.ToLower(trimmed)})
	}
	return tokens
}

func proseTokens(text string) []string {
	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
		prose.WithSegmentation(false))
	if err != nil {
		return strings.FieldsFunc(text, func(r rune) bool {
			return unicode.IsSpace(r)
		})
	}
	toks := doc.Tokens()
	out := make([]string, 0, len(toks))
	for _, t := range toks {
		out = append(out, t.Text)
	}
	return out
}

// Words returns the lowercase matching tokens of text.
func Words(text string) []string {
	tokens := Tokenize(text)
	words := make([]string, 0, len(tokens))
	for _, t := range tokens {
		words = append(words, t.Lower)
	}
	return words
}

// ContentWords returns lowercase tokens with stopwords removed.
func ContentWords(text string) []string {
	tokens := Tokenize(text)
	words := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if stopwords[t.Lower] {
			continue
		}
		words = append(words, t.Lower)
	}
	return words
}

// PhraseWords returns the short-token list used by the keyword prioritizer:
// lowercase content words of length >= 3 in document order, deduplicated.
func PhraseWords(text string) []string {
	seen := make(map[string]bool)
	var words []string
	for _, w := range ContentWords(text) {
		if len(w) < 3 || seen[w] {
			continue
		}
		seen[w] = true
		words = append(words, w)
	}
	return words
}

func hasLetterOrDigit(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true,
	"has": true, "have": true, "he": true, "in": true, "is": true, "it": true,
	"its": true, "of": true, "on": true, "or": true, "that": true,
	"the": true, "this": true, "to": true, "was": true, "were": true,
	"what": true, "which": true, "will": true, "with": true, "how": true,
	"who": true, "when": true, "where": true, "why": true, "do": true,
	"does": true, "did": true, "can": true, "could": true, "should": true,
}
