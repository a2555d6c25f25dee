package rag

import (
	"regexp"
	"sort"
	"strings"

	"github.com/byerlikaya/SmartRAG-sub013/textutil"
	"github.com/byerlikaya/SmartRAG-sub013/types"
)

// Neighbor windows per query shape. Image headers get a wide reach because
// OCR frequently splits a label and its value across distant chunks.
const (
	defaultWindow       = 3
	comprehensiveWindow = 8
	numericSmallWindow  = 10
	imageHeaderWindow   = 40

	imageHeaderMaxLen = 500

	// The last chunk in a byte-limited context may be cut short only when at
	// least this much budget remains; a smaller tail is dropped whole.
	minPartialChunkBytes = 100
)

var (
	numberPattern       = regexp.MustCompile(`\d`)
	numericQueryPattern = regexp.MustCompile(`\d|how (?:much|many)|total|sum|average|count`)
	listQueryPattern    = regexp.MustCompile(`\b(?:list|enumerate|all of|every|each)\b`)
	currencyPattern     = regexp.MustCompile(`[$€£₺¥]|\d+\s*(?:usd|eur|gbp|try)\b`)
)

// SelectWindow picks the expansion radius for a query and its candidate set.
func SelectWindow(query string, candidates []types.Chunk) int {
	lower := strings.ToLower(query)

	if isComprehensiveQuery(lower) {
		return comprehensiveWindow
	}
	if numericQueryPattern.MatchString(lower) && len(candidates) > 0 && len(candidates) <= 5 {
		return numericSmallWindow
	}
	return defaultWindow
}

func isComprehensiveQuery(lowerQuery string) bool {
	if strings.Count(lowerQuery, "?") > 1 {
		return true
	}
	if listQueryPattern.MatchString(lowerQuery) {
		return true
	}
	if currencyPattern.MatchString(lowerQuery) && numberPattern.MatchString(lowerQuery) {
		return true
	}
	multiTerm := len(textutil.ContentWords(lowerQuery)) >= 4
	return multiTerm && (strings.HasPrefix(lowerQuery, "how ") || strings.HasPrefix(lowerQuery, "what "))
}

// isImageHeaderChunk spots the OCR label-block pattern: the leading chunk of
// an image document, short, and carrying no numeric values yet.
func isImageHeaderChunk(c types.Chunk) bool {
	return c.ChunkIndex == 0 &&
		c.DocumentType == types.DocumentTypeImage &&
		len(c.Content) < imageHeaderMaxLen &&
		!numberPattern.MatchString(c.Content)
}

// Expand widens each found chunk to its neighbors within window on the same
// document and returns the union in chunk-index order. Found chunks keep
// their scores; pulled-in neighbors carry zero. Expanding an already
// expanded set with the same window adds nothing.
func Expand(doc *types.Document, found []types.Chunk, window int) []types.Chunk {
	if len(found) == 0 {
		return nil
	}

	wanted := make(map[int]bool)
	scores := make(map[int]float64)
	for _, c := range found {
		if c.DocumentID != doc.ID {
			continue
		}
		w := window
		if isImageHeaderChunk(c) && w < imageHeaderWindow {
			w = imageHeaderWindow
		}
		lo := c.ChunkIndex - w
		if lo < 0 {
			lo = 0
		}
		for i := lo; i <= c.ChunkIndex+w; i++ {
			wanted[i] = true
		}
		if c.RelevanceScore > scores[c.ChunkIndex] {
			scores[c.ChunkIndex] = c.RelevanceScore
		}
	}

	var out []types.Chunk
	for _, c := range doc.Chunks {
		if !wanted[c.ChunkIndex] {
			continue
		}
		if s, ok := scores[c.ChunkIndex]; ok {
			c.RelevanceScore = s
		}
		c.FileName = doc.FileName
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out
}

// BuildLimitedContext concatenates chunk contents in the order given,
// separated by blank lines, without exceeding maxBytes.
func BuildLimitedContext(chunks []types.Chunk, maxBytes int) string {
	if maxBytes <= 0 {
		return ""
	}
	var b strings.Builder
	for _, c := range chunks {
		sep := ""
		if b.Len() > 0 {
			sep = "\n\n"
		}
		needed := len(sep) + len(c.Content)
		if b.Len()+needed <= maxBytes {
			b.WriteString(sep)
			b.WriteString(c.Content)
			continue
		}
		remaining := maxBytes - b.Len() - len(sep)
		if remaining >= minPartialChunkBytes {
			b.WriteString(sep)
			b.WriteString(trimToValidUTF8(c.Content, remaining))
		}
		break
	}
	return b.String()
}

// trimToValidUTF8 cuts s to at most n bytes without splitting a rune.
func trimToValidUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && s[n]&0xC0 == 0x80 {
		n--
	}
	return s[:n]
}
