// Package chunker splits extracted document text into overlapping chunks
// that preserve character offsets into the source text.
package chunker

import (
	"strings"
	"time"

	"github.com/byerlikaya/SmartRAG-sub013/types"
	"github.com/google/uuid"
)

// Defaults mirror the configuration defaults.
const (
	DefaultMinSize = 100
	DefaultMaxSize = 1000
	DefaultOverlap = 200
)

// Piece is one contiguous slice of the source text. Start and End are
// inclusive rune offsets; Content == text[Start..End].
type Piece struct {
	Content string
	Start   int
	End     int
}

// Split cuts text into pieces of at most maxSize runes, preferring sentence
// boundaries once minSize is reached. overlap runes are duplicated between
// adjacent pieces. A single sentence longer than maxSize is cut into plain
// maxSize windows.
func Split(text string, minSize, maxSize, overlap int) []Piece {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if minSize <= 0 || minSize > maxSize {
		minSize = min(DefaultMinSize, maxSize)
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxSize {
		// Overlap must leave room for forward progress.
		overlap = maxSize / 2
	}

	runes := []rune(text)
	var pieces []Piece

	start := 0
	for start < len(runes) {
		end := start + maxSize // exclusive
		if end >= len(runes) {
			end = len(runes)
		} else {
			// Prefer the last sentence boundary inside the window, as long
			// as it keeps the piece at least minSize long.
			if cut := lastBoundary(runes, start, end); cut-start >= minSize {
				end = cut
			}
		}

		pieces = append(pieces, Piece{
			Content: string(runes[start:end]),
			Start:   start,
			End:     end - 1,
		})

		if end >= len(runes) {
			break
		}
		next := end - overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return pieces
}

// lastBoundary returns the exclusive cut position just after the last
// sentence-ending rune in runes[start:end), or start when none is found.
func lastBoundary(runes []rune, start, end int) int {
	for i := end - 1; i > start; i-- {
		if !isSentenceEnd(runes[i]) {
			continue
		}
		// Treat as a boundary only when followed by whitespace or text end,
		// so decimals like 3.14 are not split.
		if i+1 >= len(runes) || isSpace(runes[i+1]) {
			return i + 1
		}
	}
	return start
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '؟', '？':
		return true
	}
	return false
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\n', '\t', '\r':
		return true
	}
	return false
}

// ChunkDocument splits content and materializes chunks for the document.
// Chunk indexes are dense and start positions are non-decreasing.
func ChunkDocument(docID uuid.UUID, docType types.DocumentType, content string, minSize, maxSize, overlap int) []types.Chunk {
	pieces := Split(content, minSize, maxSize, overlap)
	now := time.Now().UTC()
	chunks := make([]types.Chunk, 0, len(pieces))
	for i, p := range pieces {
		chunks = append(chunks, types.Chunk{
			ID:            uuid.New(),
			DocumentID:    docID,
			ChunkIndex:    i,
			Content:       p.Content,
			StartPosition: p.Start,
			EndPosition:   p.End,
			CreatedAt:     now,
			DocumentType:  docType,
		})
	}
	return chunks
}
