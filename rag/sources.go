package rag

import (
	"fmt"
	"strings"

	"github.com/byerlikaya/SmartRAG-sub013/textutil"
	"github.com/byerlikaya/SmartRAG-sub013/types"
)

// BuildChunkSource turns one contributing chunk into a provenance entry.
// Location grammar: "Chunk #N | Characters a-b" with an optional audio time
// range and a trailing source file name.
func BuildChunkSource(doc *types.Document, chunk types.Chunk) types.SearchSource {
	idx := chunk.ChunkIndex
	start := chunk.StartPosition
	end := chunk.EndPosition

	source := types.SearchSource{
		SourceType:      types.SourceTypeDocument,
		DocumentID:      &doc.ID,
		FileName:        doc.FileName,
		RelevantContent: chunk.Content,
		RelevanceScore:  chunk.RelevanceScore,
		ChunkIndex:      &idx,
		StartPosition:   &start,
		EndPosition:     &end,
	}

	location := fmt.Sprintf("Chunk #%d | Characters %d-%d", idx+1, start, end)

	if segments := doc.AudioSegments(); len(segments) > 0 {
		if first, last, ok := overlappingSegments(segments, chunk); ok {
			source.SourceType = types.SourceTypeAudio
			startSec, endSec := first.Start, last.End
			source.StartTimeSeconds = &startSec
			source.EndTimeSeconds = &endSec
			location += fmt.Sprintf(" | Audio %s - %s",
				formatTimestamp(startSec), formatTimestamp(endSec))
		}
	} else if doc.DocumentType == types.DocumentTypeImage {
		source.SourceType = types.SourceTypeImage
	}

	location += " | Source: " + doc.FileName
	source.Location = location
	return source
}

// overlappingSegments finds the first and last audio segments whose char
// spans intersect the chunk's span. Segments without char mappings fall
// back to substring matching on normalized text.
func overlappingSegments(segments []types.AudioSegment, chunk types.Chunk) (first, last types.AudioSegment, ok bool) {
	haveCharSpans := false
	for _, seg := range segments {
		if seg.EndCharIndex > 0 {
			haveCharSpans = true
			break
		}
	}

	if haveCharSpans {
		for _, seg := range segments {
			if seg.StartCharIndex > chunk.EndPosition || seg.EndCharIndex < chunk.StartPosition {
				continue
			}
			if !ok {
				first = seg
				ok = true
			}
			last = seg
		}
		return first, last, ok
	}

	normalizedChunk := strings.ToLower(textutil.Normalize(chunk.Content))
	for _, seg := range segments {
		text := seg.NormalizedText
		if text == "" {
			text = strings.ToLower(textutil.Normalize(seg.Text))
		}
		if text == "" || !strings.Contains(normalizedChunk, text) {
			continue
		}
		if !ok {
			first = seg
			ok = true
		}
		last = seg
	}
	return first, last, ok
}

// formatTimestamp renders seconds as MM:SS, or HH:MM:SS from one hour up.
func formatTimestamp(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
