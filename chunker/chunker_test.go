package chunker

import (
	"strings"
	"testing"

	"github.com/byerlikaya/SmartRAG-sub013/types"
	"github.com/google/uuid"
)

func TestSplitOffsetsMatchSource(t *testing.T) {
	text := "First sentence here. Second sentence follows! Third one asks? " +
		strings.Repeat("Filler sentence with some words. ", 40)
	runes := []rune(text)

	pieces := Split(text, 50, 200, 40)
	if len(pieces) < 2 {
		t.Fatalf("expected multiple pieces, got %d", len(pieces))
	}
	for i, p := range pieces {
		if p.End < p.Start {
			t.Errorf("piece %d: end %d < start %d", i, p.End, p.Start)
		}
		if got := string(runes[p.Start : p.End+1]); got != p.Content {
			t.Errorf("piece %d: content does not match source slice", i)
		}
		if i > 0 && p.Start < pieces[i-1].Start {
			t.Errorf("piece %d: start positions decrease", i)
		}
	}
	if pieces[len(pieces)-1].End != len(runes)-1 {
		t.Errorf("last piece ends at %d, want %d", pieces[len(pieces)-1].End, len(runes)-1)
	}
}

func TestSplitOverlapDuplicated(t *testing.T) {
	text := strings.Repeat("Sentence number one is short. ", 30)
	overlap := 25
	pieces := Split(text, 50, 150, overlap)
	if len(pieces) < 2 {
		t.Fatalf("expected multiple pieces, got %d", len(pieces))
	}
	for i := 1; i < len(pieces); i++ {
		gap := pieces[i].Start - (pieces[i-1].End + 1)
		if gap > 0 {
			t.Errorf("piece %d: %d runes of source text skipped", i, gap)
		}
	}
}

func TestSplitLongSentenceWindows(t *testing.T) {
	// A single "sentence" longer than maxSize must fall back to windows.
	text := strings.Repeat("abcde ", 100) // no sentence boundaries
	pieces := Split(text, 50, 120, 0)
	for i, p := range pieces {
		if size := p.End - p.Start + 1; size > 120 {
			t.Errorf("piece %d: size %d exceeds max 120", i, size)
		}
	}
}

func TestSplitEmptyInput(t *testing.T) {
	if got := Split("   \n ", 100, 1000, 200); got != nil {
		t.Errorf("expected nil for blank input, got %d pieces", len(got))
	}
}

func TestSplitDecimalNotBoundary(t *testing.T) {
	text := "Revenue was 3.14 million in total for the whole period under review. Second sentence."
	pieces := Split(text, 10, 70, 0)
	if len(pieces) < 2 {
		t.Fatalf("expected a split, got %d pieces", len(pieces))
	}
	if strings.HasSuffix(pieces[0].Content, "3.") {
		t.Errorf("split inside decimal: %q", pieces[0].Content)
	}
}

func TestChunkDocumentDenseIndexes(t *testing.T) {
	docID := uuid.New()
	text := strings.Repeat("A reasonable sentence lives here. ", 30)
	chunks := ChunkDocument(docID, types.DocumentTypeText, text, 50, 150, 20)
	for i, c := range chunks {
		if c.ChunkIndex != i {
			t.Errorf("chunk %d has index %d", i, c.ChunkIndex)
		}
		if c.DocumentID != docID {
			t.Errorf("chunk %d carries wrong document id", i)
		}
		if c.ID == uuid.Nil {
			t.Errorf("chunk %d has nil id", i)
		}
	}
}
