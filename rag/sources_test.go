package rag

import (
	"regexp"
	"testing"

	"github.com/byerlikaya/SmartRAG-sub013/types"
	"github.com/google/uuid"
)

var locationGrammar = regexp.MustCompile(
	`^Chunk #\d+ \| Characters \d+-\d+( \| Audio \d{2}:\d{2}(:\d{2})? - \d{2}:\d{2}(:\d{2})?)? \| Source: .+$`)

func TestBuildChunkSourceTextDocument(t *testing.T) {
	doc := &types.Document{
		ID:           uuid.New(),
		FileName:     "ml-guide.pdf",
		DocumentType: types.DocumentTypeText,
	}
	chunk := types.Chunk{
		DocumentID:     doc.ID,
		ChunkIndex:     0,
		Content:        "RAG combines retrieval and generation",
		StartPosition:  0,
		EndPosition:    36,
		RelevanceScore: 0.82,
	}

	src := BuildChunkSource(doc, chunk)
	if src.SourceType != types.SourceTypeDocument {
		t.Errorf("sourceType = %s, want Document", src.SourceType)
	}
	if src.Location != "Chunk #1 | Characters 0-36 | Source: ml-guide.pdf" {
		t.Errorf("location = %q", src.Location)
	}
	if !locationGrammar.MatchString(src.Location) {
		t.Errorf("location %q does not parse under the grammar", src.Location)
	}
	if src.ChunkIndex == nil || *src.ChunkIndex != 0 {
		t.Error("chunkIndex pointer should carry the zero value")
	}
}

func TestBuildChunkSourceAudioOverlap(t *testing.T) {
	doc := &types.Document{
		ID:           uuid.New(),
		FileName:     "meeting.mp3",
		DocumentType: types.DocumentTypeAudio,
		Metadata: map[string]any{
			types.MetadataSegmentsKey: []types.AudioSegment{
				{Start: 2.0, End: 10.0, Text: "earlier remarks", StartCharIndex: 0, EndCharIndex: 120},
				{Start: 12.4, End: 15.0, Text: "revenue grew twenty percent", StartCharIndex: 140, EndCharIndex: 170},
				{Start: 30.0, End: 42.0, Text: "later remarks", StartCharIndex: 200, EndCharIndex: 300},
			},
		},
	}
	chunk := types.Chunk{
		DocumentID:    doc.ID,
		ChunkIndex:    2,
		Content:       "...revenue grew twenty percent...",
		StartPosition: 130,
		EndPosition:   180,
	}

	src := BuildChunkSource(doc, chunk)
	if src.SourceType != types.SourceTypeAudio {
		t.Fatalf("sourceType = %s, want Audio", src.SourceType)
	}
	if src.StartTimeSeconds == nil || *src.StartTimeSeconds != 12.4 {
		t.Errorf("startTimeSeconds = %v, want 12.4", src.StartTimeSeconds)
	}
	if src.EndTimeSeconds == nil || *src.EndTimeSeconds != 15.0 {
		t.Errorf("endTimeSeconds = %v, want 15.0", src.EndTimeSeconds)
	}
	want := "Chunk #3 | Characters 130-180 | Audio 00:12 - 00:15 | Source: meeting.mp3"
	if src.Location != want {
		t.Errorf("location = %q, want %q", src.Location, want)
	}
}

func TestBuildChunkSourceAudioSubstringFallback(t *testing.T) {
	doc := &types.Document{
		ID:           uuid.New(),
		FileName:     "call.wav",
		DocumentType: types.DocumentTypeAudio,
		Metadata: map[string]any{
			types.MetadataSegmentsKey: []types.AudioSegment{
				{Start: 5, End: 9, Text: "the budget was approved", NormalizedText: "the budget was approved"},
			},
		},
	}
	chunk := types.Chunk{
		DocumentID: doc.ID,
		ChunkIndex: 0,
		Content:    "Summary: the budget was approved unanimously.",
	}

	src := BuildChunkSource(doc, chunk)
	if src.SourceType != types.SourceTypeAudio {
		t.Fatalf("sourceType = %s, want Audio via substring fallback", src.SourceType)
	}
	if src.StartTimeSeconds == nil || *src.StartTimeSeconds != 5 {
		t.Errorf("startTimeSeconds = %v, want 5", src.StartTimeSeconds)
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{12.4, "00:12"},
		{75, "01:15"},
		{3599, "59:59"},
		{3600, "01:00:00"},
		{3725.9, "01:02:05"},
	}
	for _, tt := range tests {
		if got := formatTimestamp(tt.seconds); got != tt.want {
			t.Errorf("formatTimestamp(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestParrotsQuery(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		query  string
		want   bool
	}{
		{"pure_parrot", "revenue growth", "what was the revenue growth", true},
		{"adds_content", "revenue grew twenty percent", "what was the revenue growth", false},
		{"empty_answer", "", "anything", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parrotsQuery(tt.answer, tt.query); got != tt.want {
				t.Errorf("parrotsQuery(%q, %q) = %v, want %v", tt.answer, tt.query, got, tt.want)
			}
		})
	}
}
