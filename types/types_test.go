package types

import (
	"encoding/json"
	"testing"
)

func TestAudioSegmentsAfterJSONRoundTrip(t *testing.T) {
	doc := &Document{
		FileName:     "call.json",
		Content:      "hello world",
		DocumentType: DocumentTypeAudio,
		Metadata: map[string]any{
			MetadataSegmentsKey: []AudioSegment{{
				Start:          12.4,
				End:            15.0,
				Text:           "hello world",
				StartCharIndex: 0,
				EndCharIndex:   11,
			}},
		},
	}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	var restored Document
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatal(err)
	}

	segs := restored.AudioSegments()
	if len(segs) != 1 {
		t.Fatalf("AudioSegments() after round-trip = %d segments, want 1", len(segs))
	}
	if segs[0].Start != 12.4 || segs[0].End != 15.0 || segs[0].EndCharIndex != 11 {
		t.Errorf("segment = %+v", segs[0])
	}
}

func TestAudioSegmentsTypedAndAbsent(t *testing.T) {
	doc := &Document{
		Metadata: map[string]any{
			MetadataSegmentsKey: []AudioSegment{{Start: 1, End: 2, Text: "x"}},
		},
	}
	if got := doc.AudioSegments(); len(got) != 1 {
		t.Errorf("typed segments = %d, want 1", len(got))
	}

	if got := (&Document{}).AudioSegments(); got != nil {
		t.Errorf("no metadata = %v, want nil", got)
	}
	if got := (*Document)(nil).AudioSegments(); got != nil {
		t.Errorf("nil document = %v, want nil", got)
	}
	bad := &Document{Metadata: map[string]any{MetadataSegmentsKey: "not segments"}}
	if got := bad.AudioSegments(); got != nil {
		t.Errorf("malformed metadata = %v, want nil", got)
	}
}
