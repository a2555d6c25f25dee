package parser

import (
	"context"
	"errors"
	"strings"
	"testing"

	smarterrors "github.com/byerlikaya/SmartRAG-sub013/errors"
	"github.com/byerlikaya/SmartRAG-sub013/types"
)

func TestRegistryResolution(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		fileName string
		wantErr  bool
	}{
		{"report.txt", false},
		{"report.PDF", false},
		{"sheet.xlsx", false},
		{"meeting.mp3", false},
		{"scan.png", false},
		{"binary.exe", true},
	}
	for _, tt := range tests {
		_, err := r.Get(tt.fileName)
		if (err != nil) != tt.wantErr {
			t.Errorf("Get(%q) error = %v, wantErr %v", tt.fileName, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, smarterrors.ErrParserFailed) {
			t.Errorf("Get(%q) error not in parser taxonomy: %v", tt.fileName, err)
		}
	}
}

func TestTextParserNormalizes(t *testing.T) {
	res, err := (&TextParser{}).Parse(context.Background(), strings.NewReader(`line1\nline2`), "a.txt", "text/plain", "")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Text != "line1\nline2" {
		t.Errorf("Text = %q, want decoded newline", res.Text)
	}
	if res.DocumentType != types.DocumentTypeText {
		t.Errorf("DocumentType = %v", res.DocumentType)
	}
}

func TestTranscriptParserSegments(t *testing.T) {
	payload := `{"segments":[
		{"start":0.0,"end":2.5,"text":"hello there","probability":0.98},
		{"start":2.5,"end":5.1,"text":"revenue grew twenty percent","probability":0.95}
	]}`
	res, err := (&TranscriptParser{}).Parse(context.Background(), strings.NewReader(payload), "meeting.mp3", "audio/mpeg", "en")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.DocumentType != types.DocumentTypeAudio {
		t.Errorf("DocumentType = %v, want Audio", res.DocumentType)
	}
	if len(res.Segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(res.Segments))
	}

	runes := []rune(res.Text)
	for i, seg := range res.Segments {
		got := strings.TrimSpace(string(runes[seg.StartCharIndex : seg.EndCharIndex+1]))
		want := strings.TrimSpace(seg.Text)
		if got != want {
			t.Errorf("segment %d: char span %q does not cover text %q", i, got, want)
		}
		if seg.End < seg.Start {
			t.Errorf("segment %d: end before start", i)
		}
	}
}

func TestTranscriptParserPlainTextFallback(t *testing.T) {
	res, err := (&TranscriptParser{}).Parse(context.Background(), strings.NewReader("just a raw transcript"), "call.wav", "audio/wav", "en")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Text != "just a raw transcript" || len(res.Segments) != 0 {
		t.Errorf("fallback parse wrong: %q segments=%d", res.Text, len(res.Segments))
	}
}

func TestOCRParserCurrencyCorrection(t *testing.T) {
	res, err := (&OCRTextParser{}).Parse(context.Background(), strings.NewReader("Total 500% Net amount"), "scan.png", "image/png", "en")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !strings.Contains(res.Text, "500$") {
		t.Errorf("currency not corrected: %q", res.Text)
	}
	if res.DocumentType != types.DocumentTypeImage {
		t.Errorf("DocumentType = %v, want Image", res.DocumentType)
	}
}
