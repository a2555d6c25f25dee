package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/byerlikaya/SmartRAG-sub013/textutil"
	"github.com/byerlikaya/SmartRAG-sub013/types"
)

// TranscriptParser ingests the segment JSON emitted by the external ASR
// engine for audio uploads. The engine itself is out of process; SmartRAG
// receives its output stream under the media file's name. A replacement
// parser that shells out to a live ASR can be registered over the same
// extensions.
type TranscriptParser struct{}

func (p *TranscriptParser) SupportedExtensions() []string {
	return []string{"mp3", "wav", "m4a", "ogg", "flac"}
}

type asrSegment struct {
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Text        string  `json:"text"`
	Probability float64 `json:"probability"`
}

type asrTranscript struct {
	Text     string       `json:"text"`
	Segments []asrSegment `json:"segments"`
}

func (p *TranscriptParser) Parse(ctx context.Context, r io.Reader, fileName, contentType, language string) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read transcript stream: %w", err)
	}

	var tr asrTranscript
	if err := json.Unmarshal(data, &tr); err != nil || len(tr.Segments) == 0 {
		// Pre-transcribed plain text without timing metadata.
		return &Result{
			Text:         textutil.Normalize(string(data)),
			DocumentType: types.DocumentTypeAudio,
		}, nil
	}

	// Join segment texts and record each segment's character span in the
	// joined transcript so sources can be mapped back to playback time.
	var builder strings.Builder
	segments := make([]types.AudioSegment, 0, len(tr.Segments))
	for _, seg := range tr.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString(" ")
		}
		start := len([]rune(builder.String()))
		builder.WriteString(text)
		end := len([]rune(builder.String())) - 1

		segments = append(segments, types.AudioSegment{
			Start:          seg.Start,
			End:            seg.End,
			Text:           seg.Text,
			Probability:    seg.Probability,
			NormalizedText: strings.ToLower(textutil.Normalize(text)),
			StartCharIndex: start,
			EndCharIndex:   end,
		})
	}

	text := builder.String()
	if tr.Text != "" && len(segments) == 0 {
		text = tr.Text
	}

	return &Result{
		Text:         textutil.Normalize(text),
		DocumentType: types.DocumentTypeAudio,
		Segments:     segments,
	}, nil
}
