package parser

import (
	"context"
	"fmt"
	"io"

	"github.com/byerlikaya/SmartRAG-sub013/textutil"
	"github.com/byerlikaya/SmartRAG-sub013/types"
)

// TextParser handles plain text formats, including OCR output dropped in as
// .txt by an external OCR engine.
type TextParser struct{}

func (p *TextParser) SupportedExtensions() []string {
	return []string{"txt", "md", "csv", "log", "json"}
}

func (p *TextParser) Parse(ctx context.Context, r io.Reader, fileName, contentType, language string) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read text stream: %w", err)
	}
	return &Result{
		Text:         textutil.Normalize(string(data)),
		DocumentType: types.DocumentTypeText,
	}, nil
}
