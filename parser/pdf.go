package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/byerlikaya/SmartRAG-sub013/textutil"
	"github.com/byerlikaya/SmartRAG-sub013/types"
	"github.com/ledongthuc/pdf"
)

// PDFParser extracts plain text from PDF bytes.
type PDFParser struct{}

func (p *PDFParser) SupportedExtensions() []string { return []string{"pdf"} }

func (p *PDFParser) Parse(ctx context.Context, r io.Reader, fileName, contentType, language string) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf stream: %w", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	var builder strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip unreadable pages rather than rejecting the document.
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n\n")
		}
		builder.WriteString(text)
	}

	if builder.Len() == 0 {
		return nil, fmt.Errorf("no extractable text in pdf")
	}

	return &Result{
		Text:         textutil.Normalize(builder.String()),
		DocumentType: types.DocumentTypeText,
	}, nil
}
