package parser

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/byerlikaya/SmartRAG-sub013/textutil"
	"github.com/byerlikaya/SmartRAG-sub013/types"
	"github.com/xuri/excelize/v2"
)

// XLSXParser renders spreadsheet sheets as pipe-delimited tables.
type XLSXParser struct{}

func (p *XLSXParser) SupportedExtensions() []string { return []string{"xlsx", "xlsm"} }

func (p *XLSXParser) Parse(ctx context.Context, r io.Reader, fileName, contentType, language string) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	var builder strings.Builder
	for _, sheet := range f.GetSheetList() {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n\n")
		}
		builder.WriteString(sheet)
		builder.WriteString("\n")
		for _, row := range rows {
			builder.WriteString("| " + strings.Join(row, " | ") + " |\n")
		}
	}

	if builder.Len() == 0 {
		return nil, fmt.Errorf("no readable sheets in workbook")
	}

	return &Result{
		Text:         textutil.Normalize(builder.String()),
		DocumentType: types.DocumentTypeText,
	}, nil
}
