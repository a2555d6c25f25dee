package parser

import (
	"context"
	"fmt"
	"io"

	"github.com/byerlikaya/SmartRAG-sub013/textutil"
	"github.com/byerlikaya/SmartRAG-sub013/types"
)

// OCRTextParser ingests the plain-text output of the external OCR engine
// for image uploads, applying the locale's currency-symbol correction to
// undo the common "%"-for-currency misread.
type OCRTextParser struct{}

func (p *OCRTextParser) SupportedExtensions() []string {
	return []string{"png", "jpg", "jpeg", "tiff", "bmp"}
}

func (p *OCRTextParser) Parse(ctx context.Context, r io.Reader, fileName, contentType, language string) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read ocr stream: %w", err)
	}

	text := textutil.Normalize(string(data))
	if symbol := CurrencySymbolForLanguage(language); symbol != "" {
		text = textutil.CorrectCurrencySymbols(text, symbol)
	}

	return &Result{
		Text:         text,
		DocumentType: types.DocumentTypeImage,
	}, nil
}

// CurrencySymbolForLanguage maps an ISO 639-1 language code to its usual
// currency symbol. Unknown languages produce no correction.
func CurrencySymbolForLanguage(language string) string {
	switch language {
	case "en", "us":
		return "$"
	case "tr":
		return "₺"
	case "de", "fr", "es", "it", "nl", "pt":
		return "€"
	case "gb", "uk":
		return "£"
	case "jp", "ja":
		return "¥"
	default:
		return ""
	}
}
