// Package parser turns uploaded file bytes into plain text, plus audio
// segment tables when the file is an external transcript. Parsers are
// registered by file extension; external OCR/ASR engines plug in through
// the same contract.
package parser

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	smarterrors "github.com/byerlikaya/SmartRAG-sub013/errors"
	"github.com/byerlikaya/SmartRAG-sub013/types"
)

// Result is what a parser produces from an upload.
type Result struct {
	Text         string
	DocumentType types.DocumentType
	Segments     []types.AudioSegment
}

// Parser converts one file format into extracted text.
type Parser interface {
	Parse(ctx context.Context, r io.Reader, fileName, contentType, language string) (*Result, error)
	SupportedExtensions() []string
}

// Registry maps file extensions to parsers.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry builds a registry with the built-in parsers: plain text,
// markdown, PDF, XLSX, and ASR transcript JSON.
func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[string]Parser)}
	for _, p := range []Parser{
		&TextParser{},
		&PDFParser{},
		&XLSXParser{},
		&TranscriptParser{},
		&OCRTextParser{},
	} {
		for _, ext := range p.SupportedExtensions() {
			r.parsers[ext] = p
		}
	}
	return r
}

// Register adds or replaces the parser for an extension.
func (r *Registry) Register(ext string, p Parser) {
	r.parsers[strings.ToLower(strings.TrimPrefix(ext, "."))] = p
}

// Get resolves the parser for a file name. The error names only the file,
// never internal paths.
func (r *Registry) Get(fileName string) (Parser, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	p, ok := r.parsers[ext]
	if !ok {
		return nil, smarterrors.Wrapf(smarterrors.ErrParserFailed, "no parser for %q", filepath.Base(fileName))
	}
	return p, nil
}

// Parse resolves and runs the parser for fileName in one step.
func (r *Registry) Parse(ctx context.Context, reader io.Reader, fileName, contentType, language string) (*Result, error) {
	p, err := r.Get(fileName)
	if err != nil {
		return nil, err
	}
	res, err := p.Parse(ctx, reader, fileName, contentType, language)
	if err != nil {
		return nil, smarterrors.Wrapf(smarterrors.ErrParserFailed, "parse %q: %v", filepath.Base(fileName), err)
	}
	return res, nil
}
