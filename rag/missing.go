package rag

import (
	"context"
	"strings"

	"github.com/byerlikaya/SmartRAG-sub013/embedding"
	"github.com/byerlikaya/SmartRAG-sub013/textutil"
	"go.uber.org/zap"
)

// MissingDataMarker is the literal an instructed model emits when the
// provided context holds no answer.
const MissingDataMarker = "[NO_ANSWER_FOUND]"

// MissingAnswerDetector vetoes document answers that only look confident:
// the explicit marker, query parroting, or an answer semantically closer to
// the question than to its own sources.
type MissingAnswerDetector struct {
	embedder *embedding.Embedder
	logger   *zap.Logger
}

func NewMissingAnswerDetector(embedder *embedding.Embedder, logger *zap.Logger) *MissingAnswerDetector {
	return &MissingAnswerDetector{embedder: embedder, logger: logger}
}

// IsMissing reports whether answer should be treated as "no data found".
func (d *MissingAnswerDetector) IsMissing(ctx context.Context, answer, query, sourcesText string) bool {
	normalized := strings.TrimSpace(answer)
	if normalized == "" || strings.Contains(normalized, MissingDataMarker) {
		return true
	}
	if parrotsQuery(normalized, query) {
		return true
	}
	if d.embedder == nil || sourcesText == "" {
		return false
	}

	answerVec, err := d.embedder.Embed(ctx, normalized)
	if err != nil {
		return false
	}
	queryVec, err := d.embedder.Embed(ctx, query)
	if err != nil {
		return false
	}
	sourcesVec, err := d.embedder.Embed(ctx, sourcesText)
	if err != nil {
		return false
	}

	toQuery := embedding.Cosine(answerVec, queryVec)
	toSources := embedding.Cosine(answerVec, sourcesVec)
	if toQuery > toSources {
		d.logger.Debug("Answer is closer to the query than to its sources",
			zap.Float64("to_query", toQuery),
			zap.Float64("to_sources", toSources))
		return true
	}
	return false
}

// parrotsQuery is true when every content word of the answer already
// appears in the query: nothing document-derived was added.
func parrotsQuery(answer, query string) bool {
	answerWords := textutil.ContentWords(answer)
	if len(answerWords) == 0 {
		return true
	}
	querySet := make(map[string]bool)
	for _, w := range textutil.ContentWords(query) {
		querySet[w] = true
	}
	for _, w := range answerWords {
		if !querySet[w] {
			return false
		}
	}
	return true
}
