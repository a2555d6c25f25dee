// Package rag ranks stored chunks against a query, widens matches with
// neighboring context, and derives provenance metadata for responses.
package rag

import (
	"sort"
	"strings"
	"unicode"

	"github.com/byerlikaya/SmartRAG-sub013/embedding"
	"github.com/byerlikaya/SmartRAG-sub013/textutil"
	"github.com/byerlikaya/SmartRAG-sub013/types"
	"github.com/google/uuid"
)

const (
	semanticWeight = 0.8
	keywordWeight  = 0.2

	// Leading chunks carry titles and summaries; a filename-entity match
	// makes them the best anchor for the document.
	chunkZeroBoost = 1.2

	// StrongDocumentMatchThreshold is an absolute cutoff on the per-document
	// aggregate: the sum of the top TopChunksPerDoc chunk scores (each in
	// [0,1]) plus the integer unique-keyword bonus. With the default of five
	// chunks, 4.8 means nearly all top chunks scored near-perfect or a
	// merely good match carries several keywords no other document has.
	StrongDocumentMatchThreshold = 4.8

	// A document stays in the relevant set if its aggregate reaches this
	// fraction of the best document's aggregate.
	relevantDocumentRatio = 0.8

	// Chunks below this hybrid score are noise and are dropped.
	minChunkScore = 0.1

	phraseBonus     = 0.1
	uniqueWordBonus = 0.05
)

// ScoredDocument is one document's aggregated ranking for a query.
type ScoredDocument struct {
	DocumentID   uuid.UUID
	FileName     string
	Aggregate    float64
	UniqueWords  int
	Chunks       []types.Chunk // scored, best first
	DocumentType types.DocumentType
}

// Strong reports whether the document clears the short-circuit threshold.
func (d *ScoredDocument) Strong() bool {
	return d.Aggregate >= StrongDocumentMatchThreshold
}

// Scorer computes hybrid chunk scores and document aggregates.
type Scorer struct {
	topChunksPerDoc int
}

func NewScorer(topChunksPerDoc int) *Scorer {
	if topChunksPerDoc <= 0 {
		topChunksPerDoc = 5
	}
	return &Scorer{topChunksPerDoc: topChunksPerDoc}
}

// ScoreChunks populates RelevanceScore on every candidate and drops the
// ones below the noise floor. Missing embeddings contribute zero semantic
// similarity, so keyword overlap alone can still surface a chunk.
func (sc *Scorer) ScoreChunks(query string, queryEmbedding []float32, candidates []types.Chunk) []types.Chunk {
	if len(candidates) == 0 {
		return nil
	}
	queryWords := textutil.ContentWords(query)
	phrases := textutil.PhraseWords(query)
	entities := textutil.ExtractEntityCandidates(query)
	wordDocs := wordDocumentIndex(queryWords, candidates)

	scored := make([]types.Chunk, 0, len(candidates))
	for _, chunk := range candidates {
		s := 0.0
		if len(queryEmbedding) > 0 && len(chunk.Embedding) > 0 {
			s = embedding.Cosine(queryEmbedding, chunk.Embedding)
		}
		k := sc.keywordScore(queryWords, phrases, wordDocs, chunk)

		score := semanticWeight*s + keywordWeight*k
		if chunk.ChunkIndex == 0 && fileNameMatchesEntity(chunk.FileName, entities) {
			score *= chunkZeroBoost
		}
		if score > 1 {
			score = 1
		}
		if score < minChunkScore {
			continue
		}
		chunk.RelevanceScore = score
		scored = append(scored, chunk)
	}
	return scored
}

// keywordScore is a Jaccard overlap over content words, topped up with a
// fixed bonus per matched query phrase and per query word unique to this
// chunk's document.
func (sc *Scorer) keywordScore(queryWords, phrases []string, wordDocs map[string]map[uuid.UUID]bool, chunk types.Chunk) float64 {
	if len(queryWords) == 0 {
		return 0
	}
	chunkWords := textutil.ContentWords(chunk.Content)
	chunkSet := make(map[string]bool, len(chunkWords))
	for _, w := range chunkWords {
		chunkSet[w] = true
	}

	querySet := make(map[string]bool, len(queryWords))
	intersection := 0
	for _, w := range queryWords {
		if querySet[w] {
			continue
		}
		querySet[w] = true
		if chunkSet[w] {
			intersection++
		}
	}
	union := len(querySet) + len(chunkSet) - intersection
	score := 0.0
	if union > 0 {
		score = float64(intersection) / float64(union)
	}

	lower := strings.ToLower(chunk.Content)
	for _, phrase := range phrases {
		if strings.Contains(lower, phrase) {
			score += phraseBonus
		}
	}
	for w := range querySet {
		if docs := wordDocs[w]; len(docs) == 1 && docs[chunk.DocumentID] {
			score += uniqueWordBonus
		}
	}
	if score > 1 {
		score = 1
	}
	return score
}

// wordDocumentIndex maps each query word to the set of candidate documents
// containing it, for the unique-across-documents bonuses.
func wordDocumentIndex(queryWords []string, candidates []types.Chunk) map[string]map[uuid.UUID]bool {
	index := make(map[string]map[uuid.UUID]bool, len(queryWords))
	for _, w := range queryWords {
		if _, ok := index[w]; ok {
			continue
		}
		index[w] = make(map[uuid.UUID]bool)
	}
	for _, chunk := range candidates {
		lower := strings.ToLower(chunk.Content)
		for w, docs := range index {
			if strings.Contains(lower, w) {
				docs[chunk.DocumentID] = true
			}
		}
	}
	return index
}

func fileNameMatchesEntity(fileName string, entities []string) bool {
	if fileName == "" {
		return false
	}
	normalized := normalizeForMatch(fileName)
	for _, e := range entities {
		if strings.Contains(normalized, normalizeForMatch(e)) {
			return true
		}
	}
	return false
}

// normalizeForMatch lowercases and collapses punctuation to single spaces so
// "annual-report.pdf" matches the entity "Annual Report".
func normalizeForMatch(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// AggregateDocuments groups scored chunks by document, sums each document's
// top chunks, adds the unique-keyword bonus, and returns the relevant set:
// the best document plus any other within relevantDocumentRatio of it.
func (sc *Scorer) AggregateDocuments(query string, scored []types.Chunk) []ScoredDocument {
	if len(scored) == 0 {
		return nil
	}
	queryWords := textutil.ContentWords(query)
	wordDocs := wordDocumentIndex(queryWords, scored)

	byDoc := make(map[uuid.UUID]*ScoredDocument)
	var order []uuid.UUID
	for _, chunk := range scored {
		doc, ok := byDoc[chunk.DocumentID]
		if !ok {
			doc = &ScoredDocument{
				DocumentID:   chunk.DocumentID,
				FileName:     chunk.FileName,
				DocumentType: chunk.DocumentType,
			}
			byDoc[chunk.DocumentID] = doc
			order = append(order, chunk.DocumentID)
		}
		doc.Chunks = append(doc.Chunks, chunk)
	}

	docs := make([]ScoredDocument, 0, len(order))
	for _, id := range order {
		doc := byDoc[id]
		sort.SliceStable(doc.Chunks, func(i, j int) bool {
			return doc.Chunks[i].RelevanceScore > doc.Chunks[j].RelevanceScore
		})
		top := doc.Chunks
		if len(top) > sc.topChunksPerDoc {
			top = top[:sc.topChunksPerDoc]
		}
		for _, c := range top {
			doc.Aggregate += c.RelevanceScore
		}
		for _, w := range queryWords {
			if set := wordDocs[w]; len(set) == 1 && set[id] {
				doc.UniqueWords++
			}
		}
		doc.Aggregate += float64(doc.UniqueWords)
		docs = append(docs, *doc)
	}

	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].Aggregate != docs[j].Aggregate {
			return docs[i].Aggregate > docs[j].Aggregate
		}
		if len(docs[i].Chunks) != len(docs[j].Chunks) {
			return len(docs[i].Chunks) < len(docs[j].Chunks)
		}
		return docs[i].DocumentID.String() < docs[j].DocumentID.String()
	})

	cutoff := docs[0].Aggregate * relevantDocumentRatio
	relevant := docs[:1]
	for _, d := range docs[1:] {
		if d.Aggregate >= cutoff {
			relevant = append(relevant, d)
		}
	}
	return relevant
}
