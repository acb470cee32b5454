// Package retrieval answers questions against a session's indexed chunks,
// falling back to keyword overlap when embeddings are unavailable.
package retrieval

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"litscout/internal/memory"
	"litscout/internal/models"
	"litscout/internal/providers"
	"litscout/internal/vector"

	"go.uber.org/zap"
)

var wordRe = regexp.MustCompile(`\w+`)

type Retriever struct {
	embedder providers.EmbeddingProvider
	index    *vector.Index
	memories memory.Store
	embedDim int
	log      *zap.Logger
}

func New(embedder providers.EmbeddingProvider, index *vector.Index, memories memory.Store, embedDim int, log *zap.Logger) *Retriever {
	if log == nil {
		log = zap.NewNop()
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		memories: memories,
		embedDim: embedDim,
		log:      log,
	}
}

// Retrieve runs the vector path first and falls back to keyword overlap over
// the supplied chunk cache when embedding fails or returns nothing. The
// fallback keeps hit scores nil: overlap counts are not comparable to cosine
// similarities.
func (r *Retriever) Retrieve(ctx context.Context, sessionID, question string, chunks []models.Chunk, topN int) []models.SearchHit {
	if topN <= 0 {
		topN = 5
	}
	hits := r.vectorRetrieve(ctx, sessionID, question, topN)
	if len(hits) > 0 {
		return hits
	}
	return KeywordRetrieve(chunks, question, topN)
}

// MemoryContext returns a short prompt-ready summary of what earlier rounds
// of this session already learned.
func (r *Retriever) MemoryContext(ctx context.Context, sessionID, question string) string {
	if r.memories == nil {
		return ""
	}
	return r.memories.GetRelevantContext(ctx, sessionID, question)
}

func (r *Retriever) vectorRetrieve(ctx context.Context, sessionID, question string, topN int) []models.SearchHit {
	if r.embedder == nil || r.index == nil {
		return nil
	}
	vectors, _, err := r.embedder.Embed(ctx, providers.EmbedRequest{
		Operation: "retrieve",
		Inputs:    []string{question},
		Dimension: r.embedDim,
	})
	if err != nil || len(vectors) == 0 {
		if err != nil {
			r.log.Warn("question embedding failed, using keyword fallback", zap.Error(err))
		}
		return nil
	}
	hits, err := r.index.Query(sessionID, vectors[0], topN)
	if err != nil {
		r.log.Warn("vector query failed, using keyword fallback", zap.Error(err))
		return nil
	}
	return hits
}

// KeywordRetrieve scores chunks by the number of distinct question tokens
// they contain. Ties keep input order.
func KeywordRetrieve(chunks []models.Chunk, question string, topN int) []models.SearchHit {
	qTokens := tokenize(question)
	if len(qTokens) == 0 {
		return []models.SearchHit{}
	}
	type scored struct {
		overlap int
		chunk   models.Chunk
	}
	var matches []scored
	for _, ch := range chunks {
		overlap := 0
		cTokens := tokenize(ch.Text)
		for tok := range qTokens {
			if cTokens[tok] {
				overlap++
			}
		}
		if overlap > 0 {
			matches = append(matches, scored{overlap: overlap, chunk: ch})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].overlap > matches[j].overlap })
	if len(matches) > topN {
		matches = matches[:topN]
	}
	hits := make([]models.SearchHit, 0, len(matches))
	for _, m := range matches {
		hits = append(hits, models.SearchHit{
			ChunkID: m.chunk.ID,
			PaperID: m.chunk.PaperID,
			Text:    m.chunk.Text,
			Metadata: models.ChunkMetadata{
				Section:  m.chunk.Section,
				PageFrom: m.chunk.PageFrom,
				PageTo:   m.chunk.PageTo,
			},
			ContentType:       m.chunk.ContentType,
			VisualDescription: m.chunk.VisualDescription,
		})
	}
	return hits
}

func tokenize(text string) map[string]bool {
	tokens := map[string]bool{}
	for _, tok := range wordRe.FindAllString(strings.ToLower(text), -1) {
		tokens[tok] = true
	}
	return tokens
}
