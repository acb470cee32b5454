package retrieval

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"litscout/internal/models"
	"litscout/internal/providers"
	"litscout/internal/vector"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(id, text string) models.Chunk {
	return models.Chunk{ID: id, PaperID: "arxiv:1", Text: text, ContentType: models.ContentText}
}

func TestKeywordRetrieveOrdersByOverlap(t *testing.T) {
	chunks := []models.Chunk{
		chunk("c1", "graph neural networks for molecules"),
		chunk("c2", "transformers for language"),
		chunk("c3", "neural networks and graph structure in models"),
	}
	hits := KeywordRetrieve(chunks, "graph neural networks", 5)
	require.Len(t, hits, 2)
	// c1 and c3 both overlap on all three tokens; ties keep input order.
	assert.Equal(t, "c1", hits[0].ChunkID)
	assert.Equal(t, "c3", hits[1].ChunkID)
	for _, h := range hits {
		assert.Nil(t, h.Score)
	}
}

func TestKeywordRetrieveEmptyQuestion(t *testing.T) {
	hits := KeywordRetrieve([]models.Chunk{chunk("c1", "anything")}, "  !! ", 5)
	assert.Empty(t, hits)
}

func TestKeywordRetrieveTopN(t *testing.T) {
	chunks := []models.Chunk{
		chunk("c1", "retrieval"),
		chunk("c2", "retrieval"),
		chunk("c3", "retrieval"),
	}
	hits := KeywordRetrieve(chunks, "retrieval", 2)
	require.Len(t, hits, 2)
	assert.Equal(t, "c1", hits[0].ChunkID)
	assert.Equal(t, "c2", hits[1].ChunkID)
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, req providers.EmbedRequest) ([][]float32, providers.ProviderInfo, error) {
	return nil, providers.ProviderInfo{}, errors.New("embedder down")
}

func TestRetrieveFallsBackOnEmbedFailure(t *testing.T) {
	idx, err := vector.Open(filepath.Join(t.TempDir(), "vectors.sqlite3"), nil)
	require.NoError(t, err)
	defer idx.Close()

	r := New(failingEmbedder{}, idx, nil, 8, nil)
	chunks := []models.Chunk{chunk("c1", "sparse retrieval beats dense retrieval sometimes")}

	hits := r.Retrieve(context.Background(), "s1", "dense retrieval", chunks, 3)
	require.Len(t, hits, 1)
	assert.Equal(t, "c1", hits[0].ChunkID)
	assert.Nil(t, hits[0].Score)
}

func TestRetrieveVectorPath(t *testing.T) {
	idx, err := vector.Open(filepath.Join(t.TempDir(), "vectors.sqlite3"), nil)
	require.NoError(t, err)
	defer idx.Close()

	mock := providers.NewMockProvider(8)
	vecs, _, err := mock.Embed(context.Background(), providers.EmbedRequest{Inputs: []string{"dense retrieval"}, Dimension: 8})
	require.NoError(t, err)
	require.NoError(t, idx.Upsert("s1", []models.EmbeddingRecord{{
		ChunkID:   "c1",
		PaperID:   "arxiv:1",
		Text:      "dense retrieval",
		Embedding: vecs[0],
	}}))

	r := New(mock, idx, nil, 8, nil)
	hits := r.Retrieve(context.Background(), "s1", "dense retrieval", nil, 3)
	require.Len(t, hits, 1)
	assert.Equal(t, "c1", hits[0].ChunkID)
	require.NotNil(t, hits[0].Score)
	assert.InDelta(t, 1.0, *hits[0].Score, 1e-6)
}
