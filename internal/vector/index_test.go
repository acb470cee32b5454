package vector

import (
	"path/filepath"
	"testing"

	"litscout/internal/models"

	"github.com/stretchr/testify/require"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Open(filepath.Join(t.TempDir(), "vectors.sqlite3"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func rec(chunkID, paperID string, emb []float32) models.EmbeddingRecord {
	return models.EmbeddingRecord{ChunkID: chunkID, PaperID: paperID, Text: "text " + chunkID, Embedding: emb}
}

func TestQueryRanksByCosine(t *testing.T) {
	idx := openTestIndex(t)
	require.NoError(t, idx.Upsert("s1", []models.EmbeddingRecord{
		rec("a", "p1", []float32{1, 0}),
		rec("b", "p1", []float32{0, 1}),
		rec("c", "p2", []float32{1, 0}),
	}))

	hits, err := idx.Query("s1", []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	got := []string{hits[0].ChunkID, hits[1].ChunkID}
	require.ElementsMatch(t, []string{"a", "c"}, got)
	require.InDelta(t, 1.0, *hits[0].Score, 1e-9)
	require.InDelta(t, 1.0, *hits[1].Score, 1e-9)
}

func TestSessionIsolation(t *testing.T) {
	idx := openTestIndex(t)
	require.NoError(t, idx.Upsert("s1", []models.EmbeddingRecord{rec("a", "p1", []float32{1, 0})}))

	hits, err := idx.Query("s2", []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestUpsertDropsIncompleteRecords(t *testing.T) {
	idx := openTestIndex(t)
	require.NoError(t, idx.Upsert("s1", []models.EmbeddingRecord{
		rec("a", "p1", []float32{1, 0}),
		{ChunkID: "missing-embedding", PaperID: "p1"},
		{PaperID: "missing-chunk-id", Embedding: []float32{1, 0}},
	}))

	hits, err := idx.Query("s1", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "a", hits[0].ChunkID)
}

func TestUpsertReplacesByChunkID(t *testing.T) {
	idx := openTestIndex(t)
	require.NoError(t, idx.Upsert("s1", []models.EmbeddingRecord{rec("a", "p1", []float32{1, 0})}))
	require.NoError(t, idx.Upsert("s1", []models.EmbeddingRecord{rec("a", "p1", []float32{0, 1})}))

	hits, err := idx.Query("s1", []float32{0, 1}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.InDelta(t, 1.0, *hits[0].Score, 1e-9)
}

func TestQueryDegenerateVector(t *testing.T) {
	idx := openTestIndex(t)
	require.NoError(t, idx.Upsert("s1", []models.EmbeddingRecord{rec("a", "p1", []float32{1, 0})}))

	hits, err := idx.Query("s1", nil, 5)
	require.NoError(t, err)
	require.Empty(t, hits)

	hits, err = idx.Query("s1", []float32{0, 0}, 5)
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestMismatchedDimensionScoresSentinel(t *testing.T) {
	idx := openTestIndex(t)
	require.NoError(t, idx.Upsert("s1", []models.EmbeddingRecord{
		rec("short", "p1", []float32{1, 0}),
		rec("long", "p1", []float32{1, 0, 0}),
	}))

	hits, err := idx.Query("s1", []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, "short", hits[0].ChunkID)
	require.Equal(t, MismatchScore, *hits[1].Score)
}

func TestDeleteSessionIdempotent(t *testing.T) {
	idx := openTestIndex(t)
	require.NoError(t, idx.Upsert("s1", []models.EmbeddingRecord{rec("a", "p1", []float32{1, 0})}))
	require.NoError(t, idx.DeleteSession("s1"))
	require.NoError(t, idx.DeleteSession("s1"))
	require.NoError(t, idx.DeleteSession("never-existed"))

	hits, err := idx.Query("s1", []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestQueryPartitionedSplitsByContentType(t *testing.T) {
	idx := openTestIndex(t)
	records := []models.EmbeddingRecord{
		{ChunkID: "t1", PaperID: "p1", Text: "text chunk", Embedding: []float32{1, 0}, ContentType: models.ContentText},
		{ChunkID: "f1", PaperID: "p1", Text: "figure chunk", Embedding: []float32{0.9, 0.1}, ContentType: models.ContentFigure},
		{ChunkID: "tb1", PaperID: "p1", Text: "table chunk", Embedding: []float32{0.8, 0.2}, ContentType: models.ContentTable},
	}
	require.NoError(t, idx.Upsert("s1", records))

	parts, err := idx.QueryPartitioned("s1", []float32{1, 0}, 2, []models.ContentType{models.ContentText, models.ContentFigure, models.ContentTable})
	require.NoError(t, err)
	require.Len(t, parts[models.ContentText], 1)
	require.Len(t, parts[models.ContentFigure], 1)
	require.Len(t, parts[models.ContentTable], 1)
	require.Equal(t, "f1", parts[models.ContentFigure][0].ChunkID)
}

func TestMigrateIsStableAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.sqlite3")

	idx, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, idx.Upsert("s1", []models.EmbeddingRecord{rec("a", "p1", []float32{1, 0})}))
	require.NoError(t, idx.Close())

	idx2, err := Open(path, nil)
	require.NoError(t, err)
	defer idx2.Close()
	hits, err := idx2.Query("s1", []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
}
