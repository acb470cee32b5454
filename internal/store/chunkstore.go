package store

import (
	"os"

	"litscout/internal/models"
	"litscout/internal/util"
)

// ChunkStore keeps one JSONL file of normalized chunks per paper.
type ChunkStore struct {
	layout Layout
}

func NewChunkStore(layout Layout) *ChunkStore {
	return &ChunkStore{layout: layout}
}

// WriteChunks replaces the full chunk set for a paper. Re-reading a paper
// must not accumulate chunks from earlier parses.
func (s *ChunkStore) WriteChunks(paperID string, chunks []models.Chunk) error {
	return util.WriteJSONLinesAtomic(s.layout.ChunksPath(paperID), chunks)
}

func (s *ChunkStore) ReadChunks(paperID string) ([]models.Chunk, error) {
	path := s.layout.ChunksPath(paperID)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return []models.Chunk{}, nil
	}
	return util.ReadJSONLines[models.Chunk](path)
}
