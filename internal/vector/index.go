package vector

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"litscout/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Index is the per-session similarity index over embedded chunks, backed by
// a single SQLite file. Ranking happens in-process so the index can tolerate
// rows of mixed embedding dimensionality.
type Index struct {
	db  *sql.DB
	log *zap.Logger
}

func Open(path string, log *zap.Logger) (*Index, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open vector index: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			log.Debug("pragma failed", zap.String("pragma", pragma), zap.Error(err))
		}
	}
	idx := &Index{db: db, log: log}
	if err := idx.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

func (i *Index) Close() error {
	return i.db.Close()
}

// Upsert inserts or replaces rows keyed by chunk id. Records missing an
// embedding or a chunk id are dropped silently: partial batches are expected
// when upstream embedding calls partially fail.
func (i *Index) Upsert(sessionID string, records []models.EmbeddingRecord) error {
	kept := make([]models.EmbeddingRecord, 0, len(records))
	for _, rec := range records {
		if rec.ChunkID == "" || len(rec.Embedding) == 0 {
			continue
		}
		kept = append(kept, rec)
	}
	if len(kept) == 0 {
		return nil
	}
	tx, err := i.db.Begin()
	if err != nil {
		return fmt.Errorf("begin upsert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	stmt, err := tx.Prepare(`
REPLACE INTO embeddings (session_id, chunk_id, paper_id, text, embedding, metadata, content_type, visual_description, image_path)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()
	for _, rec := range kept {
		emb, err := json.Marshal(rec.Embedding)
		if err != nil {
			return fmt.Errorf("encode embedding %s: %w", rec.ChunkID, err)
		}
		meta, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata %s: %w", rec.ChunkID, err)
		}
		if _, err := stmt.Exec(sessionID, rec.ChunkID, rec.PaperID, rec.Text, string(emb), string(meta), string(rec.ContentType), rec.VisualDescription, rec.ImagePath); err != nil {
			return fmt.Errorf("upsert row %s: %w", rec.ChunkID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert tx: %w", err)
	}
	i.log.Debug("indexed embeddings", zap.String("session", sessionID), zap.Int("rows", len(kept)))
	return nil
}

// DeleteSession removes every row for the session. Deleting a session that
// has no rows is not an error.
func (i *Index) DeleteSession(sessionID string) error {
	if _, err := i.db.Exec("DELETE FROM embeddings WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("delete session rows: %w", err)
	}
	return nil
}

// Query returns up to topK rows for the session ranked by descending cosine
// similarity. An empty or zero-norm query vector yields an empty result.
func (i *Index) Query(sessionID string, query []float32, topK int) ([]models.SearchHit, error) {
	if topK <= 0 {
		topK = 5
	}
	if len(query) == 0 {
		return []models.SearchHit{}, nil
	}
	queryNorm := Norm(query)
	if queryNorm == 0 {
		return []models.SearchHit{}, nil
	}

	rows, err := i.db.Query(`
SELECT chunk_id, paper_id, text, embedding, metadata, content_type, visual_description
FROM embeddings WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query session rows: %w", err)
	}
	defer rows.Close()

	scored := make([]models.SearchHit, 0, 64)
	for rows.Next() {
		var (
			hit      models.SearchHit
			embJSON  string
			metaJSON string
			ctype    string
		)
		if err := rows.Scan(&hit.ChunkID, &hit.PaperID, &hit.Text, &embJSON, &metaJSON, &ctype, &hit.VisualDescription); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		var emb []float32
		if err := json.Unmarshal([]byte(embJSON), &emb); err != nil {
			continue
		}
		if metaJSON != "" {
			_ = json.Unmarshal([]byte(metaJSON), &hit.Metadata)
		}
		hit.ContentType = models.ContentType(ctype)
		score := Cosine(query, emb, queryNorm)
		hit.Score = &score
		scored = append(scored, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return *scored[a].Score > *scored[b].Score
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// QueryPartitioned over-fetches topK*4 rows and splits them by content type.
// The similarity score is not type-aware, so type balancing has to happen
// client-side.
func (i *Index) QueryPartitioned(sessionID string, query []float32, topK int, types []models.ContentType) (map[models.ContentType][]models.SearchHit, error) {
	if topK <= 0 {
		topK = 5
	}
	hits, err := i.Query(sessionID, query, topK*4)
	if err != nil {
		return nil, err
	}
	out := make(map[models.ContentType][]models.SearchHit, len(types))
	for _, t := range types {
		out[t] = []models.SearchHit{}
	}
	for _, hit := range hits {
		t := hit.ContentType
		if t == "" {
			t = models.ContentText
		}
		bucket, ok := out[t]
		if !ok || len(bucket) >= topK {
			continue
		}
		out[t] = append(bucket, hit)
	}
	return out, nil
}
