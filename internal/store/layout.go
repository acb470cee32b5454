package store

import (
	"path/filepath"
	"strings"

	"litscout/internal/util"
)

// Layout maps the data root to the on-disk directories one deployment uses.
type Layout struct {
	Root string
}

func NewLayout(root string) Layout {
	return Layout{Root: root}
}

func (l Layout) PDFDir() string     { return filepath.Join(l.Root, "pdfs") }
func (l Layout) ChunkDir() string   { return filepath.Join(l.Root, "chunks") }
func (l Layout) NotesDir() string   { return filepath.Join(l.Root, "notes") }
func (l Layout) StateDir() string   { return filepath.Join(l.Root, "sessions") }
func (l Layout) MemoryDir() string  { return filepath.Join(l.Root, "memory") }
func (l Layout) VectorDB() string   { return filepath.Join(l.Root, "vectors.sqlite3") }
func (l Layout) PapersLog() string  { return filepath.Join(l.Root, "papers.jsonl") }

func (l Layout) PDFPath(paperID string) string {
	return filepath.Join(l.PDFDir(), fileSafe(paperID)+".pdf")
}

func (l Layout) ChunksPath(paperID string) string {
	return filepath.Join(l.ChunkDir(), fileSafe(paperID)+".jsonl")
}

func (l Layout) NotePath(sessionID string) string {
	return util.SafeJoin(l.NotesDir(), sessionID+".json")
}

func (l Layout) StatePath(sessionID string) string {
	return util.SafeJoin(l.StateDir(), sessionID+".json")
}

func (l Layout) EnsureDirs() error {
	for _, dir := range []string{l.Root, l.PDFDir(), l.ChunkDir(), l.NotesDir(), l.StateDir(), l.MemoryDir()} {
		if err := util.EnsureDir(dir); err != nil {
			return err
		}
	}
	return nil
}

// fileSafe keeps source-prefixed ids like "arxiv:2401.01234" usable as file
// names on all platforms.
func fileSafe(id string) string {
	r := strings.NewReplacer(":", "_", "/", "_", "\\", "_")
	return r.Replace(id)
}
