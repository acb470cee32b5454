package vector

import (
	"database/sql"
	"fmt"
)

// Schema versions:
// v1: embeddings table keyed by chunk_id, session-scoped rows
// v2: content_type, visual_description, image_path columns for multimodal chunks
const currentSchemaVersion = 2

type migration struct {
	version int
	stmts   []string
}

var migrations = []migration{
	{
		version: 1,
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS embeddings (
				session_id TEXT NOT NULL,
				chunk_id TEXT PRIMARY KEY,
				paper_id TEXT,
				text TEXT,
				embedding TEXT,
				metadata TEXT
			)`,
			"CREATE INDEX IF NOT EXISTS idx_embeddings_session ON embeddings(session_id)",
		},
	},
	{
		version: 2,
		stmts: []string{
			"ALTER TABLE embeddings ADD COLUMN content_type TEXT DEFAULT ''",
			"ALTER TABLE embeddings ADD COLUMN visual_description TEXT DEFAULT ''",
			"ALTER TABLE embeddings ADD COLUMN image_path TEXT DEFAULT ''",
		},
	},
}

// migrate applies pending schema migrations once, at Open time. Versions are
// tracked in schema_version so upgrades never probe with trial ALTERs.
func (i *Index) migrate() error {
	if _, err := i.db.Exec("CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)"); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}
	version, err := schemaVersion(i.db)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		tx, err := i.db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		for _, stmt := range m.stmts {
			if _, err := tx.Exec(stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("apply migration %d: %w", m.version, err)
			}
		}
		if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("clear schema_version: %w", err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record schema version %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
		version = m.version
	}
	if version != currentSchemaVersion {
		return fmt.Errorf("schema version %d after migrations, want %d", version, currentSchemaVersion)
	}
	return nil
}

func schemaVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}
