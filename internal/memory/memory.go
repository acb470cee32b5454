// Package memory provides multi-level memory for research sessions: user
// preferences, per-session context, and agent-wide knowledge.
package memory

import (
	"context"

	"litscout/internal/config"
	"litscout/internal/store"

	"go.uber.org/zap"
)

type Level string

const (
	LevelUser    Level = "user"
	LevelSession Level = "session"
	LevelAgent   Level = "agent"
)

type Entry struct {
	Level Level    `json:"level"`
	Text  string   `json:"text"`
	Score *float64 `json:"score,omitempty"`
}

// Store is the memory collaborator used by the retrieval and read paths.
// Implementations must never surface backend failures to callers; the worst
// outcome of a broken backend is an empty result.
type Store interface {
	AddUserPreference(ctx context.Context, userID, preference string)
	AddSessionContext(ctx context.Context, sessionID string, sessionCtx map[string]any)
	AddAgentKnowledge(ctx context.Context, knowledge string)
	SearchMemory(ctx context.Context, query string, level Level, limit int) []Entry
	GetRelevantContext(ctx context.Context, sessionID, question string) string
}

// New selects the backend once, at construction: remote when a base URL is
// configured, local JSON files otherwise.
func New(cfg config.Config, layout store.Layout, log *zap.Logger) Store {
	local := NewLocalFileStore(layout.MemoryDir(), log)
	if cfg.MemoryBaseURL == "" {
		return local
	}
	return NewRemoteStore(cfg.MemoryBaseURL, cfg.MemoryAPIKey, cfg.ProviderTimeout, local, log)
}
