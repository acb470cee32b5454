package memory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"litscout/internal/config"
	"litscout/internal/store"

	"github.com/stretchr/testify/require"
)

func TestLocalStoreSessionContextMergesKeys(t *testing.T) {
	s := NewLocalFileStore(t.TempDir(), nil)
	ctx := context.Background()

	s.AddSessionContext(ctx, "s1", map[string]any{"topic": "graph neural networks"})
	s.AddSessionContext(ctx, "s1", map[string]any{"papers_read": []any{"arxiv:1", "arxiv:2"}})

	got := s.GetRelevantContext(ctx, "s1", "anything")
	require.Contains(t, got, "Topic: graph neural networks")
	require.Contains(t, got, "arxiv:1")
}

func TestLocalStoreSearchByLevel(t *testing.T) {
	s := NewLocalFileStore(t.TempDir(), nil)
	ctx := context.Background()

	s.AddUserPreference(ctx, "u1", "prefers survey papers")
	s.AddAgentKnowledge(ctx, "arxiv field syntax uses all: prefixes")
	s.AddSessionContext(ctx, "s1", map[string]any{"topic": "molecule generation"})

	require.Len(t, s.SearchMemory(ctx, "survey", LevelUser, 5), 1)
	require.Len(t, s.SearchMemory(ctx, "field syntax", LevelAgent, 5), 1)
	require.Len(t, s.SearchMemory(ctx, "molecule", LevelSession, 5), 1)
	require.Empty(t, s.SearchMemory(ctx, "unrelated", LevelUser, 5))
}

func TestLocalStoreUserPreferenceDedup(t *testing.T) {
	s := NewLocalFileStore(t.TempDir(), nil)
	ctx := context.Background()

	s.AddUserPreference(ctx, "u1", "prefers short answers")
	s.AddUserPreference(ctx, "u1", "prefers short answers")

	require.Len(t, s.SearchMemory(ctx, "short answers", LevelUser, 5), 1)
}

func TestRemoteStoreFallsBackOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	local := NewLocalFileStore(t.TempDir(), nil)
	remote := NewRemoteStore(srv.URL, "key", time.Second, local, nil)
	ctx := context.Background()

	remote.AddSessionContext(ctx, "s1", map[string]any{"topic": "edge computing"})
	got := remote.GetRelevantContext(ctx, "s1", "what")
	require.Contains(t, got, "edge computing")
}

func TestRemoteStoreUsesBackendWhenHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v2/memories/search/" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"memory":"remote context"}]`))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	local := NewLocalFileStore(t.TempDir(), nil)
	remote := NewRemoteStore(srv.URL, "key", time.Second, local, nil)

	got := remote.GetRelevantContext(context.Background(), "s1", "what")
	require.Equal(t, "remote context", got)
}

func TestNewSelectsBackendByConfig(t *testing.T) {
	layout := store.NewLayout(t.TempDir())
	require.NoError(t, layout.EnsureDirs())

	localStore := New(config.Config{}, layout, nil)
	require.IsType(t, &LocalFileStore{}, localStore)

	remoteStore := New(config.Config{MemoryBaseURL: "http://localhost:9999"}, layout, nil)
	require.IsType(t, &RemoteStore{}, remoteStore)
}
