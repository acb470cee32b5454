package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// RemoteStore talks to an external memory service over its REST API and
// degrades to the local store on any failure. Callers never see the backend
// error; degraded calls are logged and answered by the fallback.
type RemoteStore struct {
	baseURL  string
	apiKey   string
	client   *http.Client
	fallback *LocalFileStore
	log      *zap.Logger
}

func NewRemoteStore(baseURL, apiKey string, timeout time.Duration, fallback *LocalFileStore, log *zap.Logger) *RemoteStore {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RemoteStore{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
		fallback: fallback,
		log:      log,
	}
}

type remoteMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type remoteAddRequest struct {
	Messages []remoteMessage `json:"messages"`
	UserID   string          `json:"user_id"`
}

type remoteSearchRequest struct {
	Query   string            `json:"query"`
	Filters map[string]string `json:"filters"`
	Limit   int               `json:"limit"`
}

type remoteSearchResult struct {
	Memory string   `json:"memory"`
	Score  *float64 `json:"score,omitempty"`
}

func (s *RemoteStore) AddUserPreference(ctx context.Context, userID, preference string) {
	if userID == "" || preference == "" {
		return
	}
	err := s.add(ctx, remoteAddRequest{
		Messages: []remoteMessage{{Role: "user", Content: preference}},
		UserID:   userID,
	})
	if err != nil {
		s.log.Warn("remote memory add failed, using local fallback", zap.Error(err))
		s.fallback.AddUserPreference(ctx, userID, preference)
	}
}

func (s *RemoteStore) AddSessionContext(ctx context.Context, sessionID string, sessionCtx map[string]any) {
	if sessionID == "" || len(sessionCtx) == 0 {
		return
	}
	encoded, err := json.Marshal(sessionCtx)
	if err != nil {
		s.fallback.AddSessionContext(ctx, sessionID, sessionCtx)
		return
	}
	err = s.add(ctx, remoteAddRequest{
		Messages: []remoteMessage{{Role: "assistant", Content: "Session context: " + string(encoded)}},
		UserID:   "session_" + sessionID,
	})
	if err != nil {
		s.log.Warn("remote memory add failed, using local fallback", zap.Error(err))
		s.fallback.AddSessionContext(ctx, sessionID, sessionCtx)
	}
}

func (s *RemoteStore) AddAgentKnowledge(ctx context.Context, knowledge string) {
	if knowledge == "" {
		return
	}
	err := s.add(ctx, remoteAddRequest{
		Messages: []remoteMessage{{Role: "system", Content: knowledge}},
		UserID:   "agent_global",
	})
	if err != nil {
		s.log.Warn("remote memory add failed, using local fallback", zap.Error(err))
		s.fallback.AddAgentKnowledge(ctx, knowledge)
	}
}

func (s *RemoteStore) SearchMemory(ctx context.Context, query string, level Level, limit int) []Entry {
	q := strings.TrimSpace(query)
	if q == "" {
		return []Entry{}
	}
	if limit <= 0 {
		limit = 5
	}
	var userID string
	switch level {
	case LevelUser:
		userID = "default_user"
	case LevelAgent:
		userID = "agent_global"
	default:
		// Session search stays local; the remote API keys sessions by
		// synthetic user ids that are not enumerable.
		return s.fallback.SearchMemory(ctx, query, level, limit)
	}
	results, err := s.search(ctx, remoteSearchRequest{Query: q, Filters: map[string]string{"user_id": userID}, Limit: limit})
	if err != nil {
		s.log.Warn("remote memory search failed, using local fallback", zap.Error(err))
		return s.fallback.SearchMemory(ctx, query, level, limit)
	}
	out := make([]Entry, 0, len(results))
	for _, r := range results {
		out = append(out, Entry{Level: level, Text: r.Memory, Score: r.Score})
	}
	return out
}

func (s *RemoteStore) GetRelevantContext(ctx context.Context, sessionID, question string) string {
	results, err := s.search(ctx, remoteSearchRequest{
		Query:   question,
		Filters: map[string]string{"user_id": "session_" + sessionID},
		Limit:   3,
	})
	if err != nil || len(results) == 0 {
		if err != nil {
			s.log.Warn("remote memory context failed, using local fallback", zap.Error(err))
		}
		return s.fallback.GetRelevantContext(ctx, sessionID, question)
	}
	parts := make([]string, 0, len(results))
	for _, r := range results {
		if r.Memory != "" {
			parts = append(parts, r.Memory)
		}
	}
	return strings.Join(parts, " | ")
}

func (s *RemoteStore) add(ctx context.Context, req remoteAddRequest) error {
	return s.post(ctx, "/v1/memories/", req, nil)
}

func (s *RemoteStore) search(ctx context.Context, req remoteSearchRequest) ([]remoteSearchResult, error) {
	var results []remoteSearchResult
	if err := s.post(ctx, "/v2/memories/search/", req, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *RemoteStore) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode memory request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build memory request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		httpReq.Header.Set("Authorization", "Token "+s.apiKey)
	}
	resp, err := s.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("memory request failed: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("memory backend error %d: %s", resp.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode memory response: %w", err)
	}
	return nil
}
