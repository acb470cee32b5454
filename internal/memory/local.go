package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"litscout/internal/util"

	"go.uber.org/zap"
)

const agentKnowledgeCap = 200

// LocalFileStore keeps memory in JSON files under the data directory. It is
// the fallback when no remote memory backend is configured.
type LocalFileStore struct {
	dir string
	log *zap.Logger
}

func NewLocalFileStore(dir string, log *zap.Logger) *LocalFileStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &LocalFileStore{dir: dir, log: log}
}

type userMemory struct {
	Preferences []string `json:"preferences"`
}

type sessionMemory struct {
	Context map[string]any `json:"context"`
}

type agentMemory struct {
	Knowledge []string `json:"knowledge"`
}

func (s *LocalFileStore) userPath(userID string) string {
	return util.SafeJoin(s.dir, "user_"+userID+".json")
}

func (s *LocalFileStore) sessionPath(sessionID string) string {
	return util.SafeJoin(s.dir, "session_"+sessionID+".json")
}

func (s *LocalFileStore) agentPath() string {
	return filepath.Join(s.dir, "agent.json")
}

func (s *LocalFileStore) AddUserPreference(ctx context.Context, userID, preference string) {
	_ = ctx
	if userID == "" || preference == "" {
		return
	}
	var data userMemory
	readJSON(s.userPath(userID), &data)
	for _, p := range data.Preferences {
		if p == preference {
			return
		}
	}
	data.Preferences = append(data.Preferences, preference)
	s.write(s.userPath(userID), data)
}

func (s *LocalFileStore) AddSessionContext(ctx context.Context, sessionID string, sessionCtx map[string]any) {
	_ = ctx
	if sessionID == "" || len(sessionCtx) == 0 {
		return
	}
	var data sessionMemory
	readJSON(s.sessionPath(sessionID), &data)
	if data.Context == nil {
		data.Context = map[string]any{}
	}
	for k, v := range sessionCtx {
		data.Context[k] = v
	}
	s.write(s.sessionPath(sessionID), data)
}

func (s *LocalFileStore) AddAgentKnowledge(ctx context.Context, knowledge string) {
	_ = ctx
	if knowledge == "" {
		return
	}
	var data agentMemory
	readJSON(s.agentPath(), &data)
	data.Knowledge = append(data.Knowledge, knowledge)
	if len(data.Knowledge) > agentKnowledgeCap {
		data.Knowledge = data.Knowledge[len(data.Knowledge)-agentKnowledgeCap:]
	}
	s.write(s.agentPath(), data)
}

func (s *LocalFileStore) SearchMemory(ctx context.Context, query string, level Level, limit int) []Entry {
	_ = ctx
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []Entry{}
	}
	if limit <= 0 {
		limit = 5
	}
	results := []Entry{}
	switch level {
	case LevelUser:
		for _, path := range s.glob("user_*.json") {
			var data userMemory
			readJSON(path, &data)
			for _, pref := range data.Preferences {
				if strings.Contains(strings.ToLower(pref), q) {
					results = append(results, Entry{Level: LevelUser, Text: pref})
				}
			}
		}
	case LevelSession:
		for _, path := range s.glob("session_*.json") {
			var data sessionMemory
			readJSON(path, &data)
			for k, v := range data.Context {
				text := fmt.Sprintf("%s: %v", k, v)
				if strings.Contains(strings.ToLower(text), q) {
					results = append(results, Entry{Level: LevelSession, Text: text})
				}
			}
		}
	default:
		var data agentMemory
		readJSON(s.agentPath(), &data)
		for _, item := range data.Knowledge {
			if strings.Contains(strings.ToLower(item), q) {
				results = append(results, Entry{Level: LevelAgent, Text: item})
			}
		}
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// GetRelevantContext renders a short prompt-ready summary of what the
// session already knows.
func (s *LocalFileStore) GetRelevantContext(ctx context.Context, sessionID, question string) string {
	_ = ctx
	_ = question
	var data sessionMemory
	readJSON(s.sessionPath(sessionID), &data)
	if len(data.Context) == 0 {
		return ""
	}
	parts := []string{}
	if topic, ok := data.Context["topic"].(string); ok && topic != "" {
		parts = append(parts, "Topic: "+topic)
	}
	if papers := renderList(data.Context["papers_read"]); papers != "" {
		parts = append(parts, "Papers: "+util.Truncate(papers, 300))
	}
	if findings := renderList(data.Context["key_findings"]); findings != "" {
		parts = append(parts, "Key findings: "+util.Truncate(findings, 400))
	}
	return strings.Join(parts, " | ")
}

func (s *LocalFileStore) glob(pattern string) []string {
	paths, err := filepath.Glob(filepath.Join(s.dir, pattern))
	if err != nil {
		return nil
	}
	return paths
}

func (s *LocalFileStore) write(path string, v any) {
	if err := util.WriteJSONAtomic(path, v); err != nil {
		s.log.Warn("memory write failed", zap.String("path", path), zap.Error(err))
	}
}

func readJSON(path string, v any) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return
	}
	_ = json.Unmarshal(raw, v)
}

func renderList(v any) string {
	items, ok := v.([]any)
	if !ok {
		if s, ok := v.(string); ok {
			return s
		}
		return ""
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%v", item))
	}
	return strings.Join(parts, "; ")
}
