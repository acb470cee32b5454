package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"litscout/internal/models"
	"litscout/internal/util"
)

// SessionStore persists resumable session state and terminal notes. The state
// file is the crash-recovery contract: it is rewritten atomically after every
// round, so a restart resumes from the last completed round.
type SessionStore struct {
	layout Layout
}

func NewSessionStore(layout Layout) *SessionStore {
	return &SessionStore{layout: layout}
}

// LoadState returns the persisted state for the session, or a fresh one plus
// isNew=true when no checkpoint exists yet.
func (s *SessionStore) LoadState(sessionID, topic string) (*models.SessionState, bool, error) {
	path := s.layout.StatePath(sessionID)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return models.NewSessionState(topic), true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read session state: %w", err)
	}
	state := models.NewSessionState(topic)
	if err := json.Unmarshal(raw, state); err != nil {
		return nil, false, fmt.Errorf("decode session state: %w", err)
	}
	if state.Topic == "" {
		state.Topic = topic
	}
	if state.Papers == nil {
		state.Papers = map[string]models.PaperRecord{}
	}
	if state.Chunks == nil {
		state.Chunks = map[string]models.Chunk{}
	}
	return state, false, nil
}

func (s *SessionStore) SaveState(sessionID string, state *models.SessionState) error {
	return util.WriteJSONAtomic(s.layout.StatePath(sessionID), state)
}

func (s *SessionStore) SaveNote(sessionID string, note models.Note) error {
	return util.WriteJSONAtomic(s.layout.NotePath(sessionID), note)
}

func (s *SessionStore) LoadNote(sessionID string) (models.Note, error) {
	raw, err := os.ReadFile(s.layout.NotePath(sessionID))
	if err != nil {
		return models.Note{}, fmt.Errorf("read note: %w", err)
	}
	var note models.Note
	if err := json.Unmarshal(raw, &note); err != nil {
		return models.Note{}, fmt.Errorf("decode note: %w", err)
	}
	return note, nil
}

// ListSessions returns ids of sessions that produced a note.
func (s *SessionStore) ListSessions() ([]string, error) {
	entries, err := os.ReadDir(s.layout.NotesDir())
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read notes dir: %w", err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		out = append(out, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(out)
	return out, nil
}

// AppendPaperLog records a discovered paper in the shared discovery log.
func (s *SessionStore) AppendPaperLog(paper models.PaperRecord) error {
	return util.AppendJSONLine(s.layout.PapersLog(), paper)
}

// ReadPaperLog returns every paper ever discovered, across sessions.
func (s *SessionStore) ReadPaperLog() ([]models.PaperRecord, error) {
	path := s.layout.PapersLog()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return []models.PaperRecord{}, nil
	}
	return util.ReadJSONLines[models.PaperRecord](path)
}
