package models

import "sort"

// PaperStatus tracks how far a discovered paper has moved through the session.
const (
	PaperStatusDiscovered = "discovered"
	PaperStatusRead       = "read"
)

type PaperRecord struct {
	ID      string   `json:"id"`
	Source  string   `json:"source"`
	Title   string   `json:"title"`
	Authors []string `json:"authors"`
	Year    *int     `json:"year,omitempty"`
	URL     string   `json:"url,omitempty"`
	PDFURL  string   `json:"pdf_url,omitempty"`
	Summary string   `json:"summary"`
	DOI     string   `json:"doi,omitempty"`
	Status  string   `json:"status,omitempty"`
	Notes   string   `json:"notes,omitempty"`
}

type ContentType string

const (
	ContentText   ContentType = "text"
	ContentFigure ContentType = "figure"
	ContentTable  ContentType = "table"
)

type Chunk struct {
	ID                string      `json:"id"`
	PaperID           string      `json:"paper_id"`
	Section           string      `json:"section,omitempty"`
	PageFrom          int         `json:"page_from"`
	PageTo            int         `json:"page_to"`
	Text              string      `json:"text"`
	ContentType       ContentType `json:"content_type,omitempty"`
	VisualDescription string      `json:"visual_description,omitempty"`
	ImagePath         string      `json:"image_path,omitempty"`
}

type ChunkMetadata struct {
	Section  string `json:"section,omitempty"`
	PageFrom int    `json:"page_from"`
	PageTo   int    `json:"page_to"`
}

type EmbeddingRecord struct {
	ChunkID           string        `json:"chunk_id"`
	SessionID         string        `json:"session_id"`
	PaperID           string        `json:"paper_id"`
	Text              string        `json:"text"`
	Embedding         []float32     `json:"embedding"`
	Metadata          ChunkMetadata `json:"metadata"`
	ContentType       ContentType   `json:"content_type,omitempty"`
	VisualDescription string        `json:"visual_description,omitempty"`
	ImagePath         string        `json:"image_path,omitempty"`
}

// SearchHit is one retrieval result. Score is nil when the hit came from the
// keyword fallback, whose overlap counts are not comparable to cosine scores.
type SearchHit struct {
	ChunkID           string        `json:"chunk_id"`
	PaperID           string        `json:"paper_id"`
	Text              string        `json:"text"`
	Score             *float64      `json:"score"`
	Metadata          ChunkMetadata `json:"metadata"`
	ContentType       ContentType   `json:"content_type,omitempty"`
	VisualDescription string        `json:"visual_description,omitempty"`
}

const (
	TaskStatusTodo  = "todo"
	TaskStatusDoing = "doing"
	TaskStatusDone  = "done"
)

// Task titles are a case-insensitive unique key; see planner.MergeTasks.
type Task struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

type Citation struct {
	PaperID string   `json:"paper_id"`
	ChunkID string   `json:"chunk_id"`
	Section string   `json:"section,omitempty"`
	Score   *float64 `json:"score"`
}

type Finding struct {
	Question  string     `json:"question"`
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
	Step      int        `json:"step"`
}

type QueryLogEntry struct {
	Raw       string `json:"raw"`
	Formatted string `json:"formatted"`
}

type HistoryEntry struct {
	Step           int             `json:"step"`
	Action         string          `json:"action"`
	Result         string          `json:"result"`
	PlannerPayload map[string]any  `json:"planner_payload,omitempty"`
	Timestamp      int64           `json:"timestamp"`
}

// SessionState is the aggregate root for one research session. The executor
// is its only mutator; it is checkpointed as a whole after every round.
type SessionState struct {
	Topic    string                 `json:"topic"`
	Step     int                    `json:"step"`
	Tasks    []Task                 `json:"tasks"`
	Queries  []QueryLogEntry        `json:"queries"`
	Papers   map[string]PaperRecord `json:"papers"`
	Chunks   map[string]Chunk       `json:"chunks"`
	History  []HistoryEntry         `json:"history"`
	Findings []Finding              `json:"findings"`
	Warnings []string               `json:"warnings"`
}

func NewSessionState(topic string) *SessionState {
	return &SessionState{
		Topic:    topic,
		Tasks:    []Task{},
		Queries:  []QueryLogEntry{},
		Papers:   map[string]PaperRecord{},
		Chunks:   map[string]Chunk{},
		History:  []HistoryEntry{},
		Findings: []Finding{},
		Warnings: []string{},
	}
}

// PaperIDs returns the known paper ids in sorted order so snapshots and
// projections stay deterministic across runs.
func (s *SessionState) PaperIDs() []string {
	ids := make([]string, 0, len(s.Papers))
	for id := range s.Papers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ChunkList returns the cached chunks in sorted id order.
func (s *SessionState) ChunkList() []Chunk {
	ids := make([]string, 0, len(s.Chunks))
	for id := range s.Chunks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Chunk, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.Chunks[id])
	}
	return out
}

type ReadingListEntry struct {
	PaperID string `json:"paper_id"`
	Reason  string `json:"reason"`
}

// Note is the read-optimized projection of a finished session. SessionState
// stays the resumable source of truth; the note is written separately.
type Note struct {
	Topic       string             `json:"topic"`
	SessionID   string             `json:"session_id"`
	CreatedAt   int64              `json:"created_at"`
	Tasks       []Task             `json:"tasks"`
	Queries     []QueryLogEntry    `json:"queries"`
	Papers      []string           `json:"papers"`
	History     []HistoryEntry     `json:"history_steps"`
	Findings    []Finding          `json:"findings"`
	ReadingList []ReadingListEntry `json:"reading_list"`
	Warnings    []string           `json:"warnings"`
}
