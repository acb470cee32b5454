// Package planner asks the chat model for the next exploration step and
// validates its answer at the JSON boundary.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"litscout/internal/models"
	"litscout/internal/providers"
	"litscout/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ActionSearch    = "search"
	ActionRead      = "read"
	ActionSummarize = "summarize"
	ActionFinish    = "finish"
)

// Action is the validated planner decision. Only the fields matching Kind
// are populated.
type Action struct {
	Kind     string
	Notes    string
	Queries  []string
	PaperIDs []string
	Focus    []string
}

type Planner struct {
	llm   providers.LLMProvider
	topic string
	log   *zap.Logger
}

func New(llm providers.LLMProvider, topic string, log *zap.Logger) *Planner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Planner{llm: llm, topic: topic, log: log}
}

// NextAction renders a bounded state snapshot, runs one strict-JSON chat
// turn, merges the returned todo list into state and returns the validated
// action. Any protocol violation from the model is a hard error so the
// caller aborts the round with the last checkpoint intact.
func (p *Planner) NextAction(ctx context.Context, state *models.SessionState, observation string) (Action, map[string]any, error) {
	snapshot, err := renderSnapshot(state, observation)
	if err != nil {
		return Action{}, nil, fmt.Errorf("render state snapshot: %w", err)
	}
	resp, info, err := p.llm.Chat(ctx, providers.ChatRequest{
		Operation: "plan",
		Messages: []providers.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Topic: %s\nState:\n%s", p.topic, snapshot)},
		},
		JSONObject:  true,
		Temperature: 0.2,
		MaxTokens:   1600,
	})
	if err != nil {
		return Action{}, nil, fmt.Errorf("planner chat: %w", err)
	}
	content := strings.TrimSpace(resp.Text)
	if content == "" {
		return Action{}, nil, fmt.Errorf("planner returned empty response (provider %s)", info.Name)
	}

	var payload plannerPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return Action{}, nil, fmt.Errorf("planner output is not valid JSON: %w: %s", err, util.Truncate(content, 400))
	}
	kind := strings.ToLower(strings.TrimSpace(payload.Action))
	switch kind {
	case ActionSearch, ActionRead, ActionSummarize, ActionFinish:
	default:
		return Action{}, nil, fmt.Errorf("planner returned unsupported action %q", payload.Action)
	}

	state.Tasks = MergeTasks(state.Tasks, normalizeTasks(payload.Todo))

	action := Action{Kind: kind, Notes: payload.Notes}
	switch kind {
	case ActionSearch:
		action.Queries = payload.queryStrings()
	case ActionRead:
		action.PaperIDs = payload.Papers
	case ActionSummarize:
		action.Focus = payload.Focus
	}

	var raw map[string]any
	_ = json.Unmarshal([]byte(content), &raw)
	p.log.Debug("planner action",
		zap.String("action", kind),
		zap.String("provider", info.Name),
		zap.Int("tasks", len(state.Tasks)))
	return action, raw, nil
}

type plannerPayload struct {
	Action  string            `json:"action"`
	Notes   string            `json:"notes"`
	Queries []json.RawMessage `json:"queries"`
	Papers  []string          `json:"papers"`
	Focus   []string          `json:"focus"`
	Todo    []taskUpdate      `json:"todo"`
}

type taskUpdate struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

// queryStrings accepts both plain strings and {"q": ...} / {"query": ...}
// objects; models drift between the two shapes.
func (p plannerPayload) queryStrings() []string {
	var out []string
	for _, raw := range p.Queries {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
			continue
		}
		var obj struct {
			Q     string `json:"q"`
			Query string `json:"query"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			continue
		}
		if s = strings.TrimSpace(obj.Q); s == "" {
			s = strings.TrimSpace(obj.Query)
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func normalizeTasks(updates []taskUpdate) []models.Task {
	out := make([]models.Task, 0, len(updates))
	for _, upd := range updates {
		title := strings.TrimSpace(upd.Title)
		if title == "" {
			continue
		}
		status := strings.ToLower(strings.TrimSpace(upd.Status))
		switch status {
		case models.TaskStatusTodo, models.TaskStatusDoing, models.TaskStatusDone:
		default:
			status = models.TaskStatusTodo
		}
		id := upd.ID
		if id == "" {
			id = strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		}
		out = append(out, models.Task{ID: id, Title: title, Status: status})
	}
	return out
}

// MergeTasks applies updates to the existing list keyed by lowercased title:
// a known title takes the updated status, a new title is appended. Existing
// order is preserved.
func MergeTasks(existing, updates []models.Task) []models.Task {
	merged := make([]models.Task, len(existing))
	copy(merged, existing)
	index := make(map[string]int, len(merged))
	for i, t := range merged {
		index[strings.ToLower(t.Title)] = i
	}
	for _, upd := range updates {
		key := strings.ToLower(upd.Title)
		if i, ok := index[key]; ok {
			merged[i].Status = upd.Status
			continue
		}
		index[key] = len(merged)
		merged = append(merged, upd)
	}
	return merged
}

type snapshotTask struct {
	Title  string `json:"title"`
	Status string `json:"status"`
}

type snapshotPaper struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type snapshotFinding struct {
	Question  string   `json:"question"`
	Answered  bool     `json:"answered"`
	Citations []string `json:"citations"`
	Step      int      `json:"step"`
}

type snapshotStep struct {
	Step   int    `json:"step"`
	Action string `json:"action"`
	Result string `json:"result"`
}

type stateSnapshot struct {
	Step            int               `json:"step"`
	OpenTasks       []snapshotTask    `json:"open_tasks"`
	KnownPapers     []snapshotPaper   `json:"known_papers"`
	QueriesTried    []string          `json:"queries_tried"`
	Findings        []snapshotFinding `json:"findings"`
	RecentSteps     []snapshotStep    `json:"recent_steps"`
	LastObservation string            `json:"last_observation"`
}

// renderSnapshot bounds what the model sees: 6 tasks, 10 papers, the last 5
// queries and findings, the last 2 history entries and a 400-char
// observation. Everything else stays on disk.
func renderSnapshot(state *models.SessionState, observation string) (string, error) {
	snap := stateSnapshot{
		Step:            state.Step,
		OpenTasks:       []snapshotTask{},
		KnownPapers:     []snapshotPaper{},
		QueriesTried:    []string{},
		Findings:        []snapshotFinding{},
		RecentSteps:     []snapshotStep{},
		LastObservation: util.Truncate(observation, 400),
	}
	for _, t := range state.Tasks {
		if len(snap.OpenTasks) == 6 {
			break
		}
		snap.OpenTasks = append(snap.OpenTasks, snapshotTask{Title: t.Title, Status: t.Status})
	}
	for _, id := range state.PaperIDs() {
		if len(snap.KnownPapers) == 10 {
			break
		}
		paper := state.Papers[id]
		status := paper.Status
		if status == "" {
			status = models.PaperStatusDiscovered
		}
		snap.KnownPapers = append(snap.KnownPapers, snapshotPaper{ID: id, Status: status})
	}
	for _, q := range tail(state.Queries, 5) {
		snap.QueriesTried = append(snap.QueriesTried, q.Formatted)
	}
	for _, f := range tail(state.Findings, 5) {
		sf := snapshotFinding{
			Question:  f.Question,
			Answered:  f.Answer != "",
			Citations: []string{},
			Step:      f.Step,
		}
		for _, c := range f.Citations {
			sf.Citations = append(sf.Citations, c.PaperID)
		}
		snap.Findings = append(snap.Findings, sf)
	}
	for _, h := range tail(state.History, 2) {
		snap.RecentSteps = append(snap.RecentSteps, snapshotStep{
			Step:   h.Step,
			Action: h.Action,
			Result: util.Truncate(h.Result, 300),
		})
	}
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func tail[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}
