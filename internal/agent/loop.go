// Package agent runs the planner-executor loop: each round asks the planner
// for one action, executes it against the session state and checkpoints the
// state before the next turn.
package agent

import (
	"context"
	"fmt"
	"time"

	"litscout/internal/config"
	"litscout/internal/memory"
	"litscout/internal/models"
	"litscout/internal/parser"
	"litscout/internal/planner"
	"litscout/internal/providers"
	"litscout/internal/retrieval"
	"litscout/internal/sources"
	"litscout/internal/store"
	"litscout/internal/vector"

	"go.uber.org/zap"
)

const startObservation = "Session started. Awaiting planner direction."

type Params struct {
	Sources  []sources.PaperSource
	Fetcher  *sources.Fetcher
	Parser   parser.DocumentParser
	LLM      providers.LLMProvider
	Embedder providers.EmbeddingProvider
	Index    *vector.Index
	Sessions *store.SessionStore
	Chunks   *store.ChunkStore
	Layout   store.Layout
	Memories memory.Store
	Log      *zap.Logger
}

type Executor struct {
	cfg       config.Config
	sources   []sources.PaperSource
	fetcher   *sources.Fetcher
	parser    parser.DocumentParser
	llm       providers.LLMProvider
	embedder  providers.EmbeddingProvider
	index     *vector.Index
	retriever *retrieval.Retriever
	sessions  *store.SessionStore
	chunks    *store.ChunkStore
	layout    store.Layout
	memories  memory.Store
	log       *zap.Logger
}

func New(cfg config.Config, p Params) *Executor {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{
		cfg:       cfg,
		sources:   p.Sources,
		fetcher:   p.Fetcher,
		parser:    p.Parser,
		llm:       p.LLM,
		embedder:  p.Embedder,
		index:     p.Index,
		retriever: retrieval.New(p.Embedder, p.Index, p.Memories, cfg.EmbedDim, log),
		sessions:  p.Sessions,
		chunks:    p.Chunks,
		layout:    p.Layout,
		memories:  p.Memories,
		log:       log,
	}
}

// Run drives one session to completion and returns its note. An existing
// state file resumes where it left off; a fresh session clears its index
// partition first. A planner protocol violation aborts the run with the last
// checkpoint intact.
func (e *Executor) Run(ctx context.Context, sessionID, topic string) (models.Note, error) {
	state, isNew, err := e.sessions.LoadState(sessionID, topic)
	if err != nil {
		return models.Note{}, fmt.Errorf("load session state: %w", err)
	}
	if isNew {
		if err := e.index.DeleteSession(sessionID); err != nil {
			return models.Note{}, fmt.Errorf("reset index partition: %w", err)
		}
	}

	pl := planner.New(e.llm, state.Topic, e.log)
	observation := startObservation

	for round := 0; round < e.cfg.MaxRounds; round++ {
		action, rawPayload, err := pl.NextAction(ctx, state, observation)
		if err != nil {
			return models.Note{}, fmt.Errorf("round %d: %w", state.Step+1, err)
		}
		state.Step++

		result, warnings := e.execute(ctx, sessionID, action, state)
		state.Warnings = append(state.Warnings, warnings...)
		state.History = append(state.History, models.HistoryEntry{
			Step:           state.Step,
			Action:         action.Kind,
			Result:         result,
			PlannerPayload: rawPayload,
			Timestamp:      time.Now().Unix(),
		})
		if err := e.sessions.SaveState(sessionID, state); err != nil {
			return models.Note{}, fmt.Errorf("checkpoint session: %w", err)
		}
		observation = result

		e.log.Info("round complete",
			zap.String("session_id", sessionID),
			zap.Int("step", state.Step),
			zap.String("action", action.Kind),
			zap.Int("warnings", len(warnings)))

		if action.Kind == planner.ActionFinish {
			break
		}
	}

	note := BuildNote(state, sessionID)
	if err := e.sessions.SaveNote(sessionID, note); err != nil {
		return models.Note{}, fmt.Errorf("write session note: %w", err)
	}
	e.rememberSession(ctx, sessionID, state)
	return note, nil
}

func (e *Executor) execute(ctx context.Context, sessionID string, action planner.Action, state *models.SessionState) (string, []string) {
	switch action.Kind {
	case planner.ActionSearch:
		return e.doSearch(ctx, action, state), nil
	case planner.ActionRead:
		return e.doRead(ctx, sessionID, action, state)
	case planner.ActionSummarize:
		return e.doSummarize(ctx, sessionID, action, state)
	case planner.ActionFinish:
		if action.Notes != "" {
			return action.Notes, nil
		}
		return "Planner decided to finish.", nil
	default:
		return fmt.Sprintf("Unsupported action %s", action.Kind),
			[]string{"unsupported_action:" + action.Kind}
	}
}

func (e *Executor) rememberSession(ctx context.Context, sessionID string, state *models.SessionState) {
	if e.memories == nil {
		return
	}
	read := []string{}
	for _, id := range state.PaperIDs() {
		if state.Papers[id].Status == models.PaperStatusRead {
			read = append(read, id)
		}
	}
	findings := []string{}
	for _, f := range state.Findings {
		if f.Answer != "" {
			findings = append(findings, f.Question)
		}
	}
	e.memories.AddSessionContext(ctx, sessionID, map[string]any{
		"topic":        state.Topic,
		"papers_read":  read,
		"key_findings": findings,
	})
}
