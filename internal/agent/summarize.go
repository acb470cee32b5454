package agent

import (
	"context"
	"fmt"
	"strings"

	"litscout/internal/models"
	"litscout/internal/planner"
	"litscout/internal/providers"
	"litscout/internal/util"

	"go.uber.org/zap"
)

const answerSystemPrompt = "You are a research assistant. Write concise answers grounded in the " +
	"provided excerpts. Cite using paper ids."

func (e *Executor) doSummarize(ctx context.Context, sessionID string, action planner.Action, state *models.SessionState) (string, []string) {
	if len(action.Focus) == 0 {
		return "Planner requested summarize without focus questions.", nil
	}

	var (
		warnings []string
		lines    []string
	)
	cache := state.ChunkList()
	for _, focus := range action.Focus {
		question := strings.TrimSpace(focus)
		if question == "" {
			continue
		}
		hits := e.retriever.Retrieve(ctx, sessionID, question, cache, e.cfg.RetrieveTopN)
		answer, err := e.answer(ctx, sessionID, question, hits)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("summarize_failed:%s:%v", providers.ClassifyError(err), err))
			answer = "No answer returned."
		}

		citations := make([]models.Citation, 0, len(hits))
		for _, hit := range hits {
			citations = append(citations, models.Citation{
				PaperID: hit.PaperID,
				ChunkID: hit.ChunkID,
				Section: hit.Metadata.Section,
				Score:   hit.Score,
			})
		}
		state.Findings = append(state.Findings, models.Finding{
			Question:  question,
			Answer:    answer,
			Citations: citations,
			Step:      state.Step,
		})
		lines = append(lines, fmt.Sprintf("Summarized %q", question))
	}

	if len(lines) == 0 {
		return "No summaries produced.", warnings
	}
	return strings.Join(lines, "\n"), warnings
}

// answer synthesizes one finding. Without any hits there is no evidence to
// ground an answer on, so the model is not called at all.
func (e *Executor) answer(ctx context.Context, sessionID, question string, hits []models.SearchHit) (string, error) {
	if len(hits) == 0 {
		return "Insufficient evidence collected yet.", nil
	}

	excerpts := make([]string, 0, len(hits))
	for _, hit := range hits {
		prefix := hit.PaperID
		if prefix == "" {
			prefix = "unknown"
		}
		if hit.Score != nil {
			prefix = fmt.Sprintf("%s score=%.3f", prefix, *hit.Score)
		}
		excerpts = append(excerpts, fmt.Sprintf("[%s] %s", prefix, util.Truncate(hit.Text, 1200)))
	}

	prompt := fmt.Sprintf("Question: %s\n", question)
	if memoryCtx := e.retriever.MemoryContext(ctx, sessionID, question); memoryCtx != "" {
		prompt += fmt.Sprintf("Known context: %s\n", memoryCtx)
	}
	prompt += "Excerpts:\n" + strings.Join(excerpts, "\n\n")

	resp, info, err := e.llm.Chat(ctx, providers.ChatRequest{
		Operation: "summarize",
		Messages: []providers.ChatMessage{
			{Role: "system", Content: answerSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.3,
		MaxTokens:   600,
	})
	if err != nil {
		return "", err
	}
	answer := strings.TrimSpace(resp.Text)
	if answer == "" {
		answer = "No answer returned."
	}
	e.log.Debug("finding synthesized",
		zap.String("question", question),
		zap.String("provider", info.Name),
		zap.Int("citations", len(hits)))
	return answer, nil
}
