package agent

import (
	"context"
	"fmt"
	"strings"

	"litscout/internal/models"
	"litscout/internal/planner"

	"go.uber.org/zap"
)

// FormatQuery leaves queries that already use field syntax untouched and
// turns plain keyword queries into an AND of all: terms, which is what the
// arXiv API expects.
func FormatQuery(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.Contains(raw, ":") {
		return raw
	}
	terms := strings.Fields(raw)
	formatted := make([]string, 0, len(terms))
	for _, term := range terms {
		formatted = append(formatted, "all:"+term)
	}
	return strings.Join(formatted, " AND ")
}

func (e *Executor) doSearch(ctx context.Context, action planner.Action, state *models.SessionState) string {
	if len(action.Queries) == 0 {
		return "Planner requested search but provided no queries."
	}

	var allResults []models.PaperRecord
	for _, raw := range action.Queries {
		formatted := FormatQuery(raw)
		if formatted == "" {
			continue
		}
		state.Queries = append(state.Queries, models.QueryLogEntry{Raw: raw, Formatted: formatted})

		for _, src := range e.sources {
			results, err := src.Search(ctx, formatted, e.cfg.SearchLimit)
			if err != nil {
				e.log.Warn("paper search failed",
					zap.String("source", src.Name()), zap.String("query", formatted), zap.Error(err))
				allResults = append(allResults, models.PaperRecord{
					ID:    "error",
					Title: fmt.Sprintf("search failed: %v", err),
				})
				continue
			}
			for _, paper := range results {
				if err := e.sessions.AppendPaperLog(paper); err != nil {
					e.log.Warn("paper log append failed", zap.Error(err))
				}
				// Re-discovering a paper must not reset its status.
				if existing, ok := state.Papers[paper.ID]; ok && existing.Status != "" {
					paper.Status = existing.Status
					paper.Notes = existing.Notes
				} else {
					paper.Status = models.PaperStatusDiscovered
				}
				state.Papers[paper.ID] = paper
				allResults = append(allResults, paper)
			}
		}
	}

	return fmt.Sprintf("Search completed. Notes: %s\n%s", action.Notes, summarizeResults(allResults))
}

func summarizeResults(results []models.PaperRecord) string {
	if len(results) == 0 {
		return "(no hits)"
	}
	var lines []string
	for i, item := range results {
		if i == 5 {
			break
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", item.ID, item.Title))
	}
	if remainder := len(results) - 5; remainder > 0 {
		lines = append(lines, fmt.Sprintf("... and %d more", remainder))
	}
	return strings.Join(lines, "\n")
}
