package agent

import (
	"time"

	"litscout/internal/models"
)

// BuildNote projects the session state into its read-optimized note. The
// state file stays the source of truth for resuming; the note is what the
// API and CLI serve.
func BuildNote(state *models.SessionState, sessionID string) models.Note {
	paperIDs := state.PaperIDs()
	readingList := make([]models.ReadingListEntry, 0, len(paperIDs))
	for _, pid := range paperIDs {
		reason := state.Papers[pid].Status
		if reason == "" {
			reason = models.PaperStatusDiscovered
		}
		readingList = append(readingList, models.ReadingListEntry{PaperID: pid, Reason: reason})
	}
	return models.Note{
		Topic:       state.Topic,
		SessionID:   sessionID,
		CreatedAt:   time.Now().Unix(),
		Tasks:       state.Tasks,
		Queries:     state.Queries,
		Papers:      paperIDs,
		History:     state.History,
		Findings:    state.Findings,
		ReadingList: readingList,
		Warnings:    state.Warnings,
	}
}
