package agent

import (
	"context"
	"fmt"
	"os"
	"strings"

	"litscout/internal/models"
	"litscout/internal/planner"
	"litscout/internal/providers"
	"litscout/internal/sources"

	"go.uber.org/zap"
)

func (e *Executor) doRead(ctx context.Context, sessionID string, action planner.Action, state *models.SessionState) (string, []string) {
	if len(action.PaperIDs) == 0 {
		return "Planner requested read but provided no paper ids.", nil
	}

	var (
		warnings []string
		lines    []string
	)
	for _, pid := range action.PaperIDs {
		paper, ok := state.Papers[pid]
		if !ok {
			warnings = append(warnings, "unknown_paper:"+pid)
			continue
		}
		chunks, chunkWarnings := e.downloadAndChunk(ctx, paper)
		warnings = append(warnings, chunkWarnings...)
		if len(chunks) == 0 {
			lines = append(lines, pid+": no chunks available")
			continue
		}
		warnings = append(warnings, e.indexChunks(ctx, sessionID, chunks)...)
		for _, chunk := range chunks {
			state.Chunks[chunk.ID] = chunk
		}
		paper.Status = models.PaperStatusRead
		paper.Notes = action.Notes
		state.Papers[pid] = paper
		lines = append(lines, fmt.Sprintf("%s: processed %d chunks", pid, len(chunks)))
	}

	if len(lines) == 0 {
		return "No papers processed.", warnings
	}
	return strings.Join(lines, "\n"), warnings
}

// downloadAndChunk tries the direct pdf url, then PDF discovery on the
// landing page, then the catalog abstract as a single fallback chunk.
func (e *Executor) downloadAndChunk(ctx context.Context, paper models.PaperRecord) ([]models.Chunk, []string) {
	var (
		warnings []string
		data     []byte
	)
	if paper.PDFURL != "" {
		pdf, err := e.fetcher.FetchPDF(ctx, paper.PDFURL)
		if err != nil {
			e.log.Debug("pdf download failed", zap.String("paper_id", paper.ID), zap.Error(err))
		} else {
			data = pdf
		}
	}
	if data == nil && paper.URL != "" {
		if html, err := e.fetcher.FetchHTML(ctx, paper.URL); err == nil {
			if alt := sources.DiscoverPDFURL(html, paper.URL); alt != "" {
				pdf, err := e.fetcher.FetchPDF(ctx, alt)
				if err != nil {
					e.log.Debug("discovered pdf download failed", zap.String("paper_id", paper.ID), zap.Error(err))
				} else {
					data = pdf
				}
			}
		}
	}

	var chunks []models.Chunk
	if data != nil {
		if err := os.WriteFile(e.layout.PDFPath(paper.ID), data, 0o644); err != nil {
			e.log.Warn("pdf save failed", zap.String("paper_id", paper.ID), zap.Error(err))
		}
		parsed, err := e.parser.Parse(ctx, data, paper.ID)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("parse_failed:%s:%v", paper.ID, err))
		} else {
			chunks = parsed
		}
	}

	if len(chunks) == 0 {
		if summary := strings.TrimSpace(paper.Summary); summary != "" {
			chunks = []models.Chunk{{
				ID:          paper.ID + ":summary",
				PaperID:     paper.ID,
				Section:     "Summary",
				Text:        summary,
				ContentType: models.ContentText,
			}}
		} else {
			warnings = append(warnings, "no_content:"+paper.ID)
		}
	}

	if len(chunks) > 0 {
		if err := e.chunks.WriteChunks(paper.ID, chunks); err != nil {
			warnings = append(warnings, fmt.Sprintf("chunk_write_failed:%s:%v", paper.ID, err))
		}
	}
	return chunks, warnings
}

// indexChunks embeds in fixed-size batches and upserts each batch as it
// completes. The first failed batch aborts the rest; chunks are already on
// disk so a later round can retry.
func (e *Executor) indexChunks(ctx context.Context, sessionID string, chunks []models.Chunk) []string {
	batchSize := e.cfg.EmbedBatchSize
	if batchSize <= 0 {
		batchSize = 32
	}

	embeddable := make([]models.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk.Text) != "" {
			embeddable = append(embeddable, chunk)
		}
	}
	if len(embeddable) == 0 {
		return nil
	}

	for start := 0; start < len(embeddable); start += batchSize {
		end := start + batchSize
		if end > len(embeddable) {
			end = len(embeddable)
		}
		batch := embeddable[start:end]
		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Text
		}
		vectors, _, err := e.embedder.Embed(ctx, providers.EmbedRequest{
			Operation: "index",
			Inputs:    texts,
			Dimension: e.cfg.EmbedDim,
		})
		if err != nil {
			return []string{fmt.Sprintf("embedding_failed:%s:%v", providers.ClassifyError(err), err)}
		}
		records := make([]models.EmbeddingRecord, 0, len(batch))
		for i, chunk := range batch {
			if i >= len(vectors) {
				break
			}
			records = append(records, models.EmbeddingRecord{
				ChunkID:   chunk.ID,
				SessionID: sessionID,
				PaperID:   chunk.PaperID,
				Text:      chunk.Text,
				Embedding: vectors[i],
				Metadata: models.ChunkMetadata{
					Section:  chunk.Section,
					PageFrom: chunk.PageFrom,
					PageTo:   chunk.PageTo,
				},
				ContentType:       chunk.ContentType,
				VisualDescription: chunk.VisualDescription,
				ImagePath:         chunk.ImagePath,
			})
		}
		if err := e.index.Upsert(sessionID, records); err != nil {
			return []string{fmt.Sprintf("embedding_failed:%v", err)}
		}
	}
	return nil
}
