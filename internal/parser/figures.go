package parser

import (
	"bytes"
	"context"
	"fmt"

	"litscout/internal/models"
	"litscout/internal/providers"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	minFigureBytes = 1000
	maxFigures     = 20

	figurePrompt = "You are describing a figure or table from a scientific paper. " +
		"Provide a concise description with: what it shows, axes and units if any, " +
		"key values or trends, and any notable observations. Keep it under 120 words."
)

var (
	jpegStart = []byte{0xFF, 0xD8, 0xFF}
	jpegEnd   = []byte{0xFF, 0xD9}
)

// describeFigures extracts embedded JPEG images and runs each through the
// vision model with a bounded fan-out. A failed description drops that
// figure only; the text chunks are already safe at this point.
func (p *PDFParser) describeFigures(ctx context.Context, data []byte, paperID string) []models.Chunk {
	images := extractJPEGs(data)
	if len(images) == 0 {
		return nil
	}

	descriptions := make([]string, len(images))
	g, gctx := errgroup.WithContext(ctx)
	workers := p.cfg.VisionWorkers
	if workers <= 0 {
		workers = 4
	}
	g.SetLimit(workers)
	for i, img := range images {
		i, img := i, img
		g.Go(func() error {
			desc, _, err := p.vision.Describe(gctx, providers.DescribeRequest{
				Image:     img,
				MimeType:  "image/jpeg",
				Prompt:    figurePrompt,
				MaxTokens: 300,
			})
			if err != nil {
				p.log.Warn("figure description failed",
					zap.String("paper_id", paperID), zap.Int("figure", i+1), zap.Error(err))
				return nil
			}
			descriptions[i] = desc
			return nil
		})
	}
	_ = g.Wait()

	var chunks []models.Chunk
	for i, desc := range descriptions {
		if desc == "" {
			continue
		}
		chunks = append(chunks, models.Chunk{
			ID:                fmt.Sprintf("%s:fig:%04d", paperID, i+1),
			PaperID:           paperID,
			Section:           "Figure",
			Text:              desc,
			ContentType:       models.ContentFigure,
			VisualDescription: desc,
		})
	}
	return chunks
}

// extractJPEGs scans the raw document for DCTDecode streams, which store the
// JPEG bytes verbatim between SOI and EOI markers. Tiny images (logos,
// decorations) are skipped.
func extractJPEGs(data []byte) [][]byte {
	var out [][]byte
	offset := 0
	for len(out) < maxFigures {
		start := bytes.Index(data[offset:], jpegStart)
		if start < 0 {
			break
		}
		start += offset
		end := bytes.Index(data[start:], jpegEnd)
		if end < 0 {
			break
		}
		end += start + len(jpegEnd)
		if img := data[start:end]; len(img) >= minFigureBytes {
			out = append(out, img)
		}
		offset = end
	}
	return out
}
