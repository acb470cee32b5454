// Package parser turns downloaded paper documents into embedding-ready
// chunks: paragraph text grouped under detected section headings, plus
// optional vision-described figures.
package parser

import (
	"context"

	"litscout/internal/config"
	"litscout/internal/models"
	"litscout/internal/providers"
	"litscout/internal/util"

	"go.uber.org/zap"
)

type DocumentParser interface {
	Parse(ctx context.Context, data []byte, paperID string) ([]models.Chunk, error)
}

type PDFParser struct {
	cfg    config.Config
	vision providers.VisionProvider
	log    *zap.Logger
}

func NewPDFParser(cfg config.Config, vision providers.VisionProvider, log *zap.Logger) *PDFParser {
	if log == nil {
		log = zap.NewNop()
	}
	return &PDFParser{cfg: cfg, vision: vision, log: log}
}

func (p *PDFParser) Parse(ctx context.Context, data []byte, paperID string) ([]models.Chunk, error) {
	pages, err := extractPages(data)
	if err != nil {
		return nil, err
	}
	chunks := chunkPages(pages, paperID, p.cfg.ChunkCharMin, p.cfg.ChunkCharMax)
	if len(chunks) == 0 {
		return nil, util.ErrNoExtractableText
	}
	if p.cfg.ExtractFigures && p.vision != nil {
		figures := p.describeFigures(ctx, data, paperID)
		chunks = append(chunks, figures...)
	}
	return chunks, nil
}
