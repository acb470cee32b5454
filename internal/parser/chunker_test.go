package parser

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"litscout/internal/config"
	"litscout/internal/models"
	"litscout/internal/providers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaybeHeading(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Introduction", "Introduction"},
		{"RELATED WORK", "Related Work"},
		{"Experimental setup:", "Experimental Setup"},
		{"3.1 Ablation Studies", "3.1 Ablation Studies"},
		{"We evaluate the model on three datasets and report accuracy.", ""},
		{"Hi", ""},
		{strings.Repeat("x", 130), ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, maybeHeading(tc.in), "input %q", tc.in)
	}
}

func TestChunkPagesGroupsUnderHeadings(t *testing.T) {
	intro := strings.Repeat("The model improves retrieval quality. ", 12)
	method := strings.Repeat("We embed each paragraph independently. ", 12)
	pages := []pageText{
		{Page: 1, Text: "Introduction\n\n" + intro},
		{Page: 2, Text: "Method\n\n" + method},
	}

	chunks := chunkPages(pages, "arxiv:1", 400, 1000)
	require.Len(t, chunks, 2)

	assert.Equal(t, "arxiv:1:0001", chunks[0].ID)
	assert.Equal(t, "Introduction", chunks[0].Section)
	assert.Equal(t, 1, chunks[0].PageFrom)
	assert.Equal(t, 1, chunks[0].PageTo)
	assert.Equal(t, models.ContentText, chunks[0].ContentType)

	assert.Equal(t, "arxiv:1:0002", chunks[1].ID)
	assert.Equal(t, "Method", chunks[1].Section)
	assert.Equal(t, 2, chunks[1].PageFrom)
}

func TestChunkPagesRespectsMaxChars(t *testing.T) {
	long := strings.Repeat("word ", 150) // ~750 chars per paragraph
	pages := []pageText{{Page: 1, Text: long + "\n\n" + long}}

	chunks := chunkPages(pages, "arxiv:2", 400, 1000)
	require.Len(t, chunks, 2)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), 1000)
	}
}

func TestChunkPagesShortDocumentStillFlushes(t *testing.T) {
	pages := []pageText{{Page: 1, Text: "A short abstract that never reaches the minimum size."}}
	chunks := chunkPages(pages, "arxiv:3", 400, 1000)
	require.Len(t, chunks, 1)
	assert.Equal(t, "arxiv:3:0001", chunks[0].ID)
}

func TestChunkPagesStripsBullets(t *testing.T) {
	pages := []pageText{{Page: 1, Text: "- first point\n- second point"}}
	chunks := chunkPages(pages, "arxiv:4", 10, 1000)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "first point second point", chunks[0].Text)
}

func TestExtractJPEGs(t *testing.T) {
	big := append(append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0x42}, 2000)...), 0xFF, 0xD9)
	small := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0xFF, 0xD9}
	doc := append(append([]byte("%PDF-1.4 stream "), small...), big...)

	images := extractJPEGs(doc)
	require.Len(t, images, 1)
	assert.Equal(t, big, images[0])
}

func TestDescribeFiguresUsesVisionProvider(t *testing.T) {
	big := append(append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0x42}, 2000)...), 0xFF, 0xD9)

	p := NewPDFParser(config.Config{ExtractFigures: true, VisionWorkers: 2}, providers.NewMockProvider(8), nil)
	chunks := p.describeFigures(context.Background(), big, "arxiv:5")
	require.Len(t, chunks, 1)
	assert.Equal(t, "arxiv:5:fig:0001", chunks[0].ID)
	assert.Equal(t, models.ContentFigure, chunks[0].ContentType)
	assert.NotEmpty(t, chunks[0].VisualDescription)
	assert.Equal(t, chunks[0].Text, chunks[0].VisualDescription)
}
