package parser

import (
	"bytes"
	"fmt"

	"litscout/internal/util"

	"github.com/ledongthuc/pdf"
)

type pageText struct {
	Page int
	Text string
}

// extractPages pulls plain text per page so chunk page ranges stay accurate.
// Pages the library cannot decode are skipped rather than failing the paper.
func extractPages(data []byte) (pages []pageText, err error) {
	// The pdf library panics on some malformed documents.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = util.SanitizeText(text)
		if text == "" {
			continue
		}
		pages = append(pages, pageText{Page: i, Text: text})
	}
	if len(pages) == 0 {
		return nil, util.ErrNoExtractableText
	}
	return pages, nil
}
