package parser

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"litscout/internal/models"
	"litscout/internal/util"
)

var (
	blankLineRe    = regexp.MustCompile(`\n\s*\n`)
	bulletPrefixRe = regexp.MustCompile(`^[-•*]\s+`)
	outlineRe      = regexp.MustCompile(`^\d+(\.\d+)*\s+.+`)
)

var knownSections = map[string]bool{
	"abstract":     true,
	"introduction": true,
	"conclusion":   true,
	"related work": true,
	"method":       true,
	"results":      true,
}

type paragraph struct {
	page int
	text string
}

// chunkPages groups paragraphs into chunks of roughly minChars..maxChars,
// starting a fresh chunk at every detected section heading. Chunk ids are
// "{paperID}:NNNN" with a 1-based counter.
func chunkPages(pages []pageText, paperID string, minChars, maxChars int) []models.Chunk {
	if minChars <= 0 {
		minChars = 400
	}
	if maxChars <= minChars {
		maxChars = minChars + 600
	}

	paragraphs := splitParagraphs(pages)

	var (
		chunks     []models.Chunk
		buffer     []string
		section    string
		pageStart  int
		currentLen int
		chunkIndex int
		page       int
	)
	flush := func() {
		if len(buffer) == 0 {
			return
		}
		text := strings.TrimSpace(strings.Join(buffer, " "))
		buffer = buffer[:0]
		currentLen = 0
		if text == "" {
			pageStart = 0
			return
		}
		chunkIndex++
		chunks = append(chunks, models.Chunk{
			ID:          fmt.Sprintf("%s:%04d", paperID, chunkIndex),
			PaperID:     paperID,
			Section:     section,
			PageFrom:    pageStart,
			PageTo:      page,
			Text:        text,
			ContentType: models.ContentText,
		})
		pageStart = 0
	}

	for _, para := range paragraphs {
		page = para.page
		if heading := maybeHeading(para.text); heading != "" {
			flush()
			section = heading
			continue
		}
		if pageStart == 0 {
			pageStart = para.page
		}
		if currentLen+len(para.text) > maxChars && len(buffer) > 0 {
			flush()
			pageStart = para.page
		}
		buffer = append(buffer, para.text)
		currentLen += len(para.text)
		if currentLen >= minChars {
			flush()
		}
	}
	flush()
	return chunks
}

func splitParagraphs(pages []pageText) []paragraph {
	var out []paragraph
	for _, pg := range pages {
		cleaned := strings.ReplaceAll(pg.Text, "\r", "\n")
		for _, block := range blankLineRe.Split(cleaned, -1) {
			var lines []string
			for _, line := range strings.Split(block, "\n") {
				line = strings.TrimSpace(bulletPrefixRe.ReplaceAllString(strings.TrimSpace(line), ""))
				if line != "" {
					lines = append(lines, line)
				}
			}
			if len(lines) == 0 {
				continue
			}
			out = append(out, paragraph{
				page: pg.Page,
				text: util.NormalizeWhitespace(strings.Join(lines, " ")),
			})
		}
	}
	return out
}

// maybeHeading reports the section title when the paragraph looks like a
// heading: a known section name, a trailing colon, a numeric outline prefix,
// or mostly-uppercase text, all within 5..120 chars.
func maybeHeading(text string) string {
	candidate := util.NormalizeWhitespace(text)
	if len(candidate) < 5 || len(candidate) > 120 {
		return ""
	}
	if knownSections[strings.ToLower(candidate)] {
		return titleCase(candidate)
	}
	if strings.HasSuffix(candidate, ":") {
		return titleCase(strings.TrimSpace(strings.TrimSuffix(candidate, ":")))
	}
	if outlineRe.MatchString(candidate) {
		return candidate
	}
	letters, uppers := 0, 0
	for _, r := range candidate {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				uppers++
			}
		}
	}
	if letters > 0 && float64(uppers)/float64(letters) > 0.6 {
		return titleCase(candidate)
	}
	return ""
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
