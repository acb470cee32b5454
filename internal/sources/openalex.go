package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"litscout/internal/models"

	"go.uber.org/zap"
)

const openAlexAPI = "https://api.openalex.org/works"

type OpenAlexSource struct {
	client *http.Client
	mailto string
	log    *zap.Logger
}

func NewOpenAlexSource(client *http.Client, mailto string, log *zap.Logger) *OpenAlexSource {
	if client == nil {
		client = newHTTPClient(0)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OpenAlexSource{client: client, mailto: mailto, log: log}
}

func (s *OpenAlexSource) Name() string { return "openalex" }

func (s *OpenAlexSource) Search(ctx context.Context, query string, max int) ([]models.PaperRecord, error) {
	if max <= 0 {
		max = 20
	}
	params := url.Values{}
	params.Set("search", query)
	params.Set("per-page", strconv.Itoa(max))
	params.Set("page", "1")
	if s.mailto != "" {
		params.Set("mailto", s.mailto)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openAlexAPI+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build openalex request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openalex request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openalex returned status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read openalex response: %w", err)
	}
	papers, err := parseOpenAlexWorks(raw)
	if err != nil {
		return nil, err
	}
	s.log.Debug("openalex search", zap.String("query", query), zap.Int("results", len(papers)))
	return papers, nil
}

type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID                    string           `json:"id"`
	DisplayName           string           `json:"display_name"`
	PublicationYear       *int             `json:"publication_year"`
	DOI                   string           `json:"doi"`
	Authorships           []openAlexAuthor `json:"authorships"`
	BestOALocation        openAlexLocation `json:"best_oa_location"`
	PrimaryLocation       openAlexLocation `json:"primary_location"`
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
}

type openAlexAuthor struct {
	Author struct {
		DisplayName string `json:"display_name"`
	} `json:"author"`
}

type openAlexLocation struct {
	URL            string `json:"url"`
	URLForPDF      string `json:"url_for_pdf"`
	PDFURL         string `json:"pdf_url"`
	LandingPageURL string `json:"landing_page_url"`
}

func parseOpenAlexWorks(raw []byte) ([]models.PaperRecord, error) {
	var payload openAlexResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode openalex response: %w", err)
	}
	out := make([]models.PaperRecord, 0, len(payload.Results))
	for _, work := range payload.Results {
		oaID := normalizeOpenAlexID(work.ID)
		if oaID == "" {
			continue
		}
		rec := models.PaperRecord{
			ID:      "openalex:" + oaID,
			Source:  "openalex",
			Title:   strings.TrimSpace(work.DisplayName),
			Year:    work.PublicationYear,
			DOI:     work.DOI,
			Summary: reconstructAbstract(work.AbstractInvertedIndex),
		}
		for _, auth := range work.Authorships {
			if name := strings.TrimSpace(auth.Author.DisplayName); name != "" {
				rec.Authors = append(rec.Authors, name)
			}
		}
		if work.BestOALocation.URLForPDF != "" {
			rec.PDFURL = work.BestOALocation.URLForPDF
		} else if work.PrimaryLocation.PDFURL != "" {
			rec.PDFURL = work.PrimaryLocation.PDFURL
		}
		switch {
		case work.BestOALocation.URL != "":
			rec.URL = work.BestOALocation.URL
		case work.PrimaryLocation.LandingPageURL != "":
			rec.URL = work.PrimaryLocation.LandingPageURL
		case work.DOI != "":
			rec.URL = work.DOI
		}
		out = append(out, rec)
	}
	return out, nil
}

func normalizeOpenAlexID(raw string) string {
	raw = strings.TrimSpace(strings.TrimSuffix(raw, "/"))
	if raw == "" {
		return ""
	}
	if i := strings.LastIndex(raw, "/"); i >= 0 {
		return raw[i+1:]
	}
	return raw
}

// reconstructAbstract rebuilds plain text from the inverted index OpenAlex
// ships instead of abstracts: word -> list of token positions.
func reconstructAbstract(index map[string][]int) string {
	if len(index) == 0 {
		return ""
	}
	type positioned struct {
		pos  int
		word string
	}
	tokens := make([]positioned, 0, len(index))
	for word, positions := range index {
		for _, pos := range positions {
			if pos >= 0 {
				tokens = append(tokens, positioned{pos: pos, word: word})
			}
		}
	}
	if len(tokens) == 0 {
		return ""
	}
	sort.SliceStable(tokens, func(i, j int) bool { return tokens[i].pos < tokens[j].pos })
	words := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t.word != "" {
			words = append(words, t.word)
		}
	}
	return strings.Join(words, " ")
}
