package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"litscout/internal/models"
	"litscout/internal/util"

	"go.uber.org/zap"
)

const arxivAPI = "http://export.arxiv.org/api/query"

type ArxivSource struct {
	client *http.Client
	log    *zap.Logger
}

func NewArxivSource(client *http.Client, log *zap.Logger) *ArxivSource {
	if client == nil {
		client = newHTTPClient(0)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ArxivSource{client: client, log: log}
}

func (s *ArxivSource) Name() string { return "arxiv" }

func (s *ArxivSource) Search(ctx context.Context, query string, max int) ([]models.PaperRecord, error) {
	if max <= 0 {
		max = 20
	}
	params := url.Values{}
	params.Set("search_query", query)
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(max))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, arxivAPI+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build arxiv request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read arxiv response: %w", err)
	}
	papers, err := parseArxivFeed(raw)
	if err != nil {
		return nil, err
	}
	s.log.Debug("arxiv search", zap.String("query", query), zap.Int("results", len(papers)))
	return papers, nil
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string     `xml:"id"`
	Title     string     `xml:"title"`
	Summary   string     `xml:"summary"`
	Published string     `xml:"published"`
	Authors   []atomName `xml:"author"`
	Links     []atomLink `xml:"link"`
}

type atomName struct {
	Name string `xml:"name"`
}

type atomLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
	Type string `xml:"type,attr"`
}

func parseArxivFeed(raw []byte) ([]models.PaperRecord, error) {
	var feed atomFeed
	if err := xml.Unmarshal(raw, &feed); err != nil {
		return nil, fmt.Errorf("decode arxiv feed: %w", err)
	}
	out := make([]models.PaperRecord, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		arxivID := arxivIDFromEntry(entry.ID)
		if arxivID == "" {
			continue
		}
		rec := models.PaperRecord{
			ID:      "arxiv:" + arxivID,
			Source:  "arxiv",
			Title:   util.NormalizeWhitespace(entry.Title),
			Summary: strings.TrimSpace(entry.Summary),
			Year:    yearFromTimestamp(entry.Published),
			URL:     "https://arxiv.org/abs/" + arxivID,
			PDFURL:  "https://arxiv.org/pdf/" + arxivID + ".pdf",
		}
		for _, a := range entry.Authors {
			if name := strings.TrimSpace(a.Name); name != "" {
				rec.Authors = append(rec.Authors, name)
			}
		}
		for _, link := range entry.Links {
			if link.Rel == "alternate" && link.Href != "" {
				rec.URL = link.Href
			}
			if link.Type == "application/pdf" && link.Href != "" {
				rec.PDFURL = link.Href
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func arxivIDFromEntry(idText string) string {
	idText = strings.TrimSpace(idText)
	if idText == "" {
		return ""
	}
	if i := strings.Index(idText, "/abs/"); i >= 0 {
		return idText[i+len("/abs/"):]
	}
	if i := strings.LastIndex(idText, "/"); i >= 0 {
		return idText[i+1:]
	}
	return idText
}

func yearFromTimestamp(published string) *int {
	if published == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, published)
	if err != nil {
		return nil
	}
	year := t.Year()
	return &year
}
