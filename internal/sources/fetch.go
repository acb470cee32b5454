package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"litscout/internal/config"
	"litscout/internal/util"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Fetcher downloads paper documents and landing pages. PDF downloads are
// bounded by MaxPDFBytes so a misbehaving host cannot fill the data dir.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
	log      *zap.Logger
}

func NewFetcher(cfg config.Config, log *zap.Logger) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{
		client:   newHTTPClient(cfg.FetchTimeout),
		maxBytes: cfg.MaxPDFBytes,
		log:      log,
	}
}

// FetchPDF downloads rawURL and returns the document bytes. Responses whose
// content type is not PDF are rejected unless the URL itself ends in .pdf,
// which arXiv mirrors and some OA hosts rely on.
func (f *Fetcher) FetchPDF(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := f.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch pdf: status %d from %s", resp.StatusCode, rawURL)
	}
	ctype := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(ctype, "pdf") && !strings.HasSuffix(strings.ToLower(rawURL), ".pdf") {
		return nil, util.ErrNotPDF
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read pdf body: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, util.ErrPDFTooLarge
	}
	return data, nil
}

// FetchHTML returns the landing page body, or an error when the response is
// not HTML.
func (f *Fetcher) FetchHTML(ctx context.Context, rawURL string) (string, error) {
	resp, err := f.get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch html: status %d from %s", resp.StatusCode, rawURL)
	}
	ctype := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(ctype, "html") {
		return "", fmt.Errorf("fetch html: unexpected content type %q", ctype)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read html body: %w", err)
	}
	return string(data), nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s failed: %w", rawURL, err)
	}
	return resp, nil
}

// DiscoverPDFURL scans landing-page HTML for a PDF link. Precedence follows
// how publishers actually annotate pages: the citation_pdf_url meta tag,
// then links typed application/pdf, then any href ending in .pdf.
func DiscoverPDFURL(htmlText, baseURL string) string {
	doc, err := html.Parse(strings.NewReader(htmlText))
	if err != nil {
		return ""
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}

	var metaHit, typedHit, suffixHit string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			attrs := map[string]string{}
			for _, a := range n.Attr {
				attrs[strings.ToLower(a.Key)] = a.Val
			}
			switch n.Data {
			case "meta":
				if metaHit == "" && strings.EqualFold(attrs["name"], "citation_pdf_url") && attrs["content"] != "" {
					metaHit = attrs["content"]
				}
			case "link", "a":
				href := attrs["href"]
				if href == "" {
					break
				}
				if typedHit == "" && strings.EqualFold(attrs["type"], "application/pdf") {
					typedHit = href
				}
				if suffixHit == "" && strings.HasSuffix(strings.ToLower(href), ".pdf") {
					suffixHit = href
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for _, hit := range []string{metaHit, typedHit, suffixHit} {
		if hit == "" {
			continue
		}
		if base == nil {
			return hit
		}
		ref, err := url.Parse(hit)
		if err != nil {
			continue
		}
		return base.ResolveReference(ref).String()
	}
	return ""
}
