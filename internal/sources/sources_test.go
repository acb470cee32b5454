package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"litscout/internal/config"
	"litscout/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const arxivFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2401.01234v1</id>
    <title>Retrieval  Augmented
      Generation Surveyed</title>
    <summary> A survey of retrieval augmented generation. </summary>
    <published>2024-01-03T10:00:00Z</published>
    <author><name>Ada Lovelace</name></author>
    <author><name>Alan Turing</name></author>
    <link rel="alternate" href="http://arxiv.org/abs/2401.01234v1"/>
    <link title="pdf" type="application/pdf" href="http://arxiv.org/pdf/2401.01234v1"/>
  </entry>
</feed>`

func TestParseArxivFeed(t *testing.T) {
	papers, err := parseArxivFeed([]byte(arxivFixture))
	require.NoError(t, err)
	require.Len(t, papers, 1)

	p := papers[0]
	assert.Equal(t, "arxiv:2401.01234v1", p.ID)
	assert.Equal(t, "arxiv", p.Source)
	assert.Equal(t, "Retrieval Augmented Generation Surveyed", p.Title)
	assert.Equal(t, []string{"Ada Lovelace", "Alan Turing"}, p.Authors)
	require.NotNil(t, p.Year)
	assert.Equal(t, 2024, *p.Year)
	assert.Equal(t, "http://arxiv.org/abs/2401.01234v1", p.URL)
	assert.Equal(t, "http://arxiv.org/pdf/2401.01234v1", p.PDFURL)
	assert.Equal(t, "A survey of retrieval augmented generation.", p.Summary)
}

const openAlexFixture = `{
  "results": [
    {
      "id": "https://openalex.org/W123456789",
      "display_name": "Graphs All The Way Down",
      "publication_year": 2023,
      "doi": "https://doi.org/10.1234/example",
      "authorships": [
        {"author": {"display_name": "Grace Hopper"}}
      ],
      "best_oa_location": {"url": "https://example.org/landing", "url_for_pdf": "https://example.org/paper.pdf"},
      "primary_location": {"landing_page_url": "https://example.org/other"},
      "abstract_inverted_index": {"networks": [2], "Graph": [0], "neural": [1]}
    },
    {"id": "", "display_name": "no id, skipped"}
  ]
}`

func TestParseOpenAlexWorks(t *testing.T) {
	papers, err := parseOpenAlexWorks([]byte(openAlexFixture))
	require.NoError(t, err)
	require.Len(t, papers, 1)

	p := papers[0]
	assert.Equal(t, "openalex:W123456789", p.ID)
	assert.Equal(t, "openalex", p.Source)
	assert.Equal(t, "Graph neural networks", p.Summary)
	assert.Equal(t, "https://example.org/paper.pdf", p.PDFURL)
	assert.Equal(t, "https://example.org/landing", p.URL)
	require.NotNil(t, p.Year)
	assert.Equal(t, 2023, *p.Year)
}

func TestReconstructAbstractEmpty(t *testing.T) {
	assert.Equal(t, "", reconstructAbstract(nil))
	assert.Equal(t, "", reconstructAbstract(map[string][]int{"word": {-1}}))
}

func TestDiscoverPDFURLPrecedence(t *testing.T) {
	page := `<html><head>
	  <meta name="citation_pdf_url" content="/files/best.pdf">
	</head><body>
	  <a type="application/pdf" href="/files/typed.pdf">typed</a>
	  <a href="/files/plain.pdf">plain</a>
	</body></html>`

	got := DiscoverPDFURL(page, "https://pub.example.org/abs/1")
	assert.Equal(t, "https://pub.example.org/files/best.pdf", got)

	noMeta := `<html><body><a href="/files/plain.pdf">plain</a></body></html>`
	assert.Equal(t, "https://pub.example.org/files/plain.pdf",
		DiscoverPDFURL(noMeta, "https://pub.example.org/abs/1"))

	assert.Equal(t, "", DiscoverPDFURL("<html><body>nothing here</body></html>", "https://pub.example.org"))
}

func TestFetchPDFRejectsNonPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>not a pdf</html>"))
	}))
	defer srv.Close()

	f := NewFetcher(config.Config{MaxPDFBytes: 1 << 20}, nil)
	_, err := f.FetchPDF(context.Background(), srv.URL+"/paper")
	require.ErrorIs(t, err, util.ErrNotPDF)

	// A .pdf suffix overrides the content-type check.
	data, err := f.FetchPDF(context.Background(), srv.URL+"/paper.pdf")
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestFetchPDFSizeGuard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	f := NewFetcher(config.Config{MaxPDFBytes: 1024}, nil)
	_, err := f.FetchPDF(context.Background(), srv.URL+"/big.pdf")
	require.ErrorIs(t, err, util.ErrPDFTooLarge)
}

func TestForConfigRejectsUnknownSource(t *testing.T) {
	_, err := ForConfig(config.Config{Sources: "scihub"}, nil)
	require.Error(t, err)

	list, err := ForConfig(config.Config{Sources: "arxiv, openalex"}, nil)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "arxiv", list[0].Name())
	assert.Equal(t, "openalex", list[1].Name())
}
