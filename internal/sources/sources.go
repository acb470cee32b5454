// Package sources discovers papers on external catalogs and fetches their
// documents. Every implementation returns records with source-prefixed ids
// such as "arxiv:2401.01234" so downstream storage stays collision-free.
package sources

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"litscout/internal/config"
	"litscout/internal/models"

	"go.uber.org/zap"
)

const userAgent = "litscout/0.2"

type PaperSource interface {
	Name() string
	Search(ctx context.Context, query string, max int) ([]models.PaperRecord, error)
}

// ForConfig builds the configured source list. Unknown source names are an
// error so a typo in LITSCOUT_SOURCES does not silently drop a catalog.
func ForConfig(cfg config.Config, log *zap.Logger) ([]PaperSource, error) {
	if log == nil {
		log = zap.NewNop()
	}
	client := newHTTPClient(cfg.FetchTimeout)
	var out []PaperSource
	for _, name := range strings.Split(cfg.Sources, ",") {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			continue
		}
		switch name {
		case "arxiv":
			out = append(out, NewArxivSource(client, log))
		case "openalex":
			out = append(out, NewOpenAlexSource(client, cfg.OpenAlexMailto, log))
		default:
			return nil, fmt.Errorf("unknown paper source %q", name)
		}
	}
	if len(out) == 0 {
		out = append(out, NewArxivSource(client, log))
	}
	return out, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
