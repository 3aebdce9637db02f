// Package retrieval fetches context passages to prepend to a problem before
// assessment. Retrieval is best-effort: every failure is reported to the
// caller, who falls back to the unaugmented problem.
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/reason-router/internal/config"
)

// #region retriever

// Retriever fetches passages from the configured sources.
type Retriever struct {
	cfg    config.Retrieval
	client *http.Client
	log    *zap.SugaredLogger
}

// New creates a Retriever. The HTTP client honors cfg.Timeout.
func New(cfg config.Retrieval, log *zap.SugaredLogger) *Retriever {
	return &Retriever{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
	}
}

// #endregion

// #region retrieve

// Retrieve fetches passages for query from the given source. The query is a
// search term for WIKI, a local path for FILE, and an address for URL.
func (r *Retriever) Retrieve(ctx context.Context, query string, source Source) ([]Passage, error) {
	var passages []Passage
	var err error

	switch source {
	case SourceWiki:
		passages, err = r.retrieveWiki(ctx, query)
	case SourceFile:
		passages, err = r.retrieveFile(query)
	case SourceURL:
		passages, err = r.retrieveURL(ctx, query)
	default:
		return nil, fmt.Errorf("unknown retrieval source %q", source)
	}
	if err != nil {
		return nil, err
	}

	passages = r.consistencyCheck(passages)
	if len(passages) > r.cfg.MaxPassages {
		passages = passages[:r.cfg.MaxPassages]
	}
	return passages, nil
}

// #endregion

// #region wiki

type wikiResponse struct {
	Query struct {
		Pages map[string]struct {
			Title   string `json:"title"`
			Extract string `json:"extract"`
		} `json:"pages"`
	} `json:"query"`
}

func (r *Retriever) retrieveWiki(ctx context.Context, query string) ([]Passage, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("generator", "search")
	params.Set("gsrsearch", query)
	params.Set("gsrlimit", fmt.Sprintf("%d", r.cfg.MaxPassages))
	params.Set("prop", "extracts")
	params.Set("exintro", "1")
	params.Set("explaintext", "1")
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.WikiEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("wiki request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wiki fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wiki fetch: status %d", resp.StatusCode)
	}

	var decoded wikiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("wiki decode: %w", err)
	}

	var passages []Passage
	for _, page := range decoded.Query.Pages {
		passages = append(passages, Passage{
			Title: page.Title,
			Text:  strings.TrimSpace(page.Extract),
			Ref:   page.Title,
		})
	}
	return passages, nil
}

// #endregion

// #region file

func (r *Retriever) retrieveFile(path string) ([]Passage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var passages []Passage
	for _, para := range splitParagraphs(string(data)) {
		passages = append(passages, Passage{Text: para, Ref: path})
	}
	return passages, nil
}

// #endregion

// #region url

func (r *Retriever) retrieveURL(ctx context.Context, address string) ([]Passage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address, nil)
	if err != nil {
		return nil, fmt.Errorf("url request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("url fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("url fetch %s: status %d", address, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("url read: %w", err)
	}

	var passages []Passage
	for _, para := range splitParagraphs(stripTags(string(body))) {
		passages = append(passages, Passage{Text: para, Ref: address})
	}
	return passages, nil
}

// stripTags removes markup crudely; retrieval context tolerates rough text.
func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			b.WriteRune(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// #endregion

// #region consistency-check

// consistencyCheck drops passages that would pollute the prompt: empty text,
// overlong text, duplicate references with identical content.
func (r *Retriever) consistencyCheck(passages []Passage) []Passage {
	seen := make(map[string]bool)
	var valid []Passage
	for _, p := range passages {
		text := strings.TrimSpace(p.Text)
		if text == "" {
			continue
		}
		if r.cfg.MaxPassageLen > 0 && len(text) > r.cfg.MaxPassageLen {
			text = text[:r.cfg.MaxPassageLen]
		}
		key := p.Ref + "\x00" + text
		if seen[key] {
			continue
		}
		seen[key] = true
		p.Text = text
		valid = append(valid, p)
	}
	return valid
}

// #endregion

// #region format

// FormatAsContext renders passages as a context block for prepending to a
// problem statement.
func FormatAsContext(passages []Passage) string {
	if len(passages) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("[Reference Context]\n")
	for i, p := range passages {
		if p.Title != "" {
			fmt.Fprintf(&b, "%d. %s\n", i+1, p.Title)
		} else {
			fmt.Fprintf(&b, "%d.\n", i+1)
		}
		fmt.Fprintf(&b, "   %s\n", p.Text)
		if p.Ref != "" && p.Ref != p.Title {
			fmt.Fprintf(&b, "   Source: %s\n", p.Ref)
		}
	}
	return b.String()
}

func splitParagraphs(s string) []string {
	var out []string
	for _, chunk := range strings.Split(s, "\n\n") {
		chunk = strings.TrimSpace(chunk)
		if chunk != "" {
			out = append(out, chunk)
		}
	}
	return out
}

// #endregion
