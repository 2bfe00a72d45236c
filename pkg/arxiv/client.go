// Package arxiv implements a client for the arXiv Atom export API.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/omicsoracle/omicsoracle/internal/config"
	oerrors "github.com/omicsoracle/omicsoracle/internal/errors"
	"github.com/omicsoracle/omicsoracle/internal/ratelimit"
	"github.com/omicsoracle/omicsoracle/internal/retry"
	"github.com/omicsoracle/omicsoracle/internal/store"
)

const baseURL = "http://export.arxiv.org/api/query"

// Client talks to arXiv's Atom export API. arXiv asks callers to stay
// under roughly 1 request per 3 seconds; the rate limiter enforces
// whatever rps ClientsConfig assigns it.
type Client struct {
	httpClient *http.Client
	rateLimit  *ratelimit.Limiter
	retry      retry.Policy
}

// NewClient builds a Client from the "arxiv" entry of ClientsConfig.
func NewClient(cfg config.SourceConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retries := cfg.Retries
	if retries <= 0 {
		retries = retry.Default.MaxAttempts
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		rateLimit:  ratelimit.New(cfg.RateLimitRPS, cfg.Polite),
		retry:      retry.Policy{MaxAttempts: retries, Seed: retry.Default.Seed},
	}
}

type feed struct {
	XMLName      xml.Name `xml:"feed"`
	TotalResults int      `xml:"totalResults"`
	Entries      []entry  `xml:"entry"`
}

type entry struct {
	ID        string     `xml:"id"`
	Title     string     `xml:"title"`
	Summary   string     `xml:"summary"`
	Published string     `xml:"published"`
	Authors   []author   `xml:"author"`
	Links     []link     `xml:"link"`
	Category  []category `xml:"category"`
}

type author struct {
	Name        string `xml:"name"`
	Affiliation string `xml:"affiliation"`
}

type link struct {
	Href  string `xml:"href,attr"`
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr"`
}

type category struct {
	Term string `xml:"term,attr"`
}

// Search queries arXiv's search_query endpoint across all fields.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]store.Publication, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	params := url.Values{}
	params.Set("search_query", "all:"+query)
	params.Set("max_results", fmt.Sprintf("%d", limit))
	params.Set("sortBy", "relevance")
	params.Set("sortOrder", "descending")

	f, err := c.fetch(ctx, params)
	if err != nil {
		return nil, err
	}

	pubs := make([]store.Publication, 0, len(f.Entries))
	for i := range f.Entries {
		if pub := entryToPublication(&f.Entries[i]); pub != nil {
			pubs = append(pubs, *pub)
		}
	}
	return pubs, nil
}

// GetByID fetches a single arXiv record by its ID.
func (c *Client) GetByID(ctx context.Context, arxivID string) (*store.Publication, error) {
	params := url.Values{}
	params.Set("id_list", arxivID)

	f, err := c.fetch(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(f.Entries) == 0 {
		return nil, nil
	}
	return entryToPublication(&f.Entries[0]), nil
}

func (c *Client) fetch(ctx context.Context, params url.Values) (*feed, error) {
	if err := c.rateLimit.Wait(ctx); err != nil {
		return nil, oerrors.Wrap(oerrors.Cancelled, "arxiv", "rate limiter wait cancelled", err)
	}

	reqURL := baseURL + "?" + params.Encode()
	var body []byte
	err := c.retry.Do(ctx, func(ctx context.Context, attempt int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return oerrors.Wrap(oerrors.ConfigError, "arxiv", "build request", err)
		}
		req.Header.Set("User-Agent", "omicsoracle/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return oerrors.Wrap(oerrors.NetworkError, "arxiv", "request failed", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			d, _ := retry.ParseRetryAfter(resp.Header)
			return &retryAfterError{Error: oerrors.New(oerrors.RateLimited, "arxiv", "429"), after: d}
		}
		if resp.StatusCode >= 500 {
			return oerrors.New(oerrors.UpstreamUnavailable, "arxiv", fmt.Sprintf("HTTP %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return oerrors.New(oerrors.NotFound, "arxiv", fmt.Sprintf("HTTP %d", resp.StatusCode))
		}

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return oerrors.Wrap(oerrors.NetworkError, "arxiv", "read body", err)
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	var f feed
	if err := xml.Unmarshal(body, &f); err != nil {
		return nil, oerrors.Wrap(oerrors.MalformedResponse, "arxiv", "parse atom feed", err)
	}
	return &f, nil
}

type retryAfterError struct {
	*oerrors.Error
	after time.Duration
}

func (e *retryAfterError) RetryAfter() (time.Duration, bool) { return e.after, e.after > 0 }

// Unwrap exposes the embedded category to errors.CategoryOf.
func (e *retryAfterError) Unwrap() error { return e.Error }

func entryToPublication(e *entry) *store.Publication {
	arxivID := extractArxivID(e.ID)
	if arxivID == "" {
		return nil
	}

	authors := make([]string, 0, len(e.Authors))
	for _, a := range e.Authors {
		authors = append(authors, strings.TrimSpace(a.Name))
	}

	year := 0
	if e.Published != "" {
		if t, err := time.Parse(time.RFC3339, e.Published); err == nil {
			year = t.Year()
		}
	}

	pdfURL := fmt.Sprintf("https://arxiv.org/pdf/%s", arxivID)
	for _, l := range e.Links {
		if l.Title == "pdf" || l.Type == "application/pdf" {
			pdfURL = l.Href
			break
		}
	}

	categories := make([]string, 0, len(e.Category))
	for _, cat := range e.Category {
		categories = append(categories, cat.Term)
	}

	return &store.Publication{
		ArXivID: arxivID,
		Title:   strings.TrimSpace(e.Title),
		Authors: authors,
		Year:    year,
		Metadata: map[string]any{
			"abstract":   strings.TrimSpace(e.Summary),
			"pdf_url":    pdfURL,
			"categories": categories,
		},
	}
}

// extractArxivID pulls the bare ID out of an atom entry's <id>, which
// looks like "http://arxiv.org/abs/2301.00001v1"; the trailing version
// suffix is stripped.
func extractArxivID(fullURL string) string {
	parts := strings.Split(fullURL, "/abs/")
	if len(parts) != 2 {
		return ""
	}
	id := parts[1]
	if idx := strings.LastIndex(id, "v"); idx > 0 {
		versionPart := id[idx+1:]
		isVersion := versionPart != ""
		for _, c := range versionPart {
			if c < '0' || c > '9' {
				isVersion = false
				break
			}
		}
		if isVersion {
			id = id[:idx]
		}
	}
	return id
}
