// Package semanticscholar implements a client for the Semantic Scholar
// Graph API, used for general search and for citation discovery via the
// paper/{id}/citations endpoint.
package semanticscholar

import (
	"context"
	"encoding/json"
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

const apiBaseURL = "https://api.semanticscholar.org/graph/v1"

const fields = "title,abstract,year,citationCount,externalIds,openAccessPdf,publicationDate,authors"

// Client talks to the Semantic Scholar Graph API. Unauthenticated
// callers are capped at roughly 1 rps; an API key (x-api-key header)
// raises that considerably.
type Client struct {
	httpClient *http.Client
	rateLimit  *ratelimit.Limiter
	retry      retry.Policy
	apiKey     string
}

// NewClient builds a Client from the "semanticscholar" entry of ClientsConfig.
func NewClient(cfg config.SourceConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	retries := cfg.Retries
	if retries <= 0 {
		retries = retry.Default.MaxAttempts
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		rateLimit:  ratelimit.New(cfg.RateLimitRPS, cfg.Polite),
		retry:      retry.Policy{MaxAttempts: retries, Seed: retry.Default.Seed},
		apiKey:     cfg.APIKey,
	}
}

type searchResponse struct {
	Total int           `json:"total"`
	Data  []paperResult `json:"data"`
}

type citationsResponse struct {
	Data []struct {
		CitingPaper paperResult `json:"citingPaper"`
	} `json:"data"`
}

type paperResult struct {
	PaperID         string         `json:"paperId"`
	Title           string         `json:"title"`
	Abstract        string         `json:"abstract"`
	Year            int            `json:"year"`
	CitationCount   int            `json:"citationCount"`
	Authors         []authorInfo   `json:"authors"`
	ExternalIDs     externalIDs    `json:"externalIds"`
	OpenAccessPDF   *openAccessPDF `json:"openAccessPdf"`
	PublicationDate string         `json:"publicationDate"`
}

type authorInfo struct {
	Name string `json:"name"`
}

type externalIDs struct {
	ArXiv  string `json:"ArXiv"`
	DOI    string `json:"DOI"`
	PubMed string `json:"PubMed"`
	PMCID  string `json:"PMCID"`
}

type openAccessPDF struct {
	URL string `json:"url"`
}

// Search queries Semantic Scholar's paper search endpoint.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]store.Publication, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("fields", fields)

	body, err := c.get(ctx, fmt.Sprintf("%s/paper/search?%s", apiBaseURL, params.Encode()))
	if err != nil {
		return nil, err
	}
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, oerrors.Wrap(oerrors.MalformedResponse, "semanticscholar", "parse search response", err)
	}

	pubs := make([]store.Publication, 0, len(resp.Data))
	for i := range resp.Data {
		if pub := resultToPublication(&resp.Data[i]); pub != nil {
			pubs = append(pubs, *pub)
		}
	}
	return pubs, nil
}

// FindCiting returns papers citing the publication identified by pmid
// or doi, via Semantic Scholar's citations relationship graph. Prefers
// the PMID-keyed paper ID (paper/PMID:x/citations) when a PMID is
// available, falling back to the DOI-keyed form otherwise. Used by
// strategy A of citation discovery.
func (c *Client) FindCiting(ctx context.Context, pmid, doi string, limit int) ([]store.Publication, error) {
	paperID := paperIDFor(pmid, doi)
	if paperID == "" {
		return nil, nil
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	params := url.Values{}
	params.Set("fields", "citingPaper."+strings.ReplaceAll(fields, ",", ",citingPaper."))
	params.Set("limit", fmt.Sprintf("%d", limit))

	body, err := c.get(ctx, fmt.Sprintf("%s/paper/%s/citations?%s", apiBaseURL, paperID, params.Encode()))
	if err != nil {
		if oerrors.CategoryOf(err) == oerrors.NotFound {
			return nil, nil
		}
		return nil, err
	}
	var resp citationsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, oerrors.Wrap(oerrors.MalformedResponse, "semanticscholar", "parse citations response", err)
	}

	pubs := make([]store.Publication, 0, len(resp.Data))
	for i := range resp.Data {
		if pub := resultToPublication(&resp.Data[i].CitingPaper); pub != nil {
			pubs = append(pubs, *pub)
		}
	}
	return pubs, nil
}

// paperIDFor builds Semantic Scholar's <id-type>:<id> path segment,
// preferring PMID over DOI when both are known.
func paperIDFor(pmid, doi string) string {
	if pmid != "" {
		return "PMID:" + pmid
	}
	if doi != "" {
		return "DOI:" + url.PathEscape(doi)
	}
	return ""
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.rateLimit.Wait(ctx); err != nil {
		return nil, oerrors.Wrap(oerrors.Cancelled, "semanticscholar", "rate limiter wait cancelled", err)
	}

	var body []byte
	err := c.retry.Do(ctx, func(ctx context.Context, attempt int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return oerrors.Wrap(oerrors.ConfigError, "semanticscholar", "build request", err)
		}
		req.Header.Set("User-Agent", "omicsoracle/1.0")
		if c.apiKey != "" {
			req.Header.Set("x-api-key", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return oerrors.Wrap(oerrors.NetworkError, "semanticscholar", "request failed", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			d, _ := retry.ParseRetryAfter(resp.Header)
			return &retryAfterError{Error: oerrors.New(oerrors.RateLimited, "semanticscholar", "429"), after: d}
		}
		if resp.StatusCode == http.StatusNotFound {
			return oerrors.New(oerrors.NotFound, "semanticscholar", "404")
		}
		if resp.StatusCode >= 500 {
			return oerrors.New(oerrors.UpstreamUnavailable, "semanticscholar", fmt.Sprintf("HTTP %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return oerrors.New(oerrors.MalformedResponse, "semanticscholar", fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(b)))
		}

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return oerrors.Wrap(oerrors.NetworkError, "semanticscholar", "read body", err)
		}
		body = b
		return nil
	})
	return body, err
}

type retryAfterError struct {
	*oerrors.Error
	after time.Duration
}

func (e *retryAfterError) RetryAfter() (time.Duration, bool) { return e.after, e.after > 0 }

// Unwrap exposes the embedded category to errors.CategoryOf.
func (e *retryAfterError) Unwrap() error { return e.Error }

func resultToPublication(r *paperResult) *store.Publication {
	if r.Title == "" {
		return nil
	}

	authors := make([]string, 0, len(r.Authors))
	for _, a := range r.Authors {
		if a.Name != "" {
			authors = append(authors, strings.TrimSpace(a.Name))
		}
	}

	year := r.Year

	metadata := map[string]any{
		"citation_count": r.CitationCount,
		"s2_paper_id":    r.PaperID,
		"abstract":       strings.TrimSpace(r.Abstract),
	}
	if r.OpenAccessPDF != nil && r.OpenAccessPDF.URL != "" {
		metadata["pdf_url"] = r.OpenAccessPDF.URL
	}

	return &store.Publication{
		PMID:     r.ExternalIDs.PubMed,
		DOI:      r.ExternalIDs.DOI,
		PMCID:    r.ExternalIDs.PMCID,
		ArXivID:  r.ExternalIDs.ArXiv,
		Title:    strings.TrimSpace(r.Title),
		Authors:  authors,
		Year:     year,
		Metadata: metadata,
	}
}
