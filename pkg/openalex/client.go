// Package openalex implements a client for the OpenAlex works API,
// used both for general publication search and for citation discovery
// (works that cite a given DOI).
package openalex

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

const baseURL = "https://api.openalex.org"

// arxivSourceID is OpenAlex's internal source ID for arXiv.
const arxivSourceID = "S4306400806"

// Client is an OpenAlex works API client. OpenAlex has no hard rate
// limit but recommends staying near 10 rps and supplying a contact
// email to join the "polite pool" for faster responses.
type Client struct {
	httpClient *http.Client
	rateLimit  *ratelimit.Limiter
	retry      retry.Policy
	email      string
}

// NewClient builds a Client from the "openalex" entry of ClientsConfig.
func NewClient(cfg config.SourceConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	retries := cfg.Retries
	if retries <= 0 {
		retries = retry.Default.MaxAttempts
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		rateLimit:  ratelimit.New(cfg.RateLimitRPS, cfg.Polite),
		retry:      retry.Policy{MaxAttempts: retries, Seed: retry.Default.Seed},
		email:      cfg.ContactEmail,
	}
}

type searchResponse struct {
	Meta struct {
		Count int `json:"count"`
	} `json:"meta"`
	Results []workResult `json:"results"`
}

type workResult struct {
	ID                    string                 `json:"id"`
	DOI                   string                 `json:"doi"`
	Title                 string                 `json:"title"`
	DisplayName           string                 `json:"display_name"`
	PublicationYear       int                    `json:"publication_year"`
	PublicationDate       string                 `json:"publication_date"`
	Type                  string                 `json:"type"`
	CitedByCount          int                    `json:"cited_by_count"`
	Authorships           []authorship           `json:"authorships"`
	PrimaryLocation       *location              `json:"primary_location"`
	OpenAccess            *openAccess            `json:"open_access"`
	IDs                   map[string]interface{} `json:"ids"`
	AbstractInvertedIndex map[string][]int       `json:"abstract_inverted_index"`
}

type authorship struct {
	Author struct {
		DisplayName string `json:"display_name"`
	} `json:"author"`
}

type location struct {
	LandingPageURL string  `json:"landing_page_url"`
	PDFURL         string  `json:"pdf_url"`
	Source         *source `json:"source"`
}

type source struct {
	DisplayName string `json:"display_name"`
}

type openAccess struct {
	IsOA  bool   `json:"is_oa"`
	OAURL string `json:"oa_url"`
}

// Search queries OpenAlex works matching query, most relevant first.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]store.Publication, error) {
	params := url.Values{}
	params.Set("search", query)
	return c.query(ctx, params, limit)
}

// FindCiting returns works that cite the publication identified by doi,
// OpenAlex's contribution to citation discovery (strategy A).
func (c *Client) FindCiting(ctx context.Context, doi string, limit int) ([]store.Publication, error) {
	if doi == "" {
		return nil, nil
	}
	workID, err := c.resolveWorkID(ctx, doi)
	if err != nil {
		return nil, err
	}
	if workID == "" {
		return nil, nil
	}
	params := url.Values{}
	params.Set("filter", "cites:"+workID)
	return c.query(ctx, params, limit)
}

func (c *Client) resolveWorkID(ctx context.Context, doi string) (string, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/works/https://doi.org/%s", baseURL, url.PathEscape(doi)), nil)
	if err != nil {
		if oerrors.CategoryOf(err) == oerrors.NotFound {
			return "", nil
		}
		return "", err
	}
	var w workResult
	if err := json.Unmarshal(body, &w); err != nil {
		return "", oerrors.Wrap(oerrors.MalformedResponse, "openalex", "parse work lookup", err)
	}
	return w.ID, nil
}

func (c *Client) query(ctx context.Context, params url.Values, limit int) ([]store.Publication, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	params.Set("per_page", fmt.Sprintf("%d", limit))
	if c.email != "" {
		params.Set("mailto", c.email)
	}

	body, err := c.get(ctx, baseURL+"/works?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, oerrors.Wrap(oerrors.MalformedResponse, "openalex", "parse search response", err)
	}

	pubs := make([]store.Publication, 0, len(resp.Results))
	for i := range resp.Results {
		if pub := workToPublication(&resp.Results[i]); pub != nil {
			pubs = append(pubs, *pub)
		}
	}
	return pubs, nil
}

func (c *Client) get(ctx context.Context, reqURL string, _ url.Values) ([]byte, error) {
	if err := c.rateLimit.Wait(ctx); err != nil {
		return nil, oerrors.Wrap(oerrors.Cancelled, "openalex", "rate limiter wait cancelled", err)
	}

	var body []byte
	err := c.retry.Do(ctx, func(ctx context.Context, attempt int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return oerrors.Wrap(oerrors.ConfigError, "openalex", "build request", err)
		}
		ua := "omicsoracle/1.0"
		if c.email != "" {
			ua = fmt.Sprintf("omicsoracle/1.0 (mailto:%s)", c.email)
		}
		req.Header.Set("User-Agent", ua)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return oerrors.Wrap(oerrors.NetworkError, "openalex", "request failed", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			d, _ := retry.ParseRetryAfter(resp.Header)
			return &retryAfterError{Error: oerrors.New(oerrors.RateLimited, "openalex", "429 from OpenAlex"), after: d}
		}
		if resp.StatusCode == http.StatusNotFound {
			return oerrors.New(oerrors.NotFound, "openalex", "404 from OpenAlex")
		}
		if resp.StatusCode >= 500 {
			return oerrors.New(oerrors.UpstreamUnavailable, "openalex", fmt.Sprintf("HTTP %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return oerrors.New(oerrors.MalformedResponse, "openalex", fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(b)))
		}

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return oerrors.Wrap(oerrors.NetworkError, "openalex", "read body", err)
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

func workToPublication(w *workResult) *store.Publication {
	title := w.Title
	if title == "" {
		title = w.DisplayName
	}
	if title == "" {
		return nil
	}

	arxivID := extractArXivID(w)
	pmid := extractPMID(w)
	pmcid := extractPMCID(w)

	authors := make([]string, 0, len(w.Authorships))
	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			authors = append(authors, strings.TrimSpace(a.Author.DisplayName))
		}
	}

	year := w.PublicationYear

	metadata := map[string]any{
		"citation_count": w.CitedByCount,
		"openalex_id":    w.ID,
		"abstract":       reconstructAbstract(w.AbstractInvertedIndex),
	}
	pdfURL := ""
	if w.PrimaryLocation != nil && w.PrimaryLocation.PDFURL != "" {
		pdfURL = w.PrimaryLocation.PDFURL
	} else if w.OpenAccess != nil && w.OpenAccess.OAURL != "" {
		pdfURL = w.OpenAccess.OAURL
	}
	if pdfURL != "" {
		metadata["pdf_url"] = pdfURL
	}
	if w.PrimaryLocation != nil && w.PrimaryLocation.Source != nil {
		metadata["venue"] = w.PrimaryLocation.Source.DisplayName
	}

	doi := strings.TrimPrefix(w.DOI, "https://doi.org/")

	return &store.Publication{
		PMID:     pmid,
		DOI:      doi,
		PMCID:    pmcid,
		ArXivID:  arxivID,
		Title:    strings.TrimSpace(title),
		Authors:  authors,
		Year:     year,
		Metadata: metadata,
	}
}

func extractArXivID(w *workResult) string {
	if w.DOI != "" {
		doi := strings.TrimPrefix(w.DOI, "https://doi.org/")
		if strings.HasPrefix(strings.ToLower(doi), "10.48550/arxiv.") {
			return doi[len("10.48550/arxiv."):]
		}
	}
	if w.PrimaryLocation != nil && w.PrimaryLocation.Source != nil {
		name := strings.ToLower(w.PrimaryLocation.Source.DisplayName)
		if strings.Contains(name, "arxiv") && w.PrimaryLocation.LandingPageURL != "" {
			if idx := strings.Index(w.PrimaryLocation.LandingPageURL, "/abs/"); idx != -1 {
				return strings.TrimRight(w.PrimaryLocation.LandingPageURL[idx+5:], "/")
			}
		}
	}
	return ""
}

func extractPMID(w *workResult) string {
	if pmid, ok := w.IDs["pmid"].(string); ok {
		return strings.Trim(strings.TrimPrefix(pmid, "https://pubmed.ncbi.nlm.nih.gov/"), "/")
	}
	return ""
}

func extractPMCID(w *workResult) string {
	if pmcid, ok := w.IDs["pmcid"].(string); ok {
		return strings.Trim(strings.TrimPrefix(pmcid, "https://www.ncbi.nlm.nih.gov/pmc/articles/"), "/")
	}
	return ""
}

// reconstructAbstract rebuilds plain text from OpenAlex's inverted index
// representation: {"word": [position, ...], ...}.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}
	maxPos := 0
	for _, positions := range invertedIndex {
		for _, pos := range positions {
			if pos > maxPos {
				maxPos = pos
			}
		}
	}
	words := make([]string, maxPos+1)
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			if pos >= 0 && pos <= maxPos {
				words[pos] = word
			}
		}
	}
	var sb strings.Builder
	for i, word := range words {
		if word != "" {
			if i > 0 && sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(word)
		}
	}
	return sb.String()
}
