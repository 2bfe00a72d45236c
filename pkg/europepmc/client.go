// Package europepmc implements a client for the Europe PMC REST API,
// used for full-text search and for its citation-relationship endpoint.
package europepmc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/omicsoracle/omicsoracle/internal/config"
	oerrors "github.com/omicsoracle/omicsoracle/internal/errors"
	"github.com/omicsoracle/omicsoracle/internal/ratelimit"
	"github.com/omicsoracle/omicsoracle/internal/retry"
	"github.com/omicsoracle/omicsoracle/internal/store"
)

const baseURL = "https://www.ebi.ac.uk/europepmc/webservices/rest"

// Client talks to the Europe PMC REST API.
type Client struct {
	httpClient *http.Client
	rateLimit  *ratelimit.Limiter
	retry      retry.Policy
}

// NewClient builds a Client from the "europepmc" entry of ClientsConfig.
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
	}
}

type searchResponse struct {
	HitCount int `json:"hitCount"`
	ResultList struct {
		Result []searchResult `json:"result"`
	} `json:"resultList"`
}

type searchResult struct {
	ID        string `json:"id"`
	PMID      string `json:"pmid"`
	PMCID     string `json:"pmcid"`
	DOI       string `json:"doi"`
	Title     string `json:"title"`
	AuthorStr string `json:"authorString"`
	JournalTitle string `json:"journalTitle"`
	PubYear   string `json:"pubYear"`
	AbstractText string `json:"abstractText"`
}

type citationsResponse struct {
	CitationList struct {
		Citation []searchResult `json:"citation"`
	} `json:"citationList"`
}

// Search queries Europe PMC's full-text/metadata search index.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]store.Publication, error) {
	if limit <= 0 || limit > 1000 {
		limit = 25
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("format", "json")
	params.Set("pageSize", fmt.Sprintf("%d", limit))

	body, err := c.get(ctx, fmt.Sprintf("%s/search?%s", baseURL, params.Encode()))
	if err != nil {
		return nil, err
	}
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, oerrors.Wrap(oerrors.MalformedResponse, "europepmc", "parse search response", err)
	}
	return resultsToPublications(resp.ResultList.Result), nil
}

// FindCiting returns publications that cite the given PMID, via Europe
// PMC's citation-relationship endpoint (strategy A).
func (c *Client) FindCiting(ctx context.Context, pmid string, limit int) ([]store.Publication, error) {
	if pmid == "" {
		return nil, nil
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	params := url.Values{}
	params.Set("format", "json")
	params.Set("pageSize", fmt.Sprintf("%d", limit))

	reqURL := fmt.Sprintf("%s/MED/%s/citations?%s", baseURL, url.PathEscape(pmid), params.Encode())
	body, err := c.get(ctx, reqURL)
	if err != nil {
		if oerrors.CategoryOf(err) == oerrors.NotFound {
			return nil, nil
		}
		return nil, err
	}
	var resp citationsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, oerrors.Wrap(oerrors.MalformedResponse, "europepmc", "parse citations response", err)
	}
	return resultsToPublications(resp.CitationList.Citation), nil
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.rateLimit.Wait(ctx); err != nil {
		return nil, oerrors.Wrap(oerrors.Cancelled, "europepmc", "rate limiter wait cancelled", err)
	}

	var body []byte
	err := c.retry.Do(ctx, func(ctx context.Context, attempt int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return oerrors.Wrap(oerrors.ConfigError, "europepmc", "build request", err)
		}
		req.Header.Set("User-Agent", "omicsoracle/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return oerrors.Wrap(oerrors.NetworkError, "europepmc", "request failed", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			d, _ := retry.ParseRetryAfter(resp.Header)
			return &retryAfterError{Error: oerrors.New(oerrors.RateLimited, "europepmc", "429"), after: d}
		}
		if resp.StatusCode == http.StatusNotFound {
			return oerrors.New(oerrors.NotFound, "europepmc", "404")
		}
		if resp.StatusCode >= 500 {
			return oerrors.New(oerrors.UpstreamUnavailable, "europepmc", fmt.Sprintf("HTTP %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return oerrors.New(oerrors.MalformedResponse, "europepmc", fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(b)))
		}

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return oerrors.Wrap(oerrors.NetworkError, "europepmc", "read body", err)
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

func resultsToPublications(results []searchResult) []store.Publication {
	pubs := make([]store.Publication, 0, len(results))
	for _, r := range results {
		if r.Title == "" {
			continue
		}
		year, _ := strconv.Atoi(r.PubYear)
		var authors []string
		if r.AuthorStr != "" {
			for _, a := range strings.Split(r.AuthorStr, ",") {
				if a = strings.TrimSpace(a); a != "" {
					authors = append(authors, a)
				}
			}
		}
		pubs = append(pubs, store.Publication{
			PMID:    r.PMID,
			DOI:     r.DOI,
			PMCID:   r.PMCID,
			Title:   strings.TrimSpace(r.Title),
			Authors: authors,
			Journal: r.JournalTitle,
			Year:    year,
			Metadata: map[string]any{
				"abstract":      r.AbstractText,
				"europepmc_id":  r.ID,
			},
		})
	}
	return pubs
}
