// Package biorxiv implements a client for the bioRxiv/medRxiv public
// API, used to resolve a DOI to its preprint metadata and PDF URL.
package biorxiv

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/omicsoracle/omicsoracle/internal/config"
	oerrors "github.com/omicsoracle/omicsoracle/internal/errors"
	"github.com/omicsoracle/omicsoracle/internal/ratelimit"
	"github.com/omicsoracle/omicsoracle/internal/retry"
	"github.com/omicsoracle/omicsoracle/internal/store"
)

const baseURL = "https://api.biorxiv.org/details"

// Client talks to the bioRxiv/medRxiv details API.
type Client struct {
	httpClient *http.Client
	rateLimit  *ratelimit.Limiter
	retry      retry.Policy
}

// NewClient builds a Client from the "biorxiv" entry of ClientsConfig.
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
	}
}

type detailsResponse struct {
	Collection []collectionEntry `json:"collection"`
}

type collectionEntry struct {
	DOI     string `json:"doi"`
	Title   string `json:"title"`
	Authors string `json:"authors"`
	Date    string `json:"date"`
	Server  string `json:"server"`
}

// GetByDOI resolves doi against both the biorxiv and medrxiv servers
// and returns whichever one has a record.
func (c *Client) GetByDOI(ctx context.Context, doi string) (*store.Publication, error) {
	for _, server := range []string{"biorxiv", "medrxiv"} {
		pub, err := c.getFromServer(ctx, server, doi)
		if err != nil {
			return nil, err
		}
		if pub != nil {
			return pub, nil
		}
	}
	return nil, nil
}

func (c *Client) getFromServer(ctx context.Context, server, doi string) (*store.Publication, error) {
	reqURL := fmt.Sprintf("%s/%s/%s", baseURL, server, doi)
	body, err := c.get(ctx, reqURL)
	if err != nil {
		if oerrors.CategoryOf(err) == oerrors.NotFound {
			return nil, nil
		}
		return nil, err
	}

	var resp detailsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, oerrors.Wrap(oerrors.MalformedResponse, "biorxiv", "parse details response", err)
	}
	if len(resp.Collection) == 0 {
		return nil, nil
	}
	return entryToPublication(server, resp.Collection[len(resp.Collection)-1]), nil
}

func entryToPublication(server string, e collectionEntry) *store.Publication {
	return &store.Publication{
		DOI:   e.DOI,
		Title: e.Title,
		Metadata: map[string]any{
			"preprint_server": server,
			"pdf_url":         fmt.Sprintf("https://www.%s.org/content/%s.full.pdf", server, e.DOI),
		},
	}
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.rateLimit.Wait(ctx); err != nil {
		return nil, oerrors.Wrap(oerrors.Cancelled, "biorxiv", "rate limiter wait cancelled", err)
	}

	var body []byte
	err := c.retry.Do(ctx, func(ctx context.Context, attempt int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return oerrors.Wrap(oerrors.ConfigError, "biorxiv", "build request", err)
		}
		req.Header.Set("User-Agent", "omicsoracle/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return oerrors.Wrap(oerrors.NetworkError, "biorxiv", "request failed", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			d, _ := retry.ParseRetryAfter(resp.Header)
			return &retryAfterError{Error: oerrors.New(oerrors.RateLimited, "biorxiv", "429"), after: d}
		}
		if resp.StatusCode == http.StatusNotFound {
			return oerrors.New(oerrors.NotFound, "biorxiv", "404")
		}
		if resp.StatusCode >= 500 {
			return oerrors.New(oerrors.UpstreamUnavailable, "biorxiv", fmt.Sprintf("HTTP %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return oerrors.New(oerrors.MalformedResponse, "biorxiv", fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(b)))
		}

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return oerrors.Wrap(oerrors.NetworkError, "biorxiv", "read body", err)
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
