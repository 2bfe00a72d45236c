// Package core implements a client for the CORE API (core.ac.uk),
// an aggregator of open-access repositories, used as a waterfall
// URL source.
package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/omicsoracle/omicsoracle/internal/config"
	oerrors "github.com/omicsoracle/omicsoracle/internal/errors"
	"github.com/omicsoracle/omicsoracle/internal/ratelimit"
	"github.com/omicsoracle/omicsoracle/internal/retry"
)

const baseURL = "https://api.core.ac.uk/v3"

// Client talks to the CORE v3 API. An API key is required; CORE
// throttles unauthenticated traffic almost to zero.
type Client struct {
	httpClient *http.Client
	rateLimit  *ratelimit.Limiter
	retry      retry.Policy
	apiKey     string
}

// NewClient builds a Client from the "core" entry of ClientsConfig.
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
		apiKey:     cfg.APIKey,
	}
}

type searchResponse struct {
	TotalHits int          `json:"totalHits"`
	Results   []workResult `json:"results"`
}

type workResult struct {
	ID          int    `json:"id"`
	DOI         string `json:"doi"`
	Title       string `json:"title"`
	DownloadURL string `json:"downloadUrl"`
}

// FindPDFURL looks up a work by DOI and returns CORE's hosted PDF URL,
// if it has one. Returns "" (not an error) when CORE has no copy.
func (c *Client) FindPDFURL(ctx context.Context, doi string) (string, error) {
	if doi == "" || c.apiKey == "" {
		return "", nil
	}

	query := fmt.Sprintf(`doi:"%s"`, doi)
	reqURL := fmt.Sprintf("%s/search/works?q=%s&limit=1", baseURL, url.QueryEscape(query))

	body, err := c.get(ctx, reqURL)
	if err != nil {
		if oerrors.CategoryOf(err) == oerrors.NotFound {
			return "", nil
		}
		return "", err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", oerrors.Wrap(oerrors.MalformedResponse, "core", "parse search response", err)
	}
	if len(resp.Results) == 0 {
		return "", nil
	}
	return resp.Results[0].DownloadURL, nil
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.rateLimit.Wait(ctx); err != nil {
		return nil, oerrors.Wrap(oerrors.Cancelled, "core", "rate limiter wait cancelled", err)
	}

	var body []byte
	err := c.retry.Do(ctx, func(ctx context.Context, attempt int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return oerrors.Wrap(oerrors.ConfigError, "core", "build request", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("User-Agent", "omicsoracle/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return oerrors.Wrap(oerrors.NetworkError, "core", "request failed", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			d, _ := retry.ParseRetryAfter(resp.Header)
			return &retryAfterError{Error: oerrors.New(oerrors.RateLimited, "core", "429"), after: d}
		}
		if resp.StatusCode == http.StatusNotFound {
			return oerrors.New(oerrors.NotFound, "core", "404")
		}
		if resp.StatusCode >= 500 {
			return oerrors.New(oerrors.UpstreamUnavailable, "core", fmt.Sprintf("HTTP %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return oerrors.New(oerrors.MalformedResponse, "core", fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(b)))
		}

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return oerrors.Wrap(oerrors.NetworkError, "core", "read body", err)
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
