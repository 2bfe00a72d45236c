// Package unpaywall implements a client for the Unpaywall API, which
// resolves a DOI to its best open-access location. Used as a waterfall
// URL source rather than for search or citation discovery.
package unpaywall

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

const baseURL = "https://api.unpaywall.org/v2"

// Client talks to the Unpaywall API. Unpaywall requires a contact
// email on every request in lieu of an API key.
type Client struct {
	httpClient *http.Client
	rateLimit  *ratelimit.Limiter
	retry      retry.Policy
	email      string
}

// NewClient builds a Client from the "unpaywall" entry of ClientsConfig.
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
		email:      cfg.ContactEmail,
	}
}

// Location is one open-access host location for a DOI.
type Location struct {
	URL        string `json:"url_for_pdf"`
	LandingURL string `json:"url"`
	HostType   string `json:"host_type"`
	Version    string `json:"version"`
}

type doiResponse struct {
	IsOA        bool       `json:"is_oa"`
	BestOALocation *Location `json:"best_oa_location"`
	OALocations []Location `json:"oa_locations"`
}

// Locations returns every known open-access location for doi, best
// first. Returns an empty slice (not an error) when Unpaywall has no
// record of an open-access copy.
func (c *Client) Locations(ctx context.Context, doi string) ([]Location, error) {
	if doi == "" {
		return nil, nil
	}
	if c.email == "" {
		return nil, oerrors.New(oerrors.ConfigError, "unpaywall", "contact email required")
	}

	params := url.Values{}
	params.Set("email", c.email)
	reqURL := fmt.Sprintf("%s/%s?%s", baseURL, url.PathEscape(doi), params.Encode())

	body, err := c.get(ctx, reqURL)
	if err != nil {
		if oerrors.CategoryOf(err) == oerrors.NotFound {
			return nil, nil
		}
		return nil, err
	}

	var resp doiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, oerrors.Wrap(oerrors.MalformedResponse, "unpaywall", "parse doi response", err)
	}
	if !resp.IsOA {
		return nil, nil
	}

	locs := make([]Location, 0, len(resp.OALocations)+1)
	if resp.BestOALocation != nil {
		locs = append(locs, *resp.BestOALocation)
	}
	for _, l := range resp.OALocations {
		locs = append(locs, l)
	}
	return locs, nil
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.rateLimit.Wait(ctx); err != nil {
		return nil, oerrors.Wrap(oerrors.Cancelled, "unpaywall", "rate limiter wait cancelled", err)
	}

	var body []byte
	err := c.retry.Do(ctx, func(ctx context.Context, attempt int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return oerrors.Wrap(oerrors.ConfigError, "unpaywall", "build request", err)
		}
		req.Header.Set("User-Agent", "omicsoracle/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return oerrors.Wrap(oerrors.NetworkError, "unpaywall", "request failed", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			d, _ := retry.ParseRetryAfter(resp.Header)
			return &retryAfterError{Error: oerrors.New(oerrors.RateLimited, "unpaywall", "429"), after: d}
		}
		if resp.StatusCode == http.StatusNotFound {
			return oerrors.New(oerrors.NotFound, "unpaywall", "404")
		}
		if resp.StatusCode >= 500 {
			return oerrors.New(oerrors.UpstreamUnavailable, "unpaywall", fmt.Sprintf("HTTP %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return oerrors.New(oerrors.MalformedResponse, "unpaywall", fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(b)))
		}

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return oerrors.Wrap(oerrors.NetworkError, "unpaywall", "read body", err)
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
