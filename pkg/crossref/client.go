// Package crossref implements a client for the Crossref REST API, used
// to resolve DOI metadata and as a fallback landing-page URL source.
package crossref

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

const baseURL = "https://api.crossref.org/works"

// Client talks to the Crossref REST API. Supplying a contact email
// puts requests in Crossref's "polite pool".
type Client struct {
	httpClient *http.Client
	rateLimit  *ratelimit.Limiter
	retry      retry.Policy
	email      string
}

// NewClient builds a Client from the "crossref" entry of ClientsConfig.
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

type workResponse struct {
	Message workMessage `json:"message"`
}

type workMessage struct {
	DOI     string `json:"DOI"`
	Title   []string `json:"title"`
	URL     string `json:"URL"`
	Link    []struct {
		URL         string `json:"URL"`
		ContentType string `json:"content-type"`
	} `json:"link"`
	Author []struct {
		Given  string `json:"given"`
		Family string `json:"family"`
	} `json:"author"`
	ContainerTitle []string `json:"container-title"`
	Published      struct {
		DateParts [][]int `json:"date-parts"`
	} `json:"published"`
}

// GetByDOI resolves a DOI to its Crossref record.
func (c *Client) GetByDOI(ctx context.Context, doi string) (*store.Publication, error) {
	if doi == "" {
		return nil, nil
	}
	reqURL := fmt.Sprintf("%s/%s", baseURL, url.PathEscape(doi))
	if c.email != "" {
		reqURL += "?mailto=" + url.QueryEscape(c.email)
	}

	body, err := c.get(ctx, reqURL)
	if err != nil {
		if oerrors.CategoryOf(err) == oerrors.NotFound {
			return nil, nil
		}
		return nil, err
	}

	var resp workResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, oerrors.Wrap(oerrors.MalformedResponse, "crossref", "parse work response", err)
	}
	return messageToPublication(resp.Message), nil
}

func messageToPublication(m workMessage) *store.Publication {
	title := ""
	if len(m.Title) > 0 {
		title = m.Title[0]
	}

	authors := make([]string, 0, len(m.Author))
	for _, a := range m.Author {
		name := strings.TrimSpace(a.Given + " " + a.Family)
		if name != "" {
			authors = append(authors, name)
		}
	}

	journal := ""
	if len(m.ContainerTitle) > 0 {
		journal = m.ContainerTitle[0]
	}

	year := 0
	if len(m.Published.DateParts) > 0 && len(m.Published.DateParts[0]) > 0 {
		year = m.Published.DateParts[0][0]
	}

	landingURL := m.URL
	for _, l := range m.Link {
		if strings.Contains(l.ContentType, "pdf") {
			landingURL = l.URL
			break
		}
	}

	return &store.Publication{
		DOI:     m.DOI,
		Title:   strings.TrimSpace(title),
		Authors: authors,
		Journal: journal,
		Year:    year,
		Metadata: map[string]any{
			"landing_url": landingURL,
		},
	}
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.rateLimit.Wait(ctx); err != nil {
		return nil, oerrors.Wrap(oerrors.Cancelled, "crossref", "rate limiter wait cancelled", err)
	}

	var body []byte
	err := c.retry.Do(ctx, func(ctx context.Context, attempt int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return oerrors.Wrap(oerrors.ConfigError, "crossref", "build request", err)
		}
		ua := "omicsoracle/1.0"
		if c.email != "" {
			ua = fmt.Sprintf("omicsoracle/1.0 (mailto:%s)", c.email)
		}
		req.Header.Set("User-Agent", ua)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return oerrors.Wrap(oerrors.NetworkError, "crossref", "request failed", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			d, _ := retry.ParseRetryAfter(resp.Header)
			return &retryAfterError{Error: oerrors.New(oerrors.RateLimited, "crossref", "429"), after: d}
		}
		if resp.StatusCode == http.StatusNotFound {
			return oerrors.New(oerrors.NotFound, "crossref", "404")
		}
		if resp.StatusCode >= 500 {
			return oerrors.New(oerrors.UpstreamUnavailable, "crossref", fmt.Sprintf("HTTP %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return oerrors.New(oerrors.MalformedResponse, "crossref", fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(b)))
		}

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return oerrors.Wrap(oerrors.NetworkError, "crossref", "read body", err)
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
