// Package ncbi implements a client for the NCBI E-utilities REST API,
// covering the esearch, esummary, efetch, and elink operations used
// against the pubmed and gds (GEO) databases.
package ncbi

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/omicsoracle/omicsoracle/internal/config"
	oerrors "github.com/omicsoracle/omicsoracle/internal/errors"
	"github.com/omicsoracle/omicsoracle/internal/ratelimit"
	"github.com/omicsoracle/omicsoracle/internal/retry"
)

const baseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// Client talks to NCBI's E-utilities. One Client is shared by every caller
// that needs PubMed or GEO metadata; its rate limiter enforces the
// documented 3 rps (10 rps with an API key) budget for every call.
type Client struct {
	httpClient   *http.Client
	rateLimiter  *ratelimit.Limiter
	apiKey       string
	contactEmail string
	retry        retry.Policy
}

// NewClient builds a Client from the "ncbi" entry of ClientsConfig.
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
		httpClient:   &http.Client{Timeout: timeout},
		rateLimiter:  ratelimit.New(cfg.RateLimitRPS, cfg.Polite),
		apiKey:       cfg.APIKey,
		contactEmail: cfg.ContactEmail,
		retry:        retry.Policy{MaxAttempts: retries, Seed: retry.Default.Seed},
	}
}

func (c *Client) commonParams(v url.Values) url.Values {
	v.Set("tool", "omicsoracle")
	if c.contactEmail != "" {
		v.Set("email", c.contactEmail)
	}
	if c.apiKey != "" {
		v.Set("api_key", c.apiKey)
	}
	return v
}

// get issues one rate-limited, retried GET and returns the raw body.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, oerrors.Wrap(oerrors.Cancelled, "ncbi", "rate limiter wait cancelled", err)
	}

	reqURL := fmt.Sprintf("%s/%s?%s", baseURL, endpoint, c.commonParams(params).Encode())

	var body []byte
	err := c.retry.Do(ctx, func(ctx context.Context, attempt int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return oerrors.Wrap(oerrors.ConfigError, "ncbi", "build request", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return oerrors.Wrap(oerrors.NetworkError, "ncbi", "request failed", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			d, _ := retry.ParseRetryAfter(resp.Header)
			return &retryAfterError{Error: oerrors.New(oerrors.RateLimited, "ncbi", "429 from E-utilities"), after: d}
		}
		if resp.StatusCode >= 500 {
			return oerrors.New(oerrors.UpstreamUnavailable, "ncbi", fmt.Sprintf("HTTP %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return oerrors.New(oerrors.NotFound, "ncbi", fmt.Sprintf("HTTP %d", resp.StatusCode))
		}

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return oerrors.Wrap(oerrors.NetworkError, "ncbi", "read body", err)
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

// ESearchResult is the response from the esearch operation.
type ESearchResult struct {
	XMLName xml.Name `xml:"eSearchResult"`
	Count   string   `xml:"Count"`
	IDList  struct {
		IDs []string `xml:"Id"`
	} `xml:"IdList"`
	ErrorList struct {
		PhraseNotFound []string `xml:"PhraseNotFound"`
	} `xml:"ErrorList"`
}

// ESearch runs an esearch query against db and returns matching UIDs.
func (c *Client) ESearch(ctx context.Context, db, term string, retmax int) (*ESearchResult, error) {
	if retmax <= 0 {
		retmax = 20
	}
	params := url.Values{}
	params.Set("db", db)
	params.Set("term", term)
	params.Set("retmax", strconv.Itoa(retmax))
	params.Set("retmode", "xml")

	body, err := c.get(ctx, "esearch.fcgi", params)
	if err != nil {
		return nil, err
	}
	var result ESearchResult
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, oerrors.Wrap(oerrors.MalformedResponse, "ncbi", "parse esearch response", err)
	}
	return &result, nil
}

// DocSum is one document summary from esummary.
type DocSum struct {
	ID    string `xml:"Id"`
	Items []Item `xml:"Item"`
}

// Item is a single named field of a DocSum, possibly nested.
type Item struct {
	Name    string `xml:"Name,attr"`
	Type    string `xml:"Type,attr"`
	Content string `xml:",chardata"`
	Items   []Item `xml:"Item"`
}

type eSummaryResult struct {
	XMLName xml.Name `xml:"eSummaryResult"`
	DocSums []DocSum `xml:"DocSum"`
}

// ESummary fetches document summaries for the given UIDs in db.
func (c *Client) ESummary(ctx context.Context, db string, ids []string) ([]DocSum, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	params := url.Values{}
	params.Set("db", db)
	params.Set("id", joinIDs(ids))

	body, err := c.get(ctx, "esummary.fcgi", params)
	if err != nil {
		return nil, err
	}
	var result eSummaryResult
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, oerrors.Wrap(oerrors.MalformedResponse, "ncbi", "parse esummary response", err)
	}
	return result.DocSums, nil
}

// eLinkResult is the response from elink.
type eLinkResult struct {
	XMLName  xml.Name `xml:"eLinkResult"`
	LinkSets []struct {
		LinkSetDbs []struct {
			LinkName string `xml:"LinkName"`
			Links    []struct {
				ID string `xml:"Id"`
			} `xml:"Link"`
		} `xml:"LinkSetDb"`
	} `xml:"LinkSet"`
}

// ELink resolves links from one UID in dbfrom to UIDs in db, optionally
// restricted to linkname (empty means "all link names").
func (c *Client) ELink(ctx context.Context, dbfrom, db, id, linkname string) ([]string, error) {
	params := url.Values{}
	params.Set("dbfrom", dbfrom)
	params.Set("db", db)
	params.Set("id", id)
	if linkname != "" {
		params.Set("linkname", linkname)
	}

	body, err := c.get(ctx, "elink.fcgi", params)
	if err != nil {
		return nil, err
	}
	var result eLinkResult
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, oerrors.Wrap(oerrors.MalformedResponse, "ncbi", "parse elink response", err)
	}

	var ids []string
	for _, ls := range result.LinkSets {
		for _, db := range ls.LinkSetDbs {
			for _, link := range db.Links {
				ids = append(ids, link.ID)
			}
		}
	}
	return ids, nil
}

func joinIDs(ids []string) string {
	s := ids[0]
	for _, id := range ids[1:] {
		s += "," + id
	}
	return s
}
