// Package proxy rewrites publisher URLs through an institutional EZproxy
// link, so the downloader can reach paywalled full text from a library
// network. It is entirely configuration-gated: with no base URL
// configured, RewriteURL is a no-op.
package proxy

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/omicsoracle/omicsoracle/internal/config"
)

// Rewriter rewrites candidate download URLs through an institutional
// proxy login URL.
type Rewriter struct {
	baseURL  string
	username string
	password string
}

// NewRewriter builds a Rewriter from the "proxy" entry of ClientsConfig.
func NewRewriter(cfg config.SourceConfig) *Rewriter {
	return &Rewriter{
		baseURL:  strings.TrimRight(cfg.ProxyBaseURL, "/"),
		username: cfg.ProxyUsername,
		password: cfg.ProxyPassword,
	}
}

// Enabled reports whether a proxy base URL is configured.
func (r *Rewriter) Enabled() bool {
	return r.baseURL != ""
}

// RewriteURL rewrites target through the EZproxy URL-rewriting
// convention (https://docs.oclc.org/ezproxy/): the origin host and
// "." are replaced with "-" and appended to the proxy base URL. If
// no proxy is configured, target is returned unchanged.
func (r *Rewriter) RewriteURL(target string) (string, error) {
	if !r.Enabled() {
		return target, nil
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("invalid target url: %w", err)
	}

	rewrittenHost := strings.ReplaceAll(u.Host, ".", "-")
	return fmt.Sprintf("%s/login?url=%s.%s%s?%s", r.baseURL, u.Scheme, rewrittenHost, u.Path, u.RawQuery), nil
}

// Credentials returns the proxy login credentials, if configured.
func (r *Rewriter) Credentials() (username, password string, ok bool) {
	return r.username, r.password, r.username != ""
}
