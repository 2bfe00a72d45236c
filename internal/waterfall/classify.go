// Package waterfall implements full-text URL collection, classification,
// and sorting: one goroutine per source collects candidate URLs, each
// candidate is classified into a URLType, and the combined set is
// sorted into the fixed attempt order.
package waterfall

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/omicsoracle/omicsoracle/internal/store"
)

// pdfHostTable lists hosts that serve PDFs at path shapes the generic
// patterns below don't already recognize.
var pdfHostTable = []struct {
	host string
	path string
}{
	{"biorxiv.org", "/content/"},
	{"medrxiv.org", "/content/"},
}

var pdfPathPattern = regexp.MustCompile(`(?i)\.pdf(\?.*)?$|/pdf/|/download/`)

var pdfQueryPattern = regexp.MustCompile(`(?i)(^|[?&])pdf=render\b`)

var landingPagePattern = regexp.MustCompile(`(?i)/(article|full|abstract|abs)s?/`)

var doiResolverHosts = []string{"doi.org", "dx.doi.org"}

var htmlFullTextHosts = []string{"ncbi.nlm.nih.gov", "europepmc.org"}

// Classify determines a candidate URL's URLType by an ordered set of
// rules: known PDF-serving hosts, PDF-shaped paths or query strings,
// DOI resolvers, landing-page shapes, else unknown.
func Classify(rawURL string) store.URLType {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return store.URLTypeUnknown
	}
	host := strings.ToLower(u.Host)
	path := strings.ToLower(u.Path)
	query := strings.ToLower(u.RawQuery)

	for _, entry := range pdfHostTable {
		if strings.Contains(host, entry.host) && strings.Contains(path, entry.path) {
			return store.URLTypePDFDirect
		}
	}
	if pdfPathPattern.MatchString(path) || pdfQueryPattern.MatchString(query) {
		return store.URLTypePDFDirect
	}
	for _, h := range doiResolverHosts {
		if strings.Contains(host, h) {
			return store.URLTypeDOIResolver
		}
	}
	if landingPagePattern.MatchString(path) {
		for _, h := range htmlFullTextHosts {
			if strings.Contains(host, h) {
				return store.URLTypeHTMLFullText
			}
		}
		return store.URLTypeLandingPage
	}
	return store.URLTypeUnknown
}

// groupOrder fixes the sort order for url_type groups.
var groupOrder = map[store.URLType]int{
	store.URLTypePDFDirect:    0,
	store.URLTypeHTMLFullText: 1,
	store.URLTypeLandingPage:  2,
	store.URLTypeDOIResolver:  3,
	store.URLTypeUnknown:      4,
}

func groupRank(t store.URLType) int {
	if r, ok := groupOrder[t]; ok {
		return r
	}
	return len(groupOrder)
}
