package orchestrator

import "regexp"

// QueryKind classifies a user's search string before dispatch.
type QueryKind string

const (
	QueryGEOID   QueryKind = "geo_id"
	QueryPMID    QueryKind = "pmid"
	QueryKeyword QueryKind = "keyword"
)

var (
	geoIDPattern = regexp.MustCompile(`(?i)^GSE\d+$`)
	pmidPattern  = regexp.MustCompile(`^\d{1,8}$`)
)

// ClassifyQuery recognizes a bare GEO accession or PMID so Search can
// route it directly instead of treating it as a free-text keyword
// search.
func ClassifyQuery(query string) QueryKind {
	switch {
	case geoIDPattern.MatchString(query):
		return QueryGEOID
	case pmidPattern.MatchString(query):
		return QueryPMID
	default:
		return QueryKeyword
	}
}

// QueryExpander rewrites a query into a set of terms to search with —
// an opaque synonym-expansion seam. The core ships only the no-op
// IdentityExpander below; a caller wires in a real one when it has one.
type QueryExpander interface {
	Expand(query string) []string
}

// IdentityExpander is the no-op QueryExpander used when none is
// configured: the query expands to just itself.
type IdentityExpander struct{}

func (IdentityExpander) Expand(query string) []string { return []string{query} }
