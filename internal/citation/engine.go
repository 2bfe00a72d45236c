// Package citation implements the citation-discovery engine: given a
// GEO dataset's original publications (by PMID and/or DOI), it fans out across citation sources to
// find every publication that cites or mentions the dataset.
package citation

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/omicsoracle/omicsoracle/internal/identifier"
	"github.com/omicsoracle/omicsoracle/internal/store"
)

// sourcePriority fixes the dedup tiebreak order required by the engine's
// determinism contract: when two sources return the same canonical key,
// the earlier-listed source's copy of the record wins.
var sourcePriority = []string{"openalex", "semanticscholar", "europepmc", "ncbi-elink", "pubmed-mention"}

// Source finds publications citing the publication identified by pmid
// and/or doi. Each source client able to contribute to strategy A is
// wrapped in a Source by an adapter in this package.
type Source interface {
	Name() string
	FindCiting(ctx context.Context, pmid, doi string, limit int) ([]store.Publication, error)
}

// MentionSource implements strategy B: publications that mention a GEO
// accession in their full text, rather than citing a known PMID.
type MentionSource interface {
	SearchMentions(ctx context.Context, geoID string, limit int) ([]store.Publication, error)
}

// SourceStatus records whether a source contributed within the
// engine's bounded timeout.
type SourceStatus struct {
	Name      string
	Succeeded bool
	Count     int
	Err       error
}

// Result is the deduplicated output of one FindCitingPapers call.
type Result struct {
	Citing      []store.Publication
	SourcesUsed []SourceStatus
}

// Engine runs citation discovery for one GEO dataset at a time.
type Engine struct {
	sources        []Source
	mentionSource  MentionSource
	cache          store.CitationCacheStore
	strategyTimeout time.Duration
	maxResults     int
	ttl            time.Duration
}

// New builds an Engine. strategyTimeout bounds the total wall time for
// one FindCitingPapers call; maxResults caps the deduplicated result
// set; ttl is the citation_discovery_cache entry lifetime (spec: 7 days).
func New(sources []Source, mentionSource MentionSource, cache store.CitationCacheStore, strategyTimeout time.Duration, maxResults int, ttl time.Duration) *Engine {
	if strategyTimeout <= 0 {
		strategyTimeout = 10 * time.Second
	}
	if maxResults <= 0 {
		maxResults = 100
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Engine{
		sources:         sources,
		mentionSource:   mentionSource,
		cache:           cache,
		strategyTimeout: strategyTimeout,
		maxResults:      maxResults,
		ttl:             ttl,
	}
}

// FindCitingPapers runs strategy A (citation-based, one fan-out per
// original publication, keyed by that publication's PMID and/or DOI)
// and strategy B (mention-based) concurrently, dedupes the combined
// result by canonical key, and caches it under (geoID, "all").
func (e *Engine) FindCitingPapers(ctx context.Context, geoID string, originalPubs []store.Publication) (*Result, error) {
	cacheKey := cacheKeyFor(geoID, "all")
	if e.cache != nil {
		if entry, err := e.cache.GetCitationCache(ctx, cacheKey); err == nil && entry != nil {
			return e.hydrateFromCache(ctx, entry)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, e.strategyTimeout)
	defer cancel()

	type sourceResult struct {
		status SourceStatus
		pubs   []store.Publication
	}
	results := make([]sourceResult, 0, len(e.sources)*len(originalPubs)+1)

	g, gctx := errgroup.WithContext(ctx)
	resultsCh := make(chan sourceResult, len(e.sources)*len(originalPubs)+1)

	for _, src := range e.sources {
		src := src
		for _, pub := range originalPubs {
			pmid, doi := pub.PMID, pub.DOI
			g.Go(func() error {
				pubs, err := src.FindCiting(gctx, pmid, doi, e.maxResults)
				resultsCh <- sourceResult{
					status: SourceStatus{Name: src.Name(), Succeeded: err == nil, Count: len(pubs), Err: err},
					pubs:   pubs,
				}
				return nil
			})
		}
	}

	if e.mentionSource != nil {
		g.Go(func() error {
			pubs, err := e.mentionSource.SearchMentions(gctx, geoID, e.maxResults)
			resultsCh <- sourceResult{
				status: SourceStatus{Name: "pubmed-mention", Succeeded: err == nil, Count: len(pubs), Err: err},
				pubs:   pubs,
			}
			return nil
		})
	}

	g.Wait()
	close(resultsCh)
	for r := range resultsCh {
		results = append(results, sourceResult{status: r.status, pubs: r.pubs})
	}

	statuses := make([]SourceStatus, 0, len(results))
	allPubs := make([]taggedPublication, 0)
	for _, r := range results {
		statuses = append(statuses, r.status)
		for _, p := range r.pubs {
			allPubs = append(allPubs, taggedPublication{pub: p, source: r.status.Name})
		}
	}

	deduped := dedupe(allPubs)
	if len(deduped) > e.maxResults {
		deduped = deduped[:e.maxResults]
	}

	if e.cache != nil {
		keys := make([]string, 0, len(deduped))
		for _, p := range deduped {
			if k, err := identifier.CanonicalKey(toIdentifierPub(p)); err == nil {
				keys = append(keys, k.String())
			}
		}
		_ = e.cache.PutCitationCache(ctx, store.CitationCacheEntry{
			CacheKey:   cacheKey,
			GEOID:      geoID,
			Strategy:   "all",
			ResultKeys: keys,
			CreatedAt:  time.Now(),
			ExpiresAt:  time.Now().Add(e.ttl),
		})
	}

	return &Result{Citing: deduped, SourcesUsed: statuses}, nil
}

// hydrateFromCache turns a cache hit into a Result without resolving
// it into full Publication records: Engine has no PublicationStore
// dependency (only the cache), so each returned Publication carries
// only its IdentifierKey, and callers that need the full records look
// those keys up themselves.
func (e *Engine) hydrateFromCache(ctx context.Context, entry *store.CitationCacheEntry) (*Result, error) {
	_ = ctx
	pubs := make([]store.Publication, 0, len(entry.ResultKeys))
	for _, k := range entry.ResultKeys {
		pubs = append(pubs, store.Publication{IdentifierKey: k})
	}
	return &Result{
		Citing:      pubs,
		SourcesUsed: []SourceStatus{{Name: "cache", Succeeded: true, Count: len(pubs)}},
	}, nil
}

type taggedPublication struct {
	pub    store.Publication
	source string
}

func toIdentifierPub(p store.Publication) identifier.Publication {
	return identifier.Publication{PMID: p.PMID, DOI: p.DOI, PMCID: p.PMCID, ArXiv: p.ArXivID, Title: p.Title}
}

// dedupe removes duplicate publications by canonical key, keeping the
// copy from the highest-priority source (sourcePriority), then the
// earliest-seen copy among same-priority sources.
func dedupe(tagged []taggedPublication) []store.Publication {
	priorityOf := func(name string) int {
		for i, p := range sourcePriority {
			if p == name {
				return i
			}
		}
		return len(sourcePriority)
	}

	type candidate struct {
		pub      store.Publication
		priority int
		order    int
	}
	best := make(map[string]candidate)
	keyOrder := make([]string, 0, len(tagged))

	for i, t := range tagged {
		key, err := identifier.CanonicalKey(toIdentifierPub(t.pub))
		if err != nil {
			continue
		}
		ks := key.String()
		t.pub.IdentifierKey = ks
		prio := priorityOf(t.source)
		existing, ok := best[ks]
		if !ok {
			best[ks] = candidate{pub: t.pub, priority: prio, order: i}
			keyOrder = append(keyOrder, ks)
			continue
		}
		if prio < existing.priority {
			best[ks] = candidate{pub: t.pub, priority: prio, order: existing.order}
		}
	}

	sort.SliceStable(keyOrder, func(i, j int) bool {
		return best[keyOrder[i]].order < best[keyOrder[j]].order
	})

	out := make([]store.Publication, 0, len(keyOrder))
	for _, k := range keyOrder {
		out = append(out, best[k].pub)
	}
	return out
}

func cacheKeyFor(geoID, strategy string) string {
	return geoID + ":" + strategy
}
