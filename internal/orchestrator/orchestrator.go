// Package orchestrator implements the top-level search entry point and
// the cache-miss auto-discovery pipeline: the one place that wires every
// other component (source clients, citation discovery, URL collection/
// download/extraction, storage, and the two-tier cache) together.
package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/omicsoracle/omicsoracle/internal/cache"
	"github.com/omicsoracle/omicsoracle/internal/citation"
	"github.com/omicsoracle/omicsoracle/internal/download"
	"github.com/omicsoracle/omicsoracle/internal/extractor"
	"github.com/omicsoracle/omicsoracle/internal/identifier"
	"github.com/omicsoracle/omicsoracle/internal/store"
	"github.com/omicsoracle/omicsoracle/internal/waterfall"
	"github.com/omicsoracle/omicsoracle/pkg/geo"
	"github.com/omicsoracle/omicsoracle/pkg/ncbi"
	"github.com/omicsoracle/omicsoracle/pkg/openalex"
)

// SourceStatus records one branch's outcome, used in SearchResult's
// errors field and in auto-discovery logging — a per-source status
// report rather than raising on partial failure.
type SourceStatus struct {
	Source   string
	Category string
	Message  string
}

// SearchResult is the top-level search's return value.
type SearchResult struct {
	Query     string
	Kind      QueryKind
	Datasets  []store.GEOAggregate
	Errors    []SourceStatus
	FromCache bool
}

// Orchestrator wires together every component Search and auto-discovery
// need. Every field is a dependency; nil fields are treated as "this
// source is unavailable" rather than panicking.
type Orchestrator struct {
	GEO         *geo.Fetcher
	NCBI        *ncbi.Client
	OpenAlex    *openalex.Client
	Citation    *citation.Engine
	Collector   *waterfall.Collector
	Download    *download.Downloader
	Extractor   extractor.Extractor
	Store       store.Store
	Cache       *cache.Cache
	SearchCache *cache.SearchCache
	Expander    QueryExpander

	MaxConcurrentEnrich int
}

// New builds an Orchestrator. Expander defaults to IdentityExpander
// when nil.
func New(opts Orchestrator) *Orchestrator {
	o := opts
	if o.Expander == nil {
		o.Expander = IdentityExpander{}
	}
	if o.MaxConcurrentEnrich <= 0 {
		o.MaxConcurrentEnrich = 4
	}
	return &o
}

// Search classifies the query, expands it, fans out three source
// branches in parallel, ranks and enriches the merged results, and
// populates the cache. A hit in SearchCache short-circuits all of
// this and returns the previously merged result directly, with no
// external HTTP calls made.
func (o *Orchestrator) Search(ctx context.Context, query string, maxGEOResults, maxPublicationResults int) (*SearchResult, error) {
	cacheKey := searchCacheKey(query, maxGEOResults, maxPublicationResults)
	if o.SearchCache != nil {
		if raw, ok := o.SearchCache.Get(ctx, cacheKey); ok {
			var cached SearchResult
			if err := json.Unmarshal(raw, &cached); err == nil {
				cached.FromCache = true
				return &cached, nil
			}
		}
	}

	kind := ClassifyQuery(query)
	terms := o.Expander.Expand(query)

	result := &SearchResult{Query: query, Kind: kind}

	var geoDatasets []store.GEODataset
	branchErrs := make([]*SourceStatus, 3)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ds, status := o.searchGEOBranch(gctx, query, kind, maxGEOResults)
		geoDatasets = ds
		branchErrs[0] = status
		return nil
	})

	var pubmedHits, openAlexHits []store.Publication
	g.Go(func() error {
		hits, status := o.searchPubMedBranch(gctx, query, kind, maxPublicationResults)
		pubmedHits = hits
		branchErrs[1] = status
		return nil
	})
	g.Go(func() error {
		hits, status := o.searchOpenAlexBranch(gctx, query, maxPublicationResults)
		openAlexHits = hits
		branchErrs[2] = status
		return nil
	})

	_ = g.Wait()

	var errs []SourceStatus
	for _, status := range branchErrs {
		if status != nil {
			errs = append(errs, *status)
		}
	}

	geoDatasets = append(geoDatasets, geoIDsFromPublications(pubmedHits, openAlexHits)...)
	ranked := rankDatasets(geoDatasets, terms)
	if len(ranked) > maxGEOResults && maxGEOResults > 0 {
		ranked = ranked[:maxGEOResults]
	}

	aggregates, enrichErrs := o.enrichRanked(ctx, ranked)
	result.Datasets = aggregates
	result.Errors = append(errs, enrichErrs...)

	if o.SearchCache != nil {
		if raw, err := json.Marshal(result); err == nil {
			_ = o.SearchCache.Set(ctx, cacheKey, raw)
		}
	}
	return result, nil
}

// searchCacheKey hashes the query together with its result-limit
// parameters, so the same query text with different page sizes gets
// distinct cache entries.
func searchCacheKey(query string, maxGEOResults, maxPublicationResults int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d", query, maxGEOResults, maxPublicationResults)))
	return hex.EncodeToString(sum[:])
}

func (o *Orchestrator) searchGEOBranch(ctx context.Context, query string, kind QueryKind, limit int) ([]store.GEODataset, *SourceStatus) {
	if o.GEO == nil {
		return nil, nil
	}
	if kind != QueryGEOID {
		if o.Store == nil {
			return nil, nil
		}
		found, err := o.Store.SearchGEODatasets(ctx, query, limit)
		if err != nil {
			return nil, &SourceStatus{Source: "geo", Category: "error", Message: err.Error()}
		}
		return found, nil
	}
	dataset, err := o.GEO.GetDataset(ctx, query)
	if err != nil {
		return nil, &SourceStatus{Source: "geo", Category: "error", Message: err.Error()}
	}
	if dataset == nil {
		return nil, nil
	}
	return []store.GEODataset{*dataset}, nil
}

func (o *Orchestrator) searchPubMedBranch(ctx context.Context, query string, kind QueryKind, limit int) ([]store.Publication, *SourceStatus) {
	if o.NCBI == nil {
		return nil, nil
	}
	var pmids []string
	var err error
	if kind == QueryPMID {
		pmids = []string{query}
	} else {
		pmids, err = o.NCBI.SearchPubMed(ctx, query, limit)
	}
	if err != nil {
		return nil, &SourceStatus{Source: "pubmed", Category: "error", Message: err.Error()}
	}
	if len(pmids) == 0 {
		return nil, nil
	}
	pubs, err := o.NCBI.FetchPubMedArticles(ctx, pmids)
	if err != nil {
		return nil, &SourceStatus{Source: "pubmed", Category: "error", Message: err.Error()}
	}
	return pubs, nil
}

func (o *Orchestrator) searchOpenAlexBranch(ctx context.Context, query string, limit int) ([]store.Publication, *SourceStatus) {
	if o.OpenAlex == nil {
		return nil, nil
	}
	pubs, err := o.OpenAlex.Search(ctx, query, limit)
	if err != nil {
		return nil, &SourceStatus{Source: "openalex", Category: "error", Message: err.Error()}
	}
	return pubs, nil
}

// geoIDsFromPublications finds GEO accessions any publication's
// metadata mentions, so a publication-side hit can still surface the
// dataset it studies. Only publications whose Metadata already carries
// a "geo_accession" string contribute; none of the core's clients sets
// that key.
func geoIDsFromPublications(batches ...[]store.Publication) []store.GEODataset {
	seen := make(map[string]struct{})
	var datasets []store.GEODataset
	for _, batch := range batches {
		for _, pub := range batch {
			acc, ok := pub.Metadata["geo_accession"].(string)
			if !ok || acc == "" {
				continue
			}
			if _, dup := seen[acc]; dup {
				continue
			}
			seen[acc] = struct{}{}
			datasets = append(datasets, store.GEODataset{GEOID: acc})
		}
	}
	return datasets
}

// enrichRanked fetches (or discovers) the complete aggregate for each
// ranked dataset in parallel, bounded by MaxConcurrentEnrich.
func (o *Orchestrator) enrichRanked(ctx context.Context, ranked []RankedDataset) ([]store.GEOAggregate, []SourceStatus) {
	aggregates := make([]store.GEOAggregate, len(ranked))
	statuses := make([]SourceStatus, len(ranked))
	hasErr := make([]bool, len(ranked))

	sem := make(chan struct{}, o.MaxConcurrentEnrich)
	var wg errgroup.Group

	for i, rd := range ranked {
		i, rd := i, rd
		wg.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			aggregate, err := o.getOrDiscover(ctx, rd.Dataset.GEOID)
			if err != nil {
				hasErr[i] = true
				statuses[i] = SourceStatus{Source: rd.Dataset.GEOID, Category: "error", Message: err.Error()}
				return nil
			}
			if aggregate != nil {
				aggregates[i] = *aggregate
			}
			return nil
		})
	}
	_ = wg.Wait()

	var result []store.GEOAggregate
	var errs []SourceStatus
	for i := range ranked {
		if hasErr[i] {
			errs = append(errs, statuses[i])
			continue
		}
		result = append(result, aggregates[i])
	}
	return result, errs
}

// getOrDiscover checks the cache (hot then warm tier) before falling
// back to auto-discovery.
func (o *Orchestrator) getOrDiscover(ctx context.Context, geoID string) (*store.GEOAggregate, error) {
	if o.Cache != nil {
		aggregate, err := o.Cache.Get(ctx, geoID)
		if err == nil && aggregate != nil && len(aggregate.Original) > 0 {
			return aggregate, nil
		}
	}
	return o.AutoDiscover(ctx, geoID)
}
