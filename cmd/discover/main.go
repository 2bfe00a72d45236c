// Command discover runs the auto-discovery pipeline for one GEO
// accession or free-text query against a fully wired core: every
// source client, citation discovery, URL collection/download, storage,
// and the two-tier cache.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/omicsoracle/omicsoracle/internal/cache"
	"github.com/omicsoracle/omicsoracle/internal/citation"
	"github.com/omicsoracle/omicsoracle/internal/config"
	"github.com/omicsoracle/omicsoracle/internal/download"
	"github.com/omicsoracle/omicsoracle/internal/orchestrator"
	"github.com/omicsoracle/omicsoracle/internal/store/postgres"
	"github.com/omicsoracle/omicsoracle/internal/waterfall"
	"github.com/omicsoracle/omicsoracle/pkg/arxiv"
	"github.com/omicsoracle/omicsoracle/pkg/biorxiv"
	"github.com/omicsoracle/omicsoracle/pkg/core"
	"github.com/omicsoracle/omicsoracle/pkg/crossref"
	"github.com/omicsoracle/omicsoracle/pkg/europepmc"
	"github.com/omicsoracle/omicsoracle/pkg/geo"
	"github.com/omicsoracle/omicsoracle/pkg/ncbi"
	"github.com/omicsoracle/omicsoracle/pkg/openalex"
	"github.com/omicsoracle/omicsoracle/pkg/proxy"
	"github.com/omicsoracle/omicsoracle/pkg/semanticscholar"
	"github.com/omicsoracle/omicsoracle/pkg/unpaywall"
)

func main() {
	query := flag.String("query", "", "GEO accession, PMID, or free-text query")
	flag.Parse()
	if *query == "" {
		fmt.Println("usage: discover --query GSE12345")
		os.Exit(1)
	}

	cfg := config.Load()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("failed to connect to datastore: %v", err)
	}
	defer db.Close()

	o := wireOrchestrator(cfg, db)

	result, err := o.Search(ctx, *query, 10, 20)
	if err != nil {
		log.Fatalf("search failed: %v", err)
	}

	log.Printf("query=%q kind=%s datasets=%d errors=%d", result.Query, result.Kind, len(result.Datasets), len(result.Errors))
	for _, status := range result.Errors {
		log.Printf("  source error: %s/%s: %s", status.Source, status.Category, status.Message)
	}
	for _, aggregate := range result.Datasets {
		log.Printf("  %s: %d original, %d citing, %d downloaded", aggregate.GEO.GEOID,
			aggregate.Statistics.OriginalPapers, aggregate.Statistics.CitingPapers, aggregate.Statistics.SuccessfulDownloads)
	}
}

// wireOrchestrator builds every client, rate limiter, and downstream
// component from cfg and returns the fully assembled Orchestrator.
// Each NewClient constructs its own per-source rate limiter; building
// each client once here shares that limiter across every caller of
// that source.
func wireOrchestrator(cfg *config.Config, db *postgres.Store) *orchestrator.Orchestrator {
	src := cfg.Clients.PerSource

	ncbiClient := ncbi.NewClient(src["ncbi"])
	openAlexClient := openalex.NewClient(src["openalex"])
	semanticScholarClient := semanticscholar.NewClient(src["semanticscholar"])
	europePMCClient := europepmc.NewClient(src["europepmc"])
	unpaywallClient := unpaywall.NewClient(src["unpaywall"])
	coreClient := core.NewClient(src["core"])
	bioRxivClient := biorxiv.NewClient(src["biorxiv"])
	arxivClient := arxiv.NewClient(src["arxiv"])
	crossrefClient := crossref.NewClient(src["crossref"])
	proxyRewriter := proxy.NewRewriter(src["proxy"])

	geoFetcher := geo.NewFetcher(ncbiClient)

	citationEngine := citation.New(
		[]citation.Source{
			&citation.OpenAlexSource{Client: openAlexClient},
			&citation.SemanticScholarSource{Client: semanticScholarClient},
			&citation.EuropePMCSource{Client: europePMCClient},
			&citation.NCBIElinkSource{Client: ncbiClient},
		},
		&citation.PubMedMentionSource{Client: ncbiClient},
		db,
		time.Duration(cfg.CitationDiscovery.StrategyTimeoutSec)*time.Second,
		cfg.CitationDiscovery.MaxResults,
		time.Duration(cfg.CitationDiscovery.CacheTTLSec)*time.Second,
	)

	collector := &waterfall.Collector{
		NCBI:      ncbiClient,
		Unpaywall: unpaywallClient,
		OpenAlex:  openAlexClient,
		Core:      coreClient,
		BioRxiv:   bioRxivClient,
		ArXiv:     arxivClient,
		Crossref:  crossrefClient,
		Proxy:     proxyRewriter,
	}

	downloader := download.New(
		cfg.StoreRoot,
		cfg.Download.PerURLRetries,
		time.Duration(cfg.Download.RetryDelayMS)*time.Millisecond,
		db,
		db,
	)

	hotTier := wireHotTier(cfg)
	aggregateCache := cache.New(hotTier, db, cfg.HotCache.TTL)

	return orchestrator.New(orchestrator.Orchestrator{
		GEO:       geoFetcher,
		NCBI:      ncbiClient,
		OpenAlex:  openAlexClient,
		Citation:  citationEngine,
		Collector: collector,
		Download:  downloader,
		Store:     db,
		Cache:     aggregateCache,
	})
}

// wireHotTier builds the configured hot-cache backend, falling back
// to an in-memory bounded LRU when Redis is configured but
// unreachable at startup.
func wireHotTier(cfg *config.Config) cache.HotTier {
	memory := cache.NewMemoryTier(1000, cfg.HotCache.TTL)
	if cfg.HotCache.Backend != "redis" {
		return memory
	}

	redisTier, err := cache.NewRedisTier(cfg.HotCache.URL, cfg.HotCache.TTL)
	if err != nil {
		log.Printf("WARNING: redis hot cache misconfigured (%v) — using in-memory fallback", err)
		return memory
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := redisTier.Ping(pingCtx); err != nil {
		log.Printf("WARNING: redis hot cache unreachable (%v) — using in-memory fallback", err)
	}
	return cache.NewFallbackTier(redisTier, memory)
}
