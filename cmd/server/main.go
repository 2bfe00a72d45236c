// Command server runs the thin HTTP search API in front of the
// orchestrator: a health check and GET /v1/search. It owns no
// business logic itself — see internal/orchestrator and
// internal/delivery/http.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/omicsoracle/omicsoracle/internal/cache"
	"github.com/omicsoracle/omicsoracle/internal/citation"
	"github.com/omicsoracle/omicsoracle/internal/config"
	delivery "github.com/omicsoracle/omicsoracle/internal/delivery/http"
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
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("OmicsOracle server starting...")

	cfg := config.Load()
	log.Printf("Server configured on port %s", cfg.Server.Port)

	var db *postgres.Store
	for attempt := 1; attempt <= 5; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		var err error
		db, err = postgres.New(ctx, cfg.Database.URL)
		cancel()
		if err == nil {
			log.Println("Connected to PostgreSQL")
			break
		}
		log.Printf("Attempt %d: failed to connect to database: %v", attempt, err)
		if attempt == 5 {
			log.Fatalf("could not connect to database after 5 attempts")
		}
		time.Sleep(time.Duration(attempt) * 2 * time.Second)
	}
	defer db.Close()

	o := wireOrchestrator(cfg, db)
	handler := delivery.NewHandler(o)
	router := delivery.NewRouter(handler, cfg.CORS.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Server listening on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	fmt.Println()
	log.Println("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}
	log.Println("server stopped gracefully")
}

// wireOrchestrator builds every client, rate limiter, and downstream
// component from cfg. Mirrors cmd/discover's wiring — each entrypoint
// owns its own process lifecycle and assembles the core independently.
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

	memory := cache.NewMemoryTier(1000, cfg.HotCache.TTL)
	var hotTier cache.HotTier = memory
	var rawTier cache.RawTier = cache.NewMemoryRawTier(1000)
	if cfg.HotCache.Backend == "redis" {
		if redisTier, err := cache.NewRedisTier(cfg.HotCache.URL, cfg.HotCache.TTL); err != nil {
			log.Printf("WARNING: redis hot cache misconfigured (%v) — using in-memory fallback", err)
		} else {
			hotTier = cache.NewFallbackTier(redisTier, memory)
			rawTier = redisTier
		}
	}
	aggregateCache := cache.New(hotTier, db, cfg.HotCache.TTL)
	searchCache := cache.NewSearchCache(rawTier, cfg.HotCache.SearchTTL)

	return orchestrator.New(orchestrator.Orchestrator{
		GEO:         geoFetcher,
		NCBI:        ncbiClient,
		OpenAlex:    openAlexClient,
		Citation:    citationEngine,
		Collector:   collector,
		Download:    downloader,
		Store:       db,
		Cache:       aggregateCache,
		SearchCache: searchCache,
	})
}
