package waterfall

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/omicsoracle/omicsoracle/internal/store"
	"github.com/omicsoracle/omicsoracle/pkg/arxiv"
	"github.com/omicsoracle/omicsoracle/pkg/biorxiv"
	"github.com/omicsoracle/omicsoracle/pkg/core"
	"github.com/omicsoracle/omicsoracle/pkg/crossref"
	"github.com/omicsoracle/omicsoracle/pkg/ncbi"
	"github.com/omicsoracle/omicsoracle/pkg/openalex"
	"github.com/omicsoracle/omicsoracle/pkg/proxy"
	"github.com/omicsoracle/omicsoracle/pkg/unpaywall"
)

// Default source priorities (lower = higher priority, before the
// url-type adjustment applied at classification time).
const (
	PriorityProxy      = 1
	PriorityPMC        = 2
	PriorityUnpaywall  = 3
	PriorityPreprint   = 4 // bioRxiv / medRxiv / arXiv
	PriorityOpenAlex   = 5
	PriorityCore       = 6
	PriorityCrossref   = 7
)

// Collector fans out across every configured source applicable to a
// publication's identifiers and returns the combined, as-yet-unsorted
// candidate set. Any source field left nil is simply skipped.
type Collector struct {
	NCBI      *ncbi.Client
	Unpaywall *unpaywall.Client
	OpenAlex  *openalex.Client
	Core      *core.Client
	BioRxiv   *biorxiv.Client
	ArXiv     *arxiv.Client
	Crossref  *crossref.Client
	Proxy     *proxy.Rewriter
}

// CollectURLs runs one goroutine per applicable source and merges
// their results. Per-source errors are swallowed: a source that errors
// simply contributes no candidates.
func (c *Collector) CollectURLs(ctx context.Context, pub store.Publication) ([]store.URLCandidate, error) {
	g, gctx := errgroup.WithContext(ctx)
	collected := make(chan store.URLCandidate, 32)

	emit := func(cands []store.URLCandidate) {
		for _, cand := range cands {
			collected <- cand
		}
	}

	if c.NCBI != nil && pub.PMID != "" {
		g.Go(func() error {
			emit(c.pmcCandidates(gctx, pub))
			return nil
		})
	}
	if c.Unpaywall != nil && pub.DOI != "" {
		g.Go(func() error {
			locs, err := c.Unpaywall.Locations(gctx, pub.DOI)
			if err != nil {
				return nil
			}
			cands := make([]store.URLCandidate, 0, len(locs))
			for _, l := range locs {
				u := l.URL
				if u == "" {
					u = l.LandingURL
				}
				if u == "" {
					continue
				}
				cands = append(cands, store.URLCandidate{
					IdentifierKey: pub.IdentifierKey,
					URL:           u,
					Source:        "unpaywall",
					Priority:      PriorityUnpaywall,
					Confidence:    0.9,
				})
			}
			emit(cands)
			return nil
		})
	}
	if c.OpenAlex != nil && pub.DOI != "" {
		g.Go(func() error {
			pubs, err := c.OpenAlex.Search(gctx, fmt.Sprintf("doi:%s", pub.DOI), 1)
			if err != nil || len(pubs) == 0 {
				return nil
			}
			if u, ok := pubs[0].Metadata["pdf_url"].(string); ok && u != "" {
				emit([]store.URLCandidate{{
					IdentifierKey: pub.IdentifierKey,
					URL:           u,
					Source:        "openalex",
					Priority:      PriorityOpenAlex,
					Confidence:    0.8,
				}})
			}
			return nil
		})
	}
	if c.Core != nil && pub.DOI != "" {
		g.Go(func() error {
			u, err := c.Core.FindPDFURL(gctx, pub.DOI)
			if err != nil || u == "" {
				return nil
			}
			emit([]store.URLCandidate{{
				IdentifierKey: pub.IdentifierKey,
				URL:           u,
				Source:        "core",
				Priority:      PriorityCore,
				Confidence:    0.7,
			}})
			return nil
		})
	}
	if c.BioRxiv != nil && pub.DOI != "" {
		g.Go(func() error {
			preprint, err := c.BioRxiv.GetByDOI(gctx, pub.DOI)
			if err != nil || preprint == nil {
				return nil
			}
			if u, ok := preprint.Metadata["pdf_url"].(string); ok && u != "" {
				emit([]store.URLCandidate{{
					IdentifierKey: pub.IdentifierKey,
					URL:           u,
					Source:        "biorxiv",
					Priority:      PriorityPreprint,
					Confidence:    0.85,
				}})
			}
			return nil
		})
	}
	if c.ArXiv != nil && pub.ArXivID != "" {
		g.Go(func() error {
			emit([]store.URLCandidate{{
				IdentifierKey: pub.IdentifierKey,
				URL:           fmt.Sprintf("https://arxiv.org/pdf/%s", pub.ArXivID),
				Source:        "arxiv",
				Priority:      PriorityPreprint,
				Confidence:    0.95,
			}})
			return nil
		})
	}
	if c.Crossref != nil && pub.DOI != "" {
		g.Go(func() error {
			record, err := c.Crossref.GetByDOI(gctx, pub.DOI)
			if err != nil || record == nil {
				return nil
			}
			if u, ok := record.Metadata["landing_url"].(string); ok && u != "" {
				emit([]store.URLCandidate{{
					IdentifierKey: pub.IdentifierKey,
					URL:           u,
					Source:        "crossref",
					Priority:      PriorityCrossref,
					Confidence:    0.5,
				}})
			}
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		close(collected)
	}()

	candidates := make([]store.URLCandidate, 0, 16)
	for cand := range collected {
		cand.DiscoveredAt = time.Now()
		cand.URLType = Classify(cand.URL)
		if c.Proxy != nil && c.Proxy.Enabled() && cand.RequiresAuth {
			if rewritten, err := c.Proxy.RewriteURL(cand.URL); err == nil {
				cand.URL = rewritten
				cand.Source = "proxy:" + cand.Source
				cand.Priority = PriorityProxy
			}
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

// pmcCandidates builds three PMC full-text URL candidates (direct PDF,
// EuropePMC's PDF render, and the PMC article page) once a PMCID is
// known for the publication. The PMC OA web service is not queried.
func (c *Collector) pmcCandidates(ctx context.Context, pub store.Publication) []store.URLCandidate {
	pmcid := pub.PMCID
	if pmcid == "" {
		return nil
	}
	return []store.URLCandidate{
		{
			IdentifierKey: pub.IdentifierKey,
			URL:           fmt.Sprintf("https://www.ncbi.nlm.nih.gov/pmc/articles/%s/pdf/", pmcid),
			Source:        "pmc",
			Priority:      PriorityPMC,
			Confidence:    0.95,
		},
		{
			IdentifierKey: pub.IdentifierKey,
			URL:           fmt.Sprintf("https://europepmc.org/articles/%s?pdf=render", pmcid),
			Source:        "pmc",
			Priority:      PriorityPMC,
			Confidence:    0.9,
		},
		{
			IdentifierKey: pub.IdentifierKey,
			URL:           fmt.Sprintf("https://www.ncbi.nlm.nih.gov/pmc/articles/%s/", pmcid),
			Source:        "pmc",
			Priority:      PriorityPMC,
			Confidence:    0.6,
		},
	}
}
