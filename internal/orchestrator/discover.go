package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/omicsoracle/omicsoracle/internal/identifier"
	"github.com/omicsoracle/omicsoracle/internal/store"
	"github.com/omicsoracle/omicsoracle/internal/waterfall"
)

// AutoDiscover runs the cache-miss pipeline: fetch GEO metadata, find
// citing papers, persist everything to storage, collect and download
// full text per publication, extract, then assemble and cache the
// aggregate. It is idempotent — every write is an upsert
// keyed by identifier_key or geo_id, so re-running it for the same
// geoID updates rows rather than duplicating them.
func (o *Orchestrator) AutoDiscover(ctx context.Context, geoID string) (*store.GEOAggregate, error) {
	if o.GEO == nil || o.Store == nil {
		return nil, nil
	}

	dataset, err := o.GEO.GetDataset(ctx, geoID)
	if err != nil {
		return nil, err
	}
	if dataset == nil {
		return nil, nil
	}
	if err := o.Store.UpsertGEODataset(ctx, *dataset); err != nil {
		return nil, err
	}

	originalPubs, err := o.fetchOriginalPublications(ctx, dataset.OriginalPMIDs)
	if err != nil {
		return nil, err
	}

	var citing []store.Publication
	if o.Citation != nil {
		citeResult, err := o.Citation.FindCitingPapers(ctx, geoID, originalPubs)
		if err == nil && citeResult != nil {
			citing = citeResult.Citing
		}
	}

	if err := o.persistPublicationLinks(ctx, geoID, originalPubs, store.RelationshipOriginal, "direct"); err != nil {
		return nil, err
	}
	if err := o.persistPublicationLinks(ctx, geoID, citing, store.RelationshipCiting, "citation-discovery"); err != nil {
		return nil, err
	}

	o.collectAndDownloadAll(ctx, geoID, originalPubs, citing)

	if o.Store == nil {
		return nil, nil
	}
	aggregate, err := o.Store.GetCompleteGEOData(ctx, geoID)
	if err != nil {
		return nil, err
	}
	if o.Cache != nil && aggregate != nil {
		_ = o.Cache.Update(ctx, geoID, aggregate)
	}
	return aggregate, nil
}

func (o *Orchestrator) fetchOriginalPublications(ctx context.Context, pmids []string) ([]store.Publication, error) {
	if o.NCBI == nil || len(pmids) == 0 {
		return nil, nil
	}
	return o.NCBI.FetchPubMedArticles(ctx, pmids)
}

func (o *Orchestrator) persistPublicationLinks(ctx context.Context, geoID string, pubs []store.Publication, relationship store.Relationship, strategy string) error {
	for _, pub := range pubs {
		key, err := identifier.KeyString(identifier.Publication{
			PMID: pub.PMID, DOI: pub.DOI, PMCID: pub.PMCID, ArXiv: pub.ArXivID, Title: pub.Title,
		})
		if err != nil {
			continue
		}
		pub.IdentifierKey = key
		if err := o.Store.Upsert(ctx, pub); err != nil {
			return err
		}
		if err := o.Store.UpsertLink(ctx, store.GEOPublicationLink{
			GEOID:         geoID,
			IdentifierKey: key,
			Relationship:  relationship,
			Strategy:      strategy,
		}); err != nil {
			return err
		}
	}
	return nil
}

// collectAndDownloadAll runs collectAndDownload once per relationship
// group (original, then citing) so every publication's download lands
// under the output directory matching how it relates to the dataset,
// rather than being collapsed into a single relationship.
func (o *Orchestrator) collectAndDownloadAll(ctx context.Context, geoID string, originalPubs, citingPubs []store.Publication) {
	o.collectAndDownload(ctx, geoID, originalPubs, store.RelationshipOriginal)
	o.collectAndDownload(ctx, geoID, citingPubs, store.RelationshipCiting)
}

// collectAndDownload runs collect_urls + download_with_fallback (+
// extraction on success) for every publication, one goroutine per
// publication. The number of publications downloading at once is not
// bounded here, and Downloader applies no limit of its own.
// Per-publication failures are swallowed —
// auto-discovery still succeeds with an empty download result for
// that paper.
func (o *Orchestrator) collectAndDownload(ctx context.Context, geoID string, pubs []store.Publication, relationship store.Relationship) {
	if o.Collector == nil || o.Download == nil {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, pub := range pubs {
		pub := pub
		g.Go(func() error {
			o.collectAndDownloadOne(gctx, geoID, pub, relationship)
			return nil
		})
	}
	_ = g.Wait()
}

func (o *Orchestrator) collectAndDownloadOne(ctx context.Context, geoID string, pub store.Publication, relationship store.Relationship) {
	candidates, err := o.Collector.CollectURLs(ctx, pub)
	if err != nil || len(candidates) == 0 {
		return
	}
	if o.Store != nil {
		_ = o.Store.UpsertURLCandidates(ctx, candidates)
	}
	sorted := waterfall.Sort(candidates)

	result, err := o.Download.DownloadWithFallback(ctx, pub, sorted, geoID, string(relationship))
	if err != nil || result == nil || !result.Success || result.Artifact == nil {
		return
	}

	if o.Extractor == nil {
		return
	}
	content, err := o.Extractor.Extract(ctx, result.Artifact.FilePath)
	if err != nil {
		return
	}
	content.IdentifierKey = pub.IdentifierKey
	if o.Store != nil {
		_ = o.Store.UpsertExtractedContent(ctx, content)
	}
}
