package citation

import (
	"context"

	"github.com/omicsoracle/omicsoracle/internal/store"
	"github.com/omicsoracle/omicsoracle/pkg/europepmc"
	"github.com/omicsoracle/omicsoracle/pkg/ncbi"
	"github.com/omicsoracle/omicsoracle/pkg/openalex"
	"github.com/omicsoracle/omicsoracle/pkg/semanticscholar"
)

// OpenAlexSource adapts pkg/openalex's DOI-keyed FindCiting to Source.
type OpenAlexSource struct{ Client *openalex.Client }

func (s *OpenAlexSource) Name() string { return "openalex" }

func (s *OpenAlexSource) FindCiting(ctx context.Context, pmid, doi string, limit int) ([]store.Publication, error) {
	if doi == "" {
		return nil, nil
	}
	return s.Client.FindCiting(ctx, doi, limit)
}

// SemanticScholarSource adapts pkg/semanticscholar's PMID/DOI-keyed FindCiting.
type SemanticScholarSource struct{ Client *semanticscholar.Client }

func (s *SemanticScholarSource) Name() string { return "semanticscholar" }

func (s *SemanticScholarSource) FindCiting(ctx context.Context, pmid, doi string, limit int) ([]store.Publication, error) {
	if pmid == "" && doi == "" {
		return nil, nil
	}
	return s.Client.FindCiting(ctx, pmid, doi, limit)
}

// EuropePMCSource adapts pkg/europepmc's PMID-keyed FindCiting.
type EuropePMCSource struct{ Client *europepmc.Client }

func (s *EuropePMCSource) Name() string { return "europepmc" }

func (s *EuropePMCSource) FindCiting(ctx context.Context, pmid, doi string, limit int) ([]store.Publication, error) {
	if pmid == "" {
		return nil, nil
	}
	return s.Client.FindCiting(ctx, pmid, limit)
}

// NCBIElinkSource adapts pkg/ncbi's elink pubmed_pubmed_citedin link,
// which returns citing PMIDs that must then be fetched as articles.
type NCBIElinkSource struct{ Client *ncbi.Client }

func (s *NCBIElinkSource) Name() string { return "ncbi-elink" }

func (s *NCBIElinkSource) FindCiting(ctx context.Context, pmid, doi string, limit int) ([]store.Publication, error) {
	if pmid == "" {
		return nil, nil
	}
	citingIDs, err := s.Client.ELink(ctx, "pubmed", "pubmed", pmid, "pubmed_pubmed_citedin")
	if err != nil {
		return nil, err
	}
	if len(citingIDs) == 0 {
		return nil, nil
	}
	if limit > 0 && len(citingIDs) > limit {
		citingIDs = citingIDs[:limit]
	}
	return s.Client.FetchPubMedArticles(ctx, citingIDs)
}

// PubMedMentionSource implements strategy B: full-text search for a
// GEO accession string, returning any paper that mentions the dataset.
type PubMedMentionSource struct{ Client *ncbi.Client }

func (s *PubMedMentionSource) SearchMentions(ctx context.Context, geoID string, limit int) ([]store.Publication, error) {
	pmids, err := s.Client.SearchPubMed(ctx, geoID, limit)
	if err != nil {
		return nil, err
	}
	if len(pmids) == 0 {
		return nil, nil
	}
	return s.Client.FetchPubMedArticles(ctx, pmids)
}
