package orchestrator

import (
	"context"

	"github.com/omicsoracle/omicsoracle/internal/store"
)

// stubStore is a minimal in-memory store.Store used by orchestrator's
// own unit tests, independent of internal/store/postgres.
type stubStore struct {
	publications map[string]store.Publication
	links        []store.GEOPublicationLink
	urlCandidates map[string][]store.URLCandidate
}

func newStubStore() *stubStore {
	return &stubStore{
		publications:  make(map[string]store.Publication),
		urlCandidates: make(map[string][]store.URLCandidate),
	}
}

func (s *stubStore) Upsert(_ context.Context, pub store.Publication) error {
	s.publications[pub.IdentifierKey] = pub
	return nil
}
func (s *stubStore) GetByIdentifierKey(_ context.Context, key string) (*store.Publication, error) {
	if pub, ok := s.publications[key]; ok {
		return &pub, nil
	}
	return nil, nil
}
func (s *stubStore) GetByIdentifierKeys(_ context.Context, keys []string) ([]store.Publication, error) {
	var out []store.Publication
	for _, k := range keys {
		if pub, ok := s.publications[k]; ok {
			out = append(out, pub)
		}
	}
	return out, nil
}

func (s *stubStore) UpsertGEODataset(context.Context, store.GEODataset) error        { return nil }
func (s *stubStore) GetGEODatasetByID(context.Context, string) (*store.GEODataset, error) {
	return nil, nil
}
func (s *stubStore) SearchGEODatasets(context.Context, string, int) ([]store.GEODataset, error) {
	return nil, nil
}

func (s *stubStore) UpsertLink(_ context.Context, link store.GEOPublicationLink) error {
	s.links = append(s.links, link)
	return nil
}
func (s *stubStore) ListLinksByGEOID(_ context.Context, geoID string) ([]store.GEOPublicationLink, error) {
	var out []store.GEOPublicationLink
	for _, l := range s.links {
		if l.GEOID == geoID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *stubStore) UpsertURLCandidates(_ context.Context, candidates []store.URLCandidate) error {
	for _, c := range candidates {
		s.urlCandidates[c.IdentifierKey] = append(s.urlCandidates[c.IdentifierKey], c)
	}
	return nil
}
func (s *stubStore) ListURLCandidates(_ context.Context, key string) ([]store.URLCandidate, error) {
	return s.urlCandidates[key], nil
}

func (s *stubStore) CreateOrGetByHash(_ context.Context, artifact store.PDFArtifact) (*store.PDFArtifact, bool, error) {
	return &artifact, true, nil
}
func (s *stubStore) GetPDFArtifact(context.Context, string) (*store.PDFArtifact, error) { return nil, nil }
func (s *stubStore) TouchAccess(context.Context, string) error                          { return nil }

func (s *stubStore) UpsertExtractedContent(context.Context, store.ExtractedContent) error { return nil }
func (s *stubStore) GetExtractedContent(context.Context, string) (*store.ExtractedContent, error) {
	return nil, nil
}

func (s *stubStore) AppendDownloadAttempt(context.Context, store.DownloadAttempt) error { return nil }
func (s *stubStore) ListDownloadAttempts(context.Context, string) ([]store.DownloadAttempt, error) {
	return nil, nil
}

func (s *stubStore) GetCitationCache(context.Context, string) (*store.CitationCacheEntry, error) {
	return nil, nil
}
func (s *stubStore) PutCitationCache(context.Context, store.CitationCacheEntry) error { return nil }
func (s *stubStore) IncrementCitationCacheHitCount(context.Context, string) error     { return nil }

func (s *stubStore) UpsertAIAnalysis(context.Context, store.AIAnalysis) error { return nil }
func (s *stubStore) GetAIAnalysis(context.Context, string, string, string) (*store.AIAnalysis, error) {
	return nil, nil
}

func (s *stubStore) GetCompleteGEOData(context.Context, string) (*store.GEOAggregate, error) {
	return nil, nil
}

func (s *stubStore) Close() {}
