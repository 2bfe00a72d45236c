package citation

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omicsoracle/omicsoracle/internal/store"
)

type stubSource struct {
	name string
	pubs []store.Publication
	err  error

	mu       *sync.Mutex
	seenPMID []string
	seenDOI  []string
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) FindCiting(ctx context.Context, pmid, doi string, limit int) ([]store.Publication, error) {
	if s.mu != nil {
		s.mu.Lock()
		s.seenPMID = append(s.seenPMID, pmid)
		s.seenDOI = append(s.seenDOI, doi)
		s.mu.Unlock()
	}
	return s.pubs, s.err
}

type stubMentionSource struct {
	pubs []store.Publication
}

func (s *stubMentionSource) SearchMentions(ctx context.Context, geoID string, limit int) ([]store.Publication, error) {
	return s.pubs, nil
}

type noopCache struct {
	puts []store.CitationCacheEntry
}

func (c *noopCache) GetCitationCache(ctx context.Context, cacheKey string) (*store.CitationCacheEntry, error) {
	return nil, nil
}

func (c *noopCache) PutCitationCache(ctx context.Context, entry store.CitationCacheEntry) error {
	c.puts = append(c.puts, entry)
	return nil
}

func (c *noopCache) IncrementCitationCacheHitCount(ctx context.Context, cacheKey string) error {
	return nil
}

func TestFindCitingPapersDedupesAcrossSources(t *testing.T) {
	shared := store.Publication{PMID: "111", Title: "Shared paper"}
	openalex := &stubSource{name: "openalex", pubs: []store.Publication{shared, {PMID: "222", Title: "OpenAlex-only"}}}
	europepmc := &stubSource{name: "europepmc", pubs: []store.Publication{shared}}

	cache := &noopCache{}
	engine := New([]Source{openalex, europepmc}, nil, cache, 0, 0, 0)

	result, err := engine.FindCitingPapers(context.Background(), "GSE12345", []store.Publication{{PMID: "999"}})
	require.NoError(t, err)
	assert.Len(t, result.Citing, 2)
	assert.Len(t, cache.puts, 1)
	assert.Equal(t, "GSE12345", cache.puts[0].GEOID)
}

func TestFindCitingPapersPrefersHigherPrioritySource(t *testing.T) {
	lowPriority := store.Publication{DOI: "10.1/xyz", Title: "from europepmc"}
	highPriority := store.Publication{DOI: "10.1/xyz", Title: "from openalex"}

	openalex := &stubSource{name: "openalex", pubs: []store.Publication{highPriority}}
	europepmc := &stubSource{name: "europepmc", pubs: []store.Publication{lowPriority}}

	engine := New([]Source{europepmc, openalex}, nil, &noopCache{}, 0, 0, 0)

	result, err := engine.FindCitingPapers(context.Background(), "GSE1", []store.Publication{{PMID: "1"}})
	require.NoError(t, err)
	require.Len(t, result.Citing, 1)
	assert.Equal(t, "from openalex", result.Citing[0].Title)
}

func TestFindCitingPapersIncludesMentionBasedResults(t *testing.T) {
	mention := &stubMentionSource{pubs: []store.Publication{{PMID: "555", Title: "mentions GSE12345"}}}
	engine := New(nil, mention, &noopCache{}, 0, 0, 0)

	result, err := engine.FindCitingPapers(context.Background(), "GSE12345", nil)
	require.NoError(t, err)
	require.Len(t, result.Citing, 1)
	assert.Equal(t, "mentions GSE12345", result.Citing[0].Title)
}

func TestFindCitingPapersReturnsCachedResultWithoutCallingSources(t *testing.T) {
	cache := &noopCache{}
	calledSource := &stubSource{name: "openalex", mu: &sync.Mutex{}}
	engine := New([]Source{calledSource}, nil, cache, 0, 0, 0)
	ctx := context.Background()

	_, err := engine.FindCitingPapers(ctx, "GSE1", []store.Publication{{PMID: "1"}})
	require.NoError(t, err)
	callsBeforeCacheHit := len(calledSource.seenPMID)

	cachingCache := &cachedEntryStub{entry: &store.CitationCacheEntry{
		CacheKey:   cacheKeyFor("GSE1", "all"),
		ResultKeys: []string{"pmid:1"},
	}}
	engine2 := New([]Source{calledSource}, nil, cachingCache, 0, 0, 0)
	result, err := engine2.FindCitingPapers(ctx, "GSE1", []store.Publication{{PMID: "1"}})
	require.NoError(t, err)
	require.Len(t, result.Citing, 1)
	assert.Equal(t, "pmid:1", result.Citing[0].IdentifierKey)
	assert.Len(t, calledSource.seenPMID, callsBeforeCacheHit, "a cache hit must not call any source")
}

func TestFindCitingPapersPassesEachPublicationsPMIDAndDOI(t *testing.T) {
	src := &stubSource{name: "openalex", mu: &sync.Mutex{}}
	engine := New([]Source{src}, nil, &noopCache{}, 0, 0, 0)

	originals := []store.Publication{
		{PMID: "111", DOI: "10.1/aaa"},
		{PMID: "", DOI: "10.1/bbb"},
	}
	_, err := engine.FindCitingPapers(context.Background(), "GSE1", originals)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"111", ""}, src.seenPMID)
	assert.ElementsMatch(t, []string{"10.1/aaa", "10.1/bbb"}, src.seenDOI)
}

type cachedEntryStub struct {
	entry *store.CitationCacheEntry
}

func (c *cachedEntryStub) GetCitationCache(ctx context.Context, cacheKey string) (*store.CitationCacheEntry, error) {
	return c.entry, nil
}

func (c *cachedEntryStub) PutCitationCache(ctx context.Context, entry store.CitationCacheEntry) error {
	return nil
}

func (c *cachedEntryStub) IncrementCitationCacheHitCount(ctx context.Context, cacheKey string) error {
	return nil
}
