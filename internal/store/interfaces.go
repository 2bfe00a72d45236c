package store

import "context"

// PublicationStore persists Publication rows. Writes are idempotent:
// Upsert on an existing identifier_key overwrites that row with the new
// values and refreshes UpdatedAt instead of adding a second row.
type PublicationStore interface {
	Upsert(ctx context.Context, pub Publication) error
	GetByIdentifierKey(ctx context.Context, key string) (*Publication, error)
	GetByIdentifierKeys(ctx context.Context, keys []string) ([]Publication, error)
}

// GEODatasetStore persists GEODataset rows.
type GEODatasetStore interface {
	UpsertGEODataset(ctx context.Context, geo GEODataset) error
	GetGEODatasetByID(ctx context.Context, geoID string) (*GEODataset, error)
	SearchGEODatasets(ctx context.Context, query string, limit int) ([]GEODataset, error)
}

// GEOPublicationLinkStore persists the geo_publications join table.
type GEOPublicationLinkStore interface {
	UpsertLink(ctx context.Context, link GEOPublicationLink) error
	ListLinksByGEOID(ctx context.Context, geoID string) ([]GEOPublicationLink, error)
}

// URLCandidateStore persists publication_urls rows, append-only modulo the
// (identifier_key, url) uniqueness constraint.
type URLCandidateStore interface {
	UpsertURLCandidates(ctx context.Context, candidates []URLCandidate) error
	ListURLCandidates(ctx context.Context, key string) ([]URLCandidate, error)
}

// PDFArtifactStore persists cached_pdfs rows. CreateOrGetByHash implements
// the download dedup rule: a second insert with an existing file_hash
// returns the existing artifact rather than creating a new row.
type PDFArtifactStore interface {
	CreateOrGetByHash(ctx context.Context, artifact PDFArtifact) (*PDFArtifact, bool, error)
	GetPDFArtifact(ctx context.Context, key string) (*PDFArtifact, error)
	TouchAccess(ctx context.Context, key string) error
}

// ExtractedContentStore persists parsed_content rows.
type ExtractedContentStore interface {
	UpsertExtractedContent(ctx context.Context, content ExtractedContent) error
	GetExtractedContent(ctx context.Context, key string) (*ExtractedContent, error)
}

// DownloadHistoryStore appends download_history rows. Never updates or
// deletes — the table is append-only.
type DownloadHistoryStore interface {
	AppendDownloadAttempt(ctx context.Context, attempt DownloadAttempt) error
	ListDownloadAttempts(ctx context.Context, key string) ([]DownloadAttempt, error)
}

// CitationCacheStore persists citation_discovery_cache rows.
type CitationCacheStore interface {
	GetCitationCache(ctx context.Context, cacheKey string) (*CitationCacheEntry, error)
	PutCitationCache(ctx context.Context, entry CitationCacheEntry) error
	IncrementCitationCacheHitCount(ctx context.Context, cacheKey string) error
}

// AIAnalysisStore persists ai_analysis rows.
type AIAnalysisStore interface {
	UpsertAIAnalysis(ctx context.Context, analysis AIAnalysis) error
	GetAIAnalysis(ctx context.Context, identifierKey, analysisType, promptHash string) (*AIAnalysis, error)
}

// AggregateStore exposes the one high-value correlated-query operation:
// get_complete_geo_data, implemented as a small fixed set of
// queries rather than N per-publication round-trips.
type AggregateStore interface {
	GetCompleteGEOData(ctx context.Context, geoID string) (*GEOAggregate, error)
}

// Store is the full storage contract: every sub-interface plus the
// aggregate read path, implemented together by internal/store/postgres.Store
// so a single handle can be threaded through every constructor.
type Store interface {
	PublicationStore
	GEODatasetStore
	GEOPublicationLinkStore
	URLCandidateStore
	PDFArtifactStore
	ExtractedContentStore
	DownloadHistoryStore
	CitationCacheStore
	AIAnalysisStore
	AggregateStore

	// Close releases the underlying connection pool.
	Close()
}
