// Package store declares the unified datastore's record types and
// interfaces. internal/store/postgres provides the PostgreSQL-backed
// implementation; the interfaces here are what every other component
// depends on, so they can be faked in tests without a live database.
package store

import "time"

// Publication mirrors the publications table: one canonical row per paper,
// keyed by its universal identifier.
type Publication struct {
	IdentifierKey string
	PMID          string
	DOI           string
	PMCID         string
	ArXivID       string
	Title         string
	Authors       []string
	Journal       string
	Year          int
	Metadata      map[string]any
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// GEODataset mirrors the geo_datasets table.
type GEODataset struct {
	GEOID         string
	Title         string
	Summary       string
	Organism      string
	Platform      string
	SampleCount   int
	OriginalPMIDs []string
	Metadata      map[string]any
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Relationship tags a GEO-Publication link.
type Relationship string

const (
	RelationshipOriginal Relationship = "original"
	RelationshipCiting   Relationship = "citing"
)

// GEOPublicationLink mirrors the geo_publications table.
type GEOPublicationLink struct {
	GEOID         string
	IdentifierKey string
	Relationship  Relationship
	Strategy      string
	DiscoveredAt  time.Time
}

// URLType classifies a URL candidate.
type URLType string

const (
	URLTypePDFDirect     URLType = "pdf_direct"
	URLTypeHTMLFullText  URLType = "html_fulltext"
	URLTypeLandingPage   URLType = "landing_page"
	URLTypeDOIResolver   URLType = "doi_resolver"
	URLTypeUnknown       URLType = "unknown"
)

// URLCandidate mirrors the publication_urls table.
type URLCandidate struct {
	IdentifierKey string
	URL           string
	URLType       URLType
	Source        string
	Priority      int // base priority before url-type adjustment
	Confidence    float64
	RequiresAuth  bool
	Metadata      map[string]any
	DiscoveredAt  time.Time
}

// EffectivePriority applies the url-type adjustment on top of the
// candidate's base source priority. Lower is still higher priority.
func (c URLCandidate) EffectivePriority() int {
	return c.Priority + urlTypeAdjustment(c.URLType)
}

func urlTypeAdjustment(t URLType) int {
	switch t {
	case URLTypePDFDirect:
		return -2
	case URLTypeHTMLFullText:
		return 0
	case URLTypeLandingPage:
		return 2
	case URLTypeDOIResolver:
		return 3
	default:
		return 0
	}
}

// PDFArtifact mirrors the cached_pdfs table.
type PDFArtifact struct {
	IdentifierKey string
	FilePath      string
	FileHash      string
	FileSize      int64
	Source        string
	DownloadedAt  time.Time
	LastAccessed  time.Time
	AccessCount   int
}

// ExtractedContent mirrors the parsed_content table.
type ExtractedContent struct {
	IdentifierKey string
	HasFullText   bool
	HasTables     bool
	HasFigures    bool
	WordCount     int
	TableCount    int
	FigureCount   int
	SectionCount  int
	QualityScore  float64
	ParserVersion string
	ContentPath   string
	ParsedAt      time.Time
}

// DownloadStatus is one attempt's outcome.
type DownloadStatus string

const (
	DownloadSuccess DownloadStatus = "success"
	DownloadFailed  DownloadStatus = "failed"
	DownloadRetry   DownloadStatus = "retry"
	DownloadSkipped DownloadStatus = "skipped"
)

// DownloadAttempt mirrors one row of download_history.
type DownloadAttempt struct {
	ID            int64
	IdentifierKey string
	URL           string
	Source        string
	Status        DownloadStatus
	ErrorMessage  string
	AttemptNumber int
	FilePath      string
	FileSize      int64
	DownloadedAt  time.Time
}

// CitationCacheEntry mirrors citation_discovery_cache.
type CitationCacheEntry struct {
	CacheKey       string
	GEOID          string
	Strategy       string
	ResultKeys     []string // identifier keys, JSON-encoded in result_json
	CreatedAt      time.Time
	ExpiresAt      time.Time
	HitCount       int
}

// AIAnalysis mirrors the ai_analysis table.
type AIAnalysis struct {
	IdentifierKey string
	AnalysisType  string
	PromptHash    string
	Response      string
	Model         string
	Tokens        int
	CreatedAt     time.Time
}

// PublicationView is one entry in GEOAggregate's papers.original/citing
// lists: a publication plus its download/extraction status.
type PublicationView struct {
	Publication     Publication
	DownloadHistory []DownloadAttempt
	Extraction      *ExtractedContent
}

// GEOAggregateStats mirrors get_complete_geo_data's statistics block.
type GEOAggregateStats struct {
	OriginalPapers      int
	CitingPapers        int
	TotalPapers         int
	SuccessfulDownloads int
	FailedDownloads     int
	ExtractedPapers     int
	SuccessRate         float64
}

// GEOAggregate is the full result of get_complete_geo_data: everything
// known about one GEO dataset and its publication graph.
type GEOAggregate struct {
	GEO        GEODataset
	Original   []PublicationView
	Citing     []PublicationView
	Statistics GEOAggregateStats
	FetchedAt  time.Time
}
