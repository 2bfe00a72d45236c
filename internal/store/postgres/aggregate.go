package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/omicsoracle/omicsoracle/internal/store"
)

// GetCompleteGEOData is the hot path for cache misses: it assembles the
// full aggregate for geoID using a fixed small set of correlated queries
// (dataset, joined publications, download history, extraction) rather than
// one round-trip per publication.
func (s *Store) GetCompleteGEOData(ctx context.Context, geoID string) (*store.GEOAggregate, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	geo, err := s.GetGEODatasetByID(ctx, geoID)
	if err != nil {
		return nil, err
	}
	if geo == nil {
		return nil, nil
	}

	rows, err := s.db.Query(ctx, `
		SELECT gp.relationship, p.identifier_key, COALESCE(p.pmid,''), COALESCE(p.doi,''), COALESCE(p.pmc_id,''), COALESCE(p.arxiv_id,''),
		       p.title, p.authors, p.journal, p.year, p.metadata, p.created_at, p.updated_at
		FROM geo_publications gp
		JOIN publications p ON p.identifier_key = gp.identifier_key
		WHERE gp.geo_id = $1
	`, geoID)
	if err != nil {
		return nil, err
	}

	type row struct {
		relationship store.Relationship
		pub          store.Publication
	}
	var linked []row
	var keys []string
	for rows.Next() {
		var rel store.Relationship
		var pub store.Publication
		var metadata []byte
		if err := rows.Scan(&rel, &pub.IdentifierKey, &pub.PMID, &pub.DOI, &pub.PMCID, &pub.ArXivID,
			&pub.Title, &pub.Authors, &pub.Journal, &pub.Year, &metadata, &pub.CreatedAt, &pub.UpdatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &pub.Metadata); err != nil {
				rows.Close()
				return nil, err
			}
		}
		linked = append(linked, row{relationship: rel, pub: pub})
		keys = append(keys, pub.IdentifierKey)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	downloadsByKey, err := s.downloadHistoryByKeys(ctx, keys)
	if err != nil {
		return nil, err
	}
	extractionByKey, err := s.extractedContentByKeys(ctx, keys)
	if err != nil {
		return nil, err
	}

	agg := &store.GEOAggregate{GEO: *geo, FetchedAt: time.Now()}
	var successful, failed, extracted int

	for _, r := range linked {
		view := store.PublicationView{
			Publication:     r.pub,
			DownloadHistory: downloadsByKey[r.pub.IdentifierKey],
			Extraction:      extractionByKey[r.pub.IdentifierKey],
		}
		if view.Extraction != nil {
			extracted++
		}
		for _, d := range view.DownloadHistory {
			switch d.Status {
			case store.DownloadSuccess:
				successful++
			case store.DownloadFailed:
				failed++
			}
		}
		switch r.relationship {
		case store.RelationshipOriginal:
			agg.Original = append(agg.Original, view)
		default:
			agg.Citing = append(agg.Citing, view)
		}
	}

	total := len(agg.Original) + len(agg.Citing)
	stats := store.GEOAggregateStats{
		OriginalPapers:      len(agg.Original),
		CitingPapers:        len(agg.Citing),
		TotalPapers:         total,
		SuccessfulDownloads: successful,
		FailedDownloads:     failed,
		ExtractedPapers:     extracted,
	}
	if total > 0 {
		stats.SuccessRate = float64(successful) / float64(total)
	}
	agg.Statistics = stats
	return agg, nil
}

func (s *Store) downloadHistoryByKeys(ctx context.Context, keys []string) (map[string][]store.DownloadAttempt, error) {
	out := make(map[string][]store.DownloadAttempt)
	if len(keys) == 0 {
		return out, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, identifier_key, url, source, status, COALESCE(error_message,''), attempt_number, COALESCE(file_path,''), file_size, downloaded_at
		FROM download_history WHERE identifier_key = ANY($1)
		ORDER BY downloaded_at ASC
	`, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var a store.DownloadAttempt
		if err := rows.Scan(&a.ID, &a.IdentifierKey, &a.URL, &a.Source, &a.Status, &a.ErrorMessage, &a.AttemptNumber, &a.FilePath, &a.FileSize, &a.DownloadedAt); err != nil {
			return nil, err
		}
		out[a.IdentifierKey] = append(out[a.IdentifierKey], a)
	}
	return out, rows.Err()
}

func (s *Store) extractedContentByKeys(ctx context.Context, keys []string) (map[string]*store.ExtractedContent, error) {
	out := make(map[string]*store.ExtractedContent)
	if len(keys) == 0 {
		return out, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT identifier_key, has_fulltext, has_tables, has_figures, word_count, table_count, figure_count, section_count, quality_score, parser_version, content_path, parsed_at
		FROM parsed_content WHERE identifier_key = ANY($1)
	`, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var c store.ExtractedContent
		if err := rows.Scan(&c.IdentifierKey, &c.HasFullText, &c.HasTables, &c.HasFigures, &c.WordCount, &c.TableCount, &c.FigureCount, &c.SectionCount, &c.QualityScore, &c.ParserVersion, &c.ContentPath, &c.ParsedAt); err != nil {
			return nil, err
		}
		cc := c
		out[c.IdentifierKey] = &cc
	}
	return out, rows.Err()
}
