package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/omicsoracle/omicsoracle/internal/store"
)

// UpsertExtractedContent writes a parsed_content row. A re-run with a newer
// parser_version replaces the prior row rather than appending.
func (s *Store) UpsertExtractedContent(ctx context.Context, content store.ExtractedContent) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	parsedAt := content.ParsedAt
	if parsedAt.IsZero() {
		parsedAt = time.Now()
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO parsed_content (identifier_key, has_fulltext, has_tables, has_figures, word_count, table_count, figure_count, section_count, quality_score, parser_version, content_path, parsed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (identifier_key) DO UPDATE SET
			has_fulltext = EXCLUDED.has_fulltext,
			has_tables = EXCLUDED.has_tables,
			has_figures = EXCLUDED.has_figures,
			word_count = EXCLUDED.word_count,
			table_count = EXCLUDED.table_count,
			figure_count = EXCLUDED.figure_count,
			section_count = EXCLUDED.section_count,
			quality_score = EXCLUDED.quality_score,
			parser_version = EXCLUDED.parser_version,
			content_path = EXCLUDED.content_path,
			parsed_at = EXCLUDED.parsed_at
	`, content.IdentifierKey, content.HasFullText, content.HasTables, content.HasFigures,
		content.WordCount, content.TableCount, content.FigureCount, content.SectionCount,
		content.QualityScore, content.ParserVersion, content.ContentPath, parsedAt)
	return err
}

func (s *Store) GetExtractedContent(ctx context.Context, key string) (*store.ExtractedContent, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var c store.ExtractedContent
	err := s.db.QueryRow(ctx, `
		SELECT identifier_key, has_fulltext, has_tables, has_figures, word_count, table_count, figure_count, section_count, quality_score, parser_version, content_path, parsed_at
		FROM parsed_content WHERE identifier_key = $1
	`, key).Scan(
		&c.IdentifierKey, &c.HasFullText, &c.HasTables, &c.HasFigures,
		&c.WordCount, &c.TableCount, &c.FigureCount, &c.SectionCount,
		&c.QualityScore, &c.ParserVersion, &c.ContentPath, &c.ParsedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
