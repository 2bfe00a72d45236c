package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/omicsoracle/omicsoracle/internal/store"
)

func (s *Store) UpsertAIAnalysis(ctx context.Context, analysis store.AIAnalysis) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	createdAt := analysis.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO ai_analysis (identifier_key, analysis_type, prompt_hash, response, model, tokens, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (identifier_key, analysis_type, prompt_hash) DO UPDATE SET
			response = EXCLUDED.response,
			model = EXCLUDED.model,
			tokens = EXCLUDED.tokens
	`, analysis.IdentifierKey, analysis.AnalysisType, analysis.PromptHash, analysis.Response, analysis.Model, analysis.Tokens, createdAt)
	return err
}

func (s *Store) GetAIAnalysis(ctx context.Context, identifierKey, analysisType, promptHash string) (*store.AIAnalysis, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var a store.AIAnalysis
	err := s.db.QueryRow(ctx, `
		SELECT identifier_key, analysis_type, prompt_hash, response, model, tokens, created_at
		FROM ai_analysis WHERE identifier_key = $1 AND analysis_type = $2 AND prompt_hash = $3
	`, identifierKey, analysisType, promptHash).Scan(&a.IdentifierKey, &a.AnalysisType, &a.PromptHash, &a.Response, &a.Model, &a.Tokens, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
