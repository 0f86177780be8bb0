package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
)

// searchTimeout bounds a single vector search so a slow index scan cannot
// block the caller indefinitely.
const searchTimeout = 10 * time.Second

// FindRelevantChunks embeds the query and returns up to limit documentation
// chunks with cosine similarity strictly greater than minSimilarity,
// ordered descending. An empty result set is a normal outcome, never an
// error: the store may be empty or the query unrelated to anything indexed.
func (s *Store) FindRelevantChunks(ctx context.Context, query string, limit int, minSimilarity float32) ([]ScoredChunk, error) {
	params, err := s.searchParams(ctx, query, limit, minSimilarity)
	if err != nil {
		return nil, err
	}

	searchCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	results, err := s.queries.SearchChunks(searchCtx, params)
	if err != nil {
		return nil, fmt.Errorf("searching documentation: %w", err)
	}
	return results, nil
}

// FindRelevantTemplates is the template-table counterpart of
// FindRelevantChunks.
func (s *Store) FindRelevantTemplates(ctx context.Context, query string, limit int, minSimilarity float32) ([]ScoredTemplate, error) {
	params, err := s.searchParams(ctx, query, limit, minSimilarity)
	if err != nil {
		return nil, err
	}

	searchCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	results, err := s.queries.SearchTemplates(searchCtx, params)
	if err != nil {
		return nil, fmt.Errorf("searching templates: %w", err)
	}
	return results, nil
}

// ChunksByNodeType is the exact-key lookup path: it bypasses similarity
// entirely and returns every stored section for the node type with a
// synthetic perfect-match score. Zero rows means no ingestion has ever
// written under that key.
func (s *Store) ChunksByNodeType(ctx context.Context, nodeType string) ([]ScoredChunk, error) {
	chunks, err := s.queries.ChunksByNodeType(ctx, nodeType)
	if err != nil {
		return nil, fmt.Errorf("loading chunks for %q: %w", nodeType, err)
	}

	results := make([]ScoredChunk, len(chunks))
	for i, chunk := range chunks {
		results[i] = ScoredChunk{Chunk: chunk, Similarity: 1.0}
	}
	return results, nil
}

func (s *Store) searchParams(ctx context.Context, query string, limit int, minSimilarity float32) (SearchParams, error) {
	if limit <= 0 {
		return SearchParams{}, fmt.Errorf("limit must be positive, got %d", limit)
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return SearchParams{}, fmt.Errorf("embedding query: %w", err)
	}

	return SearchParams{
		Embedding:     pgvector.NewVector(vector),
		Limit:         int32(limit),
		MinSimilarity: minSimilarity,
	}, nil
}
