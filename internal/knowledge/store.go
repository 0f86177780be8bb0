package knowledge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pgvector/pgvector-go"
)

// maxDiagnosticLength caps per-record error strings collected during a run.
const maxDiagnosticLength = 200

// Querier defines the database operations the Store needs. Following Go
// practice the interface is defined by the consumer, not the provider
// (compare io.Reader, http.RoundTripper): Store depends on this
// abstraction, Queries (queries.go) implements it against pgx.
type Querier interface {
	// DeleteChunk removes the row for one (nodeType, section) key.
	DeleteChunk(ctx context.Context, nodeType string, section Section) error

	// InsertChunk inserts a documentation chunk with its embedding.
	InsertChunk(ctx context.Context, arg InsertChunkParams) error

	// ChunksByNodeType returns all stored sections for one node type.
	ChunksByNodeType(ctx context.Context, nodeType string) ([]Chunk, error)

	// SearchChunks performs cosine-similarity search over node documentation.
	SearchChunks(ctx context.Context, arg SearchParams) ([]ScoredChunk, error)

	// DeleteTemplate removes the row for one template id.
	DeleteTemplate(ctx context.Context, templateID int64) error

	// InsertTemplate inserts a workflow template with its embedding.
	InsertTemplate(ctx context.Context, arg InsertTemplateParams) error

	// SearchTemplates performs cosine-similarity search over templates.
	SearchTemplates(ctx context.Context, arg SearchParams) ([]ScoredTemplate, error)

	// InsertRun appends one sync ledger entry.
	InsertRun(ctx context.Context, arg RunRecord) error

	// LatestRun returns the most recent ledger entry for a source,
	// or nil if the source has never completed a run.
	LatestRun(ctx context.Context, source string) (*RunRecord, error)
}

// InsertChunkParams carries a chunk and its precomputed embedding.
type InsertChunkParams struct {
	Chunk     Chunk
	Embedding pgvector.Vector
}

// InsertTemplateParams carries a template record and its precomputed embedding.
type InsertTemplateParams struct {
	Template  TemplateRecord
	Embedding pgvector.Vector
}

// SearchParams configures a similarity search.
type SearchParams struct {
	Embedding     pgvector.Vector
	Limit         int32
	MinSimilarity float32
}

// Store owns all write access to the documentation and template tables and
// the append-only sync ledger. Safe for concurrent use across distinct
// natural keys; overlapping ingestion runs for the same keys are not
// serialized here (callers must not trigger concurrent runs).
type Store struct {
	queries  Querier
	embedder *Embedder
	logger   *slog.Logger
}

// NewStore creates a Store. logger may be nil (defaults to slog.Default).
func NewStore(querier Querier, embedder *Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{queries: querier, embedder: embedder, logger: logger}
}

// UpsertChunks writes each (chunk, vector) pair with delete-then-insert
// semantics on the (node_type, section) key. One record's failure is
// captured as a truncated diagnostic and does not abort the batch.
//
// len(vectors) must equal len(chunks); a mismatch is a programming error
// and returns immediately.
func (s *Store) UpsertChunks(ctx context.Context, chunks []Chunk, vectors [][]float32) (int, []string) {
	if len(chunks) != len(vectors) {
		return 0, []string{fmt.Sprintf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))}
	}

	stored := 0
	var errs []string
	for i, chunk := range chunks {
		if err := s.upsertChunk(ctx, chunk, vectors[i]); err != nil {
			diag := Truncate(fmt.Sprintf("%s/%s: %v", chunk.NodeType, chunk.Section, err), maxDiagnosticLength)
			s.logger.Warn("chunk upsert failed", "node_type", chunk.NodeType, "section", chunk.Section, "error", err)
			errs = append(errs, diag)
			continue
		}
		stored++
	}

	s.logger.Debug("chunks upserted", "stored", stored, "failed", len(errs))
	return stored, errs
}

func (s *Store) upsertChunk(ctx context.Context, chunk Chunk, vector []float32) error {
	if err := s.queries.DeleteChunk(ctx, chunk.NodeType, chunk.Section); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	err := s.queries.InsertChunk(ctx, InsertChunkParams{
		Chunk:     chunk,
		Embedding: pgvector.NewVector(vector),
	})
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	return nil
}

// UpsertTemplates writes each (template, vector) pair keyed by template id,
// with the same per-record fault isolation as UpsertChunks.
func (s *Store) UpsertTemplates(ctx context.Context, templates []TemplateRecord, vectors [][]float32) (int, []string) {
	if len(templates) != len(vectors) {
		return 0, []string{fmt.Sprintf("template/vector count mismatch: %d vs %d", len(templates), len(vectors))}
	}

	stored := 0
	var errs []string
	for i, tmpl := range templates {
		if err := s.upsertTemplate(ctx, tmpl, vectors[i]); err != nil {
			diag := Truncate(fmt.Sprintf("template %d: %v", tmpl.TemplateID, err), maxDiagnosticLength)
			s.logger.Warn("template upsert failed", "template_id", tmpl.TemplateID, "error", err)
			errs = append(errs, diag)
			continue
		}
		stored++
	}

	s.logger.Debug("templates upserted", "stored", stored, "failed", len(errs))
	return stored, errs
}

func (s *Store) upsertTemplate(ctx context.Context, tmpl TemplateRecord, vector []float32) error {
	if err := s.queries.DeleteTemplate(ctx, tmpl.TemplateID); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	err := s.queries.InsertTemplate(ctx, InsertTemplateParams{
		Template:  tmpl,
		Embedding: pgvector.NewVector(vector),
	})
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	return nil
}

// RecordRun appends one entry to the sync ledger. Entries are never updated
// or deleted. Callers are expected to swallow (log, not raise) a returned
// error: a ledger write failure must never mask the ingestion result itself.
func (s *Store) RecordRun(ctx context.Context, source, status string, processed int, runErr string) error {
	rec := RunRecord{
		Source:    source,
		Status:    status,
		Processed: processed,
		Error:     Truncate(runErr, 500),
	}
	if err := s.queries.InsertRun(ctx, rec); err != nil {
		return fmt.Errorf("recording %s run: %w", source, err)
	}
	return nil
}

// LatestRun returns the most recent ledger entry for a source, or nil if
// no run has ever been recorded for it.
func (s *Store) LatestRun(ctx context.Context, source string) (*RunRecord, error) {
	rec, err := s.queries.LatestRun(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("loading latest %s run: %w", source, err)
	}
	return rec, nil
}
