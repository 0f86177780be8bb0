package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Queries implements Querier against PostgreSQL via pgx. Vector parameters
// bind through the pgvector codec registered on the pool (database.Open),
// so large embeddings go over the wire as single binary parameters rather
// than through any statement-size-limited text path.
type Queries struct {
	pool *pgxpool.Pool
}

// NewQueries creates the pgx-backed Querier implementation.
func NewQueries(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

func (q *Queries) DeleteChunk(ctx context.Context, nodeType string, section Section) error {
	_, err := q.pool.Exec(ctx,
		`DELETE FROM node_documentation WHERE node_type = $1 AND section = $2`,
		nodeType, string(section))
	return err
}

func (q *Queries) InsertChunk(ctx context.Context, arg InsertChunkParams) error {
	creds, err := json.Marshal(arg.Chunk.Credentials)
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}
	ops, err := json.Marshal(arg.Chunk.Operations)
	if err != nil {
		return fmt.Errorf("marshaling operations: %w", err)
	}

	_, err = q.pool.Exec(ctx, `
		INSERT INTO node_documentation
			(node_type, display_name, node_version, section, content,
			 category, subcategory, credentials, operations, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10)`,
		arg.Chunk.NodeType,
		arg.Chunk.DisplayName,
		arg.Chunk.NodeVersion,
		string(arg.Chunk.Section),
		arg.Chunk.Content,
		arg.Chunk.Category,
		arg.Chunk.Subcategory,
		creds,
		ops,
		arg.Embedding,
	)
	return err
}

func (q *Queries) ChunksByNodeType(ctx context.Context, nodeType string) ([]Chunk, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT node_type, display_name, node_version, section, content,
		       category, COALESCE(subcategory, ''), credentials, operations
		FROM node_documentation
		WHERE node_type = $1
		ORDER BY section`,
		nodeType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func (q *Queries) SearchChunks(ctx context.Context, arg SearchParams) ([]ScoredChunk, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT node_type, display_name, node_version, section, content,
		       category, COALESCE(subcategory, ''), credentials, operations,
		       1 - (embedding <=> $1) AS similarity
		FROM node_documentation
		WHERE embedding IS NOT NULL
		  AND 1 - (embedding <=> $1) > $2
		ORDER BY embedding <=> $1
		LIMIT $3`,
		arg.Embedding, arg.MinSimilarity, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ScoredChunk
	for rows.Next() {
		var sc ScoredChunk
		var creds, ops []byte
		err := rows.Scan(&sc.NodeType, &sc.DisplayName, &sc.NodeVersion, &sc.Section,
			&sc.Content, &sc.Category, &sc.Subcategory, &creds, &ops, &sc.Similarity)
		if err != nil {
			return nil, err
		}
		sc.Credentials = unmarshalStrings(creds)
		sc.Operations = unmarshalStrings(ops)
		results = append(results, sc)
	}
	return results, rows.Err()
}

func (q *Queries) DeleteTemplate(ctx context.Context, templateID int64) error {
	_, err := q.pool.Exec(ctx,
		`DELETE FROM workflow_templates WHERE template_id = $1`, templateID)
	return err
}

func (q *Queries) InsertTemplate(ctx context.Context, arg InsertTemplateParams) error {
	nodeTypes, err := json.Marshal(arg.Template.NodeTypes)
	if err != nil {
		return fmt.Errorf("marshaling node types: %w", err)
	}

	_, err = q.pool.Exec(ctx, `
		INSERT INTO workflow_templates
			(template_id, name, description, category, views,
			 node_types, workflow_json, content, embedding)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8, $9)`,
		arg.Template.TemplateID,
		arg.Template.Name,
		arg.Template.Description,
		arg.Template.Category,
		arg.Template.Views,
		nodeTypes,
		[]byte(arg.Template.WorkflowJSON),
		arg.Template.Content,
		arg.Embedding,
	)
	return err
}

func (q *Queries) SearchTemplates(ctx context.Context, arg SearchParams) ([]ScoredTemplate, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT template_id, name, COALESCE(description, ''), COALESCE(category, ''),
		       views, node_types, workflow_json, content,
		       1 - (embedding <=> $1) AS similarity
		FROM workflow_templates
		WHERE embedding IS NOT NULL
		  AND 1 - (embedding <=> $1) > $2
		ORDER BY embedding <=> $1
		LIMIT $3`,
		arg.Embedding, arg.MinSimilarity, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ScoredTemplate
	for rows.Next() {
		var st ScoredTemplate
		var nodeTypes, workflow []byte
		err := rows.Scan(&st.TemplateID, &st.Name, &st.Description, &st.Category,
			&st.Views, &nodeTypes, &workflow, &st.Content, &st.Similarity)
		if err != nil {
			return nil, err
		}
		st.NodeTypes = unmarshalStrings(nodeTypes)
		st.WorkflowJSON = json.RawMessage(workflow)
		results = append(results, st)
	}
	return results, rows.Err()
}

func (q *Queries) InsertRun(ctx context.Context, arg RunRecord) error {
	id := arg.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := q.pool.Exec(ctx, `
		INSERT INTO ingestion_runs (id, source, status, processed, error)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))`,
		id, arg.Source, arg.Status, arg.Processed, arg.Error)
	return err
}

func (q *Queries) LatestRun(ctx context.Context, source string) (*RunRecord, error) {
	var rec RunRecord
	var errMsg *string
	err := q.pool.QueryRow(ctx, `
		SELECT id, source, status, processed, error, created_at
		FROM ingestion_runs
		WHERE source = $1
		ORDER BY created_at DESC
		LIMIT 1`,
		source).Scan(&rec.ID, &rec.Source, &rec.Status, &rec.Processed, &errMsg, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if errMsg != nil {
		rec.Error = *errMsg
	}
	return &rec, nil
}

// scanChunk scans the common chunk column set (no similarity).
func scanChunk(rows pgx.Rows) (Chunk, error) {
	var chunk Chunk
	var creds, ops []byte
	err := rows.Scan(&chunk.NodeType, &chunk.DisplayName, &chunk.NodeVersion,
		&chunk.Section, &chunk.Content, &chunk.Category, &chunk.Subcategory,
		&creds, &ops)
	if err != nil {
		return Chunk{}, err
	}
	chunk.Credentials = unmarshalStrings(creds)
	chunk.Operations = unmarshalStrings(ops)
	return chunk, nil
}

// unmarshalStrings decodes a JSONB string array, tolerating NULL and
// malformed values (best-effort read path, never fails retrieval).
func unmarshalStrings(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
