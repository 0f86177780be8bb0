package knowledge

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/log"
	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/testutil"
)

// unitVector returns a 1536-dim one-hot vector. Cosine similarity between
// two of them is 1 for the same index and 0 otherwise, which makes
// threshold assertions exact.
func unitVector(index int) []float32 {
	v := make([]float32, 1536)
	v[index] = 1
	return v
}

func TestQueriesIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	queries := NewQueries(tdb.Pool)
	store := NewStore(queries, nil, log.NewNop())

	chunks := []Chunk{
		{
			NodeType:    "n8n-nodes-base.slack",
			DisplayName: "Slack",
			NodeVersion: 2.2,
			Section:     SectionOverview,
			Content:     "Send messages to Slack channels",
			Category:    "output",
			Credentials: []string{"slackApi"},
			Operations:  []string{"Send a message"},
		},
		{
			NodeType:    "n8n-nodes-base.slack",
			DisplayName: "Slack",
			NodeVersion: 2.2,
			Section:     SectionParameters,
			Content:     "Channel, text, attachments",
			Category:    "output",
		},
		{
			NodeType:    "n8n-nodes-base.code",
			DisplayName: "Code",
			NodeVersion: 2,
			Section:     SectionOverview,
			Content:     "Run custom JavaScript",
			Category:    "transform",
		},
	}
	vectors := [][]float32{unitVector(0), unitVector(1), unitVector(2)}

	t.Run("upsert and exact lookup", func(t *testing.T) {
		stored, errs := store.UpsertChunks(ctx, chunks, vectors)
		require.Empty(t, errs)
		require.Equal(t, 3, stored)

		results, err := store.ChunksByNodeType(ctx, "n8n-nodes-base.slack")
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, []string{"slackApi"}, results[0].Credentials)
		for _, r := range results {
			assert.InDelta(t, 1.0, r.Similarity, 0.001)
		}
	})

	t.Run("re-upsert replaces instead of duplicating", func(t *testing.T) {
		updated := chunks[0]
		updated.Content = "Updated overview"

		stored, errs := store.UpsertChunks(ctx, []Chunk{updated}, [][]float32{unitVector(0)})
		require.Empty(t, errs)
		require.Equal(t, 1, stored)

		results, err := store.ChunksByNodeType(ctx, "n8n-nodes-base.slack")
		require.NoError(t, err)
		require.Len(t, results, 2, "same natural key must not duplicate")
		for _, r := range results {
			if r.Section == SectionOverview {
				assert.Equal(t, "Updated overview", r.Content)
			}
		}
	})

	t.Run("similarity search respects threshold and order", func(t *testing.T) {
		results, err := queries.SearchChunks(ctx, SearchParams{
			Embedding:     pgvector.NewVector(unitVector(0)),
			Limit:         10,
			MinSimilarity: 0.5,
		})
		require.NoError(t, err)
		require.Len(t, results, 1, "orthogonal vectors sit at similarity 0, below the floor")
		assert.Equal(t, "n8n-nodes-base.slack", results[0].NodeType)
		assert.Equal(t, SectionOverview, results[0].Section)
		assert.InDelta(t, 1.0, results[0].Similarity, 0.01)
	})

	t.Run("threshold is strict", func(t *testing.T) {
		results, err := queries.SearchChunks(ctx, SearchParams{
			Embedding:     pgvector.NewVector(unitVector(3)),
			Limit:         10,
			MinSimilarity: 0,
		})
		require.NoError(t, err)
		assert.Empty(t, results, "similarity exactly 0 must not pass a floor of 0")
	})

	t.Run("template roundtrip preserves the payload verbatim", func(t *testing.T) {
		workflow := json.RawMessage(`{"nodes":[{"name":"A","type":"n8n-nodes-base.webhook"}],"connections":{}}`)
		record := TemplateRecord{
			TemplateID:   42,
			Name:         "AI Agent",
			Description:  "Chat agent",
			Category:     "AI",
			Views:        1200,
			NodeTypes:    []string{"n8n-nodes-base.webhook"},
			WorkflowJSON: workflow,
			Content:      "Template: AI Agent",
		}

		stored, errs := store.UpsertTemplates(ctx, []TemplateRecord{record}, [][]float32{unitVector(5)})
		require.Empty(t, errs)
		require.Equal(t, 1, stored)

		results, err := queries.SearchTemplates(ctx, SearchParams{
			Embedding:     pgvector.NewVector(unitVector(5)),
			Limit:         5,
			MinSimilarity: 0.5,
		})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, int64(42), results[0].TemplateID)
		assert.JSONEq(t, string(workflow), string(results[0].WorkflowJSON))
		assert.Equal(t, []string{"n8n-nodes-base.webhook"}, results[0].NodeTypes)
	})

	t.Run("ledger is append-only with latest-first reads", func(t *testing.T) {
		require.NoError(t, store.RecordRun(ctx, SourceDocumentation, StatusError, 0, "first failure"))
		require.NoError(t, store.RecordRun(ctx, SourceDocumentation, StatusSuccess, 12, ""))

		latest, err := store.LatestRun(ctx, SourceDocumentation)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, StatusSuccess, latest.Status)
		assert.Equal(t, 12, latest.Processed)

		none, err := store.LatestRun(ctx, SourceTemplates)
		require.NoError(t, err)
		assert.Nil(t, none)
	})
}
