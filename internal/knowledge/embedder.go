package knowledge

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
)

// maxEmbedBatchSize is the largest number of inputs sent in one provider
// call. OpenAI and Gemini both accept well above this; staying under keeps
// single requests small enough to retry cheaply.
const maxEmbedBatchSize = 100

// Embedder generates fixed-dimension vectors for text records. It wraps a
// Genkit ai.Embedder and splits large inputs into provider-sized batches
// while preserving input order.
//
// Embedding failures are terminal for the run that requested them: a chunk
// without a vector is useless, so unlike the fetch and write stages there
// is no per-item fault tolerance here.
type Embedder struct {
	embedder ai.Embedder
	batch    int
}

// NewEmbedder wraps a Genkit embedder. batchSize <= 0 selects the default.
func NewEmbedder(embedder ai.Embedder, batchSize int) *Embedder {
	if batchSize <= 0 || batchSize > maxEmbedBatchSize {
		batchSize = maxEmbedBatchSize
	}
	return &Embedder{embedder: embedder, batch: batchSize}
}

// EmbedTexts returns one vector per input text, in input order. Internally
// requests are batched; batch boundaries never reorder results.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batch {
		end := min(start+e.batch, len(texts))

		batch, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d-%d: %w", start, end, err)
		}
		vectors = append(vectors, batch...)
	}

	return vectors, nil
}

// EmbedQuery embeds a single query string.
func (e *Embedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := e.embedBatch(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	docs := make([]*ai.Document, len(texts))
	for i, t := range texts {
		docs[i] = ai.DocumentFromText(t, nil)
	}

	resp, err := e.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
	if err != nil {
		return nil, fmt.Errorf("embed failed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d inputs", len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if len(emb.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding returned for input %d", i)
		}
		vectors[i] = emb.Embedding
	}
	return vectors, nil
}
