// Package knowledge implements the searchable knowledge store: the data
// model for documentation chunks and workflow templates, the batching
// embedding generator, the pgvector-backed store with delete-then-insert
// upserts, the append-only sync ledger, and the similarity retrieval path.
//
// The write side is owned exclusively by Store; ingestion pipelines hand it
// prebuilt chunks and precomputed vectors. The read side (FindRelevant*,
// ChunksByNodeType) is independent of any ingestion run and always queries
// whatever the last successful writes left behind.
//
// Known gaps, intentional until revisited:
//   - Rows for node types that disappear upstream are never purged; the
//     store keeps the last known good documentation for them.
//   - Nothing serializes two overlapping ingestion runs. Delete-then-insert
//     on the same key from two runs can interleave; triggering is assumed
//     to be externally serialized.
package knowledge
