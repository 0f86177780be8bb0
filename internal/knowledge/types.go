package knowledge

import (
	"encoding/json"
	"time"
	"unicode/utf8"
)

// Section identifies the semantic slice of a node a chunk describes.
// Together with the node type it forms the natural key of the
// node_documentation table.
type Section string

const (
	SectionOverview    Section = "overview"
	SectionParameters  Section = "parameters"
	SectionCredentials Section = "credentials"
	SectionExamples    Section = "examples"
)

// Ingestion sources recorded in the sync ledger.
const (
	SourceDocumentation = "documentation"
	SourceTemplates     = "templates"
)

// Run statuses recorded in the sync ledger.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// MaxContentLength is the upper bound for stored chunk content. Builders
// truncate before storage; anything longer would degrade embedding quality
// and blow the retrieval context anyway.
const MaxContentLength = 2000

// Chunk is one bounded-length semantic section of one documented node.
// At most one row exists per (NodeType, Section) pair.
type Chunk struct {
	NodeType    string   // stable dotted identifier, e.g. "n8n-nodes-base.slack"
	DisplayName string   // human-readable node name
	NodeVersion float64  // latest known version, may be fractional
	Section     Section  // which slice of the node this chunk covers
	Content     string   // bounded-length text, the embedded payload
	Category    string   // node group, e.g. "transform"
	Subcategory string   // optional
	Credentials []string // credential type names, optional
	Operations  []string // documented operations, optional
}

// TemplateRecord is one reusable workflow template. WorkflowJSON is a
// pass-through artifact: the ingestion pipeline never rewrites it, only
// Content is derived.
type TemplateRecord struct {
	TemplateID   int64
	Name         string
	Description  string
	Category     string
	Views        int
	NodeTypes    []string
	WorkflowJSON json.RawMessage
	Content      string // semantic summary used only for embedding
}

// RunRecord is one immutable sync ledger entry.
type RunRecord struct {
	ID        string
	Source    string
	Status    string
	Processed int
	Error     string
	CreatedAt time.Time
}

// ScoredChunk is a chunk with its retrieval similarity attached.
type ScoredChunk struct {
	Chunk
	Similarity float32
}

// ScoredTemplate is a template record with its retrieval similarity attached.
type ScoredTemplate struct {
	TemplateRecord
	Similarity float32
}

// Truncate caps s at limit bytes, appending an ellipsis marker when
// anything was cut. The cut never splits a multi-byte rune; the result is
// valid UTF-8 whenever the input is. Used both for chunk content and for
// error diagnostics stored in the ledger.
func Truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	if limit <= 3 {
		return cutAtRune(s, limit)
	}
	return cutAtRune(s, limit-3) + "..."
}

// cutAtRune slices s at most n bytes in, backing up so the cut lands on a
// rune boundary.
func cutAtRune(s string, n int) string {
	if n >= len(s) {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
