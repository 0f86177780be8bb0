package templates

import "encoding/json"

// Summary is one entry of the template search endpoint. It carries enough
// to rank and dedupe; the structural payload comes from the detail call.
type Summary struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	TotalViews  int           `json:"totalViews"`
	Nodes       []SummaryNode `json:"nodes"`
}

// SummaryNode is the node metadata nested in a search result.
type SummaryNode struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// searchResponse is the search endpoint envelope.
type searchResponse struct {
	TotalWorkflows int       `json:"totalWorkflows"`
	Workflows      []Summary `json:"workflows"`
}

// detailEnvelope is the outer layer of the get-by-id payload. The API
// nests a "workflow" object inside a "workflow" key; modeling both layers
// explicitly keeps the flattening auditable.
type detailEnvelope struct {
	Workflow Detail `json:"workflow"`
}

// Detail is the full template record returned by the get-by-id endpoint.
// Workflow holds the inner structural payload verbatim: it is a
// pass-through artifact, stored as-is and never rewritten. Graph() parses
// it on demand for the flow walk.
type Detail struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	TotalViews  int             `json:"totalViews"`
	Categories  []Category      `json:"categories"`
	Workflow    json.RawMessage `json:"workflow"`
}

// Category is one template category tag.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Graph parses the structural payload. A malformed payload yields a
// zero-node graph, not an error: structure is best-effort input to the
// flow description, the verbatim payload is what gets stored.
func (d *Detail) Graph() Graph {
	var g Graph
	if len(d.Workflow) == 0 {
		return g
	}
	_ = json.Unmarshal(d.Workflow, &g)
	return g
}

// Graph is the parsed inner structural payload: nodes plus the connection
// map keyed by source node name.
type Graph struct {
	Nodes       []GraphNode              `json:"nodes"`
	Connections map[string]ConnectionSet `json:"connections"`
}

// GraphNode is one node of a template workflow.
type GraphNode struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ConnectionSet maps a connection type ("main", "ai_languageModel",
// "ai_tool", ...) to its outputs; each output is a list of targets.
type ConnectionSet map[string][][]Connection

// Connection is one edge target.
type Connection struct {
	Node  string `json:"node"`
	Type  string `json:"type"`
	Index int    `json:"index"`
}
