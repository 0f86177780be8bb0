package ingest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/knowledge"
	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/templates"
)

// stickyNoteType is an annotation-only node: it carries no behavior, so it
// is excluded from the node-type list and the flow walk.
const stickyNoteType = "n8n-nodes-base.stickyNote"

// maxFlowDepth caps the flow-description walk on pathological graphs.
const maxFlowDepth = 10

// BuildTemplateRecord flattens a fetched template into one storable
// record. Name, description and category resolve with detail-then-summary
// precedence; the structural payload passes through verbatim. Returns nil
// when the template has zero structural nodes (nothing to index).
func BuildTemplateRecord(detail *templates.Detail, summary templates.Summary) *knowledge.TemplateRecord {
	graph := detail.Graph()
	if len(graph.Nodes) == 0 {
		return nil
	}

	name := detail.Name
	if name == "" {
		name = summary.Name
	}
	description := detail.Description
	if description == "" {
		description = summary.Description
	}
	category := ""
	if len(detail.Categories) > 0 {
		category = detail.Categories[0].Name
	}
	views := detail.TotalViews
	if views == 0 {
		views = summary.TotalViews
	}
	// Same fallback for the key itself: a detail payload without an id
	// would otherwise collapse every such record onto template_id 0.
	id := detail.ID
	if id == 0 {
		id = summary.ID
	}

	nodeTypes := collectNodeTypes(graph)
	flow := describeFlow(graph)

	var b strings.Builder
	fmt.Fprintf(&b, "Template: %s\n", name)
	if description != "" {
		fmt.Fprintf(&b, "Description: %s\n", description)
	}
	if category != "" {
		fmt.Fprintf(&b, "Category: %s\n", category)
	}
	if len(nodeTypes) > 0 {
		fmt.Fprintf(&b, "Nodes used: %s\n", strings.Join(nodeTypes, ", "))
	}
	if flow != "" {
		fmt.Fprintf(&b, "Flow: %s\n", flow)
	}

	return &knowledge.TemplateRecord{
		TemplateID:   id,
		Name:         name,
		Description:  description,
		Category:     category,
		Views:        views,
		NodeTypes:    nodeTypes,
		WorkflowJSON: detail.Workflow,
		Content:      knowledge.Truncate(strings.TrimSpace(b.String()), knowledge.MaxContentLength),
	}
}

// collectNodeTypes returns the deduplicated functional node types of a
// graph, sorted for stable output.
func collectNodeTypes(graph templates.Graph) []string {
	seen := make(map[string]struct{})
	var types []string
	for _, node := range graph.Nodes {
		if node.Type == "" || node.Type == stickyNoteType {
			continue
		}
		if _, dup := seen[node.Type]; dup {
			continue
		}
		seen[node.Type] = struct{}{}
		types = append(types, node.Type)
	}
	sort.Strings(types)
	return types
}

// describeFlow renders a linear arrow-joined description of the workflow:
// a depth-first walk from the first trigger-like node, following "main"
// connections. Auxiliary connection types (AI tools, memories, sub-chains)
// are not walked; they are annotated inline on the node that owns them.
// A visited set guards cycles and maxFlowDepth guards pathological graphs.
// Returns "" when the walk covers at most one node.
func describeFlow(graph templates.Graph) string {
	start := findTrigger(graph)
	if start == "" {
		return ""
	}

	byName := make(map[string]templates.GraphNode, len(graph.Nodes))
	for _, node := range graph.Nodes {
		byName[node.Name] = node
	}

	visited := make(map[string]struct{})
	var steps []string

	current := start
	for depth := 0; depth < maxFlowDepth; depth++ {
		if _, seen := visited[current]; seen {
			break
		}
		visited[current] = struct{}{}

		node, ok := byName[current]
		if !ok || node.Type == stickyNoteType {
			break
		}

		label := current
		if aux := auxiliaryTypes(graph.Connections[current]); len(aux) > 0 {
			label = fmt.Sprintf("%s [+%s]", current, strings.Join(aux, ", "))
		}
		steps = append(steps, label)

		next := mainSuccessor(graph.Connections[current])
		if next == "" {
			break
		}
		current = next
	}

	if len(steps) <= 1 {
		return ""
	}
	return strings.Join(steps, " -> ")
}

// findTrigger picks the walk's starting node: the first trigger-like node,
// otherwise the first functional node.
func findTrigger(graph templates.Graph) string {
	for _, node := range graph.Nodes {
		lower := strings.ToLower(node.Type)
		if strings.Contains(lower, "trigger") || strings.Contains(lower, "webhook") {
			return node.Name
		}
	}
	for _, node := range graph.Nodes {
		if node.Type != stickyNoteType {
			return node.Name
		}
	}
	return ""
}

// mainSuccessor returns the first target of the node's primary ("main")
// connections, or "".
func mainSuccessor(conns templates.ConnectionSet) string {
	for _, outputs := range conns["main"] {
		for _, conn := range outputs {
			if conn.Node != "" {
				return conn.Node
			}
		}
	}
	return ""
}

// auxiliaryTypes returns the sorted non-"main" connection types a node
// fans out to.
func auxiliaryTypes(conns templates.ConnectionSet) []string {
	var aux []string
	for connType := range conns {
		if connType != "main" {
			aux = append(aux, connType)
		}
	}
	sort.Strings(aux)
	return aux
}
