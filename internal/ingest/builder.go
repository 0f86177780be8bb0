package ingest

import (
	"fmt"
	"strings"

	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/knowledge"
	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/parse"
)

// overviewExcerptCap bounds the leading doc excerpt embedded in the
// overview chunk; the full sections get their own chunks.
const overviewExcerptCap = 800

// maxExampleBlocks is the code-block fallback count when the docs have no
// headed examples section.
const maxExampleBlocks = 3

var operationHeadings = []string{"Operations", "Actions"}

// BuildNodeChunks combines raw node documentation and mined source info
// into 1-4 semantic chunks. The overview chunk is always produced when
// either input is present; parameters, credentials and examples chunks
// only when their inputs exist. Every chunk's content is truncated to
// knowledge.MaxContentLength before it leaves here.
func BuildNodeChunks(nodeType, docText string, src *parse.NodeInfo) []knowledge.Chunk {
	if docText == "" && src == nil {
		return nil
	}

	displayName := ""
	version := 1.0
	category := ""
	description := ""
	var credentials []string
	var params []parse.Parameter
	if src != nil {
		displayName = src.DisplayName
		version = src.Version
		category = src.Category
		description = src.Description
		credentials = src.Credentials
		params = src.Parameters
	}
	if displayName == "" {
		displayName = knowledge.DeriveDisplayInfo(nodeType).DisplayName
	}

	var operations []string
	if opSection := parse.Section(docText, operationHeadings); opSection != "" {
		operations = parse.BulletItems(opSection, 15)
	}

	base := knowledge.Chunk{
		NodeType:    nodeType,
		DisplayName: displayName,
		NodeVersion: version,
		Category:    category,
		Credentials: credentials,
		Operations:  operations,
	}

	chunks := []knowledge.Chunk{
		buildOverviewChunk(base, nodeType, displayName, version, category, description, docText, credentials),
	}

	if chunk, ok := buildParametersChunk(base, displayName, docText, params); ok {
		chunks = append(chunks, chunk)
	}
	if chunk, ok := buildCredentialsChunk(base, displayName, docText, credentials); ok {
		chunks = append(chunks, chunk)
	}
	if chunk, ok := buildExamplesChunk(base, displayName, docText); ok {
		chunks = append(chunks, chunk)
	}

	for i := range chunks {
		chunks[i].Content = knowledge.Truncate(chunks[i].Content, knowledge.MaxContentLength)
	}
	return chunks
}

func buildOverviewChunk(base knowledge.Chunk, nodeType, displayName string, version float64, category, description, docText string, credentials []string) knowledge.Chunk {
	var b strings.Builder
	fmt.Fprintf(&b, "Node: %s (%s)\n", displayName, nodeType)
	fmt.Fprintf(&b, "Version: %g\n", version)
	if category != "" {
		fmt.Fprintf(&b, "Category: %s\n", category)
	}
	if description != "" {
		fmt.Fprintf(&b, "Description: %s\n", description)
	}
	if len(credentials) > 0 {
		fmt.Fprintf(&b, "Credentials: %s\n", strings.Join(credentials, ", "))
	}
	if excerpt := parse.Excerpt(docText, overviewExcerptCap); excerpt != "" {
		b.WriteString("\n")
		b.WriteString(excerpt)
	}

	base.Section = knowledge.SectionOverview
	base.Content = strings.TrimSpace(b.String())
	return base
}

func buildParametersChunk(base knowledge.Chunk, displayName, docText string, params []parse.Parameter) (knowledge.Chunk, bool) {
	docSection := parse.Section(docText, parse.ParameterHeadings)
	if len(params) == 0 && docSection == "" {
		return knowledge.Chunk{}, false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Parameters for %s:\n", displayName)
	for _, p := range params {
		fmt.Fprintf(&b, "- %s (%s)\n", p.Name, p.Type)
	}
	if docSection != "" {
		b.WriteString("\n")
		b.WriteString(docSection)
	}

	base.Section = knowledge.SectionParameters
	base.Content = strings.TrimSpace(b.String())
	return base, true
}

func buildCredentialsChunk(base knowledge.Chunk, displayName, docText string, credentials []string) (knowledge.Chunk, bool) {
	docSection := parse.Section(docText, parse.CredentialHeadings)
	if len(credentials) == 0 && docSection == "" {
		return knowledge.Chunk{}, false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Credentials for %s:\n", displayName)
	for _, cred := range credentials {
		fmt.Fprintf(&b, "- %s\n", cred)
	}
	if docSection != "" {
		b.WriteString("\n")
		b.WriteString(docSection)
	}

	base.Section = knowledge.SectionCredentials
	base.Content = strings.TrimSpace(b.String())
	return base, true
}

func buildExamplesChunk(base knowledge.Chunk, displayName, docText string) (knowledge.Chunk, bool) {
	docSection := parse.Section(docText, parse.ExampleHeadings)
	var blocks []string
	if docSection == "" {
		// No headed section; fall back to the first few fenced code
		// blocks anywhere in the document.
		blocks = parse.CodeBlocks(docText, maxExampleBlocks)
		if len(blocks) == 0 {
			return knowledge.Chunk{}, false
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Examples for %s:\n", displayName)
	if docSection != "" {
		b.WriteString(docSection)
	} else {
		for _, block := range blocks {
			b.WriteString("\n")
			b.WriteString(block)
			b.WriteString("\n")
		}
	}

	base.Section = knowledge.SectionExamples
	base.Content = strings.TrimSpace(b.String())
	return base, true
}
