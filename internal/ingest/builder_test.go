package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/knowledge"
	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/parse"
)

func sectionsOf(chunks []knowledge.Chunk) []knowledge.Section {
	sections := make([]knowledge.Section, len(chunks))
	for i, c := range chunks {
		sections[i] = c.Section
	}
	return sections
}

func TestBuildNodeChunks(t *testing.T) {
	t.Run("doc with parameters and examples yields three chunks", func(t *testing.T) {
		doc := `# HTTP Request

Make HTTP requests to any URL.

## Parameters

- URL: the request target
- Method: GET, POST, ...

## Examples

Fetch a page:

` + "```json\n{\"url\": \"https://example.com\"}\n```\n"

		chunks := BuildNodeChunks("n8n-nodes-base.httpRequest", doc, nil)
		require.Len(t, chunks, 3)
		assert.Equal(t, []knowledge.Section{
			knowledge.SectionOverview,
			knowledge.SectionParameters,
			knowledge.SectionExamples,
		}, sectionsOf(chunks), "no credentials input means no credentials chunk")
	})

	t.Run("overview carries mined source metadata", func(t *testing.T) {
		src := &parse.NodeInfo{
			DisplayName: "Slack",
			Description: "Consume Slack API",
			Version:     2.2,
			Category:    "output",
			Credentials: []string{"slackApi"},
		}
		chunks := BuildNodeChunks("n8n-nodes-base.slack", "", src)
		require.NotEmpty(t, chunks)

		overview := chunks[0]
		assert.Equal(t, knowledge.SectionOverview, overview.Section)
		assert.Equal(t, "Slack", overview.DisplayName)
		assert.InDelta(t, 2.2, overview.NodeVersion, 0.001)
		assert.Contains(t, overview.Content, "Node: Slack (n8n-nodes-base.slack)")
		assert.Contains(t, overview.Content, "Version: 2.2")
		assert.Contains(t, overview.Content, "Description: Consume Slack API")
		assert.Contains(t, overview.Content, "Credentials: slackApi")
	})

	t.Run("credentials chunk from source only", func(t *testing.T) {
		src := &parse.NodeInfo{Credentials: []string{"slackApi", "slackOAuth2Api"}}
		chunks := BuildNodeChunks("n8n-nodes-base.slack", "", src)

		sections := sectionsOf(chunks)
		require.Contains(t, sections, knowledge.SectionCredentials)
		for _, c := range chunks {
			if c.Section == knowledge.SectionCredentials {
				assert.Contains(t, c.Content, "- slackApi")
				assert.Contains(t, c.Content, "- slackOAuth2Api")
			}
		}
	})

	t.Run("examples fall back to code blocks without a headed section", func(t *testing.T) {
		doc := "# Code\n\nRun JavaScript.\n\n```js\nreturn items;\n```\n"
		chunks := BuildNodeChunks("n8n-nodes-base.code", doc, nil)

		sections := sectionsOf(chunks)
		require.Contains(t, sections, knowledge.SectionExamples)
		for _, c := range chunks {
			if c.Section == knowledge.SectionExamples {
				assert.Contains(t, c.Content, "return items;")
			}
		}
	})

	t.Run("derived display name when source has none", func(t *testing.T) {
		chunks := BuildNodeChunks("n8n-nodes-base.googleSheets", "Spreadsheet automation.", nil)
		require.NotEmpty(t, chunks)
		assert.Equal(t, "Google Sheets", chunks[0].DisplayName)
	})

	t.Run("every chunk respects the content bound", func(t *testing.T) {
		long := strings.Repeat("parameter details ", 500)
		doc := "# Node\n\nintro\n\n## Parameters\n\n" + long + "\n\n## Examples\n\n" + long
		chunks := BuildNodeChunks("n8n-nodes-base.set", doc, nil)
		require.NotEmpty(t, chunks)
		for _, c := range chunks {
			assert.LessOrEqual(t, len(c.Content), knowledge.MaxContentLength,
				"section %s exceeds bound", c.Section)
		}
	})

	t.Run("nil on empty inputs", func(t *testing.T) {
		assert.Nil(t, BuildNodeChunks("n8n-nodes-base.slack", "", nil))
	})

	t.Run("operations mined from doc headings", func(t *testing.T) {
		doc := "# Slack\n\nintro\n\n## Operations\n\n- Send a message\n- Archive a channel\n"
		chunks := BuildNodeChunks("n8n-nodes-base.slack", doc, nil)
		require.NotEmpty(t, chunks)
		assert.Equal(t, []string{"Send a message", "Archive a channel"}, chunks[0].Operations)
	})
}
