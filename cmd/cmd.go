// Package cmd provides the CLI commands for the n8n knowledge base.
//
// Commands:
//   - ingest: run one full ingestion pass (documentation + templates)
//   - search: semantic search over node documentation or templates
//   - nodes:  exact lookup of all stored sections for one node type
//   - status: show the latest sync ledger entry per source
//
// All long-running commands install signal handlers and shut down via
// context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/log"
)

// Execute is the entry point for the CLI.
func Execute() error {
	logger := log.New(log.Config{Level: logLevel()})

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "ingest":
		return runIngest(logger)
	case "search":
		return runSearch(logger, os.Args[2:])
	case "nodes":
		return runNodes(logger, os.Args[2:])
	case "status":
		return runStatus(logger)
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

func logLevel() slog.Level {
	if os.Getenv("DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func runHelp() {
	fmt.Println("n8n-rag - knowledge base for n8n nodes and workflow templates")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  n8n-rag ingest               Fetch, embed and store docs and templates")
	fmt.Println("  n8n-rag search <query>       Semantic search over node documentation")
	fmt.Println("  n8n-rag search -t <query>    Semantic search over workflow templates")
	fmt.Println("  n8n-rag nodes <node-type>    Show stored sections for one node type")
	fmt.Println("  n8n-rag status               Show the latest ingestion run per source")
	fmt.Println("  n8n-rag --version            Show version information")
	fmt.Println("  n8n-rag --help               Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  OPENAI_API_KEY      API key for the openai embedding provider")
	fmt.Println("  GEMINI_API_KEY      API key for the gemini embedding provider")
	fmt.Println("  DATABASE_URL        PostgreSQL connection URL (overrides config)")
	fmt.Println("  N8N_RAG_*           Any config key, e.g. N8N_RAG_GITHUB_TOKEN")
	fmt.Println("  DEBUG               Enable debug logging")
}
