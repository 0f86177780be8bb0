package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/app"
	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/config"
	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/log"
)

// runNodes prints every stored section for one node type. Bare names are
// expanded with the standard package prefix, so "slack" works too.
func runNodes(logger log.Logger, args []string) error {
	if len(args) < 1 || strings.TrimSpace(args[0]) == "" {
		return fmt.Errorf("usage: n8n-rag nodes <node-type>")
	}
	nodeType := strings.TrimSpace(args[0])
	if !strings.Contains(nodeType, ".") {
		nodeType = "n8n-nodes-base." + nodeType
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	chunks, err := a.Knowledge.ChunksByNodeType(ctx, nodeType)
	if err != nil {
		return fmt.Errorf("looking up %s: %w", nodeType, err)
	}
	if len(chunks) == 0 {
		fmt.Printf("No documentation stored for %s. Run `n8n-rag ingest` first.\n", nodeType)
		return nil
	}

	info := a.Resolver.Resolve(ctx, nodeType)
	fmt.Printf("%s (%s)\n", info.DisplayName, nodeType)
	if info.Category != "" {
		fmt.Printf("Category: %s\n", info.Category)
	}
	fmt.Println()
	for _, c := range chunks {
		fmt.Printf("## %s\n%s\n\n", c.Section, c.Content)
	}
	return nil
}
