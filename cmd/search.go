package cmd

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/app"
	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/config"
	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/knowledge"
	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/log"
)

// Search defaults. Results below the similarity floor are never shown.
const (
	defaultSearchLimit      = 5
	defaultMinSimilarity    = 0.3
	searchResultPreviewSize = 240
)

// runSearch performs a semantic search over node chunks or, with -t, over
// workflow templates.
func runSearch(logger log.Logger, args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	templatesMode := fs.Bool("t", false, "search workflow templates instead of node documentation")
	limit := fs.Int("limit", defaultSearchLimit, "maximum number of results")
	minSim := fs.Float64("min-similarity", defaultMinSimilarity, "similarity floor, results at or below are dropped")
	if err := fs.Parse(args); err != nil {
		return err
	}
	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		return fmt.Errorf("usage: n8n-rag search [-t] [-limit N] [-min-similarity F] <query>")
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

	if *templatesMode {
		return searchTemplates(ctx, a, query, *limit, float32(*minSim))
	}
	return searchChunks(ctx, a, query, *limit, float32(*minSim))
}

func searchChunks(ctx context.Context, a *app.App, query string, limit int, minSim float32) error {
	results, err := a.Knowledge.FindRelevantChunks(ctx, query, limit, minSim)
	if err != nil {
		return fmt.Errorf("searching documentation: %w", err)
	}
	if len(results) == 0 {
		fmt.Println("No matching documentation found.")
		return nil
	}
	for i, r := range results {
		info := a.Resolver.Resolve(ctx, r.NodeType)
		fmt.Printf("%d. %s (%s) [%s] similarity %.3f\n", i+1, info.DisplayName, r.NodeType, r.Section, r.Similarity)
		fmt.Printf("   %s\n\n", preview(r.Content))
	}
	return nil
}

func searchTemplates(ctx context.Context, a *app.App, query string, limit int, minSim float32) error {
	results, err := a.Knowledge.FindRelevantTemplates(ctx, query, limit, minSim)
	if err != nil {
		return fmt.Errorf("searching templates: %w", err)
	}
	if len(results) == 0 {
		fmt.Println("No matching templates found.")
		return nil
	}
	for i, r := range results {
		fmt.Printf("%d. %s (template %d) similarity %.3f\n", i+1, r.Name, r.TemplateID, r.Similarity)
		if len(r.NodeTypes) > 0 {
			fmt.Printf("   nodes: %s\n", strings.Join(r.NodeTypes, ", "))
		}
		fmt.Printf("   %s\n\n", preview(r.Description))
	}
	return nil
}

// preview flattens a content block to one line and truncates it for
// terminal display.
func preview(s string) string {
	return knowledge.Truncate(strings.Join(strings.Fields(s), " "), searchResultPreviewSize)
}
