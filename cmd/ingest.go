package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/app"
	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/config"
	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/log"
)

const timePrecision = 10 * time.Millisecond

// runIngest executes one full ingestion pass and prints the outcome.
func runIngest(logger log.Logger) error {
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

	result := a.Ingest.Run(ctx)

	fmt.Printf("Ingestion finished in %s\n", result.Duration.Round(timePrecision))
	fmt.Printf("  Node types processed:  %d\n", result.DocsProcessed)
	fmt.Printf("  Chunks stored:         %d\n", result.ChunksCreated)
	fmt.Printf("  Templates stored:      %d\n", result.TemplatesProcessed)
	if len(result.Errors) > 0 {
		fmt.Printf("  Errors (%d):\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("    - %s\n", e)
		}
		return fmt.Errorf("ingestion completed with %d errors", len(result.Errors))
	}
	return nil
}
