package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/app"
	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/config"
	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/knowledge"
	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/log"
)

// runStatus prints the most recent sync ledger entry for each source.
func runStatus(logger log.Logger) error {
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

	for _, source := range []string{knowledge.SourceDocumentation, knowledge.SourceTemplates} {
		run, err := a.Knowledge.LatestRun(ctx, source)
		if err != nil {
			return fmt.Errorf("reading ledger for %s: %w", source, err)
		}
		if run == nil {
			fmt.Printf("%-14s never ingested\n", source)
			continue
		}
		fmt.Printf("%-14s %s  processed=%d  at %s\n", source, run.Status, run.Processed, run.CreatedAt.Format("2006-01-02 15:04:05"))
		if run.Error != "" {
			fmt.Printf("               last error: %s\n", run.Error)
		}
	}
	return nil
}
