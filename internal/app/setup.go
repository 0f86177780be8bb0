package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/db"
	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/config"
	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/database"
	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/github"
	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/ingest"
	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/knowledge"
	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/log"
	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/templates"
)

// Setup creates and initializes the application. Call Close on the
// returned App to release resources.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = log.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, release everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	g, err := provideGenkit(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	queries := knowledge.NewQueries(pool)
	store := knowledge.NewStore(queries, knowledge.NewEmbedder(embedder, 0), logger)
	a.Knowledge = store
	a.Resolver = knowledge.NewResolver(store)

	a.Ingest = provideIngest(cfg, store, embedder, logger)

	return a, nil
}

// provideDBPool runs pending migrations and opens the connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := database.Open(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// provideGenkit initializes Genkit with the configured embedding provider.
func provideGenkit(ctx context.Context, cfg *config.Config) (*genkit.Genkit, error) {
	var g *genkit.Genkit

	switch cfg.Provider {
	case config.ProviderGemini:
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
	default: // openai
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
	}

	return g, nil
}

// provideEmbedder looks up the embedder registered by the provider plugin.
// Gemini registers through a helper; OpenAI auto-registers in Init and is
// looked up by model name.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderGemini:
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	default: // openai
		return genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
	}
}

// provideIngest assembles the ingestion service from the two source
// clients and the shared store.
func provideIngest(cfg *config.Config, store *knowledge.Store, embedder ai.Embedder, logger log.Logger) *ingest.Service {
	repos := github.New(cfg.GitHubToken, logger)

	tmpl := templates.New(templates.Config{
		BaseURL:  cfg.TemplatesBaseURL,
		Category: cfg.TemplateCategory,
		Pages:    cfg.TemplatePages,
		Rows:     cfg.TemplateRows,
		Workers:  cfg.TemplateWorkers,
	}, logger)

	return ingest.New(ingest.Config{
		DocsRepo:   cfg.DocsRepo,
		SourceRepo: cfg.SourceRepo,
		DocWorkers: cfg.DocWorkers,
	}, repos, tmpl, knowledge.NewEmbedder(embedder, 0), store, logger)
}
