// Package app wires the application together: configuration, database
// pool, Genkit embedder, knowledge store, and the ingestion service are
// created once in Setup and shared through the App container.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/config"
	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/ingest"
	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/knowledge"
)

// App is the application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	Knowledge *knowledge.Store
	Resolver  *knowledge.Resolver
	Ingest    *ingest.Service
}

// Close releases held resources. Safe to call on a partially built App.
func (a *App) Close() error {
	if a.DBPool != nil {
		a.DBPool.Close()
		if a.Logger != nil {
			a.Logger.Info("database pool closed")
		}
	}
	return nil
}
