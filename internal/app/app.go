// Package app provides application initialization and dependency wiring.
//
// App is the container holding every long-lived component: the Genkit
// instance with its provider plugins, the database pool, the knowledge store,
// the LLM client, the answering pipeline, and the ingestor. Setup builds them
// in dependency order and Close releases them in reverse.
package app

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/companyq/companyq/internal/answer"
	"github.com/companyq/companyq/internal/config"
	"github.com/companyq/companyq/internal/ingest"
	"github.com/companyq/companyq/internal/knowledge"
	"github.com/companyq/companyq/internal/llm"
	"github.com/companyq/companyq/internal/log"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool
	Store    *knowledge.Store
	LLM      llm.Client
	Answerer *answer.Answerer
	Ingestor *ingest.Ingestor

	otelCleanup func()
}

// Close gracefully shuts down all resources.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.DBPool != nil {
		a.DBPool.Close()
	}

	if a.otelCleanup != nil {
		a.otelCleanup()
	}

	return nil
}
