package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/companyq/companyq/db"
	"github.com/companyq/companyq/internal/answer"
	"github.com/companyq/companyq/internal/config"
	"github.com/companyq/companyq/internal/ingest"
	"github.com/companyq/companyq/internal/knowledge"
	"github.com/companyq/companyq/internal/llm"
	"github.com/companyq/companyq/internal/log"
	"github.com/companyq/companyq/internal/observability"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
//
// Construction is fail-fast: migrations run before the pool is handed out,
// and the knowledge store refuses to come up when documents indexed with a
// different embedder configuration are found.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.otelCleanup = observability.Setup(ctx, cfg.Observability, logger)

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	store, err := provideStore(ctx, pool, embedder, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Store = store

	client, err := llm.New(g, cfg.Provider, cfg.ModelName, logger)
	if err != nil {
		return nil, fmt.Errorf("creating LLM client: %w", err)
	}
	a.LLM = client

	a.Answerer = answer.New(store, client, logger)
	a.Ingestor = ingest.New(store, cfg.DocsDir, cfg.SiteURL, logger)

	return a, nil
}

// provideDBPool runs migrations and creates a PostgreSQL connection pool
// with sensible defaults for connection management.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideGenkit initializes Genkit with the configured provider plugin.
// The local provider (Ollama) requires explicit model and embedder
// registration; the cloud provider (OpenAI) auto-registers on Init.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	switch cfg.Provider {
	case config.ProviderLocal:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g := genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama plugin")
		}
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		logger.Info("initialized genkit with local provider",
			"model", cfg.ModelName, "embedder", cfg.EmbedderModel, "host", cfg.OllamaHost)
		return g, nil

	case config.ProviderCloud:
		g := genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai plugin")
		}
		logger.Info("initialized genkit with cloud provider",
			"model", cfg.ModelName, "embedder", cfg.EmbedderModel)
		return g, nil

	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidProvider, cfg.Provider)
	}
}

// provideEmbedder looks up the embedder registered by the provider plugin.
// Ollama embedders are keyed by server address; OpenAI embedders are
// auto-registered and looked up by model name.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderLocal:
		return ollama.Embedder(g, cfg.OllamaHost)
	default:
		return genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
	}
}

// provideStore creates the knowledge store. Metadata for the configured
// embedder is validated against what the existing index was built with; a
// mismatch is fatal here so the process never serves answers retrieved from
// incompatible vectors.
func provideStore(ctx context.Context, pool *pgxpool.Pool, embedder ai.Embedder, cfg *config.Config, logger log.Logger) (*knowledge.Store, error) {
	var meta knowledge.Metadata
	if cfg.Provider == config.ProviderCloud {
		meta = knowledge.CloudMetadata(cfg.EmbedderModel)
	} else {
		meta = knowledge.LocalMetadata(cfg.EmbedderModel)
	}

	store, err := knowledge.NewStore(ctx, knowledge.NewPgxQuerier(pool), embedder, meta, logger, knowledge.StoreOptions{})
	if err != nil {
		var mismatch *knowledge.MismatchError
		if errors.As(err, &mismatch) {
			return nil, fmt.Errorf("embedding configuration mismatch, refusing to start: %w", err)
		}
		return nil, fmt.Errorf("creating knowledge store: %w", err)
	}
	return store, nil
}
