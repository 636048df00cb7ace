package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/companyq/companyq/internal/app"
	"github.com/companyq/companyq/internal/config"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Rebuild the knowledge base from documents and the company website",
	Long: `Ingest loads documents from the configured docs directory, optionally
crawls the configured site URL, splits everything into chunks, and replaces
the contents of the vector store. The embedding configuration is recorded
alongside the index so later runs with a different embedder are refused at
startup instead of silently returning garbage.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runIngest(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if ctx == nil {
		ctx = context.Background()
	}

	logger := newLogger()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	stats, err := a.Ingestor.Reingest(ctx)
	if err != nil {
		return fmt.Errorf("ingesting: %w", err)
	}

	fmt.Printf("Ingestion completed: %d documents, %d chunks in %s\n",
		stats.Documents, stats.Chunks, stats.Elapsed)
	return nil
}
