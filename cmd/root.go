// Package cmd wires the CLI commands: serve (HTTP API), ask (one-shot
// question), ingest (rebuild the knowledge base), and version.
package cmd

import (
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/companyq/companyq/internal/log"
)

var (
	logJSON  bool
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "companyq",
	Short: "companyq - retrieval-augmented company Q&A service",
	Long: `companyq answers questions about the company from an ingested knowledge
base of documents and website content. Run "companyq serve" to expose the
HTTP API, "companyq ingest" to build the knowledge base, or "companyq ask"
for a one-shot question from the terminal.`,
	SilenceUsage: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		// .env is a development convenience; absence is not an error.
		_ = godotenv.Load()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

// newLogger builds the process logger from the persistent flags.
// Unknown level strings fall back to info.
func newLogger() log.Logger {
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return log.New(log.Config{Level: level, JSON: logJSON})
}
