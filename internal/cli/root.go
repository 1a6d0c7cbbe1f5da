// Package cli defines the cobra commands of the mock-interview binary.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"mock-interview/internal/config"
	"mock-interview/internal/storage"
)

var version = "dev" // set via ldflags at build time

var rootCmd = &cobra.Command{
	Use:   "mock-interview",
	Short: "AI mock interview session engine",
	Long: `mock-interview runs turn-based mock job interviews.

The server keeps interview sessions, asks an AI interviewer for questions
and evaluations, enforces the monthly free-session quota and aggregates
per-answer scores into a final scorecard. The practice command drives an
interview from the terminal against a running server.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(practiceCmd)
	rootCmd.AddCommand(quotaCmd)
	rootCmd.AddCommand(purgeCmd)
}

// openStore opens the configured session store, creating the sqlite
// directory when needed.
func openStore(cfg *config.AppConfig) (*storage.SQLStore, error) {
	if cfg.Store.Driver == "sqlite" {
		if dir := filepath.Dir(cfg.Store.DatabasePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
	}
	st, err := storage.Open(cfg.Store.Driver, cfg.Store.DatabasePath, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Store.Driver, err)
	}
	return st, nil
}
