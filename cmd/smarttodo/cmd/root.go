// Package cmd implements the smarttodo terminal client. Every command
// works against the local SQLite store first; edits are pushed to the
// server in the background through the sync orchestrator.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/smarttodo/sync/internal/client/api"
	"github.com/smarttodo/sync/internal/client/store"
	clientsync "github.com/smarttodo/sync/internal/client/sync"
)

var (
	serverURL string
	dbPath    string
	verbose   bool

	orch *clientsync.Orchestrator
)

var rootCmd = &cobra.Command{
	Use:           "smarttodo",
	Short:         "Local-first task manager that syncs across devices",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		st, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		orch, err = clientsync.New(st, api.New(serverURL))
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		// Fire any pending debounced push before the process exits.
		if orch != nil {
			return orch.Flush()
		}
		return nil
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server",
		envOr("SMARTTODO_SERVER", "http://localhost:3000"), "sync server base URL")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db",
		envOr("SMARTTODO_DB", defaultDBPath()), "local database path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "smarttodo.db"
	}
	return filepath.Join(home, ".smarttodo", "smarttodo.db")
}

func requireSession() error {
	if orch.Session() == nil {
		return fmt.Errorf("not logged in (run: smarttodo login)")
	}
	return nil
}
