package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"vantage/internal/engine"
	"vantage/internal/log"
)

var (
	workerRoot  string
	workerTheme string
)

// workerCmd is the child-process entry point: it is spawned by the
// engine, never by a user, and speaks the framed job protocol on its
// stdin/stdout until EOF.
var workerCmd = &cobra.Command{
	Use:    "worker",
	Hidden: true,
	Args:   cobra.NoArgs,
	// Shadows the root's config loading: the parent already resolved
	// everything the worker needs into flags.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries protocol frames; logging goes to stderr where
		// the parent can surface it.
		log.ToWriter(os.Stderr)
		return engine.RunWorker(workerRoot, workerTheme)
	},
}

func init() {
	workerCmd.Flags().StringVar(&workerRoot, "root", ".", "codebase root")
	workerCmd.Flags().StringVar(&workerTheme, "theme", "monokai", "highlighting theme")
	rootCmd.AddCommand(workerCmd)
}
