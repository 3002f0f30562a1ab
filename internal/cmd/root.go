// Package cmd is the cobra command surface: the root command launches
// the monitor, --info prints the tool matrix, and the hidden worker
// subcommand is the child-process entry point.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"vantage/internal/config"
	"vantage/internal/errors"
	"vantage/internal/log"
	"vantage/internal/tools"
	"vantage/internal/tui"
)

// Exit codes.
const (
	exitOK           = 0
	exitUsage        = 1
	exitCacheCorrupt = 2
	exitFatal        = 3
)

var (
	cfgFile         string
	flagWorkers     int
	flagEditor      string
	flagTheme       string
	flagCompression int
	flagInfo        bool
	flagDebug       bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "vantage [flags] <directory>",
	Short: "Live analyzer grid for a codebase",
	Long: `Vantage watches a directory, runs every applicable analyzer tool on
every file, and shows a live grid of per-(file, tool) results. Reports
are cached under .vantage/ so a restart is instant.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) > 1 {
			return errors.NewApplicationError("expected at most one directory argument",
				errors.InvalidUsage, nil)
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfgFile != "" {
			cfg, err = config.LoadConfigFile(cfgFile)
		} else {
			cfg, err = config.LoadConfig()
		}
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("workers") {
			cfg.Workers = flagWorkers
		}
		if cmd.Flags().Changed("editor") {
			cfg.Editor.Command = flagEditor
		}
		if cmd.Flags().Changed("theme") {
			cfg.Theme.Name = flagTheme
		}
		if cmd.Flags().Changed("compression") {
			cfg.Cache.Compression = flagCompression
		}
		if flagDebug {
			cfg.Log.Debug = true
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		log.SetDebug(cfg.Log.Debug)
		if cfg.Log.File != "" {
			if err := log.ToFile(cfg.Log.File); err != nil {
				return err
			}
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagInfo {
			fmt.Print(tools.NewRegistry(cfg.Theme.Name).InfoMatrix())
			return nil
		}
		if len(args) != 1 {
			return errors.NewApplicationError("a directory to monitor is required",
				errors.InvalidPath, nil)
		}
		root, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			return errors.NewApplicationError(
				fmt.Sprintf("%s is not a directory", args[0]), errors.InvalidPath, err)
		}
		return tui.Run(cfg, root, buildTime())
	},
}

// buildTime approximates when this binary was built from its own mtime;
// the cache uses it to invalidate reports across upgrades.
func buildTime() time.Time {
	self, err := os.Executable()
	if err != nil {
		return time.Time{}
	}
	info, err := os.Stat(self)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

func init() {
	// Flag misuse is a usage error, not an internal failure.
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return errors.NewApplicationError(err.Error(), errors.InvalidUsage, nil)
	})
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/vantage/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "debug logging")
	rootCmd.Flags().IntVarP(&flagWorkers, "workers", "w", 0, "number of analyzer worker processes")
	rootCmd.Flags().StringVarP(&flagEditor, "editor", "e", "", "editor command for the e key")
	rootCmd.Flags().StringVarP(&flagTheme, "theme", "t", "", "syntax highlighting theme")
	rootCmd.Flags().IntVarP(&flagCompression, "compression", "c", 6, "cache compression level (0-9)")
	rootCmd.Flags().BoolVarP(&flagInfo, "info", "i", false, "print the tool/extension matrix and exit")
}

// Execute runs the CLI and maps any failure to an exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "vantage: %v\n", err)
		switch errors.KindOf(err) {
		case errors.CacheCorrupt, errors.CacheForeign:
			return exitCacheCorrupt
		case errors.InvalidConfig, errors.InvalidPath, errors.InvalidUsage:
			return exitUsage
		default:
			return exitFatal
		}
	}
	return exitOK
}
