// Package commands provides the CLI commands for varlet.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/varlet-dev/varlet/internal/config"
	"github.com/varlet-dev/varlet/internal/configstore"
	"github.com/varlet-dev/varlet/internal/engine"
	"github.com/varlet-dev/varlet/internal/logging"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	printLogs bool
	logLevel  string
	storeDir  string
)

// settings holds the loaded application configuration for the current
// invocation.
var settings = &config.Settings{}

var rootCmd = &cobra.Command{
	Use:   "varlet",
	Short: "varlet - configuration templating engine",
	Long: `varlet resolves {{variable}} placeholders in configuration templates
against layered key/value sources, validates them, and previews the
rendered result.

Run 'varlet serve' to start the headless server editors talk to, or use
'varlet validate' and 'varlet render' directly on files.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A .env next to the working directory may carry VARLET_* settings.
		godotenv.Load()

		if wd, err := os.Getwd(); err == nil {
			if loaded, err := config.Load(wd); err == nil {
				settings = loaded
			}
		}

		level := settings.LogLevel
		if cmd.Flags().Changed("log-level") || level == "" {
			level = logLevel
		}

		cfg := logging.DefaultConfig()
		cfg.Level = logging.ParseLevel(level)
		cfg.Pretty = printLogs
		if !printLogs {
			cfg.LogToFile = true
		}
		logging.Init(cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&printLogs, "print-logs", false, "Print logs to stderr instead of a file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().StringVar(&storeDir, "store-dir", "", "Directory holding the service configuration store")

	rootCmd.SetVersionTemplate(fmt.Sprintf("varlet %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(configCmd)
}

// Execute runs the root command.
func Execute() error {
	defer logging.Close()
	return rootCmd.Execute()
}

// resolveStoreDir returns the directory for the configuration store.
// The --store-dir flag wins over the config file, which wins over the
// default data path.
func resolveStoreDir() (string, error) {
	if storeDir != "" {
		return storeDir, nil
	}
	if settings.StoreDir != "" {
		return settings.StoreDir, nil
	}
	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return "", fmt.Errorf("failed to create data directories: %w", err)
	}
	return paths.StorePath(), nil
}

// newEngine builds an engine backed by the configured store. A source
// list from the config file becomes the initial active list.
func newEngine() (*engine.Engine, error) {
	dir, err := resolveStoreDir()
	if err != nil {
		return nil, err
	}
	eng := engine.New(configstore.NewInDir(dir), nil, nil)
	if len(settings.Sources) > 0 {
		if _, err := eng.UpdateSources(context.Background(), settings.Sources); err != nil {
			return nil, err
		}
	}
	return eng, nil
}
