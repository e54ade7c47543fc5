package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/foldertalk/foldertalk/internal/config"
	"github.com/foldertalk/foldertalk/internal/logger"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "foldertalk",
	Short: "Chat with an assistant about a folder's contents",
	Long: `foldertalk holds a multi-turn conversation with a remote assistant
service about a folder. Responses stream token by token, history survives
restarts in a human-readable markdown log, and stale context is archived
instead of silently overwritten.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logger.LevelFromEnv()
		if verbose {
			level = logger.LevelDebug
		}
		logger.Configure(level, verbose)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return cfg, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
