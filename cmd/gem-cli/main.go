package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gem-finder/internal/common/config"
	"gem-finder/internal/common/logger"
)

var (
	configPath string
	verbose    bool

	zapLog *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "gem-cli",
	Short: "Find hidden outdoor gems from the terminal",
	Long: `gem-cli drives the hidden-gem pipeline without the HTTP server.

Use "chat" for an interactive session, or "decode" to run the resilient
decoder over saved model output.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "warn"
		if verbose {
			level = "debug"
		}
		zapLog = logger.New(level, "console")
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if zapLog != nil {
			_ = zapLog.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a config file (default: ./configs/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(chatCmd, decodeCmd)
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
