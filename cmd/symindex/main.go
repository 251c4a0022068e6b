package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/symindex/internal/config"
	"github.com/dshills/symindex/internal/logging"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "symindex",
	Short: "Incremental declaration and definition index for source trees",
	Long: `symindex keeps a per-project index of declared and defined symbol names.
Projects are rescanned in the background when they change, and only files
whose modification time moved are parsed again.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ./symindex.yaml or ~/.symindex/symindex.yaml)")
}

// loadConfig loads the configuration and a stderr logger at its level
func loadConfig() (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	// stdout is reserved for MCP protocol and command output
	logger := logging.New(os.Stderr, logging.LevelFromString(cfg.LogLevel))
	return cfg, logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
