package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/symindex/internal/mcp"
	"github.com/dshills/symindex/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdio",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	logger.Logf("main", "symindex v%s starting (build mode: %s, driver: %s)",
		version, storage.BuildMode, storage.DriverName)

	server, err := mcp.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		logger.Logf("main", "MCP server ready, listening on stdio...")
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		logger.Logf("main", "Received signal %v, shutting down gracefully...", sig)
		cancel()
		_ = server.Close()
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Logf("main", "Server stopped")
	return nil
}
