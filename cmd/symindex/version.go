package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/symindex/internal/mcp"
	"github.com/dshills/symindex/internal/storage"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s MCP server\n", mcp.ServerName)
		fmt.Fprintf(out, "Version: %s\n", version)
		fmt.Fprintf(out, "Build Time: %s\n", buildTime)
		fmt.Fprintf(out, "Build Mode: %s\n", storage.BuildMode)
		fmt.Fprintf(out, "SQLite Driver: %s\n", storage.DriverName)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
