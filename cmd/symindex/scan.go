package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dshills/symindex/internal/index"
	"github.com/dshills/symindex/internal/scanner"
	"github.com/dshills/symindex/pkg/types"
)

var scanCmd = &cobra.Command{
	Use:   "scan <dir>",
	Short: "Scan a directory once and print its indexes",
	Long: `Scan a directory once with the configured parser strategies and print the
declaration and definition indexes. Nothing is stored.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringSlice("extra", nil, "additional directory to scan (repeatable)")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	extra, _ := cmd.Flags().GetStringSlice("extra")

	root, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	table, err := cfg.StrategyTable(logger)
	if err != nil {
		return err
	}
	sc := scanner.New(table, logger, &scanner.Config{
		Workers:          cfg.Workers,
		RespectGitignore: cfg.RespectGitignore,
	})

	res, err := sc.Scan(cmd.Context(), scanner.Request{
		Project: types.Project{Root: root, ExtraDirs: extra},
	})
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	decls, defs := index.Build(res.Snapshot)
	out := cmd.OutOrStdout()
	for _, line := range index.DumpLines("Declarations", decls) {
		fmt.Fprintln(out, line)
	}
	for _, line := range index.DumpLines("Definitions", defs) {
		fmt.Fprintln(out, line)
	}

	logger.Logf("main", "Scanned %d files (%d failed), %d items in %s",
		res.Stats.FilesSeen, res.Stats.FilesFailed, res.Stats.ItemsFound, res.Stats.Duration)
	return nil
}
