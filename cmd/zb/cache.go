package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the local item cache",
	Long: `Manage the local SQLite item cache used by export --cache and --offline.

The cache lives at cache_path from the config file, or
$XDG_CACHE_HOME/zb/items.db.`,
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show how many items are cached for the library",
	Args:  cobra.NoArgs,
	RunE:  runCacheInfo,
}

var cacheLoadCmd = &cobra.Command{
	Use:   "load FILE",
	Short: "Replace the library's cached items with a JSONL dump",
	Long: `Replace the library's cached items with the contents of a JSONL dump
written by export --dump.

Example:
  zb cache load --id lab items.jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: runCacheLoad,
}

func init() {
	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheLoadCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheInfo(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	lib := mustResolveLibrary(cfg)
	db := mustOpenCache(cfg)
	defer db.Close()

	n, err := db.Count(lib)
	if err != nil {
		exitWithError(ExitError, "counting cached items: %v", err)
	}

	if humanOutput {
		fmt.Printf("%s: %d cached items in %s\n", lib, n, cfg.ResolveCachePath())
		return nil
	}
	return outputJSON(CacheResponse{Library: lib.String(), Path: cfg.ResolveCachePath(), Items: n})
}

func runCacheLoad(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(args[0]); err != nil {
		exitWithError(ExitDataError, "reading dump: %v", err)
	}
	cfg := mustLoadConfig()
	lib := mustResolveLibrary(cfg)
	db := mustOpenCache(cfg)
	defer db.Close()

	n, err := db.RebuildFromJSONL(lib, args[0])
	if err != nil {
		exitWithError(ExitDataError, "loading %s: %v", args[0], err)
	}
	logger.Info().Str("library", lib.String()).Int("items", n).Msg("loaded cache")

	if humanOutput {
		fmt.Printf("Loaded %d items for %s\n", n, lib)
		return nil
	}
	return outputJSON(CacheResponse{Library: lib.String(), Path: cfg.ResolveCachePath(), Items: n})
}
