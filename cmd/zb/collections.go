package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/zotbib/internal/logging"
)

func init() {
	rootCmd.AddCommand(collectionsCmd)
}

var collectionsCmd = &cobra.Command{
	Use:   "collections [filter]",
	Short: "List collections in the library",
	Long: `List collections in the library, optionally only those whose name
contains filter (case-insensitive).

Examples:
  zb collections --group 1234
  zb collections --id lab thesis --human`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCollections,
}

func runCollections(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	lib := mustResolveLibrary(cfg)
	client := newClient(cfg, lib)

	filter := ""
	if len(args) == 1 {
		filter = args[0]
	}

	log := logging.WithLibrary(logger, lib.String())
	log.Debug().Str("filter", filter).Msg("listing collections")

	cols, err := client.Collections(cmd.Context(), filter)
	if err != nil {
		exitWithAPIError(err)
	}

	if humanOutput {
		if len(cols) == 0 {
			fmt.Println("No collections found.")
			return nil
		}
		for _, c := range cols {
			fmt.Printf("%s - %s\n", c.Key, c.Name)
		}
		return nil
	}
	if cols == nil {
		return outputJSON([]any{})
	}
	return outputJSON(cols)
}
