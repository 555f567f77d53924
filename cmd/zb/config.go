package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/matsen/zotbib/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved configuration",
	Long: `Show the resolved configuration: the config file in use, its contents
with the API key redacted, the library the current flags select, and where
the API key comes from.

Example ~/.config/zb/config.yml:
  api_key: abcdef123456
  default_identity: lab
  identities:
    lab: group 1234
    me: user 42
  limit: 100
  include_abstract: false
  log_level: info`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

// keySource names where the API key comes from.
func keySource(flag string, cfg *config.GlobalConfig) string {
	switch {
	case flag != "":
		return "flag"
	case os.Getenv(config.APIKeyEnv) != "":
		return "environment"
	case cfg.APIKey != "":
		return "config"
	}
	return "none"
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()

	resp := ConfigResponse{
		Path:      config.GlobalConfigPath(),
		Config:    cfg.Redacted(),
		CachePath: cfg.ResolveCachePath(),
		KeySource: keySource(apiKeyFlag, cfg),
	}
	if lib, err := config.ResolveLibrary(cfg, userFlag, groupFlag, idFlag); err == nil {
		resp.Library = lib.String()
	}

	if !humanOutput {
		return outputJSON(resp)
	}

	fmt.Printf("config:     %s\n", resp.Path)
	fmt.Printf("library:    %s\n", orNone(resp.Library))
	fmt.Printf("api key:    %s (%s)\n", orNone(resp.Config.APIKey), resp.KeySource)
	fmt.Printf("cache:      %s\n", resp.CachePath)
	fmt.Printf("limit:      %d\n", resolveLimit(limitFlag, cfg))
	if len(cfg.Identities) > 0 {
		names := make([]string, 0, len(cfg.Identities))
		for name := range cfg.Identities {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Println("identities:")
		for _, name := range names {
			marker := " "
			if name == cfg.DefaultIdentity {
				marker = "*"
			}
			fmt.Printf("  %s %s: %s\n", marker, name, cfg.Identities[name])
		}
	}
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
