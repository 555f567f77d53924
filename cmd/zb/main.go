// Package main provides the zb CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/matsen/zotbib/internal/config"
	"github.com/matsen/zotbib/internal/logging"
	"github.com/matsen/zotbib/internal/zotero"
)

// Version is set at build time via ldflags
var Version = "dev"

// Persistent flags shared by every command.
var (
	humanOutput bool
	apiKeyFlag  string
	userFlag    string
	groupFlag   string
	idFlag      string
	limitFlag   int
	logLevel    string
	logFormat   string
)

// logger is configured in PersistentPreRun once flags and config are known.
var logger = zerolog.Nop()

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "zb",
	Short: "Export Zotero libraries to BibTeX",
	Long: `zb reads items from a Zotero user or group library and writes them as BibTeX.

Citation keys are {author}_{title}_{year}, or the value of a "bibtex: KEY"
line in the item's Extra field. Entries are sorted by year, author and title.

The library comes from --user or --group, or from a named identity in
~/.config/zb/config.yml (--id, falling back to default_identity).
The API key comes from --key, ZOTERO_API_KEY (a .env file is read), or api_key.

Commands other than export print JSON by default; use --human for text.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

func init() {
	// Load .env file if present (for ZOTERO_API_KEY)
	_ = godotenv.Load()

	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	flags.StringVar(&apiKeyFlag, "key", "", "Zotero API key (https://www.zotero.org/settings/keys)")
	flags.StringVar(&userFlag, "user", "", "Zotero user ID")
	flags.StringVar(&groupFlag, "group", "", "Zotero group ID")
	flags.StringVar(&idFlag, "id", "", "Identity name from the identities table in the config file")
	flags.IntVar(&limitFlag, "limit", 0, fmt.Sprintf("Items per request, at most %d (default %d)", zotero.MaxPageSize, config.DefaultLimit))
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error, quiet (default info)")
	flags.StringVar(&logFormat, "log-format", "console", "Log format: console or json")
	rootCmd.MarkFlagsMutuallyExclusive("user", "group", "id")
	rootCmd.Version = Version
}

func setupLogging(cmd *cobra.Command, args []string) error {
	level := logLevel
	if level == "" {
		if cfg, err := config.LoadGlobalConfig(); err == nil {
			level = cfg.LogLevel
		}
	}
	logger = logging.NewLogger(loggingConfig(level, logFormat))
	return nil
}

// loggingConfig overlays the non-empty flag values on the default logging config.
func loggingConfig(level, format string) logging.LoggingConfig {
	cfg := logging.DefaultLoggingConfig()
	if level != "" {
		cfg.Level = level
	}
	if format != "" {
		cfg.Format = format
	}
	return cfg
}

// mustLoadConfig loads the global configuration, exits on error.
func mustLoadConfig() *config.GlobalConfig {
	cfg, err := config.LoadGlobalConfig()
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

// mustResolveLibrary picks the library from flags and config, exits on error.
func mustResolveLibrary(cfg *config.GlobalConfig) zotero.Library {
	lib, err := config.ResolveLibrary(cfg, userFlag, groupFlag, idFlag)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return lib
}

// resolveLimit returns the page size from the flag, then config, then the default.
func resolveLimit(flag int, cfg *config.GlobalConfig) int {
	limit := flag
	if limit <= 0 && cfg != nil {
		limit = cfg.Limit
	}
	if limit <= 0 {
		limit = config.DefaultLimit
	}
	if limit > zotero.MaxPageSize {
		logger.Warn().Int("limit", limit).Msgf("limit capped at %d", zotero.MaxPageSize)
		limit = zotero.MaxPageSize
	}
	return limit
}

// newClient builds a Zotero client for lib using the resolved key and limit.
func newClient(cfg *config.GlobalConfig, lib zotero.Library) *zotero.Client {
	opts := []zotero.ClientOption{zotero.WithPageSize(resolveLimit(limitFlag, cfg))}
	key := apiKeyFlag
	if key == "" {
		key = cfg.ResolveAPIKey()
	}
	if key != "" {
		opts = append(opts, zotero.WithAPIKey(key))
	}
	return zotero.NewClient(lib, opts...)
}

// progressLogger reports retrieval progress at info level.
func progressLogger(log zerolog.Logger, what string) zotero.ProgressFunc {
	return func(done, total int) {
		ev := log.Info().Int("done", done)
		if total > 0 {
			ev = ev.Int("total", total)
		}
		ev.Msg("reading " + what)
	}
}
