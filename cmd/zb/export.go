package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/matsen/zotbib/internal/clipboard"
	"github.com/matsen/zotbib/internal/config"
	"github.com/matsen/zotbib/internal/export"
	"github.com/matsen/zotbib/internal/logging"
	"github.com/matsen/zotbib/internal/storage"
	"github.com/matsen/zotbib/internal/zotero"
)

// exportOptions holds the export command's flags.
type exportOptions struct {
	collection string
	all        bool
	output     string
	dump       string
	input      string
	cache      bool
	offline    bool
	appendOut  bool
	abstract   bool
	strict     bool
	clipboard  bool
	workers    int
}

var exportOpts exportOptions

func init() {
	f := exportCmd.Flags()
	f.StringVarP(&exportOpts.collection, "collection", "c", "", "Export the items of the collection with this key")
	f.BoolVar(&exportOpts.all, "all", false, "Export every item in the library")
	f.StringVarP(&exportOpts.output, "output", "o", "", "Write BibTeX to this file instead of stdout")
	f.StringVar(&exportOpts.dump, "dump", "", "Also write the retrieved items as JSONL to this file")
	f.StringVar(&exportOpts.input, "input", "", "Convert items from a JSONL dump instead of the API")
	f.BoolVar(&exportOpts.cache, "cache", false, "Store retrieved items in the local cache")
	f.BoolVar(&exportOpts.offline, "offline", false, "Read items from the local cache instead of the API")
	f.BoolVar(&exportOpts.appendOut, "append", false, "Append only entries not already in --output (matched by DOI or key)")
	f.BoolVar(&exportOpts.abstract, "abstract", false, "Include abstracts")
	f.BoolVar(&exportOpts.strict, "strict", false, "Fail if any item cannot be converted")
	f.BoolVar(&exportOpts.clipboard, "clipboard", false, "Also copy the BibTeX to the clipboard")
	f.IntVar(&exportOpts.workers, "workers", runtime.NumCPU(), "Number of conversion workers")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a collection or the whole library to BibTeX",
	Long: `Export a collection or the whole library to BibTeX.

Attachments and notes are skipped. Items that cannot be converted are
reported on stderr and left out unless --strict is given.

Examples:
  zb export --group 1234 --collection ABCD1234 > refs.bib
  zb export --id lab --all -o refs.bib --dump items.jsonl
  zb export --id lab --all --cache
  zb export --id lab --collection ABCD1234 --offline
  zb export --input items.jsonl --collection ABCD1234
  zb export --id lab --all -o refs.bib --append
  zb export --id lab --collection ABCD1234 --clipboard > /dev/null`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

// validate checks flag combinations before anything is read.
func (o exportOptions) validate() error {
	switch {
	case o.collection != "" && o.all:
		return errors.New("--collection and --all are mutually exclusive")
	case o.collection == "" && !o.all && o.input == "":
		return errors.New("one of --collection or --all is required")
	case o.input != "" && o.offline:
		return errors.New("--input and --offline are mutually exclusive")
	case o.offline && o.cache:
		return errors.New("--cache has no effect with --offline")
	case o.appendOut && o.output == "":
		return errors.New("--append requires --output")
	}
	return nil
}

// filterCollection keeps records belonging to key; an empty key keeps all.
func filterCollection(recs []zotero.Record, key string) []zotero.Record {
	if key == "" {
		return recs
	}
	var out []zotero.Record
	for _, r := range recs {
		for _, c := range r.Collections {
			if c == key {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

func runExport(cmd *cobra.Command, args []string) error {
	opts := exportOpts
	if err := opts.validate(); err != nil {
		exitWithError(ExitError, "%v", err)
	}
	if opts.clipboard && !clipboard.IsAvailable() {
		exitWithError(ExitError, "--clipboard: no clipboard tool found (pbcopy, wl-copy, xclip or xsel)")
	}

	cfg := mustLoadConfig()
	ctx := cmd.Context()

	var (
		recs []zotero.Record
		lib  zotero.Library
		log  = logger
	)
	// A dump carries no library unless it is also cached.
	if opts.input == "" || opts.cache {
		lib = mustResolveLibrary(cfg)
		log = logging.WithLibrary(logger, lib.String())
	}

	switch {
	case opts.input != "":
		if _, err := os.Stat(opts.input); err != nil {
			exitWithError(ExitDataError, "reading dump: %v", err)
		}
		var err error
		recs, err = storage.ReadRecords(opts.input)
		if err != nil {
			exitWithError(ExitDataError, "reading dump: %v", err)
		}
		recs = filterCollection(recs, opts.collection)
		log.Info().Str("input", opts.input).Int("items", len(recs)).Msg("read dump")

	case opts.offline:
		db := mustOpenCache(cfg)
		var err error
		recs, err = db.List(lib, opts.collection)
		db.Close()
		if err != nil {
			exitWithError(ExitDataError, "reading cache: %v", err)
		}
		log.Info().Int("items", len(recs)).Msg("read cache")

	default:
		client := newClient(cfg, lib)
		var err error
		if opts.all {
			recs, err = client.Items(ctx, progressLogger(log, "items"))
		} else {
			recs, err = client.CollectionItems(ctx, opts.collection, progressLogger(log, "items"))
		}
		if err != nil {
			exitWithAPIError(err)
		}
	}

	if opts.dump != "" {
		if err := storage.WriteRecords(opts.dump, recs); err != nil {
			exitWithError(ExitError, "writing dump: %v", err)
		}
		log.Info().Str("dump", opts.dump).Int("items", len(recs)).Msg("wrote dump")
	}

	cached := 0
	if opts.cache {
		db := mustOpenCache(cfg)
		n, err := db.Upsert(lib, recs)
		db.Close()
		if err != nil {
			exitWithError(ExitError, "updating cache: %v", err)
		}
		cached = n
		log.Info().Int("items", n).Msg("updated cache")
	}

	conv := export.NewConverter()
	conv.IncludeAbstract = opts.abstract || cfg.IncludeAbstract
	batch, failures, err := conv.CollateParallel(ctx, recs, opts.workers)
	if err != nil {
		exitWithError(ExitError, "converting: %v", err)
	}
	reportBatch(log, batch, failures)
	if opts.strict && len(failures) > 0 {
		exitWithError(strictExitCode(failures), "%d item(s) could not be converted", len(failures))
	}

	if opts.clipboard {
		if err := clipboard.Copy(batch.Text); err != nil {
			log.Warn().Err(err).Msg("copying to clipboard")
		} else {
			log.Info().Int("entries", len(batch.Entries)).Msg("copied to clipboard")
		}
	}

	if opts.output == "" {
		fmt.Print(batch.Text)
		return nil
	}

	if opts.appendOut {
		idx, err := export.ReadIndex(opts.output)
		if err != nil {
			exitWithError(ExitError, "reading %s: %v", opts.output, err)
		}
		before := len(batch.Entries)
		batch = batch.Filter(idx)
		log.Info().Int("new", len(batch.Entries)).Int("present", before-len(batch.Entries)).Msg("filtered existing entries")
		if batch.Text != "" {
			if err := export.AppendFile(opts.output, batch.Text); err != nil {
				exitWithError(ExitError, "appending to %s: %v", opts.output, err)
			}
		}
	} else if err := os.WriteFile(opts.output, []byte(batch.Text), 0644); err != nil {
		exitWithError(ExitError, "writing %s: %v", opts.output, err)
	}

	if humanOutput {
		fmt.Printf("Wrote %d entries to %s (%d skipped, %d failed)\n",
			len(batch.Entries), opts.output, batch.Skipped, len(failures))
		return nil
	}
	return outputJSON(ExportResponse{
		Output:   opts.output,
		Entries:  len(batch.Entries),
		Skipped:  batch.Skipped,
		Failed:   len(failures),
		Warnings: batch.Warnings,
		Dump:     opts.dump,
		Cached:   cached,
	})
}

// strictExitCode is ExitDataError when every failure is a malformed record,
// ExitError otherwise.
func strictExitCode(failures []error) int {
	for _, err := range failures {
		if !export.IsMalformed(err) {
			return ExitError
		}
	}
	return ExitDataError
}

// reportBatch logs conversion failures and warnings.
func reportBatch(log zerolog.Logger, batch *export.Batch, failures []error) {
	for _, err := range failures {
		log.Warn().Err(err).Bool("malformed", export.IsMalformed(err)).Msg("skipping item")
	}
	for _, w := range batch.Warnings {
		log.Warn().Msg(w)
	}
	log.Info().
		Int("entries", len(batch.Entries)).
		Int("skipped", batch.Skipped).
		Int("failed", len(failures)).
		Msg("converted")
}

// mustOpenCache opens the SQLite item cache, creating its directory, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenCache(cfg *config.GlobalConfig) *storage.DB {
	path := cfg.ResolveCachePath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		exitWithError(ExitError, "creating cache directory: %v", err)
	}
	db, err := storage.OpenDB(path)
	if err != nil {
		exitWithError(ExitError, "opening cache: %v", err)
	}
	return db
}
