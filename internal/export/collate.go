package export

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matsen/zotbib/internal/normalize"
	"github.com/matsen/zotbib/internal/zotero"
)

// SkippedSortKey sorts after every real sort key.
const SkippedSortKey = "xxx"

// SortKey returns "{year} {author} {title}" with unavailable parts left out.
// Author and title are accent-stripped and lower-cased but otherwise kept as is.
func SortKey(rec zotero.Record, now time.Time) string {
	if rec.IsSkipped() {
		return SkippedSortKey
	}
	title, err := titleFragment(rec)
	if err != nil {
		// Only reachable with an explicit key override.
		title = ""
	}
	return joinPresent([]string{
		yearString(rec, now),
		strings.ToLower(normalize.StripAccents(normalize.FirstAuthorName(rec))),
		strings.ToLower(title),
	}, " ")
}

// Batch is the collated output for a set of records.
type Batch struct {
	// Text is every entry in sort order, separated by blank lines.
	Text     string
	Entries  []*Entry
	Skipped  int
	Warnings []string
}

// sortable pairs an entry's text with its sort key.
type sortable struct {
	key   string
	entry *Entry
}

// result is the outcome of synthesizing one record.
type result struct {
	entry *Entry
	sort  string
	err   error
}

func (c *Converter) convert(rec zotero.Record, index int, now time.Time) result {
	entry, err := c.synthesizeAt(rec, now)
	if err != nil {
		var recErr *RecordError
		if errors.As(err, &recErr) {
			recErr.Index = index
		}
		return result{err: err}
	}
	if entry == nil {
		return result{}
	}
	return result{entry: entry, sort: SortKey(rec, now)}
}

// Collate converts every record and orders the entries by sort key, keeping
// input order for ties. Records that fail are reported and left out.
func (c *Converter) Collate(records []zotero.Record) (*Batch, []error) {
	now := c.now()
	results := make([]result, len(records))
	for i, rec := range records {
		results[i] = c.convert(rec, i, now)
	}
	return assemble(results)
}

// CollateParallel is Collate with synthesis spread over workers goroutines.
// The output is identical to Collate.
func (c *Converter) CollateParallel(ctx context.Context, records []zotero.Record, workers int) (*Batch, []error, error) {
	if workers < 1 {
		workers = 1
	}
	now := c.now()
	results := make([]result, len(records))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, rec := range records {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = c.convert(rec, i, now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	batch, errs := assemble(results)
	return batch, errs, nil
}

func assemble(results []result) (*Batch, []error) {
	batch := &Batch{}
	var errs []error
	var items []sortable
	for _, r := range results {
		switch {
		case r.err != nil:
			errs = append(errs, r.err)
		case r.entry == nil:
			batch.Skipped++
		default:
			items = append(items, sortable{key: r.sort, entry: r.entry})
		}
	}

	slices.SortStableFunc(items, func(a, b sortable) int {
		return strings.Compare(a.key, b.key)
	})

	texts := make([]string, len(items))
	seen := make(map[string]int, len(items))
	for i, it := range items {
		batch.Entries = append(batch.Entries, it.entry)
		texts[i] = it.entry.String()
		for _, w := range it.entry.Warnings {
			batch.Warnings = append(batch.Warnings, it.entry.Key+": "+w)
		}
		seen[it.entry.Key]++
	}
	for _, e := range batch.Entries {
		if n := seen[e.Key]; n > 1 {
			batch.Warnings = append(batch.Warnings, fmt.Sprintf("%s: citation key used by %d entries", e.Key, n))
			seen[e.Key] = 0
		}
	}
	batch.Text = strings.Join(texts, "\n")
	return batch, errs
}
