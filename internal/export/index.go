package export

import (
	"bufio"
	"os"
	"regexp"
	"strings"
)

// Index records the keys and DOIs of entries already present in a .bib file.
type Index struct {
	Keys map[string]bool
	// DOIs maps normalized DOI values to citation keys
	DOIs map[string]string
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		Keys: make(map[string]bool),
		DOIs: make(map[string]string),
	}
}

var (
	entryStartRegex = regexp.MustCompile(`^\s*@\w+\{([^,\s]+),`)
	doiFieldRegex   = regexp.MustCompile(`(?i)^\s*doi\s*=\s*[\{"]([^\}"]+)[\}"]`)
)

// ReadIndex builds an index from an existing .bib file.
// A missing file yields an empty index.
func ReadIndex(path string) (*Index, error) {
	idx := NewIndex()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var currentKey string
	for scanner.Scan() {
		line := scanner.Text()
		if m := entryStartRegex.FindStringSubmatch(line); m != nil {
			currentKey = m[1]
			idx.Keys[currentKey] = true
			continue
		}
		if m := doiFieldRegex.FindStringSubmatch(line); m != nil && currentKey != "" {
			if doi := normalizeDOI(m[1]); doi != "" {
				idx.DOIs[doi] = currentKey
			}
		}
	}
	return idx, scanner.Err()
}

// Add records an entry in the index.
func (idx *Index) Add(e *Entry) {
	idx.Keys[e.Key] = true
	if doi := normalizeDOI(e.Field("doi")); doi != "" {
		idx.DOIs[doi] = e.Key
	}
}

// Has reports whether the entry is already indexed, matching by DOI first and
// citation key second.
func (idx *Index) Has(e *Entry) bool {
	if doi := normalizeDOI(e.Field("doi")); doi != "" {
		if _, ok := idx.DOIs[doi]; ok {
			return true
		}
	}
	return idx.Keys[e.Key]
}

// normalizeDOI strips resolver prefixes and lowercases a DOI.
func normalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "doi.org/", "DOI:", "doi:"} {
		doi = strings.TrimPrefix(doi, prefix)
	}
	return strings.ToLower(strings.TrimSpace(doi))
}

// Filter returns the entries of b not already in idx, adding them to idx as
// it goes so duplicates within b are dropped as well.
func (b *Batch) Filter(idx *Index) *Batch {
	out := &Batch{Skipped: b.Skipped, Warnings: b.Warnings}
	var texts []string
	for _, e := range b.Entries {
		if idx.Has(e) {
			out.Skipped++
			continue
		}
		idx.Add(e)
		out.Entries = append(out.Entries, e)
		texts = append(texts, e.String())
	}
	out.Text = strings.Join(texts, "\n")
	return out
}

// AppendFile appends BibTeX text to path, creating it if needed.
func AppendFile(path, text string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	// Start on a fresh line separated by a blank line.
	_, err = f.WriteString("\n" + text)
	return err
}
