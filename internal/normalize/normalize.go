// Package normalize extracts cleaned scalar values from Zotero records for
// citation key and sort key derivation.
package normalize

import (
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/matsen/zotbib/internal/zotero"
)

// ErrAllStopwords is returned when a title has no token outside the stopword set.
var ErrAllStopwords = errors.New("title has no non-stopword token")

// stopwords are skipped at the start of a title. Keys are lower-case.
var stopwords = map[string]struct{}{
	"a":   {},
	"an":  {},
	"the": {},
	"on":  {},
	"for": {},
}

// dateLayouts are tried in order; the first successful parse wins.
var dateLayouts = []string{
	"January 2 2006",
	"January 2, 2006",
	"January 2006",
	"2006",
	"2006/1/2",
	"2006-1-2",
}

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FirstAuthorName returns the surname of the first creator, or its literal name
// when it has no surname. Records without creators yield "".
func FirstAuthorName(rec zotero.Record) string {
	if len(rec.Creators) == 0 {
		return ""
	}
	first := rec.Creators[0]
	if first.LastName != "" {
		return first.LastName
	}
	return first.Name
}

// StripAccents decomposes s and drops combining marks ("naïve" -> "naive").
func StripAccents(s string) string {
	result, _, err := transform.String(accentStripper, s)
	if err != nil {
		return s
	}
	return result
}

// ParseDateLoose returns the year of the first layout that parses s.
func ParseDateLoose(s string) (int, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Year(), true
		}
	}
	return 0, false
}

// YearOf returns the year of s, falling back to the year of now when s does
// not parse. The boolean reports whether s itself parsed.
func YearOf(s string, now time.Time) (int, bool) {
	if year, ok := ParseDateLoose(s); ok {
		return year, true
	}
	return now.Year(), false
}

// SkipLeadingStopwords returns the first word that is not a stopword.
func SkipLeadingStopwords(words []string) (string, error) {
	for _, w := range words {
		if _, skip := stopwords[strings.ToLower(w)]; !skip {
			return w, nil
		}
	}
	return "", ErrAllStopwords
}

// TitleWords splits an accent-stripped title into whitespace-separated tokens.
func TitleWords(title string) []string {
	return strings.Fields(StripAccents(title))
}

// ExtraLine returns the trimmed first capture group of the first line of extra
// matching pattern. Lines whose capture is blank are ignored.
func ExtraLine(extra string, pattern *regexp.Regexp) (string, bool) {
	for _, line := range strings.Split(extra, "\n") {
		m := pattern.FindStringSubmatch(line)
		if m == nil || len(m) < 2 {
			continue
		}
		if v := strings.TrimSpace(m[1]); v != "" {
			return v, true
		}
	}
	return "", false
}
