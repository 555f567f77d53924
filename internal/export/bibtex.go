// Package export converts Zotero records to BibTeX entries.
package export

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/matsen/zotbib/internal/normalize"
	"github.com/matsen/zotbib/internal/zotero"
)

// entryTypes maps Zotero item types to BibTeX entry types.
// Anything not listed becomes misc.
var entryTypes = map[string]string{
	"journalArticle":  "article",
	"conferencePaper": "inproceedings",
	"bookSection":     "incollection",
	"book":            "book",
	"thesis":          "mastersthesis",
}

// DefaultEntryType is used for item types without a dedicated mapping.
const DefaultEntryType = "misc"

var (
	keyOverridePattern = regexp.MustCompile(`^bibtex:[ \t]*(.+)`)
	doiExtraPattern    = regexp.MustCompile(`^[dD][oO][iI]:[ \t]*(.+)`)
)

// Field is a single BibTeX field with its already-formatted value.
type Field struct {
	Name  string
	Value string
}

// Entry is a BibTeX entry built from one record.
type Entry struct {
	Type     string
	Key      string
	Fields   []Field
	Warnings []string
}

// Field returns the value of the named field, or "" if not present.
func (e *Entry) Field(name string) string {
	for _, f := range e.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// String renders the entry as BibTeX text ending in a newline.
func (e *Entry) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "@%s{%s,\n", e.Type, e.Key)
	for _, f := range e.Fields {
		fmt.Fprintf(&b, "  %s = {%s},\n", f.Name, f.Value)
	}
	b.WriteString("}\n")
	return b.String()
}

// Converter turns records into BibTeX entries.
type Converter struct {
	// Now supplies the year used for dates that do not parse.
	Now func() time.Time
	// IncludeAbstract emits abstractNote as an abstract field.
	IncludeAbstract bool
}

// NewConverter returns a Converter using the wall clock.
func NewConverter() *Converter {
	return &Converter{Now: time.Now}
}

func (c *Converter) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// EntryType returns the BibTeX entry type for a Zotero item type.
func EntryType(itemType string) string {
	if t, ok := entryTypes[itemType]; ok {
		return t
	}
	return DefaultEntryType
}

// Synthesize converts one record. Attachments and notes return (nil, nil).
func (c *Converter) Synthesize(rec zotero.Record) (*Entry, error) {
	return c.synthesizeAt(rec, c.now())
}

func (c *Converter) synthesizeAt(rec zotero.Record, now time.Time) (*Entry, error) {
	if rec.ItemType == "" {
		return nil, newRecordError(rec, -1, fmt.Errorf("%w: missing itemType", ErrMalformedRecord))
	}
	if rec.IsSkipped() {
		return nil, nil
	}

	key, err := CitationKey(rec, now)
	if err != nil {
		return nil, newRecordError(rec, -1, err)
	}

	entry := &Entry{Type: EntryType(rec.ItemType), Key: key}
	if rec.Has("date") {
		if _, ok := normalize.ParseDateLoose(rec.Date); !ok {
			entry.Warnings = append(entry.Warnings,
				fmt.Sprintf("unparseable date %q, using year %d", rec.Date, now.Year()))
		}
	}

	for _, rule := range c.rules() {
		value, ok := rule.resolve(rec, now)
		if !ok {
			continue
		}
		entry.Fields = append(entry.Fields, Field{Name: rule.name(rec), Value: value})
	}
	return entry, nil
}

// CitationKey returns the explicit "bibtex:" key from extra if one exists,
// otherwise {author}_{title}_{year} with unavailable parts left out.
func CitationKey(rec zotero.Record, now time.Time) (string, error) {
	if key, ok := normalize.ExtraLine(rec.Extra, keyOverridePattern); ok {
		return key, nil
	}

	title, err := titleFragment(rec)
	if err != nil {
		return "", err
	}
	parts := []string{
		keepRunes(strings.ReplaceAll(strings.ToLower(normalize.StripAccents(normalize.FirstAuthorName(rec))), " ", "_"),
			func(r rune) bool { return unicode.IsLetter(r) || r == '_' }),
		keepRunes(strings.ToLower(title),
			func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }),
		yearString(rec, now),
	}
	return joinPresent(parts, "_"), nil
}

// titleFragment returns the accent-stripped first non-stopword title token,
// or "" when the record has no title.
func titleFragment(rec zotero.Record) (string, error) {
	words := normalize.TitleWords(rec.Title)
	if len(words) == 0 {
		return "", nil
	}
	word, err := normalize.SkipLeadingStopwords(words)
	if err != nil {
		return "", fmt.Errorf("%w: title %q: %v", ErrMalformedRecord, rec.Title, err)
	}
	return word, nil
}

func yearString(rec zotero.Record, now time.Time) string {
	if !rec.Has("date") {
		return ""
	}
	year, _ := normalize.YearOf(rec.Date, now)
	return strconv.Itoa(year)
}

func keepRunes(s string, keep func(rune) bool) string {
	return strings.Map(func(r rune) rune {
		if keep(r) {
			return r
		}
		return -1
	}, s)
}

// joinPresent joins the non-empty parts with sep.
func joinPresent(parts []string, sep string) string {
	var present []string
	for _, p := range parts {
		if p != "" {
			present = append(present, p)
		}
	}
	return strings.Join(present, sep)
}

// AuthorList formats creators of the given type as a BibTeX name list.
// Creators without a creatorType count as authors.
func AuthorList(creators []zotero.Creator, creatorType string) string {
	var names []string
	for _, c := range creators {
		if creatorType != "" && c.Type() != creatorType {
			continue
		}
		names = append(names, formatCreator(c))
	}
	return strings.Join(names, " and ")
}

// authors returns the author list, or every creator when none is an author.
func authors(creators []zotero.Creator) string {
	if list := AuthorList(creators, zotero.DefaultCreatorType); list != "" {
		return list
	}
	return AuthorList(creators, "")
}

// formatCreator renders one name with its parts LaTeX-escaped. "et al."
// becomes the BibTeX token others.
func formatCreator(c zotero.Creator) string {
	if c.IsLiteral() {
		if c.Name == "et al." {
			return "others"
		}
		return "{" + EscapeLatex(c.Name) + "}"
	}
	last, first := EscapeLatex(c.LastName), EscapeLatex(c.FirstName)
	switch {
	case last != "" && first != "":
		return last + ", " + first
	case last != "":
		return last
	default:
		return first
	}
}

// EscapeLatex escapes the characters BibTeX output cannot carry literally.
func EscapeLatex(s string) string {
	return latexReplacer.Replace(s)
}

var latexReplacer = strings.NewReplacer(
	"\u2013", "--",
	"&", `\&`,
	"%", `\%`,
	"#", `\#`,
)

// doublePageHyphens turns each lone hyphen into "--", leaving existing
// double hyphens alone.
func doublePageHyphens(s string) string {
	var b strings.Builder
	run := 0
	flush := func() {
		switch run {
		case 0:
		case 1:
			b.WriteString("--")
		default:
			b.WriteString(strings.Repeat("-", run))
		}
		run = 0
	}
	for _, r := range s {
		if r == '-' {
			run++
			continue
		}
		flush()
		b.WriteRune(r)
	}
	flush()
	return b.String()
}
