package export

import (
	"time"

	"github.com/matsen/zotbib/internal/normalize"
	"github.com/matsen/zotbib/internal/zotero"
)

// fieldRule describes how one BibTeX field is produced from a record.
//
// The value is either computed by derive or taken from the first non-empty
// source field. transform runs on the raw value, then LaTeX escaping unless
// verbatim is set, then brace protection. Verbatim derive functions escape
// the record text they embed themselves.
type fieldRule struct {
	target    string
	targetFor func(zotero.Record) string
	sources   []string
	derive    func(zotero.Record, time.Time) string
	transform func(string) string
	protect   bool
	verbatim  bool
	// always emits the field even when its value is empty.
	always bool
}

func (r fieldRule) name(rec zotero.Record) string {
	if r.targetFor != nil {
		return r.targetFor(rec)
	}
	return r.target
}

func (r fieldRule) raw(rec zotero.Record, now time.Time) string {
	if r.derive != nil {
		return r.derive(rec, now)
	}
	for _, src := range r.sources {
		if rec.Has(src) {
			return rec.Field(src)
		}
	}
	return ""
}

// resolve returns the formatted value and whether the field is emitted.
func (r fieldRule) resolve(rec zotero.Record, now time.Time) (string, bool) {
	value := r.raw(rec, now)
	if value == "" && !r.always {
		return "", false
	}
	if r.transform != nil {
		value = r.transform(value)
	}
	if !r.verbatim {
		value = EscapeLatex(value)
	}
	if r.protect {
		value = "{" + value + "}"
	}
	return value, true
}

// fieldRules lists the emitted fields in output order.
var fieldRules = []fieldRule{
	{target: "title", sources: []string{"title"}, protect: true},
	{target: "author", derive: func(rec zotero.Record, _ time.Time) string { return authors(rec.Creators) }, verbatim: true, always: true},
	{target: "year", derive: yearString, verbatim: true},
	{target: "howpublished", derive: howPublished, verbatim: true},
	{target: "booktitle", sources: []string{"proceedingsTitle", "bookTitle"}, protect: true},
	{target: "journal", sources: []string{"publicationTitle"}, protect: true},
	{target: "editor", derive: func(rec zotero.Record, _ time.Time) string { return AuthorList(rec.Creators, "editor") }, verbatim: true},
	{target: "publisher", sources: []string{"publisher"}},
	{target: "series", sources: []string{"series"}, protect: true},
	{target: "number", sources: []string{"seriesNumber", "issue"}},
	{target: "type", sources: []string{"thesisType"}},
	{target: "school", sources: []string{"university"}},
	{targetFor: placeField, sources: []string{"place"}},
	{target: "doi", derive: doi},
	{target: "isbn", sources: []string{"ISBN"}},
	{target: "issn", sources: []string{"ISSN"}},
	{target: "pages", sources: []string{"pages"}, transform: doublePageHyphens},
	{target: "url", sources: []string{"url"}},
	{target: "volume", sources: []string{"volume"}},
	{target: "shorttitle", sources: []string{"shortTitle"}},
}

var abstractRule = fieldRule{target: "abstract", sources: []string{"abstractNote"}}

func (c *Converter) rules() []fieldRule {
	if !c.IncludeAbstract {
		return fieldRules
	}
	rules := make([]fieldRule, 0, len(fieldRules)+1)
	rules = append(rules, fieldRules...)
	return append(rules, abstractRule)
}

// placeField puts a thesis's place under address; everything else uses location.
func placeField(rec zotero.Record) string {
	if rec.ItemType == "thesis" {
		return "address"
	}
	return "location"
}

// howPublished describes web resources and talks, which have no BibTeX type
// of their own. Arguments of \url stay raw.
func howPublished(rec zotero.Record, _ time.Time) string {
	switch rec.ItemType {
	case "blogPost", "webpage", "computerProgram":
		if rec.Has("url") {
			return `\url{` + rec.Field("url") + `}`
		}
	case "presentation":
		if !rec.Has("meetingName") {
			return ""
		}
		s := "Presentation at {" + EscapeLatex(rec.Field("meetingName")) + "}"
		if rec.Has("url") {
			s += `, \url{` + rec.Field("url") + `}`
		}
		return s
	}
	return ""
}

// doi prefers the DOI field and falls back to a "DOI:" line in extra.
func doi(rec zotero.Record, _ time.Time) string {
	if rec.Has("DOI") {
		return rec.Field("DOI")
	}
	value, _ := normalize.ExtraLine(rec.Extra, doiExtraPattern)
	return value
}
