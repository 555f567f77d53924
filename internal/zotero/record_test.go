package zotero

import (
	"encoding/json"
	"testing"
)

func TestRecord_UnmarshalEnvelope(t *testing.T) {
	data := []byte(`{
		"key": "ABCD2345",
		"version": 42,
		"library": {"type": "user", "id": 1},
		"data": {
			"key": "ABCD2345",
			"version": 42,
			"itemType": "journalArticle",
			"title": "A Study of Things",
			"date": "2019-03-01",
			"extra": "bibtex: lee2019things",
			"creators": [
				{"creatorType": "author", "firstName": "Ada", "lastName": "Lee"},
				{"creatorType": "editor", "name": "ACME Corp"}
			],
			"collections": ["COLL1"],
			"tags": [{"tag": "ml"}],
			"pages": "12-34",
			"DOI": "",
			"numPages": 7
		}
	}`)

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if rec.Key != "ABCD2345" || rec.Version != 42 {
		t.Errorf("Key/Version = %q/%d, want ABCD2345/42", rec.Key, rec.Version)
	}
	if rec.ItemType != "journalArticle" {
		t.Errorf("ItemType = %q", rec.ItemType)
	}
	if rec.Title != "A Study of Things" || rec.Date != "2019-03-01" || rec.Extra != "bibtex: lee2019things" {
		t.Errorf("unexpected scalar fields: %+v", rec)
	}
	if len(rec.Creators) != 2 {
		t.Fatalf("Creators count = %d, want 2", len(rec.Creators))
	}
	if rec.Creators[0].LastName != "Lee" || rec.Creators[1].Name != "ACME Corp" {
		t.Errorf("Creators = %+v", rec.Creators)
	}
	if len(rec.Collections) != 1 || rec.Collections[0] != "COLL1" {
		t.Errorf("Collections = %v", rec.Collections)
	}
	if got := rec.Field("pages"); got != "12-34" {
		t.Errorf("Field(pages) = %q", got)
	}
	if got := rec.Field("numPages"); got != "7" {
		t.Errorf("Field(numPages) = %q, want 7", got)
	}
	if rec.Has("DOI") {
		t.Error("Has(DOI) = true for empty string, want false")
	}
	if _, ok := rec.Fields["tags"]; ok {
		t.Error("tags should not be stored as a scalar field")
	}
}

func TestRecord_UnmarshalBareData(t *testing.T) {
	var rec Record
	if err := json.Unmarshal([]byte(`{"key":"K1","version":3,"itemType":"book","title":"T"}`), &rec); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if rec.Key != "K1" || rec.Version != 3 || rec.ItemType != "book" || rec.Title != "T" {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestRecord_MarshalRoundTrip(t *testing.T) {
	orig := Record{
		Key:      "K1",
		Version:  9,
		ItemType: "thesis",
		Title:    "On Things",
		Date:     "2020",
		Creators: []Creator{{LastName: "Doe", FirstName: "J"}},
		Fields:   map[string]string{"university": "MIT", "place": "Cambridge"},
	}

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var got Record
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if got.Key != orig.Key || got.Version != orig.Version || got.ItemType != orig.ItemType {
		t.Errorf("identity mismatch: got %+v", got)
	}
	if got.Title != orig.Title || got.Date != orig.Date {
		t.Errorf("scalar mismatch: got %+v", got)
	}
	if got.Field("university") != "MIT" || got.Field("place") != "Cambridge" {
		t.Errorf("Fields = %v", got.Fields)
	}
	if len(got.Creators) != 1 || got.Creators[0].LastName != "Doe" {
		t.Errorf("Creators = %+v", got.Creators)
	}
}

func TestCreator_Type(t *testing.T) {
	if got := (Creator{}).Type(); got != "author" {
		t.Errorf("Type() = %q, want author", got)
	}
	if got := (Creator{CreatorType: "editor"}).Type(); got != "editor" {
		t.Errorf("Type() = %q, want editor", got)
	}
	if !(Creator{Name: "WHO"}).IsLiteral() {
		t.Error("IsLiteral() = false for named creator")
	}
}

func TestRecord_IsSkipped(t *testing.T) {
	tests := []struct {
		itemType string
		want     bool
	}{
		{"attachment", true},
		{"note", true},
		{"book", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.itemType, func(t *testing.T) {
			if got := (Record{ItemType: tt.itemType}).IsSkipped(); got != tt.want {
				t.Errorf("IsSkipped() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseRecords_Invalid(t *testing.T) {
	if _, err := ParseRecords([]byte(`{"not": "an array"}`)); err == nil {
		t.Error("ParseRecords() expected error for non-array input")
	}
}
