package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matsen/zotbib/internal/zotero"
)

func TestReadRecords_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.jsonl")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}

	recs, err := ReadRecords(path)
	if err != nil {
		t.Fatalf("ReadRecords() error = %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("ReadRecords() returned %d records, want 0", len(recs))
	}
}

func TestReadRecords_NonExistentFile(t *testing.T) {
	recs, err := ReadRecords("/nonexistent/path/dump.jsonl")
	if err != nil {
		t.Fatalf("ReadRecords() error = %v (should return nil for nonexistent file)", err)
	}
	if len(recs) != 0 {
		t.Errorf("ReadRecords() returned %v, want empty", recs)
	}
}

func TestReadRecords_APIItems(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.jsonl")
	content := strings.Join([]string{
		`{"key":"AAA","version":4,"data":{"key":"AAA","itemType":"book","title":"One","creators":[{"creatorType":"author","lastName":"Smith"}]}}`,
		``,
		`{"key":"BBB","itemType":"note","note":"<p>hi</p>"}`,
	}, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	recs, err := ReadRecords(path)
	if err != nil {
		t.Fatalf("ReadRecords() error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("ReadRecords() returned %d records, want 2", len(recs))
	}
	if recs[0].Key != "AAA" || recs[0].Version != 4 || recs[0].Title != "One" {
		t.Errorf("recs[0] = %+v", recs[0])
	}
	if len(recs[0].Creators) != 1 || recs[0].Creators[0].LastName != "Smith" {
		t.Errorf("recs[0].Creators = %+v", recs[0].Creators)
	}
	if !recs[1].IsSkipped() {
		t.Errorf("recs[1] should be a skipped note, got %+v", recs[1])
	}
}

func TestReadRecords_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.jsonl")
	content := `{"key":"AAA","data":{"itemType":"book"}}` + "\n" + `{not json}` + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	_, err := ReadRecords(path)
	if err == nil {
		t.Fatal("ReadRecords() should fail on invalid JSON")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("ReadRecords() error = %v, want line number", err)
	}
}

func TestWriteRecords_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.jsonl")
	recs := []zotero.Record{
		{
			Key:         "AAA",
			Version:     7,
			ItemType:    "journalArticle",
			Title:       "Paper",
			Date:        "2020-02-02",
			Extra:       "bibtex: paper2020",
			Creators:    []zotero.Creator{{CreatorType: "author", FirstName: "A", LastName: "Lee"}},
			Collections: []string{"COL1"},
			Fields:      map[string]string{"pages": "1-2", "DOI": "10.1/x"},
		},
		{Key: "BBB", ItemType: "attachment"},
	}

	if err := WriteRecords(path, recs); err != nil {
		t.Fatalf("WriteRecords() error = %v", err)
	}

	got, err := ReadRecords(path)
	if err != nil {
		t.Fatalf("ReadRecords() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadRecords() returned %d records, want 2", len(got))
	}

	first := got[0]
	if first.Key != "AAA" || first.Version != 7 || first.Extra != "bibtex: paper2020" {
		t.Errorf("got[0] = %+v", first)
	}
	if first.Field("pages") != "1-2" || first.Field("DOI") != "10.1/x" {
		t.Errorf("got[0].Fields = %v", first.Fields)
	}
	if len(first.Collections) != 1 || first.Collections[0] != "COL1" {
		t.Errorf("got[0].Collections = %v", first.Collections)
	}
	if got[1].ItemType != "attachment" {
		t.Errorf("got[1].ItemType = %q", got[1].ItemType)
	}
}

func TestWriteRecords_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.jsonl")

	if err := WriteRecords(path, []zotero.Record{{Key: "A", ItemType: "book"}, {Key: "B", ItemType: "book"}}); err != nil {
		t.Fatal(err)
	}
	if err := WriteRecords(path, []zotero.Record{{Key: "C", ItemType: "book"}}); err != nil {
		t.Fatal(err)
	}

	got, err := ReadRecords(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Key != "C" {
		t.Errorf("ReadRecords() = %+v, want only C", got)
	}
}

func TestWriteRecords_WriteError(t *testing.T) {
	const full = "/dev/full"
	if _, err := os.Stat(full); err != nil {
		t.Skipf("%s not available", full)
	}

	// Larger than the bufio buffer so the write reaches the device at once.
	recs := []zotero.Record{{Key: "BIG", ItemType: "book", Title: strings.Repeat("x", 8192)}}
	err := WriteRecords(full, recs)
	if err == nil || !strings.Contains(err.Error(), "writing record 0") {
		t.Errorf("WriteRecords(%s) error = %v, want write failure for record 0", full, err)
	}
}
