// Package storage persists Zotero records as JSONL dumps and in a SQLite cache.
package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/matsen/zotbib/internal/zotero"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (1MB per line).
const MaxJSONLLineCapacity = 1024 * 1024

// ReadRecords reads all records from a JSONL file.
// A missing file reads as empty.
func ReadRecords(path string) ([]zotero.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening dump file: %w", err)
	}
	defer f.Close()

	var recs []zotero.Record
	scanner := bufio.NewScanner(f)

	// Abstracts and notes can make single items long
	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec zotero.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		recs = append(recs, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading dump file: %w", err)
	}

	return recs, nil
}

// WriteRecords writes records to a JSONL file, replacing existing content.
func WriteRecords(path string, recs []zotero.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating dump file: %w", err)
	}
	w := bufio.NewWriter(f)

	for i, rec := range recs {
		data, err := json.Marshal(rec)
		if err != nil {
			f.Close()
			return fmt.Errorf("encoding record %d: %w", i, err)
		}
		if _, err := w.Write(data); err != nil {
			f.Close()
			return fmt.Errorf("writing record %d: %w", i, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			f.Close()
			return fmt.Errorf("writing record %d: %w", i, err)
		}
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing dump file: %w", err)
	}
	return f.Close()
}
