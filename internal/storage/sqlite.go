package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/matsen/zotbib/internal/zotero"
	_ "modernc.org/sqlite"
)

// DB is a SQLite cache of retrieved Zotero items.
type DB struct {
	db *sql.DB
}

// OpenDB opens or creates a SQLite cache at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS items (
			library TEXT NOT NULL,
			item_key TEXT NOT NULL,
			version INTEGER NOT NULL DEFAULT 0,
			item_type TEXT NOT NULL,
			data_json TEXT NOT NULL,
			PRIMARY KEY (library, item_key)
		);

		CREATE TABLE IF NOT EXISTS item_collections (
			library TEXT NOT NULL,
			item_key TEXT NOT NULL,
			collection_key TEXT NOT NULL,
			PRIMARY KEY (library, item_key, collection_key)
		);

		CREATE INDEX IF NOT EXISTS idx_item_collections_collection
			ON item_collections(library, collection_key);
	`

	_, err := db.Exec(schema)
	return err
}

// Upsert stores records for a library. An existing item is replaced unless
// the cached copy has a higher version. Records without a key are skipped.
// It returns the number of records written.
func (d *DB) Upsert(lib zotero.Library, recs []zotero.Record) (int, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	written, err := upsertTx(tx, lib, recs)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}
	return written, nil
}

func upsertTx(tx *sql.Tx, lib zotero.Library, recs []zotero.Record) (int, error) {
	itemStmt, err := tx.Prepare(`
		INSERT INTO items (library, item_key, version, item_type, data_json)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (library, item_key) DO UPDATE SET
			version = excluded.version,
			item_type = excluded.item_type,
			data_json = excluded.data_json
		WHERE excluded.version >= items.version
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing item upsert: %w", err)
	}
	defer itemStmt.Close()

	clearStmt, err := tx.Prepare(`DELETE FROM item_collections WHERE library = ? AND item_key = ?`)
	if err != nil {
		return 0, fmt.Errorf("preparing collection clear: %w", err)
	}
	defer clearStmt.Close()

	memberStmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO item_collections (library, item_key, collection_key)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing collection insert: %w", err)
	}
	defer memberStmt.Close()

	libName := lib.Path()
	written := 0
	for _, rec := range recs {
		if rec.Key == "" {
			continue
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return 0, fmt.Errorf("encoding item %s: %w", rec.Key, err)
		}

		res, err := itemStmt.Exec(libName, rec.Key, rec.Version, rec.ItemType, string(data))
		if err != nil {
			return 0, fmt.Errorf("storing item %s: %w", rec.Key, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			continue // cached copy is newer
		}
		written++

		if _, err := clearStmt.Exec(libName, rec.Key); err != nil {
			return 0, fmt.Errorf("clearing collections for %s: %w", rec.Key, err)
		}
		for _, col := range rec.Collections {
			if _, err := memberStmt.Exec(libName, rec.Key, col); err != nil {
				return 0, fmt.Errorf("storing collection %s for %s: %w", col, rec.Key, err)
			}
		}
	}
	return written, nil
}

// List returns the cached records of a library in insertion order.
// A non-empty collection restricts the result to that collection's items.
func (d *DB) List(lib zotero.Library, collection string) ([]zotero.Record, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if collection == "" {
		rows, err = d.db.Query(`
			SELECT data_json FROM items
			WHERE library = ?
			ORDER BY rowid`, lib.Path())
	} else {
		rows, err = d.db.Query(`
			SELECT i.data_json FROM items i
			JOIN item_collections c
				ON c.library = i.library AND c.item_key = i.item_key
			WHERE i.library = ? AND c.collection_key = ?
			ORDER BY i.rowid`, lib.Path(), collection)
	}
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var recs []zotero.Record
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var rec zotero.Record
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("decoding cached item: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Count returns the number of cached items for a library.
func (d *DB) Count(lib zotero.Library) (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM items WHERE library = ?", lib.Path()).Scan(&count)
	return count, err
}

// RebuildFromJSONL replaces a library's cached items with the contents of a
// dump file. On failure the previous cache is left untouched.
func (d *DB) RebuildFromJSONL(lib zotero.Library, jsonlPath string) (int, error) {
	recs, err := ReadRecords(jsonlPath)
	if err != nil {
		return 0, fmt.Errorf("reading JSONL: %w", err)
	}

	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM item_collections WHERE library = ?", lib.Path()); err != nil {
		return 0, fmt.Errorf("clearing collections: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM items WHERE library = ?", lib.Path()); err != nil {
		return 0, fmt.Errorf("clearing items: %w", err)
	}

	written, err := upsertTx(tx, lib, recs)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}
	return written, nil
}
