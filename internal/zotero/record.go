// Package zotero defines Zotero library items and a client for the Zotero Web API.
package zotero

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Item types that never become citations.
const (
	ItemTypeAttachment = "attachment"
	ItemTypeNote       = "note"
)

// DefaultCreatorType is assumed for creators without an explicit creatorType.
const DefaultCreatorType = "author"

// Creator is a contributor to an item. Either LastName/FirstName (a person)
// or Name (an organization or other literal name) is populated.
type Creator struct {
	CreatorType string `json:"creatorType,omitempty"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	Name        string `json:"name,omitempty"`
}

// IsLiteral reports whether the creator uses the single-field name form.
func (c Creator) IsLiteral() bool {
	return c.Name != ""
}

// Type returns the creator type, defaulting to "author".
func (c Creator) Type() string {
	if c.CreatorType == "" {
		return DefaultCreatorType
	}
	return c.CreatorType
}

// Record is a single Zotero item as retrieved from the API.
//
// Title, Date, Extra and ItemType are lifted out of the data object because
// every conversion step looks at them; all other scalar fields live in Fields
// under their Zotero names (publisher, ISBN, pages, url, ...).
type Record struct {
	Key         string
	Version     int
	ItemType    string
	Title       string
	Date        string
	Extra       string
	Creators    []Creator
	Collections []string
	Fields      map[string]string
}

// Field returns the value of a named data field, or "" when absent.
func (r Record) Field(name string) string {
	switch name {
	case "itemType":
		return r.ItemType
	case "title":
		return r.Title
	case "date":
		return r.Date
	case "extra":
		return r.Extra
	}
	return r.Fields[name]
}

// Has reports whether a field is present and non-empty.
// Absent and empty fields are treated the same.
func (r Record) Has(name string) bool {
	return r.Field(name) != ""
}

// IsSkipped reports whether the item is an attachment or a note.
func (r Record) IsSkipped() bool {
	return r.ItemType == ItemTypeAttachment || r.ItemType == ItemTypeNote
}

// envelope mirrors the API item wrapper: {"key": ..., "version": ..., "data": {...}}.
type envelope struct {
	Key     string                     `json:"key,omitempty"`
	Version int                        `json:"version,omitempty"`
	Data    map[string]json.RawMessage `json:"data"`
}

// UnmarshalJSON decodes either a full API item or a bare data object.
func (r *Record) UnmarshalJSON(b []byte) error {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	data := env.Data
	if data == nil {
		// Bare data object; the key and version live next to the fields.
		if err := json.Unmarshal(b, &data); err != nil {
			return err
		}
	}

	rec := Record{Key: env.Key, Version: env.Version, Fields: map[string]string{}}
	for name, raw := range data {
		switch name {
		case "creators":
			if err := json.Unmarshal(raw, &rec.Creators); err != nil {
				return fmt.Errorf("decoding creators: %w", err)
			}
			continue
		case "collections":
			if err := json.Unmarshal(raw, &rec.Collections); err != nil {
				return fmt.Errorf("decoding collections: %w", err)
			}
			continue
		}

		value, ok := scalarString(raw)
		if !ok {
			continue // tags, relations and other structured fields
		}
		switch name {
		case "key":
			if rec.Key == "" {
				rec.Key = value
			}
		case "version":
			if rec.Version == 0 {
				rec.Version, _ = strconv.Atoi(value)
			}
		case "itemType":
			rec.ItemType = value
		case "title":
			rec.Title = value
		case "date":
			rec.Date = value
		case "extra":
			rec.Extra = value
		default:
			if value != "" {
				rec.Fields[name] = value
			}
		}
	}

	*r = rec
	return nil
}

// MarshalJSON encodes the record in the API item wrapper form.
func (r Record) MarshalJSON() ([]byte, error) {
	data := make(map[string]any, len(r.Fields)+6)
	for name, value := range r.Fields {
		data[name] = value
	}
	data["key"] = r.Key
	data["itemType"] = r.ItemType
	setIfNotEmpty(data, "title", r.Title)
	setIfNotEmpty(data, "date", r.Date)
	setIfNotEmpty(data, "extra", r.Extra)
	creators := r.Creators
	if creators == nil {
		creators = []Creator{}
	}
	data["creators"] = creators
	if len(r.Collections) > 0 {
		data["collections"] = r.Collections
	}

	return json.Marshal(struct {
		Key     string         `json:"key,omitempty"`
		Version int            `json:"version,omitempty"`
		Data    map[string]any `json:"data"`
	}{r.Key, r.Version, data})
}

func setIfNotEmpty(m map[string]any, name, value string) {
	if value != "" {
		m[name] = value
	}
}

// scalarString converts a JSON string, number or boolean to its string form.
func scalarString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b), true
	}
	return "", false
}

// ParseRecords decodes a JSON array of API items.
func ParseRecords(data []byte) ([]Record, error) {
	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return recs, nil
}
