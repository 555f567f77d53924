package export

import (
	"errors"
	"fmt"

	"github.com/matsen/zotbib/internal/zotero"
)

// ErrMalformedRecord indicates a record that cannot be converted, such as one
// without an itemType or whose title is nothing but stopwords.
var ErrMalformedRecord = errors.New("malformed record")

// RecordError ties a conversion failure to the record that caused it.
type RecordError struct {
	Index int    // Position in the batch, -1 when converted on its own
	Key   string // Zotero item key, if known
	Err   error
}

func newRecordError(rec zotero.Record, index int, err error) *RecordError {
	return &RecordError{Index: index, Key: rec.Key, Err: err}
}

func (e *RecordError) Error() string {
	switch {
	case e.Index >= 0 && e.Key != "":
		return fmt.Sprintf("record %d (%s): %v", e.Index+1, e.Key, e.Err)
	case e.Index >= 0:
		return fmt.Sprintf("record %d: %v", e.Index+1, e.Err)
	case e.Key != "":
		return fmt.Sprintf("record %s: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("record: %v", e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// IsMalformed returns true if the error is a malformed-record failure.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedRecord)
}
