package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Collection names a group of documents of the same kind.
type Collection string

const (
	Journals      Collection = "journals"
	Announcements Collection = "announcements"
	Submissions   Collection = "submissions"
	Complaints    Collection = "complaints"
)

// Collections lists every collection the site writes to.
var Collections = []Collection{Journals, Announcements, Submissions, Complaints}

var (
	// ErrNotFound is returned when the addressed document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidCursor is returned when a continuation cursor cannot be parsed.
	ErrInvalidCursor = errors.New("invalid cursor")
)

// Document is a stored record: store-assigned metadata plus the
// author-supplied fields as a JSON object.
type Document struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Data      json.RawMessage `json:"data"`
}

// Cursor returns the position of d in listing order.
func (d Document) Cursor() Cursor {
	return NewCursor(d.CreatedAt, d.ID)
}

// Cursor marks a position in a collection listing. The zero value means
// "from the beginning".
//
// Cursors compare lexicographically in the same order as the listing,
// newest first when read in reverse.
type Cursor string

const cursorDigits = 19

// NewCursor builds the cursor of a document created at createdAt with id.
func NewCursor(createdAt time.Time, id string) Cursor {
	return Cursor(fmt.Sprintf("%0*d:%s", cursorDigits, createdAt.UnixNano(), id))
}

// Parse splits c back into its creation time and id.
func (c Cursor) Parse() (time.Time, string, error) {
	nanos, id, ok := strings.Cut(string(c), ":")
	if !ok || len(nanos) != cursorDigits || id == "" {
		return time.Time{}, "", fmt.Errorf("%w: %q", ErrInvalidCursor, string(c))
	}
	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil || n < 0 {
		return time.Time{}, "", fmt.Errorf("%w: %q", ErrInvalidCursor, string(c))
	}
	return time.Unix(0, n).UTC(), id, nil
}

// Validate reports whether c is empty or well formed.
func (c Cursor) Validate() error {
	if c == "" {
		return nil
	}
	_, _, err := c.Parse()
	return err
}

// Page is one slice of a listing.
type Page struct {
	Documents []Document
	// Next continues the listing after the last document. Empty when the
	// page is empty.
	Next Cursor
}

// Store is the document database the site reads from and writes to.
// Implementations order listings by creation time, newest first, with ties
// broken by descending id.
type Store interface {
	// Insert stores data under a fresh id. CreatedAt and UpdatedAt are equal.
	Insert(ctx context.Context, c Collection, data json.RawMessage) (Document, error)
	Get(ctx context.Context, c Collection, id string) (Document, error)
	// List returns at most limit documents strictly after the cursor.
	List(ctx context.Context, c Collection, after Cursor, limit int) (Page, error)
	// Update merges fields into the stored object. It never creates a
	// document and always moves UpdatedAt forward.
	Update(ctx context.Context, c Collection, id string, fields json.RawMessage) (Document, error)
	Delete(ctx context.Context, c Collection, id string) error
	Ping(ctx context.Context) error
}

// MergeFields overlays the top-level keys of patch onto base. Both must be
// JSON objects; a null or empty base is treated as {}.
func MergeFields(base, patch json.RawMessage) (json.RawMessage, error) {
	merged := map[string]json.RawMessage{}
	if len(base) > 0 && string(base) != "null" {
		if err := json.Unmarshal(base, &merged); err != nil {
			return nil, fmt.Errorf("decode stored fields: %w", err)
		}
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(patch, &fields); err != nil {
		return nil, fmt.Errorf("decode update fields: %w", err)
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// CheckObject reports whether data is a JSON object.
func CheckObject(data json.RawMessage) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("document data must be a JSON object: %w", err)
	}
	if probe == nil {
		return errors.New("document data must be a JSON object")
	}
	return nil
}

// NextUpdate returns the UpdatedAt for a write happening at now, keeping it
// strictly after prev even when the clock has not advanced.
func NextUpdate(prev, now time.Time) time.Time {
	if !now.After(prev) {
		return prev.Add(time.Microsecond)
	}
	return now
}

// Now is the store clock, in UTC and truncated to microseconds so that
// times survive a JSON round trip unchanged.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// CheckLimit rejects non-positive page sizes.
func CheckLimit(limit int) error {
	if limit < 1 {
		return fmt.Errorf("page size must be >= 1, got %d", limit)
	}
	return nil
}
