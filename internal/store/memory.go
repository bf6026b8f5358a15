package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps documents in process memory. It backs local
// development and tests; its contents are lost on restart.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[Collection]map[string]Document // collection -> ID -> Document

	now   func() time.Time
	newID func() string
}

// NewMemoryStore creates an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[Collection]map[string]Document),
		now:         Now,
		newID:       uuid.NewString,
	}
}

// Insert stores a new document.
func (m *MemoryStore) Insert(_ context.Context, c Collection, data json.RawMessage) (Document, error) {
	if err := CheckObject(data); err != nil {
		return Document{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	docs := m.collection(c)
	id := m.newID()
	for _, taken := docs[id]; taken; _, taken = docs[id] {
		id = m.newID()
	}

	now := m.now()
	doc := Document{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		Data:      cloneRaw(data),
	}
	docs[id] = doc
	return cloneDoc(doc), nil
}

// Get retrieves a document by ID.
func (m *MemoryStore) Get(_ context.Context, c Collection, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.collections[c][id]
	if !ok {
		return Document{}, fmt.Errorf("%s/%s: %w", c, id, ErrNotFound)
	}
	return cloneDoc(doc), nil
}

// List returns documents newest first, strictly after the cursor.
func (m *MemoryStore) List(_ context.Context, c Collection, after Cursor, limit int) (Page, error) {
	if err := CheckLimit(limit); err != nil {
		return Page{}, err
	}
	if err := after.Validate(); err != nil {
		return Page{}, err
	}

	m.mu.RLock()
	docs := make([]Document, 0, len(m.collections[c]))
	for _, doc := range m.collections[c] {
		if after == "" || doc.Cursor() < after {
			docs = append(docs, doc)
		}
	}
	m.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].Cursor() > docs[j].Cursor()
	})
	if len(docs) > limit {
		docs = docs[:limit]
	}

	page := Page{Documents: make([]Document, 0, len(docs))}
	for _, doc := range docs {
		page.Documents = append(page.Documents, cloneDoc(doc))
	}
	if n := len(docs); n > 0 {
		page.Next = docs[n-1].Cursor()
	}
	return page, nil
}

// Update merges fields into an existing document.
func (m *MemoryStore) Update(_ context.Context, c Collection, id string, fields json.RawMessage) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.collections[c][id]
	if !ok {
		return Document{}, fmt.Errorf("%s/%s: %w", c, id, ErrNotFound)
	}

	merged, err := MergeFields(doc.Data, fields)
	if err != nil {
		return Document{}, err
	}
	doc.Data = merged
	doc.UpdatedAt = NextUpdate(doc.UpdatedAt, m.now())
	m.collections[c][id] = doc
	return cloneDoc(doc), nil
}

// Delete removes a document.
func (m *MemoryStore) Delete(_ context.Context, c Collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.collections[c][id]; !ok {
		return fmt.Errorf("%s/%s: %w", c, id, ErrNotFound)
	}
	delete(m.collections[c], id)
	return nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error { return nil }

// Count returns the number of documents in a collection.
func (m *MemoryStore) Count(c Collection) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.collections[c])
}

// collection must be called with the write lock held.
func (m *MemoryStore) collection(c Collection) map[string]Document {
	docs, ok := m.collections[c]
	if !ok {
		docs = make(map[string]Document)
		m.collections[c] = docs
	}
	return docs
}

func cloneDoc(d Document) Document {
	d.Data = cloneRaw(d.Data)
	return d
}

func cloneRaw(b json.RawMessage) json.RawMessage {
	if b == nil {
		return nil
	}
	out := make(json.RawMessage, len(b))
	copy(out, b)
	return out
}
