package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/naeap/journal/internal/store"
)

// Store is a store.Store on top of Redis. Documents are JSON envelopes
// under their own keys; each collection keeps its listing order in a
// sorted set whose members are cursors, all with score 0, so that a
// lexicographic range walks the collection newest first.
type Store struct {
	client redis.UniversalClient
	keys   Keys

	now   func() time.Time
	newID func() string
}

var _ store.Store = (*Store)(nil)

var errIDTaken = errors.New("document id already taken")

// NewStore creates a Redis document store.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	return &Store{
		client: client,
		keys:   NewKeys(prefix),
		now:    store.Now,
		newID:  uuid.NewString,
	}
}

// Insert stores data as a new document. The document and its order entry
// are written in one MULTI/EXEC, guarded by a WATCH on the new key.
func (s *Store) Insert(ctx context.Context, c store.Collection, data json.RawMessage) (store.Document, error) {
	if err := store.CheckObject(data); err != nil {
		return store.Document{}, err
	}

	now := s.now()
	doc := store.Document{CreatedAt: now, UpdatedAt: now, Data: data}

	for {
		doc.ID = s.newID()
		payload, err := json.Marshal(doc)
		if err != nil {
			return store.Document{}, fmt.Errorf("failed to marshal document: %w", err)
		}

		key := s.keys.Doc(c, doc.ID)
		err = s.client.Watch(ctx, func(tx *redis.Tx) error {
			n, err := tx.Exists(ctx, key).Result()
			if err != nil {
				return err
			}
			if n > 0 {
				return errIDTaken
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, payload, 0)
				pipe.ZAdd(ctx, s.keys.Order(c), redis.Z{Score: 0, Member: string(doc.Cursor())})
				return nil
			})
			return err
		}, key)
		switch {
		case err == nil:
			return doc, nil
		case errors.Is(err, errIDTaken), errors.Is(err, redis.TxFailedErr):
			continue
		default:
			return store.Document{}, fmt.Errorf("failed to save document: %w", err)
		}
	}
}

// Get retrieves a document by ID.
func (s *Store) Get(ctx context.Context, c store.Collection, id string) (store.Document, error) {
	data, err := s.client.Get(ctx, s.keys.Doc(c, id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return store.Document{}, fmt.Errorf("%s/%s: %w", c, id, store.ErrNotFound)
		}
		return store.Document{}, fmt.Errorf("failed to get document: %w", err)
	}
	return decode(data)
}

// List walks the order set backwards from the cursor. Index entries whose
// document has vanished are dropped and the page is topped up from further
// down the set.
func (s *Store) List(ctx context.Context, c store.Collection, after store.Cursor, limit int) (store.Page, error) {
	if err := store.CheckLimit(limit); err != nil {
		return store.Page{}, err
	}
	if err := after.Validate(); err != nil {
		return store.Page{}, err
	}

	page := store.Page{Documents: make([]store.Document, 0, limit)}
	from := after

	for len(page.Documents) < limit {
		want := limit - len(page.Documents)
		members, err := s.client.ZRevRangeByLex(ctx, s.keys.Order(c), &redis.ZRangeBy{
			Max:   maxBound(from),
			Min:   "-",
			Count: int64(want),
		}).Result()
		if err != nil {
			return store.Page{}, fmt.Errorf("failed to list %s: %w", c, err)
		}
		if len(members) == 0 {
			break
		}

		docs, stale, err := s.fetch(ctx, c, members)
		if err != nil {
			return store.Page{}, err
		}
		page.Documents = append(page.Documents, docs...)

		if len(stale) > 0 {
			_ = s.client.ZRem(ctx, s.keys.Order(c), stale...).Err()
		}
		if len(members) < want {
			break
		}
		from = store.Cursor(members[len(members)-1])
	}

	if n := len(page.Documents); n > 0 {
		page.Next = page.Documents[n-1].Cursor()
	}
	return page, nil
}

// fetch loads the documents behind a batch of cursors, in order. It also
// returns the cursors that no longer point at a document.
func (s *Store) fetch(ctx context.Context, c store.Collection, members []string) ([]store.Document, []any, error) {
	keys := make([]string, 0, len(members))
	for _, m := range members {
		_, id, err := store.Cursor(m).Parse()
		if err != nil {
			return nil, nil, fmt.Errorf("corrupt order entry in %s: %w", c, err)
		}
		keys = append(keys, s.keys.Doc(c, id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load %s: %w", c, err)
	}

	docs := make([]store.Document, 0, len(values))
	var stale []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, members[i])
			continue
		}
		doc, err := decode([]byte(raw))
		if err != nil {
			return nil, nil, err
		}
		docs = append(docs, doc)
	}
	return docs, stale, nil
}

// Update merges fields into an existing document. The write only lands if
// the key still exists, so a document deleted meanwhile stays deleted.
func (s *Store) Update(ctx context.Context, c store.Collection, id string, fields json.RawMessage) (store.Document, error) {
	doc, err := s.Get(ctx, c, id)
	if err != nil {
		return store.Document{}, err
	}

	merged, err := store.MergeFields(doc.Data, fields)
	if err != nil {
		return store.Document{}, err
	}
	doc.Data = merged
	doc.UpdatedAt = store.NextUpdate(doc.UpdatedAt, s.now())

	payload, err := json.Marshal(doc)
	if err != nil {
		return store.Document{}, fmt.Errorf("failed to marshal document: %w", err)
	}
	ok, err := s.client.SetXX(ctx, s.keys.Doc(c, id), payload, redis.KeepTTL).Result()
	if err != nil {
		return store.Document{}, fmt.Errorf("failed to update document: %w", err)
	}
	if !ok {
		return store.Document{}, fmt.Errorf("%s/%s: %w", c, id, store.ErrNotFound)
	}
	return doc, nil
}

// Delete removes a document and its index entry in one transaction.
func (s *Store) Delete(ctx context.Context, c store.Collection, id string) error {
	doc, err := s.Get(ctx, c, id)
	if err != nil {
		return err
	}

	var del *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.keys.Doc(c, id))
		pipe.ZRem(ctx, s.keys.Order(c), string(doc.Cursor()))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if del.Val() == 0 {
		return fmt.Errorf("%s/%s: %w", c, id, store.ErrNotFound)
	}
	return nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func decode(data []byte) (store.Document, error) {
	var doc store.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return store.Document{}, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return doc, nil
}

func maxBound(after store.Cursor) string {
	if after == "" {
		return "+"
	}
	return "(" + string(after)
}
