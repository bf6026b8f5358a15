package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// newTestStore returns a memory store whose clock advances one second per call.
func newTestStore() *MemoryStore {
	m := NewMemoryStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	tick := 0
	m.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return m
}

func mustInsert(t *testing.T, m *MemoryStore, c Collection, data string) Document {
	t.Helper()
	doc, err := m.Insert(context.Background(), c, json.RawMessage(data))
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	return doc
}

func TestNewMemoryStore(t *testing.T) {
	m := NewMemoryStore()
	if m == nil {
		t.Fatal("NewMemoryStore() returned nil")
	}
	if got := m.Count(Journals); got != 0 {
		t.Errorf("Count() = %d, want 0", got)
	}
}

func TestInsertAssignsMetadata(t *testing.T) {
	m := newTestStore()
	doc := mustInsert(t, m, Journals, `{"title":"Vol 1"}`)

	if doc.ID == "" {
		t.Error("Insert() should assign an id")
	}
	if !doc.CreatedAt.Equal(doc.UpdatedAt) {
		t.Errorf("createdAt %v != updatedAt %v right after insert", doc.CreatedAt, doc.UpdatedAt)
	}

	got, err := m.Get(context.Background(), Journals, doc.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got.Data) != `{"title":"Vol 1"}` {
		t.Errorf("Get() data = %s", got.Data)
	}
}

func TestInsertRejectsNonObject(t *testing.T) {
	m := newTestStore()
	for _, data := range []string{`[]`, `"x"`, `null`, `{`} {
		if _, err := m.Insert(context.Background(), Journals, json.RawMessage(data)); err == nil {
			t.Errorf("Insert(%s) should fail", data)
		}
	}
}

func TestIDsAreUniqueAndNeverReused(t *testing.T) {
	m := newTestStore()
	ids := []string{"a", "a", "b"}
	m.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	first := mustInsert(t, m, Journals, `{}`)
	second := mustInsert(t, m, Journals, `{}`)
	if first.ID == second.ID {
		t.Fatalf("duplicate id %q", first.ID)
	}
}

func TestGetMissing(t *testing.T) {
	m := newTestStore()
	_, err := m.Get(context.Background(), Journals, "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestListOrderAndContinuation(t *testing.T) {
	m := newTestStore()
	ctx := context.Background()

	var inserted []Document
	for i := 0; i < 7; i++ {
		inserted = append(inserted, mustInsert(t, m, Journals, fmt.Sprintf(`{"n":%d}`, i)))
	}

	var seen []string
	var after Cursor
	pages := 0
	for {
		page, err := m.List(ctx, Journals, after, 3)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		pages++
		for _, d := range page.Documents {
			seen = append(seen, d.ID)
		}
		if len(page.Documents) < 3 {
			break
		}
		after = page.Next
	}

	if pages != 3 {
		t.Errorf("pages = %d, want 3", pages)
	}
	if len(seen) != len(inserted) {
		t.Fatalf("listed %d docs, want %d", len(seen), len(inserted))
	}
	for i, id := range seen {
		want := inserted[len(inserted)-1-i].ID
		if id != want {
			t.Errorf("position %d = %s, want %s (newest first)", i, id, want)
		}
	}
}

func TestListSameTimestampUsesID(t *testing.T) {
	m := NewMemoryStore()
	fixed := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }
	ids := []string{"a", "c", "b"}
	m.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}
	for i := 0; i < 3; i++ {
		mustInsert(t, m, Announcements, `{}`)
	}

	first, err := m.List(context.Background(), Announcements, "", 2)
	if err != nil {
		t.Fatal(err)
	}
	rest, err := m.List(context.Background(), Announcements, first.Next, 2)
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	for _, d := range append(first.Documents, rest.Documents...) {
		got = append(got, d.ID)
	}
	want := []string{"c", "b", "a"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestListRejectsBadInput(t *testing.T) {
	m := newTestStore()
	ctx := context.Background()

	if _, err := m.List(ctx, Journals, "", 0); err == nil {
		t.Error("List() with limit 0 should fail")
	}
	if _, err := m.List(ctx, Journals, "garbage", 5); !errors.Is(err, ErrInvalidCursor) {
		t.Errorf("List() error = %v, want ErrInvalidCursor", err)
	}
}

func TestUpdateMergesAndAdvances(t *testing.T) {
	m := newTestStore()
	ctx := context.Background()
	doc := mustInsert(t, m, Journals, `{"title":"Old","volume":"1"}`)

	updated, err := m.Update(ctx, Journals, doc.ID, json.RawMessage(`{"title":"New"}`))
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !updated.UpdatedAt.After(doc.UpdatedAt) {
		t.Errorf("updatedAt %v should be after %v", updated.UpdatedAt, doc.UpdatedAt)
	}
	if !updated.CreatedAt.Equal(doc.CreatedAt) {
		t.Errorf("createdAt changed from %v to %v", doc.CreatedAt, updated.CreatedAt)
	}

	var fields map[string]string
	if err := json.Unmarshal(updated.Data, &fields); err != nil {
		t.Fatal(err)
	}
	if fields["title"] != "New" || fields["volume"] != "1" {
		t.Errorf("merged fields = %v", fields)
	}
}

func TestUpdateStrictlyIncreasesWithFrozenClock(t *testing.T) {
	m := NewMemoryStore()
	fixed := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }
	doc := mustInsert(t, m, Journals, `{}`)

	prev := doc.UpdatedAt
	for i := 0; i < 3; i++ {
		updated, err := m.Update(context.Background(), Journals, doc.ID, json.RawMessage(`{"x":1}`))
		if err != nil {
			t.Fatal(err)
		}
		if !updated.UpdatedAt.After(prev) {
			t.Fatalf("update %d: updatedAt %v not after %v", i, updated.UpdatedAt, prev)
		}
		prev = updated.UpdatedAt
	}
}

func TestUpdateNeverUpserts(t *testing.T) {
	m := newTestStore()
	_, err := m.Update(context.Background(), Journals, "ghost", json.RawMessage(`{"title":"x"}`))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
	if m.Count(Journals) != 0 {
		t.Error("Update() must not create documents")
	}
}

func TestDelete(t *testing.T) {
	m := newTestStore()
	ctx := context.Background()
	doc := mustInsert(t, m, Journals, `{}`)

	if err := m.Delete(ctx, Journals, doc.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := m.Delete(ctx, Journals, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
	page, err := m.List(ctx, Journals, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Documents) != 0 {
		t.Errorf("deleted document still listed")
	}
}

func TestCollectionsAreIsolated(t *testing.T) {
	m := newTestStore()
	doc := mustInsert(t, m, Journals, `{}`)
	if _, err := m.Get(context.Background(), Announcements, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("journal visible in announcements: %v", err)
	}
}

func TestReturnedDataIsACopy(t *testing.T) {
	m := newTestStore()
	doc := mustInsert(t, m, Journals, `{"title":"a"}`)
	doc.Data[2] = 'X'

	got, err := m.Get(context.Background(), Journals, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if string(got.Data) != `{"title":"a"}` {
		t.Errorf("stored data mutated through returned doc: %s", got.Data)
	}
}

func TestConcurrentAccess(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = m.Insert(ctx, Journals, json.RawMessage(`{}`))
		}()
		go func() {
			defer wg.Done()
			_, _ = m.List(ctx, Journals, "", 5)
		}()
	}
	wg.Wait()

	if got := m.Count(Journals); got != 20 {
		t.Errorf("Count() = %d, want 20", got)
	}
}
