package console

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/naeap/journal/internal/content"
	"github.com/naeap/journal/internal/domain"
	"github.com/naeap/journal/internal/logger"
	"github.com/naeap/journal/internal/store"
)

// recordingStore wraps a memory store, counting writes and optionally
// failing or blocking them.
type recordingStore struct {
	*store.MemoryStore

	mu      sync.Mutex
	writes  int
	deletes int
	fail    error
	listErr error
	block   chan struct{} // when set, writes wait for it to close
	started chan struct{} // signalled when a blocked write begins
}

func (r *recordingStore) beforeWrite() error {
	r.mu.Lock()
	r.writes++
	block, started, fail := r.block, r.started, r.fail
	r.mu.Unlock()

	if block != nil {
		if started != nil {
			started <- struct{}{}
		}
		<-block
	}
	return fail
}

func (r *recordingStore) Insert(ctx context.Context, c store.Collection, data json.RawMessage) (store.Document, error) {
	if err := r.beforeWrite(); err != nil {
		return store.Document{}, err
	}
	return r.MemoryStore.Insert(ctx, c, data)
}

func (r *recordingStore) Update(ctx context.Context, c store.Collection, id string, data json.RawMessage) (store.Document, error) {
	if err := r.beforeWrite(); err != nil {
		return store.Document{}, err
	}
	return r.MemoryStore.Update(ctx, c, id, data)
}

func (r *recordingStore) Delete(ctx context.Context, c store.Collection, id string) error {
	r.mu.Lock()
	r.deletes++
	fail := r.fail
	r.mu.Unlock()
	if fail != nil {
		return fail
	}
	return r.MemoryStore.Delete(ctx, c, id)
}

func (r *recordingStore) List(ctx context.Context, c store.Collection, after store.Cursor, limit int) (store.Page, error) {
	r.mu.Lock()
	fail := r.listErr
	r.mu.Unlock()
	if fail != nil {
		return store.Page{}, fail
	}
	return r.MemoryStore.List(ctx, c, after, limit)
}

func (r *recordingStore) setListErr(err error) {
	r.mu.Lock()
	r.listErr = err
	r.mu.Unlock()
}

func (r *recordingStore) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes, r.deletes
}

func (r *recordingStore) setFail(err error) {
	r.mu.Lock()
	r.fail = err
	r.mu.Unlock()
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newConsole(t *testing.T) (*Console, *recordingStore, *clock) {
	t.Helper()
	st := &recordingStore{MemoryStore: store.NewMemoryStore()}
	svc, err := content.New(st, logger.Nop(), nil)
	if err != nil {
		t.Fatalf("content.New() error = %v", err)
	}
	clk := &clock{now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	c := New(svc, logger.Nop(), Options{PageSize: 20, NoticeTTL: 5 * time.Second, Now: clk.Now})
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	return c, st, clk
}

func createJournal(t *testing.T, c *Console, title string) {
	t.Helper()
	if err := c.OpenCreate(KindJournal); err != nil {
		t.Fatal(err)
	}
	if err := c.SetJournalForm(domain.JournalForm{Title: title, Content: "body", Published: true}); err != nil {
		t.Fatal(err)
	}
	if err := c.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
}

func TestCreateJournalSuccess(t *testing.T) {
	c, _, _ := newConsole(t)

	if err := c.OpenCreate(KindJournal); err != nil {
		t.Fatal(err)
	}
	if got := c.Snapshot().Editor.State(); got != StateCreating {
		t.Fatalf("state = %s, want creating", got)
	}
	if err := c.SetJournalForm(domain.JournalForm{Title: "X", Content: "Y"}); err != nil {
		t.Fatal(err)
	}
	if err := c.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	snap := c.Snapshot()
	if snap.Editor != nil {
		t.Errorf("editor should be closed, got %+v", snap.Editor)
	}
	if snap.Journals.Count != 1 {
		t.Fatalf("list has %d journals, want 1", snap.Journals.Count)
	}
	j := snap.Journals.Items[0]
	if j.Title != "X" || !j.CreatedAt.Equal(j.UpdatedAt) {
		t.Errorf("new journal = %+v", j)
	}
	if snap.Notice == nil || snap.Notice.Kind != NoticeSuccess || snap.Notice.Message != "Journal uploaded successfully" {
		t.Errorf("notice = %+v", snap.Notice)
	}

	// The form is cleared: a new editor starts empty.
	if err := c.OpenCreate(KindJournal); err != nil {
		t.Fatal(err)
	}
	if got := c.Snapshot().Editor.Journal.Title; got != "" {
		t.Errorf("new editor title = %q, want empty", got)
	}
}

func TestSubmitInvalidFormMakesNoRemoteCall(t *testing.T) {
	c, st, _ := newConsole(t)

	if err := c.OpenCreate(KindAnnouncement); err != nil {
		t.Fatal(err)
	}
	if err := c.SetAnnouncementForm(domain.AnnouncementForm{Title: "only a title"}); err != nil {
		t.Fatal(err)
	}

	err := c.Submit(context.Background())
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Submit() error = %v, want *ValidationError", err)
	}
	if writes, _ := st.counts(); writes != 0 {
		t.Errorf("store writes = %d, want 0", writes)
	}

	snap := c.Snapshot()
	if snap.Editor.State() != StateCreating {
		t.Errorf("state = %s, want creating", snap.Editor.State())
	}
	if snap.Editor.Announcement.Title != "only a title" {
		t.Error("form should be kept")
	}
	if _, ok := snap.Editor.FieldErrors()["content"]; !ok {
		t.Errorf("field errors = %v, want content", snap.Editor.FieldErrors())
	}
	if snap.Notice == nil || snap.Notice.Kind != NoticeError {
		t.Errorf("notice = %+v, want error", snap.Notice)
	}
}

func TestSubmitRemoteFailureKeepsForm(t *testing.T) {
	c, st, _ := newConsole(t)
	st.setFail(errors.New("unavailable"))

	if err := c.OpenCreate(KindJournal); err != nil {
		t.Fatal(err)
	}
	form := domain.JournalForm{Title: "X", Content: "Y", Volume: "Vol 1"}
	if err := c.SetJournalForm(form); err != nil {
		t.Fatal(err)
	}
	if err := c.Submit(context.Background()); err == nil {
		t.Fatal("Submit() should fail")
	}

	snap := c.Snapshot()
	if snap.Editor.State() != StateCreating || snap.Editor.Err == nil {
		t.Errorf("editor = %+v, want creating with error", snap.Editor)
	}
	if snap.Editor.Journal.Volume != "Vol 1" {
		t.Error("form should be kept for retry")
	}
	if snap.Notice == nil || snap.Notice.Message != "Failed to upload journal" {
		t.Errorf("notice = %+v", snap.Notice)
	}

	// Operator retries once the store is back.
	st.setFail(nil)
	if err := c.Submit(context.Background()); err != nil {
		t.Fatalf("retry Submit() error = %v", err)
	}
	if got := c.Snapshot().Journals.Count; got != 1 {
		t.Errorf("list has %d journals, want 1", got)
	}
}

func TestFailedRefreshKeepsLoadedList(t *testing.T) {
	c, st, _ := newConsole(t)
	for _, title := range []string{"a", "b", "c"} {
		createJournal(t, c, title)
	}
	if got := c.Snapshot().Journals.Count; got != 3 {
		t.Fatalf("list has %d journals, want 3", got)
	}

	st.setListErr(errors.New("network down"))
	if err := c.OpenCreate(KindJournal); err != nil {
		t.Fatal(err)
	}
	if err := c.SetJournalForm(domain.JournalForm{Title: "d", Content: "body"}); err != nil {
		t.Fatal(err)
	}
	if err := c.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	snap := c.Snapshot()
	if snap.Journals.Count != 3 {
		t.Errorf("list has %d journals after a failed refresh, want the 3 already loaded", snap.Journals.Count)
	}
	if snap.Journals.Err == nil {
		t.Error("list should carry the fetch error")
	}

	st.setListErr(nil)
	if err := c.RetryList(context.Background(), KindJournal); err != nil {
		t.Fatalf("RetryList() error = %v", err)
	}
	snap = c.Snapshot()
	if snap.Journals.Count != 4 || snap.Journals.Err != nil {
		t.Errorf("after retry: count=%d err=%v, want 4 and no error", snap.Journals.Count, snap.Journals.Err)
	}
}

func TestEditOverwritesAndRefreshes(t *testing.T) {
	c, _, _ := newConsole(t)
	createJournal(t, c, "first")
	createJournal(t, c, "second")

	before := c.Snapshot().Journals.Items
	var target domain.Journal
	for _, j := range before {
		if j.Title == "first" {
			target = j
		}
	}

	if err := c.OpenEdit(context.Background(), KindJournal, target.ID); err != nil {
		t.Fatalf("OpenEdit() error = %v", err)
	}
	snap := c.Snapshot()
	if snap.Editor.State() != StateEditing || snap.Editor.Journal.Title != "first" {
		t.Fatalf("editor = %+v", snap.Editor)
	}

	form := snap.Editor.Journal
	form.Title = "first, revised"
	if err := c.SetJournalForm(form); err != nil {
		t.Fatal(err)
	}
	if err := c.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	after := c.Snapshot()
	if after.Notice == nil || after.Notice.Message != "Journal updated successfully" {
		t.Errorf("notice = %+v", after.Notice)
	}
	if after.Journals.Count != 2 {
		t.Fatalf("list has %d journals, want 2", after.Journals.Count)
	}
	for _, j := range after.Journals.Items {
		switch j.ID {
		case target.ID:
			if j.Title != "first, revised" || !j.UpdatedAt.After(target.UpdatedAt) {
				t.Errorf("edited journal = %+v", j)
			}
		default:
			if j.Title != "second" {
				t.Errorf("unrelated journal changed: %+v", j)
			}
		}
	}
}

func TestOpenEditUnknownRecord(t *testing.T) {
	c, _, _ := newConsole(t)
	err := c.OpenEdit(context.Background(), KindAnnouncement, "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("OpenEdit() error = %v, want ErrNotFound", err)
	}
	if c.Snapshot().Editor != nil {
		t.Error("no editor should open for an unknown record")
	}
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	c, st, _ := newConsole(t)
	createJournal(t, c, "doomed")
	id := c.Snapshot().Journals.Items[0].ID

	if err := c.RequestDelete(KindJournal, id); err != nil {
		t.Fatal(err)
	}
	snap := c.Snapshot()
	if snap.PendingDelete == nil || snap.PendingDelete.Title != "doomed" {
		t.Errorf("pending = %+v", snap.PendingDelete)
	}
	if err := c.CancelDelete(); err != nil {
		t.Fatal(err)
	}
	if _, deletes := st.counts(); deletes != 0 {
		t.Fatalf("deletes = %d without confirmation, want 0", deletes)
	}
	if c.Snapshot().Journals.Count != 1 {
		t.Fatal("list changed without confirmation")
	}

	if err := c.RequestDelete(KindJournal, id); err != nil {
		t.Fatal(err)
	}
	if err := c.ConfirmDelete(context.Background()); err != nil {
		t.Fatalf("ConfirmDelete() error = %v", err)
	}
	snap = c.Snapshot()
	if snap.Journals.Count != 0 || snap.PendingDelete != nil {
		t.Errorf("after delete: count=%d pending=%+v", snap.Journals.Count, snap.PendingDelete)
	}
	if snap.Notice == nil || snap.Notice.Message != "Journal deleted successfully" {
		t.Errorf("notice = %+v", snap.Notice)
	}
}

func TestDeleteErrors(t *testing.T) {
	c, st, _ := newConsole(t)

	if err := c.ConfirmDelete(context.Background()); !errors.Is(err, ErrNoPendingDelete) {
		t.Errorf("ConfirmDelete() error = %v, want ErrNoPendingDelete", err)
	}
	if err := c.CancelDelete(); !errors.Is(err, ErrNoPendingDelete) {
		t.Errorf("CancelDelete() error = %v, want ErrNoPendingDelete", err)
	}

	if err := c.RequestDelete(KindAnnouncement, "stale"); err != nil {
		t.Fatal(err)
	}
	err := c.ConfirmDelete(context.Background())
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("ConfirmDelete() error = %v, want ErrNotFound", err)
	}
	if _, deletes := st.counts(); deletes != 1 {
		t.Errorf("deletes = %d, want 1", deletes)
	}
	snap := c.Snapshot()
	if snap.Notice == nil || snap.Notice.Message != "Failed to delete announcement" {
		t.Errorf("notice = %+v", snap.Notice)
	}
}

func TestConsoleStaysReadableWhileSubmitting(t *testing.T) {
	c, st, _ := newConsole(t)
	st.mu.Lock()
	st.block = make(chan struct{})
	st.started = make(chan struct{}, 1)
	st.mu.Unlock()

	if err := c.OpenCreate(KindJournal); err != nil {
		t.Fatal(err)
	}
	if err := c.SetJournalForm(domain.JournalForm{Title: "X", Content: "Y"}); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- c.Submit(context.Background()) }()
	<-st.started

	if got := c.Snapshot().Editor.State(); got != StateSubmitting {
		t.Errorf("state = %s, want submitting", got)
	}
	if err := c.OpenCreate(KindAnnouncement); !errors.Is(err, ErrBusy) {
		t.Errorf("OpenCreate() error = %v, want ErrBusy", err)
	}
	if err := c.Cancel(); !errors.Is(err, ErrBusy) {
		t.Errorf("Cancel() error = %v, want ErrBusy", err)
	}
	if err := c.Submit(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("second Submit() error = %v, want ErrBusy", err)
	}

	st.mu.Lock()
	close(st.block)
	st.block = nil
	st.mu.Unlock()

	if err := <-done; err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if c.Snapshot().Editor != nil {
		t.Error("editor should be closed after success")
	}
}

func TestEditorLifecycleErrors(t *testing.T) {
	c, _, _ := newConsole(t)

	if err := c.Submit(context.Background()); !errors.Is(err, ErrNoEditor) {
		t.Errorf("Submit() error = %v, want ErrNoEditor", err)
	}
	if err := c.Cancel(); !errors.Is(err, ErrNoEditor) {
		t.Errorf("Cancel() error = %v, want ErrNoEditor", err)
	}
	if err := c.SetJournalForm(domain.JournalForm{}); !errors.Is(err, ErrNoEditor) {
		t.Errorf("SetJournalForm() error = %v, want ErrNoEditor", err)
	}

	// Opening another editor replaces the current one.
	if err := c.OpenCreate(KindJournal); err != nil {
		t.Fatal(err)
	}
	if err := c.OpenCreate(KindAnnouncement); err != nil {
		t.Fatal(err)
	}
	snap := c.Snapshot()
	if snap.Editor.Kind != KindAnnouncement || !snap.Editor.Announcement.Active {
		t.Errorf("editor = %+v, want a new active announcement", snap.Editor)
	}
	if err := c.SetJournalForm(domain.JournalForm{}); !errors.Is(err, ErrNoEditor) {
		t.Errorf("SetJournalForm() on announcement editor = %v, want ErrNoEditor", err)
	}
	if err := c.Cancel(); err != nil {
		t.Fatal(err)
	}
	if c.Snapshot().Editor.State() != StateClosed {
		t.Error("editor should be closed after Cancel")
	}
}

func TestNoticesExpireAndReplace(t *testing.T) {
	c, _, clk := newConsole(t)
	createJournal(t, c, "a")

	clk.Advance(4 * time.Second)
	if n := c.Snapshot().Notice; n == nil {
		t.Fatal("notice should still be visible after 4s")
	}

	createJournal(t, c, "b")
	clk.Advance(4 * time.Second)
	if n := c.Snapshot().Notice; n == nil {
		t.Fatal("replacing notice should restart the timer")
	}

	clk.Advance(time.Second)
	if n := c.Snapshot().Notice; n != nil {
		t.Errorf("notice should be dismissed after 5s, got %+v", n)
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{
		"journal":       KindJournal,
		"journals":      KindJournal,
		"announcement":  KindAnnouncement,
		"announcements": KindAnnouncement,
	} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseKind("users"); err == nil {
		t.Error("ParseKind(users) should fail")
	}
}

func TestRegistrySweep(t *testing.T) {
	_, _, clk := newConsole(t)

	st := store.NewMemoryStore()
	svc, err := content.New(st, logger.Nop(), nil)
	if err != nil {
		t.Fatal(err)
	}
	reg := NewRegistry(func() *Console {
		return New(svc, logger.Nop(), Options{Now: clk.Now})
	}, nil)

	a := reg.Get("a")
	if reg.Get("a") != a {
		t.Error("Get() should return the same console for a session")
	}
	reg.Get("b")

	clk.Advance(time.Hour)
	reg.Get("b").SetTab(KindAnnouncement)

	if removed := reg.Sweep(clk.Now(), 30*time.Minute); removed != 1 {
		t.Errorf("Sweep() removed %d, want 1", removed)
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}

	reg.Drop("b")
	if reg.Len() != 0 {
		t.Errorf("Len() after Drop = %d, want 0", reg.Len())
	}
}
