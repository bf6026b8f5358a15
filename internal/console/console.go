package console

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/naeap/journal/internal/content"
	"github.com/naeap/journal/internal/domain"
	"github.com/naeap/journal/internal/listing"
	"github.com/naeap/journal/internal/logger"
	"github.com/naeap/journal/internal/store"
)

var (
	// ErrBusy is returned while a submit or delete of the console is in flight.
	ErrBusy = errors.New("another operation is in progress")
	// ErrNoEditor is returned when submitting or cancelling with no editor open.
	ErrNoEditor = errors.New("no editor is open")
	// ErrNoPendingDelete is returned when confirming or cancelling a delete
	// that was never requested.
	ErrNoPendingDelete = errors.New("no delete awaiting confirmation")
)

// Kind is the type of record an editor works on.
type Kind string

const (
	KindJournal      Kind = "journal"
	KindAnnouncement Kind = "announcement"
)

// ParseKind accepts the singular or plural name of a kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "journal", "journals":
		return KindJournal, nil
	case "announcement", "announcements":
		return KindAnnouncement, nil
	}
	return "", fmt.Errorf("unknown record kind %q", s)
}

// Mode is what an open editor will do on submit.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// State is the editor state machine:
//
//	closed -> open(create) | open(edit) -> submitting -> closed
//	                                       submitting -> open(same mode), with Err set
type State string

const (
	StateClosed     State = "closed"
	StateCreating   State = "creating"
	StateEditing    State = "editing"
	StateSubmitting State = "submitting"
)

// Editor is the open create or edit form.
type Editor struct {
	Kind     Kind
	Mode     Mode
	TargetID string // record being edited, empty when creating

	Journal      domain.JournalForm
	Announcement domain.AnnouncementForm

	Submitting bool
	Err        error // annotation left by the last failed submit
}

// State reports where the editor is in its lifecycle.
func (e *Editor) State() State {
	switch {
	case e == nil:
		return StateClosed
	case e.Submitting:
		return StateSubmitting
	case e.Mode == ModeEdit:
		return StateEditing
	default:
		return StateCreating
	}
}

// FieldErrors returns the per-field validation messages of the last submit.
func (e *Editor) FieldErrors() map[string]string {
	var verr *domain.ValidationError
	if e != nil && errors.As(e.Err, &verr) {
		return verr.Fields
	}
	return nil
}

// PendingDelete is a delete waiting for the operator's confirmation.
type PendingDelete struct {
	Kind  Kind
	ID    string
	Title string
}

// Service is the part of the content service the console drives.
type Service interface {
	CreateJournal(ctx context.Context, form domain.JournalForm) (domain.Journal, error)
	UpdateJournal(ctx context.Context, id string, form domain.JournalForm) (domain.Journal, error)
	DeleteJournal(ctx context.Context, id string) error
	Journal(ctx context.Context, id string) (domain.Journal, error)
	JournalPage(ctx context.Context, after store.Cursor, limit int) (content.Page[domain.Journal], error)

	CreateAnnouncement(ctx context.Context, form domain.AnnouncementForm) (domain.Announcement, error)
	UpdateAnnouncement(ctx context.Context, id string, form domain.AnnouncementForm) (domain.Announcement, error)
	DeleteAnnouncement(ctx context.Context, id string) error
	Announcement(ctx context.Context, id string) (domain.Announcement, error)
	AnnouncementPage(ctx context.Context, after store.Cursor, limit int) (content.Page[domain.Announcement], error)
}

// Options tunes a console.
type Options struct {
	PageSize  int
	NoticeTTL time.Duration
	Now       func() time.Time
}

// Console is the admin CRUD surface of one operator session. All methods
// are safe for concurrent use. Remote calls run without holding the
// console lock, so snapshots stay available while one is pending.
type Console struct {
	svc      Service
	log      logger.Logger
	pageSize int
	now      func() time.Time

	mu            sync.Mutex
	tab           Kind
	journals      *listing.Archive[domain.Journal]
	announcements *listing.Archive[domain.Announcement]
	editor        *Editor
	pending       *PendingDelete
	deleting      bool
	notices       notices
	lastSeen      time.Time
}

// New creates a console with empty lists. Call Refresh to load them.
func New(svc Service, log logger.Logger, opts Options) *Console {
	if opts.PageSize < 1 {
		opts.PageSize = 20
	}
	if opts.NoticeTTL <= 0 {
		opts.NoticeTTL = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c := &Console{
		svc:      svc,
		log:      log,
		pageSize: opts.PageSize,
		now:      opts.Now,
		tab:      KindJournal,
		notices:  notices{ttl: opts.NoticeTTL},
	}
	c.journals = c.newJournals()
	c.announcements = c.newAnnouncements()
	c.lastSeen = c.now()
	return c
}

func (c *Console) newJournals() *listing.Archive[domain.Journal] {
	return listing.New[domain.Journal](c.svc.JournalPage, c.pageSize, listing.WithHidden())
}

func (c *Console) newAnnouncements() *listing.Archive[domain.Announcement] {
	return listing.New[domain.Announcement](c.svc.AnnouncementPage, c.pageSize, listing.WithHidden())
}

// ─────────────────────────────────────────────────────────────────
// Snapshot
// ─────────────────────────────────────────────────────────────────

// Snapshot is a read-only copy of the console for rendering.
type Snapshot struct {
	Tab           Kind
	Journals      listing.View[domain.Journal]
	Announcements listing.View[domain.Announcement]
	Editor        *Editor
	PendingDelete *PendingDelete
	Deleting      bool
	Notice        *Notice
}

// Snapshot copies the current state.
func (c *Console) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	s := Snapshot{
		Tab:           c.tab,
		Journals:      c.journals.View(listing.Filter{}),
		Announcements: c.announcements.View(listing.Filter{}),
		Deleting:      c.deleting,
		Notice:        c.notices.active(c.now()),
	}
	if c.editor != nil {
		e := *c.editor
		s.Editor = &e
	}
	if c.pending != nil {
		p := *c.pending
		s.PendingDelete = &p
	}
	return s
}

// NeedsLoad reports whether a list has neither data nor an error yet.
func (c *Console) NeedsLoad() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return (!c.journals.Loaded() && c.journals.Err() == nil) ||
		(!c.announcements.Loaded() && c.announcements.Err() == nil)
}

// SetTab switches the visible list.
func (c *Console) SetTab(kind Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	c.tab = kind
}

// DismissNotice hides the current notification.
func (c *Console) DismissNotice() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices.dismiss()
}

// IdleFor reports how long ago the console was last used.
func (c *Console) IdleFor(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return now.Sub(c.lastSeen)
}

// touch must be called with the lock held.
func (c *Console) touch() { c.lastSeen = c.now() }

// ─────────────────────────────────────────────────────────────────
// Lists
// ─────────────────────────────────────────────────────────────────

// Refresh re-fetches page one of both lists.
func (c *Console) Refresh(ctx context.Context) error {
	return errors.Join(c.refresh(ctx, KindJournal), c.refresh(ctx, KindAnnouncement))
}

// refresh re-fetches one list and reports a failure as an error notice.
func (c *Console) refresh(ctx context.Context, kind Kind) error {
	err := c.reload(ctx, kind)
	if err != nil {
		c.mu.Lock()
		c.notices.push(NoticeError, fetchMessage(kind), c.now())
		c.mu.Unlock()
	}
	return err
}

// reload re-fetches page one of a list. A failed fetch keeps the records
// already shown and leaves the list retryable from page one.
func (c *Console) reload(ctx context.Context, kind Kind) error {
	var err error
	if kind == KindJournal {
		err = reloadInto(ctx, c, &c.journals)
	} else {
		err = reloadInto(ctx, c, &c.announcements)
	}
	if err != nil {
		c.log.Error("console list fetch failed", logger.String("kind", string(kind)), logger.Error(err))
	}
	return err
}

// reloadInto loads page one on a copy of the archive in slot. A fresh page
// always wins; a failure is only recorded if nothing replaced the list
// meanwhile.
func reloadInto[T listing.Record](ctx context.Context, c *Console, slot **listing.Archive[T]) error {
	c.mu.Lock()
	orig := *slot
	work := orig.Clone()
	c.mu.Unlock()

	err := work.Load(ctx)

	c.mu.Lock()
	if err == nil || *slot == orig {
		*slot = work
	}
	c.mu.Unlock()
	return err
}

// LoadMore appends the next page of a list.
func (c *Console) LoadMore(ctx context.Context, kind Kind) error {
	if kind == KindJournal {
		return advance(ctx, c, &c.journals, (*listing.Archive[domain.Journal]).LoadMore)
	}
	return advance(ctx, c, &c.announcements, (*listing.Archive[domain.Announcement]).LoadMore)
}

// RetryList re-issues the last failed fetch of a list.
func (c *Console) RetryList(ctx context.Context, kind Kind) error {
	if kind == KindJournal {
		return advance(ctx, c, &c.journals, (*listing.Archive[domain.Journal]).Retry)
	}
	return advance(ctx, c, &c.announcements, (*listing.Archive[domain.Announcement]).Retry)
}

// advance runs op on a copy of the archive in slot and installs the copy,
// unless the list was replaced meanwhile.
func advance[T listing.Record](ctx context.Context, c *Console, slot **listing.Archive[T], op func(*listing.Archive[T], context.Context) error) error {
	c.mu.Lock()
	c.touch()
	orig := *slot
	work := orig.Clone()
	c.mu.Unlock()

	err := op(work, ctx)

	c.mu.Lock()
	if *slot == orig {
		*slot = work
	}
	c.mu.Unlock()
	return err
}

// ─────────────────────────────────────────────────────────────────
// Editor
// ─────────────────────────────────────────────────────────────────

// OpenCreate opens an empty editor for a new record, replacing any open
// editor that is not submitting.
func (c *Console) OpenCreate(kind Kind) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	if c.editor.State() == StateSubmitting {
		return ErrBusy
	}
	c.editor = &Editor{
		Kind:         kind,
		Mode:         ModeCreate,
		Journal:      domain.NewJournalForm(),
		Announcement: domain.AnnouncementForm{Active: true},
	}
	c.tab = kind
	return nil
}

// OpenEdit opens an editor filled from an existing record. The record is
// taken from the loaded list, or fetched when it is not there.
func (c *Console) OpenEdit(ctx context.Context, kind Kind, id string) error {
	c.mu.Lock()
	c.touch()
	if c.editor.State() == StateSubmitting {
		c.mu.Unlock()
		return ErrBusy
	}
	editor, found := c.editorFromLoaded(kind, id)
	c.mu.Unlock()

	if !found {
		var err error
		editor, err = c.editorFromStore(ctx, kind, id)
		if err != nil {
			c.mu.Lock()
			c.notices.push(NoticeError, "Failed to load "+string(kind), c.now())
			c.mu.Unlock()
			c.log.Error("console failed to load record",
				logger.String("kind", string(kind)),
				logger.String("id", id),
				logger.Error(err))
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.editor.State() == StateSubmitting {
		return ErrBusy
	}
	c.editor = editor
	c.tab = kind
	return nil
}

// editorFromLoaded must be called with the lock held.
func (c *Console) editorFromLoaded(kind Kind, id string) (*Editor, bool) {
	if kind == KindJournal {
		for _, j := range c.journals.Items() {
			if j.ID == id {
				return &Editor{Kind: kind, Mode: ModeEdit, TargetID: id, Journal: domain.JournalFormFrom(j)}, true
			}
		}
		return nil, false
	}
	for _, a := range c.announcements.Items() {
		if a.ID == id {
			return &Editor{Kind: kind, Mode: ModeEdit, TargetID: id, Announcement: domain.AnnouncementFormFrom(a)}, true
		}
	}
	return nil, false
}

func (c *Console) editorFromStore(ctx context.Context, kind Kind, id string) (*Editor, error) {
	if kind == KindJournal {
		j, err := c.svc.Journal(ctx, id)
		if err != nil {
			return nil, err
		}
		return &Editor{Kind: kind, Mode: ModeEdit, TargetID: id, Journal: domain.JournalFormFrom(j)}, nil
	}
	a, err := c.svc.Announcement(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Editor{Kind: kind, Mode: ModeEdit, TargetID: id, Announcement: domain.AnnouncementFormFrom(a)}, nil
}

// SetJournalForm replaces the form of an open journal editor.
func (c *Console) SetJournalForm(form domain.JournalForm) error {
	return c.mutateForm(KindJournal, func(e *Editor) { e.Journal = form })
}

// SetAnnouncementForm replaces the form of an open announcement editor.
func (c *Console) SetAnnouncementForm(form domain.AnnouncementForm) error {
	return c.mutateForm(KindAnnouncement, func(e *Editor) { e.Announcement = form })
}

func (c *Console) mutateForm(kind Kind, set func(*Editor)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	switch {
	case c.editor == nil || c.editor.Kind != kind:
		return ErrNoEditor
	case c.editor.Submitting:
		return ErrBusy
	}
	set(c.editor)
	return nil
}

// Cancel closes the editor and discards its form.
func (c *Console) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	switch c.editor.State() {
	case StateClosed:
		return ErrNoEditor
	case StateSubmitting:
		return ErrBusy
	}
	c.editor = nil
	return nil
}

// Submit validates the open form and writes it. On success the editor is
// closed, its list re-fetched from page one and a success notice shown. On
// failure the editor returns to its previous mode with Err set, the form
// kept, and an error notice shown. Invalid forms never reach the store.
func (c *Console) Submit(ctx context.Context) error {
	c.mu.Lock()
	c.touch()
	e := c.editor
	switch e.State() {
	case StateClosed:
		c.mu.Unlock()
		return ErrNoEditor
	case StateSubmitting:
		c.mu.Unlock()
		return ErrBusy
	}

	if err := e.validate(); err != nil {
		e.Err = err
		c.notices.push(NoticeError, message(e.Kind, e.Mode, false), c.now())
		c.mu.Unlock()
		return err
	}
	e.Submitting = true
	e.Err = nil
	work := *e
	c.mu.Unlock()

	err := c.dispatch(ctx, work)
	if err != nil {
		c.log.Error("console submit failed",
			logger.String("kind", string(work.Kind)),
			logger.String("mode", string(work.Mode)),
			logger.String("id", work.TargetID),
			logger.Error(err))

		c.mu.Lock()
		e.Submitting = false
		e.Err = err
		c.notices.push(NoticeError, message(work.Kind, work.Mode, false), c.now())
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	if c.editor == e {
		c.editor = nil
	}
	c.notices.push(NoticeSuccess, message(work.Kind, work.Mode, true), c.now())
	c.mu.Unlock()

	_ = c.reload(ctx, work.Kind)
	return nil
}

func (e *Editor) validate() error {
	if e.Kind == KindJournal {
		form := e.Journal
		if err := domain.Validate(&form); err != nil {
			return err
		}
		e.Journal = form
		return nil
	}
	form := e.Announcement
	if err := domain.Validate(&form); err != nil {
		return err
	}
	e.Announcement = form
	return nil
}

func (c *Console) dispatch(ctx context.Context, e Editor) error {
	var err error
	switch {
	case e.Kind == KindJournal && e.Mode == ModeCreate:
		_, err = c.svc.CreateJournal(ctx, e.Journal)
	case e.Kind == KindJournal:
		_, err = c.svc.UpdateJournal(ctx, e.TargetID, e.Journal)
	case e.Mode == ModeCreate:
		_, err = c.svc.CreateAnnouncement(ctx, e.Announcement)
	default:
		_, err = c.svc.UpdateAnnouncement(ctx, e.TargetID, e.Announcement)
	}
	return err
}

// ─────────────────────────────────────────────────────────────────
// Delete
// ─────────────────────────────────────────────────────────────────

// RequestDelete asks for confirmation before deleting a record. Nothing is
// sent to the store until ConfirmDelete.
func (c *Console) RequestDelete(kind Kind, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	if c.deleting {
		return ErrBusy
	}
	c.pending = &PendingDelete{Kind: kind, ID: id, Title: c.titleOf(kind, id)}
	return nil
}

// titleOf must be called with the lock held.
func (c *Console) titleOf(kind Kind, id string) string {
	if kind == KindJournal {
		for _, j := range c.journals.Items() {
			if j.ID == id {
				return j.Title
			}
		}
		return ""
	}
	for _, a := range c.announcements.Items() {
		if a.ID == id {
			return a.Title
		}
	}
	return ""
}

// CancelDelete drops the pending delete.
func (c *Console) CancelDelete() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	if c.pending == nil {
		return ErrNoPendingDelete
	}
	if c.deleting {
		return ErrBusy
	}
	c.pending = nil
	return nil
}

// ConfirmDelete dispatches the pending delete, then re-fetches the list.
func (c *Console) ConfirmDelete(ctx context.Context) error {
	c.mu.Lock()
	c.touch()
	if c.pending == nil {
		c.mu.Unlock()
		return ErrNoPendingDelete
	}
	if c.deleting {
		c.mu.Unlock()
		return ErrBusy
	}
	p := *c.pending
	c.deleting = true
	c.mu.Unlock()

	var err error
	if p.Kind == KindJournal {
		err = c.svc.DeleteJournal(ctx, p.ID)
	} else {
		err = c.svc.DeleteAnnouncement(ctx, p.ID)
	}

	c.mu.Lock()
	c.deleting = false
	c.pending = nil
	c.notices.push(noticeKind(err), deleteMessage(p.Kind, err == nil), c.now())
	c.mu.Unlock()

	if err != nil {
		c.log.Error("console delete failed",
			logger.String("kind", string(p.Kind)),
			logger.String("id", p.ID),
			logger.Error(err))
		return err
	}

	_ = c.reload(ctx, p.Kind)
	return nil
}

func noticeKind(err error) NoticeKind {
	if err != nil {
		return NoticeError
	}
	return NoticeSuccess
}
