package listing

import (
	"context"
	"errors"
	"time"

	"github.com/naeap/journal/internal/content"
	"github.com/naeap/journal/internal/store"
)

// Record is anything an Archive can hold.
type Record interface {
	RecordID() string
	Created() time.Time
	// Visible reports whether anonymous visitors may see the record.
	Visible() bool
	// SearchFields are the texts free-text search looks into.
	SearchFields() []string
}

// Fetcher reads one page of a collection, newest first, after a cursor.
type Fetcher[T Record] func(ctx context.Context, after store.Cursor, limit int) (content.Page[T], error)

// ErrNothingToRetry is returned by Retry when no fetch has failed.
var ErrNothingToRetry = errors.New("no failed fetch to retry")

type fetchKind int

const (
	fetchNone fetchKind = iota
	fetchFirst
	fetchMore
)

// Archive is the window of records fetched so far from one collection.
// Refinement (visibility, search, year) only ever looks at that window.
//
// An Archive is not safe for concurrent use.
type Archive[T Record] struct {
	fetch      Fetcher[T]
	pageSize   int
	showHidden bool

	items   []T
	next    store.Cursor
	loaded  bool
	hasMore bool

	err    error
	failed fetchKind
}

// Option configures an Archive.
type Option func(*settings)

type settings struct {
	showHidden bool
}

// WithHidden keeps records that are not visible to the public. The admin
// console lists everything.
func WithHidden() Option {
	return func(s *settings) { s.showHidden = true }
}

// New creates an empty archive reading pageSize records per fetch.
func New[T Record](fetch Fetcher[T], pageSize int, opts ...Option) *Archive[T] {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	if pageSize < 1 {
		pageSize = 1
	}
	return &Archive[T]{fetch: fetch, pageSize: pageSize, showHidden: s.showHidden}
}

// Load fetches page one, replacing whatever was loaded before. On failure
// the loaded records stay and Retry re-issues page one.
func (a *Archive[T]) Load(ctx context.Context) error {
	page, err := a.fetch(ctx, "", a.pageSize)
	if err != nil {
		a.fail(fetchFirst, err)
		return err
	}

	a.items = append([]T(nil), page.Items...)
	a.next = page.Next
	a.loaded = true
	a.hasMore = page.Fetched == a.pageSize
	a.clearErr()
	return nil
}

// LoadMore appends the page after the last loaded record. It is a no-op
// once the collection is exhausted. On failure the records already loaded
// are kept.
func (a *Archive[T]) LoadMore(ctx context.Context) error {
	if !a.loaded {
		return a.Load(ctx)
	}
	if !a.hasMore {
		return nil
	}

	page, err := a.fetch(ctx, a.next, a.pageSize)
	if err != nil {
		a.fail(fetchMore, err)
		return err
	}

	a.items = append(a.items, page.Items...)
	if page.Next != "" {
		a.next = page.Next
	}
	a.hasMore = page.Fetched == a.pageSize
	a.clearErr()
	return nil
}

// LoadPages loads page one and then continues until n pages are loaded or
// the collection runs out.
func (a *Archive[T]) LoadPages(ctx context.Context, n int) error {
	if err := a.Load(ctx); err != nil {
		return err
	}
	for i := 1; i < n && a.hasMore; i++ {
		if err := a.LoadMore(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Retry re-issues the fetch that failed last.
func (a *Archive[T]) Retry(ctx context.Context) error {
	switch a.failed {
	case fetchFirst:
		return a.Load(ctx)
	case fetchMore:
		return a.LoadMore(ctx)
	default:
		return ErrNothingToRetry
	}
}

// Clone returns an independent copy of the archive.
func (a *Archive[T]) Clone() *Archive[T] {
	cp := *a
	cp.items = append([]T(nil), a.items...)
	return &cp
}

// Err returns the error of the last failed fetch, cleared by the next
// successful one.
func (a *Archive[T]) Err() error { return a.err }

// Loaded reports whether page one has been fetched.
func (a *Archive[T]) Loaded() bool { return a.loaded }

// HasMore reports whether another page may exist.
func (a *Archive[T]) HasMore() bool { return a.hasMore }

// Items returns the loaded records, hidden ones included, newest first.
func (a *Archive[T]) Items() []T { return a.items }

// View applies the refinement filter to the loaded records.
func (a *Archive[T]) View(f Filter) View[T] {
	base := a.items
	if !a.showHidden {
		base = VisibleOnly(base)
	}
	items := Refine(base, f)
	return View[T]{
		Items:        items,
		Count:        len(items),
		Years:        Years(base),
		Filter:       f,
		ShowLoadMore: a.hasMore && !f.Active(),
		Err:          a.err,
		Loaded:       a.loaded,
	}
}

func (a *Archive[T]) fail(kind fetchKind, err error) {
	a.err = err
	a.failed = kind
}

func (a *Archive[T]) clearErr() {
	a.err = nil
	a.failed = fetchNone
}
