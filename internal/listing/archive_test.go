package listing

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/naeap/journal/internal/content"
	"github.com/naeap/journal/internal/domain"
	"github.com/naeap/journal/internal/store"
)

// fakeSource serves journals from a fixed slice, newest first, and can be
// told to fail specific calls.
type fakeSource struct {
	journals []domain.Journal // newest first
	calls    []store.Cursor
	failOn   map[int]error // call index -> error
}

func (f *fakeSource) fetch(_ context.Context, after store.Cursor, limit int) (content.Page[domain.Journal], error) {
	call := len(f.calls)
	f.calls = append(f.calls, after)
	if err, ok := f.failOn[call]; ok {
		return content.Page[domain.Journal]{}, err
	}

	start := 0
	if after != "" {
		for i, j := range f.journals {
			if store.NewCursor(j.CreatedAt, j.ID) == after {
				start = i + 1
				break
			}
		}
	}
	end := min(start+limit, len(f.journals))
	items := f.journals[start:end]

	page := content.Page[domain.Journal]{Items: items, Fetched: len(items)}
	if len(items) > 0 {
		last := items[len(items)-1]
		page.Next = store.NewCursor(last.CreatedAt, last.ID)
	}
	return page, nil
}

func journals(n int) []domain.Journal {
	out := make([]domain.Journal, 0, n)
	base := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		out = append(out, domain.Journal{
			ID:        fmt.Sprintf("j%02d", i),
			Title:     fmt.Sprintf("Journal %d", i),
			Published: true,
			CreatedAt: base.Add(-time.Duration(i) * time.Hour),
		})
	}
	return out
}

func ids(js []domain.Journal) []string {
	out := make([]string, 0, len(js))
	for _, j := range js {
		out = append(out, j.ID)
	}
	return out
}

func TestLoadAndContinue(t *testing.T) {
	src := &fakeSource{journals: journals(8)}
	a := New[domain.Journal](src.fetch, 3)
	ctx := context.Background()

	if err := a.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !a.HasMore() || len(a.Items()) != 3 {
		t.Fatalf("after Load: items=%d hasMore=%v", len(a.Items()), a.HasMore())
	}

	for a.HasMore() {
		if err := a.LoadMore(ctx); err != nil {
			t.Fatalf("LoadMore() error = %v", err)
		}
	}

	if got, want := ids(a.Items()), ids(src.journals); !reflect.DeepEqual(got, want) {
		t.Errorf("loaded %v, want %v (no overlap, no gap)", got, want)
	}
	calls := len(src.calls)
	if err := a.LoadMore(ctx); err != nil {
		t.Fatal(err)
	}
	if len(src.calls) != calls {
		t.Error("LoadMore() after the last page should not fetch")
	}
}

func TestExactMultipleOfPageSize(t *testing.T) {
	src := &fakeSource{journals: journals(6)}
	a := New[domain.Journal](src.fetch, 3)
	ctx := context.Background()

	if err := a.LoadPages(ctx, 5); err != nil {
		t.Fatal(err)
	}
	if a.HasMore() {
		t.Error("HasMore() should be false after an empty page")
	}
	if len(a.Items()) != 6 {
		t.Errorf("items = %d, want 6", len(a.Items()))
	}
}

func TestInitialFailureThenRetry(t *testing.T) {
	src := &fakeSource{
		journals: journals(4),
		failOn:   map[int]error{0: errors.New("unavailable")},
	}
	a := New[domain.Journal](src.fetch, 6)
	ctx := context.Background()

	if err := a.Load(ctx); err == nil {
		t.Fatal("Load() should fail")
	}
	v := a.View(Filter{})
	if v.Err == nil || v.Loaded || len(v.Items) != 0 {
		t.Fatalf("error view = %+v", v)
	}

	if err := a.Retry(ctx); err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if src.calls[1] != src.calls[0] {
		t.Errorf("Retry() fetched after %q, want same fetch %q", src.calls[1], src.calls[0])
	}
	v = a.View(Filter{})
	if v.Err != nil || len(v.Items) != 4 {
		t.Errorf("after retry: err=%v items=%d", v.Err, len(v.Items))
	}
	if err := a.Retry(ctx); !errors.Is(err, ErrNothingToRetry) {
		t.Errorf("Retry() with nothing failed = %v", err)
	}
}

func TestContinuationFailureKeepsLoadedRecords(t *testing.T) {
	src := &fakeSource{
		journals: journals(5),
		failOn:   map[int]error{1: errors.New("timeout")},
	}
	a := New[domain.Journal](src.fetch, 2)
	ctx := context.Background()

	if err := a.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if err := a.LoadMore(ctx); err == nil {
		t.Fatal("LoadMore() should fail")
	}
	if len(a.Items()) != 2 || a.Err() == nil {
		t.Fatalf("items=%d err=%v, want 2 kept and an error", len(a.Items()), a.Err())
	}

	if err := a.Retry(ctx); err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if src.calls[2] != src.calls[1] {
		t.Errorf("Retry() fetched after %q, want %q", src.calls[2], src.calls[1])
	}
	if got := ids(a.Items()); !reflect.DeepEqual(got, []string{"j00", "j01", "j02", "j03"}) {
		t.Errorf("items after retry = %v", got)
	}
}

func TestReloadFailureKeepsLoadedRecords(t *testing.T) {
	src := &fakeSource{
		journals: journals(4),
		failOn:   map[int]error{1: errors.New("network down")},
	}
	a := New[domain.Journal](src.fetch, 3)
	ctx := context.Background()

	if err := a.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if err := a.Load(ctx); err == nil {
		t.Fatal("second Load() should fail")
	}
	if got := ids(a.Items()); !reflect.DeepEqual(got, []string{"j00", "j01", "j02"}) {
		t.Fatalf("items after failed reload = %v, want the first page kept", got)
	}
	if a.Err() == nil || !a.Loaded() {
		t.Fatalf("err=%v loaded=%v, want an error on a loaded list", a.Err(), a.Loaded())
	}

	if err := a.Retry(ctx); err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if src.calls[2] != "" {
		t.Errorf("Retry() fetched after %q, want page one", src.calls[2])
	}
	if a.Err() != nil || len(a.Items()) != 3 {
		t.Errorf("after retry: err=%v items=%d", a.Err(), len(a.Items()))
	}
}

func TestMalformedRecordsDoNotEndPagination(t *testing.T) {
	calls := 0
	fetch := func(_ context.Context, _ store.Cursor, limit int) (content.Page[domain.Journal], error) {
		calls++
		if calls == 1 {
			// Three fetched, one dropped during decoding.
			return content.Page[domain.Journal]{
				Items:   journals(2),
				Fetched: limit,
				Next:    "0000000000000000001:x",
			}, nil
		}
		return content.Page[domain.Journal]{}, nil
	}

	a := New[domain.Journal](fetch, 3)
	if err := a.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !a.HasMore() {
		t.Error("HasMore() should follow the fetched count, not the decoded count")
	}
}

func TestViewHidesUnpublishedUnlessAdmin(t *testing.T) {
	js := journals(3)
	js[1].Published = false
	src := &fakeSource{journals: js}

	public := New[domain.Journal](src.fetch, 10)
	admin := New[domain.Journal](src.fetch, 10, WithHidden())
	ctx := context.Background()
	if err := public.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if err := admin.Load(ctx); err != nil {
		t.Fatal(err)
	}

	if got := ids(public.View(Filter{}).Items); !reflect.DeepEqual(got, []string{"j00", "j02"}) {
		t.Errorf("public view = %v", got)
	}
	if got := admin.View(Filter{}).Count; got != 3 {
		t.Errorf("admin view count = %d, want 3", got)
	}
}

func TestLoadMoreHiddenWhileFiltering(t *testing.T) {
	src := &fakeSource{journals: journals(10)}
	a := New[domain.Journal](src.fetch, 3)
	if err := a.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	if !a.View(Filter{}).ShowLoadMore {
		t.Error("load more should be offered without a filter")
	}
	if a.View(Filter{Search: "journal"}).ShowLoadMore {
		t.Error("load more should be hidden while searching")
	}
	if a.View(Filter{Year: 2024}).ShowLoadMore {
		t.Error("load more should be hidden while filtering by year")
	}
}
