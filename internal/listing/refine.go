package listing

import (
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Filter narrows the loaded records. The zero value matches everything.
type Filter struct {
	Search string // case-insensitive substring, any search field
	Year   int    // UTC year of creation, 0 = any
}

// Active reports whether the filter narrows anything.
func (f Filter) Active() bool {
	return strings.TrimSpace(f.Search) != "" || f.Year != 0
}

// View is the rendered state of an archive under a filter.
type View[T Record] struct {
	Items  []T
	Count  int
	Years  []int // years present among the visible loaded records, newest first
	Filter Filter

	// ShowLoadMore is false while a filter is active.
	ShowLoadMore bool

	Err    error
	Loaded bool
}

// VisibleOnly drops records hidden from the public.
func VisibleOnly[T Record](records []T) []T {
	return lo.Filter(records, func(r T, _ int) bool { return r.Visible() })
}

// Refine applies free-text search and then the year filter.
func Refine[T Record](records []T, f Filter) []T {
	out := records
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		out = lo.Filter(out, func(r T, _ int) bool { return matches(r, q) })
	}
	if f.Year != 0 {
		out = lo.Filter(out, func(r T, _ int) bool { return r.Created().UTC().Year() == f.Year })
	}
	return out
}

// Years lists the distinct creation years of records, newest first.
func Years[T Record](records []T) []int {
	years := lo.Uniq(lo.Map(records, func(r T, _ int) int { return r.Created().UTC().Year() }))
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

func matches[T Record](r T, lowered string) bool {
	return lo.SomeBy(r.SearchFields(), func(field string) bool {
		return strings.Contains(strings.ToLower(field), lowered)
	})
}
