package spacetraveling

import (
	"context"
	"errors"
	"testing"
)

// fakeFetcher returns canned pages keyed by cursor and counts calls.
type fakeFetcher struct {
	pages map[string]Pagination
	err   error
	calls []string
}

func (f *fakeFetcher) FetchPage(ctx context.Context, cursor string) (Pagination, error) {
	f.calls = append(f.calls, cursor)
	if f.err != nil {
		return Pagination{}, f.err
	}
	return f.pages[cursor], nil
}

func posts(uids ...string) []Post {
	out := make([]Post, len(uids))
	for i, uid := range uids {
		out[i] = Post{UID: uid, Data: PostData{Title: "Post " + uid}}
	}
	return out
}

func uidsOf(ps []Post) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.UID
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNewPaginatorInitialState(t *testing.T) {
	p := NewPaginator(Pagination{NextPage: "https://cms/page2", Results: posts("a")}, &fakeFetcher{})
	if !p.HasMore() {
		t.Error("HasMore should be true when a cursor is supplied")
	}
	if p.Cursor() != "https://cms/page2" {
		t.Errorf("Cursor = %q", p.Cursor())
	}

	p = NewPaginator(Pagination{NextPage: "", Results: posts("a")}, &fakeFetcher{})
	if p.HasMore() {
		t.Error("HasMore should be false when next_page is empty")
	}
}

func TestAdvanceReplacesResults(t *testing.T) {
	f := &fakeFetcher{pages: map[string]Pagination{
		"p2": {NextPage: "p3", Results: posts("b", "c")},
		"p3": {NextPage: "", Results: posts("d")},
	}}
	p := NewPaginator(Pagination{NextPage: "p2", Results: posts("a")}, f)

	if err := p.Advance(context.Background()); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if got := uidsOf(p.Posts()); !equalStrings(got, []string{"b", "c"}) {
		t.Errorf("Posts = %v, want [b c] (replacement, not union)", got)
	}
	if p.Cursor() != "p3" {
		t.Errorf("Cursor = %q, want p3", p.Cursor())
	}
	if !p.HasMore() {
		t.Error("HasMore should still be true")
	}

	if err := p.Advance(context.Background()); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if got := uidsOf(p.Posts()); !equalStrings(got, []string{"d"}) {
		t.Errorf("Posts = %v, want [d]", got)
	}
	if p.HasMore() {
		t.Error("HasMore should be false after the last page")
	}
	if !equalStrings(f.calls, []string{"p2", "p3"}) {
		t.Errorf("calls = %v, want [p2 p3]", f.calls)
	}
}

func TestAdvanceAfterLastPageDoesNotFetch(t *testing.T) {
	f := &fakeFetcher{pages: map[string]Pagination{
		"p2": {NextPage: "", Results: posts("b")},
	}}
	p := NewPaginator(Pagination{NextPage: "p2", Results: posts("a")}, f)

	if err := p.Advance(context.Background()); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if err := p.Advance(context.Background()); err != nil {
		t.Fatalf("second Advance failed: %v", err)
	}
	if len(f.calls) != 1 {
		t.Errorf("fetches = %d, want 1", len(f.calls))
	}
	if got := uidsOf(p.Posts()); !equalStrings(got, []string{"b"}) {
		t.Errorf("Posts = %v, want [b]", got)
	}
}

func TestAdvanceWithEmptyCursor(t *testing.T) {
	f := &fakeFetcher{}
	p := RestorePaginator(PaginatorState{Cursor: "", HasMore: true}, f)

	if err := p.Advance(context.Background()); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if len(f.calls) != 0 {
		t.Errorf("fetches = %d, want 0", len(f.calls))
	}
	if p.HasMore() {
		t.Error("HasMore should be false")
	}
	if len(p.Posts()) != 0 {
		t.Errorf("Posts = %v, want unchanged (empty)", p.Posts())
	}
}

func TestAdvanceFailureLeavesStateUnchanged(t *testing.T) {
	boom := errors.New("network down")
	f := &fakeFetcher{err: boom}
	p := NewPaginator(Pagination{NextPage: "p2", Results: posts("a")}, f)

	err := p.Advance(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Advance error = %v, want %v", err, boom)
	}
	if got := uidsOf(p.Posts()); !equalStrings(got, []string{"a"}) {
		t.Errorf("Posts = %v, want [a]", got)
	}
	if p.Cursor() != "p2" || !p.HasMore() {
		t.Errorf("state changed: cursor=%q hasMore=%v", p.Cursor(), p.HasMore())
	}
	if len(f.calls) != 1 {
		t.Errorf("fetches = %d, want 1 (no retry)", len(f.calls))
	}
}

func TestPaginatorStateRoundTrip(t *testing.T) {
	f := &fakeFetcher{pages: map[string]Pagination{
		"p3": {NextPage: "p4", Results: posts("c")},
	}}
	saved := NewPaginator(Pagination{NextPage: "p3", Results: posts("a")}, f).State()

	p := RestorePaginator(saved, f)
	if err := p.Advance(context.Background()); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if p.State() != (PaginatorState{Cursor: "p4", HasMore: true}) {
		t.Errorf("State = %+v", p.State())
	}
}
