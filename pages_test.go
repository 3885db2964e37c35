package spacetraveling

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type countingLoader struct {
	mu    sync.Mutex
	posts map[string]PostDetail
	calls map[string]int
}

func (l *countingLoader) GetPost(ctx context.Context, uid string) (PostDetail, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.calls == nil {
		l.calls = make(map[string]int)
	}
	l.calls[uid]++
	p, ok := l.posts[uid]
	if !ok {
		return PostDetail{}, ErrNotFound
	}
	return p, nil
}

func detail(uid string) PostDetail {
	return PostDetail{Post: Post{UID: uid, Data: PostData{Title: "Title " + uid}}}
}

func TestPageStorePrerender(t *testing.T) {
	l := &countingLoader{posts: map[string]PostDetail{"a": detail("a"), "b": detail("b")}}
	s := NewPageStore(l)

	if err := s.Prerender(context.Background(), []string{"b", "a"}); err != nil {
		t.Fatalf("Prerender failed: %v", err)
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
	if got := s.Slugs(); !equalStrings(got, []string{"a", "b"}) {
		t.Errorf("Slugs = %v", got)
	}
	if _, ok := s.Lookup("a"); !ok {
		t.Error("expected a to be prerendered")
	}
}

func TestPageStoreLoadOnDemand(t *testing.T) {
	l := &countingLoader{posts: map[string]PostDetail{"late": detail("late")}}
	s := NewPageStore(l)

	if _, ok := s.Lookup("late"); ok {
		t.Fatal("late should not be generated yet")
	}
	p, err := s.Load(context.Background(), "late")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p.Data.Title != "Title late" {
		t.Errorf("Title = %q", p.Data.Title)
	}
	if _, err := s.Load(context.Background(), "late"); err != nil {
		t.Fatal(err)
	}
	if l.calls["late"] != 1 {
		t.Errorf("loader calls = %d, want 1", l.calls["late"])
	}
}

func TestPageStoreMissingIsNotRemembered(t *testing.T) {
	l := &countingLoader{}
	s := NewPageStore(l)

	_, err := s.Load(context.Background(), "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	_, _ = s.Load(context.Background(), "ghost")
	if l.calls["ghost"] != 2 {
		t.Errorf("loader calls = %d, want 2", l.calls["ghost"])
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

func TestPageStorePrerenderStopsOnError(t *testing.T) {
	l := &countingLoader{posts: map[string]PostDetail{"a": detail("a")}}
	s := NewPageStore(l)

	if err := s.Prerender(context.Background(), []string{"a", "missing", "b"}); err == nil {
		t.Fatal("expected error")
	}
	if l.calls["b"] != 0 {
		t.Error("prerender should stop at the first failure")
	}
}

func TestPageStoreConcurrentLoad(t *testing.T) {
	l := &countingLoader{posts: map[string]PostDetail{"a": detail("a")}}
	s := NewPageStore(l)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Load(context.Background(), "a"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}
