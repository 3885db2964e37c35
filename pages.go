package spacetraveling

import (
	"context"
	"sort"
	"sync"
)

// PostLoader fetches a full post by UID.
type PostLoader interface {
	GetPost(ctx context.Context, uid string) (PostDetail, error)
}

// PageStore holds the post pages the server can answer directly: those
// rendered ahead of time and those generated on demand by the fallback.
// Entries are never evicted or refreshed, like files in a static build.
type PageStore struct {
	mu     sync.RWMutex
	posts  map[string]PostDetail
	loader PostLoader
}

// NewPageStore creates an empty PageStore backed by loader.
func NewPageStore(loader PostLoader) *PageStore {
	return &PageStore{posts: make(map[string]PostDetail), loader: loader}
}

// Prerender loads every uid. It stops at the first failure.
func (s *PageStore) Prerender(ctx context.Context, uids []string) error {
	for _, uid := range uids {
		if _, err := s.Load(ctx, uid); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns an already generated post without fetching.
func (s *PageStore) Lookup(uid string) (PostDetail, bool) {
	s.mu.RLock()
	p, ok := s.posts[uid]
	s.mu.RUnlock()
	return p, ok
}

// Load returns the post for uid, fetching and remembering it on first use.
// Missing posts are not remembered.
func (s *PageStore) Load(ctx context.Context, uid string) (PostDetail, error) {
	if p, ok := s.Lookup(uid); ok {
		return p, nil
	}
	p, err := s.loader.GetPost(ctx, uid)
	if err != nil {
		return PostDetail{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.posts[uid]; ok {
		return existing, nil
	}
	s.posts[uid] = p
	return p, nil
}

// Slugs returns the UIDs of every generated post, sorted.
func (s *PageStore) Slugs() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.posts))
	for uid := range s.posts {
		out = append(out, uid)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Len returns the number of generated posts.
func (s *PageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.posts)
}
