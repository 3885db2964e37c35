package spacetraveling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/eringen/spacetraveling/cms"
	"github.com/eringen/spacetraveling/richtext"
)

// memClient is an in-memory cms.Client. Documents are paged by pageSize and
// next_page cursors are "page:N".
type memClient struct {
	docs     []cms.Document
	pageSize int
	fetches  int
	failNext bool
}

func (m *memClient) page(n, size int) *cms.Response {
	if size <= 0 {
		size = len(m.docs)
	}
	start := (n - 1) * size
	end := start + size
	if start > len(m.docs) {
		start = len(m.docs)
	}
	if end > len(m.docs) {
		end = len(m.docs)
	}
	res := &cms.Response{Page: n, ResultsPerPage: size, Results: m.docs[start:end]}
	if end < len(m.docs) {
		next := fmt.Sprintf("page:%d:%d", n+1, size)
		res.NextPage = &next
	}
	return res
}

func (m *memClient) GetByType(ctx context.Context, docType string, opts cms.QueryOptions) (*cms.Response, error) {
	page := opts.Page
	if page == 0 {
		page = 1
	}
	return m.page(page, opts.PageSize), nil
}

func (m *memClient) GetByUID(ctx context.Context, docType, uid string) (*cms.Document, error) {
	for i := range m.docs {
		if m.docs[i].UID == uid {
			return &m.docs[i], nil
		}
	}
	return nil, cms.ErrNotFound
}

func (m *memClient) Fetch(ctx context.Context, pageURL string) (*cms.Response, error) {
	m.fetches++
	if m.failNext {
		return nil, errors.New("upstream unavailable")
	}
	var n, size int
	if _, err := fmt.Sscanf(pageURL, "page:%d:%d", &n, &size); err != nil {
		return nil, err
	}
	return m.page(n, size), nil
}

func doc(t *testing.T, uid string, data any) cms.Document {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatal(err)
	}
	ts := &cms.Timestamp{}
	if err := ts.UnmarshalJSON([]byte(`"2021-03-25T19:25:28+0000"`)); err != nil {
		t.Fatal(err)
	}
	return cms.Document{ID: "id-" + uid, UID: uid, Type: "posts", FirstPublicationDate: ts, Data: raw}
}

func summaryDocs(t *testing.T, uids ...string) []cms.Document {
	out := make([]cms.Document, len(uids))
	for i, uid := range uids {
		out[i] = doc(t, uid, map[string]string{"title": "Title " + uid, "subtitle": "Sub", "author": "Ana"})
	}
	return out
}

func TestListPostsMapsSummaries(t *testing.T) {
	c := &memClient{docs: summaryDocs(t, "a", "b")}
	src := NewPostSource(c, "posts", 1)

	p, err := src.ListPosts(context.Background())
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(p.Results) != 1 || p.Results[0].UID != "a" {
		t.Fatalf("Results = %+v", p.Results)
	}
	got := p.Results[0]
	if got.Data.Title != "Title a" || got.Data.Author != "Ana" || got.Data.Subtitle != "Sub" {
		t.Errorf("Data = %+v", got.Data)
	}
	if got.FirstPublicationDate == nil || got.FirstPublicationDate.Year() != 2021 {
		t.Errorf("FirstPublicationDate = %v", got.FirstPublicationDate)
	}
	if p.NextPage == "" {
		t.Error("NextPage should be set while more documents exist")
	}
}

func TestPostSourceDrivesPaginator(t *testing.T) {
	c := &memClient{docs: summaryDocs(t, "a", "b", "c")}
	src := NewPostSource(c, "posts", 1)

	first, err := src.ListPosts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	p := NewPaginator(first, src)
	var seen []string
	for p.HasMore() {
		if err := p.Advance(context.Background()); err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
		seen = append(seen, uidsOf(p.Posts())...)
	}
	if !equalStrings(seen, []string{"b", "c"}) {
		t.Errorf("seen = %v, want [b c]", seen)
	}
	if c.fetches != 2 {
		t.Errorf("fetches = %d, want 2", c.fetches)
	}
}

func TestFetchPageError(t *testing.T) {
	c := &memClient{docs: summaryDocs(t, "a", "b"), failNext: true}
	src := NewPostSource(c, "posts", 1)
	if _, err := src.FetchPage(context.Background(), "page:2:1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestGetPost(t *testing.T) {
	c := &memClient{docs: []cms.Document{doc(t, "hello", map[string]any{
		"title":  "Hello",
		"author": "Ana",
		"banner": map[string]string{"url": "https://img/banner.jpg", "alt": "stars"},
		"content": []map[string]any{
			{"heading": "Intro", "body": []map[string]any{{"type": "paragraph", "text": "one two three", "spans": []any{}}}},
		},
	})}}
	src := NewPostSource(c, "posts", 1)

	post, err := src.GetPost(context.Background(), "hello")
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if post.UID != "hello" || post.Data.Title != "Hello" {
		t.Errorf("post = %+v", post.Post)
	}
	if post.Banner.URL != "https://img/banner.jpg" || post.Banner.Alt != "stars" {
		t.Errorf("Banner = %+v", post.Banner)
	}
	if len(post.Content) != 1 || post.Content[0].Heading != "Intro" {
		t.Fatalf("Content = %+v", post.Content)
	}
	if para, ok := post.Content[0].Body[0].(richtext.Paragraph); !ok || para.Text != "one two three" {
		t.Errorf("Body[0] = %#v", post.Content[0].Body[0])
	}
	if post.ReadingTime() != 1 {
		t.Errorf("ReadingTime = %d, want 1", post.ReadingTime())
	}
}

func TestGetPostNotFound(t *testing.T) {
	src := NewPostSource(&memClient{}, "posts", 1)
	_, err := src.GetPost(context.Background(), "missing")
	if !IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false", err)
	}
}

func TestStaticPaths(t *testing.T) {
	uids := make([]string, 45)
	for i := range uids {
		uids[i] = fmt.Sprintf("post-%02d", i)
	}
	c := &memClient{docs: summaryDocs(t, uids...)}
	src := NewPostSource(c, "posts", 1)

	all, err := src.StaticPaths(context.Background(), 0)
	if err != nil {
		t.Fatalf("StaticPaths failed: %v", err)
	}
	if len(all) != 45 || all[0] != "post-00" || all[44] != "post-44" {
		t.Errorf("all = %d paths, first=%v", len(all), all[:1])
	}

	limited, err := src.StaticPaths(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if !equalStrings(limited, uids[:5]) {
		t.Errorf("limited = %v", limited)
	}
}

func TestPostLink(t *testing.T) {
	if got := (Post{UID: "como-utilizar-hooks"}).Link(); got != "/post/como-utilizar-hooks/" {
		t.Errorf("Link = %q", got)
	}
}
