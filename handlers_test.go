package spacetraveling

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/a-h/templ"
)

func textComponent(s string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	})
}

func stubViews() ViewFuncs {
	list := func(prefix string, p ListingPage) templ.Component {
		var b strings.Builder
		b.WriteString(prefix)
		for _, post := range p.Posts {
			b.WriteString(" " + post.UID)
		}
		fmt.Fprintf(&b, " more=%v next=%s", p.HasMore, p.NextURL)
		return textComponent(b.String())
	}
	return ViewFuncs{
		Home:     func(p ListingPage) templ.Component { return list("home:", p) },
		PostList: func(p ListingPage) templ.Component { return list("list:", p) },
		Post: func(p PostPage) templ.Component {
			return textComponent(fmt.Sprintf("post:%s min=%d", p.Post.UID, p.ReadingTime))
		},
		PostPartial: func(p PostPage) templ.Component {
			return textComponent("partial:" + p.Post.UID)
		},
		PostLoading:   func(site SiteConfig, slug string) templ.Component { return textComponent("loading:" + slug) },
		MoreExhausted: func() templ.Component { return textComponent("exhausted") },
		NotFound:      func(SiteConfig) templ.Component { return textComponent("notfound") },
		ServerError:   func(SiteConfig) templ.Component { return textComponent("servererror") },
	}
}

func testConfig() SiteConfig {
	return SiteConfig{
		Name:           "spacetraveling",
		URL:            "https://blog.example.com",
		APIEndpoint:    "https://cms.example.com/api/v2",
		SessionSecret:  "0123456789abcdef0123456789abcdef",
		PrerenderLimit: 1,
		StaticDir:      "testdata-missing",
	}
}

func newTestApp(t *testing.T, c *memClient, cfg SiteConfig) *App {
	t.Helper()
	a := New(cfg, stubViews(),
		WithSource(c),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err := a.Setup(context.Background()); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

// browser keeps cookies across requests like a real client.
type browser struct {
	t       *testing.T
	app     *App
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, a *App) *browser {
	return &browser{t: t, app: a, cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	b.app.Echo.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		b.cookies[c.Name] = c
	}
	return rec
}

func (b *browser) get(target string, htmx bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	return b.do(req)
}

func (b *browser) more(htmx bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, MorePath, nil)
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	if c, ok := b.cookies["_csrf"]; ok {
		req.Header.Set("X-CSRF-Token", c.Value)
	}
	return b.do(req)
}

func TestHomeRendersFirstPage(t *testing.T) {
	a := newTestApp(t, &memClient{docs: summaryDocs(t, "a", "b")}, testConfig())
	rec := newBrowser(t, a).get("/", false)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Body.String(); got != "home: a more=true next=" {
		t.Errorf("body = %q", got)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "private, no-cache" {
		t.Errorf("Cache-Control = %q", cc)
	}
}

func TestLoadMoreWalksPages(t *testing.T) {
	c := &memClient{docs: summaryDocs(t, "a", "b", "c")}
	a := newTestApp(t, c, testConfig())
	b := newBrowser(t, a)
	b.get("/", false)

	rec := b.more(true)
	if rec.Code != http.StatusOK || rec.Body.String() != "list: b more=true next=" {
		t.Fatalf("first more: %d %q", rec.Code, rec.Body.String())
	}
	rec = b.more(true)
	if rec.Body.String() != "list: c more=false next=" {
		t.Fatalf("second more: %q", rec.Body.String())
	}
	fetches := c.fetches
	rec = b.more(true)
	if rec.Body.String() != "exhausted" || rec.Header().Get("HX-Reswap") != "none" {
		t.Errorf("third more: %q reswap=%q", rec.Body.String(), rec.Header().Get("HX-Reswap"))
	}
	if c.fetches != fetches {
		t.Errorf("exhausted listing fetched again")
	}
}

func TestLoadMoreFailureKeepsState(t *testing.T) {
	c := &memClient{docs: summaryDocs(t, "a", "b", "c")}
	a := newTestApp(t, c, testConfig())
	b := newBrowser(t, a)
	b.get("/", false)

	c.failNext = true
	rec := b.more(true)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	c.failNext = false
	rec = b.more(true)
	if rec.Body.String() != "list: b more=true next=" {
		t.Errorf("after failure: %q", rec.Body.String())
	}
}

func TestLoadMoreWithoutJavaScript(t *testing.T) {
	a := newTestApp(t, &memClient{docs: summaryDocs(t, "a", "b")}, testConfig())
	b := newBrowser(t, a)
	b.get("/", false)

	rec := b.more(false)
	if rec.Body.String() != "home: b more=false next=" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestLoadMoreWithoutJavaScriptFailureKeepsPlace(t *testing.T) {
	c := &memClient{docs: summaryDocs(t, "a", "b", "c")}
	a := newTestApp(t, c, testConfig())
	b := newBrowser(t, a)
	b.get("/", false)
	if rec := b.more(false); rec.Body.String() != "home: b more=true next=" {
		t.Fatalf("first advance = %q", rec.Body.String())
	}

	c.failNext = true
	rec := b.more(false)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "" {
		t.Errorf("failure redirected to %q", loc)
	}

	c.failNext = false
	if rec := b.more(false); rec.Body.String() != "home: c more=false next=" {
		t.Errorf("advance after failure = %q, want page c", rec.Body.String())
	}

	fetches := c.fetches
	rec = b.more(false)
	if rec.Code != http.StatusNoContent || c.fetches != fetches {
		t.Errorf("exhausted listing: status %d, fetches %d -> %d", rec.Code, fetches, c.fetches)
	}
}

func TestLoadMoreWithoutSession(t *testing.T) {
	c := &memClient{docs: summaryDocs(t, "a", "b")}
	a := newTestApp(t, c, testConfig())
	b := newBrowser(t, a)
	b.get("/", false)
	delete(b.cookies, sessionName)

	rec := b.more(true)
	if rec.Body.String() != "exhausted" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if c.fetches != 0 {
		t.Errorf("fetches = %d, want 0", c.fetches)
	}
}

func TestLoadMoreRequiresCSRFToken(t *testing.T) {
	a := newTestApp(t, &memClient{docs: summaryDocs(t, "a", "b")}, testConfig())
	b := newBrowser(t, a)
	b.get("/", false)
	delete(b.cookies, "_csrf")

	if rec := b.more(true); rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestLoadMoreRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.MoreRateLimit = 2
	a := newTestApp(t, &memClient{docs: summaryDocs(t, "a", "b", "c", "d", "e")}, cfg)
	b := newBrowser(t, a)
	b.get("/", false)

	b.more(true)
	b.more(true)
	if rec := b.more(true); rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
}

func TestPostPrerenderedAndFallback(t *testing.T) {
	a := newTestApp(t, &memClient{docs: summaryDocs(t, "a", "b")}, testConfig())
	b := newBrowser(t, a)

	if rec := b.get("/post/a/", false); rec.Body.String() != "post:a min=0" {
		t.Errorf("prerendered: %q", rec.Body.String())
	}

	rec := b.get("/post/b/", false)
	if rec.Code != http.StatusOK || rec.Body.String() != "loading:b" {
		t.Fatalf("fallback: %d %q", rec.Code, rec.Body.String())
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-store" {
		t.Errorf("placeholder Cache-Control = %q", cc)
	}

	if rec := b.get("/post/b/?partial=post", true); rec.Body.String() != "partial:b" {
		t.Errorf("partial: %q", rec.Body.String())
	}
	if rec := b.get("/post/b/", false); rec.Body.String() != "post:b min=0" {
		t.Errorf("after generation: %q", rec.Body.String())
	}
}

func TestPostMissing(t *testing.T) {
	a := newTestApp(t, &memClient{docs: summaryDocs(t, "a")}, testConfig())
	b := newBrowser(t, a)

	rec := b.get("/post/ghost/?partial=post", true)
	if rec.Code != http.StatusNotFound || rec.Body.String() != "notfound" {
		t.Errorf("missing partial: %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("HX-Retarget") != "body" {
		t.Errorf("HX-Retarget = %q", rec.Header().Get("HX-Retarget"))
	}
}

func TestPostAddsTrailingSlash(t *testing.T) {
	a := newTestApp(t, &memClient{docs: summaryDocs(t, "a")}, testConfig())
	rec := newBrowser(t, a).get("/post/a", false)
	if rec.Code != http.StatusMovedPermanently || rec.Header().Get("Location") != "/post/a/" {
		t.Errorf("redirect: %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestUnknownRouteRendersNotFound(t *testing.T) {
	a := newTestApp(t, &memClient{}, testConfig())
	rec := newBrowser(t, a).get("/nope/", false)
	if rec.Code != http.StatusNotFound || rec.Body.String() != "notfound" {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestSitemapFeedRobots(t *testing.T) {
	a := newTestApp(t, &memClient{docs: summaryDocs(t, "a", "b")}, testConfig())
	b := newBrowser(t, a)

	rec := b.get("/sitemap.xml", false)
	if !strings.Contains(rec.Body.String(), "<loc>https://blog.example.com/post/b/</loc>") {
		t.Errorf("sitemap = %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "<lastmod>2021-03-25</lastmod>") {
		t.Errorf("sitemap missing lastmod: %s", rec.Body.String())
	}

	rec = b.get("/feed.xml", false)
	if !strings.Contains(rec.Body.String(), "<title>Title a</title>") {
		t.Errorf("feed = %s", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/rss+xml") {
		t.Errorf("feed Content-Type = %q", ct)
	}

	rec = b.get("/robots.txt", false)
	if !strings.Contains(rec.Body.String(), "Sitemap: https://blog.example.com/sitemap.xml\n") {
		t.Errorf("robots = %q", rec.Body.String())
	}
}

func TestEmbeddedAssets(t *testing.T) {
	a := newTestApp(t, &memClient{}, testConfig())
	rec := newBrowser(t, a).get("/public/style.css", false)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "--highlight") {
		t.Errorf("style.css: %d", rec.Code)
	}
}

func TestSetupRequiresSessionSecret(t *testing.T) {
	cfg := testConfig()
	cfg.SessionSecret = ""
	a := New(cfg, stubViews(), WithSource(&memClient{}))
	if err := a.Setup(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
