// Package spacetraveling is a blog front end for a headless content API.
// It renders a paginated post listing and per-post pages with an estimated
// reading time, either live (with on-demand generation of posts that were
// not rendered ahead of time) or as an exported static site.
//
// Templates are supplied by the caller through ViewFuncs.
package spacetraveling

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/spacetraveling/cms"
)

// ListingPage is the data behind the home page and each exported listing page.
type ListingPage struct {
	Site    SiteConfig
	Meta    PageMeta
	Number  int
	Posts   []Post
	HasMore bool
	// NextURL links to the next exported listing page. It is empty when
	// serving live; the "load more" control then posts to MorePath.
	NextURL   string
	CSRFToken string
}

// PostPage is the data behind a post page.
type PostPage struct {
	Site        SiteConfig
	Meta        PageMeta
	Post        PostDetail
	ReadingTime int
	JSONLD      string
}

// MorePath is the endpoint the live "load more" control posts to.
const MorePath = "/posts/more/"

// ViewFuncs holds the templ components the app renders.
type ViewFuncs struct {
	Home func(page ListingPage) templ.Component
	// PostList is the listing fragment swapped in by "load more".
	PostList    func(page ListingPage) templ.Component
	Post        func(page PostPage) templ.Component
	PostPartial func(page PostPage) templ.Component
	// PostLoading is the placeholder served for posts not generated yet.
	// It requests the post fragment once loaded.
	PostLoading func(site SiteConfig, slug string) templ.Component
	// MoreExhausted replaces the "load more" control out of band.
	MoreExhausted func() templ.Component
	NotFound      func(site SiteConfig) templ.Component
	ServerError   func(site SiteConfig) templ.Component
}

// App wires together the content source, page store, handlers, middleware
// and templates.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	Log    *slog.Logger
	Posts  *PostSource
	Pages  *PageStore
	Views  ViewFuncs

	client       cms.Client
	moreLimiter  *RateLimiter
	customRoutes []func(*App)
}

// New creates an App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		Views:  views,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.Log == nil {
		a.Log = slog.Default()
	}
	a.Echo.HideBanner = true
	a.Echo.HidePort = true
	return a
}

// connect creates the content source on first use.
func (a *App) connect() error {
	if a.Posts != nil {
		return nil
	}
	if err := a.Config.Validate(); err != nil {
		return fmt.Errorf("spacetraveling: invalid config: %w", err)
	}
	if a.client == nil {
		client, err := cms.NewHTTPClient(cms.Config{
			Endpoint:    a.Config.APIEndpoint,
			AccessToken: a.Config.AccessToken,
			Timeout:     a.Config.RequestTimeout,
			Logger:      a.Log,
		})
		if err != nil {
			return fmt.Errorf("spacetraveling: %w", err)
		}
		a.client = client
	}
	a.Posts = NewPostSource(a.client, a.Config.DocumentType, a.Config.PageSize)
	a.Pages = NewPageStore(a.Posts)
	return nil
}

// Setup validates the config, renders posts ahead of time and registers
// middleware and routes. Start calls it; tests call it directly.
func (a *App) Setup(ctx context.Context) error {
	if err := a.Config.ValidateServe(); err != nil {
		return fmt.Errorf("spacetraveling: invalid config: %w", err)
	}
	if err := a.connect(); err != nil {
		return err
	}
	if err := a.prerender(ctx); err != nil {
		return fmt.Errorf("spacetraveling: prerender: %w", err)
	}

	a.moreLimiter = NewRateLimiter(a.Config.MoreRateLimit, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

func (a *App) prerender(ctx context.Context) error {
	if a.Config.PrerenderLimit < 0 {
		return nil
	}
	start := time.Now()
	uids, err := a.Posts.StaticPaths(ctx, a.Config.PrerenderLimit)
	if err != nil {
		return err
	}
	if err := a.Pages.Prerender(ctx, uids); err != nil {
		return err
	}
	a.Log.Info("prerendered posts", "count", a.Pages.Len(), "duration", time.Since(start))
	return nil
}

// Start sets the app up and serves until ctx is cancelled, then shuts the
// server down gracefully.
func (a *App) Start(ctx context.Context) error {
	if err := a.Setup(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("listening", "addr", a.Config.Addr, "url", a.Config.URL)
		errCh <- a.Echo.Start(a.Config.Addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.Log.Info("shutting down")
		return a.Echo.Shutdown(shutdownCtx)
	}
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Default assets; the user's static dir is consulted first.
	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	e.GET("/public/style.css", a.assetHandler(embeddedFS, "style.css"))
	e.GET("/public/logo.svg", a.assetHandler(embeddedFS, "logo.svg"))
	e.Static("/public", a.Config.StaticDir)

	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)

	e.GET("/", a.handleHome)
	e.POST(MorePath, a.handleMore, rateLimit(a.moreLimiter))
	e.GET("/post/:slug/", a.handlePost)
}

func (a *App) assetHandler(embedded fs.FS, name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if p := a.Config.StaticDir + "/" + name; fileExists(p) {
			return c.File(p)
		}
		return echo.StaticFileHandler(name, embedded)(c)
	}
}

func (a *App) listingPage(n int, posts []Post, hasMore bool, nextURL, csrf string) ListingPage {
	title := "Home | " + a.Config.Name
	if n > 1 {
		title = fmt.Sprintf("Página %d | %s", n, a.Config.Name)
	}
	return ListingPage{
		Site: a.Config,
		Meta: PageMeta{
			Title:       title,
			Description: a.Config.Description,
			URL:         BuildURL(a.Config.URL, PageURL(n)),
			OGType:      "website",
		},
		Number:    n,
		Posts:     posts,
		HasMore:   hasMore,
		NextURL:   nextURL,
		CSRFToken: csrf,
	}
}

func (a *App) postPage(p PostDetail) PostPage {
	return PostPage{
		Site: a.Config,
		Meta: PageMeta{
			Title:       p.Data.Title + " | " + a.Config.Name,
			Description: p.Data.Subtitle,
			URL:         PostURL(a.Config, p.UID),
			OGType:      "article",
			Image:       p.Banner.URL,
		},
		Post:        p,
		ReadingTime: p.ReadingTime(),
		JSONLD:      BlogPostingJsonLD(p, a.Config),
	}
}

// Close releases background resources.
func (a *App) Close() error {
	if a.moreLimiter != nil {
		a.moreLimiter.Stop()
	}
	return nil
}
