package spacetraveling

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// exportWorkers bounds concurrent post fetches during export.
const exportWorkers = 4

// Manifest describes an exported site. It is written to manifest.json.
type Manifest struct {
	BuildID     string         `json:"build_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	SiteURL     string         `json:"site_url"`
	Pages       int            `json:"pages"`
	Posts       []ManifestPost `json:"posts"`
}

// ManifestPost is one exported post.
type ManifestPost struct {
	UID         string     `json:"uid"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Words       int        `json:"words"`
	ReadingTime int        `json:"reading_time_minutes"`
}

// Export renders the whole site into Config.OutputDir: one file per listing
// page, one per post, the sitemap, feed, robots.txt, 404 page, static assets
// and manifest.json. Any content API failure aborts the export.
func (a *App) Export(ctx context.Context) (*Manifest, error) {
	if err := a.connect(); err != nil {
		return nil, err
	}
	out := a.Config.OutputDir
	start := time.Now()
	m := &Manifest{
		BuildID:     uuid.NewString(),
		GeneratedAt: start.UTC(),
		SiteURL:     a.Config.URL,
	}

	summaries, pages, err := a.exportListing(ctx, out)
	if err != nil {
		return nil, err
	}
	m.Pages = pages

	if m.Posts, err = a.exportPosts(ctx, out, summaries); err != nil {
		return nil, err
	}

	if err := writeFile(filepath.Join(out, "sitemap.xml"), func(w *bufio.Writer) error {
		return WriteSitemap(w, a.Config, summaries, pages)
	}); err != nil {
		return nil, fmt.Errorf("export: sitemap: %w", err)
	}
	if err := writeFile(filepath.Join(out, "feed.xml"), func(w *bufio.Writer) error {
		return WriteFeed(w, a.Config, summaries)
	}); err != nil {
		return nil, fmt.Errorf("export: feed: %w", err)
	}
	if err := writeFile(filepath.Join(out, "robots.txt"), func(w *bufio.Writer) error {
		return WriteRobots(w, a.Config)
	}); err != nil {
		return nil, fmt.Errorf("export: robots: %w", err)
	}
	if err := RenderFile(ctx, filepath.Join(out, "404.html"), a.Views.NotFound(a.Config)); err != nil {
		return nil, fmt.Errorf("export: 404 page: %w", err)
	}
	if err := a.exportAssets(out); err != nil {
		return nil, fmt.Errorf("export: assets: %w", err)
	}
	if err := writeFile(filepath.Join(out, "manifest.json"), func(w *bufio.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	}); err != nil {
		return nil, fmt.Errorf("export: manifest: %w", err)
	}

	a.Log.Info("exported site",
		"dir", out,
		"build_id", m.BuildID,
		"pages", m.Pages,
		"posts", len(m.Posts),
		"duration", time.Since(start),
	)
	return m, nil
}

// exportListing walks the listing with a Paginator, writing one file per
// page. Each page holds only the posts of that fetch and links to the next.
func (a *App) exportListing(ctx context.Context, out string) ([]Post, int, error) {
	first, err := a.Posts.ListPosts(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("export: list posts: %w", err)
	}
	p := NewPaginator(first, a.Posts)
	seen := map[string]bool{}
	var summaries []Post

	for n := 1; ; n++ {
		summaries = append(summaries, p.Posts()...)
		next := ""
		if p.HasMore() {
			next = PageURL(n + 1)
		}
		page := a.listingPage(n, p.Posts(), p.HasMore(), next, "")
		if err := RenderFile(ctx, filepath.Join(out, listingFile(n)), a.Views.Home(page)); err != nil {
			return nil, 0, fmt.Errorf("export: listing page %d: %w", n, err)
		}
		if !p.HasMore() {
			return summaries, n, nil
		}
		if seen[p.Cursor()] {
			return nil, 0, fmt.Errorf("export: listing page %d: cursor loop at %q", n+1, p.Cursor())
		}
		seen[p.Cursor()] = true
		if err := p.Advance(ctx); err != nil {
			return nil, 0, fmt.Errorf("export: listing page %d: %w", n+1, err)
		}
	}
}

func listingFile(n int) string {
	if n <= 1 {
		return "index.html"
	}
	return filepath.Join("page", strconv.Itoa(n), "index.html")
}

func (a *App) exportPosts(ctx context.Context, out string, summaries []Post) ([]ManifestPost, error) {
	var uids []string
	dup := map[string]bool{}
	for _, s := range summaries {
		if s.UID == "" || dup[s.UID] {
			continue
		}
		if !safeUID(s.UID) {
			return nil, fmt.Errorf("export: post uid %q is not a valid path segment", s.UID)
		}
		dup[s.UID] = true
		uids = append(uids, s.UID)
	}

	posts := make([]ManifestPost, len(uids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(exportWorkers)
	for i, uid := range uids {
		g.Go(func() error {
			post, err := a.Posts.GetPost(gctx, uid)
			if err != nil {
				return fmt.Errorf("export: post %q: %w", uid, err)
			}
			path := filepath.Join(out, "post", uid, "index.html")
			if err := RenderFile(gctx, path, a.Views.Post(a.postPage(post))); err != nil {
				return fmt.Errorf("export: post %q: %w", uid, err)
			}
			posts[i] = ManifestPost{
				UID:         uid,
				Title:       post.Data.Title,
				URL:         PostURL(a.Config, uid),
				PublishedAt: post.FirstPublicationDate,
				Words:       ContentWordCount(post.Content),
				ReadingTime: post.ReadingTime(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return posts, nil
}

// safeUID reports whether uid can name a directory under post/ without
// escaping it.
func safeUID(uid string) bool {
	return uid != "." && uid != ".." && !strings.ContainsAny(uid, `/\`+"\x00")
}

// exportAssets copies the embedded defaults, then the static dir over them.
func (a *App) exportAssets(out string) error {
	dst := filepath.Join(out, "public")
	embedded, err := fs.Sub(EmbeddedAssets, "embedded")
	if err != nil {
		return err
	}
	if err := copyTree(dst, embedded); err != nil {
		return err
	}
	if !dirExists(a.Config.StaticDir) {
		return nil
	}
	if err := copyTree(dst, os.DirFS(a.Config.StaticDir)); err != nil {
		return err
	}
	// a user robots.txt replaces the generated one
	if fileExists(filepath.Join(a.Config.StaticDir, "robots.txt")) {
		return copyFile(filepath.Join(out, "robots.txt"), os.DirFS(a.Config.StaticDir), "robots.txt")
	}
	return nil
}

func copyTree(dst string, fsys fs.FS) error {
	return fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return os.MkdirAll(filepath.Join(dst, path), 0o755)
		}
		return copyFile(filepath.Join(dst, path), fsys, path)
	})
}

func copyFile(dst string, fsys fs.FS, name string) error {
	src, err := fsys.Open(name)
	if err != nil {
		return err
	}
	defer src.Close()
	return writeFile(dst, func(w *bufio.Writer) error {
		_, err := io.Copy(w, src)
		return err
	})
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}
	return err == nil && info.IsDir()
}
