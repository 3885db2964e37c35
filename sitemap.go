package spacetraveling

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// WriteSitemap writes a sitemap listing the home page, the extra listing
// pages and every post.
func WriteSitemap(w io.Writer, cfg SiteConfig, posts []Post, listingPages int) error {
	base := cfg.URL
	urls := []sitemapURL{
		{Loc: BuildURL(base)},
	}
	for n := 2; n <= listingPages; n++ {
		urls = append(urls, sitemapURL{Loc: BuildURL(base, PageURL(n))})
	}
	for _, p := range posts {
		u := sitemapURL{Loc: PostURL(cfg, p.UID)}
		if p.FirstPublicationDate != nil {
			u.LastMod = p.FirstPublicationDate.Format("2006-01-02")
		}
		urls = append(urls, u)
	}
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	return xml.NewEncoder(w).Encode(sitemap)
}

// WriteRobots writes a robots.txt allowing everything and pointing at the sitemap.
func WriteRobots(w io.Writer, cfg SiteConfig) error {
	_, err := fmt.Fprintf(w, "User-agent: *\nAllow: /\n\nSitemap: %s/sitemap.xml\n", strings.TrimRight(cfg.URL, "/"))
	return err
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Posts.AllPosts(c.Request().Context(), 0)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	return WriteSitemap(c.Response(), a.Config, posts, 1)
}

func (a *App) handleRobots(c echo.Context) error {
	// a robots.txt in the static dir wins over the generated one
	if fileExists(a.Config.StaticDir + "/robots.txt") {
		return c.File(a.Config.StaticDir + "/robots.txt")
	}
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextPlainCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return WriteRobots(c.Response(), a.Config)
}
