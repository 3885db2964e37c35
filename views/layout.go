// Package views holds the default templates for spacetraveling, written as
// templ components.
package views

import (
	"context"
	"io"
	"time"

	"github.com/a-h/templ"

	st "github.com/eringen/spacetraveling"
)

const htmxSrc = "https://unpkg.com/htmx.org@2.0.4/dist/htmx.min.js"

// htmxConfig lets 404 fragments replace the loading placeholder.
const htmxConfig = `{"responseHandling":[{"code":"204","swap":false},{"code":"[23]..","swap":true},{"code":"404","swap":true,"error":true},{"code":"[45]..","swap":false,"error":true}]}`

// htmlWriter writes markup and keeps the first error.
type htmlWriter struct {
	ctx context.Context
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *htmlWriter) attr(name, value string) {
	h.raw(" " + name + `="` + templ.EscapeString(value) + `"`)
}

func (h *htmlWriter) component(c templ.Component) {
	if h.err == nil {
		h.err = c.Render(h.ctx, h.w)
	}
}

func component(fn func(h *htmlWriter)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{ctx: ctx, w: w}
		fn(h)
		return h.err
	})
}

func layout(site st.SiteConfig, meta st.PageMeta, jsonLD string, body templ.Component) templ.Component {
	return component(func(h *htmlWriter) {
		h.raw(`<!DOCTYPE html><html lang="pt-BR"><head><meta charset="utf-8"/>`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1"/>`)
		h.raw(`<title>`)
		h.text(meta.Title)
		h.raw(`</title>`)
		if meta.Description != "" {
			h.raw(`<meta name="description"`)
			h.attr("content", meta.Description)
			h.raw(`/>`)
		}
		if meta.URL != "" {
			h.raw(`<link rel="canonical"`)
			h.attr("href", meta.URL)
			h.raw(`/><meta property="og:url"`)
			h.attr("content", meta.URL)
			h.raw(`/>`)
		}
		h.raw(`<meta property="og:title"`)
		h.attr("content", meta.Title)
		h.raw(`/><meta property="og:site_name"`)
		h.attr("content", site.Name)
		h.raw(`/>`)
		if meta.OGType != "" {
			h.raw(`<meta property="og:type"`)
			h.attr("content", meta.OGType)
			h.raw(`/>`)
		}
		if meta.Image != "" {
			h.raw(`<meta property="og:image"`)
			h.attr("content", meta.Image)
			h.raw(`/>`)
		}
		h.raw(`<meta name="htmx-config"`)
		h.attr("content", htmxConfig)
		h.raw(`/>`)
		h.raw(`<link rel="icon" href="/public/logo.svg" type="image/svg+xml"/>`)
		h.raw(`<link rel="stylesheet" href="/public/style.css"/>`)
		h.raw(`<link rel="alternate" type="application/rss+xml" href="/feed.xml"`)
		h.attr("title", site.Name)
		h.raw(`/>`)
		h.raw(`<script defer`)
		h.attr("src", htmxSrc)
		h.raw(`></script>`)
		if jsonLD == "" {
			jsonLD = st.WebsiteJsonLD(site)
		}
		// json.Marshal escapes <, > and &, so the payload cannot close the tag
		h.raw(`<script type="application/ld+json">`)
		h.raw(jsonLD)
		h.raw(`</script></head><body>`)
		h.component(header())
		h.component(body)
		h.raw(`</body></html>`)
	})
}

func header() templ.Component {
	return component(func(h *htmlWriter) {
		h.raw(`<header class="layout header"><a href="/"><img src="/public/logo.svg" alt="logo"/></a></header>`)
	})
}

// dateline writes the publication date, author and optional reading time.
func dateline(h *htmlWriter, site st.SiteConfig, published *time.Time, author string, minutes int) {
	h.raw(`<div class="info">`)
	if published != nil {
		h.raw(`<time`)
		h.attr("datetime", published.Format(time.RFC3339))
		h.raw(`>`)
		h.text(st.FormatDate(published, site.Locale))
		h.raw(`</time>`)
	}
	if author == "" {
		author = site.Author
	}
	if author != "" {
		h.raw(`<span class="author">`)
		h.text(author)
		h.raw(`</span>`)
	}
	if minutes >= 0 {
		h.raw(`<time class="reading-time">`)
		h.text(st.FormatMinutes(minutes))
		h.raw(`</time>`)
	}
	h.raw(`</div>`)
}
