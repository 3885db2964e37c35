package views

import (
	"github.com/a-h/templ"

	st "github.com/eringen/spacetraveling"
	"github.com/eringen/spacetraveling/richtext"
)

// Post is the full post page.
func Post(page st.PostPage) templ.Component {
	return layout(page.Site, page.Meta, page.JSONLD, component(func(h *htmlWriter) {
		h.raw(`<main class="layout">`)
		h.component(postArticle(page))
		h.raw(`</main>`)
	}))
}

// PostPartial is the article alone, swapped over the loading placeholder.
func PostPartial(page st.PostPage) templ.Component {
	return component(func(h *htmlWriter) {
		h.raw(`<title>`)
		h.text(page.Meta.Title)
		h.raw(`</title>`)
		h.component(postArticle(page))
	})
}

func postArticle(page st.PostPage) templ.Component {
	post := page.Post
	return component(func(h *htmlWriter) {
		h.raw(`<article id="post" class="post">`)
		if src := richtext.SafeURL(post.Banner.URL); src != "" {
			alt := post.Banner.Alt
			if alt == "" {
				alt = post.Data.Title
			}
			h.raw(`<img class="banner"`)
			h.attr("src", src)
			h.attr("alt", alt)
			h.raw(`/>`)
		}
		h.raw(`<h1>`)
		h.text(post.Data.Title)
		h.raw(`</h1>`)
		dateline(h, page.Site, post.FirstPublicationDate, post.Data.Author, page.ReadingTime)
		for _, c := range post.Content {
			h.raw(`<section>`)
			if c.Heading != "" {
				h.raw(`<h2>`)
				h.text(c.Heading)
				h.raw(`</h2>`)
			}
			h.raw(`<div class="body">`)
			h.component(richtext.Component(c.Body))
			h.raw(`</div></section>`)
		}
		h.raw(`</article>`)
	})
}

// PostLoading is served for posts not generated yet. Once in the browser it
// requests the article and swaps it in.
func PostLoading(site st.SiteConfig, slug string) templ.Component {
	meta := st.PageMeta{Title: site.Name, URL: st.PostURL(site, slug), OGType: "article"}
	return layout(site, meta, "", component(func(h *htmlWriter) {
		h.raw(`<main class="layout"><div id="post" class="loading"`)
		h.attr("hx-get", "/post/"+st.PathEscape(slug)+"/?partial=post")
		h.raw(` hx-trigger="load" hx-swap="outerHTML">Carregando...</div></main>`)
	}))
}
