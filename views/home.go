package views

import (
	"github.com/a-h/templ"

	st "github.com/eringen/spacetraveling"
)

const moreLabel = "Carregar mais posts"

// Home is the listing page.
func Home(page st.ListingPage) templ.Component {
	return layout(page.Site, page.Meta, "", component(func(h *htmlWriter) {
		h.raw(`<main class="layout">`)
		h.component(PostList(page))
		h.raw(`</main>`)
	}))
}

// PostList is the listing section. "Load more" swaps it whole.
func PostList(page st.ListingPage) templ.Component {
	return component(func(h *htmlWriter) {
		h.raw(`<section id="post-list" class="post-list">`)
		if len(page.Posts) == 0 {
			h.raw(`<p class="status">Nenhum post publicado ainda.</p>`)
		}
		for _, p := range page.Posts {
			h.raw(`<article><a`)
			h.attr("href", p.Link())
			h.raw(`><strong>`)
			h.text(p.Data.Title)
			h.raw(`</strong><p>`)
			h.text(p.Data.Subtitle)
			h.raw(`</p>`)
			dateline(h, page.Site, p.FirstPublicationDate, p.Data.Author, -1)
			h.raw(`</a></article>`)
		}
		if page.HasMore {
			moreControl(h, page)
		}
		h.raw(`</section>`)
	})
}

func moreControl(h *htmlWriter, page st.ListingPage) {
	if page.NextURL != "" {
		h.raw(`<a id="load-more" class="load-more"`)
		h.attr("href", page.NextURL)
		h.raw(`>` + moreLabel + `</a>`)
		return
	}
	h.raw(`<form id="load-more" method="post"`)
	h.attr("action", st.MorePath)
	h.attr("hx-post", st.MorePath)
	h.raw(` hx-target="#post-list" hx-swap="outerHTML"><input type="hidden" name="_csrf"`)
	h.attr("value", page.CSRFToken)
	h.raw(`/><button class="load-more" type="submit">` + moreLabel + `</button></form>`)
}

// MoreExhausted removes the "load more" control out of band.
func MoreExhausted() templ.Component {
	return component(func(h *htmlWriter) {
		h.raw(`<div id="load-more" hx-swap-oob="true"></div>`)
	})
}
