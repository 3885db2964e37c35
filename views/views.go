package views

import (
	"github.com/a-h/templ"

	st "github.com/eringen/spacetraveling"
)

// Funcs returns the default templates.
func Funcs() st.ViewFuncs {
	return st.ViewFuncs{
		Home:          Home,
		PostList:      PostList,
		Post:          Post,
		PostPartial:   PostPartial,
		PostLoading:   PostLoading,
		MoreExhausted: MoreExhausted,
		NotFound:      NotFound,
		ServerError:   ServerError,
	}
}

func NotFound(site st.SiteConfig) templ.Component {
	return status(site, "Página não encontrada | "+site.Name, "Esta página não existe.")
}

func ServerError(site st.SiteConfig) templ.Component {
	return status(site, "Erro | "+site.Name, "Algo deu errado. Tente novamente mais tarde.")
}

func status(site st.SiteConfig, title, message string) templ.Component {
	meta := st.PageMeta{Title: title}
	return layout(site, meta, "", component(func(h *htmlWriter) {
		h.raw(`<main class="layout"><p class="status">`)
		h.text(message)
		h.raw(`</p><p class="status"><a href="/">Voltar para o início</a></p></main>`)
	}))
}
