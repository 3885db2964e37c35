package spacetraveling

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

func (a *App) handleHome(c echo.Context) error {
	first, err := a.Posts.ListPosts(c.Request().Context())
	if err != nil {
		return err
	}
	p := NewPaginator(first, a.Posts)
	if err := savePaginator(c, p.State()); err != nil {
		a.Log.Warn("save listing state", "error", err, "request_id", requestID(c))
	}
	return Render(c, a.Views.Home(a.listingPage(1, p.Posts(), p.HasMore(), "", CsrfToken(c))))
}

// handleMore advances the visitor's listing by one page. A failed fetch is
// logged and leaves both the listing state and the page untouched: the
// response is 204, so neither htmx nor a plain form post replaces the
// document the reader is looking at.
func (a *App) handleMore(c echo.Context) error {
	ctx := c.Request().Context()
	p := RestorePaginator(loadPaginator(c), a.Posts)
	fetching := p.Cursor() != ""

	if err := p.Advance(ctx); err != nil {
		a.Log.WarnContext(ctx, "load more posts", "error", err, "request_id", requestID(c))
		return c.NoContent(http.StatusNoContent)
	}
	if err := savePaginator(c, p.State()); err != nil {
		a.Log.WarnContext(ctx, "save listing state", "error", err, "request_id", requestID(c))
	}

	if !fetching {
		if isHTMX(c) {
			c.Response().Header().Set("HX-Reswap", "none")
			return Render(c, a.Views.MoreExhausted())
		}
		return c.NoContent(http.StatusNoContent)
	}
	page := a.listingPage(1, p.Posts(), p.HasMore(), "", CsrfToken(c))
	if isHTMX(c) {
		return Render(c, a.Views.PostList(page))
	}
	return Render(c, a.Views.Home(page))
}

func (a *App) handlePost(c echo.Context) error {
	slug := c.Param("slug")

	if isHTMX(c) && c.QueryParam("partial") == "post" {
		post, err := a.Pages.Load(c.Request().Context(), slug)
		if err != nil {
			if IsNotFound(err) {
				c.Response().Header().Set("HX-Retarget", "body")
				c.Response().Header().Set("HX-Reswap", "innerHTML")
				return RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.Config))
			}
			return err
		}
		return Render(c, a.Views.PostPartial(a.postPage(post)))
	}

	post, ok := a.Pages.Lookup(slug)
	if !ok {
		c.Response().Header().Set("Cache-Control", "no-store")
		return Render(c, a.Views.PostLoading(a.Config, slug))
	}
	return Render(c, a.Views.Post(a.postPage(post)))
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if (ok && he.Code == http.StatusNotFound) || IsNotFound(err) {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.Config))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.Log.Error("server error", "error", err, "path", c.Request().URL.Path, "request_id", requestID(c))
		_ = RenderStatus(c, code, a.Views.ServerError(a.Config))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
