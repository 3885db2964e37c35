package spacetraveling

import "context"

// Paginator holds the listing state a reader sees: the posts currently
// displayed, the cursor to the next page and whether more pages exist.
//
// Each Advance replaces the displayed posts with the fetched page; pages are
// never accumulated. A Paginator is not safe for concurrent use.
type Paginator struct {
	fetcher PageFetcher
	cursor  string
	posts   []Post
	hasMore bool
}

// PaginatorState is the serializable part of a Paginator.
type PaginatorState struct {
	Cursor  string
	HasMore bool
}

// NewPaginator starts from the server-rendered first page.
func NewPaginator(initial Pagination, fetcher PageFetcher) *Paginator {
	return &Paginator{
		fetcher: fetcher,
		cursor:  initial.NextPage,
		posts:   initial.Results,
		hasMore: initial.NextPage != "",
	}
}

// RestorePaginator rebuilds a Paginator from a saved state. The displayed
// posts are not part of the state and start empty.
func RestorePaginator(state PaginatorState, fetcher PageFetcher) *Paginator {
	return &Paginator{
		fetcher: fetcher,
		cursor:  state.Cursor,
		hasMore: state.HasMore,
	}
}

// Advance loads the page the held cursor points at.
//
// Without a cursor it only marks the listing as exhausted and fetches
// nothing. On success the displayed posts are replaced by the fetched page;
// if that page has no next cursor the listing is exhausted. On failure the
// state is left untouched and the error is returned; there is no retry.
func (p *Paginator) Advance(ctx context.Context) error {
	if p.cursor == "" {
		p.hasMore = false
		return nil
	}
	page, err := p.fetcher.FetchPage(ctx, p.cursor)
	if err != nil {
		return err
	}
	p.posts = page.Results
	if page.NextPage == "" {
		p.hasMore = false
		p.cursor = ""
		return nil
	}
	p.cursor = page.NextPage
	return nil
}

// Posts returns the currently displayed posts.
func (p *Paginator) Posts() []Post { return p.posts }

// HasMore reports whether the "load more" control should be offered.
func (p *Paginator) HasMore() bool { return p.hasMore }

// Cursor returns the held next-page cursor.
func (p *Paginator) Cursor() string { return p.cursor }

// State returns the serializable state.
func (p *Paginator) State() PaginatorState {
	return PaginatorState{Cursor: p.cursor, HasMore: p.hasMore}
}
