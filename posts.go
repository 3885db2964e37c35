package spacetraveling

import (
	"context"
	"fmt"

	"github.com/eringen/spacetraveling/cms"
)

// ErrNotFound is returned when a requested post does not exist.
var ErrNotFound = cms.ErrNotFound

// IsNotFound reports whether err means the post does not exist.
func IsNotFound(err error) bool {
	return cms.IsNotFound(err)
}

// PageFetcher fetches the page of posts a cursor points at.
type PageFetcher interface {
	FetchPage(ctx context.Context, cursor string) (Pagination, error)
}

// pathsPageSize is the page size used when walking every post for static paths.
const pathsPageSize = 20

// PostSource reads posts from the content API.
type PostSource struct {
	client    cms.Client
	docType   string
	pageSize  int
	orderings string
}

// NewPostSource returns a PostSource reading documents of docType, pageSize
// summaries per listing page.
func NewPostSource(client cms.Client, docType string, pageSize int) *PostSource {
	if pageSize <= 0 {
		pageSize = 1
	}
	return &PostSource{
		client:    client,
		docType:   docType,
		pageSize:  pageSize,
		orderings: "[document.first_publication_date desc]",
	}
}

// ListPosts returns the first listing page.
func (s *PostSource) ListPosts(ctx context.Context) (Pagination, error) {
	res, err := s.client.GetByType(ctx, s.docType, cms.QueryOptions{PageSize: s.pageSize, Orderings: s.orderings})
	if err != nil {
		return Pagination{}, fmt.Errorf("list %s: %w", s.docType, err)
	}
	return toPagination(res)
}

// FetchPage follows a next_page cursor.
func (s *PostSource) FetchPage(ctx context.Context, cursor string) (Pagination, error) {
	res, err := s.client.Fetch(ctx, cursor)
	if err != nil {
		return Pagination{}, fmt.Errorf("fetch page: %w", err)
	}
	return toPagination(res)
}

// GetPost returns a single post by UID.
func (s *PostSource) GetPost(ctx context.Context, uid string) (PostDetail, error) {
	doc, err := s.client.GetByUID(ctx, s.docType, uid)
	if err != nil {
		return PostDetail{}, fmt.Errorf("get %s %q: %w", s.docType, uid, err)
	}
	return toPostDetail(doc)
}

// AllPosts walks every listing page and returns up to limit summaries in
// listing order. A limit of zero or less walks every page.
func (s *PostSource) AllPosts(ctx context.Context, limit int) ([]Post, error) {
	res, err := s.client.GetByType(ctx, s.docType, cms.QueryOptions{PageSize: pathsPageSize, Orderings: s.orderings})
	if err != nil {
		return nil, fmt.Errorf("list all %s: %w", s.docType, err)
	}
	var out []Post
	for {
		page, err := toPagination(res)
		if err != nil {
			return nil, err
		}
		for _, p := range page.Results {
			if p.UID == "" {
				continue
			}
			out = append(out, p)
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}
		if page.NextPage == "" {
			return out, nil
		}
		if res, err = s.client.Fetch(ctx, page.NextPage); err != nil {
			return nil, fmt.Errorf("list all %s: %w", s.docType, err)
		}
	}
}

// StaticPaths returns up to limit post UIDs in listing order.
func (s *PostSource) StaticPaths(ctx context.Context, limit int) ([]string, error) {
	all, err := s.AllPosts(ctx, limit)
	if err != nil {
		return nil, err
	}
	uids := make([]string, len(all))
	for i, p := range all {
		uids[i] = p.UID
	}
	return uids, nil
}

type postDocument struct {
	PostData
	Banner  Banner    `json:"banner"`
	Content []Content `json:"content"`
}

func toPagination(res *cms.Response) (Pagination, error) {
	p := Pagination{
		NextPage: res.Next(),
		Results:  make([]Post, 0, len(res.Results)),
	}
	for i := range res.Results {
		post, err := toPost(&res.Results[i])
		if err != nil {
			return Pagination{}, err
		}
		p.Results = append(p.Results, post)
	}
	return p, nil
}

func toPost(doc *cms.Document) (Post, error) {
	var data PostData
	if err := doc.DecodeData(&data); err != nil {
		return Post{}, err
	}
	return Post{
		UID:                  doc.UID,
		FirstPublicationDate: doc.FirstPublicationDate.TimePtr(),
		Data:                 data,
	}, nil
}

func toPostDetail(doc *cms.Document) (PostDetail, error) {
	var data postDocument
	if err := doc.DecodeData(&data); err != nil {
		return PostDetail{}, err
	}
	return PostDetail{
		Post: Post{
			UID:                  doc.UID,
			FirstPublicationDate: doc.FirstPublicationDate.TimePtr(),
			Data:                 data.PostData,
		},
		Banner:  data.Banner,
		Content: data.Content,
	}, nil
}
