package spacetraveling

import (
	"time"

	"github.com/eringen/spacetraveling/richtext"
)

// Post is the summary of a post shown on the listing page. Identity is UID.
type Post struct {
	UID                  string
	FirstPublicationDate *time.Time
	Data                 PostData
}

// PostData holds the summary fields of a post.
type PostData struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Author   string `json:"author"`
}

// Link returns the site-relative URL of the post page.
func (p Post) Link() string {
	return "/post/" + p.UID + "/"
}

// PostDetail is a full post as rendered on its own page.
type PostDetail struct {
	Post
	Banner  Banner
	Content []Content
}

// ReadingTime is the estimated number of minutes needed to read the post.
func (p PostDetail) ReadingTime() int {
	return ReadingTime(p.Content)
}

// Banner is the post's hero image.
type Banner struct {
	URL string `json:"url"`
	Alt string `json:"alt"`
}

// Content is one heading/body section of a post.
type Content struct {
	Heading string            `json:"heading"`
	Body    richtext.RichText `json:"body"`
}

// Pagination is one page of post summaries plus the cursor to the next page.
// NextPage is empty on the last page.
type Pagination struct {
	NextPage string
	Results  []Post
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string
}
