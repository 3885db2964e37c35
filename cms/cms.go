// Package cms is a client for a Prismic-compatible headless content API
// (REST API v2). It fetches documents by type, by UID, and follows the
// next_page cursors the API hands out.
package cms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// ErrNotFound is returned when no document matches a query.
var ErrNotFound = errors.New("cms: document not found")

const (
	textCodeNotFound = "CMS_DOCUMENT_NOT_FOUND"
	textCodeUpstream = "CMS_UPSTREAM_FAILED"
	textCodeDecode   = "CMS_DECODE_FAILED"
)

// Client is the content source contract the blog consumes.
type Client interface {
	// GetByType returns one page of documents of the given type.
	GetByType(ctx context.Context, docType string, opts QueryOptions) (*Response, error)
	// GetByUID returns the single document of docType with the given UID,
	// or an error matching ErrNotFound.
	GetByUID(ctx context.Context, docType, uid string) (*Document, error)
	// Fetch issues a GET against a next_page URL previously returned by the API.
	Fetch(ctx context.Context, pageURL string) (*Response, error)
}

// QueryOptions narrows a GetByType query.
type QueryOptions struct {
	PageSize int
	Page     int
	// Orderings is passed through verbatim, e.g. "[document.first_publication_date desc]".
	Orderings string
}

// Response is one page of search results.
type Response struct {
	Page             int        `json:"page"`
	ResultsPerPage   int        `json:"results_per_page"`
	ResultsSize      int        `json:"results_size"`
	TotalResultsSize int        `json:"total_results_size"`
	TotalPages       int        `json:"total_pages"`
	NextPage         *string    `json:"next_page"`
	PrevPage         *string    `json:"prev_page"`
	Results          []Document `json:"results"`
}

// Next returns the next page URL, or "" when this is the last page.
func (r *Response) Next() string {
	if r == nil || r.NextPage == nil {
		return ""
	}
	return strings.TrimSpace(*r.NextPage)
}

// Document is a single content entry. Data holds the type-specific fields
// and is decoded by the caller.
type Document struct {
	ID                   string          `json:"id"`
	UID                  string          `json:"uid,omitempty"`
	Type                 string          `json:"type"`
	Href                 string          `json:"href,omitempty"`
	Tags                 []string        `json:"tags"`
	Lang                 string          `json:"lang,omitempty"`
	FirstPublicationDate *Timestamp      `json:"first_publication_date"`
	LastPublicationDate  *Timestamp      `json:"last_publication_date"`
	Data                 json.RawMessage `json:"data"`
}

// DecodeData unmarshals the document's data payload into v.
func (d *Document) DecodeData(v any) error {
	if len(d.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(d.Data, v); err != nil {
		return decodeError(err, "decode data of document "+d.ID)
	}
	return nil
}

// Timestamp accepts the content API date format ("2021-03-25T19:25:28+0000")
// as well as RFC 3339.
type Timestamp struct {
	time.Time
}

// TimestampLayout is the layout the content API uses for publication dates.
const TimestampLayout = "2006-01-02T15:04:05-0700"

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	for _, layout := range []string{TimestampLayout, time.RFC3339} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("cms: invalid timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(TimestampLayout))
}

// TimePtr returns the timestamp as *time.Time, or nil when t is nil or zero.
func (t *Timestamp) TimePtr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

// At builds an "at" predicate, e.g. At("document.type", "posts").
func At(path, value string) string {
	b, _ := json.Marshal(value)
	return "[at(" + path + "," + string(b) + ")]"
}

// Query wraps predicates into the q parameter format.
func Query(predicates ...string) string {
	return "[" + strings.Join(predicates, "") + "]"
}

func notFound(what string) error {
	return goerrors.Wrap(ErrNotFound, goerrors.CategoryNotFound, what).
		WithTextCode(textCodeNotFound)
}

func upstreamError(err error, msg string) error {
	return goerrors.Wrap(err, goerrors.CategoryExternal, msg).
		WithTextCode(textCodeUpstream)
}

func decodeError(err error, msg string) error {
	return goerrors.Wrap(err, goerrors.CategoryExternal, msg).
		WithTextCode(textCodeDecode)
}

// IsNotFound reports whether err means the requested document does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || goerrors.IsCategory(err, goerrors.CategoryNotFound)
}
