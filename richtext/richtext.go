// Package richtext models the structured rich text documents served by the
// content API and converts them to plain text or HTML.
package richtext

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies a block type as it appears in the content API payload.
type Kind string

const (
	KindParagraph    Kind = "paragraph"
	KindHeading1     Kind = "heading1"
	KindHeading2     Kind = "heading2"
	KindHeading3     Kind = "heading3"
	KindHeading4     Kind = "heading4"
	KindHeading5     Kind = "heading5"
	KindHeading6     Kind = "heading6"
	KindPreformatted Kind = "preformatted"
	KindListItem     Kind = "list-item"
	KindOListItem    Kind = "o-list-item"
	KindImage        Kind = "image"
	KindEmbed        Kind = "embed"
)

// SpanKind identifies an inline formatting span.
type SpanKind string

const (
	SpanStrong    SpanKind = "strong"
	SpanEm        SpanKind = "em"
	SpanHyperlink SpanKind = "hyperlink"
	SpanLabel     SpanKind = "label"
)

// Span marks a range of a block's text. Start and End are UTF-16 code unit
// offsets, which is what the content API emits.
type Span struct {
	Start int      `json:"start"`
	End   int      `json:"end"`
	Type  SpanKind `json:"type"`
	Data  SpanData `json:"data,omitempty"`
}

// SpanData carries the link target of a hyperlink span or the name of a label.
type SpanData struct {
	LinkType string `json:"link_type,omitempty"`
	URL      string `json:"url,omitempty"`
	Target   string `json:"target,omitempty"`
	Label    string `json:"label,omitempty"`
}

// Block is one element of a rich text document. The set of implementations
// is closed: Paragraph, Heading, ListItem, Preformatted, Image and Embed.
type Block interface {
	Kind() Kind
	// PlainText returns the block's text without formatting.
	PlainText() string
	block()
}

// Paragraph is a run of text.
type Paragraph struct {
	Text  string
	Spans []Span
}

// Heading is a heading of Level 1 through 6.
type Heading struct {
	Level int
	Text  string
	Spans []Span
}

// ListItem is an item of an unordered or ordered list. Consecutive items of
// the same kind form one list.
type ListItem struct {
	Ordered bool
	Text    string
	Spans   []Span
}

// Preformatted is text rendered verbatim.
type Preformatted struct {
	Text  string
	Spans []Span
}

// Image is an inline image.
type Image struct {
	URL    string
	Alt    string
	Width  int
	Height int
}

// Embed is an oEmbed payload.
type Embed struct {
	URL      string
	Provider string
	HTML     string
}

func (Paragraph) Kind() Kind    { return KindParagraph }
func (Preformatted) Kind() Kind { return KindPreformatted }
func (Image) Kind() Kind        { return KindImage }
func (Embed) Kind() Kind        { return KindEmbed }

func (h Heading) Kind() Kind {
	return Kind("heading" + strconv.Itoa(clampLevel(h.Level)))
}

func (l ListItem) Kind() Kind {
	if l.Ordered {
		return KindOListItem
	}
	return KindListItem
}

func (p Paragraph) PlainText() string    { return p.Text }
func (h Heading) PlainText() string      { return h.Text }
func (l ListItem) PlainText() string     { return l.Text }
func (p Preformatted) PlainText() string { return p.Text }
func (Image) PlainText() string          { return "" }
func (Embed) PlainText() string          { return "" }

func (Paragraph) block()    {}
func (Heading) block()      {}
func (ListItem) block()     {}
func (Preformatted) block() {}
func (Image) block()        {}
func (Embed) block()        {}

// RichText is an ordered sequence of blocks.
type RichText []Block

// Text joins the plain text of every block with sep.
func (rt RichText) Text(sep string) string {
	parts := make([]string, len(rt))
	for i, b := range rt {
		parts[i] = b.PlainText()
	}
	return strings.Join(parts, sep)
}

// String returns the plain text of rt with blocks separated by a space.
func (rt RichText) String() string {
	return rt.Text(" ")
}

// wireBlock is the JSON shape of a block in the content API.
type wireBlock struct {
	Type       Kind            `json:"type"`
	Text       string          `json:"text,omitempty"`
	Spans      []Span          `json:"spans,omitempty"`
	URL        string          `json:"url,omitempty"`
	Alt        string          `json:"alt,omitempty"`
	Dimensions *wireDimensions `json:"dimensions,omitempty"`
	OEmbed     *wireOEmbed     `json:"oembed,omitempty"`
}

type wireDimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type wireOEmbed struct {
	EmbedURL     string `json:"embed_url,omitempty"`
	ProviderName string `json:"provider_name,omitempty"`
	HTML         string `json:"html,omitempty"`
}

// UnmarshalJSON decodes the content API representation. A null value
// decodes to an empty document.
func (rt *RichText) UnmarshalJSON(data []byte) error {
	var wire []wireBlock
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("richtext: %w", err)
	}
	out := make(RichText, 0, len(wire))
	for i, w := range wire {
		b, err := w.toBlock()
		if err != nil {
			return fmt.Errorf("richtext: block %d: %w", i, err)
		}
		out = append(out, b)
	}
	*rt = out
	return nil
}

// MarshalJSON encodes rt in the content API representation.
func (rt RichText) MarshalJSON() ([]byte, error) {
	wire := make([]wireBlock, 0, len(rt))
	for _, b := range rt {
		wire = append(wire, fromBlock(b))
	}
	return json.Marshal(wire)
}

func (w wireBlock) toBlock() (Block, error) {
	switch w.Type {
	case KindParagraph:
		return Paragraph{Text: w.Text, Spans: w.Spans}, nil
	case KindHeading1, KindHeading2, KindHeading3, KindHeading4, KindHeading5, KindHeading6:
		level, _ := strconv.Atoi(strings.TrimPrefix(string(w.Type), "heading"))
		return Heading{Level: level, Text: w.Text, Spans: w.Spans}, nil
	case KindListItem:
		return ListItem{Text: w.Text, Spans: w.Spans}, nil
	case KindOListItem:
		return ListItem{Ordered: true, Text: w.Text, Spans: w.Spans}, nil
	case KindPreformatted:
		return Preformatted{Text: w.Text, Spans: w.Spans}, nil
	case KindImage:
		img := Image{URL: w.URL, Alt: w.Alt}
		if w.Dimensions != nil {
			img.Width = w.Dimensions.Width
			img.Height = w.Dimensions.Height
		}
		return img, nil
	case KindEmbed:
		e := Embed{}
		if w.OEmbed != nil {
			e.URL = w.OEmbed.EmbedURL
			e.Provider = w.OEmbed.ProviderName
			e.HTML = w.OEmbed.HTML
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown block type %q", w.Type)
	}
}

func fromBlock(b Block) wireBlock {
	switch v := b.(type) {
	case Paragraph:
		return wireBlock{Type: KindParagraph, Text: v.Text, Spans: v.Spans}
	case Heading:
		return wireBlock{Type: v.Kind(), Text: v.Text, Spans: v.Spans}
	case ListItem:
		return wireBlock{Type: v.Kind(), Text: v.Text, Spans: v.Spans}
	case Preformatted:
		return wireBlock{Type: KindPreformatted, Text: v.Text, Spans: v.Spans}
	case Image:
		return wireBlock{Type: KindImage, URL: v.URL, Alt: v.Alt, Dimensions: &wireDimensions{Width: v.Width, Height: v.Height}}
	case Embed:
		return wireBlock{Type: KindEmbed, OEmbed: &wireOEmbed{EmbedURL: v.URL, ProviderName: v.Provider, HTML: v.HTML}}
	}
	return wireBlock{Type: b.Kind(), Text: b.PlainText()}
}

func clampLevel(l int) int {
	switch {
	case l < 1:
		return 1
	case l > 6:
		return 6
	}
	return l
}
