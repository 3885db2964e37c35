package localapi

import (
	"strings"
	"unicode/utf16"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/eringen/spacetraveling/richtext"
)

// Section is one content group of a post: an optional heading and its body.
type Section struct {
	Heading string            `json:"heading"`
	Body    richtext.RichText `json:"body"`
}

// ImageResolver maps a markdown image destination to the URL to serve.
type ImageResolver func(dest string) string

// ParseBody converts markdown into content sections. Each level-two heading
// starts a new section; text before the first one forms a section without
// a heading.
func ParseBody(src []byte, resolve ImageResolver) []Section {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	c := converter{src: src, resolve: resolve}

	var sections []Section
	var cur *Section
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok && h.Level == 2 {
			sections = append(sections, Section{Heading: c.inline(h).text})
			cur = &sections[len(sections)-1]
			continue
		}
		blocks := c.blocks(n)
		if len(blocks) == 0 {
			continue
		}
		if cur == nil {
			sections = append(sections, Section{})
			cur = &sections[len(sections)-1]
		}
		cur.Body = append(cur.Body, blocks...)
	}
	for i := range sections {
		if sections[i].Body == nil {
			sections[i].Body = richtext.RichText{}
		}
	}
	return sections
}

type converter struct {
	src     []byte
	resolve ImageResolver
}

func (c converter) blocks(n ast.Node) []richtext.Block {
	switch n := n.(type) {
	case *ast.Heading:
		in := c.inline(n)
		return []richtext.Block{richtext.Heading{Level: n.Level, Text: in.text, Spans: in.spans}}
	case *ast.Paragraph:
		if img, ok := c.soleImage(n); ok {
			return []richtext.Block{img}
		}
		in := c.inline(n)
		if strings.TrimSpace(in.text) == "" {
			return nil
		}
		return []richtext.Block{richtext.Paragraph{Text: in.text, Spans: in.spans}}
	case *ast.List:
		var out []richtext.Block
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			for child := item.FirstChild(); child != nil; child = child.NextSibling() {
				if _, nested := child.(*ast.List); nested {
					out = append(out, c.blocks(child)...)
					continue
				}
				in := c.inline(child)
				out = append(out, richtext.ListItem{Ordered: n.IsOrdered(), Text: in.text, Spans: in.spans})
			}
		}
		return out
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		return []richtext.Block{richtext.Preformatted{Text: strings.TrimSuffix(c.lines(n), "\n")}}
	case *ast.Blockquote:
		var out []richtext.Block
		for child := n.FirstChild(); child != nil; child = child.NextSibling() {
			out = append(out, c.blocks(child)...)
		}
		return out
	}
	return nil
}

func (c converter) lines(n ast.Node) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(c.src))
	}
	return b.String()
}

// soleImage reports whether paragraph p holds nothing but one image.
func (c converter) soleImage(p *ast.Paragraph) (richtext.Image, bool) {
	img, ok := p.FirstChild().(*ast.Image)
	if !ok || img.NextSibling() != nil {
		return richtext.Image{}, false
	}
	url := string(img.Destination)
	if c.resolve != nil {
		url = c.resolve(url)
	}
	return richtext.Image{URL: url, Alt: c.inline(img).text}, true
}

// inlineText accumulates text and spans. Offsets are UTF-16 code units.
type inlineText struct {
	text  string
	size  int
	spans []richtext.Span
}

func (in *inlineText) write(s string) {
	in.text += s
	in.size += len(utf16.Encode([]rune(s)))
}

func (c converter) inline(n ast.Node) inlineText {
	var in inlineText
	c.walkInline(&in, n)
	in.text = strings.TrimRight(in.text, " \n")
	size := len(utf16.Encode([]rune(in.text)))
	spans := in.spans[:0]
	for _, s := range in.spans {
		if s.End > size {
			s.End = size
		}
		if s.Start < s.End {
			spans = append(spans, s)
		}
	}
	in.spans = spans
	return in
}

func (c converter) walkInline(in *inlineText, n ast.Node) {
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		start := in.size
		switch child := child.(type) {
		case *ast.Text:
			in.write(string(child.Segment.Value(c.src)))
			switch {
			case child.HardLineBreak():
				in.write("\n")
			case child.SoftLineBreak():
				in.write(" ")
			}
		case *ast.String:
			in.write(string(child.Value))
		case *ast.CodeSpan:
			c.walkInline(in, child)
			in.spans = append(in.spans, richtext.Span{Start: start, End: in.size, Type: richtext.SpanLabel,
				Data: richtext.SpanData{Label: "code"}})
		case *ast.Emphasis:
			c.walkInline(in, child)
			kind := richtext.SpanEm
			if child.Level >= 2 {
				kind = richtext.SpanStrong
			}
			in.spans = append(in.spans, richtext.Span{Start: start, End: in.size, Type: kind})
		case *ast.Link:
			c.walkInline(in, child)
			in.spans = append(in.spans, richtext.Span{Start: start, End: in.size, Type: richtext.SpanHyperlink,
				Data: richtext.SpanData{LinkType: "Web", URL: string(child.Destination)}})
		case *ast.AutoLink:
			url := string(child.URL(c.src))
			in.write(string(child.Label(c.src)))
			in.spans = append(in.spans, richtext.Span{Start: start, End: in.size, Type: richtext.SpanHyperlink,
				Data: richtext.SpanData{LinkType: "Web", URL: url}})
		case *ast.Image:
			c.walkInline(in, child)
		case *ast.RawHTML:
		default:
			c.walkInline(in, child)
		}
	}
}
