package richtext

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/a-h/templ"
)

// Component returns a templ.Component that renders rt as HTML.
func Component(rt RichText) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		RenderHTML(&buf, rt)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// HTML returns the HTML representation of rt.
func (rt RichText) HTML() string {
	var buf bytes.Buffer
	RenderHTML(&buf, rt)
	return buf.String()
}

// RenderHTML writes the HTML representation of rt to buf. Consecutive list
// items of the same kind are grouped into a single <ul> or <ol>.
func RenderHTML(buf *bytes.Buffer, rt RichText) {
	inList := false
	inOrderedList := false

	flushList := func() {
		if inList {
			buf.WriteString("</ul>")
			inList = false
		}
		if inOrderedList {
			buf.WriteString("</ol>")
			inOrderedList = false
		}
	}

	for _, b := range rt {
		switch v := b.(type) {
		case ListItem:
			if v.Ordered && !inOrderedList {
				flushList()
				buf.WriteString("<ol>")
				inOrderedList = true
			}
			if !v.Ordered && !inList {
				flushList()
				buf.WriteString("<ul>")
				inList = true
			}
			buf.WriteString("<li>")
			buf.WriteString(FormatSpans(v.Text, v.Spans))
			buf.WriteString("</li>")
		case Paragraph:
			flushList()
			buf.WriteString("<p>")
			buf.WriteString(FormatSpans(v.Text, v.Spans))
			buf.WriteString("</p>")
		case Heading:
			flushList()
			tag := "h" + strconv.Itoa(clampLevel(v.Level))
			buf.WriteString("<" + tag + ">")
			buf.WriteString(FormatSpans(v.Text, v.Spans))
			buf.WriteString("</" + tag + ">")
		case Preformatted:
			flushList()
			buf.WriteString("<pre>")
			buf.WriteString(FormatSpans(v.Text, v.Spans))
			buf.WriteString("</pre>")
		case Image:
			flushList()
			src := SafeURL(v.URL)
			if src == "" {
				continue
			}
			buf.WriteString(`<p class="block-img"><img src="` + src + `" alt="` + html.EscapeString(v.Alt) + `"`)
			if v.Width > 0 && v.Height > 0 {
				buf.WriteString(` width="` + strconv.Itoa(v.Width) + `" height="` + strconv.Itoa(v.Height) + `"`)
			}
			buf.WriteString(` loading="lazy" decoding="async"/></p>`)
		case Embed:
			flushList()
			// oEmbed markup comes from the content source and is trusted as-is.
			buf.WriteString(`<div data-oembed="` + SafeURL(v.URL) + `" data-oembed-provider="` + html.EscapeString(strings.ToLower(v.Provider)) + `">`)
			buf.WriteString(v.HTML)
			buf.WriteString("</div>")
		}
	}
	flushList()
}

// FormatSpans escapes text and applies spans to it. Overlapping spans are
// closed and reopened at every boundary so the output is always well nested.
// Newlines become <br/>.
func FormatSpans(text string, spans []Span) string {
	units := utf16.Encode([]rune(text))
	n := len(units)

	valid := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.Start < 0 || s.End > n || s.Start >= s.End {
			continue
		}
		valid = append(valid, s)
	}
	if len(valid) == 0 {
		return formatText(text)
	}
	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].Start != valid[j].Start {
			return valid[i].Start < valid[j].Start
		}
		return valid[i].End > valid[j].End
	})

	cuts := map[int]struct{}{0: {}, n: {}}
	for _, s := range valid {
		cuts[s.Start] = struct{}{}
		cuts[s.End] = struct{}{}
	}
	points := make([]int, 0, len(cuts))
	for p := range cuts {
		points = append(points, p)
	}
	sort.Ints(points)

	var b strings.Builder
	for i := 0; i < len(points)-1; i++ {
		from, to := points[i], points[i+1]
		var active []Span
		for _, s := range valid {
			if s.Start <= from && s.End >= to {
				active = append(active, s)
			}
		}
		for _, s := range active {
			b.WriteString(openTag(s))
		}
		b.WriteString(formatText(string(utf16.Decode(units[from:to]))))
		for j := len(active) - 1; j >= 0; j-- {
			b.WriteString(closeTag(active[j]))
		}
	}
	return b.String()
}

func formatText(s string) string {
	return strings.ReplaceAll(html.EscapeString(s), "\n", "<br/>")
}

func openTag(s Span) string {
	switch s.Type {
	case SpanStrong:
		return "<strong>"
	case SpanEm:
		return "<em>"
	case SpanHyperlink:
		href := SafeURL(s.Data.URL)
		if href == "" {
			return "<span>"
		}
		attrs := ""
		if s.Data.Target == "_blank" {
			attrs = ` target="_blank" rel="noopener noreferrer"`
		}
		return `<a href="` + href + `"` + attrs + `>`
	case SpanLabel:
		return `<span class="` + html.EscapeString(s.Data.Label) + `">`
	}
	return "<span>"
}

func closeTag(s Span) string {
	switch s.Type {
	case SpanStrong:
		return "</strong>"
	case SpanEm:
		return "</em>"
	case SpanHyperlink:
		if SafeURL(s.Data.URL) == "" {
			return "</span>"
		}
		return "</a>"
	}
	return "</span>"
}

// SafeURL validates and sanitizes a URL for use in HTML attributes.
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return html.EscapeString(val)
	default:
		return ""
	}
}
