package richtext

import (
	"encoding/json"
	"strings"
	"testing"
)

const samplePayload = `[
  {"type":"heading2","text":"Getting started","spans":[]},
  {"type":"paragraph","text":"Hello world","spans":[{"start":6,"end":11,"type":"strong"}]},
  {"type":"list-item","text":"one","spans":[]},
  {"type":"list-item","text":"two","spans":[]},
  {"type":"o-list-item","text":"first","spans":[]},
  {"type":"image","url":"https://images.example.com/a.png","alt":"rocket","dimensions":{"width":800,"height":600}},
  {"type":"embed","oembed":{"embed_url":"https://youtu.be/x","provider_name":"YouTube","html":"<iframe></iframe>"}},
  {"type":"preformatted","text":"go test ./...","spans":[]}
]`

func TestUnmarshalJSON(t *testing.T) {
	var rt RichText
	if err := json.Unmarshal([]byte(samplePayload), &rt); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(rt) != 8 {
		t.Fatalf("len = %d, want 8", len(rt))
	}
	h, ok := rt[0].(Heading)
	if !ok || h.Level != 2 || h.Text != "Getting started" {
		t.Errorf("block 0 = %#v, want heading level 2", rt[0])
	}
	p, ok := rt[1].(Paragraph)
	if !ok || len(p.Spans) != 1 || p.Spans[0].Type != SpanStrong {
		t.Errorf("block 1 = %#v, want paragraph with strong span", rt[1])
	}
	if li, ok := rt[4].(ListItem); !ok || !li.Ordered {
		t.Errorf("block 4 = %#v, want ordered list item", rt[4])
	}
	if img, ok := rt[5].(Image); !ok || img.Width != 800 || img.Alt != "rocket" {
		t.Errorf("block 5 = %#v, want image", rt[5])
	}
	if e, ok := rt[6].(Embed); !ok || e.Provider != "YouTube" {
		t.Errorf("block 6 = %#v, want embed", rt[6])
	}
}

func TestUnmarshalJSONUnknownType(t *testing.T) {
	var rt RichText
	err := json.Unmarshal([]byte(`[{"type":"hologram","text":"x"}]`), &rt)
	if err == nil {
		t.Fatal("expected error for unknown block type")
	}
	if !strings.Contains(err.Error(), "hologram") {
		t.Errorf("error %q should name the block type", err)
	}
}

func TestUnmarshalJSONNull(t *testing.T) {
	var rt RichText
	if err := json.Unmarshal([]byte(`null`), &rt); err != nil {
		t.Fatalf("Unmarshal(null) failed: %v", err)
	}
	if len(rt) != 0 {
		t.Errorf("len = %d, want 0", len(rt))
	}
}

func TestMarshalJSONKeepsKinds(t *testing.T) {
	in := RichText{
		Heading{Level: 3, Text: "Title"},
		ListItem{Ordered: true, Text: "a"},
		Paragraph{Text: "b", Spans: []Span{{Start: 0, End: 1, Type: SpanEm}}},
	}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	for _, want := range []string{`"type":"heading3"`, `"type":"o-list-item"`, `"type":"em"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("Marshal output %s missing %s", data, want)
		}
	}
	var out RichText
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if out.Text(" ") != in.Text(" ") {
		t.Errorf("Text = %q, want %q", out.Text(" "), in.Text(" "))
	}
}

func TestText(t *testing.T) {
	rt := RichText{
		Heading{Level: 1, Text: "Intro"},
		Paragraph{Text: "first paragraph"},
		Image{URL: "https://example.com/a.png"},
		Paragraph{Text: "second"},
	}
	if got, want := rt.Text(" "), "Intro first paragraph  second"; got != want {
		t.Errorf("Text = %q, want %q", got, want)
	}
	if got := len(strings.Fields(rt.String())); got != 4 {
		t.Errorf("word count = %d, want 4", got)
	}
	if got := (RichText{}).Text(" "); got != "" {
		t.Errorf("empty Text = %q, want empty", got)
	}
}

func TestHeadingKindClampsLevel(t *testing.T) {
	if k := (Heading{Level: 9}).Kind(); k != KindHeading6 {
		t.Errorf("Kind = %q, want %q", k, KindHeading6)
	}
	if k := (Heading{}).Kind(); k != KindHeading1 {
		t.Errorf("Kind = %q, want %q", k, KindHeading1)
	}
}
