package spacetraveling

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Como utilizar Hooks", "como-utilizar-hooks"},
		{"  Criando um app CRA do zero  ", "criando-um-app-cra-do-zero"},
		{"Go 1.24!!", "go-1-24"},
		{"---", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		base string
		segs []string
		want string
	}{
		{"https://example.com", nil, "https://example.com"},
		{"https://example.com", []string{"post", "hello"}, "https://example.com/post/hello/"},
		{"https://example.com/blog/", []string{"feed.xml"}, "https://example.com/blog/feed.xml/"},
	}
	for _, tt := range tests {
		if got := BuildURL(tt.base, tt.segs...); got != tt.want {
			t.Errorf("BuildURL(%q, %v) = %q, want %q", tt.base, tt.segs, got, tt.want)
		}
	}
}

func TestPageURL(t *testing.T) {
	if PageURL(1) != "/" || PageURL(0) != "/" {
		t.Errorf("first page should be /")
	}
	if got := PageURL(3); got != "/page/3/" {
		t.Errorf("PageURL(3) = %q", got)
	}
}

func TestFormatDate(t *testing.T) {
	if got := FormatDate(nil, "pt_BR"); got != "" {
		t.Errorf("nil date = %q, want empty", got)
	}
	d := time.Date(2021, 3, 25, 19, 25, 28, 0, time.UTC)
	if got := FormatDate(&d, "en_US"); got != "25 Mar 2021" {
		t.Errorf("en_US = %q, want 25 Mar 2021", got)
	}
	got := FormatDate(&d, "pt_BR")
	if !strings.HasPrefix(got, "25 ") || !strings.HasSuffix(got, " 2021") {
		t.Errorf("pt_BR = %q", got)
	}
}

func TestBlogPostingJsonLD(t *testing.T) {
	published := time.Date(2021, 3, 25, 0, 0, 0, 0, time.UTC)
	post := PostDetail{
		Post: Post{
			UID:                  "hello",
			FirstPublicationDate: &published,
			Data:                 PostData{Title: "Hello", Subtitle: "World"},
		},
		Banner:  Banner{URL: "https://img/banner.jpg"},
		Content: []Content{{Heading: "Intro", Body: bodyOf(words(199))}},
	}
	cfg := SiteConfig{Name: "spacetraveling", URL: "https://blog.example.com", Author: "Fallback"}

	var got map[string]any
	if err := json.Unmarshal([]byte(BlogPostingJsonLD(post, cfg)), &got); err != nil {
		t.Fatal(err)
	}
	if got["url"] != "https://blog.example.com/post/hello/" {
		t.Errorf("url = %v", got["url"])
	}
	if got["timeRequired"] != "PT1M" {
		t.Errorf("timeRequired = %v", got["timeRequired"])
	}
	if got["wordCount"].(float64) != 200 {
		t.Errorf("wordCount = %v", got["wordCount"])
	}
	author := got["author"].(map[string]any)
	if author["name"] != "Fallback" {
		t.Errorf("author = %v", author)
	}
	if got["datePublished"] != "2021-03-25T00:00:00Z" {
		t.Errorf("datePublished = %v", got["datePublished"])
	}
}

func TestWebsiteJsonLD(t *testing.T) {
	out := WebsiteJsonLD(SiteConfig{Name: "spacetraveling", URL: "https://blog.example.com"})
	if !strings.Contains(out, `"@type":"WebSite"`) || !strings.Contains(out, `"name":"spacetraveling"`) {
		t.Errorf("WebsiteJsonLD = %s", out)
	}
}
