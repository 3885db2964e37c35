package localapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/adrg/frontmatter"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	st "github.com/eringen/spacetraveling"
	"github.com/eringen/spacetraveling/cms"
)

// frontMatter is the header of a post file.
type frontMatter struct {
	UID       string   `yaml:"uid"`
	Title     string   `yaml:"title"`
	Subtitle  string   `yaml:"subtitle"`
	Author    string   `yaml:"author"`
	Banner    string   `yaml:"banner"`
	BannerAlt string   `yaml:"banner_alt"`
	Date      string   `yaml:"date"`
	Tags      []string `yaml:"tags"`
	Draft     bool     `yaml:"draft"`
}

// postData is the data payload of an imported post.
type postData struct {
	Title    string    `json:"title"`
	Subtitle string    `json:"subtitle"`
	Author   string    `json:"author"`
	Banner   *Banner   `json:"banner,omitempty"`
	Content  []Section `json:"content"`
}

// Importer loads a directory of markdown posts into a Store.
type Importer struct {
	store   *Store
	media   *Media
	docType string
	log     *slog.Logger
}

// NewImporter returns an Importer saving documents of docType. media may be
// nil, in which case local banner files are skipped.
func NewImporter(store *Store, media *Media, docType string, log *slog.Logger) *Importer {
	if docType == "" {
		docType = "posts"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Importer{store: store, media: media, docType: docType, log: log.With("component", "importer")}
}

// Result summarizes an import.
type Result struct {
	Imported []string
	Deleted  []string
}

// ImportDir imports every .md file under dir. Drafts and documents of the
// same type whose file no longer exists are removed from the store.
func (im *Importer) ImportDir(ctx context.Context, dir string) (Result, error) {
	var res Result
	seen := map[string]string{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".md") {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		doc, draft, err := im.parseFile(path)
		if err != nil {
			return err
		}
		if prev, dup := seen[doc.UID]; dup {
			return fmt.Errorf("%s: uid %q already used by %s", path, doc.UID, prev)
		}
		seen[doc.UID] = path
		if draft {
			return nil
		}
		if _, err := im.store.Save(ctx, doc); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		res.Imported = append(res.Imported, doc.UID)
		return nil
	})
	if err != nil {
		return res, err
	}

	existing, err := im.store.UIDs(ctx, im.docType)
	if err != nil {
		return res, err
	}
	imported := make(map[string]bool, len(res.Imported))
	for _, uid := range res.Imported {
		imported[uid] = true
	}
	for _, uid := range existing {
		if imported[uid] {
			continue
		}
		if err := im.store.Delete(ctx, im.docType, uid); err != nil {
			return res, err
		}
		res.Deleted = append(res.Deleted, uid)
	}
	im.log.Info("content imported", "dir", dir, "imported", len(res.Imported), "deleted", len(res.Deleted))
	return res, nil
}

func (im *Importer) parseFile(path string) (cms.Document, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return cms.Document{}, false, err
	}
	var fm frontMatter
	body, err := frontmatter.Parse(bytes.NewReader(raw), &fm)
	if err != nil {
		return cms.Document{}, false, fmt.Errorf("%s: frontmatter: %w", path, err)
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if fm.Title == "" {
		fm.Title = TitleFromName(stem)
	}
	uid := Slug(fm.UID)
	if uid == "" {
		uid = Slug(stem)
	}
	if uid == "" {
		return cms.Document{}, false, fmt.Errorf("%s: cannot derive a uid", path)
	}

	dir := filepath.Dir(path)
	data := postData{
		Title:    fm.Title,
		Subtitle: fm.Subtitle,
		Author:   fm.Author,
		Content: ParseBody(body, func(dest string) string {
			return im.resolveImage(dir, dest, uid)
		}),
	}
	if fm.Banner != "" {
		banner, err := im.banner(dir, fm.Banner, uid)
		if err != nil {
			return cms.Document{}, false, err
		}
		banner.Alt = fm.BannerAlt
		data.Banner = &banner
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return cms.Document{}, false, err
	}

	doc := cms.Document{UID: uid, Type: im.docType, Tags: fm.Tags, Data: payload}
	if fm.Date != "" {
		t, err := parseDate(fm.Date)
		if err != nil {
			return cms.Document{}, false, fmt.Errorf("%s: %w", path, err)
		}
		doc.FirstPublicationDate = &cms.Timestamp{Time: t}
	}
	return doc, fm.Draft, nil
}

func (im *Importer) banner(dir, ref, uid string) (Banner, error) {
	if isRemote(ref) {
		return Banner{URL: ref}, nil
	}
	if im.media == nil {
		return Banner{}, fmt.Errorf("banner %q: no media directory configured", ref)
	}
	return im.media.Import(filepath.Join(dir, ref), uid+"-banner")
}

// resolveImage stores local body images as media; remote ones pass through.
func (im *Importer) resolveImage(dir, dest, uid string) string {
	if isRemote(dest) || im.media == nil {
		return dest
	}
	name := uid + "-" + Slug(strings.TrimSuffix(filepath.Base(dest), filepath.Ext(dest)))
	img, err := im.media.Import(filepath.Join(dir, dest), name)
	if err != nil {
		im.log.Warn("skipping image", "src", dest, "error", err)
		return dest
	}
	return img.URL
}

func isRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// Slug lowercases s, drops accents and joins words with hyphens:
// "Criação de Hooks" becomes "criacao-de-hooks".
func Slug(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, s)
	if err != nil {
		plain = s
	}
	return st.Slugify(plain)
}

// TitleFromName turns a file name such as "como-utilizar-hooks" into
// "Como Utilizar Hooks".
func TitleFromName(name string) string {
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return cases.Title(language.BrazilianPortuguese).String(name)
}
