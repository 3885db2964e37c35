package spacetraveling

import (
	"log/slog"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goodsign/monday"

	"github.com/eringen/spacetraveling/cms"
)

// SiteConfig holds all configuration for a spacetraveling site.
type SiteConfig struct {
	Name        string // Site name (default "spacetraveling")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for RSS and meta tags
	Author      string // Fallback author for JSON-LD
	Locale      string // Date locale (default "pt_BR")

	Addr string // Listen address (default ":3000")

	APIEndpoint  string // Required: content API root, e.g. https://repo.cdn.prismic.io/api/v2
	AccessToken  string // Content API access token
	DocumentType string // Post document type (default "posts")
	PageSize     int    // Posts per listing page (default 1)

	PrerenderLimit int    // Posts rendered ahead of time in serve mode; negative renders none (default 20)
	OutputDir      string // Static export directory (default "out")
	StaticDir      string // User-owned static assets (default "public")

	SessionSecret string // Required for serve: session encryption secret
	CookieSecure  bool   // Set true for HTTPS

	RequestTimeout time.Duration // Content API timeout (default 10s)
	MoreRateLimit  int           // "load more" requests per IP per minute (default 30)
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "spacetraveling"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Locale == "" {
		c.Locale = string(monday.LocalePtBR)
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DocumentType == "" {
		c.DocumentType = "posts"
	}
	if c.PageSize == 0 {
		c.PageSize = 1
	}
	if c.PrerenderLimit == 0 {
		c.PrerenderLimit = 20
	}
	if c.OutputDir == "" {
		c.OutputDir = "out"
	}
	if c.StaticDir == "" {
		c.StaticDir = "public"
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.MoreRateLimit == 0 {
		c.MoreRateLimit = 30
	}
}

// Validate checks the settings every mode needs.
func (c SiteConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.URL, validation.Required, validation.By(absoluteURL)),
		validation.Field(&c.APIEndpoint, validation.Required, validation.By(absoluteURL)),
		validation.Field(&c.DocumentType, validation.Required),
		validation.Field(&c.PageSize, validation.Min(1), validation.Max(100)),
		validation.Field(&c.PrerenderLimit, validation.Min(-1)),
		validation.Field(&c.MoreRateLimit, validation.Min(1)),
	)
}

// ValidateServe additionally checks the settings the live server needs.
func (c SiteConfig) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.SessionSecret, validation.Required, validation.Length(16, 0)),
	)
}

func absoluteURL(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return validation.NewError("validation_absolute_url", "must be an absolute URL")
	}
	return nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets.
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.Config.StaticDir = dir
	}
}

// WithSource replaces the content API client, e.g. with an in-memory one in tests.
func WithSource(client cms.Client) Option {
	return func(a *App) {
		a.client = client
	}
}

// WithLogger sets the logger used by the app and its request middleware.
func WithLogger(log *slog.Logger) Option {
	return func(a *App) {
		a.Log = log
	}
}
