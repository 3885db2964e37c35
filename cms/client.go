package cms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const maxErrorBody = 4 << 10

// Config configures an HTTPClient.
type Config struct {
	// Endpoint is the API root, e.g. "https://your-repo.cdn.prismic.io/api/v2".
	Endpoint string
	// AccessToken is sent as the access_token query parameter when set.
	AccessToken string
	// Timeout bounds every request (default 10s). Ignored when HTTPClient is set.
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// HTTPClient talks to the content API over HTTP. The master ref is resolved
// on every query so newly published content is visible immediately.
type HTTPClient struct {
	endpoint string
	token    string
	http     *http.Client
	log      *slog.Logger
}

// NewHTTPClient validates cfg and returns a client.
func NewHTTPClient(cfg Config) (*HTTPClient, error) {
	endpoint := strings.TrimSuffix(strings.TrimSpace(cfg.Endpoint), "/")
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("cms: invalid endpoint %q", cfg.Endpoint)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &HTTPClient{
		endpoint: endpoint,
		token:    cfg.AccessToken,
		http:     hc,
		log:      log.With("component", "cms"),
	}, nil
}

type apiInfo struct {
	Refs []struct {
		ID          string `json:"id"`
		Ref         string `json:"ref"`
		Label       string `json:"label"`
		IsMasterRef bool   `json:"isMasterRef"`
	} `json:"refs"`
}

// MasterRef returns the ref of the currently published content.
func (c *HTTPClient) MasterRef(ctx context.Context) (string, error) {
	var info apiInfo
	if err := c.getJSON(ctx, c.withToken(c.endpoint), &info); err != nil {
		return "", err
	}
	for _, r := range info.Refs {
		if r.IsMasterRef {
			return r.Ref, nil
		}
	}
	return "", upstreamError(fmt.Errorf("no master ref in %d refs", len(info.Refs)), "resolve master ref")
}

// GetByType implements Client.
func (c *HTTPClient) GetByType(ctx context.Context, docType string, opts QueryOptions) (*Response, error) {
	params := url.Values{}
	if opts.PageSize > 0 {
		params.Set("pageSize", strconv.Itoa(opts.PageSize))
	}
	if opts.Page > 0 {
		params.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Orderings != "" {
		params.Set("orderings", opts.Orderings)
	}
	return c.search(ctx, Query(At("document.type", docType)), params)
}

// GetByUID implements Client.
func (c *HTTPClient) GetByUID(ctx context.Context, docType, uid string) (*Document, error) {
	params := url.Values{}
	params.Set("pageSize", "1")
	res, err := c.search(ctx, Query(At("my."+docType+".uid", uid)), params)
	if err != nil {
		return nil, err
	}
	if len(res.Results) == 0 {
		return nil, notFound(fmt.Sprintf("%s %q", docType, uid))
	}
	return &res.Results[0], nil
}

// Fetch implements Client.
func (c *HTTPClient) Fetch(ctx context.Context, pageURL string) (*Response, error) {
	if strings.TrimSpace(pageURL) == "" {
		return nil, fmt.Errorf("cms: empty page url")
	}
	var res Response
	if err := c.getJSON(ctx, c.withToken(pageURL), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) search(ctx context.Context, q string, params url.Values) (*Response, error) {
	ref, err := c.MasterRef(ctx)
	if err != nil {
		return nil, err
	}
	params.Set("ref", ref)
	params.Set("q", q)
	var res Response
	if err := c.getJSON(ctx, c.withToken(c.endpoint+"/documents/search?"+params.Encode()), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// withToken adds the access token to rawURL unless it already carries one.
func (c *HTTPClient) withToken(rawURL string) string {
	if c.token == "" {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if q.Get("access_token") != "" {
		return rawURL
	}
	q.Set("access_token", c.token)
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *HTTPClient) getJSON(ctx context.Context, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("cms: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return upstreamError(err, "request "+redact(req.URL))
	}
	defer resp.Body.Close()
	c.log.Debug("content api request",
		"url", redact(req.URL),
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode == http.StatusNotFound {
		return notFound(redact(req.URL))
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return upstreamError(fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), "request "+redact(req.URL))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return decodeError(err, "decode response from "+redact(req.URL))
	}
	return nil
}

// redact strips the access token from u for logs and errors.
func redact(u *url.URL) string {
	c := *u
	q := c.Query()
	if q.Has("access_token") {
		q.Set("access_token", "redacted")
		c.RawQuery = q.Encode()
	}
	return c.String()
}
