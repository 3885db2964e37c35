package localapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/eringen/spacetraveling/cms"
)

const maxPageSize = 100

// ServerConfig configures a Server.
type ServerConfig struct {
	Addr string
	// MediaDir is served under /media/.
	MediaDir string
	// AccessToken, when set, must be sent as the access_token parameter.
	AccessToken string
	Logger      *slog.Logger
}

// Server exposes a Store over the content API's REST shape.
type Server struct {
	Echo  *echo.Echo
	store *Store
	cfg   ServerConfig
	log   *slog.Logger
}

// NewServer builds the router for store.
func NewServer(store *Store, cfg ServerConfig) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":4000"
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		Echo:  echo.New(),
		store: store,
		cfg:   cfg,
		log:   log.With("component", "localapi"),
	}
	s.Echo.HideBanner = true
	s.Echo.HTTPErrorHandler = s.errorHandler

	s.Echo.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	s.Echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURIPath: true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.log.LogAttrs(c.Request().Context(), slog.LevelDebug, "request",
				slog.String("method", v.Method),
				slog.String("path", v.URIPath),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			)
			return nil
		},
	}))
	s.Echo.Use(middleware.Recover())
	s.Echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet},
	}))

	api := s.Echo.Group("/api/v2", s.requireToken)
	api.GET("", s.handleAPI)
	api.GET("/documents/search", s.handleSearch)
	if cfg.MediaDir != "" {
		s.Echo.Static("/media", cfg.MediaDir)
	}
	return s
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("local content api listening", "addr", s.cfg.Addr)
		if err := s.Echo.Start(s.cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Echo.Shutdown(shutdownCtx)
}

type apiError struct {
	Message string `json:"message"`
}

func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := "internal error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	} else {
		s.log.Error("request failed", "path", c.Path(), "error", err)
	}
	if err := c.JSON(code, apiError{Message: msg}); err != nil {
		s.log.Error("write error response", "error", err)
	}
}

func (s *Server) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.cfg.AccessToken != "" && c.QueryParam("access_token") != s.cfg.AccessToken {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}
		return next(c)
	}
}

type ref struct {
	ID          string `json:"id"`
	Ref         string `json:"ref"`
	Label       string `json:"label"`
	IsMasterRef bool   `json:"isMasterRef"`
}

type apiInfo struct {
	Refs []ref `json:"refs"`
}

func (s *Server) handleAPI(c echo.Context) error {
	master, err := s.store.MasterRef(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apiInfo{Refs: []ref{{
		ID:          "master",
		Ref:         master,
		Label:       "Master",
		IsMasterRef: true,
	}}})
}

func (s *Server) handleSearch(c echo.Context) error {
	params := c.QueryParams()
	if params.Get("ref") == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "ref is required")
	}
	var q Query
	for _, raw := range params["q"] {
		preds, err := ParsePredicates(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		for _, p := range preds {
			if err := q.apply(p); err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, err.Error())
			}
		}
	}
	var err error
	if q.Page, err = intParam(params, "page", 1, 1, 0); err != nil {
		return err
	}
	if q.PageSize, err = intParam(params, "pageSize", 20, 1, maxPageSize); err != nil {
		return err
	}
	if q.OrderBy, q.Desc, err = parseOrderings(params.Get("orderings")); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	docs, total, err := s.store.Search(c.Request().Context(), q)
	if err != nil {
		return err
	}
	pages := (total + q.PageSize - 1) / q.PageSize
	res := cms.Response{
		Page:             q.Page,
		ResultsPerPage:   q.PageSize,
		ResultsSize:      len(docs),
		TotalResultsSize: total,
		TotalPages:       pages,
		Results:          docs,
	}
	if q.Page < pages {
		next := pageURL(c, q.Page+1)
		res.NextPage = &next
	}
	if q.Page > 1 {
		prev := pageURL(c, q.Page-1)
		res.PrevPage = &prev
	}
	return c.JSON(http.StatusOK, res)
}

// pageURL is the absolute URL of the current request with page replaced.
func pageURL(c echo.Context, page int) string {
	req := c.Request()
	q := req.URL.Query()
	q.Set("page", strconv.Itoa(page))
	u := url.URL{
		Scheme:   c.Scheme(),
		Host:     req.Host,
		Path:     req.URL.Path,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func intParam(params url.Values, name string, def, lo, hi int) (int, error) {
	raw := params.Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid %s %q", name, raw))
	}
	if hi > 0 && n > hi {
		n = hi
	}
	return n, nil
}

// Predicate is one at(path, value) filter of the q parameter.
type Predicate struct {
	Path  string
	Value string
}

var predicateRe = regexp.MustCompile(`\[at\(\s*([\w.]+)\s*,\s*("(?:[^"\\]|\\.)*")\s*\)\]`)

// ParsePredicates parses a q parameter such as
// [[at(document.type,"posts")][at(my.posts.uid,"hello")]].
func ParsePredicates(q string) ([]Predicate, error) {
	q = strings.TrimSpace(q)
	if !strings.HasPrefix(q, "[") || !strings.HasSuffix(q, "]") {
		return nil, fmt.Errorf("malformed query %q", q)
	}
	inner := q[1 : len(q)-1]
	matches := predicateRe.FindAllStringSubmatchIndex(inner, -1)
	if len(matches) == 0 && strings.TrimSpace(inner) != "" {
		return nil, fmt.Errorf("unsupported query %q", q)
	}
	preds := make([]Predicate, 0, len(matches))
	end := 0
	for _, m := range matches {
		if strings.TrimSpace(inner[end:m[0]]) != "" {
			return nil, fmt.Errorf("unsupported query %q", q)
		}
		value, err := strconv.Unquote(inner[m[4]:m[5]])
		if err != nil {
			return nil, fmt.Errorf("bad value in %q", q)
		}
		preds = append(preds, Predicate{Path: inner[m[2]:m[3]], Value: value})
		end = m[1]
	}
	if strings.TrimSpace(inner[end:]) != "" {
		return nil, fmt.Errorf("unsupported query %q", q)
	}
	return preds, nil
}

func (q *Query) apply(p Predicate) error {
	switch {
	case p.Path == "document.type":
		q.Type = p.Value
	case p.Path == "document.id":
		q.ID = p.Value
	case strings.HasPrefix(p.Path, "my.") && strings.HasSuffix(p.Path, ".uid"):
		docType := strings.TrimSuffix(strings.TrimPrefix(p.Path, "my."), ".uid")
		if docType == "" || (q.Type != "" && q.Type != docType) {
			return fmt.Errorf("unsupported path %q", p.Path)
		}
		q.Type = docType
		q.UID = p.Value
	default:
		return fmt.Errorf("unsupported path %q", p.Path)
	}
	return nil
}

// parseOrderings accepts "[document.first_publication_date desc]" and the
// last_publication_date equivalent. The default is newest first.
func parseOrderings(raw string) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "first_publication_date", true, nil
	}
	fields := strings.Fields(strings.Trim(raw, "[]"))
	if len(fields) == 0 || len(fields) > 2 {
		return "", false, fmt.Errorf("unsupported orderings %q", raw)
	}
	field := strings.TrimPrefix(fields[0], "document.")
	if field != "first_publication_date" && field != "last_publication_date" {
		return "", false, fmt.Errorf("unsupported orderings %q", raw)
	}
	desc := false
	if len(fields) == 2 {
		switch fields[1] {
		case "desc":
			desc = true
		case "asc":
		default:
			return "", false, fmt.Errorf("unsupported orderings %q", raw)
		}
	}
	return field, desc, nil
}
