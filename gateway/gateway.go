package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/gaborage/go-bricks-apidoc/config"
	apihttp "github.com/gaborage/go-bricks-apidoc/http"
	"github.com/gaborage/go-bricks-apidoc/logger"
	"github.com/gaborage/go-bricks-apidoc/server"
)

const (
	// DefaultConcurrency bounds the downstream fetches of one aggregation.
	DefaultConcurrency = 4

	StatusUp   = "UP"
	StatusDown = "DOWN"
)

// Gateway serves the documentation of the services routed through an API gateway.
type Gateway struct {
	cfg      *config.Config
	prefix   string
	client   apihttp.Client
	log      logger.Logger
	services map[string]string
	urls     []SwaggerURL
	permit   *Matcher
	workers  int
	meters   metric.MeterProvider
	metrics  *fetchMetrics
	inflight singleflight.Group
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithClient replaces the client built from the gateway timeout and retries.
func WithClient(c apihttp.Client) Option {
	return func(g *Gateway) {
		if c != nil {
			g.client = c
		}
	}
}

// WithMeterProvider records fetch metrics with mp instead of the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(g *Gateway) {
		if mp != nil {
			g.meters = mp
		}
	}
}

// WithConcurrency bounds the downstream fetches of Collect.
func WithConcurrency(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.workers = n
		}
	}
}

// New creates a Gateway for the gateway section of cfg.
func New(cfg *config.Config, log logger.Logger, opts ...Option) (*Gateway, error) {
	if log == nil {
		log = logger.Nop()
	}

	urls, err := SwaggerURLs(cfg)
	if err != nil {
		return nil, err
	}
	patterns, err := SwaggerPatterns(cfg)
	if err != nil {
		return nil, err
	}
	permit, err := NewMatcher(patterns...)
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		cfg:      cfg,
		prefix:   cfg.Gateway.Prefix,
		log:      log.WithFields(map[string]any{"component": "gateway"}),
		services: make(map[string]string, len(urls)),
		urls:     urls,
		permit:   permit,
		workers:  DefaultConcurrency,
		meters:   otel.GetMeterProvider(),
	}
	for _, r := range cfg.Gateway.Routes {
		id := serviceID(r.ID)
		if _, selected := findURL(urls, id); selected {
			if _, dup := g.services[id]; !dup {
				g.services[id] = strings.TrimSuffix(r.URI, "/") + apiDocsPath
			}
		}
	}

	for _, opt := range opts {
		opt(g)
	}
	if g.client == nil {
		g.client = apihttp.NewBuilder(log).
			WithTimeout(cfg.Gateway.Timeout).
			WithRetries(cfg.Gateway.Retries, apihttp.DefaultRetryDelay).
			WithDefaultHeader(echo.HeaderAccept, echo.MIMEApplicationJSON).
			Build()
	}
	if g.metrics, err = newFetchMetrics(g.meters); err != nil {
		return nil, err
	}
	return g, nil
}

func findURL(urls []SwaggerURL, id string) (SwaggerURL, bool) {
	for _, u := range urls {
		if u.Name == id {
			return u, true
		}
	}
	return SwaggerURL{}, false
}

// Register mounts the gateway endpoints on e.
func (g *Gateway) Register(e *echo.Echo) {
	e.Pre(g.forwardSwaggerUI)

	if g.cfg.Docs.IndexRedirect && g.prefix != "" {
		for _, p := range []string{g.prefix, g.prefix + "/", g.prefix + "/index"} {
			e.GET(p, g.redirectIndex)
		}
	}

	limit := server.RateLimit(g.cfg.Gateway.RateLimit)
	e.GET(g.cfg.Docs.Path+"/swagger-config", g.swaggerConfig)
	e.GET(g.cfg.Docs.Path+"/services", g.aggregate, limit)
	e.GET("/:serviceId"+apiDocsPath, g.proxy, limit)

	g.log.Info().
		Int("services", len(g.services)).
		Str("prefix", g.prefix).
		Msg("Gateway documentation routes registered")
}

// Permit wraps mw so that requests to documentation paths bypass it.
func (g *Gateway) Permit(mw echo.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		guarded := mw(next)
		return func(c echo.Context) error {
			if g.permit.Match(c.Request().URL.Path) {
				return next(c)
			}
			return guarded(c)
		}
	}
}

// URLs returns the swagger-ui document selector entries.
func (g *Gateway) URLs() []SwaggerURL {
	return append([]SwaggerURL(nil), g.urls...)
}

// forwardSwaggerUI serves <prefix>/swagger-ui/** from /webjars/swagger-ui/**.
func (g *Gateway) forwardSwaggerUI(next echo.HandlerFunc) echo.HandlerFunc {
	ui := g.prefix + swaggerUIPath
	return func(c echo.Context) error {
		req := c.Request()
		if p := req.URL.Path; p == ui || strings.HasPrefix(p, ui+"/") {
			req.URL.Path = webjarsPath + strings.TrimPrefix(p, g.prefix)
			req.URL.RawPath = ""
		}
		return next(c)
	}
}

func (g *Gateway) redirectIndex(c echo.Context) error {
	return c.Redirect(http.StatusTemporaryRedirect, g.prefix+swaggerIndex)
}

func (g *Gateway) swaggerConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"urls": g.urls})
}

// proxy fetches the document of one service and rewrites it for the gateway.
func (g *Gateway) proxy(c echo.Context) error {
	id := c.Param("serviceId")
	docURL, ok := g.services[id]
	if !ok {
		return server.NewNotFoundError("service " + id)
	}

	body, err := g.fetch(c.Request().Context(), id, docURL)
	if err != nil {
		return server.NewBadGatewayError("").WithDetails("service", id)
	}
	out, err := RewriteDocument(body, g.prefix, origin(c))
	if err != nil {
		g.log.Warn().Err(err).Str("service", id).Msg("Downstream document is not valid JSON")
		return server.NewBadGatewayError("Downstream document is not valid JSON").WithDetails("service", id)
	}
	return c.JSONBlob(http.StatusOK, out)
}

// fetch downloads one service document. Concurrent fetches of the same document
// share a single downstream request.
func (g *Gateway) fetch(ctx context.Context, id, docURL string) ([]byte, error) {
	body, err, _ := g.inflight.Do(docURL, func() (any, error) {
		start := time.Now()
		resp, err := g.client.Get(ctx, &apihttp.Request{URL: docURL})
		g.metrics.record(ctx, id, time.Since(start), err)
		if err != nil {
			g.log.Warn().
				Err(err).
				Str("service", id).
				Str("url", docURL).
				Int("status", apihttp.StatusCode(err)).
				Msg("Failed to fetch downstream document")
			return nil, err
		}
		return resp.Body, nil
	})
	if err != nil {
		return nil, err
	}
	return body.([]byte), nil
}

// ServiceDocument is the outcome of fetching one service document.
type ServiceDocument struct {
	ID       string          `json:"id"`
	URL      string          `json:"url"`
	Status   string          `json:"status"`
	Error    string          `json:"error,omitempty"`
	Document json.RawMessage `json:"document,omitempty"`
}

// Collect fetches and rewrites every service document concurrently. Services that
// fail are reported DOWN; only a done ctx fails the whole collection.
func (g *Gateway) Collect(ctx context.Context, serverURL string) ([]ServiceDocument, error) {
	docs := make([]ServiceDocument, len(g.urls))

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i, u := range g.urls {
		eg.Go(func() error {
			if err := ectx.Err(); err != nil {
				return err
			}
			docs[i] = g.collectOne(ectx, u, serverURL)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (g *Gateway) collectOne(ctx context.Context, u SwaggerURL, serverURL string) ServiceDocument {
	doc := ServiceDocument{ID: u.Name, URL: u.URL, Status: StatusDown}

	body, err := g.fetch(ctx, u.Name, g.services[u.Name])
	if err == nil {
		body, err = RewriteDocument(body, g.prefix, serverURL)
	}
	if err != nil {
		doc.Error = err.Error()
		return doc
	}
	if len(bytes.TrimSpace(body)) > 0 {
		doc.Document = body
	}
	doc.Status = StatusUp
	return doc
}

func (g *Gateway) aggregate(c echo.Context) error {
	docs, err := g.Collect(c.Request().Context(), origin(c))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return server.NewServiceUnavailableError("Aggregation interrupted")
		}
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"services": docs})
}

// origin is the scheme and host the gateway was reached on.
func origin(c echo.Context) string {
	return c.Scheme() + "://" + c.Request().Host
}
