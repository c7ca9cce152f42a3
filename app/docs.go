package app

import (
	"context"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/gaborage/go-bricks-apidoc/config"
	"github.com/gaborage/go-bricks-apidoc/logger"
	"github.com/gaborage/go-bricks-apidoc/openapi"
	"github.com/gaborage/go-bricks-apidoc/server"
)

const (
	swaggerUIPath  = "/swagger-ui"
	swaggerIndex   = swaggerUIPath + "/index.html"
	webjarsUIPath  = "/webjars/swagger-ui"
	yamlSuffix     = ".yaml"
	mimeYAML       = "application/yaml"
	docsRetryAfter = "5"
)

// docsHandler builds the API document once every module route is registered and
// serves it as JSON and YAML. A failed build is retried on the next request.
type docsHandler struct {
	cfg     config.DocsConfig
	builder *openapi.Builder
	routes  *server.RouteRegistry
	log     logger.Logger

	mu       sync.Mutex
	doc      *openapi.Document
	rendered map[openapi.Format][]byte
}

func newDocsHandler(cfg config.DocsConfig, builder *openapi.Builder, routes *server.RouteRegistry, log logger.Logger) *docsHandler {
	return &docsHandler{
		cfg:      cfg,
		builder:  builder,
		routes:   routes,
		log:      log,
		rendered: make(map[openapi.Format][]byte),
	}
}

func (h *docsHandler) register(e *echo.Echo) {
	e.GET(h.cfg.Path, h.serve(openapi.FormatJSON, echo.MIMEApplicationJSON))
	e.GET(h.cfg.Path+yamlSuffix, h.serve(openapi.FormatYAML, mimeYAML))

	if h.cfg.IndexRedirect {
		redirect := func(c echo.Context) error {
			return c.Redirect(http.StatusTemporaryRedirect, swaggerIndex)
		}
		e.GET("/", redirect)
		e.GET("/index", redirect)
	}
}

func (h *docsHandler) document(ctx context.Context) (*openapi.Document, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.documentLocked(ctx)
}

func (h *docsHandler) documentLocked(ctx context.Context) (*openapi.Document, error) {
	if h.doc != nil {
		return h.doc, nil
	}

	doc, err := h.builder.Build(ctx, h.routes.Routes())
	if err != nil {
		return nil, err
	}
	h.doc = doc
	h.log.Info().Int("paths", len(doc.Paths)).Str("path", h.cfg.Path).Msg("API document ready")
	return doc, nil
}

// render builds and renders under one lock; a reset never leaves a rendering of
// the previous document cached.
func (h *docsHandler) render(ctx context.Context, format openapi.Format) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if out, ok := h.rendered[format]; ok {
		return out, nil
	}
	doc, err := h.documentLocked(ctx)
	if err != nil {
		return nil, err
	}
	out, err := doc.Render(format)
	if err != nil {
		return nil, err
	}
	h.rendered[format] = out
	return out, nil
}

// reset drops the cached document, e.g. after more routes were registered.
func (h *docsHandler) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.doc = nil
	clear(h.rendered)
}

func (h *docsHandler) serve(format openapi.Format, contentType string) echo.HandlerFunc {
	return func(c echo.Context) error {
		out, err := h.render(c.Request().Context(), format)
		if err != nil {
			h.log.Error().Err(err).Str("format", string(format)).Msg("Failed to render API document")
			c.Response().Header().Set(echo.HeaderRetryAfter, docsRetryAfter)
			return server.NewServiceUnavailableError("API document is not available")
		}
		return c.Blob(http.StatusOK, contentType, out)
	}
}
