package openapi

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"runtime"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/gaborage/go-bricks-apidoc/config"
	"github.com/gaborage/go-bricks-apidoc/expander"
	"github.com/gaborage/go-bricks-apidoc/logger"
	"github.com/gaborage/go-bricks-apidoc/server"
)

const tracerName = "github.com/gaborage/go-bricks-apidoc/openapi"

// boundElsewhere are the tag keys of request fields documented as path and header
// parameters. The expander never sees them.
var boundElsewhere = []string{"param", "header"}

// Builder turns registered routes into an OpenAPI document.
type Builder struct {
	docs     config.DocsConfig
	app      config.AppConfig
	log      logger.Logger
	expander *expander.Expander
	tracer   oteltrace.Tracer
	selector OperationSelector
	servers  []Server
	ignored  []reflect.Type
	workers  int
}

// Option configures a Builder.
type Option func(*Builder)

// WithExpander replaces the expander built from the docs configuration.
func WithExpander(e *expander.Expander) Option {
	return func(b *Builder) {
		if e != nil {
			b.expander = e
		}
	}
}

// WithOperationSelector decides which operations carry the OAuth2 requirement.
func WithOperationSelector(s OperationSelector) Option {
	return func(b *Builder) {
		if s != nil {
			b.selector = s
		}
	}
}

// WithServers sets the document servers.
func WithServers(servers ...Server) Option {
	return func(b *Builder) {
		b.servers = append(b.servers, servers...)
	}
}

// WithIgnoredTypes drops request attributes of these types.
func WithIgnoredTypes(types ...reflect.Type) Option {
	return func(b *Builder) {
		b.ignored = append(b.ignored, types...)
	}
}

// WithTracerProvider sets the provider of the build spans. The global provider is the default.
func WithTracerProvider(tp oteltrace.TracerProvider) Option {
	return func(b *Builder) {
		if tp != nil {
			b.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithConcurrency limits how many operations are expanded at once.
func WithConcurrency(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// NewBuilder creates a Builder for the docs section of cfg.
func NewBuilder(cfg *config.Config, log logger.Logger, opts ...Option) *Builder {
	if log == nil {
		log = logger.Nop()
	}
	b := &Builder{
		docs:     cfg.Docs,
		app:      cfg.App,
		log:      log,
		tracer:   otel.Tracer(tracerName),
		selector: SecuredUnlessPublic,
		workers:  runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.expander == nil {
		b.expander = expander.New(
			expander.WithLogger(log),
			expander.WithMaxDepth(cfg.Docs.Expansion.MaxDepth),
		)
	}
	return b
}

// Build documents routes. Operations are expanded concurrently and written in
// route order; an operation whose request type cannot be expanded is documented
// without request attributes. Build only fails when ctx is done.
func (b *Builder) Build(ctx context.Context, routes []server.RouteDescriptor) (*Document, error) {
	ctx, span := b.tracer.Start(ctx, "openapi.Build")
	defer span.End()

	selected := b.selectRoutes(routes)
	ops := make([]*Operation, len(selected))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i := range selected {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ops[i] = b.operation(gctx, &selected[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("openapi: build interrupted: %w", err)
	}

	doc := b.document()
	for i := range selected {
		b.addOperation(doc, &selected[i], ops[i])
	}
	doc.Tags = collectTags(selected)

	span.SetAttributes(
		attribute.Int("openapi.routes", len(routes)),
		attribute.Int("openapi.operations", len(selected)),
	)
	b.log.Debug().Int("operations", len(selected)).Int("paths", len(doc.Paths)).Msg("Built API document")
	return doc, nil
}

// selectRoutes drops hidden routes and, with a base package, routes declared elsewhere.
func (b *Builder) selectRoutes(routes []server.RouteDescriptor) []server.RouteDescriptor {
	base := strings.TrimSuffix(b.docs.BasePackage, "/")
	out := make([]server.RouteDescriptor, 0, len(routes))
	for i := range routes {
		r := routes[i]
		if r.Hidden {
			continue
		}
		if base != "" && r.Package != base && !strings.HasPrefix(r.Package, base+"/") {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (b *Builder) addOperation(doc *Document, route *server.RouteDescriptor, op *Operation) {
	path := openAPIPath(route.Path)
	item := doc.Paths[path]
	if item == nil {
		item = &PathItem{}
	}

	slot := item.operation(strings.ToUpper(route.Method))
	switch {
	case slot == nil:
		b.log.Warn().Str("method", route.Method).Str("path", route.Path).Msg("Skipping route with unsupported method")
		return
	case *slot != nil:
		b.log.Warn().Str("method", route.Method).Str("path", route.Path).Msg("Skipping duplicate route")
		return
	}
	*slot = op
	doc.Paths[path] = item
}

func (b *Builder) operation(ctx context.Context, route *server.RouteDescriptor) *Operation {
	_, span := b.tracer.Start(ctx, "openapi.Operation", oteltrace.WithAttributes(
		attribute.String("http.request.method", route.Method),
		attribute.String("http.route", route.Path),
	))
	defer span.End()

	op := &Operation{
		Tags:        slices.Clone(route.Tags),
		Summary:     route.Summary,
		Description: route.Description,
		OperationID: route.OperationID,
		Deprecated:  route.Deprecated,
		Responses:   defaultResponses(route),
	}

	op.Parameters = append(op.Parameters, pathParameters(route)...)
	op.Parameters = append(op.Parameters, headerParameters(route.RequestType)...)
	op.Parameters = append(op.Parameters, pagingParameters(route.RequestType)...)

	if route.RequestType != nil {
		params, err := b.expander.Expand(route.RequestType, expander.Operation{
			Method:   route.Method,
			Consumes: route.Consumes,
		}, b.ignorables())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			b.log.Warn().
				Err(err).
				Str("method", route.Method).
				Str("path", route.Path).
				Msg("Failed to expand request type, documenting without request attributes")
		}

		var form []expander.ParameterDescriptor
		for i := range params {
			if params[i].In == expander.LocationQuery {
				op.Parameters = append(op.Parameters, queryParameter(&params[i]))
			} else {
				form = append(form, params[i])
			}
		}
		if len(form) > 0 {
			op.RequestBody = formBody(form)
		}
		span.SetAttributes(attribute.Int("openapi.parameters", len(params)))
	}

	if name, _ := refererParameter(b.docs); name != "" {
		op.Parameters = append(op.Parameters, &Parameter{Ref: "#/components/parameters/" + name})
	}
	if b.docs.OAuth.Enabled && b.selector(*route) {
		op.Security = []SecurityRequirement{securityRequirement(b.docs.OAuth)}
	}
	return op
}

func (b *Builder) ignorables() expander.Ignorables {
	tags := append(slices.Clone(boundElsewhere), b.docs.Expansion.IgnoredTags...)
	return expander.Ignorables{Types: b.ignored, Tags: tags}
}

// document creates the document skeleton: info, servers and components.
func (b *Builder) document() *Document {
	doc := &Document{
		OpenAPI: Version,
		Info:    b.info(),
		Servers: slices.Clone(b.servers),
		Paths:   make(map[string]*PathItem),
	}

	if ed := b.docs.ExternalDocs; ed.URL != "" {
		doc.ExternalDocs = &ExternalDocs{Description: ed.Description, URL: ed.URL}
	}

	components := &Components{}
	if name, param := refererParameter(b.docs); param != nil {
		components.Parameters = map[string]*Parameter{name: param}
	}
	if scheme := securityScheme(b.docs.OAuth); scheme != nil {
		components.SecuritySchemes = map[string]*SecurityScheme{OAuthSchemeName: scheme}
	}
	if components.Parameters != nil || components.SecuritySchemes != nil {
		doc.Components = components
	}
	return doc
}

func (b *Builder) info() Info {
	cfg := b.docs.Info
	info := Info{
		Title:          cfg.Title,
		Summary:        cfg.Summary,
		Description:    cfg.Description,
		TermsOfService: cfg.TermsOfService,
		Version:        cfg.Version,
	}
	if info.Title == "" {
		info.Title = b.app.Name
	}
	if info.Version == "" {
		info.Version = b.app.Version
	}
	if c := cfg.Contact; c != (config.ContactConfig{}) {
		info.Contact = &Contact{Name: c.Name, URL: c.URL, Email: c.Email}
	}
	if l := cfg.License; l.Name != "" {
		info.License = &License{Name: l.Name, URL: l.URL, Identifier: l.Identifier}
	}
	for k, v := range cfg.Extensions {
		if !strings.HasPrefix(k, "x-") {
			b.log.Warn().Str("key", k).Msg("Ignoring info extension without x- prefix")
			continue
		}
		if info.Extensions == nil {
			info.Extensions = make(map[string]any)
		}
		info.Extensions[k] = v
	}
	return info
}

func defaultResponses(route *server.RouteDescriptor) map[string]*Response {
	ok := &Response{Description: http.StatusText(http.StatusOK)}
	if len(route.Produces) > 0 {
		ok.Content = make(map[string]MediaType, len(route.Produces))
		for _, mt := range route.Produces {
			ok.Content[mt] = MediaType{Schema: &Schema{}}
		}
	}
	return map[string]*Response{"200": ok}
}

func collectTags(routes []server.RouteDescriptor) []Tag {
	var tags []Tag
	seen := make(map[string]bool)
	for i := range routes {
		for _, name := range routes[i].Tags {
			if !seen[name] {
				seen[name] = true
				tags = append(tags, Tag{Name: name})
			}
		}
	}
	return tags
}

// openAPIPath converts Echo path parameters (:id, *) into templates ({id}, {wildcard}).
func openAPIPath(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		switch {
		case strings.HasPrefix(s, ":"):
			segments[i] = "{" + s[1:] + "}"
		case s == "*":
			segments[i] = "{" + wildcardParam + "}"
		}
	}
	return strings.Join(segments, "/")
}
