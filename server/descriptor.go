package server

import (
	"reflect"
	"slices"
	"sync"
)

// RouteDescriptor captures what the documentation builder needs to know about
// a registered route.
type RouteDescriptor struct {
	Method      string       // HTTP method (GET, POST, etc.)
	Path        string       // Full Echo path pattern (/users/:id)
	OperationID string       // Stable operation identifier, defaults to the handler name
	HandlerName string       // Function name (e.g., "getUser")
	Module      string       // Module that registered this route
	Package     string       // Go package path of the handler
	RequestType reflect.Type // Documented request type T from Route[T]
	Consumes    []string     // Accepted request media types
	Produces    []string     // Response media types
	Tags        []string     // Optional grouping tags
	Summary     string
	Description string
	Deprecated  bool
	Hidden      bool // Excluded from generated documents
	Public      bool // No security requirement
}

// RouteRegistry keeps registered routes in registration order.
type RouteRegistry struct {
	mu     sync.RWMutex
	routes []RouteDescriptor
}

// NewRouteRegistry creates an empty registry.
func NewRouteRegistry() *RouteRegistry {
	return &RouteRegistry{}
}

// Register adds a route descriptor to the registry.
func (r *RouteRegistry) Register(descriptor *RouteDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, cloneDescriptor(descriptor))
}

// Routes returns a copy of all registered routes.
func (r *RouteRegistry) Routes() []RouteDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]RouteDescriptor, len(r.routes))
	for i := range r.routes {
		result[i] = cloneDescriptor(&r.routes[i])
	}
	return result
}

// ByModule returns the routes registered by one module.
func (r *RouteRegistry) ByModule(module string) []RouteDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []RouteDescriptor
	for i := range r.routes {
		if r.routes[i].Module == module {
			result = append(result, cloneDescriptor(&r.routes[i]))
		}
	}
	return result
}

// Count returns the number of registered routes.
func (r *RouteRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.routes)
}

// AssignModule attributes the routes registered from index from onwards to module.
// Routes that already name a module keep it; routes without tags receive tags.
func (r *RouteRegistry) AssignModule(from int, module string, tags ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := max(from, 0); i < len(r.routes); i++ {
		d := &r.routes[i]
		if d.Module == "" {
			d.Module = module
		}
		if len(d.Tags) == 0 {
			d.Tags = slices.Clone(tags)
		}
	}
}

// Clear removes all registered routes.
func (r *RouteRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = nil
}

// RouteOption configures a route descriptor during registration.
type RouteOption func(*RouteDescriptor)

// WithModule sets the module name for a route.
func WithModule(name string) RouteOption {
	return func(d *RouteDescriptor) {
		d.Module = name
	}
}

// WithTags adds grouping tags.
func WithTags(tags ...string) RouteOption {
	return func(d *RouteDescriptor) {
		d.Tags = append(d.Tags, tags...)
	}
}

// WithSummary sets the one-line operation summary.
func WithSummary(summary string) RouteOption {
	return func(d *RouteDescriptor) {
		d.Summary = summary
	}
}

// WithDescription sets the long operation description.
func WithDescription(description string) RouteOption {
	return func(d *RouteDescriptor) {
		d.Description = description
	}
}

// WithOperationID overrides the operation identifier derived from the handler name.
func WithOperationID(id string) RouteOption {
	return func(d *RouteDescriptor) {
		d.OperationID = id
	}
}

// WithConsumes declares the request media types. For POST routes this decides
// whether request attributes are documented as query or form parameters.
func WithConsumes(mediaTypes ...string) RouteOption {
	return func(d *RouteDescriptor) {
		d.Consumes = append(d.Consumes, mediaTypes...)
	}
}

// WithProduces declares the response media types.
func WithProduces(mediaTypes ...string) RouteOption {
	return func(d *RouteDescriptor) {
		d.Produces = append(d.Produces, mediaTypes...)
	}
}

// WithDeprecated marks the operation deprecated.
func WithDeprecated() RouteOption {
	return func(d *RouteDescriptor) {
		d.Deprecated = true
	}
}

// WithHidden keeps the route out of generated documents.
func WithHidden() RouteOption {
	return func(d *RouteDescriptor) {
		d.Hidden = true
	}
}

// WithPublic documents the route without a security requirement.
func WithPublic() RouteOption {
	return func(d *RouteDescriptor) {
		d.Public = true
	}
}

func cloneDescriptor(d *RouteDescriptor) RouteDescriptor {
	if d == nil {
		return RouteDescriptor{}
	}

	out := *d
	out.Consumes = slices.Clone(d.Consumes)
	out.Produces = slices.Clone(d.Produces)
	out.Tags = slices.Clone(d.Tags)
	return out
}
