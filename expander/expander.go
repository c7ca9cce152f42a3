package expander

import (
	"reflect"

	"github.com/gaborage/go-bricks-apidoc/internal/reflection"
	"github.com/gaborage/go-bricks-apidoc/logger"
	"github.com/gaborage/go-bricks-apidoc/validation"
)

const firstElement = "[0]"

// Expander flattens request types into parameter descriptors. It holds no per-call
// state and may be shared between goroutines.
type Expander struct {
	schema     TypeSchema
	log        logger.Logger
	maxDepth   int
	alternates map[reflect.Type]reflect.Type
}

// New creates an Expander backed by ReflectSchema unless WithSchema says otherwise.
func New(opts ...Option) *Expander {
	e := &Expander{
		schema:     ReflectSchema{},
		log:        logger.Nop(),
		maxDepth:   DefaultMaxDepth,
		alternates: make(map[reflect.Type]reflect.Type),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// expansion carries what stays fixed for one Expand call.
type expansion struct {
	*Expander
	location   Location
	ignorables Ignorables
}

// expansionContext is one node of the walk.
type expansionContext struct {
	parentName string
	target     reflect.Type
	seen       *typePath
}

func (c expansionContext) child(name string, t reflect.Type) expansionContext {
	return expansionContext{
		parentName: qualify(c.parentName, name),
		target:     t,
		seen:       c.seen.extend(t),
	}
}

// Expand flattens root into parameters for op. The list is ordered by declaration:
// nested structs first, then collections, then the leaves of each level.
// Names are unique; when two attributes resolve to the same name the first one wins.
//
// The only errors are ErrNilType and a *DepthError wrapping ErrMaxDepthExceeded.
func (e *Expander) Expand(root reflect.Type, op Operation, ignorables Ignorables) ([]ParameterDescriptor, error) {
	root = indirect(root)
	if root == nil {
		return nil, ErrNilType
	}

	x := &expansion{Expander: e, location: ResolveLocation(op), ignorables: ignorables}
	params, err := x.expand(expansionContext{target: root, seen: newTypePath(root)})
	if err != nil {
		return nil, err
	}
	return x.dedupe(params), nil
}

func (x *expansion) expand(ctx expansionContext) ([]ParameterDescriptor, error) {
	if ctx.seen.depth > x.maxDepth {
		return nil, &DepthError{Limit: x.maxDepth, Path: ctx.seen.String()}
	}

	x.log.Debug().Str("type", reflection.TypeLabel(ctx.target)).Str("parent", ctx.parentName).Msg("Expanding parameter type")

	attrs := x.discover(ctx.target)
	classes := make([]Class, len(attrs))
	for i, a := range attrs {
		classes[i] = x.classify(a.Type)
	}

	var params []ParameterDescriptor

	for i, a := range attrs {
		if classes[i] != ClassComplex {
			continue
		}
		t := indirect(a.Type)
		if ctx.seen.contains(t) {
			x.log.Debug().Str("field", a.Name).Str("path", ctx.seen.String()).Msg("Skipping recursive field")
			continue
		}
		nested, err := x.expand(ctx.child(a.Name, t))
		if err != nil {
			return nil, err
		}
		params = append(params, nested...)
	}

	for i, a := range attrs {
		if classes[i] != ClassCollection {
			continue
		}
		nested, err := x.expandCollection(ctx, a)
		if err != nil {
			return nil, err
		}
		params = append(params, nested...)
	}

	for i, a := range attrs {
		if classes[i].isLeaf() {
			params = append(params, x.leaf(ctx, a, a.Type, classes[i], false))
		}
	}

	out := params[:0]
	for _, p := range params {
		if p.Hidden || p.Void {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (x *expansion) expandCollection(ctx expansionContext, a Field) ([]ParameterDescriptor, error) {
	elem, ok := x.schema.ElementType(a.Type)
	if !ok || elem == nil {
		x.log.Debug().Str("field", a.Name).Msg("Dropping collection with unknown element type")
		return nil, nil
	}
	elem = indirect(x.alternateFor(elem))
	if elem == ctx.target {
		x.log.Debug().Str("field", a.Name).Msg("Skipping collection of its own container type")
		return nil, nil
	}

	switch class := x.classify(elem); {
	case class.isLeaf():
		return []ParameterDescriptor{x.leaf(ctx, a, elem, class, true)}, nil
	case class == ClassComplex:
		if ctx.seen.contains(elem) {
			x.log.Debug().Str("field", a.Name).Str("path", ctx.seen.String()).Msg("Skipping recursive collection element")
			return nil, nil
		}
		return x.expand(ctx.child(a.Name+firstElement, elem))
	default:
		x.log.Debug().Str("field", a.Name).Str("element", class.String()).Msg("Skipping nested container")
		return nil, nil
	}
}

// leaf builds the single descriptor of a scalar or enum attribute. For collections t
// is the element type and the descriptor becomes an array of it.
func (x *expansion) leaf(ctx expansionContext, a Field, t reflect.Type, class Class, collection bool) ParameterDescriptor {
	info := validation.ParseFieldTags(a.GoName, a.Tag)
	dataType, format, enum := x.wireType(t, class)
	if len(enum) == 0 {
		enum, _ = info.Enum()
	}
	if format == "" && dataType == "string" {
		format = info.Format()
	}

	p := ParameterDescriptor{
		Name:        qualify(ctx.parentName, a.Name),
		In:          x.location,
		Default:     info.Default,
		Example:     info.Example,
		Description: info.Description,
		Required:    info.Required,
		Constraints: info.Constraints,
		Hidden:      a.Hidden || info.Hidden,
		Void:        dataType == "",
	}
	if collection {
		p.DataType = "array"
		p.Items = &Items{DataType: dataType, Format: format, Enum: enum}
	} else {
		p.DataType, p.Format, p.Enum = dataType, format, enum
	}

	x.log.Debug().Str("name", p.Name).Str("dataType", p.DataType).Msg("Built parameter")
	return p
}

func (x *expansion) dedupe(params []ParameterDescriptor) []ParameterDescriptor {
	seen := make(map[string]struct{}, len(params))
	out := params[:0]
	for _, p := range params {
		if _, dup := seen[p.Name]; dup {
			x.log.Debug().Str("name", p.Name).Msg("Dropping duplicate parameter")
			continue
		}
		seen[p.Name] = struct{}{}
		out = append(out, p)
	}
	return out
}

func qualify(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}
