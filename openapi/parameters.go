package openapi

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/gaborage/go-bricks-apidoc/expander"
	"github.com/gaborage/go-bricks-apidoc/internal/reflection"
	"github.com/gaborage/go-bricks-apidoc/paging"
	"github.com/gaborage/go-bricks-apidoc/server"
	"github.com/gaborage/go-bricks-apidoc/validation"
)

const (
	wildcardParam   = "wildcard"
	sortDescription = "Sorting criteria in the format: property,(asc|desc). " +
		"Default sort order is ascending. Multiple sort criteria are supported."
)

var (
	pageableType = reflect.TypeFor[paging.Pageable]()
	sorterType   = reflect.TypeFor[paging.Sorter]()
	scalars      = expander.ReflectSchema{}
)

type requestField struct {
	info validation.TagInfo
	typ  reflect.Type
}

// requestFields returns the exported, non-embedded fields of a request struct.
func requestFields(t reflect.Type) []requestField {
	t = reflection.Indirect(t)
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	var out []requestField
	for _, sf := range reflect.VisibleFields(t) {
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		out = append(out, requestField{info: validation.ParseFieldTags(sf.Name, sf.Tag), typ: sf.Type})
	}
	return out
}

// pathParameters documents every parameter of the route path. Metadata comes
// from the request field bound to it; unbound parameters are plain strings.
func pathParameters(route *server.RouteDescriptor) []*Parameter {
	bound := make(map[string]requestField)
	for _, f := range requestFields(route.RequestType) {
		if f.info.ParamType == validation.ParamPath {
			bound[f.info.ParamName] = f
		}
	}

	var params []*Parameter
	for seg := range strings.SplitSeq(route.Path, "/") {
		var name, key string
		switch {
		case strings.HasPrefix(seg, ":"):
			name, key = seg[1:], seg[1:]
		case seg == "*":
			name, key = wildcardParam, "*"
		default:
			continue
		}

		p := &Parameter{Name: name, In: "path", Required: true, Schema: &Schema{Type: "string"}}
		if f, ok := bound[key]; ok {
			p.Description = f.info.Description
			p.Schema = fieldSchema(f)
			p.Example = typedValue(p.Schema.Type, f.info.Example)
		}
		params = append(params, p)
	}
	return params
}

// headerParameters documents fields bound from request headers.
func headerParameters(t reflect.Type) []*Parameter {
	var params []*Parameter
	for _, f := range requestFields(t) {
		if f.info.ParamType != validation.ParamHeader || f.info.Hidden {
			continue
		}
		schema := fieldSchema(f)
		params = append(params, &Parameter{
			Name:        f.info.ParamName,
			In:          "header",
			Description: f.info.Description,
			Required:    f.info.Required,
			Schema:      schema,
			Example:     typedValue(schema.Type, f.info.Example),
		})
	}
	return params
}

// pagingParameters documents page, size and sort for request types that are, or
// carry a field that is, paging.Pageable or paging.Sorter.
func pagingParameters(t reflect.Type) []*Parameter {
	pageable, sorter := pagingTraits(t)
	var params []*Parameter
	if pageable {
		maxSize := float64(paging.MaxLimit)
		params = append(params,
			&Parameter{
				Name:        "page",
				In:          "query",
				Description: "Zero-based page index (0..N)",
				Schema:      &Schema{Type: "integer", Format: "int32", Default: 0},
			},
			&Parameter{
				Name:        "size",
				In:          "query",
				Description: "The size of the page to be returned",
				Schema:      &Schema{Type: "integer", Format: "int32", Default: paging.DefaultLimit, Maximum: &maxSize},
			},
		)
	}
	if sorter {
		params = append(params, &Parameter{
			Name:        "sort",
			In:          "query",
			Description: sortDescription,
			Schema:      &Schema{Type: "array", Items: &Schema{Type: "string"}},
		})
	}
	return params
}

func pagingTraits(t reflect.Type) (pageable, sorter bool) {
	check := func(t reflect.Type) {
		t = reflection.Indirect(t)
		if t == nil {
			return
		}
		pt := reflect.PointerTo(t)
		pageable = pageable || pt.Implements(pageableType)
		sorter = sorter || pt.Implements(sorterType)
	}

	check(t)
	for _, f := range requestFields(t) {
		check(f.typ)
	}
	return pageable, sorter
}

func queryParameter(p *expander.ParameterDescriptor) *Parameter {
	schema := parameterSchema(p)
	return &Parameter{
		Name:        p.Name,
		In:          string(expander.LocationQuery),
		Description: p.Description,
		Required:    p.Required,
		Schema:      schema,
		Example:     typedValue(schema.Type, p.Example),
	}
}

// formBody documents form located attributes as the properties of one object schema.
func formBody(params []expander.ParameterDescriptor) *RequestBody {
	mediaType := echo.MIMEApplicationForm
	if params[0].In == expander.LocationFormData {
		mediaType = echo.MIMEMultipartForm
	}

	schema := &Schema{Type: "object", Properties: make(map[string]*Schema, len(params))}
	for i := range params {
		p := &params[i]
		prop := parameterSchema(p)
		prop.Description = p.Description
		prop.Example = typedValue(prop.Type, p.Example)
		schema.Properties[p.Name] = prop
		if p.Required {
			schema.Required = append(schema.Required, p.Name)
		}
	}

	return &RequestBody{
		Required: len(schema.Required) > 0,
		Content:  map[string]MediaType{mediaType: {Schema: schema}},
	}
}

func parameterSchema(p *expander.ParameterDescriptor) *Schema {
	s := &Schema{Type: p.DataType, Format: p.Format, Enum: p.Enum}
	if p.Items != nil {
		s.Items = &Schema{Type: p.Items.DataType, Format: p.Items.Format, Enum: p.Items.Enum}
	}
	s.Default = typedValue(s.Type, p.Default)
	applyConstraints(s, p.Constraints)
	return s
}

func fieldSchema(f requestField) *Schema {
	s := &Schema{Type: "string"}
	if st, ok := scalars.Scalar(f.typ); ok && st.DataType != "" {
		s.Type, s.Format = st.DataType, st.Format
	}
	if s.Type == "string" && s.Format == "" {
		s.Format = f.info.Format()
	}
	if enum, ok := f.info.Enum(); ok {
		s.Enum = enum
	}
	s.Default = typedValue(s.Type, f.info.Default)
	applyConstraints(s, f.info.Constraints)
	return s
}

// applyConstraints maps validate tag bounds onto the schema keyword that fits its type.
func applyConstraints(s *Schema, constraints map[string]string) {
	for _, pair := range [][2]string{{"min", "max"}, {"gte", "lte"}} {
		if v, ok := constraints[pair[0]]; ok {
			setBound(s, v, true)
		}
		if v, ok := constraints[pair[1]]; ok {
			setBound(s, v, false)
		}
	}
	if v, ok := constraints["len"]; ok {
		setBound(s, v, true)
		setBound(s, v, false)
	}
	if v, ok := constraints["regexp"]; ok {
		s.Pattern = v
	}
}

func setBound(s *Schema, raw string, lower bool) {
	switch s.Type {
	case "integer", "number":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return
		}
		if lower {
			s.Minimum = &f
		} else {
			s.Maximum = &f
		}
	case "string", "array":
		n, err := strconv.Atoi(raw)
		if err != nil {
			return
		}
		switch {
		case s.Type == "string" && lower:
			s.MinLength = &n
		case s.Type == "string":
			s.MaxLength = &n
		case lower:
			s.MinItems = &n
		default:
			s.MaxItems = &n
		}
	}
}

// typedValue converts a tag value to the JSON type of dataType. Unparseable
// values are kept as strings and empty values yield nil.
func typedValue(dataType, raw string) any {
	if raw == "" {
		return nil
	}
	switch dataType {
	case "integer":
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return v
		}
	case "number":
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	case "boolean":
		if v, err := strconv.ParseBool(raw); err == nil {
			return v
		}
	}
	return raw
}
