package expander

import (
	"encoding"
	"encoding/json"
	"net"
	"net/url"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// TypeSchema is the introspection capability the expander depends on.
// Implementations must be safe for concurrent reads.
type TypeSchema interface {
	// Fields lists the declared attributes of t in declaration order.
	Fields(t reflect.Type) ([]DeclaredField, error)
	// Accessors lists the getter methods of t in a stable order.
	Accessors(t reflect.Type) ([]Accessor, error)
	// Scalar reports whether t is a built-in scalar and its wire type.
	Scalar(t reflect.Type) (ScalarType, bool)
	// EnumValues reports whether t is an enumeration and its values.
	EnumValues(t reflect.Type) ([]string, bool)
	IsCollection(t reflect.Type) bool
	IsMap(t reflect.Type) bool
	// ElementType returns the element of a collection. It reports false when the
	// element cannot be determined.
	ElementType(t reflect.Type) (reflect.Type, bool)
}

// ScalarType is the wire type of a scalar. An empty DataType marks a type without a
// wire representation.
type ScalarType struct {
	DataType string
	Format   string
}

// DeclaredField is a field as declared on the Go type, including promoted fields.
type DeclaredField struct {
	Name   string
	GoName string
	Type   reflect.Type
	Tag    reflect.StructTag
}

// Accessor is a getter method. Field names the backing field when one exists; Tag is that field's tag.
type Accessor struct {
	Name   string
	Method string
	Field  string
	Type   reflect.Type
	Tag    reflect.StructTag
}

var (
	errorType           = reflect.TypeFor[error]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
	enumType            = reflect.TypeFor[Enum]()

	knownScalars = map[reflect.Type]ScalarType{
		reflect.TypeFor[time.Time]():     {DataType: "string", Format: "date-time"},
		reflect.TypeFor[time.Duration](): {DataType: "string", Format: "duration"},
		reflect.TypeFor[uuid.UUID]():     {DataType: "string", Format: "uuid"},
		reflect.TypeFor[json.Number]():   {DataType: "number"},
		reflect.TypeFor[url.URL]():       {DataType: "string", Format: "uri"},
		reflect.TypeFor[net.IP]():        {DataType: "string", Format: "ip"},
	}
)

// ReflectSchema implements TypeSchema with package reflect.
//
// Attribute names come from the query, form or json tag, in that order, falling back
// to the lower camel case Go name. A name of "-" drops the attribute. An embedded
// struct is inlined; when its tag names it, it is a nested attribute instead, and a
// hidden embed contributes nothing. Getters are methods named GetX, IsX returning
// bool, or X when an unexported field x backs them.
type ReflectSchema struct{}

var _ TypeSchema = ReflectSchema{}

// Fields implements TypeSchema.
func (s ReflectSchema) Fields(t reflect.Type) ([]DeclaredField, error) {
	t = indirect(t)
	if t == nil || t.Kind() != reflect.Struct {
		return nil, nil
	}

	var out []DeclaredField
	for _, sf := range reflect.VisibleFields(t) {
		if !sf.IsExported() || promotedFromOpaque(t, sf.Index) || promotedFromExcluded(t, sf.Index) {
			continue
		}
		if sf.Anonymous && implementsOpaque(indirect(sf.Type)) {
			continue
		}
		if sf.Anonymous && !taggedName(sf.Tag) {
			// Embedded structs contribute their promoted fields instead.
			if inner := indirect(sf.Type); inner.Kind() == reflect.Struct {
				if _, scalar := s.Scalar(inner); !scalar {
					continue
				}
			}
		}
		name, ok := attributeName(sf.Name, sf.Tag)
		if !ok {
			continue
		}
		out = append(out, DeclaredField{Name: name, GoName: sf.Name, Type: sf.Type, Tag: sf.Tag})
	}
	return out, nil
}

// Accessors implements TypeSchema. Types that are not structs have no getters.
func (ReflectSchema) Accessors(t reflect.Type) ([]Accessor, error) {
	t = indirect(t)
	if t == nil || t.Kind() != reflect.Struct {
		return nil, nil
	}

	backing := make(map[string]reflect.StructField)
	for _, sf := range reflect.VisibleFields(t) {
		if !sf.Anonymous && !promotedFromExcluded(t, sf.Index) {
			backing[sf.Name] = sf
		}
	}
	skip := opaqueMethodNames(t)
	for name := range excludedMethodNames(t) {
		skip[name] = true
	}

	pt := reflect.PointerTo(t)
	var out []Accessor
	for i := range pt.NumMethod() {
		m := pt.Method(i)
		if m.Name == "IsEmpty" || skip[m.Name] {
			continue
		}
		if m.Type.NumIn() != 1 || m.Type.NumOut() != 1 || m.Type.Out(0) == errorType {
			continue
		}
		result := m.Type.Out(0)

		stem, prefixed := getterStem(m.Name, result)
		field, found := lookupBacking(backing, stem)
		if !prefixed && (!found || field.IsExported()) {
			continue
		}

		acc := Accessor{Method: m.Name, Type: result}
		if found {
			name, ok := attributeName(field.Name, field.Tag)
			if !ok {
				continue
			}
			acc.Name, acc.Field, acc.Tag = name, field.Name, field.Tag
		} else {
			acc.Name = lowerCamel(stem)
		}
		out = append(out, acc)
	}
	return out, nil
}

// Scalar implements TypeSchema.
func (ReflectSchema) Scalar(t reflect.Type) (ScalarType, bool) {
	t = indirect(t)
	if t == nil {
		return ScalarType{}, false
	}
	if st, ok := knownScalars[t]; ok {
		return st, true
	}
	if st, ok := basicScalar(t.Kind()); ok {
		return st, true
	}
	if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
		return ScalarType{DataType: "string", Format: "byte"}, true
	}
	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return ScalarType{DataType: "string"}, true
	}
	return ScalarType{}, false
}

// EnumValues implements TypeSchema. A panicking EnumValues method still marks the type as an enum.
func (ReflectSchema) EnumValues(t reflect.Type) (values []string, ok bool) {
	t = indirect(t)
	if t == nil || !reflect.PointerTo(t).Implements(enumType) {
		return nil, false
	}
	defer func() {
		if r := recover(); r != nil {
			values, ok = nil, true
		}
	}()
	var e Enum
	if t.Implements(enumType) {
		e = reflect.Zero(t).Interface().(Enum)
	} else {
		e = reflect.New(t).Interface().(Enum)
	}
	return e.EnumValues(), true
}

// IsCollection implements TypeSchema.
func (ReflectSchema) IsCollection(t reflect.Type) bool {
	t = indirect(t)
	return t != nil && (t.Kind() == reflect.Slice || t.Kind() == reflect.Array)
}

// IsMap implements TypeSchema.
func (ReflectSchema) IsMap(t reflect.Type) bool {
	t = indirect(t)
	return t != nil && t.Kind() == reflect.Map
}

// ElementType implements TypeSchema. Interface elements cannot be determined.
func (s ReflectSchema) ElementType(t reflect.Type) (reflect.Type, bool) {
	if !s.IsCollection(t) {
		return nil, false
	}
	elem := indirect(indirect(t).Elem())
	if elem.Kind() == reflect.Interface {
		return nil, false
	}
	return elem, true
}

func basicScalar(k reflect.Kind) (ScalarType, bool) {
	switch k {
	case reflect.Bool:
		return ScalarType{DataType: "boolean"}, true
	case reflect.String:
		return ScalarType{DataType: "string"}, true
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Uint8, reflect.Uint16:
		return ScalarType{DataType: "integer", Format: "int32"}, true
	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint32, reflect.Uint64:
		return ScalarType{DataType: "integer", Format: "int64"}, true
	case reflect.Float32:
		return ScalarType{DataType: "number", Format: "float"}, true
	case reflect.Float64:
		return ScalarType{DataType: "number", Format: "double"}, true
	case reflect.Complex64, reflect.Complex128, reflect.Uintptr, reflect.UnsafePointer:
		return ScalarType{}, true
	default:
		return ScalarType{}, false
	}
}

// attributeName resolves the parameter name of a field.
func attributeName(goName string, tag reflect.StructTag) (string, bool) {
	for _, key := range []string{"query", "form", "json"} {
		v, ok := tag.Lookup(key)
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(v, ",")
		if name == "-" {
			return "", false
		}
		if name != "" {
			return name, true
		}
	}
	return lowerCamel(goName), true
}

// getterStem strips Get, or Is for bool results, and reports whether a prefix was removed.
func getterStem(method string, result reflect.Type) (string, bool) {
	if stem, ok := strings.CutPrefix(method, "Get"); ok && startsUpper(stem) {
		return stem, true
	}
	if stem, ok := strings.CutPrefix(method, "Is"); ok && startsUpper(stem) && result.Kind() == reflect.Bool {
		return stem, true
	}
	return method, false
}

func lookupBacking(backing map[string]reflect.StructField, stem string) (reflect.StructField, bool) {
	for _, name := range []string{stem, lowerFirst(stem), lowerCamel(stem)} {
		if sf, ok := backing[name]; ok {
			return sf, true
		}
	}
	return reflect.StructField{}, false
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// lowerCamel lowers the leading upper case run: ID -> id, URLPath -> urlPath, Name -> name.
func lowerCamel(s string) string {
	r := []rune(s)
	n := 0
	for n < len(r) && unicode.IsUpper(r[n]) {
		n++
	}
	switch {
	case n == 0:
		return s
	case n > 1 && n < len(r) && unicode.IsLower(r[n]):
		n--
	}
	for i := range n {
		r[i] = unicode.ToLower(r[i])
	}
	return string(r)
}
