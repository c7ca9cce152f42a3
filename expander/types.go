package expander

import (
	"reflect"
	"slices"
)

// Location is where an expanded parameter is sent on the wire.
type Location string

const (
	LocationQuery    Location = "query"
	LocationForm     Location = "form"
	LocationFormData Location = "formData"
)

// Operation is the request metadata that decides the parameter location.
type Operation struct {
	Method   string
	Consumes []string
}

// Items describes the element of an array parameter.
type Items struct {
	DataType string
	Format   string
	Enum     []string
}

// ParameterDescriptor is one flattened parameter.
type ParameterDescriptor struct {
	Name        string
	In          Location
	DataType    string
	Format      string
	Items       *Items
	Enum        []string
	Default     string
	Example     string
	Description string
	Required    bool
	Constraints map[string]string
	Hidden      bool
	// Void is set when the attribute type has no wire representation (complex numbers, uintptr).
	Void bool
}

// Enum is implemented by named types with a closed set of values.
type Enum interface {
	EnumValues() []string
}

// Ignorables drops attributes before classification. A type matches exactly, after
// pointers are removed; a tag matches when the attribute's struct tag carries the key.
type Ignorables struct {
	Types []reflect.Type
	Tags  []string
}

func (ig Ignorables) ignores(f Field) bool {
	t := indirect(f.Type)
	if slices.ContainsFunc(ig.Types, func(it reflect.Type) bool { return indirect(it) == t }) {
		return true
	}
	for _, key := range ig.Tags {
		if _, ok := f.Tag.Lookup(key); ok {
			return true
		}
	}
	return false
}

// Class is the expansion category of an attribute type.
type Class int

const (
	ClassComplex Class = iota
	ClassScalar
	ClassEnum
	ClassCollection
	ClassMap
)

func (c Class) String() string {
	switch c {
	case ClassScalar:
		return "scalar"
	case ClassEnum:
		return "enum"
	case ClassCollection:
		return "collection"
	case ClassMap:
		return "map"
	default:
		return "complex"
	}
}

// Field is one discovered attribute of a type, after declared fields and getters were merged.
type Field struct {
	// Name is the parameter name segment.
	Name string
	// GoName is the backing Go field name, or the getter name when there is none.
	GoName string
	// Type is the getter result type when a getter exists, the field type otherwise.
	Type reflect.Type
	// Tag is the backing field's tag.
	Tag        reflect.StructTag
	FromField  bool
	FromGetter bool
	Hidden     bool
}

func indirect(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
