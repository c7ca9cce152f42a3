package expander

import (
	"reflect"

	"github.com/gaborage/go-bricks-apidoc/paging"
)

var opaqueInterfaces = []reflect.Type{
	reflect.TypeFor[paging.Pageable](),
	reflect.TypeFor[paging.Sorter](),
}

// IsOpaque reports whether t is a paging or sorting request type. Opaque types are
// documented by the paging parameters of an operation and expand to nothing.
//
// A struct that only inherits the paging methods from an embedded field is not opaque
// itself; the embedded field's own attributes are dropped instead.
func IsOpaque(t reflect.Type) bool {
	t = indirect(t)
	if t == nil || !implementsOpaque(t) {
		return false
	}
	if t.Kind() != reflect.Struct {
		return true
	}
	for i := range t.NumField() {
		if sf := t.Field(i); sf.Anonymous && implementsOpaque(indirect(sf.Type)) {
			return false
		}
	}
	return true
}

func implementsOpaque(t reflect.Type) bool {
	pt := reflect.PointerTo(t)
	for _, iface := range opaqueInterfaces {
		if t.Implements(iface) || pt.Implements(iface) {
			return true
		}
	}
	return false
}

// promotedFromOpaque reports whether the field at index is reached through an embedded opaque type.
func promotedFromOpaque(t reflect.Type, index []int) bool {
	cur := t
	for _, i := range index[:len(index)-1] {
		sf := cur.Field(i)
		cur = indirect(sf.Type)
		if sf.Anonymous && implementsOpaque(cur) {
			return true
		}
	}
	return false
}

// opaqueMethodNames collects methods t inherits from embedded opaque types.
func opaqueMethodNames(t reflect.Type) map[string]bool {
	names := make(map[string]bool)
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.Anonymous {
			continue
		}
		inner := indirect(sf.Type)
		if !implementsOpaque(inner) {
			continue
		}
		pt := reflect.PointerTo(inner)
		for j := range pt.NumMethod() {
			names[pt.Method(j).Name] = true
		}
	}
	return names
}
