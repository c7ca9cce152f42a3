package expander

import (
	"reflect"
	"strings"

	"github.com/gaborage/go-bricks-apidoc/validation"
)

// inlined reports whether the promoted fields of embedded field sf belong to the
// embedding type. Hidden and dropped embeds contribute nothing; an embed named by
// a tag is a nested attribute.
func inlined(sf reflect.StructField) bool {
	if validation.ParseFieldTags(sf.Name, sf.Tag).Hidden || taggedName(sf.Tag) {
		return false
	}
	_, ok := attributeName(sf.Name, sf.Tag)
	return ok
}

// taggedName reports whether a query, form or json tag names the field.
func taggedName(tag reflect.StructTag) bool {
	for _, key := range []string{"query", "form", "json"} {
		v, ok := tag.Lookup(key)
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(v, ",")
		if name == "-" {
			return false
		}
		if name != "" {
			return true
		}
	}
	return false
}

// promotedFromExcluded reports whether the field at index is reached through an
// embedded field that is not inlined.
func promotedFromExcluded(t reflect.Type, index []int) bool {
	cur := t
	for _, i := range index[:len(index)-1] {
		sf := cur.Field(i)
		cur = indirect(sf.Type)
		if sf.Anonymous && !inlined(sf) {
			return true
		}
	}
	return false
}

// excludedMethodNames collects methods t inherits from embedded fields that are
// not inlined.
func excludedMethodNames(t reflect.Type) map[string]bool {
	names := make(map[string]bool)
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.Anonymous || inlined(sf) {
			continue
		}
		pt := reflect.PointerTo(indirect(sf.Type))
		for j := range pt.NumMethod() {
			names[pt.Method(j).Name] = true
		}
	}
	return names
}
