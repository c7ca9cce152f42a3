// Package expander flattens a request type into the ordered list of query or form
// parameters that document it.
//
// Expansion walks the exported fields and getter methods of a struct, recursing into
// nested structs and into slices of structs, and stops at scalar and enum leaves:
//
//	type Address struct {
//		City string `json:"city"`
//		Zip  string `json:"zip"`
//	}
//
//	type Search struct {
//		ID      int      `json:"id"`
//		Address Address  `json:"address"`
//		Tags    []string `json:"tags"`
//	}
//
// expands to the parameters id, address.city, address.zip and tags. Slices of structs
// are named with a first-element marker, e.g. items[0].sku. Types already on the path
// from the root are not expanded again, so self-referential types terminate.
//
// Introspection is pluggable through TypeSchema. ReflectSchema is the default and is
// safe for concurrent use, as is Expander itself.
package expander
