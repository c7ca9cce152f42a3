// Package validation parses struct tags into the documentation metadata used when
// request types are turned into OpenAPI parameters.
package validation

import (
	"reflect"
	"strconv"
	"strings"
)

const (
	trueValue = "true"

	// ParamPath marks a field bound from the request path.
	ParamPath = "path"
	// ParamQuery marks a field bound from the query string. It is the default location.
	ParamQuery = "query"
	// ParamHeader marks a field bound from a request header.
	ParamHeader = "header"
	// ParamForm marks a field bound from a form body.
	ParamForm = "form"
)

// TagInfo is the parsed documentation and validation metadata of one struct field.
type TagInfo struct {
	Name        string            // Go field name
	JSONName    string            // JSON field name (from json tag)
	ParamType   string            // path, query, header or form
	ParamName   string            // Explicit name from the param/query/header/form tag
	Required    bool              // validate:"required" or a path parameter
	Hidden      bool              // doc:"-" or hidden:"true"
	Constraints map[string]string // Validation constraints from validate tag
	Description string            // doc or description tag
	Example     string            // example tag
	Default     string            // default tag
	Tags        map[string]string // All recognised tags for reference
}

var knownTags = []string{
	"json", "validate", "doc", "description", "example", "default", "hidden",
	"param", "query", "header", "form",
}

// ParseValidationTags parses the exported fields declared directly on t.
// Pointers are dereferenced; non-struct types yield nil.
func ParseValidationTags(t reflect.Type) []TagInfo {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}

	var tags []TagInfo
	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tags = append(tags, ParseFieldTags(field.Name, field.Tag))
	}
	return tags
}

// ParseFieldTags parses the tag of a single attribute. name is reported back as TagInfo.Name.
func ParseFieldTags(name string, tag reflect.StructTag) TagInfo {
	info := TagInfo{
		Name:        name,
		Constraints: make(map[string]string),
		Tags:        make(map[string]string),
	}

	for _, k := range knownTags {
		if v, ok := tag.Lookup(k); ok {
			info.Tags[k] = v
		}
	}

	if json := tag.Get("json"); json != "" {
		parts := strings.Split(json, ",")
		info.JSONName = parts[0]
		for _, part := range parts[1:] {
			if strings.TrimSpace(part) == "omitempty" {
				info.Tags["omitempty"] = trueValue
			}
		}
	}

	info.ParamType, info.ParamName = parseParameterInfo(tag)

	if validate := tag.Get("validate"); validate != "" {
		parseValidateTag(validate, info.Constraints)
	}
	_, required := info.Constraints["required"]
	info.Required = required || info.ParamType == ParamPath

	doc := tag.Get("doc")
	info.Hidden = doc == "-" || tag.Get("hidden") == trueValue
	switch {
	case doc != "" && doc != "-":
		info.Description = doc
	case tag.Get("description") != "":
		info.Description = tag.Get("description")
	}

	info.Example = tag.Get("example")
	info.Default = tag.Get("default")

	return info
}

func parseParameterInfo(tag reflect.StructTag) (paramType, paramName string) {
	for _, kind := range []string{ParamPath, ParamQuery, ParamHeader, ParamForm} {
		key := kind
		if kind == ParamPath {
			key = "param"
		}
		if v := tag.Get(key); v != "" {
			name, _, _ := strings.Cut(v, ",")
			return kind, name
		}
	}
	return ParamQuery, ""
}

func parseValidateTag(validate string, constraints map[string]string) {
	for part := range strings.SplitSeq(validate, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, "=")
		if !found {
			constraints[part] = trueValue
			continue
		}
		constraints[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), `"`)
	}
}

// IsRequired returns true if the field has a required constraint
func (t *TagInfo) IsRequired() bool {
	return t.Required
}

// Min returns the min constraint if it is an integer.
func (t *TagInfo) Min() (int, bool) {
	return t.intConstraint("min")
}

// Max returns the max constraint if it is an integer.
func (t *TagInfo) Max() (int, bool) {
	return t.intConstraint("max")
}

func (t *TagInfo) intConstraint(key string) (int, bool) {
	raw, ok := t.Constraints[key]
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Pattern returns the regexp constraint if present
func (t *TagInfo) Pattern() (string, bool) {
	pattern, ok := t.Constraints["regexp"]
	return pattern, ok
}

// Enum returns the values of a oneof constraint.
func (t *TagInfo) Enum() ([]string, bool) {
	values := strings.Fields(t.Constraints["oneof"])
	return values, len(values) > 0
}

// HasFormat returns true if the validate tag carries the given flag, e.g. "email".
func (t *TagInfo) HasFormat(format string) bool {
	return t.Constraints[format] == trueValue
}

// Format maps well-known validate flags onto OpenAPI string formats.
func (t *TagInfo) Format() string {
	for _, f := range []struct{ flag, format string }{
		{"email", "email"},
		{"url", "uri"},
		{"uri", "uri"},
		{"uuid", "uuid"},
		{"ip", "ip"},
	} {
		if t.HasFormat(f.flag) {
			return f.format
		}
	}
	return ""
}
