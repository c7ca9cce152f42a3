package logger

import (
	"net/url"
	"reflect"
	"strings"
)

const (
	// DefaultMaxDepth bounds how far FilterValue walks nested maps, slices and structs.
	DefaultMaxDepth = 8
	// DefaultMaskValue replaces sensitive values.
	DefaultMaskValue = "***"
)

// FilterConfig defines which keys are masked before they reach the log output.
type FilterConfig struct {
	// SensitiveFields is matched case-insensitively as a substring of the key.
	SensitiveFields []string
	MaskValue       string
}

// DefaultFilterConfig masks the credentials that show up in documentation and gateway logs.
func DefaultFilterConfig() *FilterConfig {
	return &FilterConfig{
		SensitiveFields: []string{
			"password", "passwd", "secret", "client_secret",
			"token", "access_token", "refresh_token",
			"authorization", "api_key", "apikey", "credential",
		},
		MaskValue: DefaultMaskValue,
	}
}

// SensitiveDataFilter masks sensitive values attached to log events.
type SensitiveDataFilter struct {
	config *FilterConfig
}

// NewSensitiveDataFilter creates a filter. A nil config selects DefaultFilterConfig.
func NewSensitiveDataFilter(config *FilterConfig) *SensitiveDataFilter {
	if config == nil {
		config = DefaultFilterConfig()
	}
	if config.MaskValue == "" {
		config.MaskValue = DefaultMaskValue
	}
	return &SensitiveDataFilter{config: config}
}

// FilterString masks value when key is sensitive. URLs carrying user info get their password masked.
func (f *SensitiveDataFilter) FilterString(key, value string) string {
	if f.isSensitiveField(key) {
		return f.config.MaskValue
	}
	return f.maskURLPassword(value)
}

// FilterFields filters every entry of a field map.
func (f *SensitiveDataFilter) FilterFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	return f.filterMap(fields, make(map[uintptr]struct{}), DefaultMaxDepth)
}

// FilterValue masks sensitive entries inside arbitrary values.
func (f *SensitiveDataFilter) FilterValue(key string, value any) any {
	return f.filter(key, value, make(map[uintptr]struct{}), DefaultMaxDepth)
}

func (f *SensitiveDataFilter) filter(key string, value any, visited map[uintptr]struct{}, depth int) any {
	if f.isSensitiveField(key) {
		return f.config.MaskValue
	}
	if value == nil || depth <= 0 {
		return value
	}

	switch v := value.(type) {
	case string:
		return f.maskURLPassword(v)
	case map[string]any:
		return f.filterMap(v, visited, depth)
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return value
		}
		ptr := rv.Pointer()
		if _, seen := visited[ptr]; seen {
			return value
		}
		visited[ptr] = struct{}{}
		defer delete(visited, ptr)
		fallthrough
	case reflect.Array:
		out := make([]any, rv.Len())
		for i := range rv.Len() {
			out[i] = f.filter(key, rv.Index(i).Interface(), visited, depth-1)
		}
		return out
	case reflect.Pointer:
		if rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
			return value
		}
		ptr := rv.Pointer()
		if _, seen := visited[ptr]; seen {
			return value
		}
		visited[ptr] = struct{}{}
		defer delete(visited, ptr)
		return f.filterStruct(rv.Elem(), visited, depth)
	case reflect.Struct:
		return f.filterStruct(rv, visited, depth)
	default:
		return value
	}
}

func (f *SensitiveDataFilter) filterMap(m map[string]any, visited map[uintptr]struct{}, depth int) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = f.filter(k, v, visited, depth-1)
	}
	return out
}

// filterStruct flattens exported fields into a map keyed by field name.
func (f *SensitiveDataFilter) filterStruct(rv reflect.Value, visited map[uintptr]struct{}, depth int) any {
	t := rv.Type()
	out := make(map[string]any, t.NumField())
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := sf.Name
		if tag, ok := sf.Tag.Lookup("json"); ok {
			if n, _, _ := strings.Cut(tag, ","); n != "" && n != "-" {
				name = n
			}
		}
		out[name] = f.filter(name, rv.Field(i).Interface(), visited, depth-1)
	}
	return out
}

func (f *SensitiveDataFilter) isSensitiveField(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range f.config.SensitiveFields {
		if strings.Contains(lower, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

func (f *SensitiveDataFilter) maskURLPassword(value string) string {
	if !strings.Contains(value, "://") || !strings.Contains(value, "@") {
		return value
	}
	u, err := url.Parse(value)
	if err != nil || u.User == nil {
		return value
	}
	if _, has := u.User.Password(); !has {
		return value
	}
	u.User = url.UserPassword(u.User.Username(), f.config.MaskValue)
	// url.String escapes the mask, restore it for readability.
	return strings.Replace(u.String(), url.QueryEscape(f.config.MaskValue), f.config.MaskValue, 1)
}
