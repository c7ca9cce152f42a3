package expander

import (
	"fmt"
	"reflect"

	"github.com/gaborage/go-bricks-apidoc/internal/reflection"
	"github.com/gaborage/go-bricks-apidoc/validation"
)

// discover returns the attributes of t: declared fields first, then getters without a
// matching field. Hidden and ignored attributes are removed. Introspection failures
// are logged and yield no attributes.
func (x *expansion) discover(t reflect.Type) (attrs []Field) {
	if IsOpaque(t) {
		x.log.Debug().Str("type", reflection.TypeLabel(t)).Msg("Skipping opaque paging type")
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			x.log.Warn().
				Str("type", reflection.TypeLabel(t)).
				Err(fmt.Errorf("panic: %v", r)).
				Msg("Failed to introspect type, expanding with no attributes")
			attrs = nil
		}
	}()

	fields, err := x.schema.Fields(t)
	if err != nil {
		x.introspectionFailed(t, err)
		return nil
	}
	accessors, err := x.schema.Accessors(t)
	if err != nil {
		x.introspectionFailed(t, err)
		return nil
	}

	merged := make([]Field, 0, len(fields)+len(accessors))
	byName := make(map[string]int, len(fields))
	for _, f := range fields {
		if _, dup := byName[f.Name]; dup {
			continue
		}
		byName[f.Name] = len(merged)
		merged = append(merged, Field{
			Name:      f.Name,
			GoName:    f.GoName,
			Type:      f.Type,
			Tag:       f.Tag,
			FromField: true,
		})
	}
	for _, a := range accessors {
		if i, ok := byName[a.Name]; ok {
			// The getter decides the type, the field keeps its tag and position.
			merged[i].Type = a.Type
			merged[i].FromGetter = true
			if merged[i].Tag == "" {
				merged[i].Tag = a.Tag
			}
			continue
		}
		goName := a.Field
		if goName == "" {
			goName = a.Method
		}
		byName[a.Name] = len(merged)
		merged = append(merged, Field{
			Name:       a.Name,
			GoName:     goName,
			Type:       a.Type,
			Tag:        a.Tag,
			FromGetter: true,
		})
	}

	attrs = make([]Field, 0, len(merged))
	for _, f := range merged {
		if f.Type == nil {
			x.log.Warn().
				Str("type", reflection.TypeLabel(t)).
				Str("field", f.Name).
				Msg("Skipping field with unresolved type")
			continue
		}
		f.Type = x.alternateFor(f.Type)
		f.Hidden = validation.ParseFieldTags(f.GoName, f.Tag).Hidden
		if f.Hidden {
			x.log.Debug().Str("field", f.Name).Msg("Skipping hidden field")
			continue
		}
		if x.ignorables.ignores(f) {
			x.log.Debug().Str("field", f.Name).Msg("Skipping ignored field")
			continue
		}
		attrs = append(attrs, f)
	}
	return attrs
}

func (x *expansion) introspectionFailed(t reflect.Type, err error) {
	x.log.Warn().
		Str("type", reflection.TypeLabel(t)).
		Err(err).
		Msg("Failed to introspect type, expanding with no attributes")
}

func (x *expansion) alternateFor(t reflect.Type) reflect.Type {
	if alt, ok := x.alternates[t]; ok {
		return alt
	}
	if alt, ok := x.alternates[indirect(t)]; ok {
		return alt
	}
	return t
}
