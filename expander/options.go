package expander

import (
	"reflect"

	"github.com/gaborage/go-bricks-apidoc/logger"
)

// DefaultMaxDepth is the default nesting ceiling, counted in types from the root.
const DefaultMaxDepth = 32

// Option configures an Expander.
type Option func(*Expander)

// WithLogger sets the logger used for skipped fields and introspection failures.
func WithLogger(l logger.Logger) Option {
	return func(e *Expander) {
		if l != nil {
			e.log = l
		}
	}
}

// WithSchema replaces the reflection based TypeSchema.
func WithSchema(s TypeSchema) Option {
	return func(e *Expander) {
		if s != nil {
			e.schema = s
		}
	}
}

// WithMaxDepth sets the nesting ceiling. Values below one are ignored.
func WithMaxDepth(n int) Option {
	return func(e *Expander) {
		if n > 0 {
			e.maxDepth = n
		}
	}
}

// WithAlternateType documents attributes of type from as if they were of type to.
func WithAlternateType(from, to reflect.Type) Option {
	return func(e *Expander) {
		if from != nil && to != nil {
			e.alternates[from] = to
		}
	}
}
