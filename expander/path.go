package expander

import (
	"reflect"
	"strings"

	"github.com/gaborage/go-bricks-apidoc/internal/reflection"
)

// typePath is the chain of types from the expansion root to the current node.
// It is never mutated: extend returns a new head sharing the parent chain, so
// sibling branches cannot observe each other's types.
type typePath struct {
	t      reflect.Type
	parent *typePath
	depth  int
}

func newTypePath(root reflect.Type) *typePath {
	return &typePath{t: root, depth: 1}
}

func (p *typePath) extend(t reflect.Type) *typePath {
	return &typePath{t: t, parent: p, depth: p.depth + 1}
}

func (p *typePath) contains(t reflect.Type) bool {
	for n := p; n != nil; n = n.parent {
		if n.t == t {
			return true
		}
	}
	return false
}

func (p *typePath) String() string {
	labels := make([]string, p.depth)
	for n := p; n != nil; n = n.parent {
		labels[n.depth-1] = reflection.TypeLabel(n.t)
	}
	return strings.Join(labels, " > ")
}
