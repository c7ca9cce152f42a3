package expander

import (
	"net"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLowerCamel(t *testing.T) {
	tests := map[string]string{
		"Name":       "name",
		"ID":         "id",
		"URLPath":    "urlPath",
		"HTTPServer": "httpServer",
		"A":          "a",
		"already":    "already",
		"":           "",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, lowerCamel(in))
		})
	}
}

func TestAttributeName(t *testing.T) {
	tests := []struct {
		name   string
		goName string
		tag    reflect.StructTag
		want   string
		keep   bool
	}{
		{name: "query_first", goName: "Q", tag: `query:"q" form:"f" json:"j"`, want: "q", keep: true},
		{name: "form_before_json", goName: "F", tag: `form:"f" json:"j"`, want: "f", keep: true},
		{name: "json_options", goName: "J", tag: `json:"j,omitempty"`, want: "j", keep: true},
		{name: "empty_json_name", goName: "UserID", tag: `json:",omitempty"`, want: "userID", keep: true},
		{name: "fallback", goName: "CreatedAt", want: "createdAt", keep: true},
		{name: "dash_drops", goName: "X", tag: `json:"-"`, keep: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := attributeName(tt.goName, tt.tag)
			assert.Equal(t, tt.keep, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReflectSchemaScalar(t *testing.T) {
	s := ReflectSchema{}
	tests := []struct {
		name   string
		in     reflect.Type
		want   ScalarType
		scalar bool
	}{
		{name: "int8", in: reflect.TypeFor[int8](), want: ScalarType{"integer", "int32"}, scalar: true},
		{name: "uint64", in: reflect.TypeFor[uint64](), want: ScalarType{"integer", "int64"}, scalar: true},
		{name: "pointer_bool", in: reflect.TypeFor[*bool](), want: ScalarType{"boolean", ""}, scalar: true},
		{name: "duration", in: reflect.TypeFor[time.Duration](), want: ScalarType{"string", "duration"}, scalar: true},
		{name: "ip", in: reflect.TypeFor[net.IP](), want: ScalarType{"string", "ip"}, scalar: true},
		{name: "complex_is_void", in: reflect.TypeFor[complex64](), want: ScalarType{}, scalar: true},
		{name: "struct", in: reflect.TypeFor[address](), scalar: false},
		{name: "slice", in: reflect.TypeFor[[]int](), scalar: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := s.Scalar(tt.in)
			assert.Equal(t, tt.scalar, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

type panickyEnum int

func (panickyEnum) EnumValues() []string { panic("not ready") }

func TestReflectSchemaEnumValues(t *testing.T) {
	s := ReflectSchema{}

	values, ok := s.EnumValues(reflect.TypeFor[status]())
	assert.True(t, ok)
	assert.Equal(t, []string{"open", "closed"}, values)

	values, ok = s.EnumValues(reflect.TypeFor[panickyEnum]())
	assert.True(t, ok)
	assert.Nil(t, values)

	_, ok = s.EnumValues(reflect.TypeFor[string]())
	assert.False(t, ok)
}

func TestReflectSchemaElementType(t *testing.T) {
	s := ReflectSchema{}

	elem, ok := s.ElementType(reflect.TypeFor[[]*lineItem]())
	require.True(t, ok)
	assert.Equal(t, reflect.TypeFor[lineItem](), elem)

	elem, ok = s.ElementType(reflect.TypeFor[[3]string]())
	require.True(t, ok)
	assert.Equal(t, reflect.TypeFor[string](), elem)

	_, ok = s.ElementType(reflect.TypeFor[[]any]())
	assert.False(t, ok)

	_, ok = s.ElementType(reflect.TypeFor[map[string]int]())
	assert.False(t, ok)
}

func TestReflectSchemaAccessors(t *testing.T) {
	accessors, err := ReflectSchema{}.Accessors(reflect.TypeFor[account]())
	require.NoError(t, err)

	got := make(map[string]Accessor, len(accessors))
	for _, a := range accessors {
		got[a.Method] = a
	}

	assert.ElementsMatch(t, []string{"GetName", "GetDisplayName", "IsActive", "Nickname", "Secret"}, keys(got))
	assert.Equal(t, "Name", got["GetName"].Field)
	assert.Equal(t, "name", got["GetName"].Name)
	assert.Equal(t, "", got["GetDisplayName"].Field)
	assert.Equal(t, reflect.StructTag(`doc:"-"`), got["Secret"].Tag)

	none, err := ReflectSchema{}.Accessors(reflect.TypeFor[[]account]())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestTypePathIsPersistent(t *testing.T) {
	root := newTypePath(reflect.TypeFor[customer]())
	left := root.extend(reflect.TypeFor[address]())
	right := root.extend(reflect.TypeFor[money]())

	assert.True(t, left.contains(reflect.TypeFor[address]()))
	assert.False(t, right.contains(reflect.TypeFor[address]()))
	assert.False(t, root.contains(reflect.TypeFor[money]()))
	assert.Equal(t, 2, left.depth)
	assert.Equal(t, "expander.customer > expander.money", right.String())
}

func TestClassString(t *testing.T) {
	assert.Equal(t, "scalar", ClassScalar.String())
	assert.Equal(t, "enum", ClassEnum.String())
	assert.Equal(t, "collection", ClassCollection.String())
	assert.Equal(t, "map", ClassMap.String())
	assert.Equal(t, "complex", ClassComplex.String())
}
