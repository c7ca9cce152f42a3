// Package reflection holds the reflection helpers shared by route registration and
// parameter expansion.
package reflection

import (
	"reflect"
	"runtime"
	"strings"
)

var funcForPCFn = runtime.FuncForPC

// Indirect strips every pointer level from t.
func Indirect(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// TypeLabel renders t for log messages, e.g. "[]*users.Address". Nil renders as "<nil>".
func TypeLabel(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// TypeName returns the unqualified name of t after pointers are removed.
// Unnamed types fall back to their label.
func TypeName(t reflect.Type) string {
	t = Indirect(t)
	if t == nil {
		return ""
	}
	if name := t.Name(); name != "" {
		if i := strings.IndexByte(name, '['); i >= 0 {
			return name[:i]
		}
		return name
	}
	return t.String()
}

// HandlerName gets the function name of a handler, without the method value suffix.
func HandlerName(handler any) string {
	name := funcName(handler)
	if name == "" {
		return ""
	}
	name = strings.TrimSuffix(name, "-fm")
	if lastDot := strings.LastIndex(name, "."); lastDot >= 0 {
		return name[lastDot+1:]
	}
	return name
}

// HandlerPackage returns the import path of the package that declares handler.
func HandlerPackage(handler any) string {
	return packageFromFuncName(funcName(handler))
}

func funcName(handler any) string {
	if handler == nil {
		return ""
	}
	v := reflect.ValueOf(handler)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	fn := funcForPCFn(v.Pointer())
	if fn == nil {
		return ""
	}
	return fn.Name()
}

// packageFromFuncName cuts the symbol off a runtime function name such as
// "example.com/app/users.(*Handler).list-fm" or "strings.TrimSpace".
func packageFromFuncName(name string) string {
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	dir := ""
	if lastSlash := strings.LastIndex(name, "/"); lastSlash >= 0 {
		dir, name = name[:lastSlash+1], name[lastSlash+1:]
	}
	if dot := strings.IndexByte(name, '.'); dot >= 0 {
		return dir + name[:dot]
	}
	return ""
}
