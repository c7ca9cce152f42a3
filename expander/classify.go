package expander

import "reflect"

// classify maps an attribute type to its expansion class. Enum and scalar checks run
// before the container checks, so []byte is a scalar and a named enum slice is not.
func (x *expansion) classify(t reflect.Type) Class {
	if _, ok := x.schema.EnumValues(t); ok {
		return ClassEnum
	}
	if _, ok := x.schema.Scalar(t); ok {
		return ClassScalar
	}
	if x.schema.IsCollection(t) {
		return ClassCollection
	}
	if x.schema.IsMap(t) {
		return ClassMap
	}
	return ClassComplex
}

// isLeaf reports whether t terminates expansion.
func (c Class) isLeaf() bool {
	return c == ClassScalar || c == ClassEnum
}

// wireType resolves the data type, format and enum values of a leaf type.
func (x *expansion) wireType(t reflect.Type, class Class) (dataType, format string, enum []string) {
	if class == ClassEnum {
		values, _ := x.schema.EnumValues(t)
		// Enums over integers keep their numeric wire type.
		if st, ok := basicScalar(indirect(t).Kind()); ok && st.DataType != "" {
			return st.DataType, st.Format, values
		}
		return "string", "", values
	}
	st, _ := x.schema.Scalar(t)
	return st.DataType, st.Format, nil
}
