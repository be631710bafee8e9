// Package reflect_util provides reflection helpers for tagged settings structs.
package reflect_util

import "reflect"

// FieldsByTag maps the value of tag on each field of struct type t to the
// field. Fields without the tag, or tagged "-", are skipped.
func FieldsByTag(t reflect.Type, tag string) map[string]reflect.StructField {
	fields := make(map[string]reflect.StructField, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := f.Tag.Get(tag)
		if name == "" || name == "-" {
			continue
		}
		fields[name] = f
	}
	return fields
}
