package table

import (
	"fmt"
	"reflect"
	"strings"
)

// Value returns the stringified value addressed by key on row. Struct fields
// match their json name (or Go name, case-insensitively); maps match string
// keys; dots walk into nested values. Missing or nil values yield "".
func Value(row any, key string) string {
	if key == "" {
		return ""
	}

	v := reflect.ValueOf(row)
	for _, part := range strings.Split(key, ".") {
		v = indirect(v)
		if !v.IsValid() {
			return ""
		}
		switch v.Kind() {
		case reflect.Map:
			if v.Type().Key().Kind() != reflect.String {
				return ""
			}
			v = v.MapIndex(reflect.ValueOf(part).Convert(v.Type().Key()))
		case reflect.Struct:
			v = fieldByKey(v, part)
		default:
			return ""
		}
	}

	v = indirect(v)
	if !v.IsValid() {
		return ""
	}
	return fmt.Sprint(v.Interface())
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func fieldByKey(v reflect.Value, key string) reflect.Value {
	typ := v.Type()
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == key || (name == "" && strings.EqualFold(f.Name, key)) {
			return v.Field(i)
		}
	}
	return reflect.Value{}
}
