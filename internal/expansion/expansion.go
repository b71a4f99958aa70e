// Package expansion expands ${VAR} environment variable references inside
// configuration values. It recursively traverses struct fields, pointers,
// slices and maps, rewriting every settable string in place.
package expansion

import (
	"os"
	"reflect"
	"strings"
)

// ExpandVariables expands environment variable references in every string
// field reachable from toExpand, which must be a pointer for the expansion
// to be visible to the caller. Unset variables expand to the empty string,
// matching os.Expand behavior.
func ExpandVariables(toExpand any) {
	if toExpand == nil {
		return
	}

	v := reflect.ValueOf(toExpand)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return
		}
		expandValue(v.Elem())
		return
	}
	expandValue(v)
}

func expandValue(val reflect.Value) {
	switch val.Kind() {
	case reflect.String:
		if val.CanSet() {
			val.SetString(os.ExpandEnv(strings.TrimSpace(val.String())))
		}

	case reflect.Struct:
		for i := 0; i < val.NumField(); i++ {
			expandValue(val.Field(i))
		}

	case reflect.Ptr:
		if !val.IsNil() {
			expandValue(val.Elem())
		}

	case reflect.Slice:
		for i := 0; i < val.Len(); i++ {
			expandValue(val.Index(i))
		}

	case reflect.Map:
		for _, key := range val.MapKeys() {
			mapVal := val.MapIndex(key)
			newVal := reflect.New(mapVal.Type()).Elem()
			newVal.Set(mapVal)
			expandValue(newVal)
			val.SetMapIndex(key, newVal)
		}

	default:
		// No action needed for other kinds
	}
}
