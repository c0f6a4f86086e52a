// Package assert panics on constructor preconditions that only a
// programming error can break.
package assert

import (
	"fmt"
	"reflect"
)

// NotNil panics when value is nil, including a nil pointer, map, slice,
// channel or func stored in an interface.
func NotNil(value any) {
	if value == nil {
		panic("expected value to be not nil")
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		if v.IsNil() {
			panic(fmt.Sprintf("expected %s to be not nil", v.Type()))
		}
	}
}
