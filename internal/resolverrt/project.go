package resolverrt

import (
	"context"
	"reflect"
	"strings"
)

var (
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
)

// project reads field from a map, a struct field (json tag first, then a
// case-insensitive name match) or a zero-argument method. Missing fields
// read as null.
func project(ctx context.Context, source any, field string) (any, error) {
	if source == nil {
		return nil, nil
	}
	if m, ok := source.(map[string]any); ok {
		return m[field], nil
	}

	rv := reflect.ValueOf(source)
	if v, ok, err := callMethod(ctx, rv, field); ok {
		return v, err
	}
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, nil
		}
		v := rv.MapIndex(reflect.ValueOf(field).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, nil
		}
		return v.Interface(), nil
	case reflect.Struct:
		if f, ok := structField(rv, field); ok {
			return f.Interface(), nil
		}
	}
	return nil, nil
}

func structField(rv reflect.Value, field string) (reflect.Value, bool) {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		if tag, _, _ := strings.Cut(sf.Tag.Get("json"), ","); tag == field {
			return rv.Field(i), true
		}
	}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.IsExported() && strings.EqualFold(sf.Name, field) {
			return rv.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// callMethod calls a method named like field (first letter upper-cased)
// that takes no arguments, or only a context, and returns a value and an
// optional error.
func callMethod(ctx context.Context, rv reflect.Value, field string) (any, bool, error) {
	if field == "" || !rv.IsValid() {
		return nil, false, nil
	}
	m := rv.MethodByName(strings.ToUpper(field[:1]) + field[1:])
	if !m.IsValid() {
		return nil, false, nil
	}
	mt := m.Type()
	var in []reflect.Value
	switch {
	case mt.NumIn() == 0:
	case mt.NumIn() == 1 && mt.In(0) == contextType:
		in = []reflect.Value{reflect.ValueOf(ctx)}
	default:
		return nil, false, nil
	}
	switch {
	case mt.NumOut() == 1:
		return m.Call(in)[0].Interface(), true, nil
	case mt.NumOut() == 2 && mt.Out(1) == errorType:
		out := m.Call(in)
		if err, _ := out[1].Interface().(error); err != nil {
			return nil, true, err
		}
		return out[0].Interface(), true, nil
	}
	return nil, false, nil
}
