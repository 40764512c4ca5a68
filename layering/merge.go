// Package layering composes hierarchical values where a stronger layer
// overrides a weaker one only on the keys both define. Everything the stronger
// layer leaves out is carried over from the weaker one, so composing a small
// overlay onto a large document never drops unrelated content.
package layering

import "reflect"

// MergeLayers composes values ordered from strongest to weakest, returning a
// new value that keeps explicit settings from stronger layers while filling any
// missing data from weaker ones. Inputs are never mutated.
func MergeLayers[T any](layers ...T) T {
	var zero T
	if len(layers) == 0 {
		return zero
	}

	merged := cloneValue(reflect.ValueOf(layers[len(layers)-1]))
	for i := len(layers) - 2; i >= 0; i-- {
		merged = compose(reflect.ValueOf(layers[i]), merged)
	}

	if !merged.IsValid() {
		return zero
	}
	target := reflect.TypeOf((*T)(nil)).Elem()
	if merged.Type() != target {
		result := reflect.New(target).Elem()
		result.Set(merged.Convert(target))
		return result.Interface().(T)
	}
	return merged.Interface().(T)
}

// Fallback composes overlay onto base. It is the two-layer form of
// MergeLayers used for tree documents: nested mappings are merged key by key,
// any other overlay value replaces the base value outright.
func Fallback(overlay, base map[string]any) map[string]any {
	if overlay == nil && base == nil {
		return nil
	}
	if overlay == nil {
		return Clone(base)
	}
	return MergeLayers(overlay, base)
}

// Clone returns a deep copy of value. Maps, slices and pointers are detached
// from the original; scalars are copied as-is.
func Clone[T any](value T) T {
	cloned := cloneValue(reflect.ValueOf(value))
	if !cloned.IsValid() {
		var zero T
		return zero
	}
	target := reflect.TypeOf((*T)(nil)).Elem()
	if cloned.Type() != target {
		result := reflect.New(target).Elem()
		result.Set(cloned.Convert(target))
		return result.Interface().(T)
	}
	return cloned.Interface().(T)
}

func compose(strong, weak reflect.Value) reflect.Value {
	if !strong.IsValid() {
		return cloneValue(weak)
	}

	switch strong.Kind() {
	case reflect.Pointer:
		if strong.IsNil() {
			return cloneValue(weak)
		}
		var weakElem reflect.Value
		if weak.IsValid() && weak.Kind() == reflect.Pointer && !weak.IsNil() {
			weakElem = weak.Elem()
		}
		result := reflect.New(strong.Type().Elem())
		result.Elem().Set(compose(strong.Elem(), weakElem))
		return result
	case reflect.Interface:
		if strong.IsNil() {
			return cloneValue(weak)
		}
		var weakElem reflect.Value
		if weak.IsValid() && weak.Kind() == reflect.Interface && !weak.IsNil() {
			weakElem = weak.Elem()
		} else if weak.IsValid() && weak.Kind() != reflect.Interface {
			weakElem = weak
		}
		return compose(strong.Elem(), weakElem).Convert(strong.Type())
	case reflect.Map:
		if strong.IsNil() {
			return cloneValue(weak)
		}
		if weak.IsValid() && weak.Kind() == reflect.Interface && !weak.IsNil() {
			weak = weak.Elem()
		}
		result := reflect.MakeMapWithSize(strong.Type(), strong.Len())
		if weak.IsValid() && weak.Kind() == reflect.Map && !weak.IsNil() && weak.Type() == strong.Type() {
			iter := weak.MapRange()
			for iter.Next() {
				result.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
			}
		}
		iter := strong.MapRange()
		for iter.Next() {
			key := iter.Key()
			if existing := result.MapIndex(key); existing.IsValid() {
				result.SetMapIndex(key, compose(iter.Value(), existing))
				continue
			}
			result.SetMapIndex(key, cloneValue(iter.Value()))
		}
		return result
	default:
		// Scalars and slices are replaced wholesale; lists are values, not
		// mappings, and are never concatenated.
		return cloneValue(strong)
	}
}

func cloneValue(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.New(v.Type().Elem())
		clone.Elem().Set(cloneValue(v.Elem()))
		return clone
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		elem := cloneValue(v.Elem())
		if !elem.IsValid() {
			return reflect.Zero(v.Type())
		}
		return elem.Convert(v.Type())
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			clone.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return clone
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(cloneValue(v.Index(i)))
		}
		return clone
	case reflect.Struct:
		clone := reflect.New(v.Type()).Elem()
		clone.Set(v)
		for i := 0; i < v.NumField(); i++ {
			field := clone.Field(i)
			if !field.CanSet() {
				continue
			}
			field.Set(cloneValue(v.Field(i)))
		}
		return clone
	default:
		return reflect.ValueOf(v.Interface())
	}
}
