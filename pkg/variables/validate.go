package variables

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"

	"github.com/aretw0/convo/pkg/domain"
)

var marshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()

// Validate reports whether v can live in the variable bag.
func Validate(v any) error {
	w := walker{active: make(map[visit]bool)}
	path, ok := w.serializable(reflect.ValueOf(v), "$")
	switch {
	case ok:
		return nil
	case w.cycle:
		return fmt.Errorf("%w: cycle at %s", domain.ErrNotSerializable, path)
	default:
		return fmt.Errorf("%w: at %s", domain.ErrNotSerializable, path)
	}
}

// ValidateAll validates every value of vars, in key order.
func ValidateAll(vars map[string]any) error {
	for _, k := range slices.Sorted(maps.Keys(vars)) {
		if err := Validate(vars[k]); err != nil {
			return fmt.Errorf("assigned value for %q: %w", k, err)
		}
	}
	return nil
}

// visit identifies a container currently on the walk stack.
type visit struct {
	ptr uintptr
	typ reflect.Type
	len int
}

// walker checks a value tree. Containers already on the stack mark a cycle;
// a value shared by two branches is not one.
type walker struct {
	active map[visit]bool
	cycle  bool
}

// enter pushes v and reports false when v is already on the stack.
func (w *walker) enter(v reflect.Value) (visit, bool) {
	key := visit{ptr: v.Pointer(), typ: v.Type()}
	if v.Kind() == reflect.Slice {
		key.len = v.Len()
	}
	if w.active[key] {
		w.cycle = true
		return key, false
	}
	w.active[key] = true
	return key, true
}

func (w *walker) serializable(v reflect.Value, path string) (string, bool) {
	if !v.IsValid() {
		return "", true
	}
	if v.Type().Implements(marshalerType) {
		return "", true
	}

	switch v.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "", true
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return path, false
		}
		return "", true
	case reflect.Interface:
		if v.IsNil() {
			return "", true
		}
		return w.serializable(v.Elem(), path)
	case reflect.Pointer:
		if v.IsNil() {
			return "", true
		}
		key, ok := w.enter(v)
		if !ok {
			return path, false
		}
		defer delete(w.active, key)
		return w.serializable(v.Elem(), path)
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && !v.IsNil() && v.Len() > 0 {
			key, ok := w.enter(v)
			if !ok {
				return path, false
			}
			defer delete(w.active, key)
		}
		for i := 0; i < v.Len(); i++ {
			if p, ok := w.serializable(v.Index(i), fmt.Sprintf("%s[%d]", path, i)); !ok {
				return p, false
			}
		}
		return "", true
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return path, false
		}
		if !v.IsNil() {
			key, ok := w.enter(v)
			if !ok {
				return path, false
			}
			defer delete(w.active, key)
		}
		iter := v.MapRange()
		for iter.Next() {
			if p, ok := w.serializable(iter.Value(), path+"."+iter.Key().String()); !ok {
				return p, false
			}
		}
		return "", true
	default:
		return path, false
	}
}
