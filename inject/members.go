package inject

import (
	"fmt"
	"reflect"
	"strings"
)

const tagName = "inject"

// InjectMembers fills the `inject` tagged fields of the struct target points
// at.
//
//	type OrdersTest struct {
//		Client *http.Client   `inject:"httpclient"`
//		Config *config.Config `inject:"config"`
//		Clock  Clock          `inject:""`          // the single binding assignable to Clock
//		Cache  Cache          `inject:",optional"` // left nil when nothing matches
//	}
//
// An empty key picks the only binding whose value is assignable to the field
// type. Untagged fields are left alone.
func (inj *Injector) InjectMembers(target any) error {
	if target == nil {
		return nil
	}
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return ErrTargetNotPointer
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("%w: %s", ErrTargetNotStruct, v.Type())
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag, ok := field.Tag.Lookup(tagName)
		if !ok {
			continue
		}
		key, opts, _ := strings.Cut(tag, ",")
		optional := opts == "optional"

		fv := v.Field(i)
		if !fv.CanSet() {
			return fmt.Errorf("%w: field %s.%s is not exported", ErrServiceIncompatible, t, field.Name)
		}

		if key == "" {
			var err error
			key, err = inj.keyForType(field.Type)
			if err != nil {
				if optional {
					continue
				}
				return fmt.Errorf("%w: field %s.%s: %w", ErrProvision, t, field.Name, err)
			}
		}

		instance, exists := inj.ExistingBinding(key)
		if !exists {
			if optional {
				continue
			}
			return fmt.Errorf("%w: %w: %s for field %s.%s", ErrProvision, ErrBindingNotFound, key, t, field.Name)
		}
		if err := assign(key, instance, fv.Addr().Interface()); err != nil {
			return fmt.Errorf("field %s.%s: %w", t, field.Name, err)
		}
	}

	inj.logger.Debug("Injected members", "type", t.String())
	return nil
}

func (inj *Injector) keyForType(want reflect.Type) (string, error) {
	var matches []string
	for _, key := range inj.keys {
		b := inj.bindings[key]
		if b.resolved && reflect.TypeOf(b.instance).AssignableTo(want) {
			matches = append(matches, key)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: type %s", ErrBindingNotFound, want)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %s matches %v", ErrAmbiguousBinding, want, matches)
	}
}
