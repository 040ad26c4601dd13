package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

var validate = validator.New()

// Bind decodes the keys under prefix into target and validates the result.
//
// target must be a pointer to a struct. Fields are matched with `config`
// tags against the dotted key segments below prefix, values are weakly
// typed ("8080" decodes into an int, "5s" into a time.Duration, "a,b" into
// a []string) and `validate` tags are checked with go-playground/validator.
//
//	type serverConfig struct {
//		Host string        `config:"host" validate:"required"`
//		Port int           `config:"port" validate:"min=0,max=65535"`
//		Grace time.Duration `config:"shutdown-timeout"`
//	}
//
//	var sc serverConfig
//	err := cfg.Bind("httpserver", &sc)
func (c *Config) Bind(prefix string, target any) error {
	source := unflatten(c.Sub(prefix).layer())

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		TagName: "config",
	})
	if err != nil {
		return fmt.Errorf("%w: decode %q: %w", ErrBind, prefix, err)
	}
	if err := decoder.Decode(source); err != nil {
		return fmt.Errorf("%w: decode %q: %w", ErrBind, prefix, err)
	}
	if err := validate.Struct(target); err != nil {
		return fmt.Errorf("%w: validate %q: %w", ErrBind, prefix, err)
	}
	return nil
}

// unflatten turns {"a.b": "1", "a.c": "2"} into {"a": {"b": "1", "c": "2"}}.
// When a key is both a leaf and a parent ("a" and "a.b"), the nested map wins.
func unflatten(flat Layer) map[string]any {
	out := make(map[string]any)
	for key, value := range flat {
		segments := strings.Split(key, ".")
		node := out
		for i, seg := range segments {
			if i == len(segments)-1 {
				if _, isMap := node[seg].(map[string]any); !isMap {
					node[seg] = value
				}
				break
			}
			child, ok := node[seg].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[seg] = child
			}
			node = child
		}
	}
	return out
}
