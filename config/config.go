// Package config provides the immutable key/value configuration used by
// service and test-case containers.
//
// Configuration is built from ordered layers. Each Layer is a flat map of
// dotted keys ("httpserver.port") to string values; layers are merged left
// to right and the last layer to set a key wins. A Config is a read-only view
// over one merged layer.
package config

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/golobby/cast"
)

// Layer is one ordered configuration source: dotted key to string value.
type Layer map[string]string

// Clone returns a copy of the layer. A nil layer clones to an empty one.
func (l Layer) Clone() Layer {
	out := make(Layer, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// Config is an immutable, merged configuration view.
type Config struct {
	values Layer
}

var empty = &Config{values: Layer{}}

// Empty returns a Config with no keys.
func Empty() *Config {
	return empty
}

// New returns a Config over a copy of the given layers merged in order.
func New(layers ...Layer) *Config {
	return &Config{values: Merge(layers...)}
}

// FromMap is a convenience for New(Layer(values)).
func FromMap(values map[string]string) *Config {
	return New(Layer(values))
}

// Override returns a new Config with the given layers applied on top of c.
// c itself is left untouched.
func (c *Config) Override(layers ...Layer) *Config {
	all := make([]Layer, 0, len(layers)+1)
	all = append(all, c.layer())
	all = append(all, layers...)
	return New(all...)
}

func (c *Config) layer() Layer {
	if c == nil {
		return nil
	}
	return c.values
}

// Layer returns a copy of all values in c.
func (c *Config) Layer() Layer {
	return c.layer().Clone()
}

// Len returns the number of keys.
func (c *Config) Len() int {
	return len(c.layer())
}

// Keys returns every key in sorted order.
func (c *Config) Keys() []string {
	keys := make([]string, 0, c.Len())
	for k := range c.layer() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the raw value for key.
func (c *Config) Get(key string) (string, bool) {
	v, ok := c.layer()[key]
	return v, ok
}

// String returns the value for key, or def if the key is absent.
func (c *Config) String(key, def string) string {
	if v, ok := c.Get(key); ok {
		return v
	}
	return def
}

// Int returns key converted to an int, or def if absent.
func (c *Config) Int(key string, def int) (int, error) {
	v, err := c.convert(key, reflect.TypeOf(def))
	if err != nil || v == nil {
		return def, err
	}
	return v.(int), nil
}

// Bool returns key converted to a bool, or def if absent.
func (c *Config) Bool(key string, def bool) (bool, error) {
	v, err := c.convert(key, reflect.TypeOf(def))
	if err != nil || v == nil {
		return def, err
	}
	return v.(bool), nil
}

// Float returns key converted to a float64, or def if absent.
func (c *Config) Float(key string, def float64) (float64, error) {
	v, err := c.convert(key, reflect.TypeOf(def))
	if err != nil || v == nil {
		return def, err
	}
	return v.(float64), nil
}

// Duration returns key parsed with time.ParseDuration, or def if absent.
// A bare "0" is accepted as zero.
func (c *Config) Duration(key string, def time.Duration) (time.Duration, error) {
	raw, ok := c.Get(key)
	if !ok {
		return def, nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def, fmt.Errorf("%w: key %q: %w", ErrConversion, key, err)
	}
	return d, nil
}

func (c *Config) convert(key string, typ reflect.Type) (any, error) {
	raw, ok := c.Get(key)
	if !ok {
		return nil, nil
	}
	v, err := cast.FromType(strings.TrimSpace(raw), typ)
	if err != nil {
		return nil, fmt.Errorf("%w: key %q to %v: %w", ErrConversion, key, typ, err)
	}
	return v, nil
}

// Sub returns the keys under prefix with the prefix and its trailing dot
// removed. Sub("httpserver") of {"httpserver.port": "0"} is {"port": "0"}.
func (c *Config) Sub(prefix string) *Config {
	prefix = strings.TrimSuffix(prefix, ".")
	if prefix == "" {
		return c
	}
	out := Layer{}
	for k, v := range c.layer() {
		if rest, ok := strings.CutPrefix(k, prefix+"."); ok {
			out[rest] = v
		}
	}
	return &Config{values: out}
}

// Equal reports whether c and other hold exactly the same keys and values.
func (c *Config) Equal(other *Config) bool {
	return reflect.DeepEqual(c.layer().Clone(), other.layer().Clone())
}
