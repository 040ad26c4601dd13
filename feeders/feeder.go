// Package feeders produces configuration layers from files, the environment
// and command-line flags.
//
// Every feeder flattens its source into dotted keys so layers from different
// formats merge uniformly:
//
//	cfg, err := feeders.Load(
//		feeders.NewYamlFeeder("testdata/base.yaml"),
//		feeders.NewEnvFeeder("ITEST"),
//		feeders.NewFlagFeeder(os.Args[1:]),
//	)
package feeders

import (
	"fmt"
	"strings"

	"github.com/GoCodeAlone/servicetest/config"
)

// Feeder produces one configuration layer.
type Feeder interface {
	// Name identifies the feeder in errors and logs.
	Name() string

	// Layer reads the source and returns its flattened values.
	Layer() (config.Layer, error)
}

// Load reads every feeder in order and merges their layers, later feeders
// overriding earlier ones.
func Load(feeders ...Feeder) (*config.Config, error) {
	layers := make([]config.Layer, 0, len(feeders))
	for _, f := range feeders {
		l, err := f.Layer()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrFeed, f.Name(), err)
		}
		layers = append(layers, l)
	}
	return config.New(layers...), nil
}

// MustLoad is like Load but panics on error. Intended for test fixtures.
func MustLoad(feeders ...Feeder) *config.Config {
	cfg, err := Load(feeders...)
	if err != nil {
		panic(err)
	}
	return cfg
}

// flatten walks decoded document values and writes leaves as dotted keys.
// Slices become comma-separated lists so they round-trip through
// config.Bind's string-to-slice hook.
func flatten(prefix string, value any, out config.Layer) {
	switch v := value.(type) {
	case map[string]any:
		for k, child := range v {
			flatten(join(prefix, k), child, out)
		}
	case map[any]any:
		for k, child := range v {
			flatten(join(prefix, fmt.Sprint(k)), child, out)
		}
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		out[prefix] = strings.Join(parts, ",")
	case []map[string]any:
		// TOML arrays of tables are indexed: servers.0.host, servers.1.host
		for i, child := range v {
			flatten(join(prefix, fmt.Sprint(i)), child, out)
		}
	case nil:
		out[prefix] = ""
	default:
		out[prefix] = fmt.Sprint(v)
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// Static is a Feeder over an in-memory layer, handy for fixtures.
type Static struct {
	Label  string
	Values config.Layer
}

// Name implements Feeder.
func (s Static) Name() string {
	if s.Label == "" {
		return "static"
	}
	return s.Label
}

// Layer implements Feeder.
func (s Static) Layer() (config.Layer, error) {
	return s.Values.Clone(), nil
}
