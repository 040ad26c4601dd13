package feeders

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"github.com/GoCodeAlone/servicetest/config"
)

// FlagName is the repeatable command-line flag read by FlagFeeder.
const FlagName = "set"

// FlagFeeder reads `--set key=value` pairs from command-line arguments.
//
// Only --set occurrences are considered so it can be fed os.Args[1:] of a
// test binary without tripping over `-test.*` flags:
//
//	go test ./... -args --set httpserver.port=9000 --set scheduler.pool-size=4
type FlagFeeder struct {
	Args []string
}

// NewFlagFeeder creates a FlagFeeder over args.
func NewFlagFeeder(args []string) FlagFeeder {
	return FlagFeeder{Args: args}
}

// Name implements Feeder.
func (f FlagFeeder) Name() string {
	return "flags"
}

// Layer implements Feeder.
func (f FlagFeeder) Layer() (config.Layer, error) {
	fs := pflag.NewFlagSet("servicetest", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	pairs := fs.StringArray(FlagName, nil, "Config override as key=value")

	if err := fs.Parse(setArgs(f.Args)); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	out := config.Layer{}
	for _, pair := range *pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", ErrFlagInvalidFormat, pair)
		}
		out[key] = value
	}
	return out, nil
}

// setArgs keeps only --set occurrences and their values.
func setArgs(args []string) []string {
	var out []string
	long := "--" + FlagName
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case strings.HasPrefix(arg, long+"="):
			out = append(out, arg)
		case arg == long && i+1 < len(args):
			out = append(out, arg, args[i+1])
			i++
		}
	}
	return out
}
