package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "CAMLGEN_"

// Config keys shared by the YAML file, CAMLGEN_* variables and flags.
const (
	keyWIT     = "wit"
	keyWasm    = "wasm"
	keyPackage = "package"
	keyOut     = "out"
	keyML      = "ml"
	keyTypes   = "types"
	keyGoTypes = "go_types"
)

var defaults = map[string]any{
	keyPackage: "bindings",
	keyGoTypes: true,
}

// loadOptions merges defaults, the optional YAML file at path, CAMLGEN_*
// environment variables and explicitly set flags, later sources winning.
func loadOptions(path string, flags map[string]any) (options, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return options{}, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return options{}, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	envKey := func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return options{}, err
	}
	if len(flags) > 0 {
		if err := k.Load(confmap.Provider(flags, "."), nil); err != nil {
			return options{}, err
		}
	}

	return options{
		witFile:  k.String(keyWIT),
		wasmFile: k.String(keyWasm),
		pkg:      k.String(keyPackage),
		out:      k.String(keyOut),
		mlFile:   k.String(keyML),
		names:    stringsOf(k.Get(keyTypes)),
		types:    k.Bool(keyGoTypes),
	}, nil
}

// stringsOf accepts a YAML list or a comma-separated string.
func stringsOf(v any) []string {
	switch v := v.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, x := range v {
			out = append(out, fmt.Sprint(x))
		}
		return out
	case string:
		var out []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// flagKeys maps flag names to the config keys they override.
var flagKeys = map[string]string{
	"wit":   keyWIT,
	"wasm":  keyWasm,
	"pkg":   keyPackage,
	"out":   keyOut,
	"ml":    keyML,
	"type":  keyTypes,
	"types": keyGoTypes,
}

// setFlags collects the flags given on the command line under their config keys.
func setFlags(fs *flag.FlagSet) map[string]any {
	out := make(map[string]any)
	fs.Visit(func(f *flag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		switch v := f.Value.(type) {
		case *stringList:
			out[key] = []string(*v)
		case flag.Getter:
			out[key] = v.Get()
		}
	})
	return out
}
